package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// New returns a console logger tagged with the component name
func New(component string) zerolog.Logger {
	return zerolog.New(out).With().Timestamp().Str("component", component).Logger()
}

// SetVerbose switches every component logger to debug level
func SetVerbose(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Silence drops all log output, used for --json runs
func Silence() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}
