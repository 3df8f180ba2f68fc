package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lp-helper/config"
	"lp-helper/pkg/ledger"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash-or-id>",
	Short: "Check the status of a submitted deposit",
	Long: `Check whether a recorded deposit transaction has been mined.
The argument is the transaction hash, its ledger id, or a unique prefix of
either.

Examples:
  lp-helper status 0x5e1f...
  lp-helper status 0x5e1f --watch
  lp-helper status 0x5e1f --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Wait until the transaction is mined")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	led, err := openLedger(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	entry, err := led.Get(args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if entry.IsPending() {
		entry = refreshEntry(cfg, led, entry, jsonOutput)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayEntry(entry)
}

// refreshEntry looks the receipt up once, or until mined with --watch.
// Without a reachable node the stored entry is returned.
func refreshEntry(cfg *config.Config, led *ledger.Ledger, entry *ledger.Entry, jsonOutput bool) *ledger.Entry {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, err := openEnvironment(ctx, cfg, false)
	if err != nil {
		if watchStatus {
			printError(err)
			os.Exit(1)
		}
		return entry
	}
	defer env.Close()

	watcher := ledger.NewWatcher(led, env.session)
	watcher.SetCheckInterval(time.Duration(watchInterval) * time.Second)

	if !watchStatus {
		if _, err := watcher.Check(ctx, entry.Hash); err != nil && !jsonOutput {
			color.Red("Failed to fetch receipt: %v", err)
		}
		if refreshed, err := led.Get(entry.Hash); err == nil {
			return refreshed
		}
		return entry
	}

	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(entry.Hash))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n", watchInterval)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Waiting for receipt..."
	s.Start()
	waited, err := watcher.Wait(ctx, entry.Hash)
	s.Stop()
	if err != nil {
		color.Yellow("\nStopped watching: %v", err)
	}
	if waited != nil {
		return waited
	}
	return entry
}

func displayEntry(entry *ledger.Entry) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                      TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Deposit:       %s\n", entry.Summary)
	fmt.Printf("  Transaction:   %s\n", color.CyanString(entry.Hash))
	fmt.Printf("  ID:            %s\n", color.HiBlackString(entry.ID))
	fmt.Printf("  Status:        %s\n", getColoredStatus(entry.Status))
	fmt.Printf("  Submitted:     %s\n", entry.Added.Format("2006-01-02 15:04:05"))
	if entry.IsTerminal() {
		fmt.Printf("  Block:         %d\n", entry.BlockNumber)
		fmt.Printf("  Gas Used:      %d\n", entry.GasUsed)
		if entry.Resolved != nil {
			fmt.Printf("  Resolved:      %s\n", entry.Resolved.Format("2006-01-02 15:04:05"))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status ledger.Status) string {
	label := strings.ToUpper(string(status))

	switch status {
	case ledger.StatusConfirmed:
		return color.GreenString(label)
	case ledger.StatusPending:
		return color.YellowString(label)
	case ledger.StatusFailed:
		return color.RedString(label)
	default:
		return label
	}
}
