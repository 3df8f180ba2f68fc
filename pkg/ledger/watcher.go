package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"lp-helper/pkg/logger"
)

const (
	DefaultCheckInterval = 15 * time.Second
	MinCheckInterval     = time.Second
	// StaleAfter stops polling entries that never got a receipt
	StaleAfter = 24 * time.Hour
)

// ReceiptSource looks up receipts; nil means not mined yet
type ReceiptSource interface {
	Receipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error)
}

// Watcher polls receipts of pending entries and records their outcome
type Watcher struct {
	ledger        *Ledger
	receipts      ReceiptSource
	checkInterval time.Duration
	log           zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewWatcher creates a watcher over ledger
func NewWatcher(ledger *Ledger, receipts ReceiptSource) *Watcher {
	return &Watcher{
		ledger:        ledger,
		receipts:      receipts,
		checkInterval: DefaultCheckInterval,
		log:           logger.New("watcher"),
	}
}

// SetCheckInterval sets the polling interval
func (w *Watcher) SetCheckInterval(interval time.Duration) {
	if interval < MinCheckInterval {
		interval = MinCheckInterval
	}
	w.checkInterval = interval
}

// Start polls in the background until Stop or ctx ends
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher is already running")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})

	go w.monitor(ctx, w.stopChan, w.done)
	return nil
}

// Stop halts polling and waits for the loop to exit
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	done := w.done
	w.mu.Unlock()

	<-done
}

// IsRunning reports whether the background loop is active
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) monitor(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	w.CheckPending(ctx)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.CheckPending(ctx)
		}
	}
}

// CheckPending checks every recent pending entry once and returns how many
// were resolved
func (w *Watcher) CheckPending(ctx context.Context) int {
	if err := w.ledger.Reload(); err != nil {
		w.log.Warn().Err(err).Msg("failed to reload ledger")
	}

	resolved := 0
	for _, entry := range w.ledger.Pending() {
		if time.Since(entry.Added) > StaleAfter {
			continue
		}
		done, err := w.Check(ctx, entry.Hash)
		if err != nil {
			// retried next tick
			w.log.Debug().Err(err).Str("tx", entry.Hash).Msg("receipt lookup failed")
			continue
		}
		if done {
			resolved++
		}
	}
	return resolved
}

// Check looks up the receipt for hash and records it. Returns true once the
// entry is terminal.
func (w *Watcher) Check(ctx context.Context, hash string) (bool, error) {
	receipt, err := w.receipts.Receipt(ctx, common.HexToHash(hash))
	if err != nil {
		return false, err
	}
	if receipt == nil {
		return false, nil
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	succeeded := receipt.Status == gethtypes.ReceiptStatusSuccessful
	entry, err := w.ledger.Resolve(hash, succeeded, block, receipt.GasUsed)
	if err != nil {
		return false, err
	}

	if succeeded {
		w.log.Info().Str("tx", hash).Str("summary", entry.Summary).Uint64("block", block).Msg("transaction confirmed")
	} else {
		w.log.Warn().Str("tx", hash).Str("summary", entry.Summary).Uint64("block", block).Msg("transaction reverted")
	}
	return true, nil
}

// Wait polls hash until it is terminal or ctx ends
func (w *Watcher) Wait(ctx context.Context, hash string) (*Entry, error) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		entry, err := w.ledger.storage.Get(hash)
		if err != nil {
			return nil, err
		}
		if entry.IsTerminal() {
			return entry, nil
		}
		done, err := w.Check(ctx, hash)
		if err != nil {
			w.log.Debug().Err(err).Str("tx", hash).Msg("receipt lookup failed")
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return entry, ctx.Err()
		case <-ticker.C:
		}
	}
}
