package ledger

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Ledger records submitted transactions and reconciles their outcome
type Ledger struct {
	storage *Storage
	now     func() time.Time
}

// NewLedger opens the ledger file at storagePath
func NewLedger(storagePath string) (*Ledger, error) {
	storage, err := NewStorage(storagePath)
	if err != nil {
		return nil, err
	}
	return &Ledger{storage: storage, now: time.Now}, nil
}

// Record stores a freshly submitted transaction as pending
func (l *Ledger) Record(hash common.Hash, summary string) error {
	if hash == (common.Hash{}) {
		return fmt.Errorf("transaction hash is empty")
	}
	entry := &Entry{
		ID:      uuid.New().String(),
		Hash:    hash.Hex(),
		Summary: summary,
		Added:   l.now(),
		Status:  StatusPending,
	}
	if err := l.storage.Create(entry); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// Get returns the entry matching an id or hash prefix
func (l *Ledger) Get(ref string) (*Entry, error) {
	return l.storage.Find(ref)
}

// List returns all entries, newest first
func (l *Ledger) List() []*Entry {
	return l.storage.List()
}

// Pending returns entries still waiting for a receipt
func (l *Ledger) Pending() []*Entry {
	return l.storage.ListByStatus(StatusPending)
}

// Resolve records the mined outcome of hash. Entries already resolved are
// left untouched.
func (l *Ledger) Resolve(hash string, succeeded bool, block, gasUsed uint64) (*Entry, error) {
	entry, err := l.storage.Get(hash)
	if err != nil {
		return nil, err
	}
	if entry.IsTerminal() {
		return entry, nil
	}

	now := l.now()
	entry.Status = StatusFailed
	if succeeded {
		entry.Status = StatusConfirmed
	}
	entry.BlockNumber = block
	entry.GasUsed = gasUsed
	entry.Resolved = &now

	if err := l.storage.Update(entry); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return entry, nil
}

// Reload picks up entries recorded by other processes
func (l *Ledger) Reload() error {
	return l.storage.Reload()
}

// GetStorage returns the underlying storage
func (l *Ledger) GetStorage() *Storage {
	return l.storage
}
