package ledger

import (
	"time"
)

// Status is the on-chain outcome of a recorded transaction
type Status string

const (
	StatusPending   Status = "pending"   // Sent, no receipt yet
	StatusConfirmed Status = "confirmed" // Mined and succeeded
	StatusFailed    Status = "failed"    // Mined and reverted
)

// Entry is one submitted transaction
type Entry struct {
	ID          string     `json:"id"`
	Hash        string     `json:"hash"`
	Summary     string     `json:"summary"`
	Added       time.Time  `json:"added"`
	Status      Status     `json:"status"`
	BlockNumber uint64     `json:"block_number,omitempty"`
	GasUsed     uint64     `json:"gas_used,omitempty"`
	Resolved    *time.Time `json:"resolved,omitempty"`
}

// IsPending returns true until a receipt has been observed
func (e *Entry) IsPending() bool {
	return e.Status == StatusPending
}

// IsTerminal returns true once the outcome is known
func (e *Entry) IsTerminal() bool {
	return e.Status == StatusConfirmed || e.Status == StatusFailed
}
