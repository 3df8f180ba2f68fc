package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lp-helper/pkg/types"
)

// State is the allowance status of one (asset, spender) pair
type State string

const (
	Unknown     State = "unknown"
	NotApproved State = "not_approved"
	Pending     State = "pending"
	Approved    State = "approved"
)

// Tracker reports and requests token allowances. Request is fire and
// forget: the outcome is observed through later Check calls.
type Tracker interface {
	Check(ctx context.Context, amount types.AssetAmount, spender common.Address) (State, error)
	Request(ctx context.Context, amount types.AssetAmount, spender common.Address) error
}

// Required reports whether amount needs an allowance at all. The native
// coin is sent as value and zero amounts move nothing.
func Required(amount types.AssetAmount) bool {
	return !amount.Asset.IsNative() && amount.IsPositive()
}

// Label is the call to action shown for a blocked asset
func Label(state State, symbol string) string {
	switch state {
	case Pending:
		return "Approving " + symbol + "..."
	case Approved:
		return symbol + " approved"
	default:
		return "Approve " + symbol
	}
}

// Gate checks that the spender may move every required amount
type Gate struct {
	tracker Tracker
	spender common.Address
}

// NewGate creates a gate for spender
func NewGate(tracker Tracker, spender common.Address) *Gate {
	return &Gate{tracker: tracker, spender: spender}
}

// Spender returns the contract approvals are granted to
func (g *Gate) Spender() common.Address {
	return g.spender
}

// State returns the allowance state for amount. Amounts that need no
// allowance are always Approved.
func (g *Gate) State(ctx context.Context, amount types.AssetAmount) (State, error) {
	if !Required(amount) {
		return Approved, nil
	}
	return g.tracker.Check(ctx, amount, g.spender)
}

// Approve requests an allowance for amount. It does nothing when none is
// needed, one is already granted or a request is in flight.
func (g *Gate) Approve(ctx context.Context, amount types.AssetAmount) error {
	state, err := g.State(ctx, amount)
	if err != nil {
		return err
	}
	if state == Approved || state == Pending {
		return nil
	}
	return g.tracker.Request(ctx, amount, g.spender)
}

// Await polls the state of amount until it leaves Pending or ctx ends
func (g *Gate) Await(ctx context.Context, amount types.AssetAmount, interval time.Duration) (State, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state, err := g.State(ctx, amount)
		if err != nil {
			return Unknown, err
		}
		if state == Approved || state == NotApproved {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Status is the gate's view of one field
type Status struct {
	Field    types.Field
	Amount   types.AssetAmount
	Required bool
	State    State
}

// Label returns the call to action for this field
func (s Status) Label() string {
	return Label(s.State, s.Amount.Asset.String())
}

// Result is the gate's verdict on both fields
type Result struct {
	Statuses []Status
}

// Ready is true when every required field is Approved
func (r *Result) Ready() bool {
	return r.Err() == nil
}

// Err names the first blocked field, wrapping types.ErrApprovalNotReady
func (r *Result) Err() error {
	for _, s := range r.Statuses {
		if s.Required && s.State != Approved {
			return fmt.Errorf("%w: %s", types.ErrApprovalNotReady, s.Label())
		}
	}
	return nil
}

// Check evaluates both fields. The same asset in both fields is looked up
// under the same (asset, spender) key.
func (g *Gate) Check(ctx context.Context, amounts map[types.Field]types.AssetAmount) (*Result, error) {
	res := &Result{}
	for _, f := range types.Fields {
		amount, ok := amounts[f]
		if !ok {
			continue
		}
		state, err := g.State(ctx, amount)
		if err != nil {
			return nil, fmt.Errorf("failed to check approval for %s: %w", amount.Asset, err)
		}
		res.Statuses = append(res.Statuses, Status{
			Field:    f,
			Amount:   amount,
			Required: Required(amount),
			State:    state,
		})
	}
	return res, nil
}
