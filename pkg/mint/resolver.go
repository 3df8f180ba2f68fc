package mint

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"lp-helper/pkg/reserves"
	"lp-helper/pkg/types"
)

// InputError is a form-level problem that blocks submission. Kind is one of
// types.ErrInputInvalid or types.ErrPairInvalid.
type InputError struct {
	Kind error
	Msg  string
}

func (e *InputError) Error() string { return e.Msg }
func (e *InputError) Unwrap() error { return e.Kind }

func inputInvalid(msg string) *InputError {
	return &InputError{Kind: types.ErrInputInvalid, Msg: msg}
}

// Inputs is everything the resolver consults besides the typed state
type Inputs struct {
	Pair     types.Pair
	Account  common.Address
	Info     *reserves.PairInfo // nil while the pool is loading
	Balances map[types.Field]*types.AssetAmount
	AnyRatio bool
	// NativeReserve is kept back from a native balance for gas, in raw units
	NativeReserve *big.Int
}

// Derived is the resolved view of the form
type Derived struct {
	Independent     types.Field
	Dependent       types.Field
	PairState       types.PairState
	NoLiquidity     bool
	AnyRatio        bool
	Parsed          map[types.Field]*types.AssetAmount
	Formatted       map[types.Field]string
	Max             map[types.Field]*types.AssetAmount
	AtMax           map[types.Field]bool
	Price           *reserves.Price
	LiquidityMinted *big.Int
	PoolShare       decimal.Decimal
	Err             error
}

// FreeRatio is true when both fields are user typed
func (d *Derived) FreeRatio() bool {
	return d.NoLiquidity || d.AnyRatio
}

// Ready reports whether the amounts can be planned and submitted
func (d *Derived) Ready() bool {
	return d.Err == nil
}

// Amount returns the parsed amount for field, zero when missing
func (d *Derived) Amount(field types.Field, asset types.Asset) types.AssetAmount {
	if amt := d.Parsed[field]; amt != nil {
		return *amt
	}
	return types.ZeroAmount(asset)
}

// Message is the label shown on the submit action
func (d *Derived) Message() string {
	if d.Err != nil {
		return d.Err.Error()
	}
	return "Supply"
}

// Resolve derives display and machine amounts from the typed state
func Resolve(state State, in Inputs) *Derived {
	d := &Derived{
		Independent: state.Independent,
		Dependent:   state.Independent.Other(),
		PairState:   types.PairLoading,
		AnyRatio:    in.AnyRatio,
		Parsed:      make(map[types.Field]*types.AssetAmount),
		Formatted:   make(map[types.Field]string),
		Max:         make(map[types.Field]*types.AssetAmount),
		AtMax:       make(map[types.Field]bool),
		PoolShare:   decimal.Zero,
	}

	switch {
	case !in.Pair.Resolved() || in.Pair.A.Equals(in.Pair.B):
		d.PairState = types.PairInvalid
	case in.Info != nil:
		d.PairState = in.Info.State
		d.NoLiquidity = in.Info.NoLiquidity()
	}

	indep, dep := d.Independent, d.Dependent

	if in.Pair.Resolved() {
		if amt, err := types.ParseAmount(in.Pair.Get(indep), state.TypedValue); err == nil {
			d.Parsed[indep] = &amt
		}

		if d.FreeRatio() {
			other := state.OtherTypedValue
			if other == "" && !d.NoLiquidity {
				other = "0"
			}
			if amt, err := types.ParseAmount(in.Pair.Get(dep), other); err == nil {
				d.Parsed[dep] = &amt
			}
		} else if d.Parsed[indep] != nil && in.Info != nil && d.PairState == types.PairExists {
			if amt, err := in.Info.Dependent(*d.Parsed[indep]); err == nil {
				d.Parsed[dep] = &amt
			}
		}
	}

	d.Formatted[indep] = state.TypedValue
	switch {
	case d.FreeRatio():
		d.Formatted[dep] = state.OtherTypedValue
	case d.Parsed[dep] != nil:
		d.Formatted[dep] = d.Parsed[dep].ToSignificant(6)
	default:
		d.Formatted[dep] = ""
	}

	for _, f := range types.Fields {
		d.Max[f] = MaxSpend(in.Balances[f], in.NativeReserve)
		if d.Max[f] != nil && d.Parsed[f] != nil {
			d.AtMax[f] = d.Max[f].EqualTo(*d.Parsed[f])
		}
	}

	a, b := d.Parsed[types.FieldA], d.Parsed[types.FieldB]
	if in.Info != nil && a != nil && b != nil {
		if d.NoLiquidity {
			if a.IsPositive() && b.IsPositive() {
				d.Price = reserves.NewPrice(in.Pair.A, in.Pair.B, a.Raw, b.Raw)
			}
		} else {
			d.Price = in.Info.Price()
		}
		if d.PairState == types.PairExists || d.PairState == types.PairDoesNotExist {
			d.LiquidityMinted = in.Info.LiquidityMinted(*a, *b)
			d.PoolShare = in.Info.PoolShare(d.LiquidityMinted)
		}
	} else if in.Info != nil && !d.NoLiquidity {
		d.Price = in.Info.Price()
	}

	d.Err = validate(d, in)
	return d
}

func validate(d *Derived, in Inputs) error {
	if !in.Pair.Resolved() {
		return inputInvalid("Select a token")
	}
	if in.Account == (common.Address{}) {
		return inputInvalid("Connect Wallet")
	}
	if d.PairState == types.PairInvalid {
		return &InputError{Kind: types.ErrPairInvalid, Msg: "Invalid pair"}
	}
	if d.PairState == types.PairLoading {
		return inputInvalid("Loading")
	}

	a, b := d.Parsed[types.FieldA], d.Parsed[types.FieldB]
	if a == nil || b == nil {
		return inputInvalid("Enter an amount")
	}
	switch {
	case d.NoLiquidity:
		if !a.IsPositive() || !b.IsPositive() {
			return inputInvalid("Enter an amount")
		}
	case d.AnyRatio:
		if !a.IsPositive() && !b.IsPositive() {
			return inputInvalid("Enter an amount")
		}
	default:
		if !d.Parsed[d.Independent].IsPositive() {
			return inputInvalid("Enter an amount")
		}
	}

	for _, f := range types.Fields {
		bal := in.Balances[f]
		if bal != nil && d.Parsed[f].Cmp(*bal) > 0 {
			return inputInvalid("Insufficient " + in.Pair.Get(f).String() + " balance")
		}
	}
	return nil
}

// MaxSpend returns the most of balance a deposit may use. The native coin
// keeps reserve back for gas. Nil when the balance is unknown.
func MaxSpend(balance *types.AssetAmount, reserve *big.Int) *types.AssetAmount {
	if balance == nil {
		return nil
	}
	out := types.NewAmount(balance.Asset, balance.Raw)
	if balance.Asset.IsNative() && reserve != nil {
		out = out.Sub(types.NewAmount(balance.Asset, reserve))
	}
	return &out
}

// UseMax fills field with its max spendable amount
func UseMax(state *State, d *Derived, field types.Field) {
	limit := d.Max[field]
	if limit == nil {
		return
	}
	state.TypeInput(field, limit.ToExact(), d.FreeRatio())
}
