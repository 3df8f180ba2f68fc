package planner

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lp-helper/pkg/types"
)

// Kind is the transaction shape chosen for a deposit
type Kind string

const (
	NativePlusToken Kind = "native_plus_token"
	TokenPlusToken  Kind = "token_plus_token"
)

// Helper contract entry points, one per Kind
const (
	MethodNativePlusToken = "swapAndAddLiquidityEthAndToken"
	MethodTokenPlusToken  = "swapAndAddLiquidityTokenAndToken"
)

// BpsDenominator is 100% in basis points
const BpsDenominator = 10000

// NominalMinLiquidity is the floor used when no minted estimate is available
var NominalMinLiquidity = big.NewInt(1)

// Plan is a fully resolved call against the helper contract. Args are in
// ABI order and typed for go-ethereum's packer. Plans are built per attempt
// and never stored.
type Plan struct {
	Kind   Kind
	Method string
	Args   []interface{}
	Value  *big.Int // attached native value, nil for TokenPlusToken
}

// Input is everything the planner needs
type Input struct {
	AssetA          types.Asset
	AssetB          types.Asset
	AmountA         *big.Int
	AmountB         *big.Int
	Recipient       common.Address
	Deadline        *big.Int
	MinLiquidityOut *big.Int // nil means NominalMinLiquidity
}

// Build returns the plan for in. It has no side effects.
func Build(in Input) (*Plan, error) {
	if in.AssetA.IsZero() || in.AssetB.IsZero() {
		return nil, fmt.Errorf("%w: both assets must be selected", types.ErrInputInvalid)
	}
	if in.AssetA.IsNative() && in.AssetB.IsNative() {
		return nil, fmt.Errorf("%w: both assets are the native coin", types.ErrPairInvalid)
	}
	if in.Deadline == nil || in.Deadline.Sign() <= 0 {
		return nil, fmt.Errorf("%w: deadline is not set", types.ErrInputInvalid)
	}
	amountA, err := nonNegative(in.AmountA, in.AssetA)
	if err != nil {
		return nil, err
	}
	amountB, err := nonNegative(in.AmountB, in.AssetB)
	if err != nil {
		return nil, err
	}
	deadline := new(big.Int).Set(in.Deadline)

	if !in.AssetA.IsNative() && !in.AssetB.IsNative() {
		return &Plan{
			Kind:   TokenPlusToken,
			Method: MethodTokenPlusToken,
			Args: []interface{}{
				in.AssetA.Address,
				in.AssetB.Address,
				amountA,
				amountB,
				in.Recipient,
				deadline,
			},
		}, nil
	}

	token, tokenAmount, nativeAmount := in.AssetB, amountB, amountA
	if in.AssetB.IsNative() {
		token, tokenAmount, nativeAmount = in.AssetA, amountA, amountB
	}

	minOut := NominalMinLiquidity
	if in.MinLiquidityOut != nil && in.MinLiquidityOut.Sign() > 0 {
		minOut = in.MinLiquidityOut
	}

	return &Plan{
		Kind:   NativePlusToken,
		Method: MethodNativePlusToken,
		Args: []interface{}{
			token.Address,
			tokenAmount,
			new(big.Int).Set(minOut),
			in.Recipient,
			deadline,
		},
		Value: nativeAmount,
	}, nil
}

func nonNegative(raw *big.Int, asset types.Asset) (*big.Int, error) {
	if raw == nil {
		return new(big.Int), nil
	}
	if raw.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount of %s", types.ErrInputInvalid, asset)
	}
	return new(big.Int).Set(raw), nil
}

// Deadline returns now in whole seconds, rounded up, plus minutes
func Deadline(now time.Time, minutes int) *big.Int {
	secs := now.Unix()
	if now.Nanosecond() > 0 {
		secs++
	}
	return big.NewInt(secs + int64(minutes)*60)
}

// MinLiquidity bounds the pool tokens a deposit must mint: the quoted
// estimate less slippage. Falls back to NominalMinLiquidity without an
// estimate, and never goes below it.
func MinLiquidity(minted *big.Int, slippageBps int64) *big.Int {
	if minted == nil || minted.Sign() <= 0 {
		return new(big.Int).Set(NominalMinLiquidity)
	}
	if slippageBps < 0 {
		slippageBps = 0
	}
	if slippageBps > BpsDenominator {
		slippageBps = BpsDenominator
	}
	out := new(big.Int).Mul(minted, big.NewInt(BpsDenominator-slippageBps))
	out.Quo(out, big.NewInt(BpsDenominator))
	if out.Cmp(NominalMinLiquidity) < 0 {
		return new(big.Int).Set(NominalMinLiquidity)
	}
	return out
}

// WithMargin scales a gas estimate up by marginBps
func WithMargin(gas uint64, marginBps int64) uint64 {
	if marginBps <= 0 {
		return gas
	}
	scaled := new(big.Int).SetUint64(gas)
	scaled.Mul(scaled, big.NewInt(BpsDenominator+marginBps))
	scaled.Quo(scaled, big.NewInt(BpsDenominator))
	return scaled.Uint64()
}
