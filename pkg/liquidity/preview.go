package liquidity

import (
	"fmt"

	"github.com/shopspring/decimal"

	"lp-helper/pkg/types"
)

// poolTokenDecimals is the precision of pair liquidity tokens
const poolTokenDecimals = 18

// Preview is what the user sees before confirming a deposit
type Preview struct {
	NoLiquidity  bool
	Title        string
	Headline     string
	Deposits     []types.AssetAmount
	PriceBPerA   string
	PriceAPerB   string
	PoolShare    string
	SlippageNote string
	PendingText  string
	ConfirmLabel string
}

// NewPreview frames attempt either as a new pool or as a deposit into an
// existing one
func NewPreview(attempt *Attempt, slippageBps int64) *Preview {
	d := attempt.Derived
	pair := attempt.Pair
	amounts := attempt.Amounts()
	a, b := amounts[types.FieldA], amounts[types.FieldB]

	pv := &Preview{
		NoLiquidity: d.NoLiquidity,
		Deposits:    []types.AssetAmount{a, b},
		PoolShare:   FormatShare(d.PoolShare),
		PendingText: fmt.Sprintf("Supplying %s %s and %s %s",
			a.ToSignificant(6), pair.A, b.ToSignificant(6), pair.B),
	}

	if d.Price != nil {
		pv.PriceBPerA = fmt.Sprintf("%s %s per %s", d.Price.ToSignificant(6), pair.B, pair.A)
		pv.PriceAPerB = fmt.Sprintf("%s %s per %s", d.Price.Invert().ToSignificant(6), pair.A, pair.B)
	}

	if d.NoLiquidity {
		pv.Title = "You are creating a pool"
		pv.Headline = pair.Symbols()
		pv.ConfirmLabel = "Create Pool & Supply"
		return pv
	}

	minted := "0"
	if d.LiquidityMinted != nil {
		minted = types.Significant(decimal.NewFromBigInt(d.LiquidityMinted, -poolTokenDecimals), 6)
	}
	pv.Title = "You will receive"
	pv.Headline = fmt.Sprintf("%s %s Pool Tokens", minted, pair.Symbols())
	pv.SlippageNote = fmt.Sprintf("Output is estimated. If the price changes by more than %s%% your transaction will revert.",
		decimal.New(slippageBps, -2).String())
	pv.ConfirmLabel = "Confirm Supply"
	return pv
}

// FormatShare renders a pool share percentage
func FormatShare(share decimal.Decimal) string {
	if share.IsZero() {
		return "0%"
	}
	if share.LessThan(decimal.New(1, -2)) {
		return "<0.01%"
	}
	return share.StringFixed(2) + "%"
}
