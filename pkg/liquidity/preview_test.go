package liquidity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"
)

func TestNewPreview_NewPool(t *testing.T) {
	_, attempt := firstDeposit()
	pv := NewPreview(attempt, 50)

	assert.True(t, pv.NoLiquidity)
	assert.Equal(t, pv.Title, "You are creating a pool")
	assert.Equal(t, pv.Headline, "ETH/X")
	assert.Equal(t, pv.ConfirmLabel, "Create Pool & Supply")
	assert.Equal(t, pv.SlippageNote, "")
	assert.Equal(t, pv.PendingText, "Supplying 1 ETH and 400 X")
	assert.Equal(t, pv.PriceBPerA, "400 X per ETH")
	assert.Equal(t, pv.PriceAPerB, "0.0025 ETH per X")
	assert.Equal(t, pv.PoolShare, "100.00%")
}

func TestNewPreview_ExistingPool(t *testing.T) {
	pv := NewPreview(existingPoolAttempt(), 50)

	assert.False(t, pv.NoLiquidity)
	assert.Equal(t, pv.Title, "You will receive")
	assert.Equal(t, pv.Headline, "1 X/Y Pool Tokens")
	assert.Equal(t, pv.ConfirmLabel, "Confirm Supply")
	assert.Equal(t, pv.SlippageNote, "Output is estimated. If the price changes by more than 0.5% your transaction will revert.")
	assert.Equal(t, pv.PriceBPerA, "2 Y per X")
	assert.Equal(t, pv.PoolShare, "9.09%")
	assert.Equal(t, len(pv.Deposits), 2)
}

func TestFormatShare(t *testing.T) {
	assert.Equal(t, FormatShare(decimal.Zero), "0%")
	assert.Equal(t, FormatShare(decimal.RequireFromString("0.004")), "<0.01%")
	assert.Equal(t, FormatShare(decimal.RequireFromString("12.345")), "12.35%")
}
