package cmd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/assert"

	"lp-helper/config"
	"lp-helper/pkg/liquidity"
	"lp-helper/pkg/types"
)

var (
	testPair = types.Pair{
		A: types.NewToken(1, common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), "X", 18),
		B: types.NewToken(1, common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), "Y", 6),
	}
)

func TestCheckConfirmMode(t *testing.T) {
	cfg := &config.Config{}
	assert.NoError(t, checkConfirmMode(cfg, false))
	assert.Error(t, checkConfirmMode(cfg, true))

	cfg.ExpertMode = true
	assert.NoError(t, checkConfirmMode(cfg, true))
}

func TestTypedState_FixedRatioRejectsSecondAmount(t *testing.T) {
	req := &types.AddRequest{AmountA: "10", AmountB: "30", Independent: types.FieldA}

	_, err := typedState(req, testPair, false)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInputInvalid))

	state, err := typedState(req, testPair, true)
	assert.NoError(t, err)
	assert.Equal(t, state.Independent, types.FieldA)
	assert.Equal(t, state.TypedValue, "10")
	assert.Equal(t, state.OtherTypedValue, "30")
}

func TestTypedState_SingleAmount(t *testing.T) {
	req := &types.AddRequest{AmountB: "20", Independent: types.FieldB}

	state, err := typedState(req, testPair, false)
	assert.NoError(t, err)
	assert.Equal(t, state.Independent, types.FieldB)
	assert.Equal(t, state.TypedValue, "20")
	assert.Equal(t, state.OtherTypedValue, "")
}

func TestProgressReporter_ShowsPendingText(t *testing.T) {
	var out bytes.Buffer
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)

	report := progressReporter(&out, s, "Supplying 1 ETH and 400 X")
	report(liquidity.Estimating, liquidity.Submitting)

	assert.Equal(t, out.String(), "\nSupplying 1 ETH and 400 X\n")
}
