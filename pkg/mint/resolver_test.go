package mint

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/assert"

	"lp-helper/pkg/reserves"
	"lp-helper/pkg/types"
)

var (
	account = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	eth     = types.NewNative(1, "ETH", 18)
	tokenX  = types.NewToken(1, common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), "X", 18)
	tokenY  = types.NewToken(1, common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"), "Y", 6)
)

func units(n int64, decimals uint8) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

func pool(a, b types.Asset, ra, rb *big.Int) *reserves.PairInfo {
	return &reserves.PairInfo{
		State:       types.PairExists,
		Pair:        types.Pair{A: a, B: b},
		ReserveA:    types.NewAmount(a, ra),
		ReserveB:    types.NewAmount(b, rb),
		TotalSupply: units(1000, 18),
	}
}

func noPool(a, b types.Asset) *reserves.PairInfo {
	return &reserves.PairInfo{
		State:    types.PairDoesNotExist,
		Pair:     types.Pair{A: a, B: b},
		ReserveA: types.ZeroAmount(a),
		ReserveB: types.ZeroAmount(b),
	}
}

func TestResolve_ExistingPoolDerivesDependent(t *testing.T) {
	pair := types.Pair{A: tokenX, B: tokenY}
	info := pool(tokenX, tokenY, units(100, 18), units(200, 6))

	state := NewState()
	state.TypeInput(types.FieldA, "10", false)

	d := Resolve(state, Inputs{Pair: pair, Account: account, Info: info})
	assert.NoError(t, d.Err)
	assert.Equal(t, d.Parsed[types.FieldB].Raw.String(), units(20, 6).String())
	assert.Equal(t, d.Formatted[types.FieldA], "10")
	assert.Equal(t, d.Formatted[types.FieldB], "20")
	assert.Equal(t, d.Price.ToSignificant(6), "2")
}

func TestResolve_SwitchingFieldReassignsIndependence(t *testing.T) {
	pair := types.Pair{A: tokenX, B: tokenY}
	info := pool(tokenX, tokenY, units(100, 18), units(200, 6))

	state := NewState()
	state.TypeInput(types.FieldA, "10", false)
	state.TypeInput(types.FieldB, "50", false)

	d := Resolve(state, Inputs{Pair: pair, Account: account, Info: info})
	assert.Equal(t, d.Independent, types.FieldB)
	assert.Equal(t, d.Dependent, types.FieldA)
	assert.Equal(t, d.Formatted[types.FieldA], "25")
	assert.Equal(t, state.OtherTypedValue, "")
}

func TestResolve_NoPoolUsesTypedOtherValue(t *testing.T) {
	pair := types.Pair{A: eth, B: tokenX}

	state := NewState()
	state.TypeInput(types.FieldA, "1", true)
	state.TypeInput(types.FieldB, "400", true)

	d := Resolve(state, Inputs{Pair: pair, Account: account, Info: noPool(eth, tokenX)})
	assert.NoError(t, d.Err)
	assert.True(t, d.NoLiquidity)
	assert.Equal(t, d.Formatted[types.FieldA], "1")
	assert.Equal(t, d.Formatted[types.FieldB], "400")
	assert.Equal(t, d.Parsed[types.FieldA].Raw.String(), units(1, 18).String())
	assert.Equal(t, d.Parsed[types.FieldB].Raw.String(), units(400, 18).String())
	assert.Equal(t, d.Price.ToSignificant(6), "400")
}

func TestResolve_NoPoolRequiresBothSides(t *testing.T) {
	pair := types.Pair{A: eth, B: tokenX}
	state := NewState()
	state.TypeInput(types.FieldA, "1", true)

	d := Resolve(state, Inputs{Pair: pair, Account: account, Info: noPool(eth, tokenX)})
	assert.True(t, errors.Is(d.Err, types.ErrInputInvalid))
	assert.Equal(t, d.Message(), "Enter an amount")
}

func TestResolve_AnyRatioAllowsOneSidedDeposit(t *testing.T) {
	pair := types.Pair{A: eth, B: tokenX}
	info := pool(eth, tokenX, units(1, 18), units(400, 18))

	state := NewState()
	state.TypeInput(types.FieldA, "1", true)

	d := Resolve(state, Inputs{Pair: pair, Account: account, Info: info, AnyRatio: true})
	assert.NoError(t, d.Err)
	assert.True(t, d.Parsed[types.FieldB].IsZero())
	assert.Equal(t, d.Formatted[types.FieldB], "")
}

func TestResolve_EmptyOrUnparseableIndependent(t *testing.T) {
	pair := types.Pair{A: tokenX, B: tokenY}
	info := pool(tokenX, tokenY, units(100, 18), units(200, 6))

	for _, typed := range []string{"", "abc", "1.2.3"} {
		state := NewState()
		state.TypeInput(types.FieldA, typed, false)
		d := Resolve(state, Inputs{Pair: pair, Account: account, Info: info})
		assert.True(t, d.Parsed[types.FieldB] == nil)
		assert.Equal(t, d.Formatted[types.FieldB], "")
		assert.False(t, d.Ready())
		assert.True(t, errors.Is(d.Err, types.ErrInputInvalid))
	}
}

func TestResolve_UnresolvedAsset(t *testing.T) {
	state := NewState()
	state.TypeInput(types.FieldA, "1", false)

	d := Resolve(state, Inputs{Pair: types.Pair{A: tokenX}, Account: account})
	assert.True(t, errors.Is(d.Err, types.ErrInputInvalid))
	assert.Equal(t, d.Message(), "Select a token")
	assert.Equal(t, d.PairState, types.PairInvalid)
}

func TestResolve_IdenticalAssetsArePairInvalid(t *testing.T) {
	state := NewState()
	state.TypeInput(types.FieldA, "1", false)

	d := Resolve(state, Inputs{Pair: types.Pair{A: tokenX, B: tokenX}, Account: account})
	assert.True(t, errors.Is(d.Err, types.ErrPairInvalid))
	assert.Equal(t, d.Message(), "Invalid pair")
}

func TestResolve_ConnectWalletAndLoading(t *testing.T) {
	pair := types.Pair{A: tokenX, B: tokenY}
	state := NewState()
	state.TypeInput(types.FieldA, "1", false)

	d := Resolve(state, Inputs{Pair: pair})
	assert.Equal(t, d.Message(), "Connect Wallet")

	d = Resolve(state, Inputs{Pair: pair, Account: account})
	assert.Equal(t, d.PairState, types.PairLoading)
	assert.False(t, d.Ready())
}

func TestResolve_InsufficientBalance(t *testing.T) {
	pair := types.Pair{A: tokenX, B: tokenY}
	info := pool(tokenX, tokenY, units(100, 18), units(200, 6))
	balX := types.NewAmount(tokenX, units(5, 18))

	state := NewState()
	state.TypeInput(types.FieldA, "10", false)

	d := Resolve(state, Inputs{
		Pair:     pair,
		Account:  account,
		Info:     info,
		Balances: map[types.Field]*types.AssetAmount{types.FieldA: &balX},
	})
	assert.Equal(t, d.Message(), "Insufficient X balance")
}

func TestMaxSpend_KeepsNativeGasReserve(t *testing.T) {
	reserve := new(big.Int).Div(units(1, 18), big.NewInt(100))

	bal := types.NewAmount(eth, units(1, 18))
	m := MaxSpend(&bal, reserve)
	assert.Equal(t, m.ToExact(), "0.99")

	tiny := types.NewAmount(eth, big.NewInt(1000))
	assert.True(t, MaxSpend(&tiny, reserve).IsZero())

	tok := types.NewAmount(tokenX, units(3, 18))
	assert.Equal(t, MaxSpend(&tok, reserve).ToExact(), "3")

	assert.True(t, MaxSpend(nil, reserve) == nil)
}

func TestUseMaxAndAtMax(t *testing.T) {
	pair := types.Pair{A: eth, B: tokenX}
	info := pool(eth, tokenX, units(1, 18), units(400, 18))
	reserve := new(big.Int).Div(units(1, 18), big.NewInt(100))
	balETH := types.NewAmount(eth, units(2, 18))
	in := Inputs{
		Pair:          pair,
		Account:       account,
		Info:          info,
		Balances:      map[types.Field]*types.AssetAmount{types.FieldA: &balETH},
		NativeReserve: reserve,
	}

	state := NewState()
	state.TypeInput(types.FieldA, "1", false)
	d := Resolve(state, in)
	assert.False(t, d.AtMax[types.FieldA])

	UseMax(&state, d, types.FieldA)
	assert.Equal(t, state.TypedValue, "1.99")

	d = Resolve(state, in)
	assert.True(t, d.AtMax[types.FieldA])
	assert.Equal(t, d.Formatted[types.FieldB], "796")
}

func TestClearIndependent(t *testing.T) {
	state := NewState()
	state.TypeInput(types.FieldB, "3", false)
	state.ClearIndependent()
	assert.Equal(t, state.Independent, types.FieldB)
	assert.Equal(t, state.Typed(types.FieldB), "")
}
