package reserves

import (
	"math/big"
	"testing"

	"github.com/zeebo/assert"

	"lp-helper/pkg/types"
)

func existingPool(a, b types.Asset, ra, rb, supply *big.Int) *PairInfo {
	return &PairInfo{
		State:       types.PairExists,
		Pair:        types.Pair{A: a, B: b},
		ReserveA:    types.NewAmount(a, ra),
		ReserveB:    types.NewAmount(b, rb),
		TotalSupply: supply,
	}
}

func TestDependent_ScalesByPoolPrice(t *testing.T) {
	info := existingPool(tokenX, tokenY, e18(100), e18(200), e18(141))

	for _, n := range []int64{1, 10, 37, 1000} {
		out, err := info.Dependent(types.NewAmount(tokenX, e18(n)))
		assert.NoError(t, err)
		assert.True(t, out.Asset.Equals(tokenY))
		assert.Equal(t, out.Raw.String(), e18(2*n).String())
	}

	back, err := info.Dependent(types.NewAmount(tokenY, e18(20)))
	assert.NoError(t, err)
	assert.True(t, back.Asset.Equals(tokenX))
	assert.Equal(t, back.Raw.String(), e18(10).String())
}

func TestDependent_MixedDecimals(t *testing.T) {
	usdc := types.NewToken(1, tokenY.Address, "USDC", 6)
	// 1 ETH : 400 USDC
	info := existingPool(eth, usdc, e18(10), big.NewInt(4000_000000), e18(1))

	out, err := info.Dependent(types.NewAmount(eth, e18(1)))
	assert.NoError(t, err)
	assert.Equal(t, out.ToExact(), "400")
	assert.Equal(t, info.Price().ToSignificant(6), "400")
	assert.Equal(t, info.Price().Invert().ToSignificant(3), "0.0025")
}

func TestDependent_NoLiquidity(t *testing.T) {
	info := &PairInfo{State: types.PairDoesNotExist, Pair: types.Pair{A: eth, B: tokenX}}
	_, err := info.Dependent(types.NewAmount(eth, e18(1)))
	assert.Error(t, err)

	empty := existingPool(tokenX, tokenY, big.NewInt(0), big.NewInt(0), big.NewInt(0))
	assert.True(t, empty.NoLiquidity())
}

func TestDependent_ForeignAsset(t *testing.T) {
	info := existingPool(tokenX, tokenY, e18(1), e18(1), e18(1))
	_, err := info.Dependent(types.NewAmount(eth, e18(1)))
	assert.Error(t, err)
}

func TestLiquidityMintedAndShare(t *testing.T) {
	info := existingPool(tokenX, tokenY, e18(100), e18(200), e18(100))

	minted := info.LiquidityMinted(types.NewAmount(tokenX, e18(100)), types.NewAmount(tokenY, e18(200)))
	assert.Equal(t, minted.String(), e18(100).String())
	assert.Equal(t, info.PoolShare(minted).String(), "50")

	// the scarcer side bounds the mint
	minted = info.LiquidityMinted(types.NewAmount(tokenX, e18(10)), types.NewAmount(tokenY, e18(2)))
	assert.Equal(t, minted.String(), e18(1).String())

	fresh := &PairInfo{State: types.PairDoesNotExist, Pair: types.Pair{A: tokenX, B: tokenY}}
	minted = fresh.LiquidityMinted(types.NewAmount(tokenX, big.NewInt(4000)), types.NewAmount(tokenY, big.NewInt(4000)))
	assert.Equal(t, minted.Int64(), int64(3000))
	assert.Equal(t, fresh.PoolShare(minted).String(), "100")

	assert.True(t, fresh.LiquidityMinted(types.NewAmount(tokenX, big.NewInt(10)), types.NewAmount(tokenY, big.NewInt(10))) == nil)
}
