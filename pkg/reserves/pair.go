package reserves

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"lp-helper/pkg/types"
)

// MinimumLiquidity is locked forever by the pair on the first mint
var MinimumLiquidity = big.NewInt(1000)

// Calculator derives pool state for two assets
type Calculator interface {
	Derive(ctx context.Context, a, b types.Asset) (*PairInfo, error)
}

// Price is the amount of Quote paid for one Base, held as a ratio of raw
// integer units.
type Price struct {
	Base        types.Asset
	Quote       types.Asset
	Numerator   *big.Int // raw quote units
	Denominator *big.Int // raw base units
}

// NewPrice builds a price from raw amounts of both assets
func NewPrice(base, quote types.Asset, baseRaw, quoteRaw *big.Int) *Price {
	return &Price{
		Base:        base,
		Quote:       quote,
		Numerator:   new(big.Int).Set(quoteRaw),
		Denominator: new(big.Int).Set(baseRaw),
	}
}

// Invert returns the price of Base in Quote
func (p *Price) Invert() *Price {
	return NewPrice(p.Quote, p.Base, p.Numerator, p.Denominator)
}

// Convert returns the amount of Quote worth amount of Base, rounded down
func (p *Price) Convert(amount types.AssetAmount) (types.AssetAmount, error) {
	if !amount.Asset.Equals(p.Base) {
		return types.AssetAmount{}, fmt.Errorf("price is for %s, got amount of %s", p.Base, amount.Asset)
	}
	if p.Denominator.Sign() == 0 {
		return types.AssetAmount{}, fmt.Errorf("price of %s in %s is undefined", p.Base, p.Quote)
	}
	raw := new(big.Int).Mul(amount.Raw, p.Numerator)
	raw.Quo(raw, p.Denominator)
	return types.NewAmount(p.Quote, raw), nil
}

// Decimal returns the human readable price (whole Quote per whole Base)
func (p *Price) Decimal() decimal.Decimal {
	if p.Denominator.Sign() == 0 {
		return decimal.Zero
	}
	num := decimal.NewFromBigInt(p.Numerator, -int32(p.Quote.Decimals))
	den := decimal.NewFromBigInt(p.Denominator, -int32(p.Base.Decimals))
	return num.DivRound(den, 18)
}

// ToSignificant renders the price with n significant digits
func (p *Price) ToSignificant(n int) string {
	return types.Significant(p.Decimal(), n)
}

// PairInfo is the calculator's view of the pool for assets A and B, always
// aligned to the caller's field order.
type PairInfo struct {
	State       types.PairState
	Pair        types.Pair
	Address     string
	ReserveA    types.AssetAmount
	ReserveB    types.AssetAmount
	TotalSupply *big.Int
}

// NoLiquidity returns true when a deposit would create the pool's first
// position, so no existing price constrains the ratio.
func (pi *PairInfo) NoLiquidity() bool {
	if pi.State == types.PairDoesNotExist {
		return true
	}
	if pi.State != types.PairExists {
		return false
	}
	return pi.TotalSupply == nil || pi.TotalSupply.Sign() == 0 ||
		pi.ReserveA.IsZero() || pi.ReserveB.IsZero()
}

// Price returns B per A at current reserves, nil without liquidity
func (pi *PairInfo) Price() *Price {
	if pi.State != types.PairExists || pi.NoLiquidity() {
		return nil
	}
	return NewPrice(pi.Pair.A, pi.Pair.B, pi.ReserveA.Raw, pi.ReserveB.Raw)
}

// Dependent returns the amount of the other asset implied by independent at
// the current pool price.
func (pi *PairInfo) Dependent(independent types.AssetAmount) (types.AssetAmount, error) {
	price := pi.Price()
	if price == nil {
		return types.AssetAmount{}, fmt.Errorf("pool %s has no liquidity", pi.Pair.Symbols())
	}
	switch {
	case independent.Asset.Equals(pi.Pair.A):
		return price.Convert(independent)
	case independent.Asset.Equals(pi.Pair.B):
		return price.Invert().Convert(independent)
	default:
		return types.AssetAmount{}, fmt.Errorf("asset %s is not part of pool %s", independent.Asset, pi.Pair.Symbols())
	}
}

// LiquidityMinted estimates pool tokens issued for a direct deposit of a and
// b. Returns nil when the deposit would mint nothing.
func (pi *PairInfo) LiquidityMinted(a, b types.AssetAmount) *big.Int {
	var minted *big.Int
	if pi.NoLiquidity() {
		minted = new(big.Int).Mul(a.Raw, b.Raw)
		minted.Sqrt(minted)
		minted.Sub(minted, MinimumLiquidity)
	} else {
		fromA := new(big.Int).Mul(a.Raw, pi.TotalSupply)
		fromA.Quo(fromA, pi.ReserveA.Raw)
		fromB := new(big.Int).Mul(b.Raw, pi.TotalSupply)
		fromB.Quo(fromB, pi.ReserveB.Raw)
		minted = fromA
		if fromB.Cmp(fromA) < 0 {
			minted = fromB
		}
	}
	if minted.Sign() <= 0 {
		return nil
	}
	return minted
}

// PoolShare returns the percentage (0-100) of the pool owned after minting
func (pi *PairInfo) PoolShare(minted *big.Int) decimal.Decimal {
	if minted == nil || minted.Sign() == 0 {
		return decimal.Zero
	}
	supply := new(big.Int)
	if pi.TotalSupply != nil && !pi.NoLiquidity() {
		supply.Set(pi.TotalSupply)
	}
	supply.Add(supply, minted)
	share := decimal.NewFromBigInt(minted, 0).DivRound(decimal.NewFromBigInt(supply, 0), 8)
	return share.Mul(decimal.NewFromInt(100))
}
