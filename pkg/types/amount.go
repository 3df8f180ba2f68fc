package types

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyAmount is returned when nothing was typed
	ErrEmptyAmount = errors.New("amount is empty")

	amountInput = regexp.MustCompile(`^\d*\.?\d*$`)
)

// AssetAmount is an exact amount of an asset in its smallest integer unit
type AssetAmount struct {
	Asset Asset
	Raw   *big.Int
}

// NewAmount copies raw so later mutation by the caller has no effect
func NewAmount(asset Asset, raw *big.Int) AssetAmount {
	r := new(big.Int)
	if raw != nil {
		r.Set(raw)
	}
	return AssetAmount{Asset: asset, Raw: r}
}

// ZeroAmount returns a zero amount of asset
func ZeroAmount(asset Asset) AssetAmount {
	return NewAmount(asset, nil)
}

// ParseAmount converts a typed decimal string (e.g. "1.5") into integer units
// of asset. More fractional digits than the asset supports is an error.
func ParseAmount(asset Asset, typed string) (AssetAmount, error) {
	typed = strings.TrimSpace(typed)
	if typed == "" {
		return AssetAmount{}, ErrEmptyAmount
	}
	if typed == "." || !amountInput.MatchString(typed) {
		return AssetAmount{}, fmt.Errorf("invalid amount format: %s", typed)
	}
	if strings.HasPrefix(typed, ".") {
		typed = "0" + typed
	}
	typed = strings.TrimSuffix(typed, ".")

	d, err := decimal.NewFromString(typed)
	if err != nil {
		return AssetAmount{}, fmt.Errorf("invalid amount format: %w", err)
	}

	scaled := d.Shift(int32(asset.Decimals))
	if !scaled.IsInteger() {
		return AssetAmount{}, fmt.Errorf("amount %s has more than %d decimal places", typed, asset.Decimals)
	}

	return AssetAmount{Asset: asset, Raw: scaled.BigInt()}, nil
}

// Decimal returns the amount in whole units
func (a AssetAmount) Decimal() decimal.Decimal {
	if a.Raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.Raw, -int32(a.Asset.Decimals))
}

// Cmp compares raw values. Callers compare amounts of the same asset.
func (a AssetAmount) Cmp(other AssetAmount) int {
	return a.raw().Cmp(other.raw())
}

// EqualTo reports exact equality of asset and raw value
func (a AssetAmount) EqualTo(other AssetAmount) bool {
	return a.Asset.Equals(other.Asset) && a.Cmp(other) == 0
}

// IsZero returns true when the raw value is zero
func (a AssetAmount) IsZero() bool {
	return a.raw().Sign() == 0
}

// IsPositive returns true when the raw value is above zero
func (a AssetAmount) IsPositive() bool {
	return a.raw().Sign() > 0
}

// Sub returns a - other, clamped at zero
func (a AssetAmount) Sub(other AssetAmount) AssetAmount {
	r := new(big.Int).Sub(a.raw(), other.raw())
	if r.Sign() < 0 {
		r.SetInt64(0)
	}
	return AssetAmount{Asset: a.Asset, Raw: r}
}

// ToExact renders every significant decimal without rounding
func (a AssetAmount) ToExact() string {
	return a.Decimal().String()
}

// ToSignificant renders the amount rounded to n significant digits
func (a AssetAmount) ToSignificant(n int) string {
	return Significant(a.Decimal(), n)
}

// Significant rounds d to n significant digits and trims trailing zeros
func Significant(d decimal.Decimal, n int) string {
	if d.IsZero() || n <= 0 {
		return "0"
	}
	digits := len(new(big.Int).Abs(d.Coefficient()).String())
	magnitude := digits - 1 + int(d.Exponent())
	places := n - 1 - magnitude
	return d.Round(int32(places)).String()
}

func (a AssetAmount) String() string {
	return fmt.Sprintf("%s %s", a.ToSignificant(6), a.Asset)
}

func (a AssetAmount) raw() *big.Int {
	if a.Raw == nil {
		return new(big.Int)
	}
	return a.Raw
}
