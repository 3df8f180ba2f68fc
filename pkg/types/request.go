package types

// AddRequest represents a user's add-liquidity command before any asset
// resolution. Empty amounts mean the field was left for derivation.
type AddRequest struct {
	AssetA      string
	AssetB      string
	AmountA     string
	AmountB     string
	Independent Field
}

// TypedValue returns the raw text typed into field f
func (r *AddRequest) TypedValue(f Field) string {
	if f == FieldA {
		return r.AmountA
	}
	return r.AmountB
}
