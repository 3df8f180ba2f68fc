package types

// Field is one of the two input slots of the pair being composed
type Field string

const (
	FieldA Field = "A"
	FieldB Field = "B"
)

// Other returns the opposite field
func (f Field) Other() Field {
	if f == FieldA {
		return FieldB
	}
	return FieldA
}

// Fields lists both slots in display order
var Fields = []Field{FieldA, FieldB}

// PairState describes whether a pool exists for the chosen assets
type PairState string

const (
	PairLoading      PairState = "loading"
	PairExists       PairState = "exists"
	PairDoesNotExist PairState = "does_not_exist"
	PairInvalid      PairState = "invalid"
)

// Pair holds the two selected assets, either of which may be unresolved
type Pair struct {
	A Asset
	B Asset
}

// Get returns the asset in field f
func (p Pair) Get(f Field) Asset {
	if f == FieldA {
		return p.A
	}
	return p.B
}

// Resolved returns true once both assets have been selected
func (p Pair) Resolved() bool {
	return !p.A.IsZero() && !p.B.IsZero()
}

// Symbols renders "A/B"
func (p Pair) Symbols() string {
	return p.A.String() + "/" + p.B.String()
}
