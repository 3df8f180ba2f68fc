package mint

import "lp-helper/pkg/types"

// State is the pair's input state. Independent is an explicit tag naming
// the field the user is typing; the other field is derived unless the ratio
// is free (no pool yet, or any-ratio mode).
type State struct {
	Independent     types.Field
	TypedValue      string
	OtherTypedValue string
}

// NewState starts with field A independent and nothing typed
func NewState() State {
	return State{Independent: types.FieldA}
}

// TypeInput records text typed into field. Typing into the dependent field
// makes it independent. With a free ratio the previous independent value is
// kept as the other typed value; otherwise it is dropped and will be derived.
func (s *State) TypeInput(field types.Field, typed string, freeRatio bool) {
	if freeRatio {
		if field != s.Independent {
			s.OtherTypedValue = s.TypedValue
		}
	} else {
		s.OtherTypedValue = ""
	}
	s.Independent = field
	s.TypedValue = typed
}

// ClearIndependent empties the independent field, resetting the form for a
// new operation.
func (s *State) ClearIndependent() {
	s.TypedValue = ""
}

// Typed returns the raw text for field, empty for a derived field
func (s *State) Typed(field types.Field) string {
	if field == s.Independent {
		return s.TypedValue
	}
	return s.OtherTypedValue
}
