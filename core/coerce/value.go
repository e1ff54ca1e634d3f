package coerce

import (
	"math"

	"envsync/core/utils"
)

// MissingValue marks an absent field in a source row.
type MissingValue struct{}

// Missing is the sentinel readers emit for empty or null-token fields.
var Missing = MissingValue{}

// IsMissing reports whether v stands for an absent value: the Missing
// sentinel, an untyped nil, or a floating-point NaN.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case MissingValue:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	default:
		return false
	}
}

// Value maps a raw source value onto what is written to a column of the
// given kind. Missing values become NULL whatever the kind. Values the
// integer and float arms cannot narrow pass through unchanged.
func Value(raw any, kind Kind) any {
	if IsMissing(raw) {
		return nil
	}

	switch kind {
	case KindInteger:
		if v, ok := utils.AsInt64(raw); ok {
			return v
		}
		return raw
	case KindFloat:
		if v, ok := utils.AsFloat64(raw); ok {
			return v
		}
		return raw
	case KindDate:
		return raw
	case KindOther:
		return raw
	default:
		return raw
	}
}

// Row coerces raw positionally against kinds. Positions beyond len(kinds)
// are treated as KindOther.
func Row(raw []any, kinds []Kind) []any {
	out := make([]any, len(raw))
	for i, v := range raw {
		kind := KindOther
		if i < len(kinds) {
			kind = kinds[i]
		}
		out[i] = Value(v, kind)
	}
	return out
}
