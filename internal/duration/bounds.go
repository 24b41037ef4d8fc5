package duration

import (
	"time"

	"querybar/internal/schema"
)

// Ceiling is the upper edge of the range slider domain.
const Ceiling = time.Hour

// Side says which end of a range a comparison constrains.
type Side int

const (
	NoSide Side = iota
	Lower       // > and >=
	Upper       // < and <=
)

// Direction classifies a comparison operator.
func Direction(op schema.Operator) Side {
	switch op {
	case schema.OpGreater, schema.OpGreaterEqual:
		return Lower
	case schema.OpLess, schema.OpLessEqual:
		return Upper
	}
	return NoSide
}

// Bounds is a [Min, Max] window over [0, Ceiling].
// Min == 0 and Max == Ceiling mean "unbounded" on that side.
type Bounds struct {
	Min time.Duration
	Max time.Duration
}

// Full is the unconstrained window.
func Full() Bounds {
	return Bounds{Min: 0, Max: Ceiling}
}

// Clamp keeps both ends inside the domain and Min <= Max.
func (b Bounds) Clamp() Bounds {
	if b.Min < 0 {
		b.Min = 0
	}
	if b.Max > Ceiling || b.Max <= 0 {
		b.Max = Ceiling
	}
	if b.Min > b.Max {
		b.Min, b.Max = b.Max, b.Min
	}
	return b
}

// ComparisonOf interprets a token value as a comparison. tokenOp is the
// token's own operator: "duration>5min" carries the comparison in the
// operator, "duration:>5min" carries it in the value.
func ComparisonOf(tokenOp schema.Operator, text string) (Comparison, bool) {
	if c, ok := ParseComparison(text); ok {
		return c, true
	}
	if tokenOp.IsComparison() {
		if d, ok := Parse(text); ok {
			return Comparison{Op: tokenOp, Duration: d, Raw: string(tokenOp) + text}, true
		}
	}
	return Comparison{}, false
}

// BoundsOf derives slider bounds from a token's values. Values that are not
// comparisons are ignored; the last comparison on each side wins.
func BoundsOf(tokenOp schema.Operator, values []string) Bounds {
	b := Full()
	for _, v := range values {
		c, ok := ComparisonOf(tokenOp, v)
		if !ok {
			continue
		}
		switch Direction(c.Op) {
		case Lower:
			b.Min = c.Duration
		case Upper:
			b.Max = c.Duration
		}
	}
	return b.Clamp()
}

// ApplyBounds rewrites values so they express b: non-comparison values are
// kept in place, comparisons are replaced by at most one ">" and one "<".
// A side sitting on the domain edge is omitted.
func ApplyBounds(tokenOp schema.Operator, values []string, b Bounds) []string {
	b = b.Clamp()
	out := make([]string, 0, len(values)+2)
	for _, v := range values {
		if _, ok := ComparisonOf(tokenOp, v); ok {
			continue
		}
		out = append(out, v)
	}
	if b.Min > 0 {
		out = append(out, string(schema.OpGreater)+Literal(b.Min))
	}
	if b.Max < Ceiling {
		out = append(out, string(schema.OpLess)+Literal(b.Max))
	}
	return out
}
