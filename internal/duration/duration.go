// Package duration implements the human-readable duration literals used in
// queries ("25s", "5min", "1.5h") and their comparison form ("<25s", ">=5min").
package duration

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"querybar/internal/schema"
)

const day = 24 * time.Hour

// literalRe matches <number><unit>. The number may carry a fraction.
var literalRe = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?|\.\d+)\s*(seconds|second|secs|sec|s|minutes|minute|mins|min|m|hours|hour|hrs|hr|h|days|day|d)$`)

var units = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": day, "day": day, "days": day,
}

// Parse parses a duration literal. Parse("5s") is 5 seconds,
// Parse("2min") is 2 minutes. Anything else reports false.
func Parse(text string) (time.Duration, bool) {
	m := literalRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	unit := units[strings.ToLower(m[2])]
	// Normalise to whole milliseconds.
	ms := math.Round(n * float64(unit/time.Millisecond))
	return time.Duration(ms) * time.Millisecond, true
}

// Comparison is a duration literal with a leading comparison operator.
type Comparison struct {
	Op       schema.Operator
	Duration time.Duration
	Raw      string // trimmed input, e.g. ">5min"
}

// String renders the comparison as typed.
func (c Comparison) String() string {
	return c.Raw
}

// ParseComparison parses "<op><literal>" where op is one of > < >= <=.
func ParseComparison(text string) (Comparison, bool) {
	t := strings.TrimSpace(text)
	var op schema.Operator
	for _, candidate := range []schema.Operator{schema.OpGreaterEqual, schema.OpLessEqual, schema.OpGreater, schema.OpLess} {
		if strings.HasPrefix(t, string(candidate)) {
			op = candidate
			break
		}
	}
	if op == "" {
		return Comparison{}, false
	}
	d, ok := Parse(t[len(op):])
	if !ok {
		return Comparison{}, false
	}
	return Comparison{Op: op, Duration: d, Raw: t}, true
}

// ParseComparisons parses a comma-joined list of comparisons. Every piece
// must parse; empty pieces are rejected.
func ParseComparisons(text string) ([]Comparison, bool) {
	parts := strings.Split(text, ",")
	out := make([]Comparison, 0, len(parts))
	for _, p := range parts {
		c, ok := ParseComparison(p)
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

// Format renders d for display using the coarsest sensible unit, rounded to
// the nearest integer: Format(90*time.Second) is "2m". It is lossy and not
// meant to be parsed back.
func Format(d time.Duration) string {
	switch {
	case d < time.Minute:
		return roundIn(d, time.Second) + "s"
	case d < time.Hour:
		return roundIn(d, time.Minute) + "m"
	case d < day:
		return roundIn(d, time.Hour) + "h"
	default:
		return roundIn(d, day) + "d"
	}
}

func roundIn(d, unit time.Duration) string {
	return strconv.FormatInt(int64(math.Round(float64(d)/float64(unit))), 10)
}

// Literal renders d as a literal that Parse reads back exactly.
// It uses the largest unit dividing d evenly.
func Literal(d time.Duration) string {
	d = d.Round(time.Millisecond)
	switch {
	case d == 0:
		return "0s"
	case d%day == 0:
		return strconv.FormatInt(int64(d/day), 10) + "d"
	case d%time.Hour == 0:
		return strconv.FormatInt(int64(d/time.Hour), 10) + "h"
	case d%time.Minute == 0:
		return strconv.FormatInt(int64(d/time.Minute), 10) + "min"
	default:
		return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
	}
}

// Presets are the common duration filters offered while editing a duration.
var Presets = []string{"<30s", "<1min", "<2min", "<5min", "<10min", ">5min", ">10min"}
