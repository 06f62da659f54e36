package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// emptyMarker is what the automation platform sends for an empty cell.
const emptyMarker = "empty"

var truthy = map[string]struct{}{
	"TRUE":     {},
	"ANO":      {},
	"YES":      {},
	"1":        {},
	"PŘÍTOMEN": {},
	"PRITOMEN": {},
}

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]`)
	numericPrefix = regexp.MustCompile(`^-?(?:[0-9]+\.?[0-9]*|\.[0-9]+)`)
)

// CoerceBool reads a cell as a flag. Anything outside the accepted tokens,
// including a missing cell, is false.
func CoerceBool(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == emptyMarker {
		return false
	}
	_, ok := truthy[strings.ToUpper(strings.TrimSpace(stringify(v)))]
	return ok
}

// CoerceNumber reads a cell as a number. Native numbers pass through; text
// has its first decimal comma turned into a dot, everything but digits, dots
// and minus signs stripped, and its leading numeric part parsed. Anything
// unreadable is 0.
func CoerceNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	}
	if !truthyValue(v) {
		return 0
	}
	if s, ok := v.(string); ok && s == emptyMarker {
		return 0
	}
	s := strings.Replace(stringify(v), ",", ".", 1)
	s = nonNumeric.ReplaceAllString(s, "")
	prefix := numericPrefix.FindString(s)
	if prefix == "" {
		return 0
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// truthyValue reports whether a decoded JSON value counts as set: nil,
// false, 0 and "" do not.
func truthyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	default:
		return true
	}
}

// stringify renders a decoded JSON value the way it reads in a cell.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			if item != nil {
				parts[i] = stringify(item)
			}
		}
		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

// textOr returns the cell as text, or fallback when the cell is unset.
func textOr(v any, found bool, fallback string) string {
	if !found || !truthyValue(v) {
		return fallback
	}
	return stringify(v)
}
