package vm

import (
	"math"
	"strconv"
	"strings"
)

func asUint64(v int64) uint64 {
	return uint64(v) //nolint:gosec // G115: intentional bit-pattern reinterpretation for unsigned ops.
}

func asInt32(v uint32) int32 {
	return int32(v) //nolint:gosec // G115: intentional bit-pattern reinterpretation for fixed-width ints.
}

func asInt64(v uint64) int64 {
	return int64(v) //nolint:gosec // G115: intentional bit-pattern reinterpretation for fixed-width ints.
}

// truncFloat converts toward zero, saturating at the int64 range. NaN is 0.
func truncFloat(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// parseInt reads the decimal text of a string value, falling back to a
// truncated float. Unparsable text is 0.
func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return truncFloat(f)
	}
	return 0
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
