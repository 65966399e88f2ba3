package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// toNumber coerces a raw score. Numbers pass through; strings are trimmed,
// stripped of "%" and read with either "," or "." as decimal separator.
// Anything else, including booleans, is reported as absent.
func toNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		return parseScore(string(v))
	case string:
		return parseScore(v)
	default:
		return 0, false
	}
}

func parseScore(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "%", ""))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// roundScore rounds half to even, the convention used by the score sheets
func roundScore(f float64) int {
	return int(math.RoundToEven(f))
}

// mean returns the arithmetic mean of values, ok=false when empty
func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}
