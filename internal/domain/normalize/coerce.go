package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// toFloat coerces a decoded JSON scalar to float64. Numbers and numeric
// strings convert directly, booleans become 1 or 0, and everything else,
// including non-finite results, becomes 0.
func toFloat(v any) float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0
		}
		f = n
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = n
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
