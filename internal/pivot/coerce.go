package pivot

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Coerce converts an upstream field value into a number. Numbers pass
// through, numeric strings are parsed as decimals, a trailing percent sign is
// stripped and colon separated durations become seconds. Anything that cannot
// be read resolves to zero.
func Coerce(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case json.Number:
		return CoerceString(string(val))
	case decimal.Decimal:
		f, _ := val.Float64()
		return finite(f)
	case string:
		return CoerceString(val)
	default:
		return 0
	}
}

// CoerceString applies the string rules of Coerce.
func CoerceString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.Contains(s, ":") {
		return float64(ParseDuration(s))
	}
	return parseDecimal(strings.TrimSpace(strings.TrimSuffix(s, "%")))
}

// ParseDuration reads "hh:mm:ss" or "mm:ss" into seconds. Missing or
// unreadable segments count as zero.
func ParseDuration(s string) int64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	seg := make([]int64, len(parts))
	for i, part := range parts {
		seg[i] = parseSegment(part)
	}
	switch len(seg) {
	case 0:
		return 0
	case 1:
		return seg[0]
	case 2:
		return seg[0]*60 + seg[1]
	default:
		return seg[0]*3600 + seg[1]*60 + seg[2]
	}
}

// FormatDuration renders seconds as zero padded "hh:mm:ss". Hours are not
// wrapped at 24.
func FormatDuration(seconds float64) string {
	total := int64(math.Round(finite(seconds)))
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, total/3600, (total%3600)/60, total%60)
}

func parseSegment(part string) int64 {
	d, err := decimal.NewFromString(strings.TrimSpace(part))
	if err != nil {
		return 0
	}
	return d.Truncate(0).IntPart()
}

func parseDecimal(s string) float64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return finite(f)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
