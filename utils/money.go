package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney accepts user-formatted amounts as found in spreadsheets and
// form inputs, e.g. "20,000", "$ 1,200.50", "USD -300", "1 200".
// Only digits, '.' and a leading '-' are kept.
func ParseMoney(i interface{}) (decimal.Decimal, error) {
	switch v := i.(type) {
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			s = "-" + strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		}
		var b strings.Builder
		b.Grow(len(s) + 1)
		neg := false
		for _, r := range s {
			switch {
			case r >= '0' && r <= '9', r == '.':
				b.WriteRune(r)
			case r == '-' && b.Len() == 0:
				neg = true
			}
		}
		clean := b.String()
		if clean == "" {
			return decimal.Zero, fmt.Errorf("invalid amount %q", v)
		}
		if neg {
			clean = "-" + clean
		}
		val, err := decimal.NewFromString(clean)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %q", v)
		}
		return val, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case decimal.Decimal:
		return v, nil
	default:
		return decimal.Zero, fmt.Errorf("invalid amount")
	}
}
