package domain

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ParseNumeric coerces user-typed or stored input into a decimal.
// It accepts nil, numbers, decimals and strings with thousands separators or
// a currency symbol around the digits. Anything unparseable yields zero; it never fails.
func ParseNumeric(raw any) decimal.Decimal {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero
		}
		return *v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(v)
	case float32:
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat32(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case int32:
		return decimal.NewFromInt32(v)
	case string:
		return parseNumericString(v)
	default:
		return parseNumericString(fmt.Sprint(v))
	}
}

// ParseInt behaves like ParseNumeric and truncates toward zero
func ParseInt(raw any) int64 {
	return ParseNumeric(raw).IntPart()
}

func parseNumericString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	// currency symbols and codes around the number ("₩1,000", "1000 KRW")
	s = strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != '-' && r != '+'
	})
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return d.Neg()
	}
	return d
}

// FormatMoney renders an amount in the given currency, rounded to the
// currency's minor unit (e.g. "₩1,234,567").
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	factor := decimal.New(1, int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}
