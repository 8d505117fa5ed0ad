package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrInvalidMoney = errors.New("invalid money amount")
)

// int64 cents overflow guard: roughly 90 quadrillion reais
var maxReais = decimal.New(9, 16)

var hundred = decimal.NewFromInt(100)

// ParseCents converts a user-entered decimal string ("1234.5", "1.234,50",
// "R$ 10") into cents. Negative values and more than two decimal places are
// rejected.
func ParseCents(s string) (int64, error) {
	s = normalize(s)
	if s == "" {
		return 0, ErrInvalidMoney
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	return FromDecimal(d)
}

// FromDecimal converts a reais amount to cents.
func FromDecimal(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, ErrInvalidMoney
	}
	if d.GreaterThan(maxReais) {
		return 0, fmt.Errorf("%w: too large", ErrInvalidMoney)
	}
	if d.Exponent() < -2 && !d.Equal(d.Truncate(2)) {
		return 0, fmt.Errorf("%w: more than two decimal places", ErrInvalidMoney)
	}
	return d.Mul(hundred).IntPart(), nil
}

func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// normalize accepts both "1,234.56" and the pt-BR "1.234,56" forms.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}
	return s
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

// Format renders cents as BRL, e.g. 123456 -> "R$ 1.234,56".
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + "R$ " + brl.Sprintf("%d", cents/100) + fmt.Sprintf(",%02d", cents%100)
}

// PlainString renders cents as "1234.56" without grouping, for CSV.
func PlainString(cents int64) string {
	return ToDecimal(cents).StringFixed(2)
}

// SplitInstallments divides total into n parts that add back up to total.
// The remainder cents go to the first installment.
func SplitInstallments(total int64, n int) ([]int64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: installments must be positive", ErrInvalidMoney)
	}
	if total <= 0 {
		return nil, ErrInvalidMoney
	}
	if int64(n) > total {
		return nil, fmt.Errorf("%w: fewer cents than installments", ErrInvalidMoney)
	}

	base := total / int64(n)
	rem := total - base*int64(n)

	parts := make([]int64, n)
	for i := range parts {
		parts[i] = base
	}
	parts[0] += rem
	return parts, nil
}
