package common

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders amount in the currency's own notation, e.g.
// "$1,234.50" or "1.234,50 €". Unknown currency codes fall back to
// "CODE 1234.50".
func FormatMoney(amount float64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = money.USD
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}

	cur := money.GetCurrency(code)
	if cur == nil {
		return fmt.Sprintf("%s %.2f", code, amount)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

// FormatSignedMoney is FormatMoney with an explicit "+" on gains.
func FormatSignedMoney(amount float64, currency string) string {
	s := FormatMoney(amount, currency)
	if amount > 0 {
		return "+" + s
	}
	return s
}

// FormatPct renders a percentage with one decimal.
func FormatPct(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatSignedPct renders a percentage with an explicit sign.
func FormatSignedPct(pct float64) string {
	if pct > 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}
