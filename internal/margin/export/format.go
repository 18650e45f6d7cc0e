package export

import (
	"strings"

	"github.com/shopspring/decimal"

	"margin-service/internal/utils"
)

const (
	groupSep = "\u00a0" // как у ru-RU toLocaleString
	decSep   = ","
)

// FormatNumber форматирует число по-русски: 2 знака, неразрывный пробел
// между разрядами, запятая. NaN/Inf выводятся как 0,00.
func FormatNumber(v float64) string {
	d := decimal.NewFromFloat(utils.Finite(v)).Round(2)
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(groupSep)
		}
		b.WriteRune(r)
	}
	b.WriteString(decSep)
	b.WriteString(frac)
	return b.String()
}

// FormatMoney и FormatPct — один контракт форматирования с разными суффиксами.
func FormatMoney(v float64, withUnits bool) string {
	if withUnits {
		return FormatNumber(v) + " ₽"
	}
	return FormatNumber(v)
}

func FormatPct(v float64, withUnits bool) string {
	if withUnits {
		return FormatNumber(v) + " %"
	}
	return FormatNumber(v)
}
