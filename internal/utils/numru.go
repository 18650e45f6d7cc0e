package utils

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseFloatRU парсит "1 234,50 ₽", "10 %", "197 ,00" (NBSP/NNBSP) и т.п.
// Второе значение false, если строка пустая или не число.
func ParseFloatRU(s string) (float64, bool) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '₽' || r == '%' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}
	// только первая запятая становится десятичной точкой: "1,234,5" — не число
	s = strings.Replace(s, ",", ".", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseNumber — тот же парсер с двумя политиками отказа:
// strict возвращает NaN (импорт должен видеть плохие ячейки),
// нестрогий — 0 (живой предпросмотр формы).
func ParseNumber(s string, strict bool) float64 {
	if f, ok := ParseFloatRU(s); ok {
		return f
	}
	if strict {
		return math.NaN()
	}
	return 0
}

// Clamp ограничивает v диапазоном [lo, hi]; NaN остаётся NaN.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Min(hi, math.Max(lo, v))
}

// Finite заменяет NaN/±Inf нулём.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
