package service

import (
	"math"

	"margin-service/internal/margin/model"
	"margin-service/internal/utils"
)

// Problem — причина отказа в приёме значений записи.
type Problem int

const (
	ProblemNone Problem = iota
	ProblemEmptySKU
	ProblemBadNumber
	ProblemNegative
)

// Message — текст для пользователя, как в интерфейсе калькулятора.
func (p Problem) Message() string {
	switch p {
	case ProblemEmptySKU:
		return "пустой SKU."
	case ProblemBadNumber:
		return "проверьте числа (Цена/Себестоимость/Комиссия/Логистика)."
	case ProblemNegative:
		return "отрицательные значения недопустимы (Цена/Себестоимость/Логистика)."
	default:
		return ""
	}
}

// Check применяет единую политику приёма и для импорта, и для формы:
// пустой SKU, нечисло и отрицательные цена/себестоимость/логистика — отказ;
// комиссия вне [0..100] зажимается.
func Check(sku string, price, cost, feePct, logistics float64) (model.Record, Problem) {
	sku = CleanSKU(sku)
	if sku == "" {
		return model.Record{}, ProblemEmptySKU
	}
	for _, v := range [...]float64{price, cost, feePct, logistics} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Record{}, ProblemBadNumber
		}
	}
	if price < 0 || cost < 0 || logistics < 0 {
		return model.Record{}, ProblemNegative
	}
	return model.Record{
		SKU:       sku,
		Price:     price,
		Cost:      cost,
		FeePct:    utils.Clamp(feePct, 0, 100),
		Logistics: logistics,
	}, ProblemNone
}
