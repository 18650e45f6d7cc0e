package export

import (
	"strings"

	"margin-service/internal/margin/model"
)

type unit int

const (
	unitNone unit = iota
	unitRub
	unitPct
)

// column — колонка выгрузки: подпись, единица и извлечение значения.
type column struct {
	label string
	unit  unit
	value func(model.ComputedRecord) float64
}

// числовые колонки в фиксированном порядке после SKU
var numericColumns = []column{
	{"Цена", unitRub, func(r model.ComputedRecord) float64 { return r.Price }},
	{"Себестоимость", unitRub, func(r model.ComputedRecord) float64 { return r.Cost }},
	{"Комиссия", unitPct, func(r model.ComputedRecord) float64 { return r.FeePct }},
	{"Логистика", unitRub, func(r model.ComputedRecord) float64 { return r.Logistics }},
	{"Выручка", unitRub, func(r model.ComputedRecord) float64 { return r.Rev }},
	{"Комиссия ₽", unitRub, func(r model.ComputedRecord) float64 { return r.Fee }},
	{"Прямые затраты", unitRub, func(r model.ComputedRecord) float64 { return r.Direct }},
	{"Прибыль/шт", unitRub, func(r model.ComputedRecord) float64 { return r.Profit }},
	{"Маржа", unitPct, func(r model.ComputedRecord) float64 { return r.MarginPct }},
}

const (
	labelSKU    = "SKU"
	labelStatus = "Статус"
)

// header возвращает подпись; с единицами — "Цена, ₽", "Комиссия, %",
// а "Комиссия ₽" становится "Комиссия, ₽".
func (c column) header(withUnits bool) string {
	if !withUnits {
		return c.label
	}
	base := strings.TrimSuffix(c.label, " ₽")
	switch c.unit {
	case unitRub:
		return base + ", ₽"
	case unitPct:
		return base + ", %"
	}
	return base
}

func (c column) format(r model.ComputedRecord, withUnits bool) string {
	v := c.value(r)
	if c.unit == unitPct {
		return FormatPct(v, withUnits)
	}
	return FormatMoney(v, withUnits)
}
