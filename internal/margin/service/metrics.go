package service

import (
	"margin-service/internal/margin/model"
	"margin-service/internal/utils"
)

// UnitRevenue — выручка за 1 шт с учётом скидки в процентах.
func UnitRevenue(price, discountPct float64) float64 {
	d := utils.Clamp(utils.Finite(discountPct), 0, 100)
	return utils.Finite(price) * (1 - d/100)
}

// MarginPct — доля прибыли в выручке, %, зажатая в [-100..100].
// При выручке <= 0 маржа равна 0.
func MarginPct(profit, rev float64) float64 {
	if !(rev > 0) {
		return 0
	}
	return utils.Clamp(utils.Finite(profit/rev*100), -100, 100)
}

func statusOf(profit float64) model.Status {
	switch {
	case profit > 0:
		return model.StatusProfit
	case profit < 0:
		return model.StatusLoss
	default:
		return model.StatusZero
	}
}

// Compute считает метрики одной записи.
func Compute(r model.Record, discountPct float64) model.ComputedRecord {
	rev := UnitRevenue(r.Price, discountPct)
	feePct := utils.Clamp(utils.Finite(r.FeePct), 0, 100)
	fee := rev * (feePct / 100)
	direct := utils.Finite(r.Cost) + utils.Finite(r.Logistics)
	profit := rev - fee - direct
	return model.ComputedRecord{
		Record:    r,
		Rev:       rev,
		Fee:       fee,
		Direct:    direct,
		Profit:    profit,
		MarginPct: MarginPct(profit, rev),
		Status:    statusOf(profit),
	}
}

func ComputeAll(records []model.Record, discountPct float64) []model.ComputedRecord {
	out := make([]model.ComputedRecord, len(records))
	for i, r := range records {
		out[i] = Compute(r, discountPct)
	}
	return out
}

// Aggregate суммирует незажатые значения; зажимается только итоговая маржа.
func Aggregate(rows []model.ComputedRecord) model.Totals {
	var t model.Totals
	for _, r := range rows {
		t.Rev += r.Rev
		t.Fee += r.Fee
		t.Direct += r.Direct
		t.Profit += r.Profit
	}
	t.MarginPct = MarginPct(t.Profit, t.Rev)
	return t
}

// BundleOf — пересчёт коллекции без скидки, как во всех вызовах приложения.
func BundleOf(records []model.Record) model.Bundle {
	rows := ComputeAll(records, 0)
	return model.Bundle{Rows: rows, Totals: Aggregate(rows)}
}
