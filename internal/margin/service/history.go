package service

import (
	"time"

	"github.com/shopspring/decimal"

	"margin-service/internal/margin/model"
	"margin-service/internal/utils"
)

const (
	HistoryLimit   = 200              // точек в ряду, не больше
	SampleInterval = 15 * time.Second // не чаще одной точки
)

// MinMarginDelta — минимальное изменение маржи в п.п. для новой точки.
var MinMarginDelta = decimal.RequireFromString("0.05")

// normalizeMargin округляет до 2 знаков и зажимает в [-100..100].
func normalizeMargin(m float64) decimal.Decimal {
	d := decimal.NewFromFloat(utils.Clamp(utils.Finite(m), -100, 100))
	return d.Round(2)
}

// ShouldSample решает, записывать ли новую точку: прошло не меньше 15 секунд
// с последней И маржа сдвинулась не меньше чем на 0.05 п.п.
func ShouldSample(last model.HistoryPoint, hasLast bool, candidate float64, now time.Time) bool {
	if !hasLast {
		return true
	}
	if now.Sub(last.Timestamp) < SampleInterval {
		return false
	}
	delta := normalizeMargin(candidate).Sub(decimal.NewFromFloat(last.MarginPct)).Abs()
	return !delta.LessThan(MinMarginDelta)
}

// AppendHistory — редьюсер: возвращает новое состояние, исходное не трогает.
func AppendHistory(state model.HistoryState, marginPct float64, now time.Time) model.HistoryState {
	last, ok := state.Last()
	if !ShouldSample(last, ok, marginPct, now) {
		return state
	}
	keep := state.Points
	if len(keep) >= HistoryLimit {
		keep = keep[len(keep)-HistoryLimit+1:]
	}
	points := make([]model.HistoryPoint, 0, len(keep)+1)
	points = append(points, keep...)
	points = append(points, model.HistoryPoint{
		Timestamp: now,
		MarginPct: normalizeMargin(marginPct).InexactFloat64(),
	})
	return model.HistoryState{Version: state.Version, Points: points}
}

// ClearHistory сбрасывает ряд, сохраняя версию.
func ClearHistory(state model.HistoryState) model.HistoryState {
	return model.HistoryState{Version: state.Version}
}

// ReconcileHistoryVersion очищает ряд, записанный другой версией формулы.
func ReconcileHistoryVersion(state model.HistoryState, version string) model.HistoryState {
	if state.Version == version {
		return state
	}
	return model.HistoryState{Version: version}
}

// ObserveTotals применяет правила ряда к свежему пересчёту:
// пустая коллекция очищает историю, нулевая выручка ничего не меняет.
func ObserveTotals(state model.HistoryState, totals model.Totals, count int, now time.Time) model.HistoryState {
	if count == 0 {
		if len(state.Points) == 0 {
			return state
		}
		return ClearHistory(state)
	}
	if !(totals.Rev > 0) {
		return state
	}
	return AppendHistory(state, totals.MarginPct, now)
}
