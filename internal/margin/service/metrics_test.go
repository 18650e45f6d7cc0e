package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"margin-service/internal/margin/model"
)

func TestCompute_ReferenceRow(t *testing.T) {
	c := Compute(model.Record{SKU: "x", Price: 1000, Cost: 300, FeePct: 15, Logistics: 70}, 0)

	assert.InDelta(t, 1000.0, c.Rev, 1e-9)
	assert.InDelta(t, 150.0, c.Fee, 1e-9)
	assert.InDelta(t, 370.0, c.Direct, 1e-9)
	assert.InDelta(t, 480.0, c.Profit, 1e-9)
	assert.InDelta(t, 48.0, c.MarginPct, 1e-9)
	assert.Equal(t, model.StatusProfit, c.Status)
}

func TestCompute_Discount(t *testing.T) {
	c := Compute(model.Record{Price: 1000, FeePct: 10}, 20)
	assert.InDelta(t, 800.0, c.Rev, 1e-9)
	assert.InDelta(t, 80.0, c.Fee, 1e-9)

	over := Compute(model.Record{Price: 1000}, 150)
	assert.Equal(t, 0.0, over.Rev, "discount is clamped to 100%")
}

func TestCompute_ZeroRevenue(t *testing.T) {
	c := Compute(model.Record{Price: 0, Cost: 300, Logistics: 70}, 0)

	assert.Equal(t, 0.0, c.MarginPct)
	assert.False(t, math.IsNaN(c.MarginPct) || math.IsInf(c.MarginPct, 0))
	assert.InDelta(t, -370.0, c.Profit, 1e-9)
	assert.Equal(t, model.StatusLoss, c.Status)
}

func TestCompute_MarginClampedProfitNot(t *testing.T) {
	c := Compute(model.Record{Price: 10, Cost: 100}, 0)
	assert.Equal(t, -100.0, c.MarginPct)
	assert.InDelta(t, -90.0, c.Profit, 1e-9)

	zero := Compute(model.Record{Price: 100, Cost: 100}, 0)
	assert.Equal(t, model.StatusZero, zero.Status)
}

func TestCompute_NonFiniteInputs(t *testing.T) {
	c := Compute(model.Record{Price: math.NaN(), Cost: math.Inf(1), FeePct: math.NaN()}, 0)
	assert.Equal(t, 0.0, c.Rev)
	assert.Equal(t, 0.0, c.Direct)
	assert.Equal(t, 0.0, c.MarginPct)
}

func TestAggregate(t *testing.T) {
	b := BundleOf([]model.Record{
		{SKU: "a", Price: 1000, Cost: 300, FeePct: 15, Logistics: 70},
		{SKU: "b", Price: 10, Cost: 100},
	})

	assert.Len(t, b.Rows, 2)
	assert.InDelta(t, 1010.0, b.Totals.Rev, 1e-9)
	assert.InDelta(t, 150.0, b.Totals.Fee, 1e-9)
	assert.InDelta(t, 470.0, b.Totals.Direct, 1e-9)
	assert.InDelta(t, 390.0, b.Totals.Profit, 1e-9, "raw profit is summed, not clamped")
	assert.InDelta(t, 390.0/1010.0*100, b.Totals.MarginPct, 1e-9)
}

func TestAggregate_Empty(t *testing.T) {
	tot := Aggregate(nil)
	assert.Equal(t, model.Totals{}, tot)
}
