package export

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"

	"margin-service/internal/fileio"
	"margin-service/internal/margin/model"
	"margin-service/internal/margin/service"
)

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		0:            "0,00",
		1.005:        "1,01",
		48:           "48,00",
		1234.5:       "1\u00a0234,50",
		-1234567.891: "-1\u00a0234\u00a0567,89",
		-0.001:       "0,00",
		999.999:      "1\u00a0000,00",
		math.NaN():   "0,00",
		math.Inf(1):  "0,00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatNumber(in), "%v", in)
	}
	assert.Equal(t, "15,00 %", FormatPct(15, true))
	assert.Equal(t, "100,50 ₽", FormatMoney(100.5, true))
	assert.Equal(t, "100,50", FormatMoney(100.5, false))
}

func sample() []model.ComputedRecord {
	return service.ComputeAll([]model.Record{
		{ID: "1", SKU: "Магний", Price: 1000, Cost: 300, FeePct: 15, Logistics: 70},
		{ID: "2", SKU: "Убыточный", Price: 10, Cost: 100},
		{ID: "3", SKU: "Ноль", Price: 0},
	}, 0)
}

func TestToCSV(t *testing.T) {
	out := ToCSV(sample(), false)

	require.True(t, strings.HasPrefix(out, BOM))
	lines := strings.Split(strings.TrimPrefix(out, BOM), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "SKU;Цена;Себестоимость;Комиссия;Логистика;Выручка;Комиссия ₽;Прямые затраты;Прибыль/шт;Маржа;Статус", lines[0])
	assert.Equal(t, "Магний;1\u00a0000,00;300,00;15,00;70,00;1\u00a0000,00;150,00;370,00;480,00;48,00;Прибыль", lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ";Убыток"))
	assert.True(t, strings.HasSuffix(lines[3], ";0,00;Ноль"))
	for _, l := range lines {
		assert.Len(t, strings.Split(l, Separator), 11)
	}
}

func TestToCSV_WithUnits(t *testing.T) {
	out := ToCSV(sample()[:1], true)
	lines := strings.Split(strings.TrimPrefix(out, BOM), "\n")

	assert.Equal(t, "SKU;Цена, ₽;Себестоимость, ₽;Комиссия, %;Логистика, ₽;Выручка, ₽;Комиссия, ₽;Прямые затраты, ₽;Прибыль/шт, ₽;Маржа, %;Статус", lines[0])
	assert.Contains(t, lines[1], "15,00 %;")
	assert.Contains(t, lines[1], ";48,00 %;")
}

func TestToCSV_RoundTrip(t *testing.T) {
	orig := []model.Record{
		{SKU: "A-1", Price: 1234.56, Cost: 300, FeePct: 15.5, Logistics: 70.25},
		{SKU: "Товар Б", Price: 0, Cost: 1, FeePct: 100, Logistics: 0},
	}
	for _, units := range []bool{false, true} {
		res := service.Parse(ToCSV(service.ComputeAll(orig, 0), units))

		require.Empty(t, res.Errors)
		require.True(t, res.HasHeader)
		require.Len(t, res.Records, len(orig))
		for i, r := range res.Records {
			assert.Equal(t, orig[i].SKU, r.SKU)
			assert.InDelta(t, orig[i].Price, r.Price, 1e-9)
			assert.InDelta(t, orig[i].Cost, r.Cost, 1e-9)
			assert.InDelta(t, orig[i].FeePct, r.FeePct, 1e-9)
			assert.InDelta(t, orig[i].Logistics, r.Logistics, 1e-9)
		}
	}
}

func TestErrorReportCSV(t *testing.T) {
	out := ErrorReportCSV([]model.ImportError{
		{Line: 3, Message: "пустой SKU."},
		{Line: 0, Message: "Файл\nпустой."},
	})
	assert.Equal(t, BOM+"Проблема\nСтрока 3: пустой SKU.\nФайл пустой.\n", out)
}

func TestTemplateCSV_ParsesCleanly(t *testing.T) {
	res := service.Parse(TemplateCSV())
	assert.True(t, res.HasHeader)
	assert.Empty(t, res.Errors)
	assert.Len(t, res.Records, 1)
}

func TestToSheet(t *testing.T) {
	data, err := ToSheet(sample(), SheetOptions{WithUnits: true})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, SheetName, f.GetSheetName(0))
	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Len(t, rows[0], 10)
	assert.Equal(t, "Товар", rows[0][0])
	assert.Equal(t, "Цена ₽", rows[0][1])
	assert.Equal(t, "Комиссия %", rows[0][3])
	assert.Equal(t, "Комиссия ₽", rows[0][6])
	assert.Equal(t, "Магний", rows[1][0])
	assert.Equal(t, "480", rows[1][8])
	assert.Equal(t, "48", rows[1][9])

	w, err := f.GetColWidth(SheetName, "A")
	require.NoError(t, err)
	assert.Equal(t, 20.0, w)
}

func TestToSheet_WithStatus(t *testing.T) {
	data, err := ToSheet(sample(), SheetOptions{WithStatus: true})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, "Статус", rows[0][10])
	assert.Equal(t, "Убыток", rows[2][10])
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 4, 5, 0, time.UTC)
	assert.Equal(t, "sku-profit-2025-03-01-12-04-05.xlsx", Filename(now, "xlsx"))
}

func TestToSheet_ReimportsFormattedNumbers(t *testing.T) {
	rows := service.ComputeAll([]model.Record{
		{ID: "1", SKU: "A", Price: 1500, Cost: 1200.5, FeePct: 15, Logistics: 70},
		{ID: "2", SKU: "B", Price: 500, Cost: 200, FeePct: 10, Logistics: 50},
	}, 0)
	data, err := ToSheet(rows, SheetOptions{WithStatus: true})
	require.NoError(t, err)

	tbl, err := fileio.ReadAny(bytes.NewReader(data), "export.xlsx")
	require.NoError(t, err)
	require.True(t, tbl.Sheet)

	res := service.ParseRows(tbl.Rows)
	require.Empty(t, res.Errors)
	require.True(t, res.HasHeader)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 1500.0, res.Records[0].Price)
	assert.Equal(t, 1200.5, res.Records[0].Cost)
	assert.Equal(t, 15.0, res.Records[0].FeePct)
	assert.Equal(t, "B", res.Records[1].SKU)
}
