package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	excelize "github.com/xuri/excelize/v2"

	"margin-service/internal/margin/model"
	"margin-service/internal/utils"
)

const SheetName = "SKUs"

// ширины колонок листа (в символах), по порядку колонок
var sheetWidths = []float64{20, 12, 14, 12, 12, 14, 12, 16, 14, 12, 12}

// SheetOptions управляет вариантом выгрузки листа.
type SheetOptions struct {
	WithUnits  bool // " ₽"/" %" в заголовках
	WithStatus bool // колонка "Статус"; минимальный вариант без неё
}

func (c column) sheetHeader(withUnits bool) string {
	if !withUnits {
		return c.label
	}
	switch {
	case c.unit == unitRub && !strings.HasSuffix(c.label, " ₽"):
		return c.label + " ₽"
	case c.unit == unitPct:
		return c.label + " %"
	}
	return c.label
}

// ToSheet собирает .xlsx: заголовок и строки с числами как числами.
func ToSheet(rows []model.ComputedRecord, opt SheetOptions) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	head := []any{"Товар"}
	for _, c := range numericColumns {
		head = append(head, c.sheetHeader(opt.WithUnits))
	}
	if opt.WithStatus {
		head = append(head, labelStatus)
	}
	if err := f.SetSheetRow(SheetName, "A1", &head); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		vals := []any{r.SKU}
		for _, c := range numericColumns {
			vals = append(vals, round2(c.value(r)))
		}
		if opt.WithStatus {
			vals = append(vals, string(r.Status))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &vals); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for i := range head {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, col, col, sheetWidths[i]); err != nil {
			return nil, fmt.Errorf("column width %s: %w", col, err)
		}
	}

	if len(rows) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
		if err != nil {
			return nil, fmt.Errorf("number style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(1+len(numericColumns), len(rows)+1)
		if err := f.SetCellStyle(SheetName, "B2", last, style); err != nil {
			return nil, fmt.Errorf("apply number style: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(utils.Finite(v)).Round(2).InexactFloat64()
}

// Filename — имя выгрузки с отметкой времени: sku-profit-2025-03-01-12-00-00.xlsx
func Filename(now time.Time, ext string) string {
	return "sku-profit-" + now.UTC().Format("2006-01-02-15-04-05") + "." + ext
}
