package fileio

import (
	"bytes"
	"io"

	excelize "github.com/xuri/excelize/v2"
)

// readXLSX читает первый лист книги. Значения берутся сырыми: формат ячейки
// вроде #,##0.00 превратил бы 1500 в "1,500.00".
func readXLSX(r io.Reader) ([][]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		for j := range row {
			row[j] = normalizeCell(row[j])
		}
	}
	return rows, nil
}
