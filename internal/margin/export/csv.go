package export

import (
	"strings"

	"margin-service/internal/margin/model"
)

const (
	BOM       = "\ufeff"
	Separator = ";"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// ToCSV выгружает пересчитанные строки: BOM, разделитель ";", 11 колонок,
// строки через "\n". withUnits добавляет ₽/% к заголовкам и значениям.
func ToCSV(rows []model.ComputedRecord, withUnits bool) string {
	lines := make([]string, 0, len(rows)+1)

	head := make([]string, 0, len(numericColumns)+2)
	head = append(head, labelSKU)
	for _, c := range numericColumns {
		head = append(head, c.header(withUnits))
	}
	head = append(head, labelStatus)
	lines = append(lines, strings.Join(head, Separator))

	for _, r := range rows {
		cells := make([]string, 0, len(head))
		cells = append(cells, lineBreaks.Replace(r.SKU))
		for _, c := range numericColumns {
			cells = append(cells, c.format(r, withUnits))
		}
		cells = append(cells, string(r.Status))
		lines = append(lines, strings.Join(cells, Separator))
	}
	return BOM + strings.Join(lines, "\n")
}

// ErrorReportCSV — одна колонка "Проблема", по сообщению на строку.
func ErrorReportCSV(errs []model.ImportError) string {
	var b strings.Builder
	b.WriteString(BOM)
	b.WriteString("Проблема\n")
	for _, e := range errs {
		b.WriteString(lineBreaks.Replace(e.String()))
		b.WriteByte('\n')
	}
	return b.String()
}

// TemplateCSV — пример файла импорта: заголовок и одна строка данных.
func TemplateCSV() string {
	return BOM +
		"Товар;Цена;Себестоимость;Комиссия %;Логистика\n" +
		"Пример-1;100;50;10;20\n"
}
