package fileio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Table — содержимое загруженного файла: либо текст (csv/txt),
// либо уже разложенные по ячейкам строки листа (xlsx/xls).
type Table struct {
	Text  string
	Rows  [][]string
	Sheet bool
}

// ReadAny выбирает читатель по расширению файла.
func ReadAny(r io.Reader, filename string) (Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx":
		rows, err := readXLSX(r)
		return Table{Rows: rows, Sheet: true}, err
	case ".xls":
		rows, err := readXLS(r)
		return Table{Rows: rows, Sheet: true}, err
	case ".csv", ".txt", ".tsv", "":
		text, err := readText(r)
		return Table{Text: text}, err
	default:
		return Table{}, fmt.Errorf("unsupported file: %s", filename)
	}
}

// normalizeCell — ячейка листа без NBSP/NNBSP и пробелов по краям.
func normalizeCell(v string) string {
	v = strings.NewReplacer("\u00a0", " ", "\u202f", " ").Replace(v)
	return strings.TrimSpace(v)
}
