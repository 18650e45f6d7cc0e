package fileio

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// кодировки, в которых приходят выгрузки 1С и старого Excel
var decoders = map[string]encoding.Encoding{
	"windows-1251": charmap.Windows1251,
	"cp1251":       charmap.Windows1251,
	"koi8-r":       charmap.KOI8R,
	"iso-8859-5":   charmap.ISO8859_5,
}

// readText читает текстовый файл импорта целиком в UTF-8 без BOM.
// Валидный UTF-8 принимается как есть, иначе кодировку угадывает chardet.
func readText(r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	peek, _ := br.Peek(4096)

	var dec io.Reader = br
	if !looksUTF8(peek) {
		// chardet на коротких русских файлах часто ошибается: по умолчанию cp1251
		var enc encoding.Encoding = charmap.Windows1251
		if det, err := chardet.NewTextDetector().DetectBest(peek); err == nil && det != nil {
			if e, ok := decoders[strings.ToLower(det.Charset)]; ok {
				enc = e
			}
		}
		dec = transform.NewReader(br, enc.NewDecoder())
	}

	b, err := io.ReadAll(dec)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(b), "\ufeff"), nil
}

// looksUTF8 допускает обрезанную многобайтовую последовательность в конце образца.
func looksUTF8(p []byte) bool {
	for i := 0; i < utf8.UTFMax && len(p) > 0; i++ {
		if utf8.Valid(p) {
			return true
		}
		p = p[:len(p)-1]
	}
	return utf8.Valid(p)
}
