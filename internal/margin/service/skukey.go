package service

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// zero-width space/non-joiner/joiner и BOM
var invisible = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "")

// CleanSKU убирает невидимые символы и пробелы по краям, сохраняя вид для отображения.
func CleanSKU(s string) string {
	return strings.TrimSpace(invisible.Replace(s))
}

// NormalizeKey — ключ слияния: без невидимых символов, NFKC, trim, нижний регистр.
func NormalizeKey(sku string) string {
	s := norm.NFKC.String(invisible.Replace(sku))
	return strings.ToLower(strings.TrimSpace(s))
}
