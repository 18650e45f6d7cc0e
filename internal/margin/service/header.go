package service

import (
	"regexp"
	"strings"

	"margin-service/internal/margin/model"
)

type fieldPatterns struct {
	field    model.Field
	patterns []*regexp.Regexp
}

// headerPatterns проверяются сверху вниз: при неоднозначности
// побеждает первое поле (sku, price, cost, feePct, logistics).
var headerPatterns = []fieldPatterns{
	{model.FieldSKU, compileAll(`(^|[^a-zа-я])sku([^a-zа-я]|$)`, `артикул`, `наимен`, `назв`, `товар`, `код`, `^id$`)},
	{model.FieldPrice, compileAll(`^price$`, `цена`, `розниц`, `продаж`)},
	{model.FieldCost, compileAll(`себестоим`, `закуп`, `^cost$`)},
	{model.FieldFeePct, compileAll(`комисси`, `fee`, `процент`)},
	{model.FieldLogistics, compileAll(`логист`, `достав`, `фулф`, `fulfill`)},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// cleanHeader: нижний регистр, без ₽, схлопнутые пробелы (в т.ч. NBSP).
func cleanHeader(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("₽", "", "\ufeff", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ClassifyHeaderCell сопоставляет текст ячейки заголовка каноническому полю.
func ClassifyHeaderCell(text string) (model.Field, bool) {
	s := cleanHeader(text)
	if s == "" {
		return "", false
	}
	for _, fp := range headerPatterns {
		for _, rx := range fp.patterns {
			if rx.MatchString(s) {
				return fp.field, true
			}
		}
	}
	return "", false
}

// ClassifyHeader классифицирует строку целиком; для нераспознанных ячеек — "".
func ClassifyHeader(cells []string) []model.Field {
	out := make([]model.Field, len(cells))
	for i, c := range cells {
		if f, ok := ClassifyHeaderCell(c); ok {
			out[i] = f
		}
	}
	return out
}
