package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"margin-service/internal/margin/model"
	"margin-service/internal/utils"
)

// newID выдаёт локальные идентификаторы принятым строкам.
var newID = uuid.NewString

// подписи колонок для сообщений об ошибках
var display = map[model.Field]string{
	model.FieldSKU:       "Товар",
	model.FieldPrice:     "Цена",
	model.FieldCost:      "Себестоимость",
	model.FieldFeePct:    "Комиссия %",
	model.FieldLogistics: "Логистика",
}

// минимум распознанных ячеек, чтобы первая строка считалась заголовком
const headerThreshold = 3

type sourceLine struct {
	no    int // 1-based номер строки в исходнике
	cells []string
}

// Parse разбирает текст импорта. Никогда не паникует на плохих данных:
// все отказы возвращаются в ParseResult.Errors.
func Parse(text string) model.ParseResult {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(text)

	var raw []string
	var nums []int
	for i, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		raw = append(raw, l)
		nums = append(nums, i+1)
	}
	if len(raw) == 0 {
		return emptyFile()
	}

	sep := DetectSeparator(raw[0])
	lines := make([]sourceLine, len(raw))
	for i, l := range raw {
		lines[i] = sourceLine{no: nums[i], cells: splitCells(l, sep)}
	}
	res := parseLines(lines, sep)
	res.Separator = sep
	return res
}

// ParseRows разбирает уже табличные данные (xlsx/xls): номер строки — номер
// строки листа, полностью пустые строки пропускаются.
func ParseRows(rows [][]string) model.ParseResult {
	var lines []sourceLine
	for i, r := range rows {
		cells := make([]string, len(r))
		blank := true
		for j, c := range r {
			cells[j] = strings.TrimSpace(c)
			if cells[j] != "" {
				blank = false
			}
		}
		if !blank {
			lines = append(lines, sourceLine{no: i + 1, cells: cells})
		}
	}
	if len(lines) == 0 {
		return emptyFile()
	}
	return parseLines(lines, ";")
}

func emptyFile() model.ParseResult {
	return model.ParseResult{
		Fatal:  true,
		Errors: []model.ImportError{{Line: 0, Message: "Файл пустой."}},
	}
}

func splitCells(line, sep string) []string {
	parts := strings.Split(strings.TrimSpace(line), sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func expectedFormat(sep string) string {
	names := make([]string, len(model.Fields))
	for i, f := range model.Fields {
		names[i] = display[f]
	}
	return strings.Join(names, sep)
}

func parseLines(lines []sourceLine, sep string) model.ParseResult {
	var res model.ParseResult

	// позиционный порядок по умолчанию
	idx := map[model.Field]int{}
	for i, f := range model.Fields {
		idx[f] = i
	}

	keys := ClassifyHeader(lines[0].cells)
	matched := 0
	for _, k := range keys {
		if k != "" {
			matched++
		}
	}

	start := 0
	if matched >= headerThreshold {
		res.HasHeader = true
		start = 1
		byKey := map[model.Field]int{}
		for i, k := range keys {
			if _, seen := byKey[k]; k != "" && !seen {
				byKey[k] = i // первое вхождение: "Комиссия" важнее "Комиссия ₽"
			}
		}
		var missing []string
		for _, f := range model.Fields {
			if _, ok := byKey[f]; !ok {
				missing = append(missing, display[f])
			}
		}
		if len(missing) > 0 {
			res.Fatal = true
			res.Errors = []model.ImportError{
				{Line: lines[0].no, Message: fmt.Sprintf("Заголовок не содержит обязательные столбцы: %s.", strings.Join(missing, ", "))},
				{Line: lines[0].no, Message: "Ожидается: " + expectedFormat(sep)},
			}
			return res
		}
		idx = byKey
	}

	need := len(model.Fields)
	for _, i := range idx {
		if i+1 > need {
			need = i + 1
		}
	}

	for _, l := range lines[start:] {
		if len(l.cells) < need {
			res.Errors = append(res.Errors, model.ImportError{
				Line: l.no,
				Message: fmt.Sprintf("ожидается %d столбцов, найдено %d. Формат: %s",
					need, len(l.cells), expectedFormat(sep)),
			})
			continue
		}

		rec, problem := Check(
			l.cells[idx[model.FieldSKU]],
			utils.ParseNumber(l.cells[idx[model.FieldPrice]], true),
			utils.ParseNumber(l.cells[idx[model.FieldCost]], true),
			utils.ParseNumber(l.cells[idx[model.FieldFeePct]], true),
			utils.ParseNumber(l.cells[idx[model.FieldLogistics]], true),
		)
		if problem != ProblemNone {
			res.Errors = append(res.Errors, model.ImportError{Line: l.no, Message: problem.Message()})
			continue
		}
		rec.ID = newID()
		rec.Origin = model.OriginLocal
		res.Records = append(res.Records, rec)
	}
	return res
}
