package service

import "margin-service/internal/margin/model"

// Merge объединяет существующие записи с входящими по ключу SKU.
//
// replaceByKey=true: существующие схлопываются до первой записи на ключ,
// входящая запись перезаписывает её на том же месте, сохраняя ID и Origin
// (upsert попадёт в ту же строку хранилища); новые ключи — в конец в порядке
// входа. replaceByKey=false: существующие, затем все входящие как есть.
// Входные срезы не изменяются.
func Merge(existing, incoming []model.Record, replaceByKey bool) []model.Record {
	out := make([]model.Record, 0, len(existing)+len(incoming))
	if !replaceByKey {
		out = append(out, existing...)
		return append(out, incoming...)
	}

	pos := make(map[string]int, len(existing)+len(incoming))
	for _, r := range existing {
		k := NormalizeKey(r.SKU)
		if _, ok := pos[k]; ok {
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}
	for _, r := range incoming {
		k := NormalizeKey(r.SKU)
		if i, ok := pos[k]; ok {
			r.ID, r.Origin = out[i].ID, out[i].Origin
			out[i] = r
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}
	return out
}

// MergeOne добавляет одну запись формы. С replaceByKey перезаписывается
// только первая существующая запись с тем же ключом (ID и Origin
// сохраняются); остальные записи, включая дубли других ключей, не трогаются.
func MergeOne(existing []model.Record, r model.Record, replaceByKey bool) []model.Record {
	out := make([]model.Record, len(existing), len(existing)+1)
	copy(out, existing)
	if replaceByKey {
		k := NormalizeKey(r.SKU)
		for i := range out {
			if NormalizeKey(out[i].SKU) == k {
				r.ID, r.Origin = out[i].ID, out[i].Origin
				out[i] = r
				return out
			}
		}
	}
	return append(out, r)
}
