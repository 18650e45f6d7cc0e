// Package storage — внешнее хранилище записей калькулятора и истории маржи.
// Ядро расчётов о нём не знает: обработчики HTTP синхронизируют с ним
// результат слияния.
package storage

import (
	"context"
	"errors"
	"fmt"

	"margin-service/internal/margin/model"
)

var ErrNotFound = errors.New("record not found")

// Store — CRUD записей одного владельца (непрозрачный идентификатор пользователя).
type Store interface {
	List(ctx context.Context, owner string) ([]model.Record, error)
	// Upsert обновляет запись с выданным хранилищем ID или вставляет новую.
	Upsert(ctx context.Context, owner string, r model.Record) (model.Record, error)
	Delete(ctx context.Context, owner, id string) error
	ClearAll(ctx context.Context, owner string) error
}

type HistoryRepo interface {
	LoadHistory(ctx context.Context, owner string) (model.HistoryState, error)
	SaveHistory(ctx context.Context, owner string, state model.HistoryState) error
}

type Backend interface {
	Store
	HistoryRepo
	Close() error
}

func sameValues(a, b model.Record) bool {
	return a.SKU == b.SKU && a.Price == b.Price && a.Cost == b.Cost &&
		a.FeePct == b.FeePct && a.Logistics == b.Logistics
}

// Sync приводит хранилище от состояния before к after: вставляет новые,
// обновляет изменённые и удаляет исчезнувшие сохранённые записи.
func Sync(ctx context.Context, s Store, owner string, before, after []model.Record) error {
	prev := make(map[string]model.Record, len(before))
	for _, r := range before {
		if id, ok := r.PersistedID(); ok {
			prev[id] = r
		}
	}

	keep := make(map[string]bool, len(after))
	for _, r := range after {
		if id, ok := r.PersistedID(); ok {
			keep[id] = true
			if old, seen := prev[id]; seen && sameValues(old, r) {
				continue
			}
		}
		if _, err := s.Upsert(ctx, owner, r); err != nil {
			return fmt.Errorf("upsert %q: %w", r.SKU, err)
		}
	}

	for _, r := range before {
		id, ok := r.PersistedID()
		if !ok || keep[id] {
			continue
		}
		if err := s.Delete(ctx, owner, id); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		keep[id] = true // дубли в before удаляем один раз
	}
	return nil
}
