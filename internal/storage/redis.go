package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"margin-service/internal/margin/model"
)

const (
	redisPrefix  = "margin:"
	redisRetries = 5 // попыток оптимистичной транзакции при гонке WATCH
)

// Redis — хранилище поверх одного ключа на владельца: коллекция записей
// целиком в JSON, запись под WATCH/MULTI.
type Redis struct {
	rdb *redis.Client
}

// NewRedisURL разбирает redis://... и проверяет соединение.
func NewRedisURL(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedis(rdb), nil
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func rowsKey(owner string) string    { return redisPrefix + "rows:" + owner }
func historyKey(owner string) string { return redisPrefix + "history:" + owner }

func loadJSON[T any](ctx context.Context, c redis.Cmdable, key string) (T, error) {
	var v T
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

func (s *Redis) List(ctx context.Context, owner string) ([]model.Record, error) {
	rows, err := loadJSON[[]model.Record](ctx, s.rdb, rowsKey(owner))
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Origin = model.OriginPersisted
	}
	return rows, nil
}

// mutate читает коллекцию, применяет fn и записывает результат атомарно.
func (s *Redis) mutate(ctx context.Context, owner string, fn func([]model.Record) ([]model.Record, error)) error {
	key := rowsKey(owner)
	txf := func(tx *redis.Tx) error {
		rows, err := loadJSON[[]model.Record](ctx, tx, key)
		if err != nil {
			return err
		}
		rows, err = fn(rows)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(rows)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if len(rows) == 0 {
				p.Del(ctx, key)
				return nil
			}
			p.Set(ctx, key, raw, 0)
			return nil
		})
		return err
	}

	for range redisRetries {
		err := s.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("redis %s: too many concurrent writers", key)
}

func (s *Redis) Upsert(ctx context.Context, owner string, r model.Record) (model.Record, error) {
	err := s.mutate(ctx, owner, func(rows []model.Record) ([]model.Record, error) {
		if id, ok := r.PersistedID(); ok {
			if i := slices.IndexFunc(rows, func(x model.Record) bool { return x.ID == id }); i >= 0 {
				rows[i] = r
				return rows, nil
			}
		} else {
			r.ID = uuid.NewString()
		}
		return append(rows, r), nil
	})
	if err != nil {
		return model.Record{}, err
	}
	r.Origin = model.OriginPersisted
	return r, nil
}

func (s *Redis) Delete(ctx context.Context, owner, id string) error {
	return s.mutate(ctx, owner, func(rows []model.Record) ([]model.Record, error) {
		i := slices.IndexFunc(rows, func(x model.Record) bool { return x.ID == id })
		if i < 0 {
			return nil, ErrNotFound
		}
		return slices.Delete(rows, i, i+1), nil
	})
}

func (s *Redis) ClearAll(ctx context.Context, owner string) error {
	return s.rdb.Del(ctx, rowsKey(owner)).Err()
}

func (s *Redis) LoadHistory(ctx context.Context, owner string) (model.HistoryState, error) {
	return loadJSON[model.HistoryState](ctx, s.rdb, historyKey(owner))
}

func (s *Redis) SaveHistory(ctx context.Context, owner string, state model.HistoryState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, historyKey(owner), raw, 0).Err()
}

func (s *Redis) Close() error { return s.rdb.Close() }
