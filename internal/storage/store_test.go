package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"margin-service/internal/margin/model"
	"margin-service/internal/margin/service"
)

func setupGorm(t *testing.T) *Gorm {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	g, err := NewGorm(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func setupRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]Backend {
	return map[string]Backend{
		"memory": NewMemory(),
		"gorm":   setupGorm(t),
		"redis":  setupRedis(t),
	}
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		a, err := s.Upsert(ctx, "u1", model.Record{ID: "local-1", SKU: "A", Price: 10})
		require.NoError(t, err, name)
		assert.NotEqual(t, "local-1", a.ID, "%s: local ids are not sent to the store", name)
		assert.Equal(t, model.OriginPersisted, a.Origin, name)

		b, err := s.Upsert(ctx, "u1", model.Record{SKU: "B", Price: 20})
		require.NoError(t, err, name)
		_, err = s.Upsert(ctx, "u2", model.Record{SKU: "other"})
		require.NoError(t, err, name)

		a.Price = 15
		_, err = s.Upsert(ctx, "u1", a)
		require.NoError(t, err, name)

		list, err := s.List(ctx, "u1")
		require.NoError(t, err, name)
		require.Len(t, list, 2, name)
		assert.Equal(t, "A", list[0].SKU, name)
		assert.Equal(t, 15.0, list[0].Price, name)
		assert.Equal(t, b.ID, list[1].ID, name)

		require.NoError(t, s.Delete(ctx, "u1", b.ID), name)
		assert.ErrorIs(t, s.Delete(ctx, "u1", b.ID), ErrNotFound, name)

		require.NoError(t, s.ClearAll(ctx, "u1"), name)
		list, err = s.List(ctx, "u1")
		require.NoError(t, err, name)
		assert.Empty(t, list, name)

		other, err := s.List(ctx, "u2")
		require.NoError(t, err, name)
		assert.Len(t, other, 1, "%s: owners are isolated", name)
	}
}

func TestSync_MergeReplaceKeepsRows(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		_, err := s.Upsert(ctx, "u", model.Record{SKU: "A", Price: 1})
		require.NoError(t, err, name)
		_, err = s.Upsert(ctx, "u", model.Record{SKU: "B", Price: 2})
		require.NoError(t, err, name)
		before, err := s.List(ctx, "u")
		require.NoError(t, err, name)

		incoming := service.Parse("a;100;50;10;20\nC;1;1;1;1").Records
		after := service.Merge(before, incoming, true)
		require.NoError(t, Sync(ctx, s, "u", before, after), name)

		list, err := s.List(ctx, "u")
		require.NoError(t, err, name)
		require.Len(t, list, 3, name)
		assert.Equal(t, before[0].ID, list[0].ID, "%s: overwritten row keeps its id", name)
		assert.Equal(t, "a", list[0].SKU, name)
		assert.Equal(t, 100.0, list[0].Price, name)
		assert.Equal(t, "B", list[1].SKU, name)
		assert.Equal(t, "C", list[2].SKU, name)
	}
}

func TestSync_DeletesCollapsedDuplicates(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		for _, sku := range []string{"A", "a", "B"} {
			_, err := s.Upsert(ctx, "u", model.Record{SKU: sku})
			require.NoError(t, err, name)
		}
		before, err := s.List(ctx, "u")
		require.NoError(t, err, name)

		after := service.Merge(before, nil, true)
		require.NoError(t, Sync(ctx, s, "u", before, after), name)

		list, err := s.List(ctx, "u")
		require.NoError(t, err, name)
		assert.Len(t, list, 2, name)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, s := range backends(t) {
		empty, err := s.LoadHistory(ctx, "u")
		require.NoError(t, err, name)
		assert.Empty(t, empty.Points, name)

		st := model.HistoryState{Version: "v2", Points: []model.HistoryPoint{
			{Timestamp: ts, MarginPct: 10.5},
			{Timestamp: ts.Add(time.Minute), MarginPct: -3},
		}}
		require.NoError(t, s.SaveHistory(ctx, "u", st), name)

		got, err := s.LoadHistory(ctx, "u")
		require.NoError(t, err, name)
		assert.Equal(t, "v2", got.Version, name)
		require.Len(t, got.Points, 2, name)
		assert.True(t, got.Points[1].Timestamp.Equal(ts.Add(time.Minute)), name)
		assert.Equal(t, -3.0, got.Points[1].MarginPct, name)

		require.NoError(t, s.SaveHistory(ctx, "u", service.ClearHistory(got)), name)
		got, err = s.LoadHistory(ctx, "u")
		require.NoError(t, err, name)
		assert.Empty(t, got.Points, name)
	}
}

func TestOpen(t *testing.T) {
	b, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	_, err = Open("mongo", "")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	b, err = Open("redis", "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, b)
	require.NoError(t, b.Close())

	_, err = Open("redis", "not-a-url")
	assert.Error(t, err)
}

func TestHistoryKeepsVersionWithoutPoints(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		require.NoError(t, s.SaveHistory(ctx, "u", model.HistoryState{Version: "v1"}), name)
		require.NoError(t, s.SaveHistory(ctx, "u", model.HistoryState{Version: "v2"}), name)
		got, err := s.LoadHistory(ctx, "u")
		require.NoError(t, err, name)
		assert.Equal(t, "v2", got.Version, name)
		assert.Empty(t, got.Points, name)
	}
}
