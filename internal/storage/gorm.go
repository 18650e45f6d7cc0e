package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"margin-service/internal/margin/model"
)

// recordRow — строка таблицы rows; комиссия хранится в колонке fee.
type recordRow struct {
	ID        string  `gorm:"primaryKey;size:36"`
	UserID    string  `gorm:"index;size:128;not null"`
	Position  int64   `gorm:"index"`
	SKU       string  `gorm:"column:sku;not null"`
	Price     float64 `gorm:"not null"`
	Cost      float64 `gorm:"not null"`
	Fee       float64 `gorm:"column:fee;not null"`
	Logistics float64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (recordRow) TableName() string { return "rows" }

func (r recordRow) toModel() model.Record {
	return model.Record{
		ID:        r.ID,
		SKU:       r.SKU,
		Price:     r.Price,
		Cost:      r.Cost,
		FeePct:    r.Fee,
		Logistics: r.Logistics,
		Origin:    model.OriginPersisted,
	}
}

type historyRow struct {
	ID      uint      `gorm:"primaryKey"`
	UserID  string    `gorm:"index;size:128;not null"`
	Version string    `gorm:"size:32"`
	TS      time.Time `gorm:"column:ts;not null"`
	Margin  float64   `gorm:"not null"`
}

func (historyRow) TableName() string { return "margin_history" }

// historyMeta хранит версию ряда и тогда, когда точек нет.
type historyMeta struct {
	UserID  string `gorm:"primaryKey;size:128"`
	Version string `gorm:"size:32"`
}

func (historyMeta) TableName() string { return "margin_history_meta" }

// Gorm — хранилище поверх gorm: sqlite локально или postgres удалённо.
type Gorm struct {
	db *gorm.DB
}

// Open открывает хранилище по имени драйвера: memory, sqlite, postgres, redis.
func Open(driver, dsn string) (Backend, error) {
	var dial gorm.Dialector
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return NewRedisURL(ctx, dsn)
	case "sqlite":
		dial = sqlite.Open(dsn)
	case "postgres":
		dial = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	db, err := gorm.Open(dial, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return NewGorm(db)
}

// NewGorm мигрирует схему и оборачивает соединение.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&recordRow{}, &historyRow{}, &historyMeta{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) List(ctx context.Context, owner string) ([]model.Record, error) {
	var rows []recordRow
	err := g.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Order("position ASC").Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.Record, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (g *Gorm) Upsert(ctx context.Context, owner string, r model.Record) (model.Record, error) {
	db := g.db.WithContext(ctx)
	var row recordRow

	id, persisted := r.PersistedID()
	if persisted {
		err := db.Where("user_id = ? AND id = ?", owner, id).First(&row).Error
		switch {
		case err == nil:
			row.SKU, row.Price, row.Cost, row.Fee, row.Logistics = r.SKU, r.Price, r.Cost, r.FeePct, r.Logistics
			if err := db.Save(&row).Error; err != nil {
				return model.Record{}, err
			}
			return row.toModel(), nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return model.Record{}, err
		}
	} else {
		id = uuid.NewString()
	}

	var maxPos int64
	if err := db.Model(&recordRow{}).Where("user_id = ?", owner).
		Select("COALESCE(MAX(position), 0)").Scan(&maxPos).Error; err != nil {
		return model.Record{}, err
	}
	row = recordRow{
		ID:        id,
		UserID:    owner,
		Position:  maxPos + 1,
		SKU:       r.SKU,
		Price:     r.Price,
		Cost:      r.Cost,
		Fee:       r.FeePct,
		Logistics: r.Logistics,
	}
	if err := db.Create(&row).Error; err != nil {
		return model.Record{}, err
	}
	return row.toModel(), nil
}

func (g *Gorm) Delete(ctx context.Context, owner, id string) error {
	res := g.db.WithContext(ctx).Where("user_id = ? AND id = ?", owner, id).Delete(&recordRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) ClearAll(ctx context.Context, owner string) error {
	return g.db.WithContext(ctx).Where("user_id = ?", owner).Delete(&recordRow{}).Error
}

func (g *Gorm) LoadHistory(ctx context.Context, owner string) (model.HistoryState, error) {
	var rows []historyRow
	err := g.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Order("ts ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return model.HistoryState{}, err
	}
	var st model.HistoryState
	for _, r := range rows {
		st.Version = r.Version
		st.Points = append(st.Points, model.HistoryPoint{Timestamp: r.TS, MarginPct: r.Margin})
	}

	var meta historyMeta
	err = g.db.WithContext(ctx).Where("user_id = ?", owner).Limit(1).Find(&meta).Error
	if err != nil {
		return model.HistoryState{}, err
	}
	if meta.UserID != "" {
		st.Version = meta.Version
	}
	return st, nil
}

// SaveHistory заменяет ряд владельца целиком.
func (g *Gorm) SaveHistory(ctx context.Context, owner string, state model.HistoryState) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", owner).Delete(&historyRow{}).Error; err != nil {
			return err
		}
		meta := historyMeta{UserID: owner, Version: state.Version}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"version"}),
		}).Create(&meta).Error; err != nil {
			return err
		}
		if len(state.Points) == 0 {
			return nil
		}
		rows := make([]historyRow, len(state.Points))
		for i, p := range state.Points {
			rows[i] = historyRow{UserID: owner, Version: state.Version, TS: p.Timestamp, Margin: p.MarginPct}
		}
		return tx.Create(&rows).Error
	})
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
