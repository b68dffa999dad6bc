package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is one persisted collection. Value holds the JSON document.
type Record struct {
	Name      string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:longtext"`
	Version   uint64
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

// TableName keeps the table name stable regardless of gorm naming strategy.
func (Record) TableName() string {
	return "collections"
}

// SQL keeps collections in a relational table through gorm. It has no
// broadcast of its own; pair it with Redis or Memory in a Backend.
type SQL struct {
	db     *gorm.DB
	prefix string
}

// NewSQL returns a gorm-backed store. Keys are stored as prefix+name.
func NewSQL(db *gorm.DB, prefix string) *SQL {
	return &SQL{db: db, prefix: prefix}
}

// EnsureSchema applies the required database schema.
func EnsureSchema(db *gorm.DB) error {
	return db.AutoMigrate(&Record{})
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var rec Record
	err := s.db.WithContext(ctx).
		Where("name = ?", s.prefix+key).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", key, err)
	}
	return []byte(rec.Value), nil
}

func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	return s.upsert(s.db.WithContext(ctx), s.prefix+key, value)
}

// Update locks the row with SELECT ... FOR UPDATE for the whole cycle.
func (s *SQL) Update(ctx context.Context, key string, fn UpdateFunc) error {
	name := s.prefix + key
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec Record
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", name).
			Take(&rec).Error

		var current []byte
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return fmt.Errorf("lock collection %s: %w", key, err)
		default:
			current = []byte(rec.Value)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		return s.upsert(tx, name, next)
	})
}

func (s *SQL) upsert(db *gorm.DB, name string, value []byte) error {
	now := time.Now()
	rec := Record{
		Name:      name,
		Value:     string(value),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      rec.Value,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("store collection %s: %w", name, err)
	}
	return nil
}
