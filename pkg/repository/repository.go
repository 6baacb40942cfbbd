// Package repository provides a small generic store over gorm models.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/billfold/billfold/pkg/db/option"
)

// Repository exposes the persistence operations shared by all models.
// Filters are struct values matched on their non-zero fields, gorm style.
type Repository[T any] interface {
	Create(ctx context.Context, record *T) error
	Save(ctx context.Context, record *T) error
	UpdateColumns(ctx context.Context, filter *T, values map[string]any) (int64, error)
	FindOne(ctx context.Context, filter *T) (*T, error)
	Find(ctx context.Context, filter *T, opts ...option.Option) ([]*T, error)
	Count(ctx context.Context, filter *T) (int64, error)
}

type gormStore[T any] struct {
	db *gorm.DB
}

// ProvideStore builds a Repository for the given model type.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &gormStore[T]{db: db}
}

func (s *gormStore[T]) Create(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *gormStore[T]) Save(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Save(record).Error
}

func (s *gormStore[T]) UpdateColumns(ctx context.Context, filter *T, values map[string]any) (int64, error) {
	result := s.db.WithContext(ctx).Model(new(T)).Where(filter).Updates(values)
	return result.RowsAffected, result.Error
}

// FindOne returns (nil, nil) when no row matches; callers map the miss to
// their own not-found sentinel.
func (s *gormStore[T]) FindOne(ctx context.Context, filter *T) (*T, error) {
	var record T
	err := s.db.WithContext(ctx).Where(filter).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *gormStore[T]) Find(ctx context.Context, filter *T, opts ...option.Option) ([]*T, error) {
	tx := s.db.WithContext(ctx).Where(filter)
	for _, opt := range opts {
		tx = opt(tx)
	}
	var records []*T
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *gormStore[T]) Count(ctx context.Context, filter *T) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(new(T)).Where(filter).Count(&count).Error
	return count, err
}
