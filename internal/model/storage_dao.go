package model

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type kvStorage struct {
	db *gorm.DB
}

// NewKvStorage creates a Storage backed by the kv_entries table.
func NewKvStorage(db *gorm.DB) Storage {
	return &kvStorage{
		db: db,
	}
}

// Get retrieves the blob stored under key, or ErrNotFound.
func (s *kvStorage) Get(ctx context.Context, key string) (string, error) {
	var entry KvEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return entry.Value, nil
}

// Set writes the blob under key, replacing any previous value.
func (s *kvStorage) Set(ctx context.Context, key, value string) error {
	entry := KvEntry{Key: key, Value: value}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// Remove deletes the key. Removing an absent key is not an error.
func (s *kvStorage) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&KvEntry{}).Error
}
