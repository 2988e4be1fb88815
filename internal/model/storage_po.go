package model

import "time"

// KvEntry corresponds to the kv_entries table. One row per logical storage
// key; values are JSON blobs the core reads and writes whole.
type KvEntry struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;type:text"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName pins the table name regardless of gorm's pluralization.
func (KvEntry) TableName() string {
	return "kv_entries"
}
