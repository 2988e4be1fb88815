package model

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = gorm.ErrRecordNotFound

// Storage is the persistence collaborator for the wallet core: named JSON
// blobs behind string keys, no logic of its own and no atomicity across keys.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ErrIsNotFound reports whether err means the key was absent.
func ErrIsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
