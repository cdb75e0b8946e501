// Package storage - локальное key-value хранилище устройства.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound - ключ отсутствует в хранилище
var ErrNotFound = errors.New("storage: key not found")

// Store - персистентное хранилище устройства. Реализации должны быть безопасны для конкурентного использования.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// GetJSON читает значение и декодирует его в v
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("storage: failed to decode %q: %w", key, err)
	}
	return nil
}

// SetJSON кодирует v и сохраняет под ключом key
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: failed to encode %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
