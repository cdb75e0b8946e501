package storage

import (
	"context"
	"sync"
)

// MemoryStore - хранилище в памяти, для тестов и запуска агента без Redis
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
	err  error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// FailWith заставляет все операции возвращать err. nil возвращает нормальную работу.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}
	val, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	delete(s.data, key)
	return nil
}
