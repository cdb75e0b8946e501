// Package identity хранит анонимный идентификатор устройства.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shenikar/incident_reporting_system/internal/device/storage"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
)

const deviceIDKey = "device_id"

type Store struct {
	store  storage.Store
	logger *logrus.Logger
	newID  func() (uuid.UUID, error)

	mu     sync.Mutex
	cached string
}

func New(store storage.Store, logger *logrus.Logger) *Store {
	return &Store{
		store:  store,
		logger: logger,
		newID:  uuid.NewV7,
	}
}

// GetOrCreateID возвращает идентификатор устройства, создавая его при первом обращении.
// Никогда не возвращает ошибку: при сбое хранилища отдается models.AnonymousIdentity.
func (s *Store) GetOrCreateID(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" {
		return s.cached
	}
	log := s.logger.WithField("method", "GetOrCreateID")

	raw, err := s.store.Get(ctx, deviceIDKey)
	switch {
	case err == nil && strings.TrimSpace(string(raw)) != "":
		s.cached = string(raw)
		return s.cached
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		log.WithError(err).Warn("Failed to read device id, using anonymous identity")
		return models.AnonymousIdentity
	}

	id, err := s.newID()
	if err != nil {
		log.WithError(err).Warn("Failed to generate device id, using anonymous identity")
		return models.AnonymousIdentity
	}
	if err := s.store.Set(ctx, deviceIDKey, []byte(id.String())); err != nil {
		log.WithError(err).Warn("Failed to persist device id, using anonymous identity")
		return models.AnonymousIdentity
	}

	s.cached = id.String()
	log.WithField("device_id", s.cached).Info("Generated new device id")
	return s.cached
}
