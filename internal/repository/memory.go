package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_reporting_system/internal/geo"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/shenikar/incident_reporting_system/internal/service"
)

// MemoryStore - хранилище в памяти процесса (STORAGE_DRIVER=memory).
// Реализует и ReportRepository, и LocationRepository. Кеш отсутствует.
type MemoryStore struct {
	mu        sync.RWMutex
	reports   []*models.Report
	locations map[string]models.LocationPing
}

var (
	_ service.ReportRepository   = (*MemoryStore)(nil)
	_ service.LocationRepository = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locations: make(map[string]models.LocationPing),
	}
}

func (m *MemoryStore) Create(_ context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	report.ID = uuid.New()
	stored := *report
	m.reports = append(m.reports, &stored)
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.reports {
		if r.ID == id {
			found := *r
			return &found, nil
		}
	}
	return nil, fmt.Errorf("report with id %s: %w", id, service.ErrNotFound)
}

func (m *MemoryStore) ListReports(_ context.Context, page, pageSize int) ([]*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := make([]*models.Report, len(m.reports))
	copy(sorted, m.reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	offset := (page - 1) * pageSize
	result := make([]*models.Report, 0)
	for i := offset; i < len(sorted) && i < offset+pageSize; i++ {
		r := *sorted[i]
		result = append(result, &r)
	}
	return result, nil
}

func (m *MemoryStore) Confirm(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.reports {
		if r.ID == id {
			r.Confirmed = true
			return nil
		}
	}
	return fmt.Errorf("report with id %s not found for confirm: %w", id, service.ErrNotFound)
}

func (m *MemoryStore) FindReportsInWindow(_ context.Context, box geo.BoundingBox, since time.Time) ([]*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.Report, 0)
	for _, r := range m.reports {
		if r.CreatedAt.Before(since) || !box.Contains(r.Latitude, r.Longitude) {
			continue
		}
		found := *r
		result = append(result, &found)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryStore) CountReportsSince(_ context.Context, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.reports {
		if !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) GetReportFromCache(context.Context, uuid.UUID) (*models.Report, error) {
	return nil, nil
}

func (m *MemoryStore) SetReportCache(context.Context, *models.Report) error { return nil }

func (m *MemoryStore) InvalidateReportCache(context.Context, uuid.UUID) error { return nil }

// UpsertLocation - last-write-wins по ObservedAt, как и в postgres-реализации
func (m *MemoryStore) UpsertLocation(_ context.Context, ping *models.LocationPing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locations[ping.ReporterID]
	if ok && ping.ObservedAt.Before(existing.ObservedAt) {
		return nil
	}
	m.locations[ping.ReporterID] = *ping
	return nil
}

// Location возвращает последнюю запись пользователя
func (m *MemoryStore) Location(reporterID string) (models.LocationPing, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ping, ok := m.locations[reporterID]
	return ping, ok
}

func (m *MemoryStore) CountActiveReporters(_ context.Context, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, ping := range m.locations {
		if !ping.ObservedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
