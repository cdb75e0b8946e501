// Package corroboration решает, подтверждают ли независимые сообщения угрозу рядом с точкой.
//
// Проверка не имеет состояния: на каждый запрос отчеты заново выбираются из хранилища,
// фильтруются по прямоугольнику и временному окну, группируются по типу и сравниваются с порогом.
package corroboration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shenikar/incident_reporting_system/internal/geo"
	"github.com/shenikar/incident_reporting_system/internal/models"
)

const (
	DefaultWindow    = 30 * time.Minute
	DefaultThreshold = 2
	DefaultHalfWidth = 0.01
)

// ReportFinder - источник отчетов для корреляции.
// Реализация может вернуть лишние записи: движок повторно применяет оба фильтра.
type ReportFinder interface {
	FindReportsInWindow(ctx context.Context, box geo.BoundingBox, since time.Time) ([]*models.Report, error)
}

// Settings - параметры корреляции
type Settings struct {
	Window    time.Duration
	Threshold int
	HalfLat   float64
	HalfLon   float64
}

// Engine вычисляет ThreatSignal по отчетам из ReportFinder
type Engine struct {
	finder   ReportFinder
	clock    clockwork.Clock
	settings Settings
}

// NewEngine создает движок. Нулевые значения Settings заменяются значениями по умолчанию.
func NewEngine(finder ReportFinder, clock clockwork.Clock, settings Settings) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if settings.Window <= 0 {
		settings.Window = DefaultWindow
	}
	if settings.Threshold <= 0 {
		settings.Threshold = DefaultThreshold
	}
	if settings.HalfLat <= 0 {
		settings.HalfLat = DefaultHalfWidth
	}
	if settings.HalfLon <= 0 {
		settings.HalfLon = DefaultHalfWidth
	}
	return &Engine{finder: finder, clock: clock, settings: settings}
}

type group struct {
	reportType models.ReportType
	first      time.Time
	lats, lons []float64
}

// CheckThreat возвращает сигнал для точки (lat, lon).
//
// Если порог достигли несколько типов, сообщается только один: тот, чей самый ранний отчет
// старше; при равенстве времени - тип с меньшим именем.
func (e *Engine) CheckThreat(ctx context.Context, lat, lon float64) (models.ThreatSignal, error) {
	box := geo.NewBoundingBox(lat, lon, e.settings.HalfLat, e.settings.HalfLon)
	since := e.clock.Now().Add(-e.settings.Window)

	reports, err := e.finder.FindReportsInWindow(ctx, box, since)
	if err != nil {
		return models.NoThreat(), fmt.Errorf("corroboration: failed to load reports: %w", err)
	}

	groups := make(map[models.ReportType]*group)
	for _, r := range reports {
		if r == nil || r.CreatedAt.Before(since) || !box.Contains(r.Latitude, r.Longitude) {
			continue
		}
		g, ok := groups[r.Type]
		if !ok {
			g = &group{reportType: r.Type, first: r.CreatedAt}
			groups[r.Type] = g
		}
		if r.CreatedAt.Before(g.first) {
			g.first = r.CreatedAt
		}
		g.lats = append(g.lats, r.Latitude)
		g.lons = append(g.lons, r.Longitude)
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].first.Equal(ordered[j].first) {
			return ordered[i].first.Before(ordered[j].first)
		}
		return ordered[i].reportType < ordered[j].reportType
	})

	for _, g := range ordered {
		if len(g.lats) < e.settings.Threshold {
			continue
		}
		cLat, cLon := geo.Centroid(g.lats, g.lons)
		return models.ThreatSignal{
			HasThreat: true,
			Type:      g.reportType,
			Count:     len(g.lats),
			Centroid:  models.Point{Latitude: cLat, Longitude: cLon},
		}, nil
	}
	return models.NoThreat(), nil
}
