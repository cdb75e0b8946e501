package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportType - тип происшествия, о котором сообщает пользователь
type ReportType string

const (
	ReportTypeFlood   ReportType = "flood"
	ReportTypeMedical ReportType = "medical"
	ReportTypeFire    ReportType = "fire"
	ReportTypeOther   ReportType = "other"
)

// Valid проверяет, что тип входит в известное перечисление
func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeFlood, ReportTypeMedical, ReportTypeFire, ReportTypeOther:
		return true
	}
	return false
}

// Report - сообщение о происшествии.
// На устройстве ID генерируется клиентом (UUIDv7), на бэкенде при сохранении назначается собственный ID.
type Report struct {
	ID          uuid.UUID  `json:"id"`
	ReporterID  string     `json:"reporter_id"`
	Type        ReportType `json:"type"`
	Description string     `json:"description"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	CreatedAt   time.Time  `json:"created_at"`
	Confirmed   bool       `json:"confirmed"`
}

// Equal сравнивает отчеты по значению (time.Time сравнивается через Equal)
func (r Report) Equal(other Report) bool {
	return r.ID == other.ID &&
		r.ReporterID == other.ReporterID &&
		r.Type == other.Type &&
		r.Description == other.Description &&
		r.Latitude == other.Latitude &&
		r.Longitude == other.Longitude &&
		r.CreatedAt.Equal(other.CreatedAt) &&
		r.Confirmed == other.Confirmed
}
