package v1

import (
	"time"

	"github.com/google/uuid"
)

// LocationRequest DTO для обновления местоположения пользователя
// @Description DTO для обновления местоположения пользователя
type LocationRequest struct {
	UserID    string   `json:"userId" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// UserLocationResponse DTO с сохраненным местоположением
type UserLocationResponse struct {
	UserID     string    `json:"userId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ObservedAt time.Time `json:"observedAt"`
}

// LocationResponse DTO ответа на обновление местоположения
type LocationResponse struct {
	Success bool                  `json:"success"`
	User    *UserLocationResponse `json:"user"`
}

// CreateReportRequest DTO для отправки отчета о происшествии
// @Description DTO для отправки отчета о происшествии
type CreateReportRequest struct {
	UserID      string   `json:"userId" validate:"required"`
	Type        string   `json:"type" validate:"required,oneof=flood medical fire other"`
	Description string   `json:"description" validate:"max=4000"`
	Latitude    *float64 `json:"latitude" validate:"required,latitude"`
	Longitude   *float64 `json:"longitude" validate:"required,longitude"`
	Confirmed   bool     `json:"confirmed,omitempty"`
}

// ReportResponse DTO с информацией об отчете
// @Description DTO с информацией об отчете
type ReportResponse struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CreatedAt   time.Time `json:"createdAt"`
	Confirmed   bool      `json:"confirmed"`
}

// CreateReportResponse DTO ответа на отправку отчета
type CreateReportResponse struct {
	Success bool            `json:"success"`
	Report  *ReportResponse `json:"report"`
}

// ThreatCheckRequest DTO для проверки угрозы рядом с пользователем
// @Description DTO для проверки угрозы рядом с пользователем
type ThreatCheckRequest struct {
	UserID    string   `json:"userId"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// PointResponse - координаты центра угрозы
type PointResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ThreatCheckResponse DTO с результатом проверки. При отсутствии угрозы только hasThreat=false.
type ThreatCheckResponse struct {
	HasThreat bool           `json:"hasThreat"`
	Type      string         `json:"type,omitempty"`
	Count     int            `json:"count,omitempty"`
	Location  *PointResponse `json:"location,omitempty"`
}

// StatsResponse DTO для ответа со статистикой
// @Description DTO для ответа со статистикой
type StatsResponse struct {
	ActiveReporters int `json:"activeReporters"`
	ReportsReceived int `json:"reportsReceived"`
	WindowMinutes   int `json:"windowMinutes"`
}
