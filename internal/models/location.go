package models

import "time"

// LocationPing - последнее известное местоположение пользователя, одна запись на ReporterID
type LocationPing struct {
	ReporterID string    `json:"reporter_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ObservedAt time.Time `json:"observed_at"`
}
