package models

// Point - пара координат в градусах
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ThreatSignal - результат проверки угрозы. Не хранится, вычисляется на каждый запрос.
type ThreatSignal struct {
	HasThreat bool       `json:"has_threat"`
	Type      ReportType `json:"type,omitempty"`
	Count     int        `json:"count,omitempty"`
	Centroid  Point      `json:"centroid"`
}

// NoThreat возвращает пустой сигнал
func NoThreat() ThreatSignal {
	return ThreatSignal{}
}
