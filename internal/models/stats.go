package models

// Stats - сводка активности за окно статистики
type Stats struct {
	ActiveReporters int `json:"active_reporters"`
	ReportsReceived int `json:"reports_received"`
	WindowMinutes   int `json:"window_minutes"`
}
