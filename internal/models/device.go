package models

import "time"

// AnonymousIdentity - идентификатор, который отдается, если локальное хранилище недоступно
const AnonymousIdentity = "anonymous"

// QueuedReport - отчет в офлайн-очереди устройства
type QueuedReport struct {
	Report        Report    `json:"report"`
	Attempts      int       `json:"attempts"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
}

// CooldownEntry - отметка о том, что пользователь уже отреагировал на угрозу данного типа
type CooldownEntry struct {
	ThreatType  ReportType `json:"threat_type"`
	RespondedAt time.Time  `json:"responded_at"`
}
