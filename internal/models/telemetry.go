package models

import "time"

// TelemetryPoint is the append-only time-series point described in
// spec.md §6: measurement=device_metrics, tags={factory_id,device_id,
// parameter}, field=value, time=timestamp.
type TelemetryPoint struct {
	FactoryID string
	DeviceID  string
	Parameter string
	Value     float64
	Time      time.Time
}

// TelemetrySample is the parsed broker payload for one device publish.
type TelemetrySample struct {
	Timestamp *time.Time
	Metrics   map[string]float64
}

// RuleEvaluationJob is the task body enqueued by the ingest pipeline
// (spec.md §4.1 stage 8) and consumed by the rule evaluator (§4.2).
type RuleEvaluationJob struct {
	TenantID  int64              `json:"tenantId"`
	DeviceID  int64              `json:"deviceId"`
	HostKey   string             `json:"deviceKey"`
	Metrics   map[string]float64 `json:"metrics"`
	Timestamp time.Time          `json:"timestamp"`
}

// NotificationJob is the task body enqueued after an alert fires
// (spec.md §4.2 step 4) and consumed by the notification worker (§4.6).
type NotificationJob struct {
	TenantID int64    `json:"tenantId"`
	AlertID  int64    `json:"alertId"`
	Channels []string `json:"channels"` // notification channel IDs
}
