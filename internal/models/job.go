package models

import "time"

// JobStatus is the lifecycle state of an AnalyticsJob or Report. Transitions
// are pending -> running -> (complete|failed); no other transitions.
type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobComplete JobStatus = "complete"
	JobFailed   JobStatus = "failed"
)

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// transition per spec.md §3.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobPending:
		return next == JobRunning
	case JobRunning:
		return next == JobComplete || next == JobFailed
	default:
		return false
	}
}

// Deletable reports whether a job in this status may be cancelled/deleted.
func (s JobStatus) Deletable() bool {
	return s == JobPending || s == JobFailed
}

// AnalyticsJobType selects the algorithm dispatched in internal/analytics.
type AnalyticsJobType string

const (
	JobTypeAnomaly           AnalyticsJobType = "anomaly"
	JobTypeFailurePrediction AnalyticsJobType = "failure_prediction"
	JobTypeEnergyForecast    AnalyticsJobType = "energy_forecast"
	JobTypeAICopilot         AnalyticsJobType = "ai_copilot"
)

// AnalyticsJob is a durable asynchronous analytics request.
type AnalyticsJob struct {
	ID            string           `json:"id"`
	TenantID      int64            `json:"tenantId"`
	CreatedBy     int64            `json:"createdBy"`
	JobType       AnalyticsJobType `json:"jobType"`
	DeviceIDs     []int64          `json:"deviceIds"`
	StartTime     time.Time        `json:"startTime"`
	EndTime       time.Time        `json:"endTime"`
	Status        JobStatus        `json:"status"`
	StartedAt     *time.Time       `json:"startedAt,omitempty"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
	ResultURL     string           `json:"resultUrl,omitempty"`
	ErrorMessage  string           `json:"errorMessage,omitempty"`
	RetryCount    int              `json:"retryCount"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// ReportFormat selects the renderer used in internal/reporting.
type ReportFormat string

const (
	FormatPDF   ReportFormat = "pdf"
	FormatExcel ReportFormat = "excel"
	FormatJSON  ReportFormat = "json"
)

// Report is a durable asynchronous report-generation request.
type Report struct {
	ID                string       `json:"id"`
	TenantID          int64        `json:"tenantId"`
	CreatedBy         int64        `json:"createdBy"`
	Title             string       `json:"title,omitempty"`
	DeviceIDs         []int64      `json:"deviceIds"`
	StartTime         time.Time    `json:"startTime"`
	EndTime           time.Time    `json:"endTime"`
	Format            ReportFormat `json:"format"`
	IncludeAnalytics  bool         `json:"includeAnalytics"`
	AnalyticsJobID    string       `json:"analyticsJobId,omitempty"`
	Status            JobStatus    `json:"status"`
	StartedAt         *time.Time   `json:"startedAt,omitempty"`
	CompletedAt       *time.Time   `json:"completedAt,omitempty"`
	ResultURL         string       `json:"resultUrl,omitempty"`
	ErrorMessage      string       `json:"errorMessage,omitempty"`
	FileSizeBytes     int64        `json:"fileSizeBytes,omitempty"`
	ExpiresAt         time.Time    `json:"expiresAt"`
	CreatedAt         time.Time    `json:"createdAt"`
}
