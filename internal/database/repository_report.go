package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/factoryop/platform/internal/models"
)

// ReportRepository handles durable report-generation-job data operations.
// Rows are created by the HTTP surface and mutated exclusively by the
// report worker (spec.md §3 ownership).
type ReportRepository struct{}

// NewReportRepository creates a new report repository
func NewReportRepository() *ReportRepository {
	return &ReportRepository{}
}

const reportSelectColumns = `id, tenant_id, created_by, title, device_ids, start_time, end_time,
	format, include_analytics, analytics_job_id, status, started_at, completed_at,
	result_url, error_message, file_size_bytes, expires_at, created_at`

func scanReportFields(scan func(dest ...interface{}) error) (models.Report, error) {
	var rpt models.Report
	var deviceIDsJSON string
	var includeAnalytics int
	var startedAt, completedAt sql.NullTime
	err := scan(&rpt.ID, &rpt.TenantID, &rpt.CreatedBy, &rpt.Title, &deviceIDsJSON, &rpt.StartTime, &rpt.EndTime,
		&rpt.Format, &includeAnalytics, &rpt.AnalyticsJobID, &rpt.Status, &startedAt, &completedAt,
		&rpt.ResultURL, &rpt.ErrorMessage, &rpt.FileSizeBytes, &rpt.ExpiresAt, &rpt.CreatedAt)
	if err != nil {
		return rpt, err
	}
	rpt.IncludeAnalytics = includeAnalytics == 1
	if startedAt.Valid {
		rpt.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		rpt.CompletedAt = &completedAt.Time
	}
	_ = json.Unmarshal([]byte(deviceIDsJSON), &rpt.DeviceIDs)
	return rpt, nil
}

// Create inserts a new pending report job, defaulting expires_at to 90 days
// from creation per spec.md §4.5.
func (r *ReportRepository) Create(rpt *models.Report) error {
	deviceIDsJSON, err := json.Marshal(rpt.DeviceIDs)
	if err != nil {
		return err
	}
	includeAnalytics := 0
	if rpt.IncludeAnalytics {
		includeAnalytics = 1
	}
	if rpt.ExpiresAt.IsZero() {
		rpt.ExpiresAt = rpt.CreatedAt.AddDate(0, 0, 90)
	}
	_, err = DB.Exec(`
		INSERT INTO reports (id, tenant_id, created_by, title, device_ids, start_time, end_time,
		                      format, include_analytics, analytics_job_id, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rpt.ID, rpt.TenantID, rpt.CreatedBy, rpt.Title, string(deviceIDsJSON), rpt.StartTime, rpt.EndTime,
		rpt.Format, includeAnalytics, rpt.AnalyticsJobID, rpt.Status, rpt.ExpiresAt, rpt.CreatedAt)
	return err
}

// GetByID returns a report scoped to a tenant, or nil if none exists.
func (r *ReportRepository) GetByID(tenantID int64, id string) (*models.Report, error) {
	row := DB.QueryRow(`SELECT `+reportSelectColumns+` FROM reports WHERE tenant_id = ? AND id = ?`, tenantID, id)
	rpt, err := scanReportFields(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rpt, nil
}

// MarkRunning transitions pending -> running and sets started_at.
func (r *ReportRepository) MarkRunning(id string) error {
	_, err := DB.Exec(`UPDATE reports SET status = 'running', started_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

// MarkComplete transitions running -> complete, stores the artifact URL and
// its size.
func (r *ReportRepository) MarkComplete(id, resultURL string, fileSizeBytes int64) error {
	_, err := DB.Exec(`UPDATE reports SET status = 'complete', completed_at = ?, result_url = ?, file_size_bytes = ? WHERE id = ?`,
		time.Now(), resultURL, fileSizeBytes, id)
	return err
}

// MarkFailed transitions running -> failed and records the error.
func (r *ReportRepository) MarkFailed(id, errMsg string) error {
	_, err := DB.Exec(`UPDATE reports SET status = 'failed', completed_at = ?, error_message = ? WHERE id = ?`,
		time.Now(), errMsg, id)
	return err
}

// Delete removes a report row; callers must check JobStatus.Deletable() first.
func (r *ReportRepository) Delete(tenantID int64, id string) error {
	_, err := DB.Exec(`DELETE FROM reports WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return err
}
