package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/factoryop/platform/internal/models"
)

// AnalyticsJobRepository handles durable analytics-job data operations.
// Rows are created by the HTTP surface and mutated exclusively by the
// analytics worker (spec.md §3 ownership).
type AnalyticsJobRepository struct{}

// NewAnalyticsJobRepository creates a new analytics job repository
func NewAnalyticsJobRepository() *AnalyticsJobRepository {
	return &AnalyticsJobRepository{}
}

const analyticsJobSelectColumns = `id, tenant_id, created_by, job_type, device_ids, start_time,
	end_time, status, started_at, completed_at, result_url, error_message, retry_count, created_at`

func scanAnalyticsJobFields(scan func(dest ...interface{}) error) (models.AnalyticsJob, error) {
	var j models.AnalyticsJob
	var deviceIDsJSON string
	var startedAt, completedAt sql.NullTime
	err := scan(&j.ID, &j.TenantID, &j.CreatedBy, &j.JobType, &deviceIDsJSON, &j.StartTime,
		&j.EndTime, &j.Status, &startedAt, &completedAt, &j.ResultURL, &j.ErrorMessage, &j.RetryCount, &j.CreatedAt)
	if err != nil {
		return j, err
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	_ = json.Unmarshal([]byte(deviceIDsJSON), &j.DeviceIDs)
	return j, nil
}

// Create inserts a new pending analytics job.
func (r *AnalyticsJobRepository) Create(j *models.AnalyticsJob) error {
	deviceIDsJSON, err := json.Marshal(j.DeviceIDs)
	if err != nil {
		return err
	}
	_, err = DB.Exec(`
		INSERT INTO analytics_jobs (id, tenant_id, created_by, job_type, device_ids, start_time, end_time,
		                            status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.TenantID, j.CreatedBy, j.JobType, string(deviceIDsJSON), j.StartTime, j.EndTime, j.Status, j.CreatedAt)
	return err
}

// GetByID returns an analytics job scoped to a tenant, or nil if none exists.
func (r *AnalyticsJobRepository) GetByID(tenantID int64, id string) (*models.AnalyticsJob, error) {
	row := DB.QueryRow(`SELECT `+analyticsJobSelectColumns+` FROM analytics_jobs WHERE tenant_id = ? AND id = ?`, tenantID, id)
	j, err := scanAnalyticsJobFields(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// MarkRunning transitions pending -> running and sets started_at.
func (r *AnalyticsJobRepository) MarkRunning(id string) error {
	_, err := DB.Exec(`UPDATE analytics_jobs SET status = 'running', started_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

// MarkComplete transitions running -> complete and sets the artifact URL.
func (r *AnalyticsJobRepository) MarkComplete(id, resultURL string) error {
	_, err := DB.Exec(`UPDATE analytics_jobs SET status = 'complete', completed_at = ?, result_url = ? WHERE id = ?`,
		time.Now(), resultURL, id)
	return err
}

// MarkFailed transitions running -> failed and records the error plus a
// bumped retry counter (used by the single-retry-after-60s policy in §4.4).
func (r *AnalyticsJobRepository) MarkFailed(id, errMsg string, retryCount int) error {
	_, err := DB.Exec(`UPDATE analytics_jobs SET status = 'failed', completed_at = ?, error_message = ?, retry_count = ? WHERE id = ?`,
		time.Now(), errMsg, retryCount, id)
	return err
}

// ResetToPending moves a failed job back to pending for its single retry.
func (r *AnalyticsJobRepository) ResetToPending(id string) error {
	_, err := DB.Exec(`UPDATE analytics_jobs SET status = 'pending', started_at = NULL, completed_at = NULL, error_message = '' WHERE id = ?`, id)
	return err
}

// Delete removes a job row; callers must check JobStatus.Deletable() first.
func (r *AnalyticsJobRepository) Delete(tenantID int64, id string) error {
	_, err := DB.Exec(`DELETE FROM analytics_jobs WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return err
}
