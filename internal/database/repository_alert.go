package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/factoryop/platform/internal/models"
)

// AlertRepository handles historical firing-event data operations. Rows are
// created exclusively by the rule worker (spec.md §3 ownership).
type AlertRepository struct{}

// NewAlertRepository creates a new alert repository
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{}
}

const alertSelectColumns = `id, tenant_id, rule_id, device_id, triggered_at, severity,
	message, telemetry_snapshot, resolved_at, notification_sent`

func scanAlertFields(scan func(dest ...interface{}) error) (models.Alert, error) {
	var a models.Alert
	var snapshotJSON string
	var resolvedAt sql.NullTime
	var notificationSent int
	err := scan(&a.ID, &a.TenantID, &a.RuleID, &a.DeviceID, &a.TriggeredAt, &a.Severity,
		&a.Message, &snapshotJSON, &resolvedAt, &notificationSent)
	if err != nil {
		return a, err
	}
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	a.NotificationSent = notificationSent == 1
	if snapshotJSON != "" {
		_ = json.Unmarshal([]byte(snapshotJSON), &a.TelemetrySnapshot)
	}
	return a, nil
}

// Create inserts a new alert (severity copied from the rule at firing time,
// never dereferenced later — spec.md §3 invariant) and returns its id.
func (r *AlertRepository) Create(a *models.Alert) (int64, error) {
	snapshotJSON, err := json.Marshal(a.TelemetrySnapshot)
	if err != nil {
		return 0, err
	}
	res, err := DB.Exec(`
		INSERT INTO alerts (tenant_id, rule_id, device_id, triggered_at, severity, message, telemetry_snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.TenantID, a.RuleID, a.DeviceID, a.TriggeredAt, a.Severity, a.Message, string(snapshotJSON))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID returns an alert scoped to a tenant, or nil if none exists.
func (r *AlertRepository) GetByID(tenantID, id int64) (*models.Alert, error) {
	row := DB.QueryRow(`SELECT `+alertSelectColumns+` FROM alerts WHERE tenant_id = ? AND id = ?`, tenantID, id)
	a, err := scanAlertFields(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// InRange returns every alert for a tenant whose devices are in deviceIDs
// and whose triggered_at falls in [start,end] — used by the report worker's
// data-aggregation stage (§4.5).
func (r *AlertRepository) InRange(tenantID int64, deviceIDs []int64, start, end time.Time) ([]models.Alert, error) {
	if len(deviceIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(deviceIDs)*2)
	args := []interface{}{tenantID, start, end}
	for i, id := range deviceIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}

	query := `SELECT ` + alertSelectColumns + ` FROM alerts
		WHERE tenant_id = ? AND triggered_at >= ? AND triggered_at <= ?
		AND device_id IN (` + string(placeholders) + `)
		ORDER BY triggered_at DESC`

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlertFields(rows.Scan)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// MarkNotificationSent flips notification_sent once the notification worker
// has finished dispatching, regardless of per-recipient outcome (§4.6).
func (r *AlertRepository) MarkNotificationSent(id int64) error {
	_, err := DB.Exec(`UPDATE alerts SET notification_sent = 1 WHERE id = ?`, id)
	return err
}
