package database

import (
	"database/sql"

	"github.com/factoryop/platform/internal/models"
)

// ParameterRepository handles discovered-measurement-channel data operations.
// Rows are created exclusively by the ingest worker (spec.md §3 ownership).
type ParameterRepository struct{}

// NewParameterRepository creates a new parameter repository
func NewParameterRepository() *ParameterRepository {
	return &ParameterRepository{}
}

const parameterSelectColumns = `id, device_id, parameter_key, data_type, display_name, unit, is_kpi_selected, created_at`

func scanParameterFields(scan func(dest ...interface{}) error) (models.Parameter, error) {
	var p models.Parameter
	var isKPI int
	err := scan(&p.ID, &p.DeviceID, &p.ParameterKey, &p.DataType, &p.DisplayName, &p.Unit, &isKPI, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.IsKPISelected = isKPI == 1
	return p, nil
}

// ExistingKeys returns the set of parameter_key values already discovered
// for a device, so the ingest pipeline can diff against the metric bag of
// an incoming sample without issuing one query per key.
func (r *ParameterRepository) ExistingKeys(deviceID int64) (map[string]bool, error) {
	rows, err := DB.Query(`SELECT parameter_key FROM parameters WHERE device_id = ?`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = true
	}
	return keys, nil
}

// Discover inserts a parameter row for a never-before-seen (device,key) pair.
// The unique index on (device_id, parameter_key) makes this safe to call
// from concurrent ingest sessions: a losing writer's insert is ignored, not
// errored.
func (r *ParameterRepository) Discover(deviceID int64, key string, dataType models.ParameterDataType, displayName string) error {
	_, err := DB.Exec(`
		INSERT OR IGNORE INTO parameters (device_id, parameter_key, data_type, display_name, is_kpi_selected, created_at)
		VALUES (?, ?, ?, ?, 1, CURRENT_TIMESTAMP)
	`, deviceID, key, dataType, displayName)
	return err
}

// GetAllByDevice returns every discovered parameter for a device.
func (r *ParameterRepository) GetAllByDevice(deviceID int64) ([]models.Parameter, error) {
	rows, err := DB.Query(`SELECT `+parameterSelectColumns+` FROM parameters WHERE device_id = ? ORDER BY parameter_key`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var params []models.Parameter
	for rows.Next() {
		p, err := scanParameterFields(rows.Scan)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// CountByDevice returns the number of discovered parameters for a device —
// used by the testable-property check parameter_count(device) ==
// |union of metrics ever seen| (spec.md §8).
func (r *ParameterRepository) CountByDevice(deviceID int64) (int, error) {
	var count int
	err := DB.QueryRow(`SELECT COUNT(*) FROM parameters WHERE device_id = ?`, deviceID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}
