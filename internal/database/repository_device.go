package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"

	"github.com/factoryop/platform/internal/crypto"
	"github.com/factoryop/platform/internal/models"
)

// DeviceRepository handles device data operations. Every method takes
// tenant_id explicitly — cross-tenant device lookups must never happen.
type DeviceRepository struct{}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{}
}

const deviceSelectColumns = `id, tenant_id, device_key, name, description, is_active, last_seen, provisioning_key, created_at`

func scanDeviceFields(scan func(dest ...interface{}) error) (models.Device, error) {
	var d models.Device
	var isActive int
	var lastSeen sql.NullTime
	var provisioningKey sql.NullString
	err := scan(&d.ID, &d.TenantID, &d.DeviceKey, &d.Name, &d.Description, &isActive, &lastSeen, &provisioningKey, &d.CreatedAt)
	if err != nil {
		return d, err
	}
	d.IsActive = isActive == 1
	if lastSeen.Valid {
		d.LastSeen = &lastSeen.Time
	}
	if provisioningKey.Valid {
		plain, err := crypto.Decrypt(provisioningKey.String)
		if err != nil {
			return d, err
		}
		d.ProvisioningKey = plain
	}
	return d, nil
}

// GetByKey returns a device by (tenant_id, device_key), or nil if none exists.
// This is the hot path behind the ingest pipeline's read-through cache (§4.3).
func (r *DeviceRepository) GetByKey(tenantID int64, deviceKey string) (*models.Device, error) {
	row := DB.QueryRow(`SELECT `+deviceSelectColumns+` FROM devices WHERE tenant_id = ? AND device_key = ?`, tenantID, deviceKey)
	d, err := scanDeviceFields(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByID returns a device scoped to a tenant, or nil if none exists.
func (r *DeviceRepository) GetByID(tenantID, id int64) (*models.Device, error) {
	row := DB.QueryRow(`SELECT `+deviceSelectColumns+` FROM devices WHERE tenant_id = ? AND id = ?`, tenantID, id)
	d, err := scanDeviceFields(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetAllByTenant returns every device belonging to a tenant, active or not.
func (r *DeviceRepository) GetAllByTenant(tenantID int64) ([]models.Device, error) {
	rows, err := DB.Query(`SELECT `+deviceSelectColumns+` FROM devices WHERE tenant_id = ? ORDER BY device_key`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		d, err := scanDeviceFields(rows.Scan)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// CreateIfMissing inserts a newly-seen device as is_active=true. If a
// concurrent writer already inserted the same (tenant_id, device_key), the
// unique index turns the insert into a no-op and this falls back to GetByKey —
// the auto-register path must be idempotent under concurrent ingest sessions.
func (r *DeviceRepository) CreateIfMissing(tenantID int64, deviceKey string) (*models.Device, error) {
	provisioningKey, err := generateProvisioningKey()
	if err != nil {
		return nil, err
	}
	encrypted, err := crypto.Encrypt(provisioningKey)
	if err != nil {
		return nil, err
	}

	_, err = DB.Exec(`
		INSERT OR IGNORE INTO devices (tenant_id, device_key, name, is_active, provisioning_key, created_at)
		VALUES (?, ?, ?, 1, ?, CURRENT_TIMESTAMP)
	`, tenantID, deviceKey, deviceKey, encrypted)
	if err != nil {
		return nil, err
	}
	return r.GetByKey(tenantID, deviceKey)
}

// generateProvisioningKey returns a random 32-byte hex token issued to a
// device the first time it's seen. Its issuance protocol to the physical
// device is out of scope here; this only covers at-rest storage.
func generateProvisioningKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// TouchLastSeen advances last_seen to ts if ts is newer than the stored
// value. Last-writer-wins under concurrent ingest is acceptable (§5); the
// monotonic guarantee is best-effort, not a hard invariant.
func (r *DeviceRepository) TouchLastSeen(deviceID int64, ts sql.NullTime) error {
	if !ts.Valid {
		return nil
	}
	_, err := DB.Exec(`UPDATE devices SET last_seen = ? WHERE id = ? AND (last_seen IS NULL OR last_seen < ?)`,
		ts.Time, deviceID, ts.Time)
	return err
}
