package database

import (
	"github.com/factoryop/platform/internal/models"
)

// NotificationChannelRepository handles tenant-owned dispatch-target data
// operations.
type NotificationChannelRepository struct{}

// NewNotificationChannelRepository creates a new notification channel repository
func NewNotificationChannelRepository() *NotificationChannelRepository {
	return &NotificationChannelRepository{}
}

const notificationChannelSelectColumns = `id, tenant_id, kind, target, is_enabled, created_at`

func scanNotificationChannelFields(scan func(dest ...interface{}) error) (models.NotificationChannel, error) {
	var c models.NotificationChannel
	var isEnabled int
	err := scan(&c.ID, &c.TenantID, &c.Kind, &c.Target, &isEnabled, &c.CreatedAt)
	if err != nil {
		return c, err
	}
	c.IsEnabled = isEnabled == 1
	return c, nil
}

// GetByIDs returns the enabled channels among ids, scoped to a tenant. Used
// by the notification worker to resolve a rule's channel set at dispatch
// time.
func (r *NotificationChannelRepository) GetByIDs(tenantID int64, ids []string) ([]models.NotificationChannel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(ids)*2)
	args := []interface{}{tenantID}
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}

	query := `SELECT ` + notificationChannelSelectColumns + ` FROM notification_channels
		WHERE tenant_id = ? AND is_enabled = 1 AND id IN (` + string(placeholders) + `)`

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.NotificationChannel
	for rows.Next() {
		c, err := scanNotificationChannelFields(rows.Scan)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, nil
}

// Create inserts a new notification channel.
func (r *NotificationChannelRepository) Create(c *models.NotificationChannel) error {
	isEnabled := 0
	if c.IsEnabled {
		isEnabled = 1
	}
	_, err := DB.Exec(`
		INSERT INTO notification_channels (id, tenant_id, kind, target, is_enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.TenantID, c.Kind, c.Target, isEnabled, c.CreatedAt)
	return err
}
