package database

import (
	"time"

	"github.com/factoryop/platform/internal/models"
)

// NotificationHistoryRepository handles per-(alert,channel,user) dispatch
// audit-trail data operations.
type NotificationHistoryRepository struct{}

// NewNotificationHistoryRepository creates a new notification history repository
func NewNotificationHistoryRepository() *NotificationHistoryRepository {
	return &NotificationHistoryRepository{}
}

// Create inserts a pending dispatch-attempt row and returns its id.
func (r *NotificationHistoryRepository) Create(h *models.NotificationHistory) (int64, error) {
	res, err := DB.Exec(`
		INSERT INTO notification_history (alert_id, channel_id, channel_kind, recipient_id, status, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, h.AlertID, h.ChannelID, h.ChannelKind, h.RecipientID, h.Status, h.RetryCount, h.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MarkSent records a successful dispatch.
func (r *NotificationHistoryRepository) MarkSent(id int64, sentAt time.Time) error {
	_, err := DB.Exec(`UPDATE notification_history SET status = 'sent', sent_at = ? WHERE id = ?`, sentAt, id)
	return err
}

// MarkFailed records a failed dispatch attempt with its error and bumps the
// retry counter.
func (r *NotificationHistoryRepository) MarkFailed(id int64, errMsg string, retryCount int) error {
	_, err := DB.Exec(`UPDATE notification_history SET status = 'failed', error_message = ?, retry_count = ? WHERE id = ?`,
		errMsg, retryCount, id)
	return err
}
