package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/factoryop/platform/internal/config"
	"github.com/factoryop/platform/internal/database"
	"github.com/factoryop/platform/internal/models"
	"github.com/factoryop/platform/internal/queue"
)

const maxAttempts = 3

// Worker consumes send_notifications tasks from the notifications queue
// (C10, spec.md §4.6). For each enabled channel on the firing rule it
// dispatches once per active tenant user, recording one NotificationHistory
// row per (alert, channel, user) dispatch attempt.
type Worker struct {
	alerts     *database.AlertRepository
	rules      *database.RuleRepository
	devices    *database.DeviceRepository
	channels   *database.NotificationChannelRepository
	users      *database.UserRepository
	history    *database.NotificationHistoryRepository
	transports map[models.NotificationChannelKind]Transport
	q          *queue.Client
}

// NewWorker constructs a worker wired to the process-wide stores and the
// outbound transports configured under the notification section.
func NewWorker(cfg config.NotificationConfig) *Worker {
	return &Worker{
		alerts:     database.NewAlertRepository(),
		rules:      database.NewRuleRepository(),
		devices:    database.NewDeviceRepository(),
		channels:   database.NewNotificationChannelRepository(),
		users:      database.NewUserRepository(),
		history:    database.NewNotificationHistoryRepository(),
		transports: Transports(cfg),
		q:          queue.Get(),
	}
}

// Run blocks consuming the notifications queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.q.Consume(ctx, queue.QueueNotifications, w.handle)
}

func (w *Worker) handle(ctx context.Context, task queue.Task) error {
	if task.TaskName != queue.TaskSendNotifications {
		log.Warn().Str("taskName", task.TaskName).Msg("unexpected task on notifications queue, dropping")
		return nil
	}
	var job models.NotificationJob
	if err := json.Unmarshal(task.Args, &job); err != nil {
		log.Error().Err(err).Msg("malformed notification task, dropping")
		return nil
	}
	// Retries are bounded here, not by AMQP redelivery (spec.md §4.7): once
	// WithBackoff exhausts maxAttempts the delivery still acks, so a
	// persistent failure doesn't loop the broker forever.
	if err := queue.WithBackoff(ctx, maxAttempts, func() error {
		return w.dispatch(ctx, &job)
	}); err != nil {
		log.Error().Err(err).Int64("alertId", job.AlertID).Msg("notification dispatch exhausted retries, dropping")
	}
	return nil
}

// dispatch joins the alert with its rule and device for presentation, then
// sends one message per (active tenant user, enabled channel) pair.
// Per-recipient failures are logged and do not abort the job; the job
// itself only errors (triggering a retry) when the alert/rule/device/user
// lookups themselves fail.
func (w *Worker) dispatch(ctx context.Context, job *models.NotificationJob) error {
	tenantID := job.TenantID
	alert, err := w.alerts.GetByID(tenantID, job.AlertID)
	if err != nil {
		return fmt.Errorf("load alert %d: %w", job.AlertID, err)
	}
	if alert == nil {
		log.Warn().Int64("alertId", job.AlertID).Msg("notification job for unknown alert, dropping")
		return nil
	}

	rule, err := w.rules.GetByID(tenantID, alert.RuleID)
	if err != nil {
		return fmt.Errorf("load rule %s: %w", alert.RuleID, err)
	}
	device, err := w.devices.GetByID(tenantID, alert.DeviceID)
	if err != nil {
		return fmt.Errorf("load device %d: %w", alert.DeviceID, err)
	}

	channels, err := w.channels.GetByIDs(tenantID, job.Channels)
	if err != nil {
		return fmt.Errorf("load channels: %w", err)
	}
	if len(channels) == 0 {
		w.markSent(alert.ID)
		return nil
	}

	users, err := w.users.GetActiveByTenant(tenantID)
	if err != nil {
		return fmt.Errorf("load active users: %w", err)
	}

	subject, body := renderMessage(alert, rule, device)
	for _, channel := range channels {
		transport, ok := w.transports[channel.Kind]
		if !ok {
			log.Warn().Str("kind", string(channel.Kind)).Msg("no transport registered for channel kind")
			continue
		}
		for _, user := range users {
			w.sendOne(ctx, transport, channel, user, alert.ID, subject, body)
		}
	}

	w.markSent(alert.ID)
	return nil
}

func (w *Worker) sendOne(ctx context.Context, transport Transport, channel models.NotificationChannel, user models.User, alertID int64, subject, body string) {
	histID, err := w.history.Create(&models.NotificationHistory{
		AlertID:     alertID,
		ChannelID:   channel.ID,
		ChannelKind: channel.Kind,
		RecipientID: user.ID,
		Status:      "pending",
		CreatedAt:   time.Now(),
	})
	if err != nil {
		log.Error().Err(err).Int64("alertId", alertID).Str("channelId", channel.ID).Msg("failed to record notification history")
		return
	}

	if err := transport.Send(ctx, channel.Target, subject, body); err != nil {
		log.Error().Err(err).Int64("alertId", alertID).Str("channelId", channel.ID).Int64("userId", user.ID).
			Msg("notification dispatch failed, continuing with remaining recipients")
		if err := w.history.MarkFailed(histID, err.Error(), 1); err != nil {
			log.Error().Err(err).Msg("failed to mark notification history failed")
		}
		return
	}
	if err := w.history.MarkSent(histID, time.Now()); err != nil {
		log.Error().Err(err).Msg("failed to mark notification history sent")
	}
}

func (w *Worker) markSent(alertID int64) {
	if err := w.alerts.MarkNotificationSent(alertID); err != nil {
		log.Error().Err(err).Int64("alertId", alertID).Msg("failed to mark alert notification_sent")
	}
}

func renderMessage(alert *models.Alert, rule *models.Rule, device *models.Device) (subject, body string) {
	ruleName := "unknown rule"
	if rule != nil {
		ruleName = rule.Name
	}
	deviceLabel := fmt.Sprintf("device %d", alert.DeviceID)
	if device != nil {
		if device.Name != "" {
			deviceLabel = device.Name
		} else {
			deviceLabel = device.DeviceKey
		}
	}

	subject = fmt.Sprintf("[%s] %s on %s", alert.Severity, ruleName, deviceLabel)
	body = fmt.Sprintf("%s\n\nTriggered: %s\nDevice: %s\nRule: %s\nSeverity: %s",
		alert.Message, alert.TriggeredAt.Format(time.RFC3339), deviceLabel, ruleName, alert.Severity)
	return subject, body
}
