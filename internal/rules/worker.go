package rules

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/factoryop/platform/internal/models"
	"github.com/factoryop/platform/internal/queue"
)

// maxAttempts bounds the per-job retry count applied around the whole
// evaluation procedure (spec.md §4.2).
const maxAttempts = 3

// Worker consumes RuleEvaluationJob tasks from the rule_engine queue.
type Worker struct {
	evaluator *Evaluator
	q         *queue.Client
}

// NewWorker constructs a worker wired to the process-wide queue client.
func NewWorker() *Worker {
	return &Worker{evaluator: NewEvaluator(), q: queue.Get()}
}

// Run blocks consuming the rule_engine queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.q.Consume(ctx, queue.QueueRuleEngine, w.handle)
}

func (w *Worker) handle(ctx context.Context, task queue.Task) error {
	if task.TaskName != queue.TaskEvaluateRules {
		log.Warn().Str("taskName", task.TaskName).Msg("unexpected task on rule_engine queue, dropping")
		return nil
	}

	var job models.RuleEvaluationJob
	if err := json.Unmarshal(task.Args, &job); err != nil {
		log.Error().Err(err).Msg("malformed rule evaluation job, dropping")
		return nil
	}

	// Retries are bounded here, not by AMQP redelivery (spec.md §4.7): once
	// WithBackoff exhausts maxAttempts the delivery still acks, so a
	// persistent failure doesn't loop the broker forever.
	if err := queue.WithBackoff(ctx, maxAttempts, func() error {
		return w.evaluateJob(ctx, &job)
	}); err != nil {
		log.Error().Err(err).Int64("deviceId", job.DeviceID).Msg("rule evaluation exhausted retries, dropping")
	}
	return nil
}

func (w *Worker) evaluateJob(ctx context.Context, job *models.RuleEvaluationJob) error {
	fired, errs := w.evaluator.Evaluate(job.TenantID, job.DeviceID, job.Metrics, job.Timestamp)
	for _, err := range errs {
		log.Error().Err(err).Int64("deviceId", job.DeviceID).Msg("rule evaluation failed for one rule, continuing with the rest")
	}

	for _, f := range fired {
		if err := w.q.Publish(ctx, queue.QueueNotifications, queue.TaskSendNotifications, models.NotificationJob{
			TenantID: job.TenantID,
			AlertID:  f.Alert.ID,
			Channels: f.ChannelIDs,
		}); err != nil {
			log.Error().Err(err).Int64("alertId", f.Alert.ID).Msg("notification enqueue failed")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d rule(s) failed to evaluate for device %d", len(errs), job.DeviceID)
	}
	return nil
}
