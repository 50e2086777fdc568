package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/factoryop/platform/internal/database"
	"github.com/factoryop/platform/internal/models"
	"github.com/factoryop/platform/internal/objectstore"
	"github.com/factoryop/platform/internal/queue"
	"github.com/factoryop/platform/internal/timeseries"
)

const artifactTTL = time.Hour

// jobFunc runs one model over a frame. A model whose input preconditions
// are not met returns ErrInsufficientInput; an unknown job type has no
// entry in dispatch and is rejected by execute with its own error. fail
// handles both the same way as any other job error.
type jobFunc func(Frame) (interface{}, error)

var dispatch = map[models.AnalyticsJobType]jobFunc{
	models.JobTypeAnomaly: func(f Frame) (interface{}, error) { return RunAnomalyDetection(f) },
	models.JobTypeFailurePrediction: func(f Frame) (interface{}, error) {
		return RunFailurePrediction(f)
	},
	models.JobTypeEnergyForecast: func(f Frame) (interface{}, error) { return RunEnergyForecast(f) },
	models.JobTypeAICopilot:      func(f Frame) (interface{}, error) { return RunAICopilot(f) },
}

// Worker consumes run_analytics_job tasks from the analytics queue.
type Worker struct {
	jobs  *database.AnalyticsJobRepository
	ts    *timeseries.Client
	store *objectstore.Client
	q     *queue.Client
}

// NewWorker constructs a worker wired to the process-wide stores.
func NewWorker() *Worker {
	return &Worker{
		jobs:  database.NewAnalyticsJobRepository(),
		ts:    timeseries.Get(),
		store: objectstore.Get(),
		q:     queue.Get(),
	}
}

// Run blocks consuming the analytics queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.q.Consume(ctx, queue.QueueAnalytics, w.handle)
}

type jobTask struct {
	JobID    string `json:"jobId"`
	TenantID int64  `json:"tenantId"`
}

func (w *Worker) handle(ctx context.Context, task queue.Task) error {
	if task.TaskName != queue.TaskRunAnalyticsJob {
		log.Warn().Str("taskName", task.TaskName).Msg("unexpected task on analytics queue, dropping")
		return nil
	}

	var body jobTask
	if err := json.Unmarshal(task.Args, &body); err != nil {
		log.Error().Err(err).Msg("malformed analytics job task, dropping")
		return nil
	}

	return w.runJob(ctx, body.TenantID, body.JobID)
}

// runJob executes the full pending->running->complete|failed lifecycle for
// one job (spec.md §4.4). A failure here is never retried by the queue
// layer's redelivery: the single-retry-after-60s policy is owned by the
// worker itself (see fail), so handle always returns nil and acks the
// delivery regardless of outcome.
func (w *Worker) runJob(ctx context.Context, tenantID int64, jobID string) error {
	job, err := w.jobs.GetByID(tenantID, jobID)
	if err != nil {
		log.Error().Err(err).Str("jobId", jobID).Msg("failed to load analytics job")
		return nil
	}
	if job == nil {
		log.Warn().Str("jobId", jobID).Msg("analytics job not found, dropping")
		return nil
	}
	if job.Status != models.JobPending {
		log.Warn().Str("jobId", jobID).Str("status", string(job.Status)).Msg("analytics job not pending, skipping")
		return nil
	}

	if err := w.jobs.MarkRunning(job.ID); err != nil {
		log.Error().Err(err).Str("jobId", jobID).Msg("failed to mark analytics job running")
		return nil
	}

	result, runErr := w.execute(ctx, job)
	if runErr != nil {
		w.fail(ctx, job, runErr)
		return nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		w.fail(ctx, job, err)
		return nil
	}

	key := objectstore.AnalyticsJobKey(job.TenantID, job.ID)
	url, err := w.store.Upload(ctx, key, payload, "application/json", artifactTTL)
	if err != nil {
		w.fail(ctx, job, err)
		return nil
	}

	if err := w.jobs.MarkComplete(job.ID, url); err != nil {
		log.Error().Err(err).Str("jobId", jobID).Msg("failed to mark analytics job complete")
	}
	return nil
}

func (w *Worker) execute(ctx context.Context, job *models.AnalyticsJob) (interface{}, error) {
	fn, ok := dispatch[job.JobType]
	if !ok {
		return nil, fmt.Errorf("unknown analytics job type %q", job.JobType)
	}

	rows, err := w.ts.Query(ctx, job.DeviceIDs, job.StartTime, job.EndTime)
	if err != nil {
		return nil, fmt.Errorf("query telemetry: %w", err)
	}

	frame := BuildFrame(rows)
	return fn(frame)
}

// fail marks a job failed. If this was its first attempt, it schedules a
// single retry 60s later by resetting it to pending and re-publishing;
// a second failure is terminal, per spec.md §4.4.
func (w *Worker) fail(ctx context.Context, job *models.AnalyticsJob, cause error) {
	log.Error().Err(cause).Str("jobId", job.ID).Msg("analytics job failed")

	if err := w.jobs.MarkFailed(job.ID, cause.Error(), job.RetryCount+1); err != nil {
		log.Error().Err(err).Str("jobId", job.ID).Msg("failed to mark analytics job failed")
		return
	}

	if job.RetryCount > 0 {
		return // already retried once; terminal
	}

	go func() {
		time.Sleep(60 * time.Second)
		if err := w.jobs.ResetToPending(job.ID); err != nil {
			log.Error().Err(err).Str("jobId", job.ID).Msg("failed to reset analytics job for retry")
			return
		}
		if err := w.q.Publish(ctx, queue.QueueAnalytics, queue.TaskRunAnalyticsJob, jobTask{JobID: job.ID, TenantID: job.TenantID}); err != nil {
			log.Error().Err(err).Str("jobId", job.ID).Msg("failed to re-enqueue analytics job retry")
		}
	}()
}
