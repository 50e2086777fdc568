package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/factoryop/platform/internal/database"
	"github.com/factoryop/platform/internal/models"
	"github.com/factoryop/platform/internal/objectstore"
	"github.com/factoryop/platform/internal/queue"
	"github.com/factoryop/platform/internal/timeseries"
)

const reportArtifactTTL = 24 * time.Hour

// Worker consumes generate_report tasks from the reporting queue.
type Worker struct {
	reports      *database.ReportRepository
	analyticsJob *database.AnalyticsJobRepository
	devices      *database.DeviceRepository
	alerts       *database.AlertRepository
	ts           *timeseries.Client
	store        *objectstore.Client
	httpClient   *http.Client
}

// NewWorker constructs a worker wired to the process-wide stores.
func NewWorker() *Worker {
	return &Worker{
		reports:      database.NewReportRepository(),
		analyticsJob: database.NewAnalyticsJobRepository(),
		devices:      database.NewDeviceRepository(),
		alerts:       database.NewAlertRepository(),
		ts:           timeseries.Get(),
		store:        objectstore.Get(),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

type reportTask struct {
	ReportID string `json:"reportId"`
	TenantID int64  `json:"tenantId"`
}

// Run blocks consuming the reporting queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return queue.Get().Consume(ctx, queue.QueueReporting, w.handle)
}

func (w *Worker) handle(ctx context.Context, task queue.Task) error {
	if task.TaskName != queue.TaskGenerateReport {
		log.Warn().Str("taskName", task.TaskName).Msg("unexpected task on reporting queue, dropping")
		return nil
	}
	var body reportTask
	if err := json.Unmarshal(task.Args, &body); err != nil {
		log.Error().Err(err).Msg("malformed report task, dropping")
		return nil
	}
	w.runReport(ctx, body.TenantID, body.ReportID)
	return nil
}

// runReport executes the full pending->running->complete|failed lifecycle
// for one report (spec.md §4.5). Unlike the analytics worker, report
// generation has no retry policy: a failure is terminal.
func (w *Worker) runReport(ctx context.Context, tenantID int64, reportID string) {
	rpt, err := w.reports.GetByID(tenantID, reportID)
	if err != nil {
		log.Error().Err(err).Str("reportId", reportID).Msg("failed to load report")
		return
	}
	if rpt == nil || rpt.Status != models.JobPending {
		return
	}

	if err := w.reports.MarkRunning(rpt.ID); err != nil {
		log.Error().Err(err).Str("reportId", reportID).Msg("failed to mark report running")
		return
	}

	body, ext, contentType, err := w.render(ctx, rpt)
	if err != nil {
		log.Error().Err(err).Str("reportId", reportID).Msg("report generation failed")
		if err := w.reports.MarkFailed(rpt.ID, err.Error()); err != nil {
			log.Error().Err(err).Str("reportId", reportID).Msg("failed to mark report failed")
		}
		return
	}

	key := objectstore.ReportKey(rpt.TenantID, rpt.ID, ext)
	url, err := w.store.Upload(ctx, key, body, contentType, reportArtifactTTL)
	if err != nil {
		log.Error().Err(err).Str("reportId", reportID).Msg("report artifact upload failed")
		if err := w.reports.MarkFailed(rpt.ID, err.Error()); err != nil {
			log.Error().Err(err).Str("reportId", reportID).Msg("failed to mark report failed")
		}
		return
	}

	if err := w.reports.MarkComplete(rpt.ID, url, int64(len(body))); err != nil {
		log.Error().Err(err).Str("reportId", reportID).Msg("failed to mark report complete")
	}
}

func (w *Worker) render(ctx context.Context, rpt *models.Report) (body []byte, ext, contentType string, err error) {
	devices, err := w.loadDevices(rpt.TenantID, rpt.DeviceIDs)
	if err != nil {
		return nil, "", "", fmt.Errorf("load devices: %w", err)
	}

	rows, err := w.ts.Query(ctx, rpt.DeviceIDs, rpt.StartTime, rpt.EndTime)
	if err != nil {
		return nil, "", "", fmt.Errorf("query telemetry: %w", err)
	}
	frame := FrameFromRows(rows)

	alerts, err := w.alerts.InRange(rpt.TenantID, rpt.DeviceIDs, rpt.StartTime, rpt.EndTime)
	if err != nil {
		return nil, "", "", fmt.Errorf("load alerts: %w", err)
	}

	agg := Aggregate(rpt.Title, devices, frame, alerts, rpt.StartTime, rpt.EndTime)

	if rpt.IncludeAnalytics && rpt.AnalyticsJobID != "" {
		if analyticsResult := w.fetchAnalytics(ctx, rpt.TenantID, rpt.AnalyticsJobID); analyticsResult != nil {
			agg.Analytics = analyticsResult
		}
	}

	switch rpt.Format {
	case models.FormatPDF:
		b, err := RenderPDF(agg)
		return b, "pdf", "application/pdf", err
	case models.FormatExcel:
		b, err := RenderExcel(agg)
		return b, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	case models.FormatJSON:
		b, err := RenderJSON(agg)
		return b, "json", "application/json", err
	default:
		return nil, "", "", fmt.Errorf("unknown report format %q", rpt.Format)
	}
}

func (w *Worker) loadDevices(tenantID int64, deviceIDs []int64) ([]models.Device, error) {
	devices := make([]models.Device, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		d, err := w.devices.GetByID(tenantID, id)
		if err != nil {
			return nil, err
		}
		if d != nil {
			devices = append(devices, *d)
		}
	}
	return devices, nil
}

// fetchAnalytics embeds a prior analytics artifact only if the referenced
// job is complete, per spec.md §4.5; any other state (or a fetch failure)
// means the report proceeds without it.
func (w *Worker) fetchAnalytics(ctx context.Context, tenantID int64, jobID string) map[string]interface{} {
	job, err := w.analyticsJob.GetByID(tenantID, jobID)
	if err != nil || job == nil || job.Status != models.JobComplete || job.ResultURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.ResultURL, nil)
	if err != nil {
		return nil
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil
	}
	return result
}
