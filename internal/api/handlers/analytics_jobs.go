package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/factoryop/platform/internal/database"
	"github.com/factoryop/platform/internal/models"
	"github.com/factoryop/platform/internal/queue"
)

// AnalyticsJobHandler exposes the thin HTTP surface for analytics jobs
// (spec.md §4.8): Create inserts a pending job row and enqueues it, and
// Delete removes a pending or failed row. Every other state transition
// belongs to the analytics worker.
type AnalyticsJobHandler struct {
	jobs    *database.AnalyticsJobRepository
	tenants *database.TenantRepository
	q       *queue.Client
}

// NewAnalyticsJobHandler creates a new analytics job handler.
func NewAnalyticsJobHandler() *AnalyticsJobHandler {
	return &AnalyticsJobHandler{
		jobs:    database.NewAnalyticsJobRepository(),
		tenants: database.NewTenantRepository(),
		q:       queue.Get(),
	}
}

type createAnalyticsJobRequest struct {
	JobType   models.AnalyticsJobType `json:"jobType"`
	DeviceIDs []int64                 `json:"deviceIds"`
	StartTime time.Time               `json:"startTime"`
	EndTime   time.Time               `json:"endTime"`
}

type analyticsJobTask struct {
	JobID    string `json:"jobId"`
	TenantID int64  `json:"tenantId"`
}

// Create inserts a pending analytics job and enqueues it for the worker.
func (h *AnalyticsJobHandler) Create(c *fiber.Ctx) error {
	tenant, err := h.resolveTenant(c)
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to resolve tenant")
	}
	if tenant == nil {
		return errJSON(c, 404, "NOT_FOUND", "tenant not found")
	}

	var req createAnalyticsJobRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, 400, "INVALID_REQUEST", "invalid request body")
	}
	switch req.JobType {
	case models.JobTypeAnomaly, models.JobTypeFailurePrediction, models.JobTypeEnergyForecast, models.JobTypeAICopilot:
	default:
		return errJSON(c, 400, "VALIDATION_ERROR", "jobType must be one of anomaly, failure_prediction, energy_forecast, ai_copilot")
	}
	if len(req.DeviceIDs) == 0 {
		return errJSON(c, 400, "VALIDATION_ERROR", "deviceIds is required")
	}

	job := &models.AnalyticsJob{
		ID:        uuid.New().String(),
		TenantID:  tenant.ID,
		CreatedBy: requestingUserID(c),
		JobType:   req.JobType,
		DeviceIDs: req.DeviceIDs,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    models.JobPending,
		CreatedAt: time.Now(),
	}
	if err := h.jobs.Create(job); err != nil {
		return errJSON(c, 500, "CREATE_ERROR", "failed to create analytics job")
	}

	if err := h.q.Publish(c.Context(), queue.QueueAnalytics, queue.TaskRunAnalyticsJob, analyticsJobTask{
		JobID: job.ID, TenantID: job.TenantID,
	}); err != nil {
		return errJSON(c, 500, "ENQUEUE_ERROR", "failed to enqueue analytics job")
	}

	return c.Status(202).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"job_id": job.ID, "status": job.Status},
	})
}

// GetByID returns the status/result/error of an analytics job.
func (h *AnalyticsJobHandler) GetByID(c *fiber.Ctx) error {
	tenant, err := h.resolveTenant(c)
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to resolve tenant")
	}
	if tenant == nil {
		return errJSON(c, 404, "NOT_FOUND", "tenant not found")
	}

	job, err := h.jobs.GetByID(tenant.ID, c.Params("id"))
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to fetch analytics job")
	}
	if job == nil {
		return errJSON(c, 404, "NOT_FOUND", "analytics job not found")
	}
	return c.JSON(fiber.Map{"success": true, "data": job})
}

// Delete cancels a pending or failed analytics job. Running or complete
// jobs cannot be cancelled (spec.md §4.8).
func (h *AnalyticsJobHandler) Delete(c *fiber.Ctx) error {
	tenant, err := h.resolveTenant(c)
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to resolve tenant")
	}
	if tenant == nil {
		return errJSON(c, 404, "NOT_FOUND", "tenant not found")
	}

	job, err := h.jobs.GetByID(tenant.ID, c.Params("id"))
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to fetch analytics job")
	}
	if job == nil {
		return errJSON(c, 404, "NOT_FOUND", "analytics job not found")
	}
	if !job.Status.Deletable() {
		return errJSON(c, 400, "INVALID_STATE", "only pending or failed jobs may be cancelled")
	}
	if err := h.jobs.Delete(tenant.ID, job.ID); err != nil {
		return errJSON(c, 500, "DELETE_ERROR", "failed to cancel analytics job")
	}
	return c.SendStatus(204)
}

// resolveTenant reads the tenant slug from the path (the create route is
// nested under /tenants/:slug/...) or, for the flat status/cancel/download
// routes, from a `tenant` query parameter.
func (h *AnalyticsJobHandler) resolveTenant(c *fiber.Ctx) (*models.Tenant, error) {
	slug := c.Params("slug")
	if slug == "" {
		slug = c.Query("tenant")
	}
	return h.tenants.GetBySlug(slug)
}
