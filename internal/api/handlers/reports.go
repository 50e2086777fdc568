package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/factoryop/platform/internal/database"
	"github.com/factoryop/platform/internal/models"
	"github.com/factoryop/platform/internal/queue"
)

// ReportHandler exposes the thin C9 HTTP surface for report jobs
// (spec.md §4.8): Create inserts a pending report row and enqueues it,
// Delete removes a pending or failed row, and Download redirects to the
// artifact's presigned URL once complete.
type ReportHandler struct {
	reports *database.ReportRepository
	tenants *database.TenantRepository
	q       *queue.Client
}

// NewReportHandler creates a new report handler.
func NewReportHandler() *ReportHandler {
	return &ReportHandler{
		reports: database.NewReportRepository(),
		tenants: database.NewTenantRepository(),
		q:       queue.Get(),
	}
}

type createReportRequest struct {
	Title            string              `json:"title"`
	DeviceIDs        []int64             `json:"deviceIds"`
	StartTime        time.Time           `json:"startTime"`
	EndTime          time.Time           `json:"endTime"`
	Format           models.ReportFormat `json:"format"`
	IncludeAnalytics bool                `json:"includeAnalytics"`
	AnalyticsJobID   string              `json:"analyticsJobId,omitempty"`
}

type reportTaskBody struct {
	ReportID string `json:"reportId"`
	TenantID int64  `json:"tenantId"`
}

// Create inserts a pending report job and enqueues it for the worker.
func (h *ReportHandler) Create(c *fiber.Ctx) error {
	tenant, err := h.resolveTenant(c)
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to resolve tenant")
	}
	if tenant == nil {
		return errJSON(c, 404, "NOT_FOUND", "tenant not found")
	}

	var req createReportRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, 400, "INVALID_REQUEST", "invalid request body")
	}
	switch req.Format {
	case models.FormatPDF, models.FormatExcel, models.FormatJSON:
	default:
		return errJSON(c, 400, "VALIDATION_ERROR", "format must be one of pdf, excel, json")
	}
	if len(req.DeviceIDs) == 0 {
		return errJSON(c, 400, "VALIDATION_ERROR", "deviceIds is required")
	}

	rpt := &models.Report{
		ID:               uuid.New().String(),
		TenantID:         tenant.ID,
		CreatedBy:        requestingUserID(c),
		Title:            req.Title,
		DeviceIDs:        req.DeviceIDs,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Format:           req.Format,
		IncludeAnalytics: req.IncludeAnalytics,
		AnalyticsJobID:   req.AnalyticsJobID,
		Status:           models.JobPending,
		CreatedAt:        time.Now(),
	}
	if err := h.reports.Create(rpt); err != nil {
		return errJSON(c, 500, "CREATE_ERROR", "failed to create report")
	}

	if err := h.q.Publish(c.Context(), queue.QueueReporting, queue.TaskGenerateReport, reportTaskBody{
		ReportID: rpt.ID, TenantID: rpt.TenantID,
	}); err != nil {
		return errJSON(c, 500, "ENQUEUE_ERROR", "failed to enqueue report")
	}

	return c.Status(202).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"job_id": rpt.ID, "status": rpt.Status},
	})
}

// GetByID returns the status/result/error of a report job.
func (h *ReportHandler) GetByID(c *fiber.Ctx) error {
	tenant, err := h.resolveTenant(c)
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to resolve tenant")
	}
	if tenant == nil {
		return errJSON(c, 404, "NOT_FOUND", "tenant not found")
	}

	rpt, err := h.reports.GetByID(tenant.ID, c.Params("id"))
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to fetch report")
	}
	if rpt == nil {
		return errJSON(c, 404, "NOT_FOUND", "report not found")
	}
	return c.JSON(fiber.Map{"success": true, "data": rpt})
}

// Delete cancels a pending or failed report job.
func (h *ReportHandler) Delete(c *fiber.Ctx) error {
	tenant, err := h.resolveTenant(c)
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to resolve tenant")
	}
	if tenant == nil {
		return errJSON(c, 404, "NOT_FOUND", "tenant not found")
	}

	rpt, err := h.reports.GetByID(tenant.ID, c.Params("id"))
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to fetch report")
	}
	if rpt == nil {
		return errJSON(c, 404, "NOT_FOUND", "report not found")
	}
	if !rpt.Status.Deletable() {
		return errJSON(c, 400, "INVALID_STATE", "only pending or failed reports may be cancelled")
	}
	if err := h.reports.Delete(tenant.ID, rpt.ID); err != nil {
		return errJSON(c, 500, "DELETE_ERROR", "failed to cancel report")
	}
	return c.SendStatus(204)
}

// Download redirects to the artifact's presigned URL once the report is
// complete; any other status is a 400 (spec.md §4.8).
func (h *ReportHandler) Download(c *fiber.Ctx) error {
	tenant, err := h.resolveTenant(c)
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to resolve tenant")
	}
	if tenant == nil {
		return errJSON(c, 404, "NOT_FOUND", "tenant not found")
	}

	rpt, err := h.reports.GetByID(tenant.ID, c.Params("id"))
	if err != nil {
		return errJSON(c, 500, "FETCH_ERROR", "failed to fetch report")
	}
	if rpt == nil {
		return errJSON(c, 404, "NOT_FOUND", "report not found")
	}
	if rpt.Status != models.JobComplete || rpt.ResultURL == "" {
		return errJSON(c, 400, "NOT_READY", "report is not complete")
	}
	return c.Redirect(rpt.ResultURL, 302)
}

func (h *ReportHandler) resolveTenant(c *fiber.Ctx) (*models.Tenant, error) {
	slug := c.Params("slug")
	if slug == "" {
		slug = c.Query("tenant")
	}
	return h.tenants.GetBySlug(slug)
}
