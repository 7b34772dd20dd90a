package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/middleware"
	"github.com/noah-isme/acompanha-api/internal/service"
	"github.com/noah-isme/acompanha-api/internal/utils"
)

// ReportHandler serves consolidated documents and the coordination dashboard.
type ReportHandler struct {
	reports   service.ReportService
	dashboard service.DashboardService
	logger    zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports service.ReportService, dashboard service.DashboardService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		reports:   reports,
		dashboard: dashboard,
		logger:    logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches report routes.
func (h *ReportHandler) Register(router fiber.Router) {
	authed := middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Get("/teachers/:id/consolidated", middleware.WithAuth(h.consolidated, authed))
	router.Get("/dashboard", middleware.WithAuth(h.dashboardSummary, staff))
}

// consolidated renders every completed evaluation of a teacher, optionally bounded by from/to dates.
func (h *ReportHandler) consolidated(c *fiber.Ctx) error {
	teacherID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	from, err := parseDateQuery(c, "from")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	report, err := h.reports.ConsolidatedPDF(c.UserContext(), activityActorFromContext(c), teacherID, from, to)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendAttachment(c, report.Filename, pdfContentType, report.Content)
}

func (h *ReportHandler) dashboardSummary(c *fiber.Ctx) error {
	summary, err := h.dashboard.Get(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "dashboard", summary)
}
