package handler

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/service"
	"github.com/noah-isme/acompanha-api/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ImportHandler exposes spreadsheet import, template and export endpoints. Admin only.
type ImportHandler struct {
	service service.ImportService
	logger  zerolog.Logger
}

// NewImportHandler constructs the handler.
func NewImportHandler(service service.ImportService, logger zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		service: service,
		logger:  logger.With().Str("component", "import_handler").Logger(),
	}
}

// Register attaches import routes.
func (h *ImportHandler) Register(router fiber.Router) {
	router.Post("/teachers", h.importWith(h.service.ImportTeachers))
	router.Post("/courses", h.importWith(h.service.ImportCourses))
	router.Post("/units", h.importWith(h.service.ImportUnits))

	router.Get("/templates/teachers", h.download(h.service.TeacherTemplate))
	router.Get("/templates/courses", h.download(h.service.CourseTemplate))
	router.Get("/templates/units", h.download(h.service.UnitTemplate))

	router.Get("/export/teachers", func(c *fiber.Ctx) error {
		report, err := h.service.ExportTeachers(c.UserContext())
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return sendAttachment(c, report.Filename, xlsxContentType, report.Content)
	})
}

type importFunc func(ctx context.Context, actor service.ActivityActor, r io.Reader) (dto.ImportResult, error)

func (h *ImportHandler) importWith(run importFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header, err := c.FormFile("file")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "file is required")
		}
		file, err := header.Open()
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "file could not be read")
		}
		defer file.Close()

		result, err := run(c.UserContext(), activityActorFromContext(c), file)
		if err != nil {
			return respondError(c, h.logger, err)
		}

		requestLogger(h.logger, c).Info().
			Str("file", header.Filename).
			Int("success_count", result.SuccessCount).
			Int("errors", len(result.Errors)).
			Msg("spreadsheet imported")
		return utils.SendSuccess(c, "import finished", result)
	}
}

func (h *ImportHandler) download(build func() (service.Report, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := build()
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return sendAttachment(c, report.Filename, xlsxContentType, report.Content)
	}
}
