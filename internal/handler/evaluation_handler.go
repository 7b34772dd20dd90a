package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/middleware"
	"github.com/noah-isme/acompanha-api/internal/service"
	"github.com/noah-isme/acompanha-api/internal/utils"
)

const pdfContentType = "application/pdf"

// EvaluationHandler serves evaluations, their attachments, signatures and PDF.
type EvaluationHandler struct {
	evaluations service.EvaluationService
	signatures  service.SignatureService
	reports     service.ReportService
	logger      zerolog.Logger
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(evaluations service.EvaluationService, signatures service.SignatureService, reports service.ReportService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		evaluations: evaluations,
		signatures:  signatures,
		reports:     reports,
		logger:      logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches evaluation endpoints. Teachers may read their own evaluations and sign them.
func (h *EvaluationHandler) Register(router fiber.Router) {
	authed := middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Get("", middleware.WithAuth(h.list, authed))
	router.Post("", middleware.WithAuth(h.create, staff))
	router.Get("/:id", middleware.WithAuth(h.get, authed))
	router.Put("/:id", middleware.WithAuth(h.update, staff))
	router.Delete("/:id", middleware.WithAuth(h.delete, staff))
	router.Get("/:id/pdf", middleware.WithAuth(h.pdf, authed))
	router.Post("/:id/attachments", middleware.WithAuth(h.addAttachment, staff))
	router.Delete("/:id/attachments/:attachmentId", middleware.WithAuth(h.deleteAttachment, staff))
	router.Post("/:id/sign", middleware.WithAuth(h.sign, authed))
	router.Get("/:id/signatures", middleware.WithAuth(h.listSignatures, authed))
}

func (h *EvaluationHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacherID, err := parseQueryUint(c, "teacher_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	evaluatorID, err := parseQueryUint(c, "evaluator_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	semesterID, err := parseQueryUint(c, "semester_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	completed, err := parseQueryBool(c, "completed")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.evaluations.List(c.UserContext(), activityActorFromContext(c), dto.EvaluationListRequest{
		Page:        page,
		PageSize:    pageSize,
		TeacherID:   teacherID,
		EvaluatorID: evaluatorID,
		SemesterID:  semesterID,
		Completed:   completed,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, resp.Items, "evaluations retrieved", resp.Pagination)
}

func (h *EvaluationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	evaluation, err := h.evaluations.Get(c.UserContext(), activityActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "evaluation retrieved", evaluation)
}

func (h *EvaluationHandler) create(c *fiber.Ctx) error {
	var payload dto.EvaluationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	evaluation, err := h.evaluations.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluation created", evaluation)
}

func (h *EvaluationHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	var payload dto.EvaluationUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	evaluation, err := h.evaluations.Update(c.UserContext(), activityActorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "evaluation updated", evaluation)
}

func (h *EvaluationHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.evaluations.Delete(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "evaluation deleted", fiber.Map{"id": id})
}

func (h *EvaluationHandler) pdf(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.reports.EvaluationPDF(c.UserContext(), activityActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendAttachment(c, report.Filename, pdfContentType, report.Content)
}

func (h *EvaluationHandler) addAttachment(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	header, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	file, err := header.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file could not be read")
	}
	defer file.Close()

	attachment, err := h.evaluations.AddAttachment(c.UserContext(), activityActorFromContext(c), id, header.Filename, file)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attachment uploaded", attachment)
}

func (h *EvaluationHandler) deleteAttachment(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	attachmentID, err := parseUintParam(c, "attachmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.evaluations.DeleteAttachment(c.UserContext(), activityActorFromContext(c), id, attachmentID); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "attachment deleted", fiber.Map{"id": attachmentID})
}

func (h *EvaluationHandler) sign(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	var payload dto.SignRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	evaluation, err := h.signatures.Sign(c.UserContext(), activityActorFromContext(c), id, payload, c.IP())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "evaluation signed", evaluation)
}

func (h *EvaluationHandler) listSignatures(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	signatures, err := h.signatures.List(c.UserContext(), activityActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "signatures retrieved", signatures)
}
