package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/middleware"
	"github.com/noah-isme/acompanha-api/internal/service"
	"github.com/noah-isme/acompanha-api/internal/utils"
)

// TeacherHandler wires teacher management routes.
type TeacherHandler struct {
	service     service.TeacherService
	credentials service.CredentialService
	logger      zerolog.Logger
}

// NewTeacherHandler constructs the handler.
func NewTeacherHandler(service service.TeacherService, credentials service.CredentialService, logger zerolog.Logger) *TeacherHandler {
	return &TeacherHandler{
		service:     service,
		credentials: credentials,
		logger:      logger.With().Str("component", "teacher_handler").Logger(),
	}
}

// Register attaches teacher endpoints. Reads are open to staff; writes are admin only.
func (h *TeacherHandler) Register(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}
	admin := middleware.AuthOptions{Role: middleware.AuthRoleAdmin}

	router.Get("", middleware.WithAuth(h.list, staff))
	router.Get("/:id", middleware.WithAuth(h.get, staff))
	router.Post("", middleware.WithAuth(h.create, admin))
	router.Put("/:id", middleware.WithAuth(h.update, admin))
	router.Delete("/:id", middleware.WithAuth(h.delete, admin))
	router.Post("/:id/credentials", middleware.WithAuth(h.issueCredentials, admin))
}

func (h *TeacherHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.service.List(c.UserContext(), dto.TeacherListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Area:     c.Query("area"),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, resp.Items, "teachers retrieved", resp.Pagination)
}

func (h *TeacherHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	teacher, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "teacher retrieved", teacher)
}

func (h *TeacherHandler) create(c *fiber.Ctx) error {
	var payload dto.TeacherCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	created, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "teacher created", created)
}

func (h *TeacherHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	var payload dto.TeacherUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	teacher, err := h.service.Update(c.UserContext(), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "teacher updated", teacher)
}

func (h *TeacherHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "teacher deleted", fiber.Map{"id": id})
}

func (h *TeacherHandler) issueCredentials(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	credential, err := h.credentials.Issue(c.UserContext(), activityActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "credentials issued", credential)
}
