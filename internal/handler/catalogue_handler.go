package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/middleware"
	"github.com/noah-isme/acompanha-api/internal/service"
	"github.com/noah-isme/acompanha-api/internal/utils"
)

// CatalogueHandler serves evaluators, courses and curricular units.
type CatalogueHandler struct {
	evaluators service.EvaluatorService
	courses    service.CourseService
	logger     zerolog.Logger
}

// NewCatalogueHandler constructs the handler.
func NewCatalogueHandler(evaluators service.EvaluatorService, courses service.CourseService, logger zerolog.Logger) *CatalogueHandler {
	return &CatalogueHandler{
		evaluators: evaluators,
		courses:    courses,
		logger:     logger.With().Str("component", "catalogue_handler").Logger(),
	}
}

// RegisterEvaluators attaches evaluator endpoints.
func (h *CatalogueHandler) RegisterEvaluators(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}
	admin := middleware.AuthOptions{Role: middleware.AuthRoleAdmin}

	router.Get("", middleware.WithAuth(h.listEvaluators, staff))
	router.Get("/:id", middleware.WithAuth(h.getEvaluator, staff))
	router.Post("", middleware.WithAuth(h.createEvaluator, admin))
	router.Put("/:id", middleware.WithAuth(h.updateEvaluator, admin))
	router.Delete("/:id", middleware.WithAuth(h.deleteEvaluator, admin))
}

// RegisterCourses attaches course endpoints.
func (h *CatalogueHandler) RegisterCourses(router fiber.Router) {
	authed := middleware.AuthOptions{Role: middleware.AuthRoleAny}
	admin := middleware.AuthOptions{Role: middleware.AuthRoleAdmin}

	router.Get("", middleware.WithAuth(h.listCourses, authed))
	router.Get("/:id", middleware.WithAuth(h.getCourse, authed))
	router.Post("", middleware.WithAuth(h.createCourse, admin))
	router.Put("/:id", middleware.WithAuth(h.updateCourse, admin))
	router.Delete("/:id", middleware.WithAuth(h.deleteCourse, admin))
}

// RegisterUnits attaches curricular unit endpoints.
func (h *CatalogueHandler) RegisterUnits(router fiber.Router) {
	authed := middleware.AuthOptions{Role: middleware.AuthRoleAny}
	admin := middleware.AuthOptions{Role: middleware.AuthRoleAdmin}

	router.Get("", middleware.WithAuth(h.listUnits, authed))
	router.Get("/:id", middleware.WithAuth(h.getUnit, authed))
	router.Post("", middleware.WithAuth(h.createUnit, admin))
	router.Put("/:id", middleware.WithAuth(h.updateUnit, admin))
	router.Delete("/:id", middleware.WithAuth(h.deleteUnit, admin))
}

func (h *CatalogueHandler) listEvaluators(c *fiber.Ctx) error {
	items, err := h.evaluators.List(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "evaluators retrieved", items)
}

func (h *CatalogueHandler) getEvaluator(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	evaluator, err := h.evaluators.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "evaluator retrieved", evaluator)
}

func (h *CatalogueHandler) createEvaluator(c *fiber.Ctx) error {
	var payload dto.EvaluatorRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	evaluator, err := h.evaluators.Create(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluator created", evaluator)
}

func (h *CatalogueHandler) updateEvaluator(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	var payload dto.EvaluatorRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	evaluator, err := h.evaluators.Update(c.UserContext(), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "evaluator updated", evaluator)
}

func (h *CatalogueHandler) deleteEvaluator(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.evaluators.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "evaluator deleted", fiber.Map{"id": id})
}

func (h *CatalogueHandler) listCourses(c *fiber.Ctx) error {
	items, err := h.courses.ListCourses(c.UserContext(), c.Query("search"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "courses retrieved", items)
}

func (h *CatalogueHandler) getCourse(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	course, err := h.courses.GetCourse(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CatalogueHandler) createCourse(c *fiber.Ctx) error {
	var payload dto.CourseRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	course, err := h.courses.CreateCourse(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course created", course)
}

func (h *CatalogueHandler) updateCourse(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	var payload dto.CourseRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	course, err := h.courses.UpdateCourse(c.UserContext(), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "course updated", course)
}

func (h *CatalogueHandler) deleteCourse(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.courses.DeleteCourse(c.UserContext(), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "course deleted", fiber.Map{"id": id})
}

func (h *CatalogueHandler) listUnits(c *fiber.Ctx) error {
	courseID, err := parseQueryUint(c, "course_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	activeOnly, err := parseQueryBool(c, "active")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var courseFilter *uint
	if courseID > 0 {
		courseFilter = &courseID
	}
	items, err := h.courses.ListUnits(c.UserContext(), courseFilter, activeOnly != nil && *activeOnly, c.Query("search"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "curricular units retrieved", items)
}

func (h *CatalogueHandler) getUnit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	unit, err := h.courses.GetUnit(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "curricular unit retrieved", unit)
}

func (h *CatalogueHandler) createUnit(c *fiber.Ctx) error {
	var payload dto.CurricularUnitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	unit, err := h.courses.CreateUnit(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "curricular unit created", unit)
}

func (h *CatalogueHandler) updateUnit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	var payload dto.CurricularUnitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	unit, err := h.courses.UpdateUnit(c.UserContext(), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "curricular unit updated", unit)
}

func (h *CatalogueHandler) deleteUnit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.courses.DeleteUnit(c.UserContext(), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "curricular unit deleted", fiber.Map{"id": id})
}
