package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/middleware"
	"github.com/noah-isme/acompanha-api/internal/service"
	"github.com/noah-isme/acompanha-api/internal/utils"
)

// ScheduleHandler serves semesters and scheduled evaluation slots.
type ScheduleHandler struct {
	semesters service.SemesterService
	schedules service.ScheduleService
	logger    zerolog.Logger
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(semesters service.SemesterService, schedules service.ScheduleService, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		semesters: semesters,
		schedules: schedules,
		logger:    logger.With().Str("component", "schedule_handler").Logger(),
	}
}

// RegisterSemesters attaches semester endpoints.
func (h *ScheduleHandler) RegisterSemesters(router fiber.Router) {
	authed := middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}
	admin := middleware.AuthOptions{Role: middleware.AuthRoleAdmin}

	router.Get("", middleware.WithAuth(h.listSemesters, authed))
	router.Get("/current", middleware.WithAuth(h.currentSemester, authed))
	router.Post("", middleware.WithAuth(h.createSemester, admin))
	router.Post("/:id/activate", middleware.WithAuth(h.activateSemester, admin))
}

// RegisterSchedules attaches schedule endpoints.
func (h *ScheduleHandler) RegisterSchedules(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}
	admin := middleware.AuthOptions{Role: middleware.AuthRoleAdmin}

	router.Get("", middleware.WithAuth(h.listSchedules, staff))
	router.Get("/:id", middleware.WithAuth(h.getSchedule, staff))
	router.Post("", middleware.WithAuth(h.createSchedule, admin))
	router.Delete("/:id", middleware.WithAuth(h.deleteSchedule, admin))
}

func (h *ScheduleHandler) listSemesters(c *fiber.Ctx) error {
	items, err := h.semesters.List(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "semesters retrieved", items)
}

// currentSemester resolves the semester covering today, creating it when missing.
func (h *ScheduleHandler) currentSemester(c *fiber.Ctx) error {
	semester, err := h.semesters.Current(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "current semester", dto.NewSemesterResponse(semester))
}

func (h *ScheduleHandler) createSemester(c *fiber.Ctx) error {
	var payload dto.SemesterCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	semester, err := h.semesters.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "semester created", semester)
}

func (h *ScheduleHandler) activateSemester(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	semester, err := h.semesters.Activate(c.UserContext(), activityActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "semester activated", semester)
}

func (h *ScheduleHandler) listSchedules(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacherID, err := parseQueryUint(c, "teacher_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	semesterID, err := parseQueryUint(c, "semester_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	month, err := parseQueryInt(c, "month")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid month")
	}
	completed, err := parseQueryBool(c, "completed")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.schedules.List(c.UserContext(), dto.ScheduleListRequest{
		Page:       page,
		PageSize:   pageSize,
		TeacherID:  teacherID,
		SemesterID: semesterID,
		Month:      month,
		Completed:  completed,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, resp.Items, "schedules retrieved", resp.Pagination)
}

func (h *ScheduleHandler) getSchedule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	slot, err := h.schedules.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "schedule retrieved", slot)
}

func (h *ScheduleHandler) createSchedule(c *fiber.Ctx) error {
	var payload dto.ScheduleCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	slot, err := h.schedules.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluation scheduled", slot)
}

func (h *ScheduleHandler) deleteSchedule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.schedules.Delete(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "schedule deleted", fiber.Map{"id": id})
}
