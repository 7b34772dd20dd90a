package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/service"
	"github.com/noah-isme/acompanha-api/internal/utils"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrTeacherNotFound, fiber.StatusNotFound},
	{service.ErrEvaluatorNotFound, fiber.StatusNotFound},
	{service.ErrCourseNotFound, fiber.StatusNotFound},
	{service.ErrCurricularUnitNotFound, fiber.StatusNotFound},
	{service.ErrSemesterNotFound, fiber.StatusNotFound},
	{service.ErrScheduleNotFound, fiber.StatusNotFound},
	{service.ErrEvaluationNotFound, fiber.StatusNotFound},
	{service.ErrAttachmentNotFound, fiber.StatusNotFound},
	{service.ErrUserNotFound, fiber.StatusNotFound},
	{service.ErrChecklistItemNotFound, fiber.StatusNotFound},
	{service.ErrCredentialNotFound, fiber.StatusNotFound},
	{service.ErrReportEmpty, fiber.StatusNotFound},

	{service.ErrInvalidMonth, fiber.StatusBadRequest},
	{service.ErrInvalidNIF, fiber.StatusBadRequest},
	{service.ErrInvalidDate, fiber.StatusBadRequest},
	{service.ErrInvalidDateRange, fiber.StatusBadRequest},
	{service.ErrInvalidChecklistValue, fiber.StatusBadRequest},
	{service.ErrInvalidSignatureImage, fiber.StatusBadRequest},
	{service.ErrUnitCourseMismatch, fiber.StatusBadRequest},
	{service.ErrDateOutsideSemester, fiber.StatusBadRequest},
	{service.ErrImportInvalid, fiber.StatusBadRequest},
	{service.ErrAttachmentTypeNotAllowed, fiber.StatusUnsupportedMediaType},
	{service.ErrAttachmentTooLarge, fiber.StatusRequestEntityTooLarge},

	{service.ErrDuplicateSchedule, fiber.StatusConflict},
	{service.ErrDuplicateNIF, fiber.StatusConflict},
	{service.ErrUsernameTaken, fiber.StatusConflict},
	{service.ErrDuplicateSemester, fiber.StatusConflict},
	{service.ErrAlreadySigned, fiber.StatusConflict},
	{service.ErrEvaluationLocked, fiber.StatusConflict},
	{service.ErrScheduleCompleted, fiber.StatusConflict},
	{service.ErrDefaultItemLocked, fiber.StatusConflict},
	{service.ErrHasLinkedRecords, fiber.StatusConflict},

	{service.ErrForbidden, fiber.StatusForbidden},
	{service.ErrInvalidLogin, fiber.StatusUnauthorized},
	{service.ErrCredentialExpired, fiber.StatusGone},
	{service.ErrCredentialUsed, fiber.StatusGone},
}

// statusFor maps a service error to its HTTP status. Unknown errors map to 500.
func statusFor(err error) int {
	for _, candidate := range errorStatuses {
		if errors.Is(err, candidate.err) {
			return candidate.status
		}
	}
	return fiber.StatusInternalServerError
}

// respondError writes the envelope for err, logging anything that is not a client error.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "validation failed", validationDetails(validationErrors))
	}

	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
		return utils.SendError(c, status, "internal server error")
	}
	return utils.SendError(c, status, err.Error())
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[toSnake(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(name[i-1] >= 'A' && name[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
