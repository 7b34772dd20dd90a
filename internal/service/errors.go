package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrTeacherNotFound indicates the teacher does not exist.
	ErrTeacherNotFound = errors.New("teacher not found")
	// ErrEvaluatorNotFound indicates the evaluator does not exist.
	ErrEvaluatorNotFound = errors.New("evaluator not found")
	// ErrCourseNotFound indicates the course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrCurricularUnitNotFound indicates the curricular unit does not exist.
	ErrCurricularUnitNotFound = errors.New("curricular unit not found")
	// ErrSemesterNotFound indicates the semester does not exist.
	ErrSemesterNotFound = errors.New("semester not found")
	// ErrScheduleNotFound indicates the schedule slot does not exist.
	ErrScheduleNotFound = errors.New("scheduled evaluation not found")
	// ErrEvaluationNotFound indicates the evaluation does not exist.
	ErrEvaluationNotFound = errors.New("evaluation not found")
	// ErrAttachmentNotFound indicates the attachment does not belong to the evaluation.
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrUserNotFound indicates the linked account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrChecklistItemNotFound indicates an edited checklist row does not belong to the evaluation.
	ErrChecklistItemNotFound = errors.New("checklist item not found")

	// ErrInvalidMonth indicates a scheduled month outside 1..12.
	ErrInvalidMonth = errors.New("scheduled month must be between 1 and 12")
	// ErrInvalidNIF indicates a NIF that is not "SN" followed by seven digits.
	ErrInvalidNIF = errors.New("nif must be SN followed by 7 digits")
	// ErrInvalidDate indicates a malformed calendar date.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	// ErrInvalidDateRange indicates a range whose start is after its end.
	ErrInvalidDateRange = errors.New("start date must not be after end date")
	// ErrInvalidChecklistValue indicates an answer outside the tri-state domain.
	ErrInvalidChecklistValue = errors.New("checklist answers must be Sim, Não or Não se aplica")
	// ErrInvalidSignatureImage indicates the signature image payload is not decodable.
	ErrInvalidSignatureImage = errors.New("signature image must be base64 encoded")
	// ErrDateOutsideSemester indicates an evaluation date outside the chosen semester.
	ErrDateOutsideSemester = errors.New("evaluation date is outside the selected semester")
	// ErrUnitCourseMismatch indicates the curricular unit does not belong to the course.
	ErrUnitCourseMismatch = errors.New("curricular unit does not belong to the course")

	// ErrDuplicateSchedule indicates the (teacher, unit, semester, month) slot already exists.
	ErrDuplicateSchedule = errors.New("evaluation already scheduled for this teacher, unit, semester and month")
	// ErrDuplicateNIF indicates another teacher holds the NIF.
	ErrDuplicateNIF = errors.New("a teacher with this nif already exists")
	// ErrUsernameTaken indicates the derived username is held by another account.
	ErrUsernameTaken = errors.New("username already in use")
	// ErrDuplicateSemester indicates the (year, number) term already exists.
	ErrDuplicateSemester = errors.New("semester already exists")
	// ErrAlreadySigned indicates the actor already signed the evaluation.
	ErrAlreadySigned = errors.New("evaluation already signed by this party")
	// ErrEvaluationLocked indicates a completed evaluation can no longer be edited.
	ErrEvaluationLocked = errors.New("completed evaluations cannot be edited")
	// ErrScheduleCompleted indicates a completed slot cannot be removed.
	ErrScheduleCompleted = errors.New("completed scheduled evaluations cannot be deleted")
	// ErrDefaultItemLocked indicates an attempt to rename or delete a default checklist item.
	ErrDefaultItemLocked = errors.New("default checklist items can only be answered")
	// ErrHasLinkedRecords indicates a delete blocked by dependent evaluations or schedules.
	ErrHasLinkedRecords = errors.New("record has linked evaluations and cannot be deleted")

	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("operation not permitted for this user")
	// ErrInvalidLogin indicates unknown user, wrong password or inactive account.
	ErrInvalidLogin = errors.New("invalid username or password")

	// ErrCredentialNotFound indicates an unknown credential token.
	ErrCredentialNotFound = errors.New("credential token not found")
	// ErrCredentialExpired indicates the token lifetime elapsed.
	ErrCredentialExpired = errors.New("credential token expired")
	// ErrCredentialUsed indicates the token was already redeemed or superseded.
	ErrCredentialUsed = errors.New("credential token already used")

	// ErrImportInvalid indicates the uploaded workbook could not be read.
	ErrImportInvalid = errors.New("import file must be a valid xlsx workbook")

	// ErrReportEmpty indicates no evaluations fall in the requested range.
	ErrReportEmpty = errors.New("no evaluations found for the requested period")

	// ErrAttachmentTooLarge indicates the payload exceeded the configured limit.
	ErrAttachmentTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrAttachmentTypeNotAllowed indicates the detected MIME type is not permitted.
	ErrAttachmentTypeNotAllowed = errors.New("file type not allowed")
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isUniqueViolation recognises unique constraint failures from PostgreSQL and SQLite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return containsAny(msg, "duplicate key value", "UNIQUE constraint failed", "SQLSTATE 23505")
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
