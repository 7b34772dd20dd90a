package dto

import (
	"time"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// TeacherCreateRequest registers a teacher and provisions their account.
type TeacherCreateRequest struct {
	NIF   string `json:"nif" validate:"required"`
	Name  string `json:"name" validate:"required,max=100"`
	Area  string `json:"area" validate:"required,max=100"`
	Email string `json:"email" validate:"omitempty,email,max=120"`
}

// TeacherUpdateRequest captures partial teacher updates. The NIF is immutable.
type TeacherUpdateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Area  *string `json:"area" validate:"omitempty,min=1,max=100"`
	Email *string `json:"email" validate:"omitempty,email,max=120"`
}

// TeacherListRequest filters teacher listings.
type TeacherListRequest struct {
	Page     int
	PageSize int
	Search   string
	Area     string
}

// TeacherResponse serializes a teacher.
type TeacherResponse struct {
	ID        uint      `json:"id"`
	NIF       string    `json:"nif"`
	Name      string    `json:"name"`
	Area      string    `json:"area"`
	Email     string    `json:"email"`
	UserID    *uint     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTeacherResponse converts a teacher model.
func NewTeacherResponse(teacher models.Teacher) TeacherResponse {
	return TeacherResponse{
		ID:        teacher.ID,
		NIF:       teacher.NIF,
		Name:      teacher.Name,
		Area:      teacher.Area,
		Email:     teacher.Email,
		UserID:    teacher.UserID,
		Username:  teacher.Username(),
		CreatedAt: teacher.CreatedAt,
		UpdatedAt: teacher.UpdatedAt,
	}
}

// TeacherListResponse wraps paginated teachers.
type TeacherListResponse struct {
	Items      []TeacherResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// TeacherCreatedResponse pairs the new teacher with their first credential token.
type TeacherCreatedResponse struct {
	Teacher    TeacherResponse    `json:"teacher"`
	Credential CredentialResponse `json:"credential"`
}

// EvaluatorRequest creates or replaces an evaluator.
type EvaluatorRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Role   string `json:"role" validate:"required,max=50"`
	Email  string `json:"email" validate:"omitempty,email,max=120"`
	UserID *uint  `json:"user_id"`
}

// EvaluatorResponse serializes an evaluator.
type EvaluatorResponse struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	UserID *uint  `json:"user_id"`
}

// NewEvaluatorResponse converts an evaluator model.
func NewEvaluatorResponse(evaluator models.Evaluator) EvaluatorResponse {
	return EvaluatorResponse{
		ID:     evaluator.ID,
		Name:   evaluator.Name,
		Role:   evaluator.Role,
		Email:  evaluator.Email,
		UserID: evaluator.UserID,
	}
}

// CurricularUnitRequest creates or replaces a curricular unit.
type CurricularUnitRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Code        string `json:"code" validate:"omitempty,max=20"`
	CourseID    uint   `json:"course_id" validate:"required"`
	Workload    *int   `json:"workload" validate:"omitempty,min=0"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	IsActive    *bool  `json:"is_active"`
}

// CurricularUnitResponse serializes a curricular unit.
type CurricularUnitResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	CourseID    uint   `json:"course_id"`
	CourseName  string `json:"course_name,omitempty"`
	Workload    *int   `json:"workload"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// NewCurricularUnitResponse converts a unit model.
func NewCurricularUnitResponse(unit models.CurricularUnit) CurricularUnitResponse {
	resp := CurricularUnitResponse{
		ID:          unit.ID,
		Name:        unit.Name,
		Code:        unit.Code,
		CourseID:    unit.CourseID,
		Workload:    unit.Workload,
		Description: unit.Description,
		IsActive:    unit.IsActive,
	}
	if unit.Course != nil {
		resp.CourseName = unit.Course.Name
	}
	return resp
}

// CourseRequest creates or replaces a course.
type CourseRequest struct {
	Name                string `json:"name" validate:"required,max=100"`
	Period              string `json:"period" validate:"required,max=20"`
	CurriculumComponent string `json:"curriculum_component" validate:"omitempty,max=100"`
	ClassCode           string `json:"class_code" validate:"omitempty,max=20"`
}

// CourseResponse serializes a course with its units.
type CourseResponse struct {
	ID                  uint                     `json:"id"`
	Name                string                   `json:"name"`
	Period              string                   `json:"period"`
	CurriculumComponent string                   `json:"curriculum_component"`
	ClassCode           string                   `json:"class_code"`
	CurricularUnits     []CurricularUnitResponse `json:"curricular_units"`
}

// NewCourseResponse converts a course model.
func NewCourseResponse(course models.Course) CourseResponse {
	units := make([]CurricularUnitResponse, 0, len(course.CurricularUnits))
	for _, unit := range course.CurricularUnits {
		units = append(units, NewCurricularUnitResponse(unit))
	}
	return CourseResponse{
		ID:                  course.ID,
		Name:                course.Name,
		Period:              course.Period,
		CurriculumComponent: course.CurriculumComponent,
		ClassCode:           course.ClassCode,
		CurricularUnits:     units,
	}
}

// SemesterCreateRequest registers an explicit semester.
type SemesterCreateRequest struct {
	Year      int    `json:"year" validate:"required,min=2000,max=2100"`
	Number    int    `json:"number" validate:"required,oneof=1 2"`
	Name      string `json:"name" validate:"omitempty,max=50"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Activate  bool   `json:"activate"`
}

// SemesterResponse serializes a semester.
type SemesterResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Year      int    `json:"year"`
	Number    int    `json:"number"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsActive  bool   `json:"is_active"`
}

// NewSemesterResponse converts a semester model.
func NewSemesterResponse(semester models.Semester) SemesterResponse {
	return SemesterResponse{
		ID:        semester.ID,
		Name:      semester.Name,
		Year:      semester.Year,
		Number:    semester.Number,
		StartDate: semester.StartDate.Format(DateLayout),
		EndDate:   semester.EndDate.Format(DateLayout),
		IsActive:  semester.IsActive,
	}
}
