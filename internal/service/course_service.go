package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/models"
	"github.com/noah-isme/acompanha-api/internal/repository"
)

// CourseService manages courses and their curricular units.
type CourseService interface {
	CreateCourse(ctx context.Context, req dto.CourseRequest) (dto.CourseResponse, error)
	GetCourse(ctx context.Context, id uint) (dto.CourseResponse, error)
	ListCourses(ctx context.Context, search string) ([]dto.CourseResponse, error)
	UpdateCourse(ctx context.Context, id uint, req dto.CourseRequest) (dto.CourseResponse, error)
	DeleteCourse(ctx context.Context, id uint) error

	CreateUnit(ctx context.Context, req dto.CurricularUnitRequest) (dto.CurricularUnitResponse, error)
	GetUnit(ctx context.Context, id uint) (dto.CurricularUnitResponse, error)
	ListUnits(ctx context.Context, courseID *uint, activeOnly bool, search string) ([]dto.CurricularUnitResponse, error)
	UpdateUnit(ctx context.Context, id uint, req dto.CurricularUnitRequest) (dto.CurricularUnitResponse, error)
	DeleteUnit(ctx context.Context, id uint) error
}

type courseService struct {
	courses     repository.CourseRepository
	units       repository.CurricularUnitRepository
	evaluations repository.EvaluationRepository
	schedules   repository.ScheduleRepository
	tx          repository.Transactor
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewCourseService constructs the course catalogue service.
func NewCourseService(
	courses repository.CourseRepository,
	units repository.CurricularUnitRepository,
	evaluations repository.EvaluationRepository,
	schedules repository.ScheduleRepository,
	tx repository.Transactor,
	validate *validator.Validate,
	logger zerolog.Logger,
) CourseService {
	return &courseService{
		courses:     courses,
		units:       units,
		evaluations: evaluations,
		schedules:   schedules,
		tx:          tx,
		validator:   validate,
		logger:      logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) CreateCourse(ctx context.Context, req dto.CourseRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CourseResponse{}, err
	}
	course := models.Course{}
	applyCourse(&course, req)
	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}
	return dto.NewCourseResponse(course), nil
}

func (s *courseService) GetCourse(ctx context.Context, id uint) (dto.CourseResponse, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}
	return dto.NewCourseResponse(course), nil
}

func (s *courseService) ListCourses(ctx context.Context, search string) ([]dto.CourseResponse, error) {
	courses, err := s.courses.List(ctx, search)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CourseResponse, 0, len(courses))
	for _, course := range courses {
		items = append(items, dto.NewCourseResponse(course))
	}
	return items, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, id uint, req dto.CourseRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CourseResponse{}, err
	}
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}
	applyCourse(&course, req)
	if err := s.courses.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}
	return dto.NewCourseResponse(course), nil
}

// DeleteCourse removes a course and its units unless any evaluation references them.
func (s *courseService) DeleteCourse(ctx context.Context, id uint) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		course, err := s.courses.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrCourseNotFound
			}
			return err
		}
		linked, err := s.evaluations.Count(ctx, repository.EvaluationFilter{CourseID: &id})
		if err != nil {
			return err
		}
		if linked > 0 {
			return ErrHasLinkedRecords
		}
		for _, unit := range course.CurricularUnits {
			if err := s.deleteUnit(ctx, unit.ID); err != nil {
				return err
			}
		}
		return s.courses.Delete(ctx, id)
	})
}

func (s *courseService) CreateUnit(ctx context.Context, req dto.CurricularUnitRequest) (dto.CurricularUnitResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CurricularUnitResponse{}, err
	}
	if _, err := s.courses.GetByID(ctx, req.CourseID); err != nil {
		if isNotFound(err) {
			return dto.CurricularUnitResponse{}, ErrCourseNotFound
		}
		return dto.CurricularUnitResponse{}, err
	}

	unit := models.CurricularUnit{IsActive: true}
	applyUnit(&unit, req)
	if err := s.units.Create(ctx, &unit); err != nil {
		return dto.CurricularUnitResponse{}, err
	}
	return s.GetUnit(ctx, unit.ID)
}

func (s *courseService) GetUnit(ctx context.Context, id uint) (dto.CurricularUnitResponse, error) {
	unit, err := s.units.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return dto.CurricularUnitResponse{}, ErrCurricularUnitNotFound
		}
		return dto.CurricularUnitResponse{}, err
	}
	return dto.NewCurricularUnitResponse(unit), nil
}

func (s *courseService) ListUnits(ctx context.Context, courseID *uint, activeOnly bool, search string) ([]dto.CurricularUnitResponse, error) {
	units, err := s.units.List(ctx, repository.CurricularUnitFilter{
		CourseID:   courseID,
		ActiveOnly: activeOnly,
		Search:     strings.TrimSpace(search),
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.CurricularUnitResponse, 0, len(units))
	for _, unit := range units {
		items = append(items, dto.NewCurricularUnitResponse(unit))
	}
	return items, nil
}

func (s *courseService) UpdateUnit(ctx context.Context, id uint, req dto.CurricularUnitRequest) (dto.CurricularUnitResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CurricularUnitResponse{}, err
	}
	unit, err := s.units.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return dto.CurricularUnitResponse{}, ErrCurricularUnitNotFound
		}
		return dto.CurricularUnitResponse{}, err
	}
	if req.CourseID != unit.CourseID {
		if _, err := s.courses.GetByID(ctx, req.CourseID); err != nil {
			if isNotFound(err) {
				return dto.CurricularUnitResponse{}, ErrCourseNotFound
			}
			return dto.CurricularUnitResponse{}, err
		}
	}
	applyUnit(&unit, req)
	unit.Course = nil
	if err := s.units.Update(ctx, &unit); err != nil {
		return dto.CurricularUnitResponse{}, err
	}
	return s.GetUnit(ctx, id)
}

func (s *courseService) DeleteUnit(ctx context.Context, id uint) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.units.GetByID(ctx, id); err != nil {
			if isNotFound(err) {
				return ErrCurricularUnitNotFound
			}
			return err
		}
		return s.deleteUnit(ctx, id)
	})
}

func (s *courseService) deleteUnit(ctx context.Context, id uint) error {
	evaluations, err := s.evaluations.Count(ctx, repository.EvaluationFilter{CurricularUnitID: &id})
	if err != nil {
		return err
	}
	schedules, err := s.schedules.CountByUnit(ctx, id)
	if err != nil {
		return err
	}
	if evaluations > 0 || schedules > 0 {
		return ErrHasLinkedRecords
	}
	return s.units.Delete(ctx, id)
}

func applyCourse(course *models.Course, req dto.CourseRequest) {
	course.Name = strings.TrimSpace(req.Name)
	course.Period = strings.TrimSpace(req.Period)
	course.CurriculumComponent = strings.TrimSpace(req.CurriculumComponent)
	course.ClassCode = strings.TrimSpace(req.ClassCode)
}

func applyUnit(unit *models.CurricularUnit, req dto.CurricularUnitRequest) {
	unit.Name = strings.TrimSpace(req.Name)
	unit.Code = strings.TrimSpace(req.Code)
	unit.CourseID = req.CourseID
	unit.Workload = req.Workload
	unit.Description = strings.TrimSpace(req.Description)
	if req.IsActive != nil {
		unit.IsActive = *req.IsActive
	}
}
