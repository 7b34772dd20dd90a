package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/models"
	"github.com/noah-isme/acompanha-api/internal/repository"
)

// SemesterService resolves and manages academic terms.
type SemesterService interface {
	// Current returns the term containing now, creating it as active when absent. Other active
	// terms are left untouched; only Activate enforces a single active term.
	Current(ctx context.Context) (models.Semester, error)
	Get(ctx context.Context, id uint) (models.Semester, error)
	List(ctx context.Context) ([]dto.SemesterResponse, error)
	Create(ctx context.Context, actor ActivityActor, req dto.SemesterCreateRequest) (dto.SemesterResponse, error)
	Activate(ctx context.Context, actor ActivityActor, id uint) (dto.SemesterResponse, error)
}

type semesterService struct {
	repo      repository.SemesterRepository
	tx        repository.Transactor
	activity  ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewSemesterService constructs the semester service.
func NewSemesterService(repo repository.SemesterRepository, tx repository.Transactor, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) SemesterService {
	return &semesterService{
		repo:      repo,
		tx:        tx,
		activity:  activity,
		validator: validate,
		logger:    logger.With().Str("component", "semester_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/acompanha-api/internal/service/semester"),
		now:       time.Now,
	}
}

func (s *semesterService) Current(ctx context.Context) (models.Semester, error) {
	term := models.TermFor(s.now())
	ctx, span := s.tracer.Start(ctx, "semesters.current", trace.WithAttributes(
		attribute.Int("semester.year", term.Year),
		attribute.Int("semester.number", term.Number),
	))
	defer span.End()

	semester, created, err := s.repo.FindOrCreate(ctx, term.Semester(true))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve semester")
		return models.Semester{}, fmt.Errorf("resolve current semester: %w", err)
	}
	if created {
		s.logger.Info().Uint("semester_id", semester.ID).Str("name", semester.Name).Msg("semester created for current term")
	}
	return semester, nil
}

func (s *semesterService) Get(ctx context.Context, id uint) (models.Semester, error) {
	semester, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return models.Semester{}, ErrSemesterNotFound
		}
		return models.Semester{}, err
	}
	return semester, nil
}

func (s *semesterService) List(ctx context.Context) ([]dto.SemesterResponse, error) {
	semesters, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.SemesterResponse, 0, len(semesters))
	for _, semester := range semesters {
		responses = append(responses, dto.NewSemesterResponse(semester))
	}
	return responses, nil
}

func (s *semesterService) Create(ctx context.Context, actor ActivityActor, req dto.SemesterCreateRequest) (dto.SemesterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SemesterResponse{}, err
	}

	term := models.TermForNumber(req.Year, req.Number)
	start, end := term.StartDate, term.EndDate
	var err error
	if req.StartDate != "" {
		if start, err = parseDate(req.StartDate); err != nil {
			return dto.SemesterResponse{}, err
		}
	}
	if req.EndDate != "" {
		if end, err = parseDate(req.EndDate); err != nil {
			return dto.SemesterResponse{}, err
		}
	}
	if start.After(end) {
		return dto.SemesterResponse{}, ErrInvalidDateRange
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = term.Name()
	}
	semester := models.Semester{
		Name:      name,
		Year:      req.Year,
		Number:    req.Number,
		StartDate: start,
		EndDate:   end,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.FindByTerm(ctx, req.Year, req.Number); err == nil {
			return ErrDuplicateSemester
		} else if !isNotFound(err) {
			return err
		}
		if req.Activate {
			if err := s.repo.DeactivateAll(ctx); err != nil {
				return err
			}
			semester.IsActive = true
		}
		if err := s.repo.Create(ctx, &semester); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateSemester
			}
			return err
		}
		return nil
	})
	if err != nil {
		return dto.SemesterResponse{}, err
	}

	if semester.IsActive {
		recordActivity(ctx, s.activity, s.logger, actor, ActionSemesterActivated, "semester", semester.ID, map[string]interface{}{"name": semester.Name})
	}
	return dto.NewSemesterResponse(semester), nil
}

func (s *semesterService) Activate(ctx context.Context, actor ActivityActor, id uint) (dto.SemesterResponse, error) {
	ctx, span := s.tracer.Start(ctx, "semesters.activate", trace.WithAttributes(attribute.Int("semester.id", int(id))))
	defer span.End()

	var semester models.Semester
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.DeactivateAll(ctx); err != nil {
			return err
		}
		if err := s.repo.SetActive(ctx, id); err != nil {
			if isNotFound(err) {
				return ErrSemesterNotFound
			}
			return err
		}
		loaded, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		semester = loaded
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "activate semester")
		return dto.SemesterResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, ActionSemesterActivated, "semester", semester.ID, map[string]interface{}{"name": semester.Name})
	return dto.NewSemesterResponse(semester), nil
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(dto.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return parsed, nil
}

func parseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
