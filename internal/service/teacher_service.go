package service

import (
	"context"
	"strings"

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

// TeacherService manages evaluated teachers and their accounts.
type TeacherService interface {
	// Create registers the teacher, creates the account and issues the first credential in one
	// transaction.
	Create(ctx context.Context, actor ActivityActor, req dto.TeacherCreateRequest) (dto.TeacherCreatedResponse, error)
	Get(ctx context.Context, id uint) (dto.TeacherResponse, error)
	List(ctx context.Context, req dto.TeacherListRequest) (dto.TeacherListResponse, error)
	Update(ctx context.Context, id uint, req dto.TeacherUpdateRequest) (dto.TeacherResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
}

type teacherService struct {
	repo        repository.TeacherRepository
	users       repository.UserRepository
	evaluations repository.EvaluationRepository
	schedules   repository.ScheduleRepository
	credentials CredentialService
	tx          repository.Transactor
	notifier    Notifier
	activity    ActivityRecorder
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(
	repo repository.TeacherRepository,
	users repository.UserRepository,
	evaluations repository.EvaluationRepository,
	schedules repository.ScheduleRepository,
	credentials CredentialService,
	tx repository.Transactor,
	notifier Notifier,
	activity ActivityRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) TeacherService {
	return &teacherService{
		repo:        repo,
		users:       users,
		evaluations: evaluations,
		schedules:   schedules,
		credentials: credentials,
		tx:          tx,
		notifier:    notifier,
		activity:    activity,
		validator:   validate,
		logger:      logger.With().Str("component", "teacher_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/acompanha-api/internal/service/teacher"),
	}
}

func (s *teacherService) Create(ctx context.Context, actor ActivityActor, req dto.TeacherCreateRequest) (dto.TeacherCreatedResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TeacherCreatedResponse{}, err
	}
	if !models.ValidNIF(req.NIF) {
		return dto.TeacherCreatedResponse{}, ErrInvalidNIF
	}

	ctx, span := s.tracer.Start(ctx, "teachers.create", trace.WithAttributes(attribute.String("teacher.nif", models.NormalizeNIF(req.NIF))))
	defer span.End()

	teacher := models.Teacher{
		NIF:   models.NormalizeNIF(req.NIF),
		Name:  strings.TrimSpace(req.Name),
		Area:  strings.TrimSpace(req.Area),
		Email: strings.TrimSpace(req.Email),
	}
	var issued IssuedCredential
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.createTeacher(ctx, &teacher); err != nil {
			return err
		}
		var err error
		issued, err = s.credentials.IssueFor(ctx, actor, teacher)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create teacher")
		return dto.TeacherCreatedResponse{}, err
	}

	s.notifier.SendCredentials(ctx, teacher.Email, TeacherSnapshot{
		Name:     teacher.Name,
		NIF:      teacher.NIF,
		Email:    teacher.Email,
		Username: issued.Username,
	}, issued.Password)
	recordActivity(ctx, s.activity, s.logger, actor, ActionTeacherCreated, "teacher", teacher.ID, map[string]interface{}{"nif": teacher.NIF})

	stored, err := s.repo.GetByID(ctx, teacher.ID)
	if err != nil {
		return dto.TeacherCreatedResponse{}, err
	}
	return dto.TeacherCreatedResponse{
		Teacher:    dto.NewTeacherResponse(stored),
		Credential: dto.CredentialResponse{Token: issued.Token, Username: issued.Username, ExpiresAt: issued.ExpiresAt},
	}, nil
}

// createTeacher inserts a teacher after checking the NIF is free.
func (s *teacherService) createTeacher(ctx context.Context, teacher *models.Teacher) error {
	if _, err := s.repo.GetByNIF(ctx, teacher.NIF); err == nil {
		return ErrDuplicateNIF
	} else if !isNotFound(err) {
		return err
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateNIF
		}
		return err
	}
	return nil
}

func (s *teacherService) Get(ctx context.Context, id uint) (dto.TeacherResponse, error) {
	teacher, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return dto.TeacherResponse{}, ErrTeacherNotFound
		}
		return dto.TeacherResponse{}, err
	}
	return dto.NewTeacherResponse(teacher), nil
}

func (s *teacherService) List(ctx context.Context, req dto.TeacherListRequest) (dto.TeacherListResponse, error) {
	teachers, total, err := s.repo.List(ctx, repository.TeacherFilter{
		Search:   strings.TrimSpace(req.Search),
		Area:     strings.TrimSpace(req.Area),
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return dto.TeacherListResponse{}, err
	}
	items := make([]dto.TeacherResponse, 0, len(teachers))
	for _, teacher := range teachers {
		items = append(items, dto.NewTeacherResponse(teacher))
	}
	return dto.TeacherListResponse{Items: items, Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total)}, nil
}

func (s *teacherService) Update(ctx context.Context, id uint, req dto.TeacherUpdateRequest) (dto.TeacherResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TeacherResponse{}, err
	}

	teacher, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return dto.TeacherResponse{}, ErrTeacherNotFound
		}
		return dto.TeacherResponse{}, err
	}
	if req.Name != nil {
		teacher.Name = strings.TrimSpace(*req.Name)
	}
	if req.Area != nil {
		teacher.Area = strings.TrimSpace(*req.Area)
	}
	if req.Email != nil {
		teacher.Email = strings.TrimSpace(*req.Email)
	}
	if err := s.repo.Update(ctx, &teacher); err != nil {
		return dto.TeacherResponse{}, err
	}
	return dto.NewTeacherResponse(teacher), nil
}

func (s *teacherService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		teacher, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrTeacherNotFound
			}
			return err
		}
		evaluations, err := s.evaluations.Count(ctx, repository.EvaluationFilter{TeacherID: &id})
		if err != nil {
			return err
		}
		schedules, err := s.schedules.CountByTeacher(ctx, id)
		if err != nil {
			return err
		}
		if evaluations > 0 || schedules > 0 {
			return ErrHasLinkedRecords
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		if teacher.UserID != nil {
			return s.users.SetActive(ctx, *teacher.UserID, false)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor, ActionTeacherDeleted, "teacher", id, nil)
	return nil
}
