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

// EvaluatorService manages coordinators who conduct evaluations.
type EvaluatorService interface {
	Create(ctx context.Context, req dto.EvaluatorRequest) (dto.EvaluatorResponse, error)
	Get(ctx context.Context, id uint) (dto.EvaluatorResponse, error)
	List(ctx context.Context) ([]dto.EvaluatorResponse, error)
	Update(ctx context.Context, id uint, req dto.EvaluatorRequest) (dto.EvaluatorResponse, error)
	Delete(ctx context.Context, id uint) error
}

type evaluatorService struct {
	repo        repository.EvaluatorRepository
	users       repository.UserRepository
	evaluations repository.EvaluationRepository
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewEvaluatorService constructs the evaluator service.
func NewEvaluatorService(
	repo repository.EvaluatorRepository,
	users repository.UserRepository,
	evaluations repository.EvaluationRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) EvaluatorService {
	return &evaluatorService{
		repo:        repo,
		users:       users,
		evaluations: evaluations,
		validator:   validate,
		logger:      logger.With().Str("component", "evaluator_service").Logger(),
	}
}

func (s *evaluatorService) Create(ctx context.Context, req dto.EvaluatorRequest) (dto.EvaluatorResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EvaluatorResponse{}, err
	}
	if err := s.checkUser(ctx, req.UserID); err != nil {
		return dto.EvaluatorResponse{}, err
	}

	evaluator := models.Evaluator{
		Name:   strings.TrimSpace(req.Name),
		Role:   strings.TrimSpace(req.Role),
		Email:  strings.TrimSpace(req.Email),
		UserID: req.UserID,
	}
	if err := s.repo.Create(ctx, &evaluator); err != nil {
		return dto.EvaluatorResponse{}, err
	}
	return dto.NewEvaluatorResponse(evaluator), nil
}

func (s *evaluatorService) Get(ctx context.Context, id uint) (dto.EvaluatorResponse, error) {
	evaluator, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return dto.EvaluatorResponse{}, ErrEvaluatorNotFound
		}
		return dto.EvaluatorResponse{}, err
	}
	return dto.NewEvaluatorResponse(evaluator), nil
}

func (s *evaluatorService) List(ctx context.Context) ([]dto.EvaluatorResponse, error) {
	evaluators, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.EvaluatorResponse, 0, len(evaluators))
	for _, evaluator := range evaluators {
		items = append(items, dto.NewEvaluatorResponse(evaluator))
	}
	return items, nil
}

func (s *evaluatorService) Update(ctx context.Context, id uint, req dto.EvaluatorRequest) (dto.EvaluatorResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EvaluatorResponse{}, err
	}
	evaluator, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return dto.EvaluatorResponse{}, ErrEvaluatorNotFound
		}
		return dto.EvaluatorResponse{}, err
	}
	if err := s.checkUser(ctx, req.UserID); err != nil {
		return dto.EvaluatorResponse{}, err
	}

	evaluator.Name = strings.TrimSpace(req.Name)
	evaluator.Role = strings.TrimSpace(req.Role)
	evaluator.Email = strings.TrimSpace(req.Email)
	evaluator.UserID = req.UserID
	if err := s.repo.Update(ctx, &evaluator); err != nil {
		return dto.EvaluatorResponse{}, err
	}
	return dto.NewEvaluatorResponse(evaluator), nil
}

func (s *evaluatorService) Delete(ctx context.Context, id uint) error {
	linked, err := s.evaluations.Count(ctx, repository.EvaluationFilter{EvaluatorID: &id})
	if err != nil {
		return err
	}
	if linked > 0 {
		return ErrHasLinkedRecords
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrEvaluatorNotFound
		}
		return err
	}
	return nil
}

// checkUser ensures a linked account exists.
func (s *evaluatorService) checkUser(ctx context.Context, userID *uint) error {
	if userID == nil {
		return nil
	}
	if _, err := s.users.GetByID(ctx, *userID); err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
