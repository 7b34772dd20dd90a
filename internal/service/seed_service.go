package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/acompanha-api/internal/models"
	"github.com/noah-isme/acompanha-api/internal/repository"
)

// ErrSeedDisabled indicates the bootstrap account is not configured.
var ErrSeedDisabled = errors.New("seeding is disabled")

// SeedService prepares the data a fresh installation needs before anyone can log in.
type SeedService interface {
	// EnsureAdmin creates the bootstrap administrator when no account holds the username.
	// Existing accounts are never modified.
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
	// EnsureCurrentSemester resolves the running term so dashboards have a semester to report on.
	EnsureCurrentSemester(ctx context.Context) (models.Semester, error)
}

type seedService struct {
	users     repository.UserRepository
	semesters SemesterService
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(users repository.UserRepository, semesters SemesterService, logger zerolog.Logger) SeedService {
	return &seedService{
		users:     users,
		semesters: semesters,
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return false, ErrSeedDisabled
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return false, nil
	} else if !isNotFound(err) {
		return false, fmt.Errorf("lookup admin %q: %w", username, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Name:         "Administrador",
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, &admin); err != nil {
		return false, fmt.Errorf("create admin %q: %w", username, err)
	}

	s.logger.Info().Uint("user_id", admin.ID).Str("username", username).Msg("bootstrap admin created")
	return true, nil
}

func (s *seedService) EnsureCurrentSemester(ctx context.Context) (models.Semester, error) {
	semester, err := s.semesters.Current(ctx)
	if err != nil {
		return models.Semester{}, err
	}
	s.logger.Info().Uint("semester_id", semester.ID).Str("name", semester.Name).Msg("current semester ready")
	return semester, nil
}
