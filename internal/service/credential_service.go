package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/models"
	"github.com/noah-isme/acompanha-api/internal/observability"
	"github.com/noah-isme/acompanha-api/internal/repository"
	"github.com/noah-isme/acompanha-api/pkg/pdf"
	"github.com/noah-isme/acompanha-api/pkg/secret"
)

const (
	// DefaultCredentialTTL bounds how long a temporary credential can be redeemed.
	DefaultCredentialTTL = time.Hour

	passwordLength  = 8
	passwordCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	tokenBytes      = 32
)

// IssuedCredential is the result of (re)generating a teacher password.
type IssuedCredential struct {
	Token     string
	Username  string
	Password  string
	ExpiresAt time.Time
}

// CredentialService issues and redeems single-use temporary credentials.
type CredentialService interface {
	// Issue regenerates the teacher's password, invalidating every unused token first.
	Issue(ctx context.Context, actor ActivityActor, teacherID uint) (dto.CredentialResponse, error)
	// IssueFor is Issue for a loaded teacher. It joins the caller's transaction when present.
	IssueFor(ctx context.Context, actor ActivityActor, teacher models.Teacher) (IssuedCredential, error)
	// Status reports token validity without consuming it.
	Status(ctx context.Context, token string) (dto.CredentialStatusResponse, error)
	// Redeem returns the password once and consumes the token.
	Redeem(ctx context.Context, token string) (dto.RedeemedCredential, error)
	// RedeemPDF renders the credentials sheet and consumes the token.
	RedeemPDF(ctx context.Context, token string) ([]byte, error)
}

type credentialService struct {
	repo     repository.CredentialRepository
	teachers repository.TeacherRepository
	users    repository.UserRepository
	tx       repository.Transactor
	box      *secret.Box
	notifier Notifier
	activity ActivityRecorder
	ttl      time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewCredentialService constructs the credential service.
func NewCredentialService(
	repo repository.CredentialRepository,
	teachers repository.TeacherRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	box *secret.Box,
	notifier Notifier,
	activity ActivityRecorder,
	ttl time.Duration,
	logger zerolog.Logger,
) CredentialService {
	if ttl <= 0 {
		ttl = DefaultCredentialTTL
	}
	return &credentialService{
		repo:     repo,
		teachers: teachers,
		users:    users,
		tx:       tx,
		box:      box,
		notifier: notifier,
		activity: activity,
		ttl:      ttl,
		logger:   logger.With().Str("component", "credential_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/acompanha-api/internal/service/credential"),
		now:      time.Now,
	}
}

func (s *credentialService) Issue(ctx context.Context, actor ActivityActor, teacherID uint) (dto.CredentialResponse, error) {
	teacher, err := s.teachers.GetByID(ctx, teacherID)
	if err != nil {
		if isNotFound(err) {
			return dto.CredentialResponse{}, ErrTeacherNotFound
		}
		return dto.CredentialResponse{}, err
	}

	issued, err := s.IssueFor(ctx, actor, teacher)
	if err != nil {
		return dto.CredentialResponse{}, err
	}

	s.notifier.SendCredentials(ctx, teacher.Email, TeacherSnapshot{
		Name:     teacher.Name,
		NIF:      teacher.NIF,
		Email:    teacher.Email,
		Username: issued.Username,
	}, issued.Password)

	return dto.CredentialResponse{Token: issued.Token, Username: issued.Username, ExpiresAt: issued.ExpiresAt}, nil
}

func (s *credentialService) IssueFor(ctx context.Context, actor ActivityActor, teacher models.Teacher) (IssuedCredential, error) {
	ctx, span := s.tracer.Start(ctx, "credentials.issue", trace.WithAttributes(attribute.Int("teacher.id", int(teacher.ID))))
	defer span.End()

	password, err := generatePassword()
	if err != nil {
		return IssuedCredential{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return IssuedCredential{}, fmt.Errorf("hash password: %w", err)
	}
	sealed, err := s.box.Seal(password)
	if err != nil {
		return IssuedCredential{}, err
	}
	token, err := generateToken()
	if err != nil {
		return IssuedCredential{}, err
	}

	now := s.now()
	issued := IssuedCredential{Token: token, Password: password, ExpiresAt: now.Add(s.ttl)}
	var invalidated int64
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Concurrent issues for one teacher serialize here, so at most one token stays unused.
		locked, err := s.teachers.LockByID(ctx, teacher.ID)
		if err != nil {
			if isNotFound(err) {
				return ErrTeacherNotFound
			}
			return err
		}
		teacher = locked

		user, err := s.ensureUser(ctx, actor, &teacher, string(hash))
		if err != nil {
			return err
		}
		issued.Username = user.Username

		invalidated, err = s.repo.InvalidateUnused(ctx, teacher.ID, now)
		if err != nil {
			return err
		}

		credential := models.TemporaryCredential{
			Token:             token,
			TeacherID:         teacher.ID,
			UserID:            user.ID,
			EncryptedPassword: sealed,
			ExpiresAt:         issued.ExpiresAt,
		}
		if actor.ID > 0 {
			createdBy := actor.ID
			credential.CreatedBy = &createdBy
		}
		return s.repo.Create(ctx, &credential)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue credentials")
		return IssuedCredential{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, ActionCredentialsIssued, "teacher", teacher.ID, map[string]interface{}{
		"invalidated": invalidated,
	})
	return issued, nil
}

// ensureUser sets the new password on the teacher's account, creating the account when the
// teacher has none.
func (s *credentialService) ensureUser(ctx context.Context, actor ActivityActor, teacher *models.Teacher, hash string) (models.User, error) {
	if teacher.UserID != nil {
		user, err := s.users.GetByID(ctx, *teacher.UserID)
		if err == nil {
			if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
				return models.User{}, err
			}
			return user, nil
		}
		if !isNotFound(err) {
			return models.User{}, err
		}
	}

	username := teacher.Username()
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return models.User{}, ErrUsernameTaken
	} else if !isNotFound(err) {
		return models.User{}, err
	}

	user := models.User{
		Username:     username,
		PasswordHash: hash,
		Name:         teacher.Name,
		Role:         models.RoleTeacher,
		Email:        teacher.Email,
		IsActive:     true,
	}
	if actor.ID > 0 {
		createdBy := actor.ID
		user.CreatedBy = &createdBy
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, err
	}

	teacher.UserID = &user.ID
	if err := s.teachers.Update(ctx, teacher); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *credentialService) Status(ctx context.Context, token string) (dto.CredentialStatusResponse, error) {
	credential, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return dto.CredentialStatusResponse{}, ErrCredentialNotFound
		}
		return dto.CredentialStatusResponse{}, err
	}

	now := s.now()
	resp := dto.CredentialStatusResponse{
		Valid:     credential.IsValid(now),
		Expired:   credential.IsExpired(now),
		Used:      credential.IsUsed,
		ExpiresAt: credential.ExpiresAt,
	}
	if credential.Teacher != nil {
		resp.TeacherName = credential.Teacher.Name
	}
	return resp, nil
}

func (s *credentialService) Redeem(ctx context.Context, token string) (dto.RedeemedCredential, error) {
	var redeemed dto.RedeemedCredential
	_, err := s.redeem(ctx, token, func(cred dto.RedeemedCredential) ([]byte, error) {
		redeemed = cred
		return nil, nil
	})
	return redeemed, err
}

func (s *credentialService) RedeemPDF(ctx context.Context, token string) ([]byte, error) {
	return s.redeem(ctx, token, func(cred dto.RedeemedCredential) ([]byte, error) {
		return pdf.RenderCredentials(pdf.CredentialsSheet{
			Name:        cred.TeacherName,
			NIF:         cred.NIF,
			Username:    cred.Username,
			Password:    cred.Password,
			GeneratedAt: s.now(),
		})
	})
}

// redeem validates the token, recovers the password and renders the output before consuming the
// token, so a rendering failure leaves the token redeemable.
func (s *credentialService) redeem(ctx context.Context, token string, render func(dto.RedeemedCredential) ([]byte, error)) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "credentials.redeem")
	defer span.End()

	output, outcome, err := s.consume(ctx, token, render)
	observability.Redemptions().WithLabelValues(outcome).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	return output, nil
}

func (s *credentialService) consume(ctx context.Context, token string, render func(dto.RedeemedCredential) ([]byte, error)) ([]byte, string, error) {
	credential, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return nil, "not_found", ErrCredentialNotFound
		}
		return nil, "error", err
	}
	now := s.now()
	if credential.IsUsed {
		return nil, "used", ErrCredentialUsed
	}
	if credential.IsExpired(now) {
		return nil, "expired", ErrCredentialExpired
	}

	password, err := s.box.Open(credential.EncryptedPassword)
	if err != nil {
		return nil, "error", fmt.Errorf("open credential %d: %w", credential.ID, err)
	}
	redeemed := dto.RedeemedCredential{Password: password}
	if credential.Teacher != nil {
		redeemed.TeacherName = credential.Teacher.Name
		redeemed.NIF = credential.Teacher.NIF
	}
	if credential.User != nil {
		redeemed.Username = credential.User.Username
	}

	output, err := render(redeemed)
	if err != nil {
		return nil, "error", err
	}

	consumed, err := s.repo.MarkUsed(ctx, credential.ID, now)
	if err != nil {
		return nil, "error", err
	}
	if !consumed {
		return nil, "used", ErrCredentialUsed
	}

	actor := ActivityActor{ID: credential.UserID, Role: models.RoleTeacher}
	recordActivity(ctx, s.activity, s.logger, actor, ActionCredentialRedeemed, "teacher", credential.TeacherID, nil)
	return output, "redeemed", nil
}

func generatePassword() (string, error) {
	limit := big.NewInt(int64(len(passwordCharset)))
	buf := make([]byte, passwordLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		buf[i] = passwordCharset[n.Int64()]
	}
	return string(buf), nil
}

func generateToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
