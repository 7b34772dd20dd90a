package service

import (
	"context"
	"encoding/base64"
	"errors"
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
	"github.com/noah-isme/acompanha-api/internal/observability"
	"github.com/noah-isme/acompanha-api/internal/repository"
	"github.com/noah-isme/acompanha-api/pkg/pdf"
)

// SignatureService records teacher and evaluator signatures and derives completion.
type SignatureService interface {
	Sign(ctx context.Context, actor ActivityActor, evaluationID uint, req dto.SignRequest, clientIP string) (dto.EvaluationResponse, error)
	List(ctx context.Context, actor ActivityActor, evaluationID uint) ([]dto.SignatureResponse, error)
}

// SignatureDeps groups the collaborators of the signature service.
type SignatureDeps struct {
	Evaluations repository.EvaluationRepository
	Reconciler  ScheduleReconciler
	Transactor  repository.Transactor
	Uploads     UploadService
	Notifier    Notifier
	Activity    ActivityRecorder
}

type signatureService struct {
	deps      SignatureDeps
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewSignatureService constructs the signature service.
func NewSignatureService(deps SignatureDeps, validate *validator.Validate, logger zerolog.Logger) SignatureService {
	return &signatureService{
		deps:      deps,
		validator: validate,
		logger:    logger.With().Str("component", "signature_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/acompanha-api/internal/service/signature"),
		now:       time.Now,
	}
}

// signatureTypeFor maps the actor role to the signature it may record. Admins sign on behalf of
// the coordination, i.e. as evaluator.
func signatureTypeFor(role string) (string, error) {
	switch role {
	case models.RoleTeacher:
		return models.SignatureTypeTeacher, nil
	case models.RoleEvaluator, models.RoleAdmin:
		return models.SignatureTypeEvaluator, nil
	default:
		return "", ErrForbidden
	}
}

type signOutcome struct {
	completed bool
}

func (s *signatureService) Sign(ctx context.Context, actor ActivityActor, evaluationID uint, req dto.SignRequest, clientIP string) (dto.EvaluationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EvaluationResponse{}, err
	}
	signatureType, err := signatureTypeFor(actor.Role)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	image, err := decodeSignatureImage(req.SignatureImage)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "signatures.sign", trace.WithAttributes(
		attribute.Int("evaluation.id", int(evaluationID)),
		attribute.String("signature.type", signatureType),
	))
	defer span.End()

	stored, err := s.storeImage(ctx, evaluationID, signatureType, image)
	if err != nil {
		observability.Signatures().WithLabelValues(signatureType, "rejected").Inc()
		return dto.EvaluationResponse{}, err
	}

	var outcome signOutcome
	err = s.deps.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		outcome, err = s.sign(ctx, actor, evaluationID, signatureType, stored, clientIP)
		return err
	})
	if err != nil {
		s.deps.Uploads.Remove(ctx, stored.Key)
		outcomeLabel := "failed"
		if errors.Is(err, ErrAlreadySigned) {
			outcomeLabel = "duplicate"
		}
		observability.Signatures().WithLabelValues(signatureType, outcomeLabel).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign evaluation")
		return dto.EvaluationResponse{}, err
	}
	observability.Signatures().WithLabelValues(signatureType, "recorded").Inc()

	evaluation, err := s.deps.Evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	recordActivity(ctx, s.deps.Activity, s.logger, actor, ActionEvaluationSigned, "evaluation", evaluationID, map[string]interface{}{
		"signature_type": signatureType,
	})
	if signatureType == models.SignatureTypeTeacher && evaluation.Evaluator != nil {
		s.deps.Notifier.SendSignatureNotice(ctx, evaluation.Evaluator.Email, summarize(evaluation))
	}
	if outcome.completed {
		recordActivity(ctx, s.deps.Activity, s.logger, actor, ActionEvaluationComplete, "evaluation", evaluationID, nil)
		s.notifyCompletion(ctx, evaluation)
	}

	return dto.NewEvaluationResponse(evaluation), nil
}

func (s *signatureService) sign(ctx context.Context, actor ActivityActor, evaluationID uint, signatureType string, stored StoredFile, clientIP string) (signOutcome, error) {
	evaluation, err := s.deps.Evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		if isNotFound(err) {
			return signOutcome{}, ErrEvaluationNotFound
		}
		return signOutcome{}, err
	}
	if err := s.authorize(actor, evaluation); err != nil {
		return signOutcome{}, err
	}

	at := s.now()
	flipped, err := s.deps.Evaluations.MarkSigned(ctx, evaluationID, signatureType, at)
	if err != nil {
		return signOutcome{}, err
	}
	if !flipped {
		return signOutcome{}, ErrAlreadySigned
	}

	signature := models.DigitalSignature{
		EvaluationID:  evaluationID,
		SignatureType: signatureType,
		UserID:        actor.ID,
		SignatureURL:  stored.URL,
		SignatureKey:  stored.Key,
		IPAddress:     clientIP,
		SignedAt:      at,
	}
	if err := s.deps.Evaluations.CreateSignature(ctx, &signature); err != nil {
		if isUniqueViolation(err) {
			return signOutcome{}, ErrAlreadySigned
		}
		return signOutcome{}, err
	}

	if signatureType == models.SignatureTypeTeacher && evaluation.ScheduledEvaluationID == nil {
		if _, err := s.deps.Reconciler.Fulfil(ctx, &evaluation); err != nil && !errors.Is(err, ErrScheduleNotFound) {
			return signOutcome{}, err
		}
	}

	// The loaded copy may predate a concurrent counter-signature, so completion is decided by the
	// guarded update against the committed row.
	completed, err := s.deps.Evaluations.MarkCompleted(ctx, evaluationID, at)
	if err != nil {
		return signOutcome{}, err
	}
	if !completed {
		return signOutcome{}, nil
	}

	current, err := s.deps.Evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		return signOutcome{}, err
	}
	if current.ScheduledEvaluationID != nil {
		if err := s.deps.Reconciler.Complete(ctx, *current.ScheduledEvaluationID); err != nil {
			return signOutcome{}, err
		}
	}
	return signOutcome{completed: true}, nil
}

// authorize limits teachers to their own evaluations and evaluators to the ones they conducted.
func (s *signatureService) authorize(actor ActivityActor, evaluation models.Evaluation) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleTeacher:
		if evaluation.Teacher != nil && evaluation.Teacher.UserID != nil && *evaluation.Teacher.UserID == actor.ID {
			return nil
		}
	case models.RoleEvaluator:
		if evaluation.Evaluator != nil && evaluation.Evaluator.UserID != nil && *evaluation.Evaluator.UserID == actor.ID {
			return nil
		}
	}
	return ErrForbidden
}

// storeImage uploads the optional signature image. Storage failures are logged and the signature
// proceeds without an image; undecodable or non-image payloads are rejected.
func (s *signatureService) storeImage(ctx context.Context, evaluationID uint, signatureType string, image []byte) (StoredFile, error) {
	if len(image) == 0 {
		return StoredFile{}, nil
	}
	stored, err := s.deps.Uploads.StoreImage(ctx, fmt.Sprintf("signatures/%d/%s", evaluationID, signatureType), image)
	if err != nil {
		if errors.Is(err, ErrInvalidSignatureImage) || errors.Is(err, ErrAttachmentTooLarge) {
			return StoredFile{}, err
		}
		s.logger.Warn().Err(err).Uint("evaluation_id", evaluationID).Msg("signature image not stored")
		return StoredFile{}, nil
	}
	return stored, nil
}

func (s *signatureService) notifyCompletion(ctx context.Context, evaluation models.Evaluation) {
	if evaluation.Teacher == nil {
		return
	}
	summary := summarize(evaluation)
	report, err := pdf.RenderEvaluation(evaluationReport(evaluation, s.now()))
	if err != nil {
		s.logger.Warn().Err(err).Uint("evaluation_id", evaluation.ID).Msg("evaluation report not attached")
	} else {
		summary.Report = report
	}
	s.deps.Notifier.SendEvaluationNotice(ctx, evaluation.Teacher.Email, summary)
}

func (s *signatureService) List(ctx context.Context, actor ActivityActor, evaluationID uint) ([]dto.SignatureResponse, error) {
	evaluation, err := s.deps.Evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEvaluationNotFound
		}
		return nil, err
	}
	if actor.Role == models.RoleTeacher {
		if err := s.authorize(actor, evaluation); err != nil {
			return nil, err
		}
	}

	signatures, err := s.deps.Evaluations.ListSignatures(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.SignatureResponse, 0, len(signatures))
	for _, signature := range signatures {
		responses = append(responses, dto.NewSignatureResponse(signature))
	}
	return responses, nil
}

// decodeSignatureImage accepts raw base64 or a data URL.
func decodeSignatureImage(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if strings.HasPrefix(value, "data:") {
		idx := strings.Index(value, ",")
		if idx < 0 {
			return nil, ErrInvalidSignatureImage
		}
		value = value[idx+1:]
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, ErrInvalidSignatureImage
	}
	return decoded, nil
}

func summarize(evaluation models.Evaluation) EvaluationSummary {
	summary := EvaluationSummary{
		ID:                  evaluation.ID,
		Period:              evaluation.Period,
		Date:                evaluation.EvaluationDate,
		PlanningPercentage:  evaluation.PlanningPercentage(),
		ClassPercentage:     evaluation.ClassPercentage(),
		GeneralObservations: evaluation.GeneralObservations,
	}
	if evaluation.Teacher != nil {
		summary.TeacherName = evaluation.Teacher.Name
	}
	if evaluation.Course != nil {
		summary.CourseName = evaluation.Course.Name
	}
	if evaluation.Evaluator != nil {
		summary.EvaluatorName = evaluation.Evaluator.Name
	}
	return summary
}
