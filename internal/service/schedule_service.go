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
	"github.com/noah-isme/acompanha-api/internal/observability"
	"github.com/noah-isme/acompanha-api/internal/repository"
)

// ScheduleService plans evaluation slots.
type ScheduleService interface {
	Create(ctx context.Context, actor ActivityActor, req dto.ScheduleCreateRequest) (dto.ScheduleResponse, error)
	Get(ctx context.Context, id uint) (dto.ScheduleResponse, error)
	List(ctx context.Context, req dto.ScheduleListRequest) (dto.ScheduleListResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
}

type scheduleService struct {
	repo      repository.ScheduleRepository
	teachers  repository.TeacherRepository
	units     repository.CurricularUnitRepository
	semesters SemesterService
	tx        repository.Transactor
	notifier  Notifier
	activity  ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(
	repo repository.ScheduleRepository,
	teachers repository.TeacherRepository,
	units repository.CurricularUnitRepository,
	semesters SemesterService,
	tx repository.Transactor,
	notifier Notifier,
	activity ActivityRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) ScheduleService {
	return &scheduleService{
		repo:      repo,
		teachers:  teachers,
		units:     units,
		semesters: semesters,
		tx:        tx,
		notifier:  notifier,
		activity:  activity,
		validator: validate,
		logger:    logger.With().Str("component", "schedule_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/acompanha-api/internal/service/schedule"),
	}
}

func (s *scheduleService) Create(ctx context.Context, actor ActivityActor, req dto.ScheduleCreateRequest) (dto.ScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ScheduleResponse{}, err
	}
	if !models.ValidMonth(req.ScheduledMonth) {
		return dto.ScheduleResponse{}, ErrInvalidMonth
	}
	scheduledDate, err := parseOptionalDate(req.ScheduledDate)
	if err != nil {
		return dto.ScheduleResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "schedules.create", trace.WithAttributes(
		attribute.Int("schedule.teacher_id", int(req.TeacherID)),
		attribute.Int("schedule.unit_id", int(req.CurricularUnitID)),
		attribute.Int("schedule.month", req.ScheduledMonth),
	))
	defer span.End()

	var slot models.ScheduledEvaluation
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.teachers.GetByID(ctx, req.TeacherID); err != nil {
			if isNotFound(err) {
				return ErrTeacherNotFound
			}
			return err
		}
		if _, err := s.units.GetByID(ctx, req.CurricularUnitID); err != nil {
			if isNotFound(err) {
				return ErrCurricularUnitNotFound
			}
			return err
		}

		semesterID, err := s.resolveSemester(ctx, req.SemesterID)
		if err != nil {
			return err
		}

		if _, err := s.repo.FindSlot(ctx, req.TeacherID, req.CurricularUnitID, semesterID, req.ScheduledMonth); err == nil {
			return ErrDuplicateSchedule
		} else if !isNotFound(err) {
			return err
		}

		slot = models.ScheduledEvaluation{
			TeacherID:        req.TeacherID,
			CurricularUnitID: req.CurricularUnitID,
			SemesterID:       semesterID,
			ScheduledMonth:   req.ScheduledMonth,
			ScheduledDate:    scheduledDate,
			Notes:            strings.TrimSpace(req.Notes),
		}
		if actor.ID > 0 {
			createdBy := actor.ID
			slot.CreatedBy = &createdBy
		}
		if err := s.repo.Create(ctx, &slot); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateSchedule
			}
			return err
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create schedule")
		return dto.ScheduleResponse{}, err
	}

	stored, err := s.repo.GetByID(ctx, slot.ID)
	if err != nil {
		return dto.ScheduleResponse{}, err
	}

	s.notifier.SendScheduleNotice(ctx, scheduleSnapshot(stored))
	recordActivity(ctx, s.activity, s.logger, actor, ActionScheduleCreated, "schedule", stored.ID, map[string]interface{}{
		"teacher_id": stored.TeacherID,
		"month":      stored.ScheduledMonth,
	})

	return dto.NewScheduleResponse(stored), nil
}

func (s *scheduleService) resolveSemester(ctx context.Context, requested *uint) (uint, error) {
	if requested != nil && *requested > 0 {
		semester, err := s.semesters.Get(ctx, *requested)
		if err != nil {
			return 0, err
		}
		return semester.ID, nil
	}
	current, err := s.semesters.Current(ctx)
	if err != nil {
		return 0, err
	}
	return current.ID, nil
}

func (s *scheduleService) Get(ctx context.Context, id uint) (dto.ScheduleResponse, error) {
	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return dto.ScheduleResponse{}, ErrScheduleNotFound
		}
		return dto.ScheduleResponse{}, err
	}
	return dto.NewScheduleResponse(slot), nil
}

func (s *scheduleService) List(ctx context.Context, req dto.ScheduleListRequest) (dto.ScheduleListResponse, error) {
	filter := repository.ScheduleFilter{
		Page:      req.Page,
		PageSize:  req.PageSize,
		Completed: req.Completed,
	}
	if req.TeacherID > 0 {
		filter.TeacherID = &req.TeacherID
	}
	if req.SemesterID > 0 {
		filter.SemesterID = &req.SemesterID
	}
	if req.Month != 0 {
		if !models.ValidMonth(req.Month) {
			return dto.ScheduleListResponse{}, ErrInvalidMonth
		}
		filter.Month = &req.Month
	}

	slots, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ScheduleListResponse{}, err
	}

	items := make([]dto.ScheduleResponse, 0, len(slots))
	for _, slot := range slots {
		items = append(items, dto.NewScheduleResponse(slot))
	}
	return dto.ScheduleListResponse{Items: items, Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total)}, nil
}

func (s *scheduleService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		slot, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrScheduleNotFound
			}
			return err
		}
		if slot.IsCompleted {
			return ErrScheduleCompleted
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor, ActionScheduleDeleted, "schedule", id, nil)
	return nil
}

func scheduleSnapshot(slot models.ScheduledEvaluation) ScheduleSnapshot {
	snapshot := ScheduleSnapshot{
		Month: slot.ScheduledMonth,
		Date:  slot.ScheduledDate,
		Notes: slot.Notes,
	}
	if slot.Teacher != nil {
		snapshot.TeacherName = slot.Teacher.Name
		snapshot.TeacherEmail = slot.Teacher.Email
	}
	if slot.CurricularUnit != nil {
		snapshot.UnitName = slot.CurricularUnit.Name
		if slot.CurricularUnit.Course != nil {
			snapshot.CourseName = slot.CurricularUnit.Course.Name
		}
	}
	if slot.Semester != nil {
		snapshot.SemesterName = slot.Semester.Name
	}
	return snapshot
}

// Reconciliation strategies, in priority order.
const (
	ReconcileExplicit = "explicit"
	ReconcileUnit     = "unit"
	ReconcileMonth    = "month"
	ReconcileNone     = "none"
)

// ScheduleReconciler keeps schedule slots consistent with the evaluations that fulfil them.
type ScheduleReconciler interface {
	// Fulfil links the evaluation to the open slot it satisfies and marks that slot completed.
	// It returns the strategy that matched, or ReconcileNone.
	Fulfil(ctx context.Context, evaluation *models.Evaluation) (string, error)
	// Release reopens the slot linked to a removed evaluation.
	Release(ctx context.Context, evaluation models.Evaluation) error
	// Complete re-asserts completion on a linked slot.
	Complete(ctx context.Context, slotID uint) error
}

type scheduleReconciler struct {
	schedules   repository.ScheduleRepository
	evaluations repository.EvaluationRepository
	logger      zerolog.Logger
	now         func() time.Time
}

// NewScheduleReconciler constructs the reconciler.
func NewScheduleReconciler(schedules repository.ScheduleRepository, evaluations repository.EvaluationRepository, logger zerolog.Logger) ScheduleReconciler {
	return &scheduleReconciler{
		schedules:   schedules,
		evaluations: evaluations,
		logger:      logger.With().Str("component", "schedule_reconciler").Logger(),
		now:         time.Now,
	}
}

func (r *scheduleReconciler) Fulfil(ctx context.Context, evaluation *models.Evaluation) (string, error) {
	slot, strategy, err := r.match(ctx, *evaluation)
	if err != nil {
		return ReconcileNone, err
	}
	if strategy == ReconcileNone {
		observability.Reconciliations().WithLabelValues(ReconcileNone).Inc()
		return ReconcileNone, nil
	}

	claimed, err := r.schedules.MarkCompleted(ctx, slot.ID, evaluation.ID, r.now())
	if err != nil {
		return ReconcileNone, fmt.Errorf("complete schedule slot %d: %w", slot.ID, err)
	}
	if !claimed {
		r.logger.Warn().Uint("schedule_id", slot.ID).Uint("evaluation_id", evaluation.ID).Msg("schedule slot completed concurrently")
		observability.Reconciliations().WithLabelValues(ReconcileNone).Inc()
		return ReconcileNone, nil
	}
	if err := r.evaluations.SetSchedule(ctx, evaluation.ID, slot.ID); err != nil {
		return ReconcileNone, fmt.Errorf("link evaluation %d to schedule slot %d: %w", evaluation.ID, slot.ID, err)
	}

	slotID := slot.ID
	evaluation.ScheduledEvaluationID = &slotID
	observability.Reconciliations().WithLabelValues(strategy).Inc()
	r.logger.Debug().Uint("schedule_id", slot.ID).Uint("evaluation_id", evaluation.ID).Str("strategy", strategy).Msg("schedule slot fulfilled")
	return strategy, nil
}

func (r *scheduleReconciler) match(ctx context.Context, evaluation models.Evaluation) (models.ScheduledEvaluation, string, error) {
	if evaluation.ScheduledEvaluationID != nil {
		slot, err := r.schedules.GetByID(ctx, *evaluation.ScheduledEvaluationID)
		switch {
		case err == nil && slot.TeacherID != evaluation.TeacherID:
			return models.ScheduledEvaluation{}, ReconcileNone, ErrScheduleNotFound
		case err == nil && !slot.IsCompleted:
			return slot, ReconcileExplicit, nil
		case err == nil && slot.EvaluationID != nil && *slot.EvaluationID == evaluation.ID:
			return models.ScheduledEvaluation{}, ReconcileNone, nil
		case err != nil && isNotFound(err):
			return models.ScheduledEvaluation{}, ReconcileNone, ErrScheduleNotFound
		case err != nil:
			return models.ScheduledEvaluation{}, ReconcileNone, err
		}
	}

	if evaluation.CurricularUnitID != nil && evaluation.SemesterID != nil {
		slot, err := r.schedules.FindOpenByUnit(ctx, evaluation.TeacherID, *evaluation.CurricularUnitID, *evaluation.SemesterID)
		if err == nil {
			return slot, ReconcileUnit, nil
		}
		if !isNotFound(err) {
			return models.ScheduledEvaluation{}, ReconcileNone, err
		}
	}

	date := evaluation.EvaluationDate
	slot, err := r.schedules.FindOpenByMonth(ctx, evaluation.TeacherID, int(date.Month()), date.Year())
	if err == nil {
		return slot, ReconcileMonth, nil
	}
	if !isNotFound(err) {
		return models.ScheduledEvaluation{}, ReconcileNone, err
	}
	return models.ScheduledEvaluation{}, ReconcileNone, nil
}

func (r *scheduleReconciler) Release(ctx context.Context, evaluation models.Evaluation) error {
	if evaluation.ScheduledEvaluationID == nil {
		return nil
	}
	if err := r.schedules.Reset(ctx, *evaluation.ScheduledEvaluationID); err != nil {
		return fmt.Errorf("reset schedule slot %d: %w", *evaluation.ScheduledEvaluationID, err)
	}
	r.logger.Debug().Uint("schedule_id", *evaluation.ScheduledEvaluationID).Uint("evaluation_id", evaluation.ID).Msg("schedule slot reopened")
	return nil
}

func (r *scheduleReconciler) Complete(ctx context.Context, slotID uint) error {
	if err := r.schedules.Complete(ctx, slotID, r.now()); err != nil {
		return fmt.Errorf("complete schedule slot %d: %w", slotID, err)
	}
	return nil
}
