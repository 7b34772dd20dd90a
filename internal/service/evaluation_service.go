package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
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

// EvaluationService manages filled evaluation forms and the rows they own.
type EvaluationService interface {
	Create(ctx context.Context, actor ActivityActor, req dto.EvaluationCreateRequest) (dto.EvaluationResponse, error)
	Get(ctx context.Context, actor ActivityActor, id uint) (dto.EvaluationResponse, error)
	List(ctx context.Context, actor ActivityActor, req dto.EvaluationListRequest) (dto.EvaluationListResponse, error)
	Update(ctx context.Context, actor ActivityActor, id uint, req dto.EvaluationUpdateRequest) (dto.EvaluationResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
	AddAttachment(ctx context.Context, actor ActivityActor, id uint, filename string, r io.Reader) (dto.AttachmentResponse, error)
	DeleteAttachment(ctx context.Context, actor ActivityActor, id, attachmentID uint) error
}

// EvaluationDeps groups the collaborators of the evaluation service.
type EvaluationDeps struct {
	Evaluations repository.EvaluationRepository
	Teachers    repository.TeacherRepository
	Evaluators  repository.EvaluatorRepository
	Courses     repository.CourseRepository
	Units       repository.CurricularUnitRepository
	Semesters   SemesterService
	Reconciler  ScheduleReconciler
	Transactor  repository.Transactor
	Uploads     UploadService
	Activity    ActivityRecorder
}

type evaluationService struct {
	deps      EvaluationDeps
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewEvaluationService constructs the evaluation service.
func NewEvaluationService(deps EvaluationDeps, validate *validator.Validate, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		deps:      deps,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/acompanha-api/internal/service/evaluation"),
		now:       time.Now,
	}
}

func (s *evaluationService) Create(ctx context.Context, actor ActivityActor, req dto.EvaluationCreateRequest) (dto.EvaluationResponse, error) {
	if actor.Role == models.RoleTeacher {
		return dto.EvaluationResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.EvaluationResponse{}, err
	}
	if !req.Legacy.Validate() {
		return dto.EvaluationResponse{}, ErrInvalidChecklistValue
	}
	date, err := parseDate(req.EvaluationDate)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "evaluations.create", trace.WithAttributes(
		attribute.Int("evaluation.teacher_id", int(req.TeacherID)),
		attribute.Int("evaluation.course_id", int(req.CourseID)),
		attribute.Int("evaluation.client_items", len(req.ChecklistItems)),
	))
	defer span.End()

	var evaluation models.Evaluation
	var strategy string
	err = s.deps.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		evaluatorID, err := s.resolveEvaluator(ctx, actor, req.EvaluatorID)
		if err != nil {
			return err
		}
		if err := s.checkReferences(ctx, req.TeacherID, req.CourseID, req.CurricularUnitID); err != nil {
			return err
		}
		semesterID, err := s.resolveSemester(ctx, req.SemesterID, date)
		if err != nil {
			return err
		}

		evaluation = models.Evaluation{
			TeacherID:             req.TeacherID,
			CourseID:              req.CourseID,
			EvaluatorID:           evaluatorID,
			CurricularUnitID:      req.CurricularUnitID,
			SemesterID:            &semesterID,
			ScheduledEvaluationID: req.ScheduledEvaluationID,
			EvaluationDate:        date,
			Period:                s.clean(req.Period),
			ClassTime:             s.clean(req.ClassTime),
			Legacy:                req.Legacy,
			PlanningObservations:  s.clean(req.PlanningObservations),
			ClassObservations:     s.clean(req.ClassObservations),
			GeneralObservations:   s.clean(req.GeneralObservations),
		}
		if actor.ID > 0 {
			createdBy := actor.ID
			evaluation.CreatedBy = &createdBy
		}
		if len(req.ChecklistItems) > 0 {
			evaluation.ChecklistItems = s.clientItems(req.ChecklistItems)
		} else {
			evaluation.ChecklistItems = models.CreateDefaultItems(0)
		}

		// The explicit slot id is only a hint for the reconciler; the link is written once the
		// slot has been claimed.
		evaluation.ScheduledEvaluationID = nil
		if err := s.deps.Evaluations.Create(ctx, &evaluation); err != nil {
			return err
		}
		evaluation.ScheduledEvaluationID = req.ScheduledEvaluationID

		strategy, err = s.deps.Reconciler.Fulfil(ctx, &evaluation)
		if err != nil {
			return err
		}
		if strategy == ReconcileNone {
			evaluation.ScheduledEvaluationID = nil
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create evaluation")
		return dto.EvaluationResponse{}, err
	}

	observability.EvaluationsCreated().Inc()
	span.SetAttributes(attribute.String("evaluation.reconcile_strategy", strategy))
	recordActivity(ctx, s.deps.Activity, s.logger, actor, ActionEvaluationCreated, "evaluation", evaluation.ID, map[string]interface{}{
		"teacher_id":    evaluation.TeacherID,
		"schedule_link": strategy,
	})

	stored, err := s.deps.Evaluations.GetByID(ctx, evaluation.ID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	return dto.NewEvaluationResponse(stored), nil
}

func (s *evaluationService) resolveEvaluator(ctx context.Context, actor ActivityActor, requested uint) (uint, error) {
	if actor.Role == models.RoleEvaluator {
		evaluator, err := s.deps.Evaluators.GetByUserID(ctx, actor.ID)
		if err == nil {
			return evaluator.ID, nil
		}
		if !isNotFound(err) {
			return 0, err
		}
	}
	if requested == 0 {
		return 0, ErrEvaluatorNotFound
	}
	evaluator, err := s.deps.Evaluators.GetByID(ctx, requested)
	if err != nil {
		if isNotFound(err) {
			return 0, ErrEvaluatorNotFound
		}
		return 0, err
	}
	return evaluator.ID, nil
}

func (s *evaluationService) checkReferences(ctx context.Context, teacherID, courseID uint, unitID *uint) error {
	if _, err := s.deps.Teachers.GetByID(ctx, teacherID); err != nil {
		if isNotFound(err) {
			return ErrTeacherNotFound
		}
		return err
	}
	if _, err := s.deps.Courses.GetByID(ctx, courseID); err != nil {
		if isNotFound(err) {
			return ErrCourseNotFound
		}
		return err
	}
	if unitID == nil {
		return nil
	}
	unit, err := s.deps.Units.GetByID(ctx, *unitID)
	if err != nil {
		if isNotFound(err) {
			return ErrCurricularUnitNotFound
		}
		return err
	}
	if unit.CourseID != courseID {
		return ErrUnitCourseMismatch
	}
	return nil
}

// resolveSemester uses the requested semester, which must cover the evaluation date, or the
// current one.
func (s *evaluationService) resolveSemester(ctx context.Context, requested *uint, date time.Time) (uint, error) {
	if requested != nil && *requested > 0 {
		semester, err := s.deps.Semesters.Get(ctx, *requested)
		if err != nil {
			return 0, err
		}
		if !semester.Contains(date) {
			return 0, ErrDateOutsideSemester
		}
		return semester.ID, nil
	}
	current, err := s.deps.Semesters.Current(ctx)
	if err != nil {
		return 0, err
	}
	return current.ID, nil
}

// clientItems persists submitted rows verbatim apart from markup stripping.
func (s *evaluationService) clientItems(inputs []dto.ChecklistItemInput) []models.EvaluationChecklistItem {
	items := make([]models.EvaluationChecklistItem, 0, len(inputs))
	for _, input := range inputs {
		items = append(items, models.EvaluationChecklistItem{
			Label:        s.clean(input.Label),
			Category:     input.Category,
			IsDefault:    input.IsDefault,
			Value:        input.Value,
			DisplayOrder: input.DisplayOrder,
		})
	}
	return items
}

func (s *evaluationService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func (s *evaluationService) Get(ctx context.Context, actor ActivityActor, id uint) (dto.EvaluationResponse, error) {
	evaluation, err := s.load(ctx, actor, id)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	return dto.NewEvaluationResponse(evaluation), nil
}

// load fetches an evaluation and enforces that teachers only see their own.
func (s *evaluationService) load(ctx context.Context, actor ActivityActor, id uint) (models.Evaluation, error) {
	evaluation, err := s.deps.Evaluations.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return models.Evaluation{}, ErrEvaluationNotFound
		}
		return models.Evaluation{}, err
	}
	if actor.Role == models.RoleTeacher {
		if evaluation.Teacher == nil || evaluation.Teacher.UserID == nil || *evaluation.Teacher.UserID != actor.ID {
			return models.Evaluation{}, ErrForbidden
		}
	}
	return evaluation, nil
}

func (s *evaluationService) List(ctx context.Context, actor ActivityActor, req dto.EvaluationListRequest) (dto.EvaluationListResponse, error) {
	filter := repository.EvaluationFilter{
		Page:      req.Page,
		PageSize:  req.PageSize,
		Completed: req.Completed,
	}
	if req.TeacherID > 0 {
		filter.TeacherID = &req.TeacherID
	}
	if req.EvaluatorID > 0 {
		filter.EvaluatorID = &req.EvaluatorID
	}
	if req.SemesterID > 0 {
		filter.SemesterID = &req.SemesterID
	}
	if actor.Role == models.RoleTeacher {
		teacher, err := s.deps.Teachers.GetByUserID(ctx, actor.ID)
		if err != nil {
			if isNotFound(err) {
				return dto.EvaluationListResponse{}, ErrForbidden
			}
			return dto.EvaluationListResponse{}, err
		}
		filter.TeacherID = &teacher.ID
	}

	evaluations, total, err := s.deps.Evaluations.List(ctx, filter)
	if err != nil {
		return dto.EvaluationListResponse{}, err
	}
	items := make([]dto.EvaluationResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		items = append(items, dto.NewEvaluationResponse(evaluation))
	}
	return dto.EvaluationListResponse{Items: items, Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total)}, nil
}

func (s *evaluationService) Update(ctx context.Context, actor ActivityActor, id uint, req dto.EvaluationUpdateRequest) (dto.EvaluationResponse, error) {
	if actor.Role == models.RoleTeacher {
		return dto.EvaluationResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.EvaluationResponse{}, err
	}
	if req.Legacy != nil && !req.Legacy.Validate() {
		return dto.EvaluationResponse{}, ErrInvalidChecklistValue
	}

	ctx, span := s.tracer.Start(ctx, "evaluations.update", trace.WithAttributes(attribute.Int("evaluation.id", int(id))))
	defer span.End()

	err := s.deps.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		evaluation, err := s.load(ctx, actor, id)
		if err != nil {
			return err
		}
		if evaluation.IsCompleted {
			return ErrEvaluationLocked
		}
		if err := s.applyDetails(&evaluation, req); err != nil {
			return err
		}
		if err := s.deps.Evaluations.UpdateDetails(ctx, &evaluation); err != nil {
			return err
		}
		return s.applyChecklist(ctx, evaluation, req.ChecklistItems, req.DeleteItemIDs)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update evaluation")
		return dto.EvaluationResponse{}, err
	}

	recordActivity(ctx, s.deps.Activity, s.logger, actor, ActionEvaluationUpdated, "evaluation", id, nil)

	stored, err := s.deps.Evaluations.GetByID(ctx, id)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	return dto.NewEvaluationResponse(stored), nil
}

func (s *evaluationService) applyDetails(evaluation *models.Evaluation, req dto.EvaluationUpdateRequest) error {
	if req.EvaluationDate != nil {
		date, err := parseDate(*req.EvaluationDate)
		if err != nil {
			return err
		}
		evaluation.EvaluationDate = date
	}
	if req.Period != nil {
		evaluation.Period = s.clean(*req.Period)
	}
	if req.ClassTime != nil {
		evaluation.ClassTime = s.clean(*req.ClassTime)
	}
	if req.Legacy != nil {
		evaluation.Legacy = *req.Legacy
	}
	if req.PlanningObservations != nil {
		evaluation.PlanningObservations = s.clean(*req.PlanningObservations)
	}
	if req.ClassObservations != nil {
		evaluation.ClassObservations = s.clean(*req.ClassObservations)
	}
	if req.GeneralObservations != nil {
		evaluation.GeneralObservations = s.clean(*req.GeneralObservations)
	}
	return nil
}

// applyChecklist enforces the edit rules: default rows only take a new answer, custom rows are
// fully editable and deletable, and rows without an id are appended as custom rows.
func (s *evaluationService) applyChecklist(ctx context.Context, evaluation models.Evaluation, inputs []dto.ChecklistItemInput, deleteIDs []uint) error {
	existing := make(map[uint]models.EvaluationChecklistItem, len(evaluation.ChecklistItems))
	for _, item := range evaluation.ChecklistItems {
		existing[item.ID] = item
	}

	for _, id := range deleteIDs {
		item, ok := existing[id]
		if !ok {
			return ErrChecklistItemNotFound
		}
		if item.IsDefault {
			return ErrDefaultItemLocked
		}
	}

	created := make([]models.EvaluationChecklistItem, 0)
	for _, input := range inputs {
		if input.ID == nil {
			created = append(created, models.EvaluationChecklistItem{
				EvaluationID: evaluation.ID,
				Label:        s.clean(input.Label),
				Category:     input.Category,
				Value:        input.Value,
				DisplayOrder: input.DisplayOrder,
			})
			continue
		}

		item, ok := existing[*input.ID]
		if !ok {
			return ErrChecklistItemNotFound
		}
		label := s.clean(input.Label)
		if item.IsDefault {
			if label != item.Label {
				return ErrDefaultItemLocked
			}
			item.Value = input.Value
		} else {
			item.Label = label
			item.Value = input.Value
			item.DisplayOrder = input.DisplayOrder
		}
		if err := s.deps.Evaluations.UpdateChecklistItem(ctx, &item); err != nil {
			return err
		}
	}

	if err := s.deps.Evaluations.DeleteChecklistItems(ctx, evaluation.ID, deleteIDs); err != nil {
		return err
	}
	return s.deps.Evaluations.CreateChecklistItems(ctx, created)
}

func (s *evaluationService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	if actor.Role == models.RoleTeacher {
		return ErrForbidden
	}

	ctx, span := s.tracer.Start(ctx, "evaluations.delete", trace.WithAttributes(attribute.Int("evaluation.id", int(id))))
	defer span.End()

	var removed models.Evaluation
	err := s.deps.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		evaluation, err := s.load(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := s.deps.Reconciler.Release(ctx, evaluation); err != nil {
			return err
		}
		if err := s.deps.Evaluations.Delete(ctx, id); err != nil {
			return err
		}
		removed = evaluation
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete evaluation")
		return err
	}

	for _, attachment := range removed.Attachments {
		s.deps.Uploads.Remove(ctx, attachment.Filename)
	}
	for _, signature := range removed.Signatures {
		s.deps.Uploads.Remove(ctx, signature.SignatureKey)
	}
	recordActivity(ctx, s.deps.Activity, s.logger, actor, ActionEvaluationDeleted, "evaluation", id, map[string]interface{}{
		"teacher_id": removed.TeacherID,
	})
	return nil
}

func (s *evaluationService) AddAttachment(ctx context.Context, actor ActivityActor, id uint, filename string, r io.Reader) (dto.AttachmentResponse, error) {
	if actor.Role == models.RoleTeacher {
		return dto.AttachmentResponse{}, ErrForbidden
	}
	if _, err := s.load(ctx, actor, id); err != nil {
		return dto.AttachmentResponse{}, err
	}

	stored, err := s.deps.Uploads.Store(ctx, fmt.Sprintf("evaluations/%d", id), filename, r)
	if err != nil {
		return dto.AttachmentResponse{}, err
	}

	attachment := models.EvaluationAttachment{
		EvaluationID:     id,
		Filename:         stored.Key,
		OriginalFilename: stored.OriginalFilename,
		FilePath:         stored.URL,
		FileSize:         stored.Size,
		MimeType:         stored.MimeType,
		UploadedAt:       s.now(),
	}
	if err := s.deps.Evaluations.CreateAttachment(ctx, &attachment); err != nil {
		s.deps.Uploads.Remove(ctx, stored.Key)
		return dto.AttachmentResponse{}, err
	}
	return dto.NewAttachmentResponse(attachment), nil
}

func (s *evaluationService) DeleteAttachment(ctx context.Context, actor ActivityActor, id, attachmentID uint) error {
	if actor.Role == models.RoleTeacher {
		return ErrForbidden
	}
	attachment, err := s.deps.Evaluations.GetAttachment(ctx, id, attachmentID)
	if err != nil {
		if isNotFound(err) {
			return ErrAttachmentNotFound
		}
		return err
	}
	if err := s.deps.Evaluations.DeleteAttachment(ctx, attachment.ID); err != nil {
		return err
	}
	s.deps.Uploads.Remove(ctx, attachment.Filename)
	return nil
}
