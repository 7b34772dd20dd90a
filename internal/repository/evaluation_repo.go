package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// ErrUnknownSignatureType is returned when a signing column cannot be derived from the type.
var ErrUnknownSignatureType = errors.New("unknown signature type")

// EvaluationFilter narrows evaluation listings.
type EvaluationFilter struct {
	TeacherID        *uint
	EvaluatorID      *uint
	CourseID         *uint
	CurricularUnitID *uint
	SemesterID       *uint
	Completed        *bool
	From             *time.Time
	To               *time.Time
	Page             int
	PageSize         int
}

// EvaluationRepository persists evaluations and the rows they own.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
	List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, int64, error)
	Count(ctx context.Context, filter EvaluationFilter) (int64, error)
	UpdateDetails(ctx context.Context, evaluation *models.Evaluation) error
	Delete(ctx context.Context, id uint) error

	CreateChecklistItems(ctx context.Context, items []models.EvaluationChecklistItem) error
	UpdateChecklistItem(ctx context.Context, item *models.EvaluationChecklistItem) error
	DeleteChecklistItems(ctx context.Context, evaluationID uint, ids []uint) error

	CreateAttachment(ctx context.Context, attachment *models.EvaluationAttachment) error
	GetAttachment(ctx context.Context, evaluationID, id uint) (models.EvaluationAttachment, error)
	DeleteAttachment(ctx context.Context, id uint) error

	// MarkSigned flips the signed flag for the given signature type only if it is still unset.
	MarkSigned(ctx context.Context, id uint, signatureType string, at time.Time) (bool, error)
	CreateSignature(ctx context.Context, signature *models.DigitalSignature) error
	ListSignatures(ctx context.Context, evaluationID uint) ([]models.DigitalSignature, error)
	// MarkCompleted completes an evaluation once both parties have signed.
	MarkCompleted(ctx context.Context, id uint, at time.Time) (bool, error)
	SetSchedule(ctx context.Context, id uint, scheduleID uint) error
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository constructs a repository backed by GORM.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	items := evaluation.ChecklistItems
	evaluation.ChecklistItems = nil
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(evaluation).Error; err != nil {
		evaluation.ChecklistItems = items
		return err
	}
	for i := range items {
		items[i].EvaluationID = evaluation.ID
	}
	if err := r.CreateChecklistItems(ctx, items); err != nil {
		return err
	}
	evaluation.ChecklistItems = items
	return nil
}

// checklistOrder lists planning rows before classroom rows, each by display order.
const checklistOrder = "CASE category WHEN 'planning' THEN 0 ELSE 1 END, display_order ASC, id ASC"

func (r *evaluationRepository) preloaded(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Preload("Teacher").
		Preload("Course").
		Preload("Evaluator").
		Preload("CurricularUnit").
		Preload("Semester").
		Preload("ChecklistItems", func(db *gorm.DB) *gorm.DB {
			return db.Order(checklistOrder)
		})
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	err := r.preloaded(ctx).
		Preload("Attachments").
		Preload("Signatures").
		First(&evaluation, id).Error
	if err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

func applyEvaluationFilter(query *gorm.DB, filter EvaluationFilter) *gorm.DB {
	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}
	if filter.EvaluatorID != nil {
		query = query.Where("evaluator_id = ?", *filter.EvaluatorID)
	}
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.CurricularUnitID != nil {
		query = query.Where("curricular_unit_id = ?", *filter.CurricularUnitID)
	}
	if filter.SemesterID != nil {
		query = query.Where("semester_id = ?", *filter.SemesterID)
	}
	if filter.Completed != nil {
		query = query.Where("is_completed = ?", *filter.Completed)
	}
	if filter.From != nil {
		query = query.Where("evaluation_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("evaluation_date <= ?", *filter.To)
	}
	return query
}

func (r *evaluationRepository) List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, int64, error) {
	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	query := applyEvaluationFilter(r.preloaded(ctx).Model(&models.Evaluation{}), filter)
	var evaluations []models.Evaluation
	if err := paginate(query, filter.Page, filter.PageSize).Order("evaluation_date DESC, id DESC").Find(&evaluations).Error; err != nil {
		return nil, 0, err
	}
	return evaluations, total, nil
}

func (r *evaluationRepository) Count(ctx context.Context, filter EvaluationFilter) (int64, error) {
	var total int64
	err := applyEvaluationFilter(conn(ctx, r.db).Model(&models.Evaluation{}), filter).Count(&total).Error
	return total, err
}

// UpdateDetails persists the editable columns, leaving signature and completion state untouched.
func (r *evaluationRepository) UpdateDetails(ctx context.Context, evaluation *models.Evaluation) error {
	return conn(ctx, r.db).
		Omit(clause.Associations,
			"teacher_signed", "teacher_signature_date",
			"evaluator_signed", "evaluator_signature_date",
			"is_completed", "completed_at",
			"scheduled_evaluation_id", "created_by", "created_at").
		Save(evaluation).Error
}

func (r *evaluationRepository) Delete(ctx context.Context, id uint) error {
	db := conn(ctx, r.db)
	for _, child := range []interface{}{
		&models.EvaluationChecklistItem{},
		&models.EvaluationAttachment{},
		&models.DigitalSignature{},
	} {
		if err := db.Where("evaluation_id = ?", id).Delete(child).Error; err != nil {
			return err
		}
	}
	result := db.Delete(&models.Evaluation{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *evaluationRepository) CreateChecklistItems(ctx context.Context, items []models.EvaluationChecklistItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn(ctx, r.db).Create(&items).Error
}

func (r *evaluationRepository) UpdateChecklistItem(ctx context.Context, item *models.EvaluationChecklistItem) error {
	return conn(ctx, r.db).
		Model(&models.EvaluationChecklistItem{}).
		Where("id = ? AND evaluation_id = ?", item.ID, item.EvaluationID).
		Select("label", "value", "display_order").
		Updates(item).Error
}

func (r *evaluationRepository) DeleteChecklistItems(ctx context.Context, evaluationID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return conn(ctx, r.db).
		Where("evaluation_id = ? AND id IN ? AND is_default = ?", evaluationID, ids, false).
		Delete(&models.EvaluationChecklistItem{}).Error
}

func (r *evaluationRepository) CreateAttachment(ctx context.Context, attachment *models.EvaluationAttachment) error {
	return conn(ctx, r.db).Create(attachment).Error
}

func (r *evaluationRepository) GetAttachment(ctx context.Context, evaluationID, id uint) (models.EvaluationAttachment, error) {
	var attachment models.EvaluationAttachment
	if err := conn(ctx, r.db).Where("id = ? AND evaluation_id = ?", id, evaluationID).First(&attachment).Error; err != nil {
		return models.EvaluationAttachment{}, err
	}
	return attachment, nil
}

func (r *evaluationRepository) DeleteAttachment(ctx context.Context, id uint) error {
	return conn(ctx, r.db).Delete(&models.EvaluationAttachment{}, id).Error
}

func (r *evaluationRepository) MarkSigned(ctx context.Context, id uint, signatureType string, at time.Time) (bool, error) {
	var flag, date string
	switch signatureType {
	case models.SignatureTypeTeacher:
		flag, date = "teacher_signed", "teacher_signature_date"
	case models.SignatureTypeEvaluator:
		flag, date = "evaluator_signed", "evaluator_signature_date"
	default:
		return false, ErrUnknownSignatureType
	}

	result := conn(ctx, r.db).
		Model(&models.Evaluation{}).
		Where("id = ?", id).
		Where(date + " IS NULL").
		Updates(map[string]interface{}{flag: true, date: at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *evaluationRepository) CreateSignature(ctx context.Context, signature *models.DigitalSignature) error {
	return conn(ctx, r.db).Create(signature).Error
}

func (r *evaluationRepository) ListSignatures(ctx context.Context, evaluationID uint) ([]models.DigitalSignature, error) {
	var signatures []models.DigitalSignature
	if err := conn(ctx, r.db).Where("evaluation_id = ?", evaluationID).Order("signed_at ASC").Find(&signatures).Error; err != nil {
		return nil, err
	}
	return signatures, nil
}

func (r *evaluationRepository) MarkCompleted(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.Evaluation{}).
		Where("id = ? AND teacher_signed = ? AND evaluator_signed = ? AND is_completed = ?", id, true, true, false).
		Updates(map[string]interface{}{"is_completed": true, "completed_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *evaluationRepository) SetSchedule(ctx context.Context, id uint, scheduleID uint) error {
	return conn(ctx, r.db).
		Model(&models.Evaluation{}).
		Where("id = ?", id).
		Update("scheduled_evaluation_id", scheduleID).Error
}
