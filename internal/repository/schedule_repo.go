package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// ScheduleFilter narrows schedule slot listings.
type ScheduleFilter struct {
	TeacherID  *uint
	SemesterID *uint
	Month      *int
	Completed  *bool
	Page       int
	PageSize   int
}

// ScheduleRepository persists planned evaluation slots.
type ScheduleRepository interface {
	Create(ctx context.Context, slot *models.ScheduledEvaluation) error
	GetByID(ctx context.Context, id uint) (models.ScheduledEvaluation, error)
	List(ctx context.Context, filter ScheduleFilter) ([]models.ScheduledEvaluation, int64, error)
	Delete(ctx context.Context, id uint) error
	FindSlot(ctx context.Context, teacherID, unitID, semesterID uint, month int) (models.ScheduledEvaluation, error)
	FindOpenByUnit(ctx context.Context, teacherID, unitID, semesterID uint) (models.ScheduledEvaluation, error)
	FindOpenByMonth(ctx context.Context, teacherID uint, month, year int) (models.ScheduledEvaluation, error)
	// MarkCompleted links the slot to an evaluation only while the slot is still open.
	MarkCompleted(ctx context.Context, id, evaluationID uint, at time.Time) (bool, error)
	// Complete re-asserts completion of a slot already linked to an evaluation.
	Complete(ctx context.Context, id uint, at time.Time) error
	Reset(ctx context.Context, id uint) error
	CountPending(ctx context.Context, semesterID uint) (int64, error)
	CountByUnit(ctx context.Context, unitID uint) (int64, error)
	CountByTeacher(ctx context.Context, teacherID uint) (int64, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository constructs a repository backed by GORM.
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, slot *models.ScheduledEvaluation) error {
	return conn(ctx, r.db).Omit(clause.Associations).Create(slot).Error
}

func (r *scheduleRepository) GetByID(ctx context.Context, id uint) (models.ScheduledEvaluation, error) {
	var slot models.ScheduledEvaluation
	err := conn(ctx, r.db).
		Preload("Teacher").
		Preload("CurricularUnit.Course").
		Preload("Semester").
		First(&slot, id).Error
	if err != nil {
		return models.ScheduledEvaluation{}, err
	}
	return slot, nil
}

func (r *scheduleRepository) List(ctx context.Context, filter ScheduleFilter) ([]models.ScheduledEvaluation, int64, error) {
	query := conn(ctx, r.db).Model(&models.ScheduledEvaluation{})
	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}
	if filter.SemesterID != nil {
		query = query.Where("semester_id = ?", *filter.SemesterID)
	}
	if filter.Month != nil {
		query = query.Where("scheduled_month = ?", *filter.Month)
	}
	if filter.Completed != nil {
		query = query.Where("is_completed = ?", *filter.Completed)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var slots []models.ScheduledEvaluation
	err := paginate(query, filter.Page, filter.PageSize).
		Preload("Teacher").
		Preload("CurricularUnit.Course").
		Preload("Semester").
		Order("scheduled_month ASC, id ASC").
		Find(&slots).Error
	if err != nil {
		return nil, 0, err
	}
	return slots, total, nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, r.db).Delete(&models.ScheduledEvaluation{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *scheduleRepository) FindSlot(ctx context.Context, teacherID, unitID, semesterID uint, month int) (models.ScheduledEvaluation, error) {
	var slot models.ScheduledEvaluation
	err := conn(ctx, r.db).
		Where("teacher_id = ? AND curricular_unit_id = ? AND semester_id = ? AND scheduled_month = ?", teacherID, unitID, semesterID, month).
		First(&slot).Error
	if err != nil {
		return models.ScheduledEvaluation{}, err
	}
	return slot, nil
}

func (r *scheduleRepository) FindOpenByUnit(ctx context.Context, teacherID, unitID, semesterID uint) (models.ScheduledEvaluation, error) {
	var slot models.ScheduledEvaluation
	err := conn(ctx, r.db).
		Where("teacher_id = ? AND curricular_unit_id = ? AND semester_id = ? AND is_completed = ?", teacherID, unitID, semesterID, false).
		Order("scheduled_month ASC, id ASC").
		First(&slot).Error
	if err != nil {
		return models.ScheduledEvaluation{}, err
	}
	return slot, nil
}

func (r *scheduleRepository) FindOpenByMonth(ctx context.Context, teacherID uint, month, year int) (models.ScheduledEvaluation, error) {
	var slot models.ScheduledEvaluation
	err := conn(ctx, r.db).
		Joins("JOIN semesters ON semesters.id = scheduled_evaluations.semester_id").
		Where("scheduled_evaluations.teacher_id = ?", teacherID).
		Where("scheduled_evaluations.scheduled_month = ?", month).
		Where("semesters.year = ?", year).
		Where("scheduled_evaluations.is_completed = ?", false).
		Order("scheduled_evaluations.id ASC").
		First(&slot).Error
	if err != nil {
		return models.ScheduledEvaluation{}, err
	}
	return slot, nil
}

func (r *scheduleRepository) MarkCompleted(ctx context.Context, id, evaluationID uint, at time.Time) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.ScheduledEvaluation{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{
			"is_completed":  true,
			"completed_at":  at,
			"evaluation_id": evaluationID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *scheduleRepository) Complete(ctx context.Context, id uint, at time.Time) error {
	return conn(ctx, r.db).
		Model(&models.ScheduledEvaluation{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{"is_completed": true, "completed_at": at}).Error
}

func (r *scheduleRepository) Reset(ctx context.Context, id uint) error {
	return conn(ctx, r.db).
		Model(&models.ScheduledEvaluation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_completed":  false,
			"completed_at":  nil,
			"evaluation_id": nil,
		}).Error
}

func (r *scheduleRepository) CountPending(ctx context.Context, semesterID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.ScheduledEvaluation{}).
		Where("semester_id = ? AND is_completed = ?", semesterID, false).
		Count(&count).Error
	return count, err
}

func (r *scheduleRepository) CountByUnit(ctx context.Context, unitID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.ScheduledEvaluation{}).Where("curricular_unit_id = ?", unitID).Count(&count).Error
	return count, err
}

func (r *scheduleRepository) CountByTeacher(ctx context.Context, teacherID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.ScheduledEvaluation{}).Where("teacher_id = ?", teacherID).Count(&count).Error
	return count, err
}
