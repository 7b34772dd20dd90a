package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// DashboardCounts aggregates catalogue and workflow totals.
type DashboardCounts struct {
	Teachers             int64
	Courses              int64
	Evaluations          int64
	CompletedEvaluations int64
	PendingSchedules     int64
}

// DashboardRepository supplies data for the coordination dashboard.
type DashboardRepository interface {
	Counts(ctx context.Context, semesterID *uint) (DashboardCounts, error)
	ListScoredEvaluations(ctx context.Context, semesterID *uint) ([]models.Evaluation, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository constructs the dashboard repository.
func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) Counts(ctx context.Context, semesterID *uint) (DashboardCounts, error) {
	db := conn(ctx, r.db)
	var counts DashboardCounts

	if err := db.Model(&models.Teacher{}).Count(&counts.Teachers).Error; err != nil {
		return DashboardCounts{}, err
	}
	if err := db.Model(&models.Course{}).Count(&counts.Courses).Error; err != nil {
		return DashboardCounts{}, err
	}

	evaluations := db.Model(&models.Evaluation{})
	if semesterID != nil {
		evaluations = evaluations.Where("semester_id = ?", *semesterID)
	}
	if err := evaluations.Session(&gorm.Session{}).Count(&counts.Evaluations).Error; err != nil {
		return DashboardCounts{}, err
	}
	if err := evaluations.Where("is_completed = ?", true).Count(&counts.CompletedEvaluations).Error; err != nil {
		return DashboardCounts{}, err
	}

	if semesterID != nil {
		err := db.Model(&models.ScheduledEvaluation{}).
			Where("semester_id = ? AND is_completed = ?", *semesterID, false).
			Count(&counts.PendingSchedules).Error
		if err != nil {
			return DashboardCounts{}, err
		}
	}
	return counts, nil
}

func (r *dashboardRepository) ListScoredEvaluations(ctx context.Context, semesterID *uint) ([]models.Evaluation, error) {
	query := conn(ctx, r.db).Preload("ChecklistItems")
	if semesterID != nil {
		query = query.Where("semester_id = ?", *semesterID)
	}
	var evaluations []models.Evaluation
	if err := query.Find(&evaluations).Error; err != nil {
		return nil, err
	}
	return evaluations, nil
}
