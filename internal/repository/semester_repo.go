package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// SemesterRepository persists academic terms.
type SemesterRepository interface {
	Create(ctx context.Context, semester *models.Semester) error
	GetByID(ctx context.Context, id uint) (models.Semester, error)
	FindByTerm(ctx context.Context, year, number int) (models.Semester, error)
	// FindOrCreate returns the row for the semester's (year, number), inserting it when absent.
	// Concurrent callers converge on a single row.
	FindOrCreate(ctx context.Context, semester models.Semester) (models.Semester, bool, error)
	GetActive(ctx context.Context) (models.Semester, error)
	List(ctx context.Context) ([]models.Semester, error)
	DeactivateAll(ctx context.Context) error
	SetActive(ctx context.Context, id uint) error
}

type semesterRepository struct {
	db *gorm.DB
}

// NewSemesterRepository constructs a repository backed by GORM.
func NewSemesterRepository(db *gorm.DB) SemesterRepository {
	return &semesterRepository{db: db}
}

func (r *semesterRepository) Create(ctx context.Context, semester *models.Semester) error {
	return conn(ctx, r.db).Create(semester).Error
}

func (r *semesterRepository) GetByID(ctx context.Context, id uint) (models.Semester, error) {
	var semester models.Semester
	if err := conn(ctx, r.db).First(&semester, id).Error; err != nil {
		return models.Semester{}, err
	}
	return semester, nil
}

func (r *semesterRepository) FindByTerm(ctx context.Context, year, number int) (models.Semester, error) {
	var semester models.Semester
	if err := conn(ctx, r.db).Where("year = ? AND number = ?", year, number).First(&semester).Error; err != nil {
		return models.Semester{}, err
	}
	return semester, nil
}

func (r *semesterRepository) FindOrCreate(ctx context.Context, semester models.Semester) (models.Semester, bool, error) {
	db := conn(ctx, r.db)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "year"}, {Name: "number"}},
		DoNothing: true,
	}).Create(&semester)
	if result.Error != nil {
		return models.Semester{}, false, result.Error
	}
	if result.RowsAffected == 1 {
		return semester, true, nil
	}

	existing, err := r.FindByTerm(ctx, semester.Year, semester.Number)
	if err != nil {
		return models.Semester{}, false, err
	}
	return existing, false, nil
}

func (r *semesterRepository) GetActive(ctx context.Context) (models.Semester, error) {
	var semester models.Semester
	if err := conn(ctx, r.db).Where("is_active = ?", true).Order("year DESC, number DESC").First(&semester).Error; err != nil {
		return models.Semester{}, err
	}
	return semester, nil
}

func (r *semesterRepository) List(ctx context.Context) ([]models.Semester, error) {
	var semesters []models.Semester
	if err := conn(ctx, r.db).Order("year DESC, number DESC").Find(&semesters).Error; err != nil {
		return nil, err
	}
	return semesters, nil
}

func (r *semesterRepository) DeactivateAll(ctx context.Context) error {
	return conn(ctx, r.db).Model(&models.Semester{}).Where("is_active = ?", true).Update("is_active", false).Error
}

func (r *semesterRepository) SetActive(ctx context.Context, id uint) error {
	result := conn(ctx, r.db).Model(&models.Semester{}).Where("id = ?", id).Update("is_active", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
