package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// CourseRepository persists courses together with their curricular units.
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id uint) (models.Course, error)
	FindByName(ctx context.Context, name, period string) (models.Course, error)
	List(ctx context.Context, search string) ([]models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id uint) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs a repository backed by GORM.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

// Create inserts the course and any curricular units attached to it.
func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return conn(ctx, r.db).Create(course).Error
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	err := conn(ctx, r.db).
		Preload("CurricularUnits", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		First(&course, id).Error
	if err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) FindByName(ctx context.Context, name, period string) (models.Course, error) {
	var course models.Course
	query := conn(ctx, r.db).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
	if period != "" {
		query = query.Where("period = ?", period)
	}
	if err := query.First(&course).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) List(ctx context.Context, search string) ([]models.Course, error) {
	query := conn(ctx, r.db).Model(&models.Course{}).Preload("CurricularUnits")
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(search))+"%")
	}
	var courses []models.Course
	if err := query.Order("name ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	return conn(ctx, r.db).Omit(clause.Associations).Save(course).Error
}

func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, r.db).Delete(&models.Course{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
