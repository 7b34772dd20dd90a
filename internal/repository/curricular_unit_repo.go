package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// CurricularUnitFilter narrows unit listings.
type CurricularUnitFilter struct {
	CourseID   *uint
	ActiveOnly bool
	Search     string
}

// CurricularUnitRepository persists curricular units.
type CurricularUnitRepository interface {
	Create(ctx context.Context, unit *models.CurricularUnit) error
	GetByID(ctx context.Context, id uint) (models.CurricularUnit, error)
	FindByName(ctx context.Context, courseID uint, name string) (models.CurricularUnit, error)
	List(ctx context.Context, filter CurricularUnitFilter) ([]models.CurricularUnit, error)
	Update(ctx context.Context, unit *models.CurricularUnit) error
	Delete(ctx context.Context, id uint) error
	CountByCourse(ctx context.Context, courseID uint) (int64, error)
}

type curricularUnitRepository struct {
	db *gorm.DB
}

// NewCurricularUnitRepository constructs a repository backed by GORM.
func NewCurricularUnitRepository(db *gorm.DB) CurricularUnitRepository {
	return &curricularUnitRepository{db: db}
}

func (r *curricularUnitRepository) Create(ctx context.Context, unit *models.CurricularUnit) error {
	return conn(ctx, r.db).Omit(clause.Associations).Create(unit).Error
}

func (r *curricularUnitRepository) GetByID(ctx context.Context, id uint) (models.CurricularUnit, error) {
	var unit models.CurricularUnit
	if err := conn(ctx, r.db).Preload("Course").First(&unit, id).Error; err != nil {
		return models.CurricularUnit{}, err
	}
	return unit, nil
}

func (r *curricularUnitRepository) FindByName(ctx context.Context, courseID uint, name string) (models.CurricularUnit, error) {
	var unit models.CurricularUnit
	err := conn(ctx, r.db).
		Where("course_id = ? AND LOWER(name) = ?", courseID, strings.ToLower(strings.TrimSpace(name))).
		First(&unit).Error
	if err != nil {
		return models.CurricularUnit{}, err
	}
	return unit, nil
}

func (r *curricularUnitRepository) List(ctx context.Context, filter CurricularUnitFilter) ([]models.CurricularUnit, error) {
	query := conn(ctx, r.db).Model(&models.CurricularUnit{}).Preload("Course")
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(filter.Search))+"%")
	}
	var units []models.CurricularUnit
	if err := query.Order("name ASC").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

func (r *curricularUnitRepository) Update(ctx context.Context, unit *models.CurricularUnit) error {
	return conn(ctx, r.db).Omit(clause.Associations).Save(unit).Error
}

func (r *curricularUnitRepository) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, r.db).Delete(&models.CurricularUnit{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *curricularUnitRepository) CountByCourse(ctx context.Context, courseID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.CurricularUnit{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}
