package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// TeacherFilter narrows teacher listings.
type TeacherFilter struct {
	Search   string
	Area     string
	Page     int
	PageSize int
}

// TeacherRepository persists evaluated teachers.
type TeacherRepository interface {
	Create(ctx context.Context, teacher *models.Teacher) error
	GetByID(ctx context.Context, id uint) (models.Teacher, error)
	// LockByID reloads the teacher holding a row lock until the surrounding transaction ends.
	LockByID(ctx context.Context, id uint) (models.Teacher, error)
	GetByNIF(ctx context.Context, nif string) (models.Teacher, error)
	GetByUserID(ctx context.Context, userID uint) (models.Teacher, error)
	List(ctx context.Context, filter TeacherFilter) ([]models.Teacher, int64, error)
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id uint) error
}

type teacherRepository struct {
	db *gorm.DB
}

// NewTeacherRepository constructs a repository backed by GORM.
func NewTeacherRepository(db *gorm.DB) TeacherRepository {
	return &teacherRepository{db: db}
}

func (r *teacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	return conn(ctx, r.db).Omit("User").Create(teacher).Error
}

func (r *teacherRepository) GetByID(ctx context.Context, id uint) (models.Teacher, error) {
	var teacher models.Teacher
	if err := conn(ctx, r.db).Preload("User").First(&teacher, id).Error; err != nil {
		return models.Teacher{}, err
	}
	return teacher, nil
}

func (r *teacherRepository) LockByID(ctx context.Context, id uint) (models.Teacher, error) {
	var teacher models.Teacher
	if err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&teacher, id).Error; err != nil {
		return models.Teacher{}, err
	}
	return teacher, nil
}

func (r *teacherRepository) GetByNIF(ctx context.Context, nif string) (models.Teacher, error) {
	var teacher models.Teacher
	if err := conn(ctx, r.db).Where("nif = ?", strings.ToUpper(strings.TrimSpace(nif))).First(&teacher).Error; err != nil {
		return models.Teacher{}, err
	}
	return teacher, nil
}

func (r *teacherRepository) GetByUserID(ctx context.Context, userID uint) (models.Teacher, error) {
	var teacher models.Teacher
	if err := conn(ctx, r.db).Where("user_id = ?", userID).First(&teacher).Error; err != nil {
		return models.Teacher{}, err
	}
	return teacher, nil
}

func (r *teacherRepository) List(ctx context.Context, filter TeacherFilter) ([]models.Teacher, int64, error) {
	query := conn(ctx, r.db).Model(&models.Teacher{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(nif) LIKE ?", like, like)
	}
	if filter.Area != "" {
		query = query.Where("area = ?", filter.Area)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var teachers []models.Teacher
	if err := paginate(query, filter.Page, filter.PageSize).Order("name ASC").Find(&teachers).Error; err != nil {
		return nil, 0, err
	}
	return teachers, total, nil
}

func (r *teacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	return conn(ctx, r.db).Omit("User").Save(teacher).Error
}

func (r *teacherRepository) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, r.db).Delete(&models.Teacher{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
