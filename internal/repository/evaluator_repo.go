package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// EvaluatorRepository persists evaluators.
type EvaluatorRepository interface {
	Create(ctx context.Context, evaluator *models.Evaluator) error
	GetByID(ctx context.Context, id uint) (models.Evaluator, error)
	GetByUserID(ctx context.Context, userID uint) (models.Evaluator, error)
	List(ctx context.Context) ([]models.Evaluator, error)
	Update(ctx context.Context, evaluator *models.Evaluator) error
	Delete(ctx context.Context, id uint) error
}

type evaluatorRepository struct {
	db *gorm.DB
}

// NewEvaluatorRepository constructs a repository backed by GORM.
func NewEvaluatorRepository(db *gorm.DB) EvaluatorRepository {
	return &evaluatorRepository{db: db}
}

func (r *evaluatorRepository) Create(ctx context.Context, evaluator *models.Evaluator) error {
	return conn(ctx, r.db).Create(evaluator).Error
}

func (r *evaluatorRepository) GetByID(ctx context.Context, id uint) (models.Evaluator, error) {
	var evaluator models.Evaluator
	if err := conn(ctx, r.db).First(&evaluator, id).Error; err != nil {
		return models.Evaluator{}, err
	}
	return evaluator, nil
}

func (r *evaluatorRepository) GetByUserID(ctx context.Context, userID uint) (models.Evaluator, error) {
	var evaluator models.Evaluator
	if err := conn(ctx, r.db).Where("user_id = ?", userID).First(&evaluator).Error; err != nil {
		return models.Evaluator{}, err
	}
	return evaluator, nil
}

func (r *evaluatorRepository) List(ctx context.Context) ([]models.Evaluator, error) {
	var evaluators []models.Evaluator
	if err := conn(ctx, r.db).Order("name ASC").Find(&evaluators).Error; err != nil {
		return nil, err
	}
	return evaluators, nil
}

func (r *evaluatorRepository) Update(ctx context.Context, evaluator *models.Evaluator) error {
	return conn(ctx, r.db).Save(evaluator).Error
}

func (r *evaluatorRepository) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, r.db).Delete(&models.Evaluator{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
