package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// CredentialRepository persists temporary credential tokens.
type CredentialRepository interface {
	Create(ctx context.Context, credential *models.TemporaryCredential) error
	GetByToken(ctx context.Context, token string) (models.TemporaryCredential, error)
	// InvalidateUnused marks every unused token of the teacher as used.
	InvalidateUnused(ctx context.Context, teacherID uint, at time.Time) (int64, error)
	// MarkUsed consumes the token only if no other reader consumed it first.
	MarkUsed(ctx context.Context, id uint, at time.Time) (bool, error)
	CountUnused(ctx context.Context, teacherID uint) (int64, error)
}

type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository constructs a repository backed by GORM.
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Create(ctx context.Context, credential *models.TemporaryCredential) error {
	return conn(ctx, r.db).Omit("Teacher", "User").Create(credential).Error
}

func (r *credentialRepository) GetByToken(ctx context.Context, token string) (models.TemporaryCredential, error) {
	var credential models.TemporaryCredential
	err := conn(ctx, r.db).
		Preload("Teacher").
		Preload("User").
		Where("token = ?", token).
		First(&credential).Error
	if err != nil {
		return models.TemporaryCredential{}, err
	}
	return credential, nil
}

func (r *credentialRepository) InvalidateUnused(ctx context.Context, teacherID uint, at time.Time) (int64, error) {
	result := conn(ctx, r.db).
		Model(&models.TemporaryCredential{}).
		Where("teacher_id = ? AND is_used = ?", teacherID, false).
		Updates(map[string]interface{}{"is_used": true, "used_at": at})
	return result.RowsAffected, result.Error
}

func (r *credentialRepository) MarkUsed(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.TemporaryCredential{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{"is_used": true, "used_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *credentialRepository) CountUnused(ctx context.Context, teacherID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.TemporaryCredential{}).
		Where("teacher_id = ? AND is_used = ?", teacherID, false).
		Count(&count).Error
	return count, err
}
