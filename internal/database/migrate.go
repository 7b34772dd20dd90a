package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// Migrate creates or updates every table the evaluation workflow persists.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Teacher{},
		&models.Evaluator{},
		&models.Course{},
		&models.CurricularUnit{},
		&models.Semester{},
		&models.ScheduledEvaluation{},
		&models.Evaluation{},
		&models.EvaluationChecklistItem{},
		&models.EvaluationAttachment{},
		&models.DigitalSignature{},
		&models.TemporaryCredential{},
		&models.ActivityLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
