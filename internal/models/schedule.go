package models

import "time"

// ScheduledEvaluation is a planned evaluation slot for (teacher, curricular unit, semester, month).
type ScheduledEvaluation struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	TeacherID        uint            `gorm:"not null;uniqueIndex:idx_schedule_slot" json:"teacher_id"`
	CurricularUnitID uint            `gorm:"not null;uniqueIndex:idx_schedule_slot" json:"curricular_unit_id"`
	SemesterID       uint            `gorm:"not null;uniqueIndex:idx_schedule_slot" json:"semester_id"`
	ScheduledMonth   int             `gorm:"not null;uniqueIndex:idx_schedule_slot" json:"scheduled_month"`
	ScheduledDate    *time.Time      `json:"scheduled_date"`
	Notes            string          `gorm:"type:text" json:"notes"`
	IsCompleted      bool            `gorm:"not null;default:false;index" json:"is_completed"`
	CompletedAt      *time.Time      `json:"completed_at"`
	EvaluationID     *uint           `gorm:"uniqueIndex" json:"evaluation_id"`
	CreatedBy        *uint           `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Teacher          *Teacher        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"teacher,omitempty"`
	CurricularUnit   *CurricularUnit `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"curricular_unit,omitempty"`
	Semester         *Semester       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"semester,omitempty"`
}

// ValidMonth reports whether month is a calendar month number.
func ValidMonth(month int) bool {
	return month >= 1 && month <= 12
}
