package models

import "time"

// MaxUnitsPerCourseRow bounds how many curricular units a single course import row may carry.
const MaxUnitsPerCourseRow = 10

// Course is a vocational course offering.
type Course struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	Name                string           `gorm:"size:100;not null" json:"name"`
	Period              string           `gorm:"size:20;not null" json:"period"`
	CurriculumComponent string           `gorm:"size:100" json:"curriculum_component"`
	ClassCode           string           `gorm:"size:20" json:"class_code"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	CurricularUnits     []CurricularUnit `json:"curricular_units,omitempty"`
}

// CurricularUnit belongs to exactly one course.
type CurricularUnit struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:150;not null" json:"name"`
	Code        string    `gorm:"size:20" json:"code"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	Course      *Course   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"course,omitempty"`
	Workload    *int      `json:"workload"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
