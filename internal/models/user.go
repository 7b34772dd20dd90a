package models

import "time"

const (
	// RoleAdmin manages the whole evaluation catalogue.
	RoleAdmin = "admin"
	// RoleEvaluator fills and signs evaluations.
	RoleEvaluator = "evaluator"
	// RoleTeacher reads and signs their own evaluations.
	RoleTeacher = "teacher"
)

// User is an authenticated account. Teacher accounts use the lower-cased NIF as username.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:80;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Role         string    `gorm:"size:32;not null;default:evaluator" json:"role"`
	Email        string    `gorm:"size:120" json:"email"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedBy    *uint     `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
