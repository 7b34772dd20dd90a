package models

import (
	"regexp"
	"strings"
	"time"
)

var nifPattern = regexp.MustCompile(`^SN\d{7}$`)

// NormalizeNIF trims and upper-cases an institutional identifier.
func NormalizeNIF(nif string) string {
	return strings.ToUpper(strings.TrimSpace(nif))
}

// ValidNIF reports whether nif is "SN" followed by seven digits once normalised.
func ValidNIF(nif string) bool {
	return nifPattern.MatchString(NormalizeNIF(nif))
}

// Teacher is an evaluated instructor identified by the institutional NIF.
type Teacher struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	NIF       string    `gorm:"column:nif;size:10;uniqueIndex;not null" json:"nif"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Area      string    `gorm:"size:100;not null" json:"area"`
	Email     string    `gorm:"size:120" json:"email"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Username derives the account username for the teacher.
func (t Teacher) Username() string {
	return strings.ToLower(strings.TrimSpace(t.NIF))
}

// Evaluator is a coordinator or supervisor who conducts evaluations.
type Evaluator struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Role      string    `gorm:"size:50;not null" json:"role"`
	Email     string    `gorm:"size:120" json:"email"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
