package models

import "time"

// TemporaryCredential is a single-use, time-boxed handle on a freshly generated password.
type TemporaryCredential struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Token             string     `gorm:"size:64;uniqueIndex;not null" json:"token"`
	TeacherID         uint       `gorm:"not null;index" json:"teacher_id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	EncryptedPassword string     `gorm:"type:text;not null" json:"-"`
	ExpiresAt         time.Time  `gorm:"not null" json:"expires_at"`
	IsUsed            bool       `gorm:"not null;default:false;index" json:"is_used"`
	UsedAt            *time.Time `json:"used_at"`
	CreatedBy         *uint      `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	Teacher           *Teacher   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"teacher,omitempty"`
	User              *User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
}

// IsExpired reports whether the token lifetime elapsed at the reference time.
func (c TemporaryCredential) IsExpired(reference time.Time) bool {
	return !reference.Before(c.ExpiresAt)
}

// IsValid reports whether the token is unused and unexpired. It never mutates the token.
func (c TemporaryCredential) IsValid(reference time.Time) bool {
	return !c.IsUsed && !c.IsExpired(reference)
}
