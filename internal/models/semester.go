package models

import (
	"fmt"
	"time"
)

// Semester is a half-year academic term identified by (year, number).
type Semester struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	Year      int       `gorm:"not null;uniqueIndex:idx_semester_term" json:"year"`
	Number    int       `gorm:"not null;uniqueIndex:idx_semester_term" json:"number"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	IsActive  bool      `gorm:"not null;default:false;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contains reports whether the reference date falls within the semester bounds (inclusive by day).
func (s Semester) Contains(reference time.Time) bool {
	day := time.Date(reference.Year(), reference.Month(), reference.Day(), 0, 0, 0, 0, s.StartDate.Location())
	return !day.Before(s.StartDate) && !day.After(s.EndDate)
}

// Term describes the (year, number) pair a date falls into together with its bounds.
type Term struct {
	Year      int
	Number    int
	StartDate time.Time
	EndDate   time.Time
}

// TermFor maps a wall-clock date to its academic term: January–July is term 1, August–December term 2.
func TermFor(reference time.Time) Term {
	loc := reference.Location()
	year := reference.Year()
	if reference.Month() <= time.July {
		return Term{
			Year:      year,
			Number:    1,
			StartDate: time.Date(year, time.January, 1, 0, 0, 0, 0, loc),
			EndDate:   time.Date(year, time.July, 31, 0, 0, 0, 0, loc),
		}
	}
	return Term{
		Year:      year,
		Number:    2,
		StartDate: time.Date(year, time.August, 1, 0, 0, 0, 0, loc),
		EndDate:   time.Date(year, time.December, 31, 0, 0, 0, 0, loc),
	}
}

// TermForNumber returns the UTC bounds of term number (1 or 2) in year.
func TermForNumber(year, number int) Term {
	month := time.January
	if number == 2 {
		month = time.August
	}
	return TermFor(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// Name renders the display name used for auto-created semesters.
func (t Term) Name() string {
	return fmt.Sprintf("%dº Semestre %d", t.Number, t.Year)
}

// Semester builds an unsaved semester row for the term.
func (t Term) Semester(active bool) Semester {
	return Semester{
		Name:      t.Name(),
		Year:      t.Year,
		Number:    t.Number,
		StartDate: t.StartDate,
		EndDate:   t.EndDate,
		IsActive:  active,
	}
}
