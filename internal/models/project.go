package models

import "time"

// Project is a faculty-defined assignment that students submit work against.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	StartDate   time.Time `gorm:"not null" json:"start_date"`
	EndDate     time.Time `gorm:"not null" json:"end_date"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Rubrics     []Rubric  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"rubrics,omitempty"`
}

// IsOpen reports whether the project accepts submissions at the reference time.
// The end date is inclusive for the whole day it falls on.
func (p Project) IsOpen(reference time.Time) bool {
	if !p.IsActive {
		return false
	}
	if !p.StartDate.IsZero() && reference.Before(p.StartDate) {
		return false
	}
	if !p.EndDate.IsZero() && reference.After(endOfDay(p.EndDate)) {
		return false
	}
	return true
}

func endOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
