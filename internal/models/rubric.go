package models

import "time"

// Rubric is a single point-bounded scoring criterion of a project.
// Rubrics are append-only: once created they are never edited or removed.
type Rubric struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;index:idx_rubric_project_position,priority:1" json:"project_id"`
	Position    int       `gorm:"not null;index:idx_rubric_project_position,priority:2" json:"position"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	MaxPoints   int       `gorm:"not null" json:"max_points"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TotalMaxPoints sums the maximum attainable points across rubrics.
func TotalMaxPoints(rubrics []Rubric) int {
	total := 0
	for _, rubric := range rubrics {
		total += rubric.MaxPoints
	}
	return total
}
