package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audited entity types.
const (
	ActivityEntityProject    = "project"
	ActivityEntityRubric     = "rubric"
	ActivityEntitySubmission = "submission"
)

// ActivityLog is one append-only audit entry for a scoring workflow mutation. Metadata never carries
// credentials; sensitive keys are masked before persistence.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null;index:idx_activity_entity,priority:1" json:"entity_type"`
	EntityID   *uint             `gorm:"index:idx_activity_entity,priority:2" json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}
