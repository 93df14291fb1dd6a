package models

import (
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// AIScoreSet caches the single accepted result of the automated scorer for a submission.
// Entries is keyed by rubric id and holds {"value": fraction in [0,1], "feedback": text}.
type AIScoreSet struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SubmissionID uint              `gorm:"not null;uniqueIndex" json:"submission_id"`
	Provider     string            `gorm:"size:32" json:"provider"`
	Entries      datatypes.JSONMap `json:"entries"`
	Raw          datatypes.JSONMap `json:"raw"`
	RequestedAt  time.Time         `gorm:"not null" json:"requested_at"`
	CreatedAt    time.Time         `json:"created_at"`
}

// AICriterionScore is one criterion entry of an AIScoreSet.
type AICriterionScore struct {
	Value    float64 `json:"value"`
	Feedback string  `json:"feedback"`
}

// AIScoreEntryKey formats the Entries key for a rubric.
func AIScoreEntryKey(rubricID uint) string {
	return strconv.FormatUint(uint64(rubricID), 10)
}

// NewAIScoreEntries converts per-rubric scores into the stored JSON form.
func NewAIScoreEntries(scores map[uint]AICriterionScore) datatypes.JSONMap {
	entries := datatypes.JSONMap{}
	for rubricID, score := range scores {
		entries[AIScoreEntryKey(rubricID)] = map[string]interface{}{
			"value":    score.Value,
			"feedback": score.Feedback,
		}
	}
	return entries
}

// Scores decodes Entries back into per-rubric values. Entries read from the database carry
// json.Number values. Malformed entries are skipped.
func (a AIScoreSet) Scores() map[uint]AICriterionScore {
	result := make(map[uint]AICriterionScore, len(a.Entries))
	for key, raw := range a.Entries {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		score := AICriterionScore{}
		switch value := entry["value"].(type) {
		case float64:
			score.Value = value
		case int:
			score.Value = float64(value)
		case json.Number:
			parsed, err := value.Float64()
			if err != nil {
				continue
			}
			score.Value = parsed
		default:
			continue
		}
		if feedback, ok := entry["feedback"].(string); ok {
			score.Feedback = feedback
		}
		result[uint(id)] = score
	}
	return result
}
