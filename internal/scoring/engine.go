// Package scoring aggregates manual evaluations and AI criterion scores into final scores.
//
// Normalization is fixed. Let T be the sum of max_points over the project's rubrics.
// The manual score is the raw sum of awarded points and therefore lies in [0, T].
// Each AI criterion value is a fraction in [0, 1]; the ml score scales every value by its
// criterion's max_points and sums them, so it also lies in [0, T]. Criteria the scorer
// omitted contribute 0. When an AI score set is present the overall score is
// Manual*manual + AI*ml; when it is absent the AI weight is treated as 0 and the overall
// score equals the manual score. All outputs are rounded to two decimals.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// ErrIncomplete indicates at least one rubric has no evaluation.
var ErrIncomplete = errors.New("incomplete evaluation")

// ErrOutOfRange indicates an awarded value lies outside its criterion bound.
var ErrOutOfRange = errors.New("score out of range")

// Weights is the manual/AI weighting policy. Both are non-negative and sum to 1.
type Weights struct {
	Manual float64
	AI     float64
}

// DefaultWeights is the 70/30 manual/AI split.
func DefaultWeights() Weights {
	return Weights{Manual: 0.7, AI: 0.3}
}

// Validate checks that weights are non-negative and sum to 1.0 (±0.001).
func (w Weights) Validate() error {
	if w.Manual < 0 || w.AI < 0 {
		return fmt.Errorf("negative weight: manual=%f ai=%f", w.Manual, w.AI)
	}
	if sum := w.Manual + w.AI; math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("weights sum to %.4f, must sum to 1.0", sum)
	}
	return nil
}

// Result holds the aggregate scores of a submission.
type Result struct {
	ManualScore  float64
	MLScore      float64
	OverallScore float64
	MaxScore     float64
	ManualWeight float64
	AIWeight     float64
	AIIncluded   bool
}

// Missing returns the ids of rubrics without an evaluation, in rubric order.
func Missing(rubrics []models.Rubric, evaluations []models.Evaluation) []uint {
	scored := make(map[uint]struct{}, len(evaluations))
	for _, evaluation := range evaluations {
		scored[evaluation.RubricID] = struct{}{}
	}

	missing := make([]uint, 0)
	for _, rubric := range rubrics {
		if _, ok := scored[rubric.ID]; !ok {
			missing = append(missing, rubric.ID)
		}
	}
	return missing
}

// CheckComplete verifies there is exactly one in-bound evaluation per rubric and nothing else.
func CheckComplete(rubrics []models.Rubric, evaluations []models.Evaluation) error {
	if len(rubrics) == 0 {
		return fmt.Errorf("%w: project has no rubrics", ErrIncomplete)
	}

	bounds := make(map[uint]int, len(rubrics))
	for _, rubric := range rubrics {
		bounds[rubric.ID] = rubric.MaxPoints
	}

	seen := make(map[uint]struct{}, len(evaluations))
	for _, evaluation := range evaluations {
		max, ok := bounds[evaluation.RubricID]
		if !ok {
			return fmt.Errorf("%w: evaluation references unknown rubric %d", ErrIncomplete, evaluation.RubricID)
		}
		if _, dup := seen[evaluation.RubricID]; dup {
			return fmt.Errorf("%w: rubric %d evaluated more than once", ErrIncomplete, evaluation.RubricID)
		}
		seen[evaluation.RubricID] = struct{}{}
		if evaluation.PointsAwarded < 0 || evaluation.PointsAwarded > max {
			return fmt.Errorf("%w: rubric %d awarded %d of %d", ErrOutOfRange, evaluation.RubricID, evaluation.PointsAwarded, max)
		}
	}

	if missing := Missing(rubrics, evaluations); len(missing) > 0 {
		return fmt.Errorf("%w: %d of %d rubrics unscored %v", ErrIncomplete, len(missing), len(rubrics), missing)
	}

	return nil
}

// Compute aggregates scores. aiScores is nil when no AI score set exists.
// Compute does not check completeness; callers run CheckComplete first.
func Compute(rubrics []models.Rubric, evaluations []models.Evaluation, aiScores map[uint]models.AICriterionScore, weights Weights) Result {
	result := Result{
		MaxScore:   float64(models.TotalMaxPoints(rubrics)),
		AIIncluded: aiScores != nil,
	}

	manual := 0
	for _, evaluation := range evaluations {
		manual += evaluation.PointsAwarded
	}
	result.ManualScore = float64(manual)

	if aiScores != nil {
		// Sum in rubric order so the float result is deterministic.
		ordered := append([]models.Rubric(nil), rubrics...)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
		ml := 0.0
		for _, rubric := range ordered {
			score, ok := aiScores[rubric.ID]
			if !ok {
				continue
			}
			ml += clampFraction(score.Value) * float64(rubric.MaxPoints)
		}
		result.MLScore = ml
	}

	if result.AIIncluded {
		result.ManualWeight = weights.Manual
		result.AIWeight = weights.AI
	} else {
		result.ManualWeight = 1
		result.AIWeight = 0
	}

	result.OverallScore = round2(result.ManualWeight*result.ManualScore + result.AIWeight*result.MLScore)
	result.ManualScore = round2(result.ManualScore)
	result.MLScore = round2(result.MLScore)

	return result
}

func clampFraction(value float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
