package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeywordScorerScoresPerCriterion(t *testing.T) {
	scorer := NewKeywordScorer()

	result, err := scorer.Score(context.Background(), ScoringInput{
		SubmissionTitle: "A novel and creative garden robot",
		Content:         "Our innovative approach is scalable and useful with significant potential.",
		Criteria: []Criterion{
			{Key: "1", Name: "Innovation", MaxPoints: 10},
			{Key: "2", Name: "Impact", MaxPoints: 10},
			{Key: "3", Name: "Zzz", MaxPoints: 5},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Scores, 3)

	innovation := result.Scores["1"]
	require.Greater(t, innovation.Value, 0.0)
	require.LessOrEqual(t, innovation.Value, 1.0)
	require.Contains(t, innovation.Feedback, "novel")

	require.Greater(t, result.Scores["2"].Value, 0.0)
	require.Equal(t, 0.0, result.Scores["3"].Value)
}

func TestKeywordScorerCapsKeywordStuffing(t *testing.T) {
	scorer := NewKeywordScorer()
	text := "novel innovative creative unique breakthrough paradigm new advanced novel novel novel innovation"

	result, err := scorer.Score(context.Background(), ScoringInput{
		Content:  text,
		Criteria: []Criterion{{Key: "k", Name: "Innovation", MaxPoints: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, result.Scores["k"].Value)
}

func TestKeywordScorerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewKeywordScorer().Score(ctx, ScoringInput{Criteria: []Criterion{{Key: "1", Name: "Quality"}}})
	require.ErrorIs(t, err, context.Canceled)
}
