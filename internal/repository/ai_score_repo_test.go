package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/projectflow-api/internal/models"
)

func TestAIScoreRepositoryKeepsFirstResult(t *testing.T) {
	db := setupScoringDB(t)
	fx := seedScoringFixture(t, db)
	repo := NewAIScoreRepository(db)
	ctx := context.Background()

	first := models.AIScoreSet{
		SubmissionID: fx.submission.ID,
		Provider:     "keyword",
		Entries:      models.NewAIScoreEntries(map[uint]models.AICriterionScore{fx.rubrics[0].ID: {Value: 0.4, Feedback: "ok"}}),
		RequestedAt:  time.Now(),
	}
	stored, created, err := repo.CreateIfAbsent(ctx, &first)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, 0.4, stored.Scores()[fx.rubrics[0].ID].Value)

	second := models.AIScoreSet{
		SubmissionID: fx.submission.ID,
		Provider:     "openai",
		Entries:      models.NewAIScoreEntries(map[uint]models.AICriterionScore{fx.rubrics[0].ID: {Value: 0.9}}),
		RequestedAt:  time.Now(),
	}
	stored, created, err = repo.CreateIfAbsent(ctx, &second)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "keyword", stored.Provider)
	require.Equal(t, 0.4, stored.Scores()[fx.rubrics[0].ID].Value)
	require.Equal(t, "ok", stored.Scores()[fx.rubrics[0].ID].Feedback)

	reloaded, err := repo.GetBySubmission(ctx, fx.submission.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Scores(), 1)
	require.InDelta(t, 0.4, reloaded.Scores()[fx.rubrics[0].ID].Value, 1e-9)

	var submission models.Submission
	require.NoError(t, db.First(&submission, fx.submission.ID).Error)
	require.Equal(t, fx.submission.Version+1, submission.Version)
}

func TestAIScoreRepositoryStaleFinalizeLosesToStoredSet(t *testing.T) {
	db := setupScoringDB(t)
	fx := seedScoringFixture(t, db)
	ctx := context.Background()
	submissions := NewSubmissionRepository(db)

	read, err := submissions.GetByID(ctx, fx.submission.ID)
	require.NoError(t, err)

	_, created, err := NewAIScoreRepository(db).CreateIfAbsent(ctx, &models.AIScoreSet{
		SubmissionID: fx.submission.ID,
		Provider:     "keyword",
		Entries:      models.NewAIScoreEntries(map[uint]models.AICriterionScore{fx.rubrics[0].ID: {Value: 0.5}}),
		RequestedAt:  time.Now(),
	})
	require.NoError(t, err)
	require.True(t, created)

	err = submissions.Finalize(ctx, fx.submission.ID, read.Version, &models.FinalScore{FinalizedAt: time.Now()})
	require.ErrorIs(t, err, ErrStaleVersion)
}

func TestAIScoreRepositoryRejectsFinalizedSubmission(t *testing.T) {
	db := setupScoringDB(t)
	fx := seedScoringFixture(t, db)
	ctx := context.Background()

	require.NoError(t, NewSubmissionRepository(db).Finalize(ctx, fx.submission.ID, fx.submission.Version, &models.FinalScore{FinalizedAt: time.Now()}))

	repo := NewAIScoreRepository(db)
	_, created, err := repo.CreateIfAbsent(ctx, &models.AIScoreSet{
		SubmissionID: fx.submission.ID,
		Provider:     "keyword",
		Entries:      models.NewAIScoreEntries(map[uint]models.AICriterionScore{fx.rubrics[0].ID: {Value: 0.5}}),
		RequestedAt:  time.Now(),
	})
	require.ErrorIs(t, err, ErrSubmissionClosed)
	require.False(t, created)

	var count int64
	require.NoError(t, db.Model(&models.AIScoreSet{}).Count(&count).Error)
	require.Zero(t, count)

	_, _, err = repo.CreateIfAbsent(ctx, &models.AIScoreSet{SubmissionID: fx.submission.ID + 99, RequestedAt: time.Now()})
	require.True(t, IsNotFound(err))
}
