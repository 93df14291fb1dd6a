package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/projectflow-api/internal/dto"
)

func TestProjectServiceCreateAndUpdate(t *testing.T) {
	h := newScoringHarness(t, nil, 0)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := h.projects.Create(context.Background(), studentPrincipal, dto.ProjectCreateRequest{
		Title: "Robotics", StartDate: start, EndDate: start.AddDate(0, 1, 0),
	})
	require.ErrorIs(t, err, ErrAuthorization)

	_, err = h.projects.Create(context.Background(), ownerPrincipal, dto.ProjectCreateRequest{
		Title: "Robotics", StartDate: start, EndDate: start.AddDate(0, 0, -1),
	})
	require.ErrorIs(t, err, ErrValidation)

	created, err := h.projects.Create(context.Background(), ownerPrincipal, dto.ProjectCreateRequest{
		Title:       "Robotics",
		Description: "<p>Build a line follower</p>",
		StartDate:   start,
		EndDate:     start.AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	require.True(t, created.IsActive)
	require.Equal(t, ownerPrincipal.ID, created.OwnerID)
	require.Equal(t, "Build a line follower", created.Description)

	inactive := false
	_, err = h.projects.Update(context.Background(), otherFaculty, created.ID, dto.ProjectUpdateRequest{IsActive: &inactive})
	require.ErrorIs(t, err, ErrAuthorization)

	updated, err := h.projects.Update(context.Background(), ownerPrincipal, created.ID, dto.ProjectUpdateRequest{IsActive: &inactive})
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	early := start.AddDate(0, 2, 0)
	_, err = h.projects.Update(context.Background(), adminPrincipal, created.ID, dto.ProjectUpdateRequest{StartDate: &early})
	require.ErrorIs(t, err, ErrValidation)

	_, err = h.projects.Update(context.Background(), adminPrincipal, 9999, dto.ProjectUpdateRequest{IsActive: &inactive})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProjectServiceListAndGet(t *testing.T) {
	h := newScoringHarness(t, nil, 0)
	start := time.Now().UTC()
	inactive := false
	_, err := h.projects.Create(context.Background(), otherFaculty, dto.ProjectCreateRequest{
		Title: "Archived", StartDate: start, EndDate: start, IsActive: &inactive,
	})
	require.NoError(t, err)

	student, err := h.projects.List(context.Background(), studentPrincipal, dto.ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, student, 1)
	require.Equal(t, "Capstone", student[0].Title)

	mine, err := h.projects.List(context.Background(), otherFaculty, dto.ProjectFilter{Mine: true})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "Archived", mine[0].Title)

	all, err := h.projects.List(context.Background(), adminPrincipal, dto.ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	detail, err := h.projects.Get(context.Background(), studentPrincipal, h.project.ID)
	require.NoError(t, err)
	require.Len(t, detail.Rubrics, 2)
	require.Equal(t, "Innovation", detail.Rubrics[0].Name)
}

func TestRubricServiceAppendsCriteria(t *testing.T) {
	h := newScoringHarness(t, nil, 0)

	_, err := h.rubrics.Create(context.Background(), otherFaculty, h.project.ID, dto.RubricCreateRequest{Name: "Design", MaxPoints: 5})
	require.ErrorIs(t, err, ErrAuthorization)

	_, err = h.rubrics.Create(context.Background(), ownerPrincipal, h.project.ID, dto.RubricCreateRequest{Name: "Design", MaxPoints: 0})
	require.ErrorIs(t, err, ErrValidation)

	_, err = h.rubrics.Create(context.Background(), ownerPrincipal, 9999, dto.RubricCreateRequest{Name: "Design", MaxPoints: 5})
	require.ErrorIs(t, err, ErrNotFound)

	created, err := h.rubrics.Create(context.Background(), ownerPrincipal, h.project.ID, dto.RubricCreateRequest{
		Name: "Design", MaxPoints: 5, Description: "Interface and usability",
	})
	require.NoError(t, err)
	require.Equal(t, 3, created.Position)

	list, err := h.rubrics.List(context.Background(), studentPrincipal, h.project.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "Design", list[2].Name)
}
