package matching

import (
	"context"
	"testing"

	"mockmate/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectQuestionsHonorsDistinctPreAssignments(t *testing.T) {
	_, db, _, _ := newTestService(t)

	qs := seedQuestions(t, db, 2, "backend", models.DifficultyMedium)

	first, second, err := selectQuestions(db, "backend", &qs[0].ID, &qs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, qs[0].ID, first)
	assert.Equal(t, qs[1].ID, second)
}

func TestSelectQuestionsResolvesSharedPreAssignment(t *testing.T) {
	_, db, _, _ := newTestService(t)

	medium := seedQuestions(t, db, 2, "backend", models.DifficultyMedium)
	seedQuestions(t, db, 3, "backend", models.DifficultyHard)

	first, second, err := selectQuestions(db, "backend", &medium[0].ID, &medium[0].ID)
	require.NoError(t, err)

	// The shared question stays; the companion matches its difficulty.
	assert.Equal(t, medium[0].ID, first)
	assert.Equal(t, medium[1].ID, second)
}

func TestDrawQuestionsWidensThinPool(t *testing.T) {
	_, db, _, _ := newTestService(t)

	seedQuestions(t, db, 1, "backend", models.DifficultyMedium)
	seedQuestions(t, db, 2, "frontend", models.DifficultyMedium)

	drawn, err := drawQuestions(db, "backend", "", nil, 2)
	require.NoError(t, err)
	require.Len(t, drawn, 2)
	assert.NotEqual(t, drawn[0].ID, drawn[1].ID)
}

func TestDrawQuestionsExhaustedCatalog(t *testing.T) {
	_, db, _, _ := newTestService(t)

	seedQuestions(t, db, 1, "backend", models.DifficultyMedium)

	_, err := drawQuestions(db, "backend", "", nil, 2)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestDrawQuestionsSkipsUnapprovedAndInactive(t *testing.T) {
	_, db, _, _ := newTestService(t)

	seedQuestions(t, db, 1, "backend", models.DifficultyMedium)
	require.NoError(t, db.Create(&models.Question{
		Title: "pending review", Type: "backend", Difficulty: models.DifficultyMedium,
		Approved: false, Active: true,
	}).Error)
	require.NoError(t, db.Create(&models.Question{
		Title: "retired", Type: "backend", Difficulty: models.DifficultyMedium,
		Approved: true, Active: false,
	}).Error)

	_, err := drawQuestions(db, "backend", "", nil, 2)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestCreateForPairUsesPreAssignedQuestions(t *testing.T) {
	svc, db, oracle, clock := newTestService(t)
	ctx := context.Background()

	qs := seedQuestions(t, db, 2, "backend", models.DifficultyMedium)

	reqA, reqB := pairUsers(t, svc, oracle, clock, 1, 2)
	require.NoError(t, db.Model(&models.ScheduledSession{}).
		Where("id = ?", reqA.ScheduledSessionID).Update("question_id", qs[0].ID).Error)
	require.NoError(t, db.Model(&models.ScheduledSession{}).
		Where("id = ?", reqB.ScheduledSessionID).Update("question_id", qs[1].ID).Error)

	_, err := svc.Confirm(ctx, reqA.ID, 1)
	require.NoError(t, err)
	result, err := svc.Confirm(ctx, reqB.ID, 2)
	require.NoError(t, err)
	require.True(t, result.Completed)

	// The interviewer queued first, so their pre-assignment leads.
	assert.Equal(t, qs[0].ID, result.Session.FirstQuestionID)
	assert.Equal(t, qs[1].ID, result.Session.SecondQuestionID)
	assert.Equal(t, reqA.ScheduledSessionID, result.Session.ScheduledSessionID)
}
