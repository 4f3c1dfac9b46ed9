package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"mockmate/backend/internal/database"
	"mockmate/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedLiveSession inserts a running interview between users 1 and 2 directly.
func seedLiveSession(t *testing.T) models.LiveSession {
	t.Helper()

	sched := models.ScheduledSession{
		UserID: 1, InterviewType: "backend", PracticeType: "peer",
		Level: "junior", ScheduledAt: time.Now(), Status: models.ScheduledStatusInProgress,
	}
	require.NoError(t, database.DB.Create(&sched).Error)

	session := models.LiveSession{
		ScheduledSessionID: sched.ID,
		FirstQuestionID:    1,
		SecondQuestionID:   2,
		CurrentQuestionID:  1,
		Status:             models.LiveSessionInProgress,
		StartedAt:          time.Now(),
	}
	require.NoError(t, database.DB.Create(&session).Error)

	participants := []models.SessionParticipant{
		{LiveSessionID: session.ID, UserID: 1, Role: models.RoleInterviewer, Active: true},
		{LiveSessionID: session.ID, UserID: 2, Role: models.RoleInterviewee, Active: true},
	}
	require.NoError(t, database.DB.Create(&participants).Error)
	session.Participants = participants
	return session
}

func liveSessionFrom(t *testing.T, router *gin.Engine, method, path, token string) LiveSessionResponse {
	t.Helper()

	w := doJSON(t, router, method, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp LiveSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSwitchRolesSwapsBothParticipants(t *testing.T) {
	router := setupTestRouter(t)
	session := seedLiveSession(t)

	resp := liveSessionFrom(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/live/%d/switch-roles", session.ID), tokenFor(t, 2, "user"))

	roles := map[uint]string{}
	for _, p := range resp.Participants {
		roles[p.UserID] = p.Role
	}
	assert.Equal(t, models.RoleInterviewee, roles[1])
	assert.Equal(t, models.RoleInterviewer, roles[2])
}

func TestNextQuestionAdvances(t *testing.T) {
	router := setupTestRouter(t)
	session := seedLiveSession(t)

	resp := liveSessionFrom(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/live/%d/next-question", session.ID), tokenFor(t, 1, "user"))

	assert.Equal(t, session.SecondQuestionID, resp.CurrentQuestionID)
}

func TestEndLiveSessionCompletesWhenBothLeave(t *testing.T) {
	router := setupTestRouter(t)
	session := seedLiveSession(t)
	endPath := fmt.Sprintf("/api/v1/sessions/live/%d/end", session.ID)

	resp := liveSessionFrom(t, router, http.MethodPost, endPath, tokenFor(t, 1, "user"))
	assert.Equal(t, models.LiveSessionInProgress, resp.Status)

	resp = liveSessionFrom(t, router, http.MethodPost, endPath, tokenFor(t, 2, "user"))
	assert.Equal(t, models.LiveSessionCompleted, resp.Status)
	assert.NotNil(t, resp.EndedAt)

	var sched models.ScheduledSession
	require.NoError(t, database.DB.First(&sched, session.ScheduledSessionID).Error)
	assert.Equal(t, models.ScheduledStatusCompleted, sched.Status)
}

func TestLiveSessionEndpointsRejectOutsiders(t *testing.T) {
	router := setupTestRouter(t)
	session := seedLiveSession(t)

	w := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/live/%d/switch-roles", session.ID), tokenFor(t, 9, "user"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
