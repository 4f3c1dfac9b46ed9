package handler

import (
	"net/http"
	"strconv"
	"time"

	"mockmate/backend/internal/database"
	"mockmate/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type ScheduledSessionInput struct {
	InterviewType string    `json:"interview_type" binding:"required"`
	PracticeType  string    `json:"practice_type" binding:"required"`
	Level         string    `json:"level" binding:"required"`
	ScheduledAt   time.Time `json:"scheduled_at" binding:"required"`
	QuestionID    *uint     `json:"question_id"`
}

type ScheduledSessionResponse struct {
	ID            uint      `json:"id"`
	InterviewType string    `json:"interview_type"`
	PracticeType  string    `json:"practice_type"`
	Level         string    `json:"level"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Status        string    `json:"status"`
	QuestionID    *uint     `json:"question_id,omitempty"`
}

type ParticipantResponse struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

type LiveSessionResponse struct {
	ID                uint                  `json:"id"`
	Status            string                `json:"status"`
	FirstQuestionID   uint                  `json:"first_question_id"`
	SecondQuestionID  uint                  `json:"second_question_id"`
	CurrentQuestionID uint                  `json:"current_question_id"`
	StartedAt         time.Time             `json:"started_at"`
	EndedAt           *time.Time            `json:"ended_at,omitempty"`
	Participants      []ParticipantResponse `json:"participants"`
}

func newScheduledSessionResponse(s models.ScheduledSession) ScheduledSessionResponse {
	return ScheduledSessionResponse{
		ID:            s.ID,
		InterviewType: s.InterviewType,
		PracticeType:  s.PracticeType,
		Level:         s.Level,
		ScheduledAt:   s.ScheduledAt,
		Status:        s.Status,
		QuestionID:    s.QuestionID,
	}
}

func newLiveSessionResponse(s models.LiveSession) *LiveSessionResponse {
	var participants []ParticipantResponse
	for _, p := range s.Participants {
		participants = append(participants, ParticipantResponse{
			UserID: p.UserID,
			Role:   p.Role,
			Active: p.Active,
		})
	}

	return &LiveSessionResponse{
		ID:                s.ID,
		Status:            s.Status,
		FirstQuestionID:   s.FirstQuestionID,
		SecondQuestionID:  s.SecondQuestionID,
		CurrentQuestionID: s.CurrentQuestionID,
		StartedAt:         s.StartedAt,
		EndedAt:           s.EndedAt,
		Participants:      participants,
	}
}

func loadLiveSession(id uint) (*LiveSessionResponse, error) {
	var session models.LiveSession
	if err := database.DB.Preload("Participants").First(&session, id).Error; err != nil {
		return nil, err
	}
	return newLiveSessionResponse(session), nil
}

// endregion

// CreateScheduledSession godoc
// @Summary      Schedule an interview
// @Description  Declares the user's intent to hold a mock interview of the given type and level.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body ScheduledSessionInput true "Session info"
// @Success      201 {object} ScheduledSessionResponse
// @Failure      400 {object} ErrorResponse
// @Router       /sessions [post]
func CreateScheduledSession(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input ScheduledSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := models.ScheduledSession{
		UserID:        userID.(uint),
		InterviewType: input.InterviewType,
		PracticeType:  input.PracticeType,
		Level:         input.Level,
		ScheduledAt:   input.ScheduledAt,
		Status:        models.ScheduledStatusScheduled,
		QuestionID:    input.QuestionID,
	}
	if err := database.DB.Create(&session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, newScheduledSessionResponse(session))
}

// GetScheduledSession godoc
// @Summary      Get a scheduled session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} ScheduledSessionResponse
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id} [get]
func GetScheduledSession(c *gin.Context) {
	userID, _ := c.Get("userID")
	sessionID, _ := strconv.Atoi(c.Param("id"))

	var session models.ScheduledSession
	if err := database.DB.First(&session, sessionID).Error; err != nil || session.UserID != userID.(uint) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.JSON(http.StatusOK, newScheduledSessionResponse(session))
}

// findParticipant returns the live session and the caller's participant row,
// or writes the error response and returns ok=false.
func findParticipant(c *gin.Context, sessionID int) (*models.LiveSession, *models.SessionParticipant, bool) {
	userID, _ := c.Get("userID")

	var session models.LiveSession
	if err := database.DB.Preload("Participants").First(&session, sessionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Live session not found"})
		return nil, nil, false
	}

	for i := range session.Participants {
		if session.Participants[i].UserID == userID.(uint) {
			return &session, &session.Participants[i], true
		}
	}

	c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this session"})
	return nil, nil, false
}

// GetLiveSession godoc
// @Summary      Get a live interview session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Live session ID"
// @Success      200 {object} LiveSessionResponse
// @Failure      404 {object} ErrorResponse "Live session not found"
// @Failure      403 {object} ErrorResponse "Not a participant"
// @Router       /sessions/live/{id} [get]
func GetLiveSession(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))

	session, _, ok := findParticipant(c, sessionID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, newLiveSessionResponse(*session))
}

// SwitchRoles godoc
// @Summary      Swap interviewer and interviewee roles
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Live session ID"
// @Success      200 {object} LiveSessionResponse
// @Failure      409 {object} ErrorResponse "Session is not in progress"
// @Router       /sessions/live/{id}/switch-roles [post]
func SwitchRoles(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))

	session, _, ok := findParticipant(c, sessionID)
	if !ok {
		return
	}
	if session.Status != models.LiveSessionInProgress {
		c.JSON(http.StatusConflict, gin.H{"error": "Session is not in progress"})
		return
	}

	tx := database.DB.Begin()
	for _, p := range session.Participants {
		role := models.RoleInterviewer
		if p.Role == models.RoleInterviewer {
			role = models.RoleInterviewee
		}
		if err := tx.Model(&models.SessionParticipant{}).Where("id = ?", p.ID).Update("role", role).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to switch roles"})
			return
		}
	}
	tx.Commit()

	resp, err := loadLiveSession(session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload session"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// NextQuestion godoc
// @Summary      Advance to the second assigned question
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Live session ID"
// @Success      200 {object} LiveSessionResponse
// @Failure      409 {object} ErrorResponse "Session is not in progress"
// @Router       /sessions/live/{id}/next-question [post]
func NextQuestion(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))

	session, _, ok := findParticipant(c, sessionID)
	if !ok {
		return
	}
	if session.Status != models.LiveSessionInProgress {
		c.JSON(http.StatusConflict, gin.H{"error": "Session is not in progress"})
		return
	}

	if err := database.DB.Model(session).Update("current_question_id", session.SecondQuestionID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to advance question"})
		return
	}

	resp, err := loadLiveSession(session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload session"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EndLiveSession godoc
// @Summary      Leave a live interview session
// @Description  Marks the caller inactive. When both participants have left, the session completes.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Live session ID"
// @Success      200 {object} LiveSessionResponse
// @Router       /sessions/live/{id}/end [post]
func EndLiveSession(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))

	session, participant, ok := findParticipant(c, sessionID)
	if !ok {
		return
	}

	tx := database.DB.Begin()

	if err := tx.Model(&models.SessionParticipant{}).Where("id = ?", participant.ID).Update("active", false).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave session"})
		return
	}

	// If the other participant already left, the interview is over.
	otherActive := false
	for _, p := range session.Participants {
		if p.ID != participant.ID && p.Active {
			otherActive = true
		}
	}
	if !otherActive && session.Status == models.LiveSessionInProgress {
		now := time.Now()
		err := tx.Model(session).Updates(map[string]interface{}{
			"status":   models.LiveSessionCompleted,
			"ended_at": now,
		}).Error
		if err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete session"})
			return
		}
		err = tx.Model(&models.ScheduledSession{}).
			Where("id = ?", session.ScheduledSessionID).
			Update("status", models.ScheduledStatusCompleted).Error
		if err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete scheduled session"})
			return
		}
	}

	tx.Commit()

	resp, err := loadLiveSession(session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload session"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
