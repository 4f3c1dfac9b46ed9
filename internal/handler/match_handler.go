package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"mockmate/backend/internal/hub"
	"mockmate/backend/internal/matching"
	"mockmate/backend/internal/models"
	"mockmate/backend/internal/presence"

	"github.com/gin-gonic/gin"
)

// Matching is the shared matching service, set once at startup.
var Matching *matching.Service

// Presence is the shared presence tracker, set once at startup.
var Presence *presence.Tracker

// Init wires the handlers to their collaborators.
func Init(svc *matching.Service, tracker *presence.Tracker) {
	Matching = svc
	Presence = tracker
}

// region --- DTOs ---

type StartMatchingInput struct {
	ScheduledSessionID uint `json:"scheduled_session_id" binding:"required"`
}

type MatchingRequestResponse struct {
	ID                 uint       `json:"id"`
	ScheduledSessionID uint       `json:"scheduled_session_id"`
	InterviewType      string     `json:"interview_type"`
	PracticeType       string     `json:"practice_type"`
	Level              string     `json:"level"`
	Status             string     `json:"status"`
	MatchID            string     `json:"match_id,omitempty"`
	Confirmed          bool       `json:"confirmed"`
	MatchedAt          *time.Time `json:"matched_at,omitempty"`
	LiveSessionID      *uint      `json:"live_session_id,omitempty"`
	ExpiresAt          time.Time  `json:"expires_at"`
}

type StartMatchingResponse struct {
	Request MatchingRequestResponse `json:"request"`
	Matched bool                    `json:"matched"`
	Session *LiveSessionResponse    `json:"session,omitempty"`
}

type ConfirmResponse struct {
	Request   MatchingRequestResponse `json:"request"`
	Completed bool                    `json:"completed"`
	Session   *LiveSessionResponse    `json:"session,omitempty"`
}

type ExpireResponse struct {
	Expired bool `json:"expired"`
}

func newMatchingRequestResponse(req models.MatchingRequest) MatchingRequestResponse {
	return MatchingRequestResponse{
		ID:                 req.ID,
		ScheduledSessionID: req.ScheduledSessionID,
		InterviewType:      req.InterviewType,
		PracticeType:       req.PracticeType,
		Level:              req.Level,
		Status:             req.Status,
		MatchID:            req.MatchID,
		Confirmed:          req.Confirmed,
		MatchedAt:          req.MatchedAt,
		LiveSessionID:      req.LiveSessionID,
		ExpiresAt:          req.ExpiresAt,
	}
}

// endregion

// matchingError maps matching service errors to HTTP responses.
func matchingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, matching.ErrRequestNotFound), errors.Is(err, matching.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, matching.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, matching.ErrNotPresent):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	case errors.Is(err, matching.ErrNoQuestions):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// StartMatching godoc
// @Summary      Start matching for a scheduled session
// @Description  Enqueues the user (idempotent while a request is active) and immediately attempts a pairing.
// @Tags         matching
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body StartMatchingInput true "Scheduled session"
// @Success      200  {object}  StartMatchingResponse
// @Failure      404  {object}  ErrorResponse "Scheduled session not found"
// @Failure      409  {object}  ErrorResponse "Session is cancelled"
// @Failure      412  {object}  ErrorResponse "User is not on the waiting screen"
// @Router       /matching/start [post]
func StartMatching(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input StartMatchingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := Matching.Enqueue(c.Request.Context(), userID.(uint), input.ScheduledSessionID)
	if err != nil {
		matchingError(c, err)
		return
	}

	if req.Status == models.MatchingStatusPending {
		if _, err := Matching.TryMatch(c.Request.Context(), req.ID); err != nil {
			matchingError(c, err)
			return
		}
		req, err = Matching.GetActive(c.Request.Context(), userID.(uint), input.ScheduledSessionID)
		if err != nil {
			matchingError(c, err)
			return
		}
	}

	resp := StartMatchingResponse{
		Request: newMatchingRequestResponse(*req),
		Matched: req.Status == models.MatchingStatusMatched || req.Status == models.MatchingStatusConfirmed,
	}
	if req.LiveSessionID != nil {
		if session, err := loadLiveSession(*req.LiveSessionID); err == nil {
			resp.Session = session
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetMatchStatus godoc
// @Summary      Poll matching status
// @Description  Returns the user's active matching request for a scheduled session, running the matcher lazily on pending requests.
// @Tags         matching
// @Produce      json
// @Security     BearerAuth
// @Param        scheduled_session_id query int true "Scheduled session ID"
// @Success      200 {object} MatchingRequestResponse
// @Failure      404 {object} ErrorResponse "No active request"
// @Router       /matching/status [get]
func GetMatchStatus(c *gin.Context) {
	userID, _ := c.Get("userID")
	sessionID, err := strconv.Atoi(c.Query("scheduled_session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_session_id required"})
		return
	}

	req, err := Matching.GetActive(c.Request.Context(), userID.(uint), uint(sessionID))
	if err != nil {
		matchingError(c, err)
		return
	}

	c.JSON(http.StatusOK, newMatchingRequestResponse(*req))
}

// ConfirmMatch godoc
// @Summary      Confirm readiness for a pairing
// @Description  Acknowledges this side of a matched pair. When both sides have confirmed, the live session is committed and returned.
// @Tags         matching
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Matching request ID"
// @Success      200 {object} ConfirmResponse
// @Failure      404 {object} ErrorResponse "Request not found or not owned"
// @Failure      409 {object} ErrorResponse "Request is not awaiting confirmation"
// @Failure      503 {object} ErrorResponse "No questions available"
// @Router       /matching/{id}/confirm [post]
func ConfirmMatch(c *gin.Context) {
	userID, _ := c.Get("userID")
	requestID, _ := strconv.Atoi(c.Param("id"))

	result, err := Matching.Confirm(c.Request.Context(), uint(requestID), userID.(uint))
	if err != nil {
		matchingError(c, err)
		return
	}

	resp := ConfirmResponse{
		Request:   newMatchingRequestResponse(result.Request),
		Completed: result.Completed,
	}
	if result.Session != nil {
		resp.Session = newLiveSessionResponse(*result.Session)
	}

	c.JSON(http.StatusOK, resp)
}

// ExpireMatch godoc
// @Summary      Expire a pairing whose confirmation window lapsed
// @Description  Called by the client countdown. Expires the pair if 15 seconds passed without double confirmation; still-present users are re-queued with priority.
// @Tags         matching
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Matching request ID"
// @Success      200 {object} ExpireResponse
// @Router       /matching/{id}/expire [post]
func ExpireMatch(c *gin.Context) {
	userID, _ := c.Get("userID")
	requestID, _ := strconv.Atoi(c.Param("id"))

	expired, err := Matching.ExpireIfNotConfirmed(c.Request.Context(), uint(requestID), userID.(uint))
	if err != nil {
		matchingError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExpireResponse{Expired: expired})
}

// Disconnect godoc
// @Summary      Report a disconnection
// @Description  Expires every pairing the user is matched into, with no grace period, and re-queues still-present partners.
// @Tags         matching
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} ExpireResponse
// @Router       /matching/disconnect [post]
func Disconnect(c *gin.Context) {
	userID, _ := c.Get("userID")

	expired, err := Matching.ExpireOnDisconnect(c.Request.Context(), userID.(uint))
	if err != nil {
		matchingError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExpireResponse{Expired: expired})
}

// CancelMatching godoc
// @Summary      Give up waiting for a match
// @Description  Cancels all of the user's active, unconfirmed requests for the session. Nobody is re-queued.
// @Tags         matching
// @Produce      json
// @Security     BearerAuth
// @Param        scheduled_session_id query int true "Scheduled session ID"
// @Success      200 {object} map[string]string "{"message": "Matching cancelled"}"
// @Router       /matching/cancel [post]
func CancelMatching(c *gin.Context) {
	userID, _ := c.Get("userID")
	sessionID, err := strconv.Atoi(c.Query("scheduled_session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_session_id required"})
		return
	}

	if err := Matching.ExpireAllForSession(c.Request.Context(), uint(sessionID), userID.(uint)); err != nil {
		matchingError(c, err)
		return
	}

	Presence.Clear(c.Request.Context(), userID.(uint), uint(sessionID))
	c.JSON(http.StatusOK, gin.H{"message": "Matching cancelled"})
}

// Heartbeat godoc
// @Summary      Refresh waiting-screen presence
// @Description  Marks the user as actively waiting for the session. Clients without a websocket call this periodically.
// @Tags         matching
// @Produce      json
// @Security     BearerAuth
// @Param        scheduled_session_id query int true "Scheduled session ID"
// @Success      200 {object} map[string]string "{"message": "ok"}"
// @Router       /matching/heartbeat [post]
func Heartbeat(c *gin.Context) {
	userID, _ := c.Get("userID")
	sessionID, err := strconv.Atoi(c.Query("scheduled_session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_session_id required"})
		return
	}

	if err := Presence.Touch(c.Request.Context(), userID.(uint), uint(sessionID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record presence"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// MatchEvents godoc
// @Summary      Stream match lifecycle events
// @Description  Server-sent events: match_found, match_confirmed, requeued, expired, cancelled.
// @Tags         matching
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200 {string} string "event stream"
// @Router       /matching/events [get]
func MatchEvents(c *gin.Context) {
	userID, _ := c.Get("userID")

	client := make(hub.Client, 8)
	hub.GlobalHub.Subscribe(userID.(uint), client)
	defer hub.GlobalHub.Unsubscribe(userID.(uint), client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
