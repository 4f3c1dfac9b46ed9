package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mockmate/backend/internal/hub"
	"mockmate/backend/internal/metrics"
	"mockmate/backend/internal/models"
	"mockmate/backend/internal/presence"

	"gorm.io/gorm"
)

const (
	// ConfirmWindow is the grace period after pairing during which both
	// sides must acknowledge readiness.
	ConfirmWindow = 15 * time.Second

	// QueueTimeout is the absolute expiry on an unmatched pending request.
	QueueTimeout = 10 * time.Minute
)

// Service owns the matching-request ledger and every state transition on it.
// All multi-row transitions run inside a single transaction with guarded
// conditional updates, so concurrent callers cannot double-pair a user or
// commit two live sessions for one pair.
type Service struct {
	db       *gorm.DB
	presence presence.Oracle

	// now is swappable so tests can move the clock.
	now func() time.Time
}

// NewService creates a matching service on top of the given database and
// presence oracle.
func NewService(db *gorm.DB, oracle presence.Oracle) *Service {
	return &Service{
		db:       db,
		presence: oracle,
		now:      time.Now,
	}
}

// Enqueue creates a pending matching request for the user's scheduled
// session, or returns the existing active one unchanged. A new request is
// only created while the presence oracle reports the user on the waiting
// screen.
func (s *Service) Enqueue(ctx context.Context, userID, scheduledSessionID uint) (*models.MatchingRequest, error) {
	db := s.db.WithContext(ctx)

	var sched models.ScheduledSession
	if err := db.First(&sched, scheduledSessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sched.Status == models.ScheduledStatusCancelled {
		return nil, fmt.Errorf("%w: scheduled session is cancelled", ErrInvalidState)
	}
	if sched.UserID != userID {
		return nil, ErrSessionNotFound
	}

	// Idempotent start: at most one active request per (user, session).
	var existing models.MatchingRequest
	err := db.Where("user_id = ? AND scheduled_session_id = ? AND status IN ?",
		userID, scheduledSessionID, models.ActiveMatchingStatuses).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if !s.presence.IsActive(ctx, userID, scheduledSessionID) {
		return nil, ErrNotPresent
	}

	now := s.now()
	req := models.MatchingRequest{
		UserID:             userID,
		ScheduledSessionID: scheduledSessionID,
		InterviewType:      sched.InterviewType,
		PracticeType:       sched.PracticeType,
		Level:              sched.Level,
		TargetDate:         sched.ScheduledAt,
		Status:             models.MatchingStatusPending,
		LastTransitionAt:   now,
		ExpiresAt:          now.Add(QueueTimeout),
	}
	req.CreatedAt = now
	if err := db.Create(&req).Error; err != nil {
		return nil, err
	}

	metrics.RequestsEnqueued.Inc()
	return &req, nil
}

// GetActive returns the user's active request for the session, lazily
// running the matcher first if the request is still pending so polling
// callers always see the freshest pairing state. Returns ErrRequestNotFound
// when no active request exists.
func (s *Service) GetActive(ctx context.Context, userID, scheduledSessionID uint) (*models.MatchingRequest, error) {
	db := s.db.WithContext(ctx)

	var req models.MatchingRequest
	err := db.Where("user_id = ? AND scheduled_session_id = ? AND status IN ?",
		userID, scheduledSessionID, models.ActiveMatchingStatuses).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if req.Status == models.MatchingStatusPending {
		if _, err := s.TryMatch(ctx, req.ID); err != nil {
			return nil, err
		}
		if err := db.First(&req, req.ID).Error; err != nil {
			return nil, err
		}
	}

	return &req, nil
}

// notifyPair pushes a hub event to both sides of a pair.
func notifyPair(event hub.Event, users ...uint) {
	for _, u := range users {
		hub.GlobalHub.Notify(u, event)
	}
}
