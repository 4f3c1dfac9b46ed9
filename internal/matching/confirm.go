package matching

import (
	"context"
	"errors"
	"fmt"

	"mockmate/backend/internal/hub"
	"mockmate/backend/internal/metrics"
	"mockmate/backend/internal/models"

	"gorm.io/gorm"
)

// ConfirmResult is the outcome of a confirmation call.
type ConfirmResult struct {
	Request   models.MatchingRequest
	Completed bool
	Session   *models.LiveSession
}

// Confirm records the calling side's readiness acknowledgment. When this call
// observes both sides confirmed it commits the live session, transitions both
// rows to confirmed and marks the scheduled sessions in progress, all in one
// transaction. Confirming twice is a no-op. The side that confirms first
// receives Completed=false.
func (s *Service) Confirm(ctx context.Context, requestID, userID uint) (*ConfirmResult, error) {
	db := s.db.WithContext(ctx)

	var req models.MatchingRequest
	if err := db.First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.UserID != userID {
		return nil, ErrRequestNotFound
	}
	if req.Status != models.MatchingStatusMatched || req.PartnerRequestID == nil {
		return nil, fmt.Errorf("%w: request is not awaiting confirmation", ErrInvalidState)
	}

	// Flag this side first, outside the commit transaction, so a failed
	// session commit cannot erase the acknowledgment (it feeds the priority
	// carry-forward on a later expiry). The status guard keeps the flag off
	// rows a racing expiry already terminated.
	if !req.Confirmed {
		res := db.Model(&models.MatchingRequest{}).
			Where("id = ? AND status = ?", req.ID, models.MatchingStatusMatched).
			Update("confirmed", true)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected != 1 {
			return nil, fmt.Errorf("%w: request is not awaiting confirmation", ErrInvalidState)
		}
		req.Confirmed = true
	}

	var partner models.MatchingRequest
	if err := db.First(&partner, *req.PartnerRequestID).Error; err != nil {
		return nil, err
	}
	if !partner.Confirmed {
		return &ConfirmResult{Request: req, Completed: false}, nil
	}

	// Both sides acknowledged: materialize the live session and finalize
	// both rows as one atomic unit.
	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	session, err := s.createForPair(tx, &req, &partner)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, ErrNoQuestions) {
			// Do not leave the pair matched against an unservable catalog:
			// expire both sides and let still-present users re-queue with
			// their earned priority.
			s.expirePairAndRequeue(ctx, req.ID)
			return nil, err
		}
		return nil, err
	}

	now := s.now()
	for _, id := range []uint{req.ID, partner.ID} {
		res := tx.Model(&models.MatchingRequest{}).
			Where("id = ? AND status = ?", id, models.MatchingStatusMatched).
			Updates(map[string]interface{}{
				"status":             models.MatchingStatusConfirmed,
				"live_session_id":    session.ID,
				"last_transition_at": now,
			})
		if res.Error != nil {
			tx.Rollback()
			return nil, res.Error
		}
		if res.RowsAffected != 1 {
			// A concurrent confirm already committed this pair. Surface its
			// session rather than creating a second one.
			tx.Rollback()
			return s.committedResult(ctx, requestID)
		}
	}

	err = tx.Model(&models.ScheduledSession{}).
		Where("id IN ?", []uint{req.ScheduledSessionID, partner.ScheduledSessionID}).
		Update("status", models.ScheduledStatusInProgress).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	metrics.PairsConfirmed.Inc()
	notifyPair(hub.Event{Type: hub.EventMatchConfirmed, Payload: map[string]interface{}{
		"matchId":       req.MatchID,
		"liveSessionId": session.ID,
	}}, req.UserID, partner.UserID)

	req.Status = models.MatchingStatusConfirmed
	req.LiveSessionID = &session.ID
	req.LastTransitionAt = now
	return &ConfirmResult{Request: req, Completed: true, Session: session}, nil
}

// committedResult reloads a request after losing the commit race and returns
// the session the winning confirm created.
func (s *Service) committedResult(ctx context.Context, requestID uint) (*ConfirmResult, error) {
	db := s.db.WithContext(ctx)

	var req models.MatchingRequest
	if err := db.First(&req, requestID).Error; err != nil {
		return nil, err
	}
	if req.Status != models.MatchingStatusConfirmed || req.LiveSessionID == nil {
		return nil, fmt.Errorf("%w: pair was not committed", ErrInvalidState)
	}

	var session models.LiveSession
	if err := db.Preload("Participants").First(&session, *req.LiveSessionID).Error; err != nil {
		return nil, err
	}
	return &ConfirmResult{Request: req, Completed: true, Session: &session}, nil
}
