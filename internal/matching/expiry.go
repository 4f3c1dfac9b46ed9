package matching

import (
	"context"
	"errors"
	"log"

	"mockmate/backend/internal/hub"
	"mockmate/backend/internal/metrics"
	"mockmate/backend/internal/models"

	"gorm.io/gorm"
)

// ExpireIfNotConfirmed terminates a pairing whose confirmation window has
// lapsed without both sides acknowledging, then re-queues whichever sides are
// still present. No-op (false) when the row is not matched, the window has
// not lapsed, or both sides already confirmed by the time we re-check.
func (s *Service) ExpireIfNotConfirmed(ctx context.Context, requestID, userID uint) (bool, error) {
	db := s.db.WithContext(ctx)

	var req models.MatchingRequest
	if err := db.First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if req.UserID != userID || req.Status != models.MatchingStatusMatched || req.PartnerRequestID == nil {
		return false, nil
	}
	if s.now().Sub(req.LastTransitionAt) < ConfirmWindow {
		return false, nil
	}

	var partner models.MatchingRequest
	if err := db.First(&partner, *req.PartnerRequestID).Error; err != nil {
		return false, err
	}

	// Race-safe: the pair may have completed between the caller's countdown
	// firing and this call landing.
	if req.Confirmed && partner.Confirmed {
		return false, nil
	}

	expired, err := s.expirePair(ctx, req, partner)
	if err != nil || !expired {
		return false, err
	}

	s.requeue(ctx, req, partner)
	return true, nil
}

// ExpireOnDisconnect terminates every pairing the user is currently matched
// into. Disconnection is immediate evidence of abandonment, so the
// confirmation-window grace does not apply. Still-present partners are
// re-queued. Returns whether anything was expired.
func (s *Service) ExpireOnDisconnect(ctx context.Context, userID uint) (bool, error) {
	db := s.db.WithContext(ctx)

	var rows []models.MatchingRequest
	err := db.Where("user_id = ? AND status = ?", userID, models.MatchingStatusMatched).Find(&rows).Error
	if err != nil {
		return false, err
	}

	didExpire := false
	for _, req := range rows {
		if req.PartnerRequestID == nil {
			continue
		}
		var partner models.MatchingRequest
		if err := db.First(&partner, *req.PartnerRequestID).Error; err != nil {
			return didExpire, err
		}

		expired, err := s.expirePair(ctx, req, partner)
		if err != nil {
			return didExpire, err
		}
		if expired {
			didExpire = true
			s.requeue(ctx, req, partner)
		}
	}

	return didExpire, nil
}

// ExpireAllForSession is the deliberate give-up signal: the user closed the
// waiting screen. Every non-terminal, non-confirmed request of theirs for the
// session is cancelled, a paired partner's row is expired to keep the pairing
// symmetric, and nobody is re-queued.
func (s *Service) ExpireAllForSession(ctx context.Context, scheduledSessionID, userID uint) error {
	db := s.db.WithContext(ctx)

	var rows []models.MatchingRequest
	err := db.Where("user_id = ? AND scheduled_session_id = ? AND status IN ?",
		userID, scheduledSessionID,
		[]string{models.MatchingStatusPending, models.MatchingStatusMatched}).Find(&rows).Error
	if err != nil {
		return err
	}

	now := s.now()
	for _, req := range rows {
		tx := db.Begin()
		if tx.Error != nil {
			return tx.Error
		}

		res := tx.Model(&models.MatchingRequest{}).
			Where("id = ? AND status = ?", req.ID, req.Status).
			Updates(map[string]interface{}{
				"status":             models.MatchingStatusCancelled,
				"last_transition_at": now,
			})
		if res.Error != nil {
			tx.Rollback()
			return res.Error
		}
		if res.RowsAffected != 1 {
			tx.Rollback()
			continue
		}

		if req.Status == models.MatchingStatusMatched && req.PartnerRequestID != nil {
			res = tx.Model(&models.MatchingRequest{}).
				Where("id = ? AND status = ?", *req.PartnerRequestID, models.MatchingStatusMatched).
				Updates(map[string]interface{}{
					"status":             models.MatchingStatusExpired,
					"last_transition_at": now,
				})
			if res.Error != nil {
				tx.Rollback()
				return res.Error
			}
			if res.RowsAffected == 1 {
				var partner models.MatchingRequest
				if err := tx.First(&partner, *req.PartnerRequestID).Error; err == nil {
					hub.GlobalHub.Notify(partner.UserID, hub.Event{Type: hub.EventExpired})
				}
			}
		}

		if err := tx.Commit().Error; err != nil {
			return err
		}
		hub.GlobalHub.Notify(userID, hub.Event{Type: hub.EventCancelled})
	}

	return nil
}

// expirePair transitions both rows matched -> expired in one transaction.
// The status guards make it lose cleanly against a racing confirm commit.
func (s *Service) expirePair(ctx context.Context, a, b models.MatchingRequest) (bool, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return false, tx.Error
	}

	now := s.now()
	for _, id := range []uint{a.ID, b.ID} {
		res := tx.Model(&models.MatchingRequest{}).
			Where("id = ? AND status = ?", id, models.MatchingStatusMatched).
			Updates(map[string]interface{}{
				"status":             models.MatchingStatusExpired,
				"last_transition_at": now,
			})
		if res.Error != nil {
			tx.Rollback()
			return false, res.Error
		}
		if res.RowsAffected != 1 {
			tx.Rollback()
			return false, nil
		}
	}

	if err := tx.Commit().Error; err != nil {
		return false, err
	}

	metrics.PairsExpired.Inc()
	notifyPair(hub.Event{Type: hub.EventExpired, Payload: map[string]interface{}{
		"matchId": a.MatchID,
	}}, a.UserID, b.UserID)

	return true, nil
}

// expirePairAndRequeue is the recovery path for a confirmation that failed
// on question resourcing: the pair must not stay matched against an
// unservable catalog.
func (s *Service) expirePairAndRequeue(ctx context.Context, requestID uint) {
	db := s.db.WithContext(ctx)

	var req models.MatchingRequest
	if err := db.First(&req, requestID).Error; err != nil || req.PartnerRequestID == nil {
		return
	}
	var partner models.MatchingRequest
	if err := db.First(&partner, *req.PartnerRequestID).Error; err != nil {
		return
	}

	expired, err := s.expirePair(ctx, req, partner)
	if err != nil || !expired {
		return
	}
	s.requeue(ctx, req, partner)
}

// requeue re-inserts still-present users after a pair expiry. A side that
// had already confirmed keeps its original CreatedAt, which is the priority
// carry-forward: FIFO ordering now treats them as waiting since their first
// queue entry. A side that never confirmed starts over at the back.
func (s *Service) requeue(ctx context.Context, rows ...models.MatchingRequest) {
	now := s.now()
	for _, r := range rows {
		if !s.presence.IsActive(ctx, r.UserID, r.ScheduledSessionID) {
			continue
		}

		createdAt := now
		if r.Confirmed {
			createdAt = r.CreatedAt
		}

		fresh := models.MatchingRequest{
			UserID:             r.UserID,
			ScheduledSessionID: r.ScheduledSessionID,
			InterviewType:      r.InterviewType,
			PracticeType:       r.PracticeType,
			Level:              r.Level,
			TargetDate:         r.TargetDate,
			Status:             models.MatchingStatusPending,
			LastTransitionAt:   now,
			ExpiresAt:          now.Add(QueueTimeout),
		}
		fresh.CreatedAt = createdAt

		if err := s.db.WithContext(ctx).Create(&fresh).Error; err != nil {
			log.Printf("Failed to re-queue user %d: %v", r.UserID, err)
			continue
		}

		metrics.RequestsRequeued.Inc()
		hub.GlobalHub.Notify(r.UserID, hub.Event{Type: hub.EventRequeued, Payload: map[string]interface{}{
			"requestId": fresh.ID,
		}})

		if _, err := s.TryMatch(ctx, fresh.ID); err != nil {
			log.Printf("Re-queue match attempt failed for user %d: %v", r.UserID, err)
		}
	}
}
