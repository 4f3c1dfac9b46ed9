package matching

import (
	"context"
	"errors"
	"time"

	"mockmate/backend/internal/hub"
	"mockmate/backend/internal/metrics"
	"mockmate/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TryMatch attempts to pair the given pending request with the oldest
// compatible waiter. Candidates share interview type, practice type and
// calendar day; an exact level match is preferred, otherwise the oldest
// candidate is taken regardless of level. Pairing is provisional: no live
// session exists until both sides confirm.
//
// Safe to call redundantly; returns whether a match was made.
func (s *Service) TryMatch(ctx context.Context, requestID uint) (bool, error) {
	now := s.now()
	s.sweepExpired(ctx, now)

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return false, tx.Error
	}

	var req models.MatchingRequest
	if err := tx.First(&req, requestID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrRequestNotFound
		}
		return false, err
	}
	if req.Status != models.MatchingStatusPending {
		tx.Rollback()
		return false, nil
	}

	dayStart := time.Date(req.TargetDate.Year(), req.TargetDate.Month(), req.TargetDate.Day(), 0, 0, 0, 0, req.TargetDate.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var candidates []models.MatchingRequest
	err := tx.Where(
		"status = ? AND id <> ? AND user_id <> ? AND interview_type = ? AND practice_type = ? AND expires_at > ? AND target_date >= ? AND target_date < ?",
		models.MatchingStatusPending, req.ID, req.UserID, req.InterviewType, req.PracticeType, now, dayStart, dayEnd,
	).Order("created_at asc").Find(&candidates).Error
	if err != nil {
		tx.Rollback()
		return false, err
	}
	if len(candidates) == 0 {
		tx.Rollback()
		return false, nil
	}

	// Oldest waiter with the same level wins; otherwise the oldest overall
	// is a soft match.
	partner := candidates[0]
	for _, c := range candidates {
		if c.Level == req.Level {
			partner = c
			break
		}
	}

	matchID := uuid.New().String()
	if ok, err := s.pairRows(tx, &req, &partner, matchID, now); !ok {
		tx.Rollback()
		return false, err
	}

	if err := tx.Commit().Error; err != nil {
		return false, err
	}

	metrics.PairsMatched.Inc()
	notifyPair(hub.Event{Type: hub.EventMatchFound, Payload: map[string]interface{}{
		"matchId":   matchID,
		"expiresIn": int(ConfirmWindow.Seconds()),
	}}, req.UserID, partner.UserID)

	return true, nil
}

// pairRows transitions both rows pending -> matched with symmetric partner
// references. The status guard on each update makes a concurrent matcher
// racing on the same pool lose cleanly instead of double-pairing.
func (s *Service) pairRows(tx *gorm.DB, a, b *models.MatchingRequest, matchID string, now time.Time) (bool, error) {
	sides := []struct {
		row     *models.MatchingRequest
		partner uint
	}{
		{a, b.ID},
		{b, a.ID},
	}

	for _, side := range sides {
		res := tx.Model(&models.MatchingRequest{}).
			Where("id = ? AND status = ?", side.row.ID, models.MatchingStatusPending).
			Updates(map[string]interface{}{
				"status":             models.MatchingStatusMatched,
				"match_id":           matchID,
				"partner_request_id": side.partner,
				"matched_at":         now,
				"confirmed":          false,
				"last_transition_at": now,
			})
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected != 1 {
			return false, nil
		}
	}
	return true, nil
}

// sweepExpired marks pending rows past their queue timeout as expired.
// Redundant sweeps are harmless.
func (s *Service) sweepExpired(ctx context.Context, now time.Time) {
	res := s.db.WithContext(ctx).Model(&models.MatchingRequest{}).
		Where("status = ? AND expires_at <= ?", models.MatchingStatusPending, now).
		Updates(map[string]interface{}{
			"status":             models.MatchingStatusExpired,
			"last_transition_at": now,
		})
	if res.RowsAffected > 0 {
		metrics.QueueSweepExpired.Add(float64(res.RowsAffected))
	}
}
