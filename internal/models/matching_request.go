package models

import (
	"time"

	"gorm.io/gorm"
)

// Matching request lifecycle statuses.
const (
	MatchingStatusPending   = "pending"
	MatchingStatusMatched   = "matched"
	MatchingStatusConfirmed = "confirmed"
	MatchingStatusExpired   = "expired"
	MatchingStatusCancelled = "cancelled"
)

// ActiveMatchingStatuses are the non-terminal-for-enqueue statuses: a user may
// hold at most one request in any of these per scheduled session.
var ActiveMatchingStatuses = []string{MatchingStatusPending, MatchingStatusMatched, MatchingStatusConfirmed}

// MatchingRequest is one ledger entry in the matching queue. Rows are never
// deleted; expired and cancelled rows remain as history.
//
// CreatedAt is the FIFO ordinal. On a priority requeue it is set explicitly
// to the original row's CreatedAt, which is what places a let-down confirmer
// ahead of newer waiters.
type MatchingRequest struct {
	gorm.Model
	UserID             uint   `gorm:"not null;index"`
	ScheduledSessionID uint   `gorm:"not null;index"`
	InterviewType      string `gorm:"size:100;not null;index"`
	PracticeType       string `gorm:"size:50;not null"`
	Level              string `gorm:"size:50;not null"`
	TargetDate         time.Time

	Status string `gorm:"size:20;not null;default:'pending';index"`

	// Pairing state. MatchID and MatchedAt are shared by both sides of a
	// pair; PartnerRequestID points at the partner's ledger row.
	MatchID          string `gorm:"size:36"`
	PartnerRequestID *uint
	MatchedAt        *time.Time
	Confirmed        bool `gorm:"not null;default:false"`

	// Set only when both sides confirmed and the live session committed.
	LiveSessionID *uint

	// LastTransitionAt starts the confirmation-window clock on pairing.
	// ExpiresAt is the absolute queue timeout for an unmatched request.
	LastTransitionAt time.Time
	ExpiresAt        time.Time
}

// IsActive reports whether the request still occupies the user's slot for
// its scheduled session.
func (r *MatchingRequest) IsActive() bool {
	return r.Status == MatchingStatusPending || r.Status == MatchingStatusMatched || r.Status == MatchingStatusConfirmed
}
