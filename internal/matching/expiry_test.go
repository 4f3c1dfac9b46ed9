package matching

import (
	"context"
	"testing"
	"time"

	"mockmate/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpireBeforeWindowLapsesIsNoOp(t *testing.T) {
	svc, db, oracle, clock := newTestService(t)
	ctx := context.Background()

	reqA, reqB := pairUsers(t, svc, oracle, clock, 1, 2)

	clock.Advance(ConfirmWindow - time.Second)
	expired, err := svc.ExpireIfNotConfirmed(ctx, reqA.ID, 1)
	require.NoError(t, err)

	assert.False(t, expired)
	assert.Equal(t, models.MatchingStatusMatched, reload(t, db, reqA.ID).Status)
	assert.Equal(t, models.MatchingStatusMatched, reload(t, db, reqB.ID).Status)
}

func TestExpireAfterWindowKeepsConfirmerPriority(t *testing.T) {
	svc, db, oracle, clock := newTestService(t)
	ctx := context.Background()

	reqA, reqB := pairUsers(t, svc, oracle, clock, 1, 2)

	_, err := svc.Confirm(ctx, reqA.ID, 1)
	require.NoError(t, err)

	// The partner walked away without confirming.
	oracle.set(2, reqB.ScheduledSessionID, false)

	clock.Advance(ConfirmWindow + time.Second)
	expired, err := svc.ExpireIfNotConfirmed(ctx, reqA.ID, 1)
	require.NoError(t, err)
	assert.True(t, expired)

	assert.Equal(t, models.MatchingStatusExpired, reload(t, db, reqA.ID).Status)
	assert.Equal(t, models.MatchingStatusExpired, reload(t, db, reqB.ID).Status)

	// The confirmer re-enters the queue dated from their first entry.
	var fresh models.MatchingRequest
	err = db.Where("user_id = ? AND status = ?", 1, models.MatchingStatusPending).First(&fresh).Error
	require.NoError(t, err)
	assert.Equal(t, reqA.CreatedAt, fresh.CreatedAt)
	assert.Equal(t, clock.Now().Add(QueueTimeout), fresh.ExpiresAt.UTC())

	// The absent partner is not resurrected.
	var count int64
	db.Model(&models.MatchingRequest{}).Where("user_id = ?", 2).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestExpireUnconfirmedSideRestartsAtBack(t *testing.T) {
	svc, db, oracle, clock := newTestService(t)
	ctx := context.Background()

	reqA, reqB := pairUsers(t, svc, oracle, clock, 1, 2)
	oracle.set(1, reqA.ScheduledSessionID, false)

	clock.Advance(ConfirmWindow + time.Second)
	expired, err := svc.ExpireIfNotConfirmed(ctx, reqB.ID, 2)
	require.NoError(t, err)
	require.True(t, expired)

	// Never confirmed: the fresh row is dated now, not at the original entry.
	var fresh models.MatchingRequest
	err = db.Where("user_id = ? AND status = ?", 2, models.MatchingStatusPending).First(&fresh).Error
	require.NoError(t, err)
	assert.True(t, fresh.CreatedAt.After(reqB.CreatedAt))
	assert.Equal(t, clock.Now(), fresh.CreatedAt.UTC())
}

func TestExpireIgnoresForeignAndUnmatchedRows(t *testing.T) {
	svc, _, oracle, clock := newTestService(t)
	ctx := context.Background()

	pending := enqueueUser(t, svc, oracle, clock, 1, "junior")

	expired, err := svc.ExpireIfNotConfirmed(ctx, pending.ID, 1)
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = svc.ExpireIfNotConfirmed(ctx, 999, 1)
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestExpireRejectsNonOwner(t *testing.T) {
	svc, db, oracle, clock := newTestService(t)
	ctx := context.Background()

	reqA, reqB := pairUsers(t, svc, oracle, clock, 1, 2)

	clock.Advance(ConfirmWindow + time.Second)
	expired, err := svc.ExpireIfNotConfirmed(ctx, reqA.ID, 2)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, models.MatchingStatusMatched, reload(t, db, reqB.ID).Status)
}

func TestExpireLosesToCompletedPair(t *testing.T) {
	svc, db, oracle, clock := newTestService(t)
	ctx := context.Background()

	reqA, reqB := pairUsers(t, svc, oracle, clock, 1, 2)

	// Both acknowledgments landed; the commit is about to finish elsewhere.
	require.NoError(t, db.Model(&models.MatchingRequest{}).
		Where("id IN ?", []uint{reqA.ID, reqB.ID}).
		Update("confirmed", true).Error)

	clock.Advance(ConfirmWindow + time.Second)
	expired, err := svc.ExpireIfNotConfirmed(ctx, reqA.ID, 1)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, models.MatchingStatusMatched, reload(t, db, reqA.ID).Status)
}

func TestLetDownConfirmerOutranksNewcomers(t *testing.T) {
	svc, db, oracle, clock := newTestService(t)
	ctx := context.Background()

	reqA, reqB := pairUsers(t, svc, oracle, clock, 1, 2)

	_, err := svc.Confirm(ctx, reqA.ID, 1)
	require.NoError(t, err)
	oracle.set(2, reqB.ScheduledSessionID, false)

	clock.Advance(ConfirmWindow + time.Second)
	expired, err := svc.ExpireIfNotConfirmed(ctx, reqA.ID, 1)
	require.NoError(t, err)
	require.True(t, expired)

	// Ten newcomers join after the let-down.
	var last *models.MatchingRequest
	for userID := uint(3); userID <= 12; userID++ {
		last = enqueueUser(t, svc, oracle, clock, userID, "junior")
	}

	matched, err := svc.TryMatch(ctx, last.ID)
	require.NoError(t, err)
	require.True(t, matched)

	// The carried-forward waiter sorts ahead of every newcomer.
	var fresh models.MatchingRequest
	require.NoError(t, db.Where("user_id = ? AND status = ?", 1, models.MatchingStatusMatched).First(&fresh).Error)
	require.NotNil(t, fresh.PartnerRequestID)
	assert.Equal(t, last.ID, *fresh.PartnerRequestID)
}

func TestDisconnectExpiresWithoutGrace(t *testing.T) {
	svc, db, oracle, clock := newTestService(t)
	ctx := context.Background()

	reqA, reqB := pairUsers(t, svc, oracle, clock, 1, 2)

	// Presence drops before the expiry runs, mirroring the socket teardown.
	oracle.set(2, reqB.ScheduledSessionID, false)

	expired, err := svc.ExpireOnDisconnect(ctx, 2)
	require.NoError(t, err)
	assert.True(t, expired)

	assert.Equal(t, models.MatchingStatusExpired, reload(t, db, reqA.ID).Status)
	assert.Equal(t, models.MatchingStatusExpired, reload(t, db, reqB.ID).Status)

	// The abandoned partner goes straight back into the queue.
	var fresh models.MatchingRequest
	err = db.Where("user_id = ? AND status = ?", 1, models.MatchingStatusPending).First(&fresh).Error
	require.NoError(t, err)

	var count int64
	db.Model(&models.MatchingRequest{}).Where("user_id = ?", 2).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestDisconnectWithNoPairings(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	expired, err := svc.ExpireOnDisconnect(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestCancelPendingRequest(t *testing.T) {
	svc, db, oracle, clock := newTestService(t)
	ctx := context.Background()

	req := enqueueUser(t, svc, oracle, clock, 1, "junior")

	err := svc.ExpireAllForSession(ctx, req.ScheduledSessionID, 1)
	require.NoError(t, err)

	assert.Equal(t, models.MatchingStatusCancelled, reload(t, db, req.ID).Status)

	var count int64
	db.Model(&models.MatchingRequest{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestCancelWhileMatchedExpiresPartnerWithoutRequeue(t *testing.T) {
	svc, db, oracle, clock := newTestService(t)
	ctx := context.Background()

	reqA, reqB := pairUsers(t, svc, oracle, clock, 1, 2)

	err := svc.ExpireAllForSession(ctx, reqA.ScheduledSessionID, 1)
	require.NoError(t, err)

	assert.Equal(t, models.MatchingStatusCancelled, reload(t, db, reqA.ID).Status)
	assert.Equal(t, models.MatchingStatusExpired, reload(t, db, reqB.ID).Status)

	// Giving up is not a let-down expiry: nobody re-enters the queue, even
	// though both users are still present.
	var count int64
	db.Model(&models.MatchingRequest{}).Count(&count)
	assert.EqualValues(t, 2, count)
}
