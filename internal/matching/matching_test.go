package matching

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mockmate/backend/internal/models"
	"mockmate/backend/internal/testhelpers"

	"gorm.io/gorm"
)

// fakePresence is an in-memory presence oracle. Users are absent unless
// marked present.
type fakePresence struct {
	active map[string]bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{active: make(map[string]bool)}
}

func (f *fakePresence) key(userID, sessionID uint) string {
	return fmt.Sprintf("%d:%d", userID, sessionID)
}

func (f *fakePresence) set(userID, sessionID uint, present bool) {
	f.active[f.key(userID, sessionID)] = present
}

func (f *fakePresence) IsActive(_ context.Context, userID, sessionID uint) bool {
	return f.active[f.key(userID, sessionID)]
}

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time          { return c.current }
func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakePresence, *fakeClock) {
	t.Helper()

	db := testhelpers.SetupTestDB(t)
	oracle := newFakePresence()
	clock := &fakeClock{current: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}

	svc := NewService(db, oracle)
	svc.now = clock.Now
	return svc, db, oracle, clock
}

// scheduleFor creates a scheduled session for the user and marks them
// present on the waiting screen.
func scheduleFor(t *testing.T, db *gorm.DB, oracle *fakePresence, userID uint, level string, at time.Time) *models.ScheduledSession {
	t.Helper()

	sched := &models.ScheduledSession{
		UserID:        userID,
		InterviewType: "backend",
		PracticeType:  "peer",
		Level:         level,
		ScheduledAt:   at,
		Status:        models.ScheduledStatusScheduled,
	}
	if err := db.Create(sched).Error; err != nil {
		t.Fatalf("failed to create scheduled session: %v", err)
	}
	oracle.set(userID, sched.ID, true)
	return sched
}

func seedQuestions(t *testing.T, db *gorm.DB, n int, interviewType, difficulty string) []models.Question {
	t.Helper()

	questions := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		q := models.Question{
			Title:      fmt.Sprintf("%s question %d", interviewType, i+1),
			Type:       interviewType,
			Difficulty: difficulty,
			Approved:   true,
			Active:     true,
		}
		if err := db.Create(&q).Error; err != nil {
			t.Fatalf("failed to seed question: %v", err)
		}
		questions = append(questions, q)
	}
	return questions
}

func reload(t *testing.T, db *gorm.DB, id uint) models.MatchingRequest {
	t.Helper()

	var req models.MatchingRequest
	if err := db.First(&req, id).Error; err != nil {
		t.Fatalf("failed to reload request %d: %v", id, err)
	}
	return req
}
