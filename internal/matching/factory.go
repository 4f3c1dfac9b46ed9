package matching

import (
	"math/rand"

	"mockmate/backend/internal/models"

	"gorm.io/gorm"
)

// createForPair allocates the live session for a double-confirmed pair. The
// side that scheduled first (earlier CreatedAt) becomes the interviewer. Runs
// inside the confirmation transaction and must execute at most once per pair;
// the caller's guarded status transition enforces that.
func (s *Service) createForPair(tx *gorm.DB, a, b *models.MatchingRequest) (*models.LiveSession, error) {
	interviewer, interviewee := a, b
	if interviewee.CreatedAt.Before(interviewer.CreatedAt) {
		interviewer, interviewee = interviewee, interviewer
	}

	var schedI, schedE models.ScheduledSession
	if err := tx.First(&schedI, interviewer.ScheduledSessionID).Error; err != nil {
		return nil, err
	}
	if err := tx.First(&schedE, interviewee.ScheduledSessionID).Error; err != nil {
		return nil, err
	}

	firstID, secondID, err := selectQuestions(tx, interviewer.InterviewType, schedI.QuestionID, schedE.QuestionID)
	if err != nil {
		return nil, err
	}

	session := models.LiveSession{
		ScheduledSessionID: interviewer.ScheduledSessionID,
		FirstQuestionID:    firstID,
		SecondQuestionID:   secondID,
		CurrentQuestionID:  firstID,
		Status:             models.LiveSessionInProgress,
		StartedAt:          s.now(),
	}
	if err := tx.Create(&session).Error; err != nil {
		return nil, err
	}

	participants := []models.SessionParticipant{
		{LiveSessionID: session.ID, UserID: interviewer.UserID, Role: models.RoleInterviewer, Active: true},
		{LiveSessionID: session.ID, UserID: interviewee.UserID, Role: models.RoleInterviewee, Active: true},
	}
	if err := tx.Create(&participants).Error; err != nil {
		return nil, err
	}
	session.Participants = participants

	return &session, nil
}

// selectQuestions picks the pair's two distinct questions. Pre-assigned
// questions from the scheduled sessions win when both exist and differ; a
// shared pre-assignment keeps one and draws a second of the same difficulty;
// otherwise two random questions of the interview type are drawn, falling
// back to the whole approved pool when the typed pool is too small.
func selectQuestions(tx *gorm.DB, interviewType string, pre1, pre2 *uint) (uint, uint, error) {
	if pre1 != nil && pre2 != nil && *pre1 != *pre2 {
		return *pre1, *pre2, nil
	}

	if pre1 != nil && pre2 != nil {
		// Both sides were pre-assigned the same question: keep it and draw a
		// companion of matching difficulty.
		var q models.Question
		if err := tx.First(&q, *pre1).Error; err != nil {
			return 0, 0, err
		}
		drawn, err := drawQuestions(tx, interviewType, q.Difficulty, []uint{*pre1}, 1)
		if err != nil {
			return 0, 0, err
		}
		return *pre1, drawn[0].ID, nil
	}

	drawn, err := drawQuestions(tx, interviewType, "", nil, 2)
	if err != nil {
		return 0, 0, err
	}
	return drawn[0].ID, drawn[1].ID, nil
}

// drawQuestions returns n random approved, active questions matching the
// filters, widening to the unfiltered approved pool if the filtered one is
// too small. Returns ErrNoQuestions when even the widened pool cannot
// supply n distinct questions.
func drawQuestions(tx *gorm.DB, interviewType, difficulty string, exclude []uint, n int) ([]models.Question, error) {
	pool, err := questionPool(tx, interviewType, difficulty, exclude)
	if err != nil {
		return nil, err
	}
	if len(pool) < n {
		pool, err = questionPool(tx, "", "", exclude)
		if err != nil {
			return nil, err
		}
	}
	if len(pool) < n {
		return nil, ErrNoQuestions
	}

	picked := make([]models.Question, 0, n)
	for _, i := range rand.Perm(len(pool))[:n] {
		picked = append(picked, pool[i])
	}
	return picked, nil
}

func questionPool(tx *gorm.DB, interviewType, difficulty string, exclude []uint) ([]models.Question, error) {
	query := tx.Model(&models.Question{}).Where("approved = ? AND active = ?", true, true)
	if interviewType != "" {
		query = query.Where("type = ?", interviewType)
	}
	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}

	var pool []models.Question
	if err := query.Find(&pool).Error; err != nil {
		return nil, err
	}
	return pool, nil
}
