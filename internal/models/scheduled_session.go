package models

import (
	"time"

	"gorm.io/gorm"
)

// Scheduled session statuses.
const (
	ScheduledStatusScheduled  = "scheduled"
	ScheduledStatusInProgress = "in_progress"
	ScheduledStatusCompleted  = "completed"
	ScheduledStatusCancelled  = "cancelled"
)

// ScheduledSession is a user's declared intent to hold a mock interview of a
// given type and level at a given time. It is what originates a matching
// attempt.
type ScheduledSession struct {
	gorm.Model
	UserID        uint   `gorm:"not null;index"`
	InterviewType string `gorm:"size:100;not null"`
	PracticeType  string `gorm:"size:50;not null"`
	Level         string `gorm:"size:50;not null"`
	ScheduledAt   time.Time
	Status        string `gorm:"size:20;not null;default:'scheduled'"`

	// Optional question pre-assigned at scheduling time. The live session
	// factory prefers it over a random draw.
	QuestionID *uint
	Question   *Question `gorm:"foreignKey:QuestionID"`
}
