package models

import (
	"time"

	"gorm.io/gorm"
)

// Live session statuses.
const (
	LiveSessionInProgress = "in_progress"
	LiveSessionCompleted  = "completed"
)

// Participant roles within a live session.
const (
	RoleInterviewer = "interviewer"
	RoleInterviewee = "interviewee"
)

// LiveSession is the committed interview record, created exactly once per
// confirmed pair. It owns exactly two participants.
type LiveSession struct {
	gorm.Model
	ScheduledSessionID uint   `gorm:"not null;index"`
	FirstQuestionID    uint   `gorm:"not null"`
	SecondQuestionID   uint   `gorm:"not null"`
	CurrentQuestionID  uint   `gorm:"not null"`
	Status             string `gorm:"size:20;not null;default:'in_progress'"`
	StartedAt          time.Time
	EndedAt            *time.Time

	Participants []SessionParticipant `gorm:"foreignKey:LiveSessionID"`
}

// SessionParticipant binds a user to a live session with a role. The active
// flag drops when the user ends the interview; when both are inactive the
// session completes.
type SessionParticipant struct {
	gorm.Model
	LiveSessionID uint   `gorm:"not null;index"`
	UserID        uint   `gorm:"not null;index"`
	Role          string `gorm:"size:20;not null"`
	Active        bool   `gorm:"not null;default:true"`
}
