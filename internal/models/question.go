package models

import "gorm.io/gorm"

// Question difficulty levels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question is an entry in the interview question catalog. Only approved,
// active questions are eligible for assignment to live sessions.
type Question struct {
	gorm.Model
	Title       string `gorm:"size:255;not null"`
	Description string
	Type        string `gorm:"size:100;not null;index"`
	Category    string `gorm:"size:100"`
	Difficulty  string `gorm:"size:50;not null;default:'medium'"`
	Approved    bool   `gorm:"not null;default:false;index"`
	Active      bool   `gorm:"not null;default:true"`
}
