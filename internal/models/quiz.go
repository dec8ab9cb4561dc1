// internal/models/quiz.go
package models

import (
	"time"

	"gorm.io/gorm"

	"classquiz/internal/schedule"
)

type Quiz struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	QuizName  string         `json:"quiz_name" gorm:"not null"`
	ClassID   uint           `json:"class_id" gorm:"not null;index"`
	StartDate time.Time      `json:"start_date" gorm:"not null"`
	Duration  int            `json:"duration" gorm:"not null"` // minutes
	Questions []Question     `json:"questions,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
}

// EndDate is the last instant of the quiz window.
func (q Quiz) EndDate() time.Time {
	return schedule.End(q.StartDate, q.Duration)
}

// State places now relative to the quiz window.
func (q Quiz) State(now time.Time) schedule.State {
	return schedule.Window(now, q.StartDate, q.Duration)
}

type Question struct {
	ID               uint     `json:"id" gorm:"primaryKey"`
	QuizID           uint     `json:"quiz_id" gorm:"not null;index"`
	Position         int      `json:"position"`
	QuestionText     string   `json:"question_text" gorm:"not null"`
	IsMultipleChoice bool     `json:"is_multiple_choice"`
	Options          []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Position   int    `json:"position"`
	OptionText string `json:"option_text" gorm:"not null"`
	IsCorrect  bool   `json:"is_correct"`
}
