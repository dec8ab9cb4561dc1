// internal/models/response.go
package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Answer is one scored entry of a submission.
type Answer struct {
	QuestionID      uint   `json:"question_id"`
	SelectedOptions []uint `json:"selected_options"`
}

// StudentResponse is the attempt marker. Its score columns are written in
// the same insert as the answers, so a response never exists unscored.
type StudentResponse struct {
	ID          uint                         `json:"id" gorm:"primaryKey"`
	StudentID   uint                         `json:"student_id" gorm:"not null;uniqueIndex:idx_student_quiz"`
	QuizID      uint                         `json:"quiz_id" gorm:"not null;uniqueIndex:idx_student_quiz;index"`
	Responses   datatypes.JSONType[[]Answer] `json:"responses"`
	Score       int                          `json:"score"`
	OutOf       int                          `json:"out_of"`
	SubmittedAt time.Time                    `json:"submitted_at"`
}

func (r StudentResponse) Result() StudentResult {
	return StudentResult{
		StudentID:   r.StudentID,
		QuizID:      r.QuizID,
		Score:       r.Score,
		OutOf:       r.OutOf,
		SubmittedAt: r.SubmittedAt,
	}
}

type StudentResult struct {
	StudentID   uint      `json:"student_id"`
	QuizID      uint      `json:"quiz_id"`
	Score       int       `json:"score"`
	OutOf       int       `json:"out_of"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ResultRecord is a result joined with the names needed for reports.
type ResultRecord struct {
	StudentID   uint      `json:"student_id"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name"`
	QuizID      uint      `json:"quiz_id"`
	QuizName    string    `json:"quiz_name"`
	ClassName   string    `json:"class_name"`
	Score       int       `json:"score"`
	OutOf       int       `json:"out_of"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// ResponseInput is a submitted entry as it arrives on the wire. Both
// fields stay raw until the scoring engine validates them.
type ResponseInput struct {
	QuestionID      json.RawMessage `json:"question_id"`
	SelectedOptions json.RawMessage `json:"selected_options"`
}
