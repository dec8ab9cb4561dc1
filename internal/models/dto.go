// internal/models/dto.go
package models

import "time"

type QuizSummary struct {
	ID            uint      `json:"id"`
	QuizName      string    `json:"quiz_name"`
	ClassID       uint      `json:"class_id"`
	StartDate     time.Time `json:"start_date"`
	Duration      int       `json:"duration"`
	EndDate       time.Time `json:"end_date"`
	State         string    `json:"state"`
	QuestionCount int       `json:"question_count"`
}

type QuizView struct {
	ID        uint           `json:"id"`
	QuizName  string         `json:"quiz_name"`
	ClassID   uint           `json:"class_id"`
	StartDate time.Time      `json:"start_date"`
	Duration  int            `json:"duration"`
	EndDate   time.Time      `json:"end_date"`
	State     string         `json:"state"`
	Questions []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID               uint         `json:"id"`
	QuestionText     string       `json:"question_text"`
	IsMultipleChoice bool         `json:"is_multiple_choice"`
	Options          []OptionView `json:"options"`
}

type OptionView struct {
	ID         uint   `json:"id"`
	OptionText string `json:"option_text"`
	IsCorrect  *bool  `json:"is_correct,omitempty"` // teachers only
}

// ToView renders the quiz for a caller. Correctness flags are only
// included when withAnswers is set.
func (q Quiz) ToView(state string, withAnswers bool) QuizView {
	view := QuizView{
		ID:        q.ID,
		QuizName:  q.QuizName,
		ClassID:   q.ClassID,
		StartDate: q.StartDate,
		Duration:  q.Duration,
		EndDate:   q.EndDate(),
		State:     state,
		Questions: make([]QuestionView, len(q.Questions)),
	}
	for i, question := range q.Questions {
		qv := QuestionView{
			ID:               question.ID,
			QuestionText:     question.QuestionText,
			IsMultipleChoice: question.IsMultipleChoice,
			Options:          make([]OptionView, len(question.Options)),
		}
		for j, opt := range question.Options {
			ov := OptionView{ID: opt.ID, OptionText: opt.OptionText}
			if withAnswers {
				correct := opt.IsCorrect
				ov.IsCorrect = &correct
			}
			qv.Options[j] = ov
		}
		view.Questions[i] = qv
	}
	return view
}

func (q Quiz) Summary(state string) QuizSummary {
	return QuizSummary{
		ID:            q.ID,
		QuizName:      q.QuizName,
		ClassID:       q.ClassID,
		StartDate:     q.StartDate,
		Duration:      q.Duration,
		EndDate:       q.EndDate(),
		State:         state,
		QuestionCount: len(q.Questions),
	}
}

// Quiz write payloads.

type OptionInput struct {
	OptionText string `json:"option_text" validate:"required"`
	IsCorrect  bool   `json:"is_correct"`
}

type QuestionInput struct {
	QuestionText     string        `json:"question_text" validate:"required"`
	IsMultipleChoice bool          `json:"is_multiple_choice"`
	Options          []OptionInput `json:"options" validate:"required,min=1,dive"`
}

type QuizInput struct {
	QuizName  string          `json:"quiz_name" validate:"required,max=200"`
	StartDate time.Time       `json:"start_date" validate:"required"`
	Duration  int             `json:"duration" validate:"required,gt=0,max=525600"`
	Questions []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// Build turns the payload into a quiz owned by classID, assigning
// positions in payload order.
func (in QuizInput) Build(classID uint) Quiz {
	quiz := Quiz{
		QuizName:  in.QuizName,
		ClassID:   classID,
		StartDate: in.StartDate,
		Duration:  in.Duration,
		Questions: make([]Question, len(in.Questions)),
	}
	for i, qi := range in.Questions {
		question := Question{
			Position:         i,
			QuestionText:     qi.QuestionText,
			IsMultipleChoice: qi.IsMultipleChoice,
			Options:          make([]Option, len(qi.Options)),
		}
		for j, oi := range qi.Options {
			question.Options[j] = Option{Position: j, OptionText: oi.OptionText, IsCorrect: oi.IsCorrect}
		}
		quiz.Questions[i] = question
	}
	return quiz
}
