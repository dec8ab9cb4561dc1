package quiz

import (
	"bytes"
	"encoding/json"
	"strconv"

	"classquiz/internal/apperr"
	"classquiz/internal/models"
)

func malformed(index int, msg string) error {
	return apperr.Newf(apperr.KindMalformedResponse, "response %d: %s", index, msg)
}

// ParseResponses validates a raw submission. Any bad entry rejects the
// whole batch.
func ParseResponses(inputs []models.ResponseInput) ([]models.Answer, error) {
	if inputs == nil {
		return nil, apperr.New(apperr.KindMalformedResponse, "responses must be a list")
	}
	answers := make([]models.Answer, 0, len(inputs))
	for i, in := range inputs {
		questionID, err := parseID(in.QuestionID)
		if err != nil {
			return nil, malformed(i, "question_id must be a positive integer")
		}

		raw := bytes.TrimSpace(in.SelectedOptions)
		if len(raw) == 0 || raw[0] != '[' {
			return nil, malformed(i, "selected_options must be a list of option ids")
		}
		var selected []uint
		if err := json.Unmarshal(raw, &selected); err != nil {
			return nil, malformed(i, "selected_options must be a list of option ids")
		}
		answers = append(answers, models.Answer{QuestionID: questionID, SelectedOptions: selected})
	}
	return answers, nil
}

// parseID accepts a JSON number or numeric string.
func parseID(raw json.RawMessage) (uint, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 1 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		raw = []byte(s)
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, strconv.ErrRange
	}
	return uint(id), nil
}

// CorrectAnswers maps each question to its correct option ids, in the
// order the options are stored.
func CorrectAnswers(quiz *models.Quiz) map[uint][]uint {
	correct := make(map[uint][]uint, len(quiz.Questions))
	for _, q := range quiz.Questions {
		ids := []uint{}
		for _, opt := range q.Options {
			if opt.IsCorrect {
				ids = append(ids, opt.ID)
			}
		}
		correct[q.ID] = ids
	}
	return correct
}

// Score counts fully correct questions. Answers for unknown questions are
// ignored and a question answered twice only counts its first answer.
//
// The comparison is order-sensitive: the selected ids must match the
// correct ids in stored order, so the right set in another order scores 0.
func Score(quiz *models.Quiz, answers []models.Answer) (score, outOf int) {
	correct := CorrectAnswers(quiz)
	seen := make(map[uint]bool, len(answers))
	for _, a := range answers {
		want, ok := correct[a.QuestionID]
		if !ok || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		if sameSequence(a.SelectedOptions, want) {
			score++
		}
	}
	return score, len(quiz.Questions)
}

func sameSequence(got, want []uint) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
