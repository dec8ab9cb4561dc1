package quiz

import (
	"context"

	"classquiz/internal/apperr"
	"classquiz/internal/auth"
	"classquiz/internal/models"
)

// ResultFor returns one student's result. Students may only read their own.
func (s *Service) ResultFor(ctx context.Context, p auth.Principal, classID, quizID, studentID uint) (*models.StudentResult, error) {
	if p.IsStudent() && p.ID != studentID {
		return nil, apperr.Forbidden("students can only read their own results")
	}
	if _, err := s.classes.Authorize(ctx, p, classID); err != nil {
		return nil, err
	}
	if _, err := s.quizInClass(ctx, classID, quizID); err != nil {
		return nil, err
	}

	response, err := s.repo.GetResponse(ctx, studentID, quizID)
	if err != nil {
		return nil, err
	}
	result := response.Result()
	return &result, nil
}

// ResultsForQuiz lists every recorded result of a quiz for its teacher.
func (s *Service) ResultsForQuiz(ctx context.Context, p auth.Principal, classID, quizID uint) ([]models.ResultRecord, error) {
	if _, err := s.ownerOf(ctx, p, classID); err != nil {
		return nil, err
	}
	if _, err := s.quizInClass(ctx, classID, quizID); err != nil {
		return nil, err
	}
	records, err := s.repo.ResultsForQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.ResultRecord{}
	}
	return records, nil
}
