package quiz

import (
	"context"
	"time"

	"classquiz/internal/apperr"
	"classquiz/internal/models"
	"classquiz/internal/schedule"
)

type QuizFinder interface {
	GetQuiz(ctx context.Context, id uint) (*models.Quiz, error)
}

type AttemptFinder interface {
	HasResponse(ctx context.Context, studentID, quizID uint) (bool, error)
}

// classQuizzes only finds quizzes of one class. Quizzes of other classes
// look missing.
type classQuizzes struct {
	QuizFinder
	classID uint
}

func (c classQuizzes) GetQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	quiz, err := c.QuizFinder.GetQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.ClassID != c.classID {
		return nil, apperr.NotFound("quiz")
	}
	return quiz, nil
}

// Gatekeeper decides whether a student may see or submit a quiz.
type Gatekeeper struct {
	quizzes  QuizFinder
	attempts AttemptFinder
}

func NewGatekeeper(quizzes QuizFinder, attempts AttemptFinder) *Gatekeeper {
	return &Gatekeeper{quizzes: quizzes, attempts: attempts}
}

// In returns a gatekeeper that only admits to quizzes of classID.
func (g *Gatekeeper) In(classID uint) *Gatekeeper {
	return &Gatekeeper{quizzes: classQuizzes{QuizFinder: g.quizzes, classID: classID}, attempts: g.attempts}
}

// Admit loads the quiz and runs Check against it.
func (g *Gatekeeper) Admit(ctx context.Context, studentID, quizID uint, now time.Time) (*models.Quiz, error) {
	quiz, err := g.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := g.Check(ctx, quiz, studentID, now); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Check fails when the window is closed or the student already has an
// attempt. Viewing and submitting both go through it. It writes nothing.
func (g *Gatekeeper) Check(ctx context.Context, quiz *models.Quiz, studentID uint, now time.Time) error {
	switch quiz.State(now) {
	case schedule.Ended:
		return apperr.New(apperr.KindQuizEnded, "quiz has ended")
	case schedule.NotStarted:
		return apperr.New(apperr.KindQuizNotStarted, "quiz has not started yet")
	}

	submitted, err := g.attempts.HasResponse(ctx, studentID, quiz.ID)
	if err != nil {
		return err
	}
	if submitted {
		return apperr.New(apperr.KindAlreadySubmitted, "quiz already submitted")
	}
	return nil
}
