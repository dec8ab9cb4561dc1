// internal/quiz/service.go
package quiz

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"classquiz/internal/apperr"
	"classquiz/internal/auth"
	"classquiz/internal/models"
	"classquiz/internal/schedule"
)

// ClassAccess resolves a class the caller may act on.
type ClassAccess interface {
	Authorize(ctx context.Context, p auth.Principal, classID uint) (*models.Class, error)
}

// Notifier pushes events to everyone watching a room.
type Notifier interface {
	BroadcastMessage(room string, messageType string, data interface{})
	Subscribers(room string) int
}

// Room is the notification room for a quiz's submission feed.
func Room(quizID uint) string {
	return fmt.Sprintf("quiz:%d", quizID)
}

type SubmissionEvent struct {
	StudentID   uint      `json:"student_id"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name"`
	QuizID      uint      `json:"quiz_id"`
	Score       int       `json:"score"`
	OutOf       int       `json:"out_of"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Service struct {
	repo     *Repository
	classes  ClassAccess
	quizzes  cachedQuizzes
	gate     *Gatekeeper
	notifier Notifier
	now      func() time.Time
}

// NewService wires the quiz workflow. cache and notifier may be nil.
func NewService(repo *Repository, classes ClassAccess, cache Cache, notifier Notifier) *Service {
	quizzes := cachedQuizzes{repo: repo, cache: cache}
	return &Service{
		repo:     repo,
		classes:  classes,
		quizzes:  quizzes,
		gate:     NewGatekeeper(quizzes, repo),
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *Service) ownerOf(ctx context.Context, p auth.Principal, classID uint) (*models.Class, error) {
	if !p.IsTeacher() {
		return nil, apperr.Forbidden("only the class teacher can do this")
	}
	return s.classes.Authorize(ctx, p, classID)
}

// quizInClass loads a quiz and hides quizzes that belong to other classes.
func (s *Service) quizInClass(ctx context.Context, classID, quizID uint) (*models.Quiz, error) {
	return classQuizzes{QuizFinder: s.quizzes, classID: classID}.GetQuiz(ctx, quizID)
}

func (s *Service) validateInput(in *models.QuizInput) error {
	in.QuizName = strings.TrimSpace(in.QuizName)
	if in.QuizName == "" {
		return apperr.Invalid("quiz_name is required")
	}
	if in.Duration <= 0 || in.Duration > schedule.MaxDuration {
		return apperr.Newf(apperr.KindInvalid, "duration must be between 1 and %d minutes", schedule.MaxDuration)
	}
	if !in.StartDate.After(s.now()) {
		return apperr.Invalid("start_date must be in the future")
	}
	return nil
}

func (s *Service) CreateQuiz(ctx context.Context, p auth.Principal, classID uint, in models.QuizInput) (*models.Quiz, error) {
	if _, err := s.ownerOf(ctx, p, classID); err != nil {
		return nil, err
	}
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	quiz := in.Build(classID)
	if err := s.repo.CreateQuiz(ctx, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (s *Service) UpdateQuiz(ctx context.Context, p auth.Principal, classID, quizID uint, in models.QuizInput) (*models.Quiz, error) {
	if _, err := s.ownerOf(ctx, p, classID); err != nil {
		return nil, err
	}
	if _, err := s.quizInClass(ctx, classID, quizID); err != nil {
		return nil, err
	}
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	quiz := in.Build(classID)
	quiz.ID = quizID
	if err := s.repo.ReplaceQuiz(ctx, &quiz); err != nil {
		return nil, err
	}
	s.quizzes.forget(ctx, quizID)
	return s.repo.GetQuiz(ctx, quizID)
}

func (s *Service) DeleteQuiz(ctx context.Context, p auth.Principal, classID, quizID uint) error {
	if _, err := s.ownerOf(ctx, p, classID); err != nil {
		return err
	}
	if _, err := s.quizInClass(ctx, classID, quizID); err != nil {
		return err
	}
	if err := s.repo.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.quizzes.forget(ctx, quizID)
	return nil
}

func (s *Service) ListQuizzes(ctx context.Context, p auth.Principal, classID uint) ([]models.QuizSummary, error) {
	if _, err := s.classes.Authorize(ctx, p, classID); err != nil {
		return nil, err
	}
	quizzes, err := s.repo.QuizzesForClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	summaries := make([]models.QuizSummary, len(quizzes))
	for i, q := range quizzes {
		summaries[i] = q.Summary(q.State(now).String())
	}
	return summaries, nil
}

// ViewQuiz returns the full quiz to its teacher. Students get it without
// correctness flags, and only while they could still submit it.
func (s *Service) ViewQuiz(ctx context.Context, p auth.Principal, classID, quizID uint) (*models.QuizView, error) {
	if _, err := s.classes.Authorize(ctx, p, classID); err != nil {
		return nil, err
	}
	quiz, err := s.quizInClass(ctx, classID, quizID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	state := quiz.State(now).String()
	if p.IsTeacher() {
		view := quiz.ToView(state, true)
		return &view, nil
	}
	if err := s.gate.Check(ctx, quiz, p.ID, now); err != nil {
		return nil, err
	}
	view := quiz.ToView(state, false)
	return &view, nil
}

// Submit admits, scores and records a student's single attempt.
func (s *Service) Submit(ctx context.Context, p auth.Principal, classID, quizID uint, inputs []models.ResponseInput) (*models.StudentResult, error) {
	if !p.IsStudent() {
		return nil, apperr.Forbidden("only students can submit quizzes")
	}
	if _, err := s.classes.Authorize(ctx, p, classID); err != nil {
		return nil, err
	}

	now := s.now()
	quiz, err := s.gate.In(classID).Admit(ctx, p.ID, quizID, now)
	if err != nil {
		return nil, err
	}

	answers, err := ParseResponses(inputs)
	if err != nil {
		return nil, err
	}
	score, outOf := Score(quiz, answers)

	response := &models.StudentResponse{
		StudentID:   p.ID,
		QuizID:      quiz.ID,
		Responses:   datatypes.NewJSONType(answers),
		Score:       score,
		OutOf:       outOf,
		SubmittedAt: now,
	}
	if err := s.repo.SaveResponse(ctx, response); err != nil {
		return nil, err
	}
	log.Printf("Student %d scored %d/%d on quiz %d", p.ID, score, outOf, quiz.ID)

	s.afterSubmit(ctx, response)
	result := response.Result()
	return &result, nil
}

// afterSubmit refreshes derived state. Failures here never undo the
// recorded attempt.
func (s *Service) afterSubmit(ctx context.Context, response *models.StudentResponse) {
	if s.quizzes.cache != nil {
		if err := s.quizzes.cache.DeleteLeaderboard(ctx, response.QuizID); err != nil {
			log.Printf("Error evicting leaderboard %d: %v", response.QuizID, err)
		}
	}
	room := Room(response.QuizID)
	if s.notifier == nil || s.notifier.Subscribers(room) == 0 {
		return
	}

	event := SubmissionEvent{
		StudentID:   response.StudentID,
		QuizID:      response.QuizID,
		Score:       response.Score,
		OutOf:       response.OutOf,
		SubmittedAt: response.SubmittedAt,
	}
	if user, err := s.repo.GetUserByID(ctx, response.StudentID); err == nil {
		event.Username = user.Username
		event.FullName = user.FullName
	} else {
		log.Printf("Error loading student %d for submission event: %v", response.StudentID, err)
	}
	s.notifier.BroadcastMessage(room, "submission", event)
}

// AuthorizeWatch checks the caller may follow the quiz's submission feed.
func (s *Service) AuthorizeWatch(ctx context.Context, p auth.Principal, classID, quizID uint) error {
	if _, err := s.ownerOf(ctx, p, classID); err != nil {
		return err
	}
	_, err := s.quizInClass(ctx, classID, quizID)
	return err
}

// Leaderboard ranks the quiz's results by score, then username.
func (s *Service) Leaderboard(ctx context.Context, p auth.Principal, classID, quizID uint) ([]models.LeaderboardEntry, error) {
	if _, err := s.classes.Authorize(ctx, p, classID); err != nil {
		return nil, err
	}
	if _, err := s.quizInClass(ctx, classID, quizID); err != nil {
		return nil, err
	}

	cache := s.quizzes.cache
	if cache != nil {
		if entries, err := cache.GetLeaderboard(ctx, quizID); err == nil {
			sortLeaderboard(entries)
			return entries, nil
		}
	}

	entries, err := s.repo.GetLeaderboard(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		s.cacheLeaderboard(ctx, cache, quizID, entries)
	}
	sortLeaderboard(entries)
	return entries, nil
}

// cacheLeaderboard stores entries, then drops them again if a submission
// landed after they were read. Responses are never deleted, so a count that
// differs from len(entries) means the snapshot is stale.
func (s *Service) cacheLeaderboard(ctx context.Context, cache Cache, quizID uint, entries []models.LeaderboardEntry) {
	if err := cache.SetLeaderboard(ctx, quizID, entries); err != nil {
		log.Printf("Error caching leaderboard %d: %v", quizID, err)
		return
	}
	count, err := s.repo.CountResponses(ctx, quizID)
	if err == nil && count == int64(len(entries)) {
		return
	}
	if err := cache.DeleteLeaderboard(ctx, quizID); err != nil {
		log.Printf("Error evicting stale leaderboard %d: %v", quizID, err)
	}
}

func sortLeaderboard(entries []models.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Username < entries[j].Username
	})
}
