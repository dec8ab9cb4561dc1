package quiz

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"classquiz/internal/apperr"
	"classquiz/internal/auth"
	"classquiz/internal/class"
	"classquiz/internal/httpx"
	"classquiz/internal/models"
	"classquiz/internal/schedule"
	"classquiz/internal/testdb"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func as(u models.User) auth.Principal { return auth.Principal{ID: u.ID, Role: u.Role} }

type memCache struct {
	mu           sync.Mutex
	quizzes      map[uint]*models.Quiz
	boards       map[uint][]models.LeaderboardEntry
	boardHits    int
	boardEvicted int
	// afterSetBoard runs once a leaderboard is stored
	afterSetBoard func()
}

func newMemCache() *memCache {
	return &memCache{
		quizzes: map[uint]*models.Quiz{},
		boards:  map[uint][]models.LeaderboardEntry{},
	}
}

var errMiss = errors.New("miss")

func (c *memCache) GetQuiz(_ context.Context, id uint) (*models.Quiz, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok := c.quizzes[id]; ok {
		return q, nil
	}
	return nil, errMiss
}

func (c *memCache) SetQuiz(_ context.Context, quiz *models.Quiz) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quizzes[quiz.ID] = quiz
	return nil
}

func (c *memCache) DeleteQuiz(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.quizzes, id)
	return nil
}

func (c *memCache) GetLeaderboard(_ context.Context, quizID uint) ([]models.LeaderboardEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.boards[quizID]
	if !ok {
		return nil, errMiss
	}
	c.boardHits++
	return append([]models.LeaderboardEntry(nil), entries...), nil
}

func (c *memCache) SetLeaderboard(_ context.Context, quizID uint, entries []models.LeaderboardEntry) error {
	c.mu.Lock()
	c.boards[quizID] = append([]models.LeaderboardEntry(nil), entries...)
	hook := c.afterSetBoard
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (c *memCache) hasBoard(quizID uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.boards[quizID]
	return ok
}

func (c *memCache) DeleteLeaderboard(_ context.Context, quizID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.boards, quizID)
	c.boardEvicted++
	return nil
}

type recordedEvent struct {
	room  string
	kind  string
	event SubmissionEvent
}

type fakeNotifier struct {
	mu       sync.Mutex
	watchers int
	events   []recordedEvent
}

func (n *fakeNotifier) Subscribers(string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.watchers
}

func (n *fakeNotifier) BroadcastMessage(room string, messageType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ev, _ := data.(SubmissionEvent)
	n.events = append(n.events, recordedEvent{room: room, kind: messageType, event: ev})
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	cache    *memCache
	notifier *fakeNotifier
	teacher  models.User
	students []models.User
	class    models.Class
	clock    time.Time
}

func (f *fixture) at(t time.Time) { f.clock = t }

func newFixture(t *testing.T, students ...string) *fixture {
	t.Helper()
	db := testdb.New(t)
	f := &fixture{db: db, cache: newMemCache(), notifier: &fakeNotifier{watchers: 1}, clock: base}

	f.teacher = testdb.Teacher(t, db, "teacher")
	for _, name := range students {
		f.students = append(f.students, testdb.Student(t, db, name))
	}
	f.class = testdb.Class(t, db, f.teacher, "Maths", f.students...)

	classes := class.NewService(class.NewRepository(db))
	f.svc = NewService(NewRepository(db), classes, f.cache, f.notifier)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

// sampleInput has two single-answer questions: "4" and "Paris" are correct.
func sampleInput(start time.Time) models.QuizInput {
	return models.QuizInput{
		QuizName:  " Unit 1 ",
		StartDate: start,
		Duration:  30,
		Questions: []models.QuestionInput{
			{QuestionText: "2+2?", Options: []models.OptionInput{
				{OptionText: "4", IsCorrect: true},
				{OptionText: "5"},
			}},
			{QuestionText: "Capital of France?", Options: []models.OptionInput{
				{OptionText: "Paris", IsCorrect: true},
				{OptionText: "Rome"},
			}},
		},
	}
}

// createQuiz schedules the sample quiz an hour after base.
func (f *fixture) createQuiz(t *testing.T) *models.Quiz {
	t.Helper()
	f.at(base)
	quiz, err := f.svc.CreateQuiz(context.Background(), as(f.teacher), f.class.ID, sampleInput(base.Add(time.Hour)))
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	return quiz
}

func opt(q *models.Quiz, question, option int) uint {
	return q.Questions[question].Options[option].ID
}

func answer(questionID uint, selected ...uint) models.ResponseInput {
	sel, _ := json.Marshal(append([]uint{}, selected...))
	return models.ResponseInput{
		QuestionID:      json.RawMessage(fmt.Sprint(questionID)),
		SelectedOptions: sel,
	}
}

func countResponses(t *testing.T, db *gorm.DB, quizID uint) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.StudentResponse{}).Where("quiz_id = ?", quizID).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCreateQuizValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")

	quiz := f.createQuiz(t)
	if quiz.QuizName != "Unit 1" {
		t.Fatalf("quiz name not trimmed: %q", quiz.QuizName)
	}
	if len(quiz.Questions) != 2 || len(quiz.Questions[0].Options) != 2 {
		t.Fatalf("questions not stored: %+v", quiz.Questions)
	}

	if _, err := f.svc.CreateQuiz(ctx, as(f.teacher), f.class.ID, sampleInput(base.Add(-time.Minute))); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("past start err = %v", err)
	}
	if _, err := f.svc.CreateQuiz(ctx, as(f.students[0]), f.class.ID, sampleInput(base.Add(time.Hour))); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("student create err = %v", err)
	}

	other := testdb.Teacher(t, f.db, "other")
	if _, err := f.svc.CreateQuiz(ctx, as(other), f.class.ID, sampleInput(base.Add(time.Hour))); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("foreign teacher err = %v", err)
	}
}

func TestSubmitScoresAndRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	ann := f.students[0]
	quiz := f.createQuiz(t)

	f.at(base.Add(time.Hour + 5*time.Minute))
	result, err := f.svc.Submit(ctx, as(ann), f.class.ID, quiz.ID, []models.ResponseInput{
		answer(quiz.Questions[0].ID, opt(quiz, 0, 0)),
		answer(quiz.Questions[1].ID, opt(quiz, 1, 0)),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 2 || result.OutOf != 2 {
		t.Fatalf("result = %d/%d, want 2/2", result.Score, result.OutOf)
	}

	stored, err := f.svc.ResultFor(ctx, as(ann), f.class.ID, quiz.ID, ann.ID)
	if err != nil {
		t.Fatalf("ResultFor: %v", err)
	}
	if stored.Score != 2 || stored.OutOf != 2 || !stored.SubmittedAt.Equal(f.clock) {
		t.Fatalf("stored result = %+v", stored)
	}

	var response models.StudentResponse
	if err := f.db.Where("student_id = ? AND quiz_id = ?", ann.ID, quiz.ID).First(&response).Error; err != nil {
		t.Fatal(err)
	}
	if answers := response.Responses.Data(); len(answers) != 2 || answers[0].QuestionID != quiz.Questions[0].ID {
		t.Fatalf("stored answers = %+v", answers)
	}
}

func TestSubmitPartialAndWrong(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	quiz := f.createQuiz(t)

	f.at(base.Add(time.Hour))
	result, err := f.svc.Submit(ctx, as(f.students[0]), f.class.ID, quiz.ID, []models.ResponseInput{
		answer(quiz.Questions[0].ID, opt(quiz, 0, 1)),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 0 || result.OutOf != 2 {
		t.Fatalf("result = %d/%d, want 0/2", result.Score, result.OutOf)
	}
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	ann := f.students[0]
	quiz := f.createQuiz(t)

	f.at(base.Add(time.Hour + time.Minute))
	first := []models.ResponseInput{answer(quiz.Questions[0].ID, opt(quiz, 0, 1))}
	if _, err := f.svc.Submit(ctx, as(ann), f.class.ID, quiz.ID, first); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	better := []models.ResponseInput{
		answer(quiz.Questions[0].ID, opt(quiz, 0, 0)),
		answer(quiz.Questions[1].ID, opt(quiz, 1, 0)),
	}
	if _, err := f.svc.Submit(ctx, as(ann), f.class.ID, quiz.ID, better); !apperr.Is(err, apperr.KindAlreadySubmitted) {
		t.Fatalf("second Submit err = %v", err)
	}

	stored, err := f.svc.ResultFor(ctx, as(ann), f.class.ID, quiz.ID, ann.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Score != 0 {
		t.Fatalf("first score overwritten: %+v", stored)
	}
	if n := countResponses(t, f.db, quiz.ID); n != 1 {
		t.Fatalf("responses = %d, want 1", n)
	}
}

func TestSubmitOutsideWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	quiz := f.createQuiz(t)
	p := as(f.students[0])
	attempt := []models.ResponseInput{answer(quiz.Questions[0].ID, opt(quiz, 0, 0))}

	f.at(base.Add(59 * time.Minute))
	if _, err := f.svc.Submit(ctx, p, f.class.ID, quiz.ID, attempt); !apperr.Is(err, apperr.KindQuizNotStarted) {
		t.Fatalf("early err = %v", err)
	}
	if _, err := f.svc.ViewQuiz(ctx, p, f.class.ID, quiz.ID); !apperr.Is(err, apperr.KindQuizNotStarted) {
		t.Fatalf("early view err = %v", err)
	}

	f.at(base.Add(time.Hour + 31*time.Minute))
	if _, err := f.svc.Submit(ctx, p, f.class.ID, quiz.ID, attempt); !apperr.Is(err, apperr.KindQuizEnded) {
		t.Fatalf("late err = %v", err)
	}
	if n := countResponses(t, f.db, quiz.ID); n != 0 {
		t.Fatalf("responses = %d, want 0", n)
	}
}

func TestSubmitAtWindowEnd(t *testing.T) {
	f := newFixture(t, "ann")
	quiz := f.createQuiz(t)

	f.at(base.Add(time.Hour + 30*time.Minute))
	if _, err := f.svc.Submit(context.Background(), as(f.students[0]), f.class.ID, quiz.ID, []models.ResponseInput{}); err != nil {
		t.Fatalf("submit at end instant: %v", err)
	}
}

func TestSubmitMalformedWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	quiz := f.createQuiz(t)
	f.at(base.Add(time.Hour + time.Minute))

	bad := []models.ResponseInput{{
		QuestionID:      json.RawMessage(fmt.Sprint(quiz.Questions[0].ID)),
		SelectedOptions: json.RawMessage(fmt.Sprint(opt(quiz, 0, 0))),
	}}
	if _, err := f.svc.Submit(ctx, as(f.students[0]), f.class.ID, quiz.ID, bad); !apperr.Is(err, apperr.KindMalformedResponse) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.svc.Submit(ctx, as(f.students[0]), f.class.ID, quiz.ID, nil); !apperr.Is(err, apperr.KindMalformedResponse) {
		t.Fatalf("nil responses err = %v", err)
	}
	if n := countResponses(t, f.db, quiz.ID); n != 0 {
		t.Fatalf("responses = %d, want 0", n)
	}

	// the student can still make their one attempt
	if _, err := f.svc.Submit(ctx, as(f.students[0]), f.class.ID, quiz.ID, []models.ResponseInput{}); err != nil {
		t.Fatalf("retry after malformed: %v", err)
	}
}

func TestSubmitAccessRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	quiz := f.createQuiz(t)
	f.at(base.Add(time.Hour + time.Minute))

	outsider := testdb.Student(t, f.db, "outsider")
	if _, err := f.svc.Submit(ctx, as(outsider), f.class.ID, quiz.ID, []models.ResponseInput{}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("outsider err = %v", err)
	}
	if _, err := f.svc.Submit(ctx, as(f.teacher), f.class.ID, quiz.ID, []models.ResponseInput{}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("teacher err = %v", err)
	}

	otherClass := testdb.Class(t, f.db, f.teacher, "History", f.students[0])
	if _, err := f.svc.Submit(ctx, as(f.students[0]), otherClass.ID, quiz.ID, []models.ResponseInput{}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("wrong class err = %v", err)
	}
	if _, err := f.svc.Submit(ctx, as(f.students[0]), f.class.ID, quiz.ID+100, []models.ResponseInput{}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing quiz err = %v", err)
	}
}

func TestConcurrentSubmitRecordsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	ann := f.students[0]
	quiz := f.createQuiz(t)
	f.at(base.Add(time.Hour + time.Minute))

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(ctx, as(ann), f.class.ID, quiz.ID, []models.ResponseInput{
				answer(quiz.Questions[0].ID, opt(quiz, 0, 0)),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperr.Is(err, apperr.KindAlreadySubmitted):
				rejected++
			default:
				t.Errorf("unexpected err: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || rejected != attempts-1 {
		t.Fatalf("succeeded=%d rejected=%d", succeeded, rejected)
	}
	if n := countResponses(t, f.db, quiz.ID); n != 1 {
		t.Fatalf("responses = %d, want 1", n)
	}
}

func TestScoreSurvivesQuizEdit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	ann := f.students[0]
	quiz := f.createQuiz(t)

	f.at(base.Add(time.Hour + time.Minute))
	if _, err := f.svc.Submit(ctx, as(ann), f.class.ID, quiz.ID, []models.ResponseInput{
		answer(quiz.Questions[0].ID, opt(quiz, 0, 0)),
	}); err != nil {
		t.Fatal(err)
	}

	edit := sampleInput(base.Add(3 * time.Hour))
	edit.Questions = append(edit.Questions, models.QuestionInput{
		QuestionText: "3*3?",
		Options:      []models.OptionInput{{OptionText: "9", IsCorrect: true}},
	})
	updated, err := f.svc.UpdateQuiz(ctx, as(f.teacher), f.class.ID, quiz.ID, edit)
	if err != nil {
		t.Fatalf("UpdateQuiz: %v", err)
	}
	if len(updated.Questions) != 3 {
		t.Fatalf("updated questions = %d", len(updated.Questions))
	}

	stored, err := f.svc.ResultFor(ctx, as(f.teacher), f.class.ID, quiz.ID, ann.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Score != 1 || stored.OutOf != 2 {
		t.Fatalf("stored result changed after edit: %+v", stored)
	}
}

func TestUpdateQuizEvictsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	quiz := f.createQuiz(t)

	f.at(base.Add(time.Hour))
	if _, err := f.svc.ViewQuiz(ctx, as(f.teacher), f.class.ID, quiz.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cache.GetQuiz(ctx, quiz.ID); err != nil {
		t.Fatal("quiz not cached after read")
	}

	if _, err := f.svc.UpdateQuiz(ctx, as(f.teacher), f.class.ID, quiz.ID, sampleInput(base.Add(2*time.Hour))); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cache.GetQuiz(ctx, quiz.ID); err == nil {
		t.Fatal("stale quiz left in cache")
	}
}

func TestViewQuizHidesAnswersFromStudents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	quiz := f.createQuiz(t)
	f.at(base.Add(time.Hour + time.Minute))

	teacherView, err := f.svc.ViewQuiz(ctx, as(f.teacher), f.class.ID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if flag := teacherView.Questions[0].Options[0].IsCorrect; flag == nil || !*flag {
		t.Fatal("teacher view lacks correctness flags")
	}
	if teacherView.State != "active" {
		t.Fatalf("state = %q", teacherView.State)
	}

	studentView, err := f.svc.ViewQuiz(ctx, as(f.students[0]), f.class.ID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := json.Marshal(studentView)
	if bytes.Contains(raw, []byte("is_correct")) {
		t.Fatalf("student view leaks correctness: %s", raw)
	}
	if len(studentView.Questions) != 2 {
		t.Fatalf("student view questions = %d", len(studentView.Questions))
	}

	if _, err := f.svc.Submit(ctx, as(f.students[0]), f.class.ID, quiz.ID, []models.ResponseInput{}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.ViewQuiz(ctx, as(f.students[0]), f.class.ID, quiz.ID); !apperr.Is(err, apperr.KindAlreadySubmitted) {
		t.Fatalf("view after submit err = %v", err)
	}
}

func TestListQuizzesReportsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	f.createQuiz(t)

	f.at(base.Add(2 * time.Hour))
	summaries, err := f.svc.ListQuizzes(ctx, as(f.students[0]), f.class.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].State != "ended" || summaries[0].QuestionCount != 2 {
		t.Fatalf("summaries = %+v", summaries)
	}
}

func TestDeleteQuiz(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	quiz := f.createQuiz(t)

	if err := f.svc.DeleteQuiz(ctx, as(f.students[0]), f.class.ID, quiz.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("student delete err = %v", err)
	}
	if err := f.svc.DeleteQuiz(ctx, as(f.teacher), f.class.ID, quiz.ID); err != nil {
		t.Fatalf("DeleteQuiz: %v", err)
	}
	if _, err := f.svc.ViewQuiz(ctx, as(f.teacher), f.class.ID, quiz.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("view deleted err = %v", err)
	}
}

func TestResultsForQuiz(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann", "bob")
	ann, bob := f.students[0], f.students[1]
	quiz := f.createQuiz(t)

	records, err := f.svc.ResultsForQuiz(ctx, as(f.teacher), f.class.ID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("empty results = %#v", records)
	}

	f.at(base.Add(time.Hour + 10*time.Minute))
	if _, err := f.svc.Submit(ctx, as(bob), f.class.ID, quiz.ID, []models.ResponseInput{
		answer(quiz.Questions[1].ID, opt(quiz, 1, 0)),
	}); err != nil {
		t.Fatal(err)
	}
	f.at(base.Add(time.Hour + 20*time.Minute))
	if _, err := f.svc.Submit(ctx, as(ann), f.class.ID, quiz.ID, []models.ResponseInput{
		answer(quiz.Questions[0].ID, opt(quiz, 0, 0)),
		answer(quiz.Questions[1].ID, opt(quiz, 1, 0)),
	}); err != nil {
		t.Fatal(err)
	}

	records, err = f.svc.ResultsForQuiz(ctx, as(f.teacher), f.class.ID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0].Username != "bob" || records[1].Username != "ann" {
		t.Fatalf("records not ordered by submission: %+v", records)
	}
	if records[1].Score != 2 || records[1].QuizName != "Unit 1" || records[1].ClassName != "Maths" {
		t.Fatalf("record = %+v", records[1])
	}

	if _, err := f.svc.ResultsForQuiz(ctx, as(ann), f.class.ID, quiz.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("student results err = %v", err)
	}
	if _, err := f.svc.ResultFor(ctx, as(ann), f.class.ID, quiz.ID, bob.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("peeking err = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, records); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("csv rows = %d", len(rows))
	}
	want := []string{"ann Full", "2024-03-01T10:20:00Z", "2", "2", "Unit 1", "Maths"}
	for i, cell := range want {
		if rows[2][i] != cell {
			t.Fatalf("csv row = %v, want %v", rows[2], want)
		}
	}
}

func TestResultForMissingAttempt(t *testing.T) {
	f := newFixture(t, "ann")
	quiz := f.createQuiz(t)
	ann := f.students[0]
	if _, err := f.svc.ResultFor(context.Background(), as(ann), f.class.ID, quiz.ID, ann.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "cat", "ann", "bob")
	quiz := f.createQuiz(t)
	f.at(base.Add(time.Hour + time.Minute))

	full := []models.ResponseInput{
		answer(quiz.Questions[0].ID, opt(quiz, 0, 0)),
		answer(quiz.Questions[1].ID, opt(quiz, 1, 0)),
	}
	for _, s := range f.students[:2] {
		if _, err := f.svc.Submit(ctx, as(s), f.class.ID, quiz.ID, full); err != nil {
			t.Fatal(err)
		}
	}

	board, err := f.svc.Leaderboard(ctx, as(f.teacher), f.class.ID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 2 || board[0].Username != "ann" || board[1].Username != "cat" {
		t.Fatalf("board = %+v", board)
	}
	if _, err := f.svc.Leaderboard(ctx, as(f.students[0]), f.class.ID, quiz.ID); err != nil {
		t.Fatal(err)
	}
	if f.cache.boardHits != 1 {
		t.Fatalf("cache hits = %d, want 1", f.cache.boardHits)
	}

	// a new submission evicts the cached board
	if _, err := f.svc.Submit(ctx, as(f.students[2]), f.class.ID, quiz.ID, []models.ResponseInput{}); err != nil {
		t.Fatal(err)
	}
	board, err = f.svc.Leaderboard(ctx, as(f.teacher), f.class.ID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 3 || board[2].Username != "bob" || board[2].Score != 0 {
		t.Fatalf("board after submit = %+v", board)
	}
}

func TestSubmitNotifiesWatchers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann")
	quiz := f.createQuiz(t)
	f.at(base.Add(time.Hour + time.Minute))

	if _, err := f.svc.Submit(ctx, as(f.students[0]), f.class.ID, quiz.ID, []models.ResponseInput{
		answer(quiz.Questions[0].ID, opt(quiz, 0, 0)),
	}); err != nil {
		t.Fatal(err)
	}

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	if len(f.notifier.events) != 1 {
		t.Fatalf("events = %d", len(f.notifier.events))
	}
	got := f.notifier.events[0]
	if got.room != Room(quiz.ID) || got.kind != "submission" {
		t.Fatalf("event sent to %s/%s", got.room, got.kind)
	}
	if got.event.Username != "ann" || got.event.Score != 1 || got.event.OutOf != 2 {
		t.Fatalf("event = %+v", got.event)
	}
}

func TestServiceWithoutCacheOrNotifier(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	teacher := testdb.Teacher(t, db, "teacher")
	ann := testdb.Student(t, db, "ann")
	c := testdb.Class(t, db, teacher, "Maths", ann)

	svc := NewService(NewRepository(db), class.NewService(class.NewRepository(db)), nil, nil)
	svc.now = func() time.Time { return base }
	quiz, err := svc.CreateQuiz(ctx, as(teacher), c.ID, sampleInput(base.Add(time.Minute)))
	if err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := svc.Submit(ctx, as(ann), c.ID, quiz.ID, []models.ResponseInput{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	board, err := svc.Leaderboard(ctx, as(teacher), c.ID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 1 || board[0].Username != "ann" {
		t.Fatalf("board = %+v", board)
	}
}

func TestCreateQuizRejectsOverlongDuration(t *testing.T) {
	f := newFixture(t, "ann")
	in := sampleInput(base.Add(time.Hour))
	in.Duration = 200000000

	if err := httpx.Validate(in); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("Validate err = %v", err)
	}
	if _, err := f.svc.CreateQuiz(context.Background(), as(f.teacher), f.class.ID, in); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("CreateQuiz err = %v", err)
	}

	in.Duration = schedule.MaxDuration
	if _, err := f.svc.CreateQuiz(context.Background(), as(f.teacher), f.class.ID, in); err != nil {
		t.Fatalf("year-long quiz rejected: %v", err)
	}
}

func TestSubmitSkipsFeedWithoutWatchers(t *testing.T) {
	f := newFixture(t, "ann")
	quiz := f.createQuiz(t)
	f.at(base.Add(time.Hour + time.Minute))
	f.notifier.watchers = 0

	if _, err := f.svc.Submit(context.Background(), as(f.students[0]), f.class.ID, quiz.ID, []models.ResponseInput{}); err != nil {
		t.Fatal(err)
	}
	if len(f.notifier.events) != 0 {
		t.Fatalf("events = %d, want 0", len(f.notifier.events))
	}
}

func TestLeaderboardDropsSnapshotOvertakenBySubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "ann", "bob")
	quiz := f.createQuiz(t)
	f.at(base.Add(time.Hour + time.Minute))

	if _, err := f.svc.Submit(ctx, as(f.students[0]), f.class.ID, quiz.ID, []models.ResponseInput{}); err != nil {
		t.Fatal(err)
	}

	// bob's attempt commits between the leaderboard read and the cache write
	f.cache.afterSetBoard = func() {
		f.cache.afterSetBoard = nil
		late := models.StudentResponse{StudentID: f.students[1].ID, QuizID: quiz.ID, OutOf: 2, SubmittedAt: f.clock}
		if err := f.db.Create(&late).Error; err != nil {
			t.Errorf("insert late response: %v", err)
		}
	}
	board, err := f.svc.Leaderboard(ctx, as(f.teacher), f.class.ID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 1 {
		t.Fatalf("board = %+v", board)
	}
	if f.cache.hasBoard(quiz.ID) {
		t.Fatal("stale leaderboard left in cache")
	}

	board, err = f.svc.Leaderboard(ctx, as(f.teacher), f.class.ID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 2 || !f.cache.hasBoard(quiz.ID) {
		t.Fatalf("rebuilt board = %+v", board)
	}
}
