// internal/quiz/handler.go
package quiz

import (
	"bytes"
	"encoding/json"
	"net/http"

	"classquiz/internal/apperr"
	"classquiz/internal/auth"
	"classquiz/internal/httpx"
	"classquiz/internal/models"
)

// Watcher upgrades a request into a subscription on a room.
type Watcher interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request, room string)
}

type Handler struct {
	service *Service
	watcher Watcher
}

func NewHandler(service *Service, watcher Watcher) *Handler {
	return &Handler{service: service, watcher: watcher}
}

type SubmitRequest struct {
	Responses []models.ResponseInput `json:"responses"`
}

type SubmitResponse struct {
	Score int `json:"score"`
	OutOf int `json:"out_of"`
}

// ids resolves the caller and the class/quiz path variables. quizId is
// skipped when withQuiz is false.
func ids(w http.ResponseWriter, r *http.Request, withQuiz bool) (auth.Principal, uint, uint, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		httpx.Error(w, r, apperr.New(apperr.KindUnauthenticated, "authentication required"))
		return p, 0, 0, false
	}
	classID, err := httpx.PathID(r, "classId")
	if err != nil {
		httpx.Error(w, r, err)
		return p, 0, 0, false
	}
	if !withQuiz {
		return p, classID, 0, true
	}
	quizID, err := httpx.PathID(r, "quizId")
	if err != nil {
		httpx.Error(w, r, err)
		return p, 0, 0, false
	}
	return p, classID, quizID, true
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	p, classID, _, ok := ids(w, r, false)
	if !ok {
		return
	}
	var in models.QuizInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), p, classID, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quiz)
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	p, classID, _, ok := ids(w, r, false)
	if !ok {
		return
	}
	quizzes, err := h.service.ListQuizzes(r.Context(), p, classID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quizzes)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	p, classID, quizID, ok := ids(w, r, true)
	if !ok {
		return
	}
	view, err := h.service.ViewQuiz(r.Context(), p, classID, quizID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	p, classID, quizID, ok := ids(w, r, true)
	if !ok {
		return
	}
	var in models.QuizInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	quiz, err := h.service.UpdateQuiz(r.Context(), p, classID, quizID, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quiz)
}

func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	p, classID, quizID, ok := ids(w, r, true)
	if !ok {
		return
	}
	if err := h.service.DeleteQuiz(r.Context(), p, classID, quizID); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SubmitResponses(w http.ResponseWriter, r *http.Request) {
	p, classID, quizID, ok := ids(w, r, true)
	if !ok {
		return
	}
	// An undecodable body is submitted as no responses at all: Submit still
	// checks access and the quiz window first, then rejects it as malformed.
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.Responses = nil
	}

	result, err := h.service.Submit(r.Context(), p, classID, quizID, req.Responses)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, SubmitResponse{Score: result.Score, OutOf: result.OutOf})
}

// MyResult is the student's own result.
func (h *Handler) MyResult(w http.ResponseWriter, r *http.Request) {
	p, classID, quizID, ok := ids(w, r, true)
	if !ok {
		return
	}
	result, err := h.service.ResultFor(r.Context(), p, classID, quizID, p.ID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) StudentResult(w http.ResponseWriter, r *http.Request) {
	p, classID, quizID, ok := ids(w, r, true)
	if !ok {
		return
	}
	studentID, err := httpx.PathID(r, "studentId")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	result, err := h.service.ResultFor(r.Context(), p, classID, quizID, studentID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	p, classID, quizID, ok := ids(w, r, true)
	if !ok {
		return
	}
	records, err := h.service.ResultsForQuiz(r.Context(), p, classID, quizID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	p, classID, quizID, ok := ids(w, r, true)
	if !ok {
		return
	}
	records, err := h.service.ResultsForQuiz(r.Context(), p, classID, quizID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, records); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(quizID)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	p, classID, quizID, ok := ids(w, r, true)
	if !ok {
		return
	}
	entries, err := h.service.Leaderboard(r.Context(), p, classID, quizID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

// Watch streams submission events of a quiz to its teacher.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	p, classID, quizID, ok := ids(w, r, true)
	if !ok {
		return
	}
	if h.watcher == nil {
		httpx.Error(w, r, apperr.NotFound("submission feed"))
		return
	}
	if err := h.service.AuthorizeWatch(r.Context(), p, classID, quizID); err != nil {
		httpx.Error(w, r, err)
		return
	}
	h.watcher.HandleWebSocket(w, r, Room(quizID))
}
