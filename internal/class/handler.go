// internal/class/handler.go
package class

import (
	"net/http"

	"classquiz/internal/apperr"
	"classquiz/internal/auth"
	"classquiz/internal/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		httpx.Error(w, r, apperr.New(apperr.KindUnauthenticated, "authentication required"))
	}
	return p, ok
}

func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req ClassInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	c, err := h.service.CreateClass(r.Context(), p, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) ListClasses(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	classes, err := h.service.ListClasses(r.Context(), p)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, classes)
}

func (h *Handler) GetClass(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	classID, err := httpx.PathID(r, "classId")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	detail, err := h.service.GetClass(r.Context(), p, classID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) RenameClass(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	classID, err := httpx.PathID(r, "classId")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req ClassInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	c, err := h.service.RenameClass(r.Context(), p, classID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteClass(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	classID, err := httpx.PathID(r, "classId")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.service.DeleteClass(r.Context(), p, classID); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddStudent(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	classID, err := httpx.PathID(r, "classId")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req AddStudentInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	student, err := h.service.AddStudent(r.Context(), p, classID, req.Username)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, student)
}

func (h *Handler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	classID, err := httpx.PathID(r, "classId")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	studentID, err := httpx.PathID(r, "studentId")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.service.RemoveStudent(r.Context(), p, classID, studentID); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	classID, err := httpx.PathID(r, "classId")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	c, err := h.service.Join(r.Context(), p, classID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	classID, err := httpx.PathID(r, "classId")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.service.Leave(r.Context(), p, classID); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
