package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentwork/internal/middleware"
	"github.com/rentwork/internal/model"
	"github.com/rentwork/internal/repository"
	"github.com/rentwork/internal/ws"
)

// StatusHandler — эфемерные статусы: лента, публикация, просмотры.
type StatusHandler struct {
	statusRepo *repository.StatusRepository
	hub        *ws.Hub
}

func NewStatusHandler(statusRepo *repository.StatusRepository, hub *ws.Hub) *StatusHandler {
	return &StatusHandler{statusRepo: statusRepo, hub: hub}
}

// List отдаёт живые статусы; протухшие вычищаются при чтении.
func (h *StatusHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses := h.hub.LoadStatuses(r.Context(), originContext(r))
	if statuses == nil {
		statuses = []model.Status{} // не отдаём null
	}
	writeJSON(w, http.StatusOK, statuses)
}

// CreateStatusRequest — тело публикации. Хотя бы одно из полей непустое.
type CreateStatusRequest struct {
	Content string `json:"content"`
	Image   string `json:"image"`
}

// Create публикует статус от имени текущего пользователя.
func (h *StatusHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	author := middleware.GetActor(r.Context())
	st, err := h.hub.CreateStatus(r.Context(), author, req.Content, req.Image, originContext(r))
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "content or image required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create status")
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// View отмечает статус просмотренным текущим пользователем.
func (h *StatusHandler) View(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetActor(r.Context())
	if err := h.hub.ViewStatus(r.Context(), chi.URLParam(r, "id"), viewer, originContext(r)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "status not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to mark viewed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Viewers отдаёт журнал просмотров статуса.
func (h *StatusHandler) Viewers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.statusRepo.Viewers(r.Context(), chi.URLParam(r, "id")))
}
