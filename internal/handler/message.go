package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentwork/internal/middleware"
	"github.com/rentwork/internal/repository"
	"github.com/rentwork/internal/ws"
)

// MessageHandler — реакции и избранные сообщения.
type MessageHandler struct {
	convRepo  *repository.ConversationRepository
	reactRepo *repository.ReactionRepository
	favRepo   *repository.FavoriteRepository
	hub       *ws.Hub
}

func NewMessageHandler(convRepo *repository.ConversationRepository, reactRepo *repository.ReactionRepository, favRepo *repository.FavoriteRepository, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{convRepo: convRepo, reactRepo: reactRepo, favRepo: favRepo, hub: hub}
}

// ReactionRequest — тело добавления/снятия реакции.
type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

// AddReaction вешает эмодзи на сообщение от имени текущего пользователя.
func (h *MessageHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Emoji == "" {
		writeError(w, http.StatusBadRequest, "emoji is required")
		return
	}
	actor := middleware.GetActor(r.Context())
	h.hub.AddReaction(r.Context(), chi.URLParam(r, "messageID"), req.Emoji, actor, originContext(r))
	writeJSON(w, http.StatusOK, h.reactRepo.Grouped(r.Context(), chi.URLParam(r, "messageID")))
}

// RemoveReaction снимает одну реакцию текущего пользователя.
func (h *MessageHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Emoji == "" {
		writeError(w, http.StatusBadRequest, "emoji is required")
		return
	}
	actor := middleware.GetActor(r.Context())
	h.hub.RemoveReaction(r.Context(), chi.URLParam(r, "messageID"), req.Emoji, actor, originContext(r))
	writeJSON(w, http.StatusOK, h.reactRepo.Grouped(r.Context(), chi.URLParam(r, "messageID")))
}

// ListReactions отдаёт агрегированные реакции сообщения.
func (h *MessageHandler) ListReactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reactRepo.Grouped(r.Context(), chi.URLParam(r, "messageID")))
}

// ToggleFavoriteResponse — результат переключения избранного.
type ToggleFavoriteResponse struct {
	MessageID string `json:"message_id"`
	Favorite  bool   `json:"favorite"`
}

// ToggleFavorite добавляет сообщение в избранное или убирает из него.
// Сообщение ищется в своём диалоге, чтобы сохранить снапшот контекста.
func (h *MessageHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conv, err := h.convRepo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	messageID := chi.URLParam(r, "messageID")
	for _, m := range conv.Messages {
		if m.ID == messageID {
			fav := h.hub.ToggleFavorite(ctx, m, conv.ID, conv.With.Name, originContext(r))
			writeJSON(w, http.StatusOK, ToggleFavoriteResponse{MessageID: messageID, Favorite: fav})
			return
		}
	}
	writeError(w, http.StatusNotFound, "message not found")
}

// ListFavorites отдаёт избранные сообщения со снапшотами диалогов.
func (h *MessageHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.favRepo.List(r.Context()))
}
