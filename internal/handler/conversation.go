package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rentwork/internal/model"
	"github.com/rentwork/internal/repository"
	"github.com/rentwork/internal/search"
	"github.com/rentwork/internal/service"
	"github.com/rentwork/internal/ws"
)

// ConversationHandler — список диалогов, отправка сообщений, прочтение, пометка «важное».
type ConversationHandler struct {
	convRepo  *repository.ConversationRepository
	reactRepo *repository.ReactionRepository
	favRepo   *repository.FavoriteRepository
	staged    *StagedAttachments
	hub       *ws.Hub
}

func NewConversationHandler(convRepo *repository.ConversationRepository, reactRepo *repository.ReactionRepository, favRepo *repository.FavoriteRepository, staged *StagedAttachments, hub *ws.Hub) *ConversationHandler {
	return &ConversationHandler{convRepo: convRepo, reactRepo: reactRepo, favRepo: favRepo, staged: staged, hub: hub}
}

// ConversationSummary — элемент списка диалогов (без тела переписки).
type ConversationSummary struct {
	ID          string            `json:"id"`
	With        model.Counterpart `json:"with"`
	LastMessage model.LastMessage `json:"last_message"`
	UnreadCount int               `json:"unread_count"`
	Important   bool              `json:"important"`
}

// List отдаёт диалоги с фильтрацией: ?q=строка&mode=all|unread|important.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mode := search.Mode(r.URL.Query().Get("mode"))
	switch mode {
	case "", search.ModeAll:
		mode = search.ModeAll
	case search.ModeUnread, search.ModeImportant:
	default:
		writeError(w, http.StatusBadRequest, "mode must be all, unread or important")
		return
	}

	convs := h.convRepo.List(ctx)
	important := h.convRepo.ImportantIDs(ctx)
	filtered := search.FilterConversations(convs, r.URL.Query().Get("q"), mode, important, h.convRepo.UnreadCount)

	out := make([]ConversationSummary, 0, len(filtered))
	for _, c := range filtered {
		out = append(out, ConversationSummary{
			ID:          c.ID,
			With:        c.With,
			LastMessage: c.LastMessage,
			UnreadCount: h.convRepo.UnreadCount(c),
			Important:   important[c.ID],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ConversationDetail — полный диалог с реакциями и флагами избранного.
type ConversationDetail struct {
	model.Conversation
	UnreadCount int                              `json:"unread_count"`
	Important   bool                             `json:"important"`
	Reactions   map[string][]model.ReactionGroup `json:"reactions,omitempty"`
	FavoriteIDs []string                         `json:"favorite_ids,omitempty"`
}

// Get отдаёт диалог по id вместе с реакциями по каждому сообщению.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	detail := ConversationDetail{
		Conversation: conv,
		UnreadCount:  h.convRepo.UnreadCount(conv),
		Important:    h.convRepo.ImportantIDs(ctx)[conv.ID],
	}
	for _, m := range conv.Messages {
		if groups := h.reactRepo.Grouped(ctx, m.ID); len(groups) > 0 {
			if detail.Reactions == nil {
				detail.Reactions = make(map[string][]model.ReactionGroup)
			}
			detail.Reactions[m.ID] = groups
		}
		if h.favRepo.IsFavorite(ctx, m.ID) {
			detail.FavoriteIDs = append(detail.FavoriteIDs, m.ID)
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// SendMessageRequest — тело отправки. Либо text, либо attachment, либо
// use_staged (берёт вложение, подготовленное этим контекстом ранее).
type SendMessageRequest struct {
	Text       string            `json:"text"`
	Attachment *model.Attachment `json:"attachment,omitempty"`
	UseStaged  bool              `json:"use_staged,omitempty"`
}

// Send добавляет исходящее сообщение в диалог и рассылает его по контекстам.
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	origin := originContext(r)
	attachment := req.Attachment
	if attachment == nil && req.UseStaged {
		attachment = h.staged.Take(ctx, origin)
	}

	msg, err := service.BuildOutgoing(req.Text, attachment, model.SenderUser, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.hub.AppendMessage(ctx, chi.URLParam(r, "id"), msg, origin)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// MarkRead помечает все входящие сообщения диалога прочитанными.
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	conv, err := h.hub.MarkConversationRead(r.Context(), chi.URLParam(r, "id"), originContext(r))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to mark read")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// SetImportantRequest — тело пометки диалога.
type SetImportantRequest struct {
	Important bool `json:"important"`
}

// SetImportant включает или выключает пометку «важное» у диалога.
func (h *ConversationHandler) SetImportant(w http.ResponseWriter, r *http.Request) {
	var req SetImportantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.hub.SetImportant(r.Context(), chi.URLParam(r, "id"), req.Important, originContext(r)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
