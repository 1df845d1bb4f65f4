package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rentwork/internal/kvstore"
	"github.com/rentwork/internal/model"
	"github.com/rentwork/internal/ws"
)

const stagedKeyPrefix = "staged-attachment:"

// StagedAttachments — подготовленные к отправке вложения в сессионном
// слое. Вкладка загружает файл заранее, само сообщение уходит позже;
// черновик переживает перезагрузку страницы, но не живёт дольше сессии.
type StagedAttachments struct {
	session kvstore.Store
	hub     *ws.Hub
}

func NewStagedAttachments(session kvstore.Store, hub *ws.Hub) *StagedAttachments {
	return &StagedAttachments{session: session, hub: hub}
}

// Take забирает и удаляет staged-вложение контекста. nil — ничего не подготовлено.
func (s *StagedAttachments) Take(ctx context.Context, contextID string) *model.Attachment {
	if contextID == "" {
		return nil
	}
	key := stagedKeyPrefix + contextID
	if !kvstore.Has(ctx, s.session, key) {
		return nil
	}
	att := kvstore.Read(ctx, s.session, key, model.Attachment{})
	kvstore.Remove(ctx, s.session, key)
	if att.Kind == "" {
		return nil
	}
	return &att
}

// Stage сохраняет вложение для контекста (требуется заголовок X-Context-Id).
func (s *StagedAttachments) Stage(w http.ResponseWriter, r *http.Request) {
	contextID := originContext(r)
	if contextID == "" {
		writeError(w, http.StatusBadRequest, "X-Context-Id header required")
		return
	}
	var att model.Attachment
	if err := json.NewDecoder(r.Body).Decode(&att); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	switch att.Kind {
	case model.AttachmentImage, model.AttachmentAudio:
	default:
		writeError(w, http.StatusBadRequest, "kind must be image or audio")
		return
	}
	if !kvstore.Write(r.Context(), s.session, stagedKeyPrefix+contextID, att) {
		writeError(w, http.StatusInternalServerError, "failed to stage attachment")
		return
	}
	s.hub.Broadcast(contextID, ws.OutgoingMessage{Type: ws.EventAttachmentStaged, Payload: ws.AttachmentStagedPayload{
		ContextID: contextID, Kind: att.Kind,
	}})
	w.WriteHeader(http.StatusNoContent)
}

// Peek отдаёт staged-вложение контекста, не удаляя его.
func (s *StagedAttachments) Peek(w http.ResponseWriter, r *http.Request) {
	contextID := originContext(r)
	if contextID == "" {
		writeError(w, http.StatusBadRequest, "X-Context-Id header required")
		return
	}
	key := stagedKeyPrefix + contextID
	if !kvstore.Has(r.Context(), s.session, key) {
		writeError(w, http.StatusNotFound, "no staged attachment")
		return
	}
	writeJSON(w, http.StatusOK, kvstore.Read(r.Context(), s.session, key, model.Attachment{}))
}

// Discard удаляет staged-вложение контекста. Отсутствие — no-op.
func (s *StagedAttachments) Discard(w http.ResponseWriter, r *http.Request) {
	contextID := originContext(r)
	if contextID == "" {
		writeError(w, http.StatusBadRequest, "X-Context-Id header required")
		return
	}
	kvstore.Remove(r.Context(), s.session, stagedKeyPrefix+contextID)
	w.WriteHeader(http.StatusNoContent)
}
