package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rentwork/internal/notify"
)

// PushHandler — подписка браузера на Web Push-уведомления.
type PushHandler struct {
	notifier *notify.Notifier
}

func NewPushHandler(notifier *notify.Notifier) *PushHandler {
	return &PushHandler{notifier: notifier}
}

// VAPIDPublic отдаёт публичный ключ для подписки на клиенте.
func (h *PushHandler) VAPIDPublic(w http.ResponseWriter, r *http.Request) {
	if !h.notifier.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "push not configured")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(h.notifier.PublicKey()))
}

// Subscribe сохраняет подписку браузера.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var sub notify.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.notifier.Subscribe(r.Context(), sub); err != nil {
		if errors.Is(err, notify.ErrInvalidSubscription) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unsubscribe удаляет подписку по endpoint.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint required")
		return
	}
	h.notifier.Unsubscribe(r.Context(), req.Endpoint)
	w.WriteHeader(http.StatusNoContent)
}
