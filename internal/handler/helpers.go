package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rentwork/internal/logger"
)

// contextIDHeader — идентификатор вкладки-отправителя; мутации,
// пришедшие по HTTP, не ретранслируются обратно в этот контекст.
const contextIDHeader = "X-Context-Id"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func originContext(r *http.Request) string {
	return r.Header.Get(contextIDHeader)
}
