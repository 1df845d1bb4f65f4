package handler

import (
	"net/http"
	"strings"

	"github.com/rentwork/internal/repository"
	"github.com/rentwork/internal/search"
)

// SearchHandler — расширенный поиск по всем сообщениям всех диалогов.
type SearchHandler struct {
	convRepo *repository.ConversationRepository
}

func NewSearchHandler(convRepo *repository.ConversationRepository) *SearchHandler {
	return &SearchHandler{convRepo: convRepo}
}

// Advanced отдаёт совпадения ?q= по содержимому сообщений.
// Порядок стабильный: диалоги в порядке списка, сообщения по хронологии.
func (h *SearchHandler) Advanced(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	hits := h.convRepo.List(r.Context())
	results := search.AdvancedSearch(hits, query)
	if results == nil {
		results = []search.Hit{}
	}
	limit := queryInt(r, "limit", 0)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	writeJSON(w, http.StatusOK, results)
}
