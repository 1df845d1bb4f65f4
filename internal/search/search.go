// Package search — фильтрация списка диалогов и сквозной поиск по сообщениям.
// Чистые функции над срезами в памяти, без обращения к хранилищу.
package search

import (
	"strings"

	"github.com/rentwork/internal/model"
)

// Mode — режим фильтра списка диалогов.
type Mode string

const (
	ModeAll       Mode = "all"
	ModeUnread    Mode = "unread"
	ModeImportant Mode = "important"
)

// UnreadCounter считает непрочитанные собеседника (ConversationRepository.UnreadCount).
type UnreadCounter func(model.Conversation) int

// FilterConversations — текстовый запрос (подстрока без учёта регистра по
// имени собеседника ИЛИ содержимому последнего сообщения) в логическом И
// с режимом: unread требует ненулевого бейджа, important — членства в
// множестве отмеченных.
func FilterConversations(convs []model.Conversation, query string, mode Mode, important map[string]bool, unread UnreadCounter) []model.Conversation {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Conversation, 0, len(convs))
	for _, c := range convs {
		if query != "" && !matchesQuery(c, query) {
			continue
		}
		switch mode {
		case ModeUnread:
			if unread(c) == 0 {
				continue
			}
		case ModeImportant:
			if !important[c.ID] {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func matchesQuery(c model.Conversation, loweredQuery string) bool {
	return strings.Contains(strings.ToLower(c.With.Name), loweredQuery) ||
		strings.Contains(strings.ToLower(c.LastMessage.Content), loweredQuery)
}

// Hit — найденное сообщение вместе с владеющим диалогом.
type Hit struct {
	Conversation model.Conversation `json:"conversation"`
	Message      model.Message      `json:"message"`
}

// AdvancedSearch разворачивает все сообщения всех диалогов и возвращает
// совпавшие по подстроке (без учёта регистра). Порядок стабильный:
// диалог за диалогом, внутри — порядок сообщений; без ранжирования.
func AdvancedSearch(convs []model.Conversation, query string) []Hit {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	var hits []Hit
	for _, c := range convs {
		for _, m := range c.Messages {
			if strings.Contains(strings.ToLower(m.Content), query) {
				hits = append(hits, Hit{Conversation: c, Message: m})
			}
		}
	}
	return hits
}
