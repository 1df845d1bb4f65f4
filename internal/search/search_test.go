package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwork/internal/model"
)

func unreadCount(c model.Conversation) int {
	n := 0
	for _, m := range c.Messages {
		if !m.Read && !m.Sender.Outgoing() {
			n++
		}
	}
	return n
}

func testConversations() []model.Conversation {
	return []model.Conversation{
		{
			ID:   "c1",
			With: model.Counterpart{Name: "Анна Петрова"},
			Messages: []model.Message{
				{ID: "m1", Content: "Квартира свободна с марта", Read: true, Sender: model.SenderOther},
				{ID: "m2", Content: "Отлично, беру", Read: true, Sender: model.SenderUser},
			},
			LastMessage: model.LastMessage{Content: "Отлично, беру", Read: true, Sender: model.SenderUser},
		},
		{
			ID:   "c2",
			With: model.Counterpart{Name: "Кофейня «Зерно»"},
			Messages: []model.Message{
				{ID: "m3", Content: "Смена в субботу, подтвердите", Read: false, Sender: model.SenderOther},
			},
			LastMessage: model.LastMessage{Content: "Смена в субботу, подтвердите", Read: false, Sender: model.SenderOther},
		},
		{
			ID:   "c3",
			With: model.Counterpart{Name: "Поддержка"},
			Messages: []model.Message{
				{ID: "m4", Content: "Добро пожаловать!", Read: true, Sender: model.SenderSystem},
			},
			LastMessage: model.LastMessage{Content: "Добро пожаловать!", Read: true, Sender: model.SenderSystem},
		},
	}
}

func TestFilter_EmptyQueryModeAll(t *testing.T) {
	convs := testConversations()
	got := FilterConversations(convs, "", ModeAll, nil, unreadCount)
	assert.Equal(t, convs, got)
}

func TestFilter_QueryMatchesNameOrLastMessage(t *testing.T) {
	convs := testConversations()

	// имя собеседника, без учёта регистра
	got := FilterConversations(convs, "анна", ModeAll, nil, unreadCount)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)

	// содержимое последнего сообщения
	got = FilterConversations(convs, "субботу", ModeAll, nil, unreadCount)
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ID)

	// не последнее сообщение не участвует в фильтре списка
	got = FilterConversations(convs, "свободна с марта", ModeAll, nil, unreadCount)
	assert.Empty(t, got)
}

func TestFilter_ModeUnread(t *testing.T) {
	got := FilterConversations(testConversations(), "", ModeUnread, nil, unreadCount)
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ID)
}

func TestFilter_ModeImportant(t *testing.T) {
	important := map[string]bool{"c3": true}
	got := FilterConversations(testConversations(), "", ModeImportant, important, unreadCount)
	require.Len(t, got, 1)
	assert.Equal(t, "c3", got[0].ID)
}

func TestFilter_QueryAndModeAreConjunctive(t *testing.T) {
	important := map[string]bool{"c1": true, "c2": true}
	// запрос попадает в c2, режим important пропускает c1 и c2 — пересечение c2
	got := FilterConversations(testConversations(), "смена", ModeImportant, important, unreadCount)
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ID)

	// запрос попадает только в c3, но c3 не important — пусто
	got = FilterConversations(testConversations(), "поддержка", ModeImportant, important, unreadCount)
	assert.Empty(t, got)
}

func TestAdvancedSearch_StableOrder(t *testing.T) {
	convs := testConversations()
	hits := AdvancedSearch(convs, "о")
	require.NotEmpty(t, hits)
	// порядок: диалог за диалогом, внутри — хронология сообщений
	var prevConv int
	for _, h := range hits {
		idx := -1
		for i, c := range convs {
			if c.ID == h.Conversation.ID {
				idx = i
				break
			}
		}
		require.GreaterOrEqual(t, idx, prevConv)
		prevConv = idx
	}
}

func TestAdvancedSearch_MatchesAnyMessage(t *testing.T) {
	hits := AdvancedSearch(testConversations(), "свободна")
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].Conversation.ID)
	assert.Equal(t, "m1", hits[0].Message.ID)
}

func TestAdvancedSearch_EmptyQuery(t *testing.T) {
	assert.Nil(t, AdvancedSearch(testConversations(), ""))
	assert.Nil(t, AdvancedSearch(testConversations(), "   "))
}
