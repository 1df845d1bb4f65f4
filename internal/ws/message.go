package ws

import (
	"github.com/rentwork/internal/model"
)

// EventType — тип события синхронизации между контекстами.
type EventType string

const (
	// Мутации, принимаемые от контекста (горячий путь без HTTP).
	EventNewMessage       EventType = "new_message"
	EventConversationRead EventType = "conversation_read"
	EventReactionAdded    EventType = "reaction_added"
	EventReactionRemoved  EventType = "reaction_removed"
	EventStatusViewed     EventType = "status_viewed"

	// Уведомления об изменении хранилища, рассылаемые остальным контекстам.
	EventMessageAppended    EventType = "message_appended"
	EventFavoriteToggled    EventType = "favorite_toggled"
	EventImportantChanged   EventType = "important_changed"
	EventStatusCreated      EventType = "status_created"
	EventStatusesCompacted  EventType = "statuses_compacted"
	EventAttachmentStaged   EventType = "attachment_staged"
	EventError              EventType = "error"
	EventWriteFailed        EventType = "write_failed"
)

// IncomingMessage — событие от контекста серверу.
type IncomingMessage struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Text           string    `json:"text,omitempty"`

	// Вложение от сервиса захвата (image/audio).
	Attachment *model.Attachment `json:"attachment,omitempty"`

	// Для реакций.
	MessageID string `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`

	// Для статусов.
	StatusID string `json:"status_id,omitempty"`
}

// OutgoingMessage — событие сервера контексту. Payload — типизированные
// структуры, не map[string]any.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// MessageAppendedPayload рассылается после добавления сообщения в диалог.
type MessageAppendedPayload struct {
	ConversationID string        `json:"conversation_id"`
	Message        model.Message `json:"message"`
	UnreadCount    int           `json:"unread_count"`
}

// ConversationReadPayload рассылается после пометки диалога прочитанным.
type ConversationReadPayload struct {
	ConversationID string `json:"conversation_id"`
}

// ReactionPayload рассылается при добавлении/удалении реакции.
type ReactionPayload struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	ActorID   string `json:"actor_id"`
}

// FavoriteToggledPayload рассылается после переключения избранного.
type FavoriteToggledPayload struct {
	MessageID string `json:"message_id"`
	Favorite  bool   `json:"favorite"`
}

// ImportantChangedPayload рассылается при смене метки "важный".
type ImportantChangedPayload struct {
	ConversationID string `json:"conversation_id"`
	Important      bool   `json:"important"`
}

// StatusCreatedPayload рассылается после публикации статуса.
type StatusCreatedPayload struct {
	Status model.Status `json:"status"`
}

// StatusViewedPayload рассылается после первого просмотра статуса зрителем.
type StatusViewedPayload struct {
	StatusID string `json:"status_id"`
	ViewerID string `json:"viewer_id"`
}

// StatusesCompactedPayload рассылается, когда компакция при загрузке
// вычистила истёкшие статусы.
type StatusesCompactedPayload struct {
	DroppedIDs []string `json:"dropped_ids"`
}

// AttachmentStagedPayload рассылается, когда контекст застейджил вложение
// в session-ярусе (остальные контексты могут его подхватить).
type AttachmentStagedPayload struct {
	ContextID string               `json:"context_id"`
	Kind      model.AttachmentKind `json:"kind"`
}

// WriteFailedPayload отправляется инициатору, когда запись в хранилище не
// удалась: изменение не сохранено, значение осталось в памяти контекста.
type WriteFailedPayload struct {
	Operation string `json:"operation"`
}
