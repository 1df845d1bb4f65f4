package model

import "time"

// Sender — автор сообщения. Только сообщения user/admin участвуют
// в отображении галочек прочтения; всё остальное считается входящим.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAdmin  Sender = "admin"
	SenderSystem Sender = "system"
	SenderOther  Sender = "other"
)

// Outgoing сообщает, рисуются ли для отправителя галочки прочтения.
func (s Sender) Outgoing() bool {
	return s == SenderUser || s == SenderAdmin
}

// Message — одно сообщение диалога. Content хранится в tagged-кодировке
// (см. content.go); внутренняя логика работает через ParseBody, не с префиксами.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Sender    Sender    `json:"sender"`
}

type Reaction struct {
	MessageID string    `json:"message_id"`
	Emoji     string    `json:"emoji"`
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionGroup — агрегированная реакция для отображения ("👍 ×2").
// Дубликаты (emoji, actor) легальны и увеличивают Count.
type ReactionGroup struct {
	Emoji  string   `json:"emoji"`
	Count  int      `json:"count"`
	Actors []string `json:"actors"` // actor IDs, в порядке добавления
}

// FavoriteMessage — снимок сообщения в избранном. Независим от исходного
// диалога: удаление источника не каскадирует.
type FavoriteMessage struct {
	Message          Message   `json:"message"`
	ConversationID   string    `json:"conversation_id"`
	ConversationName string    `json:"conversation_name"`
	SavedAt          time.Time `json:"saved_at"`
}
