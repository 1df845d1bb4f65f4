package model

import "time"

// Counterpart — собеседник диалога (арендодатель, работодатель, поддержка).
type Counterpart struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

// LastMessage — денормализованная проекция последнего сообщения.
// Единственный источник — ProjectLastMessage; после каждого append и
// mark-read поле обязано совпадать с проекцией последнего элемента Messages.
type LastMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Sender    Sender    `json:"sender"`
}

// Conversation — диалог с одним собеседником. Messages append-only с точки
// зрения движка: редактирование и удаление не моделируются.
type Conversation struct {
	ID          string      `json:"id"`
	With        Counterpart `json:"with"`
	Messages    []Message   `json:"messages"`
	LastMessage LastMessage `json:"last_message"`
}

// ProjectLastMessage строит проекцию для Conversation.LastMessage.
func ProjectLastMessage(m Message) LastMessage {
	return LastMessage{
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Read:      m.Read,
		Sender:    m.Sender,
	}
}
