// Package service собирает исходящие сообщения из сырого ввода: текст и/или
// дескриптор вложения от сервиса захвата. Отправка оптимистична — сообщение
// попадает в локальный диалог сразу, состояний "ожидает доставки" нет.
package service

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentwork/internal/model"
)

// ErrEmptyMessage — отправка без текста (после trim) и без вложения: no-op,
// отклоняется до обращения к репозиторию.
var ErrEmptyMessage = errors.New("empty message")

// BuildOutgoing строит сообщение от имени sender. При наличии вложения
// содержимое — tagged-кодировка по виду вложения; подпись, набранная рядом
// с вложением, в содержимое не подмешивается (поведение исходного продукта,
// см. DESIGN.md).
func BuildOutgoing(text string, attachment *model.Attachment, sender model.Sender, now time.Time) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && attachment == nil {
		return model.Message{}, ErrEmptyMessage
	}
	content := text
	if attachment != nil {
		content = model.EncodeBody(attachment.Body())
	}
	return model.Message{
		ID:        uuid.New().String(),
		Content:   content,
		Timestamp: now.UTC(),
		Read:      sender.Outgoing(), // своё сообщение для себя прочитано
		Sender:    sender,
	}, nil
}
