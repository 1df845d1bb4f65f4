package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rentwork/internal/kvstore"
	"github.com/rentwork/internal/logger"
	"github.com/rentwork/internal/model"
)

// ErrNotFound — первичный ключ (диалог, статус, сообщение) не существует.
// Ошибка вызывающего, не сбой окружения: пробрасывается наружу.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput — недопустимые данные (например, статус без текста и
// картинки). Отклоняется до любой записи в хранилище.
var ErrInvalidInput = errors.New("invalid input")

const (
	conversationsKey = "conversations"
	importantKey     = "important-conversations"
)

// ConversationRepository владеет списком диалогов и единственный пишет
// Messages/LastMessage. Каждая мутация — read-modify-write всего списка;
// сериализацию параллельных мутаций обеспечивает вызывающий.
type ConversationRepository struct {
	store kvstore.Store
}

func NewConversationRepository(store kvstore.Store) *ConversationRepository {
	return &ConversationRepository{store: store}
}

// List возвращает все диалоги. Первый вызов на пустом хранилище засевает
// демо-набор (одноразовый bootstrap, не механизм восстановления).
func (r *ConversationRepository) List(ctx context.Context) []model.Conversation {
	defer logger.DeferLogDuration("convRepo.List", time.Now())()
	if !kvstore.Has(ctx, r.store, conversationsKey) {
		convs := seedConversations(time.Now().UTC())
		if !kvstore.Write(ctx, r.store, conversationsKey, convs) {
			logger.Warnf("convRepo.List: демо-диалоги не сохранены, работаем из памяти")
		}
		logger.Infof("convRepo.List: засеяно демо-диалогов: %d", len(convs))
		return convs
	}
	return kvstore.Read(ctx, r.store, conversationsKey, []model.Conversation{})
}

// Get возвращает диалог по id.
func (r *ConversationRepository) Get(ctx context.Context, id string) (model.Conversation, error) {
	defer logger.DeferLogDuration("convRepo.Get", time.Now())()
	for _, c := range r.List(ctx) {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Conversation{}, ErrNotFound
}

// Append добавляет сообщение и пересчитывает LastMessage — единственная
// точка записи обоих полей, поэтому проекция не расходится с хвостом
// Messages. persisted=false означает отказ записи: хранилище осталось в
// прежнем состоянии, вызывающий показывает нефатальное предупреждение.
func (r *ConversationRepository) Append(ctx context.Context, conversationID string, msg model.Message) (conv model.Conversation, persisted bool, err error) {
	defer logger.DeferLogDuration("convRepo.Append", time.Now())()
	convs := r.List(ctx)
	idx := indexOf(convs, conversationID)
	if idx < 0 {
		return model.Conversation{}, false, ErrNotFound
	}
	convs[idx].Messages = append(convs[idx].Messages, msg)
	convs[idx].LastMessage = model.ProjectLastMessage(msg)
	persisted = kvstore.Write(ctx, r.store, conversationsKey, convs)
	return convs[idx], persisted, nil
}

// MarkRead помечает прочитанными все сообщения и LastMessage. Идемпотентна:
// повторный вызов не меняет состояние и не пишет в хранилище.
func (r *ConversationRepository) MarkRead(ctx context.Context, conversationID string) (conv model.Conversation, persisted bool, err error) {
	defer logger.DeferLogDuration("convRepo.MarkRead", time.Now())()
	convs := r.List(ctx)
	idx := indexOf(convs, conversationID)
	if idx < 0 {
		return model.Conversation{}, false, ErrNotFound
	}
	changed := false
	for i := range convs[idx].Messages {
		if !convs[idx].Messages[i].Read {
			convs[idx].Messages[i].Read = true
			changed = true
		}
	}
	if !convs[idx].LastMessage.Read {
		convs[idx].LastMessage.Read = true
		changed = true
	}
	if !changed {
		return convs[idx], true, nil
	}
	persisted = kvstore.Write(ctx, r.store, conversationsKey, convs)
	return convs[idx], persisted, nil
}

// UnreadCount — счётчик бейджа: непрочитанные сообщения собеседника.
// Сообщения user/admin не учитываются, сколько бы их ни было непрочитано.
func (r *ConversationRepository) UnreadCount(conv model.Conversation) int {
	n := 0
	for _, m := range conv.Messages {
		if !m.Read && !m.Sender.Outgoing() {
			n++
		}
	}
	return n
}

// SetImportant выставляет или снимает пользовательскую метку "важный".
// Метка независима от прочитанности и живёт отдельно от списка диалогов.
func (r *ConversationRepository) SetImportant(ctx context.Context, conversationID string, important bool) (persisted bool, err error) {
	defer logger.DeferLogDuration("convRepo.SetImportant", time.Now())()
	if indexOf(r.List(ctx), conversationID) < 0 {
		return false, ErrNotFound
	}
	marked := kvstore.Read(ctx, r.store, importantKey, map[string]bool{})
	if important {
		marked[conversationID] = true
	} else {
		delete(marked, conversationID)
	}
	return kvstore.Write(ctx, r.store, importantKey, marked), nil
}

// ImportantIDs возвращает множество отмеченных диалогов.
func (r *ConversationRepository) ImportantIDs(ctx context.Context) map[string]bool {
	return kvstore.Read(ctx, r.store, importantKey, map[string]bool{})
}

func indexOf(convs []model.Conversation, id string) int {
	for i := range convs {
		if convs[i].ID == id {
			return i
		}
	}
	return -1
}
