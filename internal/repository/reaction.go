package repository

import (
	"context"
	"time"

	"github.com/rentwork/internal/kvstore"
	"github.com/rentwork/internal/logger"
	"github.com/rentwork/internal/model"
)

const reactionsKey = "message-reactions"

// ReactionRepository — реакции на сообщения, независимо от того, загружен ли
// владеющий диалог. Хранение — мультимножество троек (message, emoji, actor):
// повторная реакция того же актора тем же emoji легальна и увеличивает
// счётчик отображения. Это осознанная политика, не дедуплицируем.
type ReactionRepository struct {
	store kvstore.Store
}

func NewReactionRepository(store kvstore.Store) *ReactionRepository {
	return &ReactionRepository{store: store}
}

func (r *ReactionRepository) load(ctx context.Context) map[string][]model.Reaction {
	return kvstore.Read(ctx, r.store, reactionsKey, map[string][]model.Reaction{})
}

// Add добавляет тройку реакции. Существование сообщения не проверяется.
func (r *ReactionRepository) Add(ctx context.Context, messageID, emoji string, actor model.Identity) (persisted bool) {
	defer logger.DeferLogDuration("reactionRepo.Add", time.Now())()
	all := r.load(ctx)
	all[messageID] = append(all[messageID], model.Reaction{
		MessageID: messageID,
		Emoji:     emoji,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		CreatedAt: time.Now().UTC(),
	})
	return kvstore.Write(ctx, r.store, reactionsKey, all)
}

// Remove убирает ровно одну подходящую тройку; отсутствие совпадения — no-op.
func (r *ReactionRepository) Remove(ctx context.Context, messageID, emoji, actorID string) (persisted bool) {
	defer logger.DeferLogDuration("reactionRepo.Remove", time.Now())()
	all := r.load(ctx)
	list := all[messageID]
	for i, rc := range list {
		if rc.Emoji == emoji && rc.ActorID == actorID {
			all[messageID] = append(list[:i:i], list[i+1:]...)
			if len(all[messageID]) == 0 {
				delete(all, messageID)
			}
			return kvstore.Write(ctx, r.store, reactionsKey, all)
		}
	}
	return true
}

// ByMessage возвращает реакции сообщения в порядке добавления.
func (r *ReactionRepository) ByMessage(ctx context.Context, messageID string) []model.Reaction {
	defer logger.DeferLogDuration("reactionRepo.ByMessage", time.Now())()
	return r.load(ctx)[messageID]
}

// Grouped агрегирует реакции для отображения: по emoji, в порядке первого
// появления. Дубликаты одного актора учитываются в Count по разу каждый.
func (r *ReactionRepository) Grouped(ctx context.Context, messageID string) []model.ReactionGroup {
	defer logger.DeferLogDuration("reactionRepo.Grouped", time.Now())()
	byEmoji := map[string]int{}
	order := []string{}
	actors := map[string][]string{}
	for _, rc := range r.load(ctx)[messageID] {
		if _, ok := byEmoji[rc.Emoji]; !ok {
			order = append(order, rc.Emoji)
		}
		byEmoji[rc.Emoji]++
		actors[rc.Emoji] = append(actors[rc.Emoji], rc.ActorID)
	}
	groups := make([]model.ReactionGroup, 0, len(order))
	for _, emoji := range order {
		groups = append(groups, model.ReactionGroup{
			Emoji:  emoji,
			Count:  byEmoji[emoji],
			Actors: actors[emoji],
		})
	}
	return groups
}
