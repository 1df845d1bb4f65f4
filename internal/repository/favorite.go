package repository

import (
	"context"
	"time"

	"github.com/rentwork/internal/kvstore"
	"github.com/rentwork/internal/logger"
	"github.com/rentwork/internal/model"
)

const favoritesKey = "favorite-messages"

// FavoriteRepository — избранные сообщения. Хранит снимки: удаление
// исходного сообщения или диалога избранное не трогает.
type FavoriteRepository struct {
	store kvstore.Store
}

func NewFavoriteRepository(store kvstore.Store) *FavoriteRepository {
	return &FavoriteRepository{store: store}
}

// Toggle добавляет снимок сообщения в избранное или убирает его, если оно
// уже там (членство — по id сообщения). Дубликатов не бывает: повторное
// добавление того же id невозможно по построению.
func (r *FavoriteRepository) Toggle(ctx context.Context, msg model.Message, conversationID, conversationName string) (nowFavorite, persisted bool) {
	defer logger.DeferLogDuration("favRepo.Toggle", time.Now())()
	favs := kvstore.Read(ctx, r.store, favoritesKey, []model.FavoriteMessage{})
	for i, f := range favs {
		if f.Message.ID == msg.ID {
			favs = append(favs[:i:i], favs[i+1:]...)
			return false, kvstore.Write(ctx, r.store, favoritesKey, favs)
		}
	}
	favs = append(favs, model.FavoriteMessage{
		Message:          msg,
		ConversationID:   conversationID,
		ConversationName: conversationName,
		SavedAt:          time.Now().UTC(),
	})
	return true, kvstore.Write(ctx, r.store, favoritesKey, favs)
}

// List возвращает избранное в порядке добавления.
func (r *FavoriteRepository) List(ctx context.Context) []model.FavoriteMessage {
	defer logger.DeferLogDuration("favRepo.List", time.Now())()
	return kvstore.Read(ctx, r.store, favoritesKey, []model.FavoriteMessage{})
}

// IsFavorite проверяет членство по id сообщения.
func (r *FavoriteRepository) IsFavorite(ctx context.Context, messageID string) bool {
	for _, f := range r.List(ctx) {
		if f.Message.ID == messageID {
			return true
		}
	}
	return false
}
