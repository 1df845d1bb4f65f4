package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwork/internal/kvstore/memory"
	"github.com/rentwork/internal/model"
)

func TestFavorites_ToggleOnOff(t *testing.T) {
	ctx := context.Background()
	repo := NewFavoriteRepository(memory.New())
	msg := model.Message{ID: "m1", Content: "адрес: Ленина 5", Timestamp: time.Now().UTC(), Sender: model.SenderOther}

	fav, persisted := repo.Toggle(ctx, msg, "c1", "Анна")
	assert.True(t, fav)
	assert.True(t, persisted)
	assert.True(t, repo.IsFavorite(ctx, "m1"))

	list := repo.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, msg, list[0].Message)
	assert.Equal(t, "c1", list[0].ConversationID)
	assert.Equal(t, "Анна", list[0].ConversationName)
	assert.False(t, list[0].SavedAt.IsZero())

	fav, persisted = repo.Toggle(ctx, msg, "c1", "Анна")
	assert.False(t, fav)
	assert.True(t, persisted)
	assert.False(t, repo.IsFavorite(ctx, "m1"))
	assert.Empty(t, repo.List(ctx))
}

func TestFavorites_MembershipByMessageID(t *testing.T) {
	ctx := context.Background()
	repo := NewFavoriteRepository(memory.New())
	msg := model.Message{ID: "m1", Content: "v1"}

	repo.Toggle(ctx, msg, "c1", "Анна")
	// то же id, другое содержимое — это снятие, не второй снимок
	changed := msg
	changed.Content = "v2"
	fav, _ := repo.Toggle(ctx, changed, "c1", "Анна")
	assert.False(t, fav)
	assert.Empty(t, repo.List(ctx))
}

func TestFavorites_SnapshotSurvivesSource(t *testing.T) {
	ctx := context.Background()
	repo := NewFavoriteRepository(memory.New())
	msg := model.Message{ID: "m1", Content: "снимок", Sender: model.SenderUser}

	repo.Toggle(ctx, msg, "c-gone", "Удалённый диалог")
	// диалога c-gone нигде нет — снимок живёт сам по себе
	list := repo.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "снимок", list[0].Message.Content)
	assert.Equal(t, "Удалённый диалог", list[0].ConversationName)
}

func TestFavorites_OrderOfAddition(t *testing.T) {
	ctx := context.Background()
	repo := NewFavoriteRepository(memory.New())

	repo.Toggle(ctx, model.Message{ID: "a"}, "c1", "X")
	repo.Toggle(ctx, model.Message{ID: "b"}, "c1", "X")
	repo.Toggle(ctx, model.Message{ID: "c"}, "c2", "Y")
	repo.Toggle(ctx, model.Message{ID: "b"}, "c1", "X") // снять середину

	list := repo.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Message.ID)
	assert.Equal(t, "c", list[1].Message.ID)
}
