package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwork/internal/kvstore"
	"github.com/rentwork/internal/kvstore/memory"
)

func sub(endpoint string) Subscription {
	s := Subscription{Endpoint: endpoint}
	s.Keys.P256dh = "p"
	s.Keys.Auth = "a"
	return s
}

func TestNotifier_DisabledWithoutKeys(t *testing.T) {
	n := New(memory.New(), "", "")
	assert.False(t, n.Enabled())
	// отправка при выключенных пушах — no-op, не паника
	n.Notify(context.Background(), "t", "b", nil)
}

func TestSubscribe_Validation(t *testing.T) {
	ctx := context.Background()
	n := New(memory.New(), "", "")

	assert.ErrorIs(t, n.Subscribe(ctx, Subscription{}), ErrInvalidSubscription)

	bad := sub("https://push.example/e1")
	bad.Keys.Auth = ""
	assert.ErrorIs(t, n.Subscribe(ctx, bad), ErrInvalidSubscription)

	require.NoError(t, n.Subscribe(ctx, sub("https://push.example/e1")))
}

func TestSubscribe_DedupesByEndpoint(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	n := New(store, "", "")

	require.NoError(t, n.Subscribe(ctx, sub("https://push.example/e1")))
	require.NoError(t, n.Subscribe(ctx, sub("https://push.example/e2")))
	require.NoError(t, n.Subscribe(ctx, sub("https://push.example/e1"))) // повтор

	subs := kvstore.Read(ctx, store, subscriptionsKey, []Subscription(nil))
	require.Len(t, subs, 2)
	// повтор переезжает в хвост
	assert.Equal(t, "https://push.example/e2", subs[0].Endpoint)
	assert.Equal(t, "https://push.example/e1", subs[1].Endpoint)
}

func TestSubscribe_TrimsToLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	n := New(store, "", "")

	for i := 0; i < maxSubscriptions+3; i++ {
		require.NoError(t, n.Subscribe(ctx, sub(fmt.Sprintf("https://push.example/e%d", i))))
	}
	subs := kvstore.Read(ctx, store, subscriptionsKey, []Subscription(nil))
	require.Len(t, subs, maxSubscriptions)
	// остаются последние
	assert.Equal(t, "https://push.example/e3", subs[0].Endpoint)
}

func TestUnsubscribe(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	n := New(store, "", "")

	require.NoError(t, n.Subscribe(ctx, sub("https://push.example/e1")))
	require.NoError(t, n.Subscribe(ctx, sub("https://push.example/e2")))

	n.Unsubscribe(ctx, "https://push.example/e1")
	subs := kvstore.Read(ctx, store, subscriptionsKey, []Subscription(nil))
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push.example/e2", subs[0].Endpoint)

	// отсутствие — no-op
	n.Unsubscribe(ctx, "https://push.example/ghost")
	assert.Len(t, kvstore.Read(ctx, store, subscriptionsKey, []Subscription(nil)), 1)

	// удаление последней подписки вычищает ключ целиком
	n.Unsubscribe(ctx, "https://push.example/e2")
	assert.False(t, kvstore.Has(ctx, store, subscriptionsKey))
}
