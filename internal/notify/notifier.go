// Package notify отправляет Web Push-уведомления напрямую через VAPID.
// Подписки браузера хранятся в локальном kv-хранилище вместе с остальным
// состоянием мессенджера.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/rentwork/internal/kvstore"
	"github.com/rentwork/internal/logger"
)

const (
	subscriptionsKey = "push-subscriptions"
	maxSubscriptions = 10
	sendTimeout      = 10 * time.Second
)

// ErrInvalidSubscription возвращается при неполной подписке браузера.
var ErrInvalidSubscription = errors.New("endpoint and keys (p256dh, auth) required")

// Subscription — подписка из браузера (PushSubscription.toJSON()).
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Notifier хранит подписки и шлёт пуши. Если VAPID-ключи не заданы,
// Enabled() == false: подписки сохраняются, отправка не выполняется.
type Notifier struct {
	store kvstore.Store
	vapid *webpush.Options

	// mu сериализует read-modify-write списка подписок.
	mu sync.Mutex

	publicKey string
}

// New создаёт нотификатор. Пустые ключи — пуши отключены.
func New(store kvstore.Store, publicKey, privateKey string) *Notifier {
	n := &Notifier{store: store, publicKey: publicKey}
	if publicKey != "" && privateKey != "" {
		n.vapid = &webpush.Options{
			Subscriber:      "rentwork-notify",
			VAPIDPublicKey:  publicKey,
			VAPIDPrivateKey: privateKey,
			TTL:             30,
		}
	}
	return n
}

// Enabled сообщает, настроена ли отправка.
func (n *Notifier) Enabled() bool {
	return n.vapid != nil
}

// PublicKey возвращает публичный VAPID-ключ для подписки на клиенте.
func (n *Notifier) PublicKey() string {
	return n.publicKey
}

// Subscribe сохраняет подписку. Дубликаты по endpoint заменяются,
// список обрезается до maxSubscriptions последних.
func (n *Notifier) Subscribe(ctx context.Context, sub Subscription) error {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return ErrInvalidSubscription
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	subs := kvstore.Read(ctx, n.store, subscriptionsKey, []Subscription(nil))
	kept := subs[:0]
	for _, s := range subs {
		if s.Endpoint != sub.Endpoint {
			kept = append(kept, s)
		}
	}
	kept = append(kept, sub)
	if len(kept) > maxSubscriptions {
		kept = kept[len(kept)-maxSubscriptions:]
	}
	if !kvstore.Write(ctx, n.store, subscriptionsKey, kept) {
		logger.Warnf("notify: subscription list not persisted")
	}
	return nil
}

// Unsubscribe удаляет подписку по endpoint. Отсутствие — no-op.
func (n *Notifier) Unsubscribe(ctx context.Context, endpoint string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removeLocked(ctx, endpoint)
}

func (n *Notifier) removeLocked(ctx context.Context, endpoint string) {
	subs := kvstore.Read(ctx, n.store, subscriptionsKey, []Subscription(nil))
	kept := subs[:0]
	for _, s := range subs {
		if s.Endpoint != endpoint {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(subs) {
		return
	}
	if len(kept) == 0 {
		kvstore.Remove(ctx, n.store, subscriptionsKey)
		return
	}
	kvstore.Write(ctx, n.store, subscriptionsKey, kept)
}

// Notify отправляет пуш на все подписки. Мёртвые endpoint'ы (404/410)
// удаляются из списка. Ошибки логируются, не возвращаются: уведомление —
// best effort поверх основного потока сообщений.
func (n *Notifier) Notify(ctx context.Context, title, body string, data map[string]string) {
	if n.vapid == nil {
		return
	}
	n.mu.Lock()
	subs := kvstore.Read(ctx, n.store, subscriptionsKey, []Subscription(nil))
	n.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]any{"title": title, "body": body, "data": data})
	if err != nil {
		logger.Errorf("notify payload: %v", err)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	for i := range subs {
		sub := &subs[i]
		wpSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
		}
		resp, err := webpush.SendNotificationWithContext(sendCtx, payload, wpSub, n.vapid)
		if err != nil {
			logger.Errorf("notify send %s: %v", sub.Endpoint[:min(50, len(sub.Endpoint))], err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == 410 || resp.StatusCode == 404 {
			n.mu.Lock()
			n.removeLocked(ctx, sub.Endpoint)
			n.mu.Unlock()
		}
	}
}
