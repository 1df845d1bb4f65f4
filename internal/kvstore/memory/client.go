// Package memory — ярус kvstore в памяти: тесты и режим -dev без Redis
// (session-ярус без внешних зависимостей, данные живут до перезапуска).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rentwork/internal/kvstore"
)

type item struct {
	val []byte
	exp time.Time // нулевое время — без TTL
}

type Client struct {
	mu    sync.RWMutex
	items map[string]item
	ttl   time.Duration
}

func New() *Client {
	return &Client{items: make(map[string]item)}
}

// NewWithTTL — клиент с единым TTL на все ключи (как session-ярус Redis).
func NewWithTTL(ttl time.Duration) *Client {
	return &Client{items: make(map[string]item), ttl: ttl}
}

func (c *Client) Close() error { return nil }

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[key]
	if !ok || it.expired() {
		return nil, kvstore.ErrNoKey
	}
	val := make([]byte, len(it.val))
	copy(val, it.val)
	return val, nil
}

func (c *Client) Set(ctx context.Context, key string, val []byte) error {
	cp := make([]byte, len(val))
	copy(cp, val)
	var exp time.Time
	if c.ttl > 0 {
		exp = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{val: cp, exp: exp}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[key]
	return ok && !it.expired(), nil
}

func (it item) expired() bool {
	return !it.exp.IsZero() && time.Now().After(it.exp)
}
