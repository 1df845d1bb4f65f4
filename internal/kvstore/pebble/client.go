// Package pebble — локальный персистентный ярус kvstore поверх встроенной
// LSM-базы cockroachdb/pebble. Одна база на устройство, без сервера.
package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/rentwork/internal/kvstore"
	"github.com/rentwork/internal/logger"
)

type Client struct {
	db *pebble.DB
}

// Open открывает (или создаёт) базу по пути path.
func Open(path string) (*Client, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open %s: %w", path, err)
	}
	logger.Infof("pebble: база открыта, path=%s", path)
	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// Get возвращает копию значения: буфер pebble валиден только до closer.Close.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	raw, closer, err := c.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, kvstore.ErrNoKey
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get %s: %w", key, err)
	}
	val := make([]byte, len(raw))
	copy(val, raw)
	if err := closer.Close(); err != nil {
		return nil, fmt.Errorf("pebble get close %s: %w", key, err)
	}
	return val, nil
}

// Set пишет синхронно (pebble.Sync): запись либо на диске, либо вернулась ошибка.
func (c *Client) Set(ctx context.Context, key string, val []byte) error {
	if err := c.db.Set([]byte(key), val, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", key, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete %s: %w", key, err)
	}
	return nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, closer, err := c.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pebble exists %s: %w", key, err)
	}
	if err := closer.Close(); err != nil {
		return false, fmt.Errorf("pebble exists close %s: %w", key, err)
	}
	return true, nil
}
