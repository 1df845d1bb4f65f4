// Package kvstore — типизированный доступ к локальному персистентному
// хранилищу устройства и к session-ярусу, видимому другим открытым
// контекстам. Реализации: pebble.Client (локальный ярус),
// redis.Client (session-ярус), memory.Client (тесты и -dev без Redis).
package kvstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rentwork/internal/logger"
)

// ErrNoKey возвращается Get/Exists, когда ключа нет. Не признак сбоя.
var ErrNoKey = errors.New("key not found")

// Store — байтовый контракт яруса хранения. Типизация — в Read/Write ниже.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// Read читает и декодирует значение. Любой сбой чтения или декодирования —
// не фатален: логируется и возвращается def (семантика "use the default").
func Read[T any](ctx context.Context, s Store, key string, def T) T {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNoKey) {
			logger.Warnf("kvstore read %s: %v (используется значение по умолчанию)", key, err)
		}
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.Warnf("kvstore decode %s: %v (используется значение по умолчанию)", key, err)
		return def
	}
	return v
}

// Write кодирует и сохраняет значение. Сбой сериализации или записи не
// пробрасывается: логируется, возвращается false — вызывающий оставляет
// значение в памяти и показывает нефатальное предупреждение.
func Write[T any](ctx context.Context, s Store, key string, v T) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Warnf("kvstore encode %s: %v", key, err)
		return false
	}
	if err := s.Set(ctx, key, raw); err != nil {
		logger.Warnf("kvstore write %s: %v", key, err)
		return false
	}
	return true
}

// Remove удаляет ключ. Отсутствие ключа — no-op.
func Remove(ctx context.Context, s Store, key string) bool {
	if err := s.Delete(ctx, key); err != nil {
		logger.Warnf("kvstore remove %s: %v", key, err)
		return false
	}
	return true
}

// Has сообщает о наличии ключа; сбой трактуется как отсутствие.
func Has(ctx context.Context, s Store, key string) bool {
	ok, err := s.Exists(ctx, key)
	if err != nil {
		logger.Warnf("kvstore exists %s: %v", key, err)
		return false
	}
	return ok
}
