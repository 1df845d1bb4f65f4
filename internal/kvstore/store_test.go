package kvstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwork/internal/kvstore"
	"github.com/rentwork/internal/kvstore/memory"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestReadWrite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.True(t, kvstore.Write(ctx, store, "k", payload{Name: "a", Count: 3}))
	got := kvstore.Read(ctx, store, "k", payload{})
	assert.Equal(t, payload{Name: "a", Count: 3}, got)
}

func TestRead_MissingKeyReturnsDefault(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	def := payload{Name: "default"}
	assert.Equal(t, def, kvstore.Read(ctx, store, "absent", def))
}

func TestRead_CorruptValueReturnsDefault(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, "k", []byte("{not json")))

	def := payload{Name: "default"}
	assert.Equal(t, def, kvstore.Read(ctx, store, "k", def))
}

func TestRemoveAndHas(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	assert.False(t, kvstore.Has(ctx, store, "k"))
	require.True(t, kvstore.Write(ctx, store, "k", 42))
	assert.True(t, kvstore.Has(ctx, store, "k"))

	assert.True(t, kvstore.Remove(ctx, store, "k"))
	assert.False(t, kvstore.Has(ctx, store, "k"))
	// повторное удаление — no-op
	assert.True(t, kvstore.Remove(ctx, store, "k"))
}

// failingStore имитирует недоступный ярус: каждая операция падает.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string) ([]byte, error)  { return nil, errStoreDown }
func (failingStore) Set(context.Context, string, []byte) error    { return errStoreDown }
func (failingStore) Delete(context.Context, string) error         { return errStoreDown }
func (failingStore) Exists(context.Context, string) (bool, error) { return false, errStoreDown }
func (failingStore) Close() error                                 { return nil }

func TestFailingStore_DegradesNotPanics(t *testing.T) {
	ctx := context.Background()
	var store failingStore

	assert.Equal(t, "def", kvstore.Read[string](ctx, store, "k", "def"))
	assert.False(t, kvstore.Write(ctx, store, "k", "v"))
	assert.False(t, kvstore.Remove(ctx, store, "k"))
	assert.False(t, kvstore.Has(ctx, store, "k"))
}
