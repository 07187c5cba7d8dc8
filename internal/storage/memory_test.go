package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentKeyNormalization(t *testing.T) {
	// Case and whitespace do not change the key.
	a := ContentKey("Dodo", "walghvogel", "a great fowle")
	b := ContentKey("dodo", "Walghvogel", "  a   great fowle ")
	assert.Equal(t, a, b)

	// Different content produces a different key.
	c := ContentKey("dodo", "walghvogel", "a different context")
	assert.NotEqual(t, a, c)

	// Part boundaries matter: ("ab","c") != ("a","bc").
	assert.NotEqual(t, ContentKey("ab", "c"), ContentKey("a", "bc"))
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	key := ContentKey("theriaca")

	_, err := cache.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, cache.Put(ctx, key, []float32{0.1, 0.2, 0.3}, "test-model"))

	vec, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCachePutIsAppendOnly(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	key := ContentKey("antimony")

	require.NoError(t, cache.Put(ctx, key, []float32{1, 2}, "m"))
	// A second write of the same key is a no-op, not an overwrite.
	require.NoError(t, cache.Put(ctx, key, []float32{9, 9}, "m"))

	vec, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
}

func TestMemoryCacheRejectsBadInput(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	assert.ErrorIs(t, cache.Put(ctx, "", []float32{1}, "m"), ErrInvalidInput)
	assert.ErrorIs(t, cache.Put(ctx, "key", nil, "m"), ErrInvalidInput)
	_, err := cache.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
