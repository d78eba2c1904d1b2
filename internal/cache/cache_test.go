package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(8)
	require.NoError(t, err)

	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "doctors", []byte("v1"), time.Minute))

	got, ok, err := c.Get(ctx, "doctors")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "doctors")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(2)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "c"))
	_, ok, _ = c.Get(ctx, "c")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(4)
	require.NoError(t, err)

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, SetJSON(ctx, c, "k", payload{Name: "cardiology"}, time.Minute))

	var out payload
	ok, err := GetJSON(ctx, c, "k", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cardiology", out.Name)

	ok, err = GetJSON(ctx, NewNoop(), "k", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}
