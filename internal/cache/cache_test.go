package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { Close() })
	return mr
}

type cachedPost struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedPost) func() error {
		return func() error {
			calls++
			*dest = cachedPost{ID: 1, Title: "hello"}
			return nil
		}
	}

	var first cachedPost
	require.NoError(t, Aside(ctx, PostKey(1), &first, PostTTL, fetch(&first)))
	assert.Equal(t, "hello", first.Title)
	assert.True(t, mr.Exists("post:1"))

	var second cachedPost
	require.NoError(t, Aside(ctx, PostKey(1), &second, PostTTL, fetch(&second)))
	assert.Equal(t, "hello", second.Title)
	assert.Equal(t, 1, calls)

	InvalidatePost(ctx, 1)
	assert.False(t, mr.Exists("post:1"))
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := setupRedis(t)

	var dest cachedPost
	err := Aside(context.Background(), PostKey(9), &dest, PostTTL, func() error {
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("post:9"))
}

func TestAside_WithoutRedis(t *testing.T) {
	Close()

	var dest cachedPost
	err := Aside(context.Background(), PostKey(2), &dest, PostTTL, func() error {
		dest.ID = 2
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(2), dest.ID)
}

func TestRevokeToken(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, RevokeToken(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err := IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = IsTokenRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestStorage(t *testing.T) {
	mr := setupRedis(t)
	s := NewStorage(GetClient(), "session:")

	val, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Set("a", []byte("1"), time.Minute))
	require.NoError(t, s.Set("b", []byte("2"), 0))
	assert.True(t, mr.Exists("session:a"))

	val, err = s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)

	require.NoError(t, s.Delete("a"))
	val, err = s.Get("a")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, mr.Set("csrf:keep", "x"))
	require.NoError(t, s.Reset())
	assert.False(t, mr.Exists("session:b"))
	assert.True(t, mr.Exists("csrf:keep"))
}
