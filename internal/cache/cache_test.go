package cache

// Тесты Redis-кэша профилей на miniredis.
//
// Проверяем:
//  - промах -> (nil, false, nil);
//  - Set/Get round-trip и TTL;
//  - Invalidate нескольких ключей;
//  - fail-fast NewRedisCache на недоступном Redis.

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
)

func newTestCache(t *testing.T) (ProfileCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), "redis://"+mr.Addr()+"/0", "", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	p, ok, err := c.Get(context.Background(), "user1")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, p)
}

func TestRedisCache_SetGetTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	bio := "creator"
	in := &models.UserProfile{UserID: "user1", Username: "creativemind", Bio: &bio, FollowersCount: 3}
	require.NoError(t, c.Set(ctx, in))

	got, ok, err := c.Get(ctx, "user1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, got)

	require.Equal(t, time.Minute, mr.TTL("feed:profile:user1"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "user1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_Invalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &models.UserProfile{UserID: "a"}))
	require.NoError(t, c.Set(ctx, &models.UserProfile{UserID: "b"}))

	require.NoError(t, c.Invalidate(ctx, "a", "b", "missing"))
	require.False(t, mr.Exists("feed:profile:a"))
	require.False(t, mr.Exists("feed:profile:b"))

	require.NoError(t, c.Invalidate(ctx))
}

func TestNewRedisCache_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, "redis://"+addr+"/0", "", time.Minute)
	require.Error(t, err)

	_, err = NewRedisCache(ctx, "redis://"+addr+"/0", "", 0)
	require.Error(t, err)
}
