// cache — read-through кэш профилей пользователей поверх Redis.
// Кэш опционален: сервис работает и без него, ошибки кэша не ломают запросы.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
)

// ProfileCache — минимальный контракт кэша профилей.
type ProfileCache interface {
	// Get возвращает профиль и признак его наличия в кэше.
	Get(ctx context.Context, userID string) (*models.UserProfile, bool, error)
	// Set сохраняет профиль с TTL кэша.
	Set(ctx context.Context, profile *models.UserProfile) error
	// Invalidate удаляет профили; отсутствующие ключи игнорируются.
	Invalidate(ctx context.Context, userIDs ...string) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение. Если prefix пустой — используется "feed:profile:".
func NewRedisCache(ctx context.Context, redisURL, prefix string, ttl time.Duration) (ProfileCache, error) {
	const op = "cache/NewRedisCache"

	if prefix == "" {
		prefix = "feed:profile:"
	}

	if ttl <= 0 {
		return nil, fmt.Errorf("%s: ttl must be > 0", op)
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisCache{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (c *redisCache) key(userID string) string { return c.prefix + userID }

// Храним профиль как JSON-строку.
func (c *redisCache) Get(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	var p models.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, err
	}

	return &p, true, nil
}

func (c *redisCache) Set(ctx context.Context, profile *models.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, c.key(profile.UserID), raw, c.ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, c.key(id))
	}

	return c.rdb.Del(ctx, keys...).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
