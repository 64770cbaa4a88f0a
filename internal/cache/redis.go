package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gestion-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// Cache keys
const (
	unreadKeyFmt  = "notifications:unread:%d"
	userKeyFmt    = "users:snapshot:%d"
	welcomeKeyFmt = "session:welcome:%s"
)

const (
	UnreadTTL  = 30 * time.Second
	UserTTL    = 2 * time.Minute
	WelcomeTTL = 48 * time.Hour
)

var client *redis.Client

// Init connects to Redis. On failure the client stays nil and every helper
// degrades to a no-op, so callers fall back to the database.
func Init(cfg *config.Config) error {
	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// SetClient replaces the package client; nil disables caching.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// Close releases the connection pool
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

func UnreadKey(userID int) string { return fmt.Sprintf(unreadKeyFmt, userID) }

func UserKey(userID int) string { return fmt.Sprintf(userKeyFmt, userID) }

func WelcomeKey(tokenID string) string { return fmt.Sprintf(welcomeKeyFmt, tokenID) }

// GetUnreadCount returns the cached unread notification count
func GetUnreadCount(ctx context.Context, userID int) (int, bool) {
	data, ok := GetCached(ctx, UnreadKey(userID))
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, false
	}
	return n, true
}

func SetUnreadCount(ctx context.Context, userID, count int) {
	SetCached(ctx, UnreadKey(userID), []byte(strconv.Itoa(count)), UnreadTTL)
}

// InvalidateUnread clears the unread counters of the given users
// Called when: notifications are created or marked read
func InvalidateUnread(ctx context.Context, userIDs ...int) {
	if client == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, UnreadKey(id))
	}
	InvalidateKeys(ctx, keys...)
}

// InvalidateUser clears the cached user snapshot
// Called when: UpdateUser, ToggleActive, failed-login block
func InvalidateUser(ctx context.Context, userID int) {
	InvalidateKeys(ctx, UserKey(userID))
}

// ClaimWelcome returns true the first time it is called for a token id.
// Without Redis it always returns true.
func ClaimWelcome(ctx context.Context, tokenID string) bool {
	if client == nil {
		return true
	}
	ok, err := client.SetNX(ctx, WelcomeKey(tokenID), 1, WelcomeTTL).Result()
	if err != nil {
		return true
	}
	return ok
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
