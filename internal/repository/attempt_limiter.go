package repository

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter throttles confirmation attempts and code resends. It fails
// open: a limiter outage must never block legitimate confirmations.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error)
}

type redisAttemptLimiter struct {
	client *redis.Client
}

func NewAttemptLimiter(client *redis.Client) AttemptLimiter {
	return &redisAttemptLimiter{client: client}
}

func (l *redisAttemptLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	// Hash the key for privacy
	hasher := sha256.New()
	hasher.Write([]byte(key))
	hashedKey := fmt.Sprintf("attempts:%x", hasher.Sum(nil))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	count, err := l.client.Incr(ctx, hashedKey).Result()
	if err != nil {
		// On redis error, allow the request (fail open)
		return true, nil
	}

	if count == 1 {
		l.client.Expire(ctx, hashedKey, window)
	}

	return count <= int64(max), nil
}
