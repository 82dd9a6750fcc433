package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps suspended sessions in Redis, one key per workout with
// the grace period as its TTL. Expiry is Redis's job, so Load never has
// to reason about timestamps. Useful when several editor frontends
// should see the same suspended sessions.
type RedisStore struct {
	client *redis.Client
	grace  time.Duration
}

// NewRedis connects a session store to Redis. A grace of zero or less
// falls back to DefaultGrace.
func NewRedis(addr, password string, db int, grace time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &RedisStore{client: rdb, grace: grace}
}

// Ping verifies the Redis connection. Called once at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

func sessionKey(workoutID int64) string {
	return fmt.Sprintf("repbook:session:%d", workoutID)
}

// Save stores the blob for a workout with the grace period as TTL.
func (s *RedisStore) Save(ctx context.Context, workoutID int64, blob []byte) error {
	if err := s.client.Set(ctx, sessionKey(workoutID), blob, s.grace).Err(); err != nil {
		return fmt.Errorf("saving session blob: %w", err)
	}
	return nil
}

// Load returns the blob for a workout, or ErrNoSession once the TTL has
// taken it.
func (s *RedisStore) Load(ctx context.Context, workoutID int64) ([]byte, error) {
	blob, err := s.client.Get(ctx, sessionKey(workoutID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading session blob: %w", err)
	}
	return blob, nil
}

// Delete removes the blob for a workout if one exists.
func (s *RedisStore) Delete(ctx context.Context, workoutID int64) error {
	if err := s.client.Del(ctx, sessionKey(workoutID)).Err(); err != nil {
		return fmt.Errorf("deleting session blob: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
