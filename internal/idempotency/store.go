package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"homestay-booking/internal/booking"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "idempotency:"
	pendingMarker = "pending"

	// DefaultPendingTTL bounds how long an unfinished claim blocks retries.
	DefaultPendingTTL = time.Minute
)

// ErrInProgress means another request with the same key has not finished.
var ErrInProgress = errors.New("a request with this idempotency key is still in progress")

// Store remembers booking results by client-supplied key so a retried
// submission replays the first outcome instead of inserting twice.
// Completed results live for ttl; an unfinished claim expires after pendingTTL.
type Store struct {
	rdb        redis.Cmdable
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewStore(rdb redis.Cmdable, ttl, pendingTTL time.Duration) *Store {
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	return &Store{rdb: rdb, ttl: ttl, pendingTTL: pendingTTL}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Begin claims key. It returns a stored result when key already completed,
// nil when the caller should proceed, or ErrInProgress.
func (s *Store) Begin(ctx context.Context, key string) (*booking.Result, error) {
	k := keyPrefix + key

	claimed, err := s.rdb.SetNX(ctx, k, pendingMarker, s.pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	val, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) || val == pendingMarker {
		return nil, ErrInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var res booking.Result
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		return nil, fmt.Errorf("decode stored result: %w", err)
	}
	return &res, nil
}

// Complete stores the successful result for key.
func (s *Store) Complete(ctx context.Context, key string, res *booking.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPrefix+key, string(data), s.ttl).Err()
}

// Abort releases key so the client may retry after a rejection.
func (s *Store) Abort(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, keyPrefix+key).Err()
}
