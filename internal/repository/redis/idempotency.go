package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock   = "LOCK"
	idemResult = "RES:"
)

// IdemState is what Begin found under an idempotency key.
type IdemState int

const (
	// IdemAcquired means the caller owns the key and must Save or Release it.
	IdemAcquired IdemState = iota
	// IdemInProgress means another request holds the key.
	IdemInProgress
	// IdemReplay means a result was saved and is returned verbatim.
	IdemReplay
)

// IdempotencyStore remembers the response of a request keyed by the
// client's Idempotency-Key. A key is either locked while the first request
// runs or holds its saved result.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Begin locks key for lockTTL unless it is already locked or answered.
func (s *IdempotencyStore) Begin(ctx context.Context, key string, lockTTL time.Duration) (IdemState, string, error) {
	if payload, ok, err := s.result(ctx, key); err != nil || ok {
		return IdemReplay, payload, err
	}

	locked, err := s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
	if err != nil {
		return IdemInProgress, "", err
	}
	if locked {
		return IdemAcquired, "", nil
	}

	// Lost the race: the winner may have finished in between.
	if payload, ok, err := s.result(ctx, key); err != nil || ok {
		return IdemReplay, payload, err
	}

	return IdemInProgress, "", nil
}

// Save stores the JSON response for replays.
func (s *IdempotencyStore) Save(ctx context.Context, key string, jsonPayload string) error {
	return s.rdb.Set(ctx, key, idemResult+jsonPayload, s.ttl).Err()
}

// Release drops the lock so the client may retry a failed request.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *IdempotencyStore) result(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	payload, ok := strings.CutPrefix(v, idemResult)
	return payload, ok, nil
}
