package idem

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store makes send retries safe. Begin claims a client-generated key; Bind
// records which message the claimed key produced; Lookup answers a retry with
// the already-committed message id. Release frees a claimed key whose send
// never committed, so the retry the failure invites is not locked out until
// the TTL expires.
type Store interface {
	Begin(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Bind(ctx context.Context, key, messageID string, ttl time.Duration) error
	Lookup(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key string) error
}

const keyPrefix = "idem:"

// pending marks a key claimed by an in-flight send that has not committed yet.
const pending = "_pending"

type redisStore struct{ r *redis.Client }

func New(r *redis.Client) Store {
	return &redisStore{r: r}
}

func (s *redisStore) Begin(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.r.SetNX(ctx, keyPrefix+key, pending, ttl).Result()
}

func (s *redisStore) Bind(ctx context.Context, key, messageID string, ttl time.Duration) error {
	return s.r.Set(ctx, keyPrefix+key, messageID, ttl).Err()
}

func (s *redisStore) Release(ctx context.Context, key string) error {
	return s.r.Del(ctx, keyPrefix+key).Err()
}

func (s *redisStore) Lookup(ctx context.Context, key string) (string, error) {
	val, err := s.r.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if val == pending {
		return "", nil
	}
	return val, nil
}
