package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const runLockPrefix = "assistant:run_lock:"

// Store holds the shared redis client. Run locks serialize assistant runs per
// user across API replicas.
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// AcquireRunLock takes the run lock for the key. The TTL caps how long a
// crashed holder can block further runs.
func (s *Store) AcquireRunLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, runLockPrefix+key, "1", ttl).Result()
}

func (s *Store) ReleaseRunLock(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, runLockPrefix+key).Err()
}
