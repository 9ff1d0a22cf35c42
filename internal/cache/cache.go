package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMiss = errors.New("cache: miss")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Locker hands out short leases. A lease is advisory; holders must not rely on it for correctness.
type Locker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Key is a typed cache key: inventory:<namespace>:<id>.
type Key struct {
	Namespace string
	ID        string
}

func (k Key) String() string {
	return fmt.Sprintf("inventory:%s:%s", k.Namespace, k.ID)
}

// Prefix matches every key in the namespace.
func (k Key) Prefix() string {
	return fmt.Sprintf("inventory:%s:", k.Namespace)
}

// GetOrLoad returns the cached value for key or calls load and caches its result.
// A nil store or a broken cache degrades to calling load every time.
func GetOrLoad[T any](ctx context.Context, store Store, key Key, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, bool, error) {
	var zero T
	if store != nil {
		if data, err := store.Get(ctx, key.String()); err == nil {
			var cached T
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, true, nil
			}
		}
	}

	value, err := load(ctx)
	if err != nil {
		return zero, false, err
	}

	if store != nil {
		if data, err := json.Marshal(value); err == nil {
			_ = store.Set(ctx, key.String(), data, ttl)
		}
	}
	return value, false, nil
}
