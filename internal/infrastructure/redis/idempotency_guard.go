package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "orderflow:attempt:"

// releaseScript borra la clave solo si sigue siendo de este proceso.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// IdempotencyGuard candado por intento de orden compartido entre réplicas (SET NX con TTL).
type IdempotencyGuard struct {
	rdb    *goredis.Client
	mu     sync.Mutex
	tokens map[string]string
}

func NewIdempotencyGuard(rdb *goredis.Client) *IdempotencyGuard {
	return &IdempotencyGuard{rdb: rdb, tokens: make(map[string]string)}
}

// NewClient cliente Redis verificado con PING.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// Acquire false si otro proceso tiene el intento y su TTL no venció.
func (g *IdempotencyGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	g.mu.Lock()
	g.tokens[key] = token
	g.mu.Unlock()
	return true, nil
}

func (g *IdempotencyGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	token, ok := g.tokens[key]
	delete(g.tokens, key)
	g.mu.Unlock()
	if !ok {
		return nil
	}
	if err := releaseScript.Run(ctx, g.rdb, []string{keyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	return nil
}
