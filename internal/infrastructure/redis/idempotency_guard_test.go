package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/orderflow-api/internal/infrastructure/redis"
)

func getRedisClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := redis.NewClient(context.Background(), addr, "", 0)
	if err != nil {
		t.Skipf("Redis no disponible: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIdempotencyGuard_UnSoloDueño(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	key := uuid.NewString()

	a := redis.NewIdempotencyGuard(client)
	b := redis.NewIdempotencyGuard(client)

	ok, err := a.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "otra réplica no puede tomar el mismo intento")

	require.NoError(t, b.Release(ctx, key), "liberar sin ser dueño no tiene efecto")
	ok, err = b.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx, key))
	ok, err = b.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Release(ctx, key))
}

func TestIdempotencyGuard_TTLVence(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	key := uuid.NewString()
	g := redis.NewIdempotencyGuard(client)

	ok, err := g.Acquire(ctx, key, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(120 * time.Millisecond)
	ok, err = redis.NewIdempotencyGuard(client).Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
