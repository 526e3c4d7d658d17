package memory

import (
	"context"
	"sync"
	"time"
)

// IdempotencyGuard candado por intento de orden dentro del proceso (equivalente al de Redis).
type IdempotencyGuard struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

// NewIdempotencyGuard construye el guard vacío.
func NewIdempotencyGuard() *IdempotencyGuard {
	return &IdempotencyGuard{keys: make(map[string]time.Time)}
}

// Acquire false si el intento ya está en curso y su TTL no venció.
func (g *IdempotencyGuard) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if exp, ok := g.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.keys[key] = now.Add(ttl)
	return true, nil
}

func (g *IdempotencyGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.keys, key)
	g.mu.Unlock()
	return nil
}
