package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

type localEntry struct {
	value     string
	expiresAt time.Time
}

// LocalCache is an in-memory ports.Cache used when Redis is not configured.
// Satellite lookups degrade to per-process caching; the stored satellite
// readings remain the durable layer.
type LocalCache struct {
	mu   sync.RWMutex
	data map[string]localEntry
	log  *zap.Logger
}

func NewLocalCache(log *zap.Logger) ports.Cache {
	log.Info("Using local in-memory cache")
	return &LocalCache{
		data: make(map[string]localEntry),
		log:  log,
	}
}

func (c *LocalCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || (!entry.expiresAt.IsZero() && entry.expiresAt.Before(time.Now())) {
		return "", fmt.Errorf("key not found: %s", key)
	}
	return entry.value, nil
}

func (c *LocalCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	entry := localEntry{value: fmt.Sprintf("%v", value)}
	if expiration > 0 {
		entry.expiresAt = time.Now().Add(expiration)
	}
	c.mu.Lock()
	c.data[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Ping() error { return nil }

func (c *LocalCache) Close() error { return nil }
