// Package cache provides the polyline cache the pre-filter path reads
// decoded routes from. Values travel in the compact encoded form; a
// miss is a normal outcome the caller degrades around, never an error.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zekka-tech/Klubz-sub003/internal/geo"
	"github.com/zekka-tech/Klubz-sub003/internal/models"
)

// PolylineCache is the cache contract keyed by trip id.
type PolylineCache interface {
	Get(ctx context.Context, tripID string) ([]models.GeoPoint, bool)
	Put(ctx context.Context, tripID string, points []models.GeoPoint, ttl time.Duration)
}

// RedisCache stores encoded polylines in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: addr, Password: password})}
}

func (r *RedisCache) Get(ctx context.Context, tripID string) ([]models.GeoPoint, bool) {
	encoded, err := r.client.Get(ctx, cacheKey(tripID)).Result()
	if err != nil || encoded == "" {
		return nil, false
	}
	points := geo.DecodePolyline(encoded)
	if len(points) == 0 {
		return nil, false
	}
	return points, true
}

func (r *RedisCache) Put(ctx context.Context, tripID string, points []models.GeoPoint, ttl time.Duration) {
	if len(points) == 0 {
		return
	}
	// best effort; the store remains the source of truth
	_ = r.client.Set(ctx, cacheKey(tripID), geo.EncodePolyline(points), ttl).Err()
}

func (r *RedisCache) Close() error { return r.client.Close() }

func cacheKey(tripID string) string { return "trip:polyline:" + tripID }

// MemoryCache is a mutex-guarded in-process PolylineCache used when no
// Redis address is configured and in tests.
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]memoryEntry
}

type memoryEntry struct {
	points  []models.GeoPoint
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{store: make(map[string]memoryEntry)}
}

func (m *MemoryCache) Get(ctx context.Context, tripID string) ([]models.GeoPoint, bool) {
	m.mu.RLock()
	e, ok := m.store[tripID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		m.mu.Lock()
		delete(m.store, tripID)
		m.mu.Unlock()
		return nil, false
	}
	return e.points, true
}

func (m *MemoryCache) Put(ctx context.Context, tripID string, points []models.GeoPoint, ttl time.Duration) {
	if len(points) == 0 {
		return
	}
	m.mu.Lock()
	m.store[tripID] = memoryEntry{points: points, expires: time.Now().Add(ttl)}
	m.mu.Unlock()
}
