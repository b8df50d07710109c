package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists conversation snapshots between turns.
type Store interface {
	// Load returns the snapshot for id and whether it existed.
	Load(ctx context.Context, id string) (snapshot, bool, error)
	Save(ctx context.Context, snap snapshot) error
	Delete(ctx context.Context, id string) error
}

// ==========================
// Memory
// ==========================

// MemoryStore keeps snapshots in process memory, expiring idle ones.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	snap    snapshot
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), ttl: ttl, now: time.Now}
}

func (m *MemoryStore) Load(ctx context.Context, id string) (snapshot, bool, error) {
	m.mu.RLock()
	item, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return snapshot{}, false, nil
	}
	if m.ttl > 0 && m.now().After(item.expires) {
		m.mu.Lock()
		delete(m.items, id)
		m.mu.Unlock()
		return snapshot{}, false, nil
	}
	item.snap.Turns = append(item.snap.Turns[:0:0], item.snap.Turns...)
	return item.snap, true, nil
}

func (m *MemoryStore) Save(ctx context.Context, snap snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[snap.ID] = memoryItem{snap: snap, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// ==========================
// Redis
// ==========================

const redisKeyPrefix = "climate:session:"

// RedisStore keeps snapshots as JSON strings with a sliding TTL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (r *RedisStore) Load(ctx context.Context, id string) (snapshot, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return snapshot{}, false, nil
	}
	if err != nil {
		return snapshot{}, false, fmt.Errorf("load session %s: %w", id, err)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snapshot{}, false, fmt.Errorf("decode session %s: %w", id, err)
	}
	return snap, true, nil
}

func (r *RedisStore) Save(ctx context.Context, snap snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", snap.ID, err)
	}
	if err := r.client.Set(ctx, redisKey(snap.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", snap.ID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
