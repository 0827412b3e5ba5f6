package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreType selects the session store driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

const redisKeyPrefix = "session:"

// StoreOption configures NewStore.
type StoreOption func(*storeConfig)

type storeConfig struct {
	redisClient *redis.Client
	redisTTL    time.Duration
}

// WithRedisClient supplies the client for the Redis driver.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) { c.redisClient = client }
}

// WithRedisTTL overrides the Redis key TTL (default 24h). The TTL is
// refreshed on every read, so an idle session expires, not an active one.
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) { c.redisTTL = ttl }
}

// NewStore creates a session store. The memory driver is the single-instance
// default; the Redis driver allows multiple server instances to share
// sessions.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	config := &storeConfig{}
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return &memoryStore{sessions: make(map[string]*Session)}, nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		ttl := config.redisTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		return &redisStore{client: config.redisClient, ttl: ttl}, nil

	default:
		return nil, ErrInvalidConfig
	}
}

// memoryStore keeps sessions in a map guarded by a RWMutex.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func (s *memoryStore) Create(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	sess.Version = 1

	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}
	return clone(stored), nil
}

func (s *memoryStore) Update(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.sessions[sess.ID]
	if !exists {
		return ErrNotFound
	}
	if stored.Version != sess.Version {
		return ErrVersionConflict
	}

	sess.Version++
	sess.UpdatedAt = time.Now()

	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}

// clone keeps stored state isolated from caller mutations.
func clone(s *Session) *Session {
	out := *s
	out.Transcript = s.Snapshot()
	return &out
}

// redisStore persists sessions as JSON values with a sliding TTL, using
// WATCH/MULTI/EXEC for the optimistic-locking Update.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (s *redisStore) Create(ctx context.Context, sess *Session) error {
	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	sess.Version = 1

	val, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, redisKeyPrefix+sess.ID, val, s.ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	key := redisKeyPrefix + id
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, err
	}

	// Refresh TTL on read.
	_ = s.client.Expire(ctx, key, s.ttl).Err()

	return &sess, nil
}

func (s *redisStore) Update(ctx context.Context, sess *Session) error {
	key := redisKeyPrefix + sess.ID

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var stored Session
		if err := json.Unmarshal([]byte(val), &stored); err != nil {
			return err
		}
		if stored.Version != sess.Version {
			return ErrVersionConflict
		}

		sess.Version++
		sess.UpdatedAt = time.Now()

		newVal, err := json.Marshal(sess)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl)
			return nil
		})
		return err
	}, key)
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, redisKeyPrefix+id).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
