package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNoSession is returned by a Store that holds no session.
var ErrNoSession = errors.New("no session")

// Store persists session state between Manager instances.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state *State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored state or ErrNoSession.
func (s *MemoryStore) Load(_ context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, ErrNoSession
	}
	return s.state.clone(), nil
}

// Save replaces the stored state.
func (s *MemoryStore) Save(_ context.Context, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.clone()
	return nil
}

// Clear removes the stored state.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
	return nil
}

// Redis key suffixes for session state storage.
const (
	redisFieldAccessToken  = "access_token"
	redisFieldRefreshToken = "refresh_token"
	redisFieldExpiresAt    = "expires_at"
	redisFieldUpdatedAt    = "updated_at"
)

// RedisKeyPrefix prefixes every key written by RedisStore.
const RedisKeyPrefix = "noark:session"

// RedisStore shares one session across processes through Redis. Each field
// is stored under its own key, namespaced by the session name.
type RedisStore struct {
	redis  *redis.Client
	name   string
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed store for the named session,
// typically the username.
func NewRedisStore(redisClient *redis.Client, name string, logger zerolog.Logger) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:  redisClient,
		name:   name,
		logger: logger,
	}
}

func (s *RedisStore) key(field string) string {
	return fmt.Sprintf("%s:%s:%s", RedisKeyPrefix, s.name, field)
}

// Load retrieves the session from Redis. Returns ErrNoSession when no
// access token is stored.
func (s *RedisStore) Load(ctx context.Context) (*State, error) {
	values, err := s.redis.MGet(ctx,
		s.key(redisFieldAccessToken),
		s.key(redisFieldRefreshToken),
		s.key(redisFieldExpiresAt),
		s.key(redisFieldUpdatedAt),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("load session from redis: %w", err)
	}

	access, _ := values[0].(string)
	if access == "" {
		s.logger.Debug().Str("session", s.name).Msg("No session state in Redis")
		return nil, ErrNoSession
	}
	refresh, _ := values[1].(string)

	state := &State{AccessToken: access, RefreshToken: refresh}
	if state.ExpiresAt, err = parseTime(values[2]); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	if state.UpdatedAt, err = parseTime(values[3]); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return state, nil
}

// Save stores the session atomically.
func (s *RedisStore) Save(ctx context.Context, state *State) error {
	if state == nil {
		return fmt.Errorf("session state cannot be nil")
	}

	expiresAt, err := json.Marshal(state.ExpiresAt)
	if err != nil {
		return fmt.Errorf("marshal expires_at: %w", err)
	}
	updatedAt, err := json.Marshal(state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("marshal updated_at: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.key(redisFieldAccessToken), state.AccessToken, 0)
	if state.RefreshToken != "" {
		pipe.Set(ctx, s.key(redisFieldRefreshToken), state.RefreshToken, 0)
	} else {
		pipe.Del(ctx, s.key(redisFieldRefreshToken))
	}
	pipe.Set(ctx, s.key(redisFieldExpiresAt), expiresAt, 0)
	pipe.Set(ctx, s.key(redisFieldUpdatedAt), updatedAt, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session in redis: %w", err)
	}

	s.logger.Debug().
		Str("session", s.name).
		Time("expires_at", state.ExpiresAt).
		Msg("Session state stored in Redis")
	return nil
}

// Clear deletes the session keys.
func (s *RedisStore) Clear(ctx context.Context) error {
	err := s.redis.Del(ctx,
		s.key(redisFieldAccessToken),
		s.key(redisFieldRefreshToken),
		s.key(redisFieldExpiresAt),
		s.key(redisFieldUpdatedAt),
	).Err()
	if err != nil {
		return fmt.Errorf("clear session in redis: %w", err)
	}
	return nil
}

func parseTime(v any) (time.Time, error) {
	var t time.Time
	str, _ := v.(string)
	if str == "" {
		return t, nil
	}
	if err := json.Unmarshal([]byte(str), &t); err != nil {
		return t, err
	}
	return t, nil
}
