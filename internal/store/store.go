package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"gambweb/internal/wager"
)

// KeyPrefix namespaces session state away from identity records.
const KeyPrefix = "casino:gamestate:"

var (
	// ErrNotFound is returned by a Medium for a missing key.
	ErrNotFound = errors.New("key not found")
	// ErrMalformed marks a stored record that cannot be decoded.
	ErrMalformed = errors.New("malformed session record")
)

// Medium is a string-keyed, string-valued persistence backend.
type Medium interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
}

// Store persists {balance, statistics} per player.
type Store struct {
	medium Medium
}

func New(medium Medium) *Store {
	return &Store{medium: medium}
}

// Key returns the storage key for a player.
func Key(playerID string) string {
	return KeyPrefix + playerID
}

type record struct {
	Balance *int64       `json:"balance"`
	Stats   *wager.Stats `json:"stats"`
}

// Load reads the last saved state. A missing record yields
// wager.ErrStateNotFound; an undecodable one yields ErrMalformed.
func (s *Store) Load(ctx context.Context, playerID string) (wager.State, error) {
	raw, err := s.medium.Get(ctx, Key(playerID))
	if errors.Is(err, ErrNotFound) {
		return wager.State{}, wager.ErrStateNotFound
	}
	if err != nil {
		return wager.State{}, fmt.Errorf("load %s: %w", playerID, err)
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return wager.State{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rec.Balance == nil || rec.Stats == nil {
		return wager.State{}, fmt.Errorf("%w: missing balance or stats", ErrMalformed)
	}
	return wager.State{Balance: *rec.Balance, Stats: *rec.Stats}, nil
}

// Save overwrites the player's record.
func (s *Store) Save(ctx context.Context, playerID string, state wager.State) error {
	data, err := json.Marshal(record{Balance: &state.Balance, Stats: &state.Stats})
	if err != nil {
		return fmt.Errorf("encode %s: %w", playerID, err)
	}
	if err := s.medium.Set(ctx, Key(playerID), string(data)); err != nil {
		return fmt.Errorf("save %s: %w", playerID, err)
	}
	return nil
}

// Clear removes the player's record.
func (s *Store) Clear(ctx context.Context, playerID string) error {
	if err := s.medium.Del(ctx, Key(playerID)); err != nil {
		return fmt.Errorf("clear %s: %w", playerID, err)
	}
	return nil
}

// Memory is an in-process Medium.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Redis is a Medium backed by a Redis client. Records never expire.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *Redis) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
