package customreport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store persists saved report configs per organisation. Save replaces the
// whole list.
type Store interface {
	Load(ctx context.Context, orgID uuid.UUID) ([]Config, error)
	Save(ctx context.Context, orgID uuid.UUID, configs []Config) error
}

// RedisStore keeps each organisation's configs as one JSON document.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore constructs a store using keys "<prefix>:<org>".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "customreports"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(orgID uuid.UUID) string {
	return s.prefix + ":" + orgID.String()
}

// Load returns the saved configs, or an empty list when none exist.
func (s *RedisStore) Load(ctx context.Context, orgID uuid.UUID) ([]Config, error) {
	raw, err := s.client.Get(ctx, s.key(orgID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("customreport: load configs: %w", err)
	}
	var configs []Config
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, fmt.Errorf("customreport: decode configs: %w", err)
	}
	return configs, nil
}

// Save overwrites the saved configs.
func (s *RedisStore) Save(ctx context.Context, orgID uuid.UUID, configs []Config) error {
	if configs == nil {
		configs = []Config{}
	}
	payload, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("customreport: encode configs: %w", err)
	}
	if err := s.client.Set(ctx, s.key(orgID), payload, 0).Err(); err != nil {
		return fmt.Errorf("customreport: save configs: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests and single-node setups.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID][]Config
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[uuid.UUID][]Config)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, orgID uuid.UUID) ([]Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Config{}, s.data[orgID]...), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, orgID uuid.UUID, configs []Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[orgID] = append([]Config(nil), configs...)
	return nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
