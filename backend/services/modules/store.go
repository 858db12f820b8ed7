package modules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "founder_os:"
	sessionTTL = 180 * 24 * time.Hour
)

// Store persists the set of completed module IDs per session.
type Store interface {
	Add(ctx context.Context, session, moduleID string) (added bool, err error)
	Has(ctx context.Context, session, moduleID string) (bool, error)
	Members(ctx context.Context, session string) ([]string, error)
}

// RedisStore keeps one Redis set per session.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Add(ctx context.Context, session, moduleID string) (bool, error) {
	key := keyPrefix + session

	var added *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.SAdd(ctx, key, moduleID)
		pipe.Expire(ctx, key, sessionTTL)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("founder os add: %w", err)
	}
	return added.Val() == 1, nil
}

func (s *RedisStore) Has(ctx context.Context, session, moduleID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, keyPrefix+session, moduleID).Result()
	if err != nil {
		return false, fmt.Errorf("founder os lookup: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Members(ctx context.Context, session string) ([]string, error) {
	members, err := s.client.SMembers(ctx, keyPrefix+session).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("founder os members: %w", err)
	}
	return members, nil
}

// MemoryStore is a process-local Store for local runs and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]map[string]struct{})}
}

func (s *MemoryStore) Add(_ context.Context, session, moduleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[session]
	if !ok {
		set = make(map[string]struct{})
		s.sets[session] = set
	}
	if _, exists := set[moduleID]; exists {
		return false, nil
	}
	set[moduleID] = struct{}{}
	return true, nil
}

func (s *MemoryStore) Has(_ context.Context, session, moduleID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[session][moduleID]
	return ok, nil
}

func (s *MemoryStore) Members(_ context.Context, session string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sets[session]))
	for id := range s.sets[session] {
		out = append(out, id)
	}
	return out, nil
}
