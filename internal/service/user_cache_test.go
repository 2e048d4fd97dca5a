package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestLocalUserCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		cache := NewLocalUserCache(time.Minute)
		cache.SetAuthorities(ctx, " Alice ", []string{"ROLE_ADMIN"})

		auths, ok := cache.GetAuthorities(ctx, "alice")
		if !ok || len(auths) != 1 || auths[0] != "ROLE_ADMIN" {
			t.Fatalf("expected cached authorities, got %+v ok=%v", auths, ok)
		}
	})

	t.Run("expired entry is a miss", func(t *testing.T) {
		cache := NewLocalUserCache(time.Minute).(*localUserCache)
		cache.entries["alice"] = localEntry{
			authorities: []string{"ROLE_USER"},
			expiresAt:   time.Now().UTC().Add(-time.Second),
		}
		if _, ok := cache.GetAuthorities(ctx, "alice"); ok {
			t.Fatalf("expected expired entry to miss")
		}
	})

	t.Run("invalidate clears all", func(t *testing.T) {
		cache := NewLocalUserCache(time.Minute)
		cache.SetAuthorities(ctx, "alice", []string{"ROLE_ADMIN"})
		cache.SetAuthorities(ctx, "bob", []string{"ROLE_USER"})

		if err := cache.InvalidateAll(ctx); err != nil {
			t.Fatalf("expected invalidate success, got %v", err)
		}
		if _, ok := cache.GetAuthorities(ctx, "alice"); ok {
			t.Fatalf("expected alice entry cleared")
		}
		if _, ok := cache.GetAuthorities(ctx, "bob"); ok {
			t.Fatalf("expected bob entry cleared")
		}
	})

	t.Run("empty login ignored", func(t *testing.T) {
		cache := NewLocalUserCache(time.Minute)
		cache.SetAuthorities(ctx, "   ", []string{"ROLE_ADMIN"})
		if _, ok := cache.GetAuthorities(ctx, "   "); ok {
			t.Fatalf("expected empty login to be ignored")
		}
	})
}

type mockRedisCacheClient struct {
	values     map[string]string
	lastSetKey string
	lastTTL    time.Duration
	lastScript string
	lastArgs   []interface{}
	evalErr    error
}

func newMockRedisCacheClient() *mockRedisCacheClient {
	return &mockRedisCacheClient{values: make(map[string]string)}
}

func (m *mockRedisCacheClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	raw, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(raw)
	return cmd
}

func (m *mockRedisCacheClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastTTL = expiration
	if raw, ok := value.([]byte); ok {
		m.values[key] = string(raw)
	}
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisCacheClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.evalErr != nil {
		cmd.SetErr(m.evalErr)
		return cmd
	}
	m.values = make(map[string]string)
	cmd.SetVal(int64(1))
	return cmd
}

func TestRedisUserCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set writes json under prefix", func(t *testing.T) {
		mock := newMockRedisCacheClient()
		cache := &redisUserCache{client: mock, ttl: time.Hour, prefix: "sys:user:auth:"}

		cache.SetAuthorities(ctx, " Alice ", []string{"ROLE_ADMIN"})
		if mock.lastSetKey != "sys:user:auth:alice" {
			t.Fatalf("unexpected key, got %s", mock.lastSetKey)
		}
		if mock.lastTTL != time.Hour {
			t.Fatalf("unexpected ttl, got %v", mock.lastTTL)
		}
		var auths []string
		if err := json.Unmarshal([]byte(mock.values[mock.lastSetKey]), &auths); err != nil {
			t.Fatalf("expected json payload, got %v", err)
		}
		if len(auths) != 1 || auths[0] != "ROLE_ADMIN" {
			t.Fatalf("unexpected payload, got %+v", auths)
		}
	})

	t.Run("get roundtrip", func(t *testing.T) {
		mock := newMockRedisCacheClient()
		cache := &redisUserCache{client: mock, ttl: time.Hour, prefix: "sys:user:auth:"}

		cache.SetAuthorities(ctx, "alice", []string{"ROLE_USER"})
		auths, ok := cache.GetAuthorities(ctx, "alice")
		if !ok || len(auths) != 1 || auths[0] != "ROLE_USER" {
			t.Fatalf("expected roundtrip hit, got %+v ok=%v", auths, ok)
		}
	})

	t.Run("miss on absent key", func(t *testing.T) {
		cache := &redisUserCache{client: newMockRedisCacheClient(), ttl: time.Hour, prefix: "sys:user:auth:"}
		if _, ok := cache.GetAuthorities(ctx, "nobody"); ok {
			t.Fatalf("expected miss on absent key")
		}
	})

	t.Run("invalidate purges by pattern", func(t *testing.T) {
		mock := newMockRedisCacheClient()
		cache := &redisUserCache{client: mock, ttl: time.Hour, prefix: "sys:user:auth:"}

		cache.SetAuthorities(ctx, "alice", []string{"ROLE_ADMIN"})
		if err := cache.InvalidateAll(ctx); err != nil {
			t.Fatalf("expected invalidate success, got %v", err)
		}
		if mock.lastScript != redisUserPurgeScript {
			t.Fatalf("expected purge script to run")
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != "sys:user:auth:*" {
			t.Fatalf("unexpected pattern, got %+v", mock.lastArgs)
		}
		if _, ok := cache.GetAuthorities(ctx, "alice"); ok {
			t.Fatalf("expected entries purged")
		}
	})

	t.Run("invalidate surfaces redis error", func(t *testing.T) {
		mock := newMockRedisCacheClient()
		mock.evalErr = errors.New("redis down")
		cache := &redisUserCache{client: mock, ttl: time.Hour, prefix: "sys:user:auth:"}

		if err := cache.InvalidateAll(ctx); err == nil {
			t.Fatalf("expected error surfaced to caller")
		}
	})
}
