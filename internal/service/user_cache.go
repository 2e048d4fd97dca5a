package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// UserCache guarda lecturas de autorización por login y permite invalidarlas
// en bloque tras una mutación de usuarios.
type UserCache interface {
	GetAuthorities(ctx context.Context, loginID string) ([]string, bool)
	SetAuthorities(ctx context.Context, loginID string, authorities []string)
	InvalidateAll(ctx context.Context) error
}

type localEntry struct {
	authorities []string
	expiresAt   time.Time
}

type localUserCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]localEntry
}

// NewLocalUserCache crea la caché de proceso con el TTL dado.
func NewLocalUserCache(ttl time.Duration) UserCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &localUserCache{
		ttl:     ttl,
		entries: make(map[string]localEntry),
	}
}

func (c *localUserCache) GetAuthorities(_ context.Context, loginID string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[normalizeLoginID(loginID)]
	if !ok {
		return nil, false
	}
	if time.Now().UTC().After(entry.expiresAt) {
		delete(c.entries, normalizeLoginID(loginID))
		return nil, false
	}
	return entry.authorities, true
}

func (c *localUserCache) SetAuthorities(_ context.Context, loginID string, authorities []string) {
	key := normalizeLoginID(loginID)
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = localEntry{
		authorities: authorities,
		expiresAt:   time.Now().UTC().Add(c.ttl),
	}
}

func (c *localUserCache) InvalidateAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]localEntry)
	return nil
}

const redisUserPurgeScript = `
local cursor = "0"
local removed = 0
repeat
  local res = redis.call("SCAN", cursor, "MATCH", ARGV[1], "COUNT", 100)
  cursor = res[1]
  for i = 1, #res[2] do
    redis.call("DEL", res[2][i])
    removed = removed + 1
  end
until cursor == "0"
return removed
`

type redisCacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisUserCache struct {
	client redisCacheClient
	ttl    time.Duration
	prefix string
}

// NewRedisUserCache crea la caché remota compartida sobre redis.
func NewRedisUserCache(client *redis.Client, ttl time.Duration) UserCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &redisUserCache{
		client: client,
		ttl:    ttl,
		prefix: "sys:user:auth:",
	}
}

func (c *redisUserCache) GetAuthorities(ctx context.Context, loginID string) ([]string, bool) {
	key := normalizeLoginID(loginID)
	if key == "" {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	raw, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		return nil, false
	}
	var authorities []string
	if err := json.Unmarshal([]byte(raw), &authorities); err != nil {
		return nil, false
	}
	return authorities, true
}

func (c *redisUserCache) SetAuthorities(ctx context.Context, loginID string, authorities []string) {
	key := normalizeLoginID(loginID)
	if key == "" {
		return
	}
	raw, err := json.Marshal(authorities)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	c.client.Set(ctx, c.prefix+key, raw, c.ttl)
}

func (c *redisUserCache) InvalidateAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return c.client.Eval(ctx, redisUserPurgeScript, []string{}, c.prefix+"*").Err()
}

func normalizeLoginID(loginID string) string {
	return strings.ToLower(strings.TrimSpace(loginID))
}
