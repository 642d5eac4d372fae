package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/torresguilherme/magic-qr-flows/models"
)

var ErrCacheMiss = errors.New("cache miss")

// generationTTL keeps a key's generation alive well past any in-flight fill.
const generationTTL = 24 * time.Hour

// QRLookupCache holds the redirect projection of recently scanned codes.
//
// Every key carries a generation. Get reports it on a miss, Set only stores when
// the generation is unchanged, and Invalidate advances it, so a fill that read the
// store before a mutation can never write the old row back.
type QRLookupCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.QRLookup, int64, error)
	Set(ctx context.Context, id uuid.UUID, lookup *models.QRLookup, generation int64) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// setIfGeneration stores ARGV[1] under KEYS[1] only while KEYS[2] still holds ARGV[2].
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if (current or '0') ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// RedisQRLookupCache stores lookups as JSON under <prefix>lookup:<uuid> and
// generations under <prefix>gen:<uuid>.
type RedisQRLookupCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisQRLookupCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisQRLookupCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisQRLookupCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisQRLookupCache) entryKey(id uuid.UUID) string {
	return c.prefix + "lookup:" + id.String()
}

func (c *RedisQRLookupCache) generationKey(id uuid.UUID) string {
	return c.prefix + "gen:" + id.String()
}

func (c *RedisQRLookupCache) Get(ctx context.Context, id uuid.UUID) (*models.QRLookup, int64, error) {
	vals, err := c.client.MGet(ctx, c.entryKey(id), c.generationKey(id)).Result()
	if err != nil {
		return nil, 0, err
	}

	var generation int64
	if raw, ok := vals[1].(string); ok {
		if generation, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, 0, err
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, generation, ErrCacheMiss
	}

	var lookup models.QRLookup
	if err := json.Unmarshal([]byte(raw), &lookup); err != nil {
		return nil, 0, err
	}
	return &lookup, generation, nil
}

func (c *RedisQRLookupCache) Set(ctx context.Context, id uuid.UUID, lookup *models.QRLookup, generation int64) error {
	data, err := json.Marshal(lookup)
	if err != nil {
		return err
	}
	return setIfGeneration.Run(ctx, c.client,
		[]string{c.entryKey(id), c.generationKey(id)},
		string(data), strconv.FormatInt(generation, 10), c.ttl.Milliseconds(),
	).Err()
}

func (c *RedisQRLookupCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	genKey := c.generationKey(id)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, max(generationTTL, 2*c.ttl))
		pipe.Del(ctx, c.entryKey(id))
		return nil
	})
	return err
}

type memoryLookupEntry struct {
	lookup  models.QRLookup
	expires time.Time
}

type memoryGeneration struct {
	value   int64
	expires time.Time
}

// MemoryQRLookupCache is the single-instance QRLookupCache used when redis is disabled.
type MemoryQRLookupCache struct {
	mu          sync.Mutex
	ttl         time.Duration
	entries     map[uuid.UUID]memoryLookupEntry
	generations map[uuid.UUID]memoryGeneration
	now         func() time.Time
}

func NewMemoryQRLookupCache(ttl time.Duration) *MemoryQRLookupCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryQRLookupCache{
		ttl:         ttl,
		entries:     make(map[uuid.UUID]memoryLookupEntry),
		generations: make(map[uuid.UUID]memoryGeneration),
		now:         time.Now,
	}
}

func (c *MemoryQRLookupCache) generation(id uuid.UUID, now time.Time) int64 {
	g, ok := c.generations[id]
	if !ok || now.After(g.expires) {
		delete(c.generations, id)
		return 0
	}
	return g.value
}

func (c *MemoryQRLookupCache) Get(_ context.Context, id uuid.UUID) (*models.QRLookup, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	generation := c.generation(id, now)
	e, ok := c.entries[id]
	if !ok || now.After(e.expires) {
		delete(c.entries, id)
		return nil, generation, ErrCacheMiss
	}
	lookup := e.lookup
	return &lookup, generation, nil
}

func (c *MemoryQRLookupCache) Set(_ context.Context, id uuid.UUID, lookup *models.QRLookup, generation int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.generation(id, now) != generation {
		return nil
	}
	c.entries[id] = memoryLookupEntry{lookup: *lookup, expires: now.Add(c.ttl)}
	c.sweep(now)
	return nil
}

func (c *MemoryQRLookupCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.generations[id] = memoryGeneration{value: c.generation(id, now) + 1, expires: now.Add(max(generationTTL, 2*c.ttl))}
	delete(c.entries, id)
	return nil
}

// sweep drops expired rows once the maps grow large
func (c *MemoryQRLookupCache) sweep(now time.Time) {
	if len(c.entries)+len(c.generations) < 10000 {
		return
	}
	for id, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, id)
		}
	}
	for id, g := range c.generations {
		if now.After(g.expires) {
			delete(c.generations, id)
		}
	}
}

// NoopQRLookupCache always misses.
type NoopQRLookupCache struct{}

func (NoopQRLookupCache) Get(context.Context, uuid.UUID) (*models.QRLookup, int64, error) {
	return nil, 0, ErrCacheMiss
}

func (NoopQRLookupCache) Set(context.Context, uuid.UUID, *models.QRLookup, int64) error { return nil }

func (NoopQRLookupCache) Invalidate(context.Context, uuid.UUID) error { return nil }
