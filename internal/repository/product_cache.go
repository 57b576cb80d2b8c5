package repository

import (
	"context"
	"encoding/json"
	"time"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	productCachePrefix = "product:sku:"
	productFencePrefix = "product:fence:"
)

// A fence holds the newest committed version of a product. An entry older
// than the fence is never written, so a read that raced a commit cannot
// repopulate the cache with the row it saw before the write.
var cacheSetScript = redis.NewScript(`
local fence = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) < fence then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

var cacheInvalidateScript = redis.NewScript(`
local fence = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) > fence then
	fence = tonumber(ARGV[1])
end
redis.call('SET', KEYS[2], tostring(fence), 'PX', ARGV[2])
redis.call('DEL', KEYS[1])
return fence
`)

// ProductCache is a read-through cache for SKU lookups. A nil client turns
// every call into a no-op so the service works without Redis.
type ProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProductCache(rdb *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached product, or false on a miss or any cache error.
func (c *ProductCache) Get(ctx context.Context, sku string) (*model.Product, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, productCachePrefix+sku).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("sku", sku).Msg("product cache: get failed")
		}
		return nil, false
	}
	var p model.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// Set stores p under its SKU unless a newer version of the product has been
// committed since p was read. Errors are logged and swallowed.
func (c *ProductCache) Set(ctx context.Context, p *model.Product) {
	if c == nil || c.rdb == nil || p == nil {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	keys := []string{productCachePrefix + p.SKU, fenceKey(p.ID)}
	stored, err := cacheSetScript.Run(ctx, c.rdb, keys, p.Version, b, c.ttl.Milliseconds()).Int()
	if err != nil {
		log.Warn().Err(err).Str("sku", p.SKU).Msg("product cache: set failed")
		return
	}
	if stored == 0 {
		log.Debug().Str("sku", p.SKU).Int("version", p.Version).Msg("product cache: stale read not cached")
	}
}

// Invalidate drops the entry for p's SKU and raises the fence to p.Version.
// Called after every committed write with the row as committed.
func (c *ProductCache) Invalidate(ctx context.Context, p *model.Product) {
	if c == nil || c.rdb == nil || p == nil {
		return
	}
	keys := []string{productCachePrefix + p.SKU, fenceKey(p.ID)}
	// the fence outlives any entry a racing reader could still write
	if err := cacheInvalidateScript.Run(ctx, c.rdb, keys, p.Version, c.ttl.Milliseconds()).Err(); err != nil {
		log.Warn().Err(err).Str("sku", p.SKU).Msg("product cache: invalidate failed")
	}
}

func fenceKey(id uuid.UUID) string {
	return productFencePrefix + id.String()
}
