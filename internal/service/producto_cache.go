package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gestionventas/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const productoCachePrefix = "producto:codigo:"

// ProductoCache keeps product lookups by code in redis. A nil *ProductoCache
// or a nil client is valid and caches nothing.
type ProductoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProductoCache(rdb *redis.Client, ttl time.Duration) *ProductoCache {
	return &ProductoCache{rdb: rdb, ttl: ttl}
}

func (c *ProductoCache) enabled() bool { return c != nil && c.rdb != nil }

// Get reports a miss as (nil, nil).
func (c *ProductoCache) Get(ctx context.Context, codigo string) (*dto.ProductoResponse, error) {
	if !c.enabled() {
		return nil, nil
	}
	raw, err := c.rdb.Get(ctx, productoCachePrefix+codigo).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p dto.ProductoResponse
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *ProductoCache) Set(ctx context.Context, p *dto.ProductoResponse) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productoCachePrefix+p.Codigo, raw, c.ttl).Err()
}

func (c *ProductoCache) Invalidar(ctx context.Context, codigos ...string) error {
	if !c.enabled() || len(codigos) == 0 {
		return nil
	}
	keys := make([]string, len(codigos))
	for i, cod := range codigos {
		keys[i] = productoCachePrefix + cod
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// invalidarOAvisar is for callers whose write already committed: a stale
// entry expires with the TTL, so a failure is only logged.
func (c *ProductoCache) invalidarOAvisar(ctx context.Context, op string, codigos ...string) {
	if err := c.Invalidar(ctx, codigos...); err != nil {
		log.Warn().Err(err).Str("op", op).Strs("codigos", codigos).Msg("producto cache: invalidation failed")
	}
}
