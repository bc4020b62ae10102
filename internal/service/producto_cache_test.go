package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capturarLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func cacheCaida(t *testing.T) *ProductoCache {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewProductoCache(rdb, time.Minute)
}

func TestProductoCache_InvalidarOAvisar_LogsFailure(t *testing.T) {
	buf := capturarLog(t)
	c := cacheCaida(t)

	require.Error(t, c.Invalidar(context.Background(), "P001"))
	c.invalidarOAvisar(context.Background(), "producto.update", "P001")

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "producto cache: invalidation failed")
	assert.Contains(t, out, `"op":"producto.update"`)
	assert.Contains(t, out, "P001")
}

func TestProductoCache_Deshabilitada(t *testing.T) {
	buf := capturarLog(t)
	var c *ProductoCache

	assert.NoError(t, c.Invalidar(context.Background(), "P001"))
	c.invalidarOAvisar(context.Background(), "producto.disable", "P001")
	p, err := c.Get(context.Background(), "P001")

	assert.NoError(t, err)
	assert.Nil(t, p)
	assert.Empty(t, buf.String())
}
