// Package datasetcache keeps the raw bytes of fetched static datasets in Redis,
// zstd-compressed.
package datasetcache

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/mohammed-shakir/bkk-condo-map/internal/cache/keys"
	"github.com/mohammed-shakir/bkk-condo-map/internal/cache/redisstore"
)

type Cache interface {
	Get(ctx context.Context, dataset, source string) ([]byte, bool, error)
	Put(ctx context.Context, dataset, source string, body []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, dataset, source string) error
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// EncodeAll and DecodeAll are safe for concurrent use.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

type redisCache struct {
	cli        *redisstore.Client
	defaultTTL time.Duration
}

func NewRedis(cli *redisstore.Client, defaultTTL time.Duration) Cache {
	return &redisCache{cli: cli, defaultTTL: defaultTTL}
}

func (c *redisCache) Get(ctx context.Context, dataset, source string) ([]byte, bool, error) {
	b, ok, err := c.cli.Get(ctx, keys.DatasetKey(dataset, source))
	if err != nil {
		return nil, false, fmt.Errorf("datasetcache get %s: %w", dataset, err)
	}
	if !ok {
		return nil, false, nil
	}
	// entries written before compression are served as they are
	if !bytes.HasPrefix(b, zstdMagic) {
		return b, true, nil
	}
	body, err := decoder.DecodeAll(b, nil)
	if err != nil {
		return nil, false, fmt.Errorf("datasetcache decompress %s: %w", dataset, err)
	}
	return body, true, nil
}

func (c *redisCache) Put(ctx context.Context, dataset, source string, body []byte, ttl time.Duration) error {
	if len(body) == 0 {
		return nil
	}
	t := ttl
	if t <= 0 {
		t = c.defaultTTL
	}
	packed := encoder.EncodeAll(body, make([]byte, 0, len(body)/4))
	if err := c.cli.Set(ctx, keys.DatasetKey(dataset, source), packed, t); err != nil {
		return fmt.Errorf("datasetcache put %s: %w", dataset, err)
	}
	return nil
}

func (c *redisCache) Invalidate(ctx context.Context, dataset, source string) error {
	if err := c.cli.Del(ctx, keys.DatasetKey(dataset, source)); err != nil {
		return fmt.Errorf("datasetcache invalidate %s: %w", dataset, err)
	}
	return nil
}
