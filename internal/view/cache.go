package view

import (
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/bkk-condo-map/internal/cache/keys"
	"github.com/mohammed-shakir/bkk-condo-map/internal/core/observability"
	"github.com/mohammed-shakir/bkk-condo-map/internal/dataset"
)

// Cache memoizes derived views per dataset version.
type Cache struct {
	lru *lru.Cache[string, []int]
}

func NewCache(size int) *Cache {
	if size <= 0 {
		size = 256
	}
	c, _ := lru.New[string, []int](size)
	return &Cache{lru: c}
}

// The returned slice must not be modified.
func (c *Cache) View(snap *dataset.Snapshot, q Query) []int {
	if snap == nil {
		return []int{}
	}
	k := keys.ViewKey(snap.Kind.String(), snap.Version, q.Canonical())
	if idx, ok := c.lru.Get(k); ok {
		observability.IncViewCacheHit()
		return idx
	}
	observability.IncViewCacheMiss()
	idx := slices.Clip(ComputeView(snap.Collection, q))
	c.lru.Add(k, idx)
	return idx
}

func (c *Cache) Len() int { return c.lru.Len() }

func (c *Cache) Purge() { c.lru.Purge() }
