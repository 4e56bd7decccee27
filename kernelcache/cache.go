// Package kernelcache implements the process-wide kernel cache: a
// mapping from a structural key to a compiled kernel handle, shared by
// reference across filter instances for the process's working
// lifetime.
package kernelcache

import (
	"github.com/dchest/siphash"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/SnellerInc/vexpr/diag"
	"github.com/SnellerInc/vexpr/vecjit"
)

// DefaultSize is generous enough that eviction never happens for any
// single plugin instance's actual working set of distinct expressions.
const DefaultSize = 4096

// siphashKey0/1 are fixed, arbitrary 64-bit halves of a keyed hash used
// only to shorten the cache's lookup key, not for any security purpose.
const siphashKey0, siphashKey1 = 0x9ae16a3b2f90404f, 0x243f6a8885a308d3

// Cache memoizes compiled kernels by structural key. The zero value is
// not usable; construct one with New.
type Cache struct {
	lru   *lru.Cache[uint64, *vecjit.Kernel]
	group singleflight.Group
}

// New creates a Cache holding up to size distinct structural keys.
func New(size int) *Cache {
	l, err := lru.New[uint64, *vecjit.Kernel](size)
	if err != nil {
		// size <= 0 is the only failure mode of lru.New; DefaultSize
		// and every caller-supplied size in this module are positive.
		panic(err)
	}
	return &Cache{lru: l}
}

// Default is the package-wide singleton cache used by package frame's
// filter entry points. golang-lru's internal locking plus the
// singleflight.Group below together guard it for concurrent use.
var Default = New(DefaultSize)

func hashKey(key string) uint64 {
	return siphash.Hash(siphashKey0, siphashKey1, []byte(key))
}

// Compile returns the cached kernel for key, building it with build on
// a miss. Concurrent compiles of the same key are coalesced with a
// singleflight group, so the same compile never runs twice
// concurrently.
func (c *Cache) Compile(key string, build func() (*vecjit.Kernel, error)) (*vecjit.Kernel, error) {
	h := hashKey(key)
	if k, ok := c.lru.Get(h); ok {
		return k, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if k, ok := c.lru.Get(h); ok {
			return k, nil
		}
		k, err := build()
		if err != nil {
			diag.Log("kernel compile failed", zap.String("key", key), zap.Error(err))
			return nil, err
		}
		diag.Log("kernel compiled", zap.String("key", key), zap.Int("cache_len", c.lru.Len()))
		c.lru.Add(h, k)
		return k, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*vecjit.Kernel), nil
}

// Len reports the number of distinct structural keys currently cached.
func (c *Cache) Len() int { return c.lru.Len() }
