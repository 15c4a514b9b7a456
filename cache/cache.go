// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cache provides small caching utilities shared across the node.
package cache

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/qianbin/directcache"
	"golang.org/x/sync/singleflight"

	"github.com/meridianchain/meridian/log"
	"github.com/meridianchain/meridian/metrics"
)

var logger = log.WithContext("pkg", "cache")

var metricHitMiss = metrics.LazyLoad(func() metrics.GaugeVecMeter {
	return metrics.GaugeVec("cache_hit_miss_count", []string{"type", "event"})
})

// PrimeLRU couples an LRU with singleflight, so concurrent misses of one key
// run the loader once and share its result.
type PrimeLRU struct {
	lru    *lru.Cache
	flight singleflight.Group
}

// NewPrimeLRU create a PrimeLRU instance.
// maxSize should be > 0, or an error returned.
func NewPrimeLRU(maxSize int) (*PrimeLRU, error) {
	l, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &PrimeLRU{lru: l}, nil
}

// GetOrLoad returns the cached value under key, loading and caching it on a
// miss. Load errors are returned and nothing is cached.
func (p *PrimeLRU) GetOrLoad(key string, loader func() (interface{}, error)) (interface{}, error) {
	if v, ok := p.lru.Get(key); ok {
		return v, nil
	}
	v, err, _ := p.flight.Do(key, func() (interface{}, error) {
		v, err := loader()
		if err != nil {
			return nil, err
		}
		p.lru.Add(key, v)
		return v, nil
	})
	return v, err
}

// Bytes caches byte values under versioned keys. A changed value must come
// under a fresh version, so hits never serve stale bytes and there is no
// invalidation.
type Bytes struct {
	cache       *directcache.Cache
	stats       Stats
	lastLogTime atomic.Int64
}

// NewBytes creates a byte cache bounded to sizeMB megabytes.
func NewBytes(sizeMB int) *Bytes {
	b := &Bytes{cache: directcache.New(sizeMB * 1024 * 1024)}
	b.lastLogTime.Store(time.Now().UnixNano())
	return b
}

func (b *Bytes) makeKey(ver uint32, key []byte) []byte {
	k := make([]byte, 4+len(key))
	binary.BigEndian.PutUint32(k, ver)
	copy(k[4:], key)
	return k
}

// Get returns a copy of the value cached under (ver, key).
func (b *Bytes) Get(ver uint32, key []byte) ([]byte, bool) {
	var val []byte
	ok := b.cache.AdvGet(b.makeKey(ver, key), func(v []byte) {
		val = slices.Clone(v)
	}, false)
	if ok {
		b.stats.Hit()
	} else {
		b.stats.Miss()
	}
	b.maybeLog()
	return val, ok
}

// Set caches val under (ver, key). Values over the cache's entry limit are
// silently skipped.
func (b *Bytes) Set(ver uint32, key, val []byte) {
	_ = b.cache.Set(b.makeKey(ver, key), val)
}

// maybeLog reports the hit rate at most every 20 seconds, and only when it
// moved since the last report.
func (b *Bytes) maybeLog() {
	now := time.Now().UnixNano()
	last := b.lastLogTime.Load()
	if now-last < int64(20*time.Second) {
		return
	}
	if !b.lastLogTime.CompareAndSwap(last, now) {
		return
	}
	changed, hit, miss := b.stats.Stats()
	if !changed {
		return
	}
	logger.Info("bytes cache stats",
		"lookups", hit+miss,
		"hitrate", fmt.Sprintf("%.3f", float64(hit)/float64(hit+miss)),
	)
	metricHitMiss().SetWithLabel(hit, map[string]string{"type": "bytes", "event": "hit"})
	metricHitMiss().SetWithLabel(miss, map[string]string{"type": "bytes", "event": "miss"})
}

// Stats is a utility for collecting cache hit/miss.
type Stats struct {
	hit, miss atomic.Int64
	flag      atomic.Int32
}

// Hit records a hit.
func (cs *Stats) Hit() int64 { return cs.hit.Add(1) }

// Miss records a miss.
func (cs *Stats) Miss() int64 { return cs.miss.Add(1) }

// Stats returns the number of hits and misses and whether
// the hit rate was changed comparing to the last call.
func (cs *Stats) Stats() (bool, int64, int64) {
	hit := cs.hit.Load()
	miss := cs.miss.Load()
	lookups := hit + miss

	hitRate := float64(0)
	if lookups > 0 {
		hitRate = float64(hit) / float64(lookups)
	}
	flag := int32(hitRate * 1000)

	return cs.flag.Swap(flag) != flag, hit, miss
}
