// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb/util"
)

// Bucket carves a keyspace out of a shared store by prefixing every key.
type Bucket string

// NewGetter wraps src so that reads resolve inside the bucket.
func (b Bucket) NewGetter(src Getter) Getter {
	return &bucketGetter{b, src}
}

// NewPutter wraps src so that writes land inside the bucket.
func (b Bucket) NewPutter(src Putter) Putter {
	return &bucketPutter{b, src}
}

// NewStore wraps src so that every operation, snapshots, bulks and
// iteration included, stays inside the bucket.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{b.NewGetter(src), b.NewPutter(src), b, src}
}

type bucketGetter struct {
	b   Bucket
	src Getter
}

func (g *bucketGetter) Get(key []byte) ([]byte, error) {
	k := keyPool.Get().(*keyBuf)
	defer keyPool.Put(k)
	return g.src.Get(k.prefixed(g.b, key))
}

func (g *bucketGetter) Has(key []byte) (bool, error) {
	k := keyPool.Get().(*keyBuf)
	defer keyPool.Put(k)
	return g.src.Has(k.prefixed(g.b, key))
}

func (g *bucketGetter) IsNotFound(err error) bool {
	return g.src.IsNotFound(err)
}

type bucketPutter struct {
	b   Bucket
	src Putter
}

func (p *bucketPutter) Put(key, val []byte) error {
	k := keyPool.Get().(*keyBuf)
	defer keyPool.Put(k)
	return p.src.Put(k.prefixed(p.b, key), val)
}

func (p *bucketPutter) Delete(key []byte) error {
	k := keyPool.Get().(*keyBuf)
	defer keyPool.Put(k)
	return p.src.Delete(k.prefixed(p.b, key))
}

type bucketStore struct {
	Getter
	Putter
	b   Bucket
	src Store
}

func (s *bucketStore) Snapshot() Snapshot {
	snap := s.src.Snapshot()
	return &bucketSnapshot{s.b.NewGetter(snap), snap}
}

func (s *bucketStore) Bulk() Bulk {
	bulk := s.src.Bulk()
	return &bucketBulk{s.b.NewPutter(bulk), bulk}
}

// Iterate runs over the bucket's slice of r. The range is copied onto
// fresh slices; the underlying iterator may keep it for its whole
// lifetime.
func (s *bucketStore) Iterate(r Range) Iterator {
	prefix := []byte(s.b)
	bounded := Range{
		Start: append(append([]byte(nil), prefix...), r.Start...),
	}
	if len(r.Limit) == 0 {
		bounded.Limit = util.BytesPrefix(prefix).Limit
	} else {
		bounded.Limit = append(append([]byte(nil), prefix...), r.Limit...)
	}
	return &bucketIterator{s.src.Iterate(bounded), len(prefix)}
}

type bucketSnapshot struct {
	Getter
	src Snapshot
}

func (s *bucketSnapshot) Release() { s.src.Release() }

type bucketBulk struct {
	Putter
	src Bulk
}

func (b *bucketBulk) EnableAutoFlush() { b.src.EnableAutoFlush() }
func (b *bucketBulk) Write() error     { return b.src.Write() }

type bucketIterator struct {
	Iterator
	prefixLen int
}

// Key strips the bucket prefix.
func (i *bucketIterator) Key() []byte {
	return i.Iterator.Key()[i.prefixLen:]
}

type keyBuf struct {
	k []byte
}

var keyPool = sync.Pool{
	New: func() any { return &keyBuf{} },
}

// prefixed builds b+key in place. The returned slice is valid only until
// the buffer goes back to the pool.
func (k *keyBuf) prefixed(b Bucket, key []byte) []byte {
	k.k = append(append(k.k[:0], b...), key...)
	return k.k
}
