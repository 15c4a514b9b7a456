// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"encoding/binary"

	"github.com/meridianchain/meridian/cache"
	"github.com/meridianchain/meridian/eventdb"
	"github.com/meridianchain/meridian/kv"
	"github.com/meridianchain/meridian/staking"
	"github.com/meridianchain/meridian/state"
	"github.com/meridianchain/meridian/xenv"
)

// task is one submitted operation awaiting a block.
type task struct {
	fn   func(env *xenv.Environment, stk *staking.Staking) error
	done chan error
}

// cachedGetter serves state reads of one committed block through the shared
// byte cache. Keys carry the block number, so entries of replaced blocks
// simply age out. The packer bypasses it and reads the store directly.
type cachedGetter struct {
	cache *cache.Bytes
	ver   uint32
	src   kv.Getter
}

func (g *cachedGetter) Get(key []byte) ([]byte, error) {
	if val, ok := g.cache.Get(g.ver, key); ok {
		return val, nil
	}
	val, err := g.src.Get(key)
	if err != nil {
		return nil, err
	}
	g.cache.Set(g.ver, key, val)
	return val, nil
}

func (g *cachedGetter) Has(key []byte) (bool, error) {
	if _, ok := g.cache.Get(g.ver, key); ok {
		return true, nil
	}
	return g.src.Has(key)
}

func (g *cachedGetter) IsNotFound(err error) bool {
	return g.src.IsNotFound(err)
}

// Best returns the number of the latest committed block.
func (n *Node) Best() uint32 {
	return n.best.Load()
}

// View runs fn against a read-only snapshot of the latest committed block.
func (n *Node) View(fn func(env *xenv.Environment, stk *staking.Staking) error) error {
	n.mu.RLock()
	best := n.best.Load()
	snap := n.store.Snapshot()
	n.mu.RUnlock()
	defer snap.Release()

	st := state.New(&cachedGetter{
		cache: n.readCache,
		ver:   best,
		src:   stateBucket.NewGetter(snap),
	})
	return fn(n.envAt(st, best), n.stakingAt(st))
}

// Submit schedules fn to run inside the upcoming block and waits for its
// outcome until ctx is done.
func (n *Node) Submit(ctx context.Context, fn func(env *xenv.Environment, stk *staking.Staking) error) error {
	t := &task{fn: fn, done: make(chan error, 1)}

	select {
	case n.tasks <- t:
	case <-n.done:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-t.done:
		return err
	case <-n.done:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// packBlock runs the pending operations and the epoch housekeeping inside
// the next block, then commits it. Every task gets its outcome delivered,
// with the block failure standing in for operations that had succeeded.
func (n *Node) packBlock(pending []*task) error {
	num := n.best.Load() + 1
	st := state.New(stateBucket.NewGetter(n.store))
	env := n.envAt(st, num)
	stk := n.stakingAt(st)

	results := make([]error, len(pending))
	for i, t := range pending {
		results[i] = t.fn(env, stk)
	}

	fail := func(err error) error {
		for i, t := range pending {
			if results[i] != nil {
				t.done <- results[i]
			} else {
				t.done <- err
			}
		}
		return err
	}

	if err := stk.RecordBlock(env); err != nil {
		return fail(err)
	}
	if env.IsLastBlockOfEpoch() {
		if _, err := stk.SealEpoch(env); err != nil {
			return fail(err)
		}
	}

	// journal first, the store write decides whether the block lands
	events := stk.PendingEvents()
	records := make([]*eventdb.Record, 0, len(events))
	for i, ev := range events {
		records = append(records, &eventdb.Record{
			BlockNumber: ev.Block,
			Index:       uint32(i),
			BlockTime:   n.timeOf(ev.Block),
			Epoch:       ev.Epoch,
			Name:        ev.Name,
			Actor:       ev.Actor,
			Data:        ev.Data,
		})
	}
	if len(records) > 0 || len(n.abandoned) > 0 {
		if err := n.events.Insert(records, n.abandoned); err != nil {
			return fail(err)
		}
		n.abandoned = nil
	}

	stage, err := st.Stage()
	if err != nil {
		n.abandoned = append(n.abandoned, num)
		return fail(err)
	}
	bulk := n.store.Bulk()
	if err := stage.Commit(stateBucket.NewPutter(bulk)); err != nil {
		n.abandoned = append(n.abandoned, num)
		return fail(err)
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], num)
	if err := metaBucket.NewPutter(bulk).Put(metaKeyBest, b[:]); err != nil {
		n.abandoned = append(n.abandoned, num)
		return fail(err)
	}

	n.mu.Lock()
	err = bulk.Write()
	if err == nil {
		n.best.Store(num)
	}
	n.mu.Unlock()
	if err != nil {
		n.abandoned = append(n.abandoned, num)
		return fail(err)
	}

	n.health.NewBestBlock(n.blockIDOf(num, stage.Hash()))
	n.sig.Broadcast()

	for i, t := range pending {
		t.done <- results[i]
	}

	logger.Debug("block packed",
		"number", num,
		"epoch", env.Epoch(),
		"ops", len(pending),
		"events", len(records),
	)
	return nil
}
