// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node drives the block schedule of a standalone network. It applies
// submitted staking operations, seals epochs on their closing blocks and
// exposes the committed state to the api layer.
package node

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/authority"
	"github.com/meridianchain/meridian/cache"
	"github.com/meridianchain/meridian/co"
	"github.com/meridianchain/meridian/eventdb"
	"github.com/meridianchain/meridian/genesis"
	"github.com/meridianchain/meridian/health"
	"github.com/meridianchain/meridian/kv"
	"github.com/meridianchain/meridian/log"
	"github.com/meridianchain/meridian/lvldb"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/params"
	"github.com/meridianchain/meridian/staking"
	"github.com/meridianchain/meridian/staking/rewards"
	"github.com/meridianchain/meridian/state"
	"github.com/meridianchain/meridian/token"
	"github.com/meridianchain/meridian/xenv"
)

var logger = log.WithContext("pkg", "node")

const (
	stateBucket = kv.Bucket("s")
	metaBucket  = kv.Bucket("n")
)

var (
	metaKeyGenesisID = []byte("genesis-id")
	metaKeyBest      = []byte("best")
)

// errStopped reports an operation submitted to a node that no longer packs.
var errStopped = errors.New("node stopped")

// Options tune the production loop.
type Options struct {
	// OnDemand packs a block as soon as an operation arrives instead of
	// holding it for the next tick.
	OnDemand bool
	// BlockInterval overrides the interval the network was launched with,
	// in seconds. Zero keeps the genesis value.
	BlockInterval uint64
	// EpochLength overrides the epoch length of the network, in blocks.
	// Zero keeps the genesis value.
	EpochLength uint32
	// UptimeFn overrides the uptime curve, nil keeps the default.
	UptimeFn rewards.UptimeFn
}

// readCacheMB bounds the byte cache backing read-only snapshots.
const readCacheMB = 16

// Node produces blocks on the epoch schedule and answers api queries.
type Node struct {
	store     *lvldb.LevelDB
	events    *eventdb.EventDB
	gene      *genesis.Genesis
	cfg       xenv.Config
	signer    meridian.Address
	health    *health.Health
	sig       *co.Signal
	options   Options
	readCache *cache.Bytes

	mu        sync.RWMutex // pairs store snapshots with the best block number
	best      atomic.Uint32
	tasks     chan *task
	done      chan struct{}
	abandoned []uint32 // journal blocks to purge on the next insert
}

// New opens the node over the given store. An empty store is initialized
// with the genesis recipe; a used one must carry the same network ID.
func New(
	store *lvldb.LevelDB,
	events *eventdb.EventDB,
	gene *genesis.Genesis,
	signer meridian.Address,
	healthTracker *health.Health,
	sig *co.Signal,
	options Options,
) (*Node, error) {
	n := &Node{
		store:     store,
		events:    events,
		gene:      gene,
		cfg:       gene.Config(),
		signer:    signer,
		health:    healthTracker,
		sig:       sig,
		options:   options,
		readCache: cache.NewBytes(readCacheMB),
		tasks:     make(chan *task, 64),
		done:      make(chan struct{}),
	}
	if options.BlockInterval != 0 {
		n.cfg.BlockInterval = options.BlockInterval
	}
	if options.EpochLength != 0 {
		n.cfg.EpochLength = options.EpochLength
	}

	best, err := n.bootstrap()
	if err != nil {
		return nil, err
	}
	n.best.Store(best)
	// a block may have reached the journal without landing
	n.abandoned = []uint32{best + 1}
	return n, nil
}

// bootstrap loads the chain position from the store, applying the launch
// state first if the store is empty.
func (n *Node) bootstrap() (uint32, error) {
	meta := metaBucket.NewGetter(n.store)
	have, err := meta.Has(metaKeyGenesisID)
	if err != nil {
		return 0, errors.Wrap(err, "read meta")
	}

	if have {
		storedID, err := meta.Get(metaKeyGenesisID)
		if err != nil {
			return 0, errors.Wrap(err, "read meta")
		}
		if !bytes.Equal(storedID, n.gene.ID().Bytes()) {
			return 0, errors.Errorf("store is bound to another network (%x)", storedID)
		}
		rawBest, err := meta.Get(metaKeyBest)
		if err != nil {
			return 0, errors.Wrap(err, "read meta")
		}
		best := binary.BigEndian.Uint32(rawBest)
		logger.Info("chain loaded", "network", n.gene.Name(), "best", best)
		return best, nil
	}

	st := state.New(stateBucket.NewGetter(n.store))
	if err := n.gene.Build(st); err != nil {
		return 0, errors.Wrap(err, "build launch state")
	}

	stage, err := st.Stage()
	if err != nil {
		return 0, err
	}
	bulk := n.store.Bulk()
	if err := stage.Commit(stateBucket.NewPutter(bulk)); err != nil {
		return 0, err
	}
	metaPutter := metaBucket.NewPutter(bulk)
	if err := metaPutter.Put(metaKeyGenesisID, n.gene.ID().Bytes()); err != nil {
		return 0, err
	}
	var b [4]byte
	if err := metaPutter.Put(metaKeyBest, b[:]); err != nil {
		return 0, err
	}
	if err := bulk.Write(); err != nil {
		return 0, err
	}
	logger.Info("launch state committed", "network", n.gene.Name(), "id", n.gene.ID())
	return 0, nil
}

// Run packs blocks until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	goes := &co.Goes{}

	defer func() {
		<-ctx.Done()
		select {
		case <-goes.Done():
		case <-time.After(10 * time.Second):
			logger.Warn("some loops did not stop in time")
		}
	}()

	logger.Info("prepared to pack blocks",
		"network", n.gene.Name(),
		"signer", n.signer,
		"best", n.best.Load(),
		"epochLength", n.cfg.EpochLength,
		"blockInterval", n.cfg.BlockInterval,
	)

	goes.Go(func() { n.loop(ctx) })
	goes.Go(func() { n.clockLoop(ctx) })

	return nil
}

func (n *Node) loop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(n.cfg.BlockInterval) * time.Second)
	defer ticker.Stop()

	var pending []*task
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping the packing service......")
			close(n.done)
			for _, t := range pending {
				t.done <- errStopped
			}
			return
		case t := <-n.tasks:
			pending = append(pending, t)
			if !n.options.OnDemand {
				continue
			}
		case <-ticker.C:
		}

		pending = append(pending, n.drainTasks()...)
		if err := evalBlockPackMetrics(len(pending), func() error {
			return n.packBlock(pending)
		}); err != nil {
			logger.Error("failed to pack block", "err", err)
		}
		pending = nil
	}
}

func (n *Node) drainTasks() []*task {
	var drained []*task
	for {
		select {
		case t := <-n.tasks:
			drained = append(drained, t)
		default:
			return drained
		}
	}
}

// timeOf returns the scheduled timestamp of a block.
func (n *Node) timeOf(num uint32) uint64 {
	return n.gene.LaunchTime() + uint64(num)*n.cfg.BlockInterval
}

func (n *Node) envAt(st *state.State, num uint32) *xenv.Environment {
	return xenv.New(n.cfg, params.New(meridian.ParamsAddress, st), &xenv.BlockContext{
		Number: num,
		Time:   n.timeOf(num),
		Signer: n.signer,
	})
}

func (n *Node) stakingAt(st *state.State) *staking.Staking {
	auth := authority.New(meridian.AuthorityAddress, st)
	tok := token.New(meridian.TokenAddress, st)
	return staking.New(meridian.StakingAddress, st, auth, tok, n.options.UptimeFn)
}

// blockIDOf derives a stable identifier for a committed block.
func (n *Node) blockIDOf(num uint32, stageHash meridian.Bytes32) meridian.Bytes32 {
	return meridian.Blake2bFn(func(w io.Writer) {
		w.Write(n.gene.ID().Bytes())
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], num)
		w.Write(b[:])
		w.Write(stageHash.Bytes())
	})
}
