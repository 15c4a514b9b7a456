// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package xenv provides the execution environment of staking operations.
package xenv

import (
	"math/big"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/params"
)

// BlockContext the block being processed.
type BlockContext struct {
	Number uint32
	Time   uint64
	Signer meridian.Address
}

// Config fixes the epoch geometry. It is set at genesis and never changes.
type Config struct {
	EpochLength   uint32
	BlockInterval uint64
}

// Tunables bundles the governance values effective at one epoch.
type Tunables struct {
	ValidatorThreshold *big.Int
	RewardRate         *big.Int
	JailPeriod         uint64
	CommissionDelay    uint64
	SlashJailThreshold uint64
	SlashUptimePenalty uint64
	ExpectedBlocks     uint64
	MaxCommission      uint32
}

// Environment an env to execute staking operations against one block.
// An environment serves one block execution on one goroutine.
type Environment struct {
	cfg      Config
	params   *params.Params
	blockCtx *BlockContext
	tunables map[uint64]*Tunables
}

// New create a new env.
func New(cfg Config, params *params.Params, blockCtx *BlockContext) *Environment {
	if cfg.EpochLength == 0 {
		cfg.EpochLength = meridian.DefaultEpochLength
	}
	if cfg.BlockInterval == 0 {
		cfg.BlockInterval = meridian.DefaultBlockInterval
	}
	return &Environment{
		cfg:      cfg,
		params:   params,
		blockCtx: blockCtx,
		tunables: make(map[uint64]*Tunables),
	}
}

func (env *Environment) Config() Config              { return env.cfg }
func (env *Environment) Params() *params.Params      { return env.params }
func (env *Environment) BlockContext() *BlockContext { return env.blockCtx }

// Epoch returns the epoch the current block belongs to.
func (env *Environment) Epoch() uint64 {
	return env.EpochOf(env.blockCtx.Number)
}

// EpochOf returns the epoch the given block number belongs to.
func (env *Environment) EpochOf(blockNum uint32) uint64 {
	return uint64(blockNum / env.cfg.EpochLength)
}

// EpochStart returns the number of the first block of the epoch.
func (env *Environment) EpochStart(epoch uint64) uint32 {
	return uint32(epoch) * env.cfg.EpochLength
}

// IsFirstBlockOfEpoch reports whether the current block opens its epoch.
func (env *Environment) IsFirstBlockOfEpoch() bool {
	return env.blockCtx.Number%env.cfg.EpochLength == 0
}

// IsLastBlockOfEpoch reports whether the current block closes its epoch.
// Staking mutations are rejected on such blocks, the slot is reserved for
// sealing the epoch.
func (env *Environment) IsLastBlockOfEpoch() bool {
	return env.blockCtx.Number%env.cfg.EpochLength == env.cfg.EpochLength-1
}

// TunablesAt resolves the governance values effective at the given epoch.
// Resolutions are memoized for the life of the environment. Sealing resolves
// the same epoch once per validator, the memo keeps that a single read.
func (env *Environment) TunablesAt(epoch uint64) (*Tunables, error) {
	if tun, ok := env.tunables[epoch]; ok {
		return tun, nil
	}
	threshold, err := env.params.Get(meridian.KeyValidatorThreshold, epoch)
	if err != nil {
		return nil, err
	}
	rewardRate, err := env.params.Get(meridian.KeyRewardRate, epoch)
	if err != nil {
		return nil, err
	}
	jailPeriod, err := env.params.Uint64(meridian.KeyJailPeriod, epoch)
	if err != nil {
		return nil, err
	}
	commissionDelay, err := env.params.Uint64(meridian.KeyCommissionDelay, epoch)
	if err != nil {
		return nil, err
	}
	slashJailThreshold, err := env.params.Uint64(meridian.KeySlashJailThreshold, epoch)
	if err != nil {
		return nil, err
	}
	slashUptimePenalty, err := env.params.Uint64(meridian.KeySlashUptimePenalty, epoch)
	if err != nil {
		return nil, err
	}
	expectedBlocks, err := env.params.Uint64(meridian.KeyExpectedBlocks, epoch)
	if err != nil {
		return nil, err
	}
	maxCommission, err := env.params.Uint64(meridian.KeyMaxCommission, epoch)
	if err != nil {
		return nil, err
	}
	tun := &Tunables{
		ValidatorThreshold: threshold,
		RewardRate:         rewardRate,
		JailPeriod:         jailPeriod,
		CommissionDelay:    commissionDelay,
		SlashJailThreshold: slashJailThreshold,
		SlashUptimePenalty: slashUptimePenalty,
		ExpectedBlocks:     expectedBlocks,
		MaxCommission:      uint32(maxCommission),
	}
	env.tunables[epoch] = tun
	return tun, nil
}
