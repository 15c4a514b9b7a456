// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis builds the launch state of a network.
//
// A Genesis is a named, replayable recipe. Applying it to an empty state
// produces the token supply, the validator allow list and the governance
// schedule the network starts from. The genesis ID digests the produced
// change set, so two nodes agree on the network identity exactly when they
// agree on the launch state.
package genesis

import (
	"math/big"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/params"
	"github.com/meridianchain/meridian/state"
	"github.com/meridianchain/meridian/xenv"
)

// Genesis to build the launch state.
type Genesis struct {
	builder *Builder
	id      meridian.Bytes32
	name    string
	config  xenv.Config
}

// Build applies the genesis recipe to the given state.
func (g *Genesis) Build(st *state.State) error {
	return g.builder.Build(st)
}

// ID returns the genesis ID, which identifies the network.
func (g *Genesis) ID() meridian.Bytes32 {
	return g.id
}

// Name returns the network name.
func (g *Genesis) Name() string {
	return g.name
}

// LaunchTime returns the launch timestamp in unix seconds.
func (g *Genesis) LaunchTime() uint64 {
	return g.builder.launchTime
}

// Config returns the epoch timing of the network.
func (g *Genesis) Config() xenv.Config {
	return g.config
}

type paramValue struct {
	key   meridian.Bytes32
	value *big.Int
}

// initialParams is the governance schedule applied at epoch 0 when the
// network definition does not override it.
func initialParams() []paramValue {
	return []paramValue{
		{meridian.KeyValidatorThreshold, meridian.InitialValidatorThreshold},
		{meridian.KeyRewardRate, meridian.InitialRewardRate},
		{meridian.KeyJailPeriod, meridian.InitialJailPeriod},
		{meridian.KeyCommissionDelay, meridian.InitialCommissionDelay},
		{meridian.KeySlashJailThreshold, meridian.InitialSlashJailThreshold},
		{meridian.KeySlashUptimePenalty, meridian.InitialSlashUptimePenalty},
		{meridian.KeyExpectedBlocks, meridian.InitialExpectedBlocks},
		{meridian.KeyMaxCommission, meridian.InitialMaxCommission},
	}
}

func scheduleParams(st *state.State, values []paramValue) error {
	par := params.New(meridian.ParamsAddress, st)
	for _, pv := range values {
		if err := par.Schedule(pv.key, 0, pv.value); err != nil {
			return err
		}
	}
	return nil
}
