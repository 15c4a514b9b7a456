// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package params provides epoch-versioned governance values.
//
// Every key holds a full version history, so the value effective at any past
// epoch remains answerable after later re-schedules.
package params

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking/history"
	"github.com/meridianchain/meridian/state"
)

// Params binder of governance values.
type Params struct {
	addr  meridian.Address
	state *state.State
}

// New create a new instance.
func New(addr meridian.Address, state *state.State) *Params {
	return &Params{addr, state}
}

func (p *Params) getHistory(key meridian.Bytes32) (*history.History[*big.Int], error) {
	var h history.History[*big.Int]
	if err := p.state.DecodeStorage(p.addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &h)
	}); err != nil {
		return nil, err
	}
	return &h, nil
}

func (p *Params) setHistory(key meridian.Bytes32, h *history.History[*big.Int]) error {
	return p.state.EncodeStorage(p.addr, key, func() ([]byte, error) {
		if h.Len() == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(h)
	})
}

// Get returns the value of the key effective at the given epoch.
// A key never scheduled resolves to zero.
func (p *Params) Get(key meridian.Bytes32, epoch uint64) (*big.Int, error) {
	h, err := p.getHistory(key)
	if err != nil {
		return nil, err
	}
	if value, ok := h.Resolve(epoch); ok {
		return value, nil
	}
	return new(big.Int), nil
}

// Uint64 returns the value of the key effective at the given epoch, as uint64.
func (p *Params) Uint64(key meridian.Bytes32, epoch uint64) (uint64, error) {
	value, err := p.Get(key, epoch)
	if err != nil {
		return 0, err
	}
	return value.Uint64(), nil
}

// Schedule records the value of the key taking effect at the given epoch.
// Scheduling below the latest recorded epoch of the key fails.
func (p *Params) Schedule(key meridian.Bytes32, epoch uint64, value *big.Int) error {
	h, err := p.getHistory(key)
	if err != nil {
		return err
	}
	if err := h.Update(epoch, value); err != nil {
		return err
	}
	return p.setHistory(key, h)
}

// History returns all recorded versions of the key.
func (p *Params) History(key meridian.Bytes32) ([]history.Entry[*big.Int], error) {
	h, err := p.getHistory(key)
	if err != nil {
		return nil, err
	}
	return h.Entries(), nil
}
