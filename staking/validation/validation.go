// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package validation tracks validator records and their epoch-versioned state.
package validation

import (
	"math/big"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking/history"
)

type Status = uint8

const (
	StatusUnknown = Status(iota) // 0 -> default value, before the validator joined
	StatusActive
	StatusInactive
)

// StatusName returns the display name of the status.
func StatusName(s Status) string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Validation is the record of a validator. Records are permanent, a validator
// never leaves the registry once joined.
//
// Time-varying state is kept as epoch histories so that eligibility, stake
// and commission are answerable as of any epoch, past or scheduled.
type Validation struct {
	Owner    meridian.Address // immutable identity, receives commissions
	Operator meridian.Address // block production identity, may be rotated
	Identity meridian.Bytes32 // from the allow-list entry at join time
	JoinedAt uint64           // epoch of the join

	StatusHistory     *history.History[Status]   // scheduled active/inactive transitions
	CommissionHistory *history.History[uint32]   // commission rate in basis points
	JailHistory       *history.History[uint64]   // jail start epoch -> jailed-until epoch
	StakeHistory      *history.History[*big.Int] // total effective stake, own plus delegated

	LastCommissionClaim uint64 // commissions settled through this epoch

	// registry list threading
	Prev *meridian.Address `rlp:"nil"`
	Next *meridian.Address `rlp:"nil"`
}

func newValidation(owner, operator meridian.Address, identity meridian.Bytes32, joinedAt uint64) *Validation {
	return &Validation{
		Owner:             owner,
		Operator:          operator,
		Identity:          identity,
		JoinedAt:          joinedAt,
		StatusHistory:     &history.History[Status]{},
		CommissionHistory: &history.History[uint32]{},
		JailHistory:       &history.History[uint64]{},
		StakeHistory:      &history.History[*big.Int]{},
	}
}

// IsEmpty returns whether the record can be treated as absent.
func (v *Validation) IsEmpty() bool {
	return v.Owner.IsZero()
}

// StatusAt returns the status effective at the epoch. A validator with no
// recorded transition is active from the epoch it joined.
func (v *Validation) StatusAt(epoch uint64) Status {
	if v.IsEmpty() || epoch < v.JoinedAt {
		return StatusUnknown
	}
	if status, ok := v.StatusHistory.Resolve(epoch); ok {
		return status
	}
	return StatusActive
}

// JailedAt returns whether the validator is jailed at the epoch, and until
// which epoch the jail runs.
func (v *Validation) JailedAt(epoch uint64) (bool, uint64) {
	until, ok := v.JailHistory.Resolve(epoch)
	if !ok || until <= epoch {
		return false, 0
	}
	return true, until
}

// StakeAt returns the total effective stake at the epoch.
func (v *Validation) StakeAt(epoch uint64) *big.Int {
	if stake, ok := v.StakeHistory.Resolve(epoch); ok {
		return stake
	}
	return new(big.Int)
}

// ScheduledStake returns the stake after all scheduled changes take effect.
func (v *Validation) ScheduledStake() *big.Int {
	if latest, ok := v.StakeHistory.Latest(); ok {
		return latest.Value
	}
	return new(big.Int)
}

// CommissionAt returns the commission rate in basis points effective at the epoch.
func (v *Validation) CommissionAt(epoch uint64) uint32 {
	if rate, ok := v.CommissionHistory.Resolve(epoch); ok {
		return rate
	}
	return 0
}

// EligibleAt reports whether the validator may be part of the validator set
// of the epoch: active, not jailed, and staked at least the threshold.
func (v *Validation) EligibleAt(epoch uint64, threshold *big.Int) bool {
	if v.StatusAt(epoch) != StatusActive {
		return false
	}
	if jailed, _ := v.JailedAt(epoch); jailed {
		return false
	}
	return v.StakeAt(epoch).Cmp(threshold) >= 0
}

// EpochState is the validator's resolved state for one epoch of a window
// walk.
type EpochState struct {
	Epoch      uint64
	Status     Status
	Jailed     bool
	Stake      *big.Int
	Commission uint32
}

// Eligible reports whether the state passes the validator-set filter with
// the given stake threshold.
func (st *EpochState) Eligible(threshold *big.Int) bool {
	return st.Status == StatusActive && !st.Jailed && st.Stake.Cmp(threshold) >= 0
}

// WalkWindow resolves the validator's state for every epoch of [from, to] in
// ascending order, advancing over each history once instead of resolving it
// per epoch. The state passed to fn is reused between epochs; fn returning
// false stops the walk.
func (v *Validation) WalkWindow(from, to uint64, fn func(st *EpochState) bool) {
	if to < from {
		return
	}
	var (
		statuses = v.StatusHistory.Cursor(from, to)
		rates    = v.CommissionHistory.Cursor(from, to)
		jails    = v.JailHistory.Cursor(from, to)
		stakes   = v.StakeHistory.Cursor(from, to)

		zero big.Int
		st   EpochState
	)
	for epoch := from; ; epoch++ {
		st.Epoch = epoch

		st.Status = StatusUnknown
		if !v.IsEmpty() && epoch >= v.JoinedAt {
			st.Status = StatusActive
			if status, ok := statuses.At(epoch); ok {
				st.Status = status
			}
		}

		st.Jailed = false
		if until, ok := jails.At(epoch); ok && until > epoch {
			st.Jailed = true
		}

		st.Stake = &zero
		if stake, ok := stakes.At(epoch); ok {
			st.Stake = stake
		}

		st.Commission = 0
		if rate, ok := rates.At(epoch); ok {
			st.Commission = rate
		}

		if !fn(&st) || epoch == to {
			return
		}
	}
}
