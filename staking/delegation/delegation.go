// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package delegation manages staker-to-validator delegation records.
//
// A delegation is identified by the hash of its (staker, validator) pair and
// is created on first stake. Records are permanent. Bonded amounts are kept
// per token kind as epoch histories, so queries about past epochs stay
// answerable after the bond changes.
package delegation

import (
	"math/big"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/token"
)

// ID derives the identifier of the (staker, validator) delegation.
func ID(staker, validator meridian.Address) meridian.Bytes32 {
	return meridian.Blake2b(staker.Bytes(), validator.Bytes())
}

// Delegation binds a staker to a validator. One record exists per pair,
// created on the first stake and never removed.
type Delegation struct {
	Staker    meridian.Address
	Validator meridian.Address
	CreatedAt uint64 // epoch of the first stake

	// rewards are settled up to and including this epoch
	LastRewardClaim uint64

	// pending withdrawals, ordered by effective epoch
	Unstakes []*Unstake

	// links of the per-validator list
	VPrev *meridian.Bytes32 `rlp:"nil"`
	VNext *meridian.Bytes32 `rlp:"nil"`

	// links of the per-staker list
	SPrev *meridian.Bytes32 `rlp:"nil"`
	SNext *meridian.Bytes32 `rlp:"nil"`
}

// IsEmpty returns whether the entry can be treated as empty.
func (d *Delegation) IsEmpty() bool {
	return d.Staker.IsZero() && d.Validator.IsZero()
}

// ID returns the identifier of the delegation.
func (d *Delegation) ID() meridian.Bytes32 {
	return ID(d.Staker, d.Validator)
}

// QueueUnstake appends a scheduled withdrawal to the pending queue.
func (d *Delegation) QueueUnstake(kind token.Kind, amount *big.Int, effective uint64) {
	d.Unstakes = append(d.Unstakes, &Unstake{
		Kind:      kind,
		Amount:    amount,
		Effective: effective,
	})
}

// DueUnstakes removes and returns the queued withdrawals that have reached
// their effective epoch.
func (d *Delegation) DueUnstakes(epoch uint64) []*Unstake {
	var due, rest []*Unstake
	for _, u := range d.Unstakes {
		if u.Effective <= epoch {
			due = append(due, u)
		} else {
			rest = append(rest, u)
		}
	}
	d.Unstakes = rest
	return due
}

// PendingUnstaked sums the queued withdrawals of the kind.
func (d *Delegation) PendingUnstaked(kind token.Kind) *big.Int {
	total := new(big.Int)
	for _, u := range d.Unstakes {
		if u.Kind == kind {
			total.Add(total, u.Amount)
		}
	}
	return total
}

// Unstake is a scheduled withdrawal waiting to be claimed.
type Unstake struct {
	Kind      token.Kind
	Amount    *big.Int
	Effective uint64 // epoch at which the amount becomes claimable
}

// Staker aggregates the delegations of one staking address.
type Staker struct {
	FirstSeen uint64 // epoch of the address's first stake
	Count     uint64

	// links of the per-staker delegation list
	Head *meridian.Bytes32 `rlp:"nil"`
	Tail *meridian.Bytes32 `rlp:"nil"`
}

// IsEmpty returns whether the entry can be treated as empty.
func (s *Staker) IsEmpty() bool {
	return s.Count == 0 && s.Head == nil && s.Tail == nil
}
