// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rewards holds the reward arithmetic. All functions are pure,
// integer-only and truncate toward zero, so every caller computes the same
// split for the same inputs.
package rewards

import (
	"math/big"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/xenv"
)

// Uptime is the ratio scaling an epoch's reward.
type Uptime struct {
	Num uint64
	Den uint64
}

// UptimeFn derives the uptime ratio of a validator for one epoch from its
// block and slash tally. Implementations keep Num <= Den and Den > 0.
type UptimeFn func(blocks, slashes uint64, tun *xenv.Tunables) Uptime

// DefaultUptime scales the blocks produced against the expected count and
// deducts the configured penalty per slash, flooring at zero. With no
// expectation configured the ratio is full.
func DefaultUptime(blocks, slashes uint64, tun *xenv.Tunables) Uptime {
	if tun.ExpectedBlocks == 0 {
		return Uptime{Num: meridian.BpsDenom, Den: meridian.BpsDenom}
	}
	produced := min(blocks, tun.ExpectedBlocks)
	num := produced * meridian.BpsDenom / tun.ExpectedBlocks
	if penalty := slashes * tun.SlashUptimePenalty; penalty >= num {
		num = 0
	} else {
		num -= penalty
	}
	return Uptime{Num: num, Den: meridian.BpsDenom}
}

// ValidatorReward returns the reward accrued by a validator over one epoch:
// the effective stake total scaled by the reward rate and the uptime ratio.
// The division happens once, after all multiplications.
func ValidatorReward(totalStake, rateBps *big.Int, uptime Uptime) *big.Int {
	if totalStake == nil || totalStake.Sign() <= 0 ||
		rateBps == nil || rateBps.Sign() <= 0 ||
		uptime.Num == 0 || uptime.Den == 0 {
		return new(big.Int)
	}
	num := new(big.Int).Mul(totalStake, rateBps)
	num.Mul(num, new(big.Int).SetUint64(uptime.Num))
	den := new(big.Int).Mul(big.NewInt(meridian.BpsDenom), new(big.Int).SetUint64(uptime.Den))
	return num.Quo(num, den)
}

// Commission returns the validator's cut of the reward at the rate.
func Commission(reward *big.Int, commissionBps uint32) *big.Int {
	if reward == nil || reward.Sign() <= 0 || commissionBps == 0 {
		return new(big.Int)
	}
	cut := new(big.Int).Mul(reward, new(big.Int).SetUint64(uint64(commissionBps)))
	return cut.Quo(cut, big.NewInt(meridian.BpsDenom))
}

// StakerShare returns a staker's pro-rata part of the distributable reward.
// Shares truncate individually; the dust stays with the validator. A zero
// stake total yields a zero share.
func StakerShare(distributable, stakerStake, totalStake *big.Int) *big.Int {
	if distributable == nil || distributable.Sign() <= 0 ||
		stakerStake == nil || stakerStake.Sign() <= 0 ||
		totalStake == nil || totalStake.Sign() <= 0 {
		return new(big.Int)
	}
	share := new(big.Int).Mul(distributable, stakerStake)
	return share.Quo(share, totalStake)
}
