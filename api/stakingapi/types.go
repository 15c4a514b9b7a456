// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakingapi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/meridianchain/meridian/meridian"
)

// JoinRequest registers a validator under an allow-listed owner.
type JoinRequest struct {
	Owner    meridian.Address `json:"owner"`
	Operator meridian.Address `json:"operator"`
}

// OperatorRequest rebinds the operator of a validator.
type OperatorRequest struct {
	Operator meridian.Address `json:"operator"`
}

// StatusRequest schedules activation or deactivation at the given epochs.
// Caller must be the owner or the operator.
type StatusRequest struct {
	Caller meridian.Address `json:"caller"`
	Epochs []uint64         `json:"epochs"`
}

// CommissionRequest schedules a commission rate change.
// Caller must be the owner or the operator.
type CommissionRequest struct {
	Caller  meridian.Address `json:"caller"`
	RateBps uint32           `json:"rateBps"`
}

// CommissionResponse reports when the scheduled rate takes effect.
type CommissionResponse struct {
	EffectiveEpoch uint64 `json:"effectiveEpoch"`
}

// SlashRequest reports misbehaving blocks of an operator. It is executed
// under the authority of the producing block signer.
type SlashRequest struct {
	Operator meridian.Address `json:"operator"`
	Blocks   uint64           `json:"blocks"`
}

// SlashResponse reports the updated counter and jail state.
type SlashResponse struct {
	Slashes uint64 `json:"slashes"`
	Jailed  bool   `json:"jailed"`
	Until   uint64 `json:"until,omitempty"`
}

// StakeRequest bonds an amount of the given kind to a validator.
type StakeRequest struct {
	Staker    meridian.Address      `json:"staker"`
	Validator meridian.Address      `json:"validator"`
	Kind      string                `json:"kind"`
	Amount    *math.HexOrDecimal256 `json:"amount"`
}

// UnstakeRequest schedules an unbond from a validator. The removed amount is
// capped to what is effectively unbondable.
type UnstakeRequest struct {
	Staker    meridian.Address      `json:"staker"`
	Validator meridian.Address      `json:"validator"`
	Kind      string                `json:"kind"`
	Amount    *math.HexOrDecimal256 `json:"amount"`
}

// UnstakeResponse reports the amount actually scheduled for unbonding.
type UnstakeResponse struct {
	Removed   *big.Int `json:"removed"`
	Claimable uint64   `json:"claimable,omitempty"`
}

// ClaimUnstakesRequest redeems every matured unstake of the staker.
type ClaimUnstakesRequest struct {
	Staker meridian.Address `json:"staker"`
}

// SettledUnstake is one matured unstake paid back by a claim.
type SettledUnstake struct {
	Validator meridian.Address `json:"validator"`
	Kind      string           `json:"kind"`
	Amount    *big.Int         `json:"amount"`
}

// RewardsClaimRequest claims up to count epochs of staking rewards.
type RewardsClaimRequest struct {
	Staker    meridian.Address `json:"staker"`
	Validator meridian.Address `json:"validator"`
	Count     uint64           `json:"count"`
}

// CommissionsClaimRequest claims up to count epochs of validator commissions
// for the owner.
type CommissionsClaimRequest struct {
	Owner meridian.Address `json:"owner"`
	Count uint64           `json:"count"`
}

// TotalsView reports the engine-wide totals at an epoch.
type TotalsView struct {
	Epoch           uint64   `json:"epoch"`
	TotalStake      *big.Int `json:"totalStake"`
	ScheduledStake  *big.Int `json:"scheduledStake"`
	Unstaking       *big.Int `json:"unstaking"`
	RewardsPaid     *big.Int `json:"rewardsPaid"`
	CommissionsPaid *big.Int `json:"commissionsPaid"`
}

// Clock reports the producer position in epoch time.
type Clock struct {
	Best          uint32 `json:"best"`
	Epoch         uint64 `json:"epoch"`
	EpochLength   uint32 `json:"epochLength"`
	BlockInterval uint64 `json:"blockInterval"`
	SealingBlock  bool   `json:"sealingBlock"`
}

// ParamsView reports the governance values effective at an epoch.
type ParamsView struct {
	Epoch              uint64   `json:"epoch"`
	ValidatorThreshold *big.Int `json:"validatorThreshold"`
	RewardRate         *big.Int `json:"rewardRate"`
	JailPeriod         uint64   `json:"jailPeriod"`
	CommissionDelay    uint64   `json:"commissionDelay"`
	SlashJailThreshold uint64   `json:"slashJailThreshold"`
	SlashUptimePenalty uint64   `json:"slashUptimePenalty"`
	ExpectedBlocks     uint64   `json:"expectedBlocks"`
	MaxCommission      uint32   `json:"maxCommission"`
}
