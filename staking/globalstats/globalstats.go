// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package globalstats keeps network-wide staking totals. The stake total is
// an epoch history like the per-validator ones, so network queries about any
// epoch resolve against the same source of truth as the records they sum.
package globalstats

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking/history"
	"github.com/meridianchain/meridian/state"
)

var (
	slotTotalStake      = meridian.BytesToBytes32([]byte("stats-total-stake"))
	slotUnstaking       = meridian.BytesToBytes32([]byte("stats-unstaking"))
	slotRewardsPaid     = meridian.BytesToBytes32([]byte("stats-rewards-paid"))
	slotCommissionsPaid = meridian.BytesToBytes32([]byte("stats-commissions-paid"))
)

// Totals is the snapshot served by network info queries.
type Totals struct {
	TotalStake      *big.Int
	ScheduledStake  *big.Int
	Unstaking       *big.Int
	RewardsPaid     *big.Int
	CommissionsPaid *big.Int
}

// Service manages the engine-wide staking totals.
type Service struct {
	stake           *state.Raw[*history.History[*big.Int]]
	unstaking       *state.Uint256
	rewardsPaid     *state.Uint256
	commissionsPaid *state.Uint256
}

func New(ctx *state.Context) *Service {
	return &Service{
		stake:           state.NewRaw[*history.History[*big.Int]](ctx, slotTotalStake),
		unstaking:       state.NewUint256(ctx, slotUnstaking),
		rewardsPaid:     state.NewUint256(ctx, slotRewardsPaid),
		commissionsPaid: state.NewUint256(ctx, slotCommissionsPaid),
	}
}

// StakeHistory returns the network stake history, empty when nothing was
// ever staked.
func (s *Service) StakeHistory() (*history.History[*big.Int], error) {
	h, err := s.stake.Get()
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = history.New[*big.Int]()
	}
	return h, nil
}

// StakeAt resolves the network stake effective at the epoch.
func (s *Service) StakeAt(epoch uint64) (*big.Int, error) {
	h, err := s.StakeHistory()
	if err != nil {
		return nil, err
	}
	if val, ok := h.Resolve(epoch); ok {
		return val, nil
	}
	return new(big.Int), nil
}

// ScheduledStake returns the farthest scheduled network stake.
func (s *Service) ScheduledStake() (*big.Int, error) {
	h, err := s.StakeHistory()
	if err != nil {
		return nil, err
	}
	if latest, ok := h.Latest(); ok {
		return latest.Value, nil
	}
	return new(big.Int), nil
}

// AddStake raises the scheduled network stake from the effective epoch.
func (s *Service) AddStake(effective uint64, amount *big.Int) error {
	return s.applyStake(effective, amount, false)
}

// RemoveStake lowers the scheduled network stake from the effective epoch.
func (s *Service) RemoveStake(effective uint64, amount *big.Int) error {
	return s.applyStake(effective, amount, true)
}

func (s *Service) applyStake(effective uint64, amount *big.Int, neg bool) error {
	h, err := s.StakeHistory()
	if err != nil {
		return err
	}
	next := new(big.Int)
	if latest, ok := h.Latest(); ok {
		next.Set(latest.Value)
	}
	if neg {
		next.Sub(next, amount)
		if next.Sign() < 0 {
			return errors.New("total stake underflow")
		}
	} else {
		next.Add(next, amount)
	}
	if err := h.Update(effective, next); err != nil {
		return err
	}
	return s.stake.Upsert(h)
}

// AddUnstaking increases the total awaiting withdrawal.
func (s *Service) AddUnstaking(amount *big.Int) error {
	return s.unstaking.Add(amount)
}

// SubUnstaking decreases the total awaiting withdrawal when requests settle.
func (s *Service) SubUnstaking(amount *big.Int) error {
	return s.unstaking.Sub(amount)
}

// AddRewardsPaid accounts rewards paid out to stakers.
func (s *Service) AddRewardsPaid(amount *big.Int) error {
	return s.rewardsPaid.Add(amount)
}

// AddCommissionsPaid accounts commissions paid out to validators.
func (s *Service) AddCommissionsPaid(amount *big.Int) error {
	return s.commissionsPaid.Add(amount)
}

// Totals reads the snapshot of all counters, with the stake total resolved
// at the epoch.
func (s *Service) Totals(epoch uint64) (*Totals, error) {
	stakeAt, err := s.StakeAt(epoch)
	if err != nil {
		return nil, err
	}
	scheduled, err := s.ScheduledStake()
	if err != nil {
		return nil, err
	}
	unstaking, err := s.unstaking.Get()
	if err != nil {
		return nil, err
	}
	rewards, err := s.rewardsPaid.Get()
	if err != nil {
		return nil, err
	}
	commissions, err := s.commissionsPaid.Get()
	if err != nil {
		return nil, err
	}
	return &Totals{
		TotalStake:      stakeAt,
		ScheduledStake:  scheduled,
		Unstaking:       unstaking,
		RewardsPaid:     rewards,
		CommissionsPaid: commissions,
	}, nil
}
