// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking/delegation"
	"github.com/meridianchain/meridian/staking/globalstats"
	"github.com/meridianchain/meridian/staking/reverts"
	"github.com/meridianchain/meridian/staking/rewards"
	"github.com/meridianchain/meridian/staking/validation"
	"github.com/meridianchain/meridian/token"
	"github.com/meridianchain/meridian/xenv"
)

//
// Getters - no state change
//

// ValidatorView is a validator's standing resolved at one epoch.
type ValidatorView struct {
	Owner       meridian.Address `json:"owner"`
	Operator    meridian.Address `json:"operator"`
	Identity    meridian.Bytes32 `json:"identity"`
	JoinedAt    uint64           `json:"joinedAt"`
	Status      string           `json:"status"`
	Stake       *big.Int         `json:"stake"`
	Scheduled   *big.Int         `json:"scheduled"`
	Commission  uint32           `json:"commission"`
	Jailed      bool             `json:"jailed"`
	JailedUntil uint64           `json:"jailedUntil,omitempty"`
	Eligible    bool             `json:"eligible"`
	Delegations uint64           `json:"delegations"`
	Blocks      uint64           `json:"blocks"`
	Slashes     uint64           `json:"slashes"`
}

func emptyValidatorView() *ValidatorView {
	return &ValidatorView{Stake: new(big.Int), Scheduled: new(big.Int)}
}

func (s *Staking) validatorView(v *validation.Validation, epoch uint64, tun *xenv.Tunables) (*ValidatorView, error) {
	jailed, until := v.JailedAt(epoch)
	tally, err := s.validations.Repo().GetTally(v.Owner, epoch)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	delegations, err := s.delegations.CountByValidator(v.Owner)
	if err != nil {
		return nil, err
	}
	return &ValidatorView{
		Owner:       v.Owner,
		Operator:    v.Operator,
		Identity:    v.Identity,
		JoinedAt:    v.JoinedAt,
		Status:      validation.StatusName(v.StatusAt(epoch)),
		Stake:       v.StakeAt(epoch),
		Scheduled:   v.ScheduledStake(),
		Commission:  v.CommissionAt(epoch),
		Jailed:      jailed,
		JailedUntil: until,
		Eligible:    v.EligibleAt(epoch, tun.ValidatorThreshold),
		Delegations: delegations,
		Blocks:      tally.Blocks,
		Slashes:     tally.Slashes,
	}, nil
}

// ValidatorInfo resolves the validator's standing at the given epoch.
func (s *Staking) ValidatorInfo(env *xenv.Environment, owner meridian.Address, epoch uint64) (*ValidatorView, error) {
	v, err := s.validations.Get(owner)
	if err != nil {
		return nil, err
	}
	tun, err := env.TunablesAt(epoch)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	return s.validatorView(v, epoch, tun)
}

// CurrentValidators returns the validators eligible to produce blocks in the
// current epoch, under the current epoch's governance values.
func (s *Staking) CurrentValidators(env *xenv.Environment) ([]*ValidatorView, error) {
	return s.eligibleSet(env, env.Epoch())
}

// NextValidators returns the validators eligible for the next epoch, under
// the next epoch's governance values.
func (s *Staking) NextValidators(env *xenv.Environment) ([]*ValidatorView, error) {
	return s.eligibleSet(env, env.Epoch()+1)
}

func (s *Staking) eligibleSet(env *xenv.Environment, epoch uint64) ([]*ValidatorView, error) {
	tun, err := env.TunablesAt(epoch)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	var set []*ValidatorView
	err = s.validations.Iter(func(v *validation.Validation) (bool, error) {
		if !v.EligibleAt(epoch, tun.ValidatorThreshold) {
			return true, nil
		}
		view, err := s.validatorView(v, epoch, tun)
		if err != nil {
			return false, err
		}
		set = append(set, view)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// ListValidators pages through the full registry in join order. The result
// always holds exactly the page size, short pages padded with empty views.
func (s *Staking) ListValidators(env *xenv.Environment, epoch uint64, page, perPage uint64) ([]*ValidatorView, error) {
	tun, err := env.TunablesAt(epoch)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	skip, take := normalizePage(page, perPage)

	views := make([]*ValidatorView, 0, take)
	var seen uint64
	err = s.validations.Iter(func(v *validation.Validation) (bool, error) {
		seen++
		if seen <= skip {
			return true, nil
		}
		view, err := s.validatorView(v, epoch, tun)
		if err != nil {
			return false, err
		}
		views = append(views, view)
		return uint64(len(views)) < take, nil
	})
	if err != nil {
		return nil, err
	}
	for uint64(len(views)) < take {
		views = append(views, emptyValidatorView())
	}
	return views, nil
}

// normalizePage applies the paging defaults and cap.
func normalizePage(page, perPage uint64) (skip, take uint64) {
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = meridian.DefaultPerPage
	}
	if perPage > meridian.MaxPerPage {
		perPage = meridian.MaxPerPage
	}
	return (page - 1) * perPage, perPage
}

// ValidatorStakerView is one staker's position with a validator, resolved at
// one epoch.
type ValidatorStakerView struct {
	Staker    meridian.Address `json:"staker"`
	CreatedAt uint64           `json:"createdAt"`
	Stake     *big.Int         `json:"stake"`
	Scheduled *big.Int         `json:"scheduled"`
}

func emptyValidatorStakerView() *ValidatorStakerView {
	return &ValidatorStakerView{Stake: new(big.Int), Scheduled: new(big.Int)}
}

// ListValidatorStakers pages through the delegations of the validator in
// creation order. Stake is the bond effective at the given epoch summed over
// all token kinds, Scheduled the latest recorded bond. Short pages are padded
// with empty views, so an unknown owner yields a full page of padding.
func (s *Staking) ListValidatorStakers(owner meridian.Address, epoch uint64, page, perPage uint64) ([]*ValidatorStakerView, error) {
	skip, take := normalizePage(page, perPage)

	views := make([]*ValidatorStakerView, 0, take)
	var seen uint64
	err := s.delegations.ByValidator(owner, func(d *delegation.Delegation) (bool, error) {
		seen++
		if seen <= skip {
			return true, nil
		}
		view := &ValidatorStakerView{
			Staker:    d.Staker,
			CreatedAt: d.CreatedAt,
			Stake:     new(big.Int),
			Scheduled: new(big.Int),
		}
		for _, kind := range token.StakeableKinds() {
			bond, err := s.delegations.Bond(d.Staker, owner, kind)
			if err != nil {
				return false, err
			}
			if bond.Len() == 0 {
				continue
			}
			if amount, _ := bond.Resolve(epoch); amount != nil {
				view.Stake.Add(view.Stake, amount)
			}
			if latest, ok := bond.Latest(); ok {
				view.Scheduled.Add(view.Scheduled, latest.Value)
			}
		}
		views = append(views, view)
		return uint64(len(views)) < take, nil
	})
	if err != nil {
		return nil, err
	}
	for uint64(len(views)) < take {
		views = append(views, emptyValidatorStakerView())
	}
	return views, nil
}

// BondView is one token kind's bond within a delegation.
type BondView struct {
	Kind      token.Kind `json:"kind"`
	Amount    *big.Int   `json:"amount"`
	Scheduled *big.Int   `json:"scheduled"`
	Pending   *big.Int   `json:"pending"`
}

// UnstakeView is one scheduled withdrawal.
type UnstakeView struct {
	Kind      token.Kind `json:"kind"`
	Amount    *big.Int   `json:"amount"`
	Claimable uint64     `json:"claimable"`
}

// DelegationView is one delegation of the staker.
type DelegationView struct {
	Validator       meridian.Address `json:"validator"`
	CreatedAt       uint64           `json:"createdAt"`
	LastRewardClaim uint64           `json:"lastRewardClaim"`
	Bonds           []*BondView      `json:"bonds"`
	Unstakes        []*UnstakeView   `json:"unstakes,omitempty"`
}

// StakerView is the staker's full position resolved at one epoch.
type StakerView struct {
	Address     meridian.Address  `json:"address"`
	FirstSeen   uint64            `json:"firstSeen"`
	Delegations []*DelegationView `json:"delegations"`
}

// StakerInfo resolves the staker's position at the given epoch. An address
// that never staked yields an empty view.
func (s *Staking) StakerInfo(env *xenv.Environment, staker meridian.Address, epoch uint64) (*StakerView, error) {
	view := &StakerView{Address: staker}
	record, err := s.delegations.GetStaker(staker)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return view, nil
	}
	view.FirstSeen = record.FirstSeen

	err = s.delegations.ByStaker(staker, func(d *delegation.Delegation) (bool, error) {
		dv := &DelegationView{
			Validator:       d.Validator,
			CreatedAt:       d.CreatedAt,
			LastRewardClaim: d.LastRewardClaim,
		}
		for _, kind := range token.StakeableKinds() {
			bond, err := s.delegations.Bond(staker, d.Validator, kind)
			if err != nil {
				return false, err
			}
			if bond.Len() == 0 {
				continue
			}
			amount, _ := bond.Resolve(epoch)
			if amount == nil {
				amount = new(big.Int)
			}
			scheduled := new(big.Int)
			if latest, ok := bond.Latest(); ok {
				scheduled = latest.Value
			}
			pending := new(big.Int).Sub(scheduled, amount)
			if pending.Sign() < 0 {
				pending = new(big.Int)
			}
			dv.Bonds = append(dv.Bonds, &BondView{
				Kind:      kind,
				Amount:    amount,
				Scheduled: scheduled,
				Pending:   pending,
			})
		}
		for _, u := range d.Unstakes {
			dv.Unstakes = append(dv.Unstakes, &UnstakeView{
				Kind:      u.Kind,
				Amount:    u.Amount,
				Claimable: u.Effective,
			})
		}
		view.Delegations = append(view.Delegations, dv)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// RewardTotals sums a validator's accruals over a completed epoch window.
type RewardTotals struct {
	From        uint64   `json:"from"`
	To          uint64   `json:"to"`
	Rewards     *big.Int `json:"rewards"`
	Commissions *big.Int `json:"commissions"`
}

// RewardsOver sums what the validator earned over [from, to], capped at the
// last completed epoch.
func (s *Staking) RewardsOver(env *xenv.Environment, owner meridian.Address, from, to uint64) (*RewardTotals, error) {
	v, err := s.validations.Get(owner)
	if err != nil {
		return nil, err
	}
	from, to = clampWindow(from, to, env.Epoch())
	totals := &RewardTotals{From: from, To: to, Rewards: new(big.Int), Commissions: new(big.Int)}
	if err := s.windowAccruals(env, v, from, to, func(acc *Accrual) error {
		totals.Rewards.Add(totals.Rewards, acc.Reward)
		totals.Commissions.Add(totals.Commissions, acc.Commission)
		return nil
	}); err != nil {
		return nil, err
	}
	return totals, nil
}

// StakerRewardsOver sums the staker's share of the validator's rewards over
// [from, to], capped at the last completed epoch. The result reports the
// effective window and is zero for an address that never delegated.
func (s *Staking) StakerRewardsOver(env *xenv.Environment, staker, validator meridian.Address, from, to uint64) (*ClaimResult, error) {
	v, err := s.validations.Get(validator)
	if err != nil {
		return nil, err
	}
	from, to = clampWindow(from, to, env.Epoch())
	res := &ClaimResult{From: from, To: to, Amount: new(big.Int)}
	if to < from {
		return res, nil
	}
	bonds, err := s.delegations.TotalBondCursor(staker, validator, from, to)
	if err != nil {
		return nil, err
	}
	if err := s.windowAccruals(env, v, from, to, func(acc *Accrual) error {
		distributable := acc.Distributable()
		if distributable.Sign() == 0 {
			return nil
		}
		res.Amount.Add(res.Amount, rewards.StakerShare(distributable, bonds.At(acc.Epoch), acc.TotalStake))
		return nil
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// clampWindow restricts a query window to completed epochs.
func clampWindow(from, to, currentEpoch uint64) (uint64, uint64) {
	if currentEpoch == 0 {
		return 1, 0
	}
	if limit := currentEpoch - 1; to > limit {
		to = limit
	}
	return from, to
}

// EpochDigest returns the sealed outcome digest of the epoch, or the zero
// digest when the epoch was never sealed on this state.
func (s *Staking) EpochDigest(epoch uint64) (meridian.Bytes32, error) {
	digest, err := s.digests.Get(epochKey(epoch))
	if err != nil {
		return meridian.Bytes32{}, reverts.Upstream(err)
	}
	return digest, nil
}

// Totals returns the engine-wide counters resolved at the epoch.
func (s *Staking) Totals(epoch uint64) (*globalstats.Totals, error) {
	totals, err := s.stats.Totals(epoch)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	return totals, nil
}

// Validation returns the raw stored record of the validator, with its full
// histories, or nil when the owner never joined.
func (s *Staking) Validation(owner meridian.Address) (*validation.Validation, error) {
	return s.validations.Lookup(owner)
}

// Delegation returns the raw stored record of the (staker, validator) pair,
// or nil when the pair never staked.
func (s *Staking) Delegation(staker, validator meridian.Address) (*delegation.Delegation, error) {
	return s.delegations.Get(staker, validator)
}
