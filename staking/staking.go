// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking implements the validator staking engine: validator and
// staker operations, reward accounting and epoch housekeeping.
//
// Every mutation is atomic. Writes go through a state checkpoint and are
// rolled back together with the operation's events when any step fails.
// Mutations are rejected on the last block of an epoch; that slot is
// reserved for sealing.
package staking

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strconv"

	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/log"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking/delegation"
	"github.com/meridianchain/meridian/staking/globalstats"
	"github.com/meridianchain/meridian/staking/reverts"
	"github.com/meridianchain/meridian/staking/rewards"
	"github.com/meridianchain/meridian/staking/validation"
	"github.com/meridianchain/meridian/state"
	"github.com/meridianchain/meridian/token"
	"github.com/meridianchain/meridian/xenv"
)

var logger = log.WithContext("pkg", "staking")

// SetLogger overrides the package logger.
func SetLogger(l log.Logger) {
	logger = l
}

var slotEpochDigests = meridian.BytesToBytes32([]byte("epoch-digests"))

// AllowList gates validator admission and names the listed candidates.
type AllowList interface {
	Get(candidate meridian.Address) (listed bool, identity meridian.Bytes32, since uint64, err error)
}

// Ledger moves staked funds and mints receipts and rewards. Pull and Push
// move value between a holder and the staking pool and fail when the payer
// cannot cover the amount; such declines surface as upstream failures.
type Ledger interface {
	Pull(kind token.Kind, from meridian.Address, amount *big.Int) error
	Push(kind token.Kind, to meridian.Address, amount *big.Int) error
	Mint(kind token.Kind, addr meridian.Address, amount *big.Int) error
	Burn(kind token.Kind, addr meridian.Address, amount *big.Int) (bool, error)
}

// ClaimResult reports the epoch window a claim settled and the amount paid.
// The window is empty when To < From.
type ClaimResult struct {
	From   uint64   `json:"from"`
	To     uint64   `json:"to"`
	Amount *big.Int `json:"amount"`
}

type epochKey uint64

func (k epochKey) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}

// Staking is the engine facade. One instance operates on one state; the
// embedded event journal makes it single-writer by construction.
type Staking struct {
	state       *state.State
	allowList   AllowList
	ledger      Ledger
	validations *validation.Service
	delegations *delegation.Service
	stats       *globalstats.Service
	uptimeFn    rewards.UptimeFn
	digests     *state.Mapping[epochKey, meridian.Bytes32]

	events []*Event
}

// New creates the engine over the state, storing under addr. A nil uptimeFn
// selects rewards.DefaultUptime.
func New(addr meridian.Address, st *state.State, allowList AllowList, ledger Ledger, uptimeFn rewards.UptimeFn) *Staking {
	ctx := state.NewContext(addr, st)
	if uptimeFn == nil {
		uptimeFn = rewards.DefaultUptime
	}
	return &Staking{
		state:       st,
		allowList:   allowList,
		ledger:      ledger,
		validations: validation.New(ctx),
		delegations: delegation.New(ctx),
		stats:       globalstats.New(ctx),
		uptimeFn:    uptimeFn,
		digests:     state.NewMapping[epochKey, meridian.Bytes32](ctx, slotEpochDigests),
	}
}

// mutate runs fn atomically and rejects mutations on the last block of an
// epoch. On failure every state write and event of fn is rolled back.
func (s *Staking) mutate(env *xenv.Environment, op string, fn func() error) error {
	if env.IsLastBlockOfEpoch() {
		return reverts.InvalidTiming("staking is closed on the last block of epoch %d", env.Epoch())
	}
	cp := s.state.NewCheckpoint()
	mark := len(s.events)
	if err := fn(); err != nil {
		s.state.RevertTo(cp)
		s.events = s.events[:mark]
		logger.Info(op+" failed", "error", err)
		return err
	}
	return nil
}

//
// Validator operations
//

// Join admits the owner as a validator, or re-binds the operator when the
// owner already joined. Admission requires the owner on the allow-list; the
// record takes the identity of the allow-list entry.
func (s *Staking) Join(env *xenv.Environment, owner, operator meridian.Address) error {
	logger.Debug("joining", "owner", owner, "operator", operator)

	return s.mutate(env, "join", func() error {
		listed, identity, _, err := s.allowList.Get(owner)
		if err != nil {
			return reverts.Upstream(err)
		}
		if !listed {
			return reverts.Unauthorized("owner %v is not allow-listed", owner)
		}
		created, err := s.validations.Join(owner, operator, identity, env.Epoch())
		if err != nil {
			return err
		}
		s.emit(env, EventValidatorJoined, owner, map[string]string{
			"operator": operator.String(),
			"created":  strconv.FormatBool(created),
		})
		logger.Info("validator joined", "owner", owner, "operator", operator, "created", created)
		return nil
	})
}

// UpdateOperator re-binds the block production address of the validator.
// Only the owner may call it.
func (s *Staking) UpdateOperator(env *xenv.Environment, owner, operator meridian.Address) error {
	logger.Debug("updating operator", "owner", owner, "operator", operator)

	return s.mutate(env, "update operator", func() error {
		if err := s.validations.UpdateOperator(owner, operator); err != nil {
			return err
		}
		s.emit(env, EventOperatorUpdated, owner, map[string]string{
			"operator": operator.String(),
		})
		logger.Info("operator updated", "owner", owner, "operator", operator)
		return nil
	})
}

// Activate schedules the validator active for the listed epochs.
func (s *Staking) Activate(env *xenv.Environment, caller, owner meridian.Address, epochs []uint64) error {
	return s.scheduleStatus(env, "activate", validation.StatusActive, caller, owner, epochs)
}

// Deactivate schedules the validator inactive for the listed epochs.
func (s *Staking) Deactivate(env *xenv.Environment, caller, owner meridian.Address, epochs []uint64) error {
	return s.scheduleStatus(env, "deactivate", validation.StatusInactive, caller, owner, epochs)
}

func (s *Staking) scheduleStatus(env *xenv.Environment, op string, status validation.Status, caller, owner meridian.Address, epochs []uint64) error {
	logger.Debug(op, "caller", caller, "owner", owner, "epochs", epochs)

	return s.mutate(env, op, func() error {
		v, err := s.validations.Get(owner)
		if err != nil {
			return err
		}
		if caller != v.Owner && caller != v.Operator {
			return reverts.Unauthorized("%v is neither owner nor operator of %v", caller, owner)
		}
		if err := s.validations.ScheduleStatus(owner, status, epochs, env.Epoch()); err != nil {
			return err
		}
		s.emit(env, EventStatusScheduled, caller, map[string]string{
			"owner":  owner.String(),
			"status": validation.StatusName(status),
			"epochs": fmt.Sprint(epochs),
		})
		logger.Info("status scheduled", "owner", owner, "status", validation.StatusName(status), "epochs", epochs)
		return nil
	})
}

// UpdateCommissionRate schedules a new commission rate. The caller must be
// the owner or the operator. The change takes effect after the configured
// delay, at least one full epoch away, and the effective epoch is returned.
func (s *Staking) UpdateCommissionRate(env *xenv.Environment, caller, owner meridian.Address, rateBps uint32) (uint64, error) {
	logger.Debug("updating commission", "caller", caller, "owner", owner, "rate", rateBps)

	var effective uint64
	err := s.mutate(env, "update commission", func() error {
		v, err := s.validations.Get(owner)
		if err != nil {
			return err
		}
		if caller != v.Owner && caller != v.Operator {
			return reverts.Unauthorized("%v is neither owner nor operator of %v", caller, owner)
		}
		tun, err := env.TunablesAt(env.Epoch())
		if err != nil {
			return reverts.Upstream(err)
		}
		effective = env.Epoch() + max(tun.CommissionDelay, 1)
		capTun, err := env.TunablesAt(effective)
		if err != nil {
			return reverts.Upstream(err)
		}
		if err := s.validations.ScheduleCommission(owner, rateBps, effective, capTun.MaxCommission); err != nil {
			return err
		}
		s.emit(env, EventCommissionScheduled, owner, map[string]string{
			"rate":      strconv.FormatUint(uint64(rateBps), 10),
			"effective": strconv.FormatUint(effective, 10),
		})
		logger.Info("commission scheduled", "owner", owner, "rate", rateBps, "effective", effective)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return effective, nil
}

// Slash records blockCount faults against the operator's validator within
// the current epoch. Only the signer of the block being processed may
// report. Crossing the jail threshold jails the validator.
func (s *Staking) Slash(env *xenv.Environment, caller, operator meridian.Address, blockCount uint64) (*validation.SlashResult, error) {
	logger.Debug("slashing", "caller", caller, "operator", operator, "blocks", blockCount)

	var res *validation.SlashResult
	err := s.mutate(env, "slash", func() error {
		if caller != env.BlockContext().Signer {
			return reverts.Unauthorized("%v is not the signer of block %d", caller, env.BlockContext().Number)
		}
		if blockCount == 0 {
			return reverts.InvalidAmount("slash block count must be positive")
		}
		v, err := s.validations.ByOperator(operator)
		if err != nil {
			return err
		}
		epoch := env.Epoch()
		tun, err := env.TunablesAt(epoch)
		if err != nil {
			return reverts.Upstream(err)
		}
		res, err = s.validations.RecordSlash(v.Owner, blockCount, epoch, tun.SlashJailThreshold, tun.JailPeriod)
		if err != nil {
			return err
		}
		s.emit(env, EventSlashed, caller, map[string]string{
			"owner":    v.Owner.String(),
			"operator": operator.String(),
			"blocks":   strconv.FormatUint(blockCount, 10),
			"slashes":  strconv.FormatUint(res.Slashes, 10),
		})
		if res.Jailed {
			s.emit(env, EventJailed, v.Owner, map[string]string{
				"until": strconv.FormatUint(res.Until, 10),
			})
			logger.Warn("validator jailed", "owner", v.Owner, "until", res.Until)
		}
		logger.Info("slashed", "owner", v.Owner, "slashes", res.Slashes, "jailed", res.Jailed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

//
// Staker operations
//

// Stake bonds amount of kind to the validator. Funds move to the staking
// pool, a receipt of the same amount is minted, and the bond takes effect
// next epoch.
func (s *Staking) Stake(env *xenv.Environment, staker, validator meridian.Address, kind token.Kind, amount *big.Int) error {
	logger.Debug("staking", "staker", staker, "validator", validator, "kind", kind, "amount", amount)

	return s.mutate(env, "stake", func() error {
		if !kind.IsStakeable() {
			return reverts.InvalidAmount("token kind %v cannot be staked", kind)
		}
		if amount == nil || amount.Sign() <= 0 {
			return reverts.InvalidAmount("stake amount must be positive")
		}
		v, err := s.validations.Get(validator)
		if err != nil {
			return err
		}

		if err := s.ledger.Pull(kind, staker, amount); err != nil {
			return reverts.Upstream(err)
		}
		if err := s.ledger.Mint(token.SMER, staker, amount); err != nil {
			return reverts.Upstream(err)
		}

		epoch := env.Epoch()
		d, err := s.delegations.GetOrCreate(staker, v.Owner, epoch)
		if err != nil {
			return err
		}
		if _, err := s.delegations.ScheduleStake(d, kind, amount, epoch+1); err != nil {
			return err
		}
		if _, err := s.validations.AdjustStake(v.Owner, epoch+1, amount); err != nil {
			return err
		}
		if err := s.stats.AddStake(epoch+1, amount); err != nil {
			return reverts.Upstream(err)
		}

		s.emit(env, EventStaked, staker, map[string]string{
			"validator": v.Owner.String(),
			"kind":      kind.String(),
			"amount":    amount.String(),
		})
		logger.Info("staked", "staker", staker, "validator", v.Owner, "kind", kind, "amount", amount)
		return nil
	})
}

// Unstake schedules a withdrawal of amount of kind from the validator,
// effective next epoch. The removed amount is capped at the removable stake
// and returned; it is zero when nothing is removable.
func (s *Staking) Unstake(env *xenv.Environment, staker, validator meridian.Address, kind token.Kind, amount *big.Int) (*big.Int, error) {
	logger.Debug("unstaking", "staker", staker, "validator", validator, "kind", kind, "amount", amount)

	removed := new(big.Int)
	err := s.mutate(env, "unstake", func() error {
		if !kind.IsStakeable() {
			return reverts.InvalidAmount("token kind %v cannot be staked", kind)
		}
		if amount == nil || amount.Sign() <= 0 {
			return reverts.InvalidAmount("unstake amount must be positive")
		}
		d, err := s.delegations.Get(staker, validator)
		if err != nil {
			return err
		}
		if d == nil {
			return reverts.NotFound("delegation of %v to %v", staker, validator)
		}

		epoch := env.Epoch()
		removed, err = s.delegations.ScheduleUnstake(d, kind, amount, epoch)
		if err != nil {
			return err
		}
		if removed.Sign() == 0 {
			return nil
		}
		if _, err := s.validations.AdjustStake(validator, epoch+1, new(big.Int).Neg(removed)); err != nil {
			return err
		}
		if err := s.stats.RemoveStake(epoch+1, removed); err != nil {
			return reverts.Upstream(err)
		}
		if err := s.stats.AddUnstaking(removed); err != nil {
			return reverts.Upstream(err)
		}

		s.emit(env, EventUnstaked, staker, map[string]string{
			"validator": validator.String(),
			"kind":      kind.String(),
			"amount":    removed.String(),
			"claimable": strconv.FormatUint(epoch+1, 10),
		})
		logger.Info("unstaked", "staker", staker, "validator", validator, "kind", kind, "amount", removed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// ClaimUnstakes pays out every scheduled withdrawal of the staker that has
// reached its effective epoch, across all delegations. Receipts of the paid
// total are burned.
func (s *Staking) ClaimUnstakes(env *xenv.Environment, staker meridian.Address) ([]*delegation.Settled, error) {
	logger.Debug("claiming unstakes", "staker", staker)

	var settled []*delegation.Settled
	err := s.mutate(env, "claim unstakes", func() error {
		var err error
		settled, err = s.delegations.SettleUnstakes(staker, env.Epoch())
		if err != nil {
			return err
		}
		if len(settled) == 0 {
			return nil
		}

		total := new(big.Int)
		for _, u := range settled {
			if err := s.ledger.Push(u.Kind, staker, u.Amount); err != nil {
				return reverts.Upstream(err)
			}
			total.Add(total, u.Amount)
		}
		ok, err := s.ledger.Burn(token.SMER, staker, total)
		if err != nil {
			return reverts.Upstream(err)
		}
		if !ok {
			return reverts.Upstream(errors.Errorf("%v receipts of %v do not cover the payout", token.SMER, staker))
		}
		if err := s.stats.SubUnstaking(total); err != nil {
			return reverts.Upstream(err)
		}

		s.emit(env, EventUnstakesClaimed, staker, map[string]string{
			"count": strconv.Itoa(len(settled)),
			"total": total.String(),
		})
		logger.Info("unstakes claimed", "staker", staker, "count", len(settled), "total", total)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// ClaimRewards settles the staker's rewards from the validator for up to
// count epochs past the claim watermark, covering completed epochs only.
// The payout is minted to the staker. Claiming an empty window succeeds
// with a zero amount.
func (s *Staking) ClaimRewards(env *xenv.Environment, staker, validator meridian.Address, count uint64) (*ClaimResult, error) {
	logger.Debug("claiming rewards", "staker", staker, "validator", validator, "count", count)

	var res *ClaimResult
	err := s.mutate(env, "claim rewards", func() error {
		v, err := s.validations.Get(validator)
		if err != nil {
			return err
		}
		d, err := s.delegations.Get(staker, validator)
		if err != nil {
			return err
		}
		if d == nil {
			return reverts.NotFound("delegation of %v to %v", staker, validator)
		}

		from, to := claimWindow(d.LastRewardClaim, count, env.Epoch())
		res = &ClaimResult{From: from, To: to, Amount: new(big.Int)}
		if to < from {
			return nil
		}

		bonds, err := s.delegations.TotalBondCursor(staker, validator, from, to)
		if err != nil {
			return err
		}
		err = s.windowAccruals(env, v, from, to, func(acc *Accrual) error {
			distributable := acc.Distributable()
			if distributable.Sign() == 0 {
				return nil
			}
			res.Amount.Add(res.Amount, rewards.StakerShare(distributable, bonds.At(acc.Epoch), acc.TotalStake))
			return nil
		})
		if err != nil {
			return err
		}

		d.LastRewardClaim = to
		if err := s.delegations.Update(d); err != nil {
			return err
		}
		if res.Amount.Sign() > 0 {
			if err := s.ledger.Mint(token.WMER, staker, res.Amount); err != nil {
				return reverts.Upstream(err)
			}
			if err := s.stats.AddRewardsPaid(res.Amount); err != nil {
				return reverts.Upstream(err)
			}
		}

		s.emit(env, EventRewardsClaimed, staker, map[string]string{
			"validator": validator.String(),
			"from":      strconv.FormatUint(from, 10),
			"to":        strconv.FormatUint(to, 10),
			"amount":    res.Amount.String(),
		})
		logger.Info("rewards claimed", "staker", staker, "validator", validator, "from", from, "to", to, "amount", res.Amount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ClaimCommissions settles the validator's commissions for up to count
// epochs past the claim watermark, covering completed epochs only. The
// payout is minted to the owner.
func (s *Staking) ClaimCommissions(env *xenv.Environment, owner meridian.Address, count uint64) (*ClaimResult, error) {
	logger.Debug("claiming commissions", "owner", owner, "count", count)

	var res *ClaimResult
	err := s.mutate(env, "claim commissions", func() error {
		v, err := s.validations.Get(owner)
		if err != nil {
			return err
		}

		from, to := claimWindow(v.LastCommissionClaim, count, env.Epoch())
		res = &ClaimResult{From: from, To: to, Amount: new(big.Int)}
		if to < from {
			return nil
		}

		err = s.windowAccruals(env, v, from, to, func(acc *Accrual) error {
			res.Amount.Add(res.Amount, acc.Commission)
			return nil
		})
		if err != nil {
			return err
		}

		if err := s.validations.SetCommissionClaim(owner, to); err != nil {
			return err
		}
		if res.Amount.Sign() > 0 {
			if err := s.ledger.Mint(token.WMER, owner, res.Amount); err != nil {
				return reverts.Upstream(err)
			}
			if err := s.stats.AddCommissionsPaid(res.Amount); err != nil {
				return reverts.Upstream(err)
			}
		}

		s.emit(env, EventCommissionsClaimed, owner, map[string]string{
			"from":   strconv.FormatUint(from, 10),
			"to":     strconv.FormatUint(to, 10),
			"amount": res.Amount.String(),
		})
		logger.Info("commissions claimed", "owner", owner, "from", from, "to", to, "amount", res.Amount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// claimWindow derives the epoch range a claim settles: it advances the
// watermark by at most count epochs and only ever covers completed epochs.
// The range is empty when to < from.
func claimWindow(watermark, count, currentEpoch uint64) (from, to uint64) {
	from = watermark + 1
	to = watermark + count
	if to < watermark { // overflow
		to = ^uint64(0)
	}
	if currentEpoch == 0 {
		return from, 0
	}
	if limit := currentEpoch - 1; to > limit {
		to = limit
	}
	return from, to
}

// Accrual is the reward outcome of one validator for one epoch.
type Accrual struct {
	Epoch      uint64
	Reward     *big.Int
	Commission *big.Int
	TotalStake *big.Int
	Uptime     rewards.Uptime
	Eligible   bool
}

// Distributable returns the part of the reward shared among stakers.
func (a *Accrual) Distributable() *big.Int {
	return new(big.Int).Sub(a.Reward, a.Commission)
}

// windowAccruals streams the validator's accrual for every epoch of
// [from, to] in ascending order. The record's histories advance as spans in
// one pass; only the per-epoch production tallies are point reads. The
// accrual passed to fn is reused between epochs.
func (s *Staking) windowAccruals(env *xenv.Environment, v *validation.Validation, from, to uint64, fn func(acc *Accrual) error) error {
	var (
		acc      Accrual
		sweepErr error
	)
	v.WalkWindow(from, to, func(st *validation.EpochState) bool {
		tun, err := env.TunablesAt(st.Epoch)
		if err != nil {
			sweepErr = reverts.Upstream(err)
			return false
		}
		acc = Accrual{
			Epoch:      st.Epoch,
			Reward:     new(big.Int),
			Commission: new(big.Int),
			TotalStake: st.Stake,
		}
		if st.Eligible(tun.ValidatorThreshold) {
			acc.Eligible = true
			tally, err := s.validations.Repo().GetTally(v.Owner, st.Epoch)
			if err != nil {
				sweepErr = reverts.Upstream(err)
				return false
			}
			acc.Uptime = s.uptimeFn(tally.Blocks, tally.Slashes, tun)
			acc.Reward = rewards.ValidatorReward(acc.TotalStake, tun.RewardRate, acc.Uptime)
			acc.Commission = rewards.Commission(acc.Reward, st.Commission)
		}
		if err := fn(&acc); err != nil {
			sweepErr = err
			return false
		}
		return true
	})
	return sweepErr
}

// epochAccrual computes what the validator earned in the epoch. Ineligible
// epochs accrue nothing.
func (s *Staking) epochAccrual(env *xenv.Environment, v *validation.Validation, epoch uint64) (*Accrual, error) {
	acc := &Accrual{Epoch: epoch, Reward: new(big.Int), Commission: new(big.Int), TotalStake: new(big.Int)}
	if err := s.windowAccruals(env, v, epoch, epoch, func(a *Accrual) error {
		*acc = *a
		return nil
	}); err != nil {
		return nil, err
	}
	return acc, nil
}
