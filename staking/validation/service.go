// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validation

import (
	"math/big"
	"sort"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking/reverts"
	"github.com/meridianchain/meridian/state"
)

// SlashResult reports the outcome of recording slashes.
type SlashResult struct {
	Slashes uint64 // cumulative slashes of the epoch
	Jailed  bool   // whether this recording imposed a new jail
	Until   uint64 // jailed-until epoch, when Jailed
}

// Service implements the validator state machine on top of the repository.
type Service struct {
	repo *Repository
}

func New(ctx *state.Context) *Service {
	return &Service{repo: NewRepository(ctx)}
}

// Repo exposes the underlying repository for read paths.
func (s *Service) Repo() *Repository {
	return s.repo
}

// Get loads a record, failing with NotFound when the owner never joined.
func (s *Service) Get(owner meridian.Address) (*Validation, error) {
	v, err := s.repo.Get(owner)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	if v == nil {
		return nil, reverts.NotFound("validator %v", owner)
	}
	return v, nil
}

// Lookup loads a record, returning nil when absent.
func (s *Service) Lookup(owner meridian.Address) (*Validation, error) {
	v, err := s.repo.Get(owner)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	return v, nil
}

// ByOperator resolves the validator currently bound to the operator address.
func (s *Service) ByOperator(operator meridian.Address) (*Validation, error) {
	owner, err := s.repo.OwnerByOperator(operator)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	if owner == nil {
		return nil, reverts.NotFound("operator %v", operator)
	}
	return s.Get(*owner)
}

// Join registers the owner as a validator, or re-binds the operator when the
// owner already joined. Records are created active with no history entry.
// The operator address must not be bound to another validator.
func (s *Service) Join(owner, operator meridian.Address, identity meridian.Bytes32, currentEpoch uint64) (bool, error) {
	if err := s.checkOperatorFree(operator, owner); err != nil {
		return false, err
	}
	existing, err := s.repo.Get(owner)
	if err != nil {
		return false, reverts.Upstream(err)
	}
	if existing != nil {
		prev := existing.Operator
		existing.Operator = operator
		if err := s.repo.Update(owner, existing); err != nil {
			return false, reverts.Upstream(err)
		}
		if err := s.repo.MapOperator(operator, owner, &prev); err != nil {
			return false, reverts.Upstream(err)
		}
		return false, nil
	}

	v := newValidation(owner, operator, identity, currentEpoch)
	if err := s.repo.Register(v); err != nil {
		return false, reverts.Upstream(err)
	}
	if err := s.repo.MapOperator(operator, owner, nil); err != nil {
		return false, reverts.Upstream(err)
	}
	return true, nil
}

// UpdateOperator re-binds the block production identity of the validator.
// The operator address must not be bound to another validator.
func (s *Service) UpdateOperator(owner, operator meridian.Address) error {
	if err := s.checkOperatorFree(operator, owner); err != nil {
		return err
	}
	v, err := s.Get(owner)
	if err != nil {
		return err
	}
	prev := v.Operator
	v.Operator = operator
	if err := s.repo.Update(owner, v); err != nil {
		return reverts.Upstream(err)
	}
	if err := s.repo.MapOperator(operator, owner, &prev); err != nil {
		return reverts.Upstream(err)
	}
	return nil
}

// checkOperatorFree rejects binding an operator address that another
// validator already uses, which would divert its block attribution.
func (s *Service) checkOperatorFree(operator, owner meridian.Address) error {
	bound, err := s.repo.OwnerByOperator(operator)
	if err != nil {
		return reverts.Upstream(err)
	}
	if bound != nil && *bound != owner {
		return reverts.Unauthorized("operator %v is bound to validator %v", operator, *bound)
	}
	return nil
}

// ScheduleStatus records status transitions for the listed epochs.
// Every epoch must be at or after the current one.
func (s *Service) ScheduleStatus(owner meridian.Address, status Status, epochs []uint64, currentEpoch uint64) error {
	if len(epochs) == 0 {
		return reverts.InvalidAmount("no epochs listed")
	}
	v, err := s.Get(owner)
	if err != nil {
		return err
	}

	sorted := make([]uint64, len(epochs))
	copy(sorted, epochs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, epoch := range sorted {
		if epoch < currentEpoch {
			return reverts.InvalidTiming("epoch %d is in the past", epoch)
		}
		if err := v.StatusHistory.Update(epoch, status); err != nil {
			return err
		}
	}
	if err := s.repo.Update(owner, v); err != nil {
		return reverts.Upstream(err)
	}
	return nil
}

// ScheduleCommission records a commission rate change taking effect at the
// given epoch. Rates above the cap are rejected, a zero cap means no cap.
func (s *Service) ScheduleCommission(owner meridian.Address, rate uint32, effectiveEpoch uint64, cap uint32) error {
	if rate > meridian.BpsDenom {
		return reverts.InvalidAmount("rate %d exceeds %d basis points", rate, meridian.BpsDenom)
	}
	if cap > 0 && rate > cap {
		return reverts.InvalidAmount("rate %d exceeds cap %d", rate, cap)
	}
	v, err := s.Get(owner)
	if err != nil {
		return err
	}
	if err := v.CommissionHistory.Update(effectiveEpoch, rate); err != nil {
		return err
	}
	if err := s.repo.Update(owner, v); err != nil {
		return reverts.Upstream(err)
	}
	return nil
}

// AdjustStake moves the total effective stake of the validator by delta,
// taking effect at the given epoch.
func (s *Service) AdjustStake(owner meridian.Address, effectiveEpoch uint64, delta *big.Int) (*big.Int, error) {
	v, err := s.Get(owner)
	if err != nil {
		return nil, err
	}
	next := new(big.Int).Add(v.ScheduledStake(), delta)
	if next.Sign() < 0 {
		return nil, reverts.InvalidAmount("stake decrease exceeds scheduled stake")
	}
	if err := v.StakeHistory.Update(effectiveEpoch, next); err != nil {
		return nil, err
	}
	if err := s.repo.Update(owner, v); err != nil {
		return nil, reverts.Upstream(err)
	}
	return next, nil
}

// RecordBlock counts a produced block against the epoch tally of the validator.
func (s *Service) RecordBlock(owner meridian.Address, epoch uint64) (*Tally, error) {
	tally, err := s.repo.AddBlocks(owner, epoch, 1)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	return tally, nil
}

// RecordSlash counts blockCount slashes against the epoch tally. When the
// cumulative count of the epoch crosses the threshold, the validator is
// jailed until epoch+jailPeriod. A zero threshold never jails.
func (s *Service) RecordSlash(owner meridian.Address, blockCount uint64, epoch uint64, threshold, jailPeriod uint64) (*SlashResult, error) {
	v, err := s.Get(owner)
	if err != nil {
		return nil, err
	}
	tally, err := s.repo.AddSlashes(owner, epoch, blockCount)
	if err != nil {
		return nil, reverts.Upstream(err)
	}

	result := &SlashResult{Slashes: tally.Slashes}
	if threshold > 0 && tally.Slashes >= threshold && tally.Slashes-blockCount < threshold {
		until := epoch + jailPeriod
		if err := v.JailHistory.Update(epoch, until); err != nil {
			return nil, err
		}
		if err := s.repo.Update(owner, v); err != nil {
			return nil, reverts.Upstream(err)
		}
		result.Jailed = true
		result.Until = until
	}
	return result, nil
}

// SetCommissionClaim advances the commission watermark of the validator.
func (s *Service) SetCommissionClaim(owner meridian.Address, epoch uint64) error {
	v, err := s.Get(owner)
	if err != nil {
		return err
	}
	v.LastCommissionClaim = epoch
	if err := s.repo.Update(owner, v); err != nil {
		return reverts.Upstream(err)
	}
	return nil
}

// Count returns the number of registered validators.
func (s *Service) Count() (uint64, error) {
	count, err := s.repo.Count()
	if err != nil {
		return 0, reverts.Upstream(err)
	}
	return count, nil
}

// Iter walks all validator records in join order.
func (s *Service) Iter(cb func(v *Validation) (bool, error)) error {
	return s.repo.Iter(cb)
}
