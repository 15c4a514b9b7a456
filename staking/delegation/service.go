// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking/history"
	"github.com/meridianchain/meridian/staking/reverts"
	"github.com/meridianchain/meridian/state"
	"github.com/meridianchain/meridian/token"
)

// Settled is a pending withdrawal paid out by a claim.
type Settled struct {
	Validator meridian.Address
	Kind      token.Kind
	Amount    *big.Int
}

// Service implements delegation bookkeeping on top of the storage. Each
// delegation is threaded into two lists, one per validator and one per
// staker, both in creation order.
type Service struct {
	storage *Storage
}

func New(ctx *state.Context) *Service {
	return &Service{storage: NewStorage(ctx)}
}

// Get returns the delegation of the pair, nil when none exists.
func (s *Service) Get(staker, validator meridian.Address) (*Delegation, error) {
	d, err := s.storage.getDelegation(ID(staker, validator))
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	return d, nil
}

// GetByID returns the delegation with the identifier, nil when none exists.
func (s *Service) GetByID(id meridian.Bytes32) (*Delegation, error) {
	d, err := s.storage.getDelegation(id)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	return d, nil
}

// Update stores back a loaded record.
func (s *Service) Update(d *Delegation) error {
	if err := s.storage.setDelegation(d.ID(), d); err != nil {
		return reverts.Upstream(err)
	}
	return nil
}

// GetStaker returns the aggregate record of the address, nil when the
// address never staked.
func (s *Service) GetStaker(addr meridian.Address) (*Staker, error) {
	staker, err := s.storage.getStaker(addr)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	return staker, nil
}

// GetOrCreate loads the delegation of the pair, creating and threading a new
// record at the epoch when none exists.
func (s *Service) GetOrCreate(staker, validator meridian.Address, epoch uint64) (*Delegation, error) {
	id := ID(staker, validator)
	d, err := s.storage.getDelegation(id)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	if d != nil {
		return d, nil
	}

	d = &Delegation{
		Staker:          staker,
		Validator:       validator,
		CreatedAt:       epoch,
		LastRewardClaim: epoch,
	}
	if err := s.threadValidator(id, d); err != nil {
		return nil, reverts.Upstream(err)
	}
	if err := s.threadStaker(id, d, epoch); err != nil {
		return nil, reverts.Upstream(err)
	}
	if err := s.storage.setDelegation(id, d); err != nil {
		return nil, reverts.Upstream(err)
	}
	return d, nil
}

func (s *Service) threadValidator(id meridian.Bytes32, d *Delegation) error {
	meta, err := s.storage.getValidatorList(d.Validator)
	if err != nil {
		return err
	}
	if meta.Tail == nil {
		headID := id
		meta.Head = &headID
	} else {
		tail, err := s.storage.getDelegation(*meta.Tail)
		if err != nil {
			return err
		}
		if tail == nil {
			return errors.New("delegation list tail missing")
		}
		nextID := id
		tail.VNext = &nextID
		if err := s.storage.setDelegation(*meta.Tail, tail); err != nil {
			return err
		}
		d.VPrev = meta.Tail
	}
	tailID := id
	meta.Tail = &tailID
	meta.Count++
	return s.storage.setValidatorList(d.Validator, meta)
}

func (s *Service) threadStaker(id meridian.Bytes32, d *Delegation, epoch uint64) error {
	staker, err := s.storage.getStaker(d.Staker)
	if err != nil {
		return err
	}
	if staker == nil {
		staker = &Staker{FirstSeen: epoch}
	}
	if staker.Tail == nil {
		headID := id
		staker.Head = &headID
	} else {
		tail, err := s.storage.getDelegation(*staker.Tail)
		if err != nil {
			return err
		}
		if tail == nil {
			return errors.New("staker list tail missing")
		}
		nextID := id
		tail.SNext = &nextID
		if err := s.storage.setDelegation(*staker.Tail, tail); err != nil {
			return err
		}
		d.SPrev = staker.Tail
	}
	tailID := id
	staker.Tail = &tailID
	staker.Count++
	return s.storage.setStaker(d.Staker, staker)
}

// Bond returns the bond history of the pair for the kind. The history is
// empty when nothing was ever staked.
func (s *Service) Bond(staker, validator meridian.Address, kind token.Kind) (*history.History[*big.Int], error) {
	bond, err := s.storage.getBond(ID(staker, validator), kind)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	return bond, nil
}

// BondAt resolves the amount of the kind bonded at the epoch.
func (s *Service) BondAt(staker, validator meridian.Address, kind token.Kind, epoch uint64) (*big.Int, error) {
	bond, err := s.Bond(staker, validator, kind)
	if err != nil {
		return nil, err
	}
	if val, ok := bond.Resolve(epoch); ok {
		return val, nil
	}
	return new(big.Int), nil
}

// TotalBondAt resolves the stake of the pair at the epoch, summed over all
// stakeable kinds.
func (s *Service) TotalBondAt(staker, validator meridian.Address, epoch uint64) (*big.Int, error) {
	total := new(big.Int)
	for _, kind := range token.StakeableKinds() {
		val, err := s.BondAt(staker, validator, kind, epoch)
		if err != nil {
			return nil, err
		}
		total.Add(total, val)
	}
	return total, nil
}

// TotalBondCursor returns a cursor resolving the pair's total stake over
// [from, to], loading and walking each kind's bond history once. Reward
// windows read it epoch by epoch.
func (s *Service) TotalBondCursor(staker, validator meridian.Address, from, to uint64) (*TotalBondCursor, error) {
	id := ID(staker, validator)
	kinds := token.StakeableKinds()
	cursors := make([]*history.Cursor[*big.Int], 0, len(kinds))
	for _, kind := range kinds {
		bond, err := s.storage.getBond(id, kind)
		if err != nil {
			return nil, reverts.Upstream(err)
		}
		cursors = append(cursors, bond.Cursor(from, to))
	}
	return &TotalBondCursor{cursors: cursors, total: new(big.Int)}, nil
}

// TotalBondCursor sums a delegation's per-kind bonds epoch by epoch.
type TotalBondCursor struct {
	cursors []*history.Cursor[*big.Int]
	total   *big.Int
}

// At returns the total stake bonded at the epoch. Epochs must not decrease
// between calls, and the returned value is reused between them.
func (c *TotalBondCursor) At(epoch uint64) *big.Int {
	c.total.SetUint64(0)
	for _, cur := range c.cursors {
		if val, ok := cur.At(epoch); ok {
			c.total.Add(c.total, val)
		}
	}
	return c.total
}

// ScheduleStake raises the bond of the kind, taking effect at the epoch.
// It returns the updated scheduled amount.
func (s *Service) ScheduleStake(d *Delegation, kind token.Kind, amount *big.Int, effective uint64) (*big.Int, error) {
	id := d.ID()
	bond, err := s.storage.getBond(id, kind)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	scheduled := new(big.Int)
	if latest, ok := bond.Latest(); ok {
		scheduled.Set(latest.Value)
	}
	scheduled.Add(scheduled, amount)
	if err := bond.Update(effective, scheduled); err != nil {
		return nil, err
	}
	if err := s.storage.setBond(id, kind, bond); err != nil {
		return nil, reverts.Upstream(err)
	}
	return scheduled, nil
}

// ScheduleUnstake lowers the bond of the kind from the epoch after current.
// The removable amount is capped at the stake both effective and still
// scheduled, never going negative. The removed amount is queued for
// withdrawal and returned; it is zero when nothing is removable.
func (s *Service) ScheduleUnstake(d *Delegation, kind token.Kind, amount *big.Int, currentEpoch uint64) (*big.Int, error) {
	id := d.ID()
	bond, err := s.storage.getBond(id, kind)
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	effective := new(big.Int)
	if val, ok := bond.Resolve(currentEpoch); ok {
		effective.Set(val)
	}
	scheduled := new(big.Int)
	if latest, ok := bond.Latest(); ok {
		scheduled.Set(latest.Value)
	}

	removed := new(big.Int).Set(amount)
	if removed.Cmp(effective) > 0 {
		removed.Set(effective)
	}
	if removed.Cmp(scheduled) > 0 {
		removed.Set(scheduled)
	}
	if removed.Sign() <= 0 {
		return new(big.Int), nil
	}

	effectiveEpoch := currentEpoch + 1
	if err := bond.Update(effectiveEpoch, new(big.Int).Sub(scheduled, removed)); err != nil {
		return nil, err
	}
	if err := s.storage.setBond(id, kind, bond); err != nil {
		return nil, reverts.Upstream(err)
	}
	d.QueueUnstake(kind, removed, effectiveEpoch)
	if err := s.storage.setDelegation(id, d); err != nil {
		return nil, reverts.Upstream(err)
	}
	return removed, nil
}

// SettleUnstakes removes every queued withdrawal of the staker that has
// reached its effective epoch and returns the paid amounts, in creation
// order of the delegations.
func (s *Service) SettleUnstakes(staker meridian.Address, epoch uint64) ([]*Settled, error) {
	var settled []*Settled
	err := s.ByStaker(staker, func(d *Delegation) (bool, error) {
		due := d.DueUnstakes(epoch)
		if len(due) == 0 {
			return true, nil
		}
		for _, u := range due {
			settled = append(settled, &Settled{
				Validator: d.Validator,
				Kind:      u.Kind,
				Amount:    u.Amount,
			})
		}
		if err := s.storage.setDelegation(d.ID(), d); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, reverts.Upstream(err)
	}
	return settled, nil
}

// ByStaker walks the delegations of the staker in creation order, calling cb
// for each record until it returns false or an error.
func (s *Service) ByStaker(addr meridian.Address, cb func(d *Delegation) (bool, error)) error {
	staker, err := s.storage.getStaker(addr)
	if err != nil {
		return err
	}
	if staker == nil {
		return nil
	}
	return s.walk(staker.Head, cb, func(d *Delegation) *meridian.Bytes32 { return d.SNext })
}

// ByValidator walks the delegations of the validator in creation order,
// calling cb for each record until it returns false or an error.
func (s *Service) ByValidator(validator meridian.Address, cb func(d *Delegation) (bool, error)) error {
	meta, err := s.storage.getValidatorList(validator)
	if err != nil {
		return err
	}
	return s.walk(meta.Head, cb, func(d *Delegation) *meridian.Bytes32 { return d.VNext })
}

func (s *Service) walk(head *meridian.Bytes32, cb func(d *Delegation) (bool, error), next func(d *Delegation) *meridian.Bytes32) error {
	for id := head; id != nil; {
		d, err := s.storage.getDelegation(*id)
		if err != nil {
			return err
		}
		if d == nil {
			return errors.New("delegation record missing")
		}
		goOn, err := cb(d)
		if err != nil {
			return err
		}
		if !goOn {
			return nil
		}
		id = next(d)
	}
	return nil
}

// CountByValidator returns the number of delegations of the validator.
func (s *Service) CountByValidator(validator meridian.Address) (uint64, error) {
	meta, err := s.storage.getValidatorList(validator)
	if err != nil {
		return 0, reverts.Upstream(err)
	}
	return meta.Count, nil
}
