// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validation

import (
	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/state"
)

var (
	slotRegistryHead  = meridian.BytesToBytes32([]byte("validations-head"))
	slotRegistryTail  = meridian.BytesToBytes32([]byte("validations-tail"))
	slotRegistryCount = meridian.BytesToBytes32([]byte("validations-count"))
)

// Repository persists validator records and threads them into the registry
// list. The list preserves join order and only ever grows.
type Repository struct {
	storage *Storage
	head    *state.Raw[meridian.Address]
	tail    *state.Raw[meridian.Address]
	count   *state.Raw[uint64]
}

func NewRepository(ctx *state.Context) *Repository {
	return &Repository{
		storage: NewStorage(ctx),
		head:    state.NewRaw[meridian.Address](ctx, slotRegistryHead),
		tail:    state.NewRaw[meridian.Address](ctx, slotRegistryTail),
		count:   state.NewRaw[uint64](ctx, slotRegistryCount),
	}
}

// Get loads a record. Returns nil when the owner never joined.
func (r *Repository) Get(owner meridian.Address) (*Validation, error) {
	return r.storage.getValidation(owner)
}

// Update stores back a loaded record.
func (r *Repository) Update(owner meridian.Address, v *Validation) error {
	return r.storage.setValidation(owner, v)
}

// Register appends a new record to the registry.
func (r *Repository) Register(v *Validation) error {
	oldTail, err := r.tail.Get()
	if err != nil {
		return err
	}

	if oldTail.IsZero() {
		if err := r.head.Upsert(v.Owner); err != nil {
			return err
		}
	} else {
		tailEntry, err := r.storage.getValidation(oldTail)
		if err != nil {
			return err
		}
		if tailEntry == nil {
			return errors.New("registry tail record missing")
		}
		owner := v.Owner
		tailEntry.Next = &owner
		if err := r.storage.setValidation(oldTail, tailEntry); err != nil {
			return err
		}
		prev := oldTail
		v.Prev = &prev
	}

	if err := r.tail.Upsert(v.Owner); err != nil {
		return err
	}
	if err := r.storage.setValidation(v.Owner, v); err != nil {
		return err
	}

	count, err := r.count.Get()
	if err != nil {
		return err
	}
	return r.count.Upsert(count + 1)
}

// Count returns the number of registered validators.
func (r *Repository) Count() (uint64, error) {
	return r.count.Get()
}

// First returns the owner of the earliest joined validator, or the zero
// address when the registry is empty.
func (r *Repository) First() (meridian.Address, error) {
	return r.head.Get()
}

// Iter walks the registry in join order, calling cb for each record until
// it returns false or an error.
func (r *Repository) Iter(cb func(v *Validation) (bool, error)) error {
	owner, err := r.head.Get()
	if err != nil {
		return err
	}
	for !owner.IsZero() {
		v, err := r.storage.getValidation(owner)
		if err != nil {
			return err
		}
		if v == nil {
			return errors.New("registry record missing")
		}
		goOn, err := cb(v)
		if err != nil {
			return err
		}
		if !goOn {
			return nil
		}
		if v.Next == nil {
			return nil
		}
		owner = *v.Next
	}
	return nil
}

// OwnerByOperator resolves the operator address to the validator owning it.
func (r *Repository) OwnerByOperator(operator meridian.Address) (*meridian.Address, error) {
	return r.storage.getOperatorOwner(operator)
}

// MapOperator binds the operator address to the owner, releasing the previous
// binding of the owner if given.
func (r *Repository) MapOperator(operator meridian.Address, owner meridian.Address, prevOperator *meridian.Address) error {
	if prevOperator != nil && *prevOperator != operator {
		if err := r.storage.setOperatorOwner(*prevOperator, nil); err != nil {
			return err
		}
	}
	return r.storage.setOperatorOwner(operator, &owner)
}

// GetTally returns the block and slash counts of the validator for the epoch.
func (r *Repository) GetTally(owner meridian.Address, epoch uint64) (*Tally, error) {
	return r.storage.getTally(owner, epoch)
}

// AddBlocks increments the block count of the validator for the epoch.
func (r *Repository) AddBlocks(owner meridian.Address, epoch uint64, n uint64) (*Tally, error) {
	tally, err := r.storage.getTally(owner, epoch)
	if err != nil {
		return nil, err
	}
	tally.Blocks += n
	if err := r.storage.setTally(owner, epoch, tally); err != nil {
		return nil, err
	}
	return tally, nil
}

// AddSlashes increments the slash count of the validator for the epoch.
func (r *Repository) AddSlashes(owner meridian.Address, epoch uint64, n uint64) (*Tally, error) {
	tally, err := r.storage.getTally(owner, epoch)
	if err != nil {
		return nil, err
	}
	tally.Slashes += n
	if err := r.storage.setTally(owner, epoch, tally); err != nil {
		return nil, err
	}
	return tally, nil
}
