// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validation

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/state"
)

var (
	slotValidations = meridian.BytesToBytes32([]byte("validations"))
	slotOperators   = meridian.BytesToBytes32([]byte("validations-operators"))
	slotTallies     = meridian.BytesToBytes32([]byte("validations-tallies"))
)

// Tally counts the blocks produced and the slashes recorded against a
// validator within one epoch.
type Tally struct {
	Blocks  uint64
	Slashes uint64
}

// IsEmpty returns whether the tally holds no counts.
func (t *Tally) IsEmpty() bool {
	return t == nil || (t.Blocks == 0 && t.Slashes == 0)
}

type Storage struct {
	validations *state.Mapping[meridian.Address, *Validation]
	operators   *state.Mapping[meridian.Address, *meridian.Address]
	tallies     *state.Mapping[meridian.Bytes32, *Tally]
}

func NewStorage(ctx *state.Context) *Storage {
	return &Storage{
		validations: state.NewMapping[meridian.Address, *Validation](ctx, slotValidations),
		operators:   state.NewMapping[meridian.Address, *meridian.Address](ctx, slotOperators),
		tallies:     state.NewMapping[meridian.Bytes32, *Tally](ctx, slotTallies),
	}
}

func (s *Storage) getValidation(owner meridian.Address) (*Validation, error) {
	v, err := s.validations.Get(owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get validation")
	}
	return v, nil
}

func (s *Storage) setValidation(owner meridian.Address, v *Validation) error {
	if err := s.validations.Set(owner, v); err != nil {
		return errors.Wrap(err, "failed to set validation")
	}
	return nil
}

func (s *Storage) getOperatorOwner(operator meridian.Address) (*meridian.Address, error) {
	owner, err := s.operators.Get(operator)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get operator mapping")
	}
	return owner, nil
}

func (s *Storage) setOperatorOwner(operator meridian.Address, owner *meridian.Address) error {
	if owner == nil {
		s.operators.Delete(operator)
		return nil
	}
	if err := s.operators.Set(operator, owner); err != nil {
		return errors.Wrap(err, "failed to set operator mapping")
	}
	return nil
}

func tallyKey(owner meridian.Address, epoch uint64) meridian.Bytes32 {
	var epochBytes [8]byte
	binary.BigEndian.PutUint64(epochBytes[:], epoch)
	return meridian.Blake2b([]byte("tally"), owner.Bytes(), epochBytes[:])
}

func (s *Storage) getTally(owner meridian.Address, epoch uint64) (*Tally, error) {
	tally, err := s.tallies.Get(tallyKey(owner, epoch))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tally")
	}
	if tally == nil {
		return &Tally{}, nil
	}
	return tally, nil
}

func (s *Storage) setTally(owner meridian.Address, epoch uint64, tally *Tally) error {
	if err := s.tallies.Set(tallyKey(owner, epoch), tally); err != nil {
		return errors.Wrap(err, "failed to set tally")
	}
	return nil
}
