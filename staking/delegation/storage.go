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
	"github.com/meridianchain/meridian/state"
	"github.com/meridianchain/meridian/token"
)

var (
	slotDelegations = meridian.BytesToBytes32([]byte("delegations"))
	slotBonds       = meridian.BytesToBytes32([]byte("delegations-bonds"))
	slotValidators  = meridian.BytesToBytes32([]byte("delegations-by-validator"))
	slotStakers     = meridian.BytesToBytes32([]byte("stakers"))
)

// listMeta heads the delegation list of one validator.
type listMeta struct {
	Count uint64
	Head  *meridian.Bytes32 `rlp:"nil"`
	Tail  *meridian.Bytes32 `rlp:"nil"`
}

func bondKey(id meridian.Bytes32, kind token.Kind) meridian.Bytes32 {
	return meridian.Blake2b(id.Bytes(), []byte{byte(kind)})
}

type Storage struct {
	delegations *state.Mapping[meridian.Bytes32, *Delegation]
	bonds       *state.Mapping[meridian.Bytes32, *history.History[*big.Int]]
	validators  *state.Mapping[meridian.Address, *listMeta]
	stakers     *state.Mapping[meridian.Address, *Staker]
}

func NewStorage(ctx *state.Context) *Storage {
	return &Storage{
		delegations: state.NewMapping[meridian.Bytes32, *Delegation](ctx, slotDelegations),
		bonds:       state.NewMapping[meridian.Bytes32, *history.History[*big.Int]](ctx, slotBonds),
		validators:  state.NewMapping[meridian.Address, *listMeta](ctx, slotValidators),
		stakers:     state.NewMapping[meridian.Address, *Staker](ctx, slotStakers),
	}
}

func (s *Storage) getDelegation(id meridian.Bytes32) (*Delegation, error) {
	d, err := s.delegations.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delegation")
	}
	return d, nil
}

func (s *Storage) setDelegation(id meridian.Bytes32, d *Delegation) error {
	if err := s.delegations.Set(id, d); err != nil {
		return errors.Wrap(err, "failed to set delegation")
	}
	return nil
}

func (s *Storage) getBond(id meridian.Bytes32, kind token.Kind) (*history.History[*big.Int], error) {
	bond, err := s.bonds.Get(bondKey(id, kind))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bond")
	}
	if bond == nil {
		return history.New[*big.Int](), nil
	}
	return bond, nil
}

func (s *Storage) setBond(id meridian.Bytes32, kind token.Kind, bond *history.History[*big.Int]) error {
	if err := s.bonds.Set(bondKey(id, kind), bond); err != nil {
		return errors.Wrap(err, "failed to set bond")
	}
	return nil
}

func (s *Storage) getValidatorList(validator meridian.Address) (*listMeta, error) {
	meta, err := s.validators.Get(validator)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delegation list")
	}
	if meta == nil {
		return &listMeta{}, nil
	}
	return meta, nil
}

func (s *Storage) setValidatorList(validator meridian.Address, meta *listMeta) error {
	if err := s.validators.Set(validator, meta); err != nil {
		return errors.Wrap(err, "failed to set delegation list")
	}
	return nil
}

func (s *Storage) getStaker(addr meridian.Address) (*Staker, error) {
	staker, err := s.stakers.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get staker")
	}
	return staker, nil
}

func (s *Storage) setStaker(addr meridian.Address, staker *Staker) error {
	if err := s.stakers.Set(addr, staker); err != nil {
		return errors.Wrap(err, "failed to set staker")
	}
	return nil
}
