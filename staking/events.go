// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/xenv"
)

// Names of the events recorded by the engine.
const (
	EventValidatorJoined     = "validator-joined"
	EventOperatorUpdated     = "operator-updated"
	EventStatusScheduled     = "status-scheduled"
	EventCommissionScheduled = "commission-scheduled"
	EventSlashed             = "slashed"
	EventJailed              = "jailed"
	EventStaked              = "staked"
	EventUnstaked            = "unstaked"
	EventUnstakesClaimed     = "unstakes-claimed"
	EventRewardsClaimed      = "rewards-claimed"
	EventCommissionsClaimed  = "commissions-claimed"
	EventEpochSealed         = "epoch-sealed"
)

// Event is a domain event recorded by a staking operation. Events of a failed
// operation are rolled back together with its state writes.
type Event struct {
	Name  string            `json:"name"`
	Block uint32            `json:"block"`
	Epoch uint64            `json:"epoch"`
	Actor meridian.Address  `json:"actor"`
	Data  map[string]string `json:"data,omitempty"`
}

func (s *Staking) emit(env *xenv.Environment, name string, actor meridian.Address, data map[string]string) {
	s.events = append(s.events, &Event{
		Name:  name,
		Block: env.BlockContext().Number,
		Epoch: env.Epoch(),
		Actor: actor,
		Data:  data,
	})
}

// PendingEvents returns the events recorded since the last drain and clears
// the journal.
func (s *Staking) PendingEvents() []*Event {
	events := s.events
	s.events = nil
	return events
}
