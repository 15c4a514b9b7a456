// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package authority maintains the allow-list of addresses permitted to register
// as validators. Entries form a doubly-linked list in state so that the full
// list can be walked without an index.
package authority

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/state"
)

var (
	headKey = meridian.Blake2b([]byte("head"))
	tailKey = meridian.Blake2b([]byte("tail"))
)

// Authority manages the validator allow-list.
type Authority struct {
	addr  meridian.Address
	state *state.State
}

// New create a new instance.
func New(addr meridian.Address, state *state.State) *Authority {
	return &Authority{addr, state}
}

func (a *Authority) getEntry(candidate meridian.Address) (*entry, error) {
	var entry entry
	if err := a.state.DecodeStorage(a.addr, meridian.BytesToBytes32(candidate[:]), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &entry)
	}); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (a *Authority) setEntry(candidate meridian.Address, entry *entry) error {
	return a.state.EncodeStorage(a.addr, meridian.BytesToBytes32(candidate[:]), func() ([]byte, error) {
		if entry.IsEmpty() {
			return nil, nil
		}
		return rlp.EncodeToBytes(entry)
	})
}

func (a *Authority) getAddressPtr(key meridian.Bytes32) (addr *meridian.Address, err error) {
	err = a.state.DecodeStorage(a.addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &addr)
	})
	return
}

func (a *Authority) setAddressPtr(key meridian.Bytes32, addr *meridian.Address) error {
	return a.state.EncodeStorage(a.addr, key, func() ([]byte, error) {
		if addr == nil {
			return nil, nil
		}
		return rlp.EncodeToBytes(addr)
	})
}

// Get get allow-list entry by candidate address.
func (a *Authority) Get(candidate meridian.Address) (listed bool, identity meridian.Bytes32, since uint64, err error) {
	var entry *entry
	if entry, err = a.getEntry(candidate); err != nil {
		return
	}
	if entry.IsLinked() {
		return true, entry.Identity, entry.Since, nil
	}
	// if it's the only entry, IsLinked will be false.
	// check whether it's the head.
	var ptr *meridian.Address
	if ptr, err = a.getAddressPtr(headKey); err != nil {
		return
	}
	listed = ptr != nil && *ptr == candidate
	return listed, entry.Identity, entry.Since, nil
}

// IsListed reports whether the candidate is currently on the allow-list.
func (a *Authority) IsListed(candidate meridian.Address) (bool, error) {
	listed, _, _, err := a.Get(candidate)
	return listed, err
}

// Add add a new candidate to the allow-list.
// Returns false without modifying anything if the candidate is already listed.
func (a *Authority) Add(candidate meridian.Address, identity meridian.Bytes32, since uint64) (bool, error) {
	entry, err := a.getEntry(candidate)
	if err != nil {
		return false, err
	}
	if !entry.IsEmpty() {
		return false, nil
	}

	entry.Identity = identity
	entry.Since = since

	tailPtr, err := a.getAddressPtr(tailKey)
	if err != nil {
		return false, err
	}
	entry.Prev = tailPtr

	if err := a.setAddressPtr(tailKey, &candidate); err != nil {
		return false, err
	}
	if tailPtr == nil {
		if err := a.setAddressPtr(headKey, &candidate); err != nil {
			return false, err
		}
	} else {
		tailEntry, err := a.getEntry(*tailPtr)
		if err != nil {
			return false, err
		}
		tailEntry.Next = &candidate
		if err := a.setEntry(*tailPtr, tailEntry); err != nil {
			return false, err
		}
	}

	if err := a.setEntry(candidate, entry); err != nil {
		return false, err
	}
	return true, nil
}

// Revoke remove the candidate from the allow-list.
// The entry is unlinked but its identity is retained.
func (a *Authority) Revoke(candidate meridian.Address) (bool, error) {
	entry, err := a.getEntry(candidate)
	if err != nil {
		return false, err
	}
	listed, _, _, err := a.Get(candidate)
	if err != nil {
		return false, err
	}
	if !listed {
		return false, nil
	}

	if entry.Prev == nil {
		if err := a.setAddressPtr(headKey, entry.Next); err != nil {
			return false, err
		}
	} else {
		prevEntry, err := a.getEntry(*entry.Prev)
		if err != nil {
			return false, err
		}
		prevEntry.Next = entry.Next
		if err := a.setEntry(*entry.Prev, prevEntry); err != nil {
			return false, err
		}
	}

	if entry.Next == nil {
		if err := a.setAddressPtr(tailKey, entry.Prev); err != nil {
			return false, err
		}
	} else {
		nextEntry, err := a.getEntry(*entry.Next)
		if err != nil {
			return false, err
		}
		nextEntry.Prev = entry.Prev
		if err := a.setEntry(*entry.Next, nextEntry); err != nil {
			return false, err
		}
	}

	entry.Next = nil
	entry.Prev = nil
	if err := a.setEntry(candidate, entry); err != nil {
		return false, err
	}
	return true, nil
}

// All lists all candidates on the allow-list, in insertion order.
func (a *Authority) All() ([]*Candidate, error) {
	ptr, err := a.getAddressPtr(headKey)
	if err != nil {
		return nil, err
	}
	var candidates []*Candidate
	for ptr != nil {
		entry, err := a.getEntry(*ptr)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, &Candidate{
			Address:  *ptr,
			Identity: entry.Identity,
			Since:    entry.Since,
		})
		ptr = entry.Next
	}
	return candidates, nil
}

// First returns the address of the first listed candidate.
func (a *Authority) First() (*meridian.Address, error) {
	return a.getAddressPtr(headKey)
}

// Next returns the address of the candidate after the given one.
func (a *Authority) Next(candidate meridian.Address) (*meridian.Address, error) {
	entry, err := a.getEntry(candidate)
	if err != nil {
		return nil, err
	}
	return entry.Next, nil
}
