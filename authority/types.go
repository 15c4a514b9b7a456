// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package authority

import (
	"github.com/meridianchain/meridian/meridian"
)

type entry struct {
	Identity meridian.Bytes32
	Since    uint64
	Prev     *meridian.Address `rlp:"nil"`
	Next     *meridian.Address `rlp:"nil"`
}

// IsEmpty returns whether the entry can be treated as empty.
func (e *entry) IsEmpty() bool {
	return e.Identity.IsZero() &&
		e.Since == 0 &&
		e.Prev == nil &&
		e.Next == nil
}

// IsLinked returns whether the entry is linked to a neighbour.
func (e *entry) IsLinked() bool {
	return e.Prev != nil || e.Next != nil
}

// Candidate an entry on the validator allow-list.
type Candidate struct {
	Address  meridian.Address
	Identity meridian.Bytes32
	Since    uint64
}
