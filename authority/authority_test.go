// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package authority

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridianchain/meridian/lvldb"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/state"
)

func M(a ...interface{}) []interface{} {
	return a
}

func TestAuthority(t *testing.T) {
	db, _ := lvldb.NewMem()
	st := state.New(db)

	p1 := meridian.BytesToAddress([]byte("p1"))
	p2 := meridian.BytesToAddress([]byte("p2"))
	p3 := meridian.BytesToAddress([]byte("p3"))

	id1 := meridian.BytesToBytes32([]byte("id1"))
	id2 := meridian.BytesToBytes32([]byte("id2"))
	id3 := meridian.BytesToBytes32([]byte("id3"))

	aut := New(meridian.BytesToAddress([]byte("aut")), st)
	tests := []struct {
		ret      interface{}
		expected interface{}
	}{
		{M(aut.Add(p1, id1, 1)), M(true, nil)},
		{M(aut.Add(p2, id2, 1)), M(true, nil)},
		{M(aut.Add(p3, id3, 2)), M(true, nil)},
		{M(aut.Add(p1, id1, 3)), M(false, nil)},
		{M(aut.All()), M([]*Candidate{{p1, id1, 1}, {p2, id2, 1}, {p3, id3, 2}}, nil)},
		{M(aut.Get(p1)), M(true, id1, uint64(1), nil)},
		{M(aut.IsListed(p2)), M(true, nil)},
		{M(aut.Revoke(p1)), M(true, nil)},
		{M(aut.Revoke(p1)), M(false, nil)},
		{M(aut.IsListed(p1)), M(false, nil)},
		{M(aut.All()), M([]*Candidate{{p2, id2, 1}, {p3, id3, 2}}, nil)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.ret)
	}
}

func TestAuthorityRevokeOnly(t *testing.T) {
	db, _ := lvldb.NewMem()
	st := state.New(db)

	p1 := meridian.BytesToAddress([]byte("p1"))
	aut := New(meridian.BytesToAddress([]byte("aut")), st)

	ok, err := aut.Add(p1, meridian.Bytes32{}, 1)
	assert.True(t, ok)
	assert.Nil(t, err)

	// revoking the sole entry clears head and tail
	ok, err = aut.Revoke(p1)
	assert.True(t, ok)
	assert.Nil(t, err)

	first, err := aut.First()
	assert.Nil(t, err)
	assert.Nil(t, first)

	all, err := aut.All()
	assert.Nil(t, err)
	assert.Empty(t, all)
}
