// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridianchain/meridian/lvldb"
	"github.com/meridianchain/meridian/meridian"
)

func newTestContext() (*Context, *lvldb.LevelDB) {
	db, _ := lvldb.NewMem()
	st := New(db)
	return NewContext(meridian.BytesToAddress([]byte("system")), st), db
}

func TestRaw(t *testing.T) {
	ctx, db := newTestContext()
	defer db.Close()

	type record struct {
		Count uint64
		Tag   []byte
	}
	slot := meridian.Blake2b([]byte("slot-record"))
	r := NewRaw[*record](ctx, slot)

	got, err := r.Get()
	assert.Nil(t, err)
	assert.Nil(t, got)

	assert.Nil(t, r.Upsert(&record{Count: 7, Tag: []byte("x")}))
	got, err = r.Get()
	assert.Nil(t, err)
	assert.Equal(t, uint64(7), got.Count)
	assert.Equal(t, []byte("x"), got.Tag)
}

func TestMapping(t *testing.T) {
	ctx, db := newTestContext()
	defer db.Close()

	base := meridian.Blake2b([]byte("slot-balances"))
	m := NewMapping[meridian.Address, *big.Int](ctx, base)

	alice := meridian.BytesToAddress([]byte("alice"))
	bob := meridian.BytesToAddress([]byte("bob"))

	got, err := m.Get(alice)
	assert.Nil(t, err)
	assert.Nil(t, got)

	assert.Nil(t, m.Set(alice, big.NewInt(100)))
	assert.Nil(t, m.Set(bob, big.NewInt(200)))

	got, err = m.Get(alice)
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(100), got)

	got, err = m.Get(bob)
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(200), got)

	m.Delete(alice)
	got, err = m.Get(alice)
	assert.Nil(t, err)
	assert.Nil(t, got)

	// entries of distinct keys occupy distinct slots
	assert.NotEqual(t, m.position(alice), m.position(bob))
}

func TestUint256(t *testing.T) {
	ctx, db := newTestContext()
	defer db.Close()

	u := NewUint256(ctx, meridian.Blake2b([]byte("slot-total")))

	got, err := u.Get()
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(0), got)

	assert.Nil(t, u.Add(big.NewInt(1000)))
	assert.Nil(t, u.Sub(big.NewInt(300)))

	got, err = u.Get()
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(700), got)

	assert.Error(t, u.Sub(big.NewInt(701)))
}
