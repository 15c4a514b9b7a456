// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/meridianchain/meridian/kv"
	"github.com/meridianchain/meridian/lvldb"
	"github.com/meridianchain/meridian/meridian"
)

func newTestState() (*State, *lvldb.LevelDB) {
	db, _ := lvldb.NewMem()
	return New(db), db
}

func TestStorage(t *testing.T) {
	st, db := newTestState()
	defer db.Close()

	addr := meridian.BytesToAddress([]byte("account1"))
	key := meridian.Blake2b([]byte("key"))
	value := meridian.Blake2b([]byte("value"))

	st.SetStorage(addr, key, value)
	got, err := st.GetStorage(addr, key)
	assert.Nil(t, err)
	assert.Equal(t, value, got)

	// unset storage reads as zero
	got, err = st.GetStorage(addr, meridian.Blake2b([]byte("unset")))
	assert.Nil(t, err)
	assert.Equal(t, meridian.Bytes32{}, got)

	// set to zero deletes
	st.SetStorage(addr, key, meridian.Bytes32{})
	raw, err := st.GetRawStorage(addr, key)
	assert.Nil(t, err)
	assert.Zero(t, len(raw))
}

func TestStorageBarelyEncoded(t *testing.T) {
	st, db := newTestState()
	defer db.Close()

	addr := meridian.BytesToAddress([]byte("account1"))
	key := meridian.Blake2b([]byte("key"))

	type payload struct {
		A uint64
		B []byte
	}
	in := payload{A: 10, B: []byte("pay")}
	err := st.EncodeStorage(addr, key, func() ([]byte, error) {
		return rlp.EncodeToBytes(&in)
	})
	assert.Nil(t, err)

	var out payload
	err = st.DecodeStorage(addr, key, func(raw []byte) error {
		return rlp.DecodeBytes(raw, &out)
	})
	assert.Nil(t, err)
	assert.Equal(t, in, out)
}

func TestRevert(t *testing.T) {
	st, db := newTestState()
	defer db.Close()

	addr := meridian.BytesToAddress([]byte("account1"))
	key := meridian.Blake2b([]byte("key"))
	v1 := meridian.Blake2b([]byte("v1"))
	v2 := meridian.Blake2b([]byte("v2"))

	st.SetStorage(addr, key, v1)

	cp := st.NewCheckpoint()
	st.SetStorage(addr, key, v2)
	got, _ := st.GetStorage(addr, key)
	assert.Equal(t, v2, got)

	st.RevertTo(cp)
	got, _ = st.GetStorage(addr, key)
	assert.Equal(t, v1, got)
}

func TestStageCommit(t *testing.T) {
	st, db := newTestState()
	defer db.Close()

	addr := meridian.BytesToAddress([]byte("account1"))
	k1 := meridian.Blake2b([]byte("k1"))
	k2 := meridian.Blake2b([]byte("k2"))
	v1 := meridian.Blake2b([]byte("v1"))

	st.SetStorage(addr, k1, v1)
	st.SetStorage(addr, k2, meridian.Blake2b([]byte("v2")))
	// overwrite within the same journal, the later write wins
	st.SetStorage(addr, k2, meridian.Bytes32{})

	stage, err := st.Stage()
	assert.Nil(t, err)
	assert.Nil(t, stage.Commit(db))

	// a fresh state over the same store sees the committed values
	st2 := New(db)
	got, _ := st2.GetStorage(addr, k1)
	assert.Equal(t, v1, got)
	raw, _ := st2.GetRawStorage(addr, k2)
	assert.Zero(t, len(raw))
}

func TestStickyError(t *testing.T) {
	broken := struct {
		kv.GetFunc
		kv.HasFunc
		kv.IsNotFoundFunc
	}{
		func(_ []byte) ([]byte, error) { return nil, errors.New("io failure") },
		func(_ []byte) (bool, error) { return false, errors.New("io failure") },
		func(_ error) bool { return false },
	}

	st := New(broken)
	addr := meridian.BytesToAddress([]byte("account1"))
	_, err := st.GetStorage(addr, meridian.Blake2b([]byte("key")))
	assert.Error(t, err)

	// the error sticks and fails the stage
	_, err = st.Stage()
	assert.Error(t, err)
}
