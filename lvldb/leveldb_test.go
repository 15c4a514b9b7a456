// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/meridian/kv"
)

func TestRoundTrip(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("k1"), []byte("v1")))

	val, err := db.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)

	has, err := db.Has([]byte("k1"))
	require.NoError(t, err)
	assert.True(t, has)

	_, err = db.Get([]byte("missing"))
	assert.True(t, db.IsNotFound(err))

	require.NoError(t, db.Delete([]byte("k1")))
	has, err = db.Has([]byte("k1"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSnapshotIsolation(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("k"), []byte("old")))

	snap := db.Snapshot()
	defer snap.Release()

	require.NoError(t, db.Put([]byte("k"), []byte("new")))

	val, err := snap.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), val)
}

func TestBulkWrite(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	bulk := db.Bulk()
	require.NoError(t, bulk.Put([]byte("a"), []byte("1")))
	require.NoError(t, bulk.Put([]byte("b"), []byte("2")))

	// nothing visible before Write
	has, err := db.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, bulk.Write())

	val, err := db.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), val)
}

func TestBucketIterate(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	bkt := kv.Bucket("t-").NewStore(db)
	require.NoError(t, bkt.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, bkt.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, db.Put([]byte("other"), []byte("x")))

	var keys []string
	iter := bkt.Iterate(kv.Range{})
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	iter.Release()
	require.NoError(t, iter.Error())

	assert.Equal(t, []string{"k1", "k2"}, keys)
}
