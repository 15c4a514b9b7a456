// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package delegation

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/token"
)

func TestDelegationRLP(t *testing.T) {
	staker := meridian.BytesToAddress([]byte("staker1"))
	validator := meridian.BytesToAddress([]byte("val1"))
	next := meridian.BytesToBytes32([]byte("next-id"))

	d := &Delegation{
		Staker:          staker,
		Validator:       validator,
		CreatedAt:       4,
		LastRewardClaim: 6,
		VNext:           &next,
	}
	d.QueueUnstake(token.MER, big.NewInt(250), 7)

	data, err := rlp.EncodeToBytes(d)
	assert.Nil(t, err)

	var decoded Delegation
	assert.Nil(t, rlp.DecodeBytes(data, &decoded))
	assert.Equal(t, staker, decoded.Staker)
	assert.Equal(t, validator, decoded.Validator)
	assert.Equal(t, uint64(4), decoded.CreatedAt)
	assert.Equal(t, uint64(6), decoded.LastRewardClaim)
	assert.Nil(t, decoded.VPrev)
	assert.Equal(t, &next, decoded.VNext)
	assert.Len(t, decoded.Unstakes, 1)
	assert.Equal(t, token.MER, decoded.Unstakes[0].Kind)
	assert.Equal(t, big.NewInt(250), decoded.Unstakes[0].Amount)
	assert.Equal(t, uint64(7), decoded.Unstakes[0].Effective)
	assert.False(t, decoded.IsEmpty())
}

func TestDueUnstakes(t *testing.T) {
	d := &Delegation{}
	d.QueueUnstake(token.MER, big.NewInt(10), 3)
	d.QueueUnstake(token.WMER, big.NewInt(20), 5)
	d.QueueUnstake(token.MER, big.NewInt(30), 5)

	assert.Equal(t, big.NewInt(40), d.PendingUnstaked(token.MER))
	assert.Equal(t, big.NewInt(20), d.PendingUnstaked(token.WMER))

	due := d.DueUnstakes(4)
	assert.Len(t, due, 1)
	assert.Equal(t, big.NewInt(10), due[0].Amount)
	assert.Len(t, d.Unstakes, 2)

	due = d.DueUnstakes(5)
	assert.Len(t, due, 2)
	assert.Len(t, d.Unstakes, 0)

	// empty queue stays empty
	assert.Len(t, d.DueUnstakes(9), 0)
}

func TestStakerRecordRLP(t *testing.T) {
	head := meridian.BytesToBytes32([]byte("head-id"))
	s := &Staker{FirstSeen: 2, Count: 1, Head: &head, Tail: &head}

	data, err := rlp.EncodeToBytes(s)
	assert.Nil(t, err)

	var decoded Staker
	assert.Nil(t, rlp.DecodeBytes(data, &decoded))
	assert.Equal(t, uint64(2), decoded.FirstSeen)
	assert.Equal(t, uint64(1), decoded.Count)
	assert.Equal(t, &head, decoded.Head)
	assert.False(t, decoded.IsEmpty())
	assert.True(t, (&Staker{}).IsEmpty())
}
