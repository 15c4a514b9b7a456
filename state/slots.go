// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/meridian"
)

// Key is anything that can key a Mapping entry.
type Key interface {
	Bytes() []byte
}

// Context carries the storage namespace of a system account.
type Context struct {
	address meridian.Address
	state   *State
}

func NewContext(address meridian.Address, state *State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) State() *State {
	return c.state
}

func (c *Context) Address() meridian.Address {
	return c.address
}

// Raw is a wrapper for storage and retrieval of one RLP-encoded value at a fixed slot.
type Raw[V any] struct {
	ctx  *Context
	slot meridian.Bytes32
}

func NewRaw[V any](ctx *Context, slot meridian.Bytes32) *Raw[V] {
	return &Raw[V]{ctx: ctx, slot: slot}
}

// Get loads the stored value. The zero value of V is returned for an empty slot.
func (r *Raw[V]) Get() (V, error) {
	var val V
	err := r.ctx.state.DecodeStorage(r.ctx.address, r.slot, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &val)
	})
	return val, err
}

// Upsert stores the value.
func (r *Raw[V]) Upsert(val V) error {
	return r.ctx.state.EncodeStorage(r.ctx.address, r.slot, func() ([]byte, error) {
		return rlp.EncodeToBytes(val)
	})
}

// Mapping is a persistent mapping with typed keys and values.
// The slot of an entry is derived as blake2b(key bytes, base slot).
type Mapping[K Key, V any] struct {
	ctx  *Context
	base meridian.Bytes32
}

func NewMapping[K Key, V any](ctx *Context, base meridian.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{ctx: ctx, base: base}
}

func (m *Mapping[K, V]) position(key K) meridian.Bytes32 {
	return meridian.Blake2b(key.Bytes(), m.base.Bytes())
}

// Get loads the entry of the key. The zero value of V is returned for an absent entry.
func (m *Mapping[K, V]) Get(key K) (V, error) {
	var val V
	err := m.ctx.state.DecodeStorage(m.ctx.address, m.position(key), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &val)
	})
	return val, err
}

// Set stores the entry of the key.
func (m *Mapping[K, V]) Set(key K, val V) error {
	return m.ctx.state.EncodeStorage(m.ctx.address, m.position(key), func() ([]byte, error) {
		return rlp.EncodeToBytes(val)
	})
}

// Delete clears the entry of the key.
func (m *Mapping[K, V]) Delete(key K) {
	m.ctx.state.SetRawStorage(m.ctx.address, m.position(key), nil)
}

// Uint256 is a wrapper for storage and retrieval of an unsigned 256-bit integer
// at a fixed slot. Values exceeding 256 bits are truncated to fit meridian.Bytes32.
type Uint256 struct {
	ctx *Context
	pos meridian.Bytes32
}

func NewUint256(ctx *Context, slot meridian.Bytes32) *Uint256 {
	return &Uint256{ctx: ctx, pos: slot}
}

func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.ctx.state.GetStorage(u.ctx.address, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

func (u *Uint256) Set(value *big.Int) {
	storage := meridian.BytesToBytes32(value.Bytes())
	u.ctx.state.SetStorage(u.ctx.address, u.pos, storage)
}

func (u *Uint256) Add(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	storage.Add(storage, value)
	u.Set(storage)
	return nil
}

func (u *Uint256) Sub(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	storage.Sub(storage, value)
	if storage.Sign() < 0 {
		return errors.New("uint256 underflow")
	}
	u.Set(storage)
	return nil
}
