// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/meridianchain/meridian/kv"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Unwrap returns the cause of the state error.
func (e *Error) Unwrap() error {
	return e.cause
}

type storageKey struct {
	addr meridian.Address
	key  meridian.Bytes32
}

func (k storageKey) bytes() []byte {
	b := make([]byte, 0, len(k.addr)+len(k.key))
	return append(append(b, k.addr[:]...), k.key[:]...)
}

// State manages the ledger state as a journaled overlay over committed storage.
// All reads fall through the overlay to src; writes stay in the overlay until
// staged and committed in one batch. Checkpoints make every mutation revertible.
type State struct {
	src kv.Getter
	sm  *stackedmap.StackedMap[storageKey, rlp.RawValue]
	err error // sticky, set on the first src access failure
}

// New create a state object backed by src, which is usually a bucket of the
// store's latest snapshot.
func New(src kv.Getter) *State {
	state := State{src: src}

	state.sm = stackedmap.New(func(key storageKey) (rlp.RawValue, bool) {
		data, err := src.Get(key.bytes())
		if err != nil {
			if !src.IsNotFound(err) {
				state.err = err
			}
			// absent keys read as empty storage
			return nil, true
		}
		return data, true
	})
	return &state
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr meridian.Address, key meridian.Bytes32) (rlp.RawValue, error) {
	raw, _ := s.sm.Get(storageKey{addr, key})
	if s.err != nil {
		return nil, &Error{s.err}
	}
	return raw, nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr meridian.Address, key meridian.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// GetStorage returns word-sized storage value for the given address and key.
func (s *State) GetStorage(addr meridian.Address, key meridian.Bytes32) (meridian.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return meridian.Bytes32{}, err
	}
	if len(raw) == 0 {
		return meridian.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return meridian.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// special case for rlp list, it should be customized storage value
		// return hash of raw data
		return meridian.Blake2b(raw), nil
	}
	return meridian.BytesToBytes32(content), nil
}

// SetStorage set word-sized storage value for the given address and key.
func (s *State) SetStorage(addr meridian.Address, key, value meridian.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// EncodeStorage set storage value encoded by given enc method.
func (s *State) EncodeStorage(addr meridian.Address, key meridian.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
func (s *State) DecodeStorage(addr meridian.Address, key meridian.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Err returns the sticky access failure, if any.
func (s *State) Err() error {
	if s.err != nil {
		return &Error{s.err}
	}
	return nil
}

// Stage collects all journaled changes into a commitable set.
// Later writes of the same key win. A state carrying an access failure
// cannot be staged.
func (s *State) Stage() (*Stage, error) {
	if s.err != nil {
		return nil, &Error{s.err}
	}
	changes := make(map[storageKey]rlp.RawValue)
	s.sm.Journal(func(k storageKey, v rlp.RawValue) bool {
		changes[k] = v
		return true
	})
	return &Stage{changes: changes}, nil
}

// Stage is the set of changes to be committed.
type Stage struct {
	changes map[storageKey]rlp.RawValue
}

// Len returns the number of changed keys.
func (st *Stage) Len() int {
	return len(st.changes)
}

// Hash computes the digest of the change set. Two stages holding the same
// writes hash alike regardless of write order. Values are length-prefixed,
// keeping entry boundaries unambiguous in the hashed stream.
func (st *Stage) Hash() meridian.Bytes32 {
	keys := make([]storageKey, 0, len(st.changes))
	for k := range st.changes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].bytes(), keys[j].bytes()) < 0
	})
	return meridian.Blake2bFn(func(w io.Writer) {
		var n [4]byte
		for _, k := range keys {
			w.Write(k.bytes())
			binary.BigEndian.PutUint32(n[:], uint32(len(st.changes[k])))
			w.Write(n[:])
			w.Write(st.changes[k])
		}
	})
}

// Commit writes all changes through the given putter.
// Keys are written in sorted order so commits are deterministic.
func (st *Stage) Commit(p kv.Putter) error {
	keys := make([]storageKey, 0, len(st.changes))
	for k := range st.changes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].bytes(), keys[j].bytes()) < 0
	})

	for _, k := range keys {
		v := st.changes[k]
		if len(v) == 0 {
			if err := p.Delete(k.bytes()); err != nil {
				return &Error{err}
			}
			continue
		}
		if err := p.Put(k.bytes(), v); err != nil {
			return &Error{err}
		}
	}
	return nil
}
