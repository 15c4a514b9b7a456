// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/lvldb"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/state"
)

// Builder helper to build the genesis state.
type Builder struct {
	launchTime uint64

	stateProcs []func(st *state.State) error
}

// Timestamp set the launch timestamp.
func (b *Builder) Timestamp(t uint64) *Builder {
	b.launchTime = t
	return b
}

// State add a state process.
func (b *Builder) State(proc func(st *state.State) error) *Builder {
	b.stateProcs = append(b.stateProcs, proc)
	return b
}

// Build applies all state processes to the given state.
func (b *Builder) Build(st *state.State) error {
	for _, proc := range b.stateProcs {
		if err := proc(st); err != nil {
			return errors.Wrap(err, "state process")
		}
	}
	return nil
}

// ComputeID computes the genesis ID by replaying the recipe against a
// throwaway in-memory state and digesting the change set it produces.
func (b *Builder) ComputeID() (meridian.Bytes32, error) {
	kv, err := lvldb.NewMem()
	if err != nil {
		return meridian.Bytes32{}, err
	}
	defer kv.Close()

	st := state.New(kv)
	if err := b.Build(st); err != nil {
		return meridian.Bytes32{}, err
	}

	stage, err := st.Stage()
	if err != nil {
		return meridian.Bytes32{}, err
	}
	stateHash := stage.Hash()
	return meridian.Blake2bFn(func(w io.Writer) {
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], b.launchTime)
		w.Write(ts[:])
		w.Write(stateHash.Bytes())
	}), nil
}
