// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/authority"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/state"
	"github.com/meridianchain/meridian/token"
	"github.com/meridianchain/meridian/xenv"
)

// DevAccount account for development.
type DevAccount struct {
	Address    meridian.Address
	PrivateKey *secp256k1.PrivateKey
}

var devAccounts atomic.Value

// DevAccounts returns pre-alloced accounts for solo mode.
func DevAccounts() []DevAccount {
	if accs := devAccounts.Load(); accs != nil {
		return accs.([]DevAccount)
	}

	var accs []DevAccount
	privKeys := []string{
		"65e0df187a3c92b451c8f6d90e4ba72f83d15c6a2f9e04b8c7a61d35498bfe02",
		"1dc49072f5ab3e869274cd106b8fa5e3d04c71b93ea682f578d20c41b59e6fd7",
		"c83f5a1604d7e9b26a19c8f4e52b07d891f64a3cb80e52d637ca91e05d486b2f",
		"f21b68c48e05d3a9470cf1b6d98a24e70b53c8f265e197ad82f40d5bc96e3a18",
		"39a7d0e5b14c86f2d6e9532708bf41ca7e62d9b0f4a3158c20d7be694c81f5d3",
		"a05c94f72d68b1e3f7902ac54be3d816c1758f29d23604eb6f9ac1d8e8527b40",
		"5eb2c7a190f4d36538a6e1cf72d50b94ad8136fe06c9e572b43f8d211a07c6e9",
		"e7409c2d53b8f0612cd1a79486f5e3b019e24d787a60c3f5d5b19e26f3c8024a",
		"0c65fae8417d20b5b390c6e15fa8d472e2176c9394be03d661f58a2c8dc47b0f",
		"8df136b9ca25e47004b8d9e69137fac556c0a2f8eb84915d3d6e07a327f9c514",
	}
	for _, str := range privKeys {
		raw, err := hex.DecodeString(str)
		if err != nil {
			panic(err)
		}
		pk := secp256k1.PrivKeyFromBytes(raw)
		addr := meridian.AddressFromPublicKey(pk.PubKey().SerializeUncompressed())
		accs = append(accs, DevAccount{addr, pk})
	}
	devAccounts.Store(accs)
	return accs
}

// NewDevnet create genesis for solo mode. Every dev account is funded and
// allow-listed, so any of them can join as a validator right away.
func NewDevnet() *Genesis {
	launchTime := uint64(1735689600) // 'Wed Jan 01 2025 00:00:00 GMT+0000'

	treasury := DevAccounts()[0].Address

	builder := new(Builder).
		Timestamp(launchTime).
		State(func(st *state.State) error {
			grant := new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e18))
			supply := new(big.Int).Mul(grant, big.NewInt(int64(len(DevAccounts()))))

			tok := token.New(meridian.TokenAddress, st)
			if err := tok.InitializeSupply(token.MER, treasury, supply); err != nil {
				return err
			}
			for _, a := range DevAccounts()[1:] {
				ok, err := tok.Transfer(token.MER, treasury, a.Address, grant)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("treasury underfunded")
				}
			}

			auth := authority.New(meridian.AuthorityAddress, st)
			for i, a := range DevAccounts() {
				identity := meridian.BytesToBytes32([]byte(fmt.Sprintf("dev validator %d", i)))
				if _, err := auth.Add(a.Address, identity, 0); err != nil {
					return err
				}
			}

			return scheduleParams(st, initialParams())
		})

	id, err := builder.ComputeID()
	if err != nil {
		panic(err)
	}

	return &Genesis{builder, id, "devnet", xenv.Config{EpochLength: 60, BlockInterval: 10}}
}
