// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token implements the ledger of Meridian assets.
//
// Three kinds share one ledger. MER is the base asset with a fixed genesis
// supply. WMER is the reward asset, minted when rewards and commissions are
// claimed. SMER is the staking receipt, minted on stake and burned on unstake.
package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/state"
)

// Kind identifies an asset on the ledger.
type Kind byte

const (
	MER Kind = iota
	WMER
	SMER
)

func (k Kind) String() string {
	switch k {
	case MER:
		return "MER"
	case WMER:
		return "WMER"
	case SMER:
		return "SMER"
	default:
		return "unknown"
	}
}

// StakeableKinds lists the kinds accepted as stake. SMER is a receipt and
// cannot itself be staked.
func StakeableKinds() []Kind {
	return []Kind{MER, WMER}
}

// IsStakeable reports whether the kind is accepted as stake.
func (k Kind) IsStakeable() bool {
	return k == MER || k == WMER
}

// ParseKind parses a kind by its name.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "MER":
		return MER, nil
	case "WMER":
		return WMER, nil
	case "SMER":
		return SMER, nil
	default:
		return 0, errors.Errorf("unknown token kind %q", name)
	}
}

func accountKey(kind Kind, addr meridian.Address) meridian.Bytes32 {
	return meridian.BytesToBytes32(append([]byte{'a', byte(kind)}, addr.Bytes()...))
}

func supplyKey(kind Kind) meridian.Bytes32 {
	return meridian.Blake2b([]byte("initial-supply"), []byte{byte(kind)})
}

func totalAddKey(kind Kind) meridian.Bytes32 {
	return meridian.Blake2b([]byte("total-add"), []byte{byte(kind)})
}

func totalSubKey(kind Kind) meridian.Bytes32 {
	return meridian.Blake2b([]byte("total-sub"), []byte{byte(kind)})
}

// Token provides access to the asset ledger rooted at a system account.
type Token struct {
	addr  meridian.Address
	state *state.State
}

// New create a new instance.
func New(addr meridian.Address, state *state.State) *Token {
	return &Token{addr, state}
}

func (t *Token) getAmount(key meridian.Bytes32) (*big.Int, error) {
	amount := new(big.Int)
	if err := t.state.DecodeStorage(t.addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, amount)
	}); err != nil {
		return nil, err
	}
	return amount, nil
}

func (t *Token) setAmount(key meridian.Bytes32, amount *big.Int) error {
	return t.state.EncodeStorage(t.addr, key, func() ([]byte, error) {
		if amount.Sign() == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(amount)
	})
}

// InitializeSupply sets the genesis supply of the kind and credits it to the holder.
func (t *Token) InitializeSupply(kind Kind, holder meridian.Address, supply *big.Int) error {
	if err := t.setAmount(supplyKey(kind), supply); err != nil {
		return err
	}
	return t.setAmount(accountKey(kind, holder), supply)
}

// Balance returns the balance of the account.
func (t *Token) Balance(kind Kind, addr meridian.Address) (*big.Int, error) {
	return t.getAmount(accountKey(kind, addr))
}

// TotalSupply returns the circulating supply of the kind.
func (t *Token) TotalSupply(kind Kind) (*big.Int, error) {
	supply, err := t.getAmount(supplyKey(kind))
	if err != nil {
		return nil, err
	}
	added, err := t.getAmount(totalAddKey(kind))
	if err != nil {
		return nil, err
	}
	subbed, err := t.getAmount(totalSubKey(kind))
	if err != nil {
		return nil, err
	}
	supply.Add(supply, added)
	return supply.Sub(supply, subbed), nil
}

// Transfer moves amount between two accounts.
// Returns false without modifying anything if the sender balance is insufficient.
func (t *Token) Transfer(kind Kind, from, to meridian.Address, amount *big.Int) (bool, error) {
	if amount.Sign() < 0 {
		return false, errors.New("negative transfer amount")
	}
	fromKey := accountKey(kind, from)
	bal, err := t.getAmount(fromKey)
	if err != nil {
		return false, err
	}
	if bal.Cmp(amount) < 0 {
		return false, nil
	}
	if amount.Sign() == 0 || from == to {
		return true, nil
	}
	if err := t.setAmount(fromKey, bal.Sub(bal, amount)); err != nil {
		return false, err
	}
	toKey := accountKey(kind, to)
	bal, err = t.getAmount(toKey)
	if err != nil {
		return false, err
	}
	return true, t.setAmount(toKey, bal.Add(bal, amount))
}

// ErrInsufficient reports a transfer declined for lack of balance.
var ErrInsufficient = errors.New("insufficient balance")

// Pull moves amount of kind from the holder into the staking pool.
// It declines with ErrInsufficient when the holder cannot cover it.
func (t *Token) Pull(kind Kind, from meridian.Address, amount *big.Int) error {
	ok, err := t.Transfer(kind, from, meridian.StakingPoolAddress, amount)
	if err != nil {
		return err
	}
	if !ok {
		return errors.WithMessagef(ErrInsufficient, "pulling %v %v from %v", amount, kind, from)
	}
	return nil
}

// Push pays amount of kind out of the staking pool to the holder.
// It declines with ErrInsufficient when the pool cannot cover it.
func (t *Token) Push(kind Kind, to meridian.Address, amount *big.Int) error {
	ok, err := t.Transfer(kind, meridian.StakingPoolAddress, to, amount)
	if err != nil {
		return err
	}
	if !ok {
		return errors.WithMessagef(ErrInsufficient, "pushing %v %v to %v", amount, kind, to)
	}
	return nil
}

// Mint creates amount of the kind on the account and grows the supply.
func (t *Token) Mint(kind Kind, addr meridian.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errors.New("negative mint amount")
	}
	key := accountKey(kind, addr)
	bal, err := t.getAmount(key)
	if err != nil {
		return err
	}
	if err := t.setAmount(key, bal.Add(bal, amount)); err != nil {
		return err
	}
	added, err := t.getAmount(totalAddKey(kind))
	if err != nil {
		return err
	}
	return t.setAmount(totalAddKey(kind), added.Add(added, amount))
}

// Burn destroys amount of the kind on the account and shrinks the supply.
// Returns false without modifying anything if the balance is insufficient.
func (t *Token) Burn(kind Kind, addr meridian.Address, amount *big.Int) (bool, error) {
	if amount.Sign() < 0 {
		return false, errors.New("negative burn amount")
	}
	key := accountKey(kind, addr)
	bal, err := t.getAmount(key)
	if err != nil {
		return false, err
	}
	if bal.Cmp(amount) < 0 {
		return false, nil
	}
	if err := t.setAmount(key, bal.Sub(bal, amount)); err != nil {
		return false, err
	}
	subbed, err := t.getAmount(totalSubKey(kind))
	if err != nil {
		return false, err
	}
	return true, t.setAmount(totalSubKey(kind), subbed.Add(subbed, amount))
}
