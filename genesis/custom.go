// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meridianchain/meridian/authority"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/state"
	"github.com/meridianchain/meridian/token"
	"github.com/meridianchain/meridian/xenv"
)

// CustomGenesis is a user customized network definition.
type CustomGenesis struct {
	Name          string    `yaml:"name"`
	LaunchTime    uint64    `yaml:"launchTime"`
	EpochLength   uint32    `yaml:"epochLength,omitempty"`
	BlockInterval uint64    `yaml:"blockInterval,omitempty"`
	Accounts      []Account `yaml:"accounts,omitempty"`
	AllowList     []Entry   `yaml:"allowList"`
	Params        Params    `yaml:"params,omitempty"`
}

// Account funds an address at launch.
type Account struct {
	Address string `yaml:"address"`
	MER     string `yaml:"mer,omitempty"`
	WMER    string `yaml:"wmer,omitempty"`
}

// Entry admits a validator owner to the allow list at launch. Identity is
// either 0x-prefixed hex of 32 bytes or a free-form label.
type Entry struct {
	Owner    string `yaml:"owner"`
	Identity string `yaml:"identity,omitempty"`
}

// Params overrides the initial governance schedule. Amounts accept decimal
// or 0x-prefixed hex. Empty fields inherit the defaults.
type Params struct {
	ValidatorThreshold string `yaml:"validatorThreshold,omitempty"`
	RewardRate         string `yaml:"rewardRate,omitempty"`
	JailPeriod         string `yaml:"jailPeriod,omitempty"`
	CommissionDelay    string `yaml:"commissionDelay,omitempty"`
	SlashJailThreshold string `yaml:"slashJailThreshold,omitempty"`
	SlashUptimePenalty string `yaml:"slashUptimePenalty,omitempty"`
	ExpectedBlocks     string `yaml:"expectedBlocks,omitempty"`
	MaxCommission      string `yaml:"maxCommission,omitempty"`
}

// LoadCustomGenesis decodes a yaml network definition. Unknown fields are
// rejected to catch typos early.
func LoadCustomGenesis(r io.Reader) (*CustomGenesis, error) {
	gen := new(CustomGenesis)
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(gen); err != nil {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	return gen, nil
}

// NewCustomNet create custom network genesis.
func NewCustomNet(gen *CustomGenesis) (*Genesis, error) {
	if gen.Name == "" {
		return nil, errors.New("name must be set")
	}
	if len(gen.AllowList) == 0 {
		return nil, errors.New("at least one allow-list entry")
	}

	// resolve the whole definition before any state is touched
	type grant struct {
		addr meridian.Address
		mer  *big.Int
		wmer *big.Int
	}
	grants := make([]grant, 0, len(gen.Accounts))
	for _, a := range gen.Accounts {
		addr, err := meridian.ParseAddress(a.Address)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", a.Address, err)
		}
		mer, err := parseAmount(a.MER)
		if err != nil {
			return nil, fmt.Errorf("account %v: mer: %w", addr, err)
		}
		wmer, err := parseAmount(a.WMER)
		if err != nil {
			return nil, fmt.Errorf("account %v: wmer: %w", addr, err)
		}
		if mer.Sign() == 0 && wmer.Sign() == 0 {
			return nil, fmt.Errorf("account %v: no balance set", addr)
		}
		grants = append(grants, grant{addr, mer, wmer})
	}

	type listed struct {
		owner    meridian.Address
		identity meridian.Bytes32
	}
	entries := make([]listed, 0, len(gen.AllowList))
	for _, e := range gen.AllowList {
		owner, err := meridian.ParseAddress(e.Owner)
		if err != nil {
			return nil, fmt.Errorf("allow-list entry %q: %w", e.Owner, err)
		}
		identity, err := parseIdentity(e.Identity)
		if err != nil {
			return nil, fmt.Errorf("allow-list entry %v: %w", owner, err)
		}
		entries = append(entries, listed{owner, identity})
	}

	schedule, err := gen.paramSchedule()
	if err != nil {
		return nil, err
	}

	builder := new(Builder).
		Timestamp(gen.LaunchTime).
		State(func(st *state.State) error {
			tok := token.New(meridian.TokenAddress, st)
			for _, g := range grants {
				if g.mer.Sign() > 0 {
					if err := tok.Mint(token.MER, g.addr, g.mer); err != nil {
						return err
					}
				}
				if g.wmer.Sign() > 0 {
					if err := tok.Mint(token.WMER, g.addr, g.wmer); err != nil {
						return err
					}
				}
			}

			auth := authority.New(meridian.AuthorityAddress, st)
			for _, e := range entries {
				added, err := auth.Add(e.owner, e.identity, 0)
				if err != nil {
					return err
				}
				if !added {
					return fmt.Errorf("duplicate allow-list entry %v", e.owner)
				}
			}

			return scheduleParams(st, schedule)
		})

	id, err := builder.ComputeID()
	if err != nil {
		return nil, err
	}

	cfg := xenv.Config{EpochLength: gen.EpochLength, BlockInterval: gen.BlockInterval}
	return &Genesis{builder, id, gen.Name, cfg}, nil
}

// paramSchedule merges the overrides into the default schedule.
func (gen *CustomGenesis) paramSchedule() ([]paramValue, error) {
	overrides := []struct {
		name string
		raw  string
		key  meridian.Bytes32
	}{
		{"validatorThreshold", gen.Params.ValidatorThreshold, meridian.KeyValidatorThreshold},
		{"rewardRate", gen.Params.RewardRate, meridian.KeyRewardRate},
		{"jailPeriod", gen.Params.JailPeriod, meridian.KeyJailPeriod},
		{"commissionDelay", gen.Params.CommissionDelay, meridian.KeyCommissionDelay},
		{"slashJailThreshold", gen.Params.SlashJailThreshold, meridian.KeySlashJailThreshold},
		{"slashUptimePenalty", gen.Params.SlashUptimePenalty, meridian.KeySlashUptimePenalty},
		{"expectedBlocks", gen.Params.ExpectedBlocks, meridian.KeyExpectedBlocks},
		{"maxCommission", gen.Params.MaxCommission, meridian.KeyMaxCommission},
	}

	byKey := make(map[meridian.Bytes32]*big.Int)
	for _, o := range overrides {
		if o.raw == "" {
			continue
		}
		value, err := parseAmount(o.raw)
		if err != nil {
			return nil, fmt.Errorf("params.%s: %w", o.name, err)
		}
		byKey[o.key] = value
	}

	schedule := initialParams()
	for i := range schedule {
		if value, ok := byKey[schedule[i].key]; ok {
			schedule[i].value = value
		}
	}
	return schedule, nil
}

// parseAmount accepts a non-negative decimal or 0x-prefixed hex integer.
// An empty string parses to zero.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	digits, base := s, 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits, base = s[2:], 16
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return n, nil
}

func parseIdentity(s string) (meridian.Bytes32, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return meridian.ParseBytes32(s)
	}
	return meridian.BytesToBytes32([]byte(s)), nil
}
