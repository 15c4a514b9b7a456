// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakingapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/meridian/api/stakingapi"
	"github.com/meridianchain/meridian/authority"
	"github.com/meridianchain/meridian/lvldb"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/params"
	"github.com/meridianchain/meridian/staking"
	"github.com/meridianchain/meridian/state"
	"github.com/meridianchain/meridian/token"
	"github.com/meridianchain/meridian/xenv"
)

var (
	sealer   = meridian.BytesToAddress([]byte("sealer"))
	owner    = meridian.BytesToAddress([]byte("owner"))
	operator = meridian.BytesToAddress([]byte("operator"))
	alice    = meridian.BytesToAddress([]byte("alice"))
	bob      = meridian.BytesToAddress([]byte("bob"))
	identity = meridian.BytesToBytes32([]byte("identity"))
)

// testBackend drives the engine the way the block producer does: views run
// against the best block, submissions apply inside the next one.
type testBackend struct {
	mu   sync.Mutex
	best uint32
	cfg  xenv.Config
	par  *params.Params
	stk  *staking.Staking
}

func (b *testBackend) env(num uint32) *xenv.Environment {
	return xenv.New(b.cfg, b.par, &xenv.BlockContext{
		Number: num,
		Time:   uint64(num) * b.cfg.BlockInterval,
		Signer: sealer,
	})
}

func (b *testBackend) Best() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.best
}

func (b *testBackend) View(fn func(env *xenv.Environment, stk *staking.Staking) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(b.env(b.best), b.stk)
}

func (b *testBackend) Submit(_ context.Context, fn func(env *xenv.Environment, stk *staking.Staking) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := fn(b.env(b.best+1), b.stk); err != nil {
		return err
	}
	b.best++
	return nil
}

func (b *testBackend) jumpTo(num uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.best = num
}

type fixture struct {
	t       *testing.T
	ts      *httptest.Server
	backend *testBackend
	auth    *authority.Authority
	tok     *token.Token
}

// newFixture serves the api over a real engine. Epochs are 10 blocks long,
// submissions start landing at block 5.
func newFixture(t *testing.T) *fixture {
	db, _ := lvldb.NewMem()
	st := state.New(db)
	auth := authority.New(meridian.AuthorityAddress, st)
	tok := token.New(meridian.TokenAddress, st)
	par := params.New(meridian.ParamsAddress, st)
	stk := staking.New(meridian.StakingAddress, st, auth, tok, nil)

	for key, value := range map[meridian.Bytes32]int64{
		meridian.KeyValidatorThreshold: 500,
		meridian.KeyRewardRate:         10000,
		meridian.KeyJailPeriod:         5,
		meridian.KeyCommissionDelay:    1,
		meridian.KeySlashJailThreshold: 3,
		meridian.KeyMaxCommission:      2000,
	} {
		require.NoError(t, par.Schedule(key, 0, big.NewInt(value)))
	}

	backend := &testBackend{
		best: 4,
		cfg:  xenv.Config{EpochLength: 10, BlockInterval: 2},
		par:  par,
		stk:  stk,
	}

	router := mux.NewRouter()
	stakingapi.New(backend).Mount(router, "/staking")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &fixture{t: t, ts: ts, backend: backend, auth: auth, tok: tok}
}

func (f *fixture) httpGet(path string) ([]byte, int) {
	res, err := http.Get(f.ts.URL + path)
	require.NoError(f.t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(f.t, err)
	return body, res.StatusCode
}

func (f *fixture) httpPost(path string, obj any) ([]byte, int) {
	data, err := json.Marshal(obj)
	require.NoError(f.t, err)
	res, err := http.Post(f.ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(f.t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(f.t, err)
	return body, res.StatusCode
}

func (f *fixture) allow(addr meridian.Address) {
	ok, err := f.auth.Add(addr, identity, 0)
	require.NoError(f.t, err)
	require.True(f.t, ok)
}

func (f *fixture) fund(addr meridian.Address, amount int64) {
	require.NoError(f.t, f.tok.Mint(token.MER, addr, big.NewInt(amount)))
}

func (f *fixture) join(owner, operator meridian.Address) {
	_, code := f.httpPost("/staking/validators", &stakingapi.JoinRequest{
		Owner:    owner,
		Operator: operator,
	})
	require.Equal(f.t, http.StatusOK, code)
}

func (f *fixture) stake(staker, validator meridian.Address, amount int64) {
	_, code := f.httpPost("/staking/stakes", &stakingapi.StakeRequest{
		Staker:    staker,
		Validator: validator,
		Kind:      "MER",
		Amount:    (*math.HexOrDecimal256)(big.NewInt(amount)),
	})
	require.Equal(f.t, http.StatusOK, code)
}

func TestClock(t *testing.T) {
	f := newFixture(t)

	body, code := f.httpGet("/staking/clock")
	require.Equal(t, http.StatusOK, code)

	var clock stakingapi.Clock
	require.NoError(t, json.Unmarshal(body, &clock))
	assert.Equal(t, uint32(4), clock.Best)
	assert.Equal(t, uint64(0), clock.Epoch)
	assert.Equal(t, uint32(10), clock.EpochLength)
	assert.Equal(t, uint64(2), clock.BlockInterval)
	assert.False(t, clock.SealingBlock)
}

func TestJoinAndValidatorQueries(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.join(owner, operator)

	body, code := f.httpGet("/staking/validators/" + owner.String())
	require.Equal(t, http.StatusOK, code)
	var view staking.ValidatorView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, owner, view.Owner)
	assert.Equal(t, operator, view.Operator)
	assert.Equal(t, "active", view.Status)
	assert.False(t, view.Eligible)

	_, code = f.httpGet("/staking/validators/" + alice.String())
	assert.Equal(t, http.StatusNotFound, code)

	_, code = f.httpGet("/staking/validators/nonsense")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestJoinUnlisted(t *testing.T) {
	f := newFixture(t)

	_, code := f.httpPost("/staking/validators", &stakingapi.JoinRequest{
		Owner:    owner,
		Operator: operator,
	})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestUpdateOperator(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.join(owner, operator)

	op2 := meridian.BytesToAddress([]byte("operator2"))
	_, code := f.httpPost("/staking/validators/"+owner.String()+"/operator", &stakingapi.OperatorRequest{Operator: op2})
	require.Equal(t, http.StatusOK, code)

	body, _ := f.httpGet("/staking/validators/" + owner.String())
	var view staking.ValidatorView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, op2, view.Operator)

	// unknown owner
	_, code = f.httpPost("/staking/validators/"+alice.String()+"/operator", &stakingapi.OperatorRequest{Operator: op2})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestScheduleStatus(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.join(owner, operator)

	_, code := f.httpPost("/staking/validators/"+owner.String()+"/deactivate", &stakingapi.StatusRequest{
		Caller: owner,
		Epochs: []uint64{2, 3},
	})
	require.Equal(t, http.StatusOK, code)

	body, _ := f.httpGet("/staking/validators/" + owner.String() + "?epoch=2")
	var view staking.ValidatorView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "inactive", view.Status)

	// a stranger may not schedule
	_, code = f.httpPost("/staking/validators/"+owner.String()+"/activate", &stakingapi.StatusRequest{
		Caller: alice,
		Epochs: []uint64{2},
	})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestUpdateCommission(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.join(owner, operator)

	body, code := f.httpPost("/staking/validators/"+owner.String()+"/commission", &stakingapi.CommissionRequest{Caller: owner, RateBps: 1500})
	require.Equal(t, http.StatusOK, code)
	var resp stakingapi.CommissionResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, uint64(1), resp.EffectiveEpoch)

	// above the governance cap
	_, code = f.httpPost("/staking/validators/"+owner.String()+"/commission", &stakingapi.CommissionRequest{Caller: owner, RateBps: 2500})
	assert.Equal(t, http.StatusBadRequest, code)

	_, code = f.httpPost("/staking/validators/"+owner.String()+"/commission", &stakingapi.CommissionRequest{Caller: alice, RateBps: 1000})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestStakeFlow(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.join(owner, operator)
	f.fund(alice, 1000)

	body, code := f.httpPost("/staking/stakes", &stakingapi.StakeRequest{
		Staker:    alice,
		Validator: owner,
		Kind:      "MER",
		Amount:    (*math.HexOrDecimal256)(big.NewInt(800)),
	})
	require.Equal(t, http.StatusOK, code)
	var out map[string]uint64
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, uint64(1), out["effectiveEpoch"])

	// the bond is scheduled, not yet active
	body, code = f.httpGet("/staking/stakers/" + alice.String())
	require.Equal(t, http.StatusOK, code)
	var sv staking.StakerView
	require.NoError(t, json.Unmarshal(body, &sv))
	require.Len(t, sv.Delegations, 1)
	require.Len(t, sv.Delegations[0].Bonds, 1)
	bond := sv.Delegations[0].Bonds[0]
	assert.Equal(t, "0", bond.Amount.String())
	assert.Equal(t, "800", bond.Scheduled.String())
	assert.Equal(t, "800", bond.Pending.String())

	// resolved at its effective epoch
	body, _ = f.httpGet("/staking/stakers/" + alice.String() + "?epoch=1")
	require.NoError(t, json.Unmarshal(body, &sv))
	assert.Equal(t, "800", sv.Delegations[0].Bonds[0].Amount.String())

	// rejects
	_, code = f.httpPost("/staking/stakes", &stakingapi.StakeRequest{Staker: alice, Validator: owner, Kind: "XYZ", Amount: (*math.HexOrDecimal256)(big.NewInt(1))})
	assert.Equal(t, http.StatusBadRequest, code)
	_, code = f.httpPost("/staking/stakes", &stakingapi.StakeRequest{Staker: alice, Validator: owner, Kind: "MER"})
	assert.Equal(t, http.StatusBadRequest, code)
	_, code = f.httpPost("/staking/stakes", &stakingapi.StakeRequest{Staker: alice, Validator: owner, Kind: "MER", Amount: (*math.HexOrDecimal256)(big.NewInt(0))})
	assert.Equal(t, http.StatusBadRequest, code)
	_, code = f.httpPost("/staking/stakes", &stakingapi.StakeRequest{Staker: alice, Validator: bob, Kind: "MER", Amount: (*math.HexOrDecimal256)(big.NewInt(1))})
	assert.Equal(t, http.StatusNotFound, code)
	// an unfunded staker fails on the ledger pull
	_, code = f.httpPost("/staking/stakes", &stakingapi.StakeRequest{Staker: bob, Validator: owner, Kind: "MER", Amount: (*math.HexOrDecimal256)(big.NewInt(1))})
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestValidatorSets(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.allow(bob)
	f.join(owner, operator)
	f.join(bob, bob)
	f.fund(alice, 2000)
	f.stake(alice, owner, 600)
	f.stake(alice, bob, 700)

	// stakes only take effect next epoch
	body, code := f.httpGet("/staking/validators/current")
	require.Equal(t, http.StatusOK, code)
	var set []*staking.ValidatorView
	require.NoError(t, json.Unmarshal(body, &set))
	assert.Len(t, set, 0)

	body, _ = f.httpGet("/staking/validators/next")
	require.NoError(t, json.Unmarshal(body, &set))
	assert.Len(t, set, 2)

	f.backend.jumpTo(12)
	body, _ = f.httpGet("/staking/validators/current")
	require.NoError(t, json.Unmarshal(body, &set))
	require.Len(t, set, 2)
	assert.True(t, set[0].Eligible)
}

func TestListValidatorsPaging(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.allow(bob)
	f.join(owner, operator)
	f.join(bob, bob)

	body, code := f.httpGet("/staking/validators?page=2&perPage=1")
	require.Equal(t, http.StatusOK, code)
	var page []*staking.ValidatorView
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page, 1)
	assert.Equal(t, bob, page[0].Owner)

	// pages past the registry are padded with empty views
	body, _ = f.httpGet("/staking/validators?page=5&perPage=1")
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page, 1)
	assert.Equal(t, meridian.Address{}, page[0].Owner)

	_, code = f.httpGet("/staking/validators?page=x")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestValidatorStakers(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.join(owner, operator)
	f.fund(alice, 600)
	f.fund(bob, 400)
	f.stake(alice, owner, 600)
	f.stake(bob, owner, 400)

	body, code := f.httpGet("/staking/validators/" + owner.String() + "/stakers?perPage=2")
	require.Equal(t, http.StatusOK, code)
	var page []*staking.ValidatorStakerView
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page, 2)
	assert.Equal(t, alice, page[0].Staker)
	assert.Equal(t, "0", page[0].Stake.String())
	assert.Equal(t, "600", page[0].Scheduled.String())
	assert.Equal(t, bob, page[1].Staker)

	// bonds resolve at the queried epoch
	body, _ = f.httpGet("/staking/validators/" + owner.String() + "/stakers?perPage=1&epoch=1")
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page, 1)
	assert.Equal(t, "600", page[0].Stake.String())

	// short pages are padded
	body, _ = f.httpGet("/staking/validators/" + owner.String() + "/stakers?page=3&perPage=2")
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page, 2)
	assert.Equal(t, meridian.Address{}, page[0].Staker)
}

func TestUnstakeAndClaims(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.join(owner, operator)
	f.fund(alice, 1000)
	f.stake(alice, owner, 1000)

	f.backend.jumpTo(15)

	body, code := f.httpPost("/staking/unstakes", &stakingapi.UnstakeRequest{
		Staker:    alice,
		Validator: owner,
		Kind:      "MER",
		Amount:    (*math.HexOrDecimal256)(big.NewInt(400)),
	})
	require.Equal(t, http.StatusOK, code)
	var unstake stakingapi.UnstakeResponse
	require.NoError(t, json.Unmarshal(body, &unstake))
	assert.Equal(t, "400", unstake.Removed.String())
	assert.Equal(t, uint64(2), unstake.Claimable)

	// nothing matures within epoch 1
	body, code = f.httpPost("/staking/unstakes/claims", &stakingapi.ClaimUnstakesRequest{Staker: alice})
	require.Equal(t, http.StatusOK, code)
	var settled []*stakingapi.SettledUnstake
	require.NoError(t, json.Unmarshal(body, &settled))
	assert.Len(t, settled, 0)

	f.backend.jumpTo(25)
	body, code = f.httpPost("/staking/unstakes/claims", &stakingapi.ClaimUnstakesRequest{Staker: alice})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &settled))
	require.Len(t, settled, 1)
	assert.Equal(t, owner, settled[0].Validator)
	assert.Equal(t, "MER", settled[0].Kind)
	assert.Equal(t, "400", settled[0].Amount.String())

	balance, err := f.tok.Balance(token.MER, alice)
	require.NoError(t, err)
	assert.Equal(t, "400", balance.String())

	// unknown delegation
	_, code = f.httpPost("/staking/unstakes", &stakingapi.UnstakeRequest{
		Staker:    bob,
		Validator: owner,
		Kind:      "MER",
		Amount:    (*math.HexOrDecimal256)(big.NewInt(1)),
	})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRewardClaimsEmptyWindow(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.join(owner, operator)
	f.fund(alice, 1000)
	f.stake(alice, owner, 1000)

	f.backend.jumpTo(25) // epoch 2, epochs 0 and 1 completed

	body, code := f.httpPost("/staking/rewards/claims", &stakingapi.RewardsClaimRequest{
		Staker:    alice,
		Validator: owner,
		Count:     5,
	})
	require.Equal(t, http.StatusOK, code)
	var claim staking.ClaimResult
	require.NoError(t, json.Unmarshal(body, &claim))
	assert.Equal(t, uint64(1), claim.From)
	assert.Equal(t, uint64(1), claim.To)
	assert.Equal(t, "0", claim.Amount.String())

	body, code = f.httpPost("/staking/commissions/claims", &stakingapi.CommissionsClaimRequest{
		Owner: owner,
		Count: 5,
	})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &claim))
	assert.Equal(t, "0", claim.Amount.String())
}

func TestSlash(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.join(owner, operator)

	body, code := f.httpPost("/staking/slashes", &stakingapi.SlashRequest{Operator: operator, Blocks: 2})
	require.Equal(t, http.StatusOK, code)
	var resp stakingapi.SlashResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, uint64(2), resp.Slashes)
	assert.False(t, resp.Jailed)

	// crossing the threshold jails until epoch 0 + jail period
	body, code = f.httpPost("/staking/slashes", &stakingapi.SlashRequest{Operator: operator, Blocks: 1})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, uint64(3), resp.Slashes)
	assert.True(t, resp.Jailed)
	assert.Equal(t, uint64(5), resp.Until)

	_, code = f.httpPost("/staking/slashes", &stakingapi.SlashRequest{Operator: alice, Blocks: 1})
	assert.Equal(t, http.StatusNotFound, code)
	_, code = f.httpPost("/staking/slashes", &stakingapi.SlashRequest{Operator: operator, Blocks: 0})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEpochDigest(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.join(owner, operator)
	f.fund(alice, 1000)
	f.stake(alice, owner, 800)

	// seal epoch 0 on its closing block
	f.backend.jumpTo(9)
	_, err := f.backend.stk.SealEpoch(f.backend.env(9))
	require.NoError(t, err)
	f.backend.jumpTo(10)

	body, code := f.httpGet("/staking/epochs/0/digest")
	require.Equal(t, http.StatusOK, code)
	var sealed struct {
		Epoch      uint64 `json:"epoch"`
		Digest     string `json:"digest"`
		FirstBlock uint32 `json:"firstBlock"`
		LastBlock  uint32 `json:"lastBlock"`
	}
	require.NoError(t, json.Unmarshal(body, &sealed))
	assert.Equal(t, uint64(0), sealed.Epoch)
	assert.NotEqual(t, meridian.Bytes32{}.String(), sealed.Digest)
	assert.Equal(t, uint32(0), sealed.FirstBlock)
	assert.Equal(t, uint32(9), sealed.LastBlock)

	_, code = f.httpGet("/staking/epochs/3/digest")
	assert.Equal(t, http.StatusNotFound, code)

	_, code = f.httpGet("/staking/epochs/x/digest")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTotals(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.join(owner, operator)
	f.fund(alice, 1000)
	f.stake(alice, owner, 800)

	body, code := f.httpGet("/staking/totals?epoch=1")
	require.Equal(t, http.StatusOK, code)
	var totals stakingapi.TotalsView
	require.NoError(t, json.Unmarshal(body, &totals))
	assert.Equal(t, uint64(1), totals.Epoch)
	assert.Equal(t, "800", totals.TotalStake.String())

	_, code = f.httpGet("/staking/totals?epoch=x")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMutationsRejectedOnSealingBlock(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	f.backend.jumpTo(8) // the next block closes epoch 0

	_, code := f.httpPost("/staking/validators", &stakingapi.JoinRequest{
		Owner:    owner,
		Operator: operator,
	})
	assert.Equal(t, http.StatusBadRequest, code)
}
