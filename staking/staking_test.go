// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package staking

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridianchain/meridian/authority"
	"github.com/meridianchain/meridian/lvldb"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/params"
	"github.com/meridianchain/meridian/staking/reverts"
	"github.com/meridianchain/meridian/state"
	"github.com/meridianchain/meridian/token"
	"github.com/meridianchain/meridian/xenv"
)

var (
	owner    = meridian.BytesToAddress([]byte("owner"))
	operator = meridian.BytesToAddress([]byte("operator"))
	alice    = meridian.BytesToAddress([]byte("alice"))
	bob      = meridian.BytesToAddress([]byte("bob"))
	identity = meridian.BytesToBytes32([]byte("identity"))
)

type fixture struct {
	t    *testing.T
	st   *state.State
	auth *authority.Authority
	tok  *token.Token
	par  *params.Params
	stk  *Staking
	cfg  xenv.Config
}

// newFixture wires the engine against real collaborators over an in-memory
// state. Epochs are 10 blocks long; rewards run at 100% of stake per epoch
// with full uptime, so the arithmetic of the scenarios stays legible.
func newFixture(t *testing.T) *fixture {
	db, _ := lvldb.NewMem()
	st := state.New(db)

	f := &fixture{
		t:    t,
		st:   st,
		auth: authority.New(meridian.AuthorityAddress, st),
		tok:  token.New(meridian.TokenAddress, st),
		par:  params.New(meridian.ParamsAddress, st),
		cfg:  xenv.Config{EpochLength: 10, BlockInterval: 2},
	}
	f.stk = New(meridian.StakingAddress, st, f.auth, f.tok, nil)

	f.schedule(meridian.KeyValidatorThreshold, 500)
	f.schedule(meridian.KeyRewardRate, 10000)
	f.schedule(meridian.KeyJailPeriod, 5)
	f.schedule(meridian.KeyCommissionDelay, 1)
	f.schedule(meridian.KeySlashJailThreshold, 3)
	f.schedule(meridian.KeyMaxCommission, 2000)
	return f
}

func (f *fixture) schedule(key meridian.Bytes32, value int64) {
	assert.Nil(f.t, f.par.Schedule(key, 0, big.NewInt(value)))
}

func (f *fixture) env(blockNum uint32, signer meridian.Address) *xenv.Environment {
	return xenv.New(f.cfg, f.par, &xenv.BlockContext{
		Number: blockNum,
		Time:   uint64(blockNum) * f.cfg.BlockInterval,
		Signer: signer,
	})
}

func (f *fixture) allow(addr meridian.Address) {
	ok, err := f.auth.Add(addr, identity, 0)
	assert.Nil(f.t, err)
	assert.True(f.t, ok)
}

func (f *fixture) fund(addr meridian.Address, amount int64) {
	assert.Nil(f.t, f.tok.Mint(token.MER, addr, big.NewInt(amount)))
}

func (f *fixture) balance(kind token.Kind, addr meridian.Address) *big.Int {
	b, err := f.tok.Balance(kind, addr)
	assert.Nil(f.t, err)
	return b
}

func TestJoin(t *testing.T) {
	f := newFixture(t)
	env := f.env(5, operator)

	// admission requires the allow-list
	err := f.stk.Join(env, owner, operator)
	assert.True(t, errors.Is(err, reverts.ErrUnauthorized))

	f.allow(owner)
	assert.Nil(t, f.stk.Join(env, owner, operator))

	info, err := f.stk.ValidatorInfo(env, owner, 0)
	assert.Nil(t, err)
	assert.Equal(t, operator, info.Operator)
	assert.Equal(t, "active", info.Status)
	assert.Equal(t, uint64(0), info.JoinedAt)

	// rejoining re-binds the operator
	op2 := meridian.BytesToAddress([]byte("operator2"))
	assert.Nil(t, f.stk.Join(env, owner, op2))
	info, err = f.stk.ValidatorInfo(env, owner, 0)
	assert.Nil(t, err)
	assert.Equal(t, op2, info.Operator)

	_, err = f.stk.ValidatorInfo(env, alice, 0)
	assert.True(t, errors.Is(err, reverts.ErrNotFound))
	assert.Nil(t, f.st.Err())
}

func TestUpdateOperator(t *testing.T) {
	f := newFixture(t)
	env := f.env(5, operator)
	f.allow(owner)
	assert.Nil(t, f.stk.Join(env, owner, operator))

	op2 := meridian.BytesToAddress([]byte("operator2"))
	assert.Nil(t, f.stk.UpdateOperator(env, owner, op2))

	info, err := f.stk.ValidatorInfo(env, owner, 0)
	assert.Nil(t, err)
	assert.Equal(t, op2, info.Operator)

	err = f.stk.UpdateOperator(env, alice, op2)
	assert.True(t, errors.Is(err, reverts.ErrNotFound))
}

func TestStatusScheduling(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env, owner, operator))

	// only the owner or the operator may schedule
	err := f.stk.Deactivate(env, alice, owner, []uint64{2})
	assert.True(t, errors.Is(err, reverts.ErrUnauthorized))

	assert.Nil(t, f.stk.Deactivate(env, operator, owner, []uint64{2}))
	assert.Nil(t, f.stk.Activate(env, owner, owner, []uint64{4}))

	for epoch, want := range map[uint64]string{0: "active", 2: "inactive", 3: "inactive", 4: "active"} {
		info, err := f.stk.ValidatorInfo(env, owner, epoch)
		assert.Nil(t, err)
		assert.Equal(t, want, info.Status, "epoch %d", epoch)
	}

	err = f.stk.Deactivate(env, owner, owner, nil)
	assert.True(t, errors.Is(err, reverts.ErrInvalidAmount))

	err = f.stk.Activate(f.env(15, operator), owner, owner, []uint64{0})
	assert.True(t, errors.Is(err, reverts.ErrInvalidTiming))
}

func TestCommissionCapAndDelay(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env, owner, operator))

	_, err := f.stk.UpdateCommissionRate(env, owner, owner, 2500)
	assert.True(t, errors.Is(err, reverts.ErrInvalidAmount))

	_, err = f.stk.UpdateCommissionRate(env, alice, owner, 1200)
	assert.True(t, errors.Is(err, reverts.ErrUnauthorized))

	// the change waits at least one full epoch
	eff, err := f.stk.UpdateCommissionRate(env, owner, owner, 1500)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), eff)

	// a configured delay pushes the effective epoch out; the operator may
	// schedule as well
	assert.Nil(t, f.par.Schedule(meridian.KeyCommissionDelay, 1, big.NewInt(4)))
	env1 := f.env(15, operator)
	eff, err = f.stk.UpdateCommissionRate(env1, operator, owner, 800)
	assert.Nil(t, err)
	assert.Equal(t, uint64(5), eff)

	info, err := f.stk.ValidatorInfo(env1, owner, 1)
	assert.Nil(t, err)
	assert.Equal(t, uint32(1500), info.Commission)
	info, err = f.stk.ValidatorInfo(env1, owner, 5)
	assert.Nil(t, err)
	assert.Equal(t, uint32(800), info.Commission)
}

func TestStakeMovesFunds(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env, owner, operator))
	f.fund(alice, 1000)

	err := f.stk.Stake(env, alice, owner, token.WMER, nil)
	assert.True(t, errors.Is(err, reverts.ErrInvalidAmount))
	err = f.stk.Stake(env, alice, owner, token.SMER, big.NewInt(100))
	assert.True(t, errors.Is(err, reverts.ErrInvalidAmount))
	err = f.stk.Stake(env, alice, bob, token.MER, big.NewInt(100))
	assert.True(t, errors.Is(err, reverts.ErrNotFound))
	// a declined pull is an upstream failure and commits nothing
	err = f.stk.Stake(env, alice, owner, token.MER, big.NewInt(2000))
	assert.True(t, errors.Is(err, reverts.ErrUpstreamFailure))
	assert.True(t, errors.Is(err, token.ErrInsufficient))
	assert.Equal(t, big.NewInt(1000), f.balance(token.MER, alice))

	assert.Nil(t, f.stk.Stake(env, alice, owner, token.MER, big.NewInt(1000)))

	// funds in the pool, receipts minted, bond effective next epoch
	assert.Equal(t, big.NewInt(0).String(), f.balance(token.MER, alice).String())
	assert.Equal(t, big.NewInt(1000), f.balance(token.MER, meridian.StakingPoolAddress))
	assert.Equal(t, big.NewInt(1000), f.balance(token.SMER, alice))

	info, err := f.stk.ValidatorInfo(env, owner, 0)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), info.Stake.Int64())
	assert.Equal(t, big.NewInt(1000), info.Scheduled)
	info, err = f.stk.ValidatorInfo(env, owner, 1)
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(1000), info.Stake)
	assert.Nil(t, f.st.Err())
}

func TestUnstakeAndClaim(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env0 := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env0, owner, operator))
	f.fund(alice, 1000)
	assert.Nil(t, f.stk.Stake(env0, alice, owner, token.MER, big.NewInt(1000)))

	// nothing effective yet, nothing to remove
	removed, err := f.stk.Unstake(env0, alice, owner, token.MER, big.NewInt(400))
	assert.Nil(t, err)
	assert.Equal(t, int64(0), removed.Int64())

	_, err = f.stk.Unstake(env0, bob, owner, token.MER, big.NewInt(400))
	assert.True(t, errors.Is(err, reverts.ErrNotFound))

	// epoch 1: the bond is effective, withdrawal claimable at epoch 2
	env1 := f.env(15, operator)
	removed, err = f.stk.Unstake(env1, alice, owner, token.MER, big.NewInt(400))
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(400), removed)

	// an over-request is capped to what remains
	removed, err = f.stk.Unstake(env1, alice, owner, token.MER, big.NewInt(9000))
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(600), removed)

	settled, err := f.stk.ClaimUnstakes(env1, alice)
	assert.Nil(t, err)
	assert.Len(t, settled, 0)

	env2 := f.env(25, operator)
	settled, err = f.stk.ClaimUnstakes(env2, alice)
	assert.Nil(t, err)
	assert.Len(t, settled, 2)
	assert.Equal(t, big.NewInt(1000), f.balance(token.MER, alice))
	assert.Equal(t, int64(0), f.balance(token.SMER, alice).Int64())
	assert.Equal(t, int64(0), f.balance(token.MER, meridian.StakingPoolAddress).Int64())

	info, err := f.stk.ValidatorInfo(env2, owner, 2)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), info.Stake.Int64())

	// settling again is a no-op
	settled, err = f.stk.ClaimUnstakes(env2, alice)
	assert.Nil(t, err)
	assert.Len(t, settled, 0)
	assert.Nil(t, f.st.Err())
}

func TestRewardLifecycle(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env0 := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env0, owner, operator))

	eff, err := f.stk.UpdateCommissionRate(env0, owner, owner, 1000)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), eff)

	f.fund(alice, 300)
	f.fund(bob, 700)
	assert.Nil(t, f.stk.Stake(env0, alice, owner, token.MER, big.NewInt(300)))
	assert.Nil(t, f.stk.Stake(env0, bob, owner, token.MER, big.NewInt(700)))

	// epoch 2: epoch 1 completed with 1000 staked at 100% rate and 10%
	// commission. The validator earned 1000, keeps 100, stakers split 900.
	env2 := f.env(25, operator)
	res, err := f.stk.ClaimRewards(env2, alice, owner, 10)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), res.From)
	assert.Equal(t, uint64(1), res.To)
	assert.Equal(t, big.NewInt(270), res.Amount)
	assert.Equal(t, big.NewInt(270), f.balance(token.WMER, alice))

	res, err = f.stk.ClaimRewards(env2, bob, owner, 10)
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(630), res.Amount)

	com, err := f.stk.ClaimCommissions(env2, owner, 10)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), com.From)
	assert.Equal(t, uint64(1), com.To)
	assert.Equal(t, big.NewInt(100), com.Amount)
	assert.Equal(t, big.NewInt(100), f.balance(token.WMER, owner))

	// claiming the same window again pays nothing
	res, err = f.stk.ClaimRewards(env2, alice, owner, 10)
	assert.Nil(t, err)
	assert.True(t, res.To < res.From)
	assert.Equal(t, int64(0), res.Amount.Int64())

	com, err = f.stk.ClaimCommissions(env2, owner, 10)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), com.Amount.Int64())

	totals, err := f.stk.Totals(2)
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(900), totals.RewardsPaid)
	assert.Equal(t, big.NewInt(100), totals.CommissionsPaid)
	assert.Equal(t, big.NewInt(1000), totals.TotalStake)
	assert.Nil(t, f.st.Err())
}

func TestClaimRewardsBoundedByCount(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env0 := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env0, owner, operator))
	f.fund(alice, 1000)
	assert.Nil(t, f.stk.Stake(env0, alice, owner, token.MER, big.NewInt(1000)))

	// five epochs completed, claim two at a time
	env6 := f.env(65, operator)
	res, err := f.stk.ClaimRewards(env6, alice, owner, 2)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), res.From)
	assert.Equal(t, uint64(2), res.To)
	assert.Equal(t, big.NewInt(2000), res.Amount)

	res, err = f.stk.ClaimRewards(env6, alice, owner, 2)
	assert.Nil(t, err)
	assert.Equal(t, uint64(3), res.From)
	assert.Equal(t, uint64(4), res.To)

	// the window never covers the running epoch
	res, err = f.stk.ClaimRewards(env6, alice, owner, 100)
	assert.Nil(t, err)
	assert.Equal(t, uint64(5), res.From)
	assert.Equal(t, uint64(5), res.To)
	assert.Equal(t, big.NewInt(1000), res.Amount)
	assert.Equal(t, big.NewInt(5000), f.balance(token.WMER, alice))
}

func TestSlashAndJail(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	assert.Nil(t, f.stk.Join(f.env(5, operator), owner, operator))
	f.fund(alice, 1000)
	assert.Nil(t, f.stk.Stake(f.env(5, operator), alice, owner, token.MER, big.NewInt(1000)))

	env := f.env(15, operator) // epoch 1

	// only the signer of the block may report
	_, err := f.stk.Slash(env, alice, operator, 1)
	assert.True(t, errors.Is(err, reverts.ErrUnauthorized))

	_, err = f.stk.Slash(env, operator, operator, 0)
	assert.True(t, errors.Is(err, reverts.ErrInvalidAmount))

	_, err = f.stk.Slash(env, operator, alice, 1)
	assert.True(t, errors.Is(err, reverts.ErrNotFound))

	res, err := f.stk.Slash(env, operator, operator, 2)
	assert.Nil(t, err)
	assert.False(t, res.Jailed)
	assert.Equal(t, uint64(2), res.Slashes)

	// crossing the threshold jails until epoch 6
	res, err = f.stk.Slash(env, operator, operator, 1)
	assert.Nil(t, err)
	assert.True(t, res.Jailed)
	assert.Equal(t, uint64(6), res.Until)

	// slashing counts but never touches the recorded stake
	info, err := f.stk.ValidatorInfo(env, owner, 1)
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(1000), info.Stake)
	assert.Equal(t, uint64(3), info.Slashes)
	assert.True(t, info.Jailed)
	assert.False(t, info.Eligible)

	// released one epoch short of the exclusive bound
	info, err = f.stk.ValidatorInfo(env, owner, 6)
	assert.Nil(t, err)
	assert.False(t, info.Jailed)
	assert.True(t, info.Eligible)

	// further slashes count without re-jailing
	res, err = f.stk.Slash(env, operator, operator, 1)
	assert.Nil(t, err)
	assert.False(t, res.Jailed)
	assert.Equal(t, uint64(4), res.Slashes)
}

func TestLastBlockClosed(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	sealEnv := f.env(9, operator) // last block of epoch 0

	err := f.stk.Join(sealEnv, owner, operator)
	assert.True(t, errors.Is(err, reverts.ErrInvalidTiming))

	f.fund(alice, 100)
	err = f.stk.Stake(sealEnv, alice, owner, token.MER, big.NewInt(100))
	assert.True(t, errors.Is(err, reverts.ErrInvalidTiming))

	// sealing is only allowed on that block
	_, err = f.stk.SealEpoch(f.env(5, operator))
	assert.True(t, errors.Is(err, reverts.ErrInvalidTiming))

	digest, err := f.stk.SealEpoch(sealEnv)
	assert.Nil(t, err)
	assert.False(t, digest.IsZero())
}

func TestRecordBlock(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	assert.Nil(t, f.stk.Join(f.env(5, operator), owner, operator))

	// unknown signers are skipped
	assert.Nil(t, f.stk.RecordBlock(f.env(6, alice)))

	assert.Nil(t, f.stk.RecordBlock(f.env(6, operator)))
	assert.Nil(t, f.stk.RecordBlock(f.env(7, operator)))
	// the last block of the epoch still counts
	assert.Nil(t, f.stk.RecordBlock(f.env(9, operator)))

	info, err := f.stk.ValidatorInfo(f.env(9, operator), owner, 0)
	assert.Nil(t, err)
	assert.Equal(t, uint64(3), info.Blocks)

	info, err = f.stk.ValidatorInfo(f.env(19, operator), owner, 1)
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), info.Blocks)
}

func TestSealEpoch(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env0 := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env0, owner, operator))
	f.fund(alice, 1000)
	assert.Nil(t, f.stk.Stake(env0, alice, owner, token.MER, big.NewInt(1000)))

	sealEnv := f.env(19, operator) // last block of epoch 1
	assert.Nil(t, f.stk.RecordBlock(sealEnv))
	digest, err := f.stk.SealEpoch(sealEnv)
	assert.Nil(t, err)
	assert.False(t, digest.IsZero())

	stored, err := f.stk.EpochDigest(1)
	assert.Nil(t, err)
	assert.Equal(t, digest, stored)

	// an unsealed epoch reads as the zero digest
	stored, err = f.stk.EpochDigest(7)
	assert.Nil(t, err)
	assert.True(t, stored.IsZero())

	// a different epoch commits to a different outcome
	digest2, err := f.stk.SealEpoch(f.env(29, operator))
	assert.Nil(t, err)
	assert.NotEqual(t, digest, digest2)

	events := f.stk.PendingEvents()
	last := events[len(events)-1]
	assert.Equal(t, EventEpochSealed, last.Name)
	assert.Equal(t, "1", last.Data["validators"])
}

func TestRecomputeDigest(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env0 := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env0, owner, operator))
	f.fund(alice, 1000)
	assert.Nil(t, f.stk.Stake(env0, alice, owner, token.MER, big.NewInt(1000)))

	sealEnv := f.env(19, operator)
	assert.Nil(t, f.stk.RecordBlock(sealEnv))
	digest1, err := f.stk.SealEpoch(sealEnv)
	assert.Nil(t, err)

	// a validator joining later must not bleed into the sealed outcome
	owner2 := meridian.BytesToAddress([]byte("owner2"))
	op2 := meridian.BytesToAddress([]byte("operator2"))
	f.allow(owner2)
	env2 := f.env(25, op2)
	assert.Nil(t, f.stk.Join(env2, owner2, op2))
	f.fund(bob, 700)
	assert.Nil(t, f.stk.Stake(env2, bob, owner2, token.MER, big.NewInt(700)))

	digest2, err := f.stk.SealEpoch(f.env(29, op2))
	assert.Nil(t, err)
	assert.NotEqual(t, digest1, digest2)

	late := f.env(42, operator)
	rebuilt, err := f.stk.RecomputeDigest(late, 1)
	assert.Nil(t, err)
	assert.Equal(t, digest1, rebuilt)

	rebuilt, err = f.stk.RecomputeDigest(late, 2)
	assert.Nil(t, err)
	assert.Equal(t, digest2, rebuilt)
	assert.Nil(t, f.st.Err())
}

func TestClaimUnstakesRollback(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env0 := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env0, owner, operator))
	f.fund(alice, 500)
	assert.Nil(t, f.stk.Stake(env0, alice, owner, token.MER, big.NewInt(500)))

	env1 := f.env(15, operator)
	removed, err := f.stk.Unstake(env1, alice, owner, token.MER, big.NewInt(500))
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(500), removed)

	// alice parts with receipts she must redeem later
	ok, err := f.tok.Transfer(token.SMER, alice, bob, big.NewInt(200))
	assert.Nil(t, err)
	assert.True(t, ok)

	f.stk.PendingEvents() // drain

	env2 := f.env(25, operator)
	_, err = f.stk.ClaimUnstakes(env2, alice)
	assert.True(t, errors.Is(err, reverts.ErrInvalidAmount))

	// the whole mutation rolled back: pool untouched, withdrawal still
	// pending, no events recorded
	assert.Equal(t, big.NewInt(500), f.balance(token.MER, meridian.StakingPoolAddress))
	assert.Equal(t, int64(0), f.balance(token.MER, alice).Int64())
	assert.Len(t, f.stk.PendingEvents(), 0)

	// with the receipts recovered the claim settles
	ok, err = f.tok.Transfer(token.SMER, bob, alice, big.NewInt(200))
	assert.Nil(t, err)
	assert.True(t, ok)
	settled, err := f.stk.ClaimUnstakes(env2, alice)
	assert.Nil(t, err)
	assert.Len(t, settled, 1)
	assert.Equal(t, big.NewInt(500), f.balance(token.MER, alice))
	assert.Nil(t, f.st.Err())
}

func TestValidatorSets(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env1 := f.env(15, operator) // epoch 1
	assert.Nil(t, f.stk.Join(env1, owner, operator))
	f.fund(alice, 1000)
	assert.Nil(t, f.stk.Stake(env1, alice, owner, token.MER, big.NewInt(1000)))

	// the stake is effective next epoch only
	current, err := f.stk.CurrentValidators(env1)
	assert.Nil(t, err)
	assert.Len(t, current, 0)

	next, err := f.stk.NextValidators(env1)
	assert.Nil(t, err)
	assert.Len(t, next, 1)
	assert.Equal(t, owner, next[0].Owner)
	assert.Equal(t, big.NewInt(1000), next[0].Stake)

	// the next epoch is judged under its own threshold
	assert.Nil(t, f.par.Schedule(meridian.KeyValidatorThreshold, 2, big.NewInt(2000)))
	next, err = f.stk.NextValidators(env1)
	assert.Nil(t, err)
	assert.Len(t, next, 0)

	current, err = f.stk.CurrentValidators(f.env(25, operator))
	assert.Nil(t, err)
	assert.Len(t, current, 0)
}

func TestListValidatorsPadding(t *testing.T) {
	f := newFixture(t)
	env := f.env(5, operator)
	owners := make([]meridian.Address, 3)
	for i := range owners {
		owners[i] = meridian.BytesToAddress([]byte{byte(i + 1)})
		f.allow(owners[i])
		assert.Nil(t, f.stk.Join(env, owners[i], meridian.BytesToAddress([]byte{0xf0, byte(i)})))
	}

	page, err := f.stk.ListValidators(env, 0, 1, 2)
	assert.Nil(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, owners[0], page[0].Owner)
	assert.Equal(t, owners[1], page[1].Owner)

	// a short page is padded with empty views
	page, err = f.stk.ListValidators(env, 0, 2, 2)
	assert.Nil(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, owners[2], page[0].Owner)
	assert.True(t, page[1].Owner.IsZero())
	assert.Equal(t, int64(0), page[1].Stake.Int64())

	// past the end the page is all padding
	page, err = f.stk.ListValidators(env, 0, 9, 2)
	assert.Nil(t, err)
	assert.Len(t, page, 2)
	assert.True(t, page[0].Owner.IsZero())

	// the page size is capped
	_, take := normalizePage(1, 100000)
	assert.Equal(t, uint64(meridian.MaxPerPage), take)
	skip, take := normalizePage(0, 0)
	assert.Equal(t, uint64(0), skip)
	assert.Equal(t, uint64(meridian.DefaultPerPage), take)
}

func TestListValidatorStakers(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env0 := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env0, owner, operator))
	f.fund(alice, 900)
	assert.Nil(t, f.stk.Stake(env0, alice, owner, token.MER, big.NewInt(900)))
	f.fund(bob, 300)
	assert.Nil(t, f.stk.Stake(env0, bob, owner, token.MER, big.NewInt(300)))

	env1 := f.env(15, operator)
	_, err := f.stk.Unstake(env1, alice, owner, token.MER, big.NewInt(200))
	assert.Nil(t, err)

	page, err := f.stk.ListValidatorStakers(owner, 1, 1, 2)
	assert.Nil(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, alice, page[0].Staker)
	assert.Equal(t, big.NewInt(900), page[0].Stake)
	assert.Equal(t, big.NewInt(700), page[0].Scheduled)
	assert.Equal(t, bob, page[1].Staker)
	assert.Equal(t, big.NewInt(300), page[1].Stake)

	// a short page is padded with empty views
	page, err = f.stk.ListValidatorStakers(owner, 1, 2, 2)
	assert.Nil(t, err)
	assert.Len(t, page, 2)
	assert.True(t, page[0].Staker.IsZero())
	assert.Equal(t, int64(0), page[0].Stake.Int64())

	// an address that never had delegations yields all padding
	page, err = f.stk.ListValidatorStakers(bob, 1, 1, 2)
	assert.Nil(t, err)
	assert.Len(t, page, 2)
	assert.True(t, page[0].Staker.IsZero())
}

func TestStakerInfo(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env0 := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env0, owner, operator))
	f.fund(alice, 900)
	assert.Nil(t, f.stk.Stake(env0, alice, owner, token.MER, big.NewInt(900)))

	// at the stake epoch the bond is still a pending request
	view, err := f.stk.StakerInfo(env0, alice, 0)
	assert.Nil(t, err)
	assert.Len(t, view.Delegations, 1)
	bond := view.Delegations[0].Bonds[0]
	assert.Equal(t, int64(0), bond.Amount.Int64())
	assert.Equal(t, big.NewInt(900), bond.Pending)

	// one epoch on it is effective and no request remains
	view, err = f.stk.StakerInfo(env0, alice, 1)
	assert.Nil(t, err)
	bond = view.Delegations[0].Bonds[0]
	assert.Equal(t, big.NewInt(900), bond.Amount)
	assert.Equal(t, int64(0), bond.Pending.Int64())

	env1 := f.env(15, operator)
	_, err = f.stk.Unstake(env1, alice, owner, token.MER, big.NewInt(200))
	assert.Nil(t, err)

	view, err = f.stk.StakerInfo(env1, alice, 1)
	assert.Nil(t, err)
	assert.Equal(t, alice, view.Address)
	assert.Equal(t, uint64(0), view.FirstSeen)
	assert.Len(t, view.Delegations, 1)

	dv := view.Delegations[0]
	assert.Equal(t, owner, dv.Validator)
	assert.Len(t, dv.Bonds, 1)
	assert.Equal(t, token.MER, dv.Bonds[0].Kind)
	assert.Equal(t, big.NewInt(900), dv.Bonds[0].Amount)
	assert.Equal(t, big.NewInt(700), dv.Bonds[0].Scheduled)
	assert.Len(t, dv.Unstakes, 1)
	assert.Equal(t, big.NewInt(200), dv.Unstakes[0].Amount)
	assert.Equal(t, uint64(2), dv.Unstakes[0].Claimable)

	// an address that never staked reads as empty
	view, err = f.stk.StakerInfo(env1, bob, 1)
	assert.Nil(t, err)
	assert.Equal(t, bob, view.Address)
	assert.Len(t, view.Delegations, 0)
}

func TestRewardQueries(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env0 := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env0, owner, operator))
	_, err := f.stk.UpdateCommissionRate(env0, owner, owner, 1000)
	assert.Nil(t, err)
	f.fund(alice, 300)
	f.fund(bob, 700)
	assert.Nil(t, f.stk.Stake(env0, alice, owner, token.MER, big.NewInt(300)))
	assert.Nil(t, f.stk.Stake(env0, bob, owner, token.MER, big.NewInt(700)))

	// epoch 3: epochs 1 and 2 completed
	env3 := f.env(35, operator)
	totals, err := f.stk.RewardsOver(env3, owner, 1, 100)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), totals.From)
	assert.Equal(t, uint64(2), totals.To)
	assert.Equal(t, big.NewInt(2000), totals.Rewards)
	assert.Equal(t, big.NewInt(200), totals.Commissions)

	res, err := f.stk.StakerRewardsOver(env3, alice, owner, 1, 1)
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(270), res.Amount)

	// queries do not move the claim watermark
	claim, err := f.stk.ClaimRewards(env3, alice, owner, 100)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), claim.From)
	assert.Equal(t, big.NewInt(540), claim.Amount)

	_, err = f.stk.RewardsOver(env3, alice, 1, 2)
	assert.True(t, errors.Is(err, reverts.ErrNotFound))
}

func TestEventJournal(t *testing.T) {
	f := newFixture(t)
	f.allow(owner)
	env := f.env(5, operator)
	assert.Nil(t, f.stk.Join(env, owner, operator))
	f.fund(alice, 100)
	assert.Nil(t, f.stk.Stake(env, alice, owner, token.MER, big.NewInt(100)))

	events := f.stk.PendingEvents()
	assert.Len(t, events, 2)
	assert.Equal(t, EventValidatorJoined, events[0].Name)
	assert.Equal(t, owner, events[0].Actor)
	assert.Equal(t, uint32(5), events[0].Block)
	assert.Equal(t, uint64(0), events[0].Epoch)
	assert.Equal(t, EventStaked, events[1].Name)
	assert.Equal(t, alice, events[1].Actor)
	assert.Equal(t, "100", events[1].Data["amount"])

	// the journal drains on read
	assert.Len(t, f.stk.PendingEvents(), 0)

	// rejected operations leave no trace
	err := f.stk.Join(env, bob, operator)
	assert.True(t, errors.Is(err, reverts.ErrUnauthorized))
	assert.Len(t, f.stk.PendingEvents(), 0)
}
