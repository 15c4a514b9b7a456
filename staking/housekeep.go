// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"errors"
	"strconv"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking/reverts"
	"github.com/meridianchain/meridian/staking/validation"
	"github.com/meridianchain/meridian/xenv"
)

// RecordBlock credits the block being processed to the validator bound to
// its signer. Signers without a validator record are skipped. It runs on
// every block, including the last block of an epoch.
func (s *Staking) RecordBlock(env *xenv.Environment) error {
	signer := env.BlockContext().Signer
	v, err := s.validations.ByOperator(signer)
	if err != nil {
		if errors.Is(err, reverts.ErrNotFound) {
			return nil
		}
		return err
	}
	tally, err := s.validations.RecordBlock(v.Owner, env.Epoch())
	if err != nil {
		return err
	}
	logger.Debug("block recorded", "owner", v.Owner, "epoch", env.Epoch(), "blocks", tally.Blocks)
	return nil
}

// SealEpoch closes the current epoch on its last block: it fixes every
// validator's outcome for the epoch and stores a digest committing to the
// full set. The digest is returned.
func (s *Staking) SealEpoch(env *xenv.Environment) (meridian.Bytes32, error) {
	if !env.IsLastBlockOfEpoch() {
		return meridian.Bytes32{}, reverts.InvalidTiming("epoch %d is sealed on its last block only", env.Epoch())
	}
	cp := s.state.NewCheckpoint()
	mark := len(s.events)
	digest, err := s.sealEpoch(env)
	if err != nil {
		s.state.RevertTo(cp)
		s.events = s.events[:mark]
		logger.Info("seal epoch failed", "error", err)
		return meridian.Bytes32{}, err
	}
	return digest, nil
}

func (s *Staking) sealEpoch(env *xenv.Environment) (meridian.Bytes32, error) {
	epoch := env.Epoch()
	var rows []*outcomeRow
	err := s.validations.Iter(func(v *validation.Validation) (bool, error) {
		acc, err := s.epochAccrual(env, v, epoch)
		if err != nil {
			return false, err
		}
		tally, err := s.validations.Repo().GetTally(v.Owner, epoch)
		if err != nil {
			return false, reverts.Upstream(err)
		}
		rows = append(rows, &outcomeRow{
			Owner:    v.Owner,
			Stake:    acc.TotalStake,
			Reward:   acc.Reward,
			Blocks:   tally.Blocks,
			Slashes:  tally.Slashes,
			Eligible: acc.Eligible,
		})
		return true, nil
	})
	if err != nil {
		return meridian.Bytes32{}, err
	}

	totalStake, err := s.stats.StakeAt(epoch)
	if err != nil {
		return meridian.Bytes32{}, reverts.Upstream(err)
	}
	digest := outcomeDigest(epoch, totalStake, rows)
	if err := s.digests.Set(epochKey(epoch), digest); err != nil {
		return meridian.Bytes32{}, reverts.Upstream(err)
	}

	s.emit(env, EventEpochSealed, env.BlockContext().Signer, map[string]string{
		"digest":     digest.String(),
		"validators": strconv.Itoa(len(rows)),
		"totalStake": totalStake.String(),
	})
	logger.Info("epoch sealed", "epoch", epoch, "validators", len(rows), "totalStake", totalStake, "digest", digest)
	return digest, nil
}

// RecomputeDigest rebuilds the digest of a past epoch from recorded history,
// without touching state. The registry preserves join order, so validators
// joined after the epoch form a tail the walk cuts off and the remaining
// prefix is exactly the set the seal covered. The result matches the stored
// digest as long as the histories behind the epoch are intact.
func (s *Staking) RecomputeDigest(env *xenv.Environment, epoch uint64) (meridian.Bytes32, error) {
	var rows []*outcomeRow
	err := s.validations.Iter(func(v *validation.Validation) (bool, error) {
		if v.JoinedAt > epoch {
			return false, nil
		}
		acc, err := s.epochAccrual(env, v, epoch)
		if err != nil {
			return false, err
		}
		tally, err := s.validations.Repo().GetTally(v.Owner, epoch)
		if err != nil {
			return false, reverts.Upstream(err)
		}
		rows = append(rows, &outcomeRow{
			Owner:    v.Owner,
			Stake:    acc.TotalStake,
			Reward:   acc.Reward,
			Blocks:   tally.Blocks,
			Slashes:  tally.Slashes,
			Eligible: acc.Eligible,
		})
		return true, nil
	})
	if err != nil {
		return meridian.Bytes32{}, err
	}

	totalStake, err := s.stats.StakeAt(epoch)
	if err != nil {
		return meridian.Bytes32{}, reverts.Upstream(err)
	}
	return outcomeDigest(epoch, totalStake, rows), nil
}
