// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stakingapi exposes the staking engine over REST.
//
// Read endpoints run against the latest committed block. Acting endpoints
// are handed to the block producer and take effect inside the upcoming
// block, so the response reports the outcome of the applied operation.
package stakingapi

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/api/utils"
	"github.com/meridianchain/meridian/cache"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking"
	"github.com/meridianchain/meridian/staking/reverts"
	"github.com/meridianchain/meridian/token"
	"github.com/meridianchain/meridian/xenv"
)

// Backend bridges the handlers to the block producer owning the state.
type Backend interface {
	// Best returns the number of the latest committed block.
	Best() uint32
	// View runs fn against a read-only snapshot of the latest committed block.
	View(fn func(env *xenv.Environment, stk *staking.Staking) error) error
	// Submit schedules fn to run inside the upcoming block and waits for its
	// outcome until ctx is done.
	Submit(ctx context.Context, fn func(env *xenv.Environment, stk *staking.Staking) error) error
}

// StakingAPI mounts the staking endpoints.
type StakingAPI struct {
	backend Backend
	cache   *cache.PrimeLRU
}

// New create a new StakingAPI.
func New(backend Backend) *StakingAPI {
	c, _ := cache.NewPrimeLRU(512)
	return &StakingAPI{backend: backend, cache: c}
}

// cached serves the value under key from the cache, deduplicating concurrent
// fetches of the same key. Keys embed the best block number, so entries for
// stale blocks simply age out of the LRU.
func (sa *StakingAPI) cached(key string, fetch func() (interface{}, error)) (interface{}, error) {
	return sa.cache.GetOrLoad(key, fetch)
}

// convertRevert maps engine revert reasons onto http statuses.
func convertRevert(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reverts.ErrNotFound):
		return utils.NotFound(err)
	case errors.Is(err, reverts.ErrUnauthorized):
		return utils.Forbidden(err)
	case errors.Is(err, reverts.ErrInvalidAmount), errors.Is(err, reverts.ErrInvalidTiming):
		return utils.BadRequest(err)
	case reverts.IsUpstream(err):
		return utils.HTTPError(err, http.StatusBadGateway)
	default:
		return err
	}
}

func pathAddress(req *http.Request, name string) (meridian.Address, error) {
	addr, err := meridian.ParseAddress(mux.Vars(req)[name])
	if err != nil {
		return meridian.Address{}, utils.BadRequest(errors.WithMessage(err, name))
	}
	return addr, nil
}

func (sa *StakingAPI) handleGetClock(w http.ResponseWriter, _ *http.Request) error {
	var clock Clock
	if err := sa.backend.View(func(env *xenv.Environment, _ *staking.Staking) error {
		cfg := env.Config()
		clock = Clock{
			Best:          env.BlockContext().Number,
			Epoch:         env.Epoch(),
			EpochLength:   cfg.EpochLength,
			BlockInterval: cfg.BlockInterval,
			SealingBlock:  env.IsLastBlockOfEpoch(),
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &clock)
}

func (sa *StakingAPI) handleGetTotals(w http.ResponseWriter, req *http.Request) error {
	epochParam := req.URL.Query().Get("epoch")

	var view TotalsView
	if err := sa.backend.View(func(env *xenv.Environment, stk *staking.Staking) error {
		epoch := env.Epoch()
		if epochParam != "" {
			parsed, err := strconv.ParseUint(epochParam, 10, 64)
			if err != nil {
				return utils.BadRequest(errors.WithMessage(err, "epoch"))
			}
			epoch = parsed
		}
		totals, err := stk.Totals(epoch)
		if err != nil {
			return err
		}
		view = TotalsView{
			Epoch:           epoch,
			TotalStake:      totals.TotalStake,
			ScheduledStake:  totals.ScheduledStake,
			Unstaking:       totals.Unstaking,
			RewardsPaid:     totals.RewardsPaid,
			CommissionsPaid: totals.CommissionsPaid,
		}
		return nil
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, &view)
}

func (sa *StakingAPI) handleGetParams(w http.ResponseWriter, req *http.Request) error {
	epochParam := req.URL.Query().Get("epoch")

	var view ParamsView
	if err := sa.backend.View(func(env *xenv.Environment, _ *staking.Staking) error {
		epoch := env.Epoch()
		if epochParam != "" {
			parsed, err := strconv.ParseUint(epochParam, 10, 64)
			if err != nil {
				return utils.BadRequest(errors.WithMessage(err, "epoch"))
			}
			epoch = parsed
		}
		tun, err := env.TunablesAt(epoch)
		if err != nil {
			return err
		}
		view = ParamsView{
			Epoch:              epoch,
			ValidatorThreshold: tun.ValidatorThreshold,
			RewardRate:         tun.RewardRate,
			JailPeriod:         tun.JailPeriod,
			CommissionDelay:    tun.CommissionDelay,
			SlashJailThreshold: tun.SlashJailThreshold,
			SlashUptimePenalty: tun.SlashUptimePenalty,
			ExpectedBlocks:     tun.ExpectedBlocks,
			MaxCommission:      tun.MaxCommission,
		}
		return nil
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, &view)
}

func (sa *StakingAPI) handleGetEpochDigest(w http.ResponseWriter, req *http.Request) error {
	epoch, err := strconv.ParseUint(mux.Vars(req)["epoch"], 10, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "epoch"))
	}

	var (
		digest      meridian.Bytes32
		first, last uint32
	)
	if err := sa.backend.View(func(env *xenv.Environment, stk *staking.Staking) error {
		digest, err = stk.EpochDigest(epoch)
		first = env.EpochStart(epoch)
		last = env.EpochStart(epoch+1) - 1
		return err
	}); err != nil {
		return convertRevert(err)
	}
	if digest.IsZero() {
		return utils.NotFound(errors.Errorf("epoch %d not sealed", epoch))
	}
	return utils.WriteJSON(w, utils.M{
		"epoch":      epoch,
		"digest":     digest.String(),
		"firstBlock": first,
		"lastBlock":  last,
	})
}

func (sa *StakingAPI) handleListValidators(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	page, err := utils.UintQuery(q, "page", 32, 0)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "page"))
	}
	perPage, err := utils.UintQuery(q, "perPage", 32, 0)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "perPage"))
	}
	epochParam := q.Get("epoch")

	key := fmt.Sprintf("list/%d/%s/%d/%d", sa.backend.Best(), epochParam, page, perPage)
	views, err := sa.cached(key, func() (any, error) {
		var views []*staking.ValidatorView
		err := sa.backend.View(func(env *xenv.Environment, stk *staking.Staking) error {
			epoch := env.Epoch()
			if epochParam != "" {
				parsed, err := strconv.ParseUint(epochParam, 10, 64)
				if err != nil {
					return utils.BadRequest(errors.WithMessage(err, "epoch"))
				}
				epoch = parsed
			}
			var err error
			views, err = stk.ListValidators(env, epoch, page, perPage)
			return err
		})
		return views, err
	})
	if err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, views)
}

func (sa *StakingAPI) handleGetValidatorSet(next bool) utils.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) error {
		key := fmt.Sprintf("set/%d/%t", sa.backend.Best(), next)
		views, err := sa.cached(key, func() (any, error) {
			var views []*staking.ValidatorView
			err := sa.backend.View(func(env *xenv.Environment, stk *staking.Staking) error {
				var err error
				if next {
					views, err = stk.NextValidators(env)
				} else {
					views, err = stk.CurrentValidators(env)
				}
				return err
			})
			return views, err
		})
		if err != nil {
			return convertRevert(err)
		}
		return utils.WriteJSON(w, views)
	}
}

func (sa *StakingAPI) handleGetValidator(w http.ResponseWriter, req *http.Request) error {
	owner, err := pathAddress(req, "owner")
	if err != nil {
		return err
	}
	epochParam := req.URL.Query().Get("epoch")

	var view *staking.ValidatorView
	if err := sa.backend.View(func(env *xenv.Environment, stk *staking.Staking) error {
		epoch := env.Epoch()
		if epochParam != "" {
			parsed, err := strconv.ParseUint(epochParam, 10, 64)
			if err != nil {
				return utils.BadRequest(errors.WithMessage(err, "epoch"))
			}
			epoch = parsed
		}
		view, err = stk.ValidatorInfo(env, owner, epoch)
		return err
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, view)
}

func (sa *StakingAPI) handleListValidatorStakers(w http.ResponseWriter, req *http.Request) error {
	owner, err := pathAddress(req, "owner")
	if err != nil {
		return err
	}
	q := req.URL.Query()
	page, err := utils.UintQuery(q, "page", 32, 0)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "page"))
	}
	perPage, err := utils.UintQuery(q, "perPage", 32, 0)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "perPage"))
	}
	epochParam := q.Get("epoch")

	var views []*staking.ValidatorStakerView
	if err := sa.backend.View(func(env *xenv.Environment, stk *staking.Staking) error {
		epoch := env.Epoch()
		if epochParam != "" {
			parsed, err := strconv.ParseUint(epochParam, 10, 64)
			if err != nil {
				return utils.BadRequest(errors.WithMessage(err, "epoch"))
			}
			epoch = parsed
		}
		views, err = stk.ListValidatorStakers(owner, epoch, page, perPage)
		return err
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, views)
}

func (sa *StakingAPI) handleGetValidatorRewards(w http.ResponseWriter, req *http.Request) error {
	owner, err := pathAddress(req, "owner")
	if err != nil {
		return err
	}
	q := req.URL.Query()
	from, err := utils.UintQuery(q, "from", 64, 1)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "from"))
	}
	to, err := utils.UintQuery(q, "to", 64, ^uint64(0))
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "to"))
	}

	var totals *staking.RewardTotals
	if err := sa.backend.View(func(env *xenv.Environment, stk *staking.Staking) error {
		totals, err = stk.RewardsOver(env, owner, from, to)
		return err
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, totals)
}

func (sa *StakingAPI) handleGetStaker(w http.ResponseWriter, req *http.Request) error {
	staker, err := pathAddress(req, "staker")
	if err != nil {
		return err
	}
	epochParam := req.URL.Query().Get("epoch")

	var view *staking.StakerView
	if err := sa.backend.View(func(env *xenv.Environment, stk *staking.Staking) error {
		epoch := env.Epoch()
		if epochParam != "" {
			parsed, err := strconv.ParseUint(epochParam, 10, 64)
			if err != nil {
				return utils.BadRequest(errors.WithMessage(err, "epoch"))
			}
			epoch = parsed
		}
		view, err = stk.StakerInfo(env, staker, epoch)
		return err
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, view)
}

func (sa *StakingAPI) handleGetStakerRewards(w http.ResponseWriter, req *http.Request) error {
	staker, err := pathAddress(req, "staker")
	if err != nil {
		return err
	}
	q := req.URL.Query()
	validatorParam := q.Get("validator")
	if validatorParam == "" {
		return utils.BadRequest(errors.New("validator required"))
	}
	validator, err := meridian.ParseAddress(validatorParam)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "validator"))
	}
	from, err := utils.UintQuery(q, "from", 64, 1)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "from"))
	}
	to, err := utils.UintQuery(q, "to", 64, ^uint64(0))
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "to"))
	}

	var result *staking.ClaimResult
	if err := sa.backend.View(func(env *xenv.Environment, stk *staking.Staking) error {
		result, err = stk.StakerRewardsOver(env, staker, validator, from, to)
		return err
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, result)
}

func (sa *StakingAPI) handleJoin(w http.ResponseWriter, req *http.Request) error {
	var body JoinRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}

	if err := sa.backend.Submit(req.Context(), func(env *xenv.Environment, stk *staking.Staking) error {
		return stk.Join(env, body.Owner, body.Operator)
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, utils.M{"owner": body.Owner.String()})
}

func (sa *StakingAPI) handleUpdateOperator(w http.ResponseWriter, req *http.Request) error {
	owner, err := pathAddress(req, "owner")
	if err != nil {
		return err
	}
	var body OperatorRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}

	if err := sa.backend.Submit(req.Context(), func(env *xenv.Environment, stk *staking.Staking) error {
		return stk.UpdateOperator(env, owner, body.Operator)
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, utils.M{"operator": body.Operator.String()})
}

func (sa *StakingAPI) handleScheduleStatus(activate bool) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		owner, err := pathAddress(req, "owner")
		if err != nil {
			return err
		}
		var body StatusRequest
		if err := utils.ParseJSON(req.Body, &body); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}

		if err := sa.backend.Submit(req.Context(), func(env *xenv.Environment, stk *staking.Staking) error {
			if activate {
				return stk.Activate(env, body.Caller, owner, body.Epochs)
			}
			return stk.Deactivate(env, body.Caller, owner, body.Epochs)
		}); err != nil {
			return convertRevert(err)
		}
		return utils.WriteJSON(w, utils.M{"epochs": body.Epochs})
	}
}

func (sa *StakingAPI) handleUpdateCommission(w http.ResponseWriter, req *http.Request) error {
	owner, err := pathAddress(req, "owner")
	if err != nil {
		return err
	}
	var body CommissionRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}

	var effective uint64
	if err := sa.backend.Submit(req.Context(), func(env *xenv.Environment, stk *staking.Staking) error {
		effective, err = stk.UpdateCommissionRate(env, body.Caller, owner, body.RateBps)
		return err
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, &CommissionResponse{EffectiveEpoch: effective})
}

func (sa *StakingAPI) handleSlash(w http.ResponseWriter, req *http.Request) error {
	var body SlashRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}

	var resp SlashResponse
	if err := sa.backend.Submit(req.Context(), func(env *xenv.Environment, stk *staking.Staking) error {
		res, err := stk.Slash(env, env.BlockContext().Signer, body.Operator, body.Blocks)
		if err != nil {
			return err
		}
		resp = SlashResponse{Slashes: res.Slashes, Jailed: res.Jailed, Until: res.Until}
		return nil
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, &resp)
}

func (sa *StakingAPI) handleStake(w http.ResponseWriter, req *http.Request) error {
	var body StakeRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	kind, err := token.ParseKind(body.Kind)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "kind"))
	}
	if body.Amount == nil {
		return utils.BadRequest(errors.New("amount required"))
	}

	var effective uint64
	if err := sa.backend.Submit(req.Context(), func(env *xenv.Environment, stk *staking.Staking) error {
		if err := stk.Stake(env, body.Staker, body.Validator, kind, (*big.Int)(body.Amount)); err != nil {
			return err
		}
		effective = env.Epoch() + 1
		return nil
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, utils.M{"effectiveEpoch": effective})
}

func (sa *StakingAPI) handleUnstake(w http.ResponseWriter, req *http.Request) error {
	var body UnstakeRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	kind, err := token.ParseKind(body.Kind)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "kind"))
	}
	if body.Amount == nil {
		return utils.BadRequest(errors.New("amount required"))
	}

	var resp UnstakeResponse
	if err := sa.backend.Submit(req.Context(), func(env *xenv.Environment, stk *staking.Staking) error {
		removed, err := stk.Unstake(env, body.Staker, body.Validator, kind, (*big.Int)(body.Amount))
		if err != nil {
			return err
		}
		resp.Removed = removed
		if removed.Sign() > 0 {
			resp.Claimable = env.Epoch() + 1
		}
		return nil
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, &resp)
}

func (sa *StakingAPI) handleClaimUnstakes(w http.ResponseWriter, req *http.Request) error {
	var body ClaimUnstakesRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}

	settled := []*SettledUnstake{}
	if err := sa.backend.Submit(req.Context(), func(env *xenv.Environment, stk *staking.Staking) error {
		results, err := stk.ClaimUnstakes(env, body.Staker)
		if err != nil {
			return err
		}
		for _, res := range results {
			settled = append(settled, &SettledUnstake{
				Validator: res.Validator,
				Kind:      res.Kind.String(),
				Amount:    res.Amount,
			})
		}
		return nil
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, settled)
}

func (sa *StakingAPI) handleClaimRewards(w http.ResponseWriter, req *http.Request) error {
	var body RewardsClaimRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}

	var result *staking.ClaimResult
	if err := sa.backend.Submit(req.Context(), func(env *xenv.Environment, stk *staking.Staking) error {
		var err error
		result, err = stk.ClaimRewards(env, body.Staker, body.Validator, body.Count)
		return err
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, result)
}

func (sa *StakingAPI) handleClaimCommissions(w http.ResponseWriter, req *http.Request) error {
	var body CommissionsClaimRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}

	var result *staking.ClaimResult
	if err := sa.backend.Submit(req.Context(), func(env *xenv.Environment, stk *staking.Staking) error {
		var err error
		result, err = stk.ClaimCommissions(env, body.Owner, body.Count)
		return err
	}); err != nil {
		return convertRevert(err)
	}
	return utils.WriteJSON(w, result)
}

// Mount mounts the endpoints under pathPrefix. Literal paths are registered
// ahead of parameterized ones, so "/validators/current" is never captured by
// "/validators/{owner}".
func (sa *StakingAPI) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/clock").
		Methods(http.MethodGet).
		Name("GET /staking/clock").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleGetClock))
	sub.Path("/params").
		Methods(http.MethodGet).
		Name("GET /staking/params").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleGetParams))
	sub.Path("/totals").
		Methods(http.MethodGet).
		Name("GET /staking/totals").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleGetTotals))
	sub.Path("/epochs/{epoch}/digest").
		Methods(http.MethodGet).
		Name("GET /staking/epochs/digest").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleGetEpochDigest))
	sub.Path("/validators").
		Methods(http.MethodGet).
		Name("GET /staking/validators").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleListValidators))
	sub.Path("/validators").
		Methods(http.MethodPost).
		Name("POST /staking/validators").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleJoin))
	sub.Path("/validators/current").
		Methods(http.MethodGet).
		Name("GET /staking/validators/current").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleGetValidatorSet(false)))
	sub.Path("/validators/next").
		Methods(http.MethodGet).
		Name("GET /staking/validators/next").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleGetValidatorSet(true)))
	sub.Path("/validators/{owner}").
		Methods(http.MethodGet).
		Name("GET /staking/validators/owner").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleGetValidator))
	sub.Path("/validators/{owner}/stakers").
		Methods(http.MethodGet).
		Name("GET /staking/validators/stakers").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleListValidatorStakers))
	sub.Path("/validators/{owner}/operator").
		Methods(http.MethodPost).
		Name("POST /staking/validators/operator").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleUpdateOperator))
	sub.Path("/validators/{owner}/activate").
		Methods(http.MethodPost).
		Name("POST /staking/validators/activate").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleScheduleStatus(true)))
	sub.Path("/validators/{owner}/deactivate").
		Methods(http.MethodPost).
		Name("POST /staking/validators/deactivate").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleScheduleStatus(false)))
	sub.Path("/validators/{owner}/commission").
		Methods(http.MethodPost).
		Name("POST /staking/validators/commission").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleUpdateCommission))
	sub.Path("/validators/{owner}/rewards").
		Methods(http.MethodGet).
		Name("GET /staking/validators/rewards").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleGetValidatorRewards))
	sub.Path("/stakers/{staker}").
		Methods(http.MethodGet).
		Name("GET /staking/stakers").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleGetStaker))
	sub.Path("/stakers/{staker}/rewards").
		Methods(http.MethodGet).
		Name("GET /staking/stakers/rewards").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleGetStakerRewards))
	sub.Path("/stakes").
		Methods(http.MethodPost).
		Name("POST /staking/stakes").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleStake))
	sub.Path("/unstakes").
		Methods(http.MethodPost).
		Name("POST /staking/unstakes").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleUnstake))
	sub.Path("/unstakes/claims").
		Methods(http.MethodPost).
		Name("POST /staking/unstakes/claims").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleClaimUnstakes))
	sub.Path("/rewards/claims").
		Methods(http.MethodPost).
		Name("POST /staking/rewards/claims").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleClaimRewards))
	sub.Path("/commissions/claims").
		Methods(http.MethodPost).
		Name("POST /staking/commissions/claims").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleClaimCommissions))
	sub.Path("/slashes").
		Methods(http.MethodPost).
		Name("POST /staking/slashes").
		HandlerFunc(utils.WrapHandlerFunc(sa.handleSlash))
}
