// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/meridianchain/meridian/cmd/meridian/node"
	"github.com/meridianchain/meridian/co"
	"github.com/meridianchain/meridian/health"
	"github.com/meridianchain/meridian/log"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking"
	"github.com/meridianchain/meridian/xenv"
)

// inspectAction dumps the raw stored record of a validator, or of a
// delegation when a staker address is given too. Unlike the api views, which
// resolve state at one epoch, the dump shows the record as stored.
func inspectAction(ctx *cli.Context) error {
	initLogger(ctx)
	gene := selectGenesis(ctx)

	instanceDir := makeInstanceDir(ctx, gene)
	store := openStoreDB(ctx, instanceDir)
	defer func() { log.Info("closing chain database..."); store.Close() }()
	events := openEventDB(instanceDir)
	defer func() { log.Info("closing event database..."); events.Close() }()

	if ctx.String(validatorFlag.Name) == "" {
		return errors.Errorf("flag -%s is required", validatorFlag.Name)
	}
	validator, err := meridian.ParseAddress(ctx.String(validatorFlag.Name))
	if err != nil {
		return errors.Wrapf(err, "parse -%s", validatorFlag.Name)
	}

	cfg := gene.Config()
	// the signer never enters the dump, any address will do
	n, err := node.New(store, events, gene, meridian.Address{},
		health.New(time.Duration(cfg.BlockInterval)*time.Second), &co.Signal{}, node.Options{})
	if err != nil {
		return err
	}

	spew.Config.Indent = "    "
	spew.Config.DisableMethods = false

	return n.View(func(_ *xenv.Environment, stk *staking.Staking) error {
		if value := ctx.String(stakerFlag.Name); value != "" {
			staker, err := meridian.ParseAddress(value)
			if err != nil {
				return errors.Wrapf(err, "parse -%s", stakerFlag.Name)
			}
			d, err := stk.Delegation(staker, validator)
			if err != nil {
				return err
			}
			if d == nil {
				return errors.Errorf("no delegation record for %v on %v", staker, validator)
			}
			spew.Dump(d)
			return nil
		}

		v, err := stk.Validation(validator)
		if err != nil {
			return err
		}
		if v == nil {
			return errors.Errorf("no validation record for %v", validator)
		}
		spew.Dump(v)
		return nil
	})
}
