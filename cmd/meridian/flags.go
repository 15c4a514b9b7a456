// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/meridianchain/meridian/log"
)

var (
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to genesis file, if not set, the default devnet genesis will be used",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for databases",
	}
	signerFlag = cli.StringFlag{
		Name:  "signer",
		Usage: "address blocks are produced with, defaults to the first devnet account",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiTimeoutFlag = cli.Uint64Flag{
		Name:  "api-timeout",
		Value: 10000,
		Usage: "API request timeout value in milliseconds",
	}
	apiBacktraceLimitFlag = cli.Uint64Flag{
		Name:  "api-backtrace-limit",
		Value: 1000,
		Usage: "limit the distance between 'position' and best block for subscriptions API",
	}
	apiLogsLimitFlag = cli.Uint64Flag{
		Name:  "api-logs-limit",
		Value: 1000,
		Usage: "limit the number of records returned by /events API",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	apiLogsDirFlag = cli.StringFlag{
		Name:  "api-logs-dir",
		Usage: "directory for the rotating API request journal, empty disables it",
	}
	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: log.LegacyLevelInfo,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}
	cacheFlag = cli.Uint64Flag{
		Name:  "cache",
		Value: 1024,
		Usage: "megabytes of ram allocated to the database cache",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	enableAdminFlag = cli.BoolFlag{
		Name:  "enable-admin",
		Usage: "enables admin server",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Value: "localhost:2113",
		Usage: "admin service listening address",
	}
	onDemandFlag = cli.BoolFlag{
		Name:  "on-demand",
		Usage: "pack a new block as soon as an operation arrives",
	}
	persistFlag = cli.BoolFlag{
		Name:  "persist",
		Usage: "save the chain state to disk instead of memory",
	}
	blockIntervalFlag = cli.Uint64Flag{
		Name:  "block-interval",
		Value: 0,
		Usage: "override the block interval of the network (seconds)",
	}
	epochLengthFlag = cli.Uint64Flag{
		Name:  "epoch-length",
		Value: 0,
		Usage: "override the epoch length of the network (blocks)",
	}
	uptimeScriptFlag = cli.StringFlag{
		Name:  "uptime-script",
		Usage: "path to a JS expression overriding the uptime curve",
	}
	validatorFlag = cli.StringFlag{
		Name:  "validator",
		Usage: "validator owner address",
	}
	stakerFlag = cli.StringFlag{
		Name:  "staker",
		Usage: "staker address, selects the pair's delegation record",
	}
	forceFlag = cli.BoolFlag{
		Name:  "force",
		Usage: "skip the confirmation prompt",
	}
)
