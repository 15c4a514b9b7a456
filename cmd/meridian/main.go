// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/meridianchain/meridian/api"
	"github.com/meridianchain/meridian/cmd/meridian/httpserver"
	"github.com/meridianchain/meridian/cmd/meridian/node"
	"github.com/meridianchain/meridian/co"
	"github.com/meridianchain/meridian/eventdb"
	"github.com/meridianchain/meridian/health"
	"github.com/meridianchain/meridian/log"
	"github.com/meridianchain/meridian/lvldb"
	"github.com/meridianchain/meridian/metrics"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Meridian",
		Usage:     "Staking accounting node of the Meridian network",
		Copyright: "2025 The Meridian developers",
		Flags: []cli.Flag{
			genesisFlag,
			dataDirFlag,
			signerFlag,
			cacheFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiTimeoutFlag,
			apiBacktraceLimitFlag,
			apiLogsLimitFlag,
			enableAPILogsFlag,
			apiLogsDirFlag,
			verbosityFlag,
			jsonLogsFlag,
			pprofFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			enableAdminFlag,
			adminAddrFlag,
			onDemandFlag,
			persistFlag,
			blockIntervalFlag,
			epochLengthFlag,
			uptimeScriptFlag,
		},
		Action: run,
		Commands: []cli.Command{
			{
				Name:  "verify",
				Usage: "verify the journal and epoch digests of a persisted instance",
				Flags: []cli.Flag{
					genesisFlag,
					dataDirFlag,
					cacheFlag,
					verbosityFlag,
					jsonLogsFlag,
					blockIntervalFlag,
					epochLengthFlag,
					uptimeScriptFlag,
				},
				Action: verifyAction,
			},
			{
				Name:  "inspect",
				Usage: "dump the stored record of a validator or delegation",
				Flags: []cli.Flag{
					genesisFlag,
					dataDirFlag,
					cacheFlag,
					verbosityFlag,
					jsonLogsFlag,
					validatorFlag,
					stakerFlag,
				},
				Action: inspectAction,
			},
			{
				Name:  "purge",
				Usage: "delete the instance data of the selected network",
				Flags: []cli.Flag{
					genesisFlag,
					dataDirFlag,
					verbosityFlag,
					jsonLogsFlag,
					forceFlag,
				},
				Action: purgeAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	defer func() { log.Info("exited") }()

	logLevel := initLogger(ctx)
	gene := selectGenesis(ctx)
	signer := selectSigner(ctx)

	var (
		store       *lvldb.LevelDB
		events      *eventdb.EventDB
		instanceDir string
	)
	if ctx.Bool(persistFlag.Name) {
		instanceDir = makeInstanceDir(ctx, gene)
		store = openStoreDB(ctx, instanceDir)
		events = openEventDB(instanceDir)
	} else {
		instanceDir = "Memory"
		store = openMemStoreDB()
		events = openMemEventDB()
	}
	defer func() { log.Info("closing chain database..."); store.Close() }()
	defer func() { log.Info("closing event database..."); events.Close() }()

	blockInterval := gene.Config().BlockInterval
	if v := ctx.Uint64(blockIntervalFlag.Name); v != 0 {
		blockInterval = v
	}
	epochLength := gene.Config().EpochLength
	if v := uint32(ctx.Uint64(epochLengthFlag.Name)); v != 0 {
		epochLength = v
	}
	healthTracker := health.New(time.Duration(blockInterval) * time.Second)
	sig := &co.Signal{}

	n, err := node.New(store, events, gene, signer, healthTracker, sig, node.Options{
		OnDemand:      ctx.Bool(onDemandFlag.Name),
		BlockInterval: ctx.Uint64(blockIntervalFlag.Name),
		EpochLength:   uint32(ctx.Uint64(epochLengthFlag.Name)),
		UptimeFn:      selectUptimeFn(ctx),
	})
	if err != nil {
		return err
	}

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return fmt.Errorf("unable to start metrics server - %w", err)
		}
		log.Info("metrics server started", "url", url)
		defer closeFunc()
	}

	logAPIRequests := atomic.Bool{}
	logAPIRequests.Store(ctx.Bool(enableAPILogsFlag.Name))

	recorder, stopRecorder := openRequestRecorder(ctx)
	defer stopRecorder()

	if ctx.Bool(enableAdminFlag.Name) {
		url, closeFunc, err := httpserver.StartAdminServer(ctx.String(adminAddrFlag.Name), logLevel, &logAPIRequests, healthTracker)
		if err != nil {
			return fmt.Errorf("unable to start admin server - %w", err)
		}
		log.Info("admin server started", "url", url)
		defer closeFunc()
	}

	apiHandler, apiCloser := api.New(n, events, sig, &logAPIRequests, api.Options{
		AllowedOrigins: ctx.String(apiCorsFlag.Name),
		BacktraceLimit: uint32(ctx.Uint64(apiBacktraceLimitFlag.Name)),
		LogsLimit:      ctx.Uint64(apiLogsLimitFlag.Name),
		PprofOn:        ctx.Bool(pprofFlag.Name),
		EnableMetrics:  ctx.Bool(enableMetricsFlag.Name),
		Recorder:       recorder,
	})
	defer apiCloser()

	apiURL, srvCloser, err := httpserver.StartAPIServer(
		ctx.String(apiAddrFlag.Name),
		apiHandler,
		gene.ID(),
		time.Duration(ctx.Uint64(apiTimeoutFlag.Name))*time.Millisecond,
	)
	if err != nil {
		return fmt.Errorf("unable to start API server - %w", err)
	}
	defer func() { log.Info("stopping API server..."); srvCloser() }()

	printStartupMessage(gene, n.Best(), blockInterval, epochLength, signer, instanceDir, apiURL)
	if !ctx.IsSet(genesisFlag.Name) {
		printDevAccounts()
	}

	return n.Run(handleExitSignal())
}
