// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/meridianchain/meridian/api"
	"github.com/meridianchain/meridian/api/utils/rotatewriter"
	"github.com/meridianchain/meridian/eventdb"
	"github.com/meridianchain/meridian/genesis"
	"github.com/meridianchain/meridian/log"
	"github.com/meridianchain/meridian/lvldb"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking/rewards"
)

func fatal(args ...interface{}) {
	var w io.Writer
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		} else {
			w = io.MultiWriter(os.Stdout, os.Stderr)
		}
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

func initLogger(ctx *cli.Context) *slog.LevelVar {
	var level slog.LevelVar
	level.Set(log.FromLegacyLevel(int(ctx.Uint64(verbosityFlag.Name))))

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stdout, &level)
	} else {
		useColor := isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("TERM") != "dumb"
		handler = log.NewTerminalHandlerWithLevel(os.Stdout, &level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
	return &level
}

func selectGenesis(ctx *cli.Context) *genesis.Genesis {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return genesis.NewDevnet()
	}

	file, err := os.Open(path)
	if err != nil {
		fatal(fmt.Sprintf("open genesis file: %v", err))
	}
	defer file.Close()

	gen, err := genesis.LoadCustomGenesis(file)
	if err != nil {
		fatal(fmt.Sprintf("load genesis file: %v", err))
	}
	customGen, err := genesis.NewCustomNet(gen)
	if err != nil {
		fatal(fmt.Sprintf("build genesis: %v", err))
	}
	return customGen
}

func selectSigner(ctx *cli.Context) meridian.Address {
	value := ctx.String(signerFlag.Name)
	if value == "" {
		return genesis.DevAccounts()[0].Address
	}
	addr, err := meridian.ParseAddress(value)
	if err != nil {
		fatal("invalid signer:", err)
	}
	return addr
}

func selectUptimeFn(ctx *cli.Context) rewards.UptimeFn {
	path := ctx.String(uptimeScriptFlag.Name)
	if path == "" {
		return nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		fatal("open uptime script:", err)
	}
	fn, err := rewards.NewScriptUptime(string(src))
	if err != nil {
		fatal("compile uptime script:", err)
	}
	return fn
}

func makeDataDir(ctx *cli.Context) string {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		fatal(fmt.Sprintf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name))
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		fatal(fmt.Sprintf("create data dir [%v]: %v", dataDir, err))
	}
	return dataDir
}

func instanceDirPath(dataDir string, gene *genesis.Genesis) string {
	return filepath.Join(dataDir, fmt.Sprintf("instance-%x", gene.ID().Bytes()[24:]))
}

func makeInstanceDir(ctx *cli.Context, gene *genesis.Genesis) string {
	instanceDir := instanceDirPath(makeDataDir(ctx), gene)
	if err := os.MkdirAll(instanceDir, 0700); err != nil {
		fatal(fmt.Sprintf("create instance dir [%v]: %v", instanceDir, err))
	}
	return instanceDir
}

func openStoreDB(ctx *cli.Context, instanceDir string) *lvldb.LevelDB {
	cacheMB := normalizeCacheSize(int(ctx.Uint64(cacheFlag.Name)))
	log.Debug("cache size(MB)", "size", cacheMB)

	// Ensure Go's GC ignores the database cache for trigger percentage
	gogc := math.Max(20, math.Min(100, 100/(float64(cacheMB)/1024)))
	log.Debug("sanitize Go's GC trigger", "percent", int(gogc))
	debug.SetGCPercent(int(gogc))

	fdCache := suggestFDCache()
	log.Debug("fd cache", "n", fdCache)

	dir := filepath.Join(instanceDir, "chain.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB,
		OpenFilesCacheCapacity: fdCache,
	})
	if err != nil {
		fatal(fmt.Sprintf("open chain database [%v]: %v", dir, err))
	}
	return db
}

func openMemStoreDB() *lvldb.LevelDB {
	db, err := lvldb.NewMem()
	if err != nil {
		fatal(fmt.Sprintf("open chain database: %v", err))
	}
	return db
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 128 {
		sizeMB = 128
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		log.Warn("failed to get total mem:", "err", err)
	} else {
		// limit to 1/2 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			log.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() int {
	limit, err := fdlimit.Current()
	if err != nil {
		fatal("failed to get fd limit:", err)
	}
	if limit <= 1024 {
		log.Warn("low fd limit, increase it if possible", "limit", limit)
	}

	n := limit / 2
	if n > 5120 {
		return 5120
	}
	return n
}

func openEventDB(instanceDir string) *eventdb.EventDB {
	dir := filepath.Join(instanceDir, "event.db")
	db, err := eventdb.New(dir)
	if err != nil {
		fatal(fmt.Sprintf("open event database [%v]: %v", dir, err))
	}
	return db
}

func openMemEventDB() *eventdb.EventDB {
	db, err := eventdb.NewMem()
	if err != nil {
		fatal(fmt.Sprintf("open event database: %v", err))
	}
	return db
}

const (
	requestLogMaxSize  = 20 * 1024 * 1024
	requestLogMaxFiles = 10
)

// openRequestRecorder builds the rotating request journal when a directory
// is configured. The returned cleanup flushes the queue and closes the file.
func openRequestRecorder(ctx *cli.Context) (*api.RequestRecorder, func()) {
	dir := ctx.String(apiLogsDirFlag.Name)
	if dir == "" {
		return nil, func() {}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		fatal(fmt.Sprintf("create api logs dir [%v]: %v", dir, err))
	}
	writer, err := rotatewriter.New(dir, "api-requests", requestLogMaxSize, requestLogMaxFiles)
	if err != nil {
		fatal(fmt.Sprintf("open api request journal [%v]: %v", dir, err))
	}
	recorder := api.NewRequestRecorder(writer)
	return recorder, func() {
		recorder.Stop()
		writer.Close()
	}
}

// handleExitSignal returns a context canceled on interrupt or termination.
func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func printStartupMessage(
	gene *genesis.Genesis,
	best uint32,
	blockInterval uint64,
	epochLength uint32,
	signer meridian.Address,
	dataDir string,
	apiURL string,
) {
	fmt.Printf(`Starting %v
    Network      [ %v %v ]
    Best block   [ #%v @%v ]
    Epoch length [ %v blocks ]
    Interval     [ %vs ]
    Signer       [ %v ]
    Data dir     [ %v ]
    API portal   [ %v ]
`,
		makeName("Meridian", fullVersion()),
		gene.ID(), gene.Name(),
		best, time.Unix(int64(gene.LaunchTime()+uint64(best)*blockInterval), 0),
		epochLength,
		blockInterval,
		signer,
		dataDir,
		apiURL)
}

func printDevAccounts() {
	tableHead := `
┌────────────────────────────────────────────┬────────────────────────────────────────────────────────────────────┐
│                   Address                  │                             Private Key                            │`
	tableContent := `
├────────────────────────────────────────────┼────────────────────────────────────────────────────────────────────┤
│ %v │ %v │`
	tableEnd := `
└────────────────────────────────────────────┴────────────────────────────────────────────────────────────────────┘`

	info := tableHead
	for _, a := range genesis.DevAccounts() {
		info += fmt.Sprintf(tableContent,
			a.Address,
			meridian.BytesToBytes32(a.PrivateKey.Serialize()),
		)
	}
	info += tableEnd + "\r\n"

	fmt.Print(info)
}

func makeName(name, version string) string {
	return fmt.Sprintf("%s/v%s/%s-%s/%s", name, version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// copy from go-ethereum
func defaultDataDir() string {
	// Try to place the data folder in the user's home dir
	if home := homeDir(); home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "org.meridianchain.meridian")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "org.meridianchain.meridian")
		} else {
			return filepath.Join(home, ".org.meridianchain.meridian")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
