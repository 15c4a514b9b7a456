// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/meridianchain/meridian/cmd/meridian/node"
	"github.com/meridianchain/meridian/co"
	"github.com/meridianchain/meridian/eventdb"
	"github.com/meridianchain/meridian/health"
	"github.com/meridianchain/meridian/log"
	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/staking"
	"github.com/meridianchain/meridian/xenv"
)

func verifyAction(ctx *cli.Context) error {
	initLogger(ctx)
	gene := selectGenesis(ctx)

	instanceDir := makeInstanceDir(ctx, gene)
	store := openStoreDB(ctx, instanceDir)
	defer func() { log.Info("closing chain database..."); store.Close() }()
	events := openEventDB(instanceDir)
	defer func() { log.Info("closing event database..."); events.Close() }()

	cfg := gene.Config()
	if v := ctx.Uint64(blockIntervalFlag.Name); v != 0 {
		cfg.BlockInterval = v
	}
	if v := uint32(ctx.Uint64(epochLengthFlag.Name)); v != 0 {
		cfg.EpochLength = v
	}

	// the signer never enters the checks, any address will do
	n, err := node.New(store, events, gene, meridian.Address{},
		health.New(time.Duration(cfg.BlockInterval)*time.Second), &co.Signal{}, node.Options{
			BlockInterval: ctx.Uint64(blockIntervalFlag.Name),
			EpochLength:   uint32(ctx.Uint64(epochLengthFlag.Name)),
			UptimeFn:      selectUptimeFn(ctx),
		})
	if err != nil {
		return err
	}

	exitCtx := handleExitSignal()
	if err := verifyJournal(exitCtx, events, gene.LaunchTime(), cfg, n.Best()); err != nil {
		return errors.Wrap(err, "verify journal")
	}
	if err := verifyDigests(exitCtx, n, events, cfg); err != nil {
		return errors.Wrap(err, "verify digests")
	}
	log.Info("verification complete", "best", n.Best())
	return nil
}

// verifyJournal walks the journal block by block and checks every record
// against the position it claims. Records of blocks that never landed are
// reported last.
func verifyJournal(ctx context.Context, events *eventdb.EventDB, launchTime uint64, cfg xenv.Config, best uint32) error {
	if best == 0 {
		return nil
	}
	fmt.Println(">> Verifying event journal <<")
	pb := pb.New64(int64(best)).
		Set64(0).
		SetMaxWidth(90).
		Start()
	defer func() { pb.NotPrint = true }()

	const fetchStep = uint32(100)

	var (
		fetched      []*eventdb.Record
		fetchLimit   = uint32(0)
		splitRecords = func(num uint32) (records []*eventdb.Record) {
			if len(fetched) == 0 {
				return
			}
			for i, rec := range fetched {
				if rec.BlockNumber != num {
					if i > 0 {
						records = fetched[:i]
						fetched = fetched[i:]
					}
					return
				}
			}
			records = fetched
			fetched = nil
			return
		}
	)

	for num := uint32(1); num <= best; num++ {
		if num > fetchLimit {
			var err error
			fetchLimit += fetchStep
			fetched, err = events.Filter(ctx, &eventdb.Filter{
				Range: &eventdb.Range{
					Unit: eventdb.Block,
					From: uint64(num),
					To:   uint64(fetchLimit),
				},
			})
			if err != nil {
				return err
			}
		}

		if err := verifyJournalPerBlock(num, launchTime, cfg, splitRecords(num)); err != nil {
			return err
		}
		pb.Add64(1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	pb.Finish()

	phantom, err := events.Filter(ctx, &eventdb.Filter{
		Range: &eventdb.Range{
			Unit: eventdb.Block,
			From: uint64(best) + 1,
			To:   ^uint64(0),
		},
	})
	if err != nil {
		return err
	}
	if len(phantom) > 0 {
		fmt.Println("\nDiff journal records")
		fmt.Println(jsonDiff([]*eventdb.Record(nil), phantom))
		return errors.New("journal holds records beyond the best block")
	}
	return nil
}

// verifyJournalPerBlock rebuilds the fields of the block's records that
// derive from the block position and compares them against the journal.
// Payload fields come from operations and have no second source to check.
func verifyJournalPerBlock(num uint32, launchTime uint64, cfg xenv.Config, records []*eventdb.Record) error {
	var expected []*eventdb.Record
	for i, rec := range records {
		cp := *rec
		cp.BlockNumber = num
		cp.Index = uint32(i)
		cp.BlockTime = launchTime + uint64(num)*cfg.BlockInterval
		cp.Epoch = uint64(num / cfg.EpochLength)
		expected = append(expected, &cp)
	}
	if !reflect.DeepEqual(records, expected) {
		fmt.Println("\nDiff journal records")
		fmt.Println(jsonDiff(expected, records))
		return errors.New("incorrect journal records")
	}
	return nil
}

// verifyDigests rebuilds the outcome digest of every sealed epoch from
// history and checks it against both the stored digest and the seal record
// in the journal.
func verifyDigests(ctx context.Context, n *node.Node, events *eventdb.EventDB, cfg xenv.Config) error {
	best := n.Best()
	sealed := (uint64(best) + 1) / uint64(cfg.EpochLength)
	if sealed == 0 {
		return nil
	}

	fmt.Println(">> Verifying epoch digests <<")
	pb := pb.New64(int64(sealed)).
		Set64(0).
		SetMaxWidth(90).
		Start()
	defer func() { pb.NotPrint = true }()

	sealRecords, err := events.Filter(ctx, &eventdb.Filter{
		CriteriaSet: []*eventdb.Criteria{{Name: staking.EventEpochSealed}},
		Range:       &eventdb.Range{Unit: eventdb.Block, From: 1, To: uint64(best)},
	})
	if err != nil {
		return err
	}
	if len(sealRecords) != int(sealed) {
		return errors.Errorf("journal holds %d seal records, want %d", len(sealRecords), sealed)
	}

	return n.View(func(env *xenv.Environment, stk *staking.Staking) error {
		for epoch := uint64(0); epoch < sealed; epoch++ {
			stored, err := stk.EpochDigest(epoch)
			if err != nil {
				return err
			}
			rebuilt, err := stk.RecomputeDigest(env, epoch)
			if err != nil {
				return err
			}
			if rebuilt != stored {
				return errors.Errorf("digest mismatch at epoch %d: sealed %v, rebuilt %v", epoch, stored, rebuilt)
			}

			last := uint32(epoch+1)*cfg.EpochLength - 1
			rec := sealRecords[epoch]
			if rec.BlockNumber != last || rec.Epoch != epoch || rec.Data["digest"] != stored.String() {
				cp := *rec
				cp.BlockNumber = last
				cp.Epoch = epoch
				data := make(map[string]string, len(rec.Data))
				for k, v := range rec.Data {
					data[k] = v
				}
				data["digest"] = stored.String()
				cp.Data = data
				fmt.Println("\nDiff seal record")
				fmt.Println(jsonDiff(&cp, rec))
				return errors.New("incorrect seal record")
			}
			pb.Add64(1)

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		pb.Finish()
		return nil
	})
}

func jsonDiff(expected, actual interface{}) string {
	e, _ := json.MarshalIndent(expected, "", "  ")
	a, _ := json.MarshalIndent(actual, "", "  ")
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(e)),
		B:        difflib.SplitLines(string(a)),
		FromFile: "Expected",
		FromDate: "",
		ToFile:   "Actual",
		ToDate:   "",
		Context:  1,
	})
	return diff
}
