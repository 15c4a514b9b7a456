// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb persists the staking events emitted per block, queryable
// by block range, epoch, name and actor.
package eventdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/meridianchain/meridian/meridian"
)

const eventTableSchema = `
create table if not exists event (
	blockNumber integer,
	eventIndex integer,
	blockTime decimal(32,0),
	epoch decimal(32,0),
	name text,
	actor blob(20),
	data blob
);

CREATE INDEX if not exists eventBlockNumberIndex on event(blockNumber);
CREATE INDEX if not exists eventEpochIndex on event(epoch);
CREATE INDEX if not exists eventNameIndex on event(name);
CREATE INDEX if not exists eventActorIndex on event(actor);
`

// Record is one staking event placed in a block.
type Record struct {
	BlockNumber uint32            `json:"blockNumber"`
	Index       uint32            `json:"index"`
	BlockTime   uint64            `json:"blockTime"`
	Epoch       uint64            `json:"epoch"`
	Name        string            `json:"name"`
	Actor       meridian.Address  `json:"actor"`
	Data        map[string]string `json:"data,omitempty"`
}

type RangeType string

const (
	Block RangeType = "block"
	Time  RangeType = "time"
	Epoch RangeType = "epoch"
)

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

type Range struct {
	Unit RangeType
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// Criteria matches events by name and/or actor. Nil and empty fields match
// everything.
type Criteria struct {
	Name  string
	Actor *meridian.Address
}

// Filter filters stored events. Criteria are OR-ed, the rest AND-ed.
type Filter struct {
	CriteriaSet []*Criteria
	Range       *Range
	Options     *Options
	Order       Order // default asc
}

// EventDB is the sqlite-backed event journal.
type EventDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New creates or opens the event db at the given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &EventDB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem creates an event db in ram.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Close closes the event db.
func (db *EventDB) Close() {
	db.db.Close()
}

func (db *EventDB) Path() string {
	return db.path
}

// Insert stores the records and drops rows of the abandoned block numbers,
// in one transaction.
func (db *EventDB) Insert(records []*Record, abandonedBlocks []uint32) error {
	if len(records) == 0 && len(abandonedBlocks) == 0 {
		return nil
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	for _, num := range abandonedBlocks {
		if _, err := tx.Exec("DELETE FROM event WHERE blockNumber = ?;", num); err != nil {
			tx.Rollback()
			return err
		}
	}
	for _, r := range records {
		data, err := encodeData(r.Data)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO event(blockNumber, eventIndex, blockTime, epoch, name, actor, data) VALUES (?, ?, ?, ?, ?, ?, ?);",
			r.BlockNumber,
			r.Index,
			r.BlockTime,
			r.Epoch,
			r.Name,
			r.Actor.Bytes(),
			data,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Filter returns the stored events matching the filter.
func (db *EventDB) Filter(ctx context.Context, filter *Filter) ([]*Record, error) {
	if filter == nil {
		return db.query(ctx, "SELECT * FROM event ORDER BY blockNumber, eventIndex ASC")
	}
	var args []interface{}
	stmt := "SELECT * FROM event WHERE 1"
	if filter.Range != nil {
		condition := "blockNumber"
		switch filter.Range.Unit {
		case Time:
			condition = "blockTime"
		case Epoch:
			condition = "epoch"
		}
		args = append(args, filter.Range.From)
		stmt += " AND " + condition + " >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND " + condition + " <= ? "
		}
	}
	length := len(filter.CriteriaSet)
	if length > 0 {
		for i, criteria := range filter.CriteriaSet {
			if i == 0 {
				stmt += " AND (( 1 "
			} else {
				stmt += " OR ( 1 "
			}
			if criteria.Name != "" {
				args = append(args, criteria.Name)
				stmt += " AND name = ? "
			}
			if criteria.Actor != nil {
				args = append(args, criteria.Actor.Bytes())
				stmt += " AND actor = ? "
			}
			if i == length-1 {
				stmt += " )) "
			} else {
				stmt += " ) "
			}
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY blockNumber DESC, eventIndex DESC "
	} else {
		stmt += " ORDER BY blockNumber ASC, eventIndex ASC "
	}

	if filter.Options != nil {
		stmt += " limit ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(ctx, stmt, args...)
}

func (db *EventDB) query(ctx context.Context, stmt string, args ...interface{}) ([]*Record, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			blockNumber uint32
			index       uint32
			blockTime   uint64
			epoch       uint64
			name        string
			actor       []byte
			data        []byte
		)
		if err := rows.Scan(
			&blockNumber,
			&index,
			&blockTime,
			&epoch,
			&name,
			&actor,
			&data,
		); err != nil {
			return nil, err
		}
		payload, err := decodeData(data)
		if err != nil {
			return nil, err
		}
		records = append(records, &Record{
			BlockNumber: blockNumber,
			Index:       index,
			BlockTime:   blockTime,
			Epoch:       epoch,
			Name:        name,
			Actor:       meridian.BytesToAddress(actor),
			Data:        payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// event payloads are small string maps; they are stored snappy-compressed
func encodeData(data map[string]string) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode event data: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

func decodeData(blob []byte) (map[string]string, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, fmt.Errorf("decode event data: %w", err)
	}
	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode event data: %w", err)
	}
	return data, nil
}
