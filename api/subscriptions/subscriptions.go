// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams newly journaled events over websocket.
package subscriptions

import (
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/api/utils"
	"github.com/meridianchain/meridian/co"
	"github.com/meridianchain/meridian/eventdb"
	"github.com/meridianchain/meridian/log"
	"github.com/meridianchain/meridian/meridian"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	pingPeriod  = 10 * time.Second
	writeWait   = 5 * time.Second
	streamChunk = 256
)

var upgrader = websocket.Upgrader{
	EnableCompression: true,
	// the event stream is an operator tool, serve any origin
	CheckOrigin: func(*http.Request) bool { return true },
}

// Subscriptions streams events committed after the subscriber position.
type Subscriptions struct {
	db        *eventdb.EventDB
	best      func() uint32
	sig       *co.Signal
	backtrace uint32
	done      chan struct{}
	goes      co.Goes
}

// New create a new Subscriptions. best reports the latest committed block
// and sig is signaled whenever one lands. backtrace caps how far behind the
// chain head a subscriber may start; zero disables the cap.
func New(db *eventdb.EventDB, best func() uint32, sig *co.Signal, backtrace uint32) *Subscriptions {
	return &Subscriptions{
		db:        db,
		best:      best,
		sig:       sig,
		backtrace: backtrace,
		done:      make(chan struct{}),
	}
}

// Close terminates all hijacked connections and waits for their goroutines.
func (s *Subscriptions) Close() {
	close(s.done)
	s.goes.Wait()
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()

	best := s.best()
	pos64, err := utils.UintQuery(q, "pos", 32, uint64(best))
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "pos"))
	}
	pos := uint32(pos64)
	if pos > best {
		return utils.BadRequest(errors.Errorf("pos %d is beyond the chain head %d", pos, best))
	}
	if s.backtrace > 0 && best-pos > s.backtrace {
		return utils.Forbidden(errors.Errorf("pos %d is out of the backtrace window of %d blocks", pos, s.backtrace))
	}

	var criteria []*eventdb.Criteria
	name := q.Get("name")
	var actor *meridian.Address
	if raw := q.Get("actor"); raw != "" {
		parsed, err := meridian.ParseAddress(raw)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "actor"))
		}
		actor = &parsed
	}
	if name != "" || actor != nil {
		criteria = []*eventdb.Criteria{{Name: name, Actor: actor}}
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader already responded
		logger.Debug("upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	closed := make(chan struct{})
	s.goes.Go(func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	if err := s.stream(req, conn, pos, criteria, closed); err != nil {
		logger.Debug("event stream ended", "error", err)
	}
	return nil
}

// stream pushes every event past pos, then follows the chain head.
func (s *Subscriptions) stream(
	req *http.Request,
	conn *websocket.Conn,
	pos uint32,
	criteria []*eventdb.Criteria,
	closed chan struct{},
) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// from is the next block to query and delivered counts the records
	// already sent from it, so a chunk boundary inside a block never skips
	// the rest of that block
	from := uint64(pos) + 1
	var delivered uint64

	waiter := s.sig.NewWaiter()
	for {
		records, err := s.db.Filter(req.Context(), &eventdb.Filter{
			CriteriaSet: criteria,
			Range: &eventdb.Range{
				Unit: eventdb.Block,
				From: from,
				To:   math.MaxUint32,
			},
			Options: &eventdb.Options{Offset: delivered, Limit: streamChunk},
		})
		if err != nil {
			return err
		}
		for _, record := range records {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(record); err != nil {
				return err
			}
			if uint64(record.BlockNumber) != from {
				from = uint64(record.BlockNumber)
				delivered = 0
			}
			delivered++
		}
		if len(records) == streamChunk {
			// the journal may hold more past the cursor, drain before waiting
			continue
		}

		select {
		case <-waiter.C():
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		case <-closed:
			return nil
		case <-s.done:
			return nil
		case <-req.Context().Done():
			return req.Context().Err()
		}
	}
}

// Mount mounts the endpoint under pathPrefix.
func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("WS /subscriptions/events").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeEvents))
}
