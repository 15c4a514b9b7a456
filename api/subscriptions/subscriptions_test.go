// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/meridian/api/subscriptions"
	"github.com/meridianchain/meridian/co"
	"github.com/meridianchain/meridian/eventdb"
	"github.com/meridianchain/meridian/meridian"
)

var (
	actorA = meridian.BytesToAddress([]byte("actor-a"))
	actorB = meridian.BytesToAddress([]byte("actor-b"))
)

type testStream struct {
	db   *eventdb.EventDB
	best *atomic.Uint32
	sig  *co.Signal
	ts   *httptest.Server
}

func newRecord(block, index uint32, name string, actor meridian.Address) *eventdb.Record {
	return &eventdb.Record{
		BlockNumber: block,
		Index:       index,
		BlockTime:   uint64(block) * 10,
		Epoch:       uint64(block / 10),
		Name:        name,
		Actor:       actor,
		Data:        map[string]string{"amount": "100"},
	}
}

func newTestStream(t *testing.T, backtrace uint32) *testStream {
	db, err := eventdb.NewMem()
	require.NoError(t, err)

	require.NoError(t, db.Insert([]*eventdb.Record{
		newRecord(1, 0, "validator-joined", actorA),
		newRecord(2, 0, "staked", actorB),
	}, nil))

	best := &atomic.Uint32{}
	best.Store(2)

	sig := &co.Signal{}
	subs := subscriptions.New(db, best.Load, sig, backtrace)

	router := mux.NewRouter()
	subs.Mount(router, "/subscriptions")
	ts := httptest.NewServer(router)

	t.Cleanup(func() {
		ts.Close()
		subs.Close()
		db.Close()
	})
	return &testStream{db: db, best: best, sig: sig, ts: ts}
}

func (s *testStream) dial(rawQuery string) (*websocket.Conn, *http.Response, error) {
	u := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/subscriptions/events"
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return websocket.DefaultDialer.Dial(u, nil)
}

// commit journals records for a new block and announces it.
func (s *testStream) commit(t *testing.T, records ...*eventdb.Record) {
	require.NoError(t, s.db.Insert(records, nil))
	for _, r := range records {
		if r.BlockNumber > s.best.Load() {
			s.best.Store(r.BlockNumber)
		}
	}
	s.sig.Broadcast()
}

func readRecord(t *testing.T, conn *websocket.Conn) *eventdb.Record {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var rec eventdb.Record
	require.NoError(t, conn.ReadJSON(&rec))
	return &rec
}

func TestSubscribeBacklogThenLive(t *testing.T) {
	stream := newTestStream(t, 0)

	conn, _, err := stream.dial("pos=0")
	require.NoError(t, err)
	defer conn.Close()

	first := readRecord(t, conn)
	assert.Equal(t, uint32(1), first.BlockNumber)
	assert.Equal(t, "validator-joined", first.Name)
	assert.Equal(t, actorA, first.Actor)

	second := readRecord(t, conn)
	assert.Equal(t, uint32(2), second.BlockNumber)
	assert.Equal(t, "staked", second.Name)

	stream.commit(t, newRecord(3, 0, "epoch-sealed", actorA))

	third := readRecord(t, conn)
	assert.Equal(t, uint32(3), third.BlockNumber)
	assert.Equal(t, "epoch-sealed", third.Name)
	assert.Equal(t, map[string]string{"amount": "100"}, third.Data)
}

func TestSubscribeDefaultPos(t *testing.T) {
	stream := newTestStream(t, 0)

	// without pos the stream starts at the chain head, skipping the backlog
	conn, _, err := stream.dial("")
	require.NoError(t, err)
	defer conn.Close()

	stream.commit(t, newRecord(3, 0, "unstaked", actorB))

	rec := readRecord(t, conn)
	assert.Equal(t, uint32(3), rec.BlockNumber)
	assert.Equal(t, "unstaked", rec.Name)
}

func TestSubscribeBroadcastWakesAll(t *testing.T) {
	stream := newTestStream(t, 0)

	connA, _, err := stream.dial("")
	require.NoError(t, err)
	defer connA.Close()
	connB, _, err := stream.dial("")
	require.NoError(t, err)
	defer connB.Close()

	stream.commit(t, newRecord(3, 0, "staked", actorA))

	assert.Equal(t, uint32(3), readRecord(t, connA).BlockNumber)
	assert.Equal(t, uint32(3), readRecord(t, connB).BlockNumber)
}

func TestSubscribeFilters(t *testing.T) {
	stream := newTestStream(t, 0)

	conn, _, err := stream.dial("pos=0&name=staked")
	require.NoError(t, err)
	defer conn.Close()

	rec := readRecord(t, conn)
	assert.Equal(t, uint32(2), rec.BlockNumber)
	assert.Equal(t, "staked", rec.Name)

	// non-matching records never reach the subscriber
	stream.commit(t,
		newRecord(3, 0, "epoch-sealed", actorA),
		newRecord(3, 1, "staked", actorA),
	)

	rec = readRecord(t, conn)
	assert.Equal(t, uint32(3), rec.BlockNumber)
	assert.Equal(t, uint32(1), rec.Index)

	byActor, _, err := stream.dial("pos=0&actor=" + actorA.String())
	require.NoError(t, err)
	defer byActor.Close()

	assert.Equal(t, "validator-joined", readRecord(t, byActor).Name)
	assert.Equal(t, "epoch-sealed", readRecord(t, byActor).Name)
}

func TestSubscribeDrainsBlockAcrossChunks(t *testing.T) {
	stream := newTestStream(t, 0)

	// one block holding more records than a stream chunk
	records := make([]*eventdb.Record, 300)
	for i := range records {
		records[i] = newRecord(3, uint32(i), "staked", actorA)
	}
	stream.commit(t, records...)

	conn, _, err := stream.dial("pos=2")
	require.NoError(t, err)
	defer conn.Close()

	for i := range records {
		rec := readRecord(t, conn)
		require.Equal(t, uint32(3), rec.BlockNumber)
		require.Equal(t, uint32(i), rec.Index)
	}
}

func TestSubscribeRejects(t *testing.T) {
	stream := newTestStream(t, 0)

	_, resp, err := stream.dial("pos=99")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	_, resp, err = stream.dial("pos=x")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	_, resp, err = stream.dial("actor=not-an-address")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSubscribeBacktraceWindow(t *testing.T) {
	stream := newTestStream(t, 1)

	_, resp, err := stream.dial("pos=0")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	conn, _, err := stream.dial("pos=1")
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, uint32(2), readRecord(t, conn).BlockNumber)
}
