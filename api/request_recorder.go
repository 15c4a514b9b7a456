// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"encoding/json"
	"io"
	"time"
)

// RequestRecorder journals api requests as JSON lines, off the request path.
// Entries are dropped when the queue is full rather than stalling handlers.
type RequestRecorder struct {
	entries chan recordedRequest
	stop    chan struct{}
	done    chan struct{}
	out     io.Writer
}

type recordedRequest struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId"`
	URI       string    `json:"uri"`
	Method    string    `json:"method"`
	Body      string    `json:"body"`
}

// NewRequestRecorder starts a recorder draining into out, normally a
// rotatewriter.Writer. Stop it before closing out.
func NewRequestRecorder(out io.Writer) *RequestRecorder {
	rec := &RequestRecorder{
		entries: make(chan recordedRequest, 100_000),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		out:     out,
	}
	go rec.drain()
	return rec
}

func (rec *RequestRecorder) record(entry recordedRequest) {
	select {
	case rec.entries <- entry:
	default:
	}
}

func (rec *RequestRecorder) drain() {
	defer close(rec.done)
	for {
		select {
		case entry := <-rec.entries:
			rec.write(entry)
		case <-rec.stop:
			for {
				select {
				case entry := <-rec.entries:
					rec.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (rec *RequestRecorder) write(entry recordedRequest) {
	marshaled, err := json.Marshal(entry)
	if err != nil {
		logger.Warn("unable to marshal api request entry", "err", err)
		return
	}
	if _, err := rec.out.Write(append(marshaled, '\n')); err != nil {
		logger.Warn("unable to write api request entry", "err", err)
	}
}

// Stop flushes queued entries and ends the drain goroutine.
func (rec *RequestRecorder) Stop() {
	close(rec.stop)
	<-rec.done
}
