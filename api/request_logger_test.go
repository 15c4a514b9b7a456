// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/meridian/log"
)

// mockLogger is a simple logger implementation for testing purposes
type mockLogger struct {
	loggedData []any
}

func (m *mockLogger) With(_ ...any) log.Logger { return m }

func (m *mockLogger) New(_ ...any) log.Logger { return m }

func (m *mockLogger) Log(_ slog.Level, _ string, _ ...any) {}

func (m *mockLogger) Trace(_ string, _ ...any) {}

func (m *mockLogger) Debug(_ string, _ ...any) {}

func (m *mockLogger) Error(_ string, _ ...any) {}

func (m *mockLogger) Crit(_ string, _ ...any) {}

func (m *mockLogger) Write(_ slog.Level, _ string, _ ...any) {}

func (m *mockLogger) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (m *mockLogger) Handler() slog.Handler { return nil }

func (m *mockLogger) Info(_ string, ctx ...any) {
	m.loggedData = append(m.loggedData, ctx...)
}

func (m *mockLogger) Warn(_ string, ctx ...any) {
	m.loggedData = append(m.loggedData, ctx...)
}

func TestRequestLoggerHandler(t *testing.T) {
	mockLog := &mockLogger{}
	enabled := atomic.Bool{}
	enabled.Store(true)

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	loggerHandler := RequestLoggerHandler(testHandler, mockLog, &enabled, nil)

	reqBody := "test body"
	req := httptest.NewRequest("POST", "http://example.com/staking/txs", strings.NewReader(reqBody))
	rr := httptest.NewRecorder()
	loggerHandler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	loggedData := mockLog.loggedData
	assert.Contains(t, loggedData, "URI")
	assert.Contains(t, loggedData, "http://example.com/staking/txs")
	assert.Contains(t, loggedData, "Method")
	assert.Contains(t, loggedData, "POST")
	assert.Contains(t, loggedData, "Body")
	assert.Contains(t, loggedData, reqBody)
	assert.Contains(t, loggedData, "RequestID")
	assert.Contains(t, loggedData, rr.Header().Get("X-Request-ID"))
}

func TestRequestLoggerDisabled(t *testing.T) {
	mockLog := &mockLogger{}
	enabled := atomic.Bool{}

	loggerHandler := RequestLoggerHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), mockLog, &enabled, nil)

	rr := httptest.NewRecorder()
	loggerHandler.ServeHTTP(rr, httptest.NewRequest("GET", "http://example.com/staking/clock", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, mockLog.loggedData)
	assert.Empty(t, rr.Header().Get("X-Request-ID"))
}

func TestRequestLoggerKeepsClientRequestID(t *testing.T) {
	enabled := atomic.Bool{}
	enabled.Store(true)

	loggerHandler := RequestLoggerHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), &mockLogger{}, &enabled, nil)

	req := httptest.NewRequest("GET", "http://example.com/staking/clock", nil)
	req.Header.Set("X-Request-ID", "client-chosen")
	rr := httptest.NewRecorder()
	loggerHandler.ServeHTTP(rr, req)

	assert.Equal(t, "client-chosen", rr.Header().Get("X-Request-ID"))
}

// syncBuffer guards the underlying buffer against the drain goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRequestRecorder(t *testing.T) {
	out := &syncBuffer{}
	recorder := NewRequestRecorder(out)

	// the recorder journals regardless of the runtime log toggle
	enabled := atomic.Bool{}
	handler := RequestLoggerHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}), &mockLogger{}, &enabled, recorder)

	req := httptest.NewRequest("POST", "http://example.com/staking/txs", strings.NewReader(`{"type":"stake"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)

	// Stop flushes the queue, no need to wait for the drain
	recorder.Stop()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)

	var entry recordedRequest
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "http://example.com/staking/txs", entry.URI)
	assert.Equal(t, "POST", entry.Method)
	assert.Equal(t, `{"type":"stake"}`, entry.Body)
	assert.Equal(t, rr.Header().Get("X-Request-ID"), entry.RequestID)
	assert.False(t, entry.Timestamp.IsZero())
}
