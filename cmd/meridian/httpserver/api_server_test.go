// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/meridian/meridian"
)

func TestHandleXGenesisID(t *testing.T) {
	genesisID := meridian.BytesToBytes32([]byte("genesis"))
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})
	handler := handleXGenesisID(inner, genesisID)

	tests := []struct {
		name           string
		header         string
		query          string
		expectedStatus int
	}{
		{"no id", "", "", http.StatusOK},
		{"matching header", genesisID.String(), "", http.StatusOK},
		{"matching query", "", genesisID.String(), http.StatusOK},
		{"mismatching header", "0xdeadbeef", "", http.StatusForbidden},
		{"mismatching query", "", "0xdeadbeef", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "http://example.com/staking/validators"
			if tt.query != "" {
				target += "?x-genesis-id=" + tt.query
			}
			req := httptest.NewRequest("GET", target, strings.NewReader("body"))
			if tt.header != "" {
				req.Header.Set("x-genesis-id", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, genesisID.String(), rr.Header().Get("x-genesis-id"))
		})
	}
}

func TestHandleAPITimeout(t *testing.T) {
	var deadlineSet bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadlineSet = r.Context().Deadline()
		w.Write([]byte("OK"))
	})
	handler := handleAPITimeout(inner, time.Minute)

	req := httptest.NewRequest("GET", "http://example.com/staking/clock", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.True(t, deadlineSet)

	// upgrade requests keep an unbounded context
	req = httptest.NewRequest("GET", "http://example.com/subscriptions/events", nil)
	req.Header.Set("Connection", "upgrade")
	req.Header.Set("Upgrade", "websocket")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.False(t, deadlineSet)
}

func TestStartAPIServer(t *testing.T) {
	genesisID := meridian.BytesToBytes32([]byte("genesis"))
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})

	url, closeFunc, err := StartAPIServer("127.0.0.1:0", inner, genesisID, 10*time.Second)
	require.NoError(t, err)
	defer closeFunc()

	//#nosec G107
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
	assert.Equal(t, genesisID.String(), res.Header.Get("x-genesis-id"))
}
