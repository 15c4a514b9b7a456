// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pborman/uuid"

	"github.com/meridianchain/meridian/log"
)

// RequestLoggerHandler returns a http handler to ensure requests are syphoned into the writer.
// enabled is checked per request, so the admin endpoint can toggle logging at runtime. A non-nil
// recorder additionally journals every request to its writer, independent of the toggle.
func RequestLoggerHandler(handler http.Handler, logger log.Logger, enabled *atomic.Bool, recorder *RequestRecorder) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		logIt := enabled.Load()
		if !logIt && recorder == nil {
			handler.ServeHTTP(w, r)
			return
		}

		// Read and log the body (note: this can only be done once)
		// Ensure you don't disrupt the request body for handlers that need to read it
		var bodyBytes []byte
		var err error
		if r.Body != nil {
			bodyBytes, err = io.ReadAll(r.Body)
			if err != nil {
				logger.Warn("unexpected body read error", "err", err)
				return // don't pass bad request to the next handler
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New()
		}
		w.Header().Set("X-Request-ID", reqID)

		if recorder != nil {
			recorder.record(recordedRequest{
				Timestamp: time.Now(),
				RequestID: reqID,
				URI:       r.URL.String(),
				Method:    r.Method,
				Body:      string(bodyBytes),
			})
		}

		start := time.Now()
		handler.ServeHTTP(w, r)

		if logIt {
			logger.Info("API Request",
				"RequestID", reqID,
				"DurationMs", time.Since(start).Milliseconds(),
				"Timestamp", time.Now().Unix(),
				"URI", r.URL.String(),
				"Method", r.Method,
				"Body", string(bodyBytes),
			)
		}
	}

	return http.HandlerFunc(fn)
}
