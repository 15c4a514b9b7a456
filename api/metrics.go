// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/metrics"
)

var (
	metricHTTPReqCounter  = metrics.LazyLoadCounterVec("api_request_count", []string{"name", "code", "method"})
	metricHTTPReqDuration = metrics.LazyLoadHistogramVec("api_duration_ms", []string{"name", "code", "method"}, metrics.BucketHTTPReqs)
	metricActiveWebsocket = metrics.LazyLoadGaugeVec("api_active_websocket_count", []string{"subject"})
)

// metricsResponseWriter is a wrapper around http.ResponseWriter that captures the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{w, http.StatusOK}
}

func (m *metricsResponseWriter) WriteHeader(code int) {
	m.statusCode = code
	m.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker, needed for websocket upgrades behind the middleware.
func (m *metricsResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := m.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

// metricsMiddleware records request count and duration for every named route.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			name         = ""
			subscription = ""
		)
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		if strings.HasPrefix(name, "WS ") {
			// example path: /subscriptions/events -> subject "events"
			if paths := strings.Split(r.URL.Path, "/"); len(paths) > 2 {
				subscription = paths[2]
			}
		}

		now := time.Now()
		mrw := newMetricsResponseWriter(w)
		if subscription != "" {
			metricActiveWebsocket().AddWithLabel(1, map[string]string{"subject": subscription})
			defer metricActiveWebsocket().AddWithLabel(-1, map[string]string{"subject": subscription})
		}

		next.ServeHTTP(mrw, r)

		// unnamed routes (pprof etc.) are not recorded
		if name != "" {
			labels := map[string]string{"name": name, "code": strconv.Itoa(mrw.statusCode), "method": r.Method}
			metricHTTPReqCounter().AddWithLabel(1, labels)
			metricHTTPReqDuration().ObserveWithLabels(time.Since(now).Milliseconds(), labels)
		}
	})
}
