// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/meridianchain/meridian/api/events"
	"github.com/meridianchain/meridian/api/stakingapi"
	"github.com/meridianchain/meridian/api/subscriptions"
	"github.com/meridianchain/meridian/co"
	"github.com/meridianchain/meridian/eventdb"
	"github.com/meridianchain/meridian/log"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins string
	BacktraceLimit uint32
	LogsLimit      uint64
	PprofOn        bool
	EnableMetrics  bool
	// Recorder journals requests to a file when set. Its lifecycle stays
	// with the caller.
	Recorder *RequestRecorder
}

// New returns the api handler and a cleanup func for hijacked connections.
func New(
	backend stakingapi.Backend,
	db *eventdb.EventDB,
	sig *co.Signal,
	logRequests *atomic.Bool,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	stakingapi.New(backend).
		Mount(router, "/staking")
	events.New(db, opts.LogsLimit).
		Mount(router, "/events")
	subs := subscriptions.New(db, backend.Best, sig, opts.BacktraceLimit)
	subs.Mount(router, "/subscriptions")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", "x-genesis-id"}),
		handlers.ExposedHeaders([]string{"x-genesis-id"}),
	)(handler)

	handler = RequestLoggerHandler(handler, logger, logRequests, opts.Recorder)

	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}
