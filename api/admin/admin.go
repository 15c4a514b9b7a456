// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package admin assembles the out-of-band operator endpoints. They are served
// on a separate listener so they never compete with public api traffic.
package admin

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/meridianchain/meridian/api/admin/apilogs"
	"github.com/meridianchain/meridian/api/admin/healthapi"
	"github.com/meridianchain/meridian/api/admin/loglevel"
	"github.com/meridianchain/meridian/health"
)

func NewHTTPHandler(logLevel *slog.LevelVar, apiLogs *atomic.Bool, healthTracker *health.Health) http.HandlerFunc {
	router := mux.NewRouter()

	loglevel.New(logLevel).Mount(router, "/admin/loglevel")
	apilogs.New(apiLogs).Mount(router, "/admin/apilogs")
	healthapi.New(healthTracker).Mount(router, "/admin/health")

	handler := handlers.CompressHandler(router)
	return handler.ServeHTTP
}
