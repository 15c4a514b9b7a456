// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package healthapi serves liveness probes backed by the node health tracker.
package healthapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/meridianchain/meridian/api/utils"
	"github.com/meridianchain/meridian/health"
)

type API struct {
	health *health.Health
}

func New(health *health.Health) *API {
	return &API{
		health: health,
	}
}

func (h *API) handleGetHealth(w http.ResponseWriter, r *http.Request) error {
	// probes may loosen the freshness window, e.g. ?maxTimeBetweenBlocks=30s
	var maxTimeBetweenBlocks time.Duration
	if raw := r.URL.Query().Get("maxTimeBetweenBlocks"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			maxTimeBetweenBlocks = parsed
		}
	}

	status := h.health.Status(maxTimeBetweenBlocks)
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	return utils.WriteJSON(w, status)
}

func (h *API) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("health").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGetHealth))
}
