// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package events exposes the persisted event journal over REST.
package events

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/api/utils"
	"github.com/meridianchain/meridian/eventdb"
	"github.com/meridianchain/meridian/meridian"
)

// Criteria matches events by name and/or actor. Empty fields match
// everything.
type Criteria struct {
	Name  string            `json:"name,omitempty"`
	Actor *meridian.Address `json:"actor,omitempty"`
}

// Range bounds the filtered events by block number, block time or epoch.
type Range struct {
	Unit string `json:"unit"`
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Options paginates the filtered events.
type Options struct {
	Offset uint64 `json:"offset,omitempty"`
	Limit  uint64 `json:"limit,omitempty"`
}

// FilterRequest is the body of the filter endpoint. Criteria are OR-ed, the
// rest AND-ed.
type FilterRequest struct {
	CriteriaSet []*Criteria `json:"criteriaSet,omitempty"`
	Range       *Range      `json:"range,omitempty"`
	Options     *Options    `json:"options,omitempty"`
	Order       string      `json:"order,omitempty"`
}

// Events mounts the journal query endpoint.
type Events struct {
	db    *eventdb.EventDB
	limit uint64
}

// New create a new Events.
func New(db *eventdb.EventDB, limit uint64) *Events {
	return &Events{db, limit}
}

func (e *Events) convertFilter(req *FilterRequest) (*eventdb.Filter, error) {
	filter := &eventdb.Filter{}

	for i, criteria := range req.CriteriaSet {
		if criteria == nil {
			return nil, fmt.Errorf("criteriaSet[%d]: null not allowed", i)
		}
		filter.CriteriaSet = append(filter.CriteriaSet, &eventdb.Criteria{
			Name:  criteria.Name,
			Actor: criteria.Actor,
		})
	}

	if req.Range != nil {
		if req.Range.From > req.Range.To {
			return nil, errors.New("range.to must not precede range.from")
		}
		var unit eventdb.RangeType
		switch req.Range.Unit {
		case "", string(eventdb.Block):
			unit = eventdb.Block
		case string(eventdb.Time):
			unit = eventdb.Time
		case string(eventdb.Epoch):
			unit = eventdb.Epoch
		default:
			return nil, fmt.Errorf("range.unit %q not supported", req.Range.Unit)
		}
		filter.Range = &eventdb.Range{
			Unit: unit,
			From: req.Range.From,
			To:   req.Range.To,
		}
	}

	switch req.Order {
	case "", string(eventdb.ASC):
		filter.Order = eventdb.ASC
	case string(eventdb.DESC):
		filter.Order = eventdb.DESC
	default:
		return nil, fmt.Errorf("order %q not supported", req.Order)
	}

	if req.Options != nil {
		filter.Options = &eventdb.Options{
			Offset: req.Options.Offset,
			Limit:  req.Options.Limit,
		}
	} else {
		// limit+1 to detect whether there are more events than the default
		// limit allows to return
		filter.Options = &eventdb.Options{Limit: e.limit + 1}
	}
	return filter, nil
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	var body FilterRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Options != nil && body.Options.Limit > e.limit {
		return utils.Forbidden(fmt.Errorf("options.limit exceeds the maximum allowed value of %d", e.limit))
	}

	filter, err := e.convertFilter(&body)
	if err != nil {
		return utils.BadRequest(err)
	}

	records, err := e.db.Filter(req.Context(), filter)
	if err != nil {
		return err
	}
	if len(records) > int(e.limit) {
		return utils.Forbidden(fmt.Errorf("the number of filtered events exceeds the maximum allowed value of %d, please use pagination", e.limit))
	}
	return utils.WriteJSON(w, records)
}

// Mount mounts the endpoint under pathPrefix.
func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /events").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilter))
}
