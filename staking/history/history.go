// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package history implements an epoch-indexed version history.
//
// A History records the successive values a quantity takes on over epochs,
// as a sorted list of (epoch, value) entries. The entry at epoch E holds the
// value effective from E until the epoch of the next entry. Histories answer
// point queries by binary search and range queries in time linear in the
// range width plus the number of entries covered.
package history

import (
	"io"
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/meridianchain/meridian/staking/reverts"
)

// Entry pairs an epoch with the value that took effect at that epoch.
type Entry[V any] struct {
	Epoch uint64
	Value V
}

// History is a version history ordered by strictly ascending epoch.
//
// Appends are monotonic. A value may only be recorded at or after the epoch
// of the latest entry, and recording at exactly that epoch replaces it. The
// zero History is ready to use.
type History[V any] struct {
	entries []Entry[V]
}

// New creates a history from pre-sorted entries.
func New[V any](entries ...Entry[V]) *History[V] {
	return &History[V]{entries: entries}
}

// Len returns the number of recorded entries.
func (h *History[V]) Len() int {
	return len(h.entries)
}

// Entries returns the underlying entries. The returned slice must not be modified.
func (h *History[V]) Entries() []Entry[V] {
	return h.entries
}

// First returns the earliest entry.
func (h *History[V]) First() (Entry[V], bool) {
	if len(h.entries) == 0 {
		return Entry[V]{}, false
	}
	return h.entries[0], true
}

// Latest returns the most recently recorded entry, which may lie in the future.
func (h *History[V]) Latest() (Entry[V], bool) {
	if len(h.entries) == 0 {
		return Entry[V]{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Update records the value taking effect at the given epoch.
// Recording at the epoch of the latest entry replaces its value. Recording
// at an earlier epoch fails, history never rewrites the past.
func (h *History[V]) Update(epoch uint64, value V) error {
	if n := len(h.entries); n > 0 {
		last := &h.entries[n-1]
		if epoch < last.Epoch {
			return reverts.InvalidTiming("epoch %d precedes latest recorded epoch %d", epoch, last.Epoch)
		}
		if epoch == last.Epoch {
			last.Value = value
			return nil
		}
	}
	h.entries = append(h.entries, Entry[V]{Epoch: epoch, Value: value})
	return nil
}

// Resolve returns the value effective at the given epoch, that of the entry
// with the greatest epoch not exceeding it. The second return is false when
// no entry had taken effect yet.
func (h *History[V]) Resolve(epoch uint64) (V, bool) {
	i := sort.Search(len(h.entries), func(i int) bool {
		return h.entries[i].Epoch > epoch
	})
	if i == 0 {
		var zero V
		return zero, false
	}
	return h.entries[i-1].Value, true
}

// Sweep visits every epoch in [from, to] that resolves to a value, in
// ascending order, until fn returns false. Epochs before the first entry
// are skipped.
func (h *History[V]) Sweep(from, to uint64, fn func(epoch uint64, value V) bool) {
	h.Spans(from, to, func(spanFrom, spanTo uint64, value V) bool {
		for e := spanFrom; e <= spanTo; e++ {
			if !fn(e, value) {
				return false
			}
			if e == math.MaxUint64 {
				break
			}
		}
		return true
	})
}

// Spans visits the maximal sub-ranges of [from, to] over which the resolved
// value is constant, in ascending order, until fn returns false. Sub-ranges
// before the first entry are skipped. The cost is linear in the number of
// entries covered, independent of the range width.
func (h *History[V]) Spans(from, to uint64, fn func(from, to uint64, value V) bool) {
	if len(h.entries) == 0 || to < from {
		return
	}
	if first := h.entries[0].Epoch; from < first {
		if first > to {
			return
		}
		from = first
	}

	// the entry effective at from
	i := sort.Search(len(h.entries), func(i int) bool {
		return h.entries[i].Epoch > from
	}) - 1

	for ; i < len(h.entries); i++ {
		spanFrom := h.entries[i].Epoch
		if spanFrom < from {
			spanFrom = from
		}
		spanTo := to
		if i+1 < len(h.entries) && h.entries[i+1].Epoch <= to {
			spanTo = h.entries[i+1].Epoch - 1
		}
		if !fn(spanFrom, spanTo, h.entries[i].Value) {
			return
		}
		if spanTo == to {
			return
		}
	}
}

// Cursor returns a cursor replaying the resolved values of [from, to].
func (h *History[V]) Cursor(from, to uint64) *Cursor[V] {
	c := &Cursor[V]{}
	h.Spans(from, to, func(spanFrom, spanTo uint64, value V) bool {
		c.spans = append(c.spans, span[V]{spanFrom, spanTo, value})
		return true
	})
	return c
}

// Cursor replays the resolved values of a window epoch by epoch. It holds
// the constant-value spans of the window and advances over them in a single
// pass, so reading every epoch costs the window width plus the number of
// entries covered, where resolving each epoch separately would not.
type Cursor[V any] struct {
	spans []span[V]
	idx   int
}

type span[V any] struct {
	from, to uint64
	value    V
}

// At returns the value effective at the epoch, like Resolve restricted to
// the cursor's window. Epochs must not decrease between calls.
func (c *Cursor[V]) At(epoch uint64) (V, bool) {
	for c.idx < len(c.spans) && c.spans[c.idx].to < epoch {
		c.idx++
	}
	if c.idx == len(c.spans) || epoch < c.spans[c.idx].from {
		var zero V
		return zero, false
	}
	return c.spans[c.idx].value, true
}

// EncodeRLP implements rlp.Encoder.
func (h *History[V]) EncodeRLP(w io.Writer) error {
	if h == nil {
		return rlp.Encode(w, []Entry[V]{})
	}
	return rlp.Encode(w, h.entries)
}

// DecodeRLP implements rlp.Decoder.
func (h *History[V]) DecodeRLP(s *rlp.Stream) error {
	var entries []Entry[V]
	if err := s.Decode(&entries); err != nil {
		return err
	}
	h.entries = entries
	return nil
}
