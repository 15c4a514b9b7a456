// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package health tracks block ingestion to answer liveness probes.
package health

import (
	"sync"
	"time"

	"github.com/meridianchain/meridian/meridian"
)

type BlockIngestion struct {
	BestBlock          *meridian.Bytes32 `json:"bestBlock"`
	BestBlockTimestamp *time.Time        `json:"bestBlockTimestamp"`
}

type Status struct {
	Healthy        bool            `json:"healthy"`
	BlockIngestion *BlockIngestion `json:"blockIngestion"`
}

type Health struct {
	lock          sync.RWMutex
	newBestBlock  time.Time
	bestBlockID   *meridian.Bytes32
	blockInterval time.Duration
}

func New(blockInterval time.Duration) *Health {
	return &Health{blockInterval: blockInterval}
}

// delayBuffer grants the sealing loop a grace period past the nominal interval.
const delayBuffer = 5 * time.Second

// NewBestBlock records the ingestion of a freshly committed block.
func (h *Health) NewBestBlock(id meridian.Bytes32) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.newBestBlock = time.Now()
	h.bestBlockID = &id
}

// Status reports whether blocks are landing on schedule. A zero
// maxTimeBetweenBlocks falls back to the block interval plus a small buffer.
func (h *Health) Status(maxTimeBetweenBlocks time.Duration) *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	if maxTimeBetweenBlocks == 0 {
		maxTimeBetweenBlocks = h.blockInterval + delayBuffer
	}

	ingest := &BlockIngestion{}
	if h.bestBlockID != nil {
		ts := h.newBestBlock
		ingest.BestBlock = h.bestBlockID
		ingest.BestBlockTimestamp = &ts
	}

	healthy := h.bestBlockID != nil && time.Since(h.newBestBlock) <= maxTimeBetweenBlocks

	return &Status{
		Healthy:        healthy,
		BlockIngestion: ingest,
	}
}
