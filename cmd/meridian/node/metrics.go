// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"time"

	"github.com/meridianchain/meridian/metrics"
)

var (
	metricBlockPackedCount = metrics.LazyLoadCounterVec("block_packed_count", []string{"status"})
	metricBlockPackedOps   = metrics.LazyLoadCounterVec("block_packed_op_count", []string{"status"})

	metricBlockPackedDuration = metrics.LazyLoadHistogramVec(
		"block_packed_duration_ms", []string{"status"}, metrics.Bucket10s,
	)
)

// evalBlockPackMetrics captures block packing metrics
func evalBlockPackMetrics(ops int, f func() error) error {
	startTime := time.Now()

	if err := f(); err != nil {
		status := map[string]string{
			"status": "failed",
		}
		metricBlockPackedCount().AddWithLabel(1, status)
		metricBlockPackedOps().AddWithLabel(int64(ops), status)
		metricBlockPackedDuration().ObserveWithLabels(time.Since(startTime).Milliseconds(), status)
		return err
	}

	status := map[string]string{
		"status": "packed",
	}
	metricBlockPackedCount().AddWithLabel(1, status)
	metricBlockPackedOps().AddWithLabel(int64(ops), status)
	metricBlockPackedDuration().ObserveWithLabels(time.Since(startTime).Milliseconds(), status)
	return nil
}
