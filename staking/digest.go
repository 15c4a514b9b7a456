// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/qianbin/drlp"

	"github.com/meridianchain/meridian/meridian"
)

// outcomeRow is one validator's sealed outcome for an epoch.
type outcomeRow struct {
	Owner    meridian.Address
	Stake    *big.Int
	Reward   *big.Int
	Blocks   uint64
	Slashes  uint64
	Eligible bool
}

// outcomeDigest commits to the full outcome of an epoch. Rows are appended
// in registry order, so two states sealing the same epoch from the same
// history produce the same digest.
func outcomeDigest(epoch uint64, totalStake *big.Int, rows []*outcomeRow) meridian.Bytes32 {
	buf := drlp.AppendUint(nil, epoch)
	buf = drlp.AppendString(buf, totalStake.Bytes())
	for _, row := range rows {
		buf = drlp.AppendString(buf, row.Owner.Bytes())
		buf = drlp.AppendString(buf, row.Stake.Bytes())
		buf = drlp.AppendString(buf, row.Reward.Bytes())
		buf = drlp.AppendUint(buf, row.Blocks)
		buf = drlp.AppendUint(buf, row.Slashes)
		var eligible uint64
		if row.Eligible {
			eligible = 1
		}
		buf = drlp.AppendUint(buf, eligible)
	}
	return meridian.Blake2b(buf)
}
