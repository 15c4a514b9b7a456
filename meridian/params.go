// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package meridian

import "math/big"

// Constants of the meridian network.
const (
	// BpsDenom denominator of basis-point ratios (rates, uptime factors).
	BpsDenom = 10_000

	// DefaultEpochLength number of blocks per epoch unless overridden at genesis.
	DefaultEpochLength uint32 = 20

	// DefaultBlockInterval time between two consecutive blocks, in seconds.
	DefaultBlockInterval uint64 = 2

	// DefaultPerPage page size applied when a listing query passes zero.
	DefaultPerPage = 50

	// MaxPerPage upper bound of a single listing page.
	MaxPerPage = 1000
)

// System accounts. Module storage and pooled funds are namespaced under them.
var (
	// AuthorityAddress owns the validator allow-list.
	AuthorityAddress = BytesToAddress([]byte("mrd-authority"))

	// ParamsAddress owns the governance parameter storage.
	ParamsAddress = BytesToAddress([]byte("mrd-params"))

	// TokenAddress owns the token ledger storage.
	TokenAddress = BytesToAddress([]byte("mrd-token"))

	// StakingAddress owns the staking engine storage.
	StakingAddress = BytesToAddress([]byte("mrd-staking"))

	// StakingPoolAddress holds funds pulled from stakers until they are claimed back.
	StakingPoolAddress = BytesToAddress([]byte("mrd-staking-pool"))
)

// Keys of governance params. Values are epoch-versioned.
var (
	// KeyValidatorThreshold minimum total stake for validator eligibility.
	KeyValidatorThreshold = BytesToBytes32([]byte("validator-threshold"))

	// KeyRewardRate per-epoch reward rate in basis points of stake.
	KeyRewardRate = BytesToBytes32([]byte("reward-rate"))

	// KeyJailPeriod number of epochs a jail lasts.
	KeyJailPeriod = BytesToBytes32([]byte("jail-period"))

	// KeyCommissionDelay minimum epochs before a commission change takes effect.
	KeyCommissionDelay = BytesToBytes32([]byte("commission-delay"))

	// KeySlashJailThreshold per-epoch slash count that triggers a jail.
	KeySlashJailThreshold = BytesToBytes32([]byte("slash-jail-threshold"))

	// KeyExpectedBlocks blocks a validator is expected to produce per epoch.
	KeyExpectedBlocks = BytesToBytes32([]byte("expected-blocks"))

	// KeySlashUptimePenalty deduction from the uptime ratio per slash, in
	// basis points. Slashing never touches recorded stake.
	KeySlashUptimePenalty = BytesToBytes32([]byte("slash-uptime-penalty"))

	// KeyMaxCommission upper bound of commission rates, in basis points.
	KeyMaxCommission = BytesToBytes32([]byte("max-commission"))
)

// Initial values of the governance params, scheduled at genesis for epoch 0.
var (
	// InitialValidatorThreshold 10,000 MER.
	InitialValidatorThreshold = new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1e18))

	// InitialRewardRate 50 bps of stake per epoch at full uptime.
	InitialRewardRate = big.NewInt(50)

	// InitialJailPeriod 8 epochs.
	InitialJailPeriod = big.NewInt(8)

	// InitialCommissionDelay 2 epochs.
	InitialCommissionDelay = big.NewInt(2)

	// InitialSlashJailThreshold 24 slashes within one epoch.
	InitialSlashJailThreshold = big.NewInt(24)

	// InitialSlashUptimePenalty 100 bps off the uptime ratio per slash.
	InitialSlashUptimePenalty = big.NewInt(100)

	// InitialExpectedBlocks per-validator production target per epoch.
	InitialExpectedBlocks = big.NewInt(180)

	// InitialMaxCommission 3000 bps.
	InitialMaxCommission = big.NewInt(3000)
)
