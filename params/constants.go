// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package params

import "github.com/holiman/uint256"

const (
	// MaxRewardZoneSize bounds the number of pools that can share the
	// emission stream at once. Distribution scans the zone linearly.
	MaxRewardZoneSize = 50

	// MinDistributionGap is the minimum number of seconds that must pass
	// between emitter distributions before Distribute will advance the
	// global index again. Shorter gaps amplify floor-rounding loss.
	MinDistributionGap = 60 * 60

	// RewardZoneFreshness is how recently Distribute must have run for a
	// pool to be evicted from the reward zone without losing emissions.
	RewardZoneFreshness = 24 * 60 * 60

	// EmissionWindow is the length of an EPS allocation window, for both
	// backstop depositor emissions and per-reserve pool emissions.
	EmissionWindow = 7 * 24 * 60 * 60

	// Q4WLockTime is the cooldown between queueing backstop shares for
	// withdrawal and being able to redeem them.
	Q4WLockTime = 17 * 24 * 60 * 60

	// LedgerBumpUser is roughly 120 days of 5 second ledgers. Used as the
	// expiration window for allowances granted to pools.
	LedgerBumpUser uint32 = 120 * 24 * 60 * 60 / 5

	// AuctionLotPhaseBlocks is the block span over which an auction's lot
	// scales from 0% to 100%. AuctionExhaustBlocks is where the bid has
	// fully scaled from 100% down to 0%.
	AuctionLotPhaseBlocks = 200
	AuctionExhaustBlocks  = 400
)

var (
	// Scalar7 is the fixed point scalar for token amounts, shares,
	// percentages and EPS rates in their external 7 digit form.
	Scalar7 = uint256.NewInt(1e7)

	// Scalar12 is the fixed point scalar for reserve conversion rates.
	Scalar12 = uint256.NewInt(1e12)

	// Scalar14 is the fixed point scalar for emission indexes and the
	// internal EPS representation.
	Scalar14 = uint256.NewInt(1e14)

	// EmitterRate is the emission stream rate, 1 token per second in
	// 7 digit form.
	EmitterRate = uint256.NewInt(1e7)

	// MaxBackfilledEmissions caps the tokens that may be accrued while the
	// emitter has no record of this backstop (5,000,000 tokens).
	MaxBackfilledEmissions = uint256.NewInt(5_000_000 * 1e7)

	// PerBlockScalar is the Dutch auction price step per block, 0.005 in
	// 7 digit form.
	PerBlockScalar = uint256.NewInt(50_000)

	// BackstopThreshold is the minimum backstop deposit product constant a
	// pool must hold to enter the reward zone. Compared against the
	// 7 digit fixed point product of the deposit's underlying balances,
	// mirroring a constant-product valuation of the LP deposit: 200k
	// reward tokens paired with 10k base units.
	BackstopThreshold = mustParseU256("20000000000000000")

	// MaxEmissionIndex is the eviction sentinel for per-pool emission
	// records. A record carrying this index accrues nothing further.
	MaxEmissionIndex = mustParseU256("170141183460469231731687303715884105727")
)

func mustParseU256(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}
