// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package backstop

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/params"
)

// seedZone installs a reward zone of pools holding the given token
// balances with no queued shares. Shares mint 1:1 with tokens.
func (f *fixture) seedZone(balances map[common.Address]uint64, zone []common.Address) {
	require.NoError(f.t, f.b.setRewardZone(zone))
	for pool, tokens := range balances {
		require.NoError(f.t, f.b.setPoolBalance(pool, &PoolBalance{
			Tokens: amt(tokens),
			Shares: amt(tokens),
			Q4W:    new(uint256.Int),
		}))
	}
	f.commit()
}

func TestDistributeGlobalIndexAdvance(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	now := uint64(1713139200)
	p1, p2, p3 := testAddr(0x01), testAddr(0x02), testAddr(0x03)

	f.seedZone(map[common.Address]uint64{
		p1: 300_000,
		p2: 200_000,
		p3: 500_000,
	}, []common.Address{p1, p2, p3})
	require.NoError(t, f.b.setLastDistributionTime(now-86_400))
	f.commit()

	f.emitter.Registered = true
	f.emitter.DistroTime = now

	emitted, err := f.b.Distribute(chain.Context{Timestamp: now, Sequence: 100})
	require.NoError(t, err)
	require.Equal(t, amt(86_400), emitted, "one token per second for a day")

	index, err := f.b.getRzEmissionIndex()
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(8_640_000_000_000), index)

	last, err := f.b.getLastDistributionTime()
	require.NoError(t, err)
	require.Equal(t, now, last)
}

func TestDistributeBootstrapRecordsClock(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	now := uint64(1713139200)
	f.emitter.Registered = true
	f.emitter.DistroTime = now - 10

	emitted, err := f.b.Distribute(chain.Context{Timestamp: now, Sequence: 100})
	require.NoError(t, err)
	require.True(t, emitted.IsZero())

	last, err := f.b.getLastDistributionTime()
	require.NoError(t, err)
	require.Equal(t, now-10, last)
}

func TestDistributeTooEarlyRejected(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	now := uint64(1713139200)
	p1 := testAddr(0x01)
	f.seedZone(map[common.Address]uint64{p1: 100_000}, []common.Address{p1})
	require.NoError(t, f.b.setLastDistributionTime(now-params.MinDistributionGap+1))
	f.commit()

	f.emitter.Registered = true
	f.emitter.DistroTime = now

	_, err := f.b.Distribute(chain.Context{Timestamp: now, Sequence: 100})
	require.ErrorIs(t, err, params.ErrBadRequest)
}

func TestDistributeEmptyZoneRejected(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	now := uint64(1713139200)
	require.NoError(t, f.b.setLastDistributionTime(now-86_400))
	f.commit()

	f.emitter.Registered = true
	f.emitter.DistroTime = now

	_, err := f.b.Distribute(chain.Context{Timestamp: now, Sequence: 100})
	require.ErrorIs(t, err, params.ErrBadRequest)
}

func TestDistributeIndexMonotonic(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	now := uint64(1713139200)
	p1 := testAddr(0x01)
	f.seedZone(map[common.Address]uint64{p1: 1_000_000}, []common.Address{p1})
	require.NoError(t, f.b.setLastDistributionTime(now-86_400))
	f.commit()

	f.emitter.Registered = true
	f.emitter.DistroTime = now

	_, err := f.b.Distribute(chain.Context{Timestamp: now, Sequence: 100})
	require.NoError(t, err)
	first, err := f.b.getRzEmissionIndex()
	require.NoError(t, err)

	f.emitter.DistroTime = now + 7_200
	_, err = f.b.Distribute(chain.Context{Timestamp: now + 7_200, Sequence: 101})
	require.NoError(t, err)
	second, err := f.b.getRzEmissionIndex()
	require.NoError(t, err)
	require.True(t, second.Cmp(first) > 0, "index never decreases")
}

func TestDropForwardsToEmitter(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	require.NoError(t, f.b.Drop(chain.Context{Timestamp: 1713139200, Sequence: 100}))
	require.True(t, f.emitter.Dropped)
}

func TestDistributeBackfillAccrues(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	now := uint64(1713139200)
	p1 := testAddr(0x01)
	f.seedZone(map[common.Address]uint64{p1: 100_000}, []common.Address{p1})
	f.emitter.Registered = false

	// bootstrap run records the ledger clock and flags backfilling
	emitted, err := f.b.Distribute(chain.Context{Timestamp: now, Sequence: 100})
	require.NoError(t, err)
	require.True(t, emitted.IsZero())
	status, exists, err := f.b.getBackfillStatus()
	require.NoError(t, err)
	require.True(t, exists)
	require.True(t, status)

	emitted, err = f.b.Distribute(chain.Context{Timestamp: now + 86_400, Sequence: 200})
	require.NoError(t, err)
	require.Equal(t, amt(86_400), emitted)

	backfilled, err := f.b.getBackfillEmissions()
	require.NoError(t, err)
	require.Equal(t, amt(86_400), backfilled)
}

func TestDistributeBackfillCap(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	now := uint64(1713139200)
	p1 := testAddr(0x01)
	f.seedZone(map[common.Address]uint64{p1: 100_000}, []common.Address{p1})
	require.NoError(t, f.b.setBackfillStatus(true))
	require.NoError(t, f.b.setLastDistributionTime(now-86_401))
	// one more day of backfill would breach the allotment by a token
	seeded := new(uint256.Int).Sub(params.MaxBackfilledEmissions, amt(86_400))
	require.NoError(t, f.b.setBackfillEmissions(seeded))
	f.commit()

	f.emitter.Registered = false

	_, err := f.b.Distribute(chain.Context{Timestamp: now, Sequence: 100})
	require.ErrorIs(t, err, params.ErrMaxBackfillEmissions)

	// the aborted run must not have advanced the clock or the allotment
	last, err := f.b.getLastDistributionTime()
	require.NoError(t, err)
	require.Equal(t, now-86_401, last)
	backfilled, err := f.b.getBackfillEmissions()
	require.NoError(t, err)
	require.Equal(t, seeded, backfilled)
}

func TestDistributeBackfillExactCapAllowed(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	now := uint64(1713139200)
	p1 := testAddr(0x01)
	f.seedZone(map[common.Address]uint64{p1: 100_000}, []common.Address{p1})
	require.NoError(t, f.b.setBackfillStatus(true))
	require.NoError(t, f.b.setLastDistributionTime(now-86_400))
	require.NoError(t, f.b.setBackfillEmissions(new(uint256.Int).Sub(params.MaxBackfilledEmissions, amt(86_400))))
	f.commit()

	f.emitter.Registered = false

	_, err := f.b.Distribute(chain.Context{Timestamp: now, Sequence: 100})
	require.NoError(t, err)
	backfilled, err := f.b.getBackfillEmissions()
	require.NoError(t, err)
	require.Equal(t, params.MaxBackfilledEmissions, backfilled)
}

// The first emitter acknowledged run after a backfill discards the gap
// rather than inventing emissions the contract cannot attribute.
func TestDistributeBackfillToNormalDiscardsGap(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	now := uint64(1713139200)
	p1 := testAddr(0x01)
	f.seedZone(map[common.Address]uint64{p1: 100_000}, []common.Address{p1})
	require.NoError(t, f.b.setBackfillStatus(true))
	require.NoError(t, f.b.setLastDistributionTime(now-7*86_400))
	f.commit()

	f.emitter.Registered = true
	f.emitter.DistroTime = now - 3_600

	emitted, err := f.b.Distribute(chain.Context{Timestamp: now, Sequence: 100})
	require.NoError(t, err)
	require.True(t, emitted.IsZero(), "reset run emits nothing")

	status, exists, err := f.b.getBackfillStatus()
	require.NoError(t, err)
	require.True(t, exists)
	require.False(t, status)

	last, err := f.b.getLastDistributionTime()
	require.NoError(t, err)
	require.Equal(t, now-3_600, last, "clock resynchronised to the emitter")

	// subsequent runs accrue normally from the emitter clock
	f.emitter.DistroTime = now + 86_400
	emitted, err = f.b.Distribute(chain.Context{Timestamp: now + 86_400, Sequence: 200})
	require.NoError(t, err)
	require.Equal(t, amt(86_400+3_600), emitted)
}
