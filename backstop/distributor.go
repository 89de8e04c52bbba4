// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package backstop

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/fixedpoint"
	"github.com/luxfi/lend/interfaces"
	"github.com/luxfi/lend/params"
)

// Distribute advances the global reward zone emission index by the slice of
// the emitter's stream owed since the last distribution. Permissionless.
// Returns the emissions credited.
//
// When the emitter has no record of this backstop yet, the run is a
// backfill: the current ledger time stands in for the emitter clock and the
// emitted amount accrues against the bounded backfill allotment. On the
// first emitter acknowledged run after a backfill, the clock is
// resynchronised to the emitter and the gap's emissions are discarded, as
// the amount actually emitted across the gap cannot be determined here.
func (b *Backstop) Distribute(ctx chain.Context) (emissions *uint256.Int, err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	var (
		isBackfill bool
		needsReset bool
	)
	lastStatus, statusExists, err := b.getBackfillStatus()
	if err != nil {
		return nil, err
	}
	emitterTime, err := b.emitter.LastDistro(b.address)
	switch {
	case err == nil:
		if statusExists && lastStatus {
			if err := b.setBackfillStatus(false); err != nil {
				return nil, err
			}
			needsReset = true
		}
	case errors.Is(err, interfaces.ErrNotRegistered):
		isBackfill = true
		emitterTime = ctx.Timestamp
		if !statusExists {
			if err := b.setBackfillStatus(true); err != nil {
				return nil, err
			}
		}
	default:
		return nil, err
	}

	lastDistribution, err := b.getLastDistributionTime()
	if err != nil {
		return nil, err
	}

	// First ever distribution: record the clock and start from here.
	if lastDistribution == 0 {
		if err := b.setLastDistributionTime(emitterTime); err != nil {
			return nil, err
		}
		return new(uint256.Int), nil
	}

	// Backfill just ended: resynchronise to the emitter clock, dropping
	// the unattributable gap.
	if needsReset {
		if err := b.setLastDistributionTime(emitterTime); err != nil {
			return nil, err
		}
		return new(uint256.Int), nil
	}

	zone, err := b.getRewardZone()
	if err != nil {
		return nil, err
	}
	if len(zone) == 0 {
		return nil, params.ErrBadRequest
	}
	if emitterTime < lastDistribution+params.MinDistributionGap {
		return nil, params.ErrBadRequest
	}

	// The emitter streams one token per second.
	elapsed := uint256.NewInt(emitterTime - lastDistribution)
	newEmissions := new(uint256.Int).Mul(elapsed, params.EmitterRate)

	if isBackfill {
		backfilled, err := b.getBackfillEmissions()
		if err != nil {
			return nil, err
		}
		backfilled.Add(backfilled, newEmissions)
		if backfilled.Cmp(params.MaxBackfilledEmissions) > 0 {
			return nil, params.ErrMaxBackfillEmissions
		}
		if err := b.setBackfillEmissions(backfilled); err != nil {
			return nil, err
		}
	}
	if err := b.setLastDistributionTime(emitterTime); err != nil {
		return nil, err
	}

	totalNonQueued := new(uint256.Int)
	for _, pool := range zone {
		pb, err := b.getPoolBalance(pool)
		if err != nil {
			return nil, err
		}
		totalNonQueued.Add(totalNonQueued, pb.NonQueuedTokens())
	}
	if totalNonQueued.IsZero() {
		return nil, params.ErrBadRequest
	}

	prevIndex, err := b.getRzEmissionIndex()
	if err != nil {
		return nil, err
	}
	additional := fixedpoint.DivFloor(newEmissions, totalNonQueued, params.Scalar14)
	if err := b.setRzEmissionIndex(prevIndex.Add(prevIndex, additional)); err != nil {
		return nil, err
	}

	b.metrics.ObserveDistribute(newEmissions, isBackfill)
	b.log.Info("distributed emissions", "amount", newEmissions, "backfill", isBackfill, "zoneSize", len(zone))
	return newEmissions, nil
}

// Drop claims the emitter's drop list once a backstop swap completes.
// Rejected when the configured emitter has no drop surface.
func (b *Backstop) Drop(ctx chain.Context) error {
	dropper, ok := b.emitter.(interfaces.Dropper)
	if !ok {
		return params.ErrBadRequest
	}
	return dropper.Drop()
}
