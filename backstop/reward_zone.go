// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package backstop

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/params"
)

// AddReward adds [toAdd] to the reward zone. When the zone is full a
// [toRemove] target must be supplied and is evicted, provided [toAdd]'s
// deposit strictly exceeds it. Newly added pools accrue only from the
// current global index forward; any previously accrued balance survives.
func (b *Backstop) AddReward(ctx chain.Context, toAdd common.Address, toRemove *common.Address) (err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	zone, err := b.getRewardZone()
	if err != nil {
		return err
	}
	rzIndex, err := b.getRzEmissionIndex()
	if err != nil {
		return err
	}
	for _, p := range zone {
		if p == toAdd {
			return params.ErrBadRequest
		}
	}

	pb, err := b.getPoolBalance(toAdd)
	if err != nil {
		return err
	}
	poolData, err := b.loadPoolBackstopData(toAdd, pb)
	if err != nil {
		return err
	}
	if !RequirePoolAboveThreshold(poolData) {
		return params.ErrInvalidRewardZoneEntry
	}

	if len(zone) < params.MaxRewardZoneSize {
		zone = append([]common.Address{toAdd}, zone...)
	} else {
		if toRemove == nil {
			return params.ErrRewardZoneFull
		}
		removePb, err := b.getPoolBalance(*toRemove)
		if err != nil {
			return err
		}
		if pb.Tokens.Cmp(removePb.Tokens) <= 0 {
			return params.ErrInvalidRewardZoneEntry
		}
		zone, err = b.removePool(ctx, zone, *toRemove)
		if err != nil {
			return err
		}
		zone = append([]common.Address{toAdd}, zone...)
	}

	// Start the new pool at the current global index, keeping whatever it
	// had already accrued before leaving the zone.
	accrued := new(uint256.Int)
	if existing, err := b.getRzEmisData(toAdd); err != nil {
		return err
	} else if existing != nil {
		accrued = existing.Accrued
	}
	if err := b.setRzEmisData(toAdd, &RzEmissionData{Index: rzIndex, Accrued: accrued}); err != nil {
		return err
	}
	if err := b.setRewardZone(zone); err != nil {
		return err
	}
	b.log.Info("reward zone add", "pool", toAdd, "zoneSize", len(zone))
	return nil
}

// RemoveReward evicts [toRemove] from the reward zone. Permitted only once
// the pool has fallen below the eligibility threshold.
func (b *Backstop) RemoveReward(ctx chain.Context, toRemove common.Address) (err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	zone, err := b.getRewardZone()
	if err != nil {
		return err
	}
	pb, err := b.getPoolBalance(toRemove)
	if err != nil {
		return err
	}
	poolData, err := b.loadPoolBackstopData(toRemove, pb)
	if err != nil {
		return err
	}
	if RequirePoolAboveThreshold(poolData) {
		return params.ErrBadRequest
	}
	zone, err = b.removePool(ctx, zone, toRemove)
	if err != nil {
		return err
	}
	if err := b.setRewardZone(zone); err != nil {
		return err
	}
	b.log.Info("reward zone remove", "pool", toRemove, "zoneSize", len(zone))
	return nil
}

// removePool evicts a pool from the zone, marking its emission record with
// the sentinel index so later gulps pay out only what was already accrued.
// Eviction requires a distribution within the freshness window so the
// evicted pool cannot lose emissions it was owed.
func (b *Backstop) removePool(ctx chain.Context, zone []common.Address, toRemove common.Address) ([]common.Address, error) {
	idx := -1
	for i, p := range zone {
		if p == toRemove {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, params.ErrInvalidRewardZoneEntry
	}

	lastDistribution, err := b.getLastDistributionTime()
	if err != nil {
		return nil, err
	}
	if ctx.Timestamp > params.RewardZoneFreshness && lastDistribution < ctx.Timestamp-params.RewardZoneFreshness {
		return nil, params.ErrBadRequest
	}

	data, err := b.getRzEmisData(toRemove)
	if err != nil {
		return nil, err
	}
	accrued := new(uint256.Int)
	if data != nil {
		accrued = data.Accrued
	}
	if err := b.setRzEmisData(toRemove, &RzEmissionData{Index: params.MaxEmissionIndex, Accrued: accrued}); err != nil {
		return nil, err
	}
	return append(zone[:idx], zone[idx+1:]...), nil
}
