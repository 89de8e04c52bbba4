// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package backstop

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/fixedpoint"
	"github.com/luxfi/lend/params"
)

// updateEmissionData advances a pool's backstop emission index to the
// current ledger under the active EPS window. The index stops growing at
// the window's expiration. Returns nil when the pool has never received an
// EPS allocation.
func (b *Backstop) updateEmissionData(ctx chain.Context, pool common.Address, pb *PoolBalance) (*BackstopEmissionData, error) {
	data, err := b.getBackstopEmisData(pool)
	if err != nil || data == nil {
		return data, err
	}
	shares := pb.NonQueuedShares()
	if data.LastTime >= data.Expiration ||
		ctx.Timestamp == data.LastTime ||
		data.Eps.IsZero() ||
		shares.IsZero() {
		return data, nil
	}
	maxTimestamp := ctx.Timestamp
	if data.Expiration < maxTimestamp {
		maxTimestamp = data.Expiration
	}
	dt := uint256.NewInt(maxTimestamp - data.LastTime)
	additional := fixedpoint.DivFloor(new(uint256.Int).Mul(dt, data.Eps), shares, params.Scalar7)
	data.Index = new(uint256.Int).Add(data.Index, additional)
	data.LastTime = ctx.Timestamp
	if err := b.setBackstopEmisData(pool, data); err != nil {
		return nil, err
	}
	return data, nil
}

// updateUserEmissions accrues a depositor's share of the pool index since
// their last observation. When [claim] is set the accrued balance is
// returned and zeroed.
func (b *Backstop) updateUserEmissions(pool, user common.Address, emisData *BackstopEmissionData, ub *UserBalance, claim bool) (*uint256.Int, error) {
	if emisData == nil {
		return new(uint256.Int), nil
	}
	userData, err := b.getUserEmisData(pool, user)
	if err != nil {
		return nil, err
	}
	if userData == nil {
		// a holder with shares but no record predates emissions and is
		// owed the full index; anyone else starts accruing from here
		userData = &UserEmissionData{
			Index:   new(uint256.Int).Set(emisData.Index),
			Accrued: new(uint256.Int),
		}
		if !ub.Shares.IsZero() {
			userData.Accrued = fixedpoint.MulFloor(ub.Shares, emisData.Index, params.Scalar14)
		}
	}
	if userData.Index.Cmp(emisData.Index) < 0 && !ub.Shares.IsZero() {
		delta := new(uint256.Int).Sub(emisData.Index, userData.Index)
		userData.Accrued.Add(userData.Accrued, fixedpoint.MulFloor(ub.Shares, delta, params.Scalar14))
	}
	userData.Index = new(uint256.Int).Set(emisData.Index)
	var out *uint256.Int
	if claim {
		out = userData.Accrued
		userData.Accrued = new(uint256.Int)
	} else {
		out = new(uint256.Int)
	}
	if err := b.setUserEmisData(pool, user, userData); err != nil {
		return nil, err
	}
	return out, nil
}

// updateEmissions advances both the pool index and the user's accrual.
// Must run before any share mutation.
func (b *Backstop) updateEmissions(ctx chain.Context, pool common.Address, pb *PoolBalance, user common.Address, ub *UserBalance) error {
	emisData, err := b.updateEmissionData(ctx, pool, pb)
	if err != nil {
		return err
	}
	_, err = b.updateUserEmissions(pool, user, emisData, ub, false)
	return err
}

// Claim realises [from]'s unclaimed emissions across [pools] and transfers
// them to [to] in the reward token. Returns the amount claimed.
func (b *Backstop) Claim(ctx chain.Context, from common.Address, pools []common.Address, to common.Address) (claimed *uint256.Int, err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	claimed = new(uint256.Int)
	for _, pool := range pools {
		pb, err := b.getPoolBalance(pool)
		if err != nil {
			return nil, err
		}
		emisData, err := b.updateEmissionData(ctx, pool, pb)
		if err != nil {
			return nil, err
		}
		ub, err := b.getUserBalance(pool, from)
		if err != nil {
			return nil, err
		}
		amount, err := b.updateUserEmissions(pool, from, emisData, ub, true)
		if err != nil {
			return nil, err
		}
		claimed.Add(claimed, amount)
	}
	if !claimed.IsZero() {
		if err := b.rewardToken.Transfer(b.address, to, claimed); err != nil {
			return nil, err
		}
	}
	b.metrics.ObserveClaim(claimed)
	b.log.Debug("claim", "from", from, "to", to, "amount", claimed)
	return claimed, nil
}
