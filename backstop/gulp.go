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

var (
	backstopShare = uint256.NewInt(7_000_000) // 70% in 7 digit form
	poolShare     = uint256.NewInt(3_000_000) // 30%
	secondsInWeek = uint256.NewInt(params.EmissionWindow)
)

// GulpEmissions realises [pool]'s share of the global index accrued since
// its last gulp and allocates it: 70% flows into the pool's backstop EPS
// window, 30% is granted to the pool contract as a reward token allowance
// to run its own per reserve emissions. Returns the two amounts.
func (b *Backstop) GulpEmissions(ctx chain.Context, pool common.Address) (backstopEmis, poolEmis *uint256.Int, err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	pb, err := b.getPoolBalance(pool)
	if err != nil {
		return nil, nil, err
	}
	newEmissions, err := b.updateRzEmisData(ctx, pool, pb, true)
	if err != nil {
		return nil, nil, err
	}
	if newEmissions.IsZero() {
		return new(uint256.Int), new(uint256.Int), nil
	}
	backstopEmis = fixedpoint.MulFloor(newEmissions, backstopShare, params.Scalar7)
	poolEmis = fixedpoint.MulFloor(newEmissions, poolShare, params.Scalar7)

	// The pool consumes its 30% through an accumulating allowance with a
	// sequence expiration far enough out to cover slow claim cadences.
	currentAllowance, err := b.rewardToken.Allowance(b.address, pool)
	if err != nil {
		return nil, nil, err
	}
	newAllowance := new(uint256.Int).Add(currentAllowance, poolEmis)
	if err := b.rewardToken.Approve(b.address, pool, newAllowance, ctx.Sequence+params.LedgerBumpUser); err != nil {
		return nil, nil, err
	}
	if err := b.setBackstopEmissionEPS(ctx, pool, pb, backstopEmis); err != nil {
		return nil, nil, err
	}
	b.metrics.ObserveGulp(backstopEmis, poolEmis)
	b.log.Info("gulped emissions", "pool", pool, "backstop", backstopEmis, "pool30", poolEmis)
	return backstopEmis, poolEmis, nil
}

// updateRzEmisData realises the pool's claim of the global index. With
// [toGulp] the accrued balance is returned and zeroed; otherwise it is left
// to accumulate. A pool with no emission record yields zero; a pool evicted
// from the reward zone keeps its sentinel index and accrues nothing new.
func (b *Backstop) updateRzEmisData(ctx chain.Context, pool common.Address, pb *PoolBalance, toGulp bool) (*uint256.Int, error) {
	data, err := b.getRzEmisData(pool)
	if err != nil || data == nil {
		return new(uint256.Int), err
	}
	gulpIndex, err := b.getRzEmissionIndex()
	if err != nil {
		return nil, err
	}
	evicted := data.Index.Cmp(params.MaxEmissionIndex) >= 0
	if data.Index.Cmp(gulpIndex) >= 0 && !toGulp {
		return new(uint256.Int), nil
	}
	accrued := new(uint256.Int).Set(data.Accrued)
	if !evicted && data.Index.Cmp(gulpIndex) < 0 {
		nonQueued := pb.NonQueuedTokens()
		if !nonQueued.IsZero() {
			delta := new(uint256.Int).Sub(gulpIndex, data.Index)
			accrued.Add(accrued, fixedpoint.MulFloor(nonQueued, delta, params.Scalar14))
		}
	}
	newIndex := gulpIndex
	if evicted {
		newIndex = params.MaxEmissionIndex
	}
	if toGulp {
		if err := b.setRzEmisData(pool, &RzEmissionData{Index: newIndex, Accrued: new(uint256.Int)}); err != nil {
			return nil, err
		}
		return accrued, nil
	}
	if err := b.setRzEmisData(pool, &RzEmissionData{Index: newIndex, Accrued: accrued}); err != nil {
		return nil, err
	}
	return new(uint256.Int), nil
}

// setBackstopEmissionEPS rolls the pool's backstop EPS window: the index is
// first advanced to now under the old EPS, unspent tokens from the old
// window carry over, and the combined amount is spread over a fresh 7 day
// window. EPS is held at 14 digits to limit floor rounding loss.
func (b *Backstop) setBackstopEmissionEPS(ctx chain.Context, pool common.Address, pb *PoolBalance, newTokens *uint256.Int) error {
	tokensLeftToEmit := new(uint256.Int).Set(newTokens)
	expiration := ctx.Timestamp + params.EmissionWindow

	data, err := b.updateEmissionData(ctx, pool, pb)
	if err != nil {
		return err
	}
	if data == nil {
		// first allocation for this pool's backstop
		eps := fixedpoint.DivFloor(tokensLeftToEmit, secondsInWeek, params.Scalar7)
		return b.setBackstopEmisData(pool, &BackstopEmissionData{
			Eps:        eps,
			Expiration: expiration,
			Index:      new(uint256.Int),
			LastTime:   ctx.Timestamp,
		})
	}
	data.LastTime = ctx.Timestamp
	if data.Expiration > ctx.Timestamp {
		timeLeft := uint256.NewInt(data.Expiration - ctx.Timestamp)
		unspent := fixedpoint.MulFloor(data.Eps, timeLeft, params.Scalar7)
		tokensLeftToEmit.Add(tokensLeftToEmit, unspent)
	}
	data.Eps = fixedpoint.DivFloor(tokensLeftToEmit, secondsInWeek, params.Scalar7)
	data.Expiration = expiration
	return b.setBackstopEmisData(pool, data)
}
