// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package backstop

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lend/fixedpoint"
	"github.com/luxfi/lend/params"
)

// PoolBackstopData is a pool's deposit book resolved into its underlying
// composition, used for reward zone eligibility and pool status decisions.
type PoolBackstopData struct {
	Tokens *uint256.Int
	Shares *uint256.Int
	Q4W    *uint256.Int

	// RewardUnderlying and BaseUnderlying are the deposit's backing
	// balances in the LP's two underlying assets.
	RewardUnderlying *uint256.Int
	BaseUnderlying   *uint256.Int
}

// Q4WPercent returns the queued for withdrawal fraction of the pool's
// shares in 7 digit fixed point.
func (d PoolBackstopData) Q4WPercent() *uint256.Int {
	if d.Shares.IsZero() {
		return new(uint256.Int)
	}
	return fixedpoint.DivFloor(d.Q4W, d.Shares, params.Scalar7)
}

func (b *Backstop) loadPoolBackstopData(pool common.Address, pb *PoolBalance) (PoolBackstopData, error) {
	rewardPerShare, basePerShare, err := b.token.UnderlyingPerShare()
	if err != nil {
		return PoolBackstopData{}, err
	}
	return PoolBackstopData{
		Tokens:           pb.Tokens,
		Shares:           pb.Shares,
		Q4W:              pb.Q4W,
		RewardUnderlying: fixedpoint.MulFloor(pb.Tokens, rewardPerShare, params.Scalar7),
		BaseUnderlying:   fixedpoint.MulFloor(pb.Tokens, basePerShare, params.Scalar7),
	}, nil
}

// RequirePoolAboveThreshold reports whether a pool's backstop deposit meets
// the reward zone minimum. The deposit is valued by the constant product of
// its underlying balances, which tracks the LP's base asset value without a
// square root.
func RequirePoolAboveThreshold(data PoolBackstopData) bool {
	product := fixedpoint.MulFloor(data.RewardUnderlying, data.BaseUnderlying, params.Scalar7)
	return product.Cmp(params.BackstopThreshold) >= 0
}
