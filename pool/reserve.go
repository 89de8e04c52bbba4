// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/fixedpoint"
	"github.com/luxfi/lend/params"
)

// Reserve is a reserve loaded with its config and accounting snapshot.
// Conversion rates are read only here; they move through the external
// accrual hook.
type Reserve struct {
	Asset  common.Address
	Config *ReserveConfig
	Data   *ReserveData
}

// loadReserve fetches a reserve by asset.
func (p *Pool) loadReserve(asset common.Address) (*Reserve, error) {
	cfg, err := p.getReserveConfig(asset)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, params.ErrPoolBadRequest
	}
	data, err := p.getReserveData(asset)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, params.ErrPoolBadRequest
	}
	return &Reserve{Asset: asset, Config: cfg, Data: data}, nil
}

// loadReserveByIndex fetches a reserve by its position in the reserve list.
func (p *Pool) loadReserveByIndex(index uint32) (*Reserve, error) {
	list, err := p.getReserveList()
	if err != nil {
		return nil, err
	}
	if index >= uint32(len(list)) {
		return nil, params.ErrPoolBadRequest
	}
	return p.loadReserve(list[index])
}

func (p *Pool) storeReserve(r *Reserve) error {
	return p.setReserveData(r.Asset, r.Data)
}

// ToAssetFromBToken converts bTokens to underlying, rounding against the
// holder.
func (r *Reserve) ToAssetFromBToken(bTokens *uint256.Int) *uint256.Int {
	return fixedpoint.MulFloor(bTokens, r.Data.BRate, params.Scalar12)
}

// ToAssetFromDToken converts dTokens to underlying debt, rounding in the
// protocol's favour.
func (r *Reserve) ToAssetFromDToken(dTokens *uint256.Int) *uint256.Int {
	return fixedpoint.MulCeil(dTokens, r.Data.DRate, params.Scalar12)
}

// ToBTokensDown converts underlying to bTokens, rounding down.
func (r *Reserve) ToBTokensDown(amount *uint256.Int) *uint256.Int {
	return fixedpoint.DivFloor(amount, r.Data.BRate, params.Scalar12)
}

// ToBTokensUp converts underlying to bTokens, rounding up.
func (r *Reserve) ToBTokensUp(amount *uint256.Int) *uint256.Int {
	return fixedpoint.DivCeil(amount, r.Data.BRate, params.Scalar12)
}

// ToDTokensDown converts underlying debt to dTokens, rounding down.
func (r *Reserve) ToDTokensDown(amount *uint256.Int) *uint256.Int {
	return fixedpoint.DivFloor(amount, r.Data.DRate, params.Scalar12)
}

// ToDTokensUp converts underlying debt to dTokens, rounding up.
func (r *Reserve) ToDTokensUp(amount *uint256.Int) *uint256.Int {
	return fixedpoint.DivCeil(amount, r.Data.DRate, params.Scalar12)
}

// TrackedBalance is the underlying the reserve believes the pool holds:
// supplied value plus uncollected backstop credit, minus lent value.
func (r *Reserve) TrackedBalance() *uint256.Int {
	tracked := r.ToAssetFromBToken(r.Data.BSupply)
	tracked.Add(tracked, r.Data.BackstopCredit)
	return fixedpoint.SubClamp(tracked, r.ToAssetFromDToken(r.Data.DSupply))
}

// Gulp folds any untracked positive token balance delta into the reserve's
// backstop credit so rebasing gains are not lost. Negative deltas are
// ignored; fee on transfer tokens are unsupported. Returns the gulped
// amount.
func (p *Pool) Gulp(ctx chain.Context, asset common.Address) (delta *uint256.Int, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	r, err := p.loadReserve(asset)
	if err != nil {
		return nil, err
	}
	balance, err := p.tokens.Token(asset).Balance(p.address)
	if err != nil {
		return nil, err
	}
	delta = fixedpoint.SubClamp(balance, r.TrackedBalance())
	if delta.IsZero() {
		return delta, nil
	}
	r.Data.BackstopCredit.Add(r.Data.BackstopCredit, delta)
	if err := p.storeReserve(r); err != nil {
		return nil, err
	}
	p.log.Debug("gulped untracked balance", "asset", asset, "delta", delta)
	return delta, nil
}
