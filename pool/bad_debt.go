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

// criticalThresholdDivisor scales the reward zone deposit threshold down
// to the level below which backstop bad debt is burnt instead of
// auctioned (5%).
var criticalThresholdDivisor = uint256.NewInt(20)

// BadDebt shifts a fully uncollateralised user's debt onto the backstop's
// books. When the backstop itself is the holder and its deposit book has
// fallen below the critical threshold, the debt is burnt as pool loss
// instead of waiting for an auction no one would fill.
func (p *Pool) BadDebt(ctx chain.Context, user common.Address) (err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	if user == p.backstop.Address() {
		return p.burnBackstopBadDebt(ctx)
	}
	return p.transferBadDebtToBackstop(ctx, user)
}

func (p *Pool) transferBadDebtToBackstop(ctx chain.Context, user common.Address) error {
	pos, err := p.getPositions(user)
	if err != nil {
		return err
	}
	if !pos.HasLiabilities() {
		return params.ErrPoolBadRequest
	}
	if pos.HasCollateral() {
		return params.ErrBadDebtExists
	}
	backstopAddr := p.backstop.Address()
	backstopPos, err := p.getPositions(backstopAddr)
	if err != nil {
		return err
	}
	list, err := p.getReserveList()
	if err != nil {
		return err
	}
	for idx, dTokens := range pos.Liabilities {
		r, err := p.loadReserve(list[idx])
		if err != nil {
			return err
		}
		if err := p.accrueUserEmissions(ctx, user, r, pos, 0); err != nil {
			return err
		}
		if err := p.accrueUserEmissions(ctx, backstopAddr, r, backstopPos, 0); err != nil {
			return err
		}
		backstopPos.AddLiabilities(idx, dTokens)
	}
	pos.Liabilities = make(map[uint32]*uint256.Int)
	if err := p.setPositions(user, pos); err != nil {
		return err
	}
	if err := p.setPositions(backstopAddr, backstopPos); err != nil {
		return err
	}
	p.log.Warn("bad debt transferred to backstop", "user", user)
	return nil
}

// burnBackstopBadDebt defaults the backstop's debt when the backstop is
// too depleted to auction against. The burned dTokens are removed from
// each reserve's debt supply and accounted as pool loss.
func (p *Pool) burnBackstopBadDebt(ctx chain.Context) error {
	data, err := p.backstop.PoolData(ctx, p.address)
	if err != nil {
		return err
	}
	product := fixedpoint.MulFloor(data.RewardUnderlying, data.BaseUnderlying, params.Scalar7)
	critical := new(uint256.Int).Div(params.BackstopThreshold, criticalThresholdDivisor)
	if product.Cmp(critical) >= 0 {
		return params.ErrPoolBadRequest
	}
	backstopAddr := p.backstop.Address()
	pos, err := p.getPositions(backstopAddr)
	if err != nil {
		return err
	}
	if !pos.HasLiabilities() {
		return params.ErrPoolBadRequest
	}
	list, err := p.getReserveList()
	if err != nil {
		return err
	}
	for idx, dTokens := range pos.Liabilities {
		r, err := p.loadReserve(list[idx])
		if err != nil {
			return err
		}
		if dTokens.Cmp(r.Data.DSupply) > 0 {
			return params.ErrBalanceError
		}
		r.Data.DSupply.Sub(r.Data.DSupply, dTokens)
		if err := p.storeReserve(r); err != nil {
			return err
		}
		p.log.Warn("bad debt burnt", "reserve", list[idx], "dTokens", dTokens)
	}
	pos.Liabilities = make(map[uint32]*uint256.Int)
	return p.setPositions(backstopAddr, pos)
}
