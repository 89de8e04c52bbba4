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

// minHealthFactor is the smallest post operation health factor accepted
// for a position that still carries debt, 7 digit fixed point. The 0.1 bp
// buffer keeps rounding dust from flipping a position under 1.
var minHealthFactor = uint256.NewInt(1_0000100)

// maxHealthFactor stands in for the health factor of a debt free
// position.
var maxHealthFactor = new(uint256.Int).Lsh(uint256.NewInt(1), 127)

// PositionData is a position valued in the oracle's base asset at 7 digit
// precision: collateral discounted by each reserve's collateral factor,
// liabilities inflated by each reserve's liability factor.
type PositionData struct {
	Collateral    *uint256.Int
	Liabilities   *uint256.Int
	RawCollateral *uint256.Int
	RawLiability  *uint256.Int
}

// HealthFactor returns effective collateral over effective liabilities, 7
// digit fixed point. A position with no debt reports the sentinel max.
func (d PositionData) HealthFactor() *uint256.Int {
	if d.Liabilities.IsZero() {
		return new(uint256.Int).Set(maxHealthFactor)
	}
	return fixedpoint.DivFloor(d.Collateral, d.Liabilities, params.Scalar7)
}

// IsHealthy reports whether the position clears the minimum health factor.
func (d PositionData) IsHealthy() bool {
	return d.Liabilities.IsZero() || d.HealthFactor().Cmp(minHealthFactor) >= 0
}

type cachedPrice struct {
	price    *uint256.Int
	sequence uint32
}

// assetPrice returns the asset's base price normalised to 7 digits,
// caching per ledger so a submit with many requests prices each asset
// once.
func (p *Pool) assetPrice(ctx chain.Context, asset common.Address) (*uint256.Int, error) {
	if v, ok := p.priceCache.Get(asset); ok {
		if entry := v.(cachedPrice); entry.sequence == ctx.Sequence {
			return entry.price, nil
		}
	}
	data, err := p.oracle.LastPrice(asset)
	if err != nil {
		return nil, err
	}
	decimals, err := p.oracle.Decimals()
	if err != nil {
		return nil, err
	}
	price := fixedpoint.DivFloor(data.Price, pow10(decimals), params.Scalar7)
	p.priceCache.Add(asset, cachedPrice{price: price, sequence: ctx.Sequence})
	return price, nil
}

func pow10(n uint32) *uint256.Int {
	out := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := uint32(0); i < n; i++ {
		out.Mul(out, ten)
	}
	return out
}

// positionData values [pos] at current oracle prices.
func (p *Pool) positionData(ctx chain.Context, pos *Positions) (PositionData, error) {
	data := PositionData{
		Collateral:    new(uint256.Int),
		Liabilities:   new(uint256.Int),
		RawCollateral: new(uint256.Int),
		RawLiability:  new(uint256.Int),
	}
	list, err := p.getReserveList()
	if err != nil {
		return data, err
	}
	for idx, asset := range list {
		index := uint32(idx)
		bTokens := getAmount(pos.Collateral, index)
		dTokens := getAmount(pos.Liabilities, index)
		if bTokens.IsZero() && dTokens.IsZero() {
			continue
		}
		r, err := p.loadReserve(asset)
		if err != nil {
			return data, err
		}
		price, err := p.assetPrice(ctx, asset)
		if err != nil {
			return data, err
		}
		scalar := pow10(r.Config.Decimals)
		if !bTokens.IsZero() {
			base := fixedpoint.MulFloor(r.ToAssetFromBToken(bTokens), price, scalar)
			data.RawCollateral.Add(data.RawCollateral, base)
			data.Collateral.Add(data.Collateral, fixedpoint.MulFloor(base, uint256.NewInt(uint64(r.Config.CFactor)), params.Scalar7))
		}
		if !dTokens.IsZero() {
			base := fixedpoint.MulCeil(r.ToAssetFromDToken(dTokens), price, scalar)
			data.RawLiability.Add(data.RawLiability, base)
			data.Liabilities.Add(data.Liabilities, fixedpoint.DivCeil(base, uint256.NewInt(uint64(r.Config.LFactor)), params.Scalar7))
		}
	}
	return data, nil
}

// requireHealthy enforces the health and minimum collateral gates after a
// position mutation.
func (p *Pool) requireHealthy(ctx chain.Context, cfg *PoolConfig, pos *Positions) error {
	if !pos.HasLiabilities() {
		return nil
	}
	data, err := p.positionData(ctx, pos)
	if err != nil {
		return err
	}
	if data.RawCollateral.Cmp(cfg.MinCollateral) < 0 {
		return params.ErrMinCollateral
	}
	if !data.IsHealthy() {
		return params.ErrInvalidHf
	}
	return nil
}
