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

// FillResult reports the effective transfers of one auction fill.
type FillResult struct {
	Bid map[common.Address]*uint256.Int
	Lot map[common.Address]*uint256.Int
}

// scaleAuction prices a fill: [percentFilled] of each nominal amount,
// floored, times the block modifier, floored again. The filled base
// fraction is subtracted from the stored nominals regardless of the
// modifiers, so late fills burn the unscaled amounts off the book.
func scaleAuction(auction *AuctionData, percentFilled uint64, lotModifier, bidModifier *uint256.Int) (*FillResult, *AuctionData) {
	pct := uint256.NewInt(percentFilled)
	result := &FillResult{
		Bid: make(map[common.Address]*uint256.Int),
		Lot: make(map[common.Address]*uint256.Int),
	}
	remaining := &AuctionData{
		Block: auction.Block,
		Bid:   make(map[common.Address]*uint256.Int),
		Lot:   make(map[common.Address]*uint256.Int),
	}
	for asset, amount := range auction.Bid {
		base := fixedpoint.MulFloor(amount, pct, hundred)
		result.Bid[asset] = fixedpoint.MulFloor(base, bidModifier, params.Scalar7)
		if left := fixedpoint.SubClamp(amount, base); !left.IsZero() {
			remaining.Bid[asset] = left
		}
	}
	for asset, amount := range auction.Lot {
		base := fixedpoint.MulFloor(amount, pct, hundred)
		result.Lot[asset] = fixedpoint.MulFloor(base, lotModifier, params.Scalar7)
		if left := fixedpoint.SubClamp(amount, base); !left.IsZero() {
			remaining.Lot[asset] = left
		}
	}
	return result, remaining
}

// fillAuction executes a fill against the stored auction, mutating
// [fillerPos] in memory. The caller persists the filler's positions and
// runs the final health check on them.
func (p *Pool) fillAuction(ctx chain.Context, cfg *PoolConfig, auctionType AuctionType, user, filler common.Address, fillerPos *Positions, percentFilled uint64) (*FillResult, error) {
	if percentFilled == 0 || percentFilled > 100 {
		return nil, params.ErrInvalidLiquidation
	}
	if filler == user {
		return nil, params.ErrInvalidLiquidation
	}
	if cfg.MinFillPercent > 0 && percentFilled != 100 && percentFilled < uint64(cfg.MinFillPercent) {
		return nil, params.ErrInvalidFill
	}
	auction, err := p.getAuction(auctionType, user)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, params.ErrAuctionNotFound
	}
	if ctx.Sequence < auction.Block {
		return nil, params.ErrPoolBadRequest
	}
	lotModifier, bidModifier := blockModifiers(ctx.Sequence - auction.Block)
	result, remaining := scaleAuction(auction, percentFilled, lotModifier, bidModifier)

	switch auctionType {
	case UserLiquidation:
		err = p.fillUserLiquidation(ctx, user, filler, fillerPos, result)
	case BadDebtAuction:
		err = p.fillBadDebt(ctx, filler, fillerPos, result)
	case InterestAuction:
		err = p.fillInterest(ctx, filler, result)
	default:
		err = params.ErrPoolBadRequest
	}
	if err != nil {
		return nil, err
	}

	if percentFilled == 100 || (len(remaining.Bid) == 0 && len(remaining.Lot) == 0) {
		if err := p.deleteAuction(auctionType, user); err != nil {
			return nil, err
		}
	} else {
		if err := p.setAuction(auctionType, user, remaining); err != nil {
			return nil, err
		}
	}
	p.metrics.ObserveAuctionFill(auctionType.String(), percentFilled)
	p.log.Info("auction filled", "type", auctionType, "user", user, "filler", filler, "percent", percentFilled)
	return result, nil
}

// fillUserLiquidation moves the scaled collateral and debt from the
// liquidated user onto the filler. Health restoration is enforced on the
// filler's position by the caller; debt the bid decay leaves stranded with
// the user is handled by the bad debt flow.
func (p *Pool) fillUserLiquidation(ctx chain.Context, user, filler common.Address, fillerPos *Positions, result *FillResult) error {
	userPos, err := p.getPositions(user)
	if err != nil {
		return err
	}
	for asset, amount := range result.Bid {
		if amount.IsZero() {
			continue
		}
		r, err := p.loadReserve(asset)
		if err != nil {
			return err
		}
		if err := p.accrueUserEmissions(ctx, user, r, userPos, 0); err != nil {
			return err
		}
		if err := p.accrueUserEmissions(ctx, filler, r, fillerPos, 0); err != nil {
			return err
		}
		moved := new(uint256.Int).Set(fixedpoint.Min(amount, getAmount(userPos.Liabilities, r.Config.Index)))
		if err := userPos.RemoveLiabilities(r.Config.Index, moved); err != nil {
			return err
		}
		fillerPos.AddLiabilities(r.Config.Index, moved)
	}
	for asset, amount := range result.Lot {
		if amount.IsZero() {
			continue
		}
		r, err := p.loadReserve(asset)
		if err != nil {
			return err
		}
		if err := p.accrueUserEmissions(ctx, user, r, userPos, 1); err != nil {
			return err
		}
		if err := p.accrueUserEmissions(ctx, filler, r, fillerPos, 1); err != nil {
			return err
		}
		moved := new(uint256.Int).Set(fixedpoint.Min(amount, getAmount(userPos.Collateral, r.Config.Index)))
		if err := userPos.RemoveCollateral(r.Config.Index, moved); err != nil {
			return err
		}
		fillerPos.AddCollateral(r.Config.Index, moved)
	}
	return p.setPositions(user, userPos)
}

// fillBadDebt moves the backstop's bad debt onto the filler and pays them
// out of the backstop's deposit book.
func (p *Pool) fillBadDebt(ctx chain.Context, filler common.Address, fillerPos *Positions, result *FillResult) error {
	backstopAddr := p.backstop.Address()
	backstopPos, err := p.getPositions(backstopAddr)
	if err != nil {
		return err
	}
	for asset, amount := range result.Bid {
		if amount.IsZero() {
			continue
		}
		r, err := p.loadReserve(asset)
		if err != nil {
			return err
		}
		if err := p.accrueUserEmissions(ctx, filler, r, fillerPos, 0); err != nil {
			return err
		}
		moved := new(uint256.Int).Set(fixedpoint.Min(amount, getAmount(backstopPos.Liabilities, r.Config.Index)))
		if err := backstopPos.RemoveLiabilities(r.Config.Index, moved); err != nil {
			return err
		}
		fillerPos.AddLiabilities(r.Config.Index, moved)
	}
	for _, amount := range result.Lot {
		if amount.IsZero() {
			continue
		}
		if err := p.backstop.Draw(ctx, p.address, amount, filler); err != nil {
			return err
		}
	}
	return p.setPositions(backstopAddr, backstopPos)
}

// fillInterest pays the bid into the backstop's book and releases the
// reserves' accumulated interest to the filler.
func (p *Pool) fillInterest(ctx chain.Context, filler common.Address, result *FillResult) error {
	for asset, amount := range result.Bid {
		if amount.IsZero() {
			continue
		}
		if asset == p.backstopToken {
			if err := p.backstop.Donate(ctx, filler, p.address, amount); err != nil {
				return err
			}
			continue
		}
		if err := p.tokens.Token(asset).Transfer(filler, p.backstop.Address(), amount); err != nil {
			return err
		}
	}
	for asset, amount := range result.Lot {
		if amount.IsZero() {
			continue
		}
		r, err := p.loadReserve(asset)
		if err != nil {
			return err
		}
		spend := new(uint256.Int).Set(fixedpoint.Min(amount, r.Data.BackstopCredit))
		r.Data.BackstopCredit = fixedpoint.SubClamp(r.Data.BackstopCredit, spend)
		if err := p.storeReserve(r); err != nil {
			return err
		}
		if err := p.tokens.Token(asset).Transfer(p.address, filler, spend); err != nil {
			return err
		}
	}
	return nil
}
