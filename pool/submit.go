// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/params"
)

// Request types accepted by Submit.
const (
	RequestSupply uint32 = iota
	RequestWithdraw
	RequestSupplyCollateral
	RequestWithdrawCollateral
	RequestBorrow
	RequestRepay
	RequestFillUserLiquidationAuction
	RequestFillBadDebtAuction
	RequestFillInterestAuction
	RequestDeleteLiquidationAuction
)

// Request is one instruction in a submit batch. For auction fills, Address
// is the auctioned user and Amount is the fill percent.
type Request struct {
	RequestType uint32
	Address     common.Address
	Amount      *uint256.Int
}

// Submit processes a batch of requests where [from] takes on the position,
// [spender] sends any required tokens and [to] receives any tokens sent
// from the pool. The health factor is checked once, after all requests.
// Returns [from]'s new positions.
func (p *Pool) Submit(ctx chain.Context, from, spender, to common.Address, requests []Request, useAllowance bool) (pos *Positions, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	pos, err = p.executeSubmit(ctx, from, spender, to, requests, useAllowance)
	return pos, err
}

// SubmitWithAllowance is Submit with the spender's tokens pulled through a
// pre-approved allowance instead of a direct transfer.
func (p *Pool) SubmitWithAllowance(ctx chain.Context, from, spender, to common.Address, requests []Request) (*Positions, error) {
	return p.Submit(ctx, from, spender, to, requests, true)
}

func (p *Pool) executeSubmit(ctx chain.Context, from, spender, to common.Address, requests []Request, useAllowance bool) (*Positions, error) {
	cfg, err := p.getPoolConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, params.ErrPoolBadRequest
	}
	pos, err := p.getPositions(from)
	if err != nil {
		return nil, err
	}
	checkHealth := false
	for _, req := range requests {
		switch req.RequestType {
		case RequestSupply, RequestSupplyCollateral:
			if !supplyAllowed(cfg.Status) {
				return nil, params.ErrInvalidPoolStatus
			}
			if err := p.applySupply(ctx, from, spender, pos, req, useAllowance); err != nil {
				return nil, err
			}
		case RequestWithdraw, RequestWithdrawCollateral:
			if err := p.applyWithdraw(ctx, from, to, pos, req); err != nil {
				return nil, err
			}
			if req.RequestType == RequestWithdrawCollateral {
				checkHealth = true
			}
		case RequestBorrow:
			if !borrowAllowed(cfg.Status) {
				return nil, params.ErrInvalidPoolStatus
			}
			if err := p.applyBorrow(ctx, from, to, pos, req); err != nil {
				return nil, err
			}
			checkHealth = true
		case RequestRepay:
			if err := p.applyRepay(ctx, from, spender, to, pos, req, useAllowance); err != nil {
				return nil, err
			}
		case RequestFillUserLiquidationAuction, RequestFillBadDebtAuction, RequestFillInterestAuction:
			auctionType := AuctionType(req.RequestType - RequestFillUserLiquidationAuction)
			if _, err := p.fillAuction(ctx, cfg, auctionType, req.Address, from, pos, req.Amount.Uint64()); err != nil {
				return nil, err
			}
			checkHealth = true
		case RequestDeleteLiquidationAuction:
			if !cancelAllowed(cfg.Status) {
				return nil, params.ErrInvalidPoolStatus
			}
			if err := p.deleteOwnLiquidationAuction(from); err != nil {
				return nil, err
			}
		default:
			return nil, params.ErrPoolBadRequest
		}
	}
	if pos.Count() > cfg.MaxPositions {
		return nil, params.ErrMaxPositionsExceeded
	}
	if checkHealth {
		if err := p.requireHealthy(ctx, cfg, pos); err != nil {
			return nil, err
		}
	}
	if err := p.setPositions(from, pos); err != nil {
		return nil, err
	}
	return pos, nil
}

// collectTokens pulls underlying from the spender, directly or through an
// allowance.
func (p *Pool) collectTokens(spender, asset common.Address, amount *uint256.Int, useAllowance bool) error {
	token := p.tokens.Token(asset)
	if useAllowance {
		return token.TransferFrom(p.address, spender, p.address, amount)
	}
	return token.Transfer(spender, p.address, amount)
}

func (p *Pool) applySupply(ctx chain.Context, from, spender common.Address, pos *Positions, req Request, useAllowance bool) error {
	if req.Amount.IsZero() {
		return params.ErrNegativeAmount
	}
	r, err := p.loadReserve(req.Address)
	if err != nil {
		return err
	}
	if err := p.accrueUserEmissions(ctx, from, r, pos, 1); err != nil {
		return err
	}
	if err := p.collectTokens(spender, req.Address, req.Amount, useAllowance); err != nil {
		return err
	}
	bTokens := r.ToBTokensDown(req.Amount)
	if bTokens.IsZero() {
		return params.ErrNegativeAmount
	}
	if req.RequestType == RequestSupplyCollateral {
		pos.AddCollateral(r.Config.Index, bTokens)
	} else {
		pos.AddSupply(r.Config.Index, bTokens)
	}
	r.Data.BSupply.Add(r.Data.BSupply, bTokens)
	return p.storeReserve(r)
}

func (p *Pool) applyWithdraw(ctx chain.Context, from, to common.Address, pos *Positions, req Request) error {
	if req.Amount.IsZero() {
		return params.ErrNegativeAmount
	}
	r, err := p.loadReserve(req.Address)
	if err != nil {
		return err
	}
	if err := p.accrueUserEmissions(ctx, from, r, pos, 1); err != nil {
		return err
	}
	bTokens := r.ToBTokensUp(req.Amount)
	amount := new(uint256.Int).Set(req.Amount)
	var have *uint256.Int
	if req.RequestType == RequestWithdrawCollateral {
		have = getAmount(pos.Collateral, r.Config.Index)
	} else {
		have = getAmount(pos.Supply, r.Config.Index)
	}
	if bTokens.Cmp(have) > 0 {
		// full exit: redeem everything rather than fail on rounding
		bTokens = new(uint256.Int).Set(have)
		amount = r.ToAssetFromBToken(bTokens)
	}
	if req.RequestType == RequestWithdrawCollateral {
		if err := pos.RemoveCollateral(r.Config.Index, bTokens); err != nil {
			return err
		}
	} else {
		if err := pos.RemoveSupply(r.Config.Index, bTokens); err != nil {
			return err
		}
	}
	if bTokens.Cmp(r.Data.BSupply) > 0 {
		return params.ErrBalanceError
	}
	r.Data.BSupply.Sub(r.Data.BSupply, bTokens)
	if err := p.tokens.Token(req.Address).Transfer(p.address, to, amount); err != nil {
		return err
	}
	return p.storeReserve(r)
}

func (p *Pool) applyBorrow(ctx chain.Context, from, to common.Address, pos *Positions, req Request) error {
	if req.Amount.IsZero() {
		return params.ErrNegativeAmount
	}
	r, err := p.loadReserve(req.Address)
	if err != nil {
		return err
	}
	if err := p.accrueUserEmissions(ctx, from, r, pos, 0); err != nil {
		return err
	}
	dTokens := r.ToDTokensUp(req.Amount)
	pos.AddLiabilities(r.Config.Index, dTokens)
	r.Data.DSupply.Add(r.Data.DSupply, dTokens)
	if err := p.tokens.Token(req.Address).Transfer(p.address, to, req.Amount); err != nil {
		return err
	}
	return p.storeReserve(r)
}

func (p *Pool) applyRepay(ctx chain.Context, from, spender, to common.Address, pos *Positions, req Request, useAllowance bool) error {
	if req.Amount.IsZero() {
		return params.ErrNegativeAmount
	}
	r, err := p.loadReserve(req.Address)
	if err != nil {
		return err
	}
	if err := p.accrueUserEmissions(ctx, from, r, pos, 0); err != nil {
		return err
	}
	dTokens := r.ToDTokensDown(req.Amount)
	owed := getAmount(pos.Liabilities, r.Config.Index)
	amount := new(uint256.Int).Set(req.Amount)
	if dTokens.Cmp(owed) > 0 {
		// over repayment: settle the full debt and only collect its value
		dTokens = new(uint256.Int).Set(owed)
		amount = r.ToAssetFromDToken(dTokens)
	}
	if err := p.collectTokens(spender, req.Address, amount, useAllowance); err != nil {
		return err
	}
	if err := pos.RemoveLiabilities(r.Config.Index, dTokens); err != nil {
		return err
	}
	if dTokens.Cmp(r.Data.DSupply) > 0 {
		return params.ErrBalanceError
	}
	r.Data.DSupply.Sub(r.Data.DSupply, dTokens)
	return p.storeReserve(r)
}

// deleteOwnLiquidationAuction cancels the caller's own liquidation
// auction.
func (p *Pool) deleteOwnLiquidationAuction(from common.Address) error {
	exists, err := p.hasAuction(UserLiquidation, from)
	if err != nil {
		return err
	}
	if !exists {
		return params.ErrAuctionNotFound
	}
	return p.deleteAuction(UserLiquidation, from)
}

// FillAuction fills an auction outside of a submit batch. The filler's
// position takes on any transferred collateral and debt and must come out
// healthy.
func (p *Pool) FillAuction(ctx chain.Context, filler common.Address, auctionType AuctionType, user common.Address, percentFilled uint64) (result *FillResult, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	cfg, err := p.getPoolConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, params.ErrPoolBadRequest
	}
	pos, err := p.getPositions(filler)
	if err != nil {
		return nil, err
	}
	result, err = p.fillAuction(ctx, cfg, auctionType, user, filler, pos, percentFilled)
	if err != nil {
		return nil, err
	}
	if err := p.requireHealthy(ctx, cfg, pos); err != nil {
		return nil, err
	}
	if err := p.setPositions(filler, pos); err != nil {
		return nil, err
	}
	return result, nil
}
