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

// AuctionType discriminates the three auction flavours sharing the
// {block, bid, lot} carrier.
type AuctionType uint32

const (
	UserLiquidation AuctionType = 0
	BadDebtAuction  AuctionType = 1
	InterestAuction AuctionType = 2
)

func (t AuctionType) String() string {
	switch t {
	case UserLiquidation:
		return "user_liquidation"
	case BadDebtAuction:
		return "bad_debt"
	case InterestAuction:
		return "interest"
	default:
		return "unknown"
	}
}

// AuctionData is an open auction: nominal bid and lot amounts fixed at
// creation, priced down the Dutch curve from the creation block.
type AuctionData struct {
	Block uint32
	Bid   map[common.Address]*uint256.Int
	Lot   map[common.Address]*uint256.Int
}

var (
	hundred         = uint256.NewInt(100)
	interestPremium = uint256.NewInt(1_2000000) // 1.2 in 7 digit form
)

// NewAuction opens an auction of the given type. At most one auction may
// exist per (type, user) pair.
func (p *Pool) NewAuction(ctx chain.Context, auctionType AuctionType, user common.Address, bidAssets, lotAssets []common.Address, percent uint32) (auction *AuctionData, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	if exists, err := p.hasAuction(auctionType, user); err != nil {
		return nil, err
	} else if exists {
		return nil, params.ErrAuctionInProgress
	}
	switch auctionType {
	case UserLiquidation:
		auction, err = p.createUserLiquidation(ctx, user, bidAssets, lotAssets, percent)
	case BadDebtAuction:
		auction, err = p.createBadDebt(ctx, user, percent)
	case InterestAuction:
		auction, err = p.createInterest(ctx, user, bidAssets, lotAssets, percent)
	default:
		return nil, params.ErrPoolBadRequest
	}
	if err != nil {
		return nil, err
	}
	if len(auction.Bid) == 0 || len(auction.Lot) == 0 {
		return nil, params.ErrPoolBadRequest
	}
	auction.Block = ctx.Sequence
	if err := p.setAuction(auctionType, user, auction); err != nil {
		return nil, err
	}
	p.metrics.ObserveAuctionCreated(auctionType.String())
	p.log.Info("auction created", "type", auctionType, "user", user, "block", auction.Block)
	return auction, nil
}

// GetAuction returns the stored auction for (type, user).
func (p *Pool) GetAuction(ctx chain.Context, auctionType AuctionType, user common.Address) (auction *AuctionData, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	auction, err = p.getAuction(auctionType, user)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, params.ErrAuctionNotFound
	}
	return auction, nil
}

// createUserLiquidation builds a liquidation auction that sells [percent]
// of the borrower's selected liabilities for enough selected collateral,
// plus a liquidation incentive, to walk the position back toward health.
func (p *Pool) createUserLiquidation(ctx chain.Context, user common.Address, bidAssets, lotAssets []common.Address, percent uint32) (*AuctionData, error) {
	if percent == 0 || percent > 100 {
		return nil, params.ErrInvalidLiquidation
	}
	if user == p.backstop.Address() || user == p.address {
		return nil, params.ErrPoolBadRequest
	}
	pos, err := p.getPositions(user)
	if err != nil {
		return nil, err
	}
	posData, err := p.positionData(ctx, pos)
	if err != nil {
		return nil, err
	}
	if posData.HealthFactor().Cmp(params.Scalar7) >= 0 {
		return nil, params.ErrInvalidLiquidation
	}

	pct := uint256.NewInt(uint64(percent))
	auction := &AuctionData{
		Bid: make(map[common.Address]*uint256.Int),
		Lot: make(map[common.Address]*uint256.Int),
	}
	bidValue := new(uint256.Int)
	for _, asset := range bidAssets {
		r, err := p.loadReserve(asset)
		if err != nil {
			return nil, err
		}
		dTokens := getAmount(pos.Liabilities, r.Config.Index)
		if dTokens.IsZero() {
			return nil, params.ErrInvalidLiquidation
		}
		amount := fixedpoint.MulCeil(dTokens, pct, hundred)
		auction.Bid[asset] = amount
		price, err := p.assetPrice(ctx, asset)
		if err != nil {
			return nil, err
		}
		bidValue.Add(bidValue, fixedpoint.MulCeil(r.ToAssetFromDToken(amount), price, pow10(r.Config.Decimals)))
	}

	// The lot covers the bid's value plus an incentive scaled by how far
	// the pool's factors sit apart: the thinner the margin between
	// collateral and liability factors, the smaller the premium needed.
	incentive := liquidationIncentive(posData)
	lotValueTarget := fixedpoint.MulFloor(bidValue, incentive, params.Scalar7)

	totalSelected := new(uint256.Int)
	type lotEntry struct {
		asset   common.Address
		bTokens *uint256.Int
		value   *uint256.Int
	}
	entries := make([]lotEntry, 0, len(lotAssets))
	for _, asset := range lotAssets {
		r, err := p.loadReserve(asset)
		if err != nil {
			return nil, err
		}
		bTokens := getAmount(pos.Collateral, r.Config.Index)
		if bTokens.IsZero() {
			return nil, params.ErrInvalidLiquidation
		}
		price, err := p.assetPrice(ctx, asset)
		if err != nil {
			return nil, err
		}
		value := fixedpoint.MulFloor(r.ToAssetFromBToken(bTokens), price, pow10(r.Config.Decimals))
		entries = append(entries, lotEntry{asset: asset, bTokens: bTokens, value: value})
		totalSelected.Add(totalSelected, value)
	}
	if totalSelected.IsZero() {
		return nil, params.ErrInvalidLiquidation
	}
	frac := fixedpoint.DivFloor(lotValueTarget, totalSelected, params.Scalar7)
	if frac.Cmp(params.Scalar7) > 0 {
		frac = new(uint256.Int).Set(params.Scalar7)
	}
	for _, e := range entries {
		lot := fixedpoint.MulFloor(e.bTokens, frac, params.Scalar7)
		if !lot.IsZero() {
			auction.Lot[e.asset] = lot
		}
	}
	return auction, nil
}

// liquidationIncentive returns 1 + (1 - avgCF/avgLF) / 2 in 7 digit form.
func liquidationIncentive(data PositionData) *uint256.Int {
	if data.RawCollateral.IsZero() || data.RawLiability.IsZero() {
		return new(uint256.Int).Set(params.Scalar7)
	}
	avgCF := fixedpoint.DivFloor(data.Collateral, data.RawCollateral, params.Scalar7)
	// effective liability = raw / LF, so the average LF is raw over
	// effective
	avgLF := fixedpoint.DivFloor(data.RawLiability, data.Liabilities, params.Scalar7)
	if avgLF.IsZero() {
		return new(uint256.Int).Set(params.Scalar7)
	}
	ratio := fixedpoint.DivFloor(avgCF, avgLF, params.Scalar7)
	if ratio.Cmp(params.Scalar7) >= 0 {
		return new(uint256.Int).Set(params.Scalar7)
	}
	spread := new(uint256.Int).Sub(params.Scalar7, ratio)
	spread.Div(spread, uint256.NewInt(2))
	return spread.Add(spread, params.Scalar7)
}

// createBadDebt builds an auction selling the backstop's bad debt bucket
// for backstop tokens at a premium.
func (p *Pool) createBadDebt(ctx chain.Context, user common.Address, percent uint32) (*AuctionData, error) {
	if user != p.backstop.Address() {
		return nil, params.ErrPoolBadRequest
	}
	if percent != 100 {
		return nil, params.ErrPoolBadRequest
	}
	pos, err := p.getPositions(user)
	if err != nil {
		return nil, err
	}
	if !pos.HasLiabilities() {
		return nil, params.ErrPoolBadRequest
	}
	list, err := p.getReserveList()
	if err != nil {
		return nil, err
	}
	auction := &AuctionData{
		Bid: make(map[common.Address]*uint256.Int),
		Lot: make(map[common.Address]*uint256.Int),
	}
	debtValue := new(uint256.Int)
	for idx, dTokens := range pos.Liabilities {
		asset := list[idx]
		r, err := p.loadReserve(asset)
		if err != nil {
			return nil, err
		}
		auction.Bid[asset] = new(uint256.Int).Set(dTokens)
		price, err := p.assetPrice(ctx, asset)
		if err != nil {
			return nil, err
		}
		debtValue.Add(debtValue, fixedpoint.MulCeil(r.ToAssetFromDToken(dTokens), price, pow10(r.Config.Decimals)))
	}
	lpPrice, err := p.assetPrice(ctx, p.backstopToken)
	if err != nil {
		return nil, err
	}
	lotAmount := fixedpoint.DivFloor(fixedpoint.MulFloor(debtValue, interestPremium, params.Scalar7), lpPrice, params.Scalar7)
	data, err := p.backstop.PoolData(ctx, p.address)
	if err != nil {
		return nil, err
	}
	auction.Lot[p.backstopToken] = new(uint256.Int).Set(fixedpoint.Min(lotAmount, data.Tokens))
	return auction, nil
}

// createInterest builds an auction selling accumulated protocol interest
// for a pool chosen token paid into the backstop.
func (p *Pool) createInterest(ctx chain.Context, user common.Address, bidAssets, lotAssets []common.Address, percent uint32) (*AuctionData, error) {
	if user != p.backstop.Address() {
		return nil, params.ErrPoolBadRequest
	}
	if percent != 100 || len(bidAssets) != 1 {
		return nil, params.ErrPoolBadRequest
	}
	auction := &AuctionData{
		Bid: make(map[common.Address]*uint256.Int),
		Lot: make(map[common.Address]*uint256.Int),
	}
	lotValue := new(uint256.Int)
	for _, asset := range lotAssets {
		r, err := p.loadReserve(asset)
		if err != nil {
			return nil, err
		}
		credit := r.Data.BackstopCredit
		if credit.IsZero() {
			continue
		}
		auction.Lot[asset] = new(uint256.Int).Set(credit)
		price, err := p.assetPrice(ctx, asset)
		if err != nil {
			return nil, err
		}
		lotValue.Add(lotValue, fixedpoint.MulFloor(credit, price, pow10(r.Config.Decimals)))
	}
	if lotValue.IsZero() {
		return nil, params.ErrPoolBadRequest
	}
	bidAsset := bidAssets[0]
	bidPrice, err := p.assetPrice(ctx, bidAsset)
	if err != nil {
		return nil, err
	}
	bidAmount := fixedpoint.DivFloor(fixedpoint.MulFloor(lotValue, interestPremium, params.Scalar7), bidPrice, params.Scalar7)
	if bidAmount.IsZero() {
		return nil, params.ErrPoolBadRequest
	}
	auction.Bid[bidAsset] = bidAmount
	return auction, nil
}

// blockModifiers returns the lot and bid multipliers for a fill [dif]
// blocks after creation, 7 digit fixed point. The lot climbs to full over
// the first phase, then the bid decays to zero over the second.
func blockModifiers(dif uint32) (lotModifier, bidModifier *uint256.Int) {
	switch {
	case dif <= params.AuctionLotPhaseBlocks:
		lotModifier = new(uint256.Int).Mul(uint256.NewInt(uint64(dif)), params.PerBlockScalar)
		bidModifier = new(uint256.Int).Set(params.Scalar7)
	case dif < params.AuctionExhaustBlocks:
		lotModifier = new(uint256.Int).Set(params.Scalar7)
		decay := new(uint256.Int).Mul(uint256.NewInt(uint64(dif-params.AuctionLotPhaseBlocks)), params.PerBlockScalar)
		bidModifier = new(uint256.Int).Sub(params.Scalar7, decay)
	default:
		lotModifier = new(uint256.Int).Set(params.Scalar7)
		bidModifier = new(uint256.Int)
	}
	return lotModifier, bidModifier
}
