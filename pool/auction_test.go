// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/params"
)

// P6: the three segment piecewise block scaling, clamped at 0 and 1.
func TestBlockModifiers(t *testing.T) {
	tests := []struct {
		dif      uint32
		lot, bid uint64
	}{
		{0, 0, 1_0000000},
		{1, 50_000, 1_0000000},
		{100, 5_000_000, 1_0000000},
		{200, 1_0000000, 1_0000000},
		{201, 1_0000000, 9_950_000},
		{250, 1_0000000, 7_500_000},
		{300, 1_0000000, 5_000_000},
		{399, 1_0000000, 50_000},
		{400, 1_0000000, 0},
		{10_000, 1_0000000, 0},
	}
	for _, tc := range tests {
		lot, bid := blockModifiers(tc.dif)
		require.Equal(t, uint256.NewInt(tc.lot), lot, "lot at dif %d", tc.dif)
		require.Equal(t, uint256.NewInt(tc.bid), bid, "bid at dif %d", tc.dif)
	}
}

// S5: half fill at dif 200 transfers half and leaves half on the book.
func TestScaleAuctionHalfFill(t *testing.T) {
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	auction := &AuctionData{
		Block: 100,
		Bid:   map[common.Address]*uint256.Int{a: uint256.NewInt(100)},
		Lot:   map[common.Address]*uint256.Int{b: uint256.NewInt(100)},
	}
	lot, bid := blockModifiers(200)
	result, remaining := scaleAuction(auction, 50, lot, bid)
	require.Equal(t, uint256.NewInt(50), result.Bid[a])
	require.Equal(t, uint256.NewInt(50), result.Lot[b])
	require.Equal(t, uint256.NewInt(50), remaining.Bid[a])
	require.Equal(t, uint256.NewInt(50), remaining.Lot[b])
}

// S6: full fill of the 50/50 remainder at dif 250 pays floor(50*0.75)=37
// and takes the full lot.
func TestScaleAuctionBidDecay(t *testing.T) {
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	auction := &AuctionData{
		Block: 100,
		Bid:   map[common.Address]*uint256.Int{a: uint256.NewInt(50)},
		Lot:   map[common.Address]*uint256.Int{b: uint256.NewInt(50)},
	}
	lot, bid := blockModifiers(250)
	result, remaining := scaleAuction(auction, 100, lot, bid)
	require.Equal(t, uint256.NewInt(37), result.Bid[a])
	require.Equal(t, uint256.NewInt(50), result.Lot[b])
	require.Empty(t, remaining.Bid)
	require.Empty(t, remaining.Lot)
}

// P5: at a fixed block, a 50% fill followed by filling the remainder
// moves exactly what a single 100% fill moves.
func TestScaleAuctionPartialFillLinearity(t *testing.T) {
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	nominal := func() *AuctionData {
		return &AuctionData{
			Block: 100,
			Bid:   map[common.Address]*uint256.Int{a: uint256.NewInt(200)},
			Lot:   map[common.Address]*uint256.Int{b: uint256.NewInt(200)},
		}
	}
	lot, bid := blockModifiers(250)

	whole, _ := scaleAuction(nominal(), 100, lot, bid)

	first, remaining := scaleAuction(nominal(), 50, lot, bid)
	second, _ := scaleAuction(remaining, 100, lot, bid)

	gotBid := new(uint256.Int).Add(first.Bid[a], second.Bid[a])
	gotLot := new(uint256.Int).Add(first.Lot[b], second.Lot[b])
	require.Equal(t, whole.Bid[a], gotBid)
	require.Equal(t, whole.Lot[b], gotLot)
}

// seedLiquidationAuction stores a 100/100 token auction against a user
// whose positions back it exactly, at unit rates and prices.
func (f *poolFixture) seedLiquidationAuction(user common.Address, block uint32) {
	f.setUserPosition(user, map[uint32]uint64{0: 100}, map[uint32]uint64{1: 100})
	require.NoError(f.t, f.p.setAuction(UserLiquidation, user, &AuctionData{
		Block: block,
		Bid:   map[common.Address]*uint256.Int{usdcAddr: amt(100)},
		Lot:   map[common.Address]*uint256.Int{wethAddr: amt(100)},
	}))
	f.commit()
}

func TestFillLiquidationTransfersPositions(t *testing.T) {
	f := newPoolFixture(t)
	f.seedPool(StatusActive, 1_0000000, 1_0000000)
	user := testAddrByte(0x11)
	filler := testAddrByte(0x22)
	f.seedLiquidationAuction(user, 100)
	// the filler needs standing collateral to absorb the assumed debt
	f.setUserPosition(filler, nil, map[uint32]uint64{0: 200})

	// dif = 200: both modifiers at 1, half fill
	result, err := f.p.FillAuction(chain.Context{Timestamp: 1713139200, Sequence: 300}, filler, UserLiquidation, user, 50)
	require.NoError(t, err)
	require.Equal(t, amt(50), result.Bid[usdcAddr], "filler assumes 50 debt")
	require.Equal(t, amt(50), result.Lot[wethAddr], "filler receives 50 collateral")

	stored, err := f.p.getAuction(UserLiquidation, user)
	require.NoError(t, err)
	require.Equal(t, amt(50), stored.Bid[usdcAddr])
	require.Equal(t, amt(50), stored.Lot[wethAddr])

	fillerPos, err := f.p.getPositions(filler)
	require.NoError(t, err)
	require.Equal(t, amt(50), fillerPos.Liabilities[0])
	require.Equal(t, amt(50), fillerPos.Collateral[1])
	require.Equal(t, amt(200), fillerPos.Collateral[0])

	userPos, err := f.p.getPositions(user)
	require.NoError(t, err)
	require.Equal(t, amt(50), userPos.Liabilities[0])
	require.Equal(t, amt(50), userPos.Collateral[1])

	// P4: filling the rest deletes the auction
	_, err = f.p.FillAuction(chain.Context{Timestamp: 1713139210, Sequence: 302}, filler, UserLiquidation, user, 100)
	require.NoError(t, err)
	_, err = f.p.GetAuction(chain.Context{Timestamp: 1713139210, Sequence: 303}, UserLiquidation, user)
	require.ErrorIs(t, err, params.ErrAuctionNotFound)
}

func TestFillValidation(t *testing.T) {
	f := newPoolFixture(t)
	f.seedPool(StatusActive, 1_0000000, 1_0000000)
	user := testAddrByte(0x11)
	filler := testAddrByte(0x22)
	f.seedLiquidationAuction(user, 100)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 300}

	// self fill by address equality
	_, err := f.p.FillAuction(ctx, user, UserLiquidation, user, 100)
	require.ErrorIs(t, err, params.ErrInvalidLiquidation)

	// percent out of range
	_, err = f.p.FillAuction(ctx, filler, UserLiquidation, user, 0)
	require.ErrorIs(t, err, params.ErrInvalidLiquidation)
	_, err = f.p.FillAuction(ctx, filler, UserLiquidation, user, 101)
	require.ErrorIs(t, err, params.ErrInvalidLiquidation)

	// missing auction
	_, err = f.p.FillAuction(ctx, filler, BadDebtAuction, bstopAddr, 100)
	require.ErrorIs(t, err, params.ErrAuctionNotFound)
}

func TestFillMinimumFillPercent(t *testing.T) {
	f := newPoolFixture(t)
	f.seedPool(StatusActive, 1_0000000, 1_0000000)
	user := testAddrByte(0x11)
	filler := testAddrByte(0x22)
	f.seedLiquidationAuction(user, 100)
	f.setUserPosition(filler, nil, map[uint32]uint64{0: 500})

	ctx := chain.Context{Timestamp: 1713139200, Sequence: 300}
	require.NoError(t, f.p.SetMinFillPercent(ctx, adminAddr, 25))

	_, err := f.p.FillAuction(ctx, filler, UserLiquidation, user, 1)
	require.ErrorIs(t, err, params.ErrInvalidFill, "dust fill below the configured floor")

	_, err = f.p.FillAuction(ctx, filler, UserLiquidation, user, 25)
	require.NoError(t, err)

	// a closing 100% fill is always allowed
	_, err = f.p.FillAuction(chain.Context{Timestamp: 1713139210, Sequence: 302}, filler, UserLiquidation, user, 100)
	require.NoError(t, err)
}

func TestNewLiquidationAuctionRequiresUnhealthy(t *testing.T) {
	f := newPoolFixture(t)
	f.seedPool(StatusActive, 9_000_000, 9_000_000)
	user := testAddrByte(0x11)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 100}

	// 100 debt vs 200 collateral at cf/lf 0.9: comfortably healthy
	f.setUserPosition(user, map[uint32]uint64{0: 100}, map[uint32]uint64{1: 200})
	_, err := f.p.NewAuction(ctx, UserLiquidation, user, []common.Address{usdcAddr}, []common.Address{wethAddr}, 50)
	require.ErrorIs(t, err, params.ErrInvalidLiquidation)
}

func TestNewLiquidationAuctionBuildsBidAndLot(t *testing.T) {
	f := newPoolFixture(t)
	f.seedPool(StatusActive, 8_000_000, 9_000_000)
	user := testAddrByte(0x11)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 500}

	// 100 debt vs 105 collateral at cf 0.8 / lf 0.9: hf ~ 0.76
	f.setUserPosition(user, map[uint32]uint64{0: 100}, map[uint32]uint64{1: 105})

	auction, err := f.p.NewAuction(ctx, UserLiquidation, user, []common.Address{usdcAddr}, []common.Address{wethAddr}, 50)
	require.NoError(t, err)
	require.Equal(t, uint32(500), auction.Block)
	require.Equal(t, amt(50), auction.Bid[usdcAddr], "half the debt")
	require.NotEmpty(t, auction.Lot)
	lot := auction.Lot[wethAddr]
	require.True(t, lot.Cmp(amt(50)) > 0, "lot carries a liquidation premium over the bid value")
	require.True(t, lot.Cmp(amt(105)) <= 0, "lot bounded by posted collateral")

	// duplicate auction for the same (type, user) rejected
	_, err = f.p.NewAuction(ctx, UserLiquidation, user, []common.Address{usdcAddr}, []common.Address{wethAddr}, 50)
	require.ErrorIs(t, err, params.ErrAuctionInProgress)
}

func TestBadDebtAuctionLifecycle(t *testing.T) {
	f := newPoolFixture(t)
	f.seedPool(StatusActive, 9_000_000, 9_000_000)
	filler := testAddrByte(0x22)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 100}

	// the backstop carries 1000 usdc of bad debt
	f.setUserPosition(bstopAddr, map[uint32]uint64{0: 1_000}, nil)
	f.setUserPosition(filler, nil, map[uint32]uint64{1: 2_000})

	auction, err := f.p.NewAuction(ctx, BadDebtAuction, bstopAddr, nil, nil, 100)
	require.NoError(t, err)
	require.Equal(t, amt(1_000), auction.Bid[usdcAddr])
	// 1000 debt * 1.2 premium at unit LP price
	require.Equal(t, amt(1_200), auction.Lot[lpTokenAddr])

	// fill at dif 200 takes the full lot from the backstop's book
	_, err = f.p.FillAuction(chain.Context{Timestamp: 1713140000, Sequence: 300}, filler, BadDebtAuction, bstopAddr, 100)
	require.NoError(t, err)

	require.Equal(t, amt(1_200), f.bs.drawn[filler])

	backstopPos, err := f.p.getPositions(bstopAddr)
	require.NoError(t, err)
	require.False(t, backstopPos.HasLiabilities(), "debt moved off the backstop")

	fillerPos, err := f.p.getPositions(filler)
	require.NoError(t, err)
	require.Equal(t, amt(1_000), fillerPos.Liabilities[0])
}

func TestInterestAuctionLifecycle(t *testing.T) {
	f := newPoolFixture(t)
	f.seedPool(StatusActive, 9_000_000, 9_000_000)
	filler := testAddrByte(0x22)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 100}

	// 500 usdc of accumulated interest
	r, err := f.p.loadReserve(usdcAddr)
	require.NoError(t, err)
	r.Data.BackstopCredit = amt(500)
	require.NoError(t, f.p.storeReserve(r))
	f.commit()

	auction, err := f.p.NewAuction(ctx, InterestAuction, bstopAddr, []common.Address{rewardAddr}, []common.Address{usdcAddr, wethAddr}, 100)
	require.NoError(t, err)
	require.Equal(t, amt(500), auction.Lot[usdcAddr])
	require.Equal(t, amt(600), auction.Bid[rewardAddr], "1.2x premium at unit prices")
	require.NotContains(t, auction.Lot, wethAddr, "reserves without credit stay out")

	// fund the participants and fill at dif 200
	f.reward.Mint(filler, amt(600))
	f.tokens[usdcAddr].Mint(poolAddr, amt(500))

	_, err = f.p.FillAuction(chain.Context{Timestamp: 1713140000, Sequence: 300}, filler, InterestAuction, bstopAddr, 100)
	require.NoError(t, err)

	balance, err := f.tokens[usdcAddr].Balance(filler)
	require.NoError(t, err)
	require.Equal(t, amt(500), balance)

	bidBalance, err := f.reward.Balance(bstopAddr)
	require.NoError(t, err)
	require.Equal(t, amt(600), bidBalance)

	r, err = f.p.loadReserve(usdcAddr)
	require.NoError(t, err)
	require.True(t, r.Data.BackstopCredit.IsZero())
}

func TestCancelOwnLiquidationAuctionStatusGate(t *testing.T) {
	f := newPoolFixture(t)
	f.seedPool(StatusOnIce, 1_0000000, 1_0000000)
	user := testAddrByte(0x11)
	f.seedLiquidationAuction(user, 100)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 300}

	del := []Request{{RequestType: RequestDeleteLiquidationAuction, Address: user, Amount: uint256.NewInt(0)}}
	_, err := f.p.Submit(ctx, user, user, user, del, false)
	require.ErrorIs(t, err, params.ErrInvalidPoolStatus, "no cancels while on ice")

	require.NoError(t, f.p.SetStatus(ctx, adminAddr, StatusAdminActive))
	_, err = f.p.Submit(ctx, user, user, user, del, false)
	require.NoError(t, err)
	_, err = f.p.GetAuction(ctx, UserLiquidation, user)
	require.ErrorIs(t, err, params.ErrAuctionNotFound)
}
