// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lend/backstop"
	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/params"
	"github.com/luxfi/lend/storage"
	"github.com/luxfi/lend/testutils"
)

var (
	poolAddr     = common.HexToAddress("0xa0")
	bstopAddr    = common.HexToAddress("0xb0")
	adminAddr    = common.HexToAddress("0xad")
	usdcAddr     = common.HexToAddress("0xaa")
	wethAddr     = common.HexToAddress("0xbb")
	lpTokenAddr  = common.HexToAddress("0xcc")
	rewardAddr   = common.HexToAddress("0xdd")
)

func amt(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), params.Scalar7)
}

// stubBackstop satisfies BackstopClient with canned values, isolating the
// pool's own logic.
type stubBackstop struct {
	data        backstop.PoolBackstopData
	poolEmis    *uint256.Int
	drawn       map[common.Address]*uint256.Int
	donated     *uint256.Int
	lp          *testutils.MockBackstopToken
}

func newStubBackstop() *stubBackstop {
	return &stubBackstop{
		data: backstop.PoolBackstopData{
			Tokens:           amt(100_000),
			Shares:           amt(100_000),
			Q4W:              new(uint256.Int),
			RewardUnderlying: amt(1_000_000),
			BaseUnderlying:   amt(1_000_000),
		},
		poolEmis: new(uint256.Int),
		drawn:    make(map[common.Address]*uint256.Int),
		donated:  new(uint256.Int),
		lp:       testutils.NewMockBackstopToken(uint256.NewInt(10_0000000), uint256.NewInt(10_0000000)),
	}
}

func (s *stubBackstop) Address() common.Address { return bstopAddr }

func (s *stubBackstop) PoolData(ctx chain.Context, pool common.Address) (backstop.PoolBackstopData, error) {
	return s.data, nil
}

func (s *stubBackstop) GulpEmissions(ctx chain.Context, pool common.Address) (*uint256.Int, *uint256.Int, error) {
	return new(uint256.Int), new(uint256.Int).Set(s.poolEmis), nil
}

func (s *stubBackstop) Draw(ctx chain.Context, pool common.Address, amount *uint256.Int, to common.Address) error {
	if amount.Cmp(s.data.Tokens) > 0 {
		return params.ErrInsufficientFunds
	}
	s.data.Tokens = new(uint256.Int).Sub(s.data.Tokens, amount)
	cur, ok := s.drawn[to]
	if !ok {
		cur = new(uint256.Int)
		s.drawn[to] = cur
	}
	cur.Add(cur, amount)
	return nil
}

func (s *stubBackstop) Donate(ctx chain.Context, from, pool common.Address, amount *uint256.Int) error {
	s.donated.Add(s.donated, amount)
	return nil
}

// setQ4WPercent rigs the stub's book to the given queued fraction.
func (s *stubBackstop) setQ4WPercent(pct uint64) {
	s.data.Q4W = new(uint256.Int).Div(
		new(uint256.Int).Mul(s.data.Shares, uint256.NewInt(pct)),
		uint256.NewInt(100),
	)
}

// setBelowThreshold drains the stub's underlying value.
func (s *stubBackstop) setBelowThreshold() {
	s.data.RewardUnderlying = amt(1)
	s.data.BaseUnderlying = amt(1)
}

type poolFixture struct {
	t      *testing.T
	host   *storage.Host
	p      *Pool
	bs     *stubBackstop
	oracle *testutils.MockOracle
	tokens testutils.TokenMap
	reward *testutils.MockToken
}

func newPoolFixture(t *testing.T) *poolFixture {
	host := storage.NewHost(memdb.New())
	bs := newStubBackstop()
	oracle := testutils.NewMockOracle(7)
	usdc := testutils.NewMockToken()
	weth := testutils.NewMockToken()
	reward := testutils.NewMockToken()
	tokens := testutils.TokenMap{
		usdcAddr:   usdc,
		wethAddr:   weth,
		rewardAddr: reward,
	}
	p := New(Config{
		Address:       poolAddr,
		Host:          host,
		Backstop:      bs,
		Oracle:        oracle,
		Tokens:        tokens,
		RewardToken:   reward,
		BackstopToken: lpTokenAddr,
	})
	oracle.SetPrice(usdcAddr, uint256.NewInt(1_0000000))
	oracle.SetPrice(wethAddr, uint256.NewInt(1_0000000))
	oracle.SetPrice(lpTokenAddr, uint256.NewInt(1_0000000))
	oracle.SetPrice(rewardAddr, uint256.NewInt(1_0000000))
	return &poolFixture{t: t, host: host, p: p, bs: bs, oracle: oracle, tokens: tokens, reward: reward}
}

func (f *poolFixture) commit() {
	require.NoError(f.t, f.host.Commit())
}

// seedPool installs a config and two reserves (usdc index 0, weth index 1)
// at unit rates with cFactor/lFactor of [cf]/[lf].
func (f *poolFixture) seedPool(status uint32, cf, lf uint32) {
	require.NoError(f.t, f.p.setAdmin(adminAddr))
	require.NoError(f.t, f.p.setPoolConfig(&PoolConfig{
		Oracle:        common.Address{},
		BstopRate:     1_000_000,
		MaxPositions:  6,
		MinCollateral: new(uint256.Int),
		Status:        status,
	}))
	require.NoError(f.t, f.p.setReserveList([]common.Address{usdcAddr, wethAddr}))
	for i, asset := range []common.Address{usdcAddr, wethAddr} {
		require.NoError(f.t, f.p.setReserveConfig(asset, &ReserveConfig{
			Index:    uint32(i),
			Decimals: 7,
			CFactor:  cf,
			LFactor:  lf,
		}))
		require.NoError(f.t, f.p.setReserveData(asset, &ReserveData{
			BRate:          new(uint256.Int).Set(params.Scalar12),
			DRate:          new(uint256.Int).Set(params.Scalar12),
			BSupply:        new(uint256.Int),
			DSupply:        new(uint256.Int),
			BackstopCredit: new(uint256.Int),
			LastTime:       0,
		}))
	}
	f.commit()
}

// setUserPosition installs raw position maps and backing reserve supply.
func (f *poolFixture) setUserPosition(user common.Address, liabilities, collateral map[uint32]uint64) {
	pos := NewPositions()
	assets := []common.Address{usdcAddr, wethAddr}
	for idx, n := range liabilities {
		pos.AddLiabilities(idx, amt(n))
		r, err := f.p.loadReserve(assets[idx])
		require.NoError(f.t, err)
		r.Data.DSupply.Add(r.Data.DSupply, amt(n))
		require.NoError(f.t, f.p.storeReserve(r))
	}
	for idx, n := range collateral {
		pos.AddCollateral(idx, amt(n))
		r, err := f.p.loadReserve(assets[idx])
		require.NoError(f.t, err)
		r.Data.BSupply.Add(r.Data.BSupply, amt(n))
		require.NoError(f.t, f.p.storeReserve(r))
	}
	require.NoError(f.t, f.p.setPositions(user, pos))
	f.commit()
}
