// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package backstop

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/params"
	"github.com/luxfi/lend/storage"
	"github.com/luxfi/lend/testutils"
)

var backstopAddr = common.HexToAddress("0xb0")

func testAddr(b byte) common.Address {
	return common.BytesToAddress([]byte{b})
}

func amt(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), params.Scalar7)
}

type fixture struct {
	t       *testing.T
	host    *storage.Host
	b       *Backstop
	lp      *testutils.MockBackstopToken
	reward  *testutils.MockToken
	emitter *testutils.MockEmitter
}

// newFixture builds a backstop over an in memory store. The LP token backs
// each share with [rps] reward tokens and [bps] base tokens (7 digit).
func newFixture(t *testing.T, rps, bps uint64) *fixture {
	host := storage.NewHost(memdb.New())
	lp := testutils.NewMockBackstopToken(uint256.NewInt(rps), uint256.NewInt(bps))
	reward := testutils.NewMockToken()
	emitter := &testutils.MockEmitter{}
	b := New(Config{
		Address:     backstopAddr,
		Host:        host,
		Token:       lp,
		RewardToken: reward,
		Emitter:     emitter,
	})
	return &fixture{t: t, host: host, b: b, lp: lp, reward: reward, emitter: emitter}
}

func (f *fixture) commit() {
	require.NoError(f.t, f.host.Commit())
}

func TestDepositMintsShares(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	user := testAddr(0x11)
	pool := testAddr(0x01)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 100}

	f.lp.Mint(user, amt(50_000))

	shares, err := f.b.Deposit(ctx, user, pool, amt(20_000))
	require.NoError(t, err)
	require.Equal(t, amt(20_000), shares, "first deposit mints 1:1")

	// donate tokens so the rate moves above 1
	f.lp.Mint(testAddr(0x12), amt(10_000))
	require.NoError(t, f.b.Donate(ctx, testAddr(0x12), pool, amt(10_000)))

	shares, err = f.b.Deposit(ctx, user, pool, amt(15_000))
	require.NoError(t, err)
	require.Equal(t, amt(10_000), shares, "15k tokens at 1.5 tokens/share")

	pb, err := f.b.getPoolBalance(pool)
	require.NoError(t, err)
	require.Equal(t, amt(45_000), pb.Tokens)
	require.Equal(t, amt(30_000), pb.Shares)
}

func TestDepositZeroRejected(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 100}
	_, err := f.b.Deposit(ctx, testAddr(0x11), testAddr(0x01), new(uint256.Int))
	require.ErrorIs(t, err, params.ErrBadRequest)
}

// Round trip law: deposit, queue, wait out the lock, withdraw restores the
// depositor's token balance.
func TestDepositQueueWithdrawRoundTrip(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	user := testAddr(0x11)
	pool := testAddr(0x01)
	start := uint64(1713139200)
	ctx := chain.Context{Timestamp: start, Sequence: 100}

	f.lp.Mint(user, amt(50_000))

	shares, err := f.b.Deposit(ctx, user, pool, amt(50_000))
	require.NoError(t, err)

	balance, err := f.lp.Balance(user)
	require.NoError(t, err)
	require.True(t, balance.IsZero())

	exp, err := f.b.QueueWithdrawal(ctx, user, pool, shares)
	require.NoError(t, err)
	require.Equal(t, start+params.Q4WLockTime, exp)

	// locked until the cooldown passes
	_, err = f.b.Withdraw(ctx, user, pool, shares)
	require.ErrorIs(t, err, params.ErrNotExpired)

	ctx = chain.Context{Timestamp: exp, Sequence: 200}
	tokens, err := f.b.Withdraw(ctx, user, pool, shares)
	require.NoError(t, err)
	require.Equal(t, amt(50_000), tokens)

	balance, err = f.lp.Balance(user)
	require.NoError(t, err)
	require.Equal(t, amt(50_000), balance)
}

func TestDequeueReturnsSharesNewestFirst(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	user := testAddr(0x11)
	pool := testAddr(0x01)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 100}

	f.lp.Mint(user, amt(30_000))
	_, err := f.b.Deposit(ctx, user, pool, amt(30_000))
	require.NoError(t, err)

	_, err = f.b.QueueWithdrawal(ctx, user, pool, amt(10_000))
	require.NoError(t, err)
	ctx2 := chain.Context{Timestamp: ctx.Timestamp + 1000, Sequence: 101}
	_, err = f.b.QueueWithdrawal(ctx2, user, pool, amt(5_000))
	require.NoError(t, err)

	require.NoError(t, f.b.DequeueWithdrawal(ctx2, user, pool, amt(7_000)))

	ub, err := f.b.getUserBalance(pool, user)
	require.NoError(t, err)
	require.Equal(t, amt(22_000), ub.Shares)
	// newest entry fully consumed, oldest partially
	require.Len(t, ub.Q4W, 1)
	require.Equal(t, amt(8_000), ub.Q4W[0].Amount)

	pb, err := f.b.getPoolBalance(pool)
	require.NoError(t, err)
	require.Equal(t, amt(8_000), pb.Q4W)
}

func TestDrawAndDonate(t *testing.T) {
	f := newFixture(t, 10_0000000, 10_0000000)
	user := testAddr(0x11)
	pool := testAddr(0x01)
	to := testAddr(0x22)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 100}

	f.lp.Mint(user, amt(40_000))
	_, err := f.b.Deposit(ctx, user, pool, amt(40_000))
	require.NoError(t, err)

	require.NoError(t, f.b.Draw(ctx, pool, amt(15_000), to))
	balance, err := f.lp.Balance(to)
	require.NoError(t, err)
	require.Equal(t, amt(15_000), balance)

	pb, err := f.b.getPoolBalance(pool)
	require.NoError(t, err)
	require.Equal(t, amt(25_000), pb.Tokens)
	require.Equal(t, amt(40_000), pb.Shares, "draw burns no shares")

	err = f.b.Draw(ctx, pool, amt(100_000), to)
	require.ErrorIs(t, err, params.ErrInsufficientFunds)
}

func TestNonQueuedTokens(t *testing.T) {
	pb := &PoolBalance{
		Tokens: amt(100_000),
		Shares: amt(80_000),
		Q4W:    amt(20_000),
	}
	// 20k of 80k shares queued backs 25k tokens
	require.Equal(t, amt(75_000), pb.NonQueuedTokens())
	require.Equal(t, amt(60_000), pb.NonQueuedShares())
}
