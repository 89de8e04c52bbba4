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

// noopReceiver keeps the borrowed funds where they landed; the submit
// requests settle the loan.
type noopReceiver struct{}

func (noopReceiver) ExecOp(ctx chain.Context, caller, token common.Address, amount *uint256.Int) error {
	return nil
}

func TestFlashLoanRepaidWithinInvocation(t *testing.T) {
	f := newPoolFixture(t)
	f.seedPool(StatusActive, 9_000_000, 9_000_000)
	borrower := testAddrByte(0x11)
	receiverAddr := testAddrByte(0x44)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 100}

	// pool liquidity
	lender := testAddrByte(0x33)
	f.tokens[usdcAddr].Mint(lender, amt(10_000))
	_, err := f.p.Submit(ctx, lender, lender, lender, []Request{
		{RequestType: RequestSupply, Address: usdcAddr, Amount: amt(10_000)},
	}, false)
	require.NoError(t, err)

	// the borrower holds funds to settle with and pre-approves the pool
	f.tokens[usdcAddr].Mint(borrower, amt(1_000))
	require.NoError(t, f.tokens[usdcAddr].Approve(borrower, poolAddr, amt(2_000), 0))

	pos, err := f.p.SubmitWithFlashLoan(ctx, borrower, FlashLoan{
		Receiver: noopReceiver{},
		Contract: receiverAddr,
		Asset:    usdcAddr,
		Amount:   amt(1_000),
	}, []Request{
		{RequestType: RequestRepay, Address: usdcAddr, Amount: amt(1_000)},
	})
	require.NoError(t, err)
	require.False(t, pos.HasLiabilities(), "loan settled in the same invocation")

	// borrowed funds sit with the receiver, repayment came from the
	// borrower's own balance
	receiverBalance, err := f.tokens[usdcAddr].Balance(receiverAddr)
	require.NoError(t, err)
	require.Equal(t, amt(1_000), receiverBalance)
	borrowerBalance, err := f.tokens[usdcAddr].Balance(borrower)
	require.NoError(t, err)
	require.True(t, borrowerBalance.IsZero())
}

func TestFlashLoanUnrepaidAborts(t *testing.T) {
	f := newPoolFixture(t)
	f.seedPool(StatusActive, 9_000_000, 9_000_000)
	borrower := testAddrByte(0x11)
	ctx := chain.Context{Timestamp: 1713139200, Sequence: 100}

	lender := testAddrByte(0x33)
	f.tokens[usdcAddr].Mint(lender, amt(10_000))
	_, err := f.p.Submit(ctx, lender, lender, lender, []Request{
		{RequestType: RequestSupply, Address: usdcAddr, Amount: amt(10_000)},
	}, false)
	require.NoError(t, err)

	_, err = f.p.SubmitWithFlashLoan(ctx, borrower, FlashLoan{
		Receiver: noopReceiver{},
		Contract: testAddrByte(0x44),
		Asset:    usdcAddr,
		Amount:   amt(1_000),
	}, nil)
	require.ErrorIs(t, err, params.ErrInvalidHf, "unsettled loan fails the closing health check")

	// the aborted invocation left no debt behind
	pos, err := f.p.GetPositions(chain.Context{Timestamp: 1713139300, Sequence: 101}, borrower)
	require.NoError(t, err)
	require.False(t, pos.HasLiabilities())
}
