// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package backstop

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/params"
)

// Q4WEntry is a chunk of shares queued for withdrawal, redeemable once the
// lock expires.
type Q4WEntry struct {
	Amount *uint256.Int
	Exp    uint64
}

// UserBalance is a user's deposit position with one pool's backstop. Shares
// queued for withdrawal are moved out of Shares and stop earning emissions.
type UserBalance struct {
	Shares *uint256.Int
	Q4W    []Q4WEntry
}

// NewUserBalance returns an empty position.
func NewUserBalance() *UserBalance {
	return &UserBalance{Shares: new(uint256.Int)}
}

// AddShares credits freshly minted deposit shares.
func (ub *UserBalance) AddShares(shares *uint256.Int) {
	ub.Shares.Add(ub.Shares, shares)
}

// QueueSharesForWithdrawal moves [shares] into a new withdrawal entry
// locked until the q4w cooldown elapses.
func (ub *UserBalance) QueueSharesForWithdrawal(ctx chain.Context, shares *uint256.Int) error {
	if shares.Cmp(ub.Shares) > 0 {
		return params.ErrBalanceError
	}
	ub.Shares.Sub(ub.Shares, shares)
	ub.Q4W = append(ub.Q4W, Q4WEntry{
		Amount: new(uint256.Int).Set(shares),
		Exp:    ctx.Timestamp + params.Q4WLockTime,
	})
	return nil
}

// DequeueSharesForWithdrawal returns [shares] to active duty, consuming
// queued entries newest first so the longest standing locks are preserved.
func (ub *UserBalance) DequeueSharesForWithdrawal(shares *uint256.Int) error {
	left := new(uint256.Int).Set(shares)
	for !left.IsZero() {
		if len(ub.Q4W) == 0 {
			return params.ErrBalanceError
		}
		last := &ub.Q4W[len(ub.Q4W)-1]
		if last.Amount.Cmp(left) > 0 {
			last.Amount.Sub(last.Amount, left)
			left.Clear()
		} else {
			left.Sub(left, last.Amount)
			ub.Q4W = ub.Q4W[:len(ub.Q4W)-1]
		}
	}
	ub.Shares.Add(ub.Shares, shares)
	return nil
}

// WithdrawShares consumes [shares] from expired queue entries, oldest
// first. Returns ErrNotExpired if the expired entries cannot cover it.
func (ub *UserBalance) WithdrawShares(ctx chain.Context, shares *uint256.Int) error {
	left := new(uint256.Int).Set(shares)
	for !left.IsZero() {
		if len(ub.Q4W) == 0 || ub.Q4W[0].Exp > ctx.Timestamp {
			return params.ErrNotExpired
		}
		first := &ub.Q4W[0]
		if first.Amount.Cmp(left) > 0 {
			first.Amount.Sub(first.Amount, left)
			left.Clear()
		} else {
			left.Sub(left, first.Amount)
			ub.Q4W = ub.Q4W[1:]
		}
	}
	return nil
}
