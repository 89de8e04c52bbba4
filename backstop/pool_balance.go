// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package backstop

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/lend/fixedpoint"
	"github.com/luxfi/lend/params"
)

// PoolBalance is a pool's deposit book in the backstop: the LP tokens held
// for it, the shares issued against them, and the shares currently queued
// for withdrawal.
type PoolBalance struct {
	Shares *uint256.Int
	Tokens *uint256.Int
	Q4W    *uint256.Int
}

// NewPoolBalance returns an empty deposit book.
func NewPoolBalance() *PoolBalance {
	return &PoolBalance{
		Shares: new(uint256.Int),
		Tokens: new(uint256.Int),
		Q4W:    new(uint256.Int),
	}
}

// ConvertToShares converts a token deposit to shares at the current rate.
// The first deposit mints shares 1:1.
func (pb *PoolBalance) ConvertToShares(tokens *uint256.Int) *uint256.Int {
	if pb.Shares.IsZero() {
		return new(uint256.Int).Set(tokens)
	}
	return fixedpoint.MulFloor(tokens, pb.Shares, pb.Tokens)
}

// ConvertToTokens converts shares to the tokens they currently redeem for.
func (pb *PoolBalance) ConvertToTokens(shares *uint256.Int) *uint256.Int {
	if pb.Shares.IsZero() {
		return new(uint256.Int).Set(shares)
	}
	return fixedpoint.MulFloor(shares, pb.Tokens, pb.Shares)
}

// NonQueuedTokens returns the tokens backing shares that are not queued for
// withdrawal. Only these count toward reward zone weight.
func (pb *PoolBalance) NonQueuedTokens() *uint256.Int {
	return fixedpoint.SubClamp(pb.Tokens, pb.ConvertToTokens(pb.Q4W))
}

// NonQueuedShares returns the share supply still earning emissions.
func (pb *PoolBalance) NonQueuedShares() *uint256.Int {
	return fixedpoint.SubClamp(pb.Shares, pb.Q4W)
}

// Deposit records a token deposit minting [shares].
func (pb *PoolBalance) Deposit(tokens, shares *uint256.Int) {
	pb.Tokens.Add(pb.Tokens, tokens)
	pb.Shares.Add(pb.Shares, shares)
}

// Withdraw burns [shares] previously queued for withdrawal and releases
// [tokens]. Returns ErrInsufficientFunds when the book cannot cover it.
func (pb *PoolBalance) Withdraw(tokens, shares *uint256.Int) error {
	if tokens.Cmp(pb.Tokens) > 0 || shares.Cmp(pb.Shares) > 0 || shares.Cmp(pb.Q4W) > 0 {
		return params.ErrInsufficientFunds
	}
	pb.Tokens.Sub(pb.Tokens, tokens)
	pb.Shares.Sub(pb.Shares, shares)
	pb.Q4W.Sub(pb.Q4W, shares)
	return nil
}

// Queue moves [shares] into the queued for withdrawal bucket.
func (pb *PoolBalance) Queue(shares *uint256.Int) {
	pb.Q4W.Add(pb.Q4W, shares)
}

// Dequeue returns [shares] from the queued bucket to active duty.
func (pb *PoolBalance) Dequeue(shares *uint256.Int) error {
	if shares.Cmp(pb.Q4W) > 0 {
		return params.ErrBalanceError
	}
	pb.Q4W.Sub(pb.Q4W, shares)
	return nil
}

// SpendTokens removes tokens drawn out of the book by the pool, without
// burning shares. Used for auction drawdowns.
func (pb *PoolBalance) SpendTokens(tokens *uint256.Int) error {
	if tokens.Cmp(pb.Tokens) > 0 {
		return params.ErrInsufficientFunds
	}
	pb.Tokens.Sub(pb.Tokens, tokens)
	return nil
}

// AddTokens credits donated tokens to the book without minting shares.
func (pb *PoolBalance) AddTokens(tokens *uint256.Int) {
	pb.Tokens.Add(pb.Tokens, tokens)
}
