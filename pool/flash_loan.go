// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/params"
)

// FlashLoanReceiver is the contract invoked with the borrowed funds. It
// must arrange repayment within the same invocation; the final health
// check on the borrower's position enforces it.
type FlashLoanReceiver interface {
	ExecOp(ctx chain.Context, caller, token common.Address, amount *uint256.Int) error
}

// FlashLoan describes the loan leg of a flash loan submit.
type FlashLoan struct {
	// Receiver executes with the borrowed funds; Contract is its address,
	// which receives the tokens.
	Receiver FlashLoanReceiver
	Contract common.Address

	Asset  common.Address
	Amount *uint256.Int
}

// SubmitWithFlashLoan books the flash loan as debt on [from], sends the
// funds to the receiver, invokes it, then processes [requests] with
// allowance transfers. The closing health check forces the batch to
// restore [from] to a healthy position, typically by repaying the loan.
func (p *Pool) SubmitWithFlashLoan(ctx chain.Context, from common.Address, loan FlashLoan, requests []Request) (pos *Positions, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	cfg, err := p.getPoolConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, params.ErrPoolBadRequest
	}
	if !borrowAllowed(cfg.Status) {
		return nil, params.ErrInvalidPoolStatus
	}
	if loan.Amount.IsZero() {
		return nil, params.ErrNegativeAmount
	}
	r, err := p.loadReserve(loan.Asset)
	if err != nil {
		return nil, err
	}
	pos, err = p.getPositions(from)
	if err != nil {
		return nil, err
	}
	if err := p.accrueUserEmissions(ctx, from, r, pos, 0); err != nil {
		return nil, err
	}
	dTokens := r.ToDTokensUp(loan.Amount)
	pos.AddLiabilities(r.Config.Index, dTokens)
	r.Data.DSupply.Add(r.Data.DSupply, dTokens)
	if err := p.storeReserve(r); err != nil {
		return nil, err
	}
	if err := p.setPositions(from, pos); err != nil {
		return nil, err
	}
	if err := p.tokens.Token(loan.Asset).Transfer(p.address, loan.Contract, loan.Amount); err != nil {
		return nil, err
	}
	if err := loan.Receiver.ExecOp(ctx, from, loan.Asset, loan.Amount); err != nil {
		return nil, err
	}
	pos, err = p.executeSubmit(ctx, from, from, from, requests, true)
	if err != nil {
		return nil, err
	}
	if err := p.requireHealthy(ctx, cfg, pos); err != nil {
		return nil, err
	}
	p.log.Debug("flash loan settled", "from", from, "asset", loan.Asset, "amount", loan.Amount)
	return pos, nil
}
