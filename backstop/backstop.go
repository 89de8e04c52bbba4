// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package backstop implements the shared insurance module backing the
// lending pools: the per-pool deposit books, the reward zone, and the two
// tier emissions engine that splits the emitter's token stream across
// eligible pools and their backstop depositors.
//
// Authentication of callers is the host's duty; the module enforces the
// monetary invariants. Every public operation commits all of its writes or
// none of them.
package backstop

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/log"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/interfaces"
	"github.com/luxfi/lend/metrics"
	"github.com/luxfi/lend/params"
	"github.com/luxfi/lend/storage"
)

// Config assembles a backstop contract instance.
type Config struct {
	// Address is the backstop's own contract address.
	Address common.Address

	// Host is the shared transactional view of the durable store.
	Host *storage.Host

	// Token is the LP token deposited into the backstop.
	Token interfaces.BackstopToken

	// RewardToken is the emission token distributed to participants.
	RewardToken interfaces.Token

	// Emitter supplies the distribution clock.
	Emitter interfaces.Emitter

	Log     log.Logger
	Metrics *metrics.Metrics
}

// Backstop is the shared insurance module.
type Backstop struct {
	address     common.Address
	store       *storage.Gateway
	token       interfaces.BackstopToken
	rewardToken interfaces.Token
	emitter     interfaces.Emitter
	log         log.Logger
	metrics     *metrics.Metrics
}

// New returns a backstop bound to its durable namespace.
func New(cfg Config) *Backstop {
	logger := cfg.Log
	if logger == nil {
		logger = log.Root()
	}
	return &Backstop{
		address:     cfg.Address,
		store:       cfg.Host.Gateway(cfg.Address.Bytes()),
		token:       cfg.Token,
		rewardToken: cfg.RewardToken,
		emitter:     cfg.Emitter,
		log:         logger.New("module", "backstop"),
		metrics:     cfg.Metrics,
	}
}

// Address returns the backstop's contract address.
func (b *Backstop) Address() common.Address {
	return b.address
}

// Deposit moves [amount] backstop tokens from [from] into [pool]'s deposit
// book and mints shares at the current rate. Returns the shares minted.
func (b *Backstop) Deposit(ctx chain.Context, from, pool common.Address, amount *uint256.Int) (shares *uint256.Int, err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	if amount.IsZero() {
		return nil, params.ErrBadRequest
	}
	pb, ub, err := b.loadBalances(ctx, pool, from)
	if err != nil {
		return nil, err
	}
	if err := b.token.Transfer(from, b.address, amount); err != nil {
		return nil, err
	}
	shares = pb.ConvertToShares(amount)
	pb.Deposit(amount, shares)
	ub.AddShares(shares)
	if err := b.storeBalances(pool, from, pb, ub); err != nil {
		return nil, err
	}
	b.log.Debug("deposit", "pool", pool, "from", from, "amount", amount, "shares", shares)
	return shares, nil
}

// QueueWithdrawal locks [shares] of [from]'s position behind the q4w
// cooldown. Queued shares stop earning emissions and stop counting toward
// the pool's reward zone weight.
func (b *Backstop) QueueWithdrawal(ctx chain.Context, from, pool common.Address, shares *uint256.Int) (exp uint64, err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	if shares.IsZero() {
		return 0, params.ErrBadRequest
	}
	pb, ub, err := b.loadBalances(ctx, pool, from)
	if err != nil {
		return 0, err
	}
	if err := ub.QueueSharesForWithdrawal(ctx, shares); err != nil {
		return 0, err
	}
	pb.Queue(shares)
	if err := b.storeBalances(pool, from, pb, ub); err != nil {
		return 0, err
	}
	return ctx.Timestamp + params.Q4WLockTime, nil
}

// DequeueWithdrawal returns [shares] from the withdrawal queue to active
// duty, newest entries first.
func (b *Backstop) DequeueWithdrawal(ctx chain.Context, from, pool common.Address, shares *uint256.Int) (err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	if shares.IsZero() {
		return params.ErrBadRequest
	}
	pb, ub, err := b.loadBalances(ctx, pool, from)
	if err != nil {
		return err
	}
	if err := ub.DequeueSharesForWithdrawal(shares); err != nil {
		return err
	}
	if err := pb.Dequeue(shares); err != nil {
		return err
	}
	return b.storeBalances(pool, from, pb, ub)
}

// Withdraw redeems [shares] from expired withdrawal queue entries and
// transfers the backing tokens to [from]. Returns the tokens released.
func (b *Backstop) Withdraw(ctx chain.Context, from, pool common.Address, shares *uint256.Int) (tokens *uint256.Int, err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	if shares.IsZero() {
		return nil, params.ErrBadRequest
	}
	pb, ub, err := b.loadBalances(ctx, pool, from)
	if err != nil {
		return nil, err
	}
	if err := ub.WithdrawShares(ctx, shares); err != nil {
		return nil, err
	}
	tokens = pb.ConvertToTokens(shares)
	if err := pb.Withdraw(tokens, shares); err != nil {
		return nil, err
	}
	if err := b.token.Transfer(b.address, from, tokens); err != nil {
		return nil, err
	}
	if err := b.storeBalances(pool, from, pb, ub); err != nil {
		return nil, err
	}
	b.log.Debug("withdraw", "pool", pool, "from", from, "shares", shares, "tokens", tokens)
	return tokens, nil
}

// Draw moves [amount] backstop tokens out of [pool]'s book to [to]. Only
// the pool itself may draw, to cover liquidation shortfalls.
func (b *Backstop) Draw(ctx chain.Context, pool common.Address, amount *uint256.Int, to common.Address) (err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	pb, err := b.getPoolBalance(pool)
	if err != nil {
		return err
	}
	if err := pb.SpendTokens(amount); err != nil {
		return err
	}
	if err := b.token.Transfer(b.address, to, amount); err != nil {
		return err
	}
	return b.setPoolBalance(pool, pb)
}

// Donate credits [amount] backstop tokens from [from] to [pool]'s book
// without minting shares, socialising the value across depositors.
func (b *Backstop) Donate(ctx chain.Context, from, pool common.Address, amount *uint256.Int) (err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	if amount.IsZero() {
		return params.ErrBadRequest
	}
	pb, err := b.getPoolBalance(pool)
	if err != nil {
		return err
	}
	if err := b.token.Transfer(from, b.address, amount); err != nil {
		return err
	}
	pb.AddTokens(amount)
	return b.setPoolBalance(pool, pb)
}

// PoolData reports a pool's deposit book alongside its underlying
// valuation, for status machines and eligibility checks.
func (b *Backstop) PoolData(ctx chain.Context, pool common.Address) (data PoolBackstopData, err error) {
	b.store.Begin(ctx)
	defer b.store.End(&err)

	pb, err := b.getPoolBalance(pool)
	if err != nil {
		return PoolBackstopData{}, err
	}
	return b.loadPoolBackstopData(pool, pb)
}

// loadBalances fetches a pool book and user position with both emission
// records advanced to the current ledger, so share mutations never change
// already earned emissions.
func (b *Backstop) loadBalances(ctx chain.Context, pool, user common.Address) (*PoolBalance, *UserBalance, error) {
	pb, err := b.getPoolBalance(pool)
	if err != nil {
		return nil, nil, err
	}
	ub, err := b.getUserBalance(pool, user)
	if err != nil {
		return nil, nil, err
	}
	if err := b.updateEmissions(ctx, pool, pb, user, ub); err != nil {
		return nil, nil, err
	}
	return pb, ub, nil
}

func (b *Backstop) storeBalances(pool, user common.Address, pb *PoolBalance, ub *UserBalance) error {
	if err := b.setPoolBalance(pool, pb); err != nil {
		return err
	}
	return b.setUserBalance(pool, user, ub)
}
