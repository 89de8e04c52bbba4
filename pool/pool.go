// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements an isolated money market pool: reserve books,
// user positions, the status state machine driven by backstop health, the
// per reserve emission indexes fed from the backstop's 30% allowance, and
// the Dutch auction engine used for liquidations, bad debt transfers and
// interest collection.
//
// Interest accrual and the bToken/dToken share curve are external to this
// module; reserves expose conversion hooks over stored rates and auctions
// consume them read only.
package pool

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/log"

	"github.com/luxfi/lend/backstop"
	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/interfaces"
	"github.com/luxfi/lend/metrics"
	"github.com/luxfi/lend/storage"
)

// priceCacheSize bounds the per-pool oracle price cache. Entries are keyed
// by asset and invalidated across ledgers.
const priceCacheSize = 32

// BackstopClient is the slice of the backstop module the pool depends on.
// *backstop.Backstop satisfies it.
type BackstopClient interface {
	Address() common.Address
	PoolData(ctx chain.Context, pool common.Address) (backstop.PoolBackstopData, error)
	GulpEmissions(ctx chain.Context, pool common.Address) (backstopEmis, poolEmis *uint256.Int, err error)
	Draw(ctx chain.Context, pool common.Address, amount *uint256.Int, to common.Address) error
	Donate(ctx chain.Context, from, pool common.Address, amount *uint256.Int) error
}

// TokenRegistry resolves asset addresses to their token contracts.
type TokenRegistry interface {
	Token(asset common.Address) interfaces.Token
}

// Config assembles a pool contract instance.
type Config struct {
	// Address is the pool's own contract address.
	Address common.Address

	// Host is the shared transactional view of the durable store, common
	// with the backstop so cross contract calls stay atomic.
	Host *storage.Host

	Backstop BackstopClient
	Oracle   interfaces.PriceOracle
	Tokens   TokenRegistry

	// RewardToken is the emission token; the pool spends its backstop
	// allowance in it when users claim.
	RewardToken interfaces.Token

	// BackstopToken is the LP token backing the backstop, used as the lot
	// of bad debt auctions.
	BackstopToken common.Address

	Log     log.Logger
	Metrics *metrics.Metrics
}

// Pool is an isolated lending pool.
type Pool struct {
	address       common.Address
	store         *storage.Gateway
	backstop      BackstopClient
	oracle        interfaces.PriceOracle
	tokens        TokenRegistry
	rewardToken   interfaces.Token
	backstopToken common.Address
	priceCache    *lru.Cache
	log           log.Logger
	metrics       *metrics.Metrics
}

// New returns a pool bound to its durable namespace.
func New(cfg Config) *Pool {
	logger := cfg.Log
	if logger == nil {
		logger = log.Root()
	}
	cache, _ := lru.New(priceCacheSize)
	return &Pool{
		address:       cfg.Address,
		store:         cfg.Host.Gateway(cfg.Address.Bytes()),
		backstop:      cfg.Backstop,
		oracle:        cfg.Oracle,
		tokens:        cfg.Tokens,
		rewardToken:   cfg.RewardToken,
		backstopToken: cfg.BackstopToken,
		priceCache:    cache,
		log:           logger.New("module", "pool", "address", cfg.Address),
		metrics:       cfg.Metrics,
	}
}

// Address returns the pool's contract address.
func (p *Pool) Address() common.Address {
	return p.address
}
