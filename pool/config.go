// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/params"
)

// reserveQueueDelay is how long a queued reserve configuration must wait
// before it can be applied.
const reserveQueueDelay = 7 * 24 * 60 * 60

// maxBstopRate caps the backstop take rate at 100% in 7 digit form.
const maxBstopRate = 1_0000000

// Initialize seeds a fresh pool. Called once by the deployer.
func (p *Pool) Initialize(ctx chain.Context, admin, oracle common.Address, bstopRate, maxPositions uint32, minCollateral *uint256.Int) (err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	if existing, err := p.getPoolConfig(); err != nil {
		return err
	} else if existing != nil {
		return params.ErrPoolBadRequest
	}
	if bstopRate > maxBstopRate {
		return params.ErrPoolBadRequest
	}
	if err := p.setAdmin(admin); err != nil {
		return err
	}
	return p.setPoolConfig(&PoolConfig{
		Oracle:        oracle,
		BstopRate:     bstopRate,
		MaxPositions:  maxPositions,
		MinCollateral: minCollateral,
		Status:        StatusOnIce,
	})
}

// GetConfig returns the pool configuration.
func (p *Pool) GetConfig(ctx chain.Context) (cfg *PoolConfig, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	cfg, err = p.getPoolConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, params.ErrPoolBadRequest
	}
	return cfg, nil
}

// GetAdmin returns the pool admin.
func (p *Pool) GetAdmin(ctx chain.Context) (admin common.Address, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)
	return p.getAdmin()
}

// GetPositions returns [user]'s footprint.
func (p *Pool) GetPositions(ctx chain.Context, user common.Address) (pos *Positions, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)
	return p.getPositions(user)
}

// GetReserve returns a reserve with its config and accounting snapshot.
func (p *Pool) GetReserve(ctx chain.Context, asset common.Address) (r *Reserve, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)
	return p.loadReserve(asset)
}

// GetMarket returns the pool configuration together with every reserve.
func (p *Pool) GetMarket(ctx chain.Context) (cfg *PoolConfig, reserves []*Reserve, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	cfg, err = p.getPoolConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		return nil, nil, params.ErrPoolBadRequest
	}
	list, err := p.getReserveList()
	if err != nil {
		return nil, nil, err
	}
	reserves = make([]*Reserve, 0, len(list))
	for _, asset := range list {
		r, err := p.loadReserve(asset)
		if err != nil {
			return nil, nil, err
		}
		reserves = append(reserves, r)
	}
	return cfg, reserves, nil
}

// GetReserveEmissions returns the emission window for a reserve token id,
// or nil if none has been configured.
func (p *Pool) GetReserveEmissions(ctx chain.Context, tokenID uint32) (data *ReserveEmissionData, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)
	return p.getReserveEmisData(tokenID)
}

// GetUserEmissions returns a user's emission record for a reserve token
// id, or nil if the user has never touched that side.
func (p *Pool) GetUserEmissions(ctx chain.Context, user common.Address, tokenID uint32) (data *UserEmissionData, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)
	return p.getUserEmisData(user, tokenID)
}

// SetAdmin hands the pool to a new admin.
func (p *Pool) SetAdmin(ctx chain.Context, caller, newAdmin common.Address) (err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	admin, err := p.getAdmin()
	if err != nil {
		return err
	}
	if caller != admin {
		return params.ErrPoolNotAuthorized
	}
	if err := p.setAdmin(newAdmin); err != nil {
		return err
	}
	p.log.Info("admin changed", "from", admin, "to", newAdmin)
	return nil
}

// UpdatePool adjusts the take rate, position cap and collateral minimum.
func (p *Pool) UpdatePool(ctx chain.Context, caller common.Address, bstopRate, maxPositions uint32, minCollateral *uint256.Int) (err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	admin, err := p.getAdmin()
	if err != nil {
		return err
	}
	if caller != admin {
		return params.ErrPoolNotAuthorized
	}
	if bstopRate > maxBstopRate {
		return params.ErrPoolBadRequest
	}
	cfg, err := p.getPoolConfig()
	if err != nil {
		return err
	}
	if cfg == nil {
		return params.ErrPoolBadRequest
	}
	cfg.BstopRate = bstopRate
	cfg.MaxPositions = maxPositions
	cfg.MinCollateral = minCollateral
	return p.setPoolConfig(cfg)
}

// SetMinFillPercent sets the minimum auction fill size. Zero preserves the
// legacy behaviour of accepting any fill down to 1%.
func (p *Pool) SetMinFillPercent(ctx chain.Context, caller common.Address, minFill uint32) (err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	admin, err := p.getAdmin()
	if err != nil {
		return err
	}
	if caller != admin {
		return params.ErrPoolNotAuthorized
	}
	if minFill > 100 {
		return params.ErrPoolBadRequest
	}
	cfg, err := p.getPoolConfig()
	if err != nil {
		return err
	}
	if cfg == nil {
		return params.ErrPoolBadRequest
	}
	cfg.MinFillPercent = minFill
	return p.setPoolConfig(cfg)
}

func validReserveConfig(cfg *ReserveConfig) bool {
	return cfg.CFactor <= 1_0000000 && cfg.LFactor > 0 && cfg.LFactor <= 1_0000000
}

// QueueSetReserve queues a reserve configuration behind the onboarding
// delay.
func (p *Pool) QueueSetReserve(ctx chain.Context, caller common.Address, asset common.Address, cfg ReserveConfig) (err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	admin, err := p.getAdmin()
	if err != nil {
		return err
	}
	if caller != admin {
		return params.ErrPoolNotAuthorized
	}
	if !validReserveConfig(&cfg) {
		return params.ErrPoolBadRequest
	}
	if queued, err := p.getQueuedReserve(asset); err != nil {
		return err
	} else if queued != nil {
		return params.ErrPoolBadRequest
	}
	unlock := ctx.Timestamp + reserveQueueDelay
	if existing, err := p.getReserveConfig(asset); err != nil {
		return err
	} else if existing == nil {
		// brand new reserves carry no positions yet, no delay needed
		unlock = ctx.Timestamp
	}
	return p.setQueuedReserve(asset, &QueuedReserveInit{Config: cfg, UnlockTime: unlock})
}

// CancelSetReserve drops a queued reserve configuration.
func (p *Pool) CancelSetReserve(ctx chain.Context, caller common.Address, asset common.Address) (err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	admin, err := p.getAdmin()
	if err != nil {
		return err
	}
	if caller != admin {
		return params.ErrPoolNotAuthorized
	}
	if queued, err := p.getQueuedReserve(asset); err != nil {
		return err
	} else if queued == nil {
		return params.ErrReserveNotQueued
	}
	return p.deleteQueuedReserve(asset)
}

// SetReserve applies a queued reserve configuration once its delay has
// elapsed. Returns the reserve's index.
func (p *Pool) SetReserve(ctx chain.Context, asset common.Address) (index uint32, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	queued, err := p.getQueuedReserve(asset)
	if err != nil {
		return 0, err
	}
	if queued == nil {
		return 0, params.ErrReserveNotQueued
	}
	if ctx.Timestamp < queued.UnlockTime {
		return 0, params.ErrQueueDelayNotElapsed
	}
	list, err := p.getReserveList()
	if err != nil {
		return 0, err
	}
	index = uint32(len(list))
	existing, err := p.getReserveConfig(asset)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		index = existing.Index
	} else {
		list = append(list, asset)
		if err := p.setReserveList(list); err != nil {
			return 0, err
		}
		if err := p.setReserveData(asset, &ReserveData{
			BRate:          new(uint256.Int).Set(params.Scalar12),
			DRate:          new(uint256.Int).Set(params.Scalar12),
			BSupply:        new(uint256.Int),
			DSupply:        new(uint256.Int),
			BackstopCredit: new(uint256.Int),
			LastTime:       ctx.Timestamp,
		}); err != nil {
			return 0, err
		}
	}
	cfg := queued.Config
	cfg.Index = index
	if err := p.setReserveConfig(asset, &cfg); err != nil {
		return 0, err
	}
	if err := p.deleteQueuedReserve(asset); err != nil {
		return 0, err
	}
	p.log.Info("reserve set", "asset", asset, "index", index)
	return index, nil
}
