// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lend/backstop"
	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/params"
)

// Pool status codes. Even codes are admin set and sticky; odd codes are
// computed from backstop health. Higher codes restrict more operations.
const (
	StatusAdminActive uint32 = 0
	StatusActive      uint32 = 1
	StatusAdminOnIce  uint32 = 2
	StatusOnIce       uint32 = 3
	StatusAdminFrozen uint32 = 4
	StatusFrozen      uint32 = 5
)

var (
	q4wPct30 = uint256.NewInt(3_000_000)
	q4wPct50 = uint256.NewInt(5_000_000)
	q4wPct60 = uint256.NewInt(6_000_000)
	q4wPct75 = uint256.NewInt(7_500_000)
)

// UpdateStatus recomputes the pool status from the backstop's current
// health. Rejected while the admin has frozen the pool.
func (p *Pool) UpdateStatus(ctx chain.Context) (status uint32, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	cfg, err := p.getPoolConfig()
	if err != nil {
		return 0, err
	}
	if cfg == nil {
		return 0, params.ErrPoolBadRequest
	}
	if cfg.Status == StatusAdminFrozen {
		return 0, params.ErrPoolBadRequest
	}
	data, err := p.backstop.PoolData(ctx, p.address)
	if err != nil {
		return 0, err
	}
	next := nextStatus(cfg.Status, backstop.RequirePoolAboveThreshold(data), data.Q4WPercent())
	if next != cfg.Status {
		cfg.Status = next
		if err := p.setPoolConfig(cfg); err != nil {
			return 0, err
		}
		p.metrics.ObserveStatusChange()
		p.log.Info("pool status updated", "status", next)
	}
	return next, nil
}

// nextStatus derives the automatic status from the q4w ratio and the
// deposit threshold. Admin set states suppress the one step worse
// automatic trigger but never the severe ones.
func nextStatus(current uint32, thresholdMet bool, q4wPct *uint256.Int) uint32 {
	switch {
	case q4wPct.Cmp(q4wPct75) >= 0:
		return StatusFrozen
	case q4wPct.Cmp(q4wPct60) >= 0:
		if current == StatusAdminOnIce {
			return StatusAdminOnIce
		}
		return StatusFrozen
	case q4wPct.Cmp(q4wPct50) >= 0 || !thresholdMet:
		if current == StatusAdminOnIce {
			return StatusAdminOnIce
		}
		return StatusOnIce
	case q4wPct.Cmp(q4wPct30) >= 0:
		switch current {
		case StatusAdminActive:
			return StatusAdminActive
		case StatusAdminOnIce:
			return StatusAdminOnIce
		}
		return StatusOnIce
	default:
		switch current {
		case StatusAdminActive:
			return StatusAdminActive
		case StatusAdminOnIce:
			return StatusAdminOnIce
		}
		return StatusActive
	}
}

// SetStatus lets the admin pin the pool status. Admin active requires a
// healthy backstop, admin on-ice a backstop not already draining away, and
// admin frozen is unconditional.
func (p *Pool) SetStatus(ctx chain.Context, caller common.Address, status uint32) (err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	admin, err := p.getAdmin()
	if err != nil {
		return err
	}
	if caller != admin {
		return params.ErrPoolNotAuthorized
	}
	cfg, err := p.getPoolConfig()
	if err != nil {
		return err
	}
	if cfg == nil {
		return params.ErrPoolBadRequest
	}
	switch status {
	case StatusAdminActive:
		data, err := p.backstop.PoolData(ctx, p.address)
		if err != nil {
			return err
		}
		if !backstop.RequirePoolAboveThreshold(data) || data.Q4WPercent().Cmp(q4wPct50) >= 0 {
			return params.ErrPoolBadRequest
		}
	case StatusAdminOnIce:
		data, err := p.backstop.PoolData(ctx, p.address)
		if err != nil {
			return err
		}
		if data.Q4WPercent().Cmp(q4wPct75) >= 0 {
			return params.ErrPoolBadRequest
		}
	case StatusAdminFrozen:
	default:
		return params.ErrPoolBadRequest
	}
	cfg.Status = status
	if err := p.setPoolConfig(cfg); err != nil {
		return err
	}
	p.metrics.ObserveStatusChange()
	p.log.Info("pool status set by admin", "status", status)
	return nil
}

// borrowAllowed reports whether new debt may be opened under [status].
func borrowAllowed(status uint32) bool {
	return status <= StatusActive
}

// supplyAllowed reports whether deposits may be made under [status].
func supplyAllowed(status uint32) bool {
	return status <= StatusOnIce
}

// cancelAllowed reports whether a liquidation auction may be cancelled
// under [status].
func cancelAllowed(status uint32) bool {
	return status <= StatusActive
}
