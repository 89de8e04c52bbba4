// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/fixedpoint"
	"github.com/luxfi/lend/params"
)

var secondsInWeek = uint256.NewInt(params.EmissionWindow)

// SetEmissionsConfig replaces the routing of gulped emissions across
// reserve token sides. Shares must sum to at most one. Takes effect at the
// next gulp.
func (p *Pool) SetEmissionsConfig(ctx chain.Context, caller common.Address, metadata []ReserveEmissionMetadata) (err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	admin, err := p.getAdmin()
	if err != nil {
		return err
	}
	if caller != admin {
		return params.ErrPoolNotAuthorized
	}
	total := new(uint256.Int)
	seen := mapset.NewThreadUnsafeSet[uint64]()
	for _, m := range metadata {
		if m.ResType > 1 {
			return params.ErrPoolBadRequest
		}
		id := uint64(m.ResIndex)<<1 | uint64(m.ResType)
		if !seen.Add(id) {
			return params.ErrPoolBadRequest
		}
		total.Add(total, uint256.NewInt(m.Share))
	}
	if total.Cmp(params.Scalar7) > 0 {
		return params.ErrInvalidEmissionShare
	}
	return p.setEmissionsConfig(metadata)
}

// GulpEmissions pulls the pool's 30% slice out of the backstop and rolls
// each configured reserve side's EPS window. Returns the tokens taken on.
func (p *Pool) GulpEmissions(ctx chain.Context) (total *uint256.Int, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	_, poolEmis, err := p.backstop.GulpEmissions(ctx, p.address)
	if err != nil {
		return nil, err
	}
	if poolEmis.IsZero() {
		return nil, params.ErrPoolBadRequest
	}
	cfg, err := p.getEmissionsConfig()
	if err != nil {
		return nil, err
	}
	for _, m := range cfg {
		tokenID := m.ResIndex*2 + m.ResType
		newTokens := fixedpoint.MulFloor(poolEmis, uint256.NewInt(m.Share), params.Scalar7)
		if newTokens.IsZero() {
			continue
		}
		supply, err := p.emissionSupply(m.ResIndex, m.ResType)
		if err != nil {
			return nil, err
		}
		if err := p.setReserveEmissionEPS(ctx, tokenID, supply, newTokens); err != nil {
			return nil, err
		}
	}
	p.log.Info("pool emissions gulped", "amount", poolEmis)
	return poolEmis, nil
}

// emissionSupply returns the share supply backing a reserve token side.
func (p *Pool) emissionSupply(resIndex, resType uint32) (*uint256.Int, error) {
	r, err := p.loadReserveByIndex(resIndex)
	if err != nil {
		return nil, err
	}
	if resType == 0 {
		return r.Data.DSupply, nil
	}
	return r.Data.BSupply, nil
}

// setReserveEmissionEPS rolls a reserve side's EPS window, carrying over
// whatever the expiring window had not yet emitted.
func (p *Pool) setReserveEmissionEPS(ctx chain.Context, tokenID uint32, supply, newTokens *uint256.Int) error {
	tokensLeftToEmit := new(uint256.Int).Set(newTokens)
	expiration := ctx.Timestamp + params.EmissionWindow

	data, err := p.updateReserveEmisData(ctx, tokenID, supply)
	if err != nil {
		return err
	}
	if data == nil {
		eps := fixedpoint.DivFloor(tokensLeftToEmit, secondsInWeek, params.Scalar7)
		return p.setReserveEmisData(tokenID, &ReserveEmissionData{
			Eps:        eps,
			Expiration: expiration,
			Index:      new(uint256.Int),
			LastTime:   ctx.Timestamp,
		})
	}
	data.LastTime = ctx.Timestamp
	if data.Expiration > ctx.Timestamp {
		timeLeft := uint256.NewInt(data.Expiration - ctx.Timestamp)
		unspent := fixedpoint.MulFloor(data.Eps, timeLeft, params.Scalar7)
		tokensLeftToEmit.Add(tokensLeftToEmit, unspent)
	}
	data.Eps = fixedpoint.DivFloor(tokensLeftToEmit, secondsInWeek, params.Scalar7)
	data.Expiration = expiration
	return p.setReserveEmisData(tokenID, data)
}

// updateReserveEmisData advances a reserve side's index to now under its
// active EPS window. Nil when the side has never been configured.
func (p *Pool) updateReserveEmisData(ctx chain.Context, tokenID uint32, supply *uint256.Int) (*ReserveEmissionData, error) {
	data, err := p.getReserveEmisData(tokenID)
	if err != nil || data == nil {
		return data, err
	}
	if data.LastTime >= data.Expiration ||
		ctx.Timestamp == data.LastTime ||
		data.Eps.IsZero() ||
		supply.IsZero() {
		return data, nil
	}
	maxTimestamp := ctx.Timestamp
	if data.Expiration < maxTimestamp {
		maxTimestamp = data.Expiration
	}
	dt := uint256.NewInt(maxTimestamp - data.LastTime)
	additional := fixedpoint.DivFloor(new(uint256.Int).Mul(dt, data.Eps), supply, params.Scalar7)
	data.Index = new(uint256.Int).Add(data.Index, additional)
	data.LastTime = ctx.Timestamp
	if err := p.setReserveEmisData(tokenID, data); err != nil {
		return nil, err
	}
	return data, nil
}

// updateUserEmissions accrues a user's share of a reserve side's index.
// With [claim] the accrued balance is returned and zeroed.
func (p *Pool) updateUserEmissions(user common.Address, tokenID uint32, data *ReserveEmissionData, userShares *uint256.Int, claim bool) (*uint256.Int, error) {
	if data == nil {
		return new(uint256.Int), nil
	}
	userData, err := p.getUserEmisData(user, tokenID)
	if err != nil {
		return nil, err
	}
	if userData == nil {
		// a holder with shares but no record predates emissions and is
		// owed the full index; anyone else starts accruing from here
		userData = &UserEmissionData{
			Index:   new(uint256.Int).Set(data.Index),
			Accrued: new(uint256.Int),
		}
		if !userShares.IsZero() {
			userData.Accrued = fixedpoint.MulFloor(userShares, data.Index, params.Scalar14)
		}
	}
	if userData.Index.Cmp(data.Index) < 0 && !userShares.IsZero() {
		delta := new(uint256.Int).Sub(data.Index, userData.Index)
		userData.Accrued.Add(userData.Accrued, fixedpoint.MulFloor(userShares, delta, params.Scalar14))
	}
	userData.Index = new(uint256.Int).Set(data.Index)
	var out *uint256.Int
	if claim {
		out = userData.Accrued
		userData.Accrued = new(uint256.Int)
	} else {
		out = new(uint256.Int)
	}
	if err := p.setUserEmisData(user, tokenID, userData); err != nil {
		return nil, err
	}
	return out, nil
}

// accrueUserEmissions advances a user's emission records on both sides of
// [reserve] against the user's current balances, before those balances
// change.
func (p *Pool) accrueUserEmissions(ctx chain.Context, user common.Address, r *Reserve, pos *Positions, side uint32) error {
	tokenID := r.Config.Index*2 + side
	var supply, userShares *uint256.Int
	if side == 0 {
		supply = r.Data.DSupply
		userShares = getAmount(pos.Liabilities, r.Config.Index)
	} else {
		supply = r.Data.BSupply
		userShares = pos.TotalSupply(r.Config.Index)
	}
	data, err := p.updateReserveEmisData(ctx, tokenID, supply)
	if err != nil {
		return err
	}
	_, err = p.updateUserEmissions(user, tokenID, data, userShares, false)
	return err
}

// Claim realises [from]'s unclaimed emissions for the given reserve token
// ids and pays them to [to] out of the pool's backstop allowance.
// Duplicate ids are rejected.
func (p *Pool) Claim(ctx chain.Context, from common.Address, tokenIDs []uint32, to common.Address) (claimed *uint256.Int, err error) {
	p.store.Begin(ctx)
	defer p.store.End(&err)

	pos, err := p.getPositions(from)
	if err != nil {
		return nil, err
	}
	claimed = new(uint256.Int)
	seen := mapset.NewThreadUnsafeSet[uint32]()
	for _, tokenID := range tokenIDs {
		if !seen.Add(tokenID) {
			return nil, params.ErrPoolBadRequest
		}
		resIndex := tokenID / 2
		side := tokenID % 2
		r, err := p.loadReserveByIndex(resIndex)
		if err != nil {
			return nil, err
		}
		var supply, userShares *uint256.Int
		if side == 0 {
			supply = r.Data.DSupply
			userShares = getAmount(pos.Liabilities, resIndex)
		} else {
			supply = r.Data.BSupply
			userShares = pos.TotalSupply(resIndex)
		}
		data, err := p.updateReserveEmisData(ctx, tokenID, supply)
		if err != nil {
			return nil, err
		}
		amount, err := p.updateUserEmissions(from, tokenID, data, userShares, true)
		if err != nil {
			return nil, err
		}
		claimed.Add(claimed, amount)
	}
	if !claimed.IsZero() {
		if err := p.rewardToken.TransferFrom(p.address, p.backstop.Address(), to, claimed); err != nil {
			return nil, err
		}
	}
	p.metrics.ObserveClaim(claimed)
	p.log.Debug("pool emissions claimed", "from", from, "amount", claimed)
	return claimed, nil
}
