// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/lend/params"
)

// Positions is a user's footprint in the pool, keyed by reserve index.
// Liabilities are dTokens; Collateral and Supply are bTokens, with only
// Collateral counting toward health.
type Positions struct {
	Liabilities map[uint32]*uint256.Int
	Collateral  map[uint32]*uint256.Int
	Supply      map[uint32]*uint256.Int
}

// NewPositions returns an empty footprint.
func NewPositions() *Positions {
	return &Positions{
		Liabilities: make(map[uint32]*uint256.Int),
		Collateral:  make(map[uint32]*uint256.Int),
		Supply:      make(map[uint32]*uint256.Int),
	}
}

// Count returns the number of open positions, for MaxPositions enforcement.
// A reserve with both supply and collateral counts once.
func (pos *Positions) Count() uint32 {
	seen := make(map[uint32]struct{})
	for k := range pos.Supply {
		seen[k] = struct{}{}
	}
	for k := range pos.Collateral {
		seen[k] = struct{}{}
	}
	n := uint32(len(seen))
	return n + uint32(len(pos.Liabilities))
}

// HasLiabilities reports whether any debt is outstanding.
func (pos *Positions) HasLiabilities() bool {
	return len(pos.Liabilities) > 0
}

// HasCollateral reports whether any bTokens are posted, in either bucket.
func (pos *Positions) HasCollateral() bool {
	return len(pos.Collateral) > 0 || len(pos.Supply) > 0
}

func getAmount(m map[uint32]*uint256.Int, idx uint32) *uint256.Int {
	if v, ok := m[idx]; ok {
		return v
	}
	return new(uint256.Int)
}

func addAmount(m map[uint32]*uint256.Int, idx uint32, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	cur, ok := m[idx]
	if !ok {
		m[idx] = new(uint256.Int).Set(amount)
		return
	}
	cur.Add(cur, amount)
}

func subAmount(m map[uint32]*uint256.Int, idx uint32, amount *uint256.Int) error {
	cur, ok := m[idx]
	if !ok || amount.Cmp(cur) > 0 {
		return params.ErrBalanceError
	}
	cur.Sub(cur, amount)
	if cur.IsZero() {
		delete(m, idx)
	}
	return nil
}

// AddLiabilities books new debt dTokens against the reserve.
func (pos *Positions) AddLiabilities(idx uint32, amount *uint256.Int) {
	addAmount(pos.Liabilities, idx, amount)
}

// RemoveLiabilities burns repaid dTokens.
func (pos *Positions) RemoveLiabilities(idx uint32, amount *uint256.Int) error {
	return subAmount(pos.Liabilities, idx, amount)
}

// AddCollateral posts bTokens as collateral.
func (pos *Positions) AddCollateral(idx uint32, amount *uint256.Int) {
	addAmount(pos.Collateral, idx, amount)
}

// RemoveCollateral withdraws posted collateral bTokens.
func (pos *Positions) RemoveCollateral(idx uint32, amount *uint256.Int) error {
	return subAmount(pos.Collateral, idx, amount)
}

// AddSupply books non collateral supply bTokens.
func (pos *Positions) AddSupply(idx uint32, amount *uint256.Int) {
	addAmount(pos.Supply, idx, amount)
}

// RemoveSupply withdraws supply bTokens.
func (pos *Positions) RemoveSupply(idx uint32, amount *uint256.Int) error {
	return subAmount(pos.Supply, idx, amount)
}

// TotalSupply returns the user's bTokens in the reserve across both the
// supply and collateral buckets. This is the emission basis for the supply
// side.
func (pos *Positions) TotalSupply(idx uint32) *uint256.Int {
	total := new(uint256.Int).Set(getAmount(pos.Supply, idx))
	return total.Add(total, getAmount(pos.Collateral, idx))
}
