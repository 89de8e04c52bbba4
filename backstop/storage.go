// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package backstop

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lend/storage"
)

// Storage domain tags. Keys are tag || address parts.
const (
	keyRewardZone       = "rz"
	keyRzEmissionIndex  = "rzIdx"
	keyLastDistribution = "lastDistro"
	keyBackfillStatus   = "bfStat"
	keyBackfillEmis     = "bfEmis"
	keyRzEmisData       = "rzEmis"
	keyBackstopEmisData = "bEmis"
	keyPoolBalance      = "pb"
	keyUserBalance      = "ub"
	keyUserEmisData     = "uEmis"
)

// RzEmissionData is a pool's claim against the global reward zone index.
type RzEmissionData struct {
	Index   *uint256.Int
	Accrued *uint256.Int
}

// BackstopEmissionData is the EPS window and cumulative index for one
// pool's backstop depositors.
type BackstopEmissionData struct {
	Eps        *uint256.Int
	Expiration uint64
	Index      *uint256.Int
	LastTime   uint64
}

// UserEmissionData is a depositor's last observed index and unclaimed
// balance for one pool.
type UserEmissionData struct {
	Index   *uint256.Int
	Accrued *uint256.Int
}

func (b *Backstop) getRewardZone() ([]common.Address, error) {
	var zone []common.Address
	if _, err := b.store.GetRLP(storage.Key(keyRewardZone), &zone); err != nil {
		return nil, err
	}
	return zone, nil
}

func (b *Backstop) setRewardZone(zone []common.Address) error {
	return b.store.PutRLP(storage.Key(keyRewardZone), zone)
}

func (b *Backstop) getRzEmissionIndex() (*uint256.Int, error) {
	idx := new(uint256.Int)
	if _, err := b.store.GetRLP(storage.Key(keyRzEmissionIndex), idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (b *Backstop) setRzEmissionIndex(idx *uint256.Int) error {
	return b.store.PutRLP(storage.Key(keyRzEmissionIndex), idx)
}

func (b *Backstop) getLastDistributionTime() (uint64, error) {
	var t uint64
	if _, err := b.store.GetRLP(storage.Key(keyLastDistribution), &t); err != nil {
		return 0, err
	}
	return t, nil
}

func (b *Backstop) setLastDistributionTime(t uint64) error {
	return b.store.PutRLP(storage.Key(keyLastDistribution), &t)
}

// getBackfillStatus reports the backfill tracker: absent before the first
// distribution, true while backfilling, false once the emitter has
// acknowledged this backstop.
func (b *Backstop) getBackfillStatus() (status, exists bool, err error) {
	var v uint8
	exists, err = b.store.GetRLP(storage.Key(keyBackfillStatus), &v)
	return v == 1, exists, err
}

func (b *Backstop) setBackfillStatus(status bool) error {
	v := uint8(0)
	if status {
		v = 1
	}
	return b.store.PutRLP(storage.Key(keyBackfillStatus), &v)
}

func (b *Backstop) getBackfillEmissions() (*uint256.Int, error) {
	v := new(uint256.Int)
	if _, err := b.store.GetRLP(storage.Key(keyBackfillEmis), v); err != nil {
		return nil, err
	}
	return v, nil
}

func (b *Backstop) setBackfillEmissions(v *uint256.Int) error {
	return b.store.PutRLP(storage.Key(keyBackfillEmis), v)
}

func (b *Backstop) getRzEmisData(pool common.Address) (*RzEmissionData, error) {
	var d RzEmissionData
	ok, err := b.store.GetRLP(storage.Key(keyRzEmisData, pool.Bytes()), &d)
	if err != nil || !ok {
		return nil, err
	}
	return &d, nil
}

func (b *Backstop) setRzEmisData(pool common.Address, d *RzEmissionData) error {
	return b.store.PutRLP(storage.Key(keyRzEmisData, pool.Bytes()), d)
}

func (b *Backstop) getBackstopEmisData(pool common.Address) (*BackstopEmissionData, error) {
	var d BackstopEmissionData
	ok, err := b.store.GetRLP(storage.Key(keyBackstopEmisData, pool.Bytes()), &d)
	if err != nil || !ok {
		return nil, err
	}
	return &d, nil
}

func (b *Backstop) setBackstopEmisData(pool common.Address, d *BackstopEmissionData) error {
	return b.store.PutRLP(storage.Key(keyBackstopEmisData, pool.Bytes()), d)
}

func (b *Backstop) getPoolBalance(pool common.Address) (*PoolBalance, error) {
	var pb PoolBalance
	ok, err := b.store.GetRLP(storage.Key(keyPoolBalance, pool.Bytes()), &pb)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewPoolBalance(), nil
	}
	return &pb, nil
}

func (b *Backstop) setPoolBalance(pool common.Address, pb *PoolBalance) error {
	return b.store.PutRLP(storage.Key(keyPoolBalance, pool.Bytes()), pb)
}

func (b *Backstop) getUserBalance(pool, user common.Address) (*UserBalance, error) {
	var ub UserBalance
	ok, err := b.store.GetRLP(storage.Key(keyUserBalance, pool.Bytes(), user.Bytes()), &ub)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewUserBalance(), nil
	}
	return &ub, nil
}

func (b *Backstop) setUserBalance(pool, user common.Address, ub *UserBalance) error {
	return b.store.PutRLP(storage.Key(keyUserBalance, pool.Bytes(), user.Bytes()), ub)
}

func (b *Backstop) getUserEmisData(pool, user common.Address) (*UserEmissionData, error) {
	var d UserEmissionData
	ok, err := b.store.GetRLP(storage.Key(keyUserEmisData, pool.Bytes(), user.Bytes()), &d)
	if err != nil || !ok {
		return nil, err
	}
	return &d, nil
}

func (b *Backstop) setUserEmisData(pool, user common.Address, d *UserEmissionData) error {
	return b.store.PutRLP(storage.Key(keyUserEmisData, pool.Bytes(), user.Bytes()), d)
}
