// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"bytes"
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"golang.org/x/exp/slices"

	"github.com/luxfi/lend/storage"
)

const (
	keyPoolConfig     = "cfg"
	keyAdmin          = "admin"
	keyReserveList    = "resList"
	keyReserveConfig  = "resCfg"
	keyReserveData    = "resData"
	keyReserveQueue   = "resQueue"
	keyPositions      = "pos"
	keyEmissionsCfg   = "emisCfg"
	keyReserveEmis    = "resEmis"
	keyUserEmis       = "uEmis"
	keyAuction        = "auct"
)

// PoolConfig is the pool's operating configuration.
type PoolConfig struct {
	Oracle         common.Address
	BstopRate      uint32
	MaxPositions   uint32
	MinCollateral  *uint256.Int
	Status         uint32
	MinFillPercent uint32
}

// ReserveConfig is the risk configuration of one reserve.
type ReserveConfig struct {
	Index    uint32
	Decimals uint32

	// CFactor discounts collateral value, LFactor inflates liability
	// value; both 7 digit fractions, CFactor in [0, 1] and LFactor in
	// (0, 1].
	CFactor uint32
	LFactor uint32
}

// ReserveData is the reserve's accounting snapshot. Rates are 12 digit
// fixed point and move only through the external accrual hook.
type ReserveData struct {
	BRate          *uint256.Int
	DRate          *uint256.Int
	BSupply        *uint256.Int
	DSupply        *uint256.Int
	BackstopCredit *uint256.Int
	LastTime       uint64
}

// QueuedReserveInit is a reserve configuration waiting out the onboarding
// delay.
type QueuedReserveInit struct {
	Config     ReserveConfig
	UnlockTime uint64
}

// ReserveEmissionData is the EPS window and cumulative index for one
// reserve token side.
type ReserveEmissionData struct {
	Eps        *uint256.Int
	Expiration uint64
	Index      *uint256.Int
	LastTime   uint64
}

// UserEmissionData is a user's last observed reserve index and unclaimed
// balance.
type UserEmissionData struct {
	Index   *uint256.Int
	Accrued *uint256.Int
}

// ReserveEmissionMetadata routes a share of gulped emissions to one reserve
// token side. Shares are 7 digit fractions and must sum to at most one.
type ReserveEmissionMetadata struct {
	ResIndex uint32
	ResType  uint32 // 0 = dToken (borrow side), 1 = bToken (supply side)
	Share    uint64
}

// indexAmount is the storage form of a positions map entry.
type indexAmount struct {
	Index  uint32
	Amount *uint256.Int
}

// assetAmount is the storage form of an auction map entry.
type assetAmount struct {
	Asset  common.Address
	Amount *uint256.Int
}

// storedPositions is the RLP form of Positions.
type storedPositions struct {
	Liabilities []indexAmount
	Collateral  []indexAmount
	Supply      []indexAmount
}

// storedAuction is the RLP form of AuctionData.
type storedAuction struct {
	Block uint32
	Bid   []assetAmount
	Lot   []assetAmount
}

func sortedPairs(m map[uint32]*uint256.Int) []indexAmount {
	out := make([]indexAmount, 0, len(m))
	for k, v := range m {
		out = append(out, indexAmount{Index: k, Amount: v})
	}
	slices.SortFunc(out, func(a, b indexAmount) int { return int(a.Index) - int(b.Index) })
	return out
}

func pairsToMap(pairs []indexAmount) map[uint32]*uint256.Int {
	m := make(map[uint32]*uint256.Int, len(pairs))
	for _, p := range pairs {
		m[p.Index] = p.Amount
	}
	return m
}

func sortedAssets(m map[common.Address]*uint256.Int) []assetAmount {
	out := make([]assetAmount, 0, len(m))
	for k, v := range m {
		out = append(out, assetAmount{Asset: k, Amount: v})
	}
	slices.SortFunc(out, func(a, b assetAmount) int {
		return bytes.Compare(a.Asset.Bytes(), b.Asset.Bytes())
	})
	return out
}

func assetsToMap(pairs []assetAmount) map[common.Address]*uint256.Int {
	m := make(map[common.Address]*uint256.Int, len(pairs))
	for _, p := range pairs {
		m[p.Asset] = p.Amount
	}
	return m
}

func tokenIDKey(id uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	return buf
}

func (p *Pool) getPoolConfig() (*PoolConfig, error) {
	var cfg PoolConfig
	ok, err := p.store.GetRLP(storage.Key(keyPoolConfig), &cfg)
	if err != nil || !ok {
		return nil, err
	}
	return &cfg, nil
}

func (p *Pool) setPoolConfig(cfg *PoolConfig) error {
	return p.store.PutRLP(storage.Key(keyPoolConfig), cfg)
}

func (p *Pool) getAdmin() (common.Address, error) {
	var admin common.Address
	if _, err := p.store.GetRLP(storage.Key(keyAdmin), &admin); err != nil {
		return common.Address{}, err
	}
	return admin, nil
}

func (p *Pool) setAdmin(admin common.Address) error {
	return p.store.PutRLP(storage.Key(keyAdmin), &admin)
}

func (p *Pool) getReserveList() ([]common.Address, error) {
	var list []common.Address
	if _, err := p.store.GetRLP(storage.Key(keyReserveList), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Pool) setReserveList(list []common.Address) error {
	return p.store.PutRLP(storage.Key(keyReserveList), list)
}

func (p *Pool) getReserveConfig(asset common.Address) (*ReserveConfig, error) {
	var cfg ReserveConfig
	ok, err := p.store.GetRLP(storage.Key(keyReserveConfig, asset.Bytes()), &cfg)
	if err != nil || !ok {
		return nil, err
	}
	return &cfg, nil
}

func (p *Pool) setReserveConfig(asset common.Address, cfg *ReserveConfig) error {
	return p.store.PutRLP(storage.Key(keyReserveConfig, asset.Bytes()), cfg)
}

func (p *Pool) getReserveData(asset common.Address) (*ReserveData, error) {
	var data ReserveData
	ok, err := p.store.GetRLP(storage.Key(keyReserveData, asset.Bytes()), &data)
	if err != nil || !ok {
		return nil, err
	}
	return &data, nil
}

func (p *Pool) setReserveData(asset common.Address, data *ReserveData) error {
	return p.store.PutRLP(storage.Key(keyReserveData, asset.Bytes()), data)
}

func (p *Pool) getQueuedReserve(asset common.Address) (*QueuedReserveInit, error) {
	var q QueuedReserveInit
	ok, err := p.store.GetRLP(storage.Key(keyReserveQueue, asset.Bytes()), &q)
	if err != nil || !ok {
		return nil, err
	}
	return &q, nil
}

func (p *Pool) setQueuedReserve(asset common.Address, q *QueuedReserveInit) error {
	return p.store.PutRLP(storage.Key(keyReserveQueue, asset.Bytes()), q)
}

func (p *Pool) deleteQueuedReserve(asset common.Address) error {
	return p.store.Delete(storage.Key(keyReserveQueue, asset.Bytes()))
}

func (p *Pool) getPositions(user common.Address) (*Positions, error) {
	var stored storedPositions
	ok, err := p.store.GetRLP(storage.Key(keyPositions, user.Bytes()), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewPositions(), nil
	}
	return &Positions{
		Liabilities: pairsToMap(stored.Liabilities),
		Collateral:  pairsToMap(stored.Collateral),
		Supply:      pairsToMap(stored.Supply),
	}, nil
}

func (p *Pool) setPositions(user common.Address, pos *Positions) error {
	stored := storedPositions{
		Liabilities: sortedPairs(pos.Liabilities),
		Collateral:  sortedPairs(pos.Collateral),
		Supply:      sortedPairs(pos.Supply),
	}
	return p.store.PutRLP(storage.Key(keyPositions, user.Bytes()), &stored)
}

func (p *Pool) getEmissionsConfig() ([]ReserveEmissionMetadata, error) {
	var cfg []ReserveEmissionMetadata
	if _, err := p.store.GetRLP(storage.Key(keyEmissionsCfg), &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Pool) setEmissionsConfig(cfg []ReserveEmissionMetadata) error {
	return p.store.PutRLP(storage.Key(keyEmissionsCfg), cfg)
}

func (p *Pool) getReserveEmisData(tokenID uint32) (*ReserveEmissionData, error) {
	var d ReserveEmissionData
	ok, err := p.store.GetRLP(storage.Key(keyReserveEmis, tokenIDKey(tokenID)), &d)
	if err != nil || !ok {
		return nil, err
	}
	return &d, nil
}

func (p *Pool) setReserveEmisData(tokenID uint32, d *ReserveEmissionData) error {
	return p.store.PutRLP(storage.Key(keyReserveEmis, tokenIDKey(tokenID)), d)
}

func (p *Pool) getUserEmisData(user common.Address, tokenID uint32) (*UserEmissionData, error) {
	var d UserEmissionData
	ok, err := p.store.GetRLP(storage.Key(keyUserEmis, user.Bytes(), tokenIDKey(tokenID)), &d)
	if err != nil || !ok {
		return nil, err
	}
	return &d, nil
}

func (p *Pool) setUserEmisData(user common.Address, tokenID uint32, d *UserEmissionData) error {
	return p.store.PutRLP(storage.Key(keyUserEmis, user.Bytes(), tokenIDKey(tokenID)), d)
}

func auctionKey(auctionType AuctionType, user common.Address) []byte {
	return storage.Key(keyAuction, []byte{byte(auctionType)}, user.Bytes())
}

func (p *Pool) getAuction(auctionType AuctionType, user common.Address) (*AuctionData, error) {
	var stored storedAuction
	ok, err := p.store.GetRLP(auctionKey(auctionType, user), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &AuctionData{
		Block: stored.Block,
		Bid:   assetsToMap(stored.Bid),
		Lot:   assetsToMap(stored.Lot),
	}, nil
}

func (p *Pool) setAuction(auctionType AuctionType, user common.Address, a *AuctionData) error {
	stored := storedAuction{
		Block: a.Block,
		Bid:   sortedAssets(a.Bid),
		Lot:   sortedAssets(a.Lot),
	}
	return p.store.PutRLP(auctionKey(auctionType, user), &stored)
}

func (p *Pool) deleteAuction(auctionType AuctionType, user common.Address) error {
	return p.store.Delete(auctionKey(auctionType, user))
}

func (p *Pool) hasAuction(auctionType AuctionType, user common.Address) (bool, error) {
	return p.store.Has(auctionKey(auctionType, user))
}
