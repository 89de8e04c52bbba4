// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package testutils provides in memory stand-ins for the external
// contracts the lending core collaborates with.
package testutils

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lend/interfaces"
)

// MockToken is an in memory fungible token.
type MockToken struct {
	balances   map[common.Address]*uint256.Int
	allowances map[[2]common.Address]*uint256.Int
}

var _ interfaces.Token = (*MockToken)(nil)

func NewMockToken() *MockToken {
	return &MockToken{
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[[2]common.Address]*uint256.Int),
	}
}

// Mint credits [amount] to [addr].
func (t *MockToken) Mint(addr common.Address, amount *uint256.Int) {
	cur, ok := t.balances[addr]
	if !ok {
		t.balances[addr] = new(uint256.Int).Set(amount)
		return
	}
	cur.Add(cur, amount)
}

func (t *MockToken) Balance(addr common.Address) (*uint256.Int, error) {
	if b, ok := t.balances[addr]; ok {
		return new(uint256.Int).Set(b), nil
	}
	return new(uint256.Int), nil
}

func (t *MockToken) Transfer(from, to common.Address, amount *uint256.Int) error {
	b, ok := t.balances[from]
	if !ok || b.Cmp(amount) < 0 {
		return fmt.Errorf("token: insufficient balance for %s", from)
	}
	b.Sub(b, amount)
	t.Mint(to, amount)
	return nil
}

func (t *MockToken) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	key := [2]common.Address{from, spender}
	allowance, ok := t.allowances[key]
	if !ok || allowance.Cmp(amount) < 0 {
		return fmt.Errorf("token: insufficient allowance for %s", spender)
	}
	if err := t.Transfer(from, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

func (t *MockToken) Approve(from, spender common.Address, amount *uint256.Int, expirationSeq uint32) error {
	t.allowances[[2]common.Address{from, spender}] = new(uint256.Int).Set(amount)
	return nil
}

func (t *MockToken) Allowance(from, spender common.Address) (*uint256.Int, error) {
	if a, ok := t.allowances[[2]common.Address{from, spender}]; ok {
		return new(uint256.Int).Set(a), nil
	}
	return new(uint256.Int), nil
}

// MockBackstopToken is an LP token with a fixed underlying composition per
// share.
type MockBackstopToken struct {
	*MockToken

	RewardPerShare *uint256.Int
	BasePerShare   *uint256.Int
}

var _ interfaces.BackstopToken = (*MockBackstopToken)(nil)

func NewMockBackstopToken(rewardPerShare, basePerShare *uint256.Int) *MockBackstopToken {
	return &MockBackstopToken{
		MockToken:      NewMockToken(),
		RewardPerShare: rewardPerShare,
		BasePerShare:   basePerShare,
	}
}

func (t *MockBackstopToken) UnderlyingPerShare() (*uint256.Int, *uint256.Int, error) {
	return new(uint256.Int).Set(t.RewardPerShare), new(uint256.Int).Set(t.BasePerShare), nil
}

// MockEmitter is an emitter whose clock and registration are test
// controlled.
type MockEmitter struct {
	Registered bool
	DistroTime uint64
	Dropped    bool
}

var (
	_ interfaces.Emitter = (*MockEmitter)(nil)
	_ interfaces.Dropper = (*MockEmitter)(nil)
)

func (e *MockEmitter) LastDistro(backstop common.Address) (uint64, error) {
	if !e.Registered {
		return 0, interfaces.ErrNotRegistered
	}
	return e.DistroTime, nil
}

// Drop records the drop list claim.
func (e *MockEmitter) Drop() error {
	e.Dropped = true
	return nil
}

// MockOracle reports fixed prices.
type MockOracle struct {
	Prices       map[common.Address]*uint256.Int
	PriceDecimal uint32
}

var _ interfaces.PriceOracle = (*MockOracle)(nil)

func NewMockOracle(decimals uint32) *MockOracle {
	return &MockOracle{
		Prices:       make(map[common.Address]*uint256.Int),
		PriceDecimal: decimals,
	}
}

// SetPrice fixes [asset]'s price in the oracle's own decimals.
func (o *MockOracle) SetPrice(asset common.Address, price *uint256.Int) {
	o.Prices[asset] = price
}

func (o *MockOracle) LastPrice(asset common.Address) (interfaces.PriceData, error) {
	price, ok := o.Prices[asset]
	if !ok {
		return interfaces.PriceData{}, fmt.Errorf("oracle: no price for %s", asset)
	}
	return interfaces.PriceData{Price: new(uint256.Int).Set(price)}, nil
}

func (o *MockOracle) Decimals() (uint32, error) {
	return o.PriceDecimal, nil
}

// TokenMap resolves assets to mock tokens.
type TokenMap map[common.Address]*MockToken

func (m TokenMap) Token(asset common.Address) interfaces.Token {
	return m[asset]
}
