// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package interfaces declares the external collaborators of the lending
// core. The token contract, the emitter and the price oracle live outside
// this module; calls to them are synchronous and a failure of any sub call
// aborts the whole invocation.
package interfaces

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// ErrNotRegistered is returned by an Emitter that has no record of the
// queried backstop. Distribution treats this as a backfill signal rather
// than a failure.
var ErrNotRegistered = errors.New("emitter: backstop not registered")

// Token is the fungible token contract used for deposits, borrows and
// emission payouts. Amounts are 7 digit fixed point integers.
type Token interface {
	Balance(addr common.Address) (*uint256.Int, error)
	Transfer(from, to common.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to common.Address, amount *uint256.Int) error
	Approve(from, spender common.Address, amount *uint256.Int, expirationSeq uint32) error
	Allowance(from, spender common.Address) (*uint256.Int, error)
}

// BackstopToken is the LP token deposited into the backstop. Its underlying
// composition prices reward zone eligibility.
type BackstopToken interface {
	Token

	// UnderlyingPerShare reports the reward token and base asset amounts
	// backing a single share (7 digit fixed point).
	UnderlyingPerShare() (rewardTokens, baseTokens *uint256.Int, err error)
}

// Emitter supplies the distribution clock of the token stream. The stream
// emits one token per second since the reported time.
type Emitter interface {
	// LastDistro returns the timestamp of the emitter's last distribution
	// to the given backstop, or ErrNotRegistered.
	LastDistro(backstop common.Address) (uint64, error)
}

// Dropper is the optional emitter surface for claiming the drop list once
// a backstop swap completes. Emitters predating the swap flow do not
// implement it.
type Dropper interface {
	Drop() error
}

// PriceData is a spot price report from the oracle.
type PriceData struct {
	Price     *uint256.Int
	Timestamp uint64
}

// PriceOracle reports base asset denominated spot prices.
type PriceOracle interface {
	// LastPrice returns the most recent price record for the asset.
	LastPrice(asset common.Address) (PriceData, error)

	// Decimals reports the decimal count of the returned prices.
	Decimals() (uint32, error)
}
