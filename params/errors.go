// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package params

import "fmt"

// Error is a protocol error carrying the numeric code observed on the wire.
// Codes are stable for external compatibility; messages are not.
type Error struct {
	Code uint32
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Msg, e.Code)
}

// Backstop error kinds.
var (
	ErrBadRequest             = &Error{Code: 1000, Msg: "bad request"}
	ErrNotAuthorized          = &Error{Code: 1001, Msg: "not authorized"}
	ErrInvalidRewardZoneEntry = &Error{Code: 1002, Msg: "invalid reward zone entry"}
	ErrInsufficientFunds      = &Error{Code: 1003, Msg: "insufficient funds"}
	ErrBalanceError           = &Error{Code: 1004, Msg: "balance error"}
	ErrNotExpired             = &Error{Code: 1005, Msg: "withdrawal not expired"}
	ErrRewardZoneFull         = &Error{Code: 1009, Msg: "reward zone full"}
	ErrMaxBackfillEmissions   = &Error{Code: 1010, Msg: "max backfill emissions exceeded"}
)

// Pool error kinds.
var (
	ErrPoolBadRequest       = &Error{Code: 1200, Msg: "bad request"}
	ErrPoolNotAuthorized    = &Error{Code: 1202, Msg: "not authorized"}
	ErrNegativeAmount       = &Error{Code: 1203, Msg: "negative or zero amount"}
	ErrInvalidPoolStatus    = &Error{Code: 1204, Msg: "operation not permitted in current pool status"}
	ErrInvalidHf            = &Error{Code: 1205, Msg: "health factor below minimum"}
	ErrReserveNotQueued     = &Error{Code: 1206, Msg: "reserve not queued"}
	ErrQueueDelayNotElapsed = &Error{Code: 1207, Msg: "reserve queue delay has not elapsed"}
	ErrMaxPositionsExceeded = &Error{Code: 1208, Msg: "max positions exceeded"}
	ErrBadDebtExists        = &Error{Code: 1209, Msg: "user still holds collateral"}
	ErrAuctionInProgress    = &Error{Code: 1210, Msg: "auction already exists"}
	ErrInvalidLiquidation   = &Error{Code: 1211, Msg: "invalid liquidation"}
	ErrAuctionNotFound      = &Error{Code: 1212, Msg: "auction does not exist"}
	ErrInvalidFill          = &Error{Code: 1213, Msg: "invalid auction fill"}
	ErrMinCollateral        = &Error{Code: 1214, Msg: "collateral below pool minimum"}
	ErrInvalidEmissionShare = &Error{Code: 1215, Msg: "emission shares exceed one"}
)
