// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain carries the host ledger view handed to every contract
// invocation. The host is single writer: one invocation executes against a
// committed snapshot and commits or aborts as a unit, so the context is an
// immutable value for the duration of a call.
package chain

// Context is the ledger state visible to an invocation.
type Context struct {
	// Timestamp is the close time of the current ledger, in seconds.
	Timestamp uint64

	// Sequence is the current ledger sequence number.
	Sequence uint32
}
