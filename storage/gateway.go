// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package storage is the thin gateway between contract state and the host's
// durable key value store. Contracts sharing a Host run inside one version
// overlay: the outermost public operation commits all writes iff it
// succeeds, so a failing sub call aborts the whole invocation, including
// writes already made by other contracts. Test harnesses substitute an in
// memory database.
package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/geth/rlp"

	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/params"
)

var ttlPrefix = []byte("ttl")

// Host is the shared transactional overlay for one ledger's contracts.
type Host struct {
	vdb *versiondb.Database

	// depth tracks invocation nesting: cross contract calls re-enter the
	// overlay and only the outermost call commits or aborts.
	depth int

	// seq is the ledger sequence of the invocation in flight, used to
	// extend entry TTLs on each touch.
	seq uint32
}

// NewHost wraps [base] in a version overlay shared by all gateways derived
// from it.
func NewHost(base database.Database) *Host {
	return &Host{vdb: versiondb.New(base)}
}

// Commit flushes writes made outside an invocation window, such as seeded
// deployment state.
func (h *Host) Commit() error {
	return h.vdb.Commit()
}

// Abort discards writes made outside an invocation window.
func (h *Host) Abort() {
	h.vdb.Abort()
}

// Gateway returns a contract's namespaced view of the host store.
func (h *Host) Gateway(namespace []byte) *Gateway {
	db := prefixdb.New(namespace, h.vdb)
	return &Gateway{
		host: h,
		db:   db,
		ttl:  prefixdb.New(ttlPrefix, db),
	}
}

// Gateway is one contract's namespaced view.
type Gateway struct {
	host *Host
	db   database.Database
	ttl  database.Database
}

// Begin marks the start of a (possibly nested) invocation.
func (g *Gateway) Begin(ctx chain.Context) {
	if g.host.depth == 0 {
		g.host.seq = ctx.Sequence
	}
	g.host.depth++
}

// End closes the invocation. The outermost End commits the overlay when
// *errp is nil and discards it otherwise; nested Ends just unwind and let
// the error propagate to the caller.
func (g *Gateway) End(errp *error) {
	g.host.depth--
	if g.host.depth > 0 {
		return
	}
	if *errp != nil {
		g.host.vdb.Abort()
		return
	}
	if err := g.host.vdb.Commit(); err != nil {
		*errp = fmt.Errorf("committing invocation: %w", err)
	}
}

// GetRLP reads and decodes the entry at [key]. The boolean reports whether
// the entry exists; a missing entry is not an error.
func (g *Gateway) GetRLP(key []byte, out interface{}) (bool, error) {
	raw, err := g.db.Get(key)
	if err == database.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %q: %w", key, err)
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("decoding %q: %w", key, err)
	}
	g.touch(key)
	return true, nil
}

// PutRLP encodes and stores [val] at [key].
func (g *Gateway) PutRLP(key []byte, val interface{}) error {
	raw, err := rlp.EncodeToBytes(val)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	if err := g.db.Put(key, raw); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	g.touch(key)
	return nil
}

// Delete removes the entry at [key] along with its TTL record.
func (g *Gateway) Delete(key []byte) error {
	if err := g.db.Delete(key); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return g.ttl.Delete(key)
}

// Has reports whether an entry exists at [key].
func (g *Gateway) Has(key []byte) (bool, error) {
	ok, err := g.db.Has(key)
	if err != nil {
		return false, fmt.Errorf("checking %q: %w", key, err)
	}
	return ok, nil
}

// touch extends the TTL of a durable entry to the user bump window past
// the current ledger. TTL records ride the overlay to commit with the rest
// of the invocation.
func (g *Gateway) touch(key []byte) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, g.host.seq+params.LedgerBumpUser)
	_ = g.ttl.Put(key, buf)
}

// Key assembles a storage key from a domain tag and its parts.
func Key(tag string, parts ...[]byte) []byte {
	k := []byte(tag)
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}
