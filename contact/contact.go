// Package contact implements the §3 Contact type: a watch-only payee
// identified by a single ExtPubKey (or, for shared accounts, a
// multisig.MultisigAccount), backed by a gap-limit address cache so
// repeated lookups don't re-derive already-known addresses. The cache's
// locking shape — an RWMutex guarding a lazily-grown slice, with a
// double-checked write path — is grounded on the teacher's cache.go
// WalletCacheManager.GetWalletCache.
package contact

import (
	"sync"

	"github.com/shieldwallet/walletcore/extpubkey"
	"github.com/shieldwallet/walletcore/wallettypes"
)

// addressDeriver is satisfied by both *extpubkey.ExtPubKey and
// *multisig.MultisigAccount, letting Contact back either a single-key
// or a multisig watch-only payee with the same cache logic.
type addressDeriver interface {
	DeriveAddress(chain, index uint32) (*wallettypes.Address, error)
}

// Contact is a watch-only payee whose receive and change addresses can
// be derived and cached on demand, without ever holding private
// material (§3 Contact).
type Contact struct {
	Name   string
	Source addressDeriver

	mu      sync.RWMutex
	receive []wallettypes.Address
	change  []wallettypes.Address
}

// NewContact wraps a single-key watch-only root.
func NewContact(name string, xpub *extpubkey.ExtPubKey) *Contact {
	return &Contact{Name: name, Source: xpub}
}

// NewContactFromSource wraps any addressDeriver, e.g. a multisig
// account shared by several cosigners.
func NewContactFromSource(name string, src addressDeriver) *Contact {
	return &Contact{Name: name, Source: src}
}

// WarmCache pre-derives the initial GapLimitInitial addresses on both
// chains, per §3's cache invariant: "contiguous from index 0, at least
// GapLimitInitial addresses available immediately after creation."
func (c *Contact) WarmCache() error {
	if err := c.ensure(0, wallettypes.GapLimitInitial, &c.receive); err != nil {
		return err
	}
	return c.ensure(1, wallettypes.GapLimitInitial, &c.change)
}

// ExtendCache grows the cached address set on chain (0 = receive, 1 =
// change) to cover at least upTo addresses, capped at GapLimitCeiling —
// a Contact never derives an unbounded number of addresses regardless of
// caller-requested index, which would otherwise let a malicious index
// request force unbounded derivation work.
func (c *Contact) ExtendCache(chain uint32, upTo int) error {
	if upTo > wallettypes.GapLimitCeiling {
		upTo = wallettypes.GapLimitCeiling
	}
	slot := &c.receive
	if chain == 1 {
		slot = &c.change
	}
	return c.ensure(chain, upTo, slot)
}

func (c *Contact) ensure(chain uint32, upTo int, slot *[]wallettypes.Address) error {
	c.mu.RLock()
	have := len(*slot)
	c.mu.RUnlock()
	if have >= upTo {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check after acquiring the write lock: another caller may have
	// already extended the cache while we waited.
	have = len(*slot)
	if have >= upTo {
		return nil
	}
	for i := have; i < upTo; i++ {
		addr, err := c.Source.DeriveAddress(chain, uint32(i))
		if err != nil {
			return err
		}
		*slot = append(*slot, *addr)
	}
	return nil
}

// Address returns the cached address at (chain, index), deriving and
// caching it first if necessary (extending the cache up to index+1,
// bounded by GapLimitCeiling).
func (c *Contact) Address(chain uint32, index int) (*wallettypes.Address, error) {
	if err := c.ExtendCache(chain, index+1); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	slot := c.receive
	if chain == 1 {
		slot = c.change
	}
	if index >= len(slot) {
		return nil, wallettypes.New(wallettypes.KindInvalidPath, "address index %d exceeds gap limit ceiling %d", index, wallettypes.GapLimitCeiling)
	}
	addr := slot[index]
	return &addr, nil
}

// ReceiveAddresses returns a copy of every currently cached receive
// address.
func (c *Contact) ReceiveAddresses() []wallettypes.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]wallettypes.Address, len(c.receive))
	copy(out, c.receive)
	return out
}
