// Package multisig implements the §3 Cosigner and MultisigAccount data
// types: a fixed set of cosigner extended public keys plus a threshold,
// and the derivation of a stable M-of-N address at any chain/index pair.
// It is grounded on the brewgator multisig reference
// (internal/multisig/multisig.go)'s MultisigService.DeriveAddress, which
// derives each cosigner's child pubkey independently and sorts them
// before building the redeem script.
package multisig

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/shieldwallet/walletcore/addresscodec"
	"github.com/shieldwallet/walletcore/extpubkey"
	"github.com/shieldwallet/walletcore/wallettypes"
)

// Cosigner is one participant's watch-only root in a MultisigAccount
// (§3 Cosigner).
type Cosigner struct {
	Xpub *extpubkey.ExtPubKey
}

// MultisigAccount is a fixed set of cosigners and a signing threshold
// (§3 MultisigAccount). All cosigners must share the same network and
// depth; construction fails otherwise.
type MultisigAccount struct {
	ScriptType wallettypes.ScriptType
	Network    wallettypes.Network
	M          int
	Cosigners  []Cosigner
}

// NewMultisigAccount validates that every cosigner's xpub agrees on
// network and depth, and that M/N fall inside the §6.3 bounds, before
// constructing the account.
func NewMultisigAccount(st wallettypes.ScriptType, network wallettypes.Network, m int, cosigners []Cosigner) (*MultisigAccount, error) {
	if !st.IsMultisig() {
		return nil, wallettypes.New(wallettypes.KindMultisigParamMismatch, "script type %s is not a multisig type", st)
	}
	n := len(cosigners)
	if m < wallettypes.MinMultisigM || m > n || n > wallettypes.MaxMultisigN {
		return nil, wallettypes.New(wallettypes.KindMultisigParamMismatch, "invalid M-of-N: %d-of-%d", m, n)
	}
	depth := cosigners[0].Xpub.Depth()
	for i, c := range cosigners {
		if c.Xpub.Network() != network {
			return nil, wallettypes.New(wallettypes.KindNetworkMismatch, "cosigner %d is on network %s, account is %s", i, c.Xpub.Network(), network)
		}
		if c.Xpub.Depth() != depth {
			return nil, wallettypes.New(wallettypes.KindDepthMismatch, "cosigner %d is at depth %d, expected %d", i, c.Xpub.Depth(), depth)
		}
	}
	return &MultisigAccount{ScriptType: st, Network: network, M: m, Cosigners: cosigners}, nil
}

// N is the total number of cosigners.
func (a *MultisigAccount) N() int { return len(a.Cosigners) }

// DeriveAddress derives the chain/index child of every cosigner
// independently and builds the shared M-of-N address from their sorted
// public keys (§3 MultisigAccount, §4.2 encode's multisig branch). Any
// two cosigners deriving the same chain/index pair from the same set of
// xpubs always agree on the resulting address, since AddressCodec sorts
// the keys before building the script.
func (a *MultisigAccount) DeriveAddress(chain, index uint32) (*wallettypes.Address, error) {
	pubKeys := make([]*btcec.PublicKey, 0, len(a.Cosigners))
	for i, c := range a.Cosigners {
		child, err := c.Xpub.ExtendedKey().Derive(chain)
		if err != nil {
			return nil, wallettypes.Wrap(wallettypes.KindInvalidPath, err, "cosigner %d: failed to derive chain %d", i, chain)
		}
		leaf, err := child.Derive(index)
		if err != nil {
			return nil, wallettypes.Wrap(wallettypes.KindInvalidPath, err, "cosigner %d: failed to derive index %d", i, index)
		}
		pub, err := leaf.ECPubKey()
		if err != nil {
			return nil, wallettypes.Wrap(wallettypes.KindInvalidPath, err, "cosigner %d: failed to materialize public key", i)
		}
		pubKeys = append(pubKeys, pub)
	}

	addr, err := addresscodec.EncodeMultisig(a.Network, a.ScriptType, a.M, pubKeys)
	if err != nil {
		return nil, err
	}
	addr.Path = wallettypes.DerivationPath{
		{Index: chain, Hardened: false},
		{Index: index, Hardened: false},
	}
	addr.AddressIndex = index
	addr.HasPath = true
	return addr, nil
}
