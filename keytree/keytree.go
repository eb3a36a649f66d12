// Package keytree implements §4.1 KeyTree: deterministic derivation of a
// tree of private/public key pairs from a seed, following BIP-32 node
// arithmetic exactly as the teacher's wallet/keys.go does via
// btcsuite/btcd/btcutil/hdkeychain, generalized from the teacher's
// BIP84/BIP86-only derivation to the full §3 DerivationPath table
// (purposes 44', 49', 84', 48').
package keytree

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"

	"github.com/shieldwallet/walletcore/extpubkey"
	"github.com/shieldwallet/walletcore/wallettypes"
)

// SeedLength is the byte length of a master seed (§3 Seed: "64-byte
// value").
const SeedLength = 64

// chainParams returns the chaincfg.Params the hdkeychain package needs
// for version-byte selection. KeyTree never surfaces these version bytes
// directly — AddressCodec and ExtPubKey own prefix normalization — but
// hdkeychain requires a *chaincfg.Params to construct a master node.
func chainParams(network wallettypes.Network) *chaincfg.Params {
	if network == wallettypes.Testnet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// SeedFromMnemonic stretches a 12- or 24-word BIP-39 mnemonic phrase plus
// an optional passphrase into a 64-byte seed via 2048 rounds of
// HMAC-SHA-512, per §3 Seed. The mnemonic's checksum is validated first.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, wallettypes.New(wallettypes.KindInvalidSeed, "mnemonic failed BIP-39 checksum validation")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	if len(seed) != SeedLength {
		return nil, wallettypes.New(wallettypes.KindInvalidSeed, "derived seed length %d, want %d", len(seed), SeedLength)
	}
	return seed, nil
}

// NewMnemonic generates a fresh 12-word (128-bit entropy) mnemonic phrase
// suitable for wallet creation.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", wallettypes.Wrap(wallettypes.KindInvalidSeed, err, "failed to generate entropy")
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", wallettypes.Wrap(wallettypes.KindInvalidSeed, err, "failed to encode mnemonic")
	}
	return mnemonic, nil
}

// Node is a single point in the derivation tree: a chain code, a
// compressed public key, optionally a private scalar, a depth, a parent
// fingerprint and a child index (§3 MasterNode/ChildNode).
type Node struct {
	key     *hdkeychain.ExtendedKey
	network wallettypes.Network
}

// IsPrivate reports whether this node carries private material.
func (n *Node) IsPrivate() bool { return n.key.IsPrivate() }

// Depth is this node's distance from the master (0 = master).
func (n *Node) Depth() uint8 { return n.key.Depth() }

// ParentFingerprint is the first 4 bytes of HASH160 of the parent's
// compressed public key.
func (n *Node) ParentFingerprint() uint32 { return n.key.ParentFingerprint() }

// ChildIndex is this node's index, with the high bit set iff it was
// derived hardened.
func (n *Node) ChildIndex() uint32 { return n.key.ChildIndex() }

// ECPrivKey returns the 32-byte private scalar. Returns
// PrivateKeyRejected if this node holds only public material.
func (n *Node) ECPrivKey() (*btcec.PrivateKey, error) {
	if !n.key.IsPrivate() {
		return nil, wallettypes.New(wallettypes.KindPrivateKeyRejected, "node at depth %d has no private material", n.key.Depth())
	}
	priv, err := n.key.ECPrivKey()
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindPrivateKeyRejected, err, "failed to materialize private key")
	}
	return priv, nil
}

// ECPubKey returns the compressed public key.
func (n *Node) ECPubKey() (*btcec.PublicKey, error) {
	pub, err := n.key.ECPubKey()
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidPath, err, "failed to materialize public key")
	}
	return pub, nil
}

// Neuter returns the public projection of this node: a new Node carrying
// only the chain code and compressed public key.
func (n *Node) Neuter() (*Node, error) {
	pub, err := n.key.Neuter()
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidPath, err, "failed to neuter node")
	}
	return &Node{key: pub, network: n.network}, nil
}

// Zero overwrites the node's private scalar in place, per the DESIGN
// NOTES zeroization requirement: private material must never outlive its
// owning scope.
func (n *Node) Zero() { n.key.Zero() }

// ExtendedKey exposes the underlying hdkeychain node for components
// (extpubkey, addresscodec) that need btcsuite's native type — e.g. to
// call String() with specific version bytes. Kept unexported-package
// internal by convention: callers outside keytree should prefer the
// typed accessors above.
func (n *Node) ExtendedKey() *hdkeychain.ExtendedKey { return n.key }

// Network is the network this node was derived under.
func (n *Node) Network() wallettypes.Network { return n.network }

// KeyTree derives a tree of keys from a single seed (§4.1).
type KeyTree struct {
	master  *Node
	network wallettypes.Network
}

// FromSeed computes the master private scalar and chain code as the two
// halves of HMAC-SHA-512 over the seed under the key "Bitcoin seed"
// (§4.1 from_seed). Fails with InvalidSeed if the derived scalar is zero
// or >= the secp256k1 group order — hdkeychain.NewMaster performs this
// check internally.
func FromSeed(seed []byte, network wallettypes.Network) (*KeyTree, error) {
	master, err := hdkeychain.NewMaster(seed, chainParams(network))
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidSeed, err, "failed to derive master node")
	}
	return &KeyTree{
		master:  &Node{key: master, network: network},
		network: network,
	}, nil
}

// Master returns the tree's root node.
func (t *KeyTree) Master() *Node { return t.master }

// Network is the network this tree was derived under.
func (t *KeyTree) Network() wallettypes.Network { return t.network }

// Derive applies a single BIP-32 derivation step (§4.1 derive). Hardened
// steps require private material on node; unhardened steps accept
// either. A child scalar that would be invalid (probability ≈ 2^-127)
// surfaces as an error rather than being retried, per §4.1's guarantee
// that callers never encounter this in practice.
func Derive(node *Node, index uint32, hardened bool) (*Node, error) {
	if hardened && !node.IsPrivate() {
		return nil, wallettypes.New(wallettypes.KindPrivateKeyRejected,
			"hardened derivation at index %d requires private material", index)
	}
	childIndex := index
	if hardened {
		childIndex = hdkeychain.HardenedKeyStart + index
	}
	child, err := node.key.Derive(childIndex)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidPath, err, "derivation failed at index %d (hardened=%v)", index, hardened)
	}
	return &Node{key: child, network: node.network}, nil
}

// DerivePath applies each step of path in order, starting from the tree's
// master node (§4.1 derive_path).
func (t *KeyTree) DerivePath(path wallettypes.DerivationPath) (*Node, error) {
	return DerivePathFrom(t.master, path)
}

// DerivePathFrom applies each step of path in order, starting from an
// arbitrary node — used to derive account-relative chain/index nodes
// from an account node obtained separately (e.g. from an ExtPubKey).
func DerivePathFrom(node *Node, path wallettypes.DerivationPath) (*Node, error) {
	current := node
	for i, step := range path {
		next, err := Derive(current, step.Index, step.Hardened)
		if err != nil {
			return nil, wallettypes.Wrap(wallettypes.KindInvalidPath, err, "derivation failed at path step %d", i)
		}
		current = next
	}
	return current, nil
}

// AccountPath builds the hardened m/purpose'/coin'/account' path for a
// single-key script type, per the §3 DerivationPath table.
func AccountPath(network wallettypes.Network, st wallettypes.ScriptType, account uint32) (wallettypes.DerivationPath, error) {
	purpose, ok := st.Purpose()
	if !ok || st.IsMultisig() {
		return nil, wallettypes.New(wallettypes.KindInvalidPath, "script type %s has no single-key account path", st)
	}
	return wallettypes.DerivationPath{
		{Index: purpose, Hardened: true},
		{Index: network.CoinType(), Hardened: true},
		{Index: account, Hardened: true},
	}, nil
}

// MultisigAccountPath builds the hardened m/48'/coin'/account'/script'
// path for a multi-key script type, where script is 1' for P2SH-wrapped
// forms and 2' for witness forms (§3 DerivationPath table: `s' ∈
// {1',2'}`).
func MultisigAccountPath(network wallettypes.Network, st wallettypes.ScriptType, account uint32) (wallettypes.DerivationPath, error) {
	var scriptIndex uint32
	switch st {
	case wallettypes.P2SHMultisig:
		scriptIndex = 1
	case wallettypes.P2SHP2WSHMultisig, wallettypes.P2WSHMultisig:
		scriptIndex = 2
	default:
		return nil, wallettypes.New(wallettypes.KindInvalidPath, "script type %s is not a multisig type", st)
	}
	return wallettypes.DerivationPath{
		{Index: 48, Hardened: true},
		{Index: network.CoinType(), Hardened: true},
		{Index: account, Hardened: true},
		{Index: scriptIndex, Hardened: true},
	}, nil
}

// AddressPath builds the unhardened .../{0,1}/i suffix appended to an
// account node to reach a receive (chain=0) or change (chain=1) address
// of the given index.
func AddressPath(chain uint32, index uint32) wallettypes.DerivationPath {
	return wallettypes.DerivationPath{
		{Index: chain, Hardened: false},
		{Index: index, Hardened: false},
	}
}

// DeriveAddressNode derives the full m/.../chain/index node for a
// single-key script type directly from the tree's master.
func (t *KeyTree) DeriveAddressNode(st wallettypes.ScriptType, account, chain, index uint32) (*Node, error) {
	accountPath, err := AccountPath(t.network, st, account)
	if err != nil {
		return nil, err
	}
	full := append(append(wallettypes.DerivationPath{}, accountPath...), AddressPath(chain, index)...)
	return t.DerivePath(full)
}

// AccountXpub derives the account-level node for st (§3 DerivationPath
// table) and returns its public projection encoded under the version
// bytes matching st's single-key or multi-key standard (§4.1
// account_xpub). The returned key is ready to hand to a cosigner or
// store as a watch-only root; it carries no private material.
func (t *KeyTree) AccountXpub(st wallettypes.ScriptType, account uint32) (*extpubkey.ExtPubKey, error) {
	var path wallettypes.DerivationPath
	var err error
	if st.IsMultisig() {
		path, err = MultisigAccountPath(t.network, st, account)
	} else {
		path, err = AccountPath(t.network, st, account)
	}
	if err != nil {
		return nil, err
	}

	node, err := t.DerivePath(path)
	if err != nil {
		return nil, err
	}
	pub, err := node.Neuter()
	if err != nil {
		return nil, err
	}
	encoded, err := extpubkey.Encode(pub.ExtendedKey(), t.network, st)
	if err != nil {
		return nil, err
	}
	return extpubkey.Parse(encoded, t.network, st)
}
