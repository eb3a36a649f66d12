package extpubkey

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	"github.com/shieldwallet/walletcore/wallettypes"
)

// ExtPubKey is a parsed, normalized extended public key accepted as a
// watch-only root (§4.3 ExtPubKey, §3 Contact). It never carries private
// material: Parse rejects any recognized private-key prefix outright.
type ExtPubKey struct {
	raw        string
	normalized string
	network    wallettypes.Network
	purpose    uint32
	scriptType wallettypes.ScriptType
	depth      uint8
	fingerprint uint32
	childIndex uint32
	key        *hdkeychain.ExtendedKey
}

// Raw is the exact string Parse was given.
func (k *ExtPubKey) Raw() string { return k.raw }

// Normalized is k re-encoded under the network's standard xpub/tpub
// version bytes, the form handed to the derivation core (DESIGN NOTES:
// "always rewrite to the standard prefix before handing to the
// derivation core; keep the original for UX display").
func (k *ExtPubKey) Normalized() string { return k.normalized }

func (k *ExtPubKey) Network() wallettypes.Network    { return k.network }
func (k *ExtPubKey) ScriptType() wallettypes.ScriptType { return k.scriptType }
func (k *ExtPubKey) Depth() uint8                    { return k.depth }
func (k *ExtPubKey) Fingerprint() uint32              { return k.fingerprint }
func (k *ExtPubKey) ChildIndex() uint32               { return k.childIndex }

// ExtendedKey exposes the underlying hdkeychain node for components that
// need to derive children from it (multisig.MultisigAccount.DeriveAddress).
func (k *ExtPubKey) ExtendedKey() *hdkeychain.ExtendedKey { return k.key }

// ECPubKey returns this node's compressed public key.
func (k *ExtPubKey) ECPubKey() (*btcec.PublicKey, error) {
	pub, err := k.key.ECPubKey()
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidXpub, err, "failed to materialize public key")
	}
	return pub, nil
}

// Parse decodes an extended public key string, verifying its network
// against expectedNetwork and rejecting private-key prefixes outright
// (§4.3 parse: "Rejects private-key prefixes"). When the decoded version
// bytes are shared between two recognized script types (currently only
// the plain xpub/tpub prefix, shared between P2PKH and P2SH-multisig —
// see versionTable's comment), hint selects which one the caller means;
// hint is ignored for every unambiguous prefix.
func Parse(s string, expectedNetwork wallettypes.Network, hint ...wallettypes.ScriptType) (*ExtPubKey, error) {
	version, payload, err := decodeBase58Check(s)
	if err != nil {
		return nil, err
	}
	candidates := candidatesFor(version)
	if len(candidates) == 0 {
		return nil, wallettypes.New(wallettypes.KindUnsupportedPrefix, "version bytes %x are not a recognized extended-key prefix", version[:])
	}

	entry := candidates[0]
	if len(candidates) > 1 {
		entry, err = disambiguate(candidates, hint)
		if err != nil {
			return nil, err
		}
	}

	if entry.private {
		return nil, wallettypes.New(wallettypes.KindPrivateKeyRejected, "refusing to parse a private extended key as watch-only")
	}
	if entry.network != expectedNetwork {
		return nil, wallettypes.New(wallettypes.KindNetworkMismatch,
			"key is %s, expected %s", entry.network, expectedNetwork).
			WithFields(map[string]any{"got": entry.network.String(), "want": expectedNetwork.String()})
	}
	if len(payload) != 74 {
		return nil, wallettypes.New(wallettypes.KindInvalidXpub, "payload length %d, want 74", len(payload))
	}

	depth := payload[0]
	fingerprint := binary.BigEndian.Uint32(payload[1:5])
	childIndex := binary.BigEndian.Uint32(payload[5:9])
	keyData := payload[41:74]
	if keyData[0] != 0x02 && keyData[0] != 0x03 {
		return nil, wallettypes.New(wallettypes.KindInvalidXpub, "key material is not a compressed public key")
	}
	if _, err := btcec.ParsePubKey(keyData); err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidXpub, err, "key material is not a valid secp256k1 point")
	}

	normalized := encodeBase58Check(standardVersionFor(entry.network), payload)
	key, err := hdkeychain.NewKeyFromString(normalized)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidXpub, err, "failed to materialize normalized key")
	}

	return &ExtPubKey{
		raw:         s,
		normalized:  normalized,
		network:     entry.network,
		purpose:     entry.purpose,
		scriptType:  entry.scriptType,
		depth:       depth,
		fingerprint: fingerprint,
		childIndex:  childIndex,
		key:         key,
	}, nil
}

// Encode serializes a neutered (public-only) extended key under the
// version-byte prefix appropriate for scriptType and network — the
// producer side of Parse, used by keytree's account_xpub (§4.1) to
// return a purpose-correct zpub/Zpub/ypub/Ypub/xpub/Upub/etc. rather
// than the generic xpub/tpub hdkeychain.ExtendedKey.String() always
// emits. neutered must carry no private material; depth, parent
// fingerprint, child index, chain code and public key are taken from it
// unchanged, exactly as the DESIGN NOTES "rewrite to the standard
// prefix" rule rewrites Parse's normalized form.
func Encode(neutered *hdkeychain.ExtendedKey, network wallettypes.Network, scriptType wallettypes.ScriptType) (string, error) {
	if neutered.IsPrivate() {
		return "", wallettypes.New(wallettypes.KindPrivateKeyRejected, "refusing to encode a private extended key as a public one")
	}
	version, err := versionFor(network, scriptType)
	if err != nil {
		return "", err
	}
	rekeyed, err := neutered.CloneWithVersion(version[:])
	if err != nil {
		return "", wallettypes.Wrap(wallettypes.KindInvalidXpub, err, "failed to rewrite version bytes for %s on %s", scriptType, network)
	}
	return rekeyed.String(), nil
}

// RequireDepth fails with DepthMismatch unless k sits at exactly the
// expected tree depth — callers use this to reject, e.g., a master key
// offered where an account-level xpub was required.
func (k *ExtPubKey) RequireDepth(want uint8) error {
	if k.depth != want {
		return wallettypes.New(wallettypes.KindDepthMismatch, "key is at depth %d, want %d", k.depth, want).
			WithFields(map[string]any{"got": k.depth, "want": want})
	}
	return nil
}

// disambiguate resolves a version-byte collision between multiple
// registered purposes. SLIP-0132 defines no distinct prefix for bare
// (non-segwit) P2SH multisig, so the plain xpub/tpub version bytes are
// registered for both P2PKH and P2SH-multisig; with no hint, that case
// defaults to P2PKH, the overwhelmingly common real-world reading of a
// bare xpub/tpub and the same assumption the teacher's own
// convertToSlip132 made by only ever handling the single-key case.
func disambiguate(candidates []versionEntry, hint []wallettypes.ScriptType) (versionEntry, error) {
	if len(hint) == 0 {
		for _, c := range candidates {
			if c.scriptType == wallettypes.P2PKH {
				return c, nil
			}
		}
		return versionEntry{}, wallettypes.New(wallettypes.KindUnsupportedPrefix,
			"version bytes are shared by multiple script types with no P2PKH default; a script-type hint is required to disambiguate")
	}
	want := hint[0]
	for _, c := range candidates {
		if c.scriptType == want {
			return c, nil
		}
	}
	return versionEntry{}, wallettypes.New(wallettypes.KindUnsupportedPrefix,
		"version bytes do not correspond to requested script type %s", want)
}
