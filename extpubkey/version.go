package extpubkey

import "github.com/shieldwallet/walletcore/wallettypes"

// versionEntry describes one of the twelve recognized extended-public-key
// prefixes (§4.3 parse, §6.2 "Recognized version bytes are those
// standardized for purposes 44/49/84 and for BIP-48 multisig, separately
// for each network"). version is the 4-byte value that appears
// base58-check-encoded at the head of the key.
type versionEntry struct {
	version    [4]byte
	network    wallettypes.Network
	purpose    uint32
	scriptType wallettypes.ScriptType
	private    bool
}

// xpubVersion and tpubVersion are the canonical single-key version bytes
// every parsed key is normalized to before being handed to the derivation
// core (DESIGN NOTES: "always rewrite to the standard prefix before
// handing to the derivation core; keep the original for UX display").
var (
	xpubVersion = [4]byte{0x04, 0x88, 0xB2, 0x1E}
	xprvVersion = [4]byte{0x04, 0x88, 0xAD, 0xE4}
	tpubVersion = [4]byte{0x04, 0x35, 0x87, 0xCF}
	tprvVersion = [4]byte{0x04, 0x35, 0x83, 0x94}
)

// versionTable lists every prefix parse() recognizes. Two entries
// (P2PKH and P2SH-multisig, on each network) intentionally share
// identical version bytes: SLIP-0132 defines no distinct prefix for bare
// legacy multisig, which historically reuses the plain xpub/tpub prefix.
// parse() disambiguates those two using the caller-supplied expected
// script type (see Parse's hint parameter) — this is the Open Question
// resolution recorded in DESIGN.md.
var versionTable = []versionEntry{
	// Mainnet, public.
	{xpubVersion, wallettypes.Mainnet, 44, wallettypes.P2PKH, false},
	{[4]byte{0x04, 0x9D, 0x7C, 0xB2}, wallettypes.Mainnet, 49, wallettypes.P2SHP2WPKH, false}, // ypub
	{[4]byte{0x04, 0xB2, 0x47, 0x46}, wallettypes.Mainnet, 84, wallettypes.P2WPKH, false},     // zpub
	{xpubVersion, wallettypes.Mainnet, 48, wallettypes.P2SHMultisig, false},
	{[4]byte{0x02, 0x95, 0xB4, 0x3F}, wallettypes.Mainnet, 48, wallettypes.P2SHP2WSHMultisig, false}, // Ypub
	{[4]byte{0x02, 0xAA, 0x7E, 0xD3}, wallettypes.Mainnet, 48, wallettypes.P2WSHMultisig, false},     // Zpub

	// Mainnet, private (recognized only to be rejected with PrivateKeyRejected).
	{xprvVersion, wallettypes.Mainnet, 44, wallettypes.P2PKH, true},
	{[4]byte{0x04, 0x9D, 0x78, 0x78}, wallettypes.Mainnet, 49, wallettypes.P2SHP2WPKH, true}, // yprv
	{[4]byte{0x04, 0xB2, 0x43, 0x0C}, wallettypes.Mainnet, 84, wallettypes.P2WPKH, true},     // zprv
	{xprvVersion, wallettypes.Mainnet, 48, wallettypes.P2SHMultisig, true},
	{[4]byte{0x02, 0x95, 0xB0, 0x05}, wallettypes.Mainnet, 48, wallettypes.P2SHP2WSHMultisig, true}, // Yprv
	{[4]byte{0x02, 0xAA, 0x7A, 0x99}, wallettypes.Mainnet, 48, wallettypes.P2WSHMultisig, true},     // Zprv

	// Testnet, public.
	{tpubVersion, wallettypes.Testnet, 44, wallettypes.P2PKH, false},
	{[4]byte{0x04, 0x4A, 0x52, 0x62}, wallettypes.Testnet, 49, wallettypes.P2SHP2WPKH, false}, // upub
	{[4]byte{0x04, 0x5F, 0x1C, 0xF6}, wallettypes.Testnet, 84, wallettypes.P2WPKH, false},     // vpub
	{tpubVersion, wallettypes.Testnet, 48, wallettypes.P2SHMultisig, false},
	{[4]byte{0x02, 0x42, 0x89, 0xEF}, wallettypes.Testnet, 48, wallettypes.P2SHP2WSHMultisig, false}, // Upub
	{[4]byte{0x02, 0x57, 0x54, 0x83}, wallettypes.Testnet, 48, wallettypes.P2WSHMultisig, false},     // Vpub

	// Testnet, private.
	{tprvVersion, wallettypes.Testnet, 44, wallettypes.P2PKH, true},
	{[4]byte{0x04, 0x4A, 0x4E, 0x28}, wallettypes.Testnet, 49, wallettypes.P2SHP2WPKH, true}, // uprv
	{[4]byte{0x04, 0x5F, 0x18, 0xBC}, wallettypes.Testnet, 84, wallettypes.P2WPKH, true},     // vprv
	{tprvVersion, wallettypes.Testnet, 48, wallettypes.P2SHMultisig, true},
	{[4]byte{0x02, 0x42, 0x85, 0xB5}, wallettypes.Testnet, 48, wallettypes.P2SHP2WSHMultisig, true}, // Uprv
	{[4]byte{0x02, 0x57, 0x50, 0x48}, wallettypes.Testnet, 48, wallettypes.P2WSHMultisig, true},     // Vprv
}

// candidatesFor returns every versionEntry matching the given 4-byte
// version prefix. Most prefixes resolve to exactly one candidate; the
// plain xpub/tpub prefixes resolve to two (P2PKH and P2SH-multisig).
func candidatesFor(version [4]byte) []versionEntry {
	var out []versionEntry
	for _, e := range versionTable {
		if e.version == version {
			out = append(out, e)
		}
	}
	return out
}

// standardVersionFor returns the canonical public-key version bytes for
// network, used to normalize any recognized prefix before handing the
// key to the derivation core.
func standardVersionFor(network wallettypes.Network) [4]byte {
	if network == wallettypes.Testnet {
		return tpubVersion
	}
	return xpubVersion
}

// versionFor returns the public version bytes registered for the given
// network/scriptType pair — the producer-side counterpart to parse's
// candidatesFor/disambiguate, used by account_xpub (§4.1) to encode an
// account node under the prefix matching the standard the caller asked
// for (e.g. zpub for P2WPKH, Zpub for P2WSH-multisig).
func versionFor(network wallettypes.Network, scriptType wallettypes.ScriptType) ([4]byte, error) {
	for _, e := range versionTable {
		if !e.private && e.network == network && e.scriptType == scriptType {
			return e.version, nil
		}
	}
	return [4]byte{}, wallettypes.New(wallettypes.KindUnsupportedPrefix,
		"no recognized public version bytes for %s on %s", scriptType, network)
}
