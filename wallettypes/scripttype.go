package wallettypes

import "fmt"

// ScriptType is the tagged union over the six script forms this core
// understands (§3 ScriptType). Dispatch on ScriptType is always a closed
// switch — never a runtime string comparison — per the DESIGN NOTES
// "dynamic script-type dispatch" redesign.
type ScriptType int

const (
	// P2PKH is legacy pay-to-pubkey-hash, BIP44 (m/44').
	P2PKH ScriptType = iota
	// P2SHP2WPKH is wrapped native segwit, BIP49 (m/49').
	P2SHP2WPKH
	// P2WPKH is native segwit, BIP84 (m/84').
	P2WPKH
	// P2SHMultisig is bare multisig wrapped in P2SH, BIP48 purpose 1'.
	P2SHMultisig
	// P2SHP2WSHMultisig is witness multisig wrapped in P2SH, BIP48 purpose 2' nested.
	P2SHP2WSHMultisig
	// P2WSHMultisig is native witness multisig, BIP48 purpose 2'.
	P2WSHMultisig
	// P2TR is Taproot key-path spending (BIP86). Not part of any [MODULE]
	// contract — kept as a documented extension point per SPEC_FULL.md's
	// supplemented-features note, since the teacher already exercises it.
	P2TR
)

func (s ScriptType) String() string {
	switch s {
	case P2PKH:
		return "P2PKH"
	case P2SHP2WPKH:
		return "P2SH-P2WPKH"
	case P2WPKH:
		return "P2WPKH"
	case P2SHMultisig:
		return "P2SH-multisig"
	case P2SHP2WSHMultisig:
		return "P2SH-P2WSH-multisig"
	case P2WSHMultisig:
		return "P2WSH-multisig"
	case P2TR:
		return "P2TR"
	default:
		return fmt.Sprintf("ScriptType(%d)", int(s))
	}
}

// IsMultisig reports whether the script type is one of the three
// multi-key forms.
func (s ScriptType) IsMultisig() bool {
	switch s {
	case P2SHMultisig, P2SHP2WSHMultisig, P2WSHMultisig:
		return true
	default:
		return false
	}
}

// IsWitness reports whether spending this script type produces a witness
// stack (as opposed to, or in addition to, a legacy signature script).
func (s ScriptType) IsWitness() bool {
	switch s {
	case P2WPKH, P2SHP2WPKH, P2WSHMultisig, P2SHP2WSHMultisig, P2TR:
		return true
	default:
		return false
	}
}

// Purpose is the BIP32 hardened purpose level associated with each
// single-key script type (§3 DerivationPath table). Multisig script types
// all use purpose 48'; callers distinguish them via the script field
// ('1 or '2) in the path, not via Purpose.
func (s ScriptType) Purpose() (uint32, bool) {
	switch s {
	case P2PKH:
		return 44, true
	case P2SHP2WPKH:
		return 49, true
	case P2WPKH:
		return 84, true
	case P2TR:
		return 86, true
	case P2SHMultisig, P2SHP2WSHMultisig, P2WSHMultisig:
		return 48, true
	default:
		return 0, false
	}
}

// Network is the two-network parameter the core treats as data, per §1's
// Non-goals ("mainnet-only restrictions... network as a parameter").
type Network int

const (
	Mainnet Network = iota
	Testnet
)

func (n Network) String() string {
	if n == Testnet {
		return "testnet"
	}
	return "mainnet"
}

// CoinType is the BIP44 coin-type index for this network (§3 DerivationPath: c).
func (n Network) CoinType() uint32 {
	if n == Testnet {
		return 1
	}
	return 0
}

// Bech32HRP is the human-readable prefix used for native-segwit addresses.
func (n Network) Bech32HRP() string {
	if n == Testnet {
		return "tb"
	}
	return "bc"
}
