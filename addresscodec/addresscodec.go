// Package addresscodec implements §4.2 AddressCodec: deterministic,
// pure conversion between a locking script (or the public key material
// that produces one) and its human-facing encoded address string, for
// all six script types the core understands. It is grounded on the
// teacher's wallet/address.go, generalized from that file's
// P2WPKH/P2TR-only encode functions to the full §3 ScriptType set, and
// on the brewgator multisig reference for redeem/witness script
// construction.
package addresscodec

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/shieldwallet/walletcore/wallettypes"
)

func chainParams(network wallettypes.Network) *chaincfg.Params {
	if network == wallettypes.Testnet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// Encode builds the address for a single-key script type from a
// compressed public key (§4.2 encode, single-key branch). Multisig
// script types must go through EncodeMultisig instead.
func Encode(network wallettypes.Network, st wallettypes.ScriptType, pubKey *btcec.PublicKey) (*wallettypes.Address, error) {
	if st.IsMultisig() {
		return nil, wallettypes.New(wallettypes.KindInvalidAddress, "script type %s requires EncodeMultisig", st)
	}
	params := chainParams(network)
	pkHash := btcutil.Hash160(pubKey.SerializeCompressed())

	var addr btcutil.Address
	var err error
	var redeemScript []byte

	switch st {
	case wallettypes.P2PKH:
		addr, err = btcutil.NewAddressPubKeyHash(pkHash, params)
	case wallettypes.P2WPKH:
		addr, err = btcutil.NewAddressWitnessPubKeyHash(pkHash, params)
	case wallettypes.P2SHP2WPKH:
		witnessAddr, werr := btcutil.NewAddressWitnessPubKeyHash(pkHash, params)
		if werr != nil {
			return nil, wallettypes.Wrap(wallettypes.KindInvalidAddress, werr, "failed to build inner witness address")
		}
		redeemScript, err = txscript.PayToAddrScript(witnessAddr)
		if err != nil {
			break
		}
		addr, err = btcutil.NewAddressScriptHash(redeemScript, params)
	case wallettypes.P2TR:
		tweaked := txscript.ComputeTaprootKeyNoScript(pubKey)
		addr, err = btcutil.NewAddressTaproot(tweaked.SerializeCompressed()[1:], params)
	default:
		return nil, wallettypes.New(wallettypes.KindInvalidAddress, "unsupported single-key script type %s", st)
	}
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidAddress, err, "failed to build %s address", st)
	}

	scriptPubKey, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidAddress, err, "failed to build scriptPubKey")
	}

	return &wallettypes.Address{
		Encoded:      addr.EncodeAddress(),
		Network:      network,
		ScriptType:   st,
		ScriptPubKey: scriptPubKey,
		RedeemScript: redeemScript,
	}, nil
}

// Decode parses an encoded address string, classifies its script type
// and recovers its scriptPubKey (§4.2 decode). It never succeeds against
// an address encoded for the wrong network.
func Decode(encoded string, network wallettypes.Network) (*wallettypes.Address, error) {
	params := chainParams(network)
	addr, err := btcutil.DecodeAddress(encoded, params)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidAddress, err, "failed to decode address")
	}
	if !addr.IsForNet(params) {
		return nil, wallettypes.New(wallettypes.KindNetworkMismatch, "address %s is not valid for %s", encoded, network)
	}

	scriptPubKey, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidAddress, err, "failed to build scriptPubKey")
	}

	st, err := classify(addr)
	if err != nil {
		return nil, err
	}

	return &wallettypes.Address{
		Encoded:      addr.EncodeAddress(),
		Network:      network,
		ScriptType:   st,
		ScriptPubKey: scriptPubKey,
	}, nil
}

// classify determines the ScriptType the decoded address's concrete type
// implies. P2SH addresses are structurally ambiguous between
// P2SH-P2WPKH, P2SH-multisig and P2SH-P2WSH-multisig, and every P2SH
// address is reported as P2SH-P2WPKH; likewise every P2WSH address is
// reported as P2WSH-multisig. Callers that know which
// redeem script produced the address should prefer ScriptPubKeyFor plus
// their own redeem script rather than relying on this classification.
func classify(addr btcutil.Address) (wallettypes.ScriptType, error) {
	switch addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return wallettypes.P2PKH, nil
	case *btcutil.AddressWitnessPubKeyHash:
		return wallettypes.P2WPKH, nil
	case *btcutil.AddressWitnessScriptHash:
		return wallettypes.P2WSHMultisig, nil
	case *btcutil.AddressScriptHash:
		return wallettypes.P2SHP2WPKH, nil
	case *btcutil.AddressTaproot:
		return wallettypes.P2TR, nil
	default:
		return 0, wallettypes.New(wallettypes.KindInvalidAddress, "unrecognized address type %T", addr)
	}
}

// ScriptPubKeyFor returns the locking script for an already-decoded
// address, for callers (txassembler) that hold a btcutil.Address
// obtained some other way (e.g. from a PSBT output).
func ScriptPubKeyFor(addr btcutil.Address) ([]byte, error) {
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidAddress, err, "failed to build scriptPubKey")
	}
	return script, nil
}
