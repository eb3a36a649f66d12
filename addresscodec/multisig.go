package addresscodec

import (
	"bytes"
	"crypto/sha256"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/shieldwallet/walletcore/wallettypes"
)

// SortPubKeys returns a new slice holding pubKeys ordered by ascending
// compressed-serialization byte value (BIP-67 lexicographic ordering).
// Every multisig script this core builds uses sorted keys so that M
// cosigners independently constructing the same script from the same
// set of account xpubs always agree on its bytes, grounded on the
// brewgator multisig reference's sort.Slice/bytes.Compare approach.
func SortPubKeys(pubKeys []*btcec.PublicKey) []*btcec.PublicKey {
	sorted := make([]*btcec.PublicKey, len(pubKeys))
	copy(sorted, pubKeys)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].SerializeCompressed(), sorted[j].SerializeCompressed()) < 0
	})
	return sorted
}

// multisigScript builds the M-of-N OP_CHECKMULTISIG redeem/witness
// script from pubKeys already in their final (sorted) order. params only
// controls how btcutil.AddressPubKey would encode as a string; it has no
// bearing on the script bytes MultiSigScript produces.
func multisigScript(m int, pubKeys []*btcec.PublicKey, params *chaincfg.Params) ([]byte, error) {
	addrPubKeys := make([]*btcutil.AddressPubKey, 0, len(pubKeys))
	for _, pk := range pubKeys {
		addrPubKey, err := btcutil.NewAddressPubKey(pk.SerializeCompressed(), params)
		if err != nil {
			return nil, err
		}
		addrPubKeys = append(addrPubKeys, addrPubKey)
	}
	return txscript.MultiSigScript(addrPubKeys, m)
}

// EncodeMultisig builds the redeem/witness script and address for an
// M-of-N multisig script type from the cosigners' pubkeys (already
// derived to the intended address index), per §4.2 encode's multisig
// branch and §3 Cosigner/MultisigAccount. pubKeys is sorted internally;
// callers need not pre-sort.
func EncodeMultisig(network wallettypes.Network, st wallettypes.ScriptType, m int, pubKeys []*btcec.PublicKey) (*wallettypes.Address, error) {
	if !st.IsMultisig() {
		return nil, wallettypes.New(wallettypes.KindInvalidAddress, "script type %s is not a multisig type", st)
	}
	n := len(pubKeys)
	if m < wallettypes.MinMultisigM || m > n || n > wallettypes.MaxMultisigN {
		return nil, wallettypes.New(wallettypes.KindMultisigParamMismatch, "invalid M-of-N: %d-of-%d", m, n)
	}

	params := chainParams(network)
	sorted := SortPubKeys(pubKeys)
	witnessScript, err := multisigScript(m, sorted, params)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindBuildFailed, err, "failed to build multisig script")
	}

	var addr btcutil.Address
	var redeemScript []byte

	switch st {
	case wallettypes.P2SHMultisig:
		redeemScript = witnessScript
		addr, err = btcutil.NewAddressScriptHash(redeemScript, params)
	case wallettypes.P2WSHMultisig:
		addr, err = btcutil.NewAddressWitnessScriptHash(witnessScript, params)
	case wallettypes.P2SHP2WSHMultisig:
		witnessAddr, werr := btcutil.NewAddressWitnessScriptHash(witnessScript, params)
		if werr != nil {
			return nil, wallettypes.Wrap(wallettypes.KindBuildFailed, werr, "failed to build inner witness address")
		}
		redeemScript, err = txscript.PayToAddrScript(witnessAddr)
		if err != nil {
			break
		}
		addr, err = btcutil.NewAddressScriptHash(redeemScript, params)
	}
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidAddress, err, "failed to build %s address", st)
	}

	scriptPubKey, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidAddress, err, "failed to build scriptPubKey")
	}

	result := &wallettypes.Address{
		Encoded:      addr.EncodeAddress(),
		Network:      network,
		ScriptType:   st,
		ScriptPubKey: scriptPubKey,
		RedeemScript: redeemScript,
	}
	if st != wallettypes.P2SHMultisig {
		result.WitnessScript = witnessScript
	}
	return result, nil
}

// WitnessScriptHash returns sha256(witnessScript), the value locked by a
// P2WSH output (exposed for txassembler's sighash computation).
func WitnessScriptHash(witnessScript []byte) [32]byte {
	return sha256.Sum256(witnessScript)
}
