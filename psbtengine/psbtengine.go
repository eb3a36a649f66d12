// Package psbtengine implements §4.5 PsbtEngine: the BIP-174 partially
// signed transaction container used to move an unsigned or
// partially-signed multisig spend between cosigners, plus a QR-code
// chunked transport for air-gapped signing devices. It is grounded
// heavily on the teacher's path_wallet_psbt.go (pathWalletPSBTCreate,
// trySignByBip32Derivation/trySignMultiSig, pathWalletPSBTFinalize),
// rebuilt on top of btcsuite/btcd/btcutil/psbt instead of Vault's HTTP
// path handlers, and on path_wallet_qr.go for the QR rendering, which
// wires skip2/go-qrcode exactly as the teacher does for BIP21 URIs.
package psbtengine

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/shieldwallet/walletcore/wallettypes"
)

// State is the PSBT lifecycle stage (§3 Psbt state machine:
// Empty -> PartiallySigned -> Ready -> Finalized).
type State int

const (
	StateEmpty State = iota
	StatePartiallySigned
	StateReady
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartiallySigned:
		return "partially_signed"
	case StateReady:
		return "ready"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

func chainParams(network wallettypes.Network) *chaincfg.Params {
	if network == wallettypes.Testnet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// InputMeta is the per-input signing context PSBT carries alongside the
// bare unsigned transaction: the coin it spends, and — for multisig
// inputs — the witness/redeem script every cosigner needs to reproduce
// the same sighash.
type InputMeta struct {
	Utxo          wallettypes.UnspentOutput
	RedeemScript  []byte
	WitnessScript []byte
	RequiredM     int
}

// Psbt wraps a btcsuite psbt.Packet with the bookkeeping TxAssembler's
// multisig path needs: how many signatures each input still requires.
type Psbt struct {
	packet *psbt.Packet
	metas  []InputMeta
}

// New builds an Empty-state PSBT wrapping an unsigned transaction and
// the per-input metadata needed to sign it (§4.5 export's source shape).
// This is the entry point txassembler.BuildMultisig hands its unsigned
// transaction to.
func New(tx *wire.MsgTx, metas []InputMeta) (*Psbt, error) {
	if len(tx.TxIn) != len(metas) {
		return nil, wallettypes.New(wallettypes.KindPsbtParseError, "input count %d does not match metadata count %d", len(tx.TxIn), len(metas))
	}
	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindPsbtParseError, err, "failed to wrap unsigned transaction")
	}
	for i, m := range metas {
		packet.Inputs[i].WitnessUtxo = wire.NewTxOut(m.Utxo.Value, m.Utxo.ScriptPubKey)
		if len(m.RedeemScript) > 0 {
			packet.Inputs[i].RedeemScript = m.RedeemScript
		}
		if len(m.WitnessScript) > 0 {
			packet.Inputs[i].WitnessScript = m.WitnessScript
		}
	}
	return &Psbt{packet: packet, metas: metas}, nil
}

// ExportResult is the full payload §4.5 export promises: both text
// encodings, the transaction id, the fee this PSBT's metadata implies,
// and a per-input partial-signature count.
type ExportResult struct {
	Base64    string
	Hex       string
	Txid      string
	Fee       int64
	SigCounts []int
	Finalized bool
}

// Export serializes the PSBT to its standard BIP-174 wire form in both
// text encodings and reports the derived fee/signature-count/finalized
// state alongside it (§4.5 export).
func (p *Psbt) Export() (*ExportResult, error) {
	var buf bytes.Buffer
	if err := p.packet.Serialize(&buf); err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindPsbtParseError, err, "failed to serialize PSBT")
	}
	raw := buf.Bytes()

	sigCounts := make([]int, len(p.packet.Inputs))
	for i := range p.packet.Inputs {
		sigCounts[i] = p.PartialSigCount(i)
	}

	return &ExportResult{
		Base64:    base64.StdEncoding.EncodeToString(raw),
		Hex:       hex.EncodeToString(raw),
		Txid:      p.packet.UnsignedTx.TxHash().String(),
		Fee:       p.fee(),
		SigCounts: sigCounts,
		Finalized: p.isFinalized(),
	}, nil
}

// fee is the difference between the input values this PSBT's metadata
// records and the sum of its declared outputs. It is zero-valued (and
// meaningless) when metas is empty, e.g. right after Import with no
// metadata supplied.
func (p *Psbt) fee() int64 {
	if len(p.metas) == 0 {
		return 0
	}
	var in int64
	for _, m := range p.metas {
		in += m.Utxo.Value
	}
	var out int64
	for _, o := range p.packet.UnsignedTx.TxOut {
		out += o.Value
	}
	return in - out
}

// ImportResult is what §4.5 import returns: the parsed PSBT, its
// transaction id, and any policy warnings found while inspecting it.
// IsValid is true iff Warnings is empty.
type ImportResult struct {
	Psbt     *Psbt
	Txid     string
	Warnings []string
	IsValid  bool
}

// Import parses a PSBT string in either its hex or base64 transport
// encoding (§4.5 import: "hex is distinguishable by being composed only
// of [0-9a-fA-F]"; anything else is decoded as base64. Hex digits are
// themselves base64 characters, so a string mixing both alphabets is
// rejected only when it is not valid base64 or does not decode to a
// PSBT). Caller-supplied metas must describe the same
// inputs in the same order as when the PSBT was first exported — the
// wire format itself does not carry RequiredM, so the engine cannot
// recover it on its own. network is used only to compute the warnings
// below; it is never required to match the PSBT (a mismatch is itself
// reported as a warning).
func Import(str string, metas []InputMeta, network wallettypes.Network) (*ImportResult, error) {
	raw, err := decodePsbtString(str)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindPsbtParseError, err, "failed to decode PSBT string")
	}
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindPsbtParseError, err, "failed to parse PSBT")
	}
	if len(metas) != 0 && len(metas) != len(packet.Inputs) {
		return nil, wallettypes.New(wallettypes.KindPsbtParseError, "metadata count %d does not match PSBT input count %d", len(metas), len(packet.Inputs))
	}
	p := &Psbt{packet: packet, metas: metas}

	var warnings []string
	for i, in := range packet.Inputs {
		if in.WitnessUtxo == nil && in.NonWitnessUtxo == nil {
			warnings = append(warnings, fmt.Sprintf("input %d is missing UTXO context", i))
		}
	}
	params := chainParams(network)
	for i, out := range packet.UnsignedTx.TxOut {
		if out.Value <= 0 {
			warnings = append(warnings, fmt.Sprintf("output %d has a non-positive value %d", i, out.Value))
		}
		if _, addrs, _, err := txscript.ExtractPkScriptAddrs(out.PkScript, params); err != nil || len(addrs) == 0 {
			warnings = append(warnings, fmt.Sprintf("output %d's script does not match a recognized address prefix for %s", i, network))
		}
	}
	if len(metas) > 0 {
		var total int64
		for _, m := range metas {
			total += m.Utxo.Value
		}
		if fee := p.fee(); total > 0 && fee*10 > total {
			warnings = append(warnings, fmt.Sprintf("fee %d exceeds 10%% of total input value %d", fee, total))
		}
	}

	return &ImportResult{
		Psbt:     p,
		Txid:     packet.UnsignedTx.TxHash().String(),
		Warnings: warnings,
		IsValid:  len(warnings) == 0,
	}, nil
}

// decodePsbtString accepts either transport encoding a PSBT may arrive
// in, distinguishing them the way §4.5 import specifies: a string made
// up only of hex digits (and of even length) is hex; everything else is
// handed to the base64 decoder, which itself rejects anything that
// isn't valid base64.
func decodePsbtString(s string) ([]byte, error) {
	if isHexString(s) {
		return hex.DecodeString(s)
	}
	return base64.StdEncoding.DecodeString(s)
}

func isHexString(s string) bool {
	if len(s) == 0 || len(s)%2 != 0 {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

// UnsignedTx exposes the underlying unsigned transaction for callers
// that need to compute a sighash themselves.
func (p *Psbt) UnsignedTx() *wire.MsgTx { return p.packet.UnsignedTx }

// PartialSigCount returns how many partial signatures input i currently
// holds.
func (p *Psbt) PartialSigCount(i int) int {
	return len(p.packet.Inputs[i].PartialSigs)
}

// AddPartialSig attaches one cosigner's signature to input i (§4.5 sign).
// It is idempotent: re-adding the same pubkey's signature overwrites
// rather than duplicates the entry, so merge can be implemented as
// repeated AddPartialSig calls, and the source's "duplicate partial
// signatures must be deduplicated by cosigner public key, never by
// signature bytes" requirement falls out for free.
func (p *Psbt) AddPartialSig(i int, pubKey *btcec.PublicKey, signature []byte) error {
	if i < 0 || i >= len(p.packet.Inputs) {
		return wallettypes.New(wallettypes.KindPsbtParseError, "input index %d out of range", i)
	}
	pub := pubKey.SerializeCompressed()
	in := &p.packet.Inputs[i]
	for j, existing := range in.PartialSigs {
		if bytes.Equal(existing.PubKey, pub) {
			in.PartialSigs[j].Signature = signature
			return nil
		}
	}
	in.PartialSigs = append(in.PartialSigs, &psbt.PartialSig{PubKey: pub, Signature: signature})
	return nil
}

// Sign signs every input of p on behalf of one cosigner (§4.5 sign).
// pubKeysSorted is the full lexicographically-sorted cosigner key set
// (§4.2); Sign first confirms priv's public key is a member of it before
// touching any input, the same membership check a multisig wallet must
// make before it will even attempt to contribute a signature. Each
// input is signed with the BIP-143 witness sighash when it carries a
// witness script, or the legacy sighash when it only carries a redeem
// script; every signature is verified against the signer's own public
// key before being attached, and calling Sign again with the same key
// overwrites rather than duplicates the prior contribution
// (AddPartialSig's idempotence).
func Sign(p *Psbt, pubKeysSorted []*btcec.PublicKey, priv *btcec.PrivateKey) error {
	signerPub := priv.PubKey()
	member := false
	for _, pk := range pubKeysSorted {
		if pk.IsEqual(signerPub) {
			member = true
			break
		}
	}
	if !member {
		return wallettypes.New(wallettypes.KindPrivateKeyRejected, "signing key is not a member of the provided cosigner set")
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range p.packet.Inputs {
		outPoint := p.packet.UnsignedTx.TxIn[i].PreviousOutPoint
		switch {
		case in.WitnessUtxo != nil:
			fetcher.AddPrevOut(outPoint, in.WitnessUtxo)
		case in.NonWitnessUtxo != nil && int(outPoint.Index) < len(in.NonWitnessUtxo.TxOut):
			fetcher.AddPrevOut(outPoint, in.NonWitnessUtxo.TxOut[outPoint.Index])
		}
	}
	sigHashes := txscript.NewTxSigHashes(p.packet.UnsignedTx, fetcher)

	for i := range p.packet.Inputs {
		in := &p.packet.Inputs[i]

		var script []byte
		witness := len(in.WitnessScript) > 0
		if witness {
			script = in.WitnessScript
		} else if len(in.RedeemScript) > 0 {
			script = in.RedeemScript
		} else {
			return wallettypes.New(wallettypes.KindPsbtParseError, "input %d carries neither a witness nor a redeem script to sign against", i)
		}

		var sig []byte
		var err error
		var sigHash []byte
		if witness {
			if in.WitnessUtxo == nil {
				return wallettypes.New(wallettypes.KindPsbtParseError, "input %d is missing witness UTXO context", i)
			}
			sigHash, err = txscript.CalcWitnessSigHash(script, sigHashes, txscript.SigHashAll, p.packet.UnsignedTx, i, in.WitnessUtxo.Value)
			if err == nil {
				sig, err = txscript.RawTxInWitnessSignature(p.packet.UnsignedTx, sigHashes, i, in.WitnessUtxo.Value, script, txscript.SigHashAll, priv)
			}
		} else {
			sigHash, err = txscript.CalcSignatureHash(script, txscript.SigHashAll, p.packet.UnsignedTx, i)
			if err == nil {
				sig, err = txscript.RawTxInSignature(p.packet.UnsignedTx, i, script, txscript.SigHashAll, priv)
			}
		}
		if err != nil {
			return wallettypes.Wrap(wallettypes.KindSignatureInvalid, err, "input %d: failed to sign", i)
		}

		parsed, err := ecdsa.ParseSignature(sig[:len(sig)-1])
		if err != nil {
			return wallettypes.Wrap(wallettypes.KindSignatureInvalid, err, "input %d: produced an unparsable signature", i)
		}
		if !parsed.Verify(sigHash, signerPub) {
			return wallettypes.New(wallettypes.KindSignatureInvalid, "input %d: produced signature failed self-verification", i)
		}

		if err := p.AddPartialSig(i, signerPub, sig); err != nil {
			return err
		}
	}
	return nil
}

// State reports where in the §3 lifecycle this PSBT currently sits.
func (p *Psbt) State() State {
	if p.isFinalized() {
		return StateFinalized
	}
	ready := true
	anySigned := false
	for i := range p.packet.Inputs {
		need := 1
		if i < len(p.metas) && p.metas[i].RequiredM > 0 {
			need = p.metas[i].RequiredM
		}
		have := p.PartialSigCount(i)
		if have > 0 {
			anySigned = true
		}
		if have < need {
			ready = false
		}
	}
	switch {
	case ready && anySigned:
		return StateReady
	case anySigned:
		return StatePartiallySigned
	default:
		return StateEmpty
	}
}

func (p *Psbt) isFinalized() bool {
	for _, in := range p.packet.Inputs {
		if len(in.FinalScriptSig) == 0 && len(in.FinalScriptWitness) == 0 {
			return false
		}
	}
	return len(p.packet.Inputs) > 0
}

// ValidateResult is what §4.5 validate returns: whether every input's
// multisig script agrees with the caller's expected M-of-N, and the
// specific disagreements found otherwise.
type ValidateResult struct {
	Valid  bool
	Errors []string
}

// Validate decodes each input's multisig redeem or witness script and
// checks it against expectedM/expectedN (§4.5 validate). It also runs
// the packet's own BIP-174 structural sanity check and confirms every
// input carries enough UTXO context to be signed without an external
// lookup (§3 Psbt invariant).
func (p *Psbt) Validate(expectedM, expectedN int) (*ValidateResult, error) {
	if err := p.packet.SanityCheck(); err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindPsbtParseError, err, "PSBT failed sanity check")
	}

	var errs []string
	for i, in := range p.packet.Inputs {
		if in.WitnessUtxo == nil && in.NonWitnessUtxo == nil {
			errs = append(errs, fmt.Sprintf("input %d is missing UTXO metadata", i))
			continue
		}
		script := in.WitnessScript
		if len(script) == 0 {
			script = in.RedeemScript
		}
		if len(script) == 0 {
			errs = append(errs, fmt.Sprintf("input %d has no multisig redeem or witness script to validate", i))
			continue
		}
		n, m, err := txscript.CalcMultiSigStats(script)
		if err != nil {
			errs = append(errs, fmt.Sprintf("input %d: failed to parse multisig script: %v", i, err))
			continue
		}
		if m != expectedM || n != expectedN {
			errs = append(errs, fmt.Sprintf("input %d: script encodes %d-of-%d, expected %d-of-%d", i, m, n, expectedM, expectedN))
		}
	}
	return &ValidateResult{Valid: len(errs) == 0, Errors: errs}, nil
}

// Finalize converts every input's partial signatures into its final
// scriptSig/witness, failing with NotEnoughSignatures if any input has
// fewer partial signatures than its RequiredM (§4.5 finalize).
func (p *Psbt) Finalize() error {
	for i := range p.packet.Inputs {
		need := 1
		if i < len(p.metas) && p.metas[i].RequiredM > 0 {
			need = p.metas[i].RequiredM
		}
		have := p.PartialSigCount(i)
		if have < need {
			return wallettypes.NotEnoughSignatures(have, need)
		}
	}
	if err := psbt.MaybeFinalizeAll(p.packet); err != nil {
		return wallettypes.Wrap(wallettypes.KindBuildFailed, err, "failed to finalize PSBT")
	}
	return nil
}

// Extract returns the fully signed wire transaction from a Finalized
// PSBT.
func (p *Psbt) Extract() (*wire.MsgTx, error) {
	tx, err := psbt.Extract(p.packet)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindBuildFailed, err, "failed to extract final transaction")
	}
	return tx, nil
}

// Merge combines the partial signatures from every psbt in group into
// base, which must all wrap the same unsigned transaction (§4.5 merge:
// "cosigners sign the same PSBT independently; merging unions their
// partial signatures per input"). It returns a new Psbt and leaves its
// arguments unmodified.
func Merge(base *Psbt, group ...*Psbt) (*Psbt, error) {
	merged, err := clone(base)
	if err != nil {
		return nil, err
	}
	baseTxHash := merged.packet.UnsignedTx.TxHash()
	for _, other := range group {
		if other.packet.UnsignedTx.TxHash() != baseTxHash {
			return nil, wallettypes.New(wallettypes.KindPsbtMergeMismatch, "cannot merge PSBTs for different unsigned transactions")
		}
		for i, in := range other.packet.Inputs {
			for _, sig := range in.PartialSigs {
				pub, err := btcec.ParsePubKey(sig.PubKey)
				if err != nil {
					return nil, wallettypes.Wrap(wallettypes.KindPsbtMergeMismatch, err, "input %d: invalid pubkey in partial signature", i)
				}
				if err := merged.AddPartialSig(i, pub, sig.Signature); err != nil {
					return nil, err
				}
			}
		}
	}
	return merged, nil
}

// clone deep-copies p by round-tripping it through BIP-174 serialization,
// carrying its metas across unchanged (the wire format itself has no
// room for RequiredM, so it cannot be recovered from the bytes alone).
func clone(p *Psbt) (*Psbt, error) {
	var buf bytes.Buffer
	if err := p.packet.Serialize(&buf); err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindPsbtParseError, err, "failed to serialize PSBT for clone")
	}
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(buf.Bytes()), false)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindPsbtParseError, err, "failed to reparse cloned PSBT")
	}
	return &Psbt{packet: packet, metas: p.metas}, nil
}
