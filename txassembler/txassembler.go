// Package txassembler implements §4.4.2 TxAssembler: building a raw
// Bitcoin transaction from selected inputs and requested outputs, and —
// for the single-key case, where the signing key is available locally —
// signing and verifying it in the same call. It is grounded on the
// teacher's wallet/transaction.go BuildTransaction, generalized from
// that function's P2WPKH/P2TR-only signing switch to the full
// single-key ScriptType set, and split so that the multisig path stops
// at an unsigned template (§4.5 PsbtEngine owns partial-signature
// collection for multisig, which a single local key never needs).
package txassembler

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/shieldwallet/walletcore/psbtengine"
	"github.com/shieldwallet/walletcore/wallettypes"
)

// Output is a requested payment: an amount locked to a scriptPubKey
// already produced by AddressCodec.
type Output struct {
	ScriptPubKey []byte
	Value        int64
}

// Built is the result of assembling a transaction: the wire-format
// message plus bookkeeping needed by callers that must report a fee or
// a txid.
type Built struct {
	Tx    *wire.MsgTx
	Fee   int64
	VSize int
}

// Signer supplies the private key and script metadata TxAssembler needs
// to sign one input. It is satisfied directly by a keytree.Node wrapped
// by the caller, keeping txassembler free of a dependency on keytree.
type Signer interface {
	PrivKey() (*btcec.PrivateKey, error)
	ScriptType() wallettypes.ScriptType
}

func newUnsignedTx(inputs []wallettypes.UnspentOutput, outputs []Output) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	for _, in := range inputs {
		hash := chainhash.Hash(in.TxID)
		outPoint := wire.NewOutPoint(&hash, in.OutputIndex)
		txIn := wire.NewTxIn(outPoint, nil, nil)
		txIn.Sequence = wallettypes.SequenceRBF
		tx.AddTxIn(txIn)
	}
	for _, out := range outputs {
		tx.AddTxOut(wire.NewTxOut(out.Value, out.ScriptPubKey))
	}
	return tx
}

// BuildSinglesig assembles, signs and verifies a transaction spending
// inputs (each already associated with a Signer for its own script
// type) to outputs, per §4.4.2 build_singlesig. It returns BuildFailed
// if any signature fails script verification — the partial transaction
// is discarded rather than returned, per the no-partial-failure
// invariant.
func BuildSinglesig(inputs []wallettypes.UnspentOutput, signers []Signer, outputs []Output, fee int64) (*Built, error) {
	if len(inputs) != len(signers) {
		return nil, wallettypes.New(wallettypes.KindBuildFailed, "input count %d does not match signer count %d", len(inputs), len(signers))
	}
	tx := newUnsignedTx(inputs, outputs)

	prevOutFetcher := txscript.NewMultiPrevOutFetcher(nil)
	for _, in := range inputs {
		hash := chainhash.Hash(in.TxID)
		outPoint := wire.NewOutPoint(&hash, in.OutputIndex)
		prevOutFetcher.AddPrevOut(*outPoint, wire.NewTxOut(in.Value, in.ScriptPubKey))
	}
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	for i, in := range inputs {
		priv, err := signers[i].PrivKey()
		if err != nil {
			return nil, wallettypes.Wrap(wallettypes.KindBuildFailed, err, "input %d: failed to materialize signing key", i)
		}
		if err := signSinglesigInput(tx, i, in, signers[i].ScriptType(), priv, sigHashes); err != nil {
			return nil, wallettypes.Wrap(wallettypes.KindBuildFailed, err, "input %d: signing failed", i)
		}
	}

	for i, in := range inputs {
		if err := verifyInput(tx, i, in); err != nil {
			return nil, wallettypes.Wrap(wallettypes.KindBuildFailed, err, "input %d: signature verification failed", i)
		}
	}

	vsize := estimateVSize(tx)
	return &Built{Tx: tx, Fee: fee, VSize: vsize}, nil
}

// MultisigInput is one coin being spent through a multisig script,
// pairing the UTXO with the M-of-N address that locks it (§4.2
// EncodeMultisig's output) so BuildMultisig can embed the right
// redeem/witness script and PsbtEngine can track how many signatures
// the input still needs.
type MultisigInput struct {
	Utxo    wallettypes.UnspentOutput
	Address *wallettypes.Address
	M       int
}

// BuildMultisig assembles inputs/outputs through each input's multisig
// redeem/witness script and hands back an unsigned PsbtEngine container,
// per §4.4.2 build_multisig. Unlike BuildSinglesig it never signs or
// finalizes the transaction: the signing keys for a multisig spend live
// with separate cosigners, so PsbtEngine.Sign and PsbtEngine.Finalize own
// collecting and applying those signatures once the unsigned PSBT has
// been passed around.
func BuildMultisig(inputs []MultisigInput, outputs []Output) (*psbtengine.Psbt, error) {
	plain := make([]wallettypes.UnspentOutput, len(inputs))
	metas := make([]psbtengine.InputMeta, len(inputs))
	for i, in := range inputs {
		if in.Address.RedeemScript == nil && in.Address.WitnessScript == nil {
			return nil, wallettypes.New(wallettypes.KindBuildFailed, "input %d: address carries neither a redeem nor a witness script", i)
		}
		plain[i] = in.Utxo
		metas[i] = psbtengine.InputMeta{
			Utxo:          in.Utxo,
			RedeemScript:  in.Address.RedeemScript,
			WitnessScript: in.Address.WitnessScript,
			RequiredM:     in.M,
		}
	}
	tx := newUnsignedTx(plain, outputs)
	return psbtengine.New(tx, metas)
}

func signSinglesigInput(tx *wire.MsgTx, i int, in wallettypes.UnspentOutput, st wallettypes.ScriptType, priv *btcec.PrivateKey, sigHashes *txscript.TxSigHashes) error {
	pub := priv.PubKey()
	switch st {
	case wallettypes.P2PKH:
		sigScript, err := txscript.SignatureScript(tx, i, in.ScriptPubKey, txscript.SigHashAll, priv, true)
		if err != nil {
			return err
		}
		tx.TxIn[i].SignatureScript = sigScript
		return nil
	case wallettypes.P2WPKH:
		witnessProgram := witnessPubKeyHashScript(pub)
		witness, err := txscript.WitnessSignature(tx, sigHashes, i, in.Value, witnessProgram, txscript.SigHashAll, priv, true)
		if err != nil {
			return err
		}
		tx.TxIn[i].Witness = witness
		return nil
	case wallettypes.P2SHP2WPKH:
		witnessProgram := witnessPubKeyHashScript(pub)
		redeemScript, err := txscript.NewScriptBuilder().AddOp(txscript.OP_0).AddData(btcHash160(pub.SerializeCompressed())).Script()
		if err != nil {
			return err
		}
		witness, err := txscript.WitnessSignature(tx, sigHashes, i, in.Value, witnessProgram, txscript.SigHashAll, priv, true)
		if err != nil {
			return err
		}
		tx.TxIn[i].Witness = witness
		sigScript, err := txscript.NewScriptBuilder().AddData(redeemScript).Script()
		if err != nil {
			return err
		}
		tx.TxIn[i].SignatureScript = sigScript
		return nil
	default:
		return wallettypes.New(wallettypes.KindBuildFailed, "unsupported single-key script type %s for signing", st)
	}
}

func verifyInput(tx *wire.MsgTx, i int, in wallettypes.UnspentOutput) error {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	hash := chainhash.Hash(in.TxID)
	outPoint := wire.NewOutPoint(&hash, in.OutputIndex)
	fetcher.AddPrevOut(*outPoint, wire.NewTxOut(in.Value, in.ScriptPubKey))

	vm, err := txscript.NewEngine(in.ScriptPubKey, tx, i,
		txscript.StandardVerifyFlags, nil, txscript.NewTxSigHashes(tx, fetcher), in.Value, fetcher)
	if err != nil {
		return err
	}
	return vm.Execute()
}

func witnessPubKeyHashScript(pub *btcec.PublicKey) []byte {
	script, _ := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(btcHash160(pub.SerializeCompressed())).
		Script()
	return script
}

func btcHash160(b []byte) []byte {
	return btcutil.Hash160(b)
}

func estimateVSize(tx *wire.MsgTx) int {
	var buf bytes.Buffer
	_ = tx.Serialize(&buf)
	weight := tx.SerializeSizeStripped()*3 + buf.Len()
	return (weight + 3) / 4
}
