package psbtengine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/shieldwallet/walletcore/addresscodec"
	"github.com/shieldwallet/walletcore/keytree"
	"github.com/shieldwallet/walletcore/multisig"
	"github.com/shieldwallet/walletcore/wallettypes"
)

var cosignerMnemonics = []string{
	"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
	"zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo vote",
	"legal winner thank year wave sausage worth useful legal winner thank yellow",
}

type cosignerKey struct {
	node *keytree.Node
	priv *btcec.PrivateKey
}

func buildTestAccount(t *testing.T) (*multisig.MultisigAccount, []cosignerKey) {
	t.Helper()
	cosigners := make([]multisig.Cosigner, 0, 3)
	var privNodes []*keytree.Node
	for _, m := range cosignerMnemonics {
		seed, err := keytree.SeedFromMnemonic(m, "")
		if err != nil {
			t.Fatalf("SeedFromMnemonic() error = %v", err)
		}
		tree, err := keytree.FromSeed(seed, wallettypes.Testnet)
		if err != nil {
			t.Fatalf("FromSeed() error = %v", err)
		}
		path, err := keytree.MultisigAccountPath(wallettypes.Testnet, wallettypes.P2WSHMultisig, 0)
		if err != nil {
			t.Fatalf("MultisigAccountPath() error = %v", err)
		}
		account, err := tree.DerivePath(path)
		if err != nil {
			t.Fatalf("DerivePath() error = %v", err)
		}
		leaf, err := keytree.DerivePathFrom(account, keytree.AddressPath(0, 0))
		if err != nil {
			t.Fatalf("DerivePathFrom() error = %v", err)
		}
		privNodes = append(privNodes, leaf)

		parsed, err := tree.AccountXpub(wallettypes.P2WSHMultisig, 0)
		if err != nil {
			t.Fatalf("AccountXpub() error = %v", err)
		}
		cosigners = append(cosigners, multisig.Cosigner{Xpub: parsed})
	}

	acc, err := multisig.NewMultisigAccount(wallettypes.P2WSHMultisig, wallettypes.Testnet, 2, cosigners)
	if err != nil {
		t.Fatalf("NewMultisigAccount() error = %v", err)
	}

	keys := make([]cosignerKey, len(privNodes))
	for i, n := range privNodes {
		priv, err := n.ECPrivKey()
		if err != nil {
			t.Fatalf("ECPrivKey() error = %v", err)
		}
		keys[i] = cosignerKey{node: n, priv: priv}
	}
	return acc, keys
}

// sortedCosignerPubKeys returns the BIP-67 sorted pubkey set Sign needs
// to confirm a signer is a legitimate member of the account (§4.2).
func sortedCosignerPubKeys(t *testing.T, keys []cosignerKey) []*btcec.PublicKey {
	t.Helper()
	pubs := make([]*btcec.PublicKey, len(keys))
	for i, k := range keys {
		pub, err := k.node.ECPubKey()
		if err != nil {
			t.Fatalf("ECPubKey() error = %v", err)
		}
		pubs[i] = pub
	}
	return addresscodec.SortPubKeys(pubs)
}

func TestTwoOfThreeMultisigSignMergeFinalize(t *testing.T) {
	account, keys := buildTestAccount(t)
	pubKeysSorted := sortedCosignerPubKeys(t, keys)

	fundingAddr, err := account.DeriveAddress(0, 0)
	if err != nil {
		t.Fatalf("DeriveAddress() error = %v", err)
	}

	destScriptPubKey := fundingAddr.ScriptPubKey // pay back to the same script type for simplicity

	tx := wire.NewMsgTx(wire.TxVersion)
	var prevTxid chainhash.Hash
	prevTxid[0] = 0x42
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevTxid, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(95_000, destScriptPubKey))

	var txidArr [32]byte
	copy(txidArr[:], prevTxid[:])
	utxo := wallettypes.UnspentOutput{
		TxID:         txidArr,
		OutputIndex:  0,
		Value:        100_000,
		ScriptPubKey: fundingAddr.ScriptPubKey,
		ScriptType:   wallettypes.P2WSHMultisig,
	}

	p, err := New(tx, []InputMeta{{Utxo: utxo, WitnessScript: fundingAddr.WitnessScript, RequiredM: 2}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.State() != StateEmpty {
		t.Fatalf("fresh PSBT state = %v, want empty", p.State())
	}

	var signed []*Psbt
	for _, k := range keys[:2] {
		individual, err := New(tx, []InputMeta{{Utxo: utxo, WitnessScript: fundingAddr.WitnessScript, RequiredM: 2}})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := Sign(individual, pubKeysSorted, k.priv); err != nil {
			t.Fatalf("Sign() error = %v", err)
		}
		if individual.PartialSigCount(0) != 1 {
			t.Fatalf("individually signed PSBT has %d partial sigs, want 1", individual.PartialSigCount(0))
		}
		signed = append(signed, individual)
	}

	// Signing twice with the same key must not duplicate the partial
	// signature (§4.5 sign's idempotence).
	if err := Sign(signed[0], pubKeysSorted, keys[0].priv); err != nil {
		t.Fatalf("re-Sign() error = %v", err)
	}
	if signed[0].PartialSigCount(0) != 1 {
		t.Fatalf("re-signing duplicated a partial signature: count = %d, want 1", signed[0].PartialSigCount(0))
	}

	merged, err := Merge(signed[0], signed[1])
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if merged.PartialSigCount(0) != 2 {
		t.Fatalf("merged PSBT has %d partial sigs, want 2", merged.PartialSigCount(0))
	}
	if merged.State() != StateReady {
		t.Fatalf("merged PSBT state = %v, want ready", merged.State())
	}

	result, err := merged.Validate(2, 3)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !result.Valid {
		t.Fatalf("Validate() errors = %v, want none", result.Errors)
	}
	if badResult, err := merged.Validate(3, 3); err != nil || badResult.Valid {
		t.Fatalf("Validate(3, 3) = %+v, err = %v, want invalid", badResult, err)
	}

	if err := merged.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if merged.State() != StateFinalized {
		t.Fatalf("finalized PSBT state = %v, want finalized", merged.State())
	}

	exported, err := merged.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !exported.Finalized {
		t.Fatalf("Export().Finalized = false, want true")
	}
	if exported.Fee != 5_000 {
		t.Fatalf("Export().Fee = %d, want 5000", exported.Fee)
	}
	if exported.Txid == "" || exported.Base64 == "" || exported.Hex == "" {
		t.Fatalf("Export() returned an incomplete result: %+v", exported)
	}

	reimported, err := Import(exported.Base64, []InputMeta{{Utxo: utxo, WitnessScript: fundingAddr.WitnessScript, RequiredM: 2}}, wallettypes.Testnet)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if reimported.Txid != exported.Txid {
		t.Fatalf("Import().Txid = %s, want %s", reimported.Txid, exported.Txid)
	}
	if !reimported.IsValid {
		t.Fatalf("Import().Warnings = %v, want none", reimported.Warnings)
	}

	finalTx, err := merged.Extract()
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(finalTx.TxIn[0].Witness) == 0 {
		t.Fatalf("extracted transaction has no witness stack")
	}

	chunks, err := Chunk(exported.Base64, exported.Txid, 32)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected Chunk() to split the PSBT into multiple pieces, got %d", len(chunks))
	}
	reassembled, err := Reassemble(chunks)
	if err != nil {
		t.Fatalf("Reassemble() error = %v", err)
	}
	if reassembled != exported.Base64 {
		t.Fatalf("Reassemble() did not round-trip the original PSBT")
	}
	// Duplicating the first chunk is fine; mixing in a chunk claiming a
	// different txid must be rejected.
	withDup := append(append([]string{}, chunks...), chunks[0])
	if _, err := Reassemble(withDup); err != nil {
		t.Fatalf("Reassemble() with a duplicate chunk error = %v, want no error", err)
	}
	foreignChunk := fmt.Sprintf("1/%d/deadbeef:", len(chunks)) + chunks[0][strings.IndexByte(chunks[0], ':')+1:]
	mismatched := append(append([]string{}, chunks[1:]...), foreignChunk)
	if _, err := Reassemble(mismatched); err == nil {
		t.Fatalf("expected Reassemble() to reject a chunk from a different txid")
	}
}

func TestFinalizeFailsWithoutEnoughSignatures(t *testing.T) {
	account, keys := buildTestAccount(t)
	pubKeysSorted := sortedCosignerPubKeys(t, keys)
	fundingAddr, err := account.DeriveAddress(0, 0)
	if err != nil {
		t.Fatalf("DeriveAddress() error = %v", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	var prevTxid chainhash.Hash
	prevTxid[0] = 0x43
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevTxid, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(95_000, fundingAddr.ScriptPubKey))

	var txidArr [32]byte
	copy(txidArr[:], prevTxid[:])
	utxo := wallettypes.UnspentOutput{TxID: txidArr, Value: 100_000, ScriptPubKey: fundingAddr.ScriptPubKey, ScriptType: wallettypes.P2WSHMultisig}

	p, err := New(tx, []InputMeta{{Utxo: utxo, WitnessScript: fundingAddr.WitnessScript, RequiredM: 2}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := Sign(p, pubKeysSorted, keys[0].priv); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if p.State() != StatePartiallySigned {
		t.Fatalf("state with 1 of 2 required sigs = %v, want partially_signed", p.State())
	}
	if err := p.Finalize(); err == nil {
		t.Fatalf("expected Finalize() to fail with only 1 of 2 required signatures")
	}
}

func TestSignRejectsKeyOutsideCosignerSet(t *testing.T) {
	account, keys := buildTestAccount(t)
	pubKeysSorted := sortedCosignerPubKeys(t, keys[:2])
	fundingAddr, err := account.DeriveAddress(0, 0)
	if err != nil {
		t.Fatalf("DeriveAddress() error = %v", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	var prevTxid chainhash.Hash
	prevTxid[0] = 0x44
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevTxid, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(95_000, fundingAddr.ScriptPubKey))

	var txidArr [32]byte
	copy(txidArr[:], prevTxid[:])
	utxo := wallettypes.UnspentOutput{TxID: txidArr, Value: 100_000, ScriptPubKey: fundingAddr.ScriptPubKey, ScriptType: wallettypes.P2WSHMultisig}

	p, err := New(tx, []InputMeta{{Utxo: utxo, WitnessScript: fundingAddr.WitnessScript, RequiredM: 2}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := Sign(p, pubKeysSorted, keys[2].priv); err == nil {
		t.Fatalf("expected Sign() to reject a key outside the provided cosigner set")
	}
}
