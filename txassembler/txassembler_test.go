package txassembler

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/shieldwallet/walletcore/addresscodec"
	"github.com/shieldwallet/walletcore/keytree"
	"github.com/shieldwallet/walletcore/wallettypes"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type nodeSigner struct {
	node *keytree.Node
	st   wallettypes.ScriptType
}

func (s nodeSigner) PrivKey() (*btcec.PrivateKey, error) { return s.node.ECPrivKey() }
func (s nodeSigner) ScriptType() wallettypes.ScriptType  { return s.st }

func TestBuildSinglesigP2WPKHRoundTrips(t *testing.T) {
	seed, err := keytree.SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error = %v", err)
	}
	tree, err := keytree.FromSeed(seed, wallettypes.Testnet)
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}
	srcNode, err := tree.DeriveAddressNode(wallettypes.P2WPKH, 0, 0, 0)
	if err != nil {
		t.Fatalf("DeriveAddressNode() error = %v", err)
	}
	srcPub, err := srcNode.ECPubKey()
	if err != nil {
		t.Fatalf("ECPubKey() error = %v", err)
	}
	srcAddr, err := addresscodec.Encode(wallettypes.Testnet, wallettypes.P2WPKH, srcPub)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	dstNode, err := tree.DeriveAddressNode(wallettypes.P2WPKH, 0, 1, 0)
	if err != nil {
		t.Fatalf("DeriveAddressNode() error = %v", err)
	}
	dstPub, err := dstNode.ECPubKey()
	if err != nil {
		t.Fatalf("ECPubKey() error = %v", err)
	}
	dstAddr, err := addresscodec.Encode(wallettypes.Testnet, wallettypes.P2WPKH, dstPub)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var txid [32]byte
	txid[0] = 0x01
	input := wallettypes.UnspentOutput{
		TxID:         txid,
		OutputIndex:  0,
		Value:        100_000,
		ScriptPubKey: srcAddr.ScriptPubKey,
		ScriptType:   wallettypes.P2WPKH,
	}

	fee := int64(1000)
	outputs := []Output{{ScriptPubKey: dstAddr.ScriptPubKey, Value: input.Value - fee}}
	built, err := BuildSinglesig(
		[]wallettypes.UnspentOutput{input},
		[]Signer{nodeSigner{node: srcNode, st: wallettypes.P2WPKH}},
		outputs, fee,
	)
	if err != nil {
		t.Fatalf("BuildSinglesig() error = %v", err)
	}
	if len(built.Tx.TxIn) != 1 {
		t.Fatalf("built tx has %d inputs, want 1", len(built.Tx.TxIn))
	}
	if len(built.Tx.TxIn[0].Witness) == 0 {
		t.Fatalf("expected a witness stack on the signed P2WPKH input")
	}
	if built.VSize <= 0 {
		t.Fatalf("VSize = %d, want > 0", built.VSize)
	}
}

func TestBuildSinglesigRejectsMismatchedSignerCount(t *testing.T) {
	_, err := BuildSinglesig(
		[]wallettypes.UnspentOutput{{Value: 1000}},
		nil,
		nil, 0,
	)
	if err == nil {
		t.Fatalf("expected error when signer count does not match input count")
	}
}
