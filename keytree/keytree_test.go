package keytree

import (
	"encoding/hex"
	"testing"

	"github.com/shieldwallet/walletcore/wallettypes"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestSeedFromMnemonic(t *testing.T) {
	tests := []struct {
		name       string
		mnemonic   string
		passphrase string
		wantErr    bool
	}{
		{"valid mnemonic, empty passphrase", testMnemonic, "", false},
		{"valid mnemonic, with passphrase", testMnemonic, "TREZOR", false},
		{"invalid checksum", "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon", "", true},
		{"garbage words", "not a real bip39 mnemonic phrase at all whatsoever today", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := SeedFromMnemonic(tt.mnemonic, tt.passphrase)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SeedFromMnemonic() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(seed) != SeedLength {
				t.Fatalf("seed length = %d, want %d", len(seed), SeedLength)
			}
		})
	}
}

func TestNewMnemonic(t *testing.T) {
	m, err := NewMnemonic()
	if err != nil {
		t.Fatalf("NewMnemonic() error = %v", err)
	}
	if _, err := SeedFromMnemonic(m, ""); err != nil {
		t.Fatalf("generated mnemonic failed validation: %v", err)
	}
}

func TestFromSeedAndDerivePath(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error = %v", err)
	}

	tree, err := FromSeed(seed, wallettypes.Testnet)
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}
	if tree.Network() != wallettypes.Testnet {
		t.Fatalf("Network() = %v, want testnet", tree.Network())
	}
	if !tree.Master().IsPrivate() {
		t.Fatalf("master node should carry private material")
	}
	if tree.Master().Depth() != 0 {
		t.Fatalf("master depth = %d, want 0", tree.Master().Depth())
	}

	node, err := tree.DeriveAddressNode(wallettypes.P2WPKH, 0, 0, 0)
	if err != nil {
		t.Fatalf("DeriveAddressNode() error = %v", err)
	}
	if node.Depth() != 5 {
		t.Fatalf("derived node depth = %d, want 5 (m/84'/1'/0'/0/0)", node.Depth())
	}

	pub, err := node.ECPubKey()
	if err != nil {
		t.Fatalf("ECPubKey() error = %v", err)
	}
	if len(pub.SerializeCompressed()) != 33 {
		t.Fatalf("compressed pubkey length = %d, want 33", len(pub.SerializeCompressed()))
	}
}

func TestDeriveHardenedRequiresPrivateMaterial(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error = %v", err)
	}
	tree, err := FromSeed(seed, wallettypes.Mainnet)
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}

	accountPath, err := AccountPath(wallettypes.Mainnet, wallettypes.P2WPKH, 0)
	if err != nil {
		t.Fatalf("AccountPath() error = %v", err)
	}
	account, err := tree.DerivePath(accountPath)
	if err != nil {
		t.Fatalf("DerivePath() error = %v", err)
	}
	neutered, err := account.Neuter()
	if err != nil {
		t.Fatalf("Neuter() error = %v", err)
	}

	if _, err := Derive(neutered, 0, true); err == nil {
		t.Fatalf("expected error deriving hardened child from a neutered node")
	}
}

func TestAccountPathRejectsMultisig(t *testing.T) {
	if _, err := AccountPath(wallettypes.Mainnet, wallettypes.P2WSHMultisig, 0); err == nil {
		t.Fatalf("expected error building single-key account path for a multisig script type")
	}
}

func TestMultisigAccountPathScriptIndex(t *testing.T) {
	tests := []struct {
		st        wallettypes.ScriptType
		wantIndex uint32
	}{
		{wallettypes.P2SHMultisig, 1},
		{wallettypes.P2SHP2WSHMultisig, 2},
		{wallettypes.P2WSHMultisig, 2},
	}
	for _, tt := range tests {
		path, err := MultisigAccountPath(wallettypes.Mainnet, tt.st, 0)
		if err != nil {
			t.Fatalf("MultisigAccountPath(%v) error = %v", tt.st, err)
		}
		if got := path[len(path)-1].Index; got != tt.wantIndex {
			t.Fatalf("MultisigAccountPath(%v) script index = %d, want %d", tt.st, got, tt.wantIndex)
		}
	}
}

func TestAccountXpubEncodesPurposeSpecificPrefix(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error = %v", err)
	}
	tree, err := FromSeed(seed, wallettypes.Testnet)
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}

	tests := []struct {
		name   string
		st     wallettypes.ScriptType
		prefix string
	}{
		{"p2pkh shares tpub", wallettypes.P2PKH, "tpub"},
		{"p2wpkh gets vpub", wallettypes.P2WPKH, "vpub"},
		{"p2sh-p2wpkh gets upub", wallettypes.P2SHP2WPKH, "upub"},
		{"p2wsh-multisig gets Vpub", wallettypes.P2WSHMultisig, "Vpub"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xpub, err := tree.AccountXpub(tt.st, 0)
			if err != nil {
				t.Fatalf("AccountXpub(%v) error = %v", tt.st, err)
			}
			if got := xpub.Raw()[:len(tt.prefix)]; got != tt.prefix {
				t.Fatalf("AccountXpub(%v) prefix = %q, want %q", tt.st, got, tt.prefix)
			}
			if xpub.Network() != wallettypes.Testnet {
				t.Fatalf("AccountXpub(%v) network = %v, want testnet", tt.st, xpub.Network())
			}
		})
	}
}

func TestExtendedKeySerializesDeterministically(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error = %v", err)
	}
	tree, err := FromSeed(seed, wallettypes.Testnet)
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}
	a, err := tree.DeriveAddressNode(wallettypes.P2WPKH, 0, 0, 0)
	if err != nil {
		t.Fatalf("DeriveAddressNode() error = %v", err)
	}
	b, err := tree.DeriveAddressNode(wallettypes.P2WPKH, 0, 0, 0)
	if err != nil {
		t.Fatalf("DeriveAddressNode() error = %v", err)
	}
	pa, _ := a.ECPubKey()
	pb, _ := b.ECPubKey()
	if hex.EncodeToString(pa.SerializeCompressed()) != hex.EncodeToString(pb.SerializeCompressed()) {
		t.Fatalf("deriving the same path twice produced different public keys")
	}
}
