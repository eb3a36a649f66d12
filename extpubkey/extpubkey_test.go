package extpubkey

import (
	"testing"

	"github.com/shieldwallet/walletcore/keytree"
	"github.com/shieldwallet/walletcore/wallettypes"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testTpub(t *testing.T) string {
	t.Helper()
	seed, err := keytree.SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error = %v", err)
	}
	tree, err := keytree.FromSeed(seed, wallettypes.Testnet)
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}
	path, err := keytree.AccountPath(wallettypes.Testnet, wallettypes.P2WPKH, 0)
	if err != nil {
		t.Fatalf("AccountPath() error = %v", err)
	}
	account, err := tree.DerivePath(path)
	if err != nil {
		t.Fatalf("DerivePath() error = %v", err)
	}
	neutered, err := account.Neuter()
	if err != nil {
		t.Fatalf("Neuter() error = %v", err)
	}
	return neutered.ExtendedKey().String()
}

func TestParseValidTpub(t *testing.T) {
	tpub := testTpub(t)

	parsed, err := Parse(tpub, wallettypes.Testnet)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.Network() != wallettypes.Testnet {
		t.Fatalf("Network() = %v, want testnet", parsed.Network())
	}
	if parsed.Depth() != 3 {
		t.Fatalf("Depth() = %d, want 3", parsed.Depth())
	}
	if err := parsed.RequireDepth(3); err != nil {
		t.Fatalf("RequireDepth(3) error = %v", err)
	}
	if err := parsed.RequireDepth(4); err == nil {
		t.Fatalf("expected RequireDepth(4) to fail for a depth-3 key")
	}
}

func TestParseRejectsWrongNetwork(t *testing.T) {
	tpub := testTpub(t)
	if _, err := Parse(tpub, wallettypes.Mainnet); err == nil {
		t.Fatalf("expected network mismatch error parsing a testnet key as mainnet")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not-a-valid-extended-key", wallettypes.Testnet); err == nil {
		t.Fatalf("expected error parsing garbage input")
	}
}

func TestParseRejectsCorruptedChecksum(t *testing.T) {
	tpub := testTpub(t)
	truncated := tpub[:len(tpub)-4] + "aaaa"
	if _, err := Parse(truncated, wallettypes.Testnet); err == nil {
		t.Fatalf("expected checksum failure parsing a corrupted key")
	}
}

func TestDeriveAddressDeterministic(t *testing.T) {
	tpub := testTpub(t)
	parsed, err := Parse(tpub, wallettypes.Testnet)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	a, err := parsed.DeriveAddress(0, 0)
	if err != nil {
		t.Fatalf("DeriveAddress() error = %v", err)
	}
	b, err := parsed.DeriveAddress(0, 0)
	if err != nil {
		t.Fatalf("DeriveAddress() error = %v", err)
	}
	if a.Encoded != b.Encoded {
		t.Fatalf("DeriveAddress(0,0) not deterministic: %s != %s", a.Encoded, b.Encoded)
	}
	if a.Encoded == "" {
		t.Fatalf("DeriveAddress() produced an empty encoded address")
	}
}
