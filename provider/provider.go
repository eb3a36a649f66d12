// Package provider declares the external boundary interfaces the core
// depends on but never implements itself (§6.1): sourcing candidate
// coins, current fee rates, broadcasting finished transactions, and
// supplying cryptographic randomness. Concrete implementations (e.g. an
// Electrum client) live outside this package and are injected by the
// caller — the core never reaches for a network socket on its own,
// mirroring the teacher's backend.go pattern of holding an electrum
// client behind a narrow interface rather than importing the RPC
// machinery into the signing path.
package provider

import (
	"context"

	"github.com/shieldwallet/walletcore/wallettypes"
)

// UnspentProvider sources spendable coins for a watched script. The core
// treats every returned UnspentOutput as untrusted input data, not as a
// cryptographic fact — ValidateAddress-equivalent checks happen in
// AddressCodec, not here.
type UnspentProvider interface {
	ListUnspent(ctx context.Context, scriptPubKey []byte) ([]wallettypes.UnspentOutput, error)
}

// FeeProvider reports a current network fee rate estimate for a target
// confirmation window, in minimal units per vbyte.
type FeeProvider interface {
	EstimateFeeRate(ctx context.Context, confirmationTarget int) (int64, error)
}

// Broadcaster submits a finalized, fully-witnessed raw transaction to
// the network.
type Broadcaster interface {
	Broadcast(ctx context.Context, rawTx []byte) (txid [32]byte, err error)
}

// KeyProvider supplies the private material needed to produce a
// signature for a given derivation path, without the caller ever holding
// the seed directly — e.g. an HSM or a hardware wallet bridge. No package
// in this module consumes it: TxAssembler signs through its own
// txassembler.Signer, which hands it the private key.
type KeyProvider interface {
	Sign(ctx context.Context, path wallettypes.DerivationPath, sigHash [32]byte) (signature []byte, pubKey []byte, err error)
}

// Rng is the injectable source of randomness UtxoPicker's Fisher-Yates
// shuffle uses (§4.4.1: "must use a cryptographically secure,
// injectable source of randomness... never math/rand's global
// generator"). Production callers wire crypto/rand; tests wire a fixed
// sequence of choices for reproducibility.
type Rng interface {
	// Intn returns a pseudo-random number in [0, n).
	Intn(n int) int
}
