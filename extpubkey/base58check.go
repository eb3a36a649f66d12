package extpubkey

import (
	"bytes"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/shieldwallet/walletcore/wallettypes"
)

// checksum is the standard Bitcoin base58check checksum: the first 4
// bytes of double-SHA-256 over the payload.
func checksum(payload []byte) [4]byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	var out [4]byte
	copy(out[:], second[:4])
	return out
}

// decodeBase58Check decodes an extended-key string into its 4-byte
// version prefix and the 74-byte payload that follows (depth +
// fingerprint + child index + chain code + key material), verifying the
// trailing checksum. This generalizes the teacher's hand-rolled
// wallet/keys.go decodeBase58Check to use btcutil/base58's alphabet
// arithmetic instead of a manual big-integer loop.
func decodeBase58Check(s string) (version [4]byte, payload []byte, err error) {
	decoded := base58.Decode(s)
	if len(decoded) != 82 {
		return version, nil, wallettypes.New(wallettypes.KindInvalidXpub,
			"decoded length %d, want 82", len(decoded))
	}
	body, sum := decoded[:78], decoded[78:]
	want := checksum(body)
	if !bytes.Equal(want[:], sum) {
		return version, nil, wallettypes.New(wallettypes.KindInvalidXpub, "checksum mismatch")
	}
	copy(version[:], body[:4])
	return version, body[4:], nil
}

// encodeBase58Check re-serializes a version prefix and 74-byte payload
// into the standard base58check string form.
func encodeBase58Check(version [4]byte, payload []byte) string {
	body := make([]byte, 0, 78)
	body = append(body, version[:]...)
	body = append(body, payload...)
	sum := checksum(body)
	body = append(body, sum[:]...)
	return base58.Encode(body)
}
