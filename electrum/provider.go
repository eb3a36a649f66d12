package electrum

import (
	"context"
	"encoding/hex"

	"github.com/shieldwallet/walletcore/wallettypes"
)

// Adapter wraps a Client to satisfy the core's provider.UnspentProvider,
// provider.FeeProvider and provider.Broadcaster interfaces (§6.1). This
// is the only concrete network client the core ships with; it is kept
// adapted rather than deleted precisely because those interfaces exist
// to be implemented by something, and an Electrum server is the
// teacher's own choice of backend (backend.go's getClient).
type Adapter struct {
	client *Client
}

// NewAdapter wraps an already-connected Client.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

// ListUnspent queries blockchain.scripthash.listunspent for the given
// locking script and converts Electrum's UTXO shape into
// wallettypes.UnspentOutput. The returned outputs carry no derivation
// Path — the caller, which knows which Contact or KeyTree node the
// scriptPubKey belongs to, is responsible for attaching one.
func (a *Adapter) ListUnspent(ctx context.Context, scriptPubKey []byte) ([]wallettypes.UnspentOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scripthash := AddressToScriptHash(scriptPubKey)
	utxos, err := a.client.ListUnspent(scripthash)
	if err != nil {
		return nil, wallettypes.NewProviderError("electrum", err)
	}

	out := make([]wallettypes.UnspentOutput, 0, len(utxos))
	for _, u := range utxos {
		txid, err := decodeTxid(u.TxHash)
		if err != nil {
			return nil, wallettypes.NewProviderError("electrum", err)
		}
		out = append(out, wallettypes.UnspentOutput{
			TxID:         txid,
			OutputIndex:  uint32(u.TxPos),
			Value:        u.Value,
			ScriptPubKey: scriptPubKey,
			Confirmed:    u.Height > 0,
		})
	}
	return out, nil
}

// EstimateFeeRate converts Electrum's blockchain.estimatefee response
// (BTC per kilobyte) into minimal-units-per-vbyte, the unit every other
// core component expects (§6.3 fee rate unit). A non-positive response
// (the server has insufficient data for the requested confirmation
// target) and any rate below wallettypes.MinRelayFeeRate both return
// wallettypes.MinRelayFeeRate.
func (a *Adapter) EstimateFeeRate(ctx context.Context, confirmationTarget int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	btcPerKB, err := a.client.EstimateFee(confirmationTarget)
	if err != nil {
		return 0, wallettypes.NewProviderError("electrum", err)
	}
	if btcPerKB <= 0 {
		return wallettypes.MinRelayFeeRate, nil
	}
	satPerVByte := int64(btcPerKB * 100_000)
	if satPerVByte < wallettypes.MinRelayFeeRate {
		return wallettypes.MinRelayFeeRate, nil
	}
	return satPerVByte, nil
}

// Broadcast submits a raw transaction and returns its txid.
func (a *Adapter) Broadcast(ctx context.Context, rawTx []byte) ([32]byte, error) {
	var zero [32]byte
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	txidHex, err := a.client.BroadcastTransaction(hex.EncodeToString(rawTx))
	if err != nil {
		return zero, wallettypes.NewProviderError("electrum", err)
	}
	return decodeTxid(txidHex)
}

// decodeTxid parses Electrum's display-order (big-endian) hex txid into
// the internal little-endian byte order wire.OutPoint expects.
func decodeTxid(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, wallettypes.New(wallettypes.KindProviderError, "txid %q decodes to %d bytes, want 32", s, len(raw))
	}
	for i, j := 0, len(raw)-1; i < j; i, j = i+1, j-1 {
		raw[i], raw[j] = raw[j], raw[i]
	}
	copy(out[:], raw)
	return out, nil
}
