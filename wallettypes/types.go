package wallettypes

// DerivationStep is one index in a DerivationPath (§3).
type DerivationStep struct {
	Index    uint32
	Hardened bool
}

// DerivationPath is an ordered sequence of derivation steps, always
// relative to an implicit master node (§3).
type DerivationPath []DerivationStep

// Address is the bounded result of AddressCodec.encode/decode (§3
// Address). RedeemScript is populated for the P2SH-wrapped script types
// (P2SH-P2WPKH, P2SH-multisig, P2SH-P2WSH-multisig); WitnessScript only
// for the witness multisig types (P2WSH-multisig, P2SH-P2WSH-multisig).
type Address struct {
	Encoded        string
	Network        Network
	ScriptType     ScriptType
	ScriptPubKey   []byte
	Path           DerivationPath
	AddressIndex   uint32
	HasPath        bool
	RedeemScript   []byte
	WitnessScript  []byte
}

// UnspentOutput is a candidate coin as produced by the external
// UnspentProvider and consumed by UtxoPicker (§3 UnspentOutput).
type UnspentOutput struct {
	TxID          [32]byte
	OutputIndex   uint32
	Value         int64
	ScriptPubKey  []byte
	Confirmed     bool
	Path          DerivationPath
	HasPath       bool
	ScriptType    ScriptType
}

// Key returns the (prev-txid, prev-index) identity used to reject
// duplicate inputs (§3 Transaction invariant).
func (u UnspentOutput) Key() [36]byte {
	var k [36]byte
	copy(k[:32], u.TxID[:])
	k[32] = byte(u.OutputIndex)
	k[33] = byte(u.OutputIndex >> 8)
	k[34] = byte(u.OutputIndex >> 16)
	k[35] = byte(u.OutputIndex >> 24)
	return k
}
