// Package wallettypes holds the vocabulary shared by every component of the
// wallet cryptographic core: script-type tags, the closed error taxonomy,
// and the plain data shapes (addresses, UTXOs, transactions) that flow
// between KeyTree, AddressCodec, UtxoPicker, TxAssembler and PsbtEngine.
package wallettypes

import (
	"errors"
	"fmt"
)

// Kind is the closed taxonomy of error categories a fallible core
// operation can return. Callers should switch on Kind (or use
// errors.Is against a &CoreError{Kind: ...} target) rather than parsing
// error strings.
type Kind string

const (
	KindInvalidSeed           Kind = "invalid_seed"
	KindInvalidPath           Kind = "invalid_path"
	KindDepthMismatch         Kind = "depth_mismatch"
	KindNetworkMismatch       Kind = "network_mismatch"
	KindUnsupportedPrefix     Kind = "unsupported_prefix"
	KindPrivateKeyRejected    Kind = "private_key_rejected"
	KindInvalidAddress        Kind = "invalid_address"
	KindInvalidXpub           Kind = "invalid_xpub"
	KindInsufficientFunds     Kind = "insufficient_funds"
	KindDustOutput            Kind = "dust_output"
	KindExcessiveFee          Kind = "excessive_fee"
	KindFeeRateOutOfRange     Kind = "fee_rate_out_of_range"
	KindSignatureInvalid      Kind = "signature_invalid"
	KindNotEnoughSignatures   Kind = "not_enough_signatures"
	KindDuplicateInput        Kind = "duplicate_input"
	KindMultisigParamMismatch Kind = "multisig_param_mismatch"
	KindPsbtParseError        Kind = "psbt_parse_error"
	KindPsbtMergeMismatch     Kind = "psbt_merge_mismatch"
	KindChunkMissing          Kind = "chunk_missing"
	KindBuildFailed           Kind = "build_failed"
	KindProviderError         Kind = "provider_error"
)

// CoreError is the single error type every fallible operation in the core
// returns. It never carries key material, signatures, or seed bytes — only
// the structural context named in its Fields map (indices, counts, byte
// lengths).
type CoreError struct {
	Kind   Kind
	Detail string
	Fields map[string]any
	inner  error
}

func (e *CoreError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *CoreError) Unwrap() error { return e.inner }

// Is lets errors.Is(err, &CoreError{Kind: KindX}) match by Kind alone.
func (e *CoreError) Is(target error) bool {
	var ce *CoreError
	if errors.As(target, &ce) {
		return ce.Kind == e.Kind
	}
	return false
}

// New builds a CoreError of the given kind with a formatted detail string.
func New(kind Kind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds a CoreError of the given kind that preserves inner as its
// unwrap target, so errors.Is/errors.As against lower-level sentinels
// (e.g. hdkeychain.ErrInvalidSeed) still succeed.
func Wrap(kind Kind, inner error, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Detail: fmt.Sprintf(format, args...), inner: inner}
}

// WithFields attaches structural context (input indices, counts) used by
// callers that want machine-readable detail instead of parsing Detail.
func (e *CoreError) WithFields(fields map[string]any) *CoreError {
	e.Fields = fields
	return e
}

// ProviderError wraps an error surfaced verbatim from one of the §6.1
// external provider interfaces (KeyProvider, UnspentProvider, FeeProvider,
// Broadcaster). The core never retries; it passes the provider's error
// through unchanged, tagged with which provider produced it.
type ProviderError struct {
	ProviderKind string
	Inner        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %v", e.ProviderKind, e.Inner)
}

func (e *ProviderError) Unwrap() error { return e.Inner }

// NewProviderError tags an error from the named provider interface.
func NewProviderError(providerKind string, inner error) *ProviderError {
	return &ProviderError{ProviderKind: providerKind, Inner: inner}
}

// InsufficientFunds reports the shortfall between what candidate UTXOs
// could supply (Have) and what the operation required (Need), both in
// minimal units.
func InsufficientFunds(have, need int64) *CoreError {
	return New(KindInsufficientFunds, "have %d, need %d", have, need).WithFields(map[string]any{
		"have": have, "need": need,
	})
}

// DustOutput reports an output value below the dust floor.
func DustOutput(value int64) *CoreError {
	return New(KindDustOutput, "output value %d is below dust threshold %d", value, DustThreshold).
		WithFields(map[string]any{"value": value})
}

// ExcessiveFee reports a fee exceeding the configured percentage-of-input
// policy ceiling.
func ExcessiveFee(fee int64, pct float64) *CoreError {
	return New(KindExcessiveFee, "fee %d is %.1f%% of total input value", fee, pct).
		WithFields(map[string]any{"fee": fee, "pct": pct})
}

// NotEnoughSignatures reports a finalize attempt short of the M-of-N
// threshold.
func NotEnoughSignatures(have, need int) *CoreError {
	return New(KindNotEnoughSignatures, "have %d signatures, need %d", have, need).
		WithFields(map[string]any{"have": have, "need": need})
}

// MultisigParamMismatch reports a decoded script whose M does not match
// the caller's expectation.
func MultisigParamMismatch(expectedM, foundM int) *CoreError {
	return New(KindMultisigParamMismatch, "expected M=%d, found M=%d", expectedM, foundM).
		WithFields(map[string]any{"expectedM": expectedM, "foundM": foundM})
}

// ChunkMissing reports a gap in a chunked PSBT transport sequence.
func ChunkMissing(index int) *CoreError {
	return New(KindChunkMissing, "chunk %d missing from reassembly set", index).
		WithFields(map[string]any{"index": index})
}

// BuildFailed wraps any structural or cryptographic failure encountered
// while assembling a transaction. Per §4.4.2 the partial transaction is
// dropped on any such failure; there is no retry.
func BuildFailed(reason string) *CoreError {
	return New(KindBuildFailed, "%s", reason)
}
