// Package utxopicker implements §4.4.1 UtxoPicker. It REDESIGNS the
// teacher's wallet/transaction.go SelectUTXOs, which always picks
// largest-value coins first — a deterministic, fingerprintable ordering
// the DESIGN NOTES flag as a wallet-clustering privacy leak. This
// implementation instead applies a Fisher-Yates shuffle to the candidate
// set before accumulating, using an injectable provider.Rng so tests can
// force a reproducible order, while production callers wire
// crypto/rand. The accumulation logic (fee-with-change vs.
// fee-without-change, dust-change absorption) still follows the
// teacher's estimateFee/SelectUTXOs vbyte math.
package utxopicker

import (
	"github.com/shieldwallet/walletcore/provider"
	"github.com/shieldwallet/walletcore/wallettypes"
)

// Selection is the outcome of a successful pick: the chosen inputs, the
// fee they must pay, and whether a change output is warranted.
type Selection struct {
	Inputs      []wallettypes.UnspentOutput
	Fee         int64
	Change      int64
	HasChange   bool
	VSize       int
}

// Shuffle returns a new slice holding candidates in Fisher-Yates shuffled
// order (§4.4.1: "shuffle candidate UTXOs with a cryptographically
// secure, injectable source of randomness before selecting").
func Shuffle(candidates []wallettypes.UnspentOutput, rng provider.Rng) []wallettypes.UnspentOutput {
	out := make([]wallettypes.UnspentOutput, len(candidates))
	copy(out, candidates)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Select accumulates shuffled candidates until their total covers
// targetValue plus fees, preferring to absorb small leftovers into the
// fee (no change output) over creating a dust change output, and
// otherwise adding a change output of the given script type (§4.4.1
// select). It fails with InsufficientFunds if every candidate is
// exhausted without reaching the target.
func Select(candidates []wallettypes.UnspentOutput, targetValue int64, feeRateSatPerVByte int64, recipientType, changeType wallettypes.ScriptType, rng provider.Rng) (*Selection, error) {
	if targetValue <= 0 {
		return nil, wallettypes.New(wallettypes.KindBuildFailed, "target value must be positive, got %d", targetValue)
	}

	shuffled := Shuffle(candidates, rng)

	var selected []wallettypes.UnspentOutput
	var total int64
	hasWitnessInput := false

	for _, u := range shuffled {
		selected = append(selected, u)
		total += u.Value
		if u.ScriptType.IsWitness() {
			hasWitnessInput = true
		}

		vsizeNoChange := vsizeFor(selected, recipientType, hasWitnessInput, false)
		feeNoChange := wallettypes.EstimateFee(vsizeNoChange, feeRateSatPerVByte)
		if total < targetValue+feeNoChange {
			continue
		}

		vsizeWithChange := vsizeFor(selected, recipientType, hasWitnessInput, true) + wallettypes.OutputVBytes(changeType)
		feeWithChange := wallettypes.EstimateFee(vsizeWithChange, feeRateSatPerVByte)
		change := total - targetValue - feeWithChange

		if change >= wallettypes.DustThreshold {
			return &Selection{Inputs: selected, Fee: feeWithChange, Change: change, HasChange: true, VSize: vsizeWithChange}, nil
		}

		// Leftover too small to justify a change output: absorb it into
		// the fee instead of creating dust (§6.3 dust policy).
		return &Selection{Inputs: selected, Fee: total - targetValue, HasChange: false, VSize: vsizeNoChange}, nil
	}

	lastVSize := vsizeFor(selected, recipientType, hasWitnessInput, false)
	need := targetValue + wallettypes.EstimateFee(lastVSize, feeRateSatPerVByte)
	return nil, wallettypes.InsufficientFunds(total, need)
}

func vsizeFor(inputs []wallettypes.UnspentOutput, recipientType wallettypes.ScriptType, hasWitness, _ bool) int {
	vsize := wallettypes.TxOverheadVBytes + wallettypes.OutputVBytes(recipientType)
	for _, in := range inputs {
		if in.ScriptType.IsMultisig() {
			// UnspentOutput carries no M/N, so every multisig input is
			// sized as 2-of-3; inputs locked to a larger M or N are
			// estimated below their real size.
			vsize += wallettypes.MultisigInputVBytes(in.ScriptType, 2, 3)
			continue
		}
		vsize += wallettypes.InputVBytes(in.ScriptType)
	}
	if hasWitness {
		vsize += wallettypes.SegwitMarkerFlagVBytes
	}
	return vsize
}
