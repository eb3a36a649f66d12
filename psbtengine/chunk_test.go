package psbtengine

import (
	"strings"
	"testing"
)

// testTxid is the txid stamped into every chunk header in these tests.
const testTxid = "0000000000000000000000000000000000000000000000000000000000000001"

func TestChunkSplitsIntoExpectedCount(t *testing.T) {
	payload := strings.Repeat("a", 6200)
	chunks, err := Chunk(payload, testTxid, 2500)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("Chunk() produced %d chunks, want 3", len(chunks))
	}
}

func TestChunkReassembleRoundTrip(t *testing.T) {
	payload := strings.Repeat("b", 6200)
	chunks, err := Chunk(payload, testTxid, 2500)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	got, err := Reassemble(chunks)
	if err != nil {
		t.Fatalf("Reassemble() error = %v", err)
	}
	if got != payload {
		t.Fatalf("Reassemble() did not reproduce the original payload")
	}
}

func TestReassembleOutOfOrder(t *testing.T) {
	payload := strings.Repeat("c", 6200)
	chunks, err := Chunk(payload, testTxid, 2500)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	shuffled := []string{chunks[2], chunks[0], chunks[1]}
	got, err := Reassemble(shuffled)
	if err != nil {
		t.Fatalf("Reassemble() error = %v", err)
	}
	if got != payload {
		t.Fatalf("Reassemble() did not reproduce the original payload from out-of-order chunks")
	}
}

func TestReassembleDetectsMissingChunk(t *testing.T) {
	payload := strings.Repeat("d", 6200)
	chunks, err := Chunk(payload, testTxid, 2500)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	incomplete := []string{chunks[0], chunks[2]}
	if _, err := Reassemble(incomplete); err == nil {
		t.Fatalf("expected ChunkMissing error when chunk 2 of 3 is absent")
	}
}

func TestChunkQRProducesOneImagePerChunk(t *testing.T) {
	chunks, err := Chunk(strings.Repeat("e", 100), testTxid, 50)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	images, err := ChunkQR(chunks, 256)
	if err != nil {
		t.Fatalf("ChunkQR() error = %v", err)
	}
	if len(images) != len(chunks) {
		t.Fatalf("ChunkQR() produced %d images, want %d", len(images), len(chunks))
	}
	for i, img := range images {
		if len(img) == 0 {
			t.Fatalf("ChunkQR() image %d is empty", i)
		}
	}
}
