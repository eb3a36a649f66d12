package psbtengine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/shieldwallet/walletcore/wallettypes"
)

// chunkHeaderFormat tags every chunk with its 1-based index, the total
// chunk count, and the txid of the PSBT it was cut from, so Reassemble
// can detect gaps, reject chunks from two different PSBTs being mixed
// together, and reorder out-of-order scans (§4.5 chunk/reassemble).
const chunkHeaderFormat = "%d/%d/%s:"

// Chunk splits a base64-encoded PSBT into pieces no larger than
// maxBytes (payload only — the header prefix is additional), each
// suitable for one QR code, per §4.5 chunk. txid should be the PSBT's
// own transaction id (ExportResult.Txid), stamped into every chunk so a
// later Reassemble call can refuse to stitch together chunks that
// scanned from two unrelated PSBTs. It grounds the QR rendering itself
// on the teacher's path_wallet_qr.go use of skip2/go-qrcode.
func Chunk(b64, txid string, maxBytes int) ([]string, error) {
	if maxBytes <= 0 {
		return nil, wallettypes.New(wallettypes.KindBuildFailed, "maxBytes must be positive, got %d", maxBytes)
	}
	total := (len(b64) + maxBytes - 1) / maxBytes
	if total == 0 {
		total = 1
	}
	chunks := make([]string, 0, total)
	for i := 0; i < total; i++ {
		start := i * maxBytes
		end := start + maxBytes
		if end > len(b64) {
			end = len(b64)
		}
		chunks = append(chunks, fmt.Sprintf(chunkHeaderFormat, i+1, total, txid)+b64[start:end])
	}
	return chunks, nil
}

// ChunkQR renders each chunk produced by Chunk as a PNG-encoded QR code
// at the given pixel size, mirroring the teacher's qrcode.Encode call in
// path_wallet_qr.go.
func ChunkQR(chunks []string, size int) ([][]byte, error) {
	images := make([][]byte, 0, len(chunks))
	for i, c := range chunks {
		png, err := qrcode.Encode(c, qrcode.Medium, size)
		if err != nil {
			return nil, wallettypes.Wrap(wallettypes.KindBuildFailed, err, "failed to render chunk %d as a QR code", i+1)
		}
		images = append(images, png)
	}
	return images, nil
}

// Reassemble inverts Chunk: given a set of scanned chunks (in any
// order, each still carrying its "i/n/txid:" header), it reconstructs
// the original base64 PSBT string. It fails with ChunkMissing if any
// index from 1..n was never scanned, if a chunk's total disagrees with
// the rest, if two chunks carry the same index with different payloads
// (a duplicate scan is tolerated; a conflicting one is not), or if any
// chunk's txid disagrees with the group's — the guard against chunks
// from two different PSBTs being mixed together (§4.5 reassemble: "no
// indices are missing or duplicated").
func Reassemble(chunks []string) (string, error) {
	if len(chunks) == 0 {
		return "", wallettypes.New(wallettypes.KindChunkMissing, "no chunks provided")
	}
	type piece struct {
		index int
		total int
		txid  string
		data  string
	}
	pieces := make([]piece, 0, len(chunks))
	var total int
	var txid string
	for _, c := range chunks {
		idx, n, tx, data, err := parseChunk(c)
		if err != nil {
			return "", err
		}
		if total == 0 {
			total, txid = n, tx
		} else if n != total {
			return "", wallettypes.New(wallettypes.KindChunkMissing, "inconsistent chunk total: saw both %d and %d", total, n)
		} else if tx != txid {
			return "", wallettypes.New(wallettypes.KindChunkMissing, "chunk %d belongs to a different PSBT (txid %s, expected %s)", idx, tx, txid)
		}
		pieces = append(pieces, piece{index: idx, total: n, txid: tx, data: data})
	}

	sort.Slice(pieces, func(i, j int) bool { return pieces[i].index < pieces[j].index })

	seen := make(map[int]string, len(pieces))
	for _, p := range pieces {
		if prior, ok := seen[p.index]; ok {
			if prior != p.data {
				return "", wallettypes.New(wallettypes.KindChunkMissing, "index %d was scanned twice with conflicting payloads", p.index)
			}
			continue
		}
		seen[p.index] = p.data
	}
	var sb strings.Builder
	for i := 1; i <= total; i++ {
		data, ok := seen[i]
		if !ok {
			return "", wallettypes.ChunkMissing(i)
		}
		sb.WriteString(data)
	}
	return sb.String(), nil
}

func parseChunk(c string) (index, total int, txid, data string, err error) {
	colon := strings.IndexByte(c, ':')
	if colon < 0 {
		return 0, 0, "", "", wallettypes.New(wallettypes.KindChunkMissing, "chunk is missing the index prefix")
	}
	header := c[:colon]
	data = c[colon+1:]
	fields := strings.Split(header, "/")
	if len(fields) != 3 {
		return 0, 0, "", "", wallettypes.New(wallettypes.KindChunkMissing, "chunk header %q is malformed", header)
	}
	index, err1 := strconv.Atoi(fields[0])
	total, err2 := strconv.Atoi(fields[1])
	txid = fields[2]
	if err1 != nil || err2 != nil || index < 1 || total < 1 || index > total || txid == "" {
		return 0, 0, "", "", wallettypes.New(wallettypes.KindChunkMissing, "chunk header %q is malformed", header)
	}
	return index, total, txid, data, nil
}
