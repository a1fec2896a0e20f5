package hasher

import (
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/md4"
)

// ed2kChunkSize is the fixed 9,728,000-byte partition size AniDB's
// "Red" ED2K variant hashes over (see spec §4.1).
const ed2kChunkSize = 9_728_000

// ed2kHasher implements the AniDB-compatible ("Red") two-level ED2K hash:
// partition the file into ed2kChunkSize chunks, MD4 each chunk, and MD4
// the concatenation of chunk digests — with a trailing MD4("") appended
// to the concatenation whenever the file size is an exact multiple of
// the chunk size. A file of at most one chunk is just that chunk's MD4,
// with no wrapping.
//
// golang.org/x/crypto/md4 is already a teacher dependency (identity.go
// imports the sibling curve25519 package from the same module), so this
// stays a single-module addition rather than a new one.
type ed2kHasher struct {
	cur     hash.Hash // active chunk hasher (MD4)
	curSize int64     // bytes written to cur since the last chunk boundary
	chunks  [][]byte  // completed chunk digests, in file order
}

// NewED2K returns a fresh ED2K (Red) streaming hasher.
func NewED2K() StreamHasher {
	h := &ed2kHasher{cur: md4.New()}
	return h
}

func (e *ed2kHasher) Name() string { return ED2K }

func (e *ed2kHasher) Reset() {
	e.cur = md4.New()
	e.curSize = 0
	e.chunks = nil
}

func (e *ed2kHasher) Update(chunk []byte) {
	for len(chunk) > 0 {
		room := ed2kChunkSize - e.curSize
		n := int64(len(chunk))
		if n > room {
			n = room
		}
		e.cur.Write(chunk[:n])
		e.curSize += n
		chunk = chunk[n:]

		if e.curSize == ed2kChunkSize {
			e.chunks = append(e.chunks, e.cur.Sum(nil))
			e.cur = md4.New()
			e.curSize = 0
		}
	}
}

func (e *ed2kHasher) Finalize() string {
	switch {
	case len(e.chunks) == 0:
		// File is at most one chunk: its MD4 is the whole answer.
		return hex.EncodeToString(e.cur.Sum(nil))
	case len(e.chunks) == 1 && e.curSize == 0:
		// Exactly one full chunk and nothing more: no wrapping.
		return hex.EncodeToString(e.chunks[0])
	default:
		// Two or more chunks: MD4 of the concatenated chunk digests,
		// with the trailing chunk's digest (MD4("") when curSize==0,
		// i.e. the file size is an exact multiple of the chunk size)
		// appended per the Red rule.
		var buf []byte
		for _, c := range e.chunks {
			buf = append(buf, c...)
		}
		buf = append(buf, e.cur.Sum(nil)...)
		final := md4.New()
		final.Write(buf)
		return hex.EncodeToString(final.Sum(nil))
	}
}
