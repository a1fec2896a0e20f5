package hasher

import (
	"encoding/base32"
	"strings"

	"github.com/kraklabs/anidbclient/pkg/hashpipe/hasher/tiger"
)

// ttLeafSize is the TTH leaf size: each 1024-byte leaf is Tiger-hashed
// with a leading leaf marker byte.
const ttLeafSize = 1024

const (
	leafMarker     = 0x00
	internalMarker = 0x01
)

// ttHasher computes a Tiger-Tree Hash: leaves are Tiger(leafMarker||data)
// over 1024-byte windows, combined pairwise upward with
// Tiger(internalMarker||left||right); an odd leaf at any level carries
// forward unchanged. The root is base32 (lowercase, no padding).
type ttHasher struct {
	buf    []byte   // bytes of the current, not-yet-full leaf
	leaves [][]byte // completed leaf digests, in file order
}

// NewTTH returns a fresh Tiger-Tree Hash streaming hasher.
func NewTTH() StreamHasher {
	return &ttHasher{}
}

func (t *ttHasher) Name() string { return TTH }

func (t *ttHasher) Reset() {
	t.buf = nil
	t.leaves = nil
}

func (t *ttHasher) Update(chunk []byte) {
	t.buf = append(t.buf, chunk...)
	for len(t.buf) >= ttLeafSize {
		t.leaves = append(t.leaves, hashLeaf(t.buf[:ttLeafSize]))
		t.buf = t.buf[ttLeafSize:]
	}
}

func (t *ttHasher) Finalize() string {
	leaves := append([][]byte(nil), t.leaves...)
	switch {
	case len(t.buf) > 0:
		// Trailing partial leaf.
		leaves = append(leaves, hashLeaf(t.buf))
	case len(leaves) == 0:
		// Empty file: a single empty leaf is the whole tree.
		leaves = append(leaves, hashLeaf(nil))
	default:
		// buf is empty and at least one full leaf was already recorded:
		// the file size is an exact multiple of the leaf size and that
		// last full leaf is already in t.leaves — nothing to add.
	}

	root := reduce(leaves)
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return strings.ToLower(enc.EncodeToString(root))
}

func hashLeaf(data []byte) []byte {
	h := tiger.New()
	h.Write([]byte{leafMarker})
	h.Write(data)
	return h.Sum(nil)
}

func hashInternal(left, right []byte) []byte {
	h := tiger.New()
	h.Write([]byte{internalMarker})
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// reduce combines a level of digests pairwise until a single root digest
// remains. An odd digest at the end of a level carries forward unchanged.
func reduce(level [][]byte) []byte {
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		i := 0
		for ; i+1 < len(level); i += 2 {
			next = append(next, hashInternal(level[i], level[i+1]))
		}
		if i < len(level) {
			next = append(next, level[i])
		}
		level = next
	}
	return level[0]
}
