package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"hash/crc32"
)

// simpleHasher adapts a standard library hash.Hash (CRC32, MD5, SHA1 are
// all the idiomatic stdlib choice here — these are standard algorithms
// with no ecosystem alternative worth pulling in) to the StreamHasher
// capability set.
type simpleHasher struct {
	name string
	new  func() hash.Hash
	h    hash.Hash
}

func newSimple(name string, new func() hash.Hash) *simpleHasher {
	return &simpleHasher{name: name, new: new, h: new()}
}

func (s *simpleHasher) Update(chunk []byte) { s.h.Write(chunk) }

func (s *simpleHasher) Finalize() string {
	return hex.EncodeToString(s.h.Sum(nil))
}

func (s *simpleHasher) Reset() { s.h = s.new() }

func (s *simpleHasher) Name() string { return s.name }

// NewCRC32 returns a streaming CRC-32 (IEEE polynomial) hasher producing
// lowercase hex digests.
func NewCRC32() StreamHasher {
	return newSimple(CRC32, func() hash.Hash { return crc32.NewIEEE() })
}

// NewMD5 returns a streaming MD5 hasher producing lowercase hex digests.
func NewMD5() StreamHasher {
	return newSimple(MD5, md5.New)
}

// NewSHA1 returns a streaming SHA-1 hasher producing lowercase hex digests.
func NewSHA1() StreamHasher {
	return newSimple(SHA1, sha1.New)
}
