// Package hasher implements the streaming hash algorithm registry: a map
// from algorithm name to a constructor for a stateful streaming hasher,
// treated as a tagged union rather than a class hierarchy (see the design
// notes on the registry). Five variants are required: ED2K, CRC32, MD5,
// SHA1, TTH.
package hasher

// StreamHasher is the capability set every registered algorithm satisfies:
// update, finalize, reset, name. Input may arrive in arbitrarily sized
// chunks; Reset returns the hasher to its empty state.
type StreamHasher interface {
	// Update feeds the next chunk of file data into the hasher.
	Update(chunk []byte)
	// Finalize computes the hex/base32-encoded digest for everything
	// written so far. It does not reset the hasher.
	Finalize() string
	// Reset returns the hasher to its initial, empty-input state.
	Reset()
	// Name returns the registered algorithm name (e.g. "ed2k", "tth").
	Name() string
}

// Names of the required algorithms, used both as registry keys and as
// the Hash.Algorithm column value in the store.
const (
	ED2K  = "ed2k"
	CRC32 = "crc32"
	MD5   = "md5"
	SHA1  = "sha1"
	TTH   = "tth"
)

// registry maps an algorithm name to a constructor for a fresh hasher.
var registry = map[string]func() StreamHasher{
	ED2K:  func() StreamHasher { return NewED2K() },
	CRC32: func() StreamHasher { return NewCRC32() },
	MD5:   func() StreamHasher { return NewMD5() },
	SHA1:  func() StreamHasher { return NewSHA1() },
	TTH:   func() StreamHasher { return NewTTH() },
}

// New constructs a fresh streaming hasher for the named algorithm. It
// reports ok=false for unregistered names rather than panicking, so
// callers (pipeline construction, CLI flag validation) can surface a
// Validation error instead of crashing.
func New(name string) (h StreamHasher, ok bool) {
	ctor, ok := registry[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// NewSet constructs one fresh hasher per named algorithm, keyed by name.
// The returned map carries no order; callers that need a fixed update
// order keep their own name slice (the hashing stage does). Per spec,
// that order must not affect the output of any individual algorithm.
func NewSet(names []string) (map[string]StreamHasher, error) {
	set := make(map[string]StreamHasher, len(names))
	for _, name := range names {
		h, ok := New(name)
		if !ok {
			return nil, &UnknownAlgorithmError{Name: name}
		}
		set[name] = h
	}
	return set, nil
}

// Known reports whether name is a registered algorithm.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// UnknownAlgorithmError is returned when a requested algorithm name has
// no registered constructor.
type UnknownAlgorithmError struct {
	Name string
}

func (e *UnknownAlgorithmError) Error() string {
	return "hasher: unknown algorithm " + e.Name
}
