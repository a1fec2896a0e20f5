// Package blob provides canonical CBOR encoding for auxiliary store columns
// (structured fields that are never queried by field, only round-tripped).
package blob

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// canonicalMode is a deterministic CBOR encoding mode: stable key order,
// no indefinite-length items, so identical values always produce identical
// bytes (useful for idempotent upserts that compare blob columns).
var canonicalMode cbor.EncMode

func init() {
	var err error
	canonicalMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("blob: failed to build canonical CBOR mode: %v", err))
	}
}

// Marshal encodes v into canonical CBOR bytes.
func Marshal(v interface{}) ([]byte, error) {
	return canonicalMode.Marshal(v)
}

// Unmarshal decodes canonical CBOR bytes into v.
func Unmarshal(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}
