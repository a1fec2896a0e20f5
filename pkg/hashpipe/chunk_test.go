package hashpipe

import (
	"testing"

	"github.com/kraklabs/anidbclient/pkg/hashpipe/hasher"
)

func TestPreferredChunkSize(t *testing.T) {
	cases := []struct {
		name       string
		algorithms []string
		configured int
		budget     int64
		want       int
	}{
		{"ed2k always wins", []string{hasher.CRC32, hasher.ED2K}, 4096, 0, ed2kChunkBytes},
		{"multi-algo floors to 1 MiB", []string{hasher.MD5, hasher.SHA1}, 4096, 0, multiAlgoFloorBytes},
		{"multi-algo keeps larger configured", []string{hasher.MD5, hasher.SHA1}, 2 << 20, 0, 2 << 20},
		{"single algo tight budget", []string{hasher.MD5}, looseChunkBytes, 50 << 20, tightChunkBytes},
		{"single algo loose-ish budget", []string{hasher.MD5}, looseChunkBytes, 150 << 20, looseChunkBytes},
		{"single algo no budget pressure", []string{hasher.MD5}, 8192, 0, 8192},
		{"zero configured defaults", []string{hasher.MD5}, 0, 0, looseChunkBytes},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := preferredChunkSize(c.algorithms, c.configured, c.budget); got != c.want {
				t.Errorf("preferredChunkSize() = %d, want %d", got, c.want)
			}
		})
	}
}
