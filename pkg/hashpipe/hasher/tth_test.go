package hasher

import (
	"regexp"
	"testing"
)

var tthShape = regexp.MustCompile(`^[a-z2-7]{39}$`)

func TestTTH_PublishedBoundaryVectors(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "lwpnacqdbzryxw3vhjvcj64qbznghohhhzwclnq"},
		{"a", "czquwh3iyxbf5l3bgyugzhassmxu647ip2ike4y"},
	}
	for _, c := range cases {
		h := NewTTH()
		h.Update([]byte(c.in))
		if got := h.Finalize(); got != c.want {
			t.Errorf("TTH(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTTH_OutputShape(t *testing.T) {
	for _, in := range []string{"", "a", "test content"} {
		h := NewTTH()
		h.Update([]byte(in))
		got := h.Finalize()
		if !tthShape.MatchString(got) {
			t.Errorf("TTH(%q) = %q, want 39 chars in [a-z2-7]", in, got)
		}
	}
}

func TestTTH_Deterministic(t *testing.T) {
	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i)
	}
	h1 := NewTTH()
	h1.Update(data)
	a := h1.Finalize()

	h2 := NewTTH()
	h2.Update(data[:2000])
	h2.Update(data[2000:])
	b := h2.Finalize()

	if a != b {
		t.Errorf("TTH not chunk-size independent: %s != %s", a, b)
	}
}

func TestTTH_ExactLeafMultipleNoSpuriousLeaf(t *testing.T) {
	// A file of exactly one leaf (1024 bytes) must hash differently
	// than a file of exactly two leaves, and must not panic/empty out
	// from the exact-multiple edge case in Finalize.
	one := make([]byte, ttLeafSize)
	two := make([]byte, ttLeafSize*2)

	h1 := NewTTH()
	h1.Update(one)
	r1 := h1.Finalize()

	h2 := NewTTH()
	h2.Update(two)
	r2 := h2.Finalize()

	if r1 == r2 {
		t.Errorf("one-leaf and two-leaf TTH must differ, got %s for both", r1)
	}
	if !tthShape.MatchString(r1) || !tthShape.MatchString(r2) {
		t.Errorf("malformed TTH output: %s / %s", r1, r2)
	}
}

func TestTTH_EmptyFile(t *testing.T) {
	h := NewTTH()
	got := h.Finalize()
	if !tthShape.MatchString(got) {
		t.Errorf("TTH(empty) = %q, want 39 chars in [a-z2-7]", got)
	}
}
