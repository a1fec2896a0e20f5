package hasher

import "testing"

func TestRegistry_KnownAndUnknown(t *testing.T) {
	for _, name := range []string{ED2K, CRC32, MD5, SHA1, TTH} {
		if !Known(name) {
			t.Errorf("Known(%s) = false, want true", name)
		}
		if _, ok := New(name); !ok {
			t.Errorf("New(%s) ok = false, want true", name)
		}
	}
	if Known("rot13") {
		t.Error("Known(rot13) = true, want false")
	}
	if _, ok := New("rot13"); ok {
		t.Error("New(rot13) ok = true, want false")
	}
}

func TestNewSet_BuildsEachAndRejectsUnknown(t *testing.T) {
	set, err := NewSet([]string{CRC32, MD5})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("len(set) = %d, want 2", len(set))
	}

	if _, err := NewSet([]string{CRC32, "rot13"}); err == nil {
		t.Fatal("NewSet with unknown algorithm: want error, got nil")
	} else if _, ok := err.(*UnknownAlgorithmError); !ok {
		t.Fatalf("error type = %T, want *UnknownAlgorithmError", err)
	}
}
