package proto

import "testing"

func TestFMaskHex_FixedWidth(t *testing.T) {
	got := DefaultFMask.Hex()
	if len(got) != 10 {
		t.Errorf("FMask.Hex() length = %d, want 10", len(got))
	}
}

func TestAMaskHex_FixedWidth(t *testing.T) {
	got := DefaultAMask.Hex()
	if len(got) != 8 {
		t.Errorf("AMask.Hex() length = %d, want 8", len(got))
	}
}

func TestHex64_ZeroPads(t *testing.T) {
	if got, want := hex64(0, 4), "0000"; got != want {
		t.Errorf("hex64(0, 4) = %q, want %q", got, want)
	}
	if got, want := hex64(0xff, 4), "00ff"; got != want {
		t.Errorf("hex64(0xff, 4) = %q, want %q", got, want)
	}
}
