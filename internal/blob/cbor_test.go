package blob

import "testing"

type titles struct {
	Main string   `cbor:"main"`
	Alts []string `cbor:"alts"`
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	want := titles{Main: "Cowboy Bebop", Alts: []string{"CB", "カウボーイビバップ"}}
	data, err := Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got titles
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Main != want.Main || len(got.Alts) != len(want.Alts) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	v := titles{Main: "x", Alts: []string{"a", "b"}}
	a, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	b, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Error("canonical encoding should be deterministic across calls")
	}
}
