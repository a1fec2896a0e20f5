package hasher

import "testing"

func TestED2K_KnownVectors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "31d6cfe0d16ae931b73c59d7e0c089c0"},
		{"a", "a", "bde52cb31de33e46245e05fbdbd6fb24"},
		{"test content", "test content", "a69899814931280e2f527219ad6ac754"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := NewED2K()
			h.Update([]byte(c.in))
			if got := h.Finalize(); got != c.want {
				t.Errorf("ED2K(%q) = %s, want %s", c.in, got, c.want)
			}
		})
	}
}

func TestED2K_ExactlyOneChunk(t *testing.T) {
	h := NewED2K()
	buf := make([]byte, ed2kChunkSize)
	h.Update(buf)
	single := h.Finalize()

	// A one-chunk file's ED2K must equal the chunk's bare MD4 (no
	// concatenation/wrapping), so it must differ from what two
	// identical chunks would produce.
	h2 := NewED2K()
	h2.Update(buf)
	h2.Update(buf)
	double := h2.Finalize()
	if single == double {
		t.Fatalf("one-chunk and two-chunk ED2K values must differ, got %s for both", single)
	}
}

func TestED2K_ResetAndStreamingChunksAgree(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	whole := NewED2K()
	whole.Update(data)
	want := whole.Finalize()

	streamed := NewED2K()
	for i := 0; i < len(data); i += 7 {
		end := i + 7
		if end > len(data) {
			end = len(data)
		}
		streamed.Update(data[i:end])
	}
	if got := streamed.Finalize(); got != want {
		t.Errorf("streamed ED2K = %s, want %s", got, want)
	}

	streamed.Reset()
	streamed.Update(data)
	if got := streamed.Finalize(); got != want {
		t.Errorf("ED2K after Reset = %s, want %s", got, want)
	}
}

func TestED2K_Name(t *testing.T) {
	if NewED2K().Name() != ED2K {
		t.Errorf("Name() = %s, want %s", NewED2K().Name(), ED2K)
	}
}
