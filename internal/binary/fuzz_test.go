package binary

import (
	"bytes"
	"testing"
)

// FuzzRoundTrip checks that Get followed by Put returns the input bytes.
func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte{0})
	f.Add([]byte{255})
	f.Add([]byte{0, 128})
	f.Add([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) < 1 {
			return
		}
		x := Get(data)

		out := make([]byte, len(data))
		if err := Put(out, x); err != nil {
			t.Fatalf("FuzzRoundTrip: Put(%s): %s", x, err)
		}
		if !bytes.Equal(out, data) {
			t.Errorf("FuzzRoundTrip: round-trip failed: got %v, want %v", out, data)
		}
	})
}
