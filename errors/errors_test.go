package errors

import (
	"fmt"
	"testing"
)

func TestIs(t *testing.T) {
	tests := []struct {
		desc   string
		err    error
		target error
		want   bool
	}{
		{desc: "same kind", err: E(KindLayout, "overlap at bit %d", 3), target: ErrLayout, want: true},
		{desc: "different kind", err: E(KindLayout, "overlap"), target: ErrIndex, want: false},
		{desc: "wrapped by fmt", err: fmt.Errorf("outer: %w", E(KindOverflow, "too big")), target: ErrOverflow, want: true},
		{desc: "Wrap", err: Wrap(KindValue, New("bad digit"), "parsing %q", "0xZZ"), target: ErrValue, want: true},
		{desc: "plain error", err: New("plain"), target: ErrValue, want: false},
	}

	for _, test := range tests {
		if got := Is(test.err, test.target); got != test.want {
			t.Errorf("TestIs(%s): got %v, want %v", test.desc, got, test.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(E(KindSerialization, "nope")); got != KindSerialization {
		t.Errorf("TestKindOf: got %v, want %v", got, KindSerialization)
	}
	if got := KindOf(New("plain")); got != KindUnknown {
		t.Errorf("TestKindOf(plain): got %v, want %v", got, KindUnknown)
	}
	if got := Wrap(KindType, nil, "nothing"); got != nil {
		t.Errorf("TestKindOf(Wrap nil): got %v, want nil", got)
	}
}

func TestErrorString(t *testing.T) {
	err := E(KindIndex, "field %q not found", "lo")
	want := `IndexError: field "lo" not found`
	if err.Error() != want {
		t.Errorf("TestErrorString: got %q, want %q", err.Error(), want)
	}
	if ErrLayout.Error() != "LayoutError" {
		t.Errorf("TestErrorString(sentinel): got %q, want %q", ErrLayout.Error(), "LayoutError")
	}
}

func TestJoinUnwrap(t *testing.T) {
	joined := Join(New("plain"), nil, E(KindIndex, "no field %q", "x"))
	if !Is(joined, ErrIndex) {
		t.Errorf("TestJoinUnwrap: Join() lost the IndexError")
	}
	if Join(nil, nil) != nil {
		t.Errorf("TestJoinUnwrap: Join(nil, nil) != nil")
	}

	base := New("bad digit")
	wrapped := Wrap(KindValue, base, "parsing")
	if Unwrap(wrapped) == nil {
		t.Errorf("TestJoinUnwrap: Unwrap() returned nil")
	}
	if !Is(wrapped, base) {
		t.Errorf("TestJoinUnwrap: wrapped error does not match its cause")
	}
}
