package binfield

import (
	"math/big"
	"sync"
	"testing"

	"github.com/bearlytools/binfield/errors"
	"github.com/bearlytools/binfield/mapping"
)

func TestNewType(t *testing.T) {
	tests := []struct {
		desc      string
		options   []TypeOption
		wantFixed bool
		wantSize  int
		wantMask  int64
		err       error
	}{
		{
			desc: "Success: unbounded",
		},
		{
			desc:      "Success: size derives mask",
			options:   []TypeOption{WithSize(12)},
			wantFixed: true,
			wantSize:  12,
			wantMask:  0xfff,
		},
		{
			desc:      "Success: mask derives size",
			options:   []TypeOption{WithMask(big.NewInt(0b1010_0000))},
			wantFixed: true,
			wantSize:  8,
			wantMask:  0b1010_0000,
		},
		{
			desc:      "Success: size and mask",
			options:   []TypeOption{WithSize(16), WithMask(big.NewInt(0xf0))},
			wantFixed: true,
			wantSize:  16,
			wantMask:  0xf0,
		},
		{
			desc:    "Error: zero size",
			options: []TypeOption{WithSize(0)},
			err:     errors.ErrValue,
		},
		{
			desc:    "Error: negative size",
			options: []TypeOption{WithSize(-3)},
			err:     errors.ErrValue,
		},
		{
			desc:    "Error: negative mask",
			options: []TypeOption{WithMask(big.NewInt(-1))},
			err:     errors.ErrValue,
		},
		{
			desc:    "Error: nil mask",
			options: []TypeOption{WithMask(nil)},
			err:     errors.ErrType,
		},
		{
			desc:    "Error: mask wider than size",
			options: []TypeOption{WithSize(4), WithMask(big.NewInt(0xff))},
			err:     errors.ErrValue,
		},
		{
			desc:    "Error: overlapping mapping",
			options: []TypeOption{WithMapping(mapping.Decl{"a": mapping.Span(0, 4), "b": 3})},
			err:     errors.ErrLayout,
		},
	}

	for _, test := range tests {
		typ, err := NewType("Test", test.options...)
		switch {
		case err == nil && test.err != nil:
			t.Errorf("TestNewType(%s): got err == nil, want %s", test.desc, test.err)
			continue
		case err != nil && test.err == nil:
			t.Errorf("TestNewType(%s): got err == %s, want err == nil", test.desc, err)
			continue
		case err != nil:
			if !errors.Is(err, test.err) {
				t.Errorf("TestNewType(%s): got err == %s, want %s", test.desc, err, test.err)
			}
			continue
		}

		if typ.Fixed() != test.wantFixed {
			t.Errorf("TestNewType(%s): Fixed() got %v, want %v", test.desc, typ.Fixed(), test.wantFixed)
		}
		if typ.Size() != test.wantSize {
			t.Errorf("TestNewType(%s): Size() got %d, want %d", test.desc, typ.Size(), test.wantSize)
		}
		switch {
		case !test.wantFixed && typ.Mask() != nil:
			t.Errorf("TestNewType(%s): Mask() got %s, want nil", test.desc, typ.Mask())
		case test.wantFixed && typ.Mask().Int64() != test.wantMask:
			t.Errorf("TestNewType(%s): Mask() got %#x, want %#x", test.desc, typ.Mask(), test.wantMask)
		}
	}
}

func TestNewTypeNeedsName(t *testing.T) {
	if _, err := NewType(""); !errors.Is(err, errors.ErrValue) {
		t.Errorf("TestNewTypeNeedsName: got err == %v, want ValueError", err)
	}
}

func TestTypeString(t *testing.T) {
	typ := MustNewType("Header", WithSize(8), WithMapping(mapping.Decl{"lo": mapping.Span(0, 4), "hi": mapping.Span(4, 8)}))
	want := "Header<8 bits, 1 B, mask 0xff>{lo[0:4], hi[4:8]}"
	if got := typ.String(); got != want {
		t.Errorf("TestTypeString: got %q, want %q", got, want)
	}

	raw := MustNewType("Raw")
	if got := raw.String(); got != "Raw<unbounded>{}" {
		t.Errorf("TestTypeString(unbounded): got %q", got)
	}
}

func TestTypeCache(t *testing.T) {
	header := MustNewType("Header", WithSize(8), WithMapping(mapping.Decl{"lo": mapping.Span(0, 4), "hi": mapping.Span(4, 8)}))
	x := header.Zero()
	y := header.Zero()

	a, err := x.Get(Name("lo"))
	if err != nil {
		t.Fatalf("TestTypeCache: %s", err)
	}
	b, err := y.Get(Name("lo"))
	if err != nil {
		t.Fatalf("TestTypeCache: %s", err)
	}
	if a.Type() != b.Type() {
		t.Errorf("TestTypeCache: two reads of the same field built different Types")
	}
	if a.Type().Name() != "Header.lo" {
		t.Errorf("TestTypeCache: got name %q, want %q", a.Type().Name(), "Header.lo")
	}

	s1, _ := x.Slice(mapping.Span(0, 4))
	s2, _ := x.Slice(mapping.Span(0, 4))
	if s1.Type() != s2.Type() {
		t.Errorf("TestTypeCache: two identical slices built different Types")
	}
	if s1.Type() == a.Type() {
		t.Errorf("TestTypeCache: a positional slice and a named field shared a Type")
	}
	if s1.Type().Name() != "Header_slice_0_4" {
		t.Errorf("TestTypeCache: got slice name %q, want %q", s1.Type().Name(), "Header_slice_0_4")
	}

	other := MustNewType("Header", WithSize(8), WithMapping(mapping.Decl{"lo": mapping.Span(0, 4)}))
	c, _ := other.Zero().Get(Name("lo"))
	if c.Type() == a.Type() {
		t.Errorf("TestTypeCache: separate root Types shared a cache")
	}
}

func TestTypeCacheConcurrent(t *testing.T) {
	header := MustNewType("Header", WithSize(8), WithMapping(mapping.Decl{"lo": mapping.Span(0, 4), "hi": mapping.Span(4, 8)}))

	const n = 8
	got := make([]*Type, n)
	wg := sync.WaitGroup{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := header.MustNew(big.NewInt(int64(i)))
			lo, err := v.Get(Name("lo"))
			if err != nil {
				t.Errorf("TestTypeCacheConcurrent: %s", err)
				return
			}
			if _, err := v.Slice(mapping.Span(i%4, 4+i%4)); err != nil {
				t.Errorf("TestTypeCacheConcurrent: %s", err)
				return
			}
			got[i] = lo.Type()
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if got[i] != got[0] {
			t.Errorf("TestTypeCacheConcurrent: goroutine %d built its own Type for lo", i)
		}
	}
}
