package binfield

import (
	"fmt"
	"math/big"

	"github.com/bearlytools/binfield/errors"
	"github.com/bearlytools/binfield/internal/binary"
	"github.com/bearlytools/binfield/internal/bits"
	"github.com/bearlytools/binfield/mapping"
	"github.com/dustin/go-humanize"
	"github.com/gostdlib/base/concurrency/sync"
	"github.com/sirupsen/logrus"
)

// Type describes a family of Values: their size, mask and field layout. A Type's layout never
// changes once created and a Type may be shared between goroutines. Values are not safe for
// concurrent use.
type Type struct {
	name string
	// fixed is set when the Type has a fixed bit size, either given or derived from a mask.
	fixed bool
	size  int
	// mask is nil when the Type is unbounded.
	mask    *big.Int
	mapping *mapping.Map

	// cache is owned by the root Type and shared by every Type derived from it.
	cache *typeCache
}

type cacheKey struct {
	mask    string
	start   int
	name    string
	mapping *mapping.Map
}

// typeCache memoizes the Types created for sub-views so that identical slices reuse the
// same Type.
type typeCache struct {
	mu    sync.Mutex
	types map[cacheKey]*Type
}

// typeOptions holds the options provided to NewType.
type typeOptions struct {
	size    int
	hasSize bool
	mask    *big.Int
	hasMask bool
	mapping *mapping.Map
}

// TypeOption is an optional argument to NewType.
type TypeOption func(typeOptions) (typeOptions, error)

// WithSize fixes the Type to n bits. n must be > 0. If no mask is given, the mask becomes the
// low n bits.
func WithSize(n int) TypeOption {
	return func(o typeOptions) (typeOptions, error) {
		if n <= 0 {
			return o, errors.E(errors.KindValue, "size must be a positive number of bits, got %d", n)
		}
		o.size = n
		o.hasSize = true
		return o, nil
	}
}

// WithMask restricts the Type to the bits set in m. m must be >= 0. If no size is given,
// the size becomes m's bit length.
func WithMask(m *big.Int) TypeOption {
	return func(o typeOptions) (typeOptions, error) {
		if m == nil {
			return o, errors.E(errors.KindType, "mask must be an integer, got nil")
		}
		if m.Sign() < 0 {
			return o, errors.E(errors.KindValue, "mask cannot be negative, got %s", m)
		}
		o.mask = new(big.Int).Set(m)
		o.hasMask = true
		return o, nil
	}
}

// WithMapping validates d and uses it as the Type's field layout.
func WithMapping(d mapping.Decl) TypeOption {
	return func(o typeOptions) (typeOptions, error) {
		m, err := mapping.Prepare(d)
		if err != nil {
			return o, err
		}
		o.mapping = m
		return o, nil
	}
}

// WithMap uses an already validated layout.
func WithMap(m *mapping.Map) TypeOption {
	return func(o typeOptions) (typeOptions, error) {
		o.mapping = m
		return o, nil
	}
}

// NewType creates a new root Type.
func NewType(name string, options ...TypeOption) (*Type, error) {
	if name == "" {
		return nil, errors.E(errors.KindValue, "a Type must have a name")
	}

	opts := typeOptions{}
	for _, o := range options {
		var err error
		opts, err = o(opts)
		if err != nil {
			return nil, err
		}
	}

	t := &Type{
		name:    name,
		mapping: opts.mapping,
		cache:   &typeCache{types: map[cacheKey]*Type{}},
	}

	switch {
	case opts.hasSize && opts.hasMask:
		if opts.mask.BitLen() > opts.size {
			return nil, errors.E(errors.KindValue, "mask %#x has bits beyond size %d", opts.mask, opts.size)
		}
		t.fixed, t.size, t.mask = true, opts.size, opts.mask
	case opts.hasSize:
		t.fixed, t.size, t.mask = true, opts.size, bits.LowMask(opts.size)
	case opts.hasMask:
		t.fixed, t.size, t.mask = true, opts.mask.BitLen(), opts.mask
	}

	log.WithFields(logrus.Fields{"type": name, "size": t.size, "fields": t.mapping.Len()}).Debug("created Type")
	return t, nil
}

// MustNewType is NewType, but panics on error. Use this at init time.
func MustNewType(name string, options ...TypeOption) *Type {
	t, err := NewType(name, options...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name is the name of the Type.
func (t *Type) Name() string {
	return t.name
}

// Fixed reports if the Type has a fixed size.
func (t *Type) Fixed() bool {
	return t.fixed
}

// Size is the fixed number of bits in the Type. It is 0 for unbounded Types.
func (t *Type) Size() int {
	return t.size
}

// Mask returns a copy of the Type's mask or nil if the Type is unbounded.
func (t *Type) Mask() *big.Int {
	if t.mask == nil {
		return nil
	}
	return new(big.Int).Set(t.mask)
}

// Mapping returns the Type's field layout. This may be nil.
func (t *Type) Mapping() *mapping.Map {
	return t.mapping
}

// Field returns the field description for name.
func (t *Type) Field(name string) (*mapping.FieldDescr, bool) {
	return t.mapping.ByName(name)
}

func (t *Type) String() string {
	if !t.fixed {
		return fmt.Sprintf("%s<unbounded>%s", t.name, t.mapping)
	}
	bytes := uint64(binary.Size(t.size))
	return fmt.Sprintf("%s<%d bits, %s, mask %#x>%s", t.name, t.size, humanize.Bytes(bytes), t.mask, t.mapping)
}

// derive returns the Type of the sub-view covering fieldMask, which is positioned in t and
// starts at bit start. A nil fieldMask is an open-ended sub-view of an unbounded Type.
// Types are memoized in the root's cache.
func (t *Type) derive(fieldMask *big.Int, start, stop int, name string, m *mapping.Map) *Type {
	key := cacheKey{start: start, name: name, mapping: m}
	if fieldMask != nil {
		key.mask = fieldMask.Text(16)
	}
	t.cache.mu.Lock()
	defer t.cache.mu.Unlock()
	if dt, ok := t.cache.types[key]; ok {
		return dt
	}

	dt := &Type{
		name:    name,
		mapping: m,
		cache:   t.cache,
	}
	if fieldMask != nil {
		dt.fixed = true
		dt.size = stop - start
		dt.mask = new(big.Int).Rsh(fieldMask, uint(start))
	}
	t.cache.types[key] = dt

	log.WithFields(logrus.Fields{"type": name, "start": start, "stop": stop}).Trace("derived sub-view Type")
	return dt
}
