package binfield

import (
	"fmt"
	"math/big"

	"github.com/bearlytools/binfield/errors"
	"github.com/bearlytools/binfield/internal/bits"
	"github.com/bearlytools/binfield/mapping"
)

// sliceOptions holds the options provided to Slice.
type sliceOptions struct {
	name    string
	mapping *mapping.Map
}

// SliceOption is an optional argument to Slice.
type SliceOption func(sliceOptions) sliceOptions

// WithName names the Type of the sub-view. Without it the name is <Type>_slice_<start>_<stop>.
func WithName(name string) SliceOption {
	return func(o sliceOptions) sliceOptions {
		o.name = name
		return o
	}
}

// WithFields gives the sub-view its own field layout, relative to the start of the slice.
func WithFields(m *mapping.Map) SliceOption {
	return func(o sliceOptions) sliceOptions {
		o.mapping = m
		return o
	}
}

// span is a resolved slice of a Value.
type span struct {
	start, stop int
	// open is set for an open-ended slice of an unbounded Type. stop is meaningless then.
	open bool
	// mask is the slice's mask positioned in the Value, nil if open.
	mask *big.Int
}

func (s span) String() string {
	if s.open {
		return fmt.Sprintf("[%d:]", s.start)
	}
	return fmt.Sprintf("[%d:%d]", s.start, s.stop)
}

// resolve turns r into concrete bounds for v. For fixed size Types the stop is clamped to the
// size, and a start at or beyond the size is an errors.ErrIndex. An open-ended range of an
// unbounded Type stays open so the sub-view keeps seeing every high bit of the parent.
func (v *Value) resolve(r mapping.Range) (span, error) {
	s := span{start: r.Start, stop: r.Stop}
	if s.start < 0 {
		return s, errors.E(errors.KindIndex, "%s: slice start %d is negative", v.typ.name, s.start)
	}

	switch {
	case v.typ.fixed:
		if s.start >= v.typ.size {
			return s, errors.E(errors.KindIndex, "%s: slice start %d is beyond size %d", v.typ.name, s.start, v.typ.size)
		}
		if r.IsOpen() || s.stop > v.typ.size {
			s.stop = v.typ.size
		}
	case r.IsOpen():
		s.open = true
		return s, nil
	}

	if s.stop <= s.start {
		return s, errors.E(errors.KindIndex, "%s: slice %s is empty", v.typ.name, r)
	}
	s.mask = bits.Mask(s.start, s.stop)
	if v.typ.mask != nil {
		s.mask.And(s.mask, v.typ.mask)
	}
	return s, nil
}

// Slice returns a live sub-view of the bits in r. The sub-view shares storage with v: reads
// re-read v and writes rewrite v's bits.
func (v *Value) Slice(r mapping.Range, options ...SliceOption) (*Value, error) {
	opts := sliceOptions{}
	for _, o := range options {
		opts = o(opts)
	}

	s, err := v.resolve(r)
	if err != nil {
		return nil, err
	}

	name := opts.name
	if name == "" {
		if s.open {
			name = fmt.Sprintf("%s_slice_%d_end", v.typ.name, s.start)
		} else {
			name = fmt.Sprintf("%s_slice_%d_%d", v.typ.name, s.start, s.stop)
		}
	}

	child := &Value{
		typ:    v.typ.derive(s.mask, s.start, s.stop, name, opts.mapping),
		parent: v,
		offset: s.start,
	}
	child.x = bits.GetValue(v.current(), s.mask, s.start)
	return child, nil
}

// SetSlice writes x into the bits of r. x must be >= 0 and fit in the width of the range,
// otherwise an errors.ErrValue or errors.ErrOverflow is returned.
func (v *Value) SetSlice(r mapping.Range, x *big.Int) error {
	if x == nil {
		return errors.E(errors.KindType, "%s: cannot set slice %s to nil", v.typ.name, r)
	}
	if x.Sign() < 0 {
		return errors.E(errors.KindValue, "%s: cannot set slice %s to negative value %s", v.typ.name, r, x)
	}

	s, err := v.resolve(r)
	if err != nil {
		return err
	}
	if !s.open && !bits.FitsIn(x, s.stop-s.start) {
		return errors.E(errors.KindOverflow, "%s: value %s does not fit in %d bits of slice %s", v.typ.name, x, s.stop-s.start, s)
	}

	return v.SetInt(bits.SetValue(v.current(), x, s.mask, s.start))
}
