// Package binfield overlays named, bit addressable views onto an integer backed value.
//
// A Type describes a value: an optional fixed size, an optional mask of meaningful bits and
// an optional layout of named fields. A Value holds an integer of a Type. Fields of a Value
// are read through Get() or Slice(), which return sub-views that share storage with their
// parent. Reading a sub-view re-reads the parent and writing a sub-view rewrites the parent's
// bits, all the way up to the root Value.
//
//	header, err := binfield.NewType(
//		"Header",
//		binfield.WithSize(8),
//		binfield.WithMapping(mapping.Decl{"lo": mapping.Span(0, 4), "hi": mapping.Span(4, 8)}),
//	)
//	...
//	x := header.Zero()
//	x.Set(binfield.Name("lo"), 0xA)
//	x.Set(binfield.Name("hi"), 0xB)
//	fmt.Println(x.Int()) // 186 (0xBA)
//
// Types may be shared between goroutines. Values are not safe for concurrent use. A tree of
// sub-views shares a single root integer and must be owned by a single goroutine.
package binfield

import (
	"math/big"

	"github.com/bearlytools/binfield/errors"
	"github.com/bearlytools/binfield/internal/bits"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/constraints"
)

var log = logrus.WithField("prefix", "binfield")

// Int converts any Go integer to a *big.Int for use with Value methods.
func Int[I constraints.Integer](i I) *big.Int {
	return bits.FromInteger(i)
}

// Uint returns the current value of v as an unsigned integer of type U. If the value does not
// fit in U this returns an errors.ErrOverflow.
func Uint[U constraints.Unsigned](v *Value) (U, error) {
	x := v.current()
	u, ok := bits.ToUnsigned[U](x)
	if !ok {
		var zero U
		return zero, errors.E(errors.KindOverflow, "value %s does not fit in %T", x, zero)
	}
	return u, nil
}
