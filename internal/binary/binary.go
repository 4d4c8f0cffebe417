// Package binary converts between *big.Int values and little endian byte slices.
package binary

import (
	"fmt"
	"math/big"
	"slices"

	"golang.org/x/exp/constraints"
)

// Size returns the number of bytes needed to hold n bits. This is never less than 1.
func Size[I constraints.Integer](n I) int {
	s := (int(n) + 7) / 8
	if s < 1 {
		return 1
	}
	return s
}

// Get decodes b as a little endian unsigned integer.
func Get(b []byte) *big.Int {
	be := slices.Clone(b)
	slices.Reverse(be)
	return new(big.Int).SetBytes(be)
}

// Put encodes x into b as a little endian unsigned integer, zero filling unused high bytes.
// x must be non-negative and fit in len(b) bytes.
func Put(b []byte, x *big.Int) error {
	if x.Sign() < 0 {
		return fmt.Errorf("cannot encode negative value %s", x)
	}
	if n := Size(x.BitLen()); x.BitLen() > 0 && n > len(b) {
		return fmt.Errorf("value needs %d bytes, buffer has %d", n, len(b))
	}
	x.FillBytes(b)
	slices.Reverse(b)
	return nil
}

// Append appends x to b using exactly size bytes.
func Append(b []byte, x *big.Int, size int) ([]byte, error) {
	start := len(b)
	b = slices.Grow(b, size)[:start+size]
	if err := Put(b[start:], x); err != nil {
		return b[:start], err
	}
	return b, nil
}
