// Package bits provides bit manipulation utilities over arbitrary sized integers.
// This is not a replacement for math/bits.
package bits

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/exp/constraints"
)

var one = big.NewInt(1)

// LowMask returns a mask with the lowest n bits set. LowMask(0) is 0.
func LowMask(n int) *big.Int {
	if n < 0 {
		panic(fmt.Sprintf("LowMask(%d): n cannot be negative", n))
	}
	m := new(big.Int).Lsh(one, uint(n))
	return m.Sub(m, one)
}

// Mask creates a mask for setting, getting and clearing a set of bits.
// start is the bit location you wish to start at and end is the bit you wish to end at (exclusive).
// Index starts at 0. So Mask(1, 4) will create a mask that includes bits at location 1 to 3.
// If start >= end, this will panic.
func Mask(start, end int) *big.Int {
	if start < 0 || start >= end {
		panic(fmt.Sprintf("Mask(%d, %d): start must be >= 0 and < end", start, end))
	}
	hi := new(big.Int).Lsh(one, uint(end))
	lo := new(big.Int).Lsh(one, uint(start))
	return hi.Sub(hi, lo)
}

// GetValue retrieves a value stored in "store". bitMask is the mask, positioned in store, to
// apply to retrieve the value. start tells us how many bits to shift the result down.
// A nil bitMask selects every bit from start upwards.
func GetValue(store, bitMask *big.Int, start int) *big.Int {
	v := new(big.Int).Set(store)
	if bitMask != nil {
		v.And(v, bitMask)
	}
	return v.Rsh(v, uint(start))
}

// SetValue returns "store" with the bits selected by bitMask replaced by "val" shifted up
// by start. store is not modified. A nil bitMask replaces every bit from start upwards.
// Bits of the shifted val that fall outside bitMask are dropped.
func SetValue(store, val, bitMask *big.Int, start int) *big.Int {
	shifted := new(big.Int).Lsh(val, uint(start))
	r := new(big.Int)
	if bitMask == nil {
		r.And(store, LowMask(start))
		return r.Or(r, shifted)
	}
	r.AndNot(store, bitMask)
	shifted.And(shifted, bitMask)
	return r.Or(r, shifted)
}

// Overlaps reports if a and b have any bit in common.
func Overlaps(a, b *big.Int) bool {
	return new(big.Int).And(a, b).Sign() != 0
}

// FitsIn reports if the non-negative val can be held in width bits.
func FitsIn(val *big.Int, width int) bool {
	return val.Sign() >= 0 && val.BitLen() <= width
}

// FromInteger converts any Go integer to a *big.Int.
func FromInteger[I constraints.Integer](i I) *big.Int {
	if i < 0 {
		return big.NewInt(int64(i))
	}
	return new(big.Int).SetUint64(uint64(i))
}

// ToUnsigned converts x to U. ok is false if x is negative or does not fit in U.
func ToUnsigned[U constraints.Unsigned](x *big.Int) (u U, ok bool) {
	if x.Sign() < 0 || !x.IsUint64() {
		return 0, false
	}
	v := x.Uint64()
	if uint64(U(v)) != v {
		return 0, false
	}
	return U(v), true
}

// Binary renders x in base 2, left padded with zeros to width digits and grouped in nibbles
// separated by "_".
func Binary(x *big.Int, width int) string {
	s := x.Text(2)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	if len(s) <= 4 {
		return s
	}

	buff := strings.Builder{}
	lead := len(s) % 4
	if lead > 0 {
		buff.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 4 {
		if buff.Len() > 0 {
			buff.WriteByte('_')
		}
		buff.WriteString(s[i : i+4])
	}
	return buff.String()
}
