package binfield

import (
	"math/big"

	"github.com/bearlytools/binfield/errors"
)

// Result is the outcome of out-of-place addition or subtraction. If the result fits in the
// receiver's Type, Value holds a new root Value of that Type. If the Type has a fixed size and
// the result does not fit, Value is nil and Widened holds the plain integer. This mirrors
// integer promotion: an expression widens instead of failing.
type Result struct {
	Value   *Value
	Widened *big.Int
}

// IsWidened reports if the result no longer fits the Type.
func (r Result) IsWidened() bool {
	return r.Value == nil
}

// Int returns the integer held by the Result.
func (r Result) Int() *big.Int {
	if r.Value != nil {
		return r.Value.Int()
	}
	return new(big.Int).Set(r.Widened)
}

func (v *Value) result(n *big.Int, op string) (Result, error) {
	if n.Sign() < 0 {
		return Result{}, errors.E(errors.KindValue, "%s: %s produced negative value %s", v.typ.name, op, n)
	}
	if v.typ.fixed && n.BitLen() > v.typ.size {
		return Result{Widened: n}, nil
	}
	nv, err := v.typ.New(n)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: nv}, nil
}

// Add returns v + x. See Result for what is returned when the sum does not fit.
// A negative sum is an errors.ErrValue.
func (v *Value) Add(x *big.Int) (Result, error) {
	return v.result(new(big.Int).Add(v.current(), x), "add")
}

// Sub returns v - x. A negative difference is an errors.ErrValue.
func (v *Value) Sub(x *big.Int) (Result, error) {
	return v.result(new(big.Int).Sub(v.current(), x), "sub")
}

func (v *Value) assign(n *big.Int, op string) error {
	if n.Sign() < 0 {
		return errors.E(errors.KindValue, "%s: %s produced negative value %s", v.typ.name, op, n)
	}
	if v.typ.fixed && n.BitLen() > v.typ.size {
		return errors.E(errors.KindOverflow, "%s: %s produced %s which does not fit in %d bits", v.typ.name, op, n, v.typ.size)
	}
	return v.SetInt(n)
}

// AddAssign sets v to v + x. Unlike Add, a sum that does not fit a fixed size Type is an
// errors.ErrOverflow. A negative sum is an errors.ErrValue.
func (v *Value) AddAssign(x *big.Int) error {
	return v.assign(new(big.Int).Add(v.current(), x), "add")
}

// SubAssign sets v to v - x.
func (v *Value) SubAssign(x *big.Int) error {
	return v.assign(new(big.Int).Sub(v.current(), x), "sub")
}

// AndAssign sets v to v & x.
func (v *Value) AndAssign(x *big.Int) error {
	return v.SetInt(new(big.Int).And(v.current(), x))
}

// OrAssign sets v to v | x. Bits outside the Type's mask are dropped.
func (v *Value) OrAssign(x *big.Int) error {
	return v.SetInt(new(big.Int).Or(v.current(), x))
}

// XorAssign sets v to v ^ x. Bits outside the Type's mask are dropped.
func (v *Value) XorAssign(x *big.Int) error {
	return v.SetInt(new(big.Int).Xor(v.current(), x))
}

// And returns v & x.
func (v *Value) And(x *big.Int) *big.Int {
	return new(big.Int).And(v.current(), x)
}

// Or returns v | x.
func (v *Value) Or(x *big.Int) *big.Int {
	return new(big.Int).Or(v.current(), x)
}

// Xor returns v ^ x.
func (v *Value) Xor(x *big.Int) *big.Int {
	return new(big.Int).Xor(v.current(), x)
}

// Lsh returns v << n.
func (v *Value) Lsh(n uint) *big.Int {
	return new(big.Int).Lsh(v.current(), n)
}

// Rsh returns v >> n.
func (v *Value) Rsh(n uint) *big.Int {
	return new(big.Int).Rsh(v.current(), n)
}

// Abs returns |v|. Values are never negative, so this is the same as Int().
func (v *Value) Abs() *big.Int {
	return new(big.Int).Abs(v.current())
}

// Cmp compares v and x and returns -1, 0 or +1.
func (v *Value) Cmp(x *big.Int) int {
	return v.current().Cmp(x)
}

// Equal reports if v and o hold the same integer.
func (v *Value) Equal(o *Value) bool {
	if o == nil {
		return false
	}
	return v.current().Cmp(o.current()) == 0
}

// Bool is false if the Value is 0.
func (v *Value) Bool() bool {
	return v.current().Sign() != 0
}

// IsZero is true if the Value is 0.
func (v *Value) IsZero() bool {
	return !v.Bool()
}
