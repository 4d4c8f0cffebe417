package binfield

import (
	"math/big"
	"strings"

	"github.com/bearlytools/binfield/errors"
	"github.com/bearlytools/binfield/internal/binary"
	"github.com/bearlytools/binfield/internal/bits"
)

// Value is an integer of some Type. A Value is either a root, which owns its integer, or a
// sub-view of a parent Value. A sub-view does not own storage: every read re-derives its
// integer from the parent and every write rewrites the parent's bits.
//
// The parent link does not keep anything alive on its own; a sub-view is only meaningful
// while its root is in use.
type Value struct {
	typ *Type
	// x caches the current integer. For a sub-view it is refreshed on every read.
	x *big.Int

	parent *Value
	offset int
}

// New creates a root Value of Type t holding x. Bits outside the Type's mask are cleared.
// A negative x is reduced through the mask in two's complement. A negative x for an
// unbounded Type is an errors.ErrValue.
func (t *Type) New(x *big.Int) (*Value, error) {
	nx, err := t.normalize(x)
	if err != nil {
		return nil, err
	}
	return &Value{typ: t, x: nx}, nil
}

// MustNew is New, but panics on error.
func (t *Type) MustNew(x *big.Int) *Value {
	v, err := t.New(x)
	if err != nil {
		panic(err)
	}
	return v
}

// NewInt64 is New for an int64.
func (t *Type) NewInt64(i int64) (*Value, error) {
	return t.New(big.NewInt(i))
}

// NewUint64 is New for a uint64.
func (t *Type) NewUint64(u uint64) (*Value, error) {
	return t.New(new(big.Int).SetUint64(u))
}

// Zero returns a root Value of Type t holding 0.
func (t *Type) Zero() *Value {
	return &Value{typ: t, x: new(big.Int)}
}

// Parse creates a root Value from the string s in the given base. Base 0 honors the
// 0x, 0o and 0b prefixes. For base 16, 8 and 2 the matching prefix is also accepted.
// Underscores between digits are allowed. A malformed string is an errors.ErrValue.
func (t *Type) Parse(s string, base int) (*Value, error) {
	x, err := parseInt(s, base)
	if err != nil {
		return nil, err
	}
	return t.New(x)
}

func parseInt(s string, base int) (*big.Int, error) {
	if base != 0 && (base < 2 || base > 36) {
		return nil, errors.E(errors.KindValue, "base must be 0 or between 2 and 36, got %d", base)
	}

	body := strings.TrimSpace(s)
	sign := ""
	if strings.HasPrefix(body, "-") || strings.HasPrefix(body, "+") {
		sign, body = body[:1], body[1:]
	}
	prefix := map[int]string{16: "0x", 8: "0o", 2: "0b"}[base]
	if prefix != "" && len(body) > 2 && strings.EqualFold(body[:2], prefix) {
		body = body[2:]
	}
	if base != 0 {
		if strings.HasPrefix(body, "_") || strings.HasSuffix(body, "_") || strings.Contains(body, "__") {
			return nil, errors.E(errors.KindValue, "invalid literal %q for base %d", s, base)
		}
		body = strings.ReplaceAll(body, "_", "")
	}

	x, ok := new(big.Int).SetString(sign+body, base)
	if !ok {
		return nil, errors.E(errors.KindValue, "invalid literal %q for base %d", s, base)
	}
	return x, nil
}

// normalize applies the Type's mask to x and returns a new integer.
func (t *Type) normalize(x *big.Int) (*big.Int, error) {
	if x == nil {
		return nil, errors.E(errors.KindType, "%s requires an integer, got nil", t.name)
	}
	if t.mask != nil {
		return new(big.Int).And(x, t.mask), nil
	}
	if x.Sign() < 0 {
		return nil, errors.E(errors.KindValue, "%s is unbounded and cannot hold negative value %s", t.name, x)
	}
	return new(big.Int).Set(x), nil
}

// Type returns the Value's Type.
func (v *Value) Type() *Type {
	return v.typ
}

// IsView reports if the Value is a sub-view of another Value.
func (v *Value) IsView() bool {
	return v.parent != nil
}

// current refreshes v.x from the parent chain and returns it. The result must not be
// modified by callers.
func (v *Value) current() *big.Int {
	if v.parent == nil {
		return v.x
	}
	v.x = bits.GetValue(v.parent.current(), v.maskInParent(), v.offset)
	return v.x
}

// maskInParent is the Type's mask positioned at the Value's offset in the parent.
func (v *Value) maskInParent() *big.Int {
	if v.typ.mask == nil {
		return nil
	}
	return new(big.Int).Lsh(v.typ.mask, uint(v.offset))
}

// Int returns the current integer. For a sub-view this re-reads the parent, so it always
// reflects writes made through the parent or any other sub-view.
func (v *Value) Int() *big.Int {
	return new(big.Int).Set(v.current())
}

// Int64 returns the current integer as an int64. The result is undefined if it does not fit.
func (v *Value) Int64() int64 {
	return v.current().Int64()
}

// SetInt stores x in the Value after applying the Type's mask. For a sub-view, the parent's
// bits are rewritten through the parent's SetInt, which carries the write to the root.
// All mutation of a Value funnels through here.
func (v *Value) SetInt(x *big.Int) error {
	nx, err := v.typ.normalize(x)
	if err != nil {
		return err
	}

	if v.parent != nil {
		owner := bits.SetValue(v.parent.current(), nx, v.maskInParent(), v.offset)
		if err := v.parent.SetInt(owner); err != nil {
			return err
		}
	}
	v.x = nx
	return nil
}

// SetInt64 is SetInt for an int64.
func (v *Value) SetInt64(i int64) error {
	return v.SetInt(big.NewInt(i))
}

// BitSize is the Type's fixed size, or the bit length of the current integer if unbounded.
func (v *Value) BitSize() int {
	if v.typ.fixed {
		return v.typ.size
	}
	return v.current().BitLen()
}

// Len is the number of bytes needed to hold BitSize() bits. This is never less than 1.
func (v *Value) Len() int {
	return binary.Size(v.BitSize())
}

// Copy returns a detached root Value with the same Type and current integer. Unlike every
// other read, the copy does not share storage.
func (v *Value) Copy() *Value {
	return &Value{typ: v.typ, x: v.Int()}
}
