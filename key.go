package binfield

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/bearlytools/binfield/errors"
	"github.com/bearlytools/binfield/internal/bits"
	"github.com/bearlytools/binfield/mapping"
)

type keyKind uint8

const (
	kkUnknown keyKind = 0
	kkIndex   keyKind = 1
	kkRange   keyKind = 2
	kkName    keyKind = 3
	kkAll     keyKind = 4
)

// Key addresses part of a Value. Create one with Index, Bits, From, Range, Name or All.
// The zero Key is invalid.
type Key struct {
	kind  keyKind
	index int
	rng   mapping.Range
	name  string
}

// Index addresses the single bit i.
func Index(i int) Key {
	return Key{kind: kkIndex, index: i}
}

// Bits addresses the bits [start, stop).
func Bits(start, stop int) Key {
	return Key{kind: kkRange, rng: mapping.Span(start, stop)}
}

// From addresses every bit from start to the end of the Value.
func From(start int) Key {
	return Key{kind: kkRange, rng: mapping.From(start)}
}

// Range addresses the bits in r.
func Range(r mapping.Range) Key {
	return Key{kind: kkRange, rng: r}
}

// Name addresses the field called name in the Value's layout.
func Name(name string) Key {
	return Key{kind: kkName, name: name}
}

// All addresses the whole Value. Reading it returns a detached copy.
func All() Key {
	return Key{kind: kkAll}
}

func (k Key) String() string {
	switch k.kind {
	case kkIndex:
		return fmt.Sprintf("[%d]", k.index)
	case kkRange:
		return k.rng.String()
	case kkName:
		return fmt.Sprintf("[%q]", k.name)
	case kkAll:
		return "[:]"
	}
	return "[?]"
}

// target is a Key resolved against a Value's Type.
type target struct {
	rng     mapping.Range
	name    string
	mapping *mapping.Map
}

func (v *Value) target(k Key) (target, error) {
	switch k.kind {
	case kkIndex:
		return target{rng: mapping.Bit(k.index)}, nil
	case kkRange:
		return target{rng: k.rng}, nil
	case kkName:
		if v.typ.mapping == nil {
			return target{}, errors.E(errors.KindIndex, "%s has no fields, field %q not found", v.typ.name, k.name)
		}
		f, ok := v.typ.mapping.ByName(k.name)
		if !ok {
			return target{}, errors.E(errors.KindIndex, "%s: field %q not found", v.typ.name, k.name)
		}
		t := target{rng: f.Range, name: v.typ.name + "." + f.Name}
		if f.Type == mapping.FTNested {
			t.mapping = f.Mapping
		}
		return t, nil
	}
	return target{}, errors.E(errors.KindIndex, "%s: unsupported key %s", v.typ.name, k)
}

// Get returns a live sub-view of the part of v addressed by k. All() returns a detached copy.
// Unknown field names and keys are an errors.ErrIndex.
func (v *Value) Get(k Key) (*Value, error) {
	if k.kind == kkAll {
		return v.Copy(), nil
	}

	t, err := v.target(k)
	if err != nil {
		return nil, err
	}
	opts := []SliceOption{WithFields(t.mapping)}
	if t.name != "" {
		opts = append(opts, WithName(t.name))
	}
	return v.Slice(t.rng, opts...)
}

// Set writes x into the part of v addressed by k. x must be a Go integer or a *big.Int.
// Assigning a *Value or any other type is an errors.ErrType; use Int() to copy a field.
func (v *Value) Set(k Key, x any) error {
	n, err := toBig(x)
	if err != nil {
		return errors.Wrap(errors.KindType, err, "%s%s", v.typ.name, k)
	}

	if k.kind == kkAll {
		return v.SetInt(n)
	}
	t, err := v.target(k)
	if err != nil {
		return err
	}
	return v.SetSlice(t.rng, n)
}

// Lookup follows a dotted path of field names, such as "ctrl.mode", and returns the
// sub-view at the end.
func (v *Value) Lookup(path string) (*Value, error) {
	cur := v
	for _, name := range strings.Split(path, ".") {
		next, err := cur.Get(Name(name))
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// SetPath writes x into the field at the end of a dotted path.
func (v *Value) SetPath(path string, x any) error {
	parent := v
	name := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		var err error
		parent, err = v.Lookup(path[:i])
		if err != nil {
			return err
		}
		name = path[i+1:]
	}
	return parent.Set(Name(name), x)
}

func toBig(x any) (*big.Int, error) {
	switch n := x.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("cannot assign a nil *big.Int")
		}
		return n, nil
	case int:
		return bits.FromInteger(n), nil
	case int8:
		return bits.FromInteger(n), nil
	case int16:
		return bits.FromInteger(n), nil
	case int32:
		return bits.FromInteger(n), nil
	case int64:
		return bits.FromInteger(n), nil
	case uint:
		return bits.FromInteger(n), nil
	case uint8:
		return bits.FromInteger(n), nil
	case uint16:
		return bits.FromInteger(n), nil
	case uint32:
		return bits.FromInteger(n), nil
	case uint64:
		return bits.FromInteger(n), nil
	case *Value:
		return nil, fmt.Errorf("cannot assign a field of type %s, use .Int()", n.typ.name)
	}
	return nil, fmt.Errorf("cannot assign value of type %T, an integer is required", x)
}
