package binfield

import (
	"github.com/bearlytools/binfield/errors"
	"github.com/bearlytools/binfield/internal/binary"
)

// Bytes returns the current integer as Len() little endian bytes.
func (v *Value) Bytes() []byte {
	b := make([]byte, v.Len())
	if err := binary.Put(b, v.current()); err != nil {
		// Len() always covers BitSize() and values are never negative.
		panic(err)
	}
	return b
}

// AppendBytes appends the little endian encoding of v to b, using Len() bytes.
func (v *Value) AppendBytes(b []byte) []byte {
	b, err := binary.Append(b, v.current(), v.Len())
	if err != nil {
		panic(err)
	}
	return b
}

// FromBytes creates a root Value of Type t from little endian bytes. For a fixed size Type, b
// must not be longer than the Type needs; extra bytes are an errors.ErrOverflow.
func (t *Type) FromBytes(b []byte) (*Value, error) {
	if t.fixed {
		if want := binary.Size(t.size); len(b) > want {
			return nil, errors.E(errors.KindOverflow, "%s holds %d bytes, got %d", t.name, want, len(b))
		}
	}
	return t.New(binary.Get(b))
}
