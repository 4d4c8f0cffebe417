package binfield

import (
	"math/big"

	"github.com/bearlytools/binfield/errors"
	"github.com/go-json-experiment/json"
)

// Record is the saved state of a root Value. In JSON it is {"x": <integer>}.
type Record struct {
	X *big.Int `json:"x"`
}

// Record returns the saved state of v. A sub-view has no meaningful state without its parent,
// so this returns an errors.ErrSerialization for one.
func (v *Value) Record() (Record, error) {
	if v.parent != nil {
		return Record{}, errors.E(errors.KindSerialization, "%s is a sub-view and cannot be serialized, serialize its root or Copy() it", v.typ.name)
	}
	return Record{X: v.Int()}, nil
}

// Restore rebuilds a root Value of Type t from r.
func (t *Type) Restore(r Record) (*Value, error) {
	if r.X == nil {
		return nil, errors.E(errors.KindSerialization, "record for %s has no x", t.name)
	}
	return t.New(r.X)
}

// MarshalJSON implements json.Marshaler.
func (v *Value) MarshalJSON() ([]byte, error) {
	r, err := v.Record()
	if err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// UnmarshalValue decodes the JSON form of a Record into a root Value of Type t.
func (t *Type) UnmarshalValue(b []byte) (*Value, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrap(errors.KindSerialization, err, "decoding %s record", t.name)
	}
	return t.Restore(r)
}
