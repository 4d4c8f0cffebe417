// Package mapping holds the field layout declarations of a binfield Type and the validation that
// turns a raw declaration into a collision checked Map.
//
// A declaration maps field names to one of:
//
//	int                  a single bit
//	Range                a half-open bit range, possibly open-ended
//	[]int / []any        a two element [start, stop) range, stop may be nil for open-ended
//	map[string]any       {"start": n} or {"start": n, "stop": m}, a range
//	Nested / Decl        a nested layout, which must carry an IndexKey range
//
// Positions inside a nested layout are relative to the start of its IndexKey range.
package mapping

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/bearlytools/binfield/errors"
	"github.com/bearlytools/binfield/internal/bits"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "mapping")

// IndexKey is the reserved key a nested declaration uses to record its own enclosing range.
const IndexKey = "_index_"

// Open is the Stop value of a Range that runs to the end of the value.
const Open = -1

// Range is a half-open range of bits [Start, Stop). If Stop == Open the range is open-ended.
type Range struct {
	Start int
	Stop  int
}

// Bit returns the Range holding the single bit i.
func Bit(i int) Range {
	return Range{Start: i, Stop: i + 1}
}

// Span returns the Range [start, stop).
func Span(start, stop int) Range {
	return Range{Start: start, Stop: stop}
}

// From returns an open-ended Range beginning at start.
func From(start int) Range {
	return Range{Start: start, Stop: Open}
}

// IsOpen reports if the range has no stop.
func (r Range) IsOpen() bool {
	return r.Stop == Open
}

// Width is the number of bits in the range. It is -1 for an open-ended Range.
func (r Range) Width() int {
	if r.IsOpen() {
		return -1
	}
	return r.Stop - r.Start
}

// Mask returns the mask covering the range. An open-ended range covers only its start bit,
// which is the only bit checked for collisions.
func (r Range) Mask() *big.Int {
	if r.IsOpen() {
		return bits.Mask(r.Start, r.Start+1)
	}
	return bits.Mask(r.Start, r.Stop)
}

func (r Range) String() string {
	if r.IsOpen() {
		return fmt.Sprintf("[%d:]", r.Start)
	}
	return fmt.Sprintf("[%d:%d]", r.Start, r.Stop)
}

func (r Range) validate() error {
	if r.Start < 0 {
		return fmt.Errorf("range %s has a negative start", r)
	}
	if !r.IsOpen() && r.Stop <= r.Start {
		return fmt.Errorf("range %s must have stop > start", r)
	}
	return nil
}

// Decl is a raw field declaration. See the package documentation for the allowed values.
type Decl map[string]any

// Nested is a nested declaration. It is equivalent to a Decl with Fields plus an IndexKey entry
// set to Index.
type Nested struct {
	Index  Range
	Fields Decl
}

// FieldType is the type of a validated field.
type FieldType uint8

const (
	// FTBit is a single bit field.
	FTBit FieldType = 1
	// FTRange is a contiguous range of bits.
	FTRange FieldType = 2
	// FTNested is a range of bits with its own named sub-fields.
	FTNested FieldType = 3
)

func (f FieldType) String() string {
	switch f {
	case FTBit:
		return "Bit"
	case FTRange:
		return "Range"
	case FTNested:
		return "Nested"
	}
	return fmt.Sprintf("FieldType(%d)", uint8(f))
}

// FieldDescr describes a validated field.
type FieldDescr struct {
	// Name is the name of the field.
	Name string
	// Type is the type of field.
	Type FieldType
	// Range is the bits the field covers. For FTBit this is [i, i+1). For FTNested it is
	// the IndexKey range.
	Range Range
	// Mapping is provided if .Type == FTNested. This describes the sub-fields relative to
	// Range.Start.
	Mapping *Map
}

// Map is a validated field layout. Fields are sorted by their starting bit.
type Map struct {
	// Fields are the field descriptions for all fields in start bit order.
	Fields []*FieldDescr

	byName map[string]*FieldDescr
}

// ByName retrieves the FieldDescr by name.
func (m *Map) ByName(name string) (*FieldDescr, bool) {
	if m == nil {
		return nil, false
	}
	f, ok := m.byName[name]
	return f, ok
}

// Len is the number of top level fields.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Fields)
}

// Occupied returns the mask of every bit used by a closed top level field. An open-ended
// field contributes its start bit.
func (m *Map) Occupied() *big.Int {
	occ := new(big.Int)
	if m == nil {
		return occ
	}
	for _, f := range m.Fields {
		occ.Or(occ, f.Range.Mask())
	}
	return occ
}

// Within returns an errors.ErrLayout if a top level field reaches bit size or beyond.
// A size <= 0 is unbounded and always fits.
func (m *Map) Within(size int) error {
	if size <= 0 {
		return nil
	}
	if n := m.Occupied().BitLen(); n > size {
		return errors.E(errors.KindLayout, "fields use %d bits, but the size is %d", n, size)
	}
	return nil
}

func (m *Map) String() string {
	if m == nil {
		return "{}"
	}
	parts := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		switch f.Type {
		case FTNested:
			parts = append(parts, fmt.Sprintf("%s%s%s", f.Name, f.Range, f.Mapping))
		default:
			parts = append(parts, f.Name+f.Range.String())
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Prepare validates a raw declaration and returns the sorted, collision checked Map.
// All failures are errors.ErrLayout.
func Prepare(d Decl) (*Map, error) {
	m, err := prepare(d, false)
	if err != nil {
		log.WithError(err).Debug("mapping rejected")
		return nil, err
	}
	return m, nil
}

type entry struct {
	name  string
	rng   Range
	inner Decl
	typ   FieldType
}

func prepare(d Decl, nested bool) (*Map, error) {
	if !nested {
		if _, ok := d[IndexKey]; ok {
			return nil, errors.E(errors.KindLayout, "%q can only be used inside a nested mapping", IndexKey)
		}
	}

	entries := make([]entry, 0, len(d))
	for name, raw := range d {
		if name == IndexKey {
			continue
		}
		if name == "" {
			return nil, errors.E(errors.KindLayout, "field names cannot be empty")
		}
		e, err := toEntry(name, raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rng.Start != entries[j].rng.Start {
			return entries[i].rng.Start < entries[j].rng.Start
		}
		return entries[i].name < entries[j].name
	})

	m := &Map{
		Fields: make([]*FieldDescr, 0, len(entries)),
		byName: make(map[string]*FieldDescr, len(entries)),
	}
	occupancy := new(big.Int)
	cycleEnd := ""
	for _, e := range entries {
		if cycleEnd != "" {
			return nil, errors.E(errors.KindLayout, "Mapping after non-ending slice index: field %q follows open-ended field %q", e.name, cycleEnd)
		}

		fieldMask := e.rng.Mask()
		if bits.Overlaps(occupancy, fieldMask) {
			return nil, errors.E(errors.KindLayout, "field %q%s overlaps a previous field", e.name, e.rng)
		}
		occupancy.Or(occupancy, fieldMask)
		if e.rng.IsOpen() {
			cycleEnd = e.name
		}

		fd := &FieldDescr{Name: e.name, Type: e.typ, Range: e.rng}
		if e.typ == FTNested {
			inner, err := prepare(e.inner, true)
			if err != nil {
				return nil, errors.Wrap(errors.KindLayout, err, "nested field %q", e.name)
			}
			if err := fitsWithin(inner, e.rng); err != nil {
				return nil, errors.Wrap(errors.KindLayout, err, "nested field %q", e.name)
			}
			fd.Mapping = inner
		}
		m.Fields = append(m.Fields, fd)
		m.byName[e.name] = fd
	}
	return m, nil
}

// fitsWithin checks that every inner field lies within the width of the enclosing range.
func fitsWithin(inner *Map, outer Range) error {
	if outer.IsOpen() {
		return nil
	}
	w := outer.Width()
	for _, f := range inner.Fields {
		if f.Range.Start >= w || (!f.Range.IsOpen() && f.Range.Stop > w) {
			return fmt.Errorf("sub-field %q%s does not fit in %d bits", f.Name, f.Range, w)
		}
	}
	return nil
}

func toEntry(name string, raw any) (entry, error) {
	e := entry{name: name}

	switch v := raw.(type) {
	case Nested:
		if err := v.Index.validate(); err != nil {
			return e, errors.E(errors.KindLayout, "field %q: %s", name, err)
		}
		e.typ, e.rng, e.inner = FTNested, v.Index, v.Fields
		if e.inner == nil {
			e.inner = Decl{}
		}
		return e, nil
	case *Nested:
		if v == nil {
			break
		}
		return toEntry(name, *v)
	case Decl:
		return nestedOrRange(name, map[string]any(v))
	case map[string]any:
		return nestedOrRange(name, v)
	}

	if i, ok := asInt(raw); ok {
		r := Bit(i)
		if err := r.validate(); err != nil {
			return e, errors.E(errors.KindLayout, "field %q: %s", name, err)
		}
		e.typ, e.rng = FTBit, r
		return e, nil
	}

	r, err := asRange(raw)
	if err != nil {
		return e, errors.E(errors.KindLayout, "field %q: %s", name, err)
	}
	e.typ, e.rng = FTRange, r
	return e, nil
}

// nestedOrRange handles generic maps, as produced by YAML or JSON decoding. A map with an
// IndexKey is a nested declaration, otherwise it must be a {"start", "stop"} range.
func nestedOrRange(name string, m map[string]any) (entry, error) {
	e := entry{name: name}

	if idx, ok := m[IndexKey]; ok {
		r, err := asRange(idx)
		if err != nil {
			return e, errors.E(errors.KindLayout, "field %q: %s: %s", name, IndexKey, err)
		}
		inner := make(Decl, len(m)-1)
		for k, v := range m {
			if k != IndexKey {
				inner[k] = v
			}
		}
		e.typ, e.rng, e.inner = FTNested, r, inner
		return e, nil
	}

	r, err := asRange(m)
	if err != nil {
		return e, errors.E(errors.KindLayout, "field %q: nested mapping without %q and not a range: %s", name, IndexKey, err)
	}
	e.typ, e.rng = FTRange, r
	return e, nil
}

func asRange(raw any) (Range, error) {
	var r Range
	switch v := raw.(type) {
	case Range:
		r = v
	case *Range:
		if v == nil {
			return r, fmt.Errorf("nil range")
		}
		r = *v
	case [2]int:
		r = Span(v[0], v[1])
	case []int:
		if len(v) != 2 {
			return r, fmt.Errorf("a range must have 2 entries, had %d", len(v))
		}
		r = Span(v[0], v[1])
	case []any:
		if len(v) != 2 {
			return r, fmt.Errorf("a range must have 2 entries, had %d", len(v))
		}
		start, ok := asInt(v[0])
		if !ok {
			return r, fmt.Errorf("range start %v is not an integer", v[0])
		}
		r.Start = start
		if v[1] == nil {
			r.Stop = Open
			break
		}
		stop, ok := asInt(v[1])
		if !ok {
			return r, fmt.Errorf("range stop %v is not an integer", v[1])
		}
		r.Stop = stop
	case map[string]any:
		for k := range v {
			if k != "start" && k != "stop" {
				return r, fmt.Errorf("unexpected range key %q", k)
			}
		}
		start, ok := asInt(v["start"])
		if !ok {
			return r, fmt.Errorf("range start %v is not an integer", v["start"])
		}
		r.Start = start
		r.Stop = Open
		if s, present := v["stop"]; present && s != nil {
			stop, ok := asInt(s)
			if !ok {
				return r, fmt.Errorf("range stop %v is not an integer", s)
			}
			r.Stop = stop
		}
	default:
		return r, fmt.Errorf("unsupported declaration type %T", raw)
	}

	if err := r.validate(); err != nil {
		return r, err
	}
	return r, nil
}

// asInt converts the integer types produced by Go code, YAML and JSON decoders.
func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		// JSON numbers.
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}
