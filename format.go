package binfield

import (
	"fmt"
	"strings"

	"github.com/bearlytools/binfield/internal/bits"
	"github.com/bearlytools/binfield/mapping"
)

const indent = "  "

// String renders the Value and, recursively, each of its named fields. Each line shows the
// integer in decimal, hex and binary:
//
//	Header: 186 0xba 0b1011_1010
//	  lo: 10 0xa 0b1010
//	  hi: 11 0xb 0b1011
func (v *Value) String() string {
	buff := strings.Builder{}
	v.render(&buff, v.typ.name, 0)
	return strings.TrimSuffix(buff.String(), "\n")
}

func (v *Value) render(buff *strings.Builder, label string, depth int) {
	x := v.current()
	fmt.Fprintf(buff, "%s%s: %s %#x 0b%s\n", strings.Repeat(indent, depth), label, x, x, bits.Binary(x, v.BitSize()))

	for _, f := range fieldsOrNil(v.typ.mapping) {
		child, err := v.Get(Name(f.Name))
		if err != nil {
			// A field past a fixed size has nothing to show.
			fmt.Fprintf(buff, "%s%s: <%s>\n", strings.Repeat(indent, depth+1), f.Name, err)
			continue
		}
		child.render(buff, f.Name, depth+1)
	}
}

// fieldsOrNil lets render walk a nil layout.
func fieldsOrNil(m *mapping.Map) []*mapping.FieldDescr {
	if m == nil {
		return nil
	}
	return m.Fields
}
