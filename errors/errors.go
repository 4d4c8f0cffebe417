// Package errors provides the error taxonomy for binfield. It includes all of the stdlib's
// functions so that callers only need to import a single errors package.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind represents the kind of failure an Error describes.
type Kind uint8

const (
	// KindUnknown represents an unknown kind. This should not be used.
	KindUnknown Kind = 0 // Unknown
	// KindLayout is a bad field layout: overlapping ranges, a field after an open-ended field,
	// malformed entries or a misplaced "_index_" key.
	KindLayout Kind = 1 // Layout
	// KindType is an argument of the wrong type, such as assigning a non-integer.
	KindType Kind = 2 // Type
	// KindValue is an argument with a bad value: non-positive sizes, negative masks or
	// negative arithmetic results.
	KindValue Kind = 3 // Value
	// KindIndex is a bit position or field name that cannot be resolved.
	KindIndex Kind = 4 // Index
	// KindOverflow is a value that does not fit in its target bit range.
	KindOverflow Kind = 5 // Overflow
	// KindSerialization is an attempt to serialize a value that cannot be serialized.
	KindSerialization Kind = 6 // Serialization
)

var kindNames = [...]string{
	KindUnknown:       "Unknown",
	KindLayout:        "Layout",
	KindType:          "Type",
	KindValue:         "Value",
	KindIndex:         "Index",
	KindOverflow:      "Overflow",
	KindSerialization: "Serialization",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Sentinels for use with Is(). Any *Error matches the sentinel of its Kind.
var (
	ErrLayout        = &Error{Kind: KindLayout}
	ErrType          = &Error{Kind: KindType}
	ErrValue         = &Error{Kind: KindValue}
	ErrIndex         = &Error{Kind: KindIndex}
	ErrOverflow      = &Error{Kind: KindOverflow}
	ErrSerialization = &Error{Kind: KindSerialization}
)

// Error is the error type returned by binfield packages.
type Error struct {
	// Kind is the kind of error.
	Kind Kind
	// Err is the underlying error. It carries a stack trace when created by E() or Wrap().
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + "Error"
	}
	return fmt.Sprintf("%sError: %s", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports if target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Format implements fmt.Formatter so that "%+v" prints the stack trace of the cause.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') && e.Err != nil {
		fmt.Fprintf(s, "%sError: %+v", e.Kind, e.Err)
		return
	}
	fmt.Fprint(s, e.Error())
}

// E creates a new *Error of kind k.
func E(k Kind, format string, args ...any) error {
	return &Error{Kind: k, Err: errors.Errorf(format, args...)}
}

// Wrap wraps err in an *Error of kind k with an additional message. If err is nil, this
// returns nil.
func Wrap(k Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Err: errors.Wrapf(err, format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain. KindUnknown is returned if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
