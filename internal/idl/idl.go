// Package idl parses .bits files, a small text format for declaring bit field layouts.
package idl

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/gostdlib/base/context"
	"github.com/johnsiilver/halfpike"
	"github.com/sirupsen/logrus"

	"github.com/bearlytools/binfield"
	"github.com/bearlytools/binfield/errors"
	"github.com/bearlytools/binfield/internal/conversions"
	"github.com/bearlytools/binfield/mapping"
)

/*
package {{package name}}

Layout {{Ident}} [size {{Integer}}] [mask {{Integer}}] {
	{{Name}} @{{Bit}}
	{{Name}} @{{Start}}:{{Stop}}
	{{Name}} @{{Start}}:
	{{Name}} @{{Start}}:{{Stop}} {
		{{Name}} @{{Bit}}
	}
}
*/

var log = logrus.WithField("prefix", "idl")

// File is a parsed .bits file.
type File struct {
	Package string
	Layouts []*Layout

	byName map[string]*Layout
}

// Layout is a single Layout block.
type Layout struct {
	Name string
	// Size is the fixed size in bits, 0 if not given.
	Size int
	// Mask is nil if not given.
	Mask   *big.Int
	Fields mapping.Decl
	// LineNum is the line the Layout starts on.
	LineNum int
}

// New returns an empty File ready for halfpike.Parse.
func New() *File {
	return &File{byName: map[string]*Layout{}}
}

// Validate implements halfpike.Validator.
func (f *File) Validate() error {
	if f.Package == "" {
		return fmt.Errorf("missing 'package' directive")
	}
	if len(f.Layouts) == 0 {
		return fmt.Errorf("file has no Layout blocks")
	}
	return nil
}

// Start is the start point for reading the file.
func (f *File) Start(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	return f.ParsePackage
}

// ParsePackage parses the package line, which must be the first non-comment line.
func (f *File) ParsePackage(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	line := skipLinesWithComments(p)
	w := words(line)

	if len(w) != 2 {
		return p.Errorf("[Line %d] error: got %q, want: 'package {{package name}}'", line.LineNum, strings.TrimSpace(line.Raw))
	}
	if err := caseSensitiveCheck("package", w[0]); err != nil {
		return p.Errorf("[Line %d] error: %s", line.LineNum, err)
	}
	if err := validPackage(w[1]); err != nil {
		return p.Errorf("[Line %d] error: %s", line.LineNum, err)
	}
	f.Package = w[1]

	return f.FindNext
}

// FindNext finds the next top level block.
func (f *File) FindNext(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	line := skipLinesWithComments(p)
	if p.EOF(line) {
		return nil
	}

	w := words(line)
	switch w[0] {
	case "Layout":
		p.Backup()
		return f.ParseLayout
	case "package":
		return p.Errorf("[Line %d] error: duplicate 'package' line found", line.LineNum)
	default:
		if strings.EqualFold(w[0], "layout") {
			return p.Errorf("[Line %d] error: %q keyword found, but it is required to be \"Layout\"", line.LineNum, w[0])
		}
		return p.Errorf("[Line %d] do not understand this line", line.LineNum)
	}
}

// ParseLayout parses a Layout block.
func (f *File) ParseLayout(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	l, err := parseLayout(p)
	if err != nil {
		return p.Errorf("%s", err)
	}
	if prev, ok := f.byName[l.Name]; ok {
		return p.Errorf("[Line %d] error: Layout %q already declared on line %d", l.LineNum, l.Name, prev.LineNum)
	}
	f.byName[l.Name] = l
	f.Layouts = append(f.Layouts, l)

	return f.FindNext
}

func parseLayout(p *halfpike.Parser) (*Layout, error) {
	line := p.Next()
	w := words(line)

	if len(w) < 3 {
		return nil, fmt.Errorf("[Line %d] error: Layout line has incorrect format", line.LineNum)
	}
	if err := validateIdent(w[1]); err != nil {
		return nil, fmt.Errorf("[Line %d] error: Layout identifier: %w", line.LineNum, err)
	}
	l := &Layout{Name: w[1], LineNum: line.LineNum}

	i := 2
	for ; i < len(w)-1; i += 2 {
		switch w[i] {
		case "size":
			if l.Size != 0 {
				return nil, fmt.Errorf("[Line %d] error: duplicate 'size'", line.LineNum)
			}
			n, err := strconv.Atoi(w[i+1])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("[Line %d] error: size must be a positive integer, got %q", line.LineNum, w[i+1])
			}
			l.Size = n
		case "mask":
			if l.Mask != nil {
				return nil, fmt.Errorf("[Line %d] error: duplicate 'mask'", line.LineNum)
			}
			m, ok := new(big.Int).SetString(w[i+1], 0)
			if !ok || m.Sign() < 0 {
				return nil, fmt.Errorf("[Line %d] error: mask must be a non-negative integer, got %q", line.LineNum, w[i+1])
			}
			l.Mask = m
		default:
			return nil, fmt.Errorf("[Line %d] error: expected 'size', 'mask' or '{', got %q", line.LineNum, w[i])
		}
	}
	if i != len(w)-1 || w[i] != "{" {
		return nil, fmt.Errorf("[Line %d] error: expected '{' at the end of the line", line.LineNum)
	}

	fields, err := parseBlock(p, line.LineNum)
	if err != nil {
		return nil, err
	}
	l.Fields = fields
	return l, nil
}

// parseBlock reads field lines up to and including the closing '}' of the block opened on line
// open.
func parseBlock(p *halfpike.Parser, open int) (mapping.Decl, error) {
	decl := mapping.Decl{}
	for {
		line := p.Next()
		if p.EOF(line) {
			return nil, fmt.Errorf("[Line %d]: Malformed block, EOF reached before closing '}'", open)
		}
		w := words(line)
		if len(w) == 0 {
			continue
		}
		if w[0] == "}" {
			if len(w) > 1 {
				return nil, fmt.Errorf("[Line %d]: error: got %q after '}'", line.LineNum, strings.Join(w[1:], " "))
			}
			return decl, nil
		}

		if len(w) < 2 || len(w) > 3 || (len(w) == 3 && w[2] != "{") {
			return nil, fmt.Errorf("[Line %d]: Malformed field, want '{{Name}} @{{Position}}'", line.LineNum)
		}
		name := w[0]
		if err := validateField(name); err != nil {
			return nil, fmt.Errorf("[Line %d]: error: field identifier: %w", line.LineNum, err)
		}
		if _, ok := decl[name]; ok {
			return nil, fmt.Errorf("[Line %d]: error: field %q already declared in this block", line.LineNum, name)
		}
		pos, err := parsePosition(w[1])
		if err != nil {
			return nil, fmt.Errorf("[Line %d]: error: %w", line.LineNum, err)
		}

		if len(w) == 2 {
			decl[name] = pos
			continue
		}

		inner, err := parseBlock(p, line.LineNum)
		if err != nil {
			return nil, err
		}
		if len(inner) == 0 {
			return nil, fmt.Errorf("[Line %d]: error: nested field %q has no fields", line.LineNum, name)
		}
		decl[name] = mapping.Nested{Index: asRange(pos), Fields: inner}
	}
}

// parsePosition reads @bit, @start:stop or @start:. A single bit comes back as an int.
func parsePosition(s string) (any, error) {
	if !strings.HasPrefix(s, "@") {
		return nil, fmt.Errorf("expected @{{Position}} after identifier, got %q", s)
	}
	body := s[1:]

	start, stop, isRange := strings.Cut(body, ":")
	first, err := strconv.Atoi(start)
	if err != nil || first < 0 {
		return nil, fmt.Errorf("position %q has an invalid start", s)
	}
	if !isRange {
		return first, nil
	}
	if stop == "" {
		return mapping.From(first), nil
	}
	last, err := strconv.Atoi(stop)
	if err != nil || last <= first {
		return nil, fmt.Errorf("position %q has an invalid stop", s)
	}
	return mapping.Span(first, last), nil
}

func asRange(pos any) mapping.Range {
	if i, ok := pos.(int); ok {
		return mapping.Bit(i)
	}
	return pos.(mapping.Range)
}

// Types builds a *binfield.Type for every Layout, in file order.
func (f *File) Types() ([]*binfield.Type, error) {
	types := make([]*binfield.Type, 0, len(f.Layouts))
	for _, l := range f.Layouts {
		t, err := l.Type()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// Type builds the *binfield.Type for the Layout called name.
func (f *File) Type(name string) (*binfield.Type, error) {
	l, ok := f.byName[name]
	if !ok {
		return nil, errors.E(errors.KindIndex, "package %s has no Layout %q", f.Package, name)
	}
	return l.Type()
}

// Type builds the *binfield.Type the Layout declares.
func (l *Layout) Type() (*binfield.Type, error) {
	var options []binfield.TypeOption
	size := l.Size
	if l.Size > 0 {
		options = append(options, binfield.WithSize(l.Size))
	}
	if l.Mask != nil {
		options = append(options, binfield.WithMask(l.Mask))
		if size == 0 {
			size = l.Mask.BitLen()
		}
	}
	if len(l.Fields) > 0 {
		m, err := mapping.Prepare(l.Fields)
		if err == nil {
			err = m.Within(size)
		}
		if err != nil {
			return nil, errors.Wrap(errors.KindOf(err), err, "Layout %s (line %d)", l.Name, l.LineNum)
		}
		options = append(options, binfield.WithMap(m))
	}

	t, err := binfield.NewType(l.Name, options...)
	if err != nil {
		return nil, errors.Wrap(errors.KindOf(err), err, "Layout %s (line %d)", l.Name, l.LineNum)
	}
	return t, nil
}

// Parse parses the content of a .bits file. Syntax errors are errors.ErrLayout.
func Parse(ctx context.Context, content []byte) (*File, error) {
	f := New()
	if err := halfpike.Parse(ctx, conversions.ByteSlice2String(content), f); err != nil {
		log.WithError(err).Debug("rejected .bits file")
		return nil, errors.Wrap(errors.KindLayout, err, "failed to parse .bits file")
	}
	return f, nil
}

// ParseFile reads and parses the .bits file at path.
func ParseFile(ctx context.Context, path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(ctx, content)
	if err != nil {
		return nil, errors.Wrap(errors.KindLayout, err, "%s", path)
	}
	return f, nil
}

// skipLinesWithComments returns the next line that has something other than a comment, or the
// EOF line.
func skipLinesWithComments(p *halfpike.Parser) halfpike.Line {
	for {
		l := p.Next()
		if p.EOF(l) || len(words(l)) > 0 {
			return l
		}
	}
}

// words returns the values of the items on a line, stopping at a comment.
func words(line halfpike.Line) []string {
	var w []string
	for _, item := range line.Items {
		if isComment(item) {
			break
		}
		if v := strings.TrimSpace(item.Val); v != "" {
			w = append(w, v)
		}
	}
	return w
}

func isComment(item halfpike.Item) bool {
	return strings.HasPrefix(item.Val, "//")
}

func caseSensitiveCheck(want string, item string) error {
	if item != want {
		if strings.EqualFold(item, want) {
			return fmt.Errorf("%q keyword found, but it is required to be %q", item, want)
		}
		return fmt.Errorf("got: %q, want: %q", item, want)
	}
	return nil
}

func validPackage(pkgName string) error {
	runes := []rune(pkgName)
	if unicode.IsUpper(runes[0]) {
		return fmt.Errorf("package name cannot start with an uppercase letter")
	}
	if !unicode.IsLetter(runes[0]) {
		return fmt.Errorf("package name must start with a letter")
	}
	for _, r := range runes[1:] {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			continue
		}
		return fmt.Errorf("package name contains character %q which is invalid for a package name", r)
	}
	return nil
}

func validateIdent(ident string) error {
	runes := []rune(ident)
	if unicode.IsLower(runes[0]) {
		return fmt.Errorf("identifier cannot start with an lowercase letter")
	}
	if !unicode.IsLetter(runes[0]) {
		return fmt.Errorf("identifier must start with a letter")
	}
	for _, r := range runes[1:] {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			continue
		}
		return fmt.Errorf("identifier contains character %q which is invalid for an identifer", r)
	}
	return nil
}

// validateField is validateIdent, but field names may start in either case and contain '_'.
// "_index_" is reserved.
func validateField(name string) error {
	if name == mapping.IndexKey {
		return fmt.Errorf("%q is reserved", name)
	}
	runes := []rune(name)
	if !unicode.IsLetter(runes[0]) {
		return fmt.Errorf("identifier must start with a letter")
	}
	for _, r := range runes[1:] {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			continue
		}
		return fmt.Errorf("identifier contains character %q which is invalid for a field", r)
	}
	return nil
}
