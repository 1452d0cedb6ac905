// Package compiler implements a small class-declaration language that
// compiles script sources into code.Code.
//
// A script is a sequence of lines:
//
//	# comment
//	class Geo::Point extends Shape
//	  x = 1
//	  y = 2
//	end
//	print point
//
// "class" opens a class declaration, "name = value" lines add members to it
// and "end" (or the next "class") closes it. Every other line outside a class
// is script body; a source with script body, or with no class at all,
// produces a script class named after the source's ScriptName. The main
// class of a source is its script class if it has one, else its first
// declared class. Superclasses must be declared in the same batch or be
// loadable through the compiler's parent loader.
package compiler

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/source"
	"github.com/hashicorp/go-multierror"
)

var classNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(::[A-Za-z_][A-Za-z0-9_]*)*$`)
var memberNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Factory creates compilers for any parent loader.
var Factory code.CompilerFactory = code.CompilerFactoryFunc(func(parent code.ClassLoader) code.Compiler {
	return New(parent)
})

// Compiler compiles batches of script sources.
type Compiler struct {
	parent code.ClassLoader
}

// New creates a compiler resolving superclasses through parent, which may
// be nil.
func New(parent code.ClassLoader) *Compiler {
	return &Compiler{parent: parent}
}

// SyntaxError is a problem at a line of a source.
type SyntaxError struct {
	SourceID string
	Line     int
	Msg      string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.SourceID, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.SourceID, e.Msg)
}

// unit is one class parsed from a source.
type unit struct {
	file *ClassFile
	src  source.Source
	line int
}

// Compile parses every source of the batch and produces its Code. All
// problems found are reported together in one *code.CompileError.
func (c *Compiler) Compile(sources *code.Sources) (*code.Code, error) {
	var errs *multierror.Error
	var units []*unit
	byName := make(map[string]*unit)
	var infos []*code.CompiledSourceInfo

	for _, src := range sources.Sources() {
		// Read the signal before the text, so an edit racing with this
		// compile is seen as a change next time.
		lastModified := src.LastModified()

		parsed, err := parse(src)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		var names []string
		for _, u := range parsed {
			if prev, dup := byName[u.file.Name]; dup {
				errs = multierror.Append(errs, &SyntaxError{
					SourceID: src.ID(),
					Line:     u.line,
					Msg:      fmt.Sprintf("class %s already declared in %s", u.file.Name, prev.src.ID()),
				})
				continue
			}
			byName[u.file.Name] = u
			units = append(units, u)
			names = append(names, u.file.Name)
		}
		if len(names) == 0 {
			continue
		}
		infos = append(infos, code.NewCompiledSourceInfo(src, parsed[0].file.Name, names, lastModified))
	}

	for _, u := range units {
		if u.file.Super == "" {
			continue
		}
		if _, ok := byName[u.file.Super]; ok {
			continue
		}
		if c.parent != nil {
			if _, err := c.parent.LoadClass(u.file.Super); err == nil {
				continue
			}
		}
		errs = multierror.Append(errs, &SyntaxError{
			SourceID: u.src.ID(),
			Line:     u.line,
			Msg:      fmt.Sprintf("unresolved superclass %s of %s", u.file.Super, u.file.Name),
		})
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, &code.CompileError{SourcesName: sources.Name(), Err: err}
	}

	bytecodes := make([]*code.Bytecode, 0, len(units))
	for _, u := range units {
		bytecodes = append(bytecodes, code.NewBytecode(u.file.Name, u.file.Encode()))
	}
	return code.New(sources.Name(), infos, bytecodes)
}

// parse returns the classes of src, main class first.
func parse(src source.Source) ([]*unit, error) {
	script, ok := src.(source.Script)
	if !ok {
		return nil, &SyntaxError{SourceID: src.ID(), Msg: "source has no script text"}
	}
	text, err := script.Text()
	if err != nil {
		return nil, &SyntaxError{SourceID: src.ID(), Msg: err.Error()}
	}

	var classes []*unit
	var current *unit
	var body []string

	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch {
		case fields[0] == "class":
			u, err := parseClassLine(src, lineNo, fields)
			if err != nil {
				return nil, err
			}
			classes = append(classes, u)
			current = u
		case fields[0] == "end" && len(fields) == 1:
			if current == nil {
				return nil, &SyntaxError{SourceID: src.ID(), Line: lineNo, Msg: "end outside class"}
			}
			current = nil
		case current != nil:
			key, value, ok := strings.Cut(line, "=")
			key = strings.TrimSpace(key)
			if !ok || !memberNameRe.MatchString(key) {
				return nil, &SyntaxError{SourceID: src.ID(), Line: lineNo, Msg: fmt.Sprintf("expected member assignment, got %q", line)}
			}
			current.file.Members[key] = strings.TrimSpace(value)
		default:
			body = append(body, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &SyntaxError{SourceID: src.ID(), Msg: err.Error()}
	}

	if len(body) == 0 && len(classes) > 0 {
		return classes, nil
	}
	name := script.ScriptName()
	if !classNameRe.MatchString(name) {
		return nil, &SyntaxError{SourceID: src.ID(), Msg: fmt.Sprintf("invalid script class name %q", name)}
	}
	main := &unit{
		file: &ClassFile{Name: name, Members: map[string]string{}, Body: body},
		src:  src,
	}
	return append([]*unit{main}, classes...), nil
}

func parseClassLine(src source.Source, lineNo int, fields []string) (*unit, error) {
	bad := func(msg string) error {
		return &SyntaxError{SourceID: src.ID(), Line: lineNo, Msg: msg}
	}
	var super string
	switch len(fields) {
	case 2:
	case 4:
		if fields[2] != "extends" {
			return nil, bad(fmt.Sprintf("expected extends, got %q", fields[2]))
		}
		super = fields[3]
		if !classNameRe.MatchString(super) {
			return nil, bad(fmt.Sprintf("invalid superclass name %q", super))
		}
	default:
		return nil, bad("expected: class Name [extends Super]")
	}
	if !classNameRe.MatchString(fields[1]) {
		return nil, bad(fmt.Sprintf("invalid class name %q", fields[1]))
	}
	return &unit{
		file: &ClassFile{Name: fields[1], Super: super, Members: map[string]string{}},
		src:  src,
		line: lineNo,
	}, nil
}
