package compiler

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/codelayers/code"
)

const magic = "codelayers-class 1"

// ClassFile is the decoded form of the bytecode this compiler emits.
type ClassFile struct {
	Name    string
	Super   string
	Members map[string]string
	Body    []string
}

// Encode renders the class deterministically: a magic line, the header
// lines, members sorted by name, then body lines.
func (f *ClassFile) Encode() []byte {
	var b bytes.Buffer
	b.WriteString(magic + "\n")
	b.WriteString("class " + f.Name + "\n")
	if f.Super != "" {
		b.WriteString("extends " + f.Super + "\n")
	}
	keys := make([]string, 0, len(f.Members))
	for k := range f.Members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("member " + k + "=" + f.Members[k] + "\n")
	}
	for _, line := range f.Body {
		b.WriteString("body " + line + "\n")
	}
	return b.Bytes()
}

// Decode parses bytecode produced by Encode.
func Decode(data []byte) (*ClassFile, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() || sc.Text() != magic {
		return nil, fmt.Errorf("not a class file")
	}
	f := &ClassFile{Members: map[string]string{}}
	for sc.Scan() {
		kind, rest, _ := strings.Cut(sc.Text(), " ")
		switch kind {
		case "class":
			f.Name = rest
		case "extends":
			f.Super = rest
		case "member":
			k, v, _ := strings.Cut(rest, "=")
			f.Members[k] = v
		case "body":
			f.Body = append(f.Body, rest)
		default:
			return nil, fmt.Errorf("unknown class file record %q", kind)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if f.Name == "" {
		return nil, fmt.Errorf("class file has no class record")
	}
	return f, nil
}

// Member returns the value of a member of a class compiled by this
// compiler, or "" if the class has no such member or was not compiled here.
func Member(c *code.Class, name string) string {
	f, err := Decode(c.Bytecode().Bytes())
	if err != nil {
		return ""
	}
	return f.Members[name]
}
