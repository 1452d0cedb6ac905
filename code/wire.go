package code

import (
	"fmt"

	"github.com/chazu/codelayers/source"
	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so equal Code encodes to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("code: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireCode struct {
	SourcesName string           `cbor:"1,keyasint"`
	Sources     []wireSourceInfo `cbor:"2,keyasint"`
	Bytecodes   []wireBytecode   `cbor:"3,keyasint"`
}

type wireSourceInfo struct {
	ID            string   `cbor:"1,keyasint"`
	MainClassName string   `cbor:"2,keyasint"`
	ClassNames    []string `cbor:"3,keyasint,omitempty"`
	LastModified  int64    `cbor:"4,keyasint"`
}

type wireBytecode struct {
	ClassName string `cbor:"1,keyasint"`
	Bytes     []byte `cbor:"2,keyasint"`
}

// SourceResolver maps a source ID back to a Source when decoding Code.
type SourceResolver func(id string) (source.Source, error)

// MarshalCode serializes c to canonical CBOR. Sources are written by ID.
func MarshalCode(c *Code) ([]byte, error) {
	w := wireCode{SourcesName: c.sourcesName}
	for _, id := range sortedKeys(c.infos) {
		info := c.infos[id]
		w.Sources = append(w.Sources, wireSourceInfo{
			ID:            id,
			MainClassName: info.mainClassName,
			ClassNames:    info.ClassNames(),
			LastModified:  info.lastModified,
		})
	}
	for _, name := range sortedKeys(c.bytecodes) {
		w.Bytecodes = append(w.Bytecodes, wireBytecode{ClassName: name, Bytes: c.bytecodes[name].bytes})
	}
	return cborEncMode.Marshal(&w)
}

// UnmarshalCode deserializes Code written by MarshalCode, using resolve to
// turn source IDs back into sources. The result is validated like New.
func UnmarshalCode(data []byte, resolve SourceResolver) (*Code, error) {
	var w wireCode
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("code: unmarshal: %w", err)
	}
	infos := make([]*CompiledSourceInfo, 0, len(w.Sources))
	for _, s := range w.Sources {
		src, err := resolve(s.ID)
		if err != nil {
			return nil, fmt.Errorf("code: resolving source %s: %w", s.ID, err)
		}
		if src.ID() != s.ID {
			return nil, fmt.Errorf("code: source %s resolved to %s", s.ID, src.ID())
		}
		infos = append(infos, NewCompiledSourceInfo(src, s.MainClassName, s.ClassNames, s.LastModified))
	}
	bytecodes := make([]*Bytecode, 0, len(w.Bytecodes))
	for _, b := range w.Bytecodes {
		bytecodes = append(bytecodes, NewBytecode(b.ClassName, b.Bytes))
	}
	return New(w.SourcesName, infos, bytecodes)
}
