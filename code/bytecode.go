package code

// Bytecode is the compiled bytecode of a single class.
type Bytecode struct {
	className string
	bytes     []byte
}

// NewBytecode creates a Bytecode, copying bytes.
func NewBytecode(className string, bytes []byte) *Bytecode {
	b := make([]byte, len(bytes))
	copy(b, bytes)
	return &Bytecode{className: className, bytes: b}
}

// ClassName returns the fully qualified class name.
func (b *Bytecode) ClassName() string { return b.className }

// Bytes returns the bytecode. The slice is shared and must not be modified.
func (b *Bytecode) Bytes() []byte { return b.bytes }

func (b *Bytecode) String() string { return "bytecode for " + b.className }
