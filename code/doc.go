// Package code holds compiled script artifacts and the contracts around them.
//
// This package contains:
//   - Bytecode: one immutable, named blob of compiled bytecode
//   - Code and SingleSourceCode: the bytecode of one compiled batch of
//     sources plus per-source compile metadata
//   - Sources: a named batch of sources forming one code layer
//   - Compiler and CompilerFactory: the contract of the external compiler
//   - Class, Package and ClassLoader: runtime classes defined from bytecode
//   - the class-name conflict analyzer and the CBOR wire codec for Code
package code
