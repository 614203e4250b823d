// Package compiler invokes the external ahead-of-time bytecode compiler
// as a subprocess. The compiled bytecode replaces the input text bundle
// in place; when requested, the compiler's own position map is emitted
// alongside for later composition.
//
// The subprocess boundary is an injected Runner so hosts and tests can
// substitute their own process-invocation primitive.
package compiler
