// Package compose combines two sequential position maps into one.
//
// The packager map encodes original-source -> bundled-text positions, the
// compiler map encodes bundled-text -> bytecode positions; composition
// yields one original-source -> bytecode map so stack traces from the
// bytecode still resolve to original source locations.
package compose
