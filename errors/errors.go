package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the pipeline the error occurred
type Phase string

const (
	PhaseConfig  Phase = "config"  // run configuration
	PhaseResolve Phase = "resolve" // path resolution
	PhaseVerify  Phase = "verify"  // on-disk checks and map relocation
	PhaseCompile Phase = "compile" // external bytecode compiler
	PhaseCompose Phase = "compose" // position map composition
)

// Kind categorizes the error
type Kind string

const (
	KindMissingConfig  Kind = "missing_config"
	KindMissingBundle  Kind = "missing_bundle"
	KindCompilerFailed Kind = "compiler_failed"
	KindMapFormat      Kind = "map_format"
	KindIO             Kind = "io"
)

// Error is the structured error type used throughout the pipeline
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Asset  string // asset name, when the error is scoped to one asset
	File   string // on-disk path involved
	Output string // diagnostic output captured from the external compiler
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Asset != "" {
		b.WriteString(" for ")
		b.WriteString(e.Asset)
	}

	if e.File != "" {
		b.WriteString(" at ")
		b.WriteString(e.File)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	if e.Output != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(e.Output, "\n"))
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Asset sets the asset name
func (b *Builder) Asset(name string) *Builder {
	b.err.Asset = name
	return b
}

// File sets the on-disk path
func (b *Builder) File(path string) *Builder {
	b.err.File = path
	return b
}

// Output sets the captured compiler output
func (b *Builder) Output(out string) *Builder {
	b.err.Output = out
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MissingConfig creates a fatal configuration error
func MissingConfig(detail string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindMissingConfig,
		Detail: detail,
	}
}

// MissingBundle creates a missing bundle error for one asset
func MissingBundle(asset, path string) *Error {
	return &Error{
		Phase:  PhaseVerify,
		Kind:   KindMissingBundle,
		Asset:  asset,
		File:   path,
		Detail: "bundle not found on disk",
	}
}

// CompilerFailed creates an error carrying the compiler's diagnostics
func CompilerFailed(path, output string, cause error) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindCompilerFailed,
		File:   path,
		Output: output,
		Detail: "bytecode compiler exited with an error",
		Cause:  cause,
	}
}

// MapFormat creates a malformed position map error
func MapFormat(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseCompose,
		Kind:   KindMapFormat,
		Detail: fmt.Sprintf("%s is not a well-formed position map", what),
		Cause:  cause,
	}
}

// IO wraps a filesystem failure with its pipeline phase
func IO(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
	}
}
