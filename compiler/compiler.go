package compiler

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/bundleworks/hermes-post/errors"
)

// Result is the outcome of one compilation.
type Result struct {
	// BytecodePath is where the bytecode ended up. Always equal to the
	// input bundle path; callers depend on in-place replacement.
	BytecodePath string

	// CompilerMapPath is the compiler-emitted position map. Set only when
	// a map was requested.
	CompilerMapPath string
}

// Compiler invokes the external ahead-of-time bytecode compiler.
type Compiler struct {
	bin    string
	runner Runner
	extra  []string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithRunner replaces the subprocess runner. Used by tests and by hosts
// that provide their own process-invocation primitive.
func WithRunner(r Runner) Option {
	return func(c *Compiler) { c.runner = r }
}

// WithArgs appends extra compiler arguments, e.g. optimization flags.
func WithArgs(args ...string) Option {
	return func(c *Compiler) { c.extra = append(c.extra, args...) }
}

// New creates a Compiler for the given binary path. Locating the binary
// is the caller's concern; the path is taken as-is.
func New(bin string, opts ...Option) *Compiler {
	c := &Compiler{
		bin:    bin,
		runner: ExecRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile runs the external compiler on bundlePath. On success the
// bytecode has replaced the text bundle at the same path, so downstream
// packaging needs no path changes. When emitMap is true the compiler is
// asked to also emit a position map, reported in the result.
//
// A non-zero exit is returned as a compile/compiler_failed error carrying
// the compiler's diagnostic output. It is not retried: a bytecode
// compiler failure indicates a genuine source or tooling defect.
func (c *Compiler) Compile(ctx context.Context, bundlePath string, emitMap bool) (Result, error) {
	bytecodePath := bundlePath + ".hbc"

	args := []string{"-emit-binary", "-out", bytecodePath}
	if emitMap {
		args = append(args, "-output-source-map")
	}
	args = append(args, c.extra...)
	args = append(args, bundlePath)

	Logger().Debug("compiling bundle",
		zap.String("bundle", bundlePath),
		zap.String("compiler", c.bin),
		zap.Strings("args", args),
	)

	out, err := c.runner.Run(ctx, c.bin, args...)
	if err != nil {
		return Result{}, errors.CompilerFailed(bundlePath, string(out), err)
	}

	// Replace the text bundle with the compiled bytecode.
	if err := os.Rename(bytecodePath, bundlePath); err != nil {
		return Result{}, errors.IO(errors.PhaseCompile, "replace bundle with bytecode", err)
	}

	res := Result{BytecodePath: bundlePath}
	if emitMap {
		// The compiler writes the map next to its -out target.
		res.CompilerMapPath = bytecodePath + ".map"
	}
	return res, nil
}
