// Package errors provides structured error types for the bytecode pipeline.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). The Error type carries the asset name, the on-disk
// path involved, captured compiler diagnostics, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCompose, errors.KindMapFormat).
//		Asset("chunk1.bundle").
//		File("/out/chunk1.bundle.packager.map").
//		Detail("unexpected end of mappings").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.CompilerFailed(bundlePath, stderr, cause)
//	err := errors.MissingBundle(asset.Name, resolved.BundlePath)
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind, so callers can classify failures with a
// zero-valued probe:
//
//	errors.Is(err, &errors.Error{Phase: errors.PhaseCompile, Kind: errors.KindCompilerFailed})
package errors
