// Package pipeline orchestrates the post-build bytecode transformation.
//
// For each emitted asset that matches the configured rule it resolves the
// asset's on-disk paths, verifies the bundle exists, relocates the
// bundler's source map out of the final slot, invokes the bytecode
// compiler, and composes the two position maps into one. All matching
// assets run concurrently; the run fails if any asset's compile or
// compose step fails.
package pipeline
