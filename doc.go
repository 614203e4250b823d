// Package hermespost post-processes compiled JavaScript bundles into
// ahead-of-time bytecode and reconciles their source maps.
//
// It runs once, after a bundler has emitted all build artifacts, as the
// final step before artifacts are release-ready. For every emitted asset
// that matches the configured rule it resolves the asset's on-disk paths,
// invokes the external bytecode compiler so the bytecode replaces the text
// bundle in place, and composes the bundler-generated and
// compiler-generated position maps into one map that resolves bytecode
// stack traces back to original sources.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	hermespost/          Root package with Asset, Platform and Config types
//	├── paths/           Pure resolution of bundle/map paths per asset
//	├── compiler/        External bytecode compiler invocation
//	├── compose/         Position map composition (original -> bytecode)
//	├── pipeline/        Per-asset orchestration, run concurrently
//	├── errors/          Structured error types for diagnostics
//	└── cmd/hermespost/  CLI front end with optional interactive progress
//
// # Quick Start
//
// Run the pipeline over a finished build:
//
//	cfg := hermespost.Config{
//	    Platform:         hermespost.PlatformIOS,
//	    BundleOutputPath: "/out/main.jsbundle",
//	    MainBundleName:   "index.bundle",
//	}
//
//	comp := compiler.New("/path/to/hermesc")
//	p := pipeline.New(cfg, match, comp)
//	if err := p.Run(ctx, assets); err != nil {
//	    log.Fatal(err)
//	}
//
// After a successful run the file at each resolved bundle path is
// bytecode, the file at each resolved map path is a composed map that
// references original sources, and no transient ".packager.map" files
// remain.
//
// # Concurrency
//
// Each matching asset's pipeline runs in its own goroutine with disjoint
// file paths, so no cross-asset synchronization is needed. Run blocks
// until every asset pipeline settles and fails if any of them failed;
// a bundle that is simply not materialized on disk is a logged skip, not
// a failure.
package hermespost
