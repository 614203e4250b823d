package paths

import (
	"path/filepath"

	hermespost "github.com/bundleworks/hermes-post"
)

// PackagerMapSuffix marks the transient holding location for the bundler's
// own map while the final map slot is rewritten.
const PackagerMapSuffix = ".packager.map"

// Resolved holds the authoritative on-disk locations for one asset.
type Resolved struct {
	// BundlePath is where the text bundle sits and where the bytecode
	// ends up. Must exist before transformation.
	BundlePath string

	// SourceMapPath is the final location of the composed map.
	SourceMapPath string

	// PackagerMapPath is the transient pre-compose location of the
	// bundler's map. Never read by the end user; consumed by composition.
	PackagerMapPath string
}

// Resolve computes the on-disk paths for one emitted asset. It is a pure
// function of its inputs and performs no I/O.
//
// The asset whose name equals the configured entry name is the main
// bundle and lives at the configured bundle output path on every
// platform. Secondary bundles follow the asset's logical path under the
// assets directory on iOS and under the bundle directory elsewhere,
// matching how the two platforms lay out their final packages.
func Resolve(name, logicalPath string, cfg hermespost.Config) Resolved {
	main := name == cfg.EntryName()

	var bundle string
	switch {
	case main:
		bundle = cfg.BundleOutputPath
	case cfg.Platform == hermespost.PlatformIOS:
		bundle = filepath.Join(cfg.AssetsDir(), logicalPath)
	default:
		bundle = filepath.Join(cfg.BundleDir(), logicalPath)
	}

	mapDir := cfg.SourceMapDir()
	r := Resolved{
		BundlePath:      bundle,
		PackagerMapPath: filepath.Join(mapDir, filepath.Base(bundle)+PackagerMapSuffix),
	}

	// iOS packaging expects a secondary bundle's map right next to the
	// bundle itself; everything else goes to the map directory.
	if !main && cfg.Platform == hermespost.PlatformIOS {
		r.SourceMapPath = bundle + ".map"
	} else {
		r.SourceMapPath = filepath.Join(mapDir, filepath.Base(bundle)+".map")
	}

	return r
}
