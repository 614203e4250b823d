package hermespost

import (
	"path/filepath"

	"github.com/bundleworks/hermes-post/errors"
)

// Platform identifies the build target the bundle set was emitted for.
// The two platforms place non-main bundles in different package layouts.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// DefaultMainBundleName is the entry bundle name bundlers emit when no
// explicit name is configured.
const DefaultMainBundleName = "index.bundle"

// Asset is one artifact emitted by the bundler. Name is the asset's
// filename as the bundler reports it; LogicalPath is its path relative to
// the bundler's output root.
type Asset struct {
	Name        string
	LogicalPath string
}

// Config is the build configuration for one pipeline run. It is constant
// for the whole run.
type Config struct {
	Platform Platform

	// BundleOutputPath is the absolute path of the main entry bundle.
	// Required; the run cannot resolve any asset without it.
	BundleOutputPath string

	// SourceMapOutputPath is the configured map output file for the main
	// bundle. When empty, maps are placed next to the bundle.
	SourceMapOutputPath string

	// AssetsOutputDir is where secondary bundles land on iOS. When empty,
	// the bundle output directory is used.
	AssetsOutputDir string

	// MainBundleName distinguishes the main entry bundle from secondary
	// chunk bundles by literal name match.
	MainBundleName string
}

// Validate reports the fatal configuration errors that prevent any asset
// from being resolved. It is checked once at pipeline start.
func (c Config) Validate() error {
	if c.BundleOutputPath == "" {
		return errors.MissingConfig("bundle output path is not set; " +
			"configure the bundler's bundle output before enabling bytecode compilation")
	}
	return nil
}

// BundleDir returns the directory holding the main bundle.
func (c Config) BundleDir() string {
	return filepath.Dir(c.BundleOutputPath)
}

// SourceMapDir returns the directory maps are written to. Defaults to the
// bundle's own directory when no map output path was configured.
func (c Config) SourceMapDir() string {
	if c.SourceMapOutputPath != "" {
		return filepath.Dir(c.SourceMapOutputPath)
	}
	return c.BundleDir()
}

// AssetsDir returns the directory secondary bundles are placed in on iOS.
// Defaults to the bundle output directory when not configured.
func (c Config) AssetsDir() string {
	if c.AssetsOutputDir != "" {
		return c.AssetsOutputDir
	}
	return c.BundleDir()
}

// EntryName returns the configured main bundle name, falling back to
// DefaultMainBundleName.
func (c Config) EntryName() string {
	if c.MainBundleName != "" {
		return c.MainBundleName
	}
	return DefaultMainBundleName
}
