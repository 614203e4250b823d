package main

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	hermespost "github.com/bundleworks/hermes-post"
	"github.com/bundleworks/hermes-post/pipeline"
)

// defaultIncludes matches the bundle names bundlers emit by default.
var defaultIncludes = []string{"*.bundle", "*.jsbundle"}

// manifest is the YAML run description the build hook serializes for the
// CLI: the build configuration plus the list of emitted assets.
type manifest struct {
	Enabled         *bool    `yaml:"enabled"`
	Platform        string   `yaml:"platform"`
	BundleOutput    string   `yaml:"bundleOutput"`
	SourceMapOutput string   `yaml:"sourceMapOutput"`
	AssetsDest      string   `yaml:"assetsDest"`
	EntryBundle     string   `yaml:"entryBundle"`
	Compiler        string   `yaml:"compiler"`
	CompilerArgs    []string `yaml:"compilerArgs"`
	Include         []string `yaml:"include"`
	Exclude         []string `yaml:"exclude"`

	Assets []manifestAsset `yaml:"assets"`
}

type manifestAsset struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

func (m *manifest) isEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

func (m *manifest) config() hermespost.Config {
	return hermespost.Config{
		Platform:            hermespost.Platform(m.Platform),
		BundleOutputPath:    m.BundleOutput,
		SourceMapOutputPath: m.SourceMapOutput,
		AssetsOutputDir:     m.AssetsDest,
		MainBundleName:      m.EntryBundle,
	}
}

func (m *manifest) assetList() []hermespost.Asset {
	assets := make([]hermespost.Asset, 0, len(m.Assets))
	for _, a := range m.Assets {
		path := a.Path
		if path == "" {
			path = a.Name
		}
		assets = append(assets, hermespost.Asset{Name: a.Name, LogicalPath: path})
	}
	return assets
}

// matcher builds the match predicate from the manifest's include/exclude
// globs. A name matches when it matches any include pattern and no
// exclude pattern.
func (m *manifest) matcher() (pipeline.MatchFunc, error) {
	includes := m.Include
	if len(includes) == 0 {
		includes = defaultIncludes
	}

	for _, pat := range append(append([]string{}, includes...), m.Exclude...) {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("invalid match pattern %q", pat)
		}
	}
	excludes := m.Exclude

	return func(name string) bool {
		for _, pat := range excludes {
			if ok, _ := doublestar.Match(pat, name); ok {
				return false
			}
		}
		for _, pat := range includes {
			if ok, _ := doublestar.Match(pat, name); ok {
				return true
			}
		}
		return false
	}, nil
}
