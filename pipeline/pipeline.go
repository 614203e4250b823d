package pipeline

import (
	"context"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	hermespost "github.com/bundleworks/hermes-post"
	"github.com/bundleworks/hermes-post/compiler"
	"github.com/bundleworks/hermes-post/compose"
	"github.com/bundleworks/hermes-post/errors"
	"github.com/bundleworks/hermes-post/paths"
)

// MatchFunc decides whether an emitted asset takes part in the pipeline.
type MatchFunc func(name string) bool

// Pipeline transforms matching bundles to bytecode and reconciles their
// maps. One Pipeline serves one finished build.
type Pipeline struct {
	cfg     hermespost.Config
	match   MatchFunc
	comp    *compiler.Compiler
	observe Observer
	enabled bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// Enabled toggles the whole pipeline. A disabled pipeline's Run is a
// logged no-op, not an error.
func Enabled(enabled bool) Option {
	return func(p *Pipeline) { p.enabled = enabled }
}

// WithObserver registers a callback for per-asset stage transitions.
// The callback may be invoked from multiple goroutines.
func WithObserver(fn Observer) Option {
	return func(p *Pipeline) { p.observe = fn }
}

// New creates a Pipeline. match may be nil to process every asset.
func New(cfg hermespost.Config, match MatchFunc, comp *compiler.Compiler, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		match:   match,
		comp:    comp,
		enabled: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes all matching assets of a finished build. It is invoked
// exactly once, after every asset has been emitted, and blocks until all
// asset pipelines settle.
//
// Each matching asset runs in its own goroutine; asset paths are disjoint
// by construction, so the pipelines share no state. Run returns the first
// asset failure after all pipelines have finished. A compiler or compose
// failure for one asset does not interrupt the others, but it does fail
// the aggregate run so bad bytecode is never silently shipped. A bundle
// missing on disk is a logged skip, not a failure.
func (p *Pipeline) Run(ctx context.Context, assets []hermespost.Asset) error {
	if !p.enabled {
		Logger().Info("bytecode pipeline disabled, leaving bundles as emitted")
		return nil
	}
	if err := p.cfg.Validate(); err != nil {
		return err
	}

	var g errgroup.Group
	for _, asset := range assets {
		asset := asset
		if p.match != nil && !p.match(asset.Name) {
			continue
		}
		g.Go(func() error {
			return p.process(ctx, asset)
		})
	}
	return g.Wait()
}

// process runs one asset's pipeline: resolve -> verify -> relocate map ->
// compile -> compose. Steps are strictly sequential; each step's output
// is the next step's input.
func (p *Pipeline) process(ctx context.Context, asset hermespost.Asset) error {
	resolved := paths.Resolve(asset.Name, asset.LogicalPath, p.cfg)
	p.emit(asset, StageResolved, nil)

	if !fileExists(resolved.BundlePath) {
		// The asset may legitimately not be materialized locally,
		// e.g. remotely hosted chunks. The structured record rides on
		// the skip event; it is not a failure of the run.
		miss := errors.MissingBundle(asset.Name, resolved.BundlePath)
		Logger().Warn("bundle not found on disk, skipping asset",
			zap.String("asset", asset.Name),
			zap.String("path", resolved.BundlePath),
		)
		p.emit(asset, StageSkipped, miss)
		return nil
	}

	withMap := fileExists(resolved.SourceMapPath)
	if withMap {
		// Free the final map slot and keep the bundler's map for
		// composition.
		if err := os.Rename(resolved.SourceMapPath, resolved.PackagerMapPath); err != nil {
			werr := errors.New(errors.PhaseVerify, errors.KindIO).
				Asset(asset.Name).
				File(resolved.SourceMapPath).
				Detail("relocate packager map").
				Cause(err).
				Build()
			p.emit(asset, StageFailed, werr)
			return werr
		}
	} else {
		Logger().Info("no source map for asset, compiling without maps",
			zap.String("asset", asset.Name),
			zap.String("path", resolved.SourceMapPath),
		)
	}

	p.emit(asset, StageCompiling, nil)
	result, err := p.comp.Compile(ctx, resolved.BundlePath, withMap)
	if err != nil {
		p.emit(asset, StageFailed, err)
		return err
	}

	if withMap {
		p.emit(asset, StageComposing, nil)
		if err := compose.Files(resolved.PackagerMapPath, result.CompilerMapPath, resolved.SourceMapPath); err != nil {
			p.emit(asset, StageFailed, err)
			return err
		}
		// Both inputs are superseded by the composed map and must not
		// outlive the run.
		removeQuietly(resolved.PackagerMapPath)
		removeQuietly(result.CompilerMapPath)
	}

	Logger().Info("bundle compiled to bytecode",
		zap.String("asset", asset.Name),
		zap.String("bundle", resolved.BundlePath),
		zap.Bool("sourceMap", withMap),
	)
	p.emit(asset, StageDone, nil)
	return nil
}

func (p *Pipeline) emit(asset hermespost.Asset, stage Stage, err error) {
	if p.observe != nil {
		p.observe(Event{Asset: asset, Stage: stage, Err: err})
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil {
		Logger().Warn("could not remove transient map", zap.String("path", path), zap.Error(err))
	}
}
