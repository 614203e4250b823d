package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/bundleworks/hermes-post/compiler"
	"github.com/bundleworks/hermes-post/pipeline"
)

func main() {
	var (
		manifestPath = flag.String("manifest", "", "Path to the build manifest (YAML)")
		compilerPath = flag.String("compiler", "", "Path to the bytecode compiler binary (overrides manifest)")
		verbose      = flag.Bool("v", false, "Verbose logging")
		interactive  = flag.Bool("i", false, "Interactive mode with live progress")
	)
	flag.Parse()

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: hermespost -manifest <build.yaml> [-compiler path] [-v]")
		fmt.Fprintln(os.Stderr, "       hermespost -manifest <build.yaml> -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(*manifestPath, *compilerPath, *verbose, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(manifestPath, compilerOverride string, verbose, interactive bool) error {
	m, err := loadManifest(manifestPath)
	if err != nil {
		return err
	}

	match, err := m.matcher()
	if err != nil {
		return err
	}

	bin := compilerOverride
	if bin == "" {
		bin = m.Compiler
	}
	if bin == "" {
		return fmt.Errorf("no compiler binary configured: set compiler in the manifest or pass -compiler")
	}

	comp := compiler.New(bin, compiler.WithArgs(m.CompilerArgs...))

	if interactive && term.IsTerminal(int(os.Stdout.Fd())) {
		return runInteractive(m, match, comp)
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	pipeline.SetLogger(logger)
	compiler.SetLogger(logger)

	p := pipeline.New(m.config(), match, comp, pipeline.Enabled(m.isEnabled()))
	return p.Run(context.Background(), m.assetList())
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
