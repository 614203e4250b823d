package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/neelance/sourcemap"

	hermespost "github.com/bundleworks/hermes-post"
	"github.com/bundleworks/hermes-post/compiler"
	perrors "github.com/bundleworks/hermes-post/errors"
)

const bytecodeMagic = "HBC\x00"

// fakeCompilerRunner emulates the external compiler: it writes bytecode
// to the -out target and, when asked, a bundled->bytecode map beside it.
// Bundles whose path contains failOn fail with diagnostics.
type fakeCompilerRunner struct {
	failOn string

	mu   sync.Mutex
	runs []string
}

func (f *fakeCompilerRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	inPath := args[len(args)-1]

	f.mu.Lock()
	f.runs = append(f.runs, inPath)
	f.mu.Unlock()

	if f.failOn != "" && strings.Contains(inPath, f.failOn) {
		return []byte(inPath + ":1:1: error: forced failure"), errors.New("exit status 2")
	}

	var outPath string
	emitMap := false
	for i, a := range args {
		switch a {
		case "-out":
			outPath = args[i+1]
		case "-output-source-map":
			emitMap = true
		}
	}

	src, err := os.ReadFile(inPath)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, append([]byte(bytecodeMagic), src...), 0o644); err != nil {
		return nil, err
	}
	if emitMap {
		if err := os.WriteFile(outPath+".map", encodeTestMap(&sourcemap.Mapping{
			GeneratedLine: 1, GeneratedColumn: 0,
			OriginalFile: filepath.Base(inPath), OriginalLine: 1, OriginalColumn: 0,
		}), 0o644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func encodeTestMap(mappings ...*sourcemap.Mapping) []byte {
	m := &sourcemap.Map{Version: 3}
	for _, mp := range mappings {
		m.AddMapping(mp)
	}
	var buf bytes.Buffer
	if err := m.WriteTo(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// packagerMap maps bundled 1:0 back to an original source file.
func packagerMap(originalFile string) []byte {
	return encodeTestMap(&sourcemap.Mapping{
		GeneratedLine: 1, GeneratedColumn: 0,
		OriginalFile: originalFile, OriginalLine: 1, OriginalColumn: 0,
	})
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func matchBundles(name string) bool {
	return strings.HasSuffix(name, ".bundle")
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) observe(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) find(asset string, stage Stage) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Asset.Name == asset && e.Stage == stage {
			return e, true
		}
	}
	return Event{}, false
}

func (l *eventLog) stages(asset string) []Stage {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Stage
	for _, e := range l.events {
		if e.Asset.Name == asset {
			out = append(out, e.Stage)
		}
	}
	return out
}

func assertBytecode(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("bundle missing: %v", err)
	}
	if !bytes.HasPrefix(data, []byte(bytecodeMagic)) {
		t.Errorf("%s is not bytecode, starts with %q", path, data[:min(4, len(data))])
	}
}

func assertComposedMap(t *testing.T, path, wantSource string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("composed map missing: %v", err)
	}
	m, err := sourcemap.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("composed map malformed: %v", err)
	}
	mappings := m.DecodedMappings()
	if len(mappings) == 0 {
		t.Fatal("composed map is empty")
	}
	for _, mp := range mappings {
		if mp.OriginalFile == wantSource {
			return
		}
	}
	t.Errorf("composed map does not reference original source %q", wantSource)
}

func assertNoTransientMaps(t *testing.T, root string) {
	t.Helper()
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, ".packager.map") {
			t.Errorf("transient packager map remains: %s", path)
		}
		if strings.HasSuffix(path, ".hbc.map") {
			t.Errorf("intermediate compiler map remains: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRunEndToEndIOS(t *testing.T) {
	out := t.TempDir()
	cfg := hermespost.Config{
		Platform:         hermespost.PlatformIOS,
		BundleOutputPath: filepath.Join(out, "main.jsbundle"),
		AssetsOutputDir:  filepath.Join(out, "assets"),
		MainBundleName:   "index.bundle",
	}

	writeFile(t, cfg.BundleOutputPath, []byte("main bundle text"))
	writeFile(t, cfg.BundleOutputPath+".map", packagerMap("src/App.js"))
	writeFile(t, filepath.Join(out, "assets", "chunk1.bundle"), []byte("chunk text"))
	writeFile(t, filepath.Join(out, "assets", "chunk1.bundle.map"), packagerMap("src/lazy/Screen.js"))

	runner := &fakeCompilerRunner{}
	log := &eventLog{}
	p := New(cfg, matchBundles,
		compiler.New("/toolchain/hermesc", compiler.WithRunner(runner)),
		WithObserver(log.observe),
	)

	assets := []hermespost.Asset{
		{Name: "index.bundle", LogicalPath: "index.bundle"},
		{Name: "chunk1.bundle", LogicalPath: "chunk1.bundle"},
		{Name: "logo.png", LogicalPath: "img/logo.png"},
	}
	if err := p.Run(context.Background(), assets); err != nil {
		t.Fatalf("Run: %v", err)
	}

	assertBytecode(t, cfg.BundleOutputPath)
	assertBytecode(t, filepath.Join(out, "assets", "chunk1.bundle"))
	assertComposedMap(t, cfg.BundleOutputPath+".map", "src/App.js")
	assertComposedMap(t, filepath.Join(out, "assets", "chunk1.bundle.map"), "src/lazy/Screen.js")
	assertNoTransientMaps(t, out)

	if len(runner.runs) != 2 {
		t.Errorf("compiler ran %d times, want 2 (non-matching asset excluded): %v", len(runner.runs), runner.runs)
	}

	for _, name := range []string{"index.bundle", "chunk1.bundle"} {
		stages := log.stages(name)
		if len(stages) == 0 || stages[len(stages)-1] != StageDone {
			t.Errorf("%s stages = %v, want trailing %v", name, stages, StageDone)
		}
	}
}

func TestRunMissingBundleSkipsAsset(t *testing.T) {
	out := t.TempDir()
	cfg := hermespost.Config{
		Platform:         hermespost.PlatformAndroid,
		BundleOutputPath: filepath.Join(out, "index.android.bundle"),
		MainBundleName:   "index.bundle",
	}

	writeFile(t, cfg.BundleOutputPath, []byte("main bundle text"))

	runner := &fakeCompilerRunner{}
	log := &eventLog{}
	p := New(cfg, matchBundles,
		compiler.New("/toolchain/hermesc", compiler.WithRunner(runner)),
		WithObserver(log.observe),
	)

	assets := []hermespost.Asset{
		{Name: "index.bundle", LogicalPath: "index.bundle"},
		{Name: "remote.bundle", LogicalPath: "remote.bundle"},
	}
	if err := p.Run(context.Background(), assets); err != nil {
		t.Fatalf("missing bundle must not fail the run: %v", err)
	}

	// The sibling still completed.
	assertBytecode(t, cfg.BundleOutputPath)

	stages := log.stages("remote.bundle")
	if len(stages) != 2 || stages[1] != StageSkipped {
		t.Errorf("remote.bundle stages = %v, want [resolved skipped]", stages)
	}

	// The skip event carries the structured record naming the asset and
	// the missing path.
	skip, ok := log.find("remote.bundle", StageSkipped)
	if !ok {
		t.Fatal("no skip event for remote.bundle")
	}
	if !errors.Is(skip.Err, &perrors.Error{Phase: perrors.PhaseVerify, Kind: perrors.KindMissingBundle}) {
		t.Errorf("skip event err = %v, want verify/missing_bundle", skip.Err)
	}
	var miss *perrors.Error
	if errors.As(skip.Err, &miss) {
		if miss.Asset != "remote.bundle" || miss.File == "" {
			t.Errorf("skip record = asset %q file %q", miss.Asset, miss.File)
		}
	}

	// The skipped asset produced no output files.
	if _, err := os.Stat(filepath.Join(out, "remote.bundle")); !os.IsNotExist(err) {
		t.Error("skipped asset left an output file")
	}
}

func TestRunCompilerFailureFailsAggregate(t *testing.T) {
	out := t.TempDir()
	cfg := hermespost.Config{
		Platform:         hermespost.PlatformAndroid,
		BundleOutputPath: filepath.Join(out, "index.android.bundle"),
		MainBundleName:   "index.bundle",
	}

	writeFile(t, cfg.BundleOutputPath, []byte("main bundle text"))
	writeFile(t, filepath.Join(out, "chunk1.bundle"), []byte("chunk text"))

	runner := &fakeCompilerRunner{failOn: "chunk1"}
	p := New(cfg, matchBundles, compiler.New("/toolchain/hermesc", compiler.WithRunner(runner)))

	assets := []hermespost.Asset{
		{Name: "index.bundle", LogicalPath: "index.bundle"},
		{Name: "chunk1.bundle", LogicalPath: "chunk1.bundle"},
	}
	err := p.Run(context.Background(), assets)
	if err == nil {
		t.Fatal("compiler failure must fail the aggregate run")
	}
	if !errors.Is(err, &perrors.Error{Phase: perrors.PhaseCompile, Kind: perrors.KindCompilerFailed}) {
		t.Errorf("error = %v, want compile/compiler_failed", err)
	}

	// The failing asset did not abort its sibling.
	assertBytecode(t, cfg.BundleOutputPath)
}

func TestRunWithoutSourceMap(t *testing.T) {
	out := t.TempDir()
	cfg := hermespost.Config{
		Platform:         hermespost.PlatformAndroid,
		BundleOutputPath: filepath.Join(out, "index.android.bundle"),
		MainBundleName:   "index.bundle",
	}

	writeFile(t, cfg.BundleOutputPath, []byte("main bundle text"))

	runner := &fakeCompilerRunner{}
	p := New(cfg, matchBundles, compiler.New("/toolchain/hermesc", compiler.WithRunner(runner)))

	err := p.Run(context.Background(), []hermespost.Asset{
		{Name: "index.bundle", LogicalPath: "index.bundle"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	assertBytecode(t, cfg.BundleOutputPath)
	if _, err := os.Stat(cfg.BundleOutputPath + ".map"); !os.IsNotExist(err) {
		t.Error("map file created although no packager map existed")
	}
	assertNoTransientMaps(t, out)
}

func TestRunDisabled(t *testing.T) {
	out := t.TempDir()
	cfg := hermespost.Config{
		Platform:         hermespost.PlatformAndroid,
		BundleOutputPath: filepath.Join(out, "index.android.bundle"),
		MainBundleName:   "index.bundle",
	}
	writeFile(t, cfg.BundleOutputPath, []byte("main bundle text"))

	runner := &fakeCompilerRunner{}
	p := New(cfg, matchBundles,
		compiler.New("/toolchain/hermesc", compiler.WithRunner(runner)),
		Enabled(false),
	)

	err := p.Run(context.Background(), []hermespost.Asset{
		{Name: "index.bundle", LogicalPath: "index.bundle"},
	})
	if err != nil {
		t.Fatalf("disabled pipeline must be a no-op: %v", err)
	}
	if len(runner.runs) != 0 {
		t.Errorf("disabled pipeline invoked the compiler: %v", runner.runs)
	}

	data, _ := os.ReadFile(cfg.BundleOutputPath)
	if string(data) != "main bundle text" {
		t.Error("disabled pipeline modified the bundle")
	}
}

func TestRunMissingConfigFailsFast(t *testing.T) {
	runner := &fakeCompilerRunner{}
	p := New(hermespost.Config{Platform: hermespost.PlatformIOS}, matchBundles,
		compiler.New("/toolchain/hermesc", compiler.WithRunner(runner)))

	err := p.Run(context.Background(), []hermespost.Asset{
		{Name: "index.bundle", LogicalPath: "index.bundle"},
	})
	if err == nil {
		t.Fatal("missing bundle output path accepted")
	}
	if !errors.Is(err, &perrors.Error{Phase: perrors.PhaseConfig, Kind: perrors.KindMissingConfig}) {
		t.Errorf("error = %v, want config/missing_config", err)
	}
	if len(runner.runs) != 0 {
		t.Error("assets were touched despite fatal configuration error")
	}
}
