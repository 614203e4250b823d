package compose

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/neelance/sourcemap"

	"github.com/bundleworks/hermes-post/errors"
)

// Files reads the packager map (original source -> bundled text) and the
// compiler map (bundled text -> bytecode), composes them into a single
// original source -> bytecode map, and writes it to outPath, overwriting
// any prior file there.
func Files(packagerPath, compilerPath, outPath string) error {
	packagerJSON, err := os.ReadFile(packagerPath)
	if err != nil {
		return errors.IO(errors.PhaseCompose, "read packager map", err)
	}
	compilerJSON, err := os.ReadFile(compilerPath)
	if err != nil {
		return errors.IO(errors.PhaseCompose, "read compiler map", err)
	}

	out, err := Compose(packagerJSON, compilerJSON)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return errors.IO(errors.PhaseCompose, "write composed map", err)
	}
	return nil
}

// Compose combines two sequential position maps into one. For every
// position pair in the compiler map, the bundled-position key is looked
// up in the packager map and replaced by the original-source position
// found there, so the result maps bytecode positions directly to
// original sources. Source content, source root and names are carried
// over from the packager map; composition only changes breakpoints.
//
// A compiler position that precedes every packager segment on its line
// has no corresponding entry; such segments are dropped rather than
// invented, so the output is never wrong, at worst incomplete.
func Compose(packagerJSON, compilerJSON []byte) ([]byte, error) {
	packager, err := sourcemap.ReadFrom(bytes.NewReader(packagerJSON))
	if err != nil {
		return nil, errors.MapFormat("packager map", err)
	}
	compiler, err := sourcemap.ReadFrom(bytes.NewReader(compilerJSON))
	if err != nil {
		return nil, errors.MapFormat("compiler map", err)
	}

	packagerMappings, err := decodedMappings(packager, "packager map")
	if err != nil {
		return nil, err
	}
	compilerMappings, err := decodedMappings(compiler, "compiler map")
	if err != nil {
		return nil, err
	}

	ix := newIndex(packagerMappings)

	composed := &sourcemap.Map{Version: 3, File: compiler.File}
	for _, seg := range compilerMappings {
		if seg.OriginalFile == "" {
			// Generated-only segment, no bundled position to look up.
			continue
		}
		orig := ix.lookup(seg.OriginalLine, seg.OriginalColumn)
		if orig == nil {
			continue
		}
		composed.AddMapping(&sourcemap.Mapping{
			GeneratedLine:   seg.GeneratedLine,
			GeneratedColumn: seg.GeneratedColumn,
			OriginalFile:    orig.OriginalFile,
			OriginalLine:    orig.OriginalLine,
			OriginalColumn:  orig.OriginalColumn,
			OriginalName:    orig.OriginalName,
		})
	}

	return encode(composed, packagerJSON)
}

// decodedMappings decodes a map's VLQ mappings. The codec indexes its
// sources and names tables with whatever indices the mappings carry, so
// a structurally valid document whose mappings point past those tables
// panics inside the decoder; recover turns that into a format error.
func decodedMappings(m *sourcemap.Map, what string) (mappings []*sourcemap.Mapping, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.MapFormat(what, fmt.Errorf("decode mappings: %v", r))
		}
	}()
	return m.DecodedMappings(), nil
}

// document is the version-3 map layout used for the final output. The
// codec only round-trips whole documents, so metadata that composition
// must preserve verbatim is merged in at the JSON layer.
type document struct {
	Version        int               `json:"version"`
	File           string            `json:"file,omitempty"`
	SourceRoot     string            `json:"sourceRoot,omitempty"`
	Sources        []string          `json:"sources"`
	SourcesContent []json.RawMessage `json:"sourcesContent,omitempty"`
	Names          []string          `json:"names"`
	Mappings       string            `json:"mappings"`
}

func encode(composed *sourcemap.Map, packagerJSON []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := composed.WriteTo(&buf); err != nil {
		return nil, errors.MapFormat("composed map", err)
	}

	var out document
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		return nil, errors.MapFormat("composed map", err)
	}
	out.Version = 3
	if out.Names == nil {
		out.Names = []string{}
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}

	var meta struct {
		SourceRoot     string            `json:"sourceRoot"`
		Sources        []string          `json:"sources"`
		SourcesContent []json.RawMessage `json:"sourcesContent"`
	}
	if err := json.Unmarshal(packagerJSON, &meta); err != nil {
		return nil, errors.MapFormat("packager map", err)
	}
	out.SourceRoot = meta.SourceRoot

	// sourcesContent is positional; realign it to the composed map's
	// source order, which may be a subset of the packager map's.
	if len(meta.SourcesContent) > 0 {
		content := make(map[string]json.RawMessage, len(meta.Sources))
		for i, src := range meta.Sources {
			if i < len(meta.SourcesContent) {
				content[src] = meta.SourcesContent[i]
			}
		}
		out.SourcesContent = make([]json.RawMessage, len(out.Sources))
		for i, src := range out.Sources {
			if c, ok := content[src]; ok {
				out.SourcesContent[i] = c
			} else {
				out.SourcesContent[i] = json.RawMessage("null")
			}
		}
	}

	return json.Marshal(&out)
}
