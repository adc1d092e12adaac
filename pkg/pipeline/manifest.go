package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest describes the files of a completed run. It depends only on the
// trace and options, so reruns write the same bytes.
type Manifest struct {
	Format    string             `json:"format"`
	Delimiter string             `json:"delimiter"`
	Marker    string             `json:"marker"`
	Positions []ManifestPosition `json:"positions"`
}

// ManifestPosition lists the files of one position, relative to the target
// directory.
type ManifestPosition struct {
	Index     int      `json:"index"`
	Ticks     int      `json:"ticks"`
	Composite string   `json:"composite"`
	Images    []string `json:"images"`
	Graphs    []string `json:"graphs"`
}

func buildManifest(l Layout, opts Options, r *Result) Manifest {
	m := Manifest{
		Format:    opts.Format,
		Delimiter: opts.Delimiter.Name,
		Marker:    opts.Delimiter.Marker,
		Positions: make([]ManifestPosition, 0, len(r.Positions)),
	}
	for _, p := range r.Positions {
		mp := ManifestPosition{
			Index:     p.Index,
			Ticks:     len(p.Images),
			Composite: l.Rel(p.Composite),
			Images:    make([]string, len(p.Images)),
			Graphs:    make([]string, len(p.Graphs)),
		}
		for i, img := range p.Images {
			mp.Images[i] = l.Rel(img)
		}
		for i, g := range p.Graphs {
			mp.Graphs[i] = l.Rel(g)
		}
		m.Positions = append(m.Positions, mp)
	}
	return m
}

func writeManifest(l Layout, opts Options, r *Result) error {
	data, err := json.MarshalIndent(buildManifest(l, opts, r), "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(l.ManifestPath(), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest of a previous run.
func ReadManifest(target string) (*Manifest, error) {
	data, err := os.ReadFile(NewLayout(target).ManifestPath())
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
