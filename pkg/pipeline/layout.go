package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	splitDirName    = "split"
	graphsDirName   = "graphs"
	manifestName    = "manifest.json"
	compositeTickID = 0
)

// Layout derives every output path of a run from the target directory:
//
//	<target>/<p>_0.<fmt>                 composite of position p
//	<target>/split/<p>_<t>.<fmt>         rendered tick
//	<target>/split/graphs/<p>_<t>.dot    raw tick graph
//	<target>/manifest.json               run manifest
type Layout struct {
	Root string
}

// NewLayout creates a layout rooted at target.
func NewLayout(target string) Layout {
	return Layout{Root: target}
}

// SplitDir returns the directory of rendered ticks.
func (l Layout) SplitDir() string {
	return filepath.Join(l.Root, splitDirName)
}

// GraphsDir returns the directory of raw tick graphs.
func (l Layout) GraphsDir() string {
	return filepath.Join(l.Root, splitDirName, graphsDirName)
}

// Ensure creates the target, split and graphs directories. Existing
// directories are left alone.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Root, l.SplitDir(), l.GraphsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// TickGraphPath returns split/graphs/<p>_<t>.dot.
func (l Layout) TickGraphPath(position, tick int) string {
	return filepath.Join(l.GraphsDir(), fmt.Sprintf("%d_%d.dot", position, tick))
}

// TickImagePath returns split/<p>_<t>.<format>.
func (l Layout) TickImagePath(position, tick int, format string) string {
	return filepath.Join(l.SplitDir(), fmt.Sprintf("%d_%d.%s", position, tick, format))
}

// CompositePath returns <p>_0.<format>. The tick slot is always zero.
func (l Layout) CompositePath(position int, format string) string {
	return filepath.Join(l.Root, fmt.Sprintf("%d_%d.%s", position, compositeTickID, format))
}

// ManifestPath returns manifest.json.
func (l Layout) ManifestPath() string {
	return filepath.Join(l.Root, manifestName)
}

// Rel returns path relative to the root, or path itself if it is outside.
func (l Layout) Rel(path string) string {
	rel, err := filepath.Rel(l.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
