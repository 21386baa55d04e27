// Package exporter writes the built graph to disk: node and edge CSVs,
// a GraphML document, the skill dictionary, and the bad-row log.
//
// All writers are streaming and deterministic: identical graphs produce
// byte-identical files. Failures are wrapped in WriteError and partial
// output is removed best-effort.
package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/leapstack-labs/skillgraph/internal/graph"
	"github.com/leapstack-labs/skillgraph/internal/parser"
	"github.com/leapstack-labs/skillgraph/internal/skill"
)

// Output file names, fixed relative to the output directory.
const (
	NodesFile      = "nodes.csv"
	EdgesFile      = "edges.csv"
	GraphMLFile    = "graph.graphml"
	DictionaryFile = "skill_dictionary.csv"
	BadRowsFile    = "bad_rows.csv"
)

// WriteError wraps a failure to produce one output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Options controls which artifacts and optional columns are written.
type Options struct {
	CSV             bool // nodes.csv and edges.csv
	GraphML         bool // graph.graphml
	IncludeThinking bool // adds the thinking column to edges.csv and GraphML
}

// Exporter writes all output artifacts into a single directory.
type Exporter struct {
	dir    string
	opts   Options
	logger *slog.Logger
}

// New creates an exporter targeting dir. A nil logger discards.
func New(dir string, opts Options, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{dir: dir, opts: opts, logger: logger}
}

// Export writes the enabled artifacts and returns the paths written,
// in write order. The skill dictionary and bad-row log are written
// regardless of format selection. The first failure aborts the run;
// files already written stay.
func (e *Exporter) Export(g *graph.Graph, dict *skill.Normalizer, badRows []parser.BadRow) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, &WriteError{Path: e.dir, Err: err}
	}

	var written []string
	steps := []struct {
		name    string
		enabled bool
		write   func(path string) error
	}{
		{NodesFile, e.opts.CSV, func(p string) error { return e.writeNodes(p, g) }},
		{EdgesFile, e.opts.CSV, func(p string) error { return e.writeEdges(p, g) }},
		{GraphMLFile, e.opts.GraphML, func(p string) error { return e.writeGraphML(p, g) }},
		{DictionaryFile, true, func(p string) error { return e.writeDictionary(p, dict) }},
		{BadRowsFile, true, func(p string) error { return e.writeBadRows(p, badRows) }},
	}

	for _, step := range steps {
		if !step.enabled {
			continue
		}
		path := filepath.Join(e.dir, step.name)
		if err := step.write(path); err != nil {
			return written, err
		}
		e.logger.Info("wrote output file", slog.String("path", path))
		written = append(written, path)
	}
	return written, nil
}

// create truncates any previous run's file before writing. Removing
// first means a crash mid-write never leaves a stale complete-looking
// artifact from an earlier run.
func create(path string) (*os.File, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, &WriteError{Path: path, Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}
	return f, nil
}

// fail closes and removes a partially-written file, best effort.
func fail(f *os.File, path string, err error) error {
	f.Close()
	os.Remove(path)
	return &WriteError{Path: path, Err: err}
}

// fmtFloat renders a float rounded to four decimal places, without
// trailing zeros.
func fmtFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*10000)/10000, 'f', -1, 64)
}
