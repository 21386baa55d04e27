package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidationError is a configuration-fatal finding: the run must not
// produce output when one is raised.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Msg)
}

var supportedFormats = map[string]bool{"csv": true, "graphml": true}

var supportedSubsetModes = map[string]bool{"stats": true, "perf": true}

// Validate checks the merged configuration before any work starts.
// The first failure is returned; input-file existence is part of
// validation so a typoed path fails fast instead of mid-pipeline.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return &ValidationError{Field: "input", Msg: "input file is required"}
	}
	if _, err := os.Stat(c.InputPath); err != nil {
		return &ValidationError{Field: "input", Msg: fmt.Sprintf("input file does not exist: %s", c.InputPath)}
	}
	switch strings.ToLower(filepath.Ext(c.InputPath)) {
	case ".csv", ".tsv":
	default:
		return &ValidationError{Field: "input", Msg: fmt.Sprintf("unsupported input extension %q (want .csv or .tsv)", filepath.Ext(c.InputPath))}
	}

	if len(c.Formats) == 0 {
		return &ValidationError{Field: "formats", Msg: "at least one output format is required"}
	}
	for _, f := range c.Formats {
		if !supportedFormats[strings.ToLower(f)] {
			return &ValidationError{Field: "formats", Msg: fmt.Sprintf("unsupported format %q (want csv or graphml)", f)}
		}
	}

	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return &ValidationError{Field: "min_similarity", Msg: fmt.Sprintf("must be in [0,1], got %v", c.MinSimilarity)}
	}
	if c.TopKSkills < 0 {
		return &ValidationError{Field: "top_k_skills", Msg: fmt.Sprintf("must be >= 0, got %d", c.TopKSkills)}
	}
	if c.ChunkSize <= 0 {
		return &ValidationError{Field: "chunk_size", Msg: fmt.Sprintf("must be > 0, got %d", c.ChunkSize)}
	}

	if c.Subset {
		if !supportedSubsetModes[c.SubsetMode] {
			return &ValidationError{Field: "subset_mode", Msg: fmt.Sprintf("unsupported mode %q (want stats or perf)", c.SubsetMode)}
		}
		if c.ConfLevel < 0.80 || c.ConfLevel > 0.999 {
			return &ValidationError{Field: "conf_level", Msg: fmt.Sprintf("must be in [0.80,0.999], got %v", c.ConfLevel)}
		}
		if c.MarginError < 0.001 || c.MarginError > 0.5 {
			return &ValidationError{Field: "margin_error", Msg: fmt.Sprintf("must be in [0.001,0.5], got %v", c.MarginError)}
		}
		if c.PEstimate <= 0 || c.PEstimate >= 1 {
			return &ValidationError{Field: "p_estimate", Msg: fmt.Sprintf("must be in (0,1), got %v", c.PEstimate)}
		}
		if c.MinPerCategory < 0 {
			return &ValidationError{Field: "min_per_category", Msg: fmt.Sprintf("must be >= 0, got %d", c.MinPerCategory)}
		}
		if c.SubsetMaxBytes <= 0 {
			return &ValidationError{Field: "subset_max_bytes", Msg: fmt.Sprintf("must be > 0, got %d", c.SubsetMaxBytes)}
		}
		if c.SubsetCategories < 0 {
			return &ValidationError{Field: "subset_categories", Msg: fmt.Sprintf("must be >= 0, got %d", c.SubsetCategories)}
		}
	}

	return nil
}

// WantsFormat reports whether the named output format is enabled.
func (c *Config) WantsFormat(name string) bool {
	for _, f := range c.Formats {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}
