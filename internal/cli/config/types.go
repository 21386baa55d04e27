// Package config provides configuration management for the skillgraph CLI.
//
// Configuration is merged from four layers with fixed precedence:
// flags > environment variables > config file > defaults.
package config

// Config holds all CLI configuration options.
type Config struct {
	InputPath string   `koanf:"input"`
	OutputDir string   `koanf:"output_dir"`
	Formats   []string `koanf:"formats"`

	// Graph construction.
	MinSimilarity  float64  `koanf:"min_similarity"`
	TopKSkills     int      `koanf:"top_k_skills"`
	Buckets        []string `koanf:"buckets"`
	DropThinking   bool     `koanf:"drop_thinking"`
	IncludeAliases bool     `koanf:"include_aliases"`

	// Input column mapping.
	SkillsColumn           string `koanf:"skills_column"`
	CategoryColumn         string `koanf:"category_column"`
	FallbackCategoryColumn string `koanf:"fallback_category_column"`
	JobIDColumn            string `koanf:"job_id_column"`
	ChunkSize              int    `koanf:"chunk_size"`

	// Sampling.
	Subset           bool     `koanf:"subset"`
	SubsetMode       string   `koanf:"subset_mode"`
	ConfLevel        float64  `koanf:"conf_level"`
	MarginError      float64  `koanf:"margin_error"`
	PWorstcase       bool     `koanf:"p_worstcase"`
	PEstimate        float64  `koanf:"p_estimate"`
	FiniteCorrection bool     `koanf:"finite_correction"`
	MinPerCategory   int      `koanf:"min_per_category"`
	SubsetMaxBytes   int64    `koanf:"subset_max_bytes"`
	SubsetSeed       int64    `koanf:"subset_seed"`
	SubsetCategories int      `koanf:"subset_categories"`
	CategoryList     []string `koanf:"category_list"`

	// Run history; empty disables the store.
	StatePath string `koanf:"state_path"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultOutputDir       = "output"
	DefaultSkillsColumn    = "importance_standardised"
	DefaultCategoryColumn  = "Assigned_Occupation_Group"
	DefaultFallbackColumn  = "Group"
	DefaultJobIDColumn     = "auto"
	DefaultChunkSize       = 10000
	DefaultConfLevel       = 0.95
	DefaultMarginError     = 0.03
	DefaultPEstimate       = 0.5
	DefaultMinPerCategory  = 30
	DefaultSubsetMaxBytes  = 100 * 1024 * 1024
	DefaultSubsetSeed      = 42
	DefaultSubsetMode      = "stats"
	DefaultOutput          = "auto" // Auto-detect: TTY=text, non-TTY=json
)

// Echo is the configuration block embedded in report.json. It mirrors
// the effective config after all layers are merged.
type Echo struct {
	InputPath              string   `json:"input_path"`
	OutputDir              string   `json:"output_dir"`
	Formats                []string `json:"formats"`
	MinSimilarity          float64  `json:"min_similarity"`
	TopKSkills             int      `json:"top_k_skills"`
	Buckets                []string `json:"buckets"`
	DropThinking           bool     `json:"drop_thinking"`
	IncludeAliases         bool     `json:"include_aliases"`
	SkillsColumn           string   `json:"skills_column"`
	CategoryColumn         string   `json:"category_column"`
	FallbackCategoryColumn string   `json:"fallback_category_column"`
	JobIDColumn            string   `json:"job_id_column"`
	Subset                 bool     `json:"subset"`
	SubsetMode             string   `json:"subset_mode,omitempty"`
	SubsetSeed             int64    `json:"subset_seed,omitempty"`
}

// ToEcho returns the report representation of the config.
func (c *Config) ToEcho() Echo {
	return Echo{
		InputPath:              c.InputPath,
		OutputDir:              c.OutputDir,
		Formats:                c.Formats,
		MinSimilarity:          c.MinSimilarity,
		TopKSkills:             c.TopKSkills,
		Buckets:                c.Buckets,
		DropThinking:           c.DropThinking,
		IncludeAliases:         c.IncludeAliases,
		SkillsColumn:           c.SkillsColumn,
		CategoryColumn:         c.CategoryColumn,
		FallbackCategoryColumn: c.FallbackCategoryColumn,
		JobIDColumn:            c.JobIDColumn,
		Subset:                 c.Subset,
		SubsetMode:             c.SubsetMode,
		SubsetSeed:             c.SubsetSeed,
	}
}
