package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/skillgraph/internal/cli/config"
	"github.com/leapstack-labs/skillgraph/internal/cli/output"
	"github.com/leapstack-labs/skillgraph/internal/exporter"
	"github.com/leapstack-labs/skillgraph/internal/graph"
	"github.com/leapstack-labs/skillgraph/internal/parser"
	"github.com/leapstack-labs/skillgraph/internal/sampler"
	"github.com/leapstack-labs/skillgraph/internal/skill"
	"github.com/leapstack-labs/skillgraph/internal/state"
	"github.com/leapstack-labs/skillgraph/internal/validator"
)

// ReportFile is the validation report name inside the output directory.
const ReportFile = "report.json"

// NewBuildCommand creates the build command.
func NewBuildCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the graph from a job postings export",
		Long: `Parse a delimited job postings export, canonicalize skill labels,
construct the jobs/skills/categories graph, optionally sample it down,
and export the configured artifacts plus a validation report.`,
		Example: `  # Full build with defaults
  skillgraph build --input postings.csv

  # Filter weak mappings and keep the top 10 skills per job
  skillgraph build --input postings.csv --min-similarity 0.5 --top-k-skills 10

  # Statistically valid sample for manual review
  skillgraph build --input postings.csv --subset --subset-mode stats

  # Visualization-sized sample under 10 MB
  skillgraph build --input postings.csv --subset --subset-mode perf --subset-max-bytes 10000000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, version)
		},
	}
}

func runBuild(cmd *cobra.Command, version string) error {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	// Run history is best-effort: a broken state DB must not block a build.
	var store *state.SQLiteStore
	var runID string
	if cfg.StatePath != "" {
		store = state.NewSQLiteStore()
		if err := store.Open(cfg.StatePath); err != nil {
			logger.Warn("run history disabled", slog.String("error", err.Error()))
			store = nil
		} else {
			defer func() { _ = store.Close() }()
			if run, err := store.CreateRun(cfg.InputPath); err != nil {
				logger.Warn("failed to record run", slog.String("error", err.Error()))
			} else {
				runID = run.ID
			}
		}
	}

	g, report, err := buildPipeline(cfg, version, logger)

	if store != nil && runID != "" {
		if err != nil {
			_ = store.CompleteRun(runID, state.RunStatusFailed, 0, 0, err.Error())
		} else {
			_ = store.CompleteRun(runID, state.RunStatusCompleted, g.NodeCount(), g.EdgeCount(), "")
		}
	}
	if err != nil {
		return err
	}

	renderSummary(r, report)
	return nil
}

// buildPipeline runs the phases in order: parse + dictionary, build,
// optional sampling, export, validate + report.
func buildPipeline(cfg *config.Config, version string, logger *slog.Logger) (*graph.Graph, *validator.Report, error) {
	start := time.Now()

	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Phase 1: parse rows and populate the skill dictionary. The
	// dictionary must be complete before the builder runs, so skills
	// are registered while scanning.
	sc := parser.NewScanner(f, parser.Options{
		SkillsColumn:           cfg.SkillsColumn,
		CategoryColumn:         cfg.CategoryColumn,
		FallbackCategoryColumn: cfg.FallbackCategoryColumn,
		JobIDColumn:            cfg.JobIDColumn,
		Delimiter:              parser.DelimiterForPath(cfg.InputPath),
	}, logger)

	dict := skill.NewNormalizer(logger)
	var rows []parser.Record
	for sc.Scan() {
		rec := sc.Record()
		for _, m := range rec.Skills {
			dict.Register(m.Skill, m.Similarity, graph.NormalizeBucket(m.Bucket))
		}
		rows = append(rows, rec)
		if cfg.ChunkSize > 0 && len(rows)%cfg.ChunkSize == 0 {
			logger.Info("parsing input", slog.Int("rows", len(rows)))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	counters := sc.Counters()
	logger.Info("input parsed",
		slog.Int("total", counters.Total),
		slog.Int("parsed", counters.Parsed),
		slog.Int("failed", counters.Failed),
		slog.Int("skipped_no_id", counters.SkippedNoID))
	dict.LogTop(10)

	// Phase 2: build the graph.
	builder := graph.NewBuilder(graph.BuilderConfig{
		MinSimilarity:  cfg.MinSimilarity,
		TopKSkills:     cfg.TopKSkills,
		Buckets:        cfg.Buckets,
		DropThinking:   cfg.DropThinking,
		IncludeAliases: cfg.IncludeAliases,
	}, logger)
	g := builder.Build(rows, dict)
	stats := builder.Stats()

	// Phase 3: optional sampling.
	var sampReport *sampler.Report
	if cfg.Subset {
		s, err := sampler.New(sampler.Config{
			Mode:             cfg.SubsetMode,
			Seed:             cfg.SubsetSeed,
			ConfLevel:        cfg.ConfLevel,
			MarginError:      cfg.MarginError,
			PWorstcase:       cfg.PWorstcase,
			PEstimate:        cfg.PEstimate,
			FiniteCorrection: cfg.FiniteCorrection,
			MinPerCategory:   cfg.MinPerCategory,
			MaxBytes:         cfg.SubsetMaxBytes,
			TopCategories:    cfg.SubsetCategories,
			CategoryList:     cfg.CategoryList,
			MinSimilarity:    cfg.MinSimilarity,
			TopKSkills:       cfg.TopKSkills,
			DropThinking:     cfg.DropThinking,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		g, sampReport, err = s.Sample(g)
		if err != nil {
			return nil, nil, err
		}
		// Report statistics against the sampled graph; the builder's
		// filter counters still describe the full build.
		sampled := graph.StatsOf(g)
		sampled.FilteredBySimilarity = stats.FilteredBySimilarity
		sampled.FilteredByBucket = stats.FilteredByBucket
		stats = sampled
	}

	// Phase 4: export.
	exp := exporter.New(cfg.OutputDir, exporter.Options{
		CSV:             cfg.WantsFormat("csv"),
		GraphML:         cfg.WantsFormat("graphml"),
		IncludeThinking: !cfg.DropThinking,
	}, logger)
	files, err := exp.Export(g, dict, sc.BadRows())
	if err != nil {
		return nil, nil, err
	}

	// Phase 5: validate and write the report.
	reportPath := filepath.Join(cfg.OutputDir, ReportFile)
	report := validator.New(logger).Validate(validator.Input{
		Version:     version,
		InputPath:   cfg.InputPath,
		Config:      cfg.ToEcho(),
		Counters:    counters,
		NormStats:   dict.Stats(),
		GraphStats:  stats,
		Graph:       g,
		Dictionary:  dict,
		Sampling:    sampReport,
		OutputFiles: append(files, reportPath),
	})
	if err := validator.WriteReport(reportPath, report); err != nil {
		return nil, nil, err
	}

	logger.Info("build completed",
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("nodes", g.NodeCount()),
		slog.Int("edges", g.EdgeCount()))
	return g, report, nil
}

func renderSummary(r *output.Renderer, report *validator.Report) {
	if r.EffectiveMode() == output.ModeJSON {
		_ = r.JSON(report)
		return
	}

	styles := r.Styles()
	r.Println(styles.Header1.Render("Build Summary"))
	r.Println("")
	r.Table(
		table.Row{"Metric", "Value"},
		[]table.Row{
			{"Rows parsed", fmt.Sprintf("%d / %d", report.Input.Parsed, report.Input.Total)},
			{"Canonical skills", report.Normalization.CanonicalSkills},
			{"Nodes", report.Graph.NodesTotal},
			{"Edges", report.Graph.EdgesTotal},
			{"Jobs with skills", fmt.Sprintf("%.1f%%", report.Quality.JobsWithSkillsPct)},
			{"Jobs with category", fmt.Sprintf("%.1f%%", report.Quality.JobsWithCategoryPct)},
			{"Avg skills per job", fmt.Sprintf("%.2f", report.Quality.AvgSkillsPerJob)},
		},
	)

	if len(report.Quality.TopSkills) > 0 {
		r.Println("")
		r.Println(styles.Header2.Render("Top Skills"))
		rows := make([]table.Row, 0, len(report.Quality.TopSkills))
		for _, s := range report.Quality.TopSkills {
			rows = append(rows, table.Row{s.Label, s.Occurrences})
		}
		r.Table(table.Row{"Skill", "Occurrences"}, rows)
	}

	r.Println("")
	for _, w := range report.Warnings {
		r.Warning(w)
	}
	for _, e := range report.Errors {
		r.Error(e)
	}
	r.Success(fmt.Sprintf("Wrote %d output files", len(report.OutputFiles)))
}
