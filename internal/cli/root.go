// Package cli provides the command-line interface for skillgraph.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/skillgraph/internal/cli/commands"
	"github.com/leapstack-labs/skillgraph/internal/cli/config"
	"github.com/leapstack-labs/skillgraph/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// rendererKey is used to store renderer in context.
type rendererKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "skillgraph",
		Short: "skillgraph - Job Postings Knowledge Graph Builder",
		Long: `skillgraph turns LLM-annotated job postings into a labeled graph.

It reads a delimited export of postings, canonicalizes free-text skill
labels into a shared dictionary, builds a jobs/skills/categories graph,
optionally samples it down, and exports CSV and GraphML plus a
validation report.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// Load configuration with CLI flags layered on top
			var err error
			cfg, err = config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			// Store config in context
			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)

			// Create and store the logger
			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)

			// Create and store renderer based on output mode
			mode := output.Mode(cfg.OutputFormat)
			renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			ctx = context.WithValue(ctx, rendererKey{}, renderer)
			cmd.SetContext(ctx)

			// Print config file used (if verbose)
			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Job Postings Knowledge Graph Builder
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./skillgraph.yaml)")
	pf.StringP("input", "i", "", "Path to the job postings export (.csv)")
	pf.String("output-dir", "", "Directory for output artifacts")
	pf.StringSlice("formats", nil, "Output formats (csv, graphml)")
	pf.Float64("min-similarity", 0, "Drop skill mentions below this mapping similarity [0,1]")
	pf.Int("top-k-skills", 0, "Keep at most K skills per job (0 = unlimited)")
	pf.StringSlice("buckets", nil, "Importance buckets to keep (empty = all)")
	pf.Bool("drop-thinking", true, "Omit LLM reasoning text from edges")
	pf.Bool("include-aliases", true, "Carry raw label aliases on skill nodes")
	pf.String("skills-column", "", "Column holding the skills JSON")
	pf.String("category-column", "", "Column holding the occupation group")
	pf.String("fallback-category-column", "", "Fallback category column")
	pf.String("job-id-column", "", "Job ID column, or 'auto' for content hashing")
	pf.Int("chunk-size", 0, "Progress logging interval in rows")
	pf.Bool("subset", false, "Sample the graph down before export")
	pf.String("subset-mode", "", "Sampling strategy (stats|perf)")
	pf.Float64("conf-level", 0, "Confidence level for statistical sampling")
	pf.Float64("margin-error", 0, "Margin of error for statistical sampling")
	pf.Bool("p-worstcase", true, "Use worst-case p=0.5 in Cochran's formula")
	pf.Float64("p-estimate", 0, "Population proportion estimate when not worst-case")
	pf.Bool("finite-correction", true, "Apply finite population correction")
	pf.Int("min-per-category", 0, "Minimum sampled jobs per category")
	pf.Int64("subset-max-bytes", 0, "Approximate output byte budget for perf sampling")
	pf.Int64("subset-seed", 0, "Seed for deterministic sampling")
	pf.Int("subset-categories", 0, "Top-N categories for perf sampling (0 = all)")
	pf.StringSlice("category-list", nil, "Explicit category names for perf sampling")
	pf.String("state", "", "Path to the run history database (empty = disabled)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output rendering mode (auto|text|json)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Register completion for subset-mode flag
	_ = rootCmd.RegisterFlagCompletionFunc("subset-mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"stats", "perf"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewBuildCommand(Version))
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{}
}

// GetRenderer retrieves the renderer from the command context.
func GetRenderer(ctx context.Context) *output.Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*output.Renderer); ok {
		return r
	}
	return output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto)
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for skillgraph.

To load completions:

Bash:
  $ source <(skillgraph completion bash)

Zsh:
  $ skillgraph completion zsh > "${fpath[1]}/_skillgraph"

Fish:
  $ skillgraph completion fish | source

PowerShell:
  PS> skillgraph completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
