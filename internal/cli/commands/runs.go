package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/skillgraph/internal/cli/config"
	"github.com/leapstack-labs/skillgraph/internal/cli/output"
	"github.com/leapstack-labs/skillgraph/internal/state"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent build runs",
		Long:  `Display the run history recorded in the state database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listRuns(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func listRuns(cmd *cobra.Command, limit int) error {
	cfg := config.GetCurrentConfig()
	if cfg == nil || cfg.StatePath == "" {
		return fmt.Errorf("no state database configured (set state_path or --state)")
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(runsJSON(runs))
	}

	if len(runs) == 0 {
		r.Println("No runs recorded")
		return nil
	}

	rows := make([]table.Row, 0, len(runs))
	for _, run := range runs {
		duration := ""
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, table.Row{
			run.ID[:8],
			run.InputPath,
			string(run.Status),
			run.NodeCount,
			run.EdgeCount,
			run.StartedAt.Format(time.RFC3339),
			duration,
		})
	}
	r.Table(table.Row{"ID", "Input", "Status", "Nodes", "Edges", "Started", "Duration"}, rows)
	return nil
}

type runRecord struct {
	ID          string  `json:"id"`
	InputPath   string  `json:"input_path"`
	Status      string  `json:"status"`
	NodeCount   int     `json:"node_count"`
	EdgeCount   int     `json:"edge_count"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
	Error       string  `json:"error,omitempty"`
}

func runsJSON(runs []*state.Run) []runRecord {
	out := make([]runRecord, 0, len(runs))
	for _, run := range runs {
		rec := runRecord{
			ID:        run.ID,
			InputPath: run.InputPath,
			Status:    string(run.Status),
			NodeCount: run.NodeCount,
			EdgeCount: run.EdgeCount,
			StartedAt: run.StartedAt.Format(time.RFC3339),
			Error:     run.Error,
		}
		if run.CompletedAt != nil {
			s := run.CompletedAt.Format(time.RFC3339)
			rec.CompletedAt = &s
		}
		out = append(out, rec)
	}
	return out
}
