package validator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/skillgraph/internal/graph"
	"github.com/leapstack-labs/skillgraph/internal/parser"
	"github.com/leapstack-labs/skillgraph/internal/skill"
)

func healthyStats() graph.Stats {
	return graph.Stats{
		NodesTotal:       130,
		NodesByKind:      map[string]int{"job": 100, "skill": 25, "category": 5},
		EdgesTotal:       500,
		EdgesByRel:       map[string]int{"REQUIRES_SKILL": 400, "IN_CATEGORY": 100},
		JobsWithSkills:   98,
		JobsWithCategory: 100,
	}
}

func TestValidateHealthyGraph(t *testing.T) {
	v := New(nil)
	r := v.Validate(Input{
		Version:   "1.0.0",
		InputPath: "jobs.csv",
		Counters:  parser.Counters{Total: 100, Parsed: 100},
		NormStats: skill.Stats{RawSkillStrings: 400, CanonicalSkills: 150, DedupRatio: 0.625},
		GraphStats: healthyStats(),
		OutputFiles: []string{"output/nodes.csv"},
	})

	assert.Empty(t, r.Warnings)
	assert.Empty(t, r.Errors)
	assert.Equal(t, "skillgraph", r.Meta.Tool)
	assert.Equal(t, "1.0.0", r.Meta.Version)
	assert.InDelta(t, 98.0, r.Quality.JobsWithSkillsPct, 1e-9)
	assert.InDelta(t, 4.0, r.Quality.AvgSkillsPerJob, 1e-9)
	assert.Equal(t, []string{"output/nodes.csv"}, r.OutputFiles)
}

func TestValidateJobsWithSkillsThresholds(t *testing.T) {
	tests := []struct {
		name           string
		jobsWithSkills int
		wantWarnings   int
		wantErrors     int
	}{
		{name: "above warn threshold", jobsWithSkills: 96, wantWarnings: 0, wantErrors: 0},
		{name: "warn band", jobsWithSkills: 90, wantWarnings: 1, wantErrors: 0},
		{name: "error band", jobsWithSkills: 50, wantWarnings: 0, wantErrors: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := healthyStats()
			stats.JobsWithSkills = tt.jobsWithSkills

			r := New(nil).Validate(Input{GraphStats: stats})
			assert.Len(t, r.Warnings, tt.wantWarnings)
			assert.Len(t, r.Errors, tt.wantErrors)
		})
	}
}

func TestValidateLowAvgSkills(t *testing.T) {
	stats := healthyStats()
	stats.EdgesByRel["REQUIRES_SKILL"] = 150 // 1.5 per job

	r := New(nil).Validate(Input{GraphStats: stats})
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "skills per job is low")
}

func TestValidateLowDedupRatio(t *testing.T) {
	r := New(nil).Validate(Input{
		GraphStats: healthyStats(),
		NormStats:  skill.Stats{RawSkillStrings: 400, DedupRatio: 0.1},
	})
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "dedup ratio")
}

func TestValidateBadRowRate(t *testing.T) {
	r := New(nil).Validate(Input{
		GraphStats: healthyStats(),
		Counters:   parser.Counters{Total: 100, Parsed: 90, Failed: 10},
	})
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "failed to parse")
}

func TestValidateOrphanSkillsAndCoverage(t *testing.T) {
	g := graph.New()
	g.AddNode(&graph.Node{ID: "job:j1", Kind: graph.KindJob, Job: &graph.JobAttrs{
		Company: "Acme", District: "Pune",
	}})
	g.AddNode(&graph.Node{ID: "job:j2", Kind: graph.KindJob, Job: &graph.JobAttrs{
		Company: "Beta",
	}})
	g.AddNode(&graph.Node{ID: "skill:python", Kind: graph.KindSkill})
	g.AddNode(&graph.Node{ID: "skill:cobol", Kind: graph.KindSkill})
	g.AddEdge(graph.Edge{Source: "job:j1", Target: "skill:python", Rel: graph.RelRequiresSkill})

	r := New(nil).Validate(Input{GraphStats: healthyStats(), Graph: g})

	assert.Equal(t, 1, r.Quality.OrphanSkillCount)
	assert.InDelta(t, 100.0, r.Quality.MetadataCoverage["company_name"], 1e-9)
	assert.InDelta(t, 50.0, r.Quality.MetadataCoverage["district"], 1e-9)

	// district sits exactly at the 50% line, so no coverage warning.
	for _, w := range r.Warnings {
		assert.NotContains(t, w, "metadata field")
	}
}

func TestValidateMetadataCoverageExemptions(t *testing.T) {
	g := graph.New()
	for i, attrs := range []*graph.JobAttrs{
		{Company: "Acme", SalaryMean: 1000, WorkFromHome: "yes", PostedAt: "2024-01-01", District: "Pune"},
		{Company: "Beta"},
		{Company: "Gamma"},
	} {
		g.AddNode(&graph.Node{ID: string(rune('a' + i)), Kind: graph.KindJob, Job: attrs})
	}

	r := New(nil).Validate(Input{GraphStats: healthyStats(), Graph: g})

	// Salary, work-from-home and posted-at are exempt; district is not.
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], `"district"`)
}

func TestValidateTopSkills(t *testing.T) {
	dict := skill.NewNormalizer(nil)
	for i := 0; i < 3; i++ {
		dict.Register("Python", 0.9, "")
	}
	dict.Register("SQL", 0.8, "")

	r := New(nil).Validate(Input{GraphStats: healthyStats(), Dictionary: dict})

	require.Len(t, r.Quality.TopSkills, 2)
	assert.Equal(t, "python", r.Quality.TopSkills[0].Key)
	assert.Equal(t, 3, r.Quality.TopSkills[0].Occurrences)
}

func TestValidateEmptyGraph(t *testing.T) {
	r := New(nil).Validate(Input{})
	assert.NotNil(t, r.Warnings)
	assert.NotNil(t, r.Errors)
	assert.Empty(t, r.Warnings)
	assert.Empty(t, r.Errors)
	assert.Zero(t, r.Quality.JobsWithSkillsPct)
}

func TestWriteReport(t *testing.T) {
	r := New(nil).Validate(Input{Version: "1.0.0", GraphStats: healthyStats()})

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteReport(path, r))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "1.0.0", decoded.Meta.Version)
	assert.Equal(t, r.Graph.NodesTotal, decoded.Graph.NodesTotal)
}
