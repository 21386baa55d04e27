package sampler

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/skillgraph/internal/graph"
	"github.com/leapstack-labs/skillgraph/internal/testutil"
)

func newTestRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// makeGraph builds a synthetic graph with the given jobs per category.
// Every job gets one skill edge; every other job gets a second one with
// lower similarity.
func makeGraph(jobsPerCategory map[string]int) *graph.Graph {
	g := graph.New()
	g.AddNode(&graph.Node{ID: "skill:python", Kind: graph.KindSkill, Label: "Python"})
	g.AddNode(&graph.Node{ID: "skill:sql", Kind: graph.KindSkill, Label: "SQL"})
	g.AddNode(&graph.Node{ID: "skill:cobol", Kind: graph.KindSkill, Label: "COBOL"}) // orphan

	for cat, n := range jobsPerCategory {
		catID := "cat:" + cat
		g.AddNode(&graph.Node{ID: catID, Kind: graph.KindCategory, Label: cat})
		for i := 0; i < n; i++ {
			jobID := fmt.Sprintf("job:%s-%d", cat, i)
			g.AddNode(&graph.Node{ID: jobID, Kind: graph.KindJob, Label: jobID})
			g.AddEdge(graph.Edge{Source: jobID, Target: catID, Rel: graph.RelInCategory})
			g.AddEdge(graph.Edge{
				Source: jobID, Target: "skill:python",
				Rel: graph.RelRequiresSkill, Bucket: "Advanced", Similarity: 0.9,
			})
			if i%2 == 0 {
				g.AddEdge(graph.Edge{
					Source: jobID, Target: "skill:sql",
					Rel: graph.RelRequiresSkill, Bucket: "Proficient", Similarity: 0.4,
				})
			}
		}
	}
	return g
}

func TestNewUnknownMode(t *testing.T) {
	_, err := New(Config{Mode: "stratified"}, nil)
	assert.ErrorContains(t, err, "unknown sampling mode")
}

func TestSampleSizeCochran(t *testing.T) {
	tests := []struct {
		name       string
		population int
		cfg        Config
		want       int
		wantN0     float64
	}{
		{
			name:       "worst case 95/3 no correction",
			population: 60000,
			cfg:        Config{ConfLevel: 0.95, MarginError: 0.03, PWorstcase: true},
			want:       1068,
			wantN0:     1.96 * 1.96 * 0.25 / (0.03 * 0.03), // ~1067.11, ceiled only for n
		},
		{
			name:       "worst case 95/3 with correction",
			population: 60000,
			cfg:        Config{ConfLevel: 0.95, MarginError: 0.03, PWorstcase: true, FiniteCorrection: true},
			want:       1050,
			wantN0:     1.96 * 1.96 * 0.25 / (0.03 * 0.03),
		},
		{
			name:       "p estimate shrinks the sample",
			population: 60000,
			cfg:        Config{ConfLevel: 0.95, MarginError: 0.03, PEstimate: 0.2},
			want:       683, // ceil(1.96^2 * 0.16 / 0.0009)
			wantN0:     1.96 * 1.96 * 0.16 / (0.03 * 0.03),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &statistical{cfg: tt.cfg}
			n, formula := s.sampleSize(tt.population)
			assert.Equal(t, tt.want, n)
			assert.Equal(t, "cochran_proportion", formula.Method)
			assert.InDelta(t, tt.wantN0, formula.N0, 1e-9)
		})
	}
}

func TestZScoreDefaultsTo95(t *testing.T) {
	assert.InDelta(t, 1.645, zScore(0.90), 1e-9)
	assert.InDelta(t, 3.291, zScore(0.999), 1e-9)
	assert.InDelta(t, 1.96, zScore(0.93), 1e-9)
}

func TestStatisticalSampleDeterministic(t *testing.T) {
	g := makeGraph(map[string]int{"a": 200, "b": 100, "c": 50})
	cfg := Config{
		Mode: ModeStats, Seed: 42,
		ConfLevel: 0.95, MarginError: 0.1, PWorstcase: true,
		FiniteCorrection: true, MinPerCategory: 10,
	}

	sampleIDs := func() map[string]bool {
		s, err := New(cfg, testutil.NewTestLogger(t))
		require.NoError(t, err)
		out, _, err := s.Sample(g)
		require.NoError(t, err)
		ids := make(map[string]bool)
		for _, n := range out.Nodes() {
			if n.Kind == graph.KindJob {
				ids[n.ID] = true
			}
		}
		return ids
	}

	first := sampleIDs()
	second := sampleIDs()
	assert.Equal(t, first, second)
}

func TestStatisticalSampleReport(t *testing.T) {
	g := makeGraph(map[string]int{"a": 200, "b": 100, "c": 5})
	cfg := Config{
		Mode: ModeStats, Seed: 7,
		ConfLevel: 0.95, MarginError: 0.1, PWorstcase: true,
		FiniteCorrection: true, MinPerCategory: 10,
	}
	s, err := New(cfg, nil)
	require.NoError(t, err)
	out, report, err := s.Sample(g)
	require.NoError(t, err)

	assert.Equal(t, ModeStats, report.Mode)
	assert.Equal(t, 305, report.Population.TotalJobs)
	assert.Equal(t, 3, report.Population.TotalCategories)
	assert.Equal(t, report.ActualN, out.CountKind(graph.KindJob))

	// Category c is below min_per_category: taken whole, with a warning.
	require.Contains(t, report.Stratification, "cat:c")
	assert.Equal(t, 5, report.Stratification["cat:c"].Sampled)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], `"cat:c"`)

	// Allocation is proportional with the per-stratum floor applied.
	for cat, strata := range report.Stratification {
		assert.LessOrEqual(t, strata.Sampled, strata.Population, "stratum %s", cat)
	}
}

// Every edge in a sampled graph must reference nodes that exist in it.
func TestSubgraphReferentialCompleteness(t *testing.T) {
	g := makeGraph(map[string]int{"a": 80, "b": 40})
	cfg := Config{
		Mode: ModeStats, Seed: 3,
		ConfLevel: 0.95, MarginError: 0.15, PWorstcase: true,
		FiniteCorrection: true, MinPerCategory: 5,
	}
	s, err := New(cfg, nil)
	require.NoError(t, err)
	out, _, err := s.Sample(g)
	require.NoError(t, err)

	for _, e := range out.Edges() {
		_, ok := out.Node(e.Source)
		assert.True(t, ok, "missing source %s", e.Source)
		_, ok = out.Node(e.Target)
		assert.True(t, ok, "missing target %s", e.Target)
	}
}

func TestPerformanceJobBudget(t *testing.T) {
	p := &performance{cfg: Config{MaxBytes: 1_000_000, TopKSkills: 5, DropThinking: true}}
	// per job: 500 + 100 + 5*(150+20) = 1450; floor(800000/1450) = 551
	assert.Equal(t, 551, p.jobBudget())

	// Thinking retained: skill edges cost more, budget shrinks.
	p = &performance{cfg: Config{MaxBytes: 1_000_000, TopKSkills: 5}}
	// per job: 500 + 100 + 5*(500+20) = 3200; floor(800000/3200) = 250
	assert.Equal(t, 250, p.jobBudget())

	// Tiny byte budgets never starve the sample entirely.
	p = &performance{cfg: Config{MaxBytes: 1000, TopKSkills: 5, DropThinking: true}}
	assert.Equal(t, minJobBudget, p.jobBudget())
}

func TestPerformanceSampleRespectsBudget(t *testing.T) {
	g := makeGraph(map[string]int{"a": 400, "b": 100, "c": 20})
	cfg := Config{
		Mode: ModePerf, Seed: 42,
		MaxBytes: 200_000, TopKSkills: 2, DropThinking: true,
	}
	s, err := New(cfg, testutil.NewTestLogger(t))
	require.NoError(t, err)
	out, report, err := s.Sample(g)
	require.NoError(t, err)

	assert.LessOrEqual(t, report.ActualN, report.TargetN)
	assert.Equal(t, report.ActualN, out.CountKind(graph.KindJob))

	// Skewed strata still all contribute at least one job.
	assert.Greater(t, out.CountKind(graph.KindJob), 0)
	for _, cat := range []string{"cat:a", "cat:b", "cat:c"} {
		_, ok := out.Node(cat)
		assert.True(t, ok, "category %s dropped", cat)
	}
}

func TestPerformanceSampleExcludesOrphanSkills(t *testing.T) {
	g := makeGraph(map[string]int{"a": 10})
	cfg := Config{
		Mode: ModePerf, Seed: 1,
		MaxBytes: 10_000_000, MinSimilarity: 0.5, DropThinking: true,
	}
	s, err := New(cfg, nil)
	require.NoError(t, err)
	out, _, err := s.Sample(g)
	require.NoError(t, err)

	// COBOL had no edges at all, and every SQL edge sits below the
	// similarity floor. Neither skill survives.
	_, ok := out.Node("skill:cobol")
	assert.False(t, ok)
	_, ok = out.Node("skill:sql")
	assert.False(t, ok)
	_, ok = out.Node("skill:python")
	assert.True(t, ok)
}

func TestPerformanceSampleTopKPerJob(t *testing.T) {
	g := graph.New()
	g.AddNode(&graph.Node{ID: "cat:a", Kind: graph.KindCategory})
	g.AddNode(&graph.Node{ID: "job:1", Kind: graph.KindJob})
	for i, sim := range []float64{0.5, 0.9, 0.7} {
		id := fmt.Sprintf("skill:s%d", i)
		g.AddNode(&graph.Node{ID: id, Kind: graph.KindSkill})
		g.AddEdge(graph.Edge{Source: "job:1", Target: id, Rel: graph.RelRequiresSkill, Similarity: sim})
	}
	g.AddEdge(graph.Edge{Source: "job:1", Target: "cat:a", Rel: graph.RelInCategory})

	cfg := Config{Mode: ModePerf, Seed: 1, MaxBytes: 10_000_000, TopKSkills: 2, DropThinking: true}
	s, err := New(cfg, nil)
	require.NoError(t, err)
	out, _, err := s.Sample(g)
	require.NoError(t, err)

	// The two highest-similarity edges survive, in discovery order.
	var targets []string
	for _, e := range out.Edges() {
		if e.Rel == graph.RelRequiresSkill {
			targets = append(targets, e.Target)
		}
	}
	assert.Equal(t, []string{"skill:s1", "skill:s2"}, targets)
	assert.Equal(t, 1, out.CountRel(graph.RelInCategory))
}

func TestPerformanceSelectCategoriesExplicitList(t *testing.T) {
	g := makeGraph(map[string]int{"a": 10, "b": 5})
	p := &performance{cfg: Config{CategoryList: []string{"A", "missing"}}}
	set := p.selectCategories(g)
	assert.Contains(t, set, "cat:a")
	assert.NotContains(t, set, "cat:b")
}

func TestPerformanceSelectTopCategories(t *testing.T) {
	g := makeGraph(map[string]int{"a": 10, "b": 5, "c": 20})
	p := &performance{cfg: Config{TopCategories: 2}}
	set := p.selectCategories(g)
	require.Len(t, set, 2)
	assert.Contains(t, set, "cat:c")
	assert.Contains(t, set, "cat:a")
}

func TestDrawWithoutReplacement(t *testing.T) {
	members := []string{"c", "a", "b", "e", "d"}

	// n >= len returns everything.
	all := drawWithoutReplacement(newTestRNG(1), members, 10)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, all)

	// The draw depends on the set and the seed, not on input order.
	shuffled := []string{"e", "d", "c", "b", "a"}
	first := drawWithoutReplacement(newTestRNG(9), members, 2)
	second := drawWithoutReplacement(newTestRNG(9), shuffled, 2)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}
