// Package sampler reduces a built graph to a subset.
//
// Two mutually exclusive strategies: statistical (Cochran's formula
// with stratified allocation, valid for inference about the job
// population) and performance (bounded by an approximate output byte
// budget, for visualization tooling). Both are deterministic for a
// fixed seed and graph: re-running produces identical sampled ID sets.
package sampler

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/leapstack-labs/skillgraph/internal/graph"
)

// Modes.
const (
	ModeStats = "stats"
	ModePerf  = "perf"
)

// Config carries the parameters of both strategies.
type Config struct {
	Mode string
	Seed int64

	// Statistical mode.
	ConfLevel        float64
	MarginError      float64
	PWorstcase       bool
	PEstimate        float64
	FiniteCorrection bool
	MinPerCategory   int

	// Performance mode.
	MaxBytes      int64
	TopCategories int      // top-N categories by job count; 0 = all
	CategoryList  []string // explicit category names; overrides TopCategories
	MinSimilarity float64
	TopKSkills    int
	DropThinking  bool
}

// Report describes a sampling run for report.json.
type Report struct {
	Mode           string            `json:"sampling_mode"`
	Population     Population        `json:"population"`
	Parameters     map[string]any    `json:"parameters"`
	Formula        *Formula          `json:"formula,omitempty"`
	TargetN        int               `json:"target_n"`
	ActualN        int               `json:"actual_n"`
	Stratification map[string]Strata `json:"stratification,omitempty"`
	Warnings       []string          `json:"warnings"`
}

// Population describes the sampled-from graph.
type Population struct {
	TotalJobs       int `json:"total_jobs"`
	TotalCategories int `json:"total_categories"`
}

// Formula records the Cochran computation inputs and outputs.
type Formula struct {
	Method           string  `json:"method"`
	Z                float64 `json:"z"`
	P                float64 `json:"p"`
	E                float64 `json:"e"`
	N0               float64 `json:"n0"`
	N                int     `json:"population"`
	FiniteCorrection bool    `json:"finite_correction"`
	FinalN           int     `json:"n_final"`
}

// Strata reports per-category allocation.
type Strata struct {
	Population int `json:"population"`
	Allocated  int `json:"allocated"`
	Sampled    int `json:"sampled"`
}

// Sampler reduces a graph to a subset.
type Sampler interface {
	Sample(g *graph.Graph) (*graph.Graph, *Report, error)
}

// New returns the sampler for the configured mode.
func New(cfg Config, logger *slog.Logger) (Sampler, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	switch cfg.Mode {
	case ModeStats:
		return &statistical{cfg: cfg, logger: logger}, nil
	case ModePerf:
		return &performance{cfg: cfg, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown sampling mode: %q", cfg.Mode)
	}
}

// jobIDs returns all job node IDs in insertion order.
func jobIDs(g *graph.Graph) []string {
	var ids []string
	for _, n := range g.Nodes() {
		if n.Kind == graph.KindJob {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// jobCategories maps job ID to category ID from IN_CATEGORY edges.
func jobCategories(g *graph.Graph) map[string]string {
	m := make(map[string]string)
	for _, e := range g.Edges() {
		if e.Rel == graph.RelInCategory {
			m[e.Source] = e.Target
		}
	}
	return m
}

// stratify groups job IDs by category. Jobs without a category fall
// into the "uncategorized" stratum. Members keep insertion order;
// stratum keys are returned sorted for deterministic iteration.
func stratify(jobs []string, byCategory map[string]string) (map[string][]string, []string) {
	strata := make(map[string][]string)
	for _, id := range jobs {
		cat, ok := byCategory[id]
		if !ok {
			cat = "uncategorized"
		}
		strata[cat] = append(strata[cat], id)
	}
	keys := make([]string, 0, len(strata))
	for k := range strata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strata, keys
}

// drawWithoutReplacement picks n members from a stratum using a partial
// Fisher-Yates shuffle. Members are sorted first so the draw depends
// only on the set and the seed, not on discovery order.
func drawWithoutReplacement(rng *rand.Rand, members []string, n int) []string {
	if n >= len(members) {
		out := make([]string, len(members))
		copy(out, members)
		sort.Strings(out)
		return out
	}
	pool := make([]string, len(members))
	copy(pool, members)
	sort.Strings(pool)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// subgraph builds a filtered copy of g restricted to the sampled jobs.
// Every sampled job keeps its category edge and all of its skill edges;
// referenced category and skill nodes are carried over. Node order
// follows the original graph's order, so sampling is deterministic.
func subgraph(g *graph.Graph, sampled map[string]struct{}) *graph.Graph {
	keepNodes := make(map[string]struct{}, len(sampled))
	for id := range sampled {
		keepNodes[id] = struct{}{}
	}

	var edges []graph.Edge
	for _, e := range g.Edges() {
		if _, ok := sampled[e.Source]; ok {
			edges = append(edges, e)
			keepNodes[e.Target] = struct{}{}
		}
	}

	out := graph.New()
	for _, n := range g.Nodes() {
		if _, ok := keepNodes[n.ID]; ok {
			out.AddNode(n)
		}
	}
	for _, e := range edges {
		out.AddEdge(e)
	}
	return out
}
