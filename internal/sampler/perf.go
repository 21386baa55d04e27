package sampler

import (
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/leapstack-labs/skillgraph/internal/graph"
	"github.com/leapstack-labs/skillgraph/internal/skill"
)

// Serialized-size constants for the per-job byte estimate.
const (
	jobNodeBytes           = 500
	categoryEdgeBytes      = 100
	skillEdgeBytes         = 150
	skillEdgeThinkingBytes = 500
	skillNodeBytes         = 20 // amortized across jobs sharing a skill
	defaultSkillsPerJob    = 8
	safetyMargin           = 0.8
	minJobBudget           = 100
)

// performance implements byte-budgeted sampling: pick categories, size
// a job budget from serialized-byte estimates, stratified-sample jobs
// up to the budget, then trim each sampled job's skill edges. Unlike
// the full build, orphan skill nodes are excluded.
type performance struct {
	cfg    Config
	logger *slog.Logger
}

func (p *performance) Sample(g *graph.Graph) (*graph.Graph, *Report, error) {
	rng := rand.New(rand.NewSource(p.cfg.Seed))

	p.logger.Info("performance sampling",
		slog.Int64("max_bytes", p.cfg.MaxBytes))

	byCategory := jobCategories(g)
	categories := p.selectCategories(g)
	p.logger.Info("selected categories", slog.Int("count", len(categories)))

	var eligible []string
	for _, id := range jobIDs(g) {
		if _, ok := categories[byCategory[id]]; ok {
			eligible = append(eligible, id)
		}
	}

	budget := p.jobBudget()
	p.logger.Info("job budget for byte target",
		slog.Int("budget", budget), slog.Int("eligible", len(eligible)))

	sampled := p.sampleWithinBudget(rng, eligible, byCategory, budget)
	p.logger.Info("sampled jobs", slog.Int("count", len(sampled)))

	out := p.rebuild(g, sampled)

	report := &Report{
		Mode: ModePerf,
		Population: Population{
			TotalJobs:       len(eligible),
			TotalCategories: len(categories),
		},
		Parameters: map[string]any{
			"max_bytes":            p.cfg.MaxBytes,
			"top_k_skills_per_job": p.cfg.TopKSkills,
			"min_similarity":       p.cfg.MinSimilarity,
			"drop_thinking":        p.cfg.DropThinking,
			"num_categories":       len(categories),
			"seed":                 p.cfg.Seed,
		},
		TargetN:  budget,
		ActualN:  len(sampled),
		Warnings: []string{},
	}

	return out, report, nil
}

// selectCategories returns the category-ID set to include: the explicit
// caller list when provided, else the top-N by job count, else all.
func (p *performance) selectCategories(g *graph.Graph) map[string]struct{} {
	if len(p.cfg.CategoryList) > 0 {
		set := make(map[string]struct{}, len(p.cfg.CategoryList))
		for _, name := range p.cfg.CategoryList {
			set["cat:"+skill.Slugify(name)] = struct{}{}
		}
		return set
	}

	counts := make(map[string]int)
	for _, e := range g.Edges() {
		if e.Rel == graph.RelInCategory {
			counts[e.Target]++
		}
	}

	if p.cfg.TopCategories <= 0 || p.cfg.TopCategories >= len(counts) {
		set := make(map[string]struct{}, len(counts))
		for id := range counts {
			set[id] = struct{}{}
		}
		return set
	}

	type catCount struct {
		id    string
		count int
	}
	ranked := make([]catCount, 0, len(counts))
	for id, c := range counts {
		ranked = append(ranked, catCount{id, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].id < ranked[j].id
	})

	set := make(map[string]struct{}, p.cfg.TopCategories)
	for _, cc := range ranked[:p.cfg.TopCategories] {
		set[cc.id] = struct{}{}
	}
	return set
}

// jobBudget estimates how many jobs fit the byte budget.
func (p *performance) jobBudget() int {
	perJob := jobNodeBytes + categoryEdgeBytes

	skillsPerJob := p.cfg.TopKSkills
	if skillsPerJob <= 0 {
		skillsPerJob = defaultSkillsPerJob
	}
	edgeBytes := skillEdgeBytes
	if !p.cfg.DropThinking {
		edgeBytes = skillEdgeThinkingBytes
	}
	perJob += skillsPerJob * (edgeBytes + skillNodeBytes)

	budget := int(math.Floor(float64(p.cfg.MaxBytes) * safetyMargin / float64(perJob)))
	if budget < minJobBudget {
		budget = minJobBudget
	}
	return budget
}

// sampleWithinBudget draws jobs stratified by category, proportional to
// stratum size, never exceeding the overall budget.
func (p *performance) sampleWithinBudget(rng *rand.Rand, eligible []string, byCategory map[string]string, budget int) map[string]struct{} {
	sampled := make(map[string]struct{})
	if len(eligible) <= budget {
		for _, id := range eligible {
			sampled[id] = struct{}{}
		}
		return sampled
	}

	strata, keys := stratify(eligible, byCategory)
	total := len(eligible)

	for _, cat := range keys {
		remaining := budget - len(sampled)
		if remaining <= 0 {
			break
		}
		members := strata[cat]
		take := int(float64(budget) * float64(len(members)) / float64(total))
		if take < 1 {
			take = 1
		}
		if take > len(members) {
			take = len(members)
		}
		if take > remaining {
			take = remaining
		}
		for _, id := range drawWithoutReplacement(rng, members, take) {
			sampled[id] = struct{}{}
		}
	}
	return sampled
}

// rebuild constructs the output graph restricted to the sampled jobs,
// their categories, and the skills referenced by surviving skill edges.
// Skill edges are filtered per job: minimum similarity, then top-K by
// similarity descending with first-seen order breaking ties.
func (p *performance) rebuild(g *graph.Graph, sampled map[string]struct{}) *graph.Graph {
	type indexed struct {
		edge  graph.Edge
		order int
	}
	skillEdges := make(map[string][]indexed)
	var categoryEdges []graph.Edge

	for i, e := range g.Edges() {
		if _, ok := sampled[e.Source]; !ok {
			continue
		}
		switch e.Rel {
		case graph.RelInCategory:
			categoryEdges = append(categoryEdges, e)
		case graph.RelRequiresSkill:
			if e.Similarity < p.cfg.MinSimilarity {
				continue
			}
			skillEdges[e.Source] = append(skillEdges[e.Source], indexed{edge: e, order: i})
		}
	}

	// Trim per-job skill edges, preserving original discovery order in
	// the output for determinism.
	var surviving []indexed
	for _, edges := range skillEdges {
		if p.cfg.TopKSkills > 0 && len(edges) > p.cfg.TopKSkills {
			sort.Slice(edges, func(i, j int) bool {
				if edges[i].edge.Similarity != edges[j].edge.Similarity {
					return edges[i].edge.Similarity > edges[j].edge.Similarity
				}
				return edges[i].order < edges[j].order
			})
			edges = edges[:p.cfg.TopKSkills]
		}
		surviving = append(surviving, edges...)
	}
	sort.Slice(surviving, func(i, j int) bool { return surviving[i].order < surviving[j].order })

	keepNodes := make(map[string]struct{}, len(sampled))
	for id := range sampled {
		keepNodes[id] = struct{}{}
	}
	for _, e := range categoryEdges {
		keepNodes[e.Target] = struct{}{}
	}
	for _, ie := range surviving {
		keepNodes[ie.edge.Target] = struct{}{}
	}

	out := graph.New()
	for _, n := range g.Nodes() {
		if _, ok := keepNodes[n.ID]; ok {
			out.AddNode(n)
		}
	}

	// Interleave edges back into overall discovery order.
	merged := make([]indexed, 0, len(categoryEdges)+len(surviving))
	for i, e := range g.Edges() {
		if e.Rel != graph.RelInCategory {
			continue
		}
		if _, ok := sampled[e.Source]; ok {
			merged = append(merged, indexed{edge: e, order: i})
		}
	}
	merged = append(merged, surviving...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].order < merged[j].order })
	for _, ie := range merged {
		out.AddEdge(ie.edge)
	}
	return out
}
