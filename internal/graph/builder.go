package graph

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/skillgraph/internal/parser"
	"github.com/leapstack-labs/skillgraph/internal/skill"
)

// BuilderConfig controls edge filtering during the build.
type BuilderConfig struct {
	MinSimilarity  float64
	TopKSkills     int      // 0 = unlimited
	Buckets        []string // allow-list of canonical bucket labels; empty = all
	DropThinking   bool
	IncludeAliases bool
}

// Stats summarizes a build for the report.
type Stats struct {
	NodesTotal           int            `json:"nodes_total"`
	NodesByKind          map[string]int `json:"nodes_by_kind"`
	EdgesTotal           int            `json:"edges_total"`
	EdgesByRel           map[string]int `json:"edges_by_rel"`
	JobsWithSkills       int            `json:"jobs_with_skills_count"`
	JobsWithCategory     int            `json:"jobs_with_category_count"`
	FilteredBySimilarity int            `json:"skills_filtered_by_similarity"`
	FilteredByBucket     int            `json:"skills_filtered_by_bucket"`
}

// Builder constructs the graph from parsed rows and a finished skill
// dictionary. The dictionary must be fully populated before Build is
// called: skill nodes are a pure projection over it.
type Builder struct {
	cfg    BuilderConfig
	logger *slog.Logger

	graph        *Graph
	bucketAllow  map[string]bool
	withSkills   map[string]struct{}
	withCategory map[string]struct{}

	// Candidate REQUIRES_SKILL edges, keyed job -> skill. Rows sharing a
	// job ID merge here; nothing is emitted until every row is seen.
	pendingSkills map[string]map[string]*pendingEdge
	pendingJobs   []string // jobs with pending edges, first-seen order

	filteredSimilarity int
	filteredBucket     int
}

// NewBuilder creates a builder. A nil logger discards.
func NewBuilder(cfg BuilderConfig, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Builder{
		cfg:           cfg,
		logger:        logger,
		graph:         New(),
		withSkills:    make(map[string]struct{}),
		withCategory:  make(map[string]struct{}),
		pendingSkills: make(map[string]map[string]*pendingEdge),
	}
	if len(cfg.Buckets) > 0 {
		b.bucketAllow = make(map[string]bool, len(cfg.Buckets))
		for _, bucket := range cfg.Buckets {
			b.bucketAllow[NormalizeBucket(bucket)] = true
		}
	}
	return b
}

// Build processes all rows and materializes the graph. The dictionary
// is treated as read-only.
func (b *Builder) Build(rows []parser.Record, dict *skill.Normalizer) *Graph {
	b.logger.Info("building graph", slog.Int("rows", len(rows)))

	for i := range rows {
		b.processRow(&rows[i], dict)
	}

	b.flushSkillEdges()
	b.addSkillNodes(dict)
	b.updateCategoryCounts()

	b.logger.Info("graph built",
		slog.Int("nodes", b.graph.NodeCount()),
		slog.Int("edges", b.graph.EdgeCount()),
		slog.Int("jobs", b.graph.CountKind(KindJob)),
		slog.Int("skills", b.graph.CountKind(KindSkill)),
		slog.Int("categories", b.graph.CountKind(KindCategory)))
	if b.filteredSimilarity > 0 {
		b.logger.Info("filtered skill edges below similarity threshold",
			slog.Int("count", b.filteredSimilarity),
			slog.Float64("min_similarity", b.cfg.MinSimilarity))
	}

	return b.graph
}

func (b *Builder) processRow(row *parser.Record, dict *skill.Normalizer) {
	jobID := "job:" + row.JobID
	b.graph.AddNode(b.jobNode(jobID, row))

	// Duplicate job IDs overwrite the node (last write wins) but must
	// never grow a second category edge: the first resolvable one stands.
	if _, done := b.withCategory[jobID]; !done {
		if catID := b.ensureCategory(row); catID != "" {
			b.graph.AddEdge(Edge{Source: jobID, Target: catID, Rel: RelInCategory})
			b.withCategory[jobID] = struct{}{}
		}
	}

	b.collectSkillEdges(jobID, row, dict)
}

func (b *Builder) jobNode(id string, row *parser.Record) *Node {
	label := row.Title
	if label == "" {
		label = "Untitled Job"
	}
	return &Node{
		ID:    id,
		Label: label,
		Kind:  KindJob,
		Job: &JobAttrs{
			Title:                  row.Title,
			Company:                row.Company,
			PostedAt:               row.PostedAt,
			ScheduleType:           row.ScheduleType,
			WorkFromHome:           row.WorkFromHome,
			District:               row.District,
			NCOCode:                row.NCOCode,
			GroupName:              row.GroupName,
			OccupationGroup:        row.OccupationGroup,
			HybridNCOJD:            row.HybridNCOJD,
			TokenCount:             row.TokenCount,
			HighestSimilaritySpec:  row.HighestSimilaritySpec,
			HighestSimilarityScore: row.HighestSimilarityScore,
			SalaryMean:             row.SalaryMean,
			SalaryCurrency:         row.SalaryCurrency,
			SalarySource:           row.SalarySource,
			SkillCount:             len(row.Skills),
		},
	}
}

// ensureCategory resolves or creates the category node for a row and
// returns its ID, or "" when no category is resolvable. The key is the
// NCO code when present, otherwise the normalized group name; the
// label stays human-readable.
func (b *Builder) ensureCategory(row *parser.Record) string {
	name := strings.TrimSpace(row.OccupationGroup)
	if name == "" {
		name = strings.TrimSpace(row.GroupName)
	}

	key := strings.TrimSpace(row.NCOCode)
	if key == "" {
		key = name
	}
	slug := skill.Slugify(key)
	if slug == "" {
		return ""
	}
	id := "cat:" + slug

	if _, exists := b.graph.Node(id); !exists {
		label := name
		if label == "" {
			label = key
		}
		b.graph.AddNode(&Node{
			ID:       id,
			Label:    label,
			Kind:     KindCategory,
			Category: &CategoryAttrs{NCOCode: row.NCOCode},
		})
	}
	return id
}

// pendingEdge tracks a candidate REQUIRES_SKILL edge during per-job
// dedup. order is first-seen position across all of the job's rows,
// used as the top-K tiebreaker.
type pendingEdge struct {
	edge     Edge
	priority int
	order    int
}

// collectSkillEdges folds a row's mentions into the job's pending edge
// set. Dedup spans rows: the same job ID appearing twice (possible with
// content-hash IDs) merges rather than duplicating edges.
func (b *Builder) collectSkillEdges(jobID string, row *parser.Record, dict *skill.Normalizer) {
	if len(row.Skills) == 0 {
		return
	}

	pending, tracked := b.pendingSkills[jobID]
	if !tracked {
		pending = make(map[string]*pendingEdge)
	}

	for _, mention := range row.Skills {
		bucket := NormalizeBucket(mention.Bucket)

		if b.bucketAllow != nil && !b.bucketAllow[bucket] {
			b.filteredBucket++
			continue
		}
		if mention.Similarity < b.cfg.MinSimilarity {
			b.filteredSimilarity++
			continue
		}

		skillID, ok := dict.Lookup(mention.Skill)
		if !ok {
			continue
		}

		priority := BucketPriority(bucket)
		if existing, dup := pending[skillID]; dup {
			// Same canonical skill mentioned twice on one job: the
			// higher-priority bucket wins and keeps the max similarity.
			if priority > existing.priority {
				existing.priority = priority
				existing.edge.Bucket = bucket
				if !b.cfg.DropThinking {
					existing.edge.Thinking = mention.Thinking
				}
			}
			if mention.Similarity > existing.edge.Similarity {
				existing.edge.Similarity = mention.Similarity
				existing.edge.Weight = mention.Similarity
			}
			continue
		}

		e := Edge{
			Source:     jobID,
			Target:     skillID,
			Rel:        RelRequiresSkill,
			Bucket:     bucket,
			Similarity: mention.Similarity,
			Weight:     mention.Similarity,
		}
		if !b.cfg.DropThinking {
			e.Thinking = mention.Thinking
		}
		pending[skillID] = &pendingEdge{edge: e, priority: priority, order: len(pending)}
	}

	if len(pending) == 0 {
		return
	}
	if !tracked {
		b.pendingJobs = append(b.pendingJobs, jobID)
	}
	b.pendingSkills[jobID] = pending
}

// flushSkillEdges materializes the pending edge sets once all rows are
// in, so cross-row duplicates have already merged.
func (b *Builder) flushSkillEdges() {
	for _, jobID := range b.pendingJobs {
		edges := make([]*pendingEdge, 0, len(b.pendingSkills[jobID]))
		for _, p := range b.pendingSkills[jobID] {
			edges = append(edges, p)
		}

		// Truncation happens only after dedup is fully resolved: highest
		// similarity first, first-seen order on ties.
		if b.cfg.TopKSkills > 0 && len(edges) > b.cfg.TopKSkills {
			sort.Slice(edges, func(i, j int) bool {
				if edges[i].edge.Similarity != edges[j].edge.Similarity {
					return edges[i].edge.Similarity > edges[j].edge.Similarity
				}
				return edges[i].order < edges[j].order
			})
			edges = edges[:b.cfg.TopKSkills]
		}

		// Emit in first-seen order for deterministic export.
		sort.Slice(edges, func(i, j int) bool { return edges[i].order < edges[j].order })
		for _, p := range edges {
			b.graph.AddEdge(p.edge)
		}
		b.withSkills[jobID] = struct{}{}
	}
}

// addSkillNodes materializes one skill node per dictionary entry. A
// full (unsampled) build keeps entries whose every mention was filtered
// out; the validator counts those orphans.
func (b *Builder) addSkillNodes(dict *skill.Normalizer) {
	for _, key := range dict.Keys() {
		entry, _ := dict.Entry(key)
		aliases := ""
		if b.cfg.IncludeAliases {
			aliases = strings.Join(entry.SortedAliases(), "|")
		}
		b.graph.AddNode(&Node{
			ID:    skill.NodeID(key),
			Label: entry.Label,
			Kind:  KindSkill,
			Skill: &SkillAttrs{
				CanonicalKey:  key,
				Aliases:       aliases,
				JobCount:      entry.Occurrences,
				MaxSimilarity: entry.MaxSimilarity,
				AvgSimilarity: entry.AvgSimilarity(),
			},
		})
	}
}

func (b *Builder) updateCategoryCounts() {
	counts := make(map[string]int)
	for _, e := range b.graph.Edges() {
		if e.Rel == RelInCategory {
			counts[e.Target]++
		}
	}
	for id, count := range counts {
		if node, ok := b.graph.Node(id); ok && node.Category != nil {
			node.Category.JobCount = count
		}
	}
}

// StatsOf computes statistics from an existing graph. The filter
// counters are zero: only a live Builder knows what it dropped.
func StatsOf(g *Graph) Stats {
	withSkills := make(map[string]struct{})
	withCategory := make(map[string]struct{})
	for _, e := range g.Edges() {
		switch e.Rel {
		case RelRequiresSkill:
			withSkills[e.Source] = struct{}{}
		case RelInCategory:
			withCategory[e.Source] = struct{}{}
		}
	}
	return Stats{
		NodesTotal: g.NodeCount(),
		NodesByKind: map[string]int{
			string(KindJob):      g.CountKind(KindJob),
			string(KindSkill):    g.CountKind(KindSkill),
			string(KindCategory): g.CountKind(KindCategory),
		},
		EdgesTotal: g.EdgeCount(),
		EdgesByRel: map[string]int{
			string(RelRequiresSkill): g.CountRel(RelRequiresSkill),
			string(RelInCategory):    g.CountRel(RelInCategory),
		},
		JobsWithSkills:   len(withSkills),
		JobsWithCategory: len(withCategory),
	}
}

// Stats returns build statistics for the report.
func (b *Builder) Stats() Stats {
	return Stats{
		NodesTotal: b.graph.NodeCount(),
		NodesByKind: map[string]int{
			string(KindJob):      b.graph.CountKind(KindJob),
			string(KindSkill):    b.graph.CountKind(KindSkill),
			string(KindCategory): b.graph.CountKind(KindCategory),
		},
		EdgesTotal: b.graph.EdgeCount(),
		EdgesByRel: map[string]int{
			string(RelRequiresSkill): b.graph.CountRel(RelRequiresSkill),
			string(RelInCategory):    b.graph.CountRel(RelInCategory),
		},
		JobsWithSkills:       len(b.withSkills),
		JobsWithCategory:     len(b.withCategory),
		FilteredBySimilarity: b.filteredSimilarity,
		FilteredByBucket:     b.filteredBucket,
	}
}
