// Package graph defines the job-skills graph model and its builder.
//
// Node kinds are a closed set (category, job, skill) with kind-specific
// attribute structs; edges reference nodes by ID only and never own
// them. The builder consumes parsed rows plus a fully-populated skill
// dictionary and produces a Graph whose export order is deterministic.
package graph

// Kind identifies the node variant.
type Kind string

const (
	KindCategory Kind = "category"
	KindJob      Kind = "job"
	KindSkill    Kind = "skill"
)

// Relationship identifies the edge variant.
type Relationship string

const (
	RelInCategory    Relationship = "IN_CATEGORY"
	RelRequiresSkill Relationship = "REQUIRES_SKILL"
)

// JobAttrs carries the job-posting metadata captured on job nodes.
type JobAttrs struct {
	Title                  string
	Company                string
	PostedAt               string
	ScheduleType           string
	WorkFromHome           string
	District               string
	NCOCode                string
	GroupName              string
	OccupationGroup        string
	HybridNCOJD            string
	TokenCount             int
	HighestSimilaritySpec  string
	HighestSimilarityScore float64
	SalaryMean             float64
	SalaryCurrency         string
	SalarySource           string
	SkillCount             int
}

// SkillAttrs carries canonical-skill provenance on skill nodes.
type SkillAttrs struct {
	CanonicalKey  string
	Aliases       string // pipe-joined, sorted; empty when aliases are excluded
	JobCount      int
	MaxSimilarity float64
	AvgSimilarity float64
}

// CategoryAttrs carries category metadata.
type CategoryAttrs struct {
	NCOCode  string
	JobCount int
}

// Node is a tagged union over the three kinds. Exactly one of the
// attribute pointers matching Kind is set.
type Node struct {
	ID    string
	Label string
	Kind  Kind

	Job      *JobAttrs
	Skill    *SkillAttrs
	Category *CategoryAttrs
}

// Edge connects two nodes by ID. Bucket, Similarity and Thinking are
// only meaningful for REQUIRES_SKILL edges; Weight mirrors Similarity
// for visualization tools.
type Edge struct {
	Source     string
	Target     string
	Rel        Relationship
	Bucket     string
	Similarity float64
	Thinking   string
	Weight     float64
}

// Graph owns the node and edge collections. Node insertion order is
// retained so exports are byte-identical across runs; edge order is
// discovery order.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges []Edge
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode inserts a node, or replaces the existing node with the same
// ID in place (last write wins, original position kept).
func (g *Graph) AddNode(n *Node) {
	if _, exists := g.nodes[n.ID]; !exists {
		g.order = append(g.order, n.ID)
	}
	g.nodes[n.ID] = n
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// AddEdge appends an edge.
func (g *Graph) AddEdge(e Edge) {
	g.edges = append(g.edges, e)
}

// Edges returns the edge slice in discovery order. Callers must not
// mutate it.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// CountKind returns the number of nodes of the given kind.
func (g *Graph) CountKind(kind Kind) int {
	n := 0
	for _, node := range g.nodes {
		if node.Kind == kind {
			n++
		}
	}
	return n
}

// CountRel returns the number of edges of the given relationship.
func (g *Graph) CountRel(rel Relationship) int {
	n := 0
	for _, e := range g.edges {
		if e.Rel == rel {
			n++
		}
	}
	return n
}
