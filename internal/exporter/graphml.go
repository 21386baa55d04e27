package exporter

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/leapstack-labs/skillgraph/internal/graph"
)

// graphmlKey declares one GraphML attribute key.
type graphmlKey struct {
	id, domain, attrType string
}

var nodeKeys = []graphmlKey{
	{"label", "node", "string"},
	{"kind", "node", "string"},
	{"company_name", "node", "string"},
	{"posted_at", "node", "string"},
	{"schedule_type", "node", "string"},
	{"work_from_home", "node", "string"},
	{"district", "node", "string"},
	{"nco_code", "node", "string"},
	{"group_name", "node", "string"},
	{"assigned_occupation_group", "node", "string"},
	{"salary_mean_inr_month", "node", "double"},
	{"salary_currency_unit", "node", "string"},
	{"salary_source", "node", "string"},
	{"skill_count", "node", "int"},
	{"token_count", "node", "int"},
	{"highest_similarity_spec", "node", "string"},
	{"highest_similarity_score", "node", "double"},
	{"canonical_key", "node", "string"},
	{"aliases", "node", "string"},
	{"job_count", "node", "int"},
	{"max_similarity", "node", "double"},
	{"avg_similarity", "node", "double"},
}

var edgeKeys = []graphmlKey{
	{"relationship", "edge", "string"},
	{"bucket", "edge", "string"},
	{"mapping_similarity", "edge", "double"},
	{"weight", "edge", "double"},
	{"thinking", "edge", "string"},
}

// writeGraphML streams the graph as a GraphML document. Attributes with
// zero values are omitted per element; the document is valid even for
// an empty graph.
func (e *Exporter) writeGraphML(path string, g *graph.Graph) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(f, 256*1024)

	w.WriteString(xmlHeader)
	for _, k := range nodeKeys {
		writeKey(w, k)
	}
	for _, k := range edgeKeys {
		if k.id == "thinking" && !e.opts.IncludeThinking {
			continue
		}
		writeKey(w, k)
	}
	w.WriteString("  <graph id=\"G\" edgedefault=\"directed\">\n")

	for _, n := range g.Nodes() {
		writeNode(w, n)
	}
	for i, edge := range g.Edges() {
		e.writeEdge(w, i, edge)
	}

	w.WriteString("  </graph>\n</graphml>\n")
	if err := w.Flush(); err != nil {
		return fail(f, path, err)
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns"
         xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
         xsi:schemaLocation="http://graphml.graphdrawing.org/xmlns http://graphml.graphdrawing.org/xmlns/1.0/graphml.xsd">
`

func writeKey(w *bufio.Writer, k graphmlKey) {
	fmt.Fprintf(w, "  <key id=%q for=%q attr.name=%q attr.type=%q/>\n",
		k.id, k.domain, k.id, k.attrType)
}

func writeNode(w *bufio.Writer, n *graph.Node) {
	fmt.Fprintf(w, "    <node id=%q>\n", escapeXML(n.ID))
	data(w, "label", n.Label)
	data(w, "kind", string(n.Kind))

	switch {
	case n.Job != nil:
		j := n.Job
		data(w, "company_name", j.Company)
		data(w, "posted_at", j.PostedAt)
		data(w, "schedule_type", j.ScheduleType)
		data(w, "work_from_home", j.WorkFromHome)
		data(w, "district", j.District)
		data(w, "nco_code", j.NCOCode)
		data(w, "group_name", j.GroupName)
		data(w, "assigned_occupation_group", j.OccupationGroup)
		dataFloat(w, "salary_mean_inr_month", j.SalaryMean)
		data(w, "salary_currency_unit", j.SalaryCurrency)
		data(w, "salary_source", j.SalarySource)
		dataInt(w, "skill_count", j.SkillCount)
		dataInt(w, "token_count", j.TokenCount)
		data(w, "highest_similarity_spec", j.HighestSimilaritySpec)
		dataFloat(w, "highest_similarity_score", j.HighestSimilarityScore)
	case n.Skill != nil:
		s := n.Skill
		data(w, "canonical_key", s.CanonicalKey)
		data(w, "aliases", s.Aliases)
		dataInt(w, "job_count", s.JobCount)
		dataFloat(w, "max_similarity", s.MaxSimilarity)
		dataFloat(w, "avg_similarity", s.AvgSimilarity)
	case n.Category != nil:
		data(w, "nco_code", n.Category.NCOCode)
		dataInt(w, "job_count", n.Category.JobCount)
	}
	w.WriteString("    </node>\n")
}

func (e *Exporter) writeEdge(w *bufio.Writer, i int, edge graph.Edge) {
	fmt.Fprintf(w, "    <edge id=\"e%d\" source=%q target=%q>\n",
		i, escapeXML(edge.Source), escapeXML(edge.Target))
	data(w, "relationship", string(edge.Rel))
	if edge.Rel == graph.RelRequiresSkill {
		data(w, "bucket", edge.Bucket)
		dataFloat(w, "mapping_similarity", edge.Similarity)
		dataFloat(w, "weight", edge.Weight)
		if e.opts.IncludeThinking {
			data(w, "thinking", edge.Thinking)
		}
	}
	w.WriteString("    </edge>\n")
}

func data(w *bufio.Writer, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "      <data key=%q>%s</data>\n", key, escapeXML(value))
}

func dataInt(w *bufio.Writer, key string, value int) {
	if value == 0 {
		return
	}
	fmt.Fprintf(w, "      <data key=%q>%d</data>\n", key, value)
}

func dataFloat(w *bufio.Writer, key string, value float64) {
	if value == 0 {
		return
	}
	fmt.Fprintf(w, "      <data key=%q>%s</data>\n", key, fmtFloat(value))
}

// escapeXML escapes the five XML special characters and drops control
// characters that are illegal in XML 1.0.
func escapeXML(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
