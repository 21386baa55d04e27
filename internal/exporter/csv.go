package exporter

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/leapstack-labs/skillgraph/internal/graph"
	"github.com/leapstack-labs/skillgraph/internal/parser"
	"github.com/leapstack-labs/skillgraph/internal/skill"
)

// nodeColumns is the fixed node CSV schema. Every kind writes every
// column; columns not applicable to a kind stay empty so downstream
// loaders see a stable header.
var nodeColumns = []string{
	"id", "label", "kind",
	"job_title", "company_name", "posted_at", "schedule_type",
	"work_from_home", "district", "nco_code", "group_name",
	"assigned_occupation_group", "salary_mean_inr_month",
	"salary_currency_unit", "salary_source", "skill_count",
	"token_count", "highest_similarity_spec", "highest_similarity_score",
	"canonical_key", "aliases", "job_count",
	"max_similarity", "avg_similarity",
}

func (e *Exporter) writeNodes(path string, g *graph.Graph) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	if err := w.Write(nodeColumns); err != nil {
		return fail(f, path, err)
	}
	for _, n := range g.Nodes() {
		if err := w.Write(nodeRow(n)); err != nil {
			return fail(f, path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fail(f, path, err)
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func nodeRow(n *graph.Node) []string {
	row := make([]string, len(nodeColumns))
	row[0] = n.ID
	row[1] = n.Label
	row[2] = string(n.Kind)

	switch {
	case n.Job != nil:
		j := n.Job
		row[3] = j.Title
		row[4] = j.Company
		row[5] = j.PostedAt
		row[6] = j.ScheduleType
		row[7] = j.WorkFromHome
		row[8] = j.District
		row[9] = j.NCOCode
		row[10] = j.GroupName
		row[11] = j.OccupationGroup
		if j.SalaryMean != 0 {
			row[12] = fmtFloat(j.SalaryMean)
		}
		row[13] = j.SalaryCurrency
		row[14] = j.SalarySource
		row[15] = strconv.Itoa(j.SkillCount)
		if j.TokenCount != 0 {
			row[16] = strconv.Itoa(j.TokenCount)
		}
		row[17] = j.HighestSimilaritySpec
		if j.HighestSimilarityScore != 0 {
			row[18] = fmtFloat(j.HighestSimilarityScore)
		}
	case n.Skill != nil:
		s := n.Skill
		row[19] = s.CanonicalKey
		row[20] = s.Aliases
		row[21] = strconv.Itoa(s.JobCount)
		row[22] = fmtFloat(s.MaxSimilarity)
		row[23] = fmtFloat(s.AvgSimilarity)
	case n.Category != nil:
		row[9] = n.Category.NCOCode
		row[21] = strconv.Itoa(n.Category.JobCount)
	}
	return row
}

func (e *Exporter) writeEdges(path string, g *graph.Graph) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	header := []string{"source", "target", "type", "relationship", "bucket", "mapping_similarity"}
	if e.opts.IncludeThinking {
		header = append(header, "thinking")
	}
	if err := w.Write(header); err != nil {
		return fail(f, path, err)
	}

	for _, edge := range g.Edges() {
		row := []string{edge.Source, edge.Target, "directed", string(edge.Rel), edge.Bucket, ""}
		if edge.Rel == graph.RelRequiresSkill {
			row[5] = fmtFloat(edge.Similarity)
		}
		if e.opts.IncludeThinking {
			row = append(row, edge.Thinking)
		}
		if err := w.Write(row); err != nil {
			return fail(f, path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fail(f, path, err)
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// writeDictionary exports the skill dictionary sorted by occurrence
// count descending, so the head of the file is the most common skills.
func (e *Exporter) writeDictionary(path string, dict *skill.Normalizer) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	header := []string{
		"skill_id", "canonical_key", "canonical_label",
		"aliases", "alias_count", "occurrence_count", "max_similarity",
	}
	if err := w.Write(header); err != nil {
		return fail(f, path, err)
	}

	for _, entry := range dict.EntriesByOccurrence() {
		row := []string{
			skill.NodeID(entry.Key),
			entry.Key,
			entry.Label,
			strings.Join(entry.SortedAliases(), "|"),
			strconv.Itoa(len(entry.Aliases)),
			strconv.Itoa(entry.Occurrences),
			fmtFloat(entry.MaxSimilarity),
		}
		if err := w.Write(row); err != nil {
			return fail(f, path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fail(f, path, err)
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func (e *Exporter) writeBadRows(path string, badRows []parser.BadRow) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	if err := w.Write([]string{"row_number", "identifying_field", "error_description"}); err != nil {
		return fail(f, path, err)
	}
	for _, br := range badRows {
		row := []string{strconv.Itoa(br.Line), br.Identifier, br.Reason}
		if err := w.Write(row); err != nil {
			return fail(f, path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fail(f, path, err)
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
