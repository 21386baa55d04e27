// Package validator checks a built graph against quality thresholds
// and assembles the run report.
//
// Validation never blocks output: findings are classified as warnings
// or errors and written into report.json alongside the run statistics,
// leaving the decision to act on them to the caller.
package validator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/leapstack-labs/skillgraph/internal/graph"
	"github.com/leapstack-labs/skillgraph/internal/parser"
	"github.com/leapstack-labs/skillgraph/internal/sampler"
	"github.com/leapstack-labs/skillgraph/internal/skill"
)

// Quality thresholds. Crossing a warn threshold adds a warning;
// crossing an error threshold adds an error. Neither aborts the run.
const (
	warnJobsWithSkillsPct  = 95.0
	errorJobsWithSkillsPct = 80.0
	warnDedupRatio         = 0.5
	warnAvgSkillsPerJob    = 3.0
	warnBadRowPct          = 5.0
	warnMetadataCoverage   = 50.0
)

// Meta identifies the run.
type Meta struct {
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	GeneratedAt string `json:"generated_at"`
	InputPath   string `json:"input_path"`
}

// Quality holds the derived graph quality metrics.
type Quality struct {
	JobsWithSkillsPct   float64            `json:"jobs_with_skills_pct"`
	JobsWithCategoryPct float64            `json:"jobs_with_category_pct"`
	AvgSkillsPerJob     float64            `json:"avg_skills_per_job"`
	OrphanSkillCount    int                `json:"orphan_skill_count"`
	MetadataCoverage    map[string]float64 `json:"metadata_coverage_pct"`
	TopSkills           []TopSkill         `json:"top_skills"`
}

// TopSkill is one entry of the top-skills-by-occurrence list.
type TopSkill struct {
	Label       string `json:"label"`
	Key         string `json:"canonical_key"`
	Occurrences int    `json:"occurrences"`
}

// Report is the full report.json document.
type Report struct {
	Meta          Meta            `json:"meta"`
	Config        any             `json:"config"`
	Input         parser.Counters `json:"input"`
	Normalization skill.Stats     `json:"normalization"`
	Graph         graph.Stats     `json:"graph"`
	Quality       Quality         `json:"quality"`
	Sampling      *sampler.Report `json:"sampling,omitempty"`
	OutputFiles   []string        `json:"output_files"`
	Warnings      []string        `json:"warnings"`
	Errors        []string        `json:"errors"`
}

// Validator derives quality metrics and applies thresholds.
type Validator struct {
	logger *slog.Logger
}

// New creates a validator. A nil logger discards.
func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Validator{logger: logger}
}

// Input bundles everything the validator needs from the pipeline.
type Input struct {
	Version     string
	InputPath   string
	Config      any
	Counters    parser.Counters
	NormStats   skill.Stats
	GraphStats  graph.Stats
	Graph       *graph.Graph
	Dictionary  *skill.Normalizer
	Sampling    *sampler.Report
	OutputFiles []string
}

// Validate builds the report. Warnings and errors are advisory; the
// returned report is always complete.
func (v *Validator) Validate(in Input) *Report {
	r := &Report{
		Meta: Meta{
			Tool:        "skillgraph",
			Version:     in.Version,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			InputPath:   in.InputPath,
		},
		Config:        in.Config,
		Input:         in.Counters,
		Normalization: in.NormStats,
		Graph:         in.GraphStats,
		Quality:       v.quality(in),
		Sampling:      in.Sampling,
		OutputFiles:   in.OutputFiles,
		Warnings:      []string{},
		Errors:        []string{},
	}

	v.applyThresholds(r)

	for _, w := range r.Warnings {
		v.logger.Warn("validation: " + w)
	}
	for _, e := range r.Errors {
		v.logger.Error("validation: " + e)
	}
	return r
}

func (v *Validator) quality(in Input) Quality {
	q := Quality{MetadataCoverage: map[string]float64{}, TopSkills: []TopSkill{}}

	jobs := in.GraphStats.NodesByKind[string(graph.KindJob)]
	if jobs > 0 {
		q.JobsWithSkillsPct = pct(in.GraphStats.JobsWithSkills, jobs)
		q.JobsWithCategoryPct = pct(in.GraphStats.JobsWithCategory, jobs)
		q.AvgSkillsPerJob = float64(in.GraphStats.EdgesByRel[string(graph.RelRequiresSkill)]) / float64(jobs)
	}

	if in.Graph != nil {
		q.OrphanSkillCount = orphanSkills(in.Graph)
		q.MetadataCoverage = metadataCoverage(in.Graph)
	}

	if in.Dictionary != nil {
		entries := in.Dictionary.EntriesByOccurrence()
		if len(entries) > 10 {
			entries = entries[:10]
		}
		for _, e := range entries {
			q.TopSkills = append(q.TopSkills, TopSkill{
				Label:       e.Label,
				Key:         e.Key,
				Occurrences: e.Occurrences,
			})
		}
	}
	return q
}

func (v *Validator) applyThresholds(r *Report) {
	jobs := r.Graph.NodesByKind[string(graph.KindJob)]
	if jobs > 0 {
		switch {
		case r.Quality.JobsWithSkillsPct < errorJobsWithSkillsPct:
			r.Errors = append(r.Errors, fmt.Sprintf(
				"only %.1f%% of jobs have skill edges (error threshold %.0f%%)",
				r.Quality.JobsWithSkillsPct, errorJobsWithSkillsPct))
		case r.Quality.JobsWithSkillsPct < warnJobsWithSkillsPct:
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"%.1f%% of jobs have skill edges (expected at least %.0f%%)",
				r.Quality.JobsWithSkillsPct, warnJobsWithSkillsPct))
		}

		if r.Quality.AvgSkillsPerJob < warnAvgSkillsPerJob {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"average of %.2f skills per job is low (expected at least %.0f)",
				r.Quality.AvgSkillsPerJob, warnAvgSkillsPerJob))
		}
	}

	if r.Normalization.RawSkillStrings > 0 && r.Normalization.DedupRatio < warnDedupRatio {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"dedup ratio %.2f is low: normalization is collapsing few labels",
			r.Normalization.DedupRatio))
	}

	if r.Input.Total > 0 {
		badPct := pct(r.Input.Failed, r.Input.Total)
		if badPct > warnBadRowPct {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"%.1f%% of input rows failed to parse (threshold %.0f%%)",
				badPct, warnBadRowPct))
		}
	}

	// Salary, work-from-home and posting date are sparse in the source
	// data; low coverage there is expected, not a defect.
	exempt := map[string]bool{
		"salary_mean_inr_month": true,
		"work_from_home":        true,
		"posted_at":             true,
	}
	fields := make([]string, 0, len(r.Quality.MetadataCoverage))
	for f := range r.Quality.MetadataCoverage {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if exempt[f] {
			continue
		}
		if cov := r.Quality.MetadataCoverage[f]; cov < warnMetadataCoverage {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"metadata field %q covered on only %.1f%% of jobs", f, cov))
		}
	}
}

// orphanSkills counts skill nodes with no incoming REQUIRES_SKILL edge.
func orphanSkills(g *graph.Graph) int {
	referenced := make(map[string]struct{})
	for _, e := range g.Edges() {
		if e.Rel == graph.RelRequiresSkill {
			referenced[e.Target] = struct{}{}
		}
	}
	orphans := 0
	for _, n := range g.Nodes() {
		if n.Kind == graph.KindSkill {
			if _, ok := referenced[n.ID]; !ok {
				orphans++
			}
		}
	}
	return orphans
}

// metadataCoverage reports, per job metadata field, the percentage of
// job nodes carrying a non-empty value.
func metadataCoverage(g *graph.Graph) map[string]float64 {
	counts := map[string]int{}
	jobs := 0
	for _, n := range g.Nodes() {
		if n.Job == nil {
			continue
		}
		jobs++
		j := n.Job
		mark := func(field, value string) {
			if value != "" {
				counts[field]++
			}
		}
		mark("company_name", j.Company)
		mark("posted_at", j.PostedAt)
		mark("schedule_type", j.ScheduleType)
		mark("work_from_home", j.WorkFromHome)
		mark("district", j.District)
		mark("nco_code", j.NCOCode)
		mark("assigned_occupation_group", j.OccupationGroup)
		if j.SalaryMean != 0 {
			counts["salary_mean_inr_month"]++
		}
	}

	coverage := make(map[string]float64, len(counts))
	if jobs == 0 {
		return coverage
	}
	for field, n := range counts {
		coverage[field] = pct(n, jobs)
	}
	return coverage
}

func pct(part, whole int) float64 {
	return 100 * float64(part) / float64(whole)
}

// WriteReport writes the report as indented JSON.
func WriteReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
