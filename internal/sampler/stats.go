package sampler

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/leapstack-labs/skillgraph/internal/graph"
)

// zScores holds two-tailed normal critical values for the supported
// confidence levels.
var zScores = map[float64]float64{
	0.90:  1.645,
	0.95:  1.960,
	0.99:  2.576,
	0.999: 3.291,
}

// zScore returns the critical value for a confidence level, defaulting
// to the 95% value for levels outside the table.
func zScore(confLevel float64) float64 {
	if z, ok := zScores[confLevel]; ok {
		return z
	}
	return 1.96
}

// statistical implements Cochran-sized stratified sampling: sample size
// from Cochran's proportion formula with optional finite population
// correction, proportional allocation across category strata with a
// per-stratum minimum, seeded draws without replacement.
type statistical struct {
	cfg    Config
	logger *slog.Logger
}

func (s *statistical) Sample(g *graph.Graph) (*graph.Graph, *Report, error) {
	rng := rand.New(rand.NewSource(s.cfg.Seed))

	jobs := jobIDs(g)
	total := len(jobs)
	s.logger.Info("statistical sampling", slog.Int("population", total))

	n, formula := s.sampleSize(total)
	s.logger.Info("target sample size from Cochran's formula", slog.Int("n", n))

	strata, keys := stratify(jobs, jobCategories(g))
	allocation, warnings := s.allocate(strata, keys, n, total)

	sampled := make(map[string]struct{})
	stratReport := make(map[string]Strata, len(keys))
	for _, cat := range keys {
		members := strata[cat]
		take := allocation[cat]
		if take > len(members) {
			take = len(members)
		}
		drawn := drawWithoutReplacement(rng, members, take)
		for _, id := range drawn {
			sampled[id] = struct{}{}
		}
		stratReport[cat] = Strata{
			Population: len(members),
			Allocated:  allocation[cat],
			Sampled:    len(drawn),
		}
	}
	s.logger.Info("sampled jobs", slog.Int("count", len(sampled)))

	p := 0.5
	if !s.cfg.PWorstcase {
		p = s.cfg.PEstimate
	}
	report := &Report{
		Mode: ModeStats,
		Population: Population{
			TotalJobs:       total,
			TotalCategories: len(keys),
		},
		Parameters: map[string]any{
			"confidence_level":  s.cfg.ConfLevel,
			"margin_of_error":   s.cfg.MarginError,
			"p_estimate":        p,
			"p_worstcase":       s.cfg.PWorstcase,
			"finite_correction": s.cfg.FiniteCorrection,
			"min_per_category":  s.cfg.MinPerCategory,
			"seed":              s.cfg.Seed,
		},
		Formula:        formula,
		TargetN:        n,
		ActualN:        len(sampled),
		Stratification: stratReport,
		Warnings:       warnings,
	}

	return subgraph(g, sampled), report, nil
}

// sampleSize computes the required sample size. Rounding policy:
// ceiling of n0, then finite population correction, then ceiling again.
// The reported formula keeps the raw n0 so the echo matches the math.
func (s *statistical) sampleSize(population int) (int, *Formula) {
	z := zScore(s.cfg.ConfLevel)
	e := s.cfg.MarginError
	p := 0.5
	if !s.cfg.PWorstcase {
		p = s.cfg.PEstimate
	}

	n0 := z * z * p * (1 - p) / (e * e)

	n := math.Ceil(n0)
	if s.cfg.FiniteCorrection && population > 0 {
		n = math.Ceil(n0) / (1 + (math.Ceil(n0)-1)/float64(population))
	}
	final := int(math.Ceil(n))

	return final, &Formula{
		Method:           "cochran_proportion",
		Z:                z,
		P:                p,
		E:                e,
		N0:               n0,
		N:                population,
		FiniteCorrection: s.cfg.FiniteCorrection,
		FinalN:           final,
	}
}

// allocate distributes n across strata proportionally (n_h = ⌈n·N_h/N⌉),
// raised to the configured minimum. Strata smaller than the minimum are
// taken whole, with a warning: that category is under-sampled by
// construction, not by accident.
func (s *statistical) allocate(strata map[string][]string, keys []string, n, total int) (map[string]int, []string) {
	allocation := make(map[string]int, len(keys))
	warnings := []string{}

	for _, cat := range keys {
		size := len(strata[cat])
		share := int(math.Ceil(float64(n) * float64(size) / float64(total)))

		if size < s.cfg.MinPerCategory {
			allocation[cat] = size
			warnings = append(warnings, fmt.Sprintf(
				"category %q has only %d jobs (below min_per_category=%d)",
				cat, size, s.cfg.MinPerCategory))
			continue
		}
		if share < s.cfg.MinPerCategory {
			share = s.cfg.MinPerCategory
		}
		allocation[cat] = share
	}

	allocated := 0
	for _, v := range allocation {
		allocated += v
	}
	if float64(allocated) > float64(n)*1.5 {
		s.logger.Warn("allocation exceeds target due to minimum constraints",
			slog.Int("allocated", allocated), slog.Int("target", n))
	}

	return allocation, warnings
}
