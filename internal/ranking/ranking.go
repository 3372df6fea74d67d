// Package ranking scores crawl candidates against search criteria with a
// weighted combination of deterministic factors plus flag-gated experimental
// adjustments, and returns them ordered best-first.
package ranking

import (
	"context"
	"sort"
	"strings"
	"time"

	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/common/metrics"
	"hempex-matching/internal/flags"
	"hempex-matching/internal/models"
)

// nowFunc is swapped out by tests that need a fixed clock.
var nowFunc = time.Now

// FlagSource resolves experimental-adjustment flags. Satisfied by
// *flags.Service.
type FlagSource interface {
	Enabled(ctx context.Context, flag string, subject flags.Subject) bool
}

type Ranker struct {
	flags        FlagSource
	interference InterferenceProvider
	logger       logger.Logger
}

func NewRanker(flagSource FlagSource, interference InterferenceProvider, log logger.Logger) *Ranker {
	return &Ranker{
		flags:        flagSource,
		interference: interference,
		logger:       log.WithFields(map[string]interface{}{"component": "ranking"}),
	}
}

// Rank scores every candidate and returns annotated copies sorted descending
// by score. Ties keep their input order. The input slice is never mutated.
func (r *Ranker) Rank(ctx context.Context, candidates []models.Candidate, criteria models.SearchCriteria, subject flags.Subject) []models.RankedCandidate {
	start := time.Now()
	defer func() {
		metrics.RankingDuration.WithLabelValues("base").Observe(time.Since(start).Seconds())
	}()

	adjusters := r.activeAdjusters(ctx, subject)
	now := nowFunc()

	ranked := make([]models.RankedCandidate, len(candidates))
	for i, cand := range candidates {
		score := baseScore(cand, criteria, now)
		for _, adj := range adjusters {
			score += adj.Adjust(ctx, cand, criteria)
		}
		ranked[i] = models.RankedCandidate{Candidate: cand, Score: score}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	r.logger.Debug("candidates ranked", map[string]interface{}{
		"count":     len(ranked),
		"adjusters": len(adjusters),
	})

	return ranked
}

// activeAdjusters resolves each experimental flag exactly once for this
// request and returns the enabled strategies.
func (r *Ranker) activeAdjusters(ctx context.Context, subject flags.Subject) []Adjuster {
	if r.flags == nil {
		return nil
	}

	var active []Adjuster
	if r.flags.Enabled(ctx, flags.RankingUncertainty, subject) {
		active = append(active, uncertaintyAdjuster{})
	}
	if r.flags.Enabled(ctx, flags.RankingInterference, subject) {
		active = append(active, interferenceAdjuster{provider: r.interference, logger: r.logger})
	}
	if r.flags.Enabled(ctx, flags.RankingIntuition, subject) {
		active = append(active, intuitionAdjuster{})
	}
	return active
}

// baseScore is the deterministic part of the relevance score.
func baseScore(cand models.Candidate, criteria models.SearchCriteria, now time.Time) float64 {
	score := 0.0

	if criteria.Query != "" &&
		strings.Contains(strings.ToLower(cand.CounterpartyName), strings.ToLower(criteria.Query)) {
		score += 10
	}

	if criteria.Commodity != "" && strings.EqualFold(cand.Commodity, criteria.Commodity) {
		score += 5
	}

	if criteria.Region != "" &&
		strings.Contains(strings.ToLower(cand.Location), strings.ToLower(criteria.Region)) {
		score += 3
	}

	if cand.CreatedAt != nil {
		if recency := 5 - cand.AgeDays(now)*0.1; recency > 0 {
			score += recency
		}
	}

	return score
}
