// Package matching implements the multi-factor scorer behind the dedicated
// matching/suggestions endpoints. Five independent factors, each normalized
// to [0, 1], combine into a weighted score with a categorical quality label.
package matching

import (
	"sort"
	"strings"
	"time"

	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/common/metrics"
	"hempex-matching/internal/models"
)

type Service struct {
	logger logger.Logger
}

func NewService(log logger.Logger) *Service {
	return &Service{
		logger: log.WithFields(map[string]interface{}{"component": "matching"}),
	}
}

// Match scores every candidate against the criteria and returns results
// sorted descending by weighted score. Ties keep input order; the input
// slice is never mutated.
func (s *Service) Match(criteria models.MatchCriteria, candidates []models.Candidate) []MatchResult {
	start := time.Now()
	defer func() {
		metrics.RankingDuration.WithLabelValues("matching").Observe(time.Since(start).Seconds())
	}()

	results := make([]MatchResult, len(candidates))
	for i, cand := range candidates {
		results[i] = s.scoreCandidate(criteria, cand)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})

	s.logger.Debug("candidates matched", map[string]interface{}{
		"count": len(results),
	})

	return results
}

func (s *Service) scoreCandidate(criteria models.MatchCriteria, cand models.Candidate) MatchResult {
	factors := FactorScores{
		Price:        priceMatch(cand.PricePerUnit, criteria.Budget),
		Quantity:     quantityMatch(cand.Quantity, criteria.Quantity),
		Location:     locationMatch(cand.Location, criteria.Location),
		Quality:      qualityMatch(cand.QualitySpecs+" "+cand.Description, criteria.QualityRequirements),
		SocialImpact: socialImpactMatch(cand.SocialImpactScore, criteria.SocialImpactPriority),
	}

	score := factors.Price*WeightPrice +
		factors.Quantity*WeightQuantity +
		factors.Location*WeightLocation +
		factors.Quality*WeightQuality +
		factors.SocialImpact*WeightSocialImpact

	return MatchResult{
		Listing:         cand,
		MatchScore:      score,
		MatchQuality:    qualityLabel(score),
		MatchingFactors: strongFactors(factors),
		FactorScores:    factors,
	}
}

// priceMatch is 1 when the listing fits the budget and decays linearly with
// the overshoot. A zero price or an absent budget reads as unknown.
func priceMatch(price float64, budget *float64) float64 {
	if price <= 0 || budget == nil || *budget <= 0 {
		return neutralScore
	}
	if price <= *budget {
		return 1
	}
	overshoot := (price - *budget) / *budget
	if overshoot >= 1 {
		return 0
	}
	return 1 - overshoot
}

// quantityMatch is 1 when the listing covers the required amount, else the
// covered fraction.
func quantityMatch(available float64, required *float64) float64 {
	if available <= 0 || required == nil || *required <= 0 {
		return neutralScore
	}
	if available >= *required {
		return 1
	}
	return available / *required
}

// locationMatch rewards a substring containment in either direction; two
// known but unrelated locations still get a floor of 0.2.
func locationMatch(listingLocation, wantedLocation string) float64 {
	if listingLocation == "" || wantedLocation == "" {
		return neutralScore
	}
	a := strings.ToLower(listingLocation)
	b := strings.ToLower(wantedLocation)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 1
	}
	return 0.2
}

// qualityMatch is the fraction of requirement words found as a substring of
// any description word.
func qualityMatch(description, requirements string) float64 {
	reqWords := strings.Fields(strings.ToLower(requirements))
	descWords := strings.Fields(strings.ToLower(description))
	if len(reqWords) == 0 || len(descWords) == 0 {
		return neutralScore
	}

	matched := 0
	for _, req := range reqWords {
		for _, word := range descWords {
			if strings.Contains(word, req) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(reqWords))
}

// socialImpactMatch blends the listing's impact score with how much the
// buyer cares: at zero priority every listing reads neutral, at full
// priority the normalized score carries through unchanged.
func socialImpactMatch(score *float64, priority *float64) float64 {
	if score == nil || priority == nil {
		return neutralScore
	}
	normScore := clamp01(*score / 100)
	normPriority := clamp01(*priority)
	return normScore*normPriority + (1-normPriority)*neutralScore
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func qualityLabel(score float64) string {
	switch {
	case score >= 0.8:
		return QualityExcellent
	case score >= 0.6:
		return QualityGood
	case score >= 0.4:
		return QualityFair
	default:
		return QualityPoor
	}
}

// strongFactors lists the factors that meaningfully drove the match.
func strongFactors(f FactorScores) []string {
	const threshold = 0.7
	var out []string
	if f.Price >= threshold {
		out = append(out, "price")
	}
	if f.Quantity >= threshold {
		out = append(out, "quantity")
	}
	if f.Location >= threshold {
		out = append(out, "location")
	}
	if f.Quality >= threshold {
		out = append(out, "quality")
	}
	if f.SocialImpact >= threshold {
		out = append(out, "socialImpact")
	}
	return out
}
