// internal/matching/models.go
package matching

import "hempex-matching/internal/models"

// Factor weights. They sum to 1.0, so a weighted score stays in [0, 1].
const (
	WeightPrice        = 0.30
	WeightQuantity     = 0.20
	WeightLocation     = 0.20
	WeightQuality      = 0.15
	WeightSocialImpact = 0.15
)

// Quality labels derived from the weighted score.
const (
	QualityExcellent = "Excellent"
	QualityGood      = "Good"
	QualityFair      = "Fair"
	QualityPoor      = "Poor"
)

// neutralScore is the factor value used when either input needed to judge a
// factor is missing.
const neutralScore = 0.5

// MatchResult is one scored listing with its factor breakdown.
type MatchResult struct {
	Listing         models.Candidate `json:"listing"`
	MatchScore      float64          `json:"matchScore"`
	MatchQuality    string           `json:"matchQuality"`
	MatchingFactors []string         `json:"matchingFactors"`
	FactorScores    FactorScores     `json:"factorScores"`
}

// FactorScores holds the five normalized sub-scores.
type FactorScores struct {
	Price        float64 `json:"price"`
	Quantity     float64 `json:"quantity"`
	Location     float64 `json:"location"`
	Quality      float64 `json:"quality"`
	SocialImpact float64 `json:"socialImpact"`
}
