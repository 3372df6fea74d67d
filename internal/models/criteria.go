// internal/models/criteria.go
package models

// SearchCriteria carries the caller's search request. Constructed once per
// request and treated as read-only by the crawler and rankers.
type SearchCriteria struct {
	Query                string   `json:"query,omitempty"`
	Commodity            string   `json:"commodity,omitempty"`
	Region               string   `json:"region,omitempty"`
	PriceMin             *float64 `json:"priceMin,omitempty"`
	PriceMax             *float64 `json:"priceMax,omitempty"`
	Budget               *float64 `json:"budget,omitempty"`
	Quantity             *float64 `json:"quantity,omitempty"`
	QualityRequirements  string   `json:"qualityRequirements,omitempty"`
	SocialImpactPriority *float64 `json:"socialImpactPriority,omitempty"`
}

// MatchCriteria is the shape the matching/suggestions endpoints accept.
type MatchCriteria struct {
	Budget               *float64 `json:"budget,omitempty"`
	Quantity             *float64 `json:"quantity,omitempty"`
	Location             string   `json:"location,omitempty"`
	QualityRequirements  string   `json:"qualityRequirements,omitempty"`
	SocialImpactPriority *float64 `json:"socialImpactPriority,omitempty"`
}

// RankedCandidate is a candidate annotated with its relevance score.
type RankedCandidate struct {
	Candidate
	Score float64 `json:"_score"`
}
