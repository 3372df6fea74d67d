// internal/models/candidate.go
package models

import "time"

// SourceInternal tags candidates that came from the marketplace's own
// listings database rather than an external connector.
const SourceInternal = "internal"

// Candidate is a listing (or signal) normalized to the common shape every
// connector must produce. Candidates are immutable once returned by a
// connector; scoring always works on copies.
type Candidate struct {
	ID                string     `json:"id"`
	ListingType       string     `json:"listingType,omitempty"`
	Commodity         string     `json:"commodity"`
	Quantity          float64    `json:"quantity"`
	Unit              string     `json:"unit,omitempty"`
	PricePerUnit      float64    `json:"pricePerUnit"`
	Currency          string     `json:"currency,omitempty"`
	Location          string     `json:"location"`
	Description       string     `json:"description,omitempty"`
	QualitySpecs      string     `json:"qualitySpecs,omitempty"`
	SocialImpactScore *float64   `json:"socialImpactScore,omitempty"`
	CounterpartyID    string     `json:"counterpartyId,omitempty"`
	CounterpartyName  string     `json:"counterpartyName,omitempty"`
	BeliefScore       *float64   `json:"beliefScore,omitempty"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
	Source            string     `json:"source"`
}

// AgeDays returns the candidate's age in days relative to now, or 0 when the
// creation timestamp is unknown.
func (c *Candidate) AgeDays(now time.Time) float64 {
	if c.CreatedAt == nil {
		return 0
	}
	age := now.Sub(*c.CreatedAt)
	if age < 0 {
		return 0
	}
	return age.Hours() / 24
}
