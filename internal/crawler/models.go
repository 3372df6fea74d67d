// internal/crawler/models.go
package crawler

import "hempex-matching/internal/models"

// Request is one aggregation call: which connectors to pull from (name to
// opaque auth token, token may be empty), the caller's criteria, and
// per-call option overrides.
type Request struct {
	Connectors map[string]string     `json:"connectors"`
	Criteria   models.SearchCriteria `json:"criteria"`
	Options    Options               `json:"options"`
}

// Options overrides the crawler defaults for a single call. Zero values fall
// back to configuration.
type Options struct {
	TimeoutMS   int  `json:"timeoutMs,omitempty"`
	Concurrency int  `json:"concurrency,omitempty"`
	NoCache     bool `json:"noCache,omitempty"`
}

// Report is the aggregation result: merged candidates plus the per-source
// status side-channel.
type Report struct {
	RequestID string             `json:"requestId"`
	Meta      Meta               `json:"meta"`
	Results   []models.Candidate `json:"results"`
}

type Meta struct {
	Successes []Success `json:"successes"`
	Failures  []Failure `json:"failures"`
}

type Success struct {
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Cached bool   `json:"cached"`
}

type Failure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}
