package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apperrors "hempex-matching/internal/common/errors"
	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/common/observability"
	"hempex-matching/internal/common/validation"
	"hempex-matching/internal/crawler"
	"hempex-matching/internal/flags"
	"hempex-matching/internal/matching"
	"hempex-matching/internal/models"
	"hempex-matching/internal/ranking"
	"hempex-matching/pkg/registry"
)

type serverDeps struct {
	crawler   *crawler.Crawler
	ranker    *ranking.Ranker
	matcher   *matching.Service
	catalog   *registry.ConnectorCatalog
	flags     *flags.Service
	flagStore *flags.RedisStore
	errors    *apperrors.ErrorHandler
	obs       *observability.Observability
	logger    logger.Logger
}

type server struct {
	serverDeps
}

func newServer(deps serverDeps) *server {
	return &server{serverDeps: deps}
}

type subjectPayload struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Region string `json:"region"`
}

func (p subjectPayload) toSubject() flags.Subject {
	return flags.Subject{UserID: p.UserID, Role: p.Role, Region: p.Region}
}

type searchRequest struct {
	Connectors map[string]string     `json:"connectors"`
	Criteria   models.SearchCriteria `json:"criteria"`
	Options    crawler.Options       `json:"options"`
	Subject    subjectPayload        `json:"subject"`
}

type searchResponse struct {
	RequestID string                   `json:"requestId"`
	Meta      crawler.Meta             `json:"meta"`
	Results   []models.RankedCandidate `json:"results"`
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, apperrors.NewInvalidCriteriaError("malformed request body: "+err.Error()))
		return
	}

	if err := s.validateCriteria(req.Connectors, req.Criteria); err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.crawler.Crawl(r.Context(), crawler.Request{
		Connectors: req.Connectors,
		Criteria:   req.Criteria,
		Options:    req.Options,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ranked := s.ranker.Rank(r.Context(), report.Results, req.Criteria, req.Subject.toSubject())

	s.obs.RecordRequest(r.Context(), "/api/search", "success")
	s.obs.RecordRequestDuration(r.Context(), "/api/search", time.Since(start))
	s.writeJSON(w, http.StatusOK, searchResponse{
		RequestID: report.RequestID,
		Meta:      report.Meta,
		Results:   ranked,
	})
}

type matchRequest struct {
	Connectors map[string]string    `json:"connectors"`
	Commodity  string               `json:"commodity"`
	Criteria   models.MatchCriteria `json:"criteria"`
	Options    crawler.Options      `json:"options"`
	Subject    subjectPayload       `json:"subject"`
}

type matchResponse struct {
	RequestID string                 `json:"requestId"`
	Meta      crawler.Meta           `json:"meta"`
	Matches   []matching.MatchResult `json:"matches"`
}

func (s *server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, apperrors.NewInvalidCriteriaError("malformed request body: "+err.Error()))
		return
	}

	// Candidates come from the same aggregation path the search endpoint
	// uses; the match criteria doubles as the crawl filter.
	searchCriteria := models.SearchCriteria{
		Commodity:            req.Commodity,
		Region:               req.Criteria.Location,
		Budget:               req.Criteria.Budget,
		PriceMax:             req.Criteria.Budget,
		Quantity:             req.Criteria.Quantity,
		QualityRequirements:  req.Criteria.QualityRequirements,
		SocialImpactPriority: req.Criteria.SocialImpactPriority,
	}

	report, err := s.crawler.Crawl(r.Context(), crawler.Request{
		Connectors: req.Connectors,
		Criteria:   searchCriteria,
		Options:    req.Options,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	matches := s.matcher.Match(req.Criteria, report.Results)

	s.obs.RecordRequest(r.Context(), "/api/matches", "success")
	s.obs.RecordRequestDuration(r.Context(), "/api/matches", time.Since(start))
	s.writeJSON(w, http.StatusOK, matchResponse{
		RequestID: report.RequestID,
		Meta:      report.Meta,
		Matches:   matches,
	})
}

type flagStatus struct {
	Flag     string          `json:"flag"`
	Enabled  bool            `json:"enabled"`
	Override *flags.Override `json:"override,omitempty"`
}

// handleFlagOverride lets operators manage runtime flag overrides: GET reads
// the stored override plus the effective value for a subject passed as query
// params, PUT replaces the override, DELETE clears it.
func (s *server) handleFlagOverride(w http.ResponseWriter, r *http.Request) {
	flag := strings.TrimPrefix(r.URL.Path, "/admin/flags/")
	if flag == "" || strings.Contains(flag, "/") {
		http.Error(w, "flag name required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		override, err := s.flagStore.GetOverride(r.Context(), flag)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		q := r.URL.Query()
		subject := flags.Subject{
			UserID: q.Get("userId"),
			Role:   q.Get("role"),
			Region: q.Get("region"),
		}
		s.writeJSON(w, http.StatusOK, flagStatus{
			Flag:     flag,
			Enabled:  s.flags.Enabled(r.Context(), flag, subject),
			Override: override,
		})
	case http.MethodPut:
		var override flags.Override
		if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
			http.Error(w, "malformed override: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.flagStore.SetOverride(r.Context(), flag, override); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.logger.Info("Flag override set", map[string]interface{}{"flag": flag})
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "flag": flag})
	case http.MethodDelete:
		if err := s.flagStore.ClearOverride(r.Context(), flag); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.logger.Info("Flag override cleared", map[string]interface{}{"flag": flag})
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "flag": flag})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "matching-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// validateCriteria checks the request criteria against the catalog schema of
// every requested connector. Connectors absent from the catalog are left for
// the crawler, which skips unknown names without failing the request.
func (s *server) validateCriteria(connectors map[string]string, criteria models.SearchCriteria) error {
	raw, err := json.Marshal(criteria)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return apperrors.NewInternalError(err)
	}

	for name := range connectors {
		def, ok := s.catalog.Find(name)
		if !ok || len(def.CriteriaSchema) == 0 {
			continue
		}
		result, err := validation.ValidateAgainstSchema(doc, def.CriteriaSchema)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if !result.Valid {
			return apperrors.NewInvalidCriteriaError(
				name + ": " + strings.Join(result.ErrorStrings(), "; "))
		}
	}
	return nil
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.obs.RecordRequest(r.Context(), r.URL.Path, "error")
	s.errors.WriteHTTP(w, err)
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}
