// internal/connector/elastic.go
package connector

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "hempex-matching/internal/common/errors"
	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/models"
)

const (
	// ListingsIndexName identifies the full-text listings index connector.
	ListingsIndexName = "listings-index"

	elasticQuerySize = 50
)

// ListingsIndex queries the Elasticsearch listings index. It gives the
// crawler a full-text source alongside the relational internal connector.
type ListingsIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewListingsIndex(client *elasticsearch.Client, index string, log logger.Logger) *ListingsIndex {
	return &ListingsIndex{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"connector": ListingsIndexName}),
	}
}

func (c *ListingsIndex) Name() string { return ListingsIndexName }

func (c *ListingsIndex) FetchAndNormalize(ctx context.Context, _ string, criteria models.SearchCriteria) ([]models.Candidate, error) {
	body, err := json.Marshal(buildListingsQuery(criteria))
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(c.index, err)
	}

	size := elasticQuerySize
	req := esapi.SearchRequest{
		Index: []string{c.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(c.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(c.index, errResponse(res))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string     `json:"_id"`
				Source listingDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(c.index, err)
	}

	candidates := make([]models.Candidate, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		candidates = append(candidates, hit.Source.toCandidate(hit.ID))
	}

	c.logger.Debug("index query completed", map[string]interface{}{
		"count": len(candidates),
	})

	return candidates, nil
}

// listingDoc mirrors the indexed listing document.
type listingDoc struct {
	ListingType       string   `json:"listingType"`
	Commodity         string   `json:"commodity"`
	Quantity          float64  `json:"quantity"`
	Unit              string   `json:"unit"`
	PricePerUnit      float64  `json:"pricePerUnit"`
	Currency          string   `json:"currency"`
	Location          string   `json:"location"`
	Description       string   `json:"description"`
	QualitySpecs      string   `json:"qualitySpecs"`
	SocialImpactScore *float64 `json:"socialImpactScore"`
	CounterpartyID    string   `json:"counterpartyId"`
	CounterpartyName  string   `json:"counterpartyName"`
	CreatedAt         string   `json:"createdAt"`
}

func (d listingDoc) toCandidate(id string) models.Candidate {
	cand := models.Candidate{
		ID:                id,
		ListingType:       d.ListingType,
		Commodity:         d.Commodity,
		Quantity:          d.Quantity,
		Unit:              d.Unit,
		PricePerUnit:      d.PricePerUnit,
		Currency:          d.Currency,
		Location:          d.Location,
		Description:       d.Description,
		QualitySpecs:      d.QualitySpecs,
		SocialImpactScore: d.SocialImpactScore,
		CounterpartyID:    d.CounterpartyID,
		CounterpartyName:  d.CounterpartyName,
		Source:            ListingsIndexName,
	}
	if d.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, d.CreatedAt); err == nil {
			t = t.UTC()
			cand.CreatedAt = &t
		}
	}
	return cand
}

// buildListingsQuery assembles a bool query from the criteria.
func buildListingsQuery(criteria models.SearchCriteria) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if criteria.Query != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  criteria.Query,
				"fields": []string{"counterpartyName^3", "description^2", "commodity", "qualitySpecs"},
				"type":   "best_fields",
			},
		})
	}

	if criteria.Commodity != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{
				"commodity.keyword": criteria.Commodity,
			},
		})
	}

	if criteria.Region != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"match": map[string]interface{}{
				"location": criteria.Region,
			},
		})
	}

	if criteria.PriceMin != nil || criteria.PriceMax != nil {
		rangeClause := map[string]interface{}{}
		if criteria.PriceMin != nil {
			rangeClause["gte"] = *criteria.PriceMin
		}
		if criteria.PriceMax != nil {
			rangeClause["lte"] = *criteria.PriceMax
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"pricePerUnit": rangeClause,
			},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(mustClauses) > 0 {
		boolQuery["must"] = mustClauses
	} else {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{"match_all": map[string]interface{}{}},
		}
	}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}
}

func errResponse(res *esapi.Response) error {
	return &elasticError{status: res.Status()}
}

type elasticError struct {
	status string
}

func (e *elasticError) Error() string {
	return "search request failed: " + e.status
}
