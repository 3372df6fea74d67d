// internal/connector/signal.go
package connector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	commonhttp "hempex-matching/internal/common/http"
	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/models"
)

// FieldSignalsName identifies the experimental field-signals source. The
// connector is only registered when its feature flag resolves enabled.
const FieldSignalsName = "field-signals"

// FieldSignals pulls early market signals (pre-listing intents, harvest
// forecasts) from the signals service. Signals carry belief scores the
// intuition ranking adjustment can pick up.
type FieldSignals struct {
	baseURL string
	client  *commonhttp.Client
	logger  logger.Logger
}

func NewFieldSignals(baseURL string, timeout time.Duration, log logger.Logger) *FieldSignals {
	return &FieldSignals{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  commonhttp.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"connector": FieldSignalsName}),
	}
}

func (c *FieldSignals) Name() string { return FieldSignalsName }

func (c *FieldSignals) FetchAndNormalize(ctx context.Context, token string, criteria models.SearchCriteria) ([]models.Candidate, error) {
	params := url.Values{}
	if criteria.Commodity != "" {
		params.Set("commodity", criteria.Commodity)
	}
	if criteria.Region != "" {
		params.Set("region", criteria.Region)
	}

	u := c.baseURL + "/signals"
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}

	var apiResponse struct {
		Signals []struct {
			ID          string   `json:"id"`
			Commodity   string   `json:"commodity"`
			Quantity    float64  `json:"expectedQuantity"`
			Unit        string   `json:"unit"`
			Price       float64  `json:"indicativePrice"`
			Region      string   `json:"region"`
			Summary     string   `json:"summary"`
			BeliefScore *float64 `json:"beliefScore"`
			ProducerID  string   `json:"producerId"`
			Producer    string   `json:"producer"`
			ObservedAt  string   `json:"observedAt"`
		} `json:"signals"`
	}
	if err := c.client.GetJSON(ctx, u, token, &apiResponse); err != nil {
		var statusErr *commonhttp.StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("signals API returned %d", statusErr.Code)
		}
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(apiResponse.Signals))
	for _, s := range apiResponse.Signals {
		cand := models.Candidate{
			ID:               s.ID,
			ListingType:      "signal",
			Commodity:        s.Commodity,
			Quantity:         s.Quantity,
			Unit:             s.Unit,
			PricePerUnit:     s.Price,
			Location:         s.Region,
			Description:      s.Summary,
			BeliefScore:      s.BeliefScore,
			CounterpartyID:   s.ProducerID,
			CounterpartyName: s.Producer,
			Source:           FieldSignalsName,
		}
		if s.ObservedAt != "" {
			if t, err := time.Parse(time.RFC3339, s.ObservedAt); err == nil {
				t = t.UTC()
				cand.CreatedAt = &t
			}
		}
		candidates = append(candidates, cand)
	}

	c.logger.Debug("signals fetched", map[string]interface{}{
		"count": len(candidates),
	})

	return candidates, nil
}
