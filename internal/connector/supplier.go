// internal/connector/supplier.go
package connector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	commonhttp "hempex-matching/internal/common/http"
	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/models"
)

var ErrSupplierTimeout = errors.New("SUPPLIER_TIMEOUT")

// Supplier is an external supplier marketplace adapter. Each configured
// supplier endpoint gets its own instance registered under its own name.
type Supplier struct {
	name    string
	baseURL string
	client  *commonhttp.Client
	logger  logger.Logger
}

func NewSupplier(name, baseURL string, timeout time.Duration, log logger.Logger) *Supplier {
	return &Supplier{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  commonhttp.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"connector": name}),
	}
}

func (c *Supplier) Name() string { return c.name }

func (c *Supplier) FetchAndNormalize(ctx context.Context, token string, criteria models.SearchCriteria) ([]models.Candidate, error) {
	var apiResponse struct {
		Listings []supplierListing `json:"listings"`
	}
	if err := c.client.GetJSON(ctx, c.buildURL(criteria), token, &apiResponse); err != nil {
		var statusErr *commonhttp.StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("supplier API returned %d", statusErr.Code)
		}
		if ctx.Err() == context.DeadlineExceeded ||
			strings.Contains(err.Error(), "timeout") ||
			strings.Contains(err.Error(), "deadline") ||
			strings.Contains(err.Error(), "Client.Timeout") {
			return nil, ErrSupplierTimeout
		}
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(apiResponse.Listings))
	for _, l := range apiResponse.Listings {
		candidates = append(candidates, l.toCandidate(c.name))
	}

	c.logger.Debug("supplier fetch completed", map[string]interface{}{
		"count": len(candidates),
	})

	return candidates, nil
}

func (c *Supplier) buildURL(criteria models.SearchCriteria) string {
	params := url.Values{}
	if criteria.Query != "" {
		params.Set("q", criteria.Query)
	}
	if criteria.Commodity != "" {
		params.Set("commodity", criteria.Commodity)
	}
	if criteria.Region != "" {
		params.Set("region", criteria.Region)
	}
	if criteria.PriceMax != nil {
		params.Set("maxPrice", strconv.FormatFloat(*criteria.PriceMax, 'f', -1, 64))
	}
	if criteria.Quantity != nil {
		params.Set("quantity", strconv.FormatFloat(*criteria.Quantity, 'f', -1, 64))
	}

	u := c.baseURL + "/api/v1/listings"
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// supplierListing mirrors the supplier API's listing payload.
type supplierListing struct {
	ID                string   `json:"id"`
	Type              string   `json:"type"`
	Commodity         string   `json:"commodity"`
	Quantity          float64  `json:"quantity"`
	Unit              string   `json:"unit"`
	Price             float64  `json:"price"`
	Currency          string   `json:"currency"`
	Region            string   `json:"region"`
	Description       string   `json:"description"`
	QualitySpecs      string   `json:"qualitySpecs"`
	SocialImpactScore *float64 `json:"socialImpactScore"`
	SellerID          string   `json:"sellerId"`
	SellerName        string   `json:"sellerName"`
	ListedAt          string   `json:"listedAt"`
}

func (l supplierListing) toCandidate(source string) models.Candidate {
	cand := models.Candidate{
		ID:                l.ID,
		ListingType:       l.Type,
		Commodity:         l.Commodity,
		Quantity:          l.Quantity,
		Unit:              l.Unit,
		PricePerUnit:      l.Price,
		Currency:          l.Currency,
		Location:          l.Region,
		Description:       l.Description,
		QualitySpecs:      l.QualitySpecs,
		SocialImpactScore: l.SocialImpactScore,
		CounterpartyID:    l.SellerID,
		CounterpartyName:  l.SellerName,
		Source:            source,
	}
	if l.ListedAt != "" {
		if t, err := time.Parse(time.RFC3339, l.ListedAt); err == nil {
			t = t.UTC()
			cand.CreatedAt = &t
		}
	}
	return cand
}
