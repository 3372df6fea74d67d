package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/models"
)

const supplierPayload = `{
	"listings": [
		{
			"id": "gb-101",
			"type": "sell",
			"commodity": "hemp fiber",
			"quantity": 800,
			"unit": "kg",
			"price": 2.1,
			"currency": "USD",
			"region": "Alberta",
			"description": "sun-dried hemp fiber",
			"qualitySpecs": "grade A",
			"socialImpactScore": 72,
			"sellerId": "cp-gb-1",
			"sellerName": "Prairie Hemp Collective",
			"listedAt": "2026-02-01T10:00:00Z"
		},
		{
			"id": "gb-102",
			"commodity": "cbd oil",
			"quantity": 40,
			"price": 280,
			"region": "Alberta"
		}
	]
}`

func TestSupplierFetchAndNormalize(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(supplierPayload))
	}))
	defer srv.Close()

	conn := NewSupplier("greenbridge", srv.URL, time.Second, logger.NewTestLogger(t))
	got, err := conn.FetchAndNormalize(context.Background(), "token-abc", models.SearchCriteria{})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/listings", gotPath)
	assert.Equal(t, "Bearer token-abc", gotAuth)

	require.Len(t, got, 2)
	first := got[0]
	assert.Equal(t, "gb-101", first.ID)
	assert.Equal(t, "hemp fiber", first.Commodity)
	assert.Equal(t, 2.1, first.PricePerUnit)
	assert.Equal(t, "Alberta", first.Location)
	assert.Equal(t, "Prairie Hemp Collective", first.CounterpartyName)
	assert.Equal(t, "greenbridge", first.Source)
	require.NotNil(t, first.SocialImpactScore)
	assert.Equal(t, 72.0, *first.SocialImpactScore)
	require.NotNil(t, first.CreatedAt)
	assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), *first.CreatedAt)

	second := got[1]
	assert.Nil(t, second.SocialImpactScore)
	assert.Nil(t, second.CreatedAt)
	assert.Equal(t, "greenbridge", second.Source)
}

func TestSupplierBuildsQueryParams(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"listings": []}`))
	}))
	defer srv.Close()

	priceMax := 3.5
	quantity := 500.0
	conn := NewSupplier("greenbridge", srv.URL, time.Second, logger.NewTestLogger(t))
	_, err := conn.FetchAndNormalize(context.Background(), "", models.SearchCriteria{
		Query:     "organic",
		Commodity: "hemp fiber",
		Region:    "alberta",
		PriceMax:  &priceMax,
		Quantity:  &quantity,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"organic"}, gotQuery["q"])
	assert.Equal(t, []string{"hemp fiber"}, gotQuery["commodity"])
	assert.Equal(t, []string{"alberta"}, gotQuery["region"])
	assert.Equal(t, []string{"3.5"}, gotQuery["maxPrice"])
	assert.Equal(t, []string{"500"}, gotQuery["quantity"])
}

func TestSupplierOmitsAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"listings": []}`))
	}))
	defer srv.Close()

	conn := NewSupplier("greenbridge", srv.URL, time.Second, logger.NewTestLogger(t))
	_, err := conn.FetchAndNormalize(context.Background(), "", models.SearchCriteria{})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestSupplierTimeoutMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"listings": []}`))
	}))
	defer srv.Close()

	conn := NewSupplier("greenbridge", srv.URL, 30*time.Millisecond, logger.NewTestLogger(t))
	_, err := conn.FetchAndNormalize(context.Background(), "", models.SearchCriteria{})
	assert.ErrorIs(t, err, ErrSupplierTimeout)
}

func TestSupplierNon200IsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	conn := NewSupplier("greenbridge", srv.URL, time.Second, logger.NewTestLogger(t))
	_, err := conn.FetchAndNormalize(context.Background(), "", models.SearchCriteria{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSupplierName(t *testing.T) {
	conn := NewSupplier("hempex-exchange", "http://unused.invalid", time.Second, logger.NewTestLogger(t))
	assert.Equal(t, "hempex-exchange", conn.Name())
}
