package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/connector"
	"hempex-matching/internal/crawler"
	"hempex-matching/internal/flags"
	"hempex-matching/internal/matching"
	"hempex-matching/internal/models"
	"hempex-matching/internal/ranking"
)

// The end-to-end test wires the whole pipeline the way the service binary
// does — registry, crawler, feature flags, ranking, and matching — against
// an in-memory database, an in-memory Redis, and a fake supplier endpoint.

type pipeline struct {
	crawler   *crawler.Crawler
	ranker    *ranking.Ranker
	matcher   *matching.Service
	flagStore *flags.RedisStore
	flagSvc   *flags.Service
}

func listingRows() *sqlmock.Rows {
	createdAt := time.Now().UTC().Add(-24 * time.Hour)
	return sqlmock.NewRows([]string{
		"id", "listing_type", "commodity", "quantity", "unit", "price_per_unit",
		"currency", "location", "description", "quality_specs",
		"social_impact_score", "counterparty_id", "counterparty_name", "created_at",
	}).AddRow(
		"l-internal-1", "sell", "hemp fiber", 2000.0, "kg", 2.2,
		"USD", "Salem, Oregon", "certified organic hemp fiber", "organic",
		85.0, "cp-1", "Green Valley Hemp Co", createdAt,
	)
}

func setupPipeline(t *testing.T) *pipeline {
	log := logger.NewTestLogger(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	// Every crawl against the internal connector replays the same listing.
	for i := 0; i < 8; i++ {
		mock.ExpectQuery(regexp.QuoteMeta("FROM listings")).WillReturnRows(listingRows())
	}

	supplier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"listings": [
				{
					"id": "gb-1",
					"type": "sell",
					"commodity": "hemp fiber",
					"quantity": 900,
					"unit": "kg",
					"price": 1.9,
					"currency": "USD",
					"region": "Alberta",
					"description": "sun-dried fiber",
					"sellerId": "cp-gb",
					"sellerName": "Prairie Hemp Collective"
				}
			]
		}`))
	}))
	t.Cleanup(supplier.Close)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	flagStore := flags.NewRedisStore(redisClient, "flags")
	flagSvc := flags.NewService(false, map[string]bool{}, flagStore, log)

	reg := connector.NewRegistry(log)
	reg.Register(connector.NewInternalDB(db, log))
	reg.Register(connector.NewSupplier("greenbridge", supplier.URL, time.Second, log))

	cfg := &crawler.Config{
		Timeout:     time.Second,
		CacheTTL:    time.Minute,
		Concurrency: 5,
	}
	return &pipeline{
		crawler:   crawler.New(cfg, reg, crawler.NewResultCache(cfg.CacheTTL), log),
		ranker:    ranking.NewRanker(flagSvc, nil, log),
		matcher:   matching.NewService(log),
		flagStore: flagStore,
		flagSvc:   flagSvc,
	}
}

func TestSearchPipeline(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	criteria := models.SearchCriteria{
		Query:     "green valley",
		Commodity: "hemp fiber",
		Region:    "oregon",
	}
	report, err := p.crawler.Crawl(ctx, crawler.Request{
		Connectors: map[string]string{"greenbridge": "", "internal": ""},
		Criteria:   criteria,
	})
	require.NoError(t, err)

	require.Len(t, report.Meta.Successes, 2)
	assert.Empty(t, report.Meta.Failures)
	require.Len(t, report.Results, 2)

	ranked := p.ranker.Rank(ctx, report.Results, criteria, flags.Subject{UserID: "buyer-1"})
	require.Len(t, ranked, 2)
	// The internal listing matches name, commodity, and region; the supplier
	// listing only matches commodity.
	assert.Equal(t, "l-internal-1", ranked[0].ID)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestSearchPipelineCachesRepeatCalls(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	req := crawler.Request{
		Connectors: map[string]string{"internal": ""},
		Criteria:   models.SearchCriteria{Commodity: "hemp fiber"},
	}
	first, err := p.crawler.Crawl(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Meta.Successes[0].Cached)

	second, err := p.crawler.Crawl(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Meta.Successes[0].Cached)
	assert.Equal(t, first.Results, second.Results)
}

func TestMatchPipeline(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	report, err := p.crawler.Crawl(ctx, crawler.Request{
		Connectors: map[string]string{"greenbridge": "", "internal": ""},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	budget := 2.5
	quantity := 1500.0
	matches := p.matcher.Match(models.MatchCriteria{
		Budget:              &budget,
		Quantity:            &quantity,
		Location:            "oregon",
		QualityRequirements: "organic",
	}, report.Results)

	require.Len(t, matches, 2)
	assert.Equal(t, "l-internal-1", matches[0].Listing.ID)
	assert.GreaterOrEqual(t, matches[0].MatchScore, matches[1].MatchScore)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.MatchScore, 0.0)
		assert.LessOrEqual(t, m.MatchScore, 1.0)
		assert.NotEmpty(t, m.MatchQuality)
	}
}

func TestFlagOverrideChangesRankingBehavior(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()
	subject := flags.Subject{UserID: "buyer-1"}

	belief := 2.0
	candidates := []models.Candidate{
		{ID: "signal", Commodity: "hemp fiber", BeliefScore: &belief},
		{ID: "listing", Commodity: "hemp fiber"},
	}
	criteria := models.SearchCriteria{Commodity: "hemp fiber"}

	// With the intuition flag off the belief score is ignored and the tie
	// keeps input order.
	before := p.ranker.Rank(ctx, candidates, criteria, subject)
	assert.Equal(t, before[0].Score, before[1].Score)

	enabled := true
	require.NoError(t, p.flagStore.SetOverride(ctx, flags.RankingIntuition, flags.Override{Enabled: &enabled}))

	after := p.ranker.Rank(ctx, candidates, criteria, subject)
	assert.Equal(t, "signal", after[0].ID)
	assert.Greater(t, after[0].Score, after[1].Score)
}
