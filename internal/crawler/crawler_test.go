package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hempex-matching/internal/common/errors"
	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/connector"
	"hempex-matching/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

// stubConnector lets each test script a connector's behavior.
type stubConnector struct {
	name  string
	fetch func(ctx context.Context, token string, criteria models.SearchCriteria) ([]models.Candidate, error)
	calls int32
}

func (s *stubConnector) Name() string { return s.name }

func (s *stubConnector) FetchAndNormalize(ctx context.Context, token string, criteria models.SearchCriteria) ([]models.Candidate, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.fetch(ctx, token, criteria)
}

func (s *stubConnector) fetchCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

func fixedCandidates(source string, n int) []models.Candidate {
	out := make([]models.Candidate, n)
	for i := range out {
		out[i] = models.Candidate{
			ID:     fmt.Sprintf("%s-%d", source, i),
			Source: source,
		}
	}
	return out
}

func returning(name string, candidates []models.Candidate) *stubConnector {
	return &stubConnector{
		name: name,
		fetch: func(context.Context, string, models.SearchCriteria) ([]models.Candidate, error) {
			return candidates, nil
		},
	}
}

func newTestCrawler(t *testing.T, cfg *Config, connectors ...connector.Connector) *Crawler {
	log := logger.NewTestLogger(t)
	reg := connector.NewRegistry(log)
	for _, c := range connectors {
		reg.Register(c)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return New(cfg, reg, NewResultCache(cfg.CacheTTL), log)
}

// ==========================
// Tests
// ==========================

func TestCrawlMergesResultsInSubmissionOrder(t *testing.T) {
	a := returning("alpha", fixedCandidates("alpha", 2))
	b := returning("beta", fixedCandidates("beta", 1))
	c := newTestCrawler(t, nil, a, b)

	report, err := c.Crawl(context.Background(), Request{
		Connectors: map[string]string{"beta": "", "alpha": ""},
	})
	require.NoError(t, err)
	require.NotEmpty(t, report.RequestID)

	// Submission order is the sorted name order, regardless of which
	// connector finished first.
	require.Len(t, report.Meta.Successes, 2)
	assert.Equal(t, Success{Name: "alpha", Count: 2}, report.Meta.Successes[0])
	assert.Equal(t, Success{Name: "beta", Count: 1}, report.Meta.Successes[1])
	assert.Empty(t, report.Meta.Failures)

	require.Len(t, report.Results, 3)
	assert.Equal(t, "alpha-0", report.Results[0].ID)
	assert.Equal(t, "alpha-1", report.Results[1].ID)
	assert.Equal(t, "beta-0", report.Results[2].ID)
}

func TestCrawlIsolatesConnectorFailure(t *testing.T) {
	ok := returning("alpha", fixedCandidates("alpha", 1))
	broken := &stubConnector{
		name: "beta",
		fetch: func(context.Context, string, models.SearchCriteria) ([]models.Candidate, error) {
			return nil, errors.New("connection refused")
		},
	}
	c := newTestCrawler(t, nil, ok, broken)

	report, err := c.Crawl(context.Background(), Request{
		Connectors: map[string]string{"alpha": "", "beta": ""},
	})
	require.NoError(t, err)

	require.Len(t, report.Meta.Successes, 1)
	assert.Equal(t, "alpha", report.Meta.Successes[0].Name)
	require.Len(t, report.Meta.Failures, 1)
	assert.Equal(t, "beta", report.Meta.Failures[0].Name)
	assert.Equal(t, "connection refused", report.Meta.Failures[0].Error)
	assert.Len(t, report.Results, 1)
}

func TestCrawlAllConnectorsFailingStillSucceeds(t *testing.T) {
	fail := func(name string) *stubConnector {
		return &stubConnector{
			name: name,
			fetch: func(context.Context, string, models.SearchCriteria) ([]models.Candidate, error) {
				return nil, errors.New(name + " down")
			},
		}
	}
	c := newTestCrawler(t, nil, fail("alpha"), fail("beta"))

	report, err := c.Crawl(context.Background(), Request{
		Connectors: map[string]string{"alpha": "", "beta": ""},
	})
	require.NoError(t, err)
	assert.Empty(t, report.Meta.Successes)
	assert.Len(t, report.Meta.Failures, 2)
	assert.NotNil(t, report.Results)
	assert.Empty(t, report.Results)
}

func TestCrawlTimeoutRecordedAsFailure(t *testing.T) {
	slow := &stubConnector{
		name: "slow",
		fetch: func(ctx context.Context, _ string, _ models.SearchCriteria) ([]models.Candidate, error) {
			select {
			case <-time.After(500 * time.Millisecond):
				return fixedCandidates("slow", 1), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	c := newTestCrawler(t, nil, slow)

	report, err := c.Crawl(context.Background(), Request{
		Connectors: map[string]string{"slow": ""},
		Options:    Options{TimeoutMS: 20},
	})
	require.NoError(t, err)

	require.Len(t, report.Meta.Failures, 1)
	assert.Equal(t, "slow", report.Meta.Failures[0].Name)
	assert.Equal(t, `connector "slow" timed out after 20ms`, report.Meta.Failures[0].Error)
	assert.Empty(t, report.Results)
}

func TestCrawlTimeoutBoundsWallClock(t *testing.T) {
	// A connector that ignores its context entirely must still not hold the
	// crawl hostage past the deadline.
	stuck := &stubConnector{
		name: "stuck",
		fetch: func(context.Context, string, models.SearchCriteria) ([]models.Candidate, error) {
			time.Sleep(2 * time.Second)
			return nil, nil
		},
	}
	c := newTestCrawler(t, nil, stuck)

	start := time.Now()
	report, err := c.Crawl(context.Background(), Request{
		Connectors: map[string]string{"stuck": ""},
		Options:    Options{TimeoutMS: 50},
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, report.Meta.Failures, 1)
	assert.Less(t, elapsed, time.Second)
}

func TestCrawlNoConnectorsSpecified(t *testing.T) {
	c := newTestCrawler(t, nil)

	_, err := c.Crawl(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNoConnectors))
	assert.Contains(t, err.Error(), "no connectors specified")
}

func TestCrawlUnknownConnectorsSkipped(t *testing.T) {
	known := returning("alpha", fixedCandidates("alpha", 1))
	c := newTestCrawler(t, nil, known)

	report, err := c.Crawl(context.Background(), Request{
		Connectors: map[string]string{"alpha": "", "ghost": ""},
	})
	require.NoError(t, err)

	// The unknown name neither fails the request nor shows up in meta.
	require.Len(t, report.Meta.Successes, 1)
	assert.Equal(t, "alpha", report.Meta.Successes[0].Name)
	assert.Empty(t, report.Meta.Failures)
}

func TestCrawlOnlyUnknownConnectorsIsTerminal(t *testing.T) {
	c := newTestCrawler(t, nil, returning("alpha", nil))

	_, err := c.Crawl(context.Background(), Request{
		Connectors: map[string]string{"ghost": ""},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNoConnectors))
}

func TestCrawlDefaultsToInternalConnector(t *testing.T) {
	internal := returning(models.SourceInternal, fixedCandidates("internal", 2))
	c := newTestCrawler(t, nil, internal)

	report, err := c.Crawl(context.Background(), Request{})
	require.NoError(t, err)

	require.Len(t, report.Meta.Successes, 1)
	assert.Equal(t, models.SourceInternal, report.Meta.Successes[0].Name)
	assert.Len(t, report.Results, 2)
}

func TestCrawlSecondIdenticalCallServedFromCache(t *testing.T) {
	conn := returning("alpha", fixedCandidates("alpha", 2))
	c := newTestCrawler(t, nil, conn)
	req := Request{
		Connectors: map[string]string{"alpha": ""},
		Criteria:   models.SearchCriteria{Commodity: "hemp fiber"},
	}

	first, err := c.Crawl(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Meta.Successes[0].Cached)

	second, err := c.Crawl(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Meta.Successes[0].Cached)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 1, conn.fetchCount())
}

func TestCrawlDifferentCriteriaMissesCache(t *testing.T) {
	conn := returning("alpha", nil)
	c := newTestCrawler(t, nil, conn)

	_, err := c.Crawl(context.Background(), Request{
		Connectors: map[string]string{"alpha": ""},
		Criteria:   models.SearchCriteria{Commodity: "hemp fiber"},
	})
	require.NoError(t, err)
	_, err = c.Crawl(context.Background(), Request{
		Connectors: map[string]string{"alpha": ""},
		Criteria:   models.SearchCriteria{Commodity: "cbd oil"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, conn.fetchCount())
}

func TestCrawlFailedFetchNotCached(t *testing.T) {
	attempts := int32(0)
	flaky := &stubConnector{
		name: "flaky",
		fetch: func(context.Context, string, models.SearchCriteria) ([]models.Candidate, error) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				return nil, errors.New("transient")
			}
			return fixedCandidates("flaky", 1), nil
		},
	}
	c := newTestCrawler(t, nil, flaky)
	req := Request{Connectors: map[string]string{"flaky": ""}}

	first, err := c.Crawl(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, first.Meta.Failures, 1)

	second, err := c.Crawl(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, second.Meta.Successes, 1)
	assert.False(t, second.Meta.Successes[0].Cached)
	assert.Equal(t, 2, flaky.fetchCount())
}

func TestCrawlNoCacheOptionBypassesCache(t *testing.T) {
	conn := returning("alpha", fixedCandidates("alpha", 1))
	c := newTestCrawler(t, nil, conn)
	req := Request{
		Connectors: map[string]string{"alpha": ""},
		Options:    Options{NoCache: true},
	}

	_, err := c.Crawl(context.Background(), req)
	require.NoError(t, err)
	_, err = c.Crawl(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, conn.fetchCount())
}

func TestCrawlRespectsConcurrencyLimit(t *testing.T) {
	var active, peak int32
	connectors := make([]connector.Connector, 0, 6)
	for i := 0; i < 6; i++ {
		connectors = append(connectors, &stubConnector{
			name: fmt.Sprintf("conn-%d", i),
			fetch: func(context.Context, string, models.SearchCriteria) ([]models.Candidate, error) {
				current := atomic.AddInt32(&active, 1)
				for {
					observed := atomic.LoadInt32(&peak)
					if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil, nil
			},
		})
	}
	c := newTestCrawler(t, nil, connectors...)

	requested := map[string]string{}
	for i := 0; i < 6; i++ {
		requested[fmt.Sprintf("conn-%d", i)] = ""
	}
	report, err := c.Crawl(context.Background(), Request{
		Connectors: requested,
		Options:    Options{Concurrency: 2},
	})
	require.NoError(t, err)
	assert.Len(t, report.Meta.Successes, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestCrawlNilResultCountsAsEmptySuccess(t *testing.T) {
	c := newTestCrawler(t, nil, returning("alpha", nil))

	report, err := c.Crawl(context.Background(), Request{
		Connectors: map[string]string{"alpha": ""},
	})
	require.NoError(t, err)

	require.Len(t, report.Meta.Successes, 1)
	assert.Equal(t, 0, report.Meta.Successes[0].Count)
	assert.NotNil(t, report.Results)
	assert.Empty(t, report.Results)
}

func TestCrawlPassesTokenThrough(t *testing.T) {
	var seen string
	conn := &stubConnector{
		name: "alpha",
		fetch: func(_ context.Context, token string, _ models.SearchCriteria) ([]models.Candidate, error) {
			seen = token
			return nil, nil
		},
	}
	c := newTestCrawler(t, nil, conn)

	_, err := c.Crawl(context.Background(), Request{
		Connectors: map[string]string{"alpha": "secret-token"},
	})
	require.NoError(t, err)
	assert.Equal(t, "secret-token", seen)
}
