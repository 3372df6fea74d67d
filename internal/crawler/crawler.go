// Package crawler fans a search request out to the registered data-source
// connectors, bounded by a per-connector timeout and a global concurrency
// limit, and merges the survivors into a single candidate list with a
// per-source status report.
package crawler

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	apperrors "hempex-matching/internal/common/errors"
	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/common/metrics"
	"hempex-matching/internal/connector"
	"hempex-matching/internal/models"
)

type Crawler struct {
	config   *Config
	registry *connector.Registry
	cache    *ResultCache
	logger   logger.Logger
}

func New(config *Config, registry *connector.Registry, cache *ResultCache, log logger.Logger) *Crawler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Crawler{
		config:   config,
		registry: registry,
		cache:    cache,
		logger:   log.WithFields(map[string]interface{}{"component": "crawler"}),
	}
}

// task pairs a resolved connector with its auth token and cache key.
type task struct {
	name     string
	token    string
	cacheKey string
	conn     connector.Connector
}

type taskResult struct {
	candidates []models.Candidate
	cached     bool
	errMsg     string
	failed     bool
}

// Crawl resolves the requested connectors, fetches from each of them
// concurrently, and returns the merged report. Individual connector failures
// are recorded in the report's meta, never propagated; the only terminal
// error is a request that resolves to zero connectors.
func (c *Crawler) Crawl(ctx context.Context, req Request) (*Report, error) {
	requestID := uuid.NewString()
	log := c.logger.WithFields(map[string]interface{}{"requestId": requestID})

	tasks, err := c.resolveTasks(req, log)
	if err != nil {
		return nil, err
	}

	timeout := c.config.Timeout
	if req.Options.TimeoutMS > 0 {
		timeout = time.Duration(req.Options.TimeoutMS) * time.Millisecond
	}
	concurrency := c.config.Concurrency
	if req.Options.Concurrency > 0 {
		concurrency = req.Options.Concurrency
	}

	metrics.CrawlsActive.Inc()
	defer metrics.CrawlsActive.Dec()

	start := time.Now()
	results := c.runTasks(ctx, tasks, req, timeout, concurrency)

	report := &Report{
		RequestID: requestID,
		Results:   []models.Candidate{},
	}
	// Successes, failures, and candidates all follow task submission order,
	// not completion order.
	for i, t := range tasks {
		res := results[i]
		if res.failed {
			report.Meta.Failures = append(report.Meta.Failures, Failure{
				Name:  t.name,
				Error: res.errMsg,
			})
			continue
		}
		report.Meta.Successes = append(report.Meta.Successes, Success{
			Name:   t.name,
			Count:  len(res.candidates),
			Cached: res.cached,
		})
		report.Results = append(report.Results, res.candidates...)
	}

	log.Info("crawl completed", map[string]interface{}{
		"connectors": len(tasks),
		"successes":  len(report.Meta.Successes),
		"failures":   len(report.Meta.Failures),
		"results":    len(report.Results),
		"durationMs": time.Since(start).Milliseconds(),
	})

	return report, nil
}

// resolveTasks maps requested connector names onto registered connectors.
// Unknown names are skipped with a warning. An empty request falls back to
// the internal connector when it is registered; resolving zero tasks is the
// caller-input error, not a partial failure.
func (c *Crawler) resolveTasks(req Request, log logger.Logger) ([]task, error) {
	requested := req.Connectors
	if len(requested) == 0 {
		if _, ok := c.registry.Lookup(models.SourceInternal); !ok {
			return nil, apperrors.NewNoConnectorsError()
		}
		log.Debug("no connectors requested, defaulting to internal", nil)
		requested = map[string]string{models.SourceInternal: ""}
	}

	// Map iteration order is random; sort so task submission order, and with
	// it the output order, is deterministic for identical requests.
	names := make([]string, 0, len(requested))
	for name := range requested {
		names = append(names, name)
	}
	sort.Strings(names)

	tasks := make([]task, 0, len(names))
	for _, name := range names {
		conn, ok := c.registry.Lookup(name)
		if !ok {
			log.Warn("requested connector not registered, skipping", map[string]interface{}{
				"connector": name,
			})
			continue
		}
		tasks = append(tasks, task{
			name:     name,
			token:    requested[name],
			cacheKey: CacheKey(name, req.Criteria),
			conn:     conn,
		})
	}

	if len(tasks) == 0 {
		return nil, apperrors.NewNoConnectorsError()
	}
	return tasks, nil
}

func (c *Crawler) runTasks(ctx context.Context, tasks []task, req Request, timeout time.Duration, concurrency int) []taskResult {
	sem := semaphore.NewWeighted(int64(concurrency))
	results := make([]taskResult, len(tasks))
	done := make(chan struct{})

	for i := range tasks {
		go func(i int, t task) {
			defer func() { done <- struct{}{} }()

			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = taskResult{failed: true, errMsg: err.Error()}
				return
			}
			defer sem.Release(1)

			results[i] = c.runTask(ctx, t, req, timeout)
		}(i, tasks[i])
	}

	for range tasks {
		<-done
	}
	return results
}

func (c *Crawler) runTask(ctx context.Context, t task, req Request, timeout time.Duration) taskResult {
	if !req.Options.NoCache {
		if cached, ok := c.cache.Get(t.cacheKey); ok {
			metrics.CacheHits.WithLabelValues(t.name).Inc()
			return taskResult{candidates: cached, cached: true}
		}
		metrics.CacheMisses.WithLabelValues(t.name).Inc()
	}

	metrics.ConnectorFetches.WithLabelValues(t.name).Inc()
	start := time.Now()

	candidates, err := c.fetchWithTimeout(ctx, t, req.Criteria, timeout)
	metrics.ConnectorFetchDuration.WithLabelValues(t.name).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := "error"
		var stdErr *apperrors.StandardError
		if err == context.DeadlineExceeded {
			reason = "timeout"
			stdErr = apperrors.NewConnectorTimeoutError(t.name, timeout)
		} else {
			stdErr = apperrors.NewConnectorFailedError(t.name, err)
		}
		metrics.ConnectorFailures.WithLabelValues(t.name, reason).Inc()
		c.logger.Warn("connector fetch failed", map[string]interface{}{
			"connector": t.name,
			"errorCode": string(stdErr.Code),
			"error":     stdErr.Message,
		})
		return taskResult{failed: true, errMsg: stdErr.Message}
	}

	// Defensive normalization: a connector returning nil still counts as an
	// empty success.
	if candidates == nil {
		candidates = []models.Candidate{}
	}

	if !req.Options.NoCache {
		c.cache.Set(t.cacheKey, candidates)
	}

	return taskResult{candidates: candidates}
}

// fetchWithTimeout races the connector fetch against the per-call deadline.
// The deadline context is propagated into the fetch, so well-behaved
// connectors cancel their I/O when it fires; a connector that ignores its
// context keeps running in the background and its eventual result is
// discarded.
func (c *Crawler) fetchWithTimeout(ctx context.Context, t task, criteria models.SearchCriteria, timeout time.Duration) ([]models.Candidate, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type fetchResult struct {
		candidates []models.Candidate
		err        error
	}
	ch := make(chan fetchResult, 1)

	go func() {
		candidates, err := t.conn.FetchAndNormalize(fetchCtx, t.token, criteria)
		ch <- fetchResult{candidates: candidates, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil && fetchCtx.Err() == context.DeadlineExceeded {
			return nil, context.DeadlineExceeded
		}
		return res.candidates, res.err
	case <-fetchCtx.Done():
		if fetchCtx.Err() == context.DeadlineExceeded {
			return nil, context.DeadlineExceeded
		}
		return nil, fetchCtx.Err()
	}
}
