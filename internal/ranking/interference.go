// internal/ranking/interference.go
package ranking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	commonhttp "hempex-matching/internal/common/http"
	"hempex-matching/internal/common/logger"
)

// DefaultInterferenceTimeout bounds the per-candidate provider call. The
// budget is deliberately tight; ranking must not stall on a slow signal
// source.
const DefaultInterferenceTimeout = 150 * time.Millisecond

// InterferenceData is the external provider's per-counterparty signal.
type InterferenceData struct {
	Interference float64 `json:"interference"`
	Conflict     float64 `json:"conflict"`
}

// InterferenceProvider fetches cross-listing interference signals for a
// counterparty. Implementations return (nil, nil) when no data exists.
type InterferenceProvider interface {
	Get(ctx context.Context, counterpartyID string) (*InterferenceData, error)
}

// HTTPInterferenceProvider talks to the external interference service.
type HTTPInterferenceProvider struct {
	baseURL string
	timeout time.Duration
	client  *commonhttp.Client
	logger  logger.Logger
}

func NewHTTPInterferenceProvider(baseURL string, timeout time.Duration, log logger.Logger) *HTTPInterferenceProvider {
	if timeout <= 0 {
		timeout = DefaultInterferenceTimeout
	}
	return &HTTPInterferenceProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  commonhttp.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"component": "interference-provider"}),
	}
}

func (p *HTTPInterferenceProvider) Get(ctx context.Context, counterpartyID string) (*InterferenceData, error) {
	if counterpartyID == "" {
		return nil, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/interference/%s", p.baseURL, counterpartyID)

	var data InterferenceData
	if err := p.client.GetJSON(reqCtx, u, "", &data); err != nil {
		var statusErr *commonhttp.StatusError
		if errors.As(err, &statusErr) {
			if statusErr.Code == http.StatusNotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("interference provider returned %d", statusErr.Code)
		}
		return nil, err
	}
	return &data, nil
}
