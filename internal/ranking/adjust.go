// internal/ranking/adjust.go
package ranking

import (
	"context"
	"math"

	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/models"
)

// Adjuster computes one flag-gated additive score adjustment. The closed set
// of implementations below is selected once per request from the resolved
// flag state; scoring never consults flags per candidate.
type Adjuster interface {
	Name() string
	Adjust(ctx context.Context, cand models.Candidate, criteria models.SearchCriteria) float64
}

// uncertaintyAdjuster scores how incomplete a candidate's record is: half a
// point per missing key field plus a capped age component.
type uncertaintyAdjuster struct{}

func (uncertaintyAdjuster) Name() string { return "uncertainty" }

func (uncertaintyAdjuster) Adjust(_ context.Context, cand models.Candidate, _ models.SearchCriteria) float64 {
	missing := 0
	if cand.PricePerUnit == 0 {
		missing++
	}
	if cand.Quantity == 0 {
		missing++
	}
	if cand.QualitySpecs == "" {
		missing++
	}

	uncertainty := 0.5*float64(missing) + math.Min(cand.AgeDays(nowFunc())*0.1, 2)
	return uncertainty * 0.1
}

// interferenceAdjuster folds in the external cross-listing signal. Provider
// failures and absent data both contribute zero; this adjustment is
// best-effort by contract.
type interferenceAdjuster struct {
	provider InterferenceProvider
	logger   logger.Logger
}

func (interferenceAdjuster) Name() string { return "interference" }

func (a interferenceAdjuster) Adjust(ctx context.Context, cand models.Candidate, _ models.SearchCriteria) float64 {
	if a.provider == nil || cand.CounterpartyID == "" {
		return 0
	}

	data, err := a.provider.Get(ctx, cand.CounterpartyID)
	if err != nil {
		a.logger.Debug("interference lookup failed, contributing zero", map[string]interface{}{
			"counterpartyId": cand.CounterpartyID,
			"error":          err.Error(),
		})
		return 0
	}
	if data == nil {
		return 0
	}

	return data.Interference*0.05 - data.Conflict*0.02
}

// intuitionAdjuster rewards candidates carrying a belief score.
type intuitionAdjuster struct{}

func (intuitionAdjuster) Name() string { return "intuition" }

func (intuitionAdjuster) Adjust(_ context.Context, cand models.Candidate, _ models.SearchCriteria) float64 {
	if cand.BeliefScore == nil {
		return 0
	}
	return *cand.BeliefScore * 0.03
}
