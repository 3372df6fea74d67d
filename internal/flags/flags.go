// Package flags gates experimental ranking adjustments and experimental
// connectors. Every flag fails closed: safe mode, a missing default, a store
// error, or a malformed override all resolve to disabled.
package flags

import (
	"context"
	"hash/fnv"
	"strings"

	"hempex-matching/internal/common/logger"
)

// Known flags.
const (
	RankingUncertainty    = "ranking_uncertainty"
	RankingInterference   = "ranking_interference"
	RankingIntuition      = "ranking_intuition"
	ConnectorFieldSignals = "connector_field_signals"
)

// Subject identifies who a flag is evaluated for. Rollout percentages bucket
// on UserID; role and region allow-lists match the other two fields.
type Subject struct {
	UserID string
	Role   string
	Region string
}

// Override is a runtime flag override written by an admin action. A nil
// Enabled with targeting fields set means "enabled for the targeted
// audience".
type Override struct {
	Enabled           *bool    `json:"enabled,omitempty"`
	RolloutPercentage *int     `json:"rolloutPercentage,omitempty"`
	TargetRoles       []string `json:"targetRoles,omitempty"`
	TargetRegions     []string `json:"targetRegions,omitempty"`
}

// Store fetches runtime overrides. A nil override with a nil error means no
// override is set for the flag.
type Store interface {
	GetOverride(ctx context.Context, flag string) (*Override, error)
}

// Service resolves flags to booleans. The resolution order is: safe-mode
// kill switch, then runtime override when one exists, then the config
// default, then disabled.
type Service struct {
	safeMode bool
	defaults map[string]bool
	store    Store
	logger   logger.Logger
}

func NewService(safeMode bool, defaults map[string]bool, store Store, log logger.Logger) *Service {
	if defaults == nil {
		defaults = map[string]bool{}
	}
	return &Service{
		safeMode: safeMode,
		defaults: defaults,
		store:    store,
		logger:   log.WithFields(map[string]interface{}{"component": "flags"}),
	}
}

// Enabled resolves one flag for one subject. It never returns an error;
// anything that goes wrong during evaluation reads as disabled.
func (s *Service) Enabled(ctx context.Context, flag string, subject Subject) bool {
	if s.safeMode {
		return false
	}

	if s.store != nil {
		override, err := s.store.GetOverride(ctx, flag)
		if err != nil {
			s.logger.Warn("flag override fetch failed, failing closed", map[string]interface{}{
				"flag":  flag,
				"error": err.Error(),
			})
			return false
		}
		if override != nil {
			return s.evalOverride(flag, override, subject)
		}
	}

	return s.defaults[flag]
}

func (s *Service) evalOverride(flag string, o *Override, subject Subject) bool {
	if o.Enabled != nil && !*o.Enabled {
		return false
	}

	if len(o.TargetRoles) > 0 && !containsFold(o.TargetRoles, subject.Role) {
		return false
	}
	if len(o.TargetRegions) > 0 && !containsFold(o.TargetRegions, subject.Region) {
		return false
	}

	if o.RolloutPercentage != nil {
		pct := *o.RolloutPercentage
		if pct <= 0 {
			return false
		}
		if pct >= 100 {
			return true
		}
		return rolloutBucket(flag, subject.UserID) < pct
	}

	if o.Enabled != nil {
		return *o.Enabled
	}

	// Targeting-only override: reaching here means every list matched.
	return len(o.TargetRoles) > 0 || len(o.TargetRegions) > 0
}

// rolloutBucket maps a (flag, user) pair onto a stable bucket in [0, 100) so
// a user stays inside or outside a rollout across requests.
func rolloutBucket(flag, userID string) int {
	h := fnv.New32a()
	h.Write([]byte(flag))
	h.Write([]byte(":"))
	h.Write([]byte(userID))
	return int(h.Sum32() % 100)
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
