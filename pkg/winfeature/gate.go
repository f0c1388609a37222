// Package winfeature implements the Windows optional-feature gate for WSL2.
// It checks the two features WSL2 depends on, enables any that are missing,
// and reports whether a restart is required as an explicit decision value.
package winfeature

import (
	"context"
	"log/slog"

	"wslrocky/pkg/errors"
	"wslrocky/pkg/restart"
)

// Gate checks and enables the required optional features
type Gate struct {
	mgr      Manager
	features []string
}

// NewGate creates a gate over the given feature manager
func NewGate(mgr Manager) *Gate {
	return &Gate{mgr: mgr, features: RequiredFeatures}
}

// Ensure checks every required feature and enables the ones that are
// disabled. A failed status query counts as disabled and triggers an
// enable attempt. The returned decision requires a restart when any
// feature was not already enabled.
func (g *Gate) Ensure(ctx context.Context) (restart.Decision, error) {
	decision := restart.Decision{}

	for _, name := range g.features {
		enabled, err := g.mgr.Enabled(ctx, name)
		if err != nil {
			// Query failures are treated as "not enabled", never surfaced.
			slog.Warn("feature_query_failed", "feature", name, "error", err)
			enabled = false
		}

		if enabled {
			slog.Info("feature_already_enabled", "feature", name)
			continue
		}

		slog.Info("feature_enable_start", "feature", name)
		if err := g.mgr.Enable(ctx, name); err != nil {
			return decision, errors.Wrapf(err, "failed to enable feature %s", name)
		}
		slog.Info("feature_enabled", "feature", name)

		decision.Required = true
	}

	if decision.Required {
		slog.Info("restart_required", "reason", "optional features enabled this run")
	}

	return decision, nil
}
