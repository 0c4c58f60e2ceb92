package routing

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/bugrouter/internal/errors"
	"github.com/rohankatakam/bugrouter/internal/models"
	"github.com/rohankatakam/bugrouter/internal/ownership"
)

// Router is the request-scoped composition: one ownership analysis pass
// followed by one scoring pass. It holds no state across requests.
type Router struct {
	analyzer *ownership.Analyzer
	engine   *Engine
	logger   *logrus.Logger
}

// NewRouter wires an analyzer and an engine into a bug router.
func NewRouter(analyzer *ownership.Analyzer, engine *Engine, logger *logrus.Logger) *Router {
	if logger == nil {
		logger = logrus.New()
	}
	return &Router{analyzer: analyzer, engine: engine, logger: logger}
}

// ValidateReport rejects reports missing required fields. This is the
// only fatal failure in the routing path and runs before any fetch.
func ValidateReport(report models.BugReport) error {
	if strings.TrimSpace(report.Repository) == "" {
		return errors.ValidationError("bug report missing repository")
	}
	if strings.TrimSpace(report.Title) == "" {
		return errors.ValidationError("bug report missing title")
	}
	return nil
}

// Route runs the full pipeline for one bug report: validate, analyze
// repository ownership, then score and select an assignee. All
// fetch-layer failures are absorbed during analysis; the only error
// returned is an invalid report.
func (r *Router) Route(ctx context.Context, report models.BugReport) (*models.RoutingDecision, error) {
	if err := ValidateReport(report); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"repository": report.Repository,
		"priority":   report.Priority,
	}).Info("Routing bug report")

	model, err := r.analyzer.AnalyzeRepository(ctx, report.Repository)
	if err != nil {
		// Analysis degrades rather than fails, but guard anyway: an
		// empty model still yields a well-formed escalation decision.
		r.logger.WithError(err).Warn("Ownership analysis returned an error, routing on empty model")
		model = &models.OwnershipModel{
			FileOwnership:     map[string]*models.FileOwnership{},
			DeveloperActivity: map[string]int{},
			RepositoryExperts: map[string][]models.DomainExpert{},
		}
	}

	return r.engine.Decide(ctx, report, model), nil
}
