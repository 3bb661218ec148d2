// Package intelligence links an alert to related alerts in a trailing window
// and scores how far its impact cascades.
package intelligence

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/observability"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

const (
	// DefaultWindowDays is the trailing window used when none is given.
	DefaultWindowDays = 30
	// DefaultRelatedLimit bounds how many related alerts are considered.
	DefaultRelatedLimit = 50
)

// Analyzer builds connected intelligence for alerts.
type Analyzer struct {
	alerts       storage.AlertStore
	metrics      *observability.Metrics
	logger       zerolog.Logger
	now          func() time.Time
	relatedLimit int
}

// Options for creating Analyzer.
type Options struct {
	Alerts       storage.AlertStore
	Metrics      *observability.Metrics
	Logger       *zerolog.Logger
	Now          func() time.Time
	RelatedLimit int
}

// New creates a new Analyzer.
func New(opts Options) *Analyzer {
	a := &Analyzer{
		alerts:       opts.Alerts,
		metrics:      opts.Metrics,
		logger:       log.Logger,
		now:          opts.Now,
		relatedLimit: opts.RelatedLimit,
	}
	if opts.Logger != nil {
		a.logger = *opts.Logger
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.relatedLimit <= 0 {
		a.relatedLimit = DefaultRelatedLimit
	}
	return a
}

// Analyze correlates alertID with alerts created in the last windowDays.
// Returns nil when the alert does not exist or cannot be read. A failure to
// read related alerts yields an analysis with no factors.
func (a *Analyzer) Analyze(ctx context.Context, alertID string, windowDays int) (*domain.ConnectedIntelligence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	logger := a.logger.With().Str("alert_id", alertID).Int("window_days", windowDays).Logger()

	primary, err := a.alerts.GetByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.metrics.RecordAnalysis("not_found", time.Since(start), 0)
		} else {
			logger.Error().Err(err).Msg("read primary alert")
			a.metrics.RecordAnalysis("error", time.Since(start), 0)
		}
		return nil, nil
	}

	now := a.now()
	related, err := a.alerts.ListCreatedSince(ctx, now.AddDate(0, 0, -windowDays), primary.ID, a.relatedLimit)
	if err != nil {
		logger.Warn().Err(err).Msg("read related alerts; continuing without factors")
		related = nil
	}

	groups := make([][]domain.ConnectionFactor, 0, len(heuristics))
	for _, h := range heuristics {
		found := h.run(primary, related, now)
		logger.Debug().Str("heuristic", h.name).Int("factors", len(found)).Msg("heuristic done")
		groups = append(groups, found)
	}
	all := mergeFactors(groups...)

	exposed := all
	if len(exposed) > maxExposedFactors {
		exposed = exposed[:maxExposedFactors]
	}

	cascade := CascadingImpact(all)
	types := distinctTypes(&primary.Anomaly, exposed)
	supplyChain := types >= supplyChainTypes

	ci := &domain.ConnectedIntelligence{
		PrimaryAlert:     *primary,
		ConnectedFactors: exposed,
		ImpactCascade: domain.ImpactCascade{
			CascadingImpact:     cascade,
			TotalFactors:        len(all),
			AffectedSupplyChain: supplyChain,
		},
		CorrelationMatrix:  CorrelationMatrix(primary, exposed),
		RecommendedActions: Recommend(&primary.Anomaly, exposed, cascade, supplyChain),
		RiskAssessment:     AssessRisk(&primary.Anomaly, all, cascade, types),
		TimeWindowDays:     windowDays,
		AnalyzedAt:         now,
	}
	if ci.ConnectedFactors == nil {
		ci.ConnectedFactors = []domain.ConnectionFactor{}
	}

	a.metrics.RecordAnalysis("ok", time.Since(start), cascade)
	logger.Info().
		Int("factors", len(all)).
		Float64("cascading_impact", cascade).
		Float64("overall_risk", ci.RiskAssessment.OverallRisk).
		Msg("connected intelligence computed")
	return ci, nil
}
