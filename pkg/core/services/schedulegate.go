package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/pkg/schedule"
)

// ScheduleGate answers "is the hotline open right now" for call routing and
// shift activation. It prefers the local schedule document; when a legacy
// remote schedule URL is configured that source wins, with any fetch failure
// (deadline or transport) reading as closed.
type ScheduleGate struct {
	sched     *schedule.Schedule
	fetcher   *schedule.Fetcher
	legacyURL string
	timezone  string
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleGate builds a gate. fetcher and legacyURL may be zero when the
// deployment has no legacy schedule source.
func NewScheduleGate(sched *schedule.Schedule, fetcher *schedule.Fetcher, legacyURL, timezone string, logger *zap.Logger) *ScheduleGate {
	return &ScheduleGate{
		sched:     sched,
		fetcher:   fetcher,
		legacyURL: legacyURL,
		timezone:  timezone,
		logger:    logger,
		now:       time.Now,
	}
}

// Status evaluates the schedule, optionally restricted to one language.
func (g *ScheduleGate) Status(ctx context.Context, language string) (schedule.Evaluation, error) {
	if language != "" {
		return schedule.EvaluateLanguage(g.sched, language, g.timezone, g.now())
	}
	return schedule.Evaluate(g.sched, g.timezone, g.now())
}

// IsOpen reports whether the hotline is currently staffed. Evaluation
// failures are logged and read as closed; a wrong "closed" sends a caller to
// voicemail, a wrong "open" rings phones nobody is on shift to answer.
func (g *ScheduleGate) IsOpen(ctx context.Context) bool {
	if g.legacyURL != "" && g.fetcher != nil {
		open, err := g.fetcher.IsOpenNow(ctx, g.legacyURL, g.timezone, g.now())
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				g.logger.Warn("legacy schedule fetch timed out", zap.Error(err))
			} else {
				g.logger.Warn("legacy schedule fetch failed", zap.Error(err))
			}
			return false
		}
		return open
	}

	eval, err := g.Status(ctx, "")
	if err != nil {
		g.logger.Error("schedule evaluation failed", zap.Error(err))
		return false
	}
	return eval.IsOpen
}
