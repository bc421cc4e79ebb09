package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/matching"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/offer"
)

// MatchingCycleWorker runs the full matching cycle on a ticker and converts
// qualifying proposals into offers. The orchestrator's run lock makes
// overlapping runs across replicas a no-op.
type MatchingCycleWorker struct {
	orchestrator *matching.Orchestrator
	offers       *offer.Manager

	interval       time.Duration
	scoreThreshold float64
	offerTTL       time.Duration
}

func NewMatchingCycleWorker(orchestrator *matching.Orchestrator, offers *offer.Manager, interval time.Duration, scoreThreshold float64, offerTTL time.Duration) *MatchingCycleWorker {
	return &MatchingCycleWorker{
		orchestrator:   orchestrator,
		offers:         offers,
		interval:       interval,
		scoreThreshold: scoreThreshold,
		offerTTL:       offerTTL,
	}
}

func (w *MatchingCycleWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", w.interval).Msg("Matching cycle worker started")

	// Run once immediately so a fresh deploy does not wait a full interval.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Matching cycle worker shutting down")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *MatchingCycleWorker) runOnce(ctx context.Context) {
	summary, err := w.orchestrator.RunMatchingCycle(ctx)
	if err != nil {
		if errors.Is(err, matching.ErrCycleInProgress) {
			log.Info().Msg("Matching cycle skipped: another run holds the lock")
			return
		}
		log.Error().Err(err).Msg("Matching cycle failed")
		return
	}

	offered, failed := w.offers.ConvertProposals(ctx, summary.Proposals, w.scoreThreshold, w.offerTTL, time.Now())
	log.Info().
		Int("processed", summary.Processed).
		Int("matched", summary.Matched).
		Int("offered", offered).
		Int("failed", summary.Failed+failed).
		Dur("duration", summary.Duration).
		Msg("Matching cycle completed")
}
