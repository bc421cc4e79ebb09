package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/offer"
)

// OfferExpiryWorker sweeps pending offers past their response deadline and
// expires stale waitlist entries. Both sweeps are idempotent, so running
// the worker in several replicas is safe.
type OfferExpiryWorker struct {
	offers        *offer.Manager
	sweepInterval time.Duration
	entryMaxAge   time.Duration
}

func NewOfferExpiryWorker(offers *offer.Manager, sweepInterval time.Duration, entryMaxAge time.Duration) *OfferExpiryWorker {
	return &OfferExpiryWorker{
		offers:        offers,
		sweepInterval: sweepInterval,
		entryMaxAge:   entryMaxAge,
	}
}

func (w *OfferExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", w.sweepInterval).Msg("Offer expiry worker started")

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Offer expiry worker shutting down")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *OfferExpiryWorker) sweep(ctx context.Context) {
	now := time.Now()

	expired, err := w.offers.ExpireOffers(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Offer expiry sweep failed")
	} else if expired > 0 {
		log.Info().Int("expired", expired).Msg("Offer expiry sweep completed")
	}

	if w.entryMaxAge <= 0 {
		return
	}

	stale, err := w.offers.ExpireEntries(ctx, w.entryMaxAge, now)
	if err != nil {
		log.Error().Err(err).Msg("Entry expiry sweep failed")
	} else if stale > 0 {
		log.Info().Int("expired", stale).Msg("Entry expiry sweep completed")
	}
}
