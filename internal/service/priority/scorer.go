package priority

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/audit"
)

// Scoring weights. Priority = wait time (40%) + clinical urgency (30%) +
// referral weight (20%) - decline penalty (10%).
const (
	waitTimeWeight  = 0.4
	urgencyWeight   = 0.3
	referralWeight  = 0.2
	declineWeight   = 0.1
	waitTimeCapDays = 30
	declinePerOffer = 0.1
)

// Score computes the normalized priority for an entry at a given instant.
// Pure: the reference time is explicit so results are reproducible.
// The result is always within [0, 1].
func Score(entry *model.WaitlistEntry, now time.Time) float64 {
	daysWaiting := math.Floor(now.Sub(entry.AddedDate).Hours() / 24)
	waitTimeScore := math.Min(daysWaiting/waitTimeCapDays, 1.0)

	urgencyScore := entry.Priority.UrgencyScore()

	referralScore := 0.5
	if entry.Priority == model.PriorityUrgent {
		referralScore = 1.0
	}

	declinePenalty := math.Min(float64(entry.DeclinedOffers)*declinePerOffer, 1.0)

	score := waitTimeScore*waitTimeWeight +
		urgencyScore*urgencyWeight +
		referralScore*referralWeight -
		declinePenalty*declineWeight

	return math.Max(0, math.Min(1, score))
}

type Scorer struct {
	repo    repository.WaitlistRepository
	auditor *audit.Service
}

func NewScorer(repo repository.WaitlistRepository, auditor *audit.Service) *Scorer {
	return &Scorer{repo: repo, auditor: auditor}
}

// Rescore recomputes and persists one entry's priority score.
func (s *Scorer) Rescore(ctx context.Context, entry *model.WaitlistEntry, now time.Time) (float64, error) {
	score := Score(entry, now)

	if err := s.repo.UpdatePriorityScore(ctx, entry.ID, score); err != nil {
		return 0, fmt.Errorf("failed to persist priority score: %w", err)
	}
	entry.PriorityScore = score

	s.auditor.Log(ctx, model.AuditActionScoreUpdated, model.AuditEntityWaitlistEntry, entry.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"priority_score":  score,
			"priority":        entry.Priority,
			"declined_offers": entry.DeclinedOffers,
		},
	})

	return score, nil
}

// RescoreAll recomputes scores for every active, auto-match-enabled entry.
// Used as the pre-step of a matching cycle and as a standalone periodic job.
// Per-entry failures are logged and skipped.
func (s *Scorer) RescoreAll(ctx context.Context, now time.Time) (int, error) {
	entries, err := s.repo.ListForMatching(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list entries for rescoring: %w", err)
	}

	updated := 0
	for _, entry := range entries {
		if _, err := s.Rescore(ctx, entry, now); err != nil {
			log.Error().Err(err).
				Str("waitlist_entry_id", entry.ID.String()).
				Msg("failed to rescore waitlist entry")
			continue
		}
		updated++
	}

	log.Info().Int("count", updated).Msg("priority scores updated")
	return updated, nil
}
