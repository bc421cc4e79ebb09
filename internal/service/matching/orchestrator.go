package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/audit"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/priority"
	apperrors "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/errors"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/lock"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/metrics"
)

// ErrCycleInProgress is returned when another matching cycle holds the run
// lock. Callers treat it as a skip, not a failure.
var ErrCycleInProgress = errors.New("matching cycle already in progress")

const slotMatchCandidateLimit = 20

// Orchestrator drives a full matching cycle: rescore, rank, propose. It
// only produces proposals; converting them into offers is a separate,
// explicit step through the offer manager.
type Orchestrator struct {
	entries repository.WaitlistRepository
	scorer  *priority.Scorer
	finder  *SlotFinder
	runLock lock.RunLock
	auditor *audit.Service
	metrics *metrics.Metrics
}

func NewOrchestrator(
	entries repository.WaitlistRepository,
	scorer *priority.Scorer,
	finder *SlotFinder,
	runLock lock.RunLock,
	auditor *audit.Service,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		entries: entries,
		scorer:  scorer,
		finder:  finder,
		runLock: runLock,
		auditor: auditor,
		metrics: m,
	}
}

// RunMatchingCycle executes one full matching pass under the run lock.
// Entries are processed sequentially in ranked order (priority score
// descending, added date ascending); each proposed slot is reserved for the
// rest of the run so two entries never receive the same proposal.
func (o *Orchestrator) RunMatchingCycle(ctx context.Context) (*model.MatchingSummary, error) {
	var summary *model.MatchingSummary

	err := o.runLock.WithLock(ctx, func(ctx context.Context) error {
		var runErr error
		summary, runErr = o.runCycle(ctx)
		return runErr
	})
	if errors.Is(err, lock.ErrLockHeld) {
		if o.metrics != nil {
			o.metrics.CyclesSkipped.Inc()
		}
		return nil, ErrCycleInProgress
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (o *Orchestrator) runCycle(ctx context.Context) (*model.MatchingSummary, error) {
	started := time.Now()

	if _, err := o.scorer.RescoreAll(ctx, started); err != nil {
		return nil, fmt.Errorf("failed to refresh priority scores: %w", err)
	}

	// The repository returns entries already in ranked order; this is a
	// documented contract, not incidental iteration order.
	entries, err := o.entries.ListForMatching(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	summary := &model.MatchingSummary{StartedAt: started}
	reserved := make(map[string]bool)
	var totalScore float64

	for _, entry := range entries {
		summary.Processed++

		result, err := o.proposeForEntry(ctx, entry, started, reserved)
		if err != nil {
			summary.Failed++
			code := apperrors.CodeOf(err)
			if o.metrics != nil {
				o.metrics.EntriesFailed.WithLabelValues(string(code)).Inc()
			}
			log.Warn().Err(err).
				Str("waitlist_entry_id", entry.ID.String()).
				Str("code", string(code)).
				Msg("entry skipped during matching cycle")
			continue
		}
		if result == nil {
			continue
		}

		reserved[slotKey(result.Slot)] = true
		summary.Matched++
		totalScore += result.MatchScore
		summary.Proposals = append(summary.Proposals, *result)

		if o.metrics != nil {
			o.metrics.MatchScore.Observe(result.MatchScore)
		}
	}

	if summary.Matched > 0 {
		summary.AverageMatchScore = totalScore / float64(summary.Matched)
	}
	summary.Duration = time.Since(started)

	if o.metrics != nil {
		o.metrics.CyclesRun.Inc()
		o.metrics.CycleDuration.Observe(summary.Duration.Seconds())
		o.metrics.EntriesProcessed.Add(float64(summary.Processed))
		o.metrics.EntriesMatched.Add(float64(summary.Matched))
	}

	o.auditor.Log(ctx, model.AuditActionCycleRun, model.AuditEntityMatchingCycle, uuid.New(), &audit.LogOptions{
		Metadata: map[string]interface{}{
			"processed":           summary.Processed,
			"matched":             summary.Matched,
			"failed":              summary.Failed,
			"average_match_score": summary.AverageMatchScore,
			"duration_ms":         summary.Duration.Milliseconds(),
		},
	})

	log.Info().
		Int("processed", summary.Processed).
		Int("matched", summary.Matched).
		Int("failed", summary.Failed).
		Float64("average_match_score", summary.AverageMatchScore).
		Dur("duration", summary.Duration).
		Msg("matching cycle complete")

	return summary, nil
}

// proposeForEntry finds the entry's best unreserved slot. A nil result with
// nil error means the entry simply had no eligible slot this cycle.
func (o *Orchestrator) proposeForEntry(ctx context.Context, entry *model.WaitlistEntry, now time.Time, reserved map[string]bool) (*model.MatchResult, error) {
	slots, err := o.finder.FindSlots(ctx, entry, now)
	if err != nil {
		var ae *apperrors.AppError
		if errors.As(err, &ae) && ae.Code == apperrors.ErrNoCandidates {
			// Reported in the summary, not a failure.
			return nil, nil
		}
		return nil, err
	}

	var best *model.MatchResult
	for _, slot := range slots {
		if reserved[slotKey(slot)] {
			continue
		}
		score, reasons := ScoreMatch(entry, slot, now)
		// Strictly-greater comparison keeps first-found order on ties.
		if best == nil || score > best.MatchScore {
			best = &model.MatchResult{
				WaitlistEntryID: entry.ID,
				Slot:            slot,
				MatchScore:      score,
				MatchReasons:    reasons,
			}
		}
	}
	return best, nil
}

// MatchEntriesForSlot is the single-slot path: it scores remaining ACTIVE
// entries against one concrete vacated slot, ordered best-first. Used by the
// decline cascade and the appointment-cancellation trigger.
func (o *Orchestrator) MatchEntriesForSlot(ctx context.Context, slot model.SlotCandidate, now time.Time) ([]model.MatchResult, error) {
	entries, err := o.entries.ListActiveForSlot(ctx, slot.ClinicianID, slotMatchCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate entries for slot: %w", err)
	}

	var results []model.MatchResult
	for _, entry := range entries {
		if !entry.PrefersDay(slot.Date.Weekday()) {
			continue
		}
		if !entry.PrefersTimeOfDay(model.TimeOfDayForHour(slot.StartHour())) {
			continue
		}
		score, reasons := ScoreMatch(entry, slot, now)
		results = append(results, model.MatchResult{
			WaitlistEntryID: entry.ID,
			Slot:            slot,
			MatchScore:      score,
			MatchReasons:    reasons,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	return results, nil
}

func slotKey(slot model.SlotCandidate) string {
	return fmt.Sprintf("%s|%s|%s", slot.ClinicianID, slot.Date.Format("2006-01-02"), slot.StartTime)
}
