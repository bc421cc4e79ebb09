package offer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/audit"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/notification"
	apperrors "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/errors"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/lock"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/metrics"
)

const DefaultOfferTTL = 24 * time.Hour

// SlotMatcher is the single-slot matching path used by the decline cascade.
// Implemented by the matching orchestrator.
type SlotMatcher interface {
	MatchEntriesForSlot(ctx context.Context, slot model.SlotCandidate, now time.Time) ([]model.MatchResult, error)
}

// Manager owns the offer lifecycle: PENDING, then exactly one of ACCEPTED,
// DECLINED, or EXPIRED. Terminal states never transition again, and an
// entry holds at most one pending offer at any instant.
type Manager struct {
	entries  repository.WaitlistRepository
	offers   repository.OfferRepository
	matcher  SlotMatcher
	notifier notification.Service
	auditor  *audit.Service
	metrics  *metrics.Metrics
	keyed    *lock.KeyedMutex

	cascadeScoreFloor float64
	offerTTL          time.Duration
}

func NewManager(
	entries repository.WaitlistRepository,
	offers repository.OfferRepository,
	matcher SlotMatcher,
	notifier notification.Service,
	auditor *audit.Service,
	m *metrics.Metrics,
	cascadeScoreFloor float64,
	offerTTL time.Duration,
) *Manager {
	if offerTTL <= 0 {
		offerTTL = DefaultOfferTTL
	}
	return &Manager{
		entries:           entries,
		offers:            offers,
		matcher:           matcher,
		notifier:          notifier,
		auditor:           auditor,
		metrics:           m,
		keyed:             lock.NewKeyedMutex(),
		cascadeScoreFloor: cascadeScoreFloor,
		offerTTL:          offerTTL,
	}
}

// CreateOffer opens a pending offer for an ACTIVE entry. The entry moves to
// OFFERED through a conditional update, and offer creation per entry is
// additionally serialized by a keyed mutex: two concurrent attempts for the
// same entry cannot both succeed.
func (m *Manager) CreateOffer(ctx context.Context, entryID uuid.UUID, slot model.SlotCandidate, matchScore float64, matchReasons []string, ttl time.Duration, now time.Time) (*model.WaitlistOffer, error) {
	if ttl <= 0 {
		ttl = m.offerTTL
	}

	unlock := m.keyed.Lock(entryID.String())
	defer unlock()

	entry, err := m.entries.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != model.WaitlistStatusActive {
		return nil, apperrors.EntryNotActive(string(entry.Status))
	}

	if pending, err := m.offers.GetPendingByEntry(ctx, entryID); err != nil {
		return nil, err
	} else if pending != nil {
		return nil, apperrors.EntryNotActive("entry already has a pending offer")
	}

	ok, err := m.entries.MarkOffered(ctx, entryID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the compare-and-swap to a concurrent writer.
		return nil, apperrors.EntryNotActive(string(entry.Status))
	}

	offer := &model.WaitlistOffer{
		ID:              uuid.New(),
		WaitlistEntryID: entryID,
		ClinicianID:     slot.ClinicianID,
		SlotDate:        slot.Date,
		StartTime:       slot.StartTime,
		EndTime:         slot.EndTime,
		AppointmentType: entry.AppointmentType,
		Status:          model.OfferStatusPending,
		MatchScore:      matchScore,
		MatchReasons:    matchReasons,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}

	if err := m.offers.Create(ctx, offer); err != nil {
		// Undo the status flip so the entry is not stranded in OFFERED
		// without a pending offer.
		if revertErr := m.entries.SetStatus(ctx, entryID, model.WaitlistStatusActive); revertErr != nil {
			log.Error().Err(revertErr).
				Str("waitlist_entry_id", entryID.String()).
				Msg("failed to revert entry status after offer create failure")
		}
		return nil, fmt.Errorf("failed to persist offer: %w", err)
	}

	if m.metrics != nil {
		m.metrics.OffersCreated.Inc()
		m.metrics.PendingOffers.Inc()
	}

	m.auditor.Log(ctx, model.AuditActionOfferCreated, model.AuditEntityWaitlistOffer, offer.ID, &audit.LogOptions{
		Changes: offer,
	})

	m.notifier.Notify(ctx, entryID, model.NotifyOfferCreated, map[string]interface{}{
		"offer_id":     offer.ID,
		"clinician_id": offer.ClinicianID,
		"slot_date":    offer.SlotDate,
		"start_time":   offer.StartTime,
		"end_time":     offer.EndTime,
		"expires_at":   offer.ExpiresAt,
		"match_score":  offer.MatchScore,
		"reasons":      offer.MatchReasons,
	})

	return offer, nil
}

// AcceptOffer resolves a pending offer as accepted and marks the entry
// MATCHED. The deadline is re-checked here regardless of whether the
// expiration sweep has run.
func (m *Manager) AcceptOffer(ctx context.Context, offerID uuid.UUID, now time.Time) (*model.WaitlistOffer, error) {
	offer, err := m.offers.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != model.OfferStatusPending {
		return nil, apperrors.OfferNotPending(string(offer.Status))
	}
	if offer.Expired(now) {
		return nil, apperrors.OfferExpired()
	}

	ok, err := m.offers.ResolvePending(ctx, offerID, model.OfferStatusAccepted, nil, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.OfferNotPending(string(offer.Status))
	}
	offer.Status = model.OfferStatusAccepted
	offer.RespondedAt = &now

	if err := m.entries.SetStatus(ctx, offer.WaitlistEntryID, model.WaitlistStatusMatched); err != nil {
		return nil, fmt.Errorf("failed to mark entry matched: %w", err)
	}

	if m.metrics != nil {
		m.metrics.OffersResolved.WithLabelValues("accepted").Inc()
		m.metrics.PendingOffers.Dec()
	}

	m.auditor.Log(ctx, model.AuditActionOfferAccepted, model.AuditEntityWaitlistOffer, offer.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"waitlist_entry_id": offer.WaitlistEntryID,
			"responded_at":      now,
		},
	})

	m.notifier.Notify(ctx, offer.WaitlistEntryID, model.NotifyOfferAccepted, map[string]interface{}{
		"offer_id":     offer.ID,
		"clinician_id": offer.ClinicianID,
		"slot_date":    offer.SlotDate,
		"start_time":   offer.StartTime,
	})

	return offer, nil
}

// DeclineOffer resolves a pending offer as declined, reverts the entry to
// ACTIVE with its decline count bumped, and cascades the vacated slot to
// the next-best remaining candidate. The cascade is exactly one step: a
// later decline of the new offer triggers its own cascade.
func (m *Manager) DeclineOffer(ctx context.Context, offerID uuid.UUID, reason *string, now time.Time) error {
	offer, err := m.offers.Get(ctx, offerID)
	if err != nil {
		return err
	}
	if offer.Status != model.OfferStatusPending {
		return apperrors.OfferNotPending(string(offer.Status))
	}

	ok, err := m.offers.ResolvePending(ctx, offerID, model.OfferStatusDeclined, reason, now)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.OfferNotPending(string(offer.Status))
	}

	if err := m.entries.RecordDecline(ctx, offer.WaitlistEntryID); err != nil {
		return fmt.Errorf("failed to record decline: %w", err)
	}

	if m.metrics != nil {
		m.metrics.OffersResolved.WithLabelValues("declined").Inc()
		m.metrics.PendingOffers.Dec()
	}

	m.auditor.Log(ctx, model.AuditActionOfferDeclined, model.AuditEntityWaitlistOffer, offer.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"waitlist_entry_id": offer.WaitlistEntryID,
			"reason":            reason,
		},
	})

	m.notifier.Notify(ctx, offer.WaitlistEntryID, model.NotifyOfferDeclined, map[string]interface{}{
		"offer_id": offer.ID,
	})

	m.cascade(ctx, offer, now)
	return nil
}

// cascade re-offers the vacated slot to the next-best remaining ACTIVE
// entry. Cascade failures are logged, never surfaced: the decline itself
// has already committed.
func (m *Manager) cascade(ctx context.Context, declined *model.WaitlistOffer, now time.Time) {
	matches, err := m.matcher.MatchEntriesForSlot(ctx, declined.Slot(), now)
	if err != nil {
		log.Error().Err(err).
			Str("offer_id", declined.ID.String()).
			Msg("cascade matching failed for vacated slot")
		return
	}

	for _, match := range matches {
		// The decliner is ACTIVE again and may rank here; never re-offer the
		// slot it just turned down.
		if match.WaitlistEntryID == declined.WaitlistEntryID {
			continue
		}
		if match.MatchScore < m.cascadeScoreFloor {
			break
		}

		next, err := m.CreateOffer(ctx, match.WaitlistEntryID, match.Slot, match.MatchScore, match.MatchReasons, m.offerTTL, now)
		if err != nil {
			// An entry that raced into a non-active state is skipped; try
			// the next candidate.
			if apperrors.CodeOf(err) == apperrors.ErrEntryNotActive {
				continue
			}
			log.Error().Err(err).
				Str("waitlist_entry_id", match.WaitlistEntryID.String()).
				Msg("cascade offer creation failed")
			return
		}

		log.Info().
			Str("declined_offer_id", declined.ID.String()).
			Str("new_offer_id", next.ID.String()).
			Str("waitlist_entry_id", next.WaitlistEntryID.String()).
			Msg("vacated slot cascaded to next candidate")
		return
	}
}

// CancelOffer is a staff override, modeled as a system-initiated decline
// with identical cascade semantics.
func (m *Manager) CancelOffer(ctx context.Context, offerID uuid.UUID, now time.Time) error {
	reason := "cancelled by staff"
	return m.DeclineOffer(ctx, offerID, &reason, now)
}

// ResolveOffer dispatches a caller-supplied outcome.
func (m *Manager) ResolveOffer(ctx context.Context, offerID uuid.UUID, outcome model.OfferOutcome, reason *string, now time.Time) error {
	switch outcome {
	case model.OfferOutcomeAccept:
		_, err := m.AcceptOffer(ctx, offerID, now)
		return err
	case model.OfferOutcomeDecline:
		return m.DeclineOffer(ctx, offerID, reason, now)
	default:
		return fmt.Errorf("unknown offer outcome %q", outcome)
	}
}

// ExpireOffers sweeps every pending offer past its deadline. The repository
// expires the offers and reverts the affected entries to ACTIVE in one
// transaction. Idempotent: a second sweep with nothing newly expired returns
// 0 and mutates nothing. Expiration deliberately does not cascade; the entry
// re-enters the next matching cycle instead.
func (m *Manager) ExpireOffers(ctx context.Context, now time.Time) (int, error) {
	expired, err := m.offers.ExpirePending(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, offer := range expired {
		if m.metrics != nil {
			m.metrics.OffersExpired.Inc()
			m.metrics.PendingOffers.Dec()
		}

		m.auditor.Log(ctx, model.AuditActionOfferExpired, model.AuditEntityWaitlistOffer, offer.ID, &audit.LogOptions{
			Metadata: map[string]interface{}{
				"waitlist_entry_id": offer.WaitlistEntryID,
				"expired_at":        offer.ExpiresAt,
			},
		})

		m.notifier.Notify(ctx, offer.WaitlistEntryID, model.NotifyOfferExpired, map[string]interface{}{
			"offer_id": offer.ID,
		})
	}

	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("pending offers expired")
	}
	return len(expired), nil
}

// ConvertProposals turns accepted-quality proposals from a matching cycle
// into offers. Proposals below the threshold are skipped; per-proposal
// failures are isolated.
func (m *Manager) ConvertProposals(ctx context.Context, proposals []model.MatchResult, threshold float64, ttl time.Duration, now time.Time) (offered, failed int) {
	for _, proposal := range proposals {
		if proposal.MatchScore < threshold {
			continue
		}

		if _, err := m.CreateOffer(ctx, proposal.WaitlistEntryID, proposal.Slot, proposal.MatchScore, proposal.MatchReasons, ttl, now); err != nil {
			failed++
			log.Warn().Err(err).
				Str("waitlist_entry_id", proposal.WaitlistEntryID.String()).
				Msg("failed to convert proposal into offer")
			continue
		}
		offered++
	}
	return offered, failed
}

// ExpireEntries marks ACTIVE entries older than maxAge as EXPIRED. Part of
// the periodic sweep, separate from offer expiry.
func (m *Manager) ExpireEntries(ctx context.Context, maxAge time.Duration, now time.Time) (int, error) {
	ids, err := m.entries.ExpireOlderThan(ctx, now.Add(-maxAge))
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		m.auditor.Log(ctx, model.AuditActionEntryExpired, model.AuditEntityWaitlistEntry, id, nil)
		m.notifier.Notify(ctx, id, model.NotifyEntryExpired, nil)
	}

	if len(ids) > 0 {
		log.Info().Int("count", len(ids)).Msg("stale waitlist entries expired")
	}
	return len(ids), nil
}
