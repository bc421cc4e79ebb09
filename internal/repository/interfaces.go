package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
)

// All repository interfaces in one file
type (
	// WaitlistRepository persists waitlist entries and their matching state.
	WaitlistRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error)
		Create(ctx context.Context, entry *model.WaitlistEntry) error
		UpdatePriorityScore(ctx context.Context, id uuid.UUID, score float64) error
		// ListForMatching returns ACTIVE, auto-match-enabled entries ordered
		// by priority score descending, then added date ascending. The
		// orchestrator depends on this ordering contract.
		ListForMatching(ctx context.Context) ([]*model.WaitlistEntry, error)
		// ListActiveForSlot returns ACTIVE entries whose candidate clinician
		// set includes the clinician, ordered like ListForMatching.
		ListActiveForSlot(ctx context.Context, clinicianID uuid.UUID, limit int) ([]*model.WaitlistEntry, error)
		// MarkOffered flips an ACTIVE entry to OFFERED and bumps its
		// notification counters in one conditional update. Returns false when
		// the entry was not ACTIVE, which is the compare-and-swap guard
		// against concurrent offers.
		MarkOffered(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
		// RecordDecline reverts the entry to ACTIVE and increments its
		// declined-offer count.
		RecordDecline(ctx context.Context, id uuid.UUID) error
		SetStatus(ctx context.Context, id uuid.UUID, status model.WaitlistStatus) error
		// ExpireOlderThan marks ACTIVE entries added before the cutoff as
		// EXPIRED and returns the affected ids.
		ExpireOlderThan(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
		MatchingStats(ctx context.Context, from, to *time.Time) (*model.MatchingStats, error)
	}

	// OfferRepository persists waitlist offers. Offers are history: they are
	// created and resolved, never deleted.
	OfferRepository interface {
		Create(ctx context.Context, offer *model.WaitlistOffer) error
		Get(ctx context.Context, id uuid.UUID) (*model.WaitlistOffer, error)
		// GetPendingByEntry returns the entry's pending offer, or nil when
		// there is none.
		GetPendingByEntry(ctx context.Context, entryID uuid.UUID) (*model.WaitlistOffer, error)
		// ResolvePending moves a PENDING offer to a terminal status. Returns
		// false when the offer was already resolved.
		ResolvePending(ctx context.Context, id uuid.UUID, status model.OfferStatus, declineReason *string, respondedAt time.Time) (bool, error)
		// ExpirePending marks every PENDING offer past its deadline EXPIRED,
		// atomically reverting the affected entries to ACTIVE, and returns
		// the offers it transitioned.
		ExpirePending(ctx context.Context, now time.Time) ([]*model.WaitlistOffer, error)
		CountPending(ctx context.Context) (int, error)
		ListByEntry(ctx context.Context, entryID uuid.UUID) ([]*model.WaitlistOffer, error)
	}

	// ScheduleRepository reads clinician availability. The engine consumes
	// schedule data read-only; booking lives elsewhere.
	ScheduleRepository interface {
		GetWeeklyTemplate(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) (*model.ScheduleTemplate, error)
		GetApprovedExceptions(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*model.ScheduleException, error)
		GetExistingAppointments(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*model.ExistingAppointment, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error)
	}
)
