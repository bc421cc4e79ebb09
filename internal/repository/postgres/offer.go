package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository"
	apperrors "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/errors"
)

const offerColumns = `
	id, waitlist_entry_id, clinician_id, slot_date, start_time, end_time,
	appointment_type, status, match_score, match_reasons, decline_reason,
	created_at, expires_at, responded_at
`

type offerRepository struct {
	BaseRepository
}

func NewOfferRepository(db *sqlx.DB) repository.OfferRepository {
	return &offerRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *offerRepository) Create(ctx context.Context, offer *model.WaitlistOffer) error {
	query := `
		INSERT INTO waitlist_offers (
			id, waitlist_entry_id, clinician_id, slot_date, start_time,
			end_time, appointment_type, status, match_score, match_reasons,
			created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		offer.ID,
		offer.WaitlistEntryID,
		offer.ClinicianID,
		offer.SlotDate,
		offer.StartTime,
		offer.EndTime,
		offer.AppointmentType,
		offer.Status,
		offer.MatchScore,
		offer.MatchReasons,
		offer.CreatedAt,
		offer.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func (r *offerRepository) Get(ctx context.Context, id uuid.UUID) (*model.WaitlistOffer, error) {
	query := `SELECT ` + offerColumns + ` FROM waitlist_offers WHERE id = $1`

	var offer model.WaitlistOffer
	err := r.db.GetContext(ctx, &offer, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.OfferNotFound(err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return &offer, nil
}

func (r *offerRepository) GetPendingByEntry(ctx context.Context, entryID uuid.UUID) (*model.WaitlistOffer, error) {
	query := `SELECT ` + offerColumns + `
		FROM waitlist_offers
		WHERE waitlist_entry_id = $1 AND status = $2
	`
	var offer model.WaitlistOffer
	err := r.db.GetContext(ctx, &offer, query, entryID, model.OfferStatusPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending offer: %w", err)
	}
	return &offer, nil
}

func (r *offerRepository) ResolvePending(ctx context.Context, id uuid.UUID, status model.OfferStatus, declineReason *string, respondedAt time.Time) (bool, error) {
	query := `
		UPDATE waitlist_offers
		SET status = $1, decline_reason = $2, responded_at = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, status, declineReason, respondedAt, id, model.OfferStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to resolve offer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// ExpirePending flips every pending offer past its deadline to EXPIRED and
// reverts the affected entries to ACTIVE in the same transaction, so a
// crash mid-sweep cannot strand an entry in OFFERED with no pending offer.
func (r *offerRepository) ExpirePending(ctx context.Context, now time.Time) ([]*model.WaitlistOffer, error) {
	var offers []*model.WaitlistOffer
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		expire := `
			UPDATE waitlist_offers
			SET status = $1
			WHERE status = $2 AND expires_at <= $3
			RETURNING ` + offerColumns
		if err := tx.SelectContext(ctx, &offers, expire, model.OfferStatusExpired, model.OfferStatusPending, now); err != nil {
			return fmt.Errorf("failed to expire pending offers: %w", err)
		}
		if len(offers) == 0 {
			return nil
		}

		entryIDs := make([]uuid.UUID, 0, len(offers))
		for _, o := range offers {
			entryIDs = append(entryIDs, o.WaitlistEntryID)
		}
		reactivate := `
			UPDATE waitlist_entries
			SET status = $1, updated_at = $2
			WHERE id = ANY($3) AND status = $4
		`
		if _, err := tx.ExecContext(ctx, reactivate,
			model.WaitlistStatusActive, now, pq.Array(entryIDs), model.WaitlistStatusOffered); err != nil {
			return fmt.Errorf("failed to reactivate entries after offer expiry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *offerRepository) CountPending(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM waitlist_offers WHERE status = $1`

	var count int
	err := r.db.GetContext(ctx, &count, query, model.OfferStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending offers: %w", err)
	}
	return count, nil
}

func (r *offerRepository) ListByEntry(ctx context.Context, entryID uuid.UUID) ([]*model.WaitlistOffer, error) {
	query := `SELECT ` + offerColumns + `
		FROM waitlist_offers
		WHERE waitlist_entry_id = $1
		ORDER BY created_at DESC
	`
	var offers []*model.WaitlistOffer
	err := r.db.SelectContext(ctx, &offers, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}
