package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository"
	apperrors "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/errors"
)

const waitlistColumns = `
	id, client_id, requested_clinician_id, alternate_clinician_ids,
	preferred_provider_id, preferred_days, preferred_times, appointment_type,
	priority, priority_score, status, auto_match_enabled, added_date,
	max_wait_days, declined_offers, notifications_sent, last_notified_at,
	created_at, updated_at
`

type waitlistRepository struct {
	BaseRepository
}

func NewWaitlistRepository(db *sqlx.DB) repository.WaitlistRepository {
	return &waitlistRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *waitlistRepository) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	query := `
		INSERT INTO waitlist_entries (
			id, client_id, requested_clinician_id, alternate_clinician_ids,
			preferred_provider_id, preferred_days, preferred_times,
			appointment_type, priority, priority_score, status,
			auto_match_enabled, added_date, max_wait_days, declined_offers,
			notifications_sent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ClientID,
		entry.RequestedClinicianID,
		entry.AlternateClinicianIDs,
		entry.PreferredProviderID,
		entry.PreferredDays,
		entry.PreferredTimes,
		entry.AppointmentType,
		entry.Priority,
		entry.PriorityScore,
		entry.Status,
		entry.AutoMatchEnabled,
		entry.AddedDate,
		entry.MaxWaitDays,
		entry.DeclinedOffers,
		entry.NotificationsSent,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

func (r *waitlistRepository) Get(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = $1`

	var entry model.WaitlistEntry
	err := r.db.GetContext(ctx, &entry, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.EntryNotFound(err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *waitlistRepository) UpdatePriorityScore(ctx context.Context, id uuid.UUID, score float64) error {
	query := `
		UPDATE waitlist_entries
		SET priority_score = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, score, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update priority score: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.EntryNotFound(nil)
	}
	return nil
}

func (r *waitlistRepository) ListForMatching(ctx context.Context) ([]*model.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + `
		FROM waitlist_entries
		WHERE status = $1 AND auto_match_enabled = true
		ORDER BY priority_score DESC, added_date ASC
	`
	var entries []*model.WaitlistEntry
	err := r.db.SelectContext(ctx, &entries, query, model.WaitlistStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for matching: %w", err)
	}
	return entries, nil
}

func (r *waitlistRepository) ListActiveForSlot(ctx context.Context, clinicianID uuid.UUID, limit int) ([]*model.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + `
		FROM waitlist_entries
		WHERE status = $1
		AND (
			requested_clinician_id = $2
			OR preferred_provider_id = $2
			OR $3 = ANY(alternate_clinician_ids)
		)
		ORDER BY priority_score DESC, added_date ASC
		LIMIT $4
	`
	var entries []*model.WaitlistEntry
	err := r.db.SelectContext(ctx, &entries, query,
		model.WaitlistStatusActive, clinicianID, clinicianID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for slot: %w", err)
	}
	return entries, nil
}

func (r *waitlistRepository) MarkOffered(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	// Conditional update doubles as the compare-and-swap: only an ACTIVE
	// entry can move to OFFERED.
	query := `
		UPDATE waitlist_entries
		SET status = $1,
			notifications_sent = notifications_sent + 1,
			last_notified_at = $2,
			updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		model.WaitlistStatusOffered, now, id, model.WaitlistStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to mark entry offered: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *waitlistRepository) RecordDecline(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE waitlist_entries
		SET status = $1,
			declined_offers = declined_offers + 1,
			updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, model.WaitlistStatusActive, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to record decline: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.EntryNotFound(nil)
	}
	return nil
}

func (r *waitlistRepository) SetStatus(ctx context.Context, id uuid.UUID, status model.WaitlistStatus) error {
	query := `
		UPDATE waitlist_entries
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set entry status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.EntryNotFound(nil)
	}
	return nil
}

func (r *waitlistRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE waitlist_entries
		SET status = $1, updated_at = $2
		WHERE status = $3 AND added_date < $4
		RETURNING id
	`
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, query,
		model.WaitlistStatusExpired, time.Now(), model.WaitlistStatusActive, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to expire old entries: %w", err)
	}
	return ids, nil
}

func (r *waitlistRepository) MatchingStats(ctx context.Context, from, to *time.Time) (*model.MatchingStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status IN ($1, $2, $3, $4)) AS total_entries,
			COUNT(*) FILTER (WHERE status IN ($3, $4)) AS matched,
			COUNT(*) FILTER (WHERE status = $2) AS offered,
			(
				SELECT COALESCE(AVG(match_score), 0)
				FROM waitlist_offers
				WHERE ($5::timestamptz IS NULL OR created_at >= $5)
				AND ($6::timestamptz IS NULL OR created_at <= $6)
			) AS average_match_score
		FROM waitlist_entries
		WHERE ($5::timestamptz IS NULL OR updated_at >= $5)
		AND ($6::timestamptz IS NULL OR updated_at <= $6)
	`
	var row struct {
		TotalEntries      int     `db:"total_entries"`
		Matched           int     `db:"matched"`
		Offered           int     `db:"offered"`
		AverageMatchScore float64 `db:"average_match_score"`
	}
	err := r.db.GetContext(ctx, &row, query,
		model.WaitlistStatusActive, model.WaitlistStatusOffered,
		model.WaitlistStatusMatched, model.WaitlistStatusScheduled,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to compute matching stats: %w", err)
	}

	stats := &model.MatchingStats{
		TotalEntries:      row.TotalEntries,
		Matched:           row.Matched,
		Offered:           row.Offered,
		AverageMatchScore: row.AverageMatchScore,
	}
	if row.TotalEntries > 0 {
		stats.Accuracy = float64(row.Matched) / float64(row.TotalEntries) * 100
	}
	return stats, nil
}
