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
)

type scheduleRepository struct {
	BaseRepository
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *scheduleRepository) GetWeeklyTemplate(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) (*model.ScheduleTemplate, error) {
	query := `
		SELECT id, clinician_id, weekly_schedule, effective_start, effective_end
		FROM schedule_templates
		WHERE clinician_id = $1
		AND effective_start <= $2
		AND (effective_end IS NULL OR effective_end >= $3)
		ORDER BY effective_start DESC
		LIMIT 1
	`
	var template model.ScheduleTemplate
	err := r.db.GetContext(ctx, &template, query, clinicianID, to, from)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule template: %w", err)
	}
	return &template, nil
}

func (r *scheduleRepository) GetApprovedExceptions(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*model.ScheduleException, error) {
	query := `
		SELECT id, clinician_id, start_date, end_date, status, reason
		FROM schedule_exceptions
		WHERE clinician_id = $1
		AND start_date <= $2
		AND end_date >= $3
		AND status = $4
	`
	var exceptions []*model.ScheduleException
	err := r.db.SelectContext(ctx, &exceptions, query, clinicianID, to, from, model.ExceptionStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule exceptions: %w", err)
	}
	return exceptions, nil
}

func (r *scheduleRepository) GetExistingAppointments(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*model.ExistingAppointment, error) {
	query := `
		SELECT id, clinician_id, appointment_date, start_time, end_time, status
		FROM appointments
		WHERE clinician_id = $1
		AND appointment_date >= $2
		AND appointment_date <= $3
		AND status NOT IN ($4, $5)
		ORDER BY appointment_date ASC, start_time ASC
	`
	var appointments []*model.ExistingAppointment
	err := r.db.SelectContext(ctx, &appointments, query, clinicianID, from, to,
		model.AppointmentStatusCancelled, model.AppointmentStatusNoShow)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing appointments: %w", err)
	}
	return appointments, nil
}
