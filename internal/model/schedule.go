package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DaySchedule is one weekday's recurring availability window. Times are
// clock strings in "HH:MM" form.
type DaySchedule struct {
	Available bool   `json:"available"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// WeeklySchedule maps lowercase weekday names to their availability window.
// Stored as a jsonb column.
type WeeklySchedule map[string]DaySchedule

func (w WeeklySchedule) Value() (driver.Value, error) {
	return json.Marshal(w)
}

func (w *WeeklySchedule) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported weekly schedule type %T", src)
	}
	return json.Unmarshal(b, w)
}

// ForDay returns the schedule for a weekday, keyed by lowercase name.
func (w WeeklySchedule) ForDay(day time.Weekday) (DaySchedule, bool) {
	ds, ok := w[strings.ToLower(day.String())]
	return ds, ok
}

// ScheduleTemplate is a clinician's weekly recurring availability with an
// effective date range. A nil EffectiveEnd means open-ended.
type ScheduleTemplate struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	ClinicianID    uuid.UUID      `db:"clinician_id" json:"clinician_id"`
	Weekly         WeeklySchedule `db:"weekly_schedule" json:"weekly_schedule"`
	EffectiveStart time.Time      `db:"effective_start" json:"effective_start"`
	EffectiveEnd   *time.Time     `db:"effective_end" json:"effective_end,omitempty"`
}

type ExceptionStatus string

const (
	ExceptionStatusPending  ExceptionStatus = "Pending"
	ExceptionStatusApproved ExceptionStatus = "Approved"
	ExceptionStatusDenied   ExceptionStatus = "Denied"
)

// ScheduleException blocks out a date range when approved, overriding the
// weekly template.
type ScheduleException struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	ClinicianID uuid.UUID       `db:"clinician_id" json:"clinician_id"`
	StartDate   time.Time       `db:"start_date" json:"start_date"`
	EndDate     time.Time       `db:"end_date" json:"end_date"`
	Status      ExceptionStatus `db:"status" json:"status"`
	Reason      string          `db:"reason" json:"reason,omitempty"`
}

// Covers reports whether the exception's date range includes the date.
func (e *ScheduleException) Covers(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(e.StartDate)) && !d.After(DateOnly(e.EndDate))
}

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusNoShow    AppointmentStatus = "NO_SHOW"
)

// Blocking reports whether an appointment in this status occupies its slot.
// Cancelled and no-show appointments free the slot.
func (s AppointmentStatus) Blocking() bool {
	return s != AppointmentStatusCancelled && s != AppointmentStatusNoShow
}

// ExistingAppointment is a booked slot consumed read-only for conflict
// detection.
type ExistingAppointment struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	ClinicianID     uuid.UUID         `db:"clinician_id" json:"clinician_id"`
	AppointmentDate time.Time         `db:"appointment_date" json:"appointment_date"`
	StartTime       string            `db:"start_time" json:"start_time"`
	EndTime         string            `db:"end_time" json:"end_time"`
	Status          AppointmentStatus `db:"status" json:"status"`
}

// SlotCandidate is a computed, ephemeral opening. It is derived from
// schedule data during a search and never persisted.
type SlotCandidate struct {
	ClinicianID uuid.UUID `json:"clinician_id"`
	Date        time.Time `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
}

// Overlaps reports whether the candidate's time window intersects the
// [start, end) window of another event on the same date.
func (s SlotCandidate) Overlaps(start, end string) bool {
	ss, err1 := MinutesOfDay(s.StartTime)
	se, err2 := MinutesOfDay(s.EndTime)
	os, err3 := MinutesOfDay(start)
	oe, err4 := MinutesOfDay(end)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return ss < oe && os < se
}

// StartHour returns the hour component of the slot start, or -1 when the
// clock string is malformed.
func (s SlotCandidate) StartHour() int {
	m, err := MinutesOfDay(s.StartTime)
	if err != nil {
		return -1
	}
	return m / 60
}

// MinutesOfDay parses an "HH:MM" clock string into minutes since midnight.
func MinutesOfDay(clock string) (int, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock string %q", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", clock)
	}
	return h*60 + m, nil
}

// DateOnly truncates a timestamp to midnight UTC for date comparisons.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
