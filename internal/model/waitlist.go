package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type WaitlistStatus string

const (
	WaitlistStatusActive    WaitlistStatus = "ACTIVE"
	WaitlistStatusOffered   WaitlistStatus = "OFFERED"
	WaitlistStatusMatched   WaitlistStatus = "MATCHED"
	WaitlistStatusScheduled WaitlistStatus = "SCHEDULED"
	WaitlistStatusExpired   WaitlistStatus = "EXPIRED"
)

// waitlistTransitions enumerates the legal status moves. SCHEDULED and
// EXPIRED are terminal.
var waitlistTransitions = map[WaitlistStatus][]WaitlistStatus{
	WaitlistStatusActive:  {WaitlistStatusOffered, WaitlistStatusScheduled, WaitlistStatusExpired},
	WaitlistStatusOffered: {WaitlistStatusActive, WaitlistStatusMatched},
	WaitlistStatusMatched: {WaitlistStatusScheduled},
}

func (s WaitlistStatus) CanTransitionTo(next WaitlistStatus) bool {
	for _, allowed := range waitlistTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PriorityLevel string

const (
	PriorityUrgent PriorityLevel = "Urgent"
	PriorityHigh   PriorityLevel = "High"
	PriorityNormal PriorityLevel = "Normal"
	PriorityLow    PriorityLevel = "Low"
)

// UrgencyScore maps the clinical priority level to a normalized weight.
func (p PriorityLevel) UrgencyScore() float64 {
	switch p {
	case PriorityUrgent:
		return 1.0
	case PriorityHigh:
		return 0.75
	case PriorityLow:
		return 0.25
	default:
		return 0.5
	}
}

type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "MORNING"
	TimeOfDayAfternoon TimeOfDay = "AFTERNOON"
	TimeOfDayEvening   TimeOfDay = "EVENING"
	TimeOfDayAnytime   TimeOfDay = "Anytime"
)

// TimeOfDayForHour buckets a slot start hour: before noon is morning,
// before 17:00 is afternoon, the rest is evening.
func TimeOfDayForHour(hour int) TimeOfDay {
	switch {
	case hour < 12:
		return TimeOfDayMorning
	case hour < 17:
		return TimeOfDayAfternoon
	default:
		return TimeOfDayEvening
	}
}

// WaitlistEntry is a client's standing request for an appointment slot.
// Preferred days are stored as uppercase weekday names, preferred times as
// TimeOfDay values.
type WaitlistEntry struct {
	ID                    uuid.UUID      `db:"id" json:"id"`
	ClientID              uuid.UUID      `db:"client_id" json:"client_id"`
	RequestedClinicianID  uuid.UUID      `db:"requested_clinician_id" json:"requested_clinician_id"`
	AlternateClinicianIDs pq.StringArray `db:"alternate_clinician_ids" json:"alternate_clinician_ids"`
	PreferredProviderID   *uuid.UUID     `db:"preferred_provider_id" json:"preferred_provider_id,omitempty"`
	PreferredDays         pq.StringArray `db:"preferred_days" json:"preferred_days"`
	PreferredTimes        pq.StringArray `db:"preferred_times" json:"preferred_times"`
	AppointmentType       string         `db:"appointment_type" json:"appointment_type"`
	Priority              PriorityLevel  `db:"priority" json:"priority"`
	PriorityScore         float64        `db:"priority_score" json:"priority_score"`
	Status                WaitlistStatus `db:"status" json:"status"`
	AutoMatchEnabled      bool           `db:"auto_match_enabled" json:"auto_match_enabled"`
	AddedDate             time.Time      `db:"added_date" json:"added_date"`
	MaxWaitDays           *int           `db:"max_wait_days" json:"max_wait_days,omitempty"`
	DeclinedOffers        int            `db:"declined_offers" json:"declined_offers"`
	NotificationsSent     int            `db:"notifications_sent" json:"notifications_sent"`
	LastNotifiedAt        *time.Time     `db:"last_notified_at" json:"last_notified_at,omitempty"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

// CandidateClinicianIDs returns the deduplicated set of clinicians whose
// schedules should be searched for this entry: the requested clinician, all
// alternates, and the preferred provider when set.
func (e *WaitlistEntry) CandidateClinicianIDs() []uuid.UUID {
	seen := map[uuid.UUID]bool{e.RequestedClinicianID: true}
	ids := []uuid.UUID{e.RequestedClinicianID}

	for _, raw := range e.AlternateClinicianIDs {
		id, err := uuid.Parse(raw)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if e.PreferredProviderID != nil && !seen[*e.PreferredProviderID] {
		ids = append(ids, *e.PreferredProviderID)
	}
	return ids
}

// PrefersDay reports whether the weekday is acceptable. An empty preference
// list accepts every day.
func (e *WaitlistEntry) PrefersDay(day time.Weekday) bool {
	if len(e.PreferredDays) == 0 {
		return true
	}
	name := WeekdayName(day)
	for _, d := range e.PreferredDays {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// PrefersTimeOfDay reports whether the bucket is acceptable. An empty list
// or an "Anytime" preference accepts every bucket.
func (e *WaitlistEntry) PrefersTimeOfDay(bucket TimeOfDay) bool {
	if len(e.PreferredTimes) == 0 {
		return true
	}
	for _, t := range e.PreferredTimes {
		if TimeOfDay(t) == TimeOfDayAnytime || TimeOfDay(t) == bucket {
			return true
		}
	}
	return false
}

// IsAlternateClinician reports whether the clinician is in the entry's
// alternate set.
func (e *WaitlistEntry) IsAlternateClinician(id uuid.UUID) bool {
	for _, raw := range e.AlternateClinicianIDs {
		if alt, err := uuid.Parse(raw); err == nil && alt == id {
			return true
		}
	}
	return false
}

// WeekdayName returns the uppercase weekday name used in preference lists.
func WeekdayName(day time.Weekday) string {
	return strings.ToUpper(day.String())
}

type WaitlistEntryFilters struct {
	Status           WaitlistStatus
	ClinicianID      uuid.UUID
	AppointmentType  string
	AutoMatchEnabled *bool
}
