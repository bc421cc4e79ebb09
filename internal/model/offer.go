package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "PENDING"
	OfferStatusAccepted OfferStatus = "ACCEPTED"
	OfferStatusDeclined OfferStatus = "DECLINED"
	OfferStatusExpired  OfferStatus = "EXPIRED"
)

// Terminal reports whether the offer can no longer change state. Every
// non-pending status is terminal.
func (s OfferStatus) Terminal() bool {
	return s != OfferStatusPending
}

func (s OfferStatus) CanTransitionTo(next OfferStatus) bool {
	return s == OfferStatusPending && next.Terminal()
}

// WaitlistOffer is a time-bounded proposal of one slot to one waitlist
// entry. The slot fields are a snapshot taken at creation; offers are kept
// as history and never deleted.
type WaitlistOffer struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	WaitlistEntryID uuid.UUID      `db:"waitlist_entry_id" json:"waitlist_entry_id"`
	ClinicianID     uuid.UUID      `db:"clinician_id" json:"clinician_id"`
	SlotDate        time.Time      `db:"slot_date" json:"slot_date"`
	StartTime       string         `db:"start_time" json:"start_time"`
	EndTime         string         `db:"end_time" json:"end_time"`
	AppointmentType string         `db:"appointment_type" json:"appointment_type"`
	Status          OfferStatus    `db:"status" json:"status"`
	MatchScore      float64        `db:"match_score" json:"match_score"`
	MatchReasons    pq.StringArray `db:"match_reasons" json:"match_reasons"`
	DeclineReason   *string        `db:"decline_reason" json:"decline_reason,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	ExpiresAt       time.Time      `db:"expires_at" json:"expires_at"`
	RespondedAt     *time.Time     `db:"responded_at" json:"responded_at,omitempty"`
}

// Expired reports whether the offer deadline has passed. An offer is only
// acceptable strictly before its deadline, so the exact instant counts as
// expired.
func (o *WaitlistOffer) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// Slot rebuilds the slot snapshot carried by the offer.
func (o *WaitlistOffer) Slot() SlotCandidate {
	return SlotCandidate{
		ClinicianID: o.ClinicianID,
		Date:        o.SlotDate,
		StartTime:   o.StartTime,
		EndTime:     o.EndTime,
	}
}

// OfferOutcome is the caller-supplied resolution for a pending offer.
type OfferOutcome string

const (
	OfferOutcomeAccept  OfferOutcome = "accept"
	OfferOutcomeDecline OfferOutcome = "decline"
)
