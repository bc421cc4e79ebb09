package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Changes    json.RawMessage `json:"changes" db:"changes"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionScoreUpdated  = "score_updated"
	AuditActionCycleRun      = "matching_cycle_run"
	AuditActionOfferCreated  = "offer_created"
	AuditActionOfferAccepted = "offer_accepted"
	AuditActionOfferDeclined = "offer_declined"
	AuditActionOfferExpired  = "offer_expired"
	AuditActionEntryExpired  = "entry_expired"

	// Entity types
	AuditEntityWaitlistEntry = "waitlist_entry"
	AuditEntityWaitlistOffer = "waitlist_offer"
	AuditEntityMatchingCycle = "matching_cycle"
)
