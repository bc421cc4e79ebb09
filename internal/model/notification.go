package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification event types published for waitlist activity. Delivery is
// handled by a downstream consumer; the engine only signals.
const (
	NotifyOfferCreated  = "offer_created"
	NotifyOfferAccepted = "offer_accepted"
	NotifyOfferDeclined = "offer_declined"
	NotifyOfferExpired  = "offer_expired"
	NotifyEntryExpired  = "entry_expired"
)

type NotificationEvent struct {
	ID              uuid.UUID              `json:"id"`
	WaitlistEntryID uuid.UUID              `json:"waitlist_entry_id"`
	EventType       string                 `json:"event_type"`
	Payload         map[string]interface{} `json:"payload,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}
