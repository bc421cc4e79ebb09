package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/messaging"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/metrics"
)

const notificationChannel = "waitlist:notifications"

// Service signals waitlist events to the delivery pipeline. Publishing is
// fire-and-forget: a failed publish is logged and counted but never fails
// the state transition that triggered it.
type Service interface {
	Notify(ctx context.Context, entryID uuid.UUID, eventType string, payload map[string]interface{})
}

type service struct {
	broker  messaging.Broker
	metrics *metrics.Metrics
}

func NewService(broker messaging.Broker, m *metrics.Metrics) Service {
	return &service{broker: broker, metrics: m}
}

func (s *service) Notify(ctx context.Context, entryID uuid.UUID, eventType string, payload map[string]interface{}) {
	event := &model.NotificationEvent{
		ID:              uuid.New(),
		WaitlistEntryID: entryID,
		EventType:       eventType,
		Payload:         payload,
		CreatedAt:       time.Now(),
	}

	msg := messaging.Message{Type: eventType, Payload: event}
	if err := s.broker.Publish(ctx, notificationChannel, msg); err != nil {
		if s.metrics != nil {
			s.metrics.NotificationFailures.Inc()
		}
		log.Error().Err(err).
			Str("event_type", eventType).
			Str("waitlist_entry_id", entryID.String()).
			Msg("failed to publish notification event")
		return
	}

	if s.metrics != nil {
		s.metrics.NotificationsPublished.WithLabelValues(eventType).Inc()
	}
}
