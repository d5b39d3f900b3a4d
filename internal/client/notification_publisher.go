package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-vendor-onboarding/internal/natsclient"
)

// NotificationPublisher publishes vendor workflow events to NATS JetStream
// for consumption by the be-plt-notifications service.
//
// Subject convention: notifications.vendors.<event_type>
// Event types mirror the audit trail: vendor_created, form_submitted,
// decision_recorded, vendor_onboarded, vendor_rejected, and so on.
//
// All publish operations are non-fatal — errors are logged but never propagated
// to the caller, so notification failures never interrupt workflow operations.
type NotificationPublisher struct {
	nats *natsclient.Client
	log  zerolog.Logger
}

// VendorEvent is the JSON schema published to NATS.
type VendorEvent struct {
	EventType    string                 `json:"event_type"`
	VendorID     string                 `json:"vendor_id"`
	ActorID      string                 `json:"actor_id"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS client.
func NewNotificationPublisher(nats *natsclient.Client, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{nats: nats, log: log}
}

// PublishVendorEvent publishes a vendor workflow event to NATS.
// Subject: notifications.vendors.<event_type> (lowercased).
func (p *NotificationPublisher) PublishVendorEvent(ctx context.Context, eventType, vendorID, actor string, payload map[string]interface{}) {
	if p.nats == nil {
		return
	}

	event := &VendorEvent{
		EventType:    strings.ToLower(eventType),
		VendorID:     vendorID,
		ActorID:      actor,
		ResourceType: "vendor",
		ResourceID:   vendorID,
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.vendors.%s", event.EventType)
	if err := p.nats.Publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("vendor_id", vendorID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("vendor_id", vendorID).
		Msg("notification: event published")
}
