package network

import (
	"context"

	"roomnav/logging"
)

const (
	// EventSessionOpened is emitted when a websocket session subscribes.
	EventSessionOpened logging.EventType = "network.session_opened"
	// EventSessionClosed is emitted when a session disconnects or fails a write.
	EventSessionClosed logging.EventType = "network.session_closed"
	// EventMessageRejected is emitted when a client message cannot be served.
	EventMessageRejected logging.EventType = "network.message_rejected"
)

type SessionPayload struct {
	Sessions int `json:"sessions"`
}

// RejectPayload captures why a client message was refused.
type RejectPayload struct {
	MessageType string `json:"messageType,omitempty"`
	Seq         uint64 `json:"seq,omitempty"`
	Reason      string `json:"reason"`
}

func SessionOpened(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionOpened,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

func SessionClosed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionClosed,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}

// MessageRejected publishes a debug event for a refused client message.
func MessageRejected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RejectPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMessageRejected,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
