package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
)

const (
	// StreamName is the name of the audit stream.
	StreamName = "CONCIERGE"

	// SubjectPrefix is the prefix for all audit subjects.
	SubjectPrefix = "concierge"
)

// Publisher records chat messages and call lifecycle transitions on the
// audit stream.
type Publisher interface {
	PublishMessage(ctx context.Context, msg *model.Message) error
	PublishCallEvent(ctx context.Context, sessionID string, call *model.Call) error
}

// NoopPublisher discards all events; wired when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishMessage(context.Context, *model.Message) error { return nil }
func (NoopPublisher) PublishCallEvent(context.Context, string, *model.Call) error {
	return nil
}

// StreamPublisher publishes to JetStream.
type StreamPublisher struct {
	client *Client
}

// NewStreamPublisher creates a JetStream-backed publisher.
func NewStreamPublisher(client *Client) *StreamPublisher {
	return &StreamPublisher{client: client}
}

// EnsureStream ensures the audit stream exists with proper configuration.
func (p *StreamPublisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Concierge session messages and call lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for a chat message.
func MessageSubject(sessionID string, role model.Role) string {
	return fmt.Sprintf("%s.%s.msg.%s", SubjectPrefix, sessionID, role)
}

// CallSubject returns the subject for a call lifecycle event.
func CallSubject(sessionID string, status model.CallStatus) string {
	return fmt.Sprintf("%s.%s.call.%s", SubjectPrefix, sessionID, status)
}

// PublishMessage publishes a chat message to the audit stream.
func (p *StreamPublisher) PublishMessage(ctx context.Context, msg *model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = p.client.JetStream().Publish(ctx, MessageSubject(msg.SessionID, msg.Role), data)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// callEvent is the audit record for one call status transition.
type callEvent struct {
	SessionID       string                  `json:"session_id"`
	CallID          string                  `json:"call_id"`
	VendorID        string                  `json:"vendor_id"`
	Status          model.CallStatus        `json:"status"`
	Stage           model.Stage             `json:"stage"`
	NegotiatedPrice int                     `json:"negotiated_price,omitempty"`
	At              time.Time               `json:"at"`
	Conversation    model.ConversationState `json:"conversation_state"`
}

// PublishCallEvent publishes a call lifecycle transition.
func (p *StreamPublisher) PublishCallEvent(ctx context.Context, sessionID string, call *model.Call) error {
	ev := callEvent{
		SessionID:       sessionID,
		CallID:          call.ID,
		VendorID:        call.VendorID,
		Status:          call.Status,
		Stage:           call.Conversation.Stage,
		NegotiatedPrice: call.NegotiatedPrice,
		At:              time.Now(),
		Conversation:    call.Conversation,
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal call event: %w", err)
	}

	_, err = p.client.JetStream().Publish(ctx, CallSubject(sessionID, call.Status), data)
	if err != nil {
		return fmt.Errorf("failed to publish call event: %w", err)
	}
	return nil
}
