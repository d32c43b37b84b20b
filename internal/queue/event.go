package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subjects carried on the bus.
const (
	SubjectDocumentSyncRequested = "documents.sync.requested"
	SubjectWebURISyncRequested   = "weburi.sync.requested"
	SubjectSyncResults           = "sync.results"
	SubjectMessengerEvents       = "messenger.events"
	SubjectMetaWebhook           = "meta.webhook.received"
)

const eventVersion = 1

// Event is the envelope published for every subject.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	CompanyID  string          `json:"companyId,omitempty"`
	RequestID  string          `json:"requestId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt string          `json:"enqueuedAt"`
	Version    int             `json:"version"`
}

// NewEvent marshals payload into a fresh envelope.
func NewEvent(eventType, companyID, requestID string, payload any) (Event, error) {
	if strings.TrimSpace(eventType) == "" {
		return Event{}, errors.New("event type is required")
	}
	ev := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		CompanyID:  companyID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Version:    eventVersion,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
		}
		ev.Payload = raw
	}
	return ev, nil
}

// EncodeEvent returns the JSON representation of an event.
func EncodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent parses a JSON payload into an Event.
func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// DecodePayload unmarshals the event payload into v.
func (e Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return errors.New("event payload is empty")
	}
	return json.Unmarshal(e.Payload, v)
}
