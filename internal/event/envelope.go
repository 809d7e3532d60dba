// Package event carries domain change notifications from request handlers to
// Kafka. Handlers build an Envelope after a mutation commits and hand it to a
// Publisher; delivery is best effort and never awaited by the handler.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Kind is the mutation an Envelope reports.
type Kind string

const (
	Created Kind = "Created"
	Updated Kind = "Updated"
	Deleted Kind = "Deleted"
)

func (k Kind) Valid() bool {
	switch k {
	case Created, Updated, Deleted:
		return true
	}
	return false
}

// Envelope is a timestamped notification of a mutation to one subject.
type Envelope struct {
	ID         string
	Kind       Kind
	SubjectID  string
	Payload    any
	OccurredAt time.Time
}

// New builds an Envelope stamped with a fresh KSUID and the current time.
func New(kind Kind, subjectID string, payload any) Envelope {
	return Envelope{
		ID:         utilities.NewKSUID(),
		Kind:       kind,
		SubjectID:  subjectID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// wireEnvelope is the JSON body consumers read.
type wireEnvelope struct {
	EventType Kind   `json:"event_type"`
	ProductID string `json:"product_id"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if !e.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return json.Marshal(wireEnvelope{
		EventType: e.Kind,
		ProductID: e.SubjectID,
		Payload:   e.Payload,
		Timestamp: e.OccurredAt.UnixMilli(),
	})
}

// Record is one message ready for the transport.
type Record struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// encode turns e into the Kafka record for topic, keyed by subject id.
func encode(topic string, e Envelope) (Record, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("marshal envelope: %w", err)
	}
	headers := map[string]string{"event_type": string(e.Kind)}
	if e.ID != "" {
		headers["event_id"] = e.ID
	}
	return Record{
		Topic:   topic,
		Key:     []byte(e.SubjectID),
		Value:   body,
		Headers: headers,
	}, nil
}
