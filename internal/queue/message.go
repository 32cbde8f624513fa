package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/ir"
)

// Topics.
const (
	TopicReconcileRequest = "replicon.reconcile.request"
	TopicReplicationApply = "replicon.replication.apply"
	TopicDriftCheck       = "replicon.drift.check"
)

// ErrClosed is returned by consumers and publishers after Close.
var ErrClosed = errors.New("queue closed")

// Message is one delivery of a payload.
type Message struct {
	ID      string
	Topic   string
	Key     string
	Body    []byte
	Attempt int

	// handle is the backend's own record of the delivery.
	handle any
}

// Publisher sends messages.
type Publisher interface {
	Publish(ctx context.Context, msgs ...Message) error
}

// Consumer receives messages from one topic.
type Consumer interface {
	// Receive blocks until a message is available, ctx is done, or the
	// consumer is closed.
	Receive(ctx context.Context) (Message, error)
	// Ack marks a message as handled.
	Ack(ctx context.Context, m Message) error
	// Nack hands a message back for redelivery.
	Nack(ctx context.Context, m Message) error
	Close() error
}

// NewMessage encodes payload into a message with a fresh time-ordered id.
func NewMessage(topic, key string, payload any) (Message, error) {
	body, err := encode(payload)
	if err != nil {
		return Message{}, fmt.Errorf("new message on %s: %w", topic, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Message{}, fmt.Errorf("new message on %s: %w", topic, err)
	}
	return Message{ID: id.String(), Topic: topic, Key: key, Body: body, Attempt: 1}, nil
}

// Decode decodes the message body into v.
func (m Message) Decode(v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(m.Body))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s message %s: %w", m.Topic, m.ID, err)
	}
	return nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReconcileRequest asks for one reconciliation pass over a scope.
type ReconcileRequest struct {
	Filter filter.Envelope `json:"filter"`
}

// NewReconcileRequest builds the request message for f, keyed by scope so
// that requests for one scope share a partition.
func NewReconcileRequest(f filter.Filter) (Message, error) {
	env, err := filter.ToEnvelope(f)
	if err != nil {
		return Message{}, err
	}
	return NewMessage(TopicReconcileRequest, ir.ScopeHash(f.ScopeKey()), ReconcileRequest{Filter: env})
}

// ApplyBatch is one page of change events for a single object type.
type ApplyBatch struct {
	ObjectType ir.ObjectType    `json:"object_type"`
	Events     []ir.ChangeEvent `json:"events"`
}

// NewApplyBatch builds the apply message for a page of events.
func NewApplyBatch(objectType ir.ObjectType, events []ir.ChangeEvent) (Message, error) {
	return NewMessage(TopicReplicationApply, string(objectType), ApplyBatch{ObjectType: objectType, Events: events})
}

// DriftCheck asks for a summary comparison of a batch of containers.
type DriftCheck struct {
	ObjectType   ir.ObjectType `json:"object_type"`
	SubTypes     []ir.SubType  `json:"sub_types"`
	ContainerIDs []int64       `json:"container_ids"`
}

// NewDriftCheck builds the drift-check message for a container batch.
func NewDriftCheck(check DriftCheck) (Message, error) {
	return NewMessage(TopicDriftCheck, string(check.ObjectType), check)
}
