package execution

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Message is the envelope a surrounding job-processing system moves between
// processes: the entrypoint names the task type to run, params and metadata
// carry the untyped payloads, and the result threads the accumulated outcome
// through a chain of remote executions.
type Message struct {
	id         uuid.UUID
	entrypoint string
	params     map[string]any
	metadata   map[string]any
	result     Result
}

// MessageOption configures a Message during construction.
type MessageOption func(*Message)

// WithMessageUUID pins the envelope to an existing identifier instead of a
// fresh one.
func WithMessageUUID(id uuid.UUID) MessageOption {
	return func(m *Message) {
		m.id = id
		m.result = NewResult(WithUUID(id))
	}
}

// WithMessageParams seeds the parameter payload. The map is copied.
func WithMessageParams(params map[string]any) MessageOption {
	return func(m *Message) {
		for k, v := range params {
			m.params[k] = v
		}
	}
}

// WithMessageMetadata seeds the metadata payload. The map is copied.
func WithMessageMetadata(metadata map[string]any) MessageOption {
	return func(m *Message) {
		for k, v := range metadata {
			m.metadata[k] = v
		}
	}
}

// WithMessageResult attaches an existing result to the envelope.
func WithMessageResult(res Result) MessageOption {
	return func(m *Message) { m.result = res }
}

// NewMessage creates an envelope for the given entrypoint with a fresh
// identifier, empty payloads, and an empty result carrying that identifier.
func NewMessage(entrypoint string, opts ...MessageOption) Message {
	id := uuid.New()
	m := Message{
		id:         id,
		entrypoint: entrypoint,
		params:     make(map[string]any),
		metadata:   make(map[string]any),
		result:     NewResult(WithUUID(id)),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// MessageFromTask wraps a task's identity and accumulated result in an
// envelope, ready to be handed to a transport.
func MessageFromTask(t Task) Message {
	return NewMessage(t.Path(),
		WithMessageUUID(t.UUID()),
		WithMessageResult(t.Result()),
	)
}

// UUID returns the envelope's identifier.
func (m Message) UUID() uuid.UUID { return m.id }

// Entrypoint returns the task type the envelope targets.
func (m Message) Entrypoint() string { return m.entrypoint }

// Params returns the parameter payload. The map is shared with the Message.
func (m Message) Params() map[string]any { return m.params }

// Metadata returns the metadata payload. The map is shared with the Message.
func (m Message) Metadata() map[string]any { return m.metadata }

// Result returns the accumulated result threaded through the envelope.
func (m Message) Result() Result { return m.result }

// SetResult replaces the accumulated result threaded through the envelope.
func (m *Message) SetResult(res Result) { m.result = res }

// NewResult creates an empty result correlated to this envelope's identifier.
func (m Message) NewResult() Result {
	return NewResult(WithUUID(m.id))
}

// messageDTO is the stable external representation of a Message.
type messageDTO struct {
	UUID       string         `json:"uuid"`
	Entrypoint string         `json:"entrypoint"`
	Params     map[string]any `json:"params"`
	Metadata   map[string]any `json:"metadata"`
	Result     *Result        `json:"result"`
}

// MarshalJSON serializes the Message for transport.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageDTO{
		UUID:       m.id.String(),
		Entrypoint: m.entrypoint,
		Params:     m.params,
		Metadata:   m.metadata,
		Result:     &m.result,
	})
}

// UnmarshalJSON deserializes a Message received from transport. An absent or
// empty result defaults to an empty one correlated to the envelope, so thin
// producers can omit it.
func (m *Message) UnmarshalJSON(data []byte) error {
	var dto messageDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}

	id, err := uuid.Parse(dto.UUID)
	if err != nil {
		return fmt.Errorf("invalid message uuid: %w", err)
	}

	m.id = id
	m.entrypoint = dto.Entrypoint
	m.params = dto.Params
	m.metadata = dto.Metadata
	if m.params == nil {
		m.params = make(map[string]any)
	}
	if m.metadata == nil {
		m.metadata = make(map[string]any)
	}

	if dto.Result == nil {
		m.result = NewResult(WithUUID(id))
	} else {
		m.result = *dto.Result
		if m.result.id == uuid.Nil {
			m.result.id = id
		}
	}

	return nil
}
