package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates protocol messages exchanged with connectors.
type MessageType string

// Known protocol message types. Unknown is the forward-compatibility
// variant for type values this build does not recognise; such messages are
// passed through and logged, never treated as errors.
const (
	MessageRecord           MessageType = "RECORD"
	MessageState            MessageType = "STATE"
	MessageLog              MessageType = "LOG"
	MessageTrace            MessageType = "TRACE"
	MessageConnectionStatus MessageType = "CONNECTION_STATUS"
	MessageSpec             MessageType = "SPEC"
	MessageCatalog          MessageType = "CATALOG"
	MessageUnknown          MessageType = "UNKNOWN"
)

// Connection status values reported by the check operation.
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// Log levels emitted in LOG messages.
const (
	LogLevelFatal = "FATAL"
	LogLevelError = "ERROR"
	LogLevelWarn  = "WARN"
	LogLevelInfo  = "INFO"
	LogLevelDebug = "DEBUG"
	LogLevelTrace = "TRACE"
)

// Message is one line of the connector protocol: a discriminated union
// over the known type values. Exactly one variant pointer is set for known
// types; unknown types keep only Type and Raw.
type Message struct {
	// Type is the wire discriminator, preserved verbatim.
	Type MessageType `json:"type"`

	// Record carries a data payload for one stream.
	Record *Record `json:"record,omitempty"`

	// State carries a resumption checkpoint, stream-scoped or global.
	State *State `json:"state,omitempty"`

	// Log carries a human-readable diagnostic.
	Log *LogMessage `json:"log,omitempty"`

	// Trace carries a control payload, opaque to the core.
	Trace json.RawMessage `json:"trace,omitempty"`

	// ConnectionStatus reports the result of a check operation.
	ConnectionStatus *ConnectionStatus `json:"connectionStatus,omitempty"`

	// Spec and Catalog are pass-through payloads for the spec and
	// discover operations.
	Spec    json.RawMessage `json:"spec,omitempty"`
	Catalog json.RawMessage `json:"catalog,omitempty"`

	// Raw is the original protocol line, kept so captured messages can be
	// re-emitted byte-for-byte when feeding a destination.
	Raw []byte `json:"-"`

	// Malformed marks a line that did not parse as a protocol message.
	// Such messages carry only Raw; the consumer logs and skips them
	// without aborting the stream.
	Malformed bool `json:"-"`
}

// Record is the RECORD variant: one data payload plus its stream name and
// emission time.
type Record struct {
	Stream    string          `json:"stream"`
	EmittedAt int64           `json:"emitted_at"`
	Data      json.RawMessage `json:"data"`
}

// State is the STATE variant. Stream-scoped states carry a descriptor and
// per-stream checkpoint; legacy global states carry only Data. Both forms
// are opaque to the core beyond storage.
type State struct {
	Type   string          `json:"type,omitempty"`
	Stream *StreamState    `json:"stream,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// StreamState scopes a checkpoint to one named stream.
type StreamState struct {
	StreamDescriptor StreamDescriptor `json:"stream_descriptor"`
	StreamState      json.RawMessage  `json:"stream_state,omitempty"`
}

// StreamDescriptor names a stream, optionally within a namespace.
type StreamDescriptor struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

// LogMessage is the LOG variant.
type LogMessage struct {
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}

// ConnectionStatus is the CONNECTION_STATUS variant.
type ConnectionStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StreamName returns the name of the stream this state is scoped to, or
// empty for global states.
func (s *State) StreamName() string {
	if s.Stream == nil {
		return ""
	}
	return s.Stream.StreamDescriptor.Name
}

// Checkpoint returns the checkpoint value this state carries: the
// per-stream state when present, falling back to the whole data document.
func (s *State) Checkpoint() json.RawMessage {
	if s.Stream != nil && len(s.Stream.StreamState) > 0 {
		return s.Stream.StreamState
	}
	return s.Data
}

// Kind normalises the wire type to one of the known variants, mapping
// anything unrecognised to Unknown.
func (m *Message) Kind() MessageType {
	switch m.Type {
	case MessageRecord, MessageState, MessageLog, MessageTrace,
		MessageConnectionStatus, MessageSpec, MessageCatalog:
		return m.Type
	default:
		return MessageUnknown
	}
}

// ParseMessage parses one protocol line. Lines that are not JSON objects
// with a type field fail with ErrMalformedMessage; the caller logs and
// skips them without aborting the stream.
func ParseMessage(line []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type field", ErrMalformedMessage)
	}
	raw := make([]byte, len(line))
	copy(raw, line)
	msg.Raw = raw
	return &msg, nil
}

// NewMalformedMessage wraps a line that failed to parse so it can still
// travel the message stream. Kind() reports MessageUnknown; Malformed
// distinguishes it from a well-formed message of an unrecognised type.
func NewMalformedMessage(line []byte) *Message {
	raw := make([]byte, len(line))
	copy(raw, line)
	return &Message{Raw: raw, Malformed: true}
}
