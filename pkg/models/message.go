package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	FieldID        = "_id"
	FieldMessage   = "message"
	FieldSource    = "source"
	FieldTimestamp = "timestamp"

	FieldSourceInput      = "gl2_source_input"
	FieldSourceNode       = "gl2_source_node"
	FieldSourceRadioInput = "gl2_source_radio_input"
	FieldSourceRadio      = "gl2_source_radio"

	FieldRemoteIP       = "gl2_remote_ip"
	FieldRemotePort     = "gl2_remote_port"
	FieldRemoteHostname = "gl2_remote_hostname"

	ReservedFieldPrefix = "gl2_"
)

// IsReservedField reports whether key belongs to the pipeline and must not be
// taken from client payloads.
func IsReservedField(key string) bool {
	return key == FieldID || strings.HasPrefix(key, ReservedFieldPrefix)
}

// InputMetadata is a read-only snapshot of a running input.
type InputMetadata struct {
	ID          string `json:"id"`
	PersistedID string `json:"persisted_id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	NodeID      string `json:"node_id,omitempty"`
	Global      bool   `json:"global"`
}

type Timing struct {
	Name     string
	Duration time.Duration
}

// Message is a decoded, routable log event. It is owned by a single pipeline
// partition and is not safe for concurrent mutation.
type Message struct {
	fields        map[string]interface{}
	timings       []Timing
	JournalOffset int64
	SourceInput   *InputMetadata
}

func NewMessage(message, source string, timestamp time.Time) *Message {
	m := &Message{fields: make(map[string]interface{}, 8)}
	m.fields[FieldID] = uuid.New().String()
	m.fields[FieldMessage] = message
	m.fields[FieldSource] = source
	m.fields[FieldTimestamp] = timestamp.UTC()
	return m
}

func (m *Message) ID() string {
	id, _ := m.fields[FieldID].(string)
	return id
}

// IsComplete reports whether every mandatory field is present and non-empty.
func (m *Message) IsComplete() bool {
	for _, key := range []string{FieldID, FieldMessage, FieldSource, FieldTimestamp} {
		value, ok := m.fields[key]
		if !ok || value == nil {
			return false
		}
		if s, isString := value.(string); isString && s == "" {
			return false
		}
	}
	return true
}

func (m *Message) AddField(key string, value interface{}) {
	if key == "" || value == nil {
		return
	}
	if s, ok := value.(string); ok && s == "" {
		return
	}
	m.fields[key] = value
}

func (m *Message) AddFields(fields map[string]interface{}) {
	for k, v := range fields {
		m.AddField(k, v)
	}
}

func (m *Message) GetField(key string) interface{} {
	return m.fields[key]
}

func (m *Message) HasField(key string) bool {
	_, ok := m.fields[key]
	return ok
}

func (m *Message) RemoveField(key string) {
	switch key {
	case FieldID, FieldMessage, FieldSource, FieldTimestamp:
		return
	}
	delete(m.fields, key)
}

// Fields returns the live field map. Callers must treat it as read-only.
func (m *Message) Fields() map[string]interface{} {
	return m.fields
}

func (m *Message) FieldNames() []string {
	names := make([]string, 0, len(m.fields))
	for k := range m.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (m *Message) RecordTiming(name string, d time.Duration) {
	m.timings = append(m.timings, Timing{Name: name, Duration: d})
}

func (m *Message) Timings() []Timing {
	out := make([]Timing, len(m.timings))
	copy(out, m.timings)
	return out
}

func (m *Message) String() string {
	return fmt.Sprintf("source: %v | message: %v", m.fields[FieldSource], m.fields[FieldMessage])
}

// ErrProvenanceConflict is returned when a second provenance pair of the same
// kind is written onto a message.
var ErrProvenanceConflict = fmt.Errorf("provenance already set")

func (m *Message) SetServerProvenance(inputID, nodeID string) error {
	if m.HasField(FieldSourceInput) {
		return fmt.Errorf("%w: multiple server nodes", ErrProvenanceConflict)
	}
	m.AddField(FieldSourceInput, inputID)
	m.AddField(FieldSourceNode, nodeID)
	return nil
}

func (m *Message) SetRadioProvenance(inputID, nodeID string) error {
	if m.HasField(FieldSourceRadioInput) {
		return fmt.Errorf("%w: multiple radio nodes", ErrProvenanceConflict)
	}
	m.AddField(FieldSourceRadioInput, inputID)
	m.AddField(FieldSourceRadio, nodeID)
	return nil
}
