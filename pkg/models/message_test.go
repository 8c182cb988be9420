package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_IsComplete(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		source   string
		expected bool
	}{
		{name: "all mandatory fields", message: "hello", source: "host-1", expected: true},
		{name: "empty message", message: "", source: "host-1", expected: false},
		{name: "empty source", message: "hello", source: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewMessage(tt.message, tt.source, time.Now())
			assert.Equal(t, tt.expected, msg.IsComplete())
			assert.NotEmpty(t, msg.ID())
		})
	}
}

func TestMessage_AddFieldSkipsEmptyValues(t *testing.T) {
	msg := NewMessage("hello", "host-1", time.Now())

	msg.AddField("empty", "")
	msg.AddField("nil", nil)
	msg.AddField("", "no key")
	msg.AddField("level", 6)

	assert.False(t, msg.HasField("empty"))
	assert.False(t, msg.HasField("nil"))
	assert.False(t, msg.HasField(""))
	assert.Equal(t, 6, msg.GetField("level"))
}

func TestMessage_RemoveFieldKeepsMandatoryFields(t *testing.T) {
	msg := NewMessage("hello", "host-1", time.Now())
	msg.AddField("extra", "x")

	msg.RemoveField(FieldMessage)
	msg.RemoveField("extra")

	assert.True(t, msg.HasField(FieldMessage))
	assert.False(t, msg.HasField("extra"))
	assert.True(t, msg.IsComplete())
}

func TestMessage_ServerProvenanceOnlyOnce(t *testing.T) {
	msg := NewMessage("hello", "host-1", time.Now())

	require.NoError(t, msg.SetServerProvenance("input-1", "node-1"))
	assert.Equal(t, "input-1", msg.GetField(FieldSourceInput))
	assert.Equal(t, "node-1", msg.GetField(FieldSourceNode))

	err := msg.SetServerProvenance("input-2", "node-2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvenanceConflict)
	assert.Equal(t, "input-1", msg.GetField(FieldSourceInput))
}

func TestMessage_RadioProvenanceIndependentOfServer(t *testing.T) {
	msg := NewMessage("hello", "host-1", time.Now())

	require.NoError(t, msg.SetServerProvenance("input-1", "node-1"))
	require.NoError(t, msg.SetRadioProvenance("radio-input", "radio-1"))

	err := msg.SetRadioProvenance("radio-input-2", "radio-2")
	assert.ErrorIs(t, err, ErrProvenanceConflict)
	assert.Equal(t, "radio-1", msg.GetField(FieldSourceRadio))
}

func TestMessage_Timings(t *testing.T) {
	msg := NewMessage("hello", "host-1", time.Now())
	msg.RecordTiming("parse", 2*time.Millisecond)
	msg.RecordTiming("decode", 3*time.Millisecond)

	timings := msg.Timings()
	require.Len(t, timings, 2)
	assert.Equal(t, "parse", timings[0].Name)
	assert.Equal(t, 3*time.Millisecond, timings[1].Duration)
}

func TestNewRoutedMessage(t *testing.T) {
	msg := NewMessage("hello", "host-1", time.Now())
	msg.JournalOffset = 42
	msg.SourceInput = &InputMetadata{ID: "input-1"}
	msg.RecordTiming("decode", 1500*time.Microsecond)

	routed := NewRoutedMessage(msg, nil)

	assert.Equal(t, msg.ID(), routed.ID)
	assert.Equal(t, int64(42), routed.JournalOffset)
	assert.Equal(t, "input-1", routed.SourceInputID)
	assert.NotNil(t, routed.Streams)
	assert.Empty(t, routed.Streams)
	assert.InDelta(t, 1.5, routed.TimingsMs["decode"], 0.001)
}
