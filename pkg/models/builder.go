package models

import (
	"net"
	"time"

	"github.com/google/uuid"
)

type RawMessageBuilder struct {
	raw *RawMessage
}

func NewRawMessageBuilder(codecName string, payload []byte) *RawMessageBuilder {
	return &RawMessageBuilder{
		raw: &RawMessage{
			Payload:     payload,
			CodecName:   codecName,
			CodecConfig: make(map[string]interface{}),
		},
	}
}

func (b *RawMessageBuilder) WithID(id string) *RawMessageBuilder {
	b.raw.ID = id
	return b
}

func (b *RawMessageBuilder) WithCodecConfig(cfg map[string]interface{}) *RawMessageBuilder {
	b.raw.CodecConfig = cfg
	return b
}

func (b *RawMessageBuilder) WithServerNode(inputID, nodeID string) *RawMessageBuilder {
	b.raw.AddSourceNode(SourceNodeServer, inputID, nodeID)
	return b
}

func (b *RawMessageBuilder) WithRadioNode(inputID, nodeID string) *RawMessageBuilder {
	b.raw.AddSourceNode(SourceNodeRadio, inputID, nodeID)
	return b
}

func (b *RawMessageBuilder) WithRemoteAddress(ip net.IP, port int) *RawMessageBuilder {
	b.raw.RemoteAddress = &RemoteAddress{IP: ip, Port: port}
	return b
}

// WithResolvedRemoteAddress marks the address as already reverse resolved by
// the transport.
func (b *RawMessageBuilder) WithResolvedRemoteAddress(ip net.IP, port int, hostname string) *RawMessageBuilder {
	b.raw.RemoteAddress = &RemoteAddress{IP: ip, Port: port, Hostname: hostname, ReverseLookedUp: true}
	return b
}

func (b *RawMessageBuilder) WithJournalOffset(offset int64) *RawMessageBuilder {
	b.raw.JournalOffset = offset
	return b
}

func (b *RawMessageBuilder) WithReceivedAt(t time.Time) *RawMessageBuilder {
	b.raw.ReceivedAt = t
	return b
}

func (b *RawMessageBuilder) Build() *RawMessage {
	if b.raw.ID == "" {
		b.raw.ID = uuid.New().String()
	}
	if b.raw.ReceivedAt.IsZero() {
		b.raw.ReceivedAt = time.Now()
	}
	return b.raw
}
