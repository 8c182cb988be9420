package models

import (
	"net"
	"time"
)

type SourceNodeType string

const (
	SourceNodeServer SourceNodeType = "SERVER"
	SourceNodeRadio  SourceNodeType = "RADIO"
)

// SourceNode records one hop a raw message took before reaching this node.
type SourceNode struct {
	Type    SourceNodeType `json:"type"`
	InputID string         `json:"input_id"`
	NodeID  string         `json:"node_id"`
}

// RemoteAddress is the peer a transport accepted the payload from. Hostname is
// only meaningful when ReverseLookedUp is set by the transport.
type RemoteAddress struct {
	IP              net.IP `json:"ip"`
	Port            int    `json:"port,omitempty"`
	Hostname        string `json:"hostname,omitempty"`
	ReverseLookedUp bool   `json:"reverse_looked_up,omitempty"`
}

// RawMessage is a captured payload that has not been decoded yet.
type RawMessage struct {
	ID            string                 `json:"id"`
	Payload       []byte                 `json:"payload"`
	CodecName     string                 `json:"codec_name"`
	CodecConfig   map[string]interface{} `json:"codec_config,omitempty"`
	SourceNodes   []SourceNode           `json:"source_nodes,omitempty"`
	RemoteAddress *RemoteAddress         `json:"remote_address,omitempty"`
	JournalOffset int64                  `json:"journal_offset"`
	ReceivedAt    time.Time              `json:"received_at,omitempty"`

	// PartitionKey is assigned by the consumer and never serialized.
	PartitionKey string `json:"-"`
}

func (r *RawMessage) AddSourceNode(nodeType SourceNodeType, inputID, nodeID string) {
	r.SourceNodes = append(r.SourceNodes, SourceNode{
		Type:    nodeType,
		InputID: inputID,
		NodeID:  nodeID,
	})
}

// LastServerNode returns the last SERVER hop, which identifies the input on
// the current node that accepted the message.
func (r *RawMessage) LastServerNode() (SourceNode, bool) {
	for i := len(r.SourceNodes) - 1; i >= 0; i-- {
		if r.SourceNodes[i].Type == SourceNodeServer {
			return r.SourceNodes[i], true
		}
	}
	return SourceNode{}, false
}

// Release drops the payload once the message has been decoded.
func (r *RawMessage) Release() {
	r.Payload = nil
}
