package models

import "time"

type ConfigUpdateEvent struct {
	EventType   string                 `json:"event_type"`   // "streams_updated", "inputs_updated"
	ServiceType string                 `json:"service_type"` // "routing"
	StreamID    string                 `json:"stream_id,omitempty"`
	InputID     string                 `json:"input_id,omitempty"`
	Action      string                 `json:"action"` // "create", "update", "delete", "toggle", "reload"
	Timestamp   time.Time              `json:"timestamp"`
	ChangedBy   string                 `json:"changed_by,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

const (
	EventTypeStreamsUpdated = "streams_updated"
	EventTypeInputsUpdated  = "inputs_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionToggle = "toggle"
	ActionReload = "reload"
)

const (
	ServiceTypeRouting = "routing"
)
