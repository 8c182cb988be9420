package models

import "time"

// RoutedMessage is what leaves the router: the decoded fields plus the ids of
// every stream the message matched.
type RoutedMessage struct {
	ID            string                 `json:"id"`
	Fields        map[string]interface{} `json:"fields"`
	JournalOffset int64                  `json:"journal_offset"`
	SourceInputID string                 `json:"source_input_id,omitempty"`
	Streams       []string               `json:"streams"`
	TimingsMs     map[string]float64     `json:"timings_ms,omitempty"`
}

func NewRoutedMessage(msg *Message, streamIDs []string) RoutedMessage {
	routed := RoutedMessage{
		ID:            msg.ID(),
		Fields:        msg.Fields(),
		JournalOffset: msg.JournalOffset,
		Streams:       streamIDs,
	}
	if routed.Streams == nil {
		routed.Streams = []string{}
	}
	if msg.SourceInput != nil {
		routed.SourceInputID = msg.SourceInput.ID
	}
	if timings := msg.Timings(); len(timings) > 0 {
		routed.TimingsMs = make(map[string]float64, len(timings))
		for _, t := range timings {
			routed.TimingsMs[t.Name] = float64(t.Duration.Microseconds()) / 1000.0
		}
	}
	return routed
}

// DeadLetter wraps a raw message that could not be processed because of a
// fatal pipeline condition.
type DeadLetter struct {
	Raw         RawMessage `json:"raw"`
	Reason      string     `json:"reason"`
	ErrorCode   string     `json:"error_code,omitempty"`
	Error       string     `json:"error,omitempty"`
	SourceTopic string     `json:"source_topic,omitempty"`
	FailedAt    time.Time  `json:"failed_at"`
}
