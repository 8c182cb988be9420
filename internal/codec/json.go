package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"logrouter/pkg/models"
)

const (
	MessageField   = "message_field"
	SourceField    = "source_field"
	TimestampField = "timestamp_field"
)

// JSONCodec decodes one JSON object per payload. Nested objects are
// flattened with "_" separated keys.
type JSONCodec struct {
	messageField   string
	sourceField    string
	timestampField string
	overrideSource string
}

func NewJSONCodec(cfg Configuration) (Codec, error) {
	c := &JSONCodec{
		messageField:   cfg.String(MessageField, models.FieldMessage),
		sourceField:    cfg.String(SourceField, models.FieldSource),
		timestampField: cfg.String(TimestampField, models.FieldTimestamp),
		overrideSource: cfg.String(OverrideSource, ""),
	}
	if c.messageField == "" {
		return nil, fmt.Errorf("json codec: %s must not be empty", MessageField)
	}
	return c, nil
}

func (c *JSONCodec) Decode(raw *models.RawMessage) (*models.Message, error) {
	if len(raw.Payload) == 0 {
		return nil, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw.Payload, &doc); err != nil {
		return nil, fmt.Errorf("json codec: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	fields := make(map[string]interface{}, len(doc))
	flatten("", doc, fields)

	message, _ := fields[c.messageField].(string)
	delete(fields, c.messageField)

	source := c.overrideSource
	if source == "" {
		source, _ = fields[c.sourceField].(string)
	}
	if source == "" {
		source = sourceFor(raw, "")
	}
	delete(fields, c.sourceField)

	timestamp := receivedAt(raw)
	if v, ok := fields[c.timestampField]; ok {
		parsed, err := parseTimestamp(v)
		if err != nil {
			return nil, fmt.Errorf("json codec: field %q: %w", c.timestampField, err)
		}
		timestamp = parsed
		delete(fields, c.timestampField)
	}

	msg := models.NewMessage(message, source, timestamp)
	for key := range fields {
		if models.IsReservedField(key) {
			delete(fields, key)
		}
	}
	msg.AddFields(fields)
	return msg, nil
}

func flatten(prefix string, in map[string]interface{}, out map[string]interface{}) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// parseTimestamp accepts RFC3339 strings and unix seconds with a fractional part.
func parseTimestamp(v interface{}) (time.Time, error) {
	switch ts := v.(type) {
	case string:
		return time.Parse(time.RFC3339Nano, ts)
	case float64:
		sec, frac := math.Modf(ts)
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
