package codec

import (
	"bytes"
	"time"

	"logrouter/pkg/models"
)

const (
	RawCodecName   = "raw"
	JSONCodecName  = "json"
	OverrideSource = "override_source"
)

// RawCodec stores the whole payload as the message field.
type RawCodec struct {
	overrideSource string
}

func NewRawCodec(cfg Configuration) (Codec, error) {
	return &RawCodec{overrideSource: cfg.String(OverrideSource, "")}, nil
}

func (c *RawCodec) Decode(raw *models.RawMessage) (*models.Message, error) {
	payload := bytes.TrimRight(raw.Payload, "\r\n")
	if len(payload) == 0 {
		return nil, nil
	}
	return models.NewMessage(string(payload), sourceFor(raw, c.overrideSource), receivedAt(raw)), nil
}

func sourceFor(raw *models.RawMessage, override string) string {
	if override != "" {
		return override
	}
	addr := raw.RemoteAddress
	if addr == nil {
		return ""
	}
	if addr.ReverseLookedUp && addr.Hostname != "" {
		return addr.Hostname
	}
	if addr.IP != nil {
		return addr.IP.String()
	}
	return ""
}

func receivedAt(raw *models.RawMessage) time.Time {
	if raw.ReceivedAt.IsZero() {
		return time.Now()
	}
	return raw.ReceivedAt
}
