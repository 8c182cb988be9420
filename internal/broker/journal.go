package broker

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"logrouter/internal/constants"
	"logrouter/pkg/errors"
	"logrouter/pkg/models"
)

// DecodeRawRecord turns a raw journal record into a RawMessage. The record
// offset becomes the journal offset. The partition key comes from the
// partition-key header, then the record key, then the record partition.
func DecodeRawRecord(msg Message) (*models.RawMessage, error) {
	var raw models.RawMessage
	if err := json.Unmarshal(msg.Value, &raw); err != nil {
		return nil, errors.ErrValidation.
			WithCause(fmt.Errorf("invalid raw journal record: %w", err)).
			WithDetail("offset", msg.Offset)
	}

	if raw.CodecName == "" {
		raw.CodecName = msg.Headers[constants.HeaderCodec]
	}
	if raw.ID == "" {
		raw.ID = uuid.New().String()
	}
	if raw.ReceivedAt.IsZero() {
		raw.ReceivedAt = msg.Time
	}
	raw.JournalOffset = msg.Offset
	raw.PartitionKey = PartitionKey(msg)

	if err := models.ValidateRawMessage(&raw); err != nil {
		return nil, errors.ErrValidation.WithCause(err).WithDetail("offset", msg.Offset)
	}

	return &raw, nil
}

func PartitionKey(msg Message) string {
	if key := msg.Headers[constants.HeaderPartitionKey]; key != "" {
		return key
	}
	if len(msg.Key) > 0 {
		return string(msg.Key)
	}
	return strconv.Itoa(msg.Partition)
}
