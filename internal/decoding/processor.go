package decoding

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"logrouter/internal/codec"
	"logrouter/internal/constants"
	"logrouter/internal/logger"
	pkgerrors "logrouter/pkg/errors"
	"logrouter/pkg/logging"
	"logrouter/pkg/metrics"
	"logrouter/pkg/models"
)

const noInput = "none"

// CodecFactory builds a codec instance for one message.
type CodecFactory interface {
	Create(name string, cfg codec.Configuration) (codec.Codec, error)
}

// InputResolver returns metadata for a running input.
type InputResolver interface {
	Resolve(ctx context.Context, inputID string) (*models.InputMetadata, error)
}

// Processor is the decoding stage. Each pipeline partition owns one
// Processor and calls it from a single goroutine; it holds no locks.
type Processor struct {
	codecs CodecFactory
	inputs InputResolver
	logger logger.Logger
	now    func() time.Time
}

func NewProcessor(codecs CodecFactory, inputs InputResolver, log logger.Logger) *Processor {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Processor{
		codecs: codecs,
		inputs: inputs,
		logger: log,
		now:    time.Now,
	}
}

// Process turns one raw message into at most one complete message. A nil
// message with a nil error means the raw message was dropped and counted.
func (p *Processor) Process(ctx context.Context, raw *models.RawMessage) (*models.Message, error) {
	if raw == nil {
		p.logger.WarnwCtx(ctx, "Received empty raw message slot, skipping")
		return nil, nil
	}

	ctx = logging.WithCodec(ctx, raw.CodecName)

	c, err := p.codecs.Create(raw.CodecName, codec.Configuration(raw.CodecConfig))
	if err != nil {
		var unknown *codec.UnknownCodecError
		if errors.As(err, &unknown) {
			metrics.DecodingUnknownCodecTotal.WithLabelValues(raw.CodecName).Inc()
			p.logger.WarnwCtx(ctx, "No codec registered for raw message", "raw_message_id", raw.ID)
			return nil, err
		}
	}

	inputID := ""
	if node, ok := raw.LastServerNode(); ok {
		inputID = node.InputID
		ctx = logging.WithInputID(ctx, inputID)
	}
	labels := []string{raw.CodecName, inputLabel(inputID)}

	if err != nil {
		metrics.DecodingFailuresTotal.WithLabelValues(labels...).Inc()
		p.logger.ErrorwCtx(ctx, "Unable to create codec", "error", err)
		return nil, &DecodeError{Codec: raw.CodecName, InputID: inputID, Err: err}
	}

	start := p.now()
	msg, err := decode(c, raw)
	parseTime := p.now().Sub(start)
	metrics.ObserveParseDuration(parseTime)

	if err != nil {
		metrics.DecodingFailuresTotal.WithLabelValues(labels...).Inc()
		p.logger.ErrorwCtx(ctx, "Unable to decode raw message", "raw_message_id", raw.ID, "error", err)
		return nil, &DecodeError{Codec: raw.CodecName, InputID: inputID, Err: err}
	}

	if msg == nil {
		metrics.DecodingFailuresTotal.WithLabelValues(labels...).Inc()
		p.logger.WarnwCtx(ctx, "Codec returned no message", "raw_message_id", raw.ID)
		return nil, nil
	}
	msg.RecordTiming(constants.TimingParse, parseTime)

	if !msg.IsComplete() {
		metrics.DecodingIncompleteTotal.WithLabelValues(labels...).Inc()
		p.logger.DebugwCtx(ctx, "Dropping incomplete message", "message", truncate(msg.String()))
		return nil, nil
	}

	msg.JournalOffset = raw.JournalOffset

	if err := tagProvenance(msg, raw); err != nil {
		metrics.DecodingProvenanceConflictsTotal.Inc()
		p.logger.ErrorwCtx(ctx, "Conflicting source nodes on raw message", "raw_message_id", raw.ID, "error", err)
		return nil, err
	}

	if inputID != "" {
		meta, err := p.inputs.Resolve(ctx, inputID)
		if err != nil {
			reason := "error"
			if pkgerrors.IsNotFound(err) {
				reason = "not_found"
			}
			metrics.InputLookupErrorsTotal.WithLabelValues(reason).Inc()
			p.logger.WarnwCtx(ctx, "Unable to resolve input metadata", "error", err)
		} else {
			msg.SourceInput = meta
		}
	}

	enrichRemoteAddress(msg, raw.RemoteAddress)

	metrics.DecodingProcessedTotal.WithLabelValues(labels...).Inc()
	return msg, nil
}

// decode runs the codec and turns a panic into an error so a broken codec
// only costs the current message.
func decode(c codec.Codec, raw *models.RawMessage) (*models.Message, error) {
	var msg *models.Message
	err := pkgerrors.Guard(func() (err error) {
		msg, err = c.Decode(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// tagProvenance fails on a second node of the same type whatever the first
// node carried. A codec that already wrote a provenance field also conflicts.
func tagProvenance(msg *models.Message, raw *models.RawMessage) error {
	var seenServer, seenRadio bool
	for _, node := range raw.SourceNodes {
		var seen *bool
		var set func(inputID, nodeID string) error
		switch node.Type {
		case models.SourceNodeServer:
			seen, set = &seenServer, msg.SetServerProvenance
		case models.SourceNodeRadio:
			seen, set = &seenRadio, msg.SetRadioProvenance
		default:
			continue
		}

		var err error
		if *seen {
			err = fmt.Errorf("%w: multiple %s nodes", models.ErrProvenanceConflict, node.Type)
		} else {
			err = set(node.InputID, node.NodeID)
		}
		*seen = true
		if err != nil {
			return &ProvenanceConflictError{NodeType: node.Type, InputID: node.InputID, Err: err}
		}
	}
	return nil
}

// enrichRemoteAddress never resolves names itself. The hostname is only
// copied when the transport already did the reverse lookup.
func enrichRemoteAddress(msg *models.Message, addr *models.RemoteAddress) {
	if addr == nil {
		return
	}
	if addr.IP != nil {
		msg.AddField(models.FieldRemoteIP, addr.IP.String())
	}
	if addr.Port > 0 {
		msg.AddField(models.FieldRemotePort, addr.Port)
	}
	if addr.ReverseLookedUp {
		msg.AddField(models.FieldRemoteHostname, addr.Hostname)
	}
}

func inputLabel(inputID string) string {
	if inputID == "" {
		return noInput
	}
	return inputID
}

// truncate cuts on a rune boundary at or before DefaultTruncateLen bytes.
func truncate(s string) string {
	if len(s) <= constants.DefaultTruncateLen {
		return s
	}
	cut := constants.DefaultTruncateLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
