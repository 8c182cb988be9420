package decoding

import (
	"context"

	"logrouter/internal/constants"
	"logrouter/pkg/metrics"
	"logrouter/pkg/models"
)

// Event is one slot of a partition ring. The decoding stage fills Message
// from Raw; later stages read Message.
type Event struct {
	Raw     *models.RawMessage
	Message *models.Message
}

// OnEvent decodes the slot in place. Message is always overwritten, so a
// dropped message leaves nil behind rather than a previous slot's result.
// The raw payload is released once decoding is done.
func (p *Processor) OnEvent(ctx context.Context, event *Event) error {
	start := p.now()

	msg, err := p.Process(ctx, event.Raw)
	event.Message = msg

	elapsed := p.now().Sub(start)
	metrics.ObserveDecodeDuration(elapsed)
	if msg != nil {
		msg.RecordTiming(constants.TimingDecode, elapsed)
	}

	if event.Raw != nil {
		event.Raw.Release()
	}
	return err
}
