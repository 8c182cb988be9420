package decoding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logrouter/internal/constants"
	"logrouter/pkg/models"
)

func TestOnEventOverwritesStaleMessage(t *testing.T) {
	p := newProcessor(func(*models.RawMessage) (*models.Message, error) {
		return nil, errors.New("broken")
	}, &stubInputs{})

	stale := models.NewMessage("previous", "slot", time.Now())
	event := &Event{
		Raw:     models.NewRawMessageBuilder(testCodec, []byte("payload")).WithServerNode("in-event", "n").Build(),
		Message: stale,
	}

	err := p.OnEvent(context.Background(), event)
	assert.Error(t, err)
	assert.Nil(t, event.Message)
	assert.Nil(t, event.Raw.Payload)
}

func TestOnEventRecordsDecodeTiming(t *testing.T) {
	p := newProcessor(completeMessage, &stubInputs{})
	event := &Event{
		Raw: models.NewRawMessageBuilder(testCodec, []byte("payload")).WithServerNode("in-event-ok", "n").Build(),
	}

	require.NoError(t, p.OnEvent(context.Background(), event))
	require.NotNil(t, event.Message)
	assert.Nil(t, event.Raw.Payload)

	names := make([]string, 0, 2)
	for _, timing := range event.Message.Timings() {
		names = append(names, timing.Name)
	}
	assert.Equal(t, []string{constants.TimingParse, constants.TimingDecode}, names)
}

func TestOnEventEmptySlot(t *testing.T) {
	p := newProcessor(completeMessage, &stubInputs{})
	event := &Event{Message: models.NewMessage("stale", "slot", time.Now())}

	assert.NoError(t, p.OnEvent(context.Background(), event))
	assert.Nil(t, event.Message)
}
