package pipeline

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"logrouter/internal/config"
	"logrouter/internal/constants"
	"logrouter/internal/decoding"
	"logrouter/internal/logger"
	pkgerrors "logrouter/pkg/errors"
	"logrouter/pkg/logging"
	"logrouter/pkg/metrics"
	"logrouter/pkg/models"
)

var ErrClosed = errors.New("pipeline is closed")

// Message outcomes, used as the status label of PipelineMessagesTotal.
const (
	StatusRouted        = "routed"
	StatusDropped       = "dropped"
	StatusFailed        = "failed"
	StatusDeadLettered  = "dead_lettered"
	StatusPublishFailed = "publish_failed"
	StatusPanic         = "panic"
)

// Decoder fills an event's Message from its Raw.
type Decoder interface {
	OnEvent(ctx context.Context, event *decoding.Event) error
}

// DecoderFactory builds the decoder owned by one partition.
type DecoderFactory func(partition int) Decoder

type Router interface {
	Route(ctx context.Context, msg *models.Message) []string
}

// Sink receives routed messages and raw messages that hit a fatal condition.
type Sink interface {
	Publish(ctx context.Context, msg *models.Message, streams []string) error
	DeadLetter(ctx context.Context, raw *models.RawMessage, cause error) error
}

type item struct {
	event    *decoding.Event
	enqueued time.Time
}

type partition struct {
	id      int
	ring    chan item
	decoder Decoder
}

// Pipeline spreads raw messages over a fixed set of partitions. Each
// partition is a bounded channel drained by a single goroutine, so messages
// sharing a partition key are processed in submission order.
type Pipeline struct {
	partitions []*partition
	router     Router
	sink       Sink
	logger     logger.Logger

	mu       sync.RWMutex
	closed   bool
	closing  chan struct{}
	inflight sync.WaitGroup
}

func New(cfg config.PipelineConfig, newDecoder DecoderFactory, router Router, sink Sink, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NopLogger()
	}
	n := cfg.Partitions
	if n <= 0 {
		n = constants.DefaultPartitions
	}
	size := cfg.RingSize
	if size <= 0 {
		size = constants.DefaultRingSize
	}

	p := &Pipeline{
		partitions: make([]*partition, n),
		router:     router,
		sink:       sink,
		logger:     log,
		closing:    make(chan struct{}),
	}
	for i := range p.partitions {
		p.partitions[i] = &partition{
			id:      i,
			ring:    make(chan item, size),
			decoder: newDecoder(i),
		}
	}
	return p
}

func (p *Pipeline) Partitions() int {
	return len(p.partitions)
}

// PartitionFor maps key onto a partition with FNV-1a.
func (p *Pipeline) PartitionFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.partitions)))
}

// PartitionKey returns the key raw is partitioned by. Without an explicit key
// it is the current node's input id plus the remote IP.
func PartitionKey(raw *models.RawMessage) string {
	if raw.PartitionKey != "" {
		return raw.PartitionKey
	}
	key := ""
	if node, ok := raw.LastServerNode(); ok {
		key = node.InputID
	}
	if raw.RemoteAddress != nil && raw.RemoteAddress.IP != nil {
		key += "/" + raw.RemoteAddress.IP.String()
	}
	return key
}

// Submit enqueues raw on its partition. It blocks while the partition is
// full and returns early when ctx is done or the pipeline closes.
func (p *Pipeline) Submit(ctx context.Context, raw *models.RawMessage) error {
	if raw == nil {
		return pkgerrors.ErrValidation.WithDetail("raw", "raw message cannot be nil")
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	p.inflight.Add(1)
	p.mu.RUnlock()
	defer p.inflight.Done()

	part := p.partitions[p.PartitionFor(PartitionKey(raw))]
	it := item{event: &decoding.Event{Raw: raw}, enqueued: time.Now()}

	select {
	case part.ring <- it:
		metrics.SetPipelineQueueSize(part.id, len(part.ring))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closing:
		return ErrClosed
	}
}

// Run drains every partition until Close has been called and the rings are
// empty. ctx is handed to the stages for each message.
func (p *Pipeline) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, part := range p.partitions {
		part := part
		g.Go(func() error {
			p.runPartition(gctx, part)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) runPartition(ctx context.Context, part *partition) {
	ctx = logging.WithPartition(ctx, part.id)
	p.logger.DebugwCtx(ctx, "Partition worker started")

	for it := range part.ring {
		metrics.SetPipelineQueueSize(part.id, len(part.ring))
		metrics.ObservePipelineQueueWait(time.Since(it.enqueued))
		status := p.process(ctx, part, it.event)
		metrics.PipelineMessagesTotal.WithLabelValues(status).Inc()
	}

	p.logger.DebugwCtx(ctx, "Partition worker stopped")
}

func (p *Pipeline) process(ctx context.Context, part *partition, event *decoding.Event) (status string) {
	raw := event.Raw
	payload := raw.Payload
	if raw.ID != "" {
		ctx = logging.WithMessageID(ctx, raw.ID)
	}

	defer func() {
		if r := recover(); r != nil {
			err := pkgerrors.RecoverPanic(r)
			metrics.PipelinePanicsTotal.Inc()
			p.logger.ErrorwCtx(ctx, "Panic recovered in partition worker", "error", err)
			raw.Payload = payload
			p.deadLetter(ctx, raw, err)
			status = StatusPanic
		}
	}()

	if err := part.decoder.OnEvent(ctx, event); err != nil {
		if pkgerrors.IsFatal(err) {
			raw.Payload = payload
			p.deadLetter(ctx, raw, err)
			return StatusDeadLettered
		}
		return StatusFailed
	}

	msg := event.Message
	if msg == nil {
		return StatusDropped
	}

	streams := p.router.Route(ctx, msg)
	if err := p.sink.Publish(ctx, msg, streams); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to publish routed message",
			"error", err,
			"streams", len(streams),
		)
		return StatusPublishFailed
	}
	return StatusRouted
}

func (p *Pipeline) deadLetter(ctx context.Context, raw *models.RawMessage, cause error) {
	if err := p.sink.DeadLetter(ctx, raw, cause); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to dead-letter raw message",
			"error", err,
			"cause", cause,
		)
	}
}

// Close stops accepting messages and lets Run finish what is queued.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.closing)
	p.mu.Unlock()

	p.inflight.Wait()
	for _, part := range p.partitions {
		close(part.ring)
	}
}

// QueueDepths reports the number of queued messages per partition.
func (p *Pipeline) QueueDepths() map[string]int {
	depths := make(map[string]int, len(p.partitions))
	for _, part := range p.partitions {
		depths[strconv.Itoa(part.id)] = len(part.ring)
	}
	return depths
}
