package streams

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"logrouter/internal/config"
	"logrouter/internal/constants"
	"logrouter/internal/logger"
	"logrouter/pkg/metrics"
	"logrouter/pkg/models"
	"logrouter/pkg/tracing"
)

const tracerName = "streams-router"

// Snapshot is one immutable generation of routing state.
type Snapshot struct {
	Lookup   *Lookup
	Fallback *Evaluator
	Streams  int
	LoadedAt time.Time
}

// MatchResult splits matched streams by the path that matched them.
type MatchResult struct {
	Index    []*Stream
	Fallback []*Stream
}

// StreamIDs returns the ids of every matched stream, ordered and unique.
func (r MatchResult) StreamIDs() []string {
	seen := make(map[string]struct{}, len(r.Index)+len(r.Fallback))
	ids := make([]string, 0, len(r.Index)+len(r.Fallback))
	for _, group := range [][]*Stream{r.Index, r.Fallback} {
		for _, s := range group {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			ids = append(ids, s.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Router holds the current Snapshot and replaces it atomically on reload.
// Readers never block on a reload and never see a partly built snapshot.
type Router struct {
	loader StreamLoader
	cfg    config.StreamsConfig
	logger logger.Logger

	snapshot atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
}

func NewRouter(loader StreamLoader, cfg config.StreamsConfig, log logger.Logger) *Router {
	if log == nil {
		log = logger.NopLogger()
	}
	r := &Router{loader: loader, cfg: cfg, logger: log}
	r.snapshot.Store(&Snapshot{Lookup: NewLookup(nil), Fallback: &Evaluator{}})
	return r
}

func (r *Router) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Match evaluates fields against the current snapshot.
func (r *Router) Match(ctx context.Context, fields map[string]interface{}) MatchResult {
	snap := r.snapshot.Load()

	result := MatchResult{Index: snap.Lookup.Matches(fields)}
	if r.cfg.FallbackEvaluator && snap.Fallback != nil {
		result.Fallback = snap.Fallback.Matches(ctx, fields)
	}
	return result
}

// Route returns the ids of every stream msg belongs to.
func (r *Router) Route(ctx context.Context, msg *models.Message) []string {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "streams.route")
	defer span.End()

	start := time.Now()
	result := r.Match(ctx, msg.Fields())
	metrics.ObserveRoutingDuration(time.Since(start))

	if n := len(result.Index); n > 0 {
		metrics.StreamsMatchesTotal.WithLabelValues(constants.MatchPathIndex).Add(float64(n))
	}
	if n := len(result.Fallback); n > 0 {
		metrics.StreamsMatchesTotal.WithLabelValues(constants.MatchPathFallback).Add(float64(n))
	}

	ids := result.StreamIDs()
	span.SetAttributes(attribute.Int("streams.matched", len(ids)))
	return ids
}

// ReloadStreams builds a new snapshot from the loader and swaps it in. On
// failure the previous snapshot stays in place.
func (r *Router) ReloadStreams(ctx context.Context, skipJitter ...bool) error {
	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]

	if err := r.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	snap, err := r.build(ctx)
	if err != nil {
		metrics.StreamsReloadsTotal.WithLabelValues("error").Inc()
		return err
	}

	r.snapshot.Store(snap)
	metrics.StreamsReloadsTotal.WithLabelValues("success").Inc()
	metrics.SetStreamIndexStats(len(snap.Lookup.CheckedStreams()), snap.Lookup.SkippedCounts(), snap.Fallback.Len())

	r.logger.InfowCtx(ctx, "Successfully reloaded streams",
		"streams_count", snap.Streams,
		"indexed_count", len(snap.Lookup.CheckedStreams()),
		"fallback_count", snap.Fallback.Len(),
	)
	return nil
}

func (r *Router) build(ctx context.Context) (*Snapshot, error) {
	r.logger.DebugwCtx(ctx, "Loading enabled streams")
	streams, err := r.loader.LoadAllEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load enabled streams: %w", err)
	}

	lookup := NewLookup(streams)
	for _, s := range lookup.Skipped() {
		r.logger.InfowCtx(ctx, "Stream not indexed",
			"stream_id", s.Stream.ID,
			"reason", s.Reason,
			"detail", s.Err.Error(),
		)
	}

	fallback := &Evaluator{}
	if r.cfg.FallbackEvaluator {
		fallback, err = NewEvaluator(streams, lookup.IsChecked)
		if err != nil {
			return nil, err
		}
		for _, s := range fallback.Rejected() {
			r.logger.WarnwCtx(ctx, "Stream rules cannot be evaluated",
				"stream_id", s.Stream.ID,
				"error", s.Err,
			)
		}
	}

	return &Snapshot{
		Lookup:   lookup,
		Fallback: fallback,
		Streams:  len(streams),
		LoadedAt: time.Now(),
	}, nil
}

func (r *Router) applyJitter(ctx context.Context, skipJitter bool) error {
	maxJitter := r.cfg.Reload.MaxJitter()
	if skipJitter || maxJitter <= 0 {
		return nil
	}

	jitter := time.Duration(rand.Int63n(int64(maxJitter)))
	r.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartReloader loads streams once without jitter, then reloads on every
// interval tick until ctx is done.
func (r *Router) StartReloader(ctx context.Context) error {
	if err := r.ReloadStreams(ctx, true); err != nil {
		r.logger.ErrorwCtx(ctx, "Failed to load streams", "error", err)
	}

	interval := r.cfg.Reload.Interval()
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.ReloadStreams(ctx); err != nil {
				r.logger.ErrorwCtx(ctx, "Failed to reload streams", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
