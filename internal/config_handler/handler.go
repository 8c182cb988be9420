package config_handler

import (
	"context"
	"encoding/json"
	"fmt"

	"logrouter/internal/broker"
	"logrouter/internal/logger"
	"logrouter/pkg/errors"
	"logrouter/pkg/models"
)

type StreamsReloader interface {
	ReloadStreams(ctx context.Context, skipJitter ...bool) error
}

// InputCache is the node-local input metadata cache.
type InputCache interface {
	Invalidate(inputID string)
	Purge() int
}

// InputStore is a shared snapshot store sitting behind the local cache.
type InputStore interface {
	Invalidate(ctx context.Context, inputID string) error
}

type Handler struct {
	expectedServiceType string
	reloader            StreamsReloader
	cache               InputCache
	store               InputStore
	logger              logger.Logger
}

func NewHandler(expectedServiceType string, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Handler{
		expectedServiceType: expectedServiceType,
		logger:              log,
	}
}

func (h *Handler) WithReloader(reloader StreamsReloader) *Handler {
	h.reloader = reloader
	return h
}

func (h *Handler) WithInputCache(cache InputCache, store InputStore) *Handler {
	h.cache = cache
	h.store = store
	return h
}

// Handle decodes a config update record and applies it.
func (h *Handler) Handle(ctx context.Context, msg broker.Message) error {
	var event models.ConfigUpdateEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to unmarshal config event", "error", err, "offset", msg.Offset)
		return errors.ErrValidation.WithCause(fmt.Errorf("invalid config update event: %w", err))
	}
	return h.HandleConfigUpdateEvent(ctx, event)
}

func (h *Handler) HandleConfigUpdateEvent(ctx context.Context, event models.ConfigUpdateEvent) error {
	if event.EventType == "" {
		h.logger.WarnwCtx(ctx, "Config event missing event_type", "action", event.Action)
		return nil
	}

	if event.ServiceType != "" && event.ServiceType != h.expectedServiceType {
		return nil
	}

	h.logger.InfowCtx(ctx, "Received config update event",
		"event_type", event.EventType,
		"action", event.Action,
		"stream_id", event.StreamID,
		"input_id", event.InputID,
	)

	switch event.EventType {
	case models.EventTypeStreamsUpdated:
		return h.reloadStreams(ctx, event)
	case models.EventTypeInputsUpdated:
		return h.invalidateInputs(ctx, event)
	default:
		h.logger.DebugwCtx(ctx, "Ignoring config event", "event_type", event.EventType)
		return nil
	}
}

func (h *Handler) reloadStreams(ctx context.Context, event models.ConfigUpdateEvent) error {
	if h.reloader == nil {
		return nil
	}
	if err := h.reloader.ReloadStreams(ctx); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to reload streams after config update", "error", err)
		return err
	}
	h.logger.InfowCtx(ctx, "Streams reloaded successfully after config update", "action", event.Action)
	return nil
}

func (h *Handler) invalidateInputs(ctx context.Context, event models.ConfigUpdateEvent) error {
	if event.InputID == "" {
		if h.cache != nil {
			purged := h.cache.Purge()
			h.logger.InfowCtx(ctx, "Input metadata cache purged", "entries", purged)
		}
		return nil
	}

	if h.store != nil {
		if err := h.store.Invalidate(ctx, event.InputID); err != nil {
			h.logger.ErrorwCtx(ctx, "Failed to invalidate shared input snapshot",
				"error", err,
				"input_id", event.InputID,
			)
			return err
		}
	}
	if h.cache != nil {
		h.cache.Invalidate(event.InputID)
	}
	return nil
}
