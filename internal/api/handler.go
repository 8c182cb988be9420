package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"logrouter/internal/logger"
	"logrouter/internal/streams"
	"logrouter/pkg/errors"
	"logrouter/pkg/models"
)

type StreamRouter interface {
	Snapshot() *streams.Snapshot
	Match(ctx context.Context, fields map[string]interface{}) streams.MatchResult
	ReloadStreams(ctx context.Context, skipJitter ...bool) error
}

type InputResolver interface {
	Resolve(ctx context.Context, inputID string) (*models.InputMetadata, error)
}

type CodecLister interface {
	Names() []string
}

type Handler struct {
	router StreamRouter
	inputs InputResolver
	codecs CodecLister
	logger logger.Logger
}

func NewHandler(router StreamRouter, inputs InputResolver, codecs CodecLister, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Handler{
		router: router,
		inputs: inputs,
		codecs: codecs,
		logger: log,
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		s := v1.Group("/streams")
		{
			s.GET("/checked", h.GetCheckedStreams)
			s.POST("/match", h.MatchStreams)
			s.POST("/reload", h.ReloadStreams)
		}

		v1.GET("/inputs/:id", h.GetInput)
		v1.GET("/codecs", h.ListCodecs)
	}
}

// GetCheckedStreams godoc
// @Summary      Describe the stream rule index
// @Description  Streams matched by the index, streams left to the fallback evaluator, and why the rest were skipped
// @Tags         streams
// @Produce      json
// @Success      200  {object}  IndexResponse
// @Router       /streams/checked [get]
func (h *Handler) GetCheckedStreams(c *gin.Context) {
	snap := h.router.Snapshot()

	resp := IndexResponse{
		Checked:  make([]streams.Stream, 0),
		Skipped:  make([]SkippedStreamResponse, 0),
		Fallback: make([]string, 0),
		LoadedAt: snap.LoadedAt,
	}
	for _, s := range snap.Lookup.CheckedStreams() {
		resp.Checked = append(resp.Checked, *s)
	}
	for _, s := range snap.Lookup.Skipped() {
		skipped := SkippedStreamResponse{StreamID: s.Stream.ID, Reason: string(s.Reason)}
		if s.Err != nil {
			skipped.Error = s.Err.Error()
		}
		if _, ok := snap.Fallback.Expression(s.Stream.ID); ok {
			resp.Fallback = append(resp.Fallback, s.Stream.ID)
		}
		resp.Skipped = append(resp.Skipped, skipped)
	}

	c.JSON(http.StatusOK, resp)
}

// MatchStreams godoc
// @Summary      Preview routing for a field map
// @Tags         streams
// @Accept       json
// @Produce      json
// @Param        request  body      MatchRequest  true  "Message fields"
// @Success      200      {object}  MatchResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /streams/match [post]
func (h *Handler) MatchStreams(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	result := h.router.Match(c.Request.Context(), req.Fields)
	c.JSON(http.StatusOK, MatchResponse{
		Index:    streamIDs(result.Index),
		Fallback: streamIDs(result.Fallback),
		Streams:  result.StreamIDs(),
	})
}

// ReloadStreams godoc
// @Summary      Rebuild the stream rule index now
// @Tags         streams
// @Produce      json
// @Success      200  {object}  ReloadResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /streams/reload [post]
func (h *Handler) ReloadStreams(c *gin.Context) {
	if err := h.router.ReloadStreams(c.Request.Context(), true); err != nil {
		h.HandleError(c, errors.ErrServiceUnavailable.WithCause(err))
		return
	}

	snap := h.router.Snapshot()
	c.JSON(http.StatusOK, ReloadResponse{
		Streams:  snap.Streams,
		Checked:  len(snap.Lookup.CheckedStreams()),
		Fallback: snap.Fallback.Len(),
		LoadedAt: snap.LoadedAt,
	})
}

// GetInput godoc
// @Summary      Resolve input metadata
// @Tags         inputs
// @Produce      json
// @Param        id   path      string  true  "Input ID"
// @Success      200  {object}  models.InputMetadata
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /inputs/{id} [get]
func (h *Handler) GetInput(c *gin.Context) {
	meta, err := h.inputs.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

// ListCodecs godoc
// @Summary      List registered codecs
// @Tags         codecs
// @Produce      json
// @Success      200  {object}  CodecsResponse
// @Router       /codecs [get]
func (h *Handler) ListCodecs(c *gin.Context) {
	c.JSON(http.StatusOK, CodecsResponse{Codecs: h.codecs.Names()})
}

func streamIDs(list []*streams.Stream) []string {
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	return ids
}

type MatchRequest struct {
	Fields map[string]interface{} `json:"fields" binding:"required"`
}

type MatchResponse struct {
	Index    []string `json:"index"`
	Fallback []string `json:"fallback"`
	Streams  []string `json:"streams"`
}

type SkippedStreamResponse struct {
	StreamID string `json:"stream_id"`
	Reason   string `json:"reason"`
	Error    string `json:"error,omitempty"`
}

type IndexResponse struct {
	Checked  []streams.Stream        `json:"checked"`
	Skipped  []SkippedStreamResponse `json:"skipped"`
	Fallback []string                `json:"fallback"`
	LoadedAt time.Time               `json:"loaded_at"`
}

type ReloadResponse struct {
	Streams  int       `json:"streams"`
	Checked  int       `json:"checked"`
	Fallback int       `json:"fallback"`
	LoadedAt time.Time `json:"loaded_at"`
}

type CodecsResponse struct {
	Codecs []string `json:"codecs"`
}
