package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logrouter/internal/streams"
	"logrouter/pkg/errors"
	"logrouter/pkg/models"
)

type fakeRouter struct {
	snap      *streams.Snapshot
	reloadErr error
	reloads   int
}

func newFakeRouter(t *testing.T, list []streams.Stream) *fakeRouter {
	t.Helper()
	lookup := streams.NewLookup(list)
	fallback, err := streams.NewEvaluator(list, lookup.IsChecked)
	require.NoError(t, err)
	return &fakeRouter{snap: &streams.Snapshot{
		Lookup:   lookup,
		Fallback: fallback,
		Streams:  len(list),
		LoadedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
}

func (f *fakeRouter) Snapshot() *streams.Snapshot { return f.snap }

func (f *fakeRouter) Match(ctx context.Context, fields map[string]interface{}) streams.MatchResult {
	return streams.MatchResult{
		Index:    f.snap.Lookup.Matches(fields),
		Fallback: f.snap.Fallback.Matches(ctx, fields),
	}
}

func (f *fakeRouter) ReloadStreams(context.Context, ...bool) error {
	f.reloads++
	return f.reloadErr
}

type fakeInputs map[string]*models.InputMetadata

func (f fakeInputs) Resolve(_ context.Context, id string) (*models.InputMetadata, error) {
	if meta, ok := f[id]; ok {
		return meta, nil
	}
	return nil, errors.ErrInputNotFound.WithDetail("input_id", id)
}

type fakeCodecs []string

func (f fakeCodecs) Names() []string { return f }

func testStreams() []streams.Stream {
	return []streams.Stream{
		{ID: "s-exact", Rules: []streams.Rule{{Field: "source", Value: "web-1", Type: streams.RuleExact}}},
		{ID: "s-multi", Rules: []streams.Rule{
			{Field: "level", Value: "3", Type: streams.RuleSmaller},
			{Field: "facility", Type: streams.RulePresence},
		}},
		{ID: "s-off", Disabled: true, Rules: []streams.Rule{{Field: "x", Type: streams.RulePresence}}},
	}
}

func setupEngine(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h.RegisterRoutes(engine)
	return engine
}

func do(engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestGetCheckedStreams(t *testing.T) {
	router := newFakeRouter(t, testStreams())
	engine := setupEngine(NewHandler(router, fakeInputs{}, fakeCodecs{}, nil))

	w := do(engine, http.MethodGet, "/api/v1/streams/checked", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp IndexResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Checked, 1)
	assert.Equal(t, "s-exact", resp.Checked[0].ID)
	assert.Equal(t, []string{"s-multi"}, resp.Fallback)

	reasons := map[string]string{}
	for _, s := range resp.Skipped {
		reasons[s.StreamID] = s.Reason
		assert.NotEmpty(t, s.Error)
	}
	assert.Equal(t, string(streams.SkipMultipleRules), reasons["s-multi"])
	assert.Equal(t, string(streams.SkipDisabled), reasons["s-off"])
	assert.True(t, resp.LoadedAt.Equal(router.snap.LoadedAt))
}

func TestMatchStreams(t *testing.T) {
	engine := setupEngine(NewHandler(newFakeRouter(t, testStreams()), fakeInputs{}, fakeCodecs{}, nil))

	tests := []struct {
		name     string
		fields   map[string]interface{}
		index    []string
		fallback []string
		all      []string
	}{
		{
			name:     "index only",
			fields:   map[string]interface{}{"source": "web-1"},
			index:    []string{"s-exact"},
			fallback: []string{},
			all:      []string{"s-exact"},
		},
		{
			name:     "both paths",
			fields:   map[string]interface{}{"source": "web-1", "level": 2, "facility": "kern"},
			index:    []string{"s-exact"},
			fallback: []string{"s-multi"},
			all:      []string{"s-exact", "s-multi"},
		},
		{
			name:     "nothing",
			fields:   map[string]interface{}{"source": "db-1", "level": 7},
			index:    []string{},
			fallback: []string{},
			all:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(engine, http.MethodPost, "/api/v1/streams/match", MatchRequest{Fields: tt.fields})
			require.Equal(t, http.StatusOK, w.Code)

			var resp MatchResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.index, resp.Index)
			assert.Equal(t, tt.fallback, resp.Fallback)
			assert.Equal(t, tt.all, resp.Streams)
		})
	}
}

func TestMatchStreams_InvalidBody(t *testing.T) {
	engine := setupEngine(NewHandler(newFakeRouter(t, nil), fakeInputs{}, fakeCodecs{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/streams/match", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestReloadStreams(t *testing.T) {
	router := newFakeRouter(t, testStreams())
	engine := setupEngine(NewHandler(router, fakeInputs{}, fakeCodecs{}, nil))

	w := do(engine, http.MethodPost, "/api/v1/streams/reload", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ReloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Streams)
	assert.Equal(t, 1, resp.Checked)
	assert.Equal(t, 1, resp.Fallback)
	assert.Equal(t, 1, router.reloads)

	router.reloadErr = assert.AnError
	w = do(engine, http.MethodPost, "/api/v1/streams/reload", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "SERVICE_UNAVAILABLE")
}

func TestGetInput(t *testing.T) {
	inputs := fakeInputs{"in-1": {ID: "in-1", PersistedID: "p-1", Title: "syslog udp", Type: "syslog", Global: true}}
	engine := setupEngine(NewHandler(newFakeRouter(t, nil), inputs, fakeCodecs{}, nil))

	w := do(engine, http.MethodGet, "/api/v1/inputs/in-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var meta models.InputMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, *inputs["in-1"], meta)

	w = do(engine, http.MethodGet, "/api/v1/inputs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "INPUT_NOT_FOUND")
}

func TestListCodecs(t *testing.T) {
	engine := setupEngine(NewHandler(newFakeRouter(t, nil), fakeInputs{}, fakeCodecs{"json", "raw"}, nil))

	w := do(engine, http.MethodGet, "/api/v1/codecs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CodecsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"json", "raw"}, resp.Codecs)
}
