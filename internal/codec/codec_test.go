package codec

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "logrouter/pkg/errors"
	"logrouter/pkg/models"
)

func TestRegistryCreateUnknown(t *testing.T) {
	r := NewRegistry()

	c, err := r.Create("gelf", Configuration{})
	assert.Nil(t, c)

	var unknown *UnknownCodecError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "gelf", unknown.Name)
	assert.True(t, errors.Is(err, pkgerrors.ErrUnknownCodec))
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	var seen Configuration
	r.Register("test", FactoryFunc(func(cfg Configuration) (Codec, error) {
		seen = cfg
		return &RawCodec{}, nil
	}))

	_, ok := r.Lookup("test")
	assert.True(t, ok)

	c, err := r.Create("test", Configuration{"k": "v"})
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, "v", seen["k"])
}

func TestDefaultRegistryNames(t *testing.T) {
	assert.Equal(t, []string{"json", "raw"}, NewDefaultRegistry().Names())
}

func TestRegistryConcurrentLookups(t *testing.T) {
	r := NewDefaultRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create(RawCodecName, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestConfigurationAccessors(t *testing.T) {
	cfg := Configuration{"s": "x", "b": "true", "n": float64(7), "ns": "12", "bad": []int{1}}

	assert.Equal(t, "x", cfg.String("s", "d"))
	assert.Equal(t, "d", cfg.String("missing", "d"))
	assert.True(t, cfg.Bool("b", false))
	assert.False(t, cfg.Bool("bad", false))
	assert.Equal(t, 7, cfg.Int("n", 0))
	assert.Equal(t, 12, cfg.Int("ns", 0))
	assert.Equal(t, 3, cfg.Int("bad", 3))

	var empty Configuration
	assert.Equal(t, "d", empty.String("s", "d"))
}

func TestRawCodec(t *testing.T) {
	received := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	raw := models.NewRawMessageBuilder(RawCodecName, []byte("hello world\n")).
		WithRemoteAddress(net.ParseIP("10.0.0.9"), 5140).
		WithReceivedAt(received).
		Build()

	c, err := NewRawCodec(nil)
	require.NoError(t, err)

	msg, err := c.Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "hello world", msg.GetField(models.FieldMessage))
	assert.Equal(t, "10.0.0.9", msg.GetField(models.FieldSource))
	assert.Equal(t, received, msg.GetField(models.FieldTimestamp))
	assert.True(t, msg.IsComplete())
}

func TestRawCodecSourceSelection(t *testing.T) {
	resolved := models.NewRawMessageBuilder(RawCodecName, []byte("x")).
		WithResolvedRemoteAddress(net.ParseIP("10.0.0.9"), 5140, "web-1").
		Build()
	bare := models.NewRawMessageBuilder(RawCodecName, []byte("x")).Build()

	c, _ := NewRawCodec(nil)
	msg, err := c.Decode(resolved)
	require.NoError(t, err)
	assert.Equal(t, "web-1", msg.GetField(models.FieldSource))

	msg, err = c.Decode(bare)
	require.NoError(t, err)
	assert.False(t, msg.IsComplete())

	c, _ = NewRawCodec(Configuration{OverrideSource: "fixed"})
	msg, err = c.Decode(bare)
	require.NoError(t, err)
	assert.Equal(t, "fixed", msg.GetField(models.FieldSource))
}

func TestRawCodecEmptyPayload(t *testing.T) {
	c, _ := NewRawCodec(nil)
	msg, err := c.Decode(models.NewRawMessageBuilder(RawCodecName, []byte("\n")).Build())
	assert.NoError(t, err)
	assert.Nil(t, msg)
}

func TestJSONCodec(t *testing.T) {
	payload := []byte(`{"message":"login failed","source":"auth-1","timestamp":"2024-05-01T12:00:00Z","user":{"name":"bob","id":7},"level":3}`)
	c, err := NewJSONCodec(nil)
	require.NoError(t, err)

	msg, err := c.Decode(models.NewRawMessageBuilder(JSONCodecName, payload).Build())
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.True(t, msg.IsComplete())
	assert.Equal(t, "login failed", msg.GetField(models.FieldMessage))
	assert.Equal(t, "auth-1", msg.GetField(models.FieldSource))
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), msg.GetField(models.FieldTimestamp))
	assert.Equal(t, "bob", msg.GetField("user_name"))
	assert.Equal(t, float64(7), msg.GetField("user_id"))
	assert.Equal(t, float64(3), msg.GetField("level"))
}

func TestJSONCodecCustomFields(t *testing.T) {
	payload := []byte(`{"msg":"m","host":"h","ts":1714564800.5}`)
	c, err := NewJSONCodec(Configuration{MessageField: "msg", SourceField: "host", TimestampField: "ts"})
	require.NoError(t, err)

	msg, err := c.Decode(models.NewRawMessageBuilder(JSONCodecName, payload).Build())
	require.NoError(t, err)
	assert.Equal(t, "m", msg.GetField(models.FieldMessage))
	assert.Equal(t, "h", msg.GetField(models.FieldSource))
	assert.Equal(t, time.Unix(1714564800, 500000000).UTC(), msg.GetField(models.FieldTimestamp))
	assert.False(t, msg.HasField("msg"))
}

func TestJSONCodecDropsReservedFields(t *testing.T) {
	payload := []byte(`{"message":"hi","source":"h","_id":"forged","gl2_source_input":"x","gl2_remote_ip":"10.9.9.9","gl2":{"source_node":"n"},"app":"web"}`)
	c, err := NewJSONCodec(nil)
	require.NoError(t, err)

	msg, err := c.Decode(models.NewRawMessageBuilder(JSONCodecName, payload).WithServerNode("in-a", "node-1").Build())
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.False(t, msg.HasField(models.FieldSourceInput))
	assert.False(t, msg.HasField(models.FieldRemoteIP))
	assert.False(t, msg.HasField(models.FieldSourceNode))
	assert.NotEqual(t, "forged", msg.GetField(models.FieldID))
	assert.Equal(t, "web", msg.GetField("app"))
}

func TestJSONCodecErrors(t *testing.T) {
	c, _ := NewJSONCodec(nil)

	_, err := c.Decode(models.NewRawMessageBuilder(JSONCodecName, []byte(`{not json`)).Build())
	assert.Error(t, err)

	_, err = c.Decode(models.NewRawMessageBuilder(JSONCodecName, []byte(`[1,2]`)).Build())
	assert.Error(t, err)

	_, err = c.Decode(models.NewRawMessageBuilder(JSONCodecName, []byte(`{"message":"m","timestamp":true}`)).Build())
	assert.Error(t, err)

	msg, err := c.Decode(models.NewRawMessageBuilder(JSONCodecName, []byte(`null`)).Build())
	assert.NoError(t, err)
	assert.Nil(t, msg)

	_, err = NewJSONCodec(Configuration{MessageField: ""})
	assert.Error(t, err)
}
