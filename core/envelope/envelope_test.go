package envelope_test

import (
	"testing"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestRoundTrip(t *testing.T) {
	id := envelope.NewID()
	req := envelope.NewRequest(id, "echo", []byte(`{"val":42}`), 5*time.Second)

	data, err := envelope.Encode(req)
	require.NoError(t, err)

	decoded, err := envelope.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, envelope.TypeRequest, decoded.Type)
	assert.Equal(t, id, decoded.ID)
	assert.Equal(t, "echo", decoded.Action)
	assert.Equal(t, int64(5000), decoded.TimeoutMs)
}

func TestDecodeNestedRequestShape(t *testing.T) {
	raw := []byte(`{"type":"REQUEST","request":{"id":"abc","action":"delay","data":{"ms":200}},"timeout":1000}`)

	decoded, err := envelope.Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, "abc", decoded.ID)
	assert.Equal(t, "delay", decoded.Action)
	assert.JSONEq(t, `{"ms":200}`, string(decoded.Data))
	assert.Nil(t, decoded.Request)
}

func TestResponseErrorPayloadBackfillsError(t *testing.T) {
	raw := []byte(`{"type":"RESPONSE","id":"1","status":500,"errorPayload":{"name":"Error","message":"boom"}}`)

	decoded, err := envelope.Decode(raw)
	require.NoError(t, err)

	assert.True(t, decoded.IsError())
	assert.Equal(t, "boom", decoded.Error)
	assert.Equal(t, "boom", decoded.ErrorMessage())
}

func TestNewIDIsUniqueAndOpaque(t *testing.T) {
	a := envelope.NewID()
	b := envelope.NewID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}

func TestIsErrorBoundary(t *testing.T) {
	ok := envelope.NewResponse("1", 200, nil)
	assert.False(t, ok.IsError())

	notFound := envelope.NewErrorResponse("1", 404, "no handler", nil)
	assert.True(t, notFound.IsError())
}
