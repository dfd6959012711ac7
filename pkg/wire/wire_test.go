package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	for _, name := range []string{"feedback", "alerts", "analytics", "system"} {
		ch, err := ParseChannel(name)
		assert.NoError(t, err)
		assert.Equal(t, Channel(name), ch)
	}

	for _, name := range []string{"", "Alerts", "audit", "feedback "} {
		_, err := ParseChannel(name)
		assert.ErrorIs(t, err, ErrUnknownChannel, "channel %q", name)
	}
}

func TestNewEnvelopeStampsTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	env, err := NewEnvelope(TypeAlert, AuthSuccessPayload{TenantID: "tenant-1"})
	require.NoError(t, err)
	after := time.Now().UnixMilli()

	assert.Equal(t, TypeAlert, env.Type)
	assert.GreaterOrEqual(t, env.Timestamp, before)
	assert.LessOrEqual(t, env.Timestamp, after)

	var payload AuthSuccessPayload
	require.NoError(t, env.Decode(&payload))
	assert.Equal(t, "tenant-1", payload.TenantID)
}

func TestNewEnvelopeWithoutPayload(t *testing.T) {
	env, err := NewEnvelope(TypePong, nil)
	require.NoError(t, err)
	assert.Empty(t, env.Data)

	var payload ErrorPayload
	assert.Error(t, env.Decode(&payload))
}

func TestEnvelopeWireFormat(t *testing.T) {
	env, err := NewEnvelope(TypeError, ErrorPayload{Message: "authentication failed"})
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "type")
	assert.Contains(t, decoded, "data")
	assert.Contains(t, decoded, "timestamp")

	var roundTripped Envelope
	require.NoError(t, json.Unmarshal(raw, &roundTripped))
	assert.Equal(t, env.Type, roundTripped.Type)
	assert.Equal(t, env.Timestamp, roundTripped.Timestamp)
}

func TestDecodeMalformedPayload(t *testing.T) {
	env := Envelope{Type: TypeAuth, Data: json.RawMessage(`{"tenantId": 42`)}

	var payload AuthPayload
	err := env.Decode(&payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth")
}
