// internal/shared/protocol/protocol_test.go
package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/errs"
)

func TestAckMergesPayloadFields(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	msg, err := NewAck("a1", ReconnectResult{GameID: "g1", RoomID: "r1"}, at)
	require.NoError(t, err)
	assert.Equal(t, constants.EvtAck, msg.Event)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Payload, &fields))
	assert.Equal(t, true, fields["ok"])
	assert.Equal(t, "g1", fields["gameId"])

	var res ReconnectResult
	head, err := DecodeAck(msg, &res)
	require.NoError(t, err)
	assert.True(t, head.OK)
	assert.Equal(t, "r1", res.RoomID)
}

func TestAckErrorCarriesCodeAndDetails(t *testing.T) {
	e := errs.Conflict(constants.ErrPendingMove, "pending move exists").With("pendingValue", 5)
	msg, err := NewAckError("a2", e, time.Now())
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Payload, &fields))
	assert.Equal(t, false, fields["ok"])
	assert.Equal(t, constants.ErrPendingMove, fields["code"])
	assert.Equal(t, float64(5), fields["pendingValue"])

	head, err := DecodeAck(msg, nil)
	require.NoError(t, err)
	assert.False(t, head.OK)
	assert.Equal(t, "pending move exists", head.Message)
}

func TestAckErrorHidesInternalDetails(t *testing.T) {
	e := errs.Internal("save game", assert.AnError).With("dsn", "secret")
	msg, err := NewAckError("a3", e, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Payload), "secret")
	assert.Contains(t, string(msg.Payload), "internal server error")
}

func TestRequestRoundTrip(t *testing.T) {
	data, err := EncodeRequest(constants.EvtTokenMove, "7", map[string]interface{}{"roomId": "r1", "tokenIndex": 0, "steps": 6})
	require.NoError(t, err)

	req, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, constants.EvtTokenMove, req.Event)

	var p MovePayload
	require.NoError(t, DecodePayload(req.Payload, &p))
	require.NotNil(t, p.TokenIndex)
	assert.Equal(t, 0, *p.TokenIndex)
	assert.Equal(t, 6, p.Steps)

	_, err = DecodeRequest([]byte(`{"ackId":"1"}`))
	assert.Error(t, err)
}

func TestPayloadValidation(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		into Payload
	}{
		{"missing token", `{"roomId":"r1","steps":3}`, &MovePayload{}},
		{"dice out of range", `{"roomId":"r1","tokenIndex":1,"steps":7}`, &MovePayload{}},
		{"unknown field", `{"roomId":"r1","bogus":true}`, &RoomRefPayload{}},
		{"blank room", `{"roomId":"  "}`, &RoomRefPayload{}},
		{"wrong type", `{"stake":"ten","mode":"Classic","maxPlayers":2}`, &CreateRoomPayload{}},
		{"empty chat", `{"roomId":"r1","text":" "}`, &ChatPayload{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := DecodePayload(json.RawMessage(tc.raw), tc.into)
			assert.Equal(t, constants.ErrBadRequest, errs.CodeOf(err))
		})
	}

	var leave LeavePayload
	assert.NoError(t, DecodePayload(nil, &leave))
	assert.Empty(t, leave.RoomID)
}
