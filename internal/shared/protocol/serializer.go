// internal/shared/protocol/serializer.go
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/errs"
)

// Request est une trame client -> serveur
type Request struct {
	Event   constants.EventType `json:"event"`
	AckID   string              `json:"ackId,omitempty"`
	Payload json.RawMessage     `json:"payload,omitempty"`
}

// Message est une trame serveur -> client (accusé ou diffusion)
type Message struct {
	Event     constants.EventType `json:"event"`
	AckID     string              `json:"ackId,omitempty"`
	Seq       uint64              `json:"seq,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	Payload   json.RawMessage     `json:"payload,omitempty"`
}

// AckResult est l'en-tête commun des accusés de réception
type AckResult struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// EncodeRequest encode une requête en JSON
func EncodeRequest(event constants.EventType, ackID string, payload interface{}) ([]byte, error) {
	req := Request{Event: event, AckID: ackID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = raw
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return data, nil
}

// DecodeRequest décode une requête depuis bytes
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	if req.Event == "" {
		return nil, fmt.Errorf("request event is empty")
	}
	return &req, nil
}

// EncodeMessage encode directement un message
func EncodeMessage(msg *Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

// DecodeMessage décode directement un message depuis bytes
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// NewEvent construit une diffusion; seq et timestamp sont posés à l'envoi
func NewEvent(event constants.EventType, payload interface{}) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return &Message{Event: event, Payload: raw}, nil
}

// NewAck construit un accusé positif: {ok:true, ...payload}
func NewAck(ackID string, payload interface{}, at time.Time) (*Message, error) {
	fields, err := objectFields(payload)
	if err != nil {
		return nil, err
	}
	fields["ok"] = json.RawMessage("true")
	return ackMessage(ackID, fields, at)
}

// NewAckError construit un accusé négatif: {ok:false, code, message, ...détails}
func NewAckError(ackID string, e *errs.Error, at time.Time) (*Message, error) {
	fields, err := objectFields(e.Details)
	if err != nil {
		return nil, err
	}
	if e.Kind == errs.KindInternal {
		fields = make(map[string]json.RawMessage)
	}
	fields["ok"] = json.RawMessage("false")
	for key, value := range map[string]string{"code": e.Code, "message": e.PublicMessage()} {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ack %s: %w", key, err)
		}
		fields[key] = raw
	}
	return ackMessage(ackID, fields, at)
}

func ackMessage(ackID string, fields map[string]json.RawMessage, at time.Time) (*Message, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ack: %w", err)
	}
	return &Message{Event: constants.EvtAck, AckID: ackID, Timestamp: at, Payload: raw}, nil
}

// objectFields aplatit un payload objet en champs JSON
func objectFields(payload interface{}) (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	if payload == nil {
		return fields, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ack payload: %w", err)
	}
	if string(raw) == "null" {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("ack payload must be an object: %w", err)
	}
	return fields, nil
}

// DecodeAck lit l'en-tête d'un accusé et décode le reste dans target (optionnel)
func DecodeAck(msg *Message, target interface{}) (*AckResult, error) {
	var res AckResult
	if len(msg.Payload) == 0 {
		return nil, fmt.Errorf("ack %s has no payload", msg.AckID)
	}
	if err := json.Unmarshal(msg.Payload, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ack: %w", err)
	}
	if target != nil && res.OK {
		if err := json.Unmarshal(msg.Payload, target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ack payload: %w", err)
		}
	}
	return &res, nil
}
