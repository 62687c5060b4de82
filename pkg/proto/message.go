package proto

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/trytobebee/snake_engine/pkg/config"
	"github.com/trytobebee/snake_engine/pkg/game"
)

// Server message types
const (
	TypeConfig = "config"
	TypeState  = "state"
	TypeError  = "error"
)

// Client actions besides the four directions
const (
	ActionRestart = "restart"
	ActionTick    = "tick"
)

// ServerMessage is one websocket frame sent to a client.
type ServerMessage struct {
	Type      string         `json:"type" msgpack:"type"`
	SessionID string         `json:"sessionId,omitempty" msgpack:"sessionId,omitempty"`
	Config    *config.Rules  `json:"config,omitempty" msgpack:"config,omitempty"`
	State     *WireState     `json:"state,omitempty" msgpack:"state,omitempty"`
	Snapshot  *game.Snapshot `json:"snapshot,omitempty" msgpack:"snapshot,omitempty"`
	Error     string         `json:"error,omitempty" msgpack:"error,omitempty"`
}

// ClientMessage is one websocket frame received from a client.
type ClientMessage struct {
	Action     string `json:"action" msgpack:"action"`
	PlayerName string `json:"playerName,omitempty" msgpack:"playerName,omitempty"`
}

// StateMessage wraps a snapshot in both its wire and native forms.
func StateMessage(sessionID string, s game.Snapshot) ServerMessage {
	ws := ToWireState(s)
	return ServerMessage{
		Type:      TypeState,
		SessionID: sessionID,
		State:     &ws,
		Snapshot:  &s,
	}
}

// ConfigMessage announces the board rules to a newly connected client.
func ConfigMessage(rules config.Rules) ServerMessage {
	return ServerMessage{Type: TypeConfig, Config: &rules}
}

// EncodeMsgpack encodes m for a binary websocket frame.
func EncodeMsgpack(m ServerMessage) ([]byte, error) {
	data, err := msgpack.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Type, err)
	}
	return data, nil
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func DecodeMsgpack(data []byte) (ServerMessage, error) {
	var m ServerMessage
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}

// DecodeClientMsgpack decodes a binary client frame.
func DecodeClientMsgpack(data []byte) (ClientMessage, error) {
	var m ClientMessage
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}
