package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coder/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/inamate/whiteboard/internal/engine"
	"github.com/inamate/whiteboard/internal/interaction"
)

const (
	// Inbound
	TypePointer = "input.pointer"
	TypeKey     = "input.key"
	TypeWheel   = "input.wheel"
	TypeTool    = "input.tool"
	TypeText    = "input.text"

	// Outbound
	TypeWelcome = "welcome"
	TypeFrame   = "frame"
	TypeError   = "error"
)

// Pointer phases carried by input.pointer.
const (
	PhaseDown   = "down"
	PhaseMove   = "move"
	PhaseUp     = "up"
	PhaseCancel = "cancel"
	// PhaseLost reports a release the canvas never saw.
	PhaseLost = "lost"
)

type PointerPayload struct {
	Phase string                   `json:"phase"`
	Event interaction.PointerEvent `json:"event"`
	// Handle names a resize handle for a down phase, e.g. "bottom-right".
	Handle string `json:"handle,omitempty"`
}

type ToolPayload struct {
	Tool string `json:"tool"`
}

type TextPayload struct {
	Action  string `json:"action"`
	LayerID string `json:"layerId,omitempty"`
	Value   string `json:"value,omitempty"`
}

type WelcomePayload struct {
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
	BoardID   string `json:"boardId"`
	// Document is the persisted JSON form of the loaded board.
	Document json.RawMessage `json:"document"`
}

type CameraView struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

type FramePayload struct {
	Seq       int64                `json:"seq"`
	Commands  []engine.DrawCommand `json:"commands"`
	Selection []string             `json:"selection"`
	Overlay   interaction.Overlay  `json:"overlay"`
	Camera    CameraView           `json:"camera"`
	CanUndo   bool                 `json:"canUndo"`
	CanRedo   bool                 `json:"canRedo"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

var errMissingPayload = errors.New("message has no payload")

// payloadFunc decodes the payload of an inbound message into v.
type payloadFunc func(v any) error

// codec frames messages on the wire. JSON text frames are the default;
// msgpack binary frames are negotiated with ?encoding=msgpack.
type codec interface {
	frameType() websocket.MessageType
	encode(typ string, payload any) ([]byte, error)
	decode(data []byte) (string, payloadFunc, error)
}

func codecFor(encoding string) (codec, error) {
	switch encoding {
	case "", "json":
		return jsonCodec{}, nil
	case "msgpack":
		return msgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", encoding)
}

type jsonEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) frameType() websocket.MessageType { return websocket.MessageText }

func (jsonCodec) encode(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonEnvelope{Type: typ, Payload: raw})
}

func (jsonCodec) decode(data []byte) (string, payloadFunc, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, err
	}
	return env.Type, func(v any) error {
		if len(env.Payload) == 0 {
			return errMissingPayload
		}
		return json.Unmarshal(env.Payload, v)
	}, nil
}

type msgpackEnvelope struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

// msgpackCodec reuses the json struct tags so both encodings share field
// names.
type msgpackCodec struct{}

func (msgpackCodec) frameType() websocket.MessageType { return websocket.MessageBinary }

func (msgpackCodec) encode(typ string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return msgpack.Marshal(msgpackEnvelope{Type: typ, Payload: buf.Bytes()})
}

func (msgpackCodec) decode(data []byte) (string, payloadFunc, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return "", nil, err
	}
	return env.Type, func(v any) error {
		if len(env.Payload) == 0 {
			return errMissingPayload
		}
		dec := msgpack.NewDecoder(bytes.NewReader(env.Payload))
		dec.SetCustomStructTag("json")
		return dec.Decode(v)
	}, nil
}
