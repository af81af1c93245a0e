package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec names accepted in the ?codec= query parameter
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Codec frames events for one connection. Every frame is an envelope
// {"event": name, "data": payload}.
type Codec interface {
	Name() string
	// MessageType is the websocket frame type the codec writes
	MessageType() int
	Encode(event string, data any) ([]byte, error)
	Decode(frame []byte) (Inbound, error)
}

// Inbound is a decoded client frame whose payload is bound lazily
type Inbound struct {
	Event string
	data  []byte
	bind  func(data []byte, v any) error
}

// HasData reports whether the frame carried a payload
func (in Inbound) HasData() bool {
	return len(in.data) > 0
}

// Bind decodes the payload into v
func (in Inbound) Bind(v any) error {
	if !in.HasData() {
		return fmt.Errorf("event %q has no data", in.Event)
	}
	if err := in.bind(in.data, v); err != nil {
		return fmt.Errorf("failed to decode %q payload: %w", in.Event, err)
	}
	return nil
}

// CodecFor returns the codec registered under name, defaulting to JSON
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

type jsonEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// JSONCodec writes text frames
type JSONCodec struct{}

func (JSONCodec) Name() string     { return CodecJSON }
func (JSONCodec) MessageType() int { return websocket.TextMessage }

func (JSONCodec) Encode(event string, data any) ([]byte, error) {
	return json.Marshal(outEnvelope{Event: event, Data: data})
}

func (JSONCodec) Decode(frame []byte) (Inbound, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Inbound{}, fmt.Errorf("invalid json frame: %w", err)
	}
	if env.Event == "" {
		return Inbound{}, fmt.Errorf("frame has no event name")
	}
	in := Inbound{Event: env.Event, bind: json.Unmarshal}
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		in.data = env.Data
	}
	return in, nil
}

type msgpackEnvelope struct {
	Event string             `json:"event"`
	Data  msgpack.RawMessage `json:"data"`
}

// MsgpackCodec writes binary frames. Struct fields use their json names so
// both codecs carry the same payload shape.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string     { return CodecMsgpack }
func (MsgpackCodec) MessageType() int { return websocket.BinaryMessage }

func (MsgpackCodec) Encode(event string, data any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(outEnvelope{Event: event, Data: data}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Decode(frame []byte) (Inbound, error) {
	var env msgpackEnvelope
	if err := msgpackUnmarshal(frame, &env); err != nil {
		return Inbound{}, fmt.Errorf("invalid msgpack frame: %w", err)
	}
	if env.Event == "" {
		return Inbound{}, fmt.Errorf("frame has no event name")
	}
	in := Inbound{Event: env.Event, bind: msgpackUnmarshal}
	// 0xc0 is nil
	if len(env.Data) > 0 && !(len(env.Data) == 1 && env.Data[0] == 0xc0) {
		in.data = env.Data
	}
	return in, nil
}

func msgpackUnmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
