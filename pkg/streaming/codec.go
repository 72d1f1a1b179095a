package streaming

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blasternet/combatsync/pkg/core"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownType is returned for frames whose type is neither a request nor a notification.
var ErrUnknownType = errors.New("unknown message type")

// Codec serializes frames and payloads.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                       { return "msgpack" }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

var (
	JSON    Codec = jsonCodec{}
	MsgPack Codec = msgpackCodec{}
)

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "msgpack":
		return MsgPack, nil
	case "json":
		return JSON, nil
	}
	return nil, fmt.Errorf("unsupported codec: %s", name)
}

// Frame is one message on a participant link.
type Frame struct {
	Type   string        `json:"type" msgpack:"type"`
	Seq    uint64        `json:"seq" msgpack:"seq"`
	Player core.PlayerID `json:"player" msgpack:"player"`
	Body   []byte        `json:"body,omitempty" msgpack:"body,omitempty"`
}

// EncodeFrame serializes payload and wraps it in a frame. A nil payload
// produces an empty body.
func EncodeFrame(c Codec, typ string, player core.PlayerID, seq uint64, payload any) ([]byte, error) {
	if !IsRequest(typ) && !IsNotification(typ) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	f := Frame{Type: typ, Seq: seq, Player: player}
	if payload != nil {
		body, err := c.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		f.Body = body
	}
	data, err := c.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", typ, err)
	}
	return data, nil
}

// DecodeFrame parses a frame without decoding its body.
func DecodeFrame(c Codec, data []byte) (Frame, error) {
	var f Frame
	if err := c.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("unmarshal frame: %w", err)
	}
	if !IsRequest(f.Type) && !IsNotification(f.Type) {
		return Frame{}, fmt.Errorf("%w: %s", ErrUnknownType, f.Type)
	}
	return f, nil
}

// DecodeBody unmarshals the frame body into v.
func (f Frame) DecodeBody(c Codec, v any) error {
	if len(f.Body) == 0 {
		return nil
	}
	if err := c.Unmarshal(f.Body, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", f.Type, err)
	}
	return nil
}
