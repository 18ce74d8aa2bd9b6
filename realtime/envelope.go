package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrMalformedFrame = errors.New("malformed-frame")

const (
	fieldType      protowire.Number = 1
	fieldRequestID protowire.Number = 2
	fieldPayload   protowire.Number = 3
)

// Frame is the unit exchanged over the socket. Requests carry a non-zero
// RequestID that the matching reply echoes; events use zero.
type Frame struct {
	Type      string
	RequestID uint64
	Payload   []byte
}

func EncodeFrame(f Frame) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldType, protowire.BytesType)
	b = protowire.AppendString(b, f.Type)
	if f.RequestID != 0 {
		b = protowire.AppendTag(b, fieldRequestID, protowire.VarintType)
		b = protowire.AppendVarint(b, f.RequestID)
	}
	if len(f.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Payload)
	}
	return b
}

// DecodeFrame skips unknown fields so older clients keep working.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, protowire.ParseError(n))
			}
			f.Type = v
			data = data[n:]
		case num == fieldRequestID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, protowire.ParseError(n))
			}
			f.RequestID = v
			data = data[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, protowire.ParseError(n))
			}
			f.Payload = append([]byte(nil), v...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return f, nil
}

// eventFrame encodes v as the JSON payload of an event.
func eventFrame(eventType string, v any) []byte {
	return replyFrame(eventType, 0, v)
}

func replyFrame(eventType string, requestID uint64, v any) []byte {
	var payload []byte
	if v != nil {
		var err error
		payload, err = json.Marshal(v)
		if err != nil {
			payload = []byte(`{"error":"unexpected-error"}`)
		}
	}
	return EncodeFrame(Frame{Type: eventType, RequestID: requestID, Payload: payload})
}
