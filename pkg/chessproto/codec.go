package chessproto

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrUnknownMessage is returned for a discriminant the receiving side does not know.
	ErrUnknownMessage = errors.New("chessproto: unknown message type")
	// ErrMalformedMessage is returned when a unit is valid JSON but not a message envelope.
	ErrMalformedMessage = errors.New("chessproto: malformed message")
)

// Encoder writes one self-delimiting JSON unit per Encode call:
// {"<type>":<payload>} followed by a newline.
type Encoder struct {
	enc *json.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Encoder{enc: enc}
}

// Encode serializes m. The whole unit is handed to the writer in a single Write.
func (e *Encoder) Encode(m Message) error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrMalformedMessage)
	}
	envelope := map[string]Message{m.MessageType(): m}
	if err := e.enc.Encode(envelope); err != nil {
		return fmt.Errorf("chessproto: encode %s: %w", m.MessageType(), err)
	}
	return nil
}

// Decoder reads consecutive units from one stream. It must be kept for the
// lifetime of the stream: bytes read ahead of the current unit stay in its buffer
// and belong to the next call.
type Decoder struct {
	dec *json.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// ReadClientMessage blocks until one complete client→server unit is available.
// A clean end of stream is reported as io.EOF and a cut-off unit as
// io.ErrUnexpectedEOF (both wrapped).
func (d *Decoder) ReadClientMessage() (ClientMessage, error) {
	typ, raw, err := d.next()
	if err != nil {
		return nil, err
	}
	var msg ClientMessage
	switch typ {
	case TypeHandshake:
		var v Handshake
		err = unmarshalPayload(raw, &v)
		msg = v
	case TypeSubmitMove:
		var v SubmitMove
		err = unmarshalPayload(raw, &v)
		msg = v
	case TypeResign:
		msg = Resign{}
	case TypeOfferDraw:
		msg = OfferDraw{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, typ, err)
	}
	return msg, nil
}

// ReadServerMessage blocks until one complete server→client unit is available.
func (d *Decoder) ReadServerMessage() (ServerMessage, error) {
	typ, raw, err := d.next()
	if err != nil {
		return nil, err
	}
	var msg ServerMessage
	switch typ {
	case TypeHandshakeAck:
		var v HandshakeAck
		err = unmarshalPayload(raw, &v)
		msg = v
	case TypeState:
		var v State
		err = unmarshalPayload(raw, &v)
		msg = v
	case TypeMoveRejected:
		var v MoveRejected
		err = unmarshalPayload(raw, &v)
		msg = v
	case TypeDrawAccepted:
		var v DrawAccepted
		err = unmarshalPayload(raw, &v)
		msg = v
	case TypeResigned:
		var v Resigned
		err = unmarshalPayload(raw, &v)
		msg = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, typ, err)
	}
	return msg, nil
}

func (d *Decoder) next() (string, json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := d.dec.Decode(&envelope); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return "", nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return "", nil, fmt.Errorf("chessproto: decode: %w", err)
	}
	if len(envelope) != 1 {
		return "", nil, fmt.Errorf("%w: expected exactly one discriminant, got %d", ErrMalformedMessage, len(envelope))
	}
	for typ, raw := range envelope {
		return typ, raw, nil
	}
	return "", nil, ErrMalformedMessage
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errors.New("missing payload")
	}
	return json.Unmarshal(raw, v)
}
