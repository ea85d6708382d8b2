package protocol

import "errors"

// ControlKind identifies a control message.
type ControlKind uint8

const (
	ControlPing  ControlKind = 0x01
	ControlPong  ControlKind = 0x02
	ControlClose ControlKind = 0x03
)

// ErrUnknownControl is returned for unrecognized control kinds.
var ErrUnknownControl = errors.New("protocol: unknown control kind")

// Control is a heartbeat or shutdown message.
type Control struct {
	Kind ControlKind

	// Timestamp is the sender's UnixMilli, echoed in pongs for latency
	// measurement.
	Timestamp uint64

	// Reason accompanies a close.
	Reason string
}

// EncodeControl encodes a Control payload.
func EncodeControl(c *Control) []byte {
	e := NewEncoder()
	e.Byte(byte(c.Kind))
	e.Uvarint(c.Timestamp)
	e.String(c.Reason)
	return e.Bytes()
}

// DecodeControl decodes a Control payload.
func DecodeControl(data []byte) (*Control, error) {
	d := NewDecoder(data)
	kind, err := d.Byte()
	if err != nil {
		return nil, err
	}
	c := &Control{Kind: ControlKind(kind)}
	switch c.Kind {
	case ControlPing, ControlPong, ControlClose:
	default:
		return nil, ErrUnknownControl
	}
	if c.Timestamp, err = d.Uvarint(); err != nil {
		return nil, err
	}
	if c.Reason, err = d.String(); err != nil {
		return nil, err
	}
	return c, nil
}

// ErrorCode classifies protocol-level errors sent to peers.
type ErrorCode uint16

const (
	ErrCodeInvalidFrame   ErrorCode = 1
	ErrCodeUnknownHandle  ErrorCode = 2
	ErrCodeQueueFull      ErrorCode = 3
	ErrCodeHandlerFailure ErrorCode = 4
)

// ErrorMessage reports a protocol-level error to the peer.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
}

// EncodeErrorMessage encodes an ErrorMessage payload.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.Uvarint(uint64(em.Code))
	e.String(em.Message)
	return e.Bytes()
}

// DecodeErrorMessage decodes an ErrorMessage payload.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	code, err := d.Uvarint()
	if err != nil {
		return nil, err
	}
	msg, err := d.String()
	if err != nil {
		return nil, err
	}
	return &ErrorMessage{Code: ErrorCode(code), Message: msg}, nil
}
