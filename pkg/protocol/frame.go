package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 6

	// MaxPayloadSize caps a payload at 16MB. Kernel messages can carry
	// auxiliary buffers, so the cap is generous but finite.
	MaxPayloadSize = 16 << 20
)

// FrameType identifies the kind of frame.
type FrameType uint8

const (
	FrameHello         FrameType = 0x00 // connection setup, session resume
	FrameSetValue      FrameType = 0x01 // client -> server input value
	FrameValueUpdate   FrameType = 0x02 // server -> client sibling update
	FrameReadyBatch    FrameType = 0x03 // server -> kernel fresh values
	FrameKernelMessage FrameType = 0x04 // kernel -> server out-of-band push
	FramePurge         FrameType = 0x05 // kernel -> server owner teardown
	FrameControl       FrameType = 0x06 // ping, pong, close
	FrameError         FrameType = 0x07 // error report
)

// String returns the frame type's name.
func (ft FrameType) String() string {
	switch ft {
	case FrameHello:
		return "Hello"
	case FrameSetValue:
		return "SetValue"
	case FrameValueUpdate:
		return "ValueUpdate"
	case FrameReadyBatch:
		return "ReadyBatch"
	case FrameKernelMessage:
		return "KernelMessage"
	case FramePurge:
		return "Purge"
	case FrameControl:
		return "Control"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	// FlagCompressed marks a gzip-compressed payload.
	FlagCompressed FrameFlags = 0x01
)

// Has reports whether the flags contain flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge = errors.New("protocol: frame payload too large")
	ErrShortFrame    = errors.New("protocol: short frame")
)

// Frame is one protocol frame: a 6-byte header and a payload.
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode returns the wire bytes of the frame, header included.
func (f *Frame) Encode() []byte {
	buf := make([]byte, FrameHeaderSize+len(f.Payload))
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	binary.BigEndian.PutUint32(buf[2:6], uint32(len(f.Payload)))
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf
}

// DecodeFrame decodes a frame from data. The payload is copied, so data
// may be reused by the caller.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, ErrShortFrame
	}
	length := int(binary.BigEndian.Uint32(data[2:6]))
	if length > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	if len(data) < FrameHeaderSize+length {
		return nil, ErrShortFrame
	}
	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:FrameHeaderSize+length])
	return &Frame{
		Type:    FrameType(data[0]),
		Flags:   FrameFlags(data[1]),
		Payload: payload,
	}, nil
}

// ReadFrame reads one complete frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint32(header[2:6]))
	if length > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return &Frame{
		Type:    FrameType(header[0]),
		Flags:   FrameFlags(header[1]),
		Payload: payload,
	}, nil
}

// WriteFrame writes f to w.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}
