package protocol

import (
	"errors"
	"io"
)

// Decoding limits. Length prefixes come off the wire, so every allocation
// they drive is capped.
const (
	// MaxBlobSize caps a single length-prefixed byte field.
	MaxBlobSize = MaxPayloadSize

	// MaxCount caps collection counts (batch ids, auxiliary buffers).
	MaxCount = 65536
)

// Codec errors.
var (
	ErrVarintOverflow = errors.New("protocol: varint overflow")
	ErrBlobTooLarge   = errors.New("protocol: length prefix exceeds limit")
	ErrCountTooLarge  = errors.New("protocol: collection count exceeds limit")
)

// Encoder appends wire primitives to a growing buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with a small default capacity.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 128)}
}

// Bytes returns the encoded bytes, valid until the next write.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Byte appends a single byte.
func (e *Encoder) Byte(b byte) {
	e.buf = append(e.buf, b)
}

// Uvarint appends v in base-128 varint form, 7 bits per byte, MSB as the
// continuation bit.
func (e *Encoder) Uvarint(v uint64) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

// String appends a varint length followed by the string bytes.
func (e *Encoder) String(s string) {
	e.Uvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// Blob appends a varint length followed by raw bytes.
func (e *Encoder) Blob(b []byte) {
	e.Uvarint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// Decoder reads wire primitives from a byte buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// Byte reads one byte.
func (d *Decoder) Byte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// Uvarint reads a base-128 varint.
func (d *Decoder) Uvarint() (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; ; i++ {
		if i >= 10 {
			return 0, ErrVarintOverflow
		}
		b, err := d.Byte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
	}
}

// String reads a varint-length-prefixed string.
func (d *Decoder) String() (string, error) {
	b, err := d.Blob()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Blob reads a varint-length-prefixed byte field. The returned slice is a
// copy.
func (d *Decoder) Blob() ([]byte, error) {
	n, err := d.Uvarint()
	if err != nil {
		return nil, err
	}
	if n > MaxBlobSize {
		return nil, ErrBlobTooLarge
	}
	if int(n) > d.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	out := make([]byte, n)
	copy(out, d.buf[d.pos:d.pos+int(n)])
	d.pos += int(n)
	return out, nil
}

// Count reads a varint and validates it as a collection count.
func (d *Decoder) Count() (int, error) {
	n, err := d.Uvarint()
	if err != nil {
		return 0, err
	}
	if n > MaxCount {
		return 0, ErrCountTooLarge
	}
	return int(n), nil
}
