// Package frame implements the length-prefixed wire framing used for every
// server→client unit: a 2-byte little-endian header packing the frame's
// total length (including the header) into its low 15 bits and a
// "compressed" flag into the high bit, followed by the payload.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	compressedBit = 0x8000
	lengthMask    = 0x7FFF

	// MaxFrameLen is the largest total frame length (header included) the
	// 15-bit length field can express.
	MaxFrameLen = lengthMask

	headerLen = 2
)

// ErrOversizeFrame is returned by Encode when the payload plus header would
// not fit in the 15-bit length field.
var ErrOversizeFrame = errors.New("frame: payload too large for 15-bit length field")

// ErrShortFrame is returned by the decoder when a header's total length is
// less than the header size itself — always a protocol violation.
var ErrShortFrame = errors.New("frame: total length shorter than header")

// Encode returns the framed bytes for payload, setting the compressed flag
// if compressed is true. It fails if n+2 would overflow the 15-bit length
// field, since the protocol has no way to express a larger frame.
func Encode(payload []byte, compressed bool) ([]byte, error) {
	total := len(payload) + headerLen
	if total > MaxFrameLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrOversizeFrame, total)
	}

	out := make([]byte, total)
	header := uint16(total)
	if compressed {
		header |= compressedBit
	}
	binary.LittleEndian.PutUint16(out, header)
	copy(out[headerLen:], payload)
	return out, nil
}

// Decoder reads frames off a byte stream, tolerating partial reads across
// socket boundaries: each call to Feed buffers whatever bytes are
// available and returns any frames that became complete as a result.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Frame is one decoded frame: its payload (header stripped) and whether the
// compressed flag was set.
type Frame struct {
	Payload    []byte
	Compressed bool
}

// Feed appends chunk to the internal buffer and extracts as many complete
// frames as are now available. It never blocks; a trailing partial frame
// remains buffered for the next call.
func (d *Decoder) Feed(chunk []byte) ([]Frame, error) {
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for {
		if len(d.buf) < headerLen {
			break
		}
		header := binary.LittleEndian.Uint16(d.buf)
		total := int(header & lengthMask)
		if total < headerLen {
			return frames, ErrShortFrame
		}
		if len(d.buf) < total {
			break
		}

		payload := make([]byte, total-headerLen)
		copy(payload, d.buf[headerLen:total])
		frames = append(frames, Frame{
			Payload:    payload,
			Compressed: header&compressedBit != 0,
		})
		d.buf = d.buf[total:]
	}
	return frames, nil
}

// ReadFrame reads exactly one frame from r, blocking until the header and
// full payload have arrived. It is the synchronous counterpart to Feed, for
// callers that own a blocking reader rather than a non-blocking socket loop.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	header := binary.LittleEndian.Uint16(hdr[:])
	total := int(header & lengthMask)
	if total < headerLen {
		return Frame{}, ErrShortFrame
	}

	payload := make([]byte, total-headerLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, err
	}
	return Frame{Payload: payload, Compressed: header&compressedBit != 0}, nil
}
