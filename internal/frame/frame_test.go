package frame

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04}

	encoded, err := Encode(payload, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	d := NewDecoder()
	frames, err := d.Feed(encoded)
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Compressed {
		t.Error("expected compressed flag false")
	}
	if !bytes.Equal(frames[0].Payload, payload) {
		t.Errorf("payload mismatch: expected %x, got %x", payload, frames[0].Payload)
	}
}

func TestEncodeSetsCompressedFlag(t *testing.T) {
	encoded, err := Encode([]byte{0xAA}, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	d := NewDecoder()
	frames, err := d.Feed(encoded)
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(frames) != 1 || !frames[0].Compressed {
		t.Errorf("expected one compressed frame, got %+v", frames)
	}
}

func TestEncodeEmptyPayloadIsTickBoundary(t *testing.T) {
	encoded, err := Encode(nil, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(encoded) != 2 {
		t.Fatalf("expected 2-byte frame for empty payload, got %d bytes", len(encoded))
	}

	d := NewDecoder()
	frames, err := d.Feed(encoded)
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(frames) != 1 || len(frames[0].Payload) != 0 {
		t.Errorf("expected one empty frame, got %+v", frames)
	}
}

func TestEncodeOversizeFrameFails(t *testing.T) {
	big := make([]byte, MaxFrameLen) // +2 header bytes overflows the 15-bit field
	_, err := Encode(big, false)
	if err == nil {
		t.Fatal("expected ErrOversizeFrame, got nil")
	}
}

func TestDecoderTrailingPartialFrameIsBuffered(t *testing.T) {
	a, _ := Encode([]byte{0x01}, false)
	b, _ := Encode([]byte{0x02, 0x03}, false)

	combined := append(append([]byte{}, a...), b...)
	// split mid-second-frame, including inside its header
	split := len(a) + 1

	d := NewDecoder()
	frames, err := d.Feed(combined[:split])
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(frames) != 1 || !bytes.Equal(frames[0].Payload, []byte{0x01}) {
		t.Fatalf("expected only the first frame, got %+v", frames)
	}

	frames, err = d.Feed(combined[split:])
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(frames) != 1 || !bytes.Equal(frames[0].Payload, []byte{0x02, 0x03}) {
		t.Fatalf("expected the second frame after the rest arrives, got %+v", frames)
	}
}

func TestDecoderFeedByteAtATime(t *testing.T) {
	payload := []byte{0x10, 0x20, 0x30, 0x40, 0x50}
	encoded, _ := Encode(payload, true)

	d := NewDecoder()
	var got []Frame
	for _, b := range encoded {
		frames, err := d.Feed([]byte{b})
		if err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
		got = append(got, frames...)
	}
	if len(got) != 1 || !got[0].Compressed || !bytes.Equal(got[0].Payload, payload) {
		t.Fatalf("unexpected result feeding byte-at-a-time: %+v", got)
	}
}

func TestDecoderMultipleFramesInOneFeed(t *testing.T) {
	a, _ := Encode([]byte{0x01}, false)
	b, _ := Encode([]byte{0x02}, true)
	c, _ := Encode(nil, false)

	combined := append(append(append([]byte{}, a...), b...), c...)

	d := NewDecoder()
	frames, err := d.Feed(combined)
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if frames[1].Compressed != true || frames[2].Compressed != false || len(frames[2].Payload) != 0 {
		t.Errorf("unexpected frame contents: %+v", frames)
	}
}

func TestDecoderShortFrameIsFatal(t *testing.T) {
	d := NewDecoder()
	// total length field of 1 is shorter than the 2-byte header itself
	_, err := d.Feed([]byte{0x01, 0x00})
	if err != ErrShortFrame {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}

func TestReadFrame(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	encoded, _ := Encode(payload, true)

	f, err := ReadFrame(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if !f.Compressed || !bytes.Equal(f.Payload, payload) {
		t.Errorf("unexpected frame: %+v", f)
	}
}

func TestReadFrameShortHeaderIsFatal(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x01, 0x00}))
	if err != ErrShortFrame {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}
