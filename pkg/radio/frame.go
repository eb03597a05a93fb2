package radio

import (
	"io"
)

// FrameHeaderSize is the encoded size of a frame without payload.
const FrameHeaderSize = 14

// Bytes returns encoded bytes for sending.
// Layout: dst(6) src(6) channel(1) length(1) payload.
func (f *Frame) Bytes() []byte {
	b := make([]byte, FrameHeaderSize+len(f.Payload))
	f.put(b)
	return b
}

func (f *Frame) put(b []byte) {
	copy(b[0:6], f.Dst[:])
	copy(b[6:12], f.Src[:])
	b[12], b[13] = byte(f.Channel), byte(len(f.Payload))
	copy(b[FrameHeaderSize:], f.Payload)
}

// WriteTo writes encoded bytes.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	if len(f.Payload) > MaxPayload {
		return 0, ErrPayloadTooLarge
	}
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// DecodeFrame decodes a frame encoded by Bytes.
func DecodeFrame(b []byte) (*Frame, error) {
	if len(b) < FrameHeaderSize {
		return nil, ErrMalformedFrame
	}
	size := int(b[13])
	if size > MaxPayload || len(b) != FrameHeaderSize+size {
		return nil, ErrMalformedFrame
	}
	f := &Frame{Channel: int(b[12])}
	copy(f.Dst[:], b[0:6])
	copy(f.Src[:], b[6:12])
	if size > 0 {
		f.Payload = append([]byte(nil), b[FrameHeaderSize:]...)
	}
	return f, nil
}

// CheckPayload validates the payload size.
func CheckPayload(payload []byte) error {
	if len(payload) > MaxPayload {
		return ErrPayloadTooLarge
	}
	return nil
}
