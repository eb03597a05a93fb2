package radio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	src := Addr{0x24, 0x6f, 0x28, 1, 2, 3}
	testCases := []struct {
		name   string
		frame  Frame
		expect []byte
	}{
		{
			"broadcast hello",
			Frame{Dst: BroadcastAddr, Src: src, Channel: 10, Payload: []byte("Hello")},
			[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x24, 0x6f, 0x28, 1, 2, 3, 10, 5, 'H', 'e', 'l', 'l', 'o'},
		},
		{
			"no payload",
			Frame{Dst: Addr{1, 2, 3, 4, 5, 6}, Src: src, Channel: 1},
			[]byte{1, 2, 3, 4, 5, 6, 0x24, 0x6f, 0x28, 1, 2, 3, 1, 0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.frame.Bytes())
			var buf bytes.Buffer
			n, err := tc.frame.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, tc.expect, buf.Bytes())
			require.EqualValues(t, len(tc.expect), n)

			decoded, err := DecodeFrame(tc.expect)
			require.NoError(t, err)
			require.Equal(t, tc.frame, *decoded)
		})
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", make([]byte, FrameHeaderSize-1)},
		{"length mismatch", append(make([]byte, FrameHeaderSize-1), 3, 'a')},
		{"trailing bytes", append(make([]byte, FrameHeaderSize), 'a')},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeFrame(tc.data)
			require.True(t, errors.Is(err, ErrMalformedFrame))
		})
	}
}

func TestFrameTooLarge(t *testing.T) {
	f := Frame{Dst: BroadcastAddr, Payload: make([]byte, MaxPayload+1)}
	_, err := f.WriteTo(&bytes.Buffer{})
	require.Equal(t, ErrPayloadTooLarge, err)
}

func TestPeerTable(t *testing.T) {
	var peers PeerTable
	require.Equal(t, ErrUnknownPeer, peers.Check(BroadcastAddr, []byte("Hello")))
	peers.Add(BroadcastAddr)
	require.NoError(t, peers.Check(BroadcastAddr, []byte("Hello")))
	require.Equal(t, ErrPayloadTooLarge, peers.Check(BroadcastAddr, make([]byte, MaxPayload+1)))
}
