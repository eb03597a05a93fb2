package ws

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/espnow.go/pkg/assoc"
	"github.com/robotalks/espnow.go/pkg/radio"
)

func TestSeq(t *testing.T) {
	require.Equal(t, Seq(1), Seq(0).Next())
	require.Equal(t, Seq(1), Seq(0xef).Next())
	require.Equal(t, Seq(3), Seq(2).Next())
	require.False(t, Seq(0).IsValid())
	require.False(t, Seq(0xf0).IsValid())
	require.True(t, Seq(0xef).IsValid())
}

func TestPacket(t *testing.T) {
	pkt := &Packet{Seq: 5, Code: CodeTx, Data: []byte{1, 2}}
	b := pkt.Bytes()
	require.Equal(t, []byte{5, CodeTx, 1, 2}, b)
	decoded, err := DecodePacket(b)
	require.NoError(t, err)
	require.Equal(t, pkt, decoded)
	require.False(t, decoded.IsEvent())
	require.False(t, decoded.IsError())

	require.True(t, (&Packet{Code: CodeRx}).IsEvent())
	require.False(t, (&Packet{Code: CodeRx}).IsError())
	require.True(t, errorTo(pkt, errors.New("x")).IsError())

	_, err = DecodePacket([]byte{1})
	require.Equal(t, ErrBadPacket, err)
}

func TestCredentialsEncoding(t *testing.T) {
	creds := assoc.Credentials{SSID: "P601", Password: "00000000", Channel: 10}
	decoded, err := decodeCredentials(encodeCredentials(creds))
	require.NoError(t, err)
	require.Equal(t, creds, decoded)

	for _, b := range [][]byte{nil, {10, 4, 'P'}, {10, 1, 'P', 3, 'a'}} {
		_, err := decodeCredentials(b)
		require.True(t, errors.Is(err, ErrBadPacket))
	}
}

func TestHelloEncoding(t *testing.T) {
	addr := radio.MustParseAddr("02:00:00:00:00:0A")
	decoded, ch, err := decodeHello(encodeHello(addr, 6))
	require.NoError(t, err)
	require.Equal(t, addr, decoded)
	require.Equal(t, 6, ch)

	v, err := decodeVersion(encodeVersion(0x01020304))
	require.NoError(t, err)
	require.Equal(t, uint32(0x01020304), v)
	_, err = decodeVersion([]byte{1})
	require.True(t, errors.Is(err, ErrBadPacket))
}

func TestSendErrorEncoding(t *testing.T) {
	reply := sendErrorTo(&Packet{Seq: 1}, radio.ErrBusy)
	require.True(t, reply.IsError())
	var se *radio.SendError
	require.True(t, errors.As(decodeSendError(reply.Data), &se))
	require.Equal(t, radio.KindBusy, se.Kind)
	require.Equal(t, "radio busy", se.Err.Error())
}
