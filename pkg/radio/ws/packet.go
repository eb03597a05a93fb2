package ws

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/robotalks/espnow.go/pkg/assoc"
	"github.com/robotalks/espnow.go/pkg/radio"
)

// Seq is the request sequence number. Replies carry the sequence number
// of the request.
type Seq byte

// Next returns the next valid sequence number.
func (s Seq) Next() Seq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return Seq(n)
}

// IsValid checks if it's a valid request sequence number.
func (s Seq) IsValid() bool {
	return s > 0 && s < 0xf0
}

// Codes. Events (unsolicited, Seq 0) have the high bit set; replies
// with the low bit set are errors carrying the message in Data.
const (
	CodeHello    byte = 0x02
	CodeChannel  byte = 0x04
	CodeTx       byte = 0x06
	CodeAssoc    byte = 0x08
	CodeOK       byte = 0x00
	CodeErr      byte = 0x01
	CodeRx       byte = 0x82
	CodeLinkLost byte = 0x84
)

// ErrBadPacket indicates a packet can't be decoded.
var ErrBadPacket = errors.New("bad packet")

// Packet is one WebSocket message between a radio and the hub.
type Packet struct {
	Seq  Seq
	Code byte
	Data []byte
}

// IsEvent indicates the packet is unsolicited.
func (p *Packet) IsEvent() bool {
	return p.Code&0x80 != 0
}

// IsError indicates the packet is an error reply.
func (p *Packet) IsError() bool {
	return !p.IsEvent() && p.Code&1 != 0
}

// Bytes encodes the packet.
func (p *Packet) Bytes() []byte {
	b := make([]byte, 2+len(p.Data))
	b[0], b[1] = byte(p.Seq), p.Code
	copy(b[2:], p.Data)
	return b
}

// DecodePacket decodes a message.
func DecodePacket(b []byte) (*Packet, error) {
	if len(b) < 2 {
		return nil, ErrBadPacket
	}
	return &Packet{Seq: Seq(b[0]), Code: b[1], Data: b[2:]}, nil
}

func replyTo(req *Packet, data []byte) *Packet {
	return &Packet{Seq: req.Seq, Code: CodeOK, Data: data}
}

func errorTo(req *Packet, err error) *Packet {
	return &Packet{Seq: req.Seq, Code: CodeErr, Data: []byte(err.Error())}
}

// hello: addr(6) channel(1); reply: version(4, big-endian).
func encodeHello(addr radio.Addr, channel int) []byte {
	b := make([]byte, 7)
	copy(b, addr[:])
	b[6] = byte(channel)
	return b
}

func decodeHello(b []byte) (addr radio.Addr, channel int, err error) {
	if len(b) != 7 {
		return addr, 0, fmt.Errorf("hello: %w", ErrBadPacket)
	}
	copy(addr[:], b)
	return addr, int(b[6]), nil
}

func encodeVersion(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func decodeVersion(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("version: %w", ErrBadPacket)
	}
	return binary.BigEndian.Uint32(b), nil
}

// assoc: channel(1) len(1) ssid len(1) password; reply: channel(1).
func encodeCredentials(c assoc.Credentials) []byte {
	b := []byte{byte(c.Channel), byte(len(c.SSID))}
	b = append(b, c.SSID...)
	b = append(b, byte(len(c.Password)))
	return append(b, c.Password...)
}

func decodeCredentials(b []byte) (c assoc.Credentials, err error) {
	bad := fmt.Errorf("credentials: %w", ErrBadPacket)
	if len(b) < 2 {
		return c, bad
	}
	c.Channel = int(b[0])
	n := int(b[1])
	b = b[2:]
	if len(b) < n+1 {
		return c, bad
	}
	c.SSID, b = string(b[:n]), b[n:]
	n = int(b[0])
	if len(b) != n+1 {
		return c, bad
	}
	c.Password = string(b[1:])
	return c, nil
}
