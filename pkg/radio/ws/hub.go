package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/espnow.go/pkg/radio"
	"github.com/robotalks/espnow.go/pkg/radio/sim"
)

// Hub plays the air for radios connected over WebSocket. Every
// connection is backed by a simulated radio attached to Air.
type Hub struct {
	Air           *sim.Air
	HandshakeTime time.Duration

	conns map[*hubConn]struct{}
	lock  sync.Mutex
}

type hubConn struct {
	hub     *Hub
	ws      *websocket.Conn
	radio   *sim.Radio
	station *sim.Station
}

// NewHub creates a Hub over air.
func NewHub(air *sim.Air) *Hub {
	return &Hub{Air: air}
}

// ServeHTTP implements http.Handler. Non-browser clients without Origin
// are accepted.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Server{Handler: h.serve}.ServeHTTP(w, r)
}

// Nodes returns the station addresses of connected radios.
func (h *Hub) Nodes() []radio.Addr {
	h.lock.Lock()
	defer h.lock.Unlock()
	addrs := make([]radio.Addr, 0, len(h.conns))
	for c := range h.conns {
		addrs = append(addrs, c.radio.StationAddr())
	}
	return addrs
}

// RemoveAccessPoint takes the access point off air and drops the links
// of the stations associated with it.
func (h *Hub) RemoveAccessPoint(ssid string) {
	h.Air.RemoveAccessPoint(ssid)
	h.lock.Lock()
	var stations []*sim.Station
	for c := range h.conns {
		if c.station.SSID() == ssid {
			stations = append(stations, c.station)
		}
	}
	h.lock.Unlock()
	for _, st := range stations {
		st.DropLink(fmt.Errorf("access point %q gone", ssid))
	}
}

// Close disconnects all radios.
func (h *Hub) Close() error {
	h.lock.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c.ws)
	}
	h.lock.Unlock()
	for _, ws := range conns {
		ws.Close()
	}
	return nil
}

func (h *Hub) serve(ws *websocket.Conn) {
	defer ws.Close()
	c := &hubConn{hub: h, ws: ws}
	hello, err := c.read()
	if err != nil {
		return
	}
	if hello.Code != CodeHello {
		c.write(errorTo(hello, fmt.Errorf("expect hello: %w", ErrBadPacket)))
		return
	}
	addr, channel, err := decodeHello(hello.Data)
	if err == nil {
		c.radio, err = h.Air.Attach(addr)
	}
	if err != nil {
		c.write(errorTo(hello, err))
		return
	}
	defer c.radio.Close()
	if radio.ValidChannel(channel) {
		c.radio.SetChannel(channel)
	}
	c.station = sim.NewStation(c.radio)
	c.station.HandshakeTime = h.HandshakeTime
	c.station.SetLinkLostHandler(func(err error) {
		c.write(&Packet{Code: CodeLinkLost, Data: []byte(err.Error())})
	})

	h.lock.Lock()
	if h.conns == nil {
		h.conns = make(map[*hubConn]struct{})
	}
	h.conns[c] = struct{}{}
	h.lock.Unlock()
	defer func() {
		h.lock.Lock()
		delete(h.conns, c)
		h.lock.Unlock()
	}()

	glog.Infof("hub: %s joined from %s", addr, ws.Request().RemoteAddr)
	defer glog.Infof("hub: %s left", addr)
	if err := c.write(replyTo(hello, encodeVersion(sim.ProtocolVersion))); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.forward(ctx)
	for {
		pkt, err := c.read()
		if err != nil {
			return
		}
		c.handle(ctx, pkt)
	}
}

func (c *hubConn) read() (*Packet, error) {
	var msg []byte
	if err := websocket.Message.Receive(c.ws, &msg); err != nil {
		return nil, err
	}
	return DecodePacket(msg)
}

func (c *hubConn) write(pkt *Packet) error {
	return websocket.Message.Send(c.ws, pkt.Bytes())
}

func (c *hubConn) forward(ctx context.Context) {
	for {
		f, err := c.radio.Receive(ctx)
		if err != nil {
			return
		}
		if c.write(&Packet{Code: CodeRx, Data: f.Bytes()}) != nil {
			return
		}
	}
}

func (c *hubConn) handle(ctx context.Context, pkt *Packet) {
	switch pkt.Code {
	case CodeChannel:
		if len(pkt.Data) != 1 {
			c.write(errorTo(pkt, ErrBadPacket))
			return
		}
		if err := c.radio.SetChannel(int(pkt.Data[0])); err != nil {
			c.write(errorTo(pkt, err))
			return
		}
		c.write(replyTo(pkt, nil))
	case CodeTx:
		f, err := radio.DecodeFrame(pkt.Data)
		if err != nil {
			c.write(errorTo(pkt, err))
			return
		}
		c.radio.AddPeer(f.Dst)
		outcome, err := c.radio.Send(ctx, f.Dst, f.Payload)
		if err != nil {
			c.write(sendErrorTo(pkt, err))
			return
		}
		c.write(replyTo(pkt, []byte{byte(outcome)}))
	case CodeAssoc:
		creds, err := decodeCredentials(pkt.Data)
		if err != nil {
			c.write(errorTo(pkt, err))
			return
		}
		c.station.Configure(creds)
		c.station.Start()
		go func() {
			if err := c.station.Connect(ctx); err != nil {
				c.write(errorTo(pkt, err))
				return
			}
			c.write(replyTo(pkt, []byte{byte(c.radio.Channel())}))
		}()
	default:
		c.write(errorTo(pkt, fmt.Errorf("unknown code 0x%02x: %w", pkt.Code, ErrBadPacket)))
	}
}

// Tx errors: kind(1) message.
func sendErrorTo(req *Packet, err error) *Packet {
	se := radio.NewSendError(err)
	data := append([]byte{byte(se.Kind)}, se.Err.Error()...)
	return &Packet{Seq: req.Seq, Code: CodeErr, Data: data}
}

func decodeSendError(data []byte) error {
	if len(data) == 0 {
		return radio.NewSendError(ErrBadPacket)
	}
	return &radio.SendError{Kind: radio.ErrorKind(data[0]), Err: errors.New(string(data[1:]))}
}
