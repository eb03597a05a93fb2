// Package ws connects radios to an air hub over WebSocket.
//
// Every WebSocket message is a Packet: seq(1) code(1) data. A radio sends
// requests with increasing sequence numbers; the hub replies with the
// same sequence number and pushes received frames and link loss as
// events.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/espnow.go/pkg/radio"
)

// DefaultOrigin is the Origin sent when dialing the hub.
const DefaultOrigin = "http://localhost/"

// RemoteError is an error reply from the hub.
type RemoteError struct {
	Message string
}

// Error implements error.
func (e *RemoteError) Error() string {
	return e.Message
}

// Radio is a radio.Handle backed by an air hub.
type Radio struct {
	ws      *websocket.Conn
	addr    radio.Addr
	version uint32
	channel atomic.Int32
	peers   radio.PeerTable
	rxCh    chan *radio.Frame

	seq      Seq
	pending  map[Seq]chan *Packet
	linkLost func(error)
	err      error
	closed   chan struct{}
	lock     sync.Mutex
}

// Dial connects to the hub at url with the station address.
func Dial(ctx context.Context, url string, addr radio.Addr) (*Radio, error) {
	config, err := websocket.NewConfig(url, DefaultOrigin)
	if err != nil {
		return nil, err
	}
	conn, err := config.DialContext(ctx)
	if err != nil {
		return nil, err
	}
	r := &Radio{
		ws:      conn,
		addr:    addr,
		rxCh:    make(chan *radio.Frame, 16),
		pending: make(map[Seq]chan *Packet),
		closed:  make(chan struct{}),
	}
	r.channel.Store(radio.MinChannel)
	go r.readLoop()
	reply, err := r.request(ctx, &Packet{Code: CodeHello, Data: encodeHello(addr, radio.MinChannel)})
	if err == nil {
		r.version, err = decodeVersion(reply.Data)
	}
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("hello %s: %w", url, err)
	}
	return r, nil
}

// StationAddr implements radio.Handle.
func (r *Radio) StationAddr() radio.Addr {
	return r.addr
}

// Version implements radio.Handle.
func (r *Radio) Version() (uint32, error) {
	return r.version, nil
}

// Channel implements radio.Handle.
func (r *Radio) Channel() int {
	return int(r.channel.Load())
}

// SetChannel implements radio.Handle.
func (r *Radio) SetChannel(ch int) error {
	if !radio.ValidChannel(ch) {
		return radio.ErrInvalidChannel
	}
	if _, err := r.request(context.Background(), &Packet{Code: CodeChannel, Data: []byte{byte(ch)}}); err != nil {
		return err
	}
	r.channel.Store(int32(ch))
	return nil
}

// AddPeer implements radio.Handle.
func (r *Radio) AddPeer(addr radio.Addr) error {
	r.peers.Add(addr)
	return nil
}

// Send implements radio.Sender.
func (r *Radio) Send(ctx context.Context, dst radio.Addr, payload []byte) (radio.Outcome, error) {
	if err := r.peers.Check(dst, payload); err != nil {
		return radio.FailedWith(err)
	}
	f := &radio.Frame{Dst: dst, Src: r.addr, Channel: r.Channel(), Payload: payload}
	reply, err := r.request(ctx, &Packet{Code: CodeTx, Data: f.Bytes()})
	if err != nil {
		if reply != nil {
			return radio.Failed, decodeSendError(reply.Data)
		}
		return radio.FailedWith(err)
	}
	if len(reply.Data) != 1 {
		return radio.FailedWith(ErrBadPacket)
	}
	return radio.Outcome(reply.Data[0]), nil
}

// Receive implements radio.Receiver.
func (r *Radio) Receive(ctx context.Context) (*radio.Frame, error) {
	select {
	case f := <-r.rxCh:
		return f, nil
	case <-r.closed:
		return nil, radio.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements radio.Handle.
func (r *Radio) Close() error {
	r.shutdown(radio.ErrClosed)
	return nil
}

// Err returns the reason the connection was closed.
func (r *Radio) Err() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.err
}

func (r *Radio) shutdown(err error) {
	r.lock.Lock()
	if r.err != nil {
		r.lock.Unlock()
		return
	}
	r.err = err
	close(r.closed)
	linkLost := r.linkLost
	r.lock.Unlock()
	r.ws.Close()
	// losing the hub is losing the access point
	if err != radio.ErrClosed && linkLost != nil {
		linkLost(err)
	}
}

// request sends pkt and waits for the reply. An error reply is returned
// along with a *RemoteError.
func (r *Radio) request(ctx context.Context, pkt *Packet) (*Packet, error) {
	ch := make(chan *Packet, 1)
	r.lock.Lock()
	if r.err != nil {
		r.lock.Unlock()
		return nil, radio.ErrClosed
	}
	r.seq = r.seq.Next()
	pkt.Seq = r.seq
	r.pending[pkt.Seq] = ch
	r.lock.Unlock()
	defer func() {
		r.lock.Lock()
		delete(r.pending, pkt.Seq)
		r.lock.Unlock()
	}()

	if err := websocket.Message.Send(r.ws, pkt.Bytes()); err != nil {
		return nil, err
	}
	select {
	case reply := <-ch:
		return checkReply(reply)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.closed:
		select {
		case reply := <-ch:
			return checkReply(reply)
		default:
			return nil, radio.ErrClosed
		}
	}
}

func checkReply(reply *Packet) (*Packet, error) {
	if reply.IsError() {
		return reply, &RemoteError{Message: string(reply.Data)}
	}
	return reply, nil
}

func (r *Radio) readLoop() {
	for {
		var msg []byte
		if err := websocket.Message.Receive(r.ws, &msg); err != nil {
			if !errors.Is(err, io.EOF) {
				glog.Warningf("ws radio %s: %v", r.addr, err)
			}
			r.shutdown(fmt.Errorf("hub disconnected: %w", err))
			return
		}
		pkt, err := DecodePacket(msg)
		if err != nil {
			glog.Warningf("ws radio %s: %v", r.addr, err)
			continue
		}
		r.dispatch(pkt)
	}
}

func (r *Radio) dispatch(pkt *Packet) {
	switch {
	case pkt.Code == CodeRx:
		f, err := radio.DecodeFrame(pkt.Data)
		if err != nil {
			glog.Warningf("ws radio %s: %v", r.addr, err)
			return
		}
		select {
		case r.rxCh <- f:
		default:
			glog.V(2).Infof("ws radio %s: rx queue full, dropped frame from %s", r.addr, f.Src)
		}
	case pkt.Code == CodeLinkLost:
		r.lock.Lock()
		fn := r.linkLost
		r.lock.Unlock()
		if fn != nil {
			fn(errors.New(string(pkt.Data)))
		}
	case !pkt.IsEvent():
		r.lock.Lock()
		ch := r.pending[pkt.Seq]
		r.lock.Unlock()
		if ch != nil {
			ch <- pkt
		}
	}
}
