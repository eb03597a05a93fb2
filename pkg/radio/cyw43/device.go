//go:build rp2040 || rp2350

package cyw43

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/seqs/eth"

	"github.com/robotalks/espnow.go/pkg/assoc"
	fx "github.com/robotalks/espnow.go/pkg/framework"
	"github.com/robotalks/espnow.go/pkg/radio"
)

const ethHeaderSize = 14

// PollInterval is the idle wait of the receive poller.
var PollInterval = 10 * time.Millisecond

// ErrNotStarted indicates Connect is called before Start.
var ErrNotStarted = errors.New("station not started")

// Device is the radio.Handle and the assoc.Station of the chip.
type Device struct {
	dev     *cyw43439.Device
	addr    radio.Addr
	channel atomic.Int32
	peers   radio.PeerTable
	rxCh    chan *radio.Frame

	txBuf  [cyw43439.MTU]byte
	txLock sync.Mutex
	led    bool

	creds    assoc.Credentials
	started  bool
	linkLost func(error)
	lock     sync.Mutex

	closed chan struct{}
	once   sync.Once
}

// Open initializes the chip and starts polling for frames.
func Open() (*Device, error) {
	d := &Device{
		dev:    cyw43439.NewPicoWDevice(),
		rxCh:   make(chan *radio.Frame, 8),
		closed: make(chan struct{}),
	}
	if err := d.dev.Init(cyw43439.DefaultWifiConfig()); err != nil {
		return nil, err
	}
	mac, err := d.dev.HardwareAddr6()
	if err != nil {
		return nil, err
	}
	d.addr = radio.Addr(mac)
	d.channel.Store(radio.MinChannel)
	d.dev.RecvEthHandle(d.recv)
	go d.poll()
	return d, nil
}

// StationAddr implements radio.Handle.
func (d *Device) StationAddr() radio.Addr {
	return d.addr
}

// Version implements radio.Handle.
func (d *Device) Version() (uint32, error) {
	return 1, nil
}

// Channel implements radio.Handle.
func (d *Device) Channel() int {
	return int(d.channel.Load())
}

// SetChannel implements radio.Handle. The chip follows the channel of
// the access point; the value is recorded only.
func (d *Device) SetChannel(ch int) error {
	if !radio.ValidChannel(ch) {
		return radio.ErrInvalidChannel
	}
	d.channel.Store(int32(ch))
	return nil
}

// AddPeer implements radio.Handle.
func (d *Device) AddPeer(addr radio.Addr) error {
	d.peers.Add(addr)
	return nil
}

// Send implements radio.Sender. Unicast frames are reported
// Unacknowledged as the chip doesn't expose link layer acks.
func (d *Device) Send(ctx context.Context, dst radio.Addr, payload []byte) (radio.Outcome, error) {
	if err := d.peers.Check(dst, payload); err != nil {
		return radio.FailedWith(err)
	}
	if err := ctx.Err(); err != nil {
		return radio.FailedWith(err)
	}
	d.txLock.Lock()
	defer d.txLock.Unlock()
	hdr := eth.EthernetHeader{
		Destination:     dst,
		Source:          d.addr,
		SizeOrEtherType: EtherType,
	}
	hdr.Put(d.txBuf[:ethHeaderSize])
	f := radio.Frame{Dst: dst, Src: d.addr, Channel: d.Channel(), Payload: payload}
	n := ethHeaderSize + copy(d.txBuf[ethHeaderSize:], f.Bytes())
	if err := d.dev.SendEth(d.txBuf[:n]); err != nil {
		return radio.FailedWith(err)
	}
	d.led = !d.led
	d.dev.GPIOSet(0, d.led)
	if dst.IsBroadcast() {
		return radio.Acknowledged, nil
	}
	return radio.Unacknowledged, nil
}

// Receive implements radio.Receiver.
func (d *Device) Receive(ctx context.Context) (*radio.Frame, error) {
	select {
	case f := <-d.rxCh:
		return f, nil
	case <-d.closed:
		return nil, radio.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements radio.Handle. It stops polling.
func (d *Device) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

// Configure implements assoc.Station.
func (d *Device) Configure(creds assoc.Credentials) error {
	d.lock.Lock()
	d.creds = creds
	d.lock.Unlock()
	return nil
}

// Start implements assoc.Station.
func (d *Device) Start() error {
	d.lock.Lock()
	d.started = true
	d.lock.Unlock()
	return nil
}

// SetLinkLostHandler implements assoc.Station. The chip driver doesn't
// report link loss, so the handler is never invoked.
func (d *Device) SetLinkLostHandler(fn func(error)) {
	d.lock.Lock()
	d.linkLost = fn
	d.lock.Unlock()
}

// Connect implements assoc.Station. A handshake abandoned on ctx keeps
// running in the driver until it returns.
func (d *Device) Connect(ctx context.Context) error {
	d.lock.Lock()
	creds, started := d.creds, d.started
	d.lock.Unlock()
	if !started {
		return ErrNotStarted
	}
	err := fx.RunWithContext(ctx, func() error {
		return d.dev.JoinWPA2(creds.SSID, creds.Password)
	})
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil && creds.Channel != 0 {
		d.channel.Store(int32(creds.Channel))
	}
	return err
}

func (d *Device) recv(pkt []byte) error {
	if len(pkt) < ethHeaderSize+radio.FrameHeaderSize {
		return nil
	}
	if hdr := eth.DecodeEthernetHeader(pkt); hdr.SizeOrEtherType != EtherType {
		return nil
	}
	b := pkt[ethHeaderSize:]
	// short frames are padded on the wire
	if n := radio.FrameHeaderSize + int(b[radio.FrameHeaderSize-1]); n < len(b) {
		b = b[:n]
	}
	f, err := radio.DecodeFrame(b)
	if err != nil {
		return nil
	}
	if !f.Dst.IsBroadcast() && f.Dst != d.addr {
		return nil
	}
	select {
	case d.rxCh <- f:
	default:
	}
	return nil
}

func (d *Device) poll() {
	for {
		select {
		case <-d.closed:
			return
		default:
		}
		got, err := d.dev.PollOne()
		if err != nil {
			println("cyw43 poll error:", err.Error())
		}
		if !got {
			time.Sleep(PollInterval)
		}
	}
}

// Hardware opens the on-board chip for a node.
type Hardware struct {
	dev *Device
}

// OpenRadio implements node.Hardware.
func (h *Hardware) OpenRadio() (radio.Handle, error) {
	dev, err := Open()
	if err != nil {
		return nil, err
	}
	h.dev = dev
	return dev, nil
}

// Station implements node.Hardware.
func (h *Hardware) Station() assoc.Station {
	if h.dev == nil {
		return nil
	}
	return h.dev
}
