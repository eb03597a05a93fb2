package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robotalks/espnow.go/pkg/radio"
)

// SendHook intercepts a transmission attempt (1-based) before it goes on
// air. A non-nil error fails the attempt. The hook may block until ctx is
// done to simulate a slow peripheral.
type SendHook func(ctx context.Context, attempt int, f *radio.Frame) error

// FailAttempts returns a SendHook failing the listed attempts with err.
func FailAttempts(err error, attempts ...int) SendHook {
	return func(_ context.Context, attempt int, _ *radio.Frame) error {
		for _, n := range attempts {
			if n == attempt {
				return err
			}
		}
		return nil
	}
}

// DefaultHistory is the number of attempts a Radio retains.
const DefaultHistory = 256

// Attempt records one transmission attempt.
type Attempt struct {
	// N is the 1-based attempt number.
	N       int
	Frame   radio.Frame
	Outcome radio.Outcome
	Err     error
}

// Radio is a simulated radio.Handle.
type Radio struct {
	// Hook is invoked for every attempt when set.
	Hook SendHook
	// TxTime is the simulated air time of one frame.
	TxTime time.Duration
	// History caps the retained attempts, 0 means DefaultHistory and a
	// negative value disables recording.
	History int

	air     *Air
	addr    radio.Addr
	channel atomic.Int32
	peers   radio.PeerTable
	rxCh    chan *radio.Frame
	closed  chan struct{}
	once    sync.Once

	inflight    atomic.Int32
	maxInflight atomic.Int32
	attempts    []Attempt
	sent        int
	lock        sync.Mutex
}

// StationAddr implements radio.Handle.
func (r *Radio) StationAddr() radio.Addr {
	return r.addr
}

// Version implements radio.Handle.
func (r *Radio) Version() (uint32, error) {
	return ProtocolVersion, nil
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
	n := r.inflight.Add(1)
	defer r.inflight.Add(-1)
	for {
		peak := r.maxInflight.Load()
		if n <= peak || r.maxInflight.CompareAndSwap(peak, n) {
			break
		}
	}

	f := &radio.Frame{
		Dst:     dst,
		Src:     r.addr,
		Channel: r.Channel(),
		Payload: append([]byte(nil), payload...),
	}
	r.lock.Lock()
	r.sent++
	attempt := r.sent
	r.record(Attempt{N: attempt, Frame: *f})
	r.lock.Unlock()

	outcome, err := r.send(ctx, attempt, f)
	r.lock.Lock()
	for i := len(r.attempts) - 1; i >= 0; i-- {
		if r.attempts[i].N == attempt {
			r.attempts[i].Outcome, r.attempts[i].Err = outcome, err
			break
		}
	}
	r.lock.Unlock()
	return outcome, err
}

// record must be called with r.lock held.
func (r *Radio) record(a Attempt) {
	limit := r.History
	if limit == 0 {
		limit = DefaultHistory
	}
	if limit < 0 {
		return
	}
	if len(r.attempts) >= limit {
		n := copy(r.attempts, r.attempts[len(r.attempts)-limit+1:])
		r.attempts = r.attempts[:n]
	}
	r.attempts = append(r.attempts, a)
}

func (r *Radio) send(ctx context.Context, attempt int, f *radio.Frame) (radio.Outcome, error) {
	select {
	case <-r.closed:
		return radio.FailedWith(radio.ErrClosed)
	default:
	}
	if err := r.peers.Check(f.Dst, f.Payload); err != nil {
		return radio.FailedWith(err)
	}
	if hook := r.Hook; hook != nil {
		if err := hook(ctx, attempt, f); err != nil {
			return radio.FailedWith(err)
		}
	}
	if r.TxTime > 0 {
		timer := r.air.Clock.NewTimer(r.TxTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return radio.FailedWith(ctx.Err())
		case <-timer.Chan():
		}
	}
	delivered := r.air.transmit(f)
	if f.Dst.IsBroadcast() || delivered {
		return radio.Acknowledged, nil
	}
	return radio.Unacknowledged, nil
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
	r.once.Do(func() {
		close(r.closed)
		r.air.detach(r)
	})
	return nil
}

// Attempts returns a copy of the retained transmission attempts, oldest
// first.
func (r *Radio) Attempts() []Attempt {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Attempt(nil), r.attempts...)
}

// Sent returns the number of transmission attempts so far.
func (r *Radio) Sent() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.sent
}

// MaxInflight returns the maximum number of concurrent Send calls observed.
func (r *Radio) MaxInflight() int {
	return int(r.maxInflight.Load())
}

func (r *Radio) deliver(f *radio.Frame) bool {
	copied := *f
	copied.Payload = append([]byte(nil), f.Payload...)
	select {
	case r.rxCh <- &copied:
		return true
	default:
		return false
	}
}
