package sh

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robotalks/espnow.go/pkg/assoc"
	fx "github.com/robotalks/espnow.go/pkg/framework"
	"github.com/robotalks/espnow.go/pkg/node"
	"github.com/robotalks/espnow.go/pkg/radio"
	"github.com/robotalks/espnow.go/pkg/radio/ws"
	"github.com/robotalks/espnow.go/pkg/sender"
)

// CommandTimeout bounds a single console operation.
var CommandTimeout = 5 * time.Second

// Session is a radio joined to the air hub.
type Session struct {
	Radio      *ws.Radio
	Guard      *sender.Guard
	Supervisor *assoc.Supervisor

	runner *fx.Runner
}

// Join dials the hub and starts draining received frames into handler.
func Join(url string, addr radio.Addr, handler node.FrameHandler) (*Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), CommandTimeout)
	defer cancel()
	r, err := ws.Dial(ctx, url, addr)
	if err != nil {
		return nil, err
	}
	s := &Session{
		Radio:      r,
		Guard:      sender.New(r),
		Supervisor: assoc.NewSupervisor(ws.NewStation(r)),
		runner:     fx.NewRunner(),
	}
	s.runner.Go(&node.Listener{Receiver: r, Handler: handler})
	return s, nil
}

// Associate configures the station and requests association. It waits
// until the handshake completes and returns the final state.
func (s *Session) Associate(creds assoc.Credentials) (assoc.State, error) {
	if err := s.Supervisor.Configure(creds); err != nil && err != assoc.ErrAlreadyStarted {
		return s.Supervisor.State(), err
	}
	if err := s.Supervisor.Start(s.runner.Context); err != nil && err != assoc.ErrAlreadyStarted {
		return s.Supervisor.State(), err
	}
	if err := s.Supervisor.RequestAssociation(); err != nil {
		return s.Supervisor.State(), err
	}
	deadline := time.Now().Add(s.Supervisor.Timeout + time.Second)
	for time.Now().Before(deadline) {
		if state := s.Supervisor.State(); state.Phase != assoc.Connecting {
			return state, nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return s.Supervisor.State(), context.DeadlineExceeded
}

// Send transmits payload through the guard, registering dst as a peer.
func (s *Session) Send(dst radio.Addr, payload []byte) (radio.Outcome, error) {
	ctx, cancel := context.WithTimeout(s.runner.Context, CommandTimeout)
	defer cancel()
	s.Radio.AddPeer(dst)
	var outcome radio.Outcome
	err := s.Guard.Do(ctx, func(a *sender.Access) (err error) {
		outcome, err = a.Send(ctx, dst, payload)
		return
	})
	return outcome, err
}

// Close leaves the hub.
func (s *Session) Close() error {
	s.runner.Stop()
	s.Supervisor.Stop()
	err := s.Radio.Close()
	s.runner.Wait()
	return err
}

// ParseCredentials parses SSID [PASSWORD] [CHANNEL].
func ParseCredentials(args []string) (creds assoc.Credentials, err error) {
	if len(args) < 1 {
		return creds, fmt.Errorf("SSID required")
	}
	creds.SSID = args[0]
	if len(args) > 1 {
		creds.Password = args[1]
	}
	if len(args) > 2 {
		if creds.Channel, err = strconv.Atoi(args[2]); err != nil {
			return creds, fmt.Errorf("invalid CHANNEL: %v", err)
		}
	}
	return creds, creds.Validate()
}

// ParseSend parses DST PAYLOAD..., DST may be "*" for broadcast.
func ParseSend(args []string) (radio.Addr, []byte, error) {
	if len(args) < 1 {
		return radio.Addr{}, nil, fmt.Errorf("DST required")
	}
	dst := radio.BroadcastAddr
	if args[0] != "*" {
		var err error
		if dst, err = radio.ParseAddr(args[0]); err != nil {
			return dst, nil, err
		}
	}
	payload := []byte(strings.Join(args[1:], " "))
	return dst, payload, radio.CheckPayload(payload)
}

// FormatFrame renders a received frame.
func FormatFrame(f *radio.Frame) string {
	return fmt.Sprintf("%s -> %s ch%d: %q", f.Src, f.Dst, f.Channel, f.Payload)
}
