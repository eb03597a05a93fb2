package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/espnow.go/pkg/assoc"
	"github.com/robotalks/espnow.go/pkg/radio"
	"github.com/robotalks/espnow.go/pkg/radio/sim"
)

var (
	addrA  = radio.MustParseAddr("02:00:00:00:00:0A")
	addrB  = radio.MustParseAddr("02:00:00:00:00:0B")
	testAP = sim.AccessPoint{SSID: "P601", Password: "00000000", Channel: 10}
)

func startHub(t *testing.T) (*Hub, string) {
	hub := NewHub(sim.NewAir().AddAccessPoint(testAP))
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { hub.Close() })
	return hub, "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/air"
}

func dial(t *testing.T, url string, addr radio.Addr) *Radio {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := Dial(ctx, url, addr)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func receive(t *testing.T, r *Radio) *radio.Frame {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f, err := r.Receive(ctx)
	require.NoError(t, err)
	return f
}

func TestHubRelaysFrames(t *testing.T) {
	hub, url := startHub(t)
	a, b := dial(t, url, addrA), dial(t, url, addrB)
	require.ElementsMatch(t, []radio.Addr{addrA, addrB}, hub.Nodes())
	v, err := a.Version()
	require.NoError(t, err)
	require.Equal(t, sim.ProtocolVersion, v)

	require.NoError(t, a.AddPeer(radio.BroadcastAddr))
	outcome, err := a.Send(context.Background(), radio.BroadcastAddr, []byte("Hello"))
	require.NoError(t, err)
	require.Equal(t, radio.Acknowledged, outcome)
	f := receive(t, b)
	require.Equal(t, addrA, f.Src)
	require.Equal(t, "Hello", string(f.Payload))

	require.NoError(t, a.AddPeer(addrB))
	outcome, err = a.Send(context.Background(), addrB, []byte{1})
	require.NoError(t, err)
	require.Equal(t, radio.Acknowledged, outcome)
	require.Equal(t, []byte{1}, receive(t, b).Payload)

	require.NoError(t, b.SetChannel(6))
	require.Equal(t, 6, b.Channel())
	outcome, err = a.Send(context.Background(), addrB, []byte{2})
	require.NoError(t, err)
	require.Equal(t, radio.Unacknowledged, outcome)
}

func TestRadioLocalChecks(t *testing.T) {
	_, url := startHub(t)
	a := dial(t, url, addrA)
	outcome, err := a.Send(context.Background(), addrB, nil)
	require.Equal(t, radio.Failed, outcome)
	require.True(t, errors.Is(err, radio.ErrUnknownPeer))
	require.Equal(t, radio.ErrInvalidChannel, a.SetChannel(15))

	require.NoError(t, a.Close())
	outcome, err = a.Send(context.Background(), addrB, nil)
	require.Equal(t, radio.Failed, outcome)
	_, err = a.Receive(context.Background())
	require.Equal(t, radio.ErrClosed, err)
	require.Equal(t, radio.ErrClosed, a.Err())
}

func TestDialDuplicateAddr(t *testing.T) {
	_, url := startHub(t)
	dial(t, url, addrA)
	_, err := Dial(context.Background(), url, addrA)
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	require.Contains(t, re.Message, sim.ErrAddrInUse.Error())
}

func TestStationAssociates(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, url, addrA)
	st := NewStation(a)
	require.Equal(t, ErrNotStarted, st.Connect(context.Background()))

	require.NoError(t, st.Configure(assoc.Credentials{SSID: "P601", Password: "wrongpassword"}))
	require.NoError(t, st.Start())
	err := st.Connect(context.Background())
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	require.Contains(t, re.Message, "authentication rejected")

	lost := make(chan error, 1)
	st.SetLinkLostHandler(func(err error) { lost <- err })
	require.NoError(t, st.Configure(assoc.Credentials{SSID: "P601", Password: "00000000"}))
	require.NoError(t, st.Connect(context.Background()))
	require.Equal(t, testAP.Channel, a.Channel())

	hub.RemoveAccessPoint("P601")
	select {
	case err := <-lost:
		require.Equal(t, `access point "P601" gone`, err.Error())
	case <-time.After(2 * time.Second):
		t.Fatal("link lost not reported")
	}
}

func TestSupervisorOverHub(t *testing.T) {
	_, url := startHub(t)
	hw := NewHardware(url, addrA)
	require.Nil(t, hw.Station())
	h, err := hw.OpenRadio()
	require.NoError(t, err)
	defer h.Close()

	sup := assoc.NewSupervisor(hw.Station())
	require.NoError(t, sup.Configure(assoc.Credentials{SSID: "P601", Password: "00000000", Channel: 10}))
	require.NoError(t, sup.Start(context.Background()))
	defer sup.Stop()
	require.NoError(t, sup.RequestAssociation())
	require.Eventually(t, func() bool {
		return sup.State().IsConnected()
	}, 2*time.Second, time.Millisecond)
	require.Equal(t, 10, h.Channel())
}

func TestRadioHubGone(t *testing.T) {
	hub := NewHub(sim.NewAir())
	srv := httptest.NewServer(hub)
	url := "ws://" + strings.TrimPrefix(srv.URL, "http://")
	a := dial(t, url, addrA)
	require.NoError(t, hub.Close())
	defer srv.Close()
	require.Eventually(t, func() bool {
		return a.Err() != nil
	}, 2*time.Second, time.Millisecond)
	_, err := a.Receive(context.Background())
	require.Equal(t, radio.ErrClosed, err)
}

func TestSupervisorHubClosed(t *testing.T) {
	hub, url := startHub(t)
	hw := NewHardware(url, addrA)
	h, err := hw.OpenRadio()
	require.NoError(t, err)
	defer h.Close()

	sup := assoc.NewSupervisor(hw.Station())
	require.NoError(t, sup.Configure(assoc.Credentials{SSID: "P601", Password: "00000000"}))
	require.NoError(t, sup.Start(context.Background()))
	defer sup.Stop()
	require.NoError(t, sup.RequestAssociation())
	require.Eventually(t, func() bool {
		return sup.State().IsConnected()
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, hub.Close())
	require.Eventually(t, func() bool {
		return sup.State().Phase == assoc.Failed
	}, 2*time.Second, time.Millisecond)
	require.True(t, strings.HasPrefix(sup.State().Reason, "link lost: hub disconnected"))
	require.NoError(t, h.AddPeer(radio.BroadcastAddr))
	outcome, err := h.Send(context.Background(), radio.BroadcastAddr, []byte("Hello"))
	require.Equal(t, radio.Failed, outcome)
	require.True(t, errors.Is(err, radio.ErrClosed))
}

func TestRadioCloseKeepsLink(t *testing.T) {
	_, url := startHub(t)
	r := dial(t, url, addrA)
	lost := make(chan error, 1)
	NewStation(r).SetLinkLostHandler(func(err error) { lost <- err })
	require.NoError(t, r.Close())
	require.Equal(t, radio.ErrClosed, r.Err())
	select {
	case err := <-lost:
		t.Fatalf("unexpected link loss: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}
