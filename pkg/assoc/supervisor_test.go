package assoc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStation struct {
	results  chan error
	creds    Credentials
	linkLost func(error)
	lock     sync.Mutex
}

func newFakeStation() *fakeStation {
	return &fakeStation{results: make(chan error, 4)}
}

func (s *fakeStation) Configure(creds Credentials) error {
	s.creds = creds
	return nil
}

func (s *fakeStation) Start() error {
	return nil
}

func (s *fakeStation) Connect(ctx context.Context) error {
	select {
	case err := <-s.results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeStation) SetLinkLostHandler(fn func(error)) {
	s.lock.Lock()
	s.linkLost = fn
	s.lock.Unlock()
}

func (s *fakeStation) dropLink(err error) {
	s.lock.Lock()
	fn := s.linkLost
	s.lock.Unlock()
	fn(err)
}

type stateRecorder struct {
	states []State
	lock   sync.Mutex
}

func (r *stateRecorder) StateChanged(s State) {
	r.lock.Lock()
	r.states = append(r.states, s)
	r.lock.Unlock()
}

func (r *stateRecorder) recorded() []State {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]State(nil), r.states...)
}

var testCreds = Credentials{SSID: "P601", Password: "00000000", Channel: 10}

func startSupervisor(t *testing.T) (*Supervisor, *fakeStation, *stateRecorder) {
	station := newFakeStation()
	recorder := &stateRecorder{}
	s := NewSupervisor(station)
	s.Observer = recorder
	require.NoError(t, s.Configure(testCreds))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s, station, recorder
}

func waitPhase(t *testing.T, s *Supervisor, phase Phase) State {
	require.Eventually(t, func() bool {
		return s.State().Phase == phase
	}, time.Second, time.Millisecond)
	return s.State()
}

func TestSupervisorPreconditions(t *testing.T) {
	s := NewSupervisor(newFakeStation())
	require.Equal(t, State{Phase: Disconnected}, s.State())
	require.Equal(t, ErrNotStarted, s.RequestAssociation())
	require.Equal(t, ErrNotConfigured, s.Start(context.Background()))

	require.Equal(t, ErrInvalidSSID, s.Configure(Credentials{}))
	require.Equal(t, ErrInvalidPassword, s.Configure(Credentials{SSID: "P601", Password: "short"}))
	require.Equal(t, ErrInvalidChannel, s.Configure(Credentials{SSID: "P601", Channel: 15}))

	require.NoError(t, s.Configure(testCreds))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	require.Equal(t, ErrAlreadyStarted, s.Start(context.Background()))
	require.Equal(t, ErrAlreadyStarted, s.Configure(testCreds))
	require.Equal(t, State{Phase: Disconnected}, s.State())
}

func TestSupervisorConnects(t *testing.T) {
	s, station, recorder := startSupervisor(t)
	require.NoError(t, s.RequestAssociation())
	require.Equal(t, Connecting, s.State().Phase)
	require.Equal(t, ErrAssociationInProgress, s.RequestAssociation())

	station.results <- nil
	state := waitPhase(t, s, Connected)
	require.True(t, state.IsConnected())
	require.Equal(t, []State{{Phase: Connecting}, {Phase: Connected}}, recorder.recorded())
	require.Equal(t, testCreds, station.creds)
}

func TestSupervisorFailures(t *testing.T) {
	testCases := []struct {
		name    string
		timeout time.Duration
		result  error
		reason  string
	}{
		{"rejected", time.Second, errors.New("auth rejected"), "auth rejected"},
		{"empty error", time.Second, errors.New(""), "association failed"},
		{"timeout", 5 * time.Millisecond, nil, "association timed out after 5ms"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, station, recorder := startSupervisor(t)
			s.Timeout = tc.timeout
			require.NoError(t, s.RequestAssociation())
			if tc.result != nil {
				station.results <- tc.result
			}
			state := waitPhase(t, s, Failed)
			require.Equal(t, tc.reason, state.Reason)
			require.True(t, state.IsValid())
			for _, st := range recorder.recorded() {
				require.NotEqual(t, Connected, st.Phase)
			}
		})
	}
}

func TestSupervisorStopAborts(t *testing.T) {
	s, _, _ := startSupervisor(t)
	require.NoError(t, s.RequestAssociation())
	s.Stop()
	require.Equal(t, State{Phase: Failed, Reason: "association aborted"}, s.State())
}

func TestSupervisorLinkLost(t *testing.T) {
	s, station, recorder := startSupervisor(t)

	station.dropLink(errors.New("ignored"))
	require.Equal(t, Disconnected, s.State().Phase)

	require.NoError(t, s.RequestAssociation())
	station.results <- nil
	waitPhase(t, s, Connected)
	station.dropLink(errors.New("beacon timeout"))
	require.Equal(t, State{Phase: Failed, Reason: "link lost: beacon timeout"}, s.State())

	require.NoError(t, s.RequestAssociation())
	station.results <- nil
	waitPhase(t, s, Connected)
	require.Len(t, recorder.recorded(), 5)
}

func TestSupervisorStateNeverBlocks(t *testing.T) {
	s, station, _ := startSupervisor(t)
	require.NoError(t, s.RequestAssociation())
	var (
		wg      sync.WaitGroup
		invalid atomic.Int32
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 1000; n++ {
				if !s.State().IsValid() {
					invalid.Add(1)
				}
			}
		}()
	}
	station.results <- nil
	wg.Wait()
	waitPhase(t, s, Connected)
	require.Zero(t, invalid.Load())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "Disconnected", State{}.String())
	require.Equal(t, "Connecting", State{Phase: Connecting}.String())
	require.Equal(t, "Failed(link lost)", State{Phase: Failed, Reason: "link lost"}.String())
	require.Equal(t, "Phase(9)", Phase(9).String())
	require.False(t, State{Phase: Failed}.IsValid())
	require.False(t, State{Phase: Connected, Reason: "x"}.IsValid())
}

func TestSupervisorObserverCallsBack(t *testing.T) {
	station := newFakeStation()
	s := NewSupervisor(station)
	recorder := &stateRecorder{}
	var retries atomic.Int32
	s.Observer = StateChangedFunc(func(state State) {
		recorder.StateChanged(state)
		if state.Phase == Failed && retries.Add(1) == 1 {
			if err := s.RequestAssociation(); err != nil {
				t.Errorf("request association: %v", err)
			}
		}
	})
	require.NoError(t, s.Configure(testCreds))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	station.results <- errors.New("auth rejected")
	station.results <- nil
	require.NoError(t, s.RequestAssociation())
	require.Eventually(t, func() bool {
		return s.State().IsConnected()
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return len(recorder.recorded()) == 4
	}, time.Second, time.Millisecond)
	require.Equal(t, []State{
		{Phase: Connecting},
		{Phase: Failed, Reason: "auth rejected"},
		{Phase: Connecting},
		{Phase: Connected},
	}, recorder.recorded())
}

func TestSupervisorSlowObserverKeepsStateFresh(t *testing.T) {
	station := newFakeStation()
	s := NewSupervisor(station)
	release := make(chan struct{})
	recorder := &stateRecorder{}
	s.Observer = StateChangedFunc(func(state State) {
		if state.Phase == Connected {
			<-release
		}
		recorder.StateChanged(state)
	})
	require.NoError(t, s.Configure(testCreds))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	station.results <- nil
	require.NoError(t, s.RequestAssociation())
	require.Eventually(t, func() bool {
		return s.State().IsConnected()
	}, time.Second, time.Millisecond)

	lost := make(chan struct{})
	go func() {
		station.dropLink(errors.New("beacon timeout"))
		close(lost)
	}()
	select {
	case <-lost:
	case <-time.After(time.Second):
		t.Fatal("link loss blocked by observer")
	}
	require.Equal(t, State{Phase: Failed, Reason: "link lost: beacon timeout"}, s.State())
	close(release)
	require.Eventually(t, func() bool {
		return len(recorder.recorded()) == 3
	}, time.Second, time.Millisecond)
	require.Equal(t, Failed, recorder.recorded()[2].Phase)
}
