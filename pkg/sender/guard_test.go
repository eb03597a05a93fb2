package sender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/espnow.go/pkg/radio"
	"github.com/robotalks/espnow.go/pkg/radio/sim"
)

func newRadio(t *testing.T) *sim.Radio {
	r, err := sim.NewAir().Attach(radio.MustParseAddr("02:00:00:00:00:01"))
	require.NoError(t, err)
	require.NoError(t, r.AddPeer(radio.BroadcastAddr))
	t.Cleanup(func() { r.Close() })
	return r
}

func TestAcquireRelease(t *testing.T) {
	r := newRadio(t)
	g := New(r)

	a, err := g.Acquire(context.Background())
	require.NoError(t, err)
	require.Nil(t, g.TryAcquire())

	outcome, err := a.Send(context.Background(), radio.BroadcastAddr, []byte("Hello"))
	require.NoError(t, err)
	require.Equal(t, radio.Acknowledged, outcome)

	a.Release()
	a.Release()
	require.True(t, a.Released())
	outcome, err = a.Send(context.Background(), radio.BroadcastAddr, []byte("Hello"))
	require.Equal(t, radio.Failed, outcome)
	require.Equal(t, ErrReleased, err)
	require.Len(t, r.Attempts(), 1)

	b := g.TryAcquire()
	require.NotNil(t, b)
	b.Release()
	require.NotNil(t, g.TryAcquire())
}

func TestAcquireCanceled(t *testing.T) {
	g := New(newRadio(t))
	held, err := g.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	a, err := g.Acquire(ctx)
	require.Nil(t, a)
	require.Equal(t, context.DeadlineExceeded, err)

	held.Release()
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	a, err = g.Acquire(canceled)
	require.Nil(t, a)
	require.Equal(t, context.Canceled, err)
	require.NotNil(t, g.TryAcquire())
}

func TestMutualExclusion(t *testing.T) {
	r := newRadio(t)
	r.TxTime = 100 * time.Microsecond
	g := New(r)

	const tasks, sends = 8, 20
	var (
		wg   sync.WaitGroup
		live int
		peak int
		lock sync.Mutex
		errs = make(chan error, tasks*sends)
	)
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < sends; n++ {
				errs <- g.Do(context.Background(), func(a *Access) error {
					lock.Lock()
					live++
					if live > peak {
						peak = live
					}
					lock.Unlock()
					_, err := a.Send(context.Background(), radio.BroadcastAddr, []byte("Hello"))
					lock.Lock()
					live--
					lock.Unlock()
					return err
				})
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, peak)
	require.Equal(t, 1, r.MaxInflight())
	require.Len(t, r.Attempts(), tasks*sends)
}

func TestCancelMidSend(t *testing.T) {
	r := newRadio(t)
	entered := make(chan struct{})
	r.Hook = func(ctx context.Context, attempt int, f *radio.Frame) error {
		close(entered)
		<-ctx.Done()
		return ctx.Err()
	}
	g := New(r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- g.Do(ctx, func(a *Access) error {
			_, err := a.Send(ctx, radio.BroadcastAddr, []byte("Hello"))
			return err
		})
	}()
	<-entered
	require.Nil(t, g.TryAcquire())
	cancel()

	err := <-done
	var se *radio.SendError
	require.True(t, errors.As(err, &se))
	require.Equal(t, radio.KindCanceled, se.Kind)
	a := g.TryAcquire()
	require.NotNil(t, a)
	a.Release()
}

func TestDoReleasesOnPanic(t *testing.T) {
	g := New(newRadio(t))
	require.PanicsWithValue(t, "boom", func() {
		g.Do(context.Background(), func(*Access) error {
			panic("boom")
		})
	})
	require.NotNil(t, g.TryAcquire())
}

func TestDoReturnsError(t *testing.T) {
	g := New(newRadio(t))
	failure := errors.New("failure")
	var leaked *Access
	err := g.Do(context.Background(), func(a *Access) error {
		leaked = a
		return failure
	})
	require.Equal(t, failure, err)
	require.True(t, leaked.Released())
	_, err = leaked.Send(context.Background(), radio.BroadcastAddr, nil)
	require.Equal(t, ErrReleased, err)
}
