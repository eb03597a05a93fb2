package radio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddr(t *testing.T) {
	a, err := ParseAddr("24:6f:28:0A:0b:FF")
	require.NoError(t, err)
	require.Equal(t, Addr{0x24, 0x6f, 0x28, 0x0a, 0x0b, 0xff}, a)
	require.Equal(t, "24:6F:28:0A:0B:FF", a.String())

	a, err = ParseAddr("ff-ff-ff-ff-ff-ff")
	require.NoError(t, err)
	require.True(t, a.IsBroadcast())

	for _, s := range []string{"", "24:6f:28", "24:6f:28:0a:0b:zz", "246:f:28:0a:0b:ff", "24:6f:28:0a:0b:ff:00"} {
		_, err = ParseAddr(s)
		require.Errorf(t, err, "%q should not parse", s)
	}
	require.Panics(t, func() { MustParseAddr("bad") })
}

func TestAddrPredicates(t *testing.T) {
	require.True(t, Addr{}.IsZero())
	require.False(t, BroadcastAddr.IsZero())
	require.False(t, Addr{1}.IsBroadcast())
	require.Equal(t, "FF:FF:FF:FF:FF:FF", BroadcastAddr.String())
}

func TestValidChannel(t *testing.T) {
	require.False(t, ValidChannel(0))
	for ch := MinChannel; ch <= MaxChannel; ch++ {
		require.True(t, ValidChannel(ch))
	}
	require.False(t, ValidChannel(15))
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "Acknowledged", Acknowledged.String())
	require.Equal(t, "Unacknowledged", Unacknowledged.String())
	require.Equal(t, "Failed", Failed.String())
	require.Equal(t, "Outcome(7)", Outcome(7).String())
}

func TestNewSendError(t *testing.T) {
	testCases := []struct {
		err  error
		kind ErrorKind
	}{
		{errors.New("spi timeout"), KindHardware},
		{ErrBusy, KindBusy},
		{ErrUnknownPeer, KindPeer},
		{ErrPayloadTooLarge, KindPayload},
		{context.Canceled, KindCanceled},
		{context.DeadlineExceeded, KindCanceled},
	}
	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			outcome, err := FailedWith(tc.err)
			require.Equal(t, Failed, outcome)
			var se *SendError
			require.True(t, errors.As(err, &se))
			require.Equal(t, tc.kind, se.Kind)
			require.True(t, errors.Is(err, tc.err))
		})
	}

	se := &SendError{Kind: KindBusy, Err: ErrBusy}
	require.Same(t, se, NewSendError(se))
}
