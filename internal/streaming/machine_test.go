package streaming_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/2beens/formcoach/internal/streaming"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errDial = errors.New("dial refused")

func TestMachine_HappyPath(t *testing.T) {
	m := streaming.NewMachine(streaming.DefaultReconnectPolicy())
	assert.Equal(t, streaming.StatusClosed, m.State().Status)

	a := m.HandleEvent(streaming.Event{Kind: streaming.EventStart})
	assert.Equal(t, streaming.ActionDial, a.Kind)
	assert.Equal(t, streaming.StatusConnecting, m.State().Status)

	a = m.HandleEvent(streaming.Event{Kind: streaming.EventHandshakeOK})
	assert.Equal(t, streaming.ActionNone, a.Kind)
	assert.Equal(t, streaming.StatusConnected, m.State().Status)

	a = m.HandleEvent(streaming.Event{Kind: streaming.EventStop})
	assert.Equal(t, streaming.ActionClose, a.Kind)
	assert.Equal(t, streaming.StatusClosed, m.State().Status)
}

func TestMachine_AbnormalCloseSchedulesRetry(t *testing.T) {
	m := streaming.NewMachine(streaming.DefaultReconnectPolicy())
	m.HandleEvent(streaming.Event{Kind: streaming.EventStart})
	m.HandleEvent(streaming.Event{Kind: streaming.EventHandshakeOK})

	a := m.HandleEvent(streaming.Event{Kind: streaming.EventAbnormalClose, Err: errors.New("reset by peer")})
	assert.Equal(t, streaming.ActionScheduleRetry, a.Kind)
	assert.Equal(t, 500*time.Millisecond, a.Delay)

	state := m.State()
	assert.Equal(t, streaming.StatusError, state.Status)
	assert.Equal(t, "reset by peer", state.LastError)
	assert.Zero(t, state.ReconnectAttempt)

	a = m.HandleEvent(streaming.Event{Kind: streaming.EventRetryDue})
	assert.Equal(t, streaming.ActionDial, a.Kind)
	assert.Equal(t, streaming.StatusConnecting, m.State().Status)
	assert.Equal(t, 1, m.State().ReconnectAttempt)
}

func TestMachine_ReconnectThenSuccess(t *testing.T) {
	m := streaming.NewMachine(streaming.DefaultReconnectPolicy())

	var seen []streaming.ConnectionState
	unsubscribe := m.Subscribe(func(s streaming.ConnectionState) {
		seen = append(seen, s)
	})
	defer unsubscribe()

	m.HandleEvent(streaming.Event{Kind: streaming.EventStart})
	a := m.HandleEvent(streaming.Event{Kind: streaming.EventHandshakeFailed, Err: streaming.ErrHandshakeTimeout})
	require.Equal(t, streaming.ActionScheduleRetry, a.Kind)

	a = m.HandleEvent(streaming.Event{Kind: streaming.EventRetryDue})
	require.Equal(t, streaming.ActionDial, a.Kind)
	// second attempt in flight
	assert.Equal(t, 1, m.State().ReconnectAttempt)

	m.HandleEvent(streaming.Event{Kind: streaming.EventHandshakeOK})
	assert.Equal(t, streaming.StatusConnected, m.State().Status)
	assert.Zero(t, m.State().ReconnectAttempt)
	assert.Empty(t, m.State().LastError)

	require.Len(t, seen, 4)
	assert.Equal(t, streaming.StatusConnecting, seen[0].Status)
	assert.Equal(t, streaming.StatusError, seen[1].Status)
	assert.Equal(t, streaming.ErrHandshakeTimeout.Error(), seen[1].LastError)
	assert.Equal(t, streaming.StatusConnecting, seen[2].Status)
	assert.Equal(t, 1, seen[2].ReconnectAttempt)
	assert.Equal(t, streaming.StatusConnected, seen[3].Status)
	assert.Zero(t, seen[3].ReconnectAttempt)
}

func TestMachine_GivesUpOnceAtCeiling(t *testing.T) {
	policy := streaming.DefaultReconnectPolicy()
	m := streaming.NewMachine(policy)

	giveUps := 0
	var delays []time.Duration

	a := m.HandleEvent(streaming.Event{Kind: streaming.EventStart})
	require.Equal(t, streaming.ActionDial, a.Kind)

	for i := 0; i < 30; i++ {
		a = m.HandleEvent(streaming.Event{Kind: streaming.EventHandshakeFailed, Err: errDial})
		switch a.Kind {
		case streaming.ActionScheduleRetry:
			delays = append(delays, a.Delay)
		case streaming.ActionGiveUp:
			giveUps++
			require.ErrorIs(t, a.Err, streaming.ErrRetriesExhausted)
			assert.Contains(t, a.Err.Error(), errDial.Error())
		}
		m.HandleEvent(streaming.Event{Kind: streaming.EventRetryDue})
	}

	assert.Equal(t, 1, giveUps)
	require.Len(t, delays, policy.MaxAttempts)
	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1])
		assert.LessOrEqual(t, delays[i], policy.MaxDelay)
	}

	state := m.State()
	assert.Equal(t, streaming.StatusError, state.Status)
	assert.True(t, state.Terminal)
	assert.Equal(t, policy.MaxAttempts, state.ReconnectAttempt)

	// stopping a failed stream still ends in closed
	a = m.HandleEvent(streaming.Event{Kind: streaming.EventStop})
	assert.Equal(t, streaming.ActionClose, a.Kind)
	assert.Equal(t, streaming.StatusClosed, m.State().Status)
}

func TestMachine_StopWhileConnecting(t *testing.T) {
	m := streaming.NewMachine(streaming.DefaultReconnectPolicy())
	m.HandleEvent(streaming.Event{Kind: streaming.EventStart})

	a := m.HandleEvent(streaming.Event{Kind: streaming.EventStop})
	assert.Equal(t, streaming.ActionClose, a.Kind)
	assert.Equal(t, streaming.StatusClosed, m.State().Status)

	// a late handshake result is ignored
	a = m.HandleEvent(streaming.Event{Kind: streaming.EventHandshakeOK})
	assert.Equal(t, streaming.ActionNone, a.Kind)
	assert.Equal(t, streaming.StatusClosed, m.State().Status)
}

func TestMachine_InvalidEventsIgnored(t *testing.T) {
	m := streaming.NewMachine(streaming.DefaultReconnectPolicy())

	notified := 0
	m.Subscribe(func(streaming.ConnectionState) { notified++ })

	for _, kind := range []streaming.EventKind{
		streaming.EventHandshakeOK,
		streaming.EventHandshakeFailed,
		streaming.EventAbnormalClose,
		streaming.EventStop,
		streaming.EventRetryDue,
	} {
		a := m.HandleEvent(streaming.Event{Kind: kind})
		assert.Equal(t, streaming.ActionNone, a.Kind, kind.String())
		assert.Equal(t, streaming.StatusClosed, m.State().Status)
	}
	assert.Zero(t, notified)

	m.HandleEvent(streaming.Event{Kind: streaming.EventStart})
	m.HandleEvent(streaming.Event{Kind: streaming.EventHandshakeOK})
	a := m.HandleEvent(streaming.Event{Kind: streaming.EventStart})
	assert.Equal(t, streaming.ActionNone, a.Kind)
	a = m.HandleEvent(streaming.Event{Kind: streaming.EventRetryDue})
	assert.Equal(t, streaming.ActionNone, a.Kind)
	assert.Equal(t, streaming.StatusConnected, m.State().Status)
}

func TestMachine_SubscribersInOrderAndUnsubscribe(t *testing.T) {
	m := streaming.NewMachine(streaming.DefaultReconnectPolicy())

	var calls []string
	m.Subscribe(func(streaming.ConnectionState) { calls = append(calls, "first") })
	unsubscribe := m.Subscribe(func(streaming.ConnectionState) { calls = append(calls, "second") })
	m.Subscribe(func(streaming.ConnectionState) { calls = append(calls, "third") })

	m.HandleEvent(streaming.Event{Kind: streaming.EventStart})
	assert.Equal(t, []string{"first", "second", "third"}, calls)

	unsubscribe()
	calls = nil
	m.HandleEvent(streaming.Event{Kind: streaming.EventHandshakeOK})
	assert.Equal(t, []string{"first", "third"}, calls)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "closed", streaming.StatusClosed.String())
	assert.Equal(t, "connecting", streaming.StatusConnecting.String())
	assert.Equal(t, "connected", streaming.StatusConnected.String())
	assert.Equal(t, "error", streaming.StatusError.String())
}
