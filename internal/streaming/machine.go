package streaming

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var ErrRetriesExhausted = errors.New("reconnect attempts exhausted")

type EventKind int

const (
	EventStart EventKind = iota
	EventHandshakeOK
	EventHandshakeFailed
	EventAbnormalClose
	EventStop
	EventRetryDue
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventHandshakeOK:
		return "handshake_ok"
	case EventHandshakeFailed:
		return "handshake_failed"
	case EventAbnormalClose:
		return "abnormal_close"
	case EventStop:
		return "stop"
	case EventRetryDue:
		return "retry_due"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

type Event struct {
	Kind EventKind
	Err  error
}

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionDial
	ActionScheduleRetry
	ActionClose
	ActionGiveUp
)

// Action tells the caller which side effect the transition requires.
type Action struct {
	Kind  ActionKind
	Delay time.Duration // ActionScheduleRetry
	Err   error         // ActionGiveUp
}

// Machine is the connection state machine. It performs no I/O: the caller
// feeds it events and executes the returned actions.
type Machine struct {
	mutex       sync.Mutex
	policy      ReconnectPolicy
	state       ConnectionState
	subscribers map[int]func(ConnectionState)
	nextSubID   int
}

func NewMachine(policy ReconnectPolicy) *Machine {
	return &Machine{
		policy:      policy,
		state:       ConnectionState{Status: StatusClosed},
		subscribers: make(map[int]func(ConnectionState)),
	}
}

func (m *Machine) State() ConnectionState {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state
}

// Subscribe registers fn to be called synchronously on every state change.
// The returned func removes the subscription.
func (m *Machine) Subscribe(fn func(ConnectionState)) func() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn

	return func() {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		delete(m.subscribers, id)
	}
}

// HandleEvent applies ev and returns the action the caller must perform.
// Events that are not valid in the current status are ignored.
func (m *Machine) HandleEvent(ev Event) Action {
	m.mutex.Lock()
	prev := m.state
	action, valid := m.transition(ev)
	next := m.state
	subs := m.subscribersInOrder()
	m.mutex.Unlock()

	if !valid {
		log.Debugf("streaming: ignoring event [%s] in status [%s]", ev.Kind, prev.Status)
		return Action{Kind: ActionNone}
	}

	if next != prev {
		for _, fn := range subs {
			fn(next)
		}
	}

	return action
}

func (m *Machine) transition(ev Event) (Action, bool) {
	switch m.state.Status {
	case StatusClosed:
		if ev.Kind == EventStart {
			m.state = ConnectionState{Status: StatusConnecting}
			return Action{Kind: ActionDial}, true
		}

	case StatusConnecting:
		switch ev.Kind {
		case EventHandshakeOK:
			m.state.Status = StatusConnected
			m.state.ReconnectAttempt = 0
			m.state.LastError = ""
			return Action{Kind: ActionNone}, true
		case EventHandshakeFailed, EventAbnormalClose:
			return m.fail(ev.Err), true
		case EventStop:
			m.state.Status = StatusClosed
			return Action{Kind: ActionClose}, true
		}

	case StatusConnected:
		switch ev.Kind {
		case EventStop:
			m.state.Status = StatusClosed
			return Action{Kind: ActionClose}, true
		case EventAbnormalClose:
			return m.fail(ev.Err), true
		}

	case StatusError:
		switch ev.Kind {
		case EventRetryDue:
			if m.state.Terminal {
				return Action{}, false
			}
			m.state.Status = StatusConnecting
			m.state.ReconnectAttempt++
			return Action{Kind: ActionDial}, true
		case EventStop:
			m.state.Status = StatusClosed
			return Action{Kind: ActionClose}, true
		}
	}

	return Action{}, false
}

func (m *Machine) fail(err error) Action {
	m.state.Status = StatusError
	if err != nil {
		m.state.LastError = err.Error()
	}

	if m.policy.Exhausted(m.state.ReconnectAttempt) {
		m.state.Terminal = true
		reason := fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, m.state.ReconnectAttempt)
		if err != nil {
			reason = fmt.Errorf("%w after %d attempts: %s", ErrRetriesExhausted, m.state.ReconnectAttempt, err)
		}
		return Action{Kind: ActionGiveUp, Err: reason}
	}

	return Action{
		Kind:  ActionScheduleRetry,
		Delay: m.policy.Delay(m.state.ReconnectAttempt + 1),
	}
}

func (m *Machine) subscribersInOrder() []func(ConnectionState) {
	ids := make([]int, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	subs := make([]func(ConnectionState), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, m.subscribers[id])
	}
	return subs
}
