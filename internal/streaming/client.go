package streaming

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/formcoach/internal/telemetry/metrics"
)

const (
	DefaultHandshakeTimeout = 90 * time.Second
	DefaultCaptureInterval  = 200 * time.Millisecond
)

var ErrHandshakeTimeout = errors.New("handshake timed out")

// Handler receives what the analysis service sends back. All methods are
// called from the client loop goroutine, in arrival order.
type Handler interface {
	HandleImage(msg ImageMessage)
	HandleFeedback(msg FeedbackMessage)
	// HandleTerminalError is called at most once, when reconnecting is given up.
	HandleTerminalError(err error)
}

// HealthProber is run before every connection attempt.
type HealthProber interface {
	Probe(ctx context.Context) error
}

type ClientParams struct {
	Dial             DialFunc
	Prober           HealthProber
	Source           FrameSource
	Handler          Handler
	Clock            clockwork.Clock
	Policy           ReconnectPolicy
	HandshakeTimeout time.Duration
	CaptureInterval  time.Duration
	MaxBuffered      int64
	MetricsManager   *metrics.Manager
}

// Client keeps a connection to the analysis service alive and streams
// captured frames over it. All connection state is owned by one loop
// goroutine; dials and reads run on helpers that report back to it.
type Client struct {
	dial             DialFunc
	prober           HealthProber
	handler          Handler
	clock            clockwork.Clock
	handshakeTimeout time.Duration
	captureInterval  time.Duration
	metricsManager   *metrics.Manager

	machine *Machine
	sender  *FrameSender

	events   chan loopEvent
	requests chan request
	quit     chan struct{}
	done     chan struct{}
	helpers  sync.WaitGroup

	startOnce sync.Once
	started   atomic.Bool
}

type loopEventKind int

const (
	loopProbeDone loopEventKind = iota
	loopDialResult
	loopInbound
	loopReadErr
)

type loopEvent struct {
	kind      loopEventKind
	gen       int
	transport Transport
	msgType   MessageType
	data      []byte
	err       error
	took      time.Duration
}

type request struct {
	fn   func(l *loop) error
	done chan error
}

func NewClient(params ClientParams) *Client {
	if params.Clock == nil {
		params.Clock = clockwork.NewRealClock()
	}
	if params.Policy == (ReconnectPolicy{}) {
		params.Policy = DefaultReconnectPolicy()
	}
	if params.HandshakeTimeout <= 0 {
		params.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if params.CaptureInterval <= 0 {
		params.CaptureInterval = DefaultCaptureInterval
	}
	if params.MetricsManager == nil {
		params.MetricsManager = metrics.NewTestManager()
	}

	return &Client{
		dial:             params.Dial,
		prober:           params.Prober,
		handler:          params.Handler,
		clock:            params.Clock,
		handshakeTimeout: params.HandshakeTimeout,
		captureInterval:  params.CaptureInterval,
		metricsManager:   params.MetricsManager,
		machine:          NewMachine(params.Policy),
		sender:           NewFrameSender(params.Source, params.MaxBuffered, params.MetricsManager),
		events:           make(chan loopEvent),
		requests:         make(chan request),
		quit:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// Machine exposes the connection state machine, mostly to subscribe to it.
func (c *Client) Machine() *Machine {
	return c.machine
}

func (c *Client) Sender() *FrameSender {
	return c.sender
}

// Start begins connecting. The client runs until Close is called or ctx is done.
func (c *Client) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.started.Store(true)
		l := &loop{client: c}
		go l.run(ctx)
	})
}

// StopCapture stops the frame capture ticker for good.
func (c *Client) StopCapture() error {
	return c.do(func(l *loop) error {
		l.captureStopped = true
		l.stopCapture()
		return nil
	})
}

// CancelRetry stops a pending reconnect timer, if any.
func (c *Client) CancelRetry() error {
	return c.do(func(l *loop) error {
		l.retryCancelled = true
		l.stopRetry()
		return nil
	})
}

// Close ends the session side of the connection and waits for the client
// goroutines to exit.
func (c *Client) Close() error {
	if !c.started.Load() {
		return nil
	}
	err := c.do(func(l *loop) error {
		l.closing = true
		return l.apply(Event{Kind: EventStop})
	})
	<-c.done
	c.helpers.Wait()
	return err
}

func (c *Client) do(fn func(l *loop) error) error {
	if !c.started.Load() {
		return nil
	}
	req := request{fn: fn, done: make(chan error, 1)}
	select {
	case c.requests <- req:
		return <-req.done
	case <-c.done:
		return nil
	}
}

// send delivers ev to the loop unless it already exited.
func (c *Client) send(ev loopEvent) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.quit:
		return false
	}
}

type loop struct {
	client *Client
	ctx    context.Context

	gen        int
	transport  Transport
	dialCancel context.CancelFunc

	captureTicker    clockwork.Ticker
	retryTimer       clockwork.Timer
	handshakeTimer   clockwork.Timer
	captureStopped   bool
	retryCancelled   bool
	terminalReported bool
	closing          bool
}

func (l *loop) run(ctx context.Context) {
	c := l.client
	defer close(c.done)
	defer close(c.quit)

	l.ctx = ctx
	_ = l.apply(Event{Kind: EventStart})

	for {
		select {
		case <-ctx.Done():
			_ = l.apply(Event{Kind: EventStop})
			l.shutdown()
			return

		case <-chanOf(l.captureTicker):
			l.tick()

		case <-timerChan(l.retryTimer):
			l.retryTimer = nil
			_ = l.apply(Event{Kind: EventRetryDue})

		case <-timerChan(l.handshakeTimer):
			l.handshakeTimer = nil
			if l.client.machine.State().Status == StatusConnecting {
				l.abandonDial()
				_ = l.apply(Event{Kind: EventHandshakeFailed, Err: ErrHandshakeTimeout})
			}

		case ev := <-c.events:
			l.handle(ev)

		case req := <-c.requests:
			err := req.fn(l)
			req.done <- err
			if l.closing {
				l.shutdown()
				return
			}
		}
	}
}

func (l *loop) handle(ev loopEvent) {
	if ev.gen != l.gen {
		// result of an abandoned attempt or a replaced connection
		if ev.kind == loopDialResult && ev.transport != nil {
			if err := ev.transport.Close(); err != nil {
				log.Debugf("streaming: close stale transport: %s", err)
			}
		}
		return
	}

	switch ev.kind {
	case loopProbeDone:
		l.handshakeTimer = l.client.clock.NewTimer(l.client.handshakeTimeout)

	case loopDialResult:
		l.stopHandshakeTimer()
		l.dialCancel = nil
		if ev.err != nil {
			log.Warnf("streaming: connect failed: %s", ev.err)
			_ = l.apply(Event{Kind: EventHandshakeFailed, Err: ev.err})
			return
		}
		l.transport = ev.transport
		l.client.metricsManager.HistHandshakeDuration.Observe(ev.took.Seconds())
		l.startReader(ev.transport, l.gen)
		_ = l.apply(Event{Kind: EventHandshakeOK})

	case loopInbound:
		l.inbound(ev.msgType, ev.data)

	case loopReadErr:
		l.dropTransport()
		if errors.Is(ev.err, ErrConnClosed) {
			log.Infof("streaming: connection closed by server: %s", ev.err)
		} else {
			log.Warnf("streaming: connection lost: %s", ev.err)
		}
		_ = l.apply(Event{Kind: EventAbnormalClose, Err: ev.err})
	}
}

// apply feeds ev to the machine and performs the resulting action.
func (l *loop) apply(ev Event) error {
	c := l.client
	action := c.machine.HandleEvent(ev)

	switch action.Kind {
	case ActionDial:
		if c.machine.State().ReconnectAttempt > 0 {
			c.metricsManager.CounterReconnects.Inc()
		}
		l.startDial()

	case ActionScheduleRetry:
		l.stopCapture()
		if l.retryCancelled || l.closing {
			return nil
		}
		log.Infof("streaming: reconnecting in %s", action.Delay)
		l.retryTimer = c.clock.NewTimer(action.Delay)

	case ActionClose:
		l.stopCapture()
		l.stopRetry()
		l.abandonDial()
		return l.closeTransport()

	case ActionGiveUp:
		l.stopCapture()
		l.dropTransport()
		if !l.terminalReported {
			l.terminalReported = true
			c.metricsManager.CounterTerminalFailures.Inc()
			log.Errorf("streaming: giving up: %s", action.Err)
			if c.handler != nil {
				c.handler.HandleTerminalError(action.Err)
			}
		}
	}

	if c.machine.State().Status == StatusConnected {
		l.startCapture()
	}
	return nil
}

func (l *loop) startDial() {
	c := l.client
	l.gen++
	gen := l.gen

	dialCtx, cancel := context.WithCancel(l.ctx)
	l.dialCancel = cancel

	c.helpers.Add(1)
	go func() {
		defer c.helpers.Done()
		defer cancel()

		if c.prober != nil {
			if err := c.prober.Probe(dialCtx); err != nil {
				c.send(loopEvent{kind: loopDialResult, gen: gen, err: err})
				return
			}
		}
		if !c.send(loopEvent{kind: loopProbeDone, gen: gen}) {
			return
		}

		started := c.clock.Now()
		t, err := c.dial(dialCtx)
		if !c.send(loopEvent{kind: loopDialResult, gen: gen, transport: t, err: err, took: c.clock.Since(started)}) && t != nil {
			_ = t.Close()
		}
	}()
}

func (l *loop) startReader(t Transport, gen int) {
	c := l.client
	c.helpers.Add(1)
	go func() {
		defer c.helpers.Done()
		for {
			typ, data, err := t.Read(context.Background())
			if err != nil {
				c.send(loopEvent{kind: loopReadErr, gen: gen, err: err})
				return
			}
			if !c.send(loopEvent{kind: loopInbound, gen: gen, msgType: typ, data: data}) {
				return
			}
		}
	}()
}

func (l *loop) inbound(typ MessageType, data []byte) {
	c := l.client
	msg, err := DecodeMessage(typ, data)
	if err != nil {
		c.metricsManager.CounterMalformedPayloads.Inc()
		log.Warnf("streaming: ignoring inbound message: %s", err)
		return
	}
	if c.handler == nil {
		return
	}

	switch m := msg.(type) {
	case ImageMessage:
		c.handler.HandleImage(m)
	case FeedbackMessage:
		c.handler.HandleFeedback(m)
	}
}

func (l *loop) tick() {
	if l.client.machine.State().Status != StatusConnected {
		return
	}
	if _, err := l.client.sender.Tick(l.ctx, l.transport); err != nil {
		log.Debugf("streaming: capture tick: %s", err)
	}
}

func (l *loop) startCapture() {
	if l.captureTicker != nil || l.captureStopped {
		return
	}
	l.captureTicker = l.client.clock.NewTicker(l.client.captureInterval)
}

func (l *loop) stopCapture() {
	if l.captureTicker != nil {
		l.captureTicker.Stop()
		l.captureTicker = nil
	}
}

func (l *loop) stopRetry() {
	if l.retryTimer != nil {
		l.retryTimer.Stop()
		l.retryTimer = nil
	}
}

func (l *loop) stopHandshakeTimer() {
	if l.handshakeTimer != nil {
		l.handshakeTimer.Stop()
		l.handshakeTimer = nil
	}
}

// abandonDial cancels an in-flight attempt; its late result is discarded.
func (l *loop) abandonDial() {
	l.stopHandshakeTimer()
	if l.dialCancel != nil {
		l.dialCancel()
		l.dialCancel = nil
		l.gen++
	}
}

func (l *loop) closeTransport() error {
	if l.transport == nil {
		return nil
	}
	t := l.transport
	l.transport = nil
	l.gen++
	return t.Close()
}

// dropTransport closes a broken transport, errors are expected and only logged.
func (l *loop) dropTransport() {
	if err := l.closeTransport(); err != nil {
		log.Debugf("streaming: close broken transport: %s", err)
	}
}

func (l *loop) shutdown() {
	l.stopCapture()
	l.stopRetry()
	l.abandonDial()
	if err := l.closeTransport(); err != nil {
		log.Debugf("streaming: shutdown: %s", err)
	}
}

func chanOf(t clockwork.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}

func timerChan(t clockwork.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}
