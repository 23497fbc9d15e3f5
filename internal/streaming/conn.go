package streaming

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultReadLimit     = 8 << 20
	DefaultWriteTimeout  = 10 * time.Second
	defaultOutboundSlots = 64
)

var (
	ErrConnClosed       = errors.New("connection closed")
	ErrOutboundFull     = errors.New("outbound queue full")
	ErrAbnormalClosure  = errors.New("connection closed abnormally")
	errUnknownFrameType = errors.New("unknown websocket frame type")
)

//go:generate mockgen -source=$GOFILE -destination=transport_mocks_test.go -package=streaming_test

// Transport is the connection used by the Client.
type Transport interface {
	// Send hands a frame to the connection without blocking on the network.
	Send(frame []byte) error
	// BufferedAmount is the number of bytes accepted by Send and not yet written.
	BufferedAmount() int64
	Read(ctx context.Context) (MessageType, []byte, error)
	Close() error
}

// DialFunc opens a new Transport. It must honour ctx cancellation.
type DialFunc func(ctx context.Context) (Transport, error)

// Conn is a websocket Transport. Outbound frames are written by a single
// writer goroutine, so Send never blocks on the network.
type Conn struct {
	ws           *websocket.Conn
	outbound     chan []byte
	buffered     atomic.Int64
	writeTimeout time.Duration

	closeOnce  sync.Once
	done       chan struct{}
	writerDone chan struct{}
	closed     atomic.Bool
}

type ConnParams struct {
	URL          string
	Header       http.Header
	HTTPClient   *http.Client
	ReadLimit    int64
	WriteTimeout time.Duration
}

// WebsocketDialer returns a DialFunc opening websocket connections with params.
func WebsocketDialer(params ConnParams) DialFunc {
	return func(ctx context.Context) (Transport, error) {
		return Dial(ctx, params)
	}
}

func Dial(ctx context.Context, params ConnParams) (*Conn, error) {
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	ws, resp, err := websocket.Dial(ctx, params.URL, &websocket.DialOptions{
		HTTPClient: httpClient,
		HTTPHeader: params.Header,
	})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", params.URL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", params.URL, err)
	}

	readLimit := params.ReadLimit
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}
	ws.SetReadLimit(readLimit)

	writeTimeout := params.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}

	c := &Conn{
		ws:           ws,
		outbound:     make(chan []byte, defaultOutboundSlots),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
	}
	go c.writeLoop()

	return c, nil
}

func (c *Conn) writeLoop() {
	defer close(c.writerDone)
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.outbound:
			ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
			err := c.ws.Write(ctx, websocket.MessageBinary, frame)
			cancel()
			c.buffered.Add(-int64(len(frame)))
			if err != nil {
				log.Debugf("streaming: write frame: %s", err)
			}
		}
	}
}

func (c *Conn) Send(frame []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	c.buffered.Add(int64(len(frame)))
	select {
	case c.outbound <- frame:
		return nil
	default:
		c.buffered.Add(-int64(len(frame)))
		return ErrOutboundFull
	}
}

func (c *Conn) BufferedAmount() int64 {
	return c.buffered.Load()
}

// Read blocks until the next message. A close that is not a normal closure
// is reported as ErrAbnormalClosure.
func (c *Conn) Read(ctx context.Context) (MessageType, []byte, error) {
	typ, data, err := c.ws.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return 0, nil, fmt.Errorf("%w: %s", ErrConnClosed, err)
		default:
			if c.closed.Load() {
				return 0, nil, ErrConnClosed
			}
			return 0, nil, fmt.Errorf("%w: %s", ErrAbnormalClosure, err)
		}
	}

	switch typ {
	case websocket.MessageBinary:
		return MessageBinary, data, nil
	case websocket.MessageText:
		return MessageText, data, nil
	default:
		return 0, nil, errUnknownFrameType
	}
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		<-c.writerDone
		err = c.ws.Close(websocket.StatusNormalClosure, "session ended")
	})
	return err
}
