package session_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/2beens/formcoach/internal/exercise"
	"github.com/2beens/formcoach/internal/pose"
	"github.com/2beens/formcoach/internal/progress"
	"github.com/2beens/formcoach/internal/streaming"
)

func armExercise() exercise.Exercise {
	return exercise.Exercise{
		Name:          "arm_raise",
		Encouragement: "Nice arm!",
		MET:           3.0,
		Joints: []exercise.JointRule{
			{
				Name: "elbow", A: pose.LeftShoulder, B: pose.LeftElbow, C: pose.LeftWrist,
				Min: 150, Max: 180, Message: "Straighten your arm!",
			},
		},
	}
}

// straight arm, 180 degrees at the elbow
func correctFrame() pose.Frame {
	return pose.Frame{
		pose.LeftShoulder: {X: 0, Y: 0},
		pose.LeftElbow:    {X: 1, Y: 0},
		pose.LeftWrist:    {X: 2, Y: 0},
	}
}

// bent arm, 90 degrees at the elbow
func incorrectFrame() pose.Frame {
	return pose.Frame{
		pose.LeftShoulder: {X: 0, Y: 0},
		pose.LeftElbow:    {X: 1, Y: 0},
		pose.LeftWrist:    {X: 1, Y: 1},
	}
}

type memCamera struct {
	mutex      sync.Mutex
	acquireErr error
	releaseErr error
	frames     int
	captured   int
	acquired   bool
	released   int
}

func (c *memCamera) Acquire(context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.acquireErr != nil {
		return c.acquireErr
	}
	c.acquired = true
	return nil
}

func (c *memCamera) Capture(context.Context) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.frames > 0 && c.captured >= c.frames {
		return nil, io.EOF
	}
	c.captured++
	return []byte("jpeg"), nil
}

func (c *memCamera) Release() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.acquired = false
	c.released++
	return c.releaseErr
}

func (c *memCamera) releasedCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.released
}

type recordingStore struct {
	mutex     sync.Mutex
	err       error
	summaries []progress.Summary
}

func (s *recordingStore) RecordSession(_ context.Context, summary progress.Summary) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.summaries = append(s.summaries, summary)
	if s.err != nil {
		return 0, s.err
	}
	return len(s.summaries), nil
}

func (s *recordingStore) calls() []progress.Summary {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]progress.Summary(nil), s.summaries...)
}

type recordingLive struct {
	mutex   sync.Mutex
	updates []progress.LiveCounters
	cleared atomic.Int32
}

func (l *recordingLive) UpdateLive(_ context.Context, c progress.LiveCounters) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.updates = append(l.updates, c)
	return nil
}

func (l *recordingLive) ClearLive(context.Context, string) error {
	l.cleared.Add(1)
	return nil
}

func (l *recordingLive) last() (progress.LiveCounters, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if len(l.updates) == 0 {
		return progress.LiveCounters{}, false
	}
	return l.updates[len(l.updates)-1], true
}

type inboundMsg struct {
	typ  streaming.MessageType
	data []byte
}

type fakeTransport struct {
	mutex     sync.Mutex
	sent      int
	inbound   chan inboundMsg
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan inboundMsg, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) Send([]byte) error {
	select {
	case <-f.closed:
		return streaming.ErrConnClosed
	default:
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.sent++
	return nil
}

func (f *fakeTransport) BufferedAmount() int64 {
	return 0
}

func (f *fakeTransport) Read(ctx context.Context) (streaming.MessageType, []byte, error) {
	select {
	case m := <-f.inbound:
		return m.typ, m.data, nil
	case <-f.closed:
		return 0, nil, streaming.ErrConnClosed
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
	})
	return nil
}

func (f *fakeTransport) sentCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.sent
}

// stuckCamera never becomes available; Acquire waits for ctx.
type stuckCamera struct {
	memCamera
}

func (c *stuckCamera) Acquire(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
