package streaming

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/formcoach/internal/telemetry/metrics"
)

// DefaultMaxBuffered is the outbound buffer ceiling above which frames are dropped.
const DefaultMaxBuffered = 512 * 1024

//go:generate mockgen -source=$GOFILE -destination=source_mocks_test.go -package=streaming_test

// FrameSource yields one encoded frame per call.
type FrameSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

type TickResult int

const (
	TickSent TickResult = iota
	TickDropped
	TickSkipped
)

// FrameSender submits one captured frame per tick. When the transport is
// backed up the frame is dropped, never queued: the next tick checks again.
type FrameSender struct {
	source         FrameSource
	maxBuffered    int64
	metricsManager *metrics.Manager

	sent    int
	dropped int
}

func NewFrameSender(source FrameSource, maxBuffered int64, metricsManager *metrics.Manager) *FrameSender {
	if maxBuffered <= 0 {
		maxBuffered = DefaultMaxBuffered
	}
	return &FrameSender{
		source:         source,
		maxBuffered:    maxBuffered,
		metricsManager: metricsManager,
	}
}

// Tick checks backpressure, then captures and sends one frame on t.
func (s *FrameSender) Tick(ctx context.Context, t Transport) (TickResult, error) {
	if t == nil {
		return TickSkipped, nil
	}

	if buffered := t.BufferedAmount(); buffered > s.maxBuffered {
		s.dropped++
		s.metricsManager.CounterFramesDropped.Inc()
		log.Tracef("streaming: dropping frame, %d bytes buffered", buffered)
		return TickDropped, nil
	}

	frame, err := s.source.Capture(ctx)
	if err != nil {
		return TickSkipped, fmt.Errorf("capture frame: %w", err)
	}
	if len(frame) == 0 {
		return TickSkipped, nil
	}

	if err := t.Send(frame); err != nil {
		s.dropped++
		s.metricsManager.CounterFramesDropped.Inc()
		return TickDropped, fmt.Errorf("send frame: %w", err)
	}

	s.sent++
	s.metricsManager.CounterFramesSent.Inc()
	return TickSent, nil
}

func (s *FrameSender) Sent() int {
	return s.sent
}

func (s *FrameSender) Dropped() int {
	return s.dropped
}
