package pose

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrEstimatorClosed = errors.New("pose estimator closed")

// Estimator turns an encoded camera image into landmarks.
// Process returns a nil Frame when no pose is detected in the image.
// Estimators are owned by a single session and disposed with Close.
type Estimator interface {
	Process(ctx context.Context, image []byte) (Frame, error)
	Close() error
}

// EstimatorConfig selects and configures an estimator implementation.
type EstimatorConfig struct {
	// LandmarksPath points to a JSON lines file with one Frame per line,
	// used by the replay estimator.
	LandmarksPath string
	// Loop restarts the replay from the first line once the file is exhausted.
	Loop bool
}

// NewEstimator creates the estimator described by cfg.
func NewEstimator(cfg EstimatorConfig) (Estimator, error) {
	if cfg.LandmarksPath == "" {
		return nil, errors.New("landmarks path not set")
	}
	f, err := os.Open(cfg.LandmarksPath)
	if err != nil {
		return nil, fmt.Errorf("open landmarks file: %w", err)
	}
	frames, err := ReadFrames(f)
	closeErr := f.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		log.Warnf("close landmarks file %s: %s", cfg.LandmarksPath, closeErr)
	}
	return NewReplayEstimator(frames, cfg.Loop), nil
}

// ReadFrames decodes JSON lines, one Frame per line. An empty object or
// "null" line is kept as a no-pose frame.
func ReadFrames(r io.Reader) ([]Frame, error) {
	var frames []Frame
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			return nil, fmt.Errorf("line %d: decode frame: %w", line, err)
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	return frames, nil
}

// ReplayEstimator ignores image content and yields prerecorded frames in order.
type ReplayEstimator struct {
	mu     sync.Mutex
	frames []Frame
	next   int
	loop   bool
	closed bool
}

func NewReplayEstimator(frames []Frame, loop bool) *ReplayEstimator {
	return &ReplayEstimator{
		frames: frames,
		loop:   loop,
	}
}

func (e *ReplayEstimator) Process(ctx context.Context, _ []byte) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEstimatorClosed
	}
	if e.next >= len(e.frames) {
		if !e.loop || len(e.frames) == 0 {
			return nil, io.EOF
		}
		e.next = 0
	}
	frame := e.frames[e.next]
	e.next++
	return frame, nil
}

func (e *ReplayEstimator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
