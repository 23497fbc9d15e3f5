package session

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/formcoach/internal/pose"
	"github.com/2beens/formcoach/internal/reps"
)

// localRunner captures on a ticker and runs every frame through the pose
// estimator and the rep engine, on one goroutine.
type localRunner struct {
	session   *Session
	estimator pose.Estimator
	engine    *reps.Engine

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newLocalRunner(s *Session, estimator pose.Estimator, engine *reps.Engine) *localRunner {
	return &localRunner{
		session:   s,
		estimator: estimator,
		engine:    engine,
		stop:      make(chan struct{}),
	}
}

func (r *localRunner) start(ctx context.Context) {
	ticker := r.session.clock.NewTicker(r.session.captureInterval)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()
		r.run(ctx, ticker)
	}()
}

func (r *localRunner) run(ctx context.Context, ticker clockwork.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.Chan():
			if done := r.step(ctx); done {
				return
			}
		}
	}
}

// step processes one frame and reports whether the camera ran out.
func (r *localRunner) step(ctx context.Context) bool {
	image, err := r.session.camera.Capture(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			log.Infof("session %s: camera has no more frames", r.session.id)
			r.session.markFinished(nil)
			return true
		}
		log.Debugf("session %s: capture: %s", r.session.id, err)
		return false
	}

	frame, err := r.estimator.Process(ctx, image)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, pose.ErrEstimatorClosed) {
			r.session.markFinished(nil)
			return true
		}
		log.Warnf("session %s: estimate pose: %s", r.session.id, err)
		return false
	}

	result, ok := r.engine.ClassifyFrame(frame)
	if !ok {
		return false
	}
	r.session.applyLocalResult(result)
	return false
}

func (r *localRunner) StopCapture() error {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	r.wg.Wait()
	return nil
}

func (r *localRunner) CancelRetry() error {
	return nil
}

// Close disposes the estimator.
func (r *localRunner) Close() error {
	return r.estimator.Close()
}
