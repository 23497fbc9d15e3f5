package session

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/formcoach/internal/progress"
)

const liveReportTimeout = 5 * time.Second

// LiveReporter publishes the counters of a running session.
type LiveReporter interface {
	UpdateLive(ctx context.Context, c progress.LiveCounters) error
	ClearLive(ctx context.Context, userID string) error
}

// liveSink pushes counter snapshots to a LiveReporter from its own
// goroutine. Only the newest pending snapshot is kept.
type liveSink struct {
	reporter LiveReporter
	pending  chan progress.LiveCounters
	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newLiveSink(reporter LiveReporter) *liveSink {
	s := &liveSink{
		reporter: reporter,
		pending:  make(chan progress.LiveCounters, 1),
		quit:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *liveSink) publish(c progress.LiveCounters) {
	for {
		select {
		case s.pending <- c:
			return
		default:
		}
		select {
		case <-s.pending:
		default:
		}
	}
}

func (s *liveSink) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case c := <-s.pending:
			s.push(c)
		}
	}
}

func (s *liveSink) push(c progress.LiveCounters) {
	ctx, cancel := context.WithTimeout(context.Background(), liveReportTimeout)
	defer cancel()
	if err := s.reporter.UpdateLive(ctx, c); err != nil {
		log.Debugf("session %s: update live counters: %s", c.SessionID, err)
	}
}

// stop drops pending snapshots and clears the published counters.
func (s *liveSink) stop(ctx context.Context, userID string) {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.wg.Wait()
		if err := s.reporter.ClearLive(ctx, userID); err != nil {
			log.Debugf("clear live counters of %s: %s", userID, err)
		}
	})
}
