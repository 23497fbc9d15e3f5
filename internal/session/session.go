package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/2beens/formcoach/internal/camera"
	"github.com/2beens/formcoach/internal/exercise"
	"github.com/2beens/formcoach/internal/feedback"
	"github.com/2beens/formcoach/internal/pose"
	"github.com/2beens/formcoach/internal/progress"
	"github.com/2beens/formcoach/internal/reps"
	"github.com/2beens/formcoach/internal/streaming"
	"github.com/2beens/formcoach/internal/telemetry/metrics"
)

const (
	summaryFlushTimeout   = 10 * time.Second
	DefaultAcquireTimeout = 10 * time.Second
)

var (
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrNotStarted        = errors.New("session not started")
	ErrAlreadyStarted    = errors.New("session already started")
)

type Mode string

const (
	// ModeRemote streams frames to the analysis service.
	ModeRemote Mode = "remote"
	// ModeLocal runs pose estimation and rep counting in process.
	ModeLocal Mode = "local"
)

// SummaryStore persists the summary written when a session ends.
type SummaryStore interface {
	RecordSession(ctx context.Context, summary progress.Summary) (int, error)
}

// connection is the part of a running session that the teardown stops,
// in this order.
type connection interface {
	StopCapture() error
	CancelRetry() error
	Close() error
}

type Params struct {
	UserID   string
	Exercise exercise.Exercise
	Mode     Mode
	Camera   camera.Camera
	// AcquireTimeout bounds waiting for the camera in Start.
	AcquireTimeout time.Duration

	// remote mode
	Dial             streaming.DialFunc
	Prober           streaming.HealthProber
	Policy           streaming.ReconnectPolicy
	HandshakeTimeout time.Duration
	MaxBuffered      int64

	// local mode
	Estimator     pose.Estimator
	MinVisibility float64

	SummaryStore SummaryStore
	LiveReporter LiveReporter
	// OnImage receives processed images from the analysis service. The
	// slice must not be retained after the call returns.
	OnImage func(image []byte)

	Clock            clockwork.Clock
	CaptureInterval  time.Duration
	FeedbackCapacity int
	BodyWeightKg     float64
	MetricsManager   *metrics.Manager
}

// Session is one coaching session: camera, capture cadence, analysis,
// feedback log and the summary written at the end.
type Session struct {
	id          string
	params      Params
	coordinator *Coordinator

	clock           clockwork.Clock
	captureInterval time.Duration
	camera          camera.Camera
	metricsManager  *metrics.Manager
	feedback        *feedback.Log

	conn connection
	live *liveSink

	started   atomic.Bool
	startedAt time.Time

	mutex          sync.Mutex
	correct        int
	incorrect      int
	reportedTotal  int
	imagesReceived int
	lastFeedback   string
	connState      streaming.ConnectionState
	terminalErr    error

	done     chan struct{}
	doneOnce sync.Once

	endOnce sync.Once
	summary *progress.Summary
	endErr  error
}

// NewSession validates params and prepares a session bound to the coordinator.
func (c *Coordinator) NewSession(params Params) (*Session, error) {
	if err := progress.ValidateUserID(params.UserID); err != nil {
		return nil, err
	}
	if err := params.Exercise.Validate(); err != nil {
		return nil, fmt.Errorf("exercise %s: %w", params.Exercise.Name, err)
	}
	if params.Camera == nil {
		return nil, errors.New("camera not set")
	}
	switch params.Mode {
	case ModeRemote:
		if params.Dial == nil {
			return nil, errors.New("remote mode needs a dial func")
		}
	case ModeLocal:
		if params.Estimator == nil {
			return nil, errors.New("local mode needs a pose estimator")
		}
	default:
		return nil, fmt.Errorf("unknown session mode: %q", params.Mode)
	}

	if params.Clock == nil {
		params.Clock = clockwork.NewRealClock()
	}
	if params.CaptureInterval <= 0 {
		params.CaptureInterval = streaming.DefaultCaptureInterval
	}
	if params.AcquireTimeout <= 0 {
		params.AcquireTimeout = DefaultAcquireTimeout
	}
	if params.FeedbackCapacity <= 0 {
		params.FeedbackCapacity = feedback.DefaultCapacity
	}
	if params.BodyWeightKg <= 0 {
		params.BodyWeightKg = progress.DefaultBodyWeightKg
	}
	if params.MetricsManager == nil {
		params.MetricsManager = metrics.NewTestManager()
	}

	return &Session{
		id:              uuid.NewString(),
		params:          params,
		coordinator:     c,
		clock:           params.Clock,
		captureInterval: params.CaptureInterval,
		camera:          params.Camera,
		metricsManager:  params.MetricsManager,
		feedback:        feedback.NewLog(params.FeedbackCapacity),
		done:            make(chan struct{}),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Mode() Mode {
	return s.params.Mode
}

// Start acquires the camera and begins capturing. A camera that cannot be
// acquired fails the start for good.
func (s *Session) Start(ctx context.Context) error {
	if s.started.Load() {
		return ErrAlreadyStarted
	}
	if err := s.coordinator.acquire(s); err != nil {
		return err
	}

	acquireCtx, cancelAcquire := context.WithTimeout(ctx, s.params.AcquireTimeout)
	err := s.camera.Acquire(acquireCtx)
	cancelAcquire()
	if err != nil {
		s.coordinator.release(s)
		s.metricsManager.CounterSessions.WithLabelValues(string(s.params.Mode), "camera_unavailable").Inc()
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	s.started.Store(true)
	s.startedAt = s.clock.Now()
	s.metricsManager.GaugeActiveSessions.Inc()
	if s.params.LiveReporter != nil {
		s.live = newLiveSink(s.params.LiveReporter)
	}

	log.Infof("session %s: starting %s session of %s for %s", s.id, s.params.Mode, s.params.Exercise.Name, s.params.UserID)
	s.feedback.Append(feedback.Message{
		Text:      fmt.Sprintf("Starting %s", s.params.Exercise.Name),
		Source:    feedback.SourceSystem,
		Timestamp: s.startedAt,
	})

	switch s.params.Mode {
	case ModeRemote:
		client := streaming.NewClient(streaming.ClientParams{
			Dial:             s.params.Dial,
			Prober:           s.params.Prober,
			Source:           &cameraSource{session: s},
			Handler:          &remoteHandler{session: s},
			Clock:            s.clock,
			Policy:           s.params.Policy,
			HandshakeTimeout: s.params.HandshakeTimeout,
			CaptureInterval:  s.captureInterval,
			MaxBuffered:      s.params.MaxBuffered,
			MetricsManager:   s.metricsManager,
		})
		client.Machine().Subscribe(s.onConnectionState)
		s.conn = client
		client.Start(ctx)
	case ModeLocal:
		var opts []reps.Option
		if s.params.MinVisibility > 0 {
			opts = append(opts, reps.WithMinVisibility(s.params.MinVisibility))
		}
		runner := newLocalRunner(s, s.params.Estimator, reps.NewEngine(s.params.Exercise, opts...))
		s.conn = runner
		runner.start(ctx)
	}

	return nil
}

// End tears the session down in order: stop capture, stop the reconnect
// timer, close the connection, release the camera, flush the summary.
// Every step runs even when an earlier one fails. The summary is flushed
// once; a failed flush is logged and does not fail End.
func (s *Session) End(ctx context.Context) (*progress.Summary, error) {
	if !s.started.Load() {
		return nil, ErrNotStarted
	}
	s.endOnce.Do(func() {
		s.summary, s.endErr = s.teardown(ctx)
	})
	return s.summary, s.endErr
}

func (s *Session) teardown(ctx context.Context) (*progress.Summary, error) {
	var err error
	err = multierr.Append(err, stepErr("stop capture", s.conn.StopCapture()))
	err = multierr.Append(err, stepErr("stop retry", s.conn.CancelRetry()))
	err = multierr.Append(err, stepErr("close connection", s.conn.Close()))
	err = multierr.Append(err, stepErr("release camera", s.camera.Release()))

	summary := s.buildSummary(s.clock.Now())
	s.flushSummary(ctx, summary)

	if s.live != nil {
		clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), liveReportTimeout)
		s.live.stop(clearCtx, s.params.UserID)
		cancel()
	}

	outcome := "completed"
	if s.Err() != nil {
		outcome = "terminal_error"
	} else if err != nil {
		outcome = "teardown_error"
	}
	s.metricsManager.CounterSessions.WithLabelValues(string(s.params.Mode), outcome).Inc()
	s.metricsManager.GaugeActiveSessions.Dec()

	s.markFinished(nil)
	s.coordinator.release(s)

	if err != nil {
		log.Warnf("session %s: teardown: %s", s.id, err)
	}
	log.Infof("session %s: ended, %d correct, %d incorrect", s.id, summary.CorrectReps, summary.IncorrectReps)
	return &summary, err
}

func stepErr(step string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", step, err)
}

func (s *Session) buildSummary(endedAt time.Time) progress.Summary {
	correct, incorrect := s.Counters()
	total := s.TotalReps()
	duration := endedAt.Sub(s.startedAt)
	if duration < 0 {
		duration = 0
	}
	return progress.Summary{
		SessionID:       s.id,
		UserID:          s.params.UserID,
		Exercise:        s.params.Exercise.Name,
		Mode:            string(s.params.Mode),
		StartedAt:       s.startedAt.UTC(),
		EndedAt:         endedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		TotalReps:       total,
		CorrectReps:     correct,
		IncorrectReps:   incorrect,
		Calories:        progress.EstimateCalories(s.params.Exercise.MET, s.params.BodyWeightKg, duration),
	}
}

func (s *Session) flushSummary(ctx context.Context, summary progress.Summary) {
	if s.params.SummaryStore == nil {
		log.Debugf("session %s: no summary store, summary not persisted", s.id)
		return
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryFlushTimeout)
	defer cancel()

	id, err := s.params.SummaryStore.RecordSession(flushCtx, summary)
	if err != nil {
		log.Errorf("session %s: flush summary: %s", s.id, err)
		return
	}
	log.Debugf("session %s: summary stored with id %d", s.id, id)
}

// Done is closed when the session can no longer make progress: reconnecting
// was given up, the camera ran out of frames, or the session ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal connection error, if any.
func (s *Session) Err() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.terminalErr
}

func (s *Session) markFinished(err error) {
	if err != nil {
		s.mutex.Lock()
		if s.terminalErr == nil {
			s.terminalErr = err
		}
		s.mutex.Unlock()
	}
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

func (s *Session) Counters() (correct, incorrect int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.correct, s.incorrect
}

// TotalReps is correct plus incorrect, or the rep count reported by the
// analysis service when that is higher.
func (s *Session) TotalReps() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return max(s.correct+s.incorrect, s.reportedTotal)
}

func (s *Session) ConnectionState() streaming.ConnectionState {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.connState
}

func (s *Session) ImagesReceived() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.imagesReceived
}

// Feedback returns the most recent feedback messages, oldest first.
func (s *Session) Feedback() []feedback.Message {
	return s.feedback.Entries()
}

func (s *Session) onConnectionState(state streaming.ConnectionState) {
	s.mutex.Lock()
	s.connState = state
	s.mutex.Unlock()

	log.Debugf("session %s: connection %s (attempt %d)", s.id, state.Status, state.ReconnectAttempt)
	s.publishLive()
}

// applyLocalResult records one classified frame of the local engine.
func (s *Session) applyLocalResult(result *reps.Result) {
	s.mutex.Lock()
	switch result.Counted {
	case reps.CountedCorrect:
		s.correct++
	case reps.CountedIncorrect:
		s.incorrect++
	}
	text := strings.Join(result.Feedback, "\n")
	changed := result.Counted != reps.CountedNone || text != s.lastFeedback
	s.lastFeedback = text
	s.mutex.Unlock()

	switch result.Counted {
	case reps.CountedCorrect:
		s.metricsManager.CounterReps.WithLabelValues(s.params.Exercise.Name, "correct").Inc()
	case reps.CountedIncorrect:
		s.metricsManager.CounterReps.WithLabelValues(s.params.Exercise.Name, "incorrect").Inc()
	}

	if !changed {
		return
	}
	isCorrect := result.IsCorrect
	now := s.clock.Now()
	for _, msg := range result.Feedback {
		s.feedback.Append(feedback.Message{
			Text:      msg,
			Source:    feedback.SourceLocal,
			IsCorrect: &isCorrect,
			Timestamp: now,
		})
	}
	if result.Counted != reps.CountedNone {
		s.publishLive()
	}
}

// applyRemoteFeedback records a feedback message of the analysis service.
// Rep counters sent by the service replace the local ones. A bare count
// only sets the session total.
func (s *Session) applyRemoteFeedback(msg streaming.FeedbackMessage) {
	s.mutex.Lock()
	correctDelta, incorrectDelta := 0, 0
	countChanged := false
	if msg.Count != nil && *msg.Count >= 0 && *msg.Count != s.reportedTotal {
		s.reportedTotal = *msg.Count
		countChanged = true
	}
	if msg.CorrectReps != nil {
		correctDelta = *msg.CorrectReps - s.correct
		s.correct = *msg.CorrectReps
	}
	if msg.IncorrectReps != nil {
		incorrectDelta = *msg.IncorrectReps - s.incorrect
		s.incorrect = *msg.IncorrectReps
	}
	s.mutex.Unlock()

	if correctDelta > 0 {
		s.metricsManager.CounterReps.WithLabelValues(s.params.Exercise.Name, "correct").Add(float64(correctDelta))
	}
	if incorrectDelta > 0 {
		s.metricsManager.CounterReps.WithLabelValues(s.params.Exercise.Name, "incorrect").Add(float64(incorrectDelta))
	}

	now := s.clock.Now()
	for _, text := range msg.Feedback {
		s.feedback.Append(feedback.Message{
			Text:      text,
			Source:    feedback.SourceRemote,
			IsCorrect: msg.IsCorrect,
			Timestamp: now,
		})
	}
	if correctDelta != 0 || incorrectDelta != 0 || countChanged {
		s.publishLive()
	}
}

func (s *Session) publishLive() {
	if s.live == nil {
		return
	}
	s.mutex.Lock()
	c := progress.LiveCounters{
		UserID:        s.params.UserID,
		SessionID:     s.id,
		Exercise:      s.params.Exercise.Name,
		Status:        s.connState.Status.String(),
		CorrectReps:   s.correct,
		IncorrectReps: s.incorrect,
		UpdatedAt:     s.clock.Now().UTC(),
	}
	if s.params.Mode == ModeLocal {
		c.Status = "local"
	}
	s.mutex.Unlock()
	s.live.publish(c)
}
