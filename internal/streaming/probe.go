package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/formcoach/internal/telemetry/tracing"
)

const (
	DefaultProbeInitialInterval = time.Second
	DefaultProbeMaxInterval     = 5 * time.Second
	DefaultProbeTimeout         = 60 * time.Second
	DefaultProbeRequestTimeout  = 10 * time.Second
)

var errProbeTimeout = errors.New("probe timed out")

// Prober polls the health endpoint of the analysis service until it answers
// with 2xx, to absorb cold starts before the real connection attempt.
type Prober struct {
	healthURL       string
	httpClient      *http.Client
	clock           clockwork.Clock
	initialInterval time.Duration
	maxInterval     time.Duration
	timeout         time.Duration
}

type ProberParams struct {
	HealthURL       string
	HTTPClient      *http.Client
	Clock           clockwork.Clock
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Timeout bounds the whole probe, all retries included.
	Timeout time.Duration
}

func NewProber(params ProberParams) *Prober {
	p := &Prober{
		healthURL:       params.HealthURL,
		httpClient:      params.HTTPClient,
		clock:           params.Clock,
		initialInterval: params.InitialInterval,
		maxInterval:     params.MaxInterval,
		timeout:         params.Timeout,
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   DefaultProbeRequestTimeout,
		}
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.initialInterval <= 0 {
		p.initialInterval = DefaultProbeInitialInterval
	}
	if p.maxInterval <= 0 {
		p.maxInterval = DefaultProbeMaxInterval
	}
	if p.timeout <= 0 {
		p.timeout = DefaultProbeTimeout
	}
	return p
}

// Probe returns nil once the service reports healthy, or the last probe error
// when the overall timeout elapses or ctx is done.
func (p *Prober) Probe(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "streaming.prober.probe")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if p.healthURL == "" {
		return nil
	}

	// the deadline also cuts off a health request that is still in flight
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	deadline := p.clock.AfterFunc(p.timeout, func() {
		cancel(errProbeTimeout)
	})
	defer deadline.Stop()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.MaxInterval = p.maxInterval
	b.MaxElapsedTime = p.timeout
	b.Clock = p.clock
	b.Reset()

	attempt := 0
	operation := func() error {
		attempt++
		return p.check(ctx)
	}
	notify := func(err error, next time.Duration) {
		log.Debugf("streaming: health probe attempt %d failed: %s, next in %s", attempt, err, next)
	}

	err = backoff.RetryNotifyWithTimer(
		operation,
		backoff.WithContext(b, ctx),
		notify,
		&clockTimer{clock: p.clock},
	)
	if err != nil {
		if errors.Is(context.Cause(ctx), errProbeTimeout) {
			return fmt.Errorf("health probe %s: no healthy answer within %s: %w", p.healthURL, p.timeout, err)
		}
		return fmt.Errorf("health probe %s: %w", p.healthURL, err)
	}

	log.Debugf("streaming: health probe ok after %d attempt(s)", attempt)
	return nil
}

func (p *Prober) check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthURL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if err := resp.Body.Close(); err != nil {
			log.Tracef("streaming: close probe body: %s", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// clockTimer drives backoff waits from the injected clock.
type clockTimer struct {
	clock clockwork.Clock
	timer clockwork.Timer
}

func (t *clockTimer) Start(duration time.Duration) {
	if t.timer == nil {
		t.timer = t.clock.NewTimer(duration)
		return
	}
	t.timer.Reset(duration)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.timer.Chan()
}
