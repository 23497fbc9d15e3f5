package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/2beens/formcoach/internal/cache"
	"github.com/2beens/formcoach/internal/camera"
	"github.com/2beens/formcoach/internal/config"
	"github.com/2beens/formcoach/internal/exercise"
	"github.com/2beens/formcoach/internal/feedback"
	"github.com/2beens/formcoach/internal/logging"
	"github.com/2beens/formcoach/internal/pose"
	"github.com/2beens/formcoach/internal/progress"
	"github.com/2beens/formcoach/internal/session"
	"github.com/2beens/formcoach/internal/streaming"
	"github.com/2beens/formcoach/internal/telemetry/metrics"
	"github.com/2beens/formcoach/internal/telemetry/tracing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	userID := flag.String("user", "", "user id the session is recorded for")
	exerciseName := flag.String("exercise", "squat", "exercise to coach")
	mode := flag.String("mode", string(session.ModeRemote), "analysis mode [remote | local]")
	framesDir := flag.String("frames", "./frames", "directory with JPEG frames used as the camera")
	loop := flag.Bool("loop", false, "restart the frames (and landmarks) once exhausted")
	landmarksPath := flag.String("landmarks", "", "JSON lines landmarks file for local mode")
	lastFramePath := flag.String("last-frame", "", "write the latest annotated frame from the analysis service to this file")
	maxDuration := flag.Duration("duration", 0, "end the session after this long (0 runs until interrupted)")
	metricsAddr := flag.String("metrics-addr", "", "serve prometheus metrics on this address")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	secrets, err := config.LoadSecrets(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load secrets: %s\n", err)
		os.Exit(1)
	}

	// the summary is printed on stdout
	flushLogs := logging.Setup(logging.LoggerSetupParams{
		Component:     "formcoach-client",
		LogFileName:   cfg.LogsPath,
		LogToStdout:   cfg.LogToStdout,
		LogToStderr:   true,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: cfg.LogFormatJSON,
		Environment:   cfg.Environment,
		SentryEnabled: cfg.SentryEnabled,
		SentryDSN:     secrets.SentryDSN,
	})
	defer flushLogs()

	otelShutdown, err := tracing.HoneycombSetup(secrets.HoneycombEnabled, secrets.OtelServiceName, nil)
	if err != nil {
		log.Fatalf("tracing setup: %s", err)
	}
	defer otelShutdown()

	registry, err := loadRegistry(cfg.ExercisesPath)
	if err != nil {
		log.Fatalf("load exercises: %s", err)
	}
	ex, err := registry.Get(*exerciseName)
	if err != nil {
		log.Fatalf("%s (known: %v)", err, registry.Names())
	}

	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("formcoach", "client", promRegistry)
	if *metricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    *metricsAddr,
			Handler: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		}
		go func() {
			log.Debugf(" > metrics listening on: [%s]", *metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("metrics server: %s", err)
			}
		}()
		defer func() {
			if err := metricsServer.Close(); err != nil {
				log.Errorf("close metrics server: %s", err)
			}
		}()
	}

	cam := camera.NewDirCamera(*framesDir, *loop)
	if *loop {
		frameCache, err := cache.NewFrameCache(cache.DefaultFrameCacheBytes)
		if err != nil {
			log.Fatalf("frame cache: %s", err)
		}
		defer frameCache.Close()
		cam.WithCache(frameCache)
	}

	params := session.Params{
		UserID:           *userID,
		Exercise:         ex,
		Mode:             session.Mode(*mode),
		Camera:           cam,
		Policy:           reconnectPolicy(cfg.ReconnectMaxAttempts),
		HandshakeTimeout: cfg.HandshakeTimeout(),
		MaxBuffered:      cfg.MaxBufferedBytes,
		CaptureInterval:  cfg.CaptureInterval(),
		FeedbackCapacity: cfg.FeedbackLogSize,
		BodyWeightKg:     cfg.BodyWeightKg,
		MinVisibility:    cfg.MinVisibility,
		MetricsManager:   metricsManager,
	}

	switch params.Mode {
	case session.ModeRemote:
		header := http.Header{}
		if secrets.AnalysisToken != "" {
			header.Set("Authorization", "Bearer "+secrets.AnalysisToken)
		}
		params.Dial = streaming.WebsocketDialer(streaming.ConnParams{
			URL:    cfg.AnalysisURL,
			Header: header,
		})
		if cfg.HealthURL != "" {
			params.Prober = streaming.NewProber(streaming.ProberParams{
				HealthURL: cfg.HealthURL,
				Timeout:   cfg.ProbeTimeout(),
			})
		}
		if *lastFramePath != "" {
			params.OnImage = frameWriter(*lastFramePath)
		}
	case session.ModeLocal:
		estimator, err := pose.NewEstimator(pose.EstimatorConfig{
			LandmarksPath: *landmarksPath,
			Loop:          *loop,
		})
		if err != nil {
			log.Fatalf("pose estimator: %s", err)
		}
		params.Estimator = estimator
	}

	if cfg.ProgressURL != "" {
		store := progress.NewHTTPStore(cfg.ProgressURL, nil).WithAuthToken(secrets.APIToken)
		params.SummaryStore = store
		params.LiveReporter = store
	}

	coordinator := session.NewCoordinator()
	s, err := coordinator.NewSession(params)
	if err != nil {
		log.Fatalf("new session: %s", err)
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	if err := s.Start(ctx); err != nil {
		log.Fatalf("start session: %s", err)
	}

	var timeout <-chan time.Time
	if *maxDuration > 0 {
		timer := time.NewTimer(*maxDuration)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case sig := <-chOsInterrupt:
		log.Warnf("signal [%s] received, ending session ...", sig)
	case <-s.Done():
		if err := s.Err(); err != nil {
			log.Errorf("session stopped: %s", err)
		} else {
			log.Infoln("camera exhausted, ending session ...")
		}
	case <-timeout:
		log.Infof("session duration %s reached", *maxDuration)
	}

	summary, err := s.End(ctx)
	if err != nil {
		log.Warnf("end session: %s", err)
	}
	cancel()
	printSummary(summary, s)
}

func loadRegistry(path string) (*exercise.Registry, error) {
	if path == "" {
		return exercise.DefaultRegistry(), nil
	}
	return exercise.LoadFile(path)
}

func reconnectPolicy(maxAttempts int) streaming.ReconnectPolicy {
	policy := streaming.DefaultReconnectPolicy()
	if maxAttempts > 0 {
		policy.MaxAttempts = maxAttempts
	}
	return policy
}

// frameWriter keeps only the latest frame on disk, replacing it atomically.
func frameWriter(path string) func([]byte) {
	return func(image []byte) {
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, image, 0o644); err != nil {
			log.Warnf("write frame: %s", err)
			return
		}
		if err := os.Rename(tmp, path); err != nil {
			log.Warnf("replace frame: %s", err)
		}
	}
}

func printSummary(summary *progress.Summary, s *session.Session) {
	if summary == nil {
		return
	}
	out := struct {
		*progress.Summary
		ImagesReceived int                `json:"imagesReceived"`
		Feedback       []feedback.Message `json:"feedback"`
	}{
		Summary:        summary,
		ImagesReceived: s.ImagesReceived(),
		Feedback:       s.Feedback(),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Errorf("marshal summary: %s", err)
		return
	}
	fmt.Println(string(data))
}
