package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/2beens/formcoach/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const sentryFlushTimeout = 5 * time.Second

type LoggerSetupParams struct {
	// Component is added as a "component" field to every entry, e.g.
	// "progress-service" or "formcoach-client". It is also the default
	// Sentry server name.
	Component string

	LogFileName string
	LogToStdout bool

	// LogToStderr sends console logs to stderr, for tools that print
	// their results on stdout.
	LogToStderr bool

	LogLevel         string
	LogFormatJSON    bool
	Environment      string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string
}

// Setup configures the global logrus logger. The returned func flushes
// buffered Sentry events and should be deferred by main.
func Setup(params LoggerSetupParams) (flush func()) {
	flush = func() {}
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if params.Component != "" {
		logrus.AddHook(&componentHook{component: params.Component})
		if params.SentryServerName == "" {
			params.SentryServerName = params.Component
		}
	}

	if params.SentryEnabled {
		err := sentry.Init(sentry.ClientOptions{
			Environment:      params.Environment,
			Dsn:              params.SentryDSN,
			TracesSampleRate: 1.0,
			ServerName:       params.SentryServerName,
		})
		if err != nil {
			logrus.Errorf("sentry.Init: %s", err)
		}

		hook := NewSentryHook([]logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		logrus.AddHook(hook)
		flush = func() {
			sentry.Flush(sentryFlushTimeout)
		}

		logrus.Infoln("Sentry set up successfully")
	}

	logrus.SetLevel(GetLevel(params.LogLevel))

	var console io.Writer = os.Stdout
	consoleName := "STDOUT"
	if params.LogToStderr {
		console = os.Stderr
		consoleName = "STDERR"
	}

	if params.LogFileName == "" {
		logrus.SetOutput(console)
		logrus.Debugf("writing logs only to %s", consoleName)
		return flush
	}

	if params.LogToStdout {
		logrus.Printf("writing logs to file and %s", consoleName)
	}

	if !strings.HasSuffix(params.LogFileName, ".log") {
		params.LogFileName += ".log"
	}

	lumberJackLogger := &lumberjack.Logger{
		Filename:  params.LogFileName,
		MaxSize:   50,    // megabytes
		LocalTime: false, // false -> use UTC
		Compress:  true,  // disabled by default
		// comment out MaxBackups and MaxAge, as I want to retain rotated log files indefinitely for now
		//MaxBackups: 30,
		//MaxAge:     730,   //days
	}

	if params.LogToStdout {
		logrus.SetOutput(
			pkg.NewCombinedWriter(console, lumberJackLogger),
		)
	} else {
		logrus.SetOutput(lumberJackLogger)
	}
	return flush
}

// GetLevel parses level, falling back to info.
func GetLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "info":
		return logrus.InfoLevel
	case "trace":
		return logrus.TraceLevel
	case "warn", "warning":
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

type componentHook struct {
	component string
}

func (h *componentHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *componentHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["component"]; !ok {
		entry.Data["component"] = h.component
	}
	return nil
}
