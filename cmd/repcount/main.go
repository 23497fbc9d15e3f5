package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/2beens/formcoach/internal/exercise"
	"github.com/2beens/formcoach/internal/logging"
	"github.com/2beens/formcoach/internal/pose"
	"github.com/2beens/formcoach/internal/reps"

	log "github.com/sirupsen/logrus"
)

// repcount replays a landmarks file through the rep engine and prints the counts.
func main() {
	exerciseName := flag.String("exercise", "squat", "exercise to count")
	exercisesPath := flag.String("exercises", "", "TOML file with exercise definitions (builtin set when empty)")
	landmarksPath := flag.String("landmarks", "", "JSON lines landmarks file, one frame per line (stdin when empty)")
	minVisibility := flag.Float64("min-visibility", 0, "ignore landmarks below this visibility")
	verbose := flag.Bool("v", false, "print every counted transition")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logging.Setup(logging.LoggerSetupParams{
		Component:   "repcount",
		LogToStderr: true,
		LogLevel:    *logLevel,
	})

	registry := exercise.DefaultRegistry()
	if *exercisesPath != "" {
		var err error
		if registry, err = exercise.LoadFile(*exercisesPath); err != nil {
			log.Fatalf("load exercises: %s", err)
		}
	}
	ex, err := registry.Get(*exerciseName)
	if err != nil {
		log.Fatalf("%s (known: %v)", err, registry.Names())
	}

	input := os.Stdin
	if *landmarksPath != "" {
		f, err := os.Open(*landmarksPath)
		if err != nil {
			log.Fatalf("open landmarks: %s", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Errorf("close landmarks: %s", err)
			}
		}()
		input = f
	}

	frames, err := pose.ReadFrames(input)
	if err != nil {
		log.Fatalf("read landmarks: %s", err)
	}

	var opts []reps.Option
	if *minVisibility > 0 {
		opts = append(opts, reps.WithMinVisibility(*minVisibility))
	}
	engine := reps.NewEngine(ex, opts...)

	skipped := 0
	for i, frame := range frames {
		res, ok := engine.ClassifyFrame(frame)
		if !ok {
			skipped++
			continue
		}
		if *verbose && res.Counted != reps.CountedNone {
			fmt.Printf("frame %d: %s %v\n", i, res.Counted, res.Feedback)
		}
	}

	out := struct {
		Exercise string `json:"exercise"`
		Frames   int    `json:"frames"`
		Skipped  int    `json:"skipped"`
		reps.Totals
	}{
		Exercise: ex.Name,
		Frames:   len(frames),
		Skipped:  skipped,
		Totals:   engine.Summary(),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("marshal totals: %s", err)
	}
	fmt.Println(string(data))
}
