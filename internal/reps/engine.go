package reps

import (
	"github.com/2beens/formcoach/internal/exercise"
	"github.com/2beens/formcoach/internal/pose"
)

// Phase is the last classified body position.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseUp
	PhaseDown
)

func (p Phase) String() string {
	switch p {
	case PhaseUp:
		return "up"
	case PhaseDown:
		return "down"
	default:
		return "unknown"
	}
}

// Counted tells which counter a classified frame moved, if any.
type Counted int

const (
	CountedNone Counted = iota
	CountedCorrect
	CountedIncorrect
)

func (c Counted) String() string {
	switch c {
	case CountedCorrect:
		return "correct"
	case CountedIncorrect:
		return "incorrect"
	default:
		return "none"
	}
}

// Band is a tolerance range in degrees.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// RepState is the per-session rep counting state.
type RepState struct {
	Phase          Phase           `json:"phase"`
	CorrectCount   int             `json:"correctCount"`
	IncorrectCount int             `json:"incorrectCount"`
	Thresholds     map[string]Band `json:"thresholds"`
}

// Result is the classification of a single frame.
type Result struct {
	IsCorrect bool
	Feedback  []string
	Angles    map[string]float64
	Phase     Phase
	Counted   Counted
}

type Engine struct {
	exercise      exercise.Exercise
	minVisibility float64
	state         RepState
}

type Option func(*Engine)

// WithMinVisibility makes landmarks with a lower visibility score count as missing.
func WithMinVisibility(v float64) Option {
	return func(e *Engine) {
		e.minVisibility = v
	}
}

// NewEngine creates an engine for one session of the given exercise.
// The tolerance bands are fixed for the engine lifetime and are not validated here.
func NewEngine(ex exercise.Exercise, opts ...Option) *Engine {
	thresholds := make(map[string]Band, len(ex.Joints))
	for _, j := range ex.Joints {
		thresholds[j.Name] = Band{Min: j.Min, Max: j.Max}
	}

	e := &Engine{
		exercise: ex,
		state: RepState{
			Phase:      PhaseUnknown,
			Thresholds: thresholds,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Exercise() exercise.Exercise {
	return e.exercise
}

// State returns a copy of the current rep state.
func (e *Engine) State() RepState {
	s := e.state
	s.Thresholds = make(map[string]Band, len(e.state.Thresholds))
	for k, v := range e.state.Thresholds {
		s.Thresholds[k] = v
	}
	return s
}

// ClassifyFrame classifies one frame and advances the rep state.
//
// A correct frame moves the phase to Up, an incorrect one to Down. The correct
// counter only moves on a Down -> Up transition and the incorrect counter only on
// an Up -> Down transition, so a held position is never counted twice.
//
// ok is false when any tracked landmark is missing; the state is left untouched.
func (e *Engine) ClassifyFrame(frame pose.Frame) (_ *Result, ok bool) {
	if len(frame) == 0 {
		return nil, false
	}

	angles := make(map[string]float64, len(e.exercise.Joints))
	for _, j := range e.exercise.Joints {
		a, b, c, found := frame.Triple(j.A, j.B, j.C, e.minVisibility)
		if !found {
			return nil, false
		}
		angles[j.Name] = pose.ComputeAngle(a, b, c)
	}

	res := &Result{
		IsCorrect: true,
		Angles:    angles,
	}
	for _, j := range e.exercise.Joints {
		if !j.InBand(angles[j.Name]) {
			res.IsCorrect = false
			res.Feedback = append(res.Feedback, j.Message)
		}
	}
	if res.IsCorrect && e.exercise.Encouragement != "" {
		res.Feedback = []string{e.exercise.Encouragement}
	}

	prev := e.state.Phase
	if res.IsCorrect {
		if prev == PhaseDown {
			e.state.CorrectCount++
			res.Counted = CountedCorrect
		}
		e.state.Phase = PhaseUp
	} else {
		if prev == PhaseUp {
			e.state.IncorrectCount++
			res.Counted = CountedIncorrect
		}
		e.state.Phase = PhaseDown
	}
	res.Phase = e.state.Phase

	return res, true
}

// Totals is the rep count summary of a session.
type Totals struct {
	Total     int `json:"total"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

func (e *Engine) Summary() Totals {
	return Totals{
		Total:     e.state.CorrectCount + e.state.IncorrectCount,
		Correct:   e.state.CorrectCount,
		Incorrect: e.state.IncorrectCount,
	}
}
