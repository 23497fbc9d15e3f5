package reps_test

import (
	"testing"

	"github.com/2beens/formcoach/internal/exercise"
	"github.com/2beens/formcoach/internal/pose"
	"github.com/2beens/formcoach/internal/reps"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func armExercise() exercise.Exercise {
	return exercise.Exercise{
		Name:          "arm",
		Encouragement: "good arm",
		MET:           3,
		Joints: []exercise.JointRule{
			{
				Name:    "elbow",
				A:       pose.LeftShoulder,
				B:       pose.LeftElbow,
				C:       pose.LeftWrist,
				Min:     150,
				Max:     180,
				Message: "straighten your arm",
			},
		},
	}
}

// straight arm, 180 degrees at the elbow
func correctFrame() pose.Frame {
	return pose.Frame{
		pose.LeftShoulder: {X: 0, Y: 1},
		pose.LeftElbow:    {X: 0, Y: 0},
		pose.LeftWrist:    {X: 0, Y: -1},
	}
}

// bent arm, 90 degrees at the elbow
func incorrectFrame() pose.Frame {
	return pose.Frame{
		pose.LeftShoulder: {X: 0, Y: 1},
		pose.LeftElbow:    {X: 0, Y: 0},
		pose.LeftWrist:    {X: 1, Y: 0},
	}
}

func feed(t *testing.T, e *reps.Engine, frames ...pose.Frame) {
	t.Helper()
	for _, f := range frames {
		_, ok := e.ClassifyFrame(f)
		require.True(t, ok)
	}
}

func repeat(f pose.Frame, n int) []pose.Frame {
	frames := make([]pose.Frame, n)
	for i := range frames {
		frames[i] = f
	}
	return frames
}

func TestEngine_ClassifyFrame_Correct(t *testing.T) {
	e := reps.NewEngine(armExercise())

	res, ok := e.ClassifyFrame(correctFrame())
	require.True(t, ok)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, []string{"good arm"}, res.Feedback)
	assert.InDelta(t, 180.0, res.Angles["elbow"], 1e-9)
	assert.Equal(t, reps.PhaseUp, res.Phase)
	// Unknown -> Up counts nothing
	assert.Equal(t, reps.CountedNone, res.Counted)

	state := e.State()
	assert.Equal(t, reps.PhaseUp, state.Phase)
	assert.Zero(t, state.CorrectCount)
	assert.Zero(t, state.IncorrectCount)
	assert.Equal(t, reps.Band{Min: 150, Max: 180}, state.Thresholds["elbow"])
}

func TestEngine_ClassifyFrame_Incorrect(t *testing.T) {
	e := reps.NewEngine(armExercise())

	res, ok := e.ClassifyFrame(incorrectFrame())
	require.True(t, ok)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, []string{"straighten your arm"}, res.Feedback)
	assert.InDelta(t, 90.0, res.Angles["elbow"], 1e-9)
	assert.Equal(t, reps.PhaseDown, res.Phase)
	assert.Equal(t, reps.CountedNone, res.Counted)
}

func TestEngine_ClassifyFrame_Transitions(t *testing.T) {
	e := reps.NewEngine(armExercise())

	feed(t, e, incorrectFrame())
	res, ok := e.ClassifyFrame(correctFrame())
	require.True(t, ok)
	assert.Equal(t, reps.CountedCorrect, res.Counted)

	res, ok = e.ClassifyFrame(incorrectFrame())
	require.True(t, ok)
	assert.Equal(t, reps.CountedIncorrect, res.Counted)

	assert.Equal(t, reps.Totals{Total: 2, Correct: 1, Incorrect: 1}, e.Summary())
}

func TestEngine_HeldPositionCountsOnce(t *testing.T) {
	e := reps.NewEngine(armExercise())

	feed(t, e, incorrectFrame())
	feed(t, e, repeat(correctFrame(), 50)...)
	state := e.State()
	assert.Equal(t, 1, state.CorrectCount)
	assert.Zero(t, state.IncorrectCount)

	feed(t, e, repeat(incorrectFrame(), 50)...)
	state = e.State()
	assert.Equal(t, 1, state.CorrectCount)
	assert.Equal(t, 1, state.IncorrectCount)
}

func TestEngine_CountsMatchPhaseTransitions(t *testing.T) {
	faker := gofakeit.New(42)

	for run := 0; run < 20; run++ {
		e := reps.NewEngine(armExercise())
		n := faker.Number(1, 300)

		phases := []reps.Phase{reps.PhaseUnknown}
		for i := 0; i < n; i++ {
			if faker.Bool() {
				feed(t, e, correctFrame())
				phases = append(phases, reps.PhaseUp)
			} else {
				feed(t, e, incorrectFrame())
				phases = append(phases, reps.PhaseDown)
			}
		}

		wantCorrect, wantIncorrect := 0, 0
		for i := 1; i < len(phases); i++ {
			switch {
			case phases[i-1] == reps.PhaseDown && phases[i] == reps.PhaseUp:
				wantCorrect++
			case phases[i-1] == reps.PhaseUp && phases[i] == reps.PhaseDown:
				wantIncorrect++
			}
		}

		state := e.State()
		assert.Equal(t, wantCorrect, state.CorrectCount, "run %d", run)
		assert.Equal(t, wantIncorrect, state.IncorrectCount, "run %d", run)
		assert.Equal(t, phases[len(phases)-1], state.Phase, "run %d", run)
	}
}

func TestEngine_MissingLandmarksAreNoOps(t *testing.T) {
	e := reps.NewEngine(armExercise())
	feed(t, e, incorrectFrame(), correctFrame(), incorrectFrame())
	before := e.State()

	missingWrist := correctFrame()
	delete(missingWrist, pose.LeftWrist)

	for _, f := range []pose.Frame{nil, {}, missingWrist} {
		res, ok := e.ClassifyFrame(f)
		assert.False(t, ok)
		assert.Nil(t, res)
		assert.Equal(t, before, e.State())
	}
}

func TestEngine_LowVisibilityIsMissing(t *testing.T) {
	e := reps.NewEngine(armExercise(), reps.WithMinVisibility(0.5))
	feed(t, e, incorrectFrame())
	before := e.State()

	low := 0.2
	f := correctFrame()
	wrist := f[pose.LeftWrist]
	wrist.Visibility = &low
	f[pose.LeftWrist] = wrist

	_, ok := e.ClassifyFrame(f)
	assert.False(t, ok)
	assert.Equal(t, before, e.State())
}

func TestEngine_MultipleJointMessages(t *testing.T) {
	squat, err := exercise.DefaultRegistry().Get("squat")
	require.NoError(t, err)
	e := reps.NewEngine(squat)

	// everything folded: hip and knee both far below their bands
	f := pose.Frame{
		pose.LeftShoulder: {X: 1, Y: 0.1},
		pose.LeftHip:      {X: 0, Y: 0},
		pose.LeftKnee:     {X: 1, Y: -0.1},
		pose.LeftAnkle:    {X: 0, Y: -0.2},
	}
	res, ok := e.ClassifyFrame(f)
	require.True(t, ok)
	assert.False(t, res.IsCorrect)
	assert.Len(t, res.Feedback, 2)
}

func TestEngine_FullSessionScenario(t *testing.T) {
	e := reps.NewEngine(armExercise())

	feed(t, e, repeat(correctFrame(), 3)...)
	assert.Equal(t, reps.PhaseUp, e.State().Phase)

	feed(t, e, incorrectFrame())
	assert.Equal(t, reps.PhaseDown, e.State().Phase)

	feed(t, e, repeat(correctFrame(), 2)...)

	state := e.State()
	assert.Equal(t, reps.PhaseUp, state.Phase)
	assert.Equal(t, 1, state.CorrectCount)
	// the single Up -> Down dip after settling counts as one incorrect rep
	assert.Equal(t, 1, state.IncorrectCount)
}

func TestEngine_StateIsACopy(t *testing.T) {
	e := reps.NewEngine(armExercise())
	s := e.State()
	s.Thresholds["elbow"] = reps.Band{Min: 0, Max: 1}
	s.CorrectCount = 99

	assert.Equal(t, reps.Band{Min: 150, Max: 180}, e.State().Thresholds["elbow"])
	assert.Zero(t, e.State().CorrectCount)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "up", reps.PhaseUp.String())
	assert.Equal(t, "down", reps.PhaseDown.String())
	assert.Equal(t, "unknown", reps.PhaseUnknown.String())
}
