package exercise

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/2beens/formcoach/internal/pose"

	"github.com/BurntSushi/toml"
)

var ErrUnknownExercise = errors.New("unknown exercise")

// JointRule is one tracked angle: the landmark triple (B is the vertex),
// its tolerance band in degrees, and the corrective message shown when the
// measured angle falls outside the band.
type JointRule struct {
	Name    string  `toml:"name" json:"name"`
	A       string  `toml:"a" json:"a"`
	B       string  `toml:"b" json:"b"`
	C       string  `toml:"c" json:"c"`
	Min     float64 `toml:"min" json:"min"`
	Max     float64 `toml:"max" json:"max"`
	Message string  `toml:"message" json:"message"`
}

func (r JointRule) InBand(angle float64) bool {
	return angle >= r.Min && angle <= r.Max
}

// Exercise is the static configuration of one exercise type.
type Exercise struct {
	Name          string      `toml:"name" json:"name"`
	Encouragement string      `toml:"encouragement" json:"encouragement"`
	MET           float64     `toml:"met" json:"met"` // metabolic equivalent, used for the calorie estimate
	Joints        []JointRule `toml:"joint" json:"joints"`
}

// Validate reports configuration errors. Bands with min >= max are rejected
// here; the rep engine itself trusts the bands it is given.
func (e Exercise) Validate() error {
	if e.Name == "" {
		return errors.New("exercise name is empty")
	}
	if len(e.Joints) == 0 {
		return fmt.Errorf("exercise %s: no joints configured", e.Name)
	}
	if e.MET < 0 {
		return fmt.Errorf("exercise %s: negative MET %.2f", e.Name, e.MET)
	}
	seen := make(map[string]bool, len(e.Joints))
	for _, j := range e.Joints {
		if j.Name == "" || j.A == "" || j.B == "" || j.C == "" {
			return fmt.Errorf("exercise %s: joint %q has missing landmarks", e.Name, j.Name)
		}
		if seen[j.Name] {
			return fmt.Errorf("exercise %s: duplicate joint %s", e.Name, j.Name)
		}
		seen[j.Name] = true
		if j.Min >= j.Max {
			return fmt.Errorf("exercise %s: joint %s band min %.1f >= max %.1f", e.Name, j.Name, j.Min, j.Max)
		}
		if j.Min < 0 || j.Max > 180 {
			return fmt.Errorf("exercise %s: joint %s band outside [0, 180]", e.Name, j.Name)
		}
	}
	return nil
}

// Registry holds exercises by lower-cased name.
type Registry struct {
	exercises map[string]Exercise
}

func NewRegistry(exercises ...Exercise) (*Registry, error) {
	r := &Registry{
		exercises: make(map[string]Exercise, len(exercises)),
	}
	for _, ex := range exercises {
		if err := ex.Validate(); err != nil {
			return nil, err
		}
		r.exercises[strings.ToLower(ex.Name)] = ex
	}
	return r, nil
}

// DefaultRegistry contains the built-in exercises.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		// built-ins are static, a failure here is a programming error
		panic(err)
	}
	return r
}

func (r *Registry) Get(name string) (Exercise, error) {
	ex, ok := r.exercises[strings.ToLower(name)]
	if !ok {
		return Exercise{}, fmt.Errorf("%w: %s", ErrUnknownExercise, name)
	}
	return ex, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.exercises))
	for name := range r.exercises {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type tomlFile struct {
	Exercises []Exercise `toml:"exercise"`
}

// LoadFile reads exercises from a TOML file and merges them over the built-ins.
func LoadFile(path string) (*Registry, error) {
	var f tomlFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode exercises file: %w", err)
	}
	return merge(f.Exercises)
}

// Parse reads exercises from TOML text and merges them over the built-ins.
func Parse(data string) (*Registry, error) {
	var f tomlFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("decode exercises: %w", err)
	}
	return merge(f.Exercises)
}

func merge(custom []Exercise) (*Registry, error) {
	byName := make(map[string]Exercise)
	for _, ex := range Builtin() {
		byName[strings.ToLower(ex.Name)] = ex
	}
	for _, ex := range custom {
		byName[strings.ToLower(ex.Name)] = ex
	}
	all := make([]Exercise, 0, len(byName))
	for _, ex := range byName {
		all = append(all, ex)
	}
	return NewRegistry(all...)
}

func Builtin() []Exercise {
	return []Exercise{
		{
			Name:          "squat",
			Encouragement: "Great squat, keep going!",
			MET:           5.0,
			Joints: []JointRule{
				{
					Name: "hip", A: pose.LeftShoulder, B: pose.LeftHip, C: pose.LeftKnee,
					Min: 70, Max: 180, Message: "Keep your hips aligned!",
				},
				{
					Name: "knee", A: pose.LeftHip, B: pose.LeftKnee, C: pose.LeftAnkle,
					Min: 80, Max: 180, Message: "Don't let your knees go too far forward!",
				},
			},
		},
		{
			Name:          "pushup",
			Encouragement: "Nice push-up, keep it up!",
			MET:           3.8,
			Joints: []JointRule{
				{
					Name: "hip", A: pose.LeftShoulder, B: pose.LeftHip, C: pose.LeftAnkle,
					Min: 160, Max: 180, Message: "Keep your hips aligned!",
				},
				{
					Name: "knee", A: pose.LeftHip, B: pose.LeftKnee, C: pose.LeftAnkle,
					Min: 165, Max: 180, Message: "Keep your legs straight!",
				},
			},
		},
		{
			Name:          "lunge",
			Encouragement: "Solid lunge, well done!",
			MET:           4.0,
			Joints: []JointRule{
				{
					Name: "front_knee", A: pose.LeftHip, B: pose.LeftKnee, C: pose.LeftAnkle,
					Min: 80, Max: 180, Message: "Don't push your front knee past your toes!",
				},
				{
					Name: "torso", A: pose.LeftShoulder, B: pose.LeftHip, C: pose.LeftKnee,
					Min: 90, Max: 180, Message: "Keep your torso upright!",
				},
			},
		},
	}
}
