package mountaincar

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/curio-rl/curio/environment"
	ts "github.com/curio-rl/curio/timestep"
	"github.com/curio-rl/curio/utils/floatutils"
)

// Continuous implements the continuous action variant of the Mountain
// Car environment. In this environment, the agent controls a car in a
// valley between two hills. The car is underpowered and cannot drive
// up the hill unless it rocks back and forth from hill to hill, using
// its momentum to gradually climb higher.
//
// Actions are 1-dimensional and continuous, determining the force to
// apply to the car and in which direction to apply this force. Actions
// are bounded by [MinContinuousAction, MaxContinuousAction], and
// actions outside of this range are clipped to stay within it.
//
// Continuous implements the environment.Environment interface
type Continuous struct {
	*base
}

// NewContinuous creates a new continuous action Mountain Car
// environment with the argument task
func NewContinuous(t env.Task, discount float64) (env.Environment,
	ts.TimeStep, error) {
	baseEnv, firstStep, err := newBase(t, discount)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newContinuous: %v", err)
	}

	return &Continuous{baseEnv}, firstStep, nil
}

// ActionSpec returns the action specification of the environment
func (m *Continuous) ActionSpec() env.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{MinContinuousAction})
	upperBound := mat.NewVecDense(ActionDims, []float64{MaxContinuousAction})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Continuous)
}

// Step takes one environmental step given action a and returns the
// next timestep and a bool indicating whether or not the episode has
// ended. Actions are 1-dimensional, consisting of the horizontal force
// to apply to the car. Actions outside the legal range are clipped to
// stay within it.
func (m *Continuous) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != ActionDims {
		return ts.TimeStep{}, true, fmt.Errorf("step: actions should be " +
			"1-dimensional")
	}

	force := floatutils.Clip(a.AtVec(0), MinContinuousAction,
		MaxContinuousAction)

	newState := m.nextState(force)
	nextStep, last := m.update(a, newState)

	return nextStep, last, nil
}
