package mountaincar

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/curio-rl/curio/environment"
	ts "github.com/curio-rl/curio/timestep"
)

// Discrete implements the discrete action variant of the Mountain Car
// environment.
//
// Actions are 1-dimensional and discrete in {0, 1, 2}. Actions
// determine in which direction to apply full accelerating force to the
// car:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Do nothing
//	  2		Accelerate right
//
// Actions outside this set result in an error.
//
// Discrete implements the environment.Environment interface
type Discrete struct {
	*base
}

// NewDiscrete creates a new discrete action Mountain Car environment
// with the argument task
func NewDiscrete(t env.Task, discount float64) (env.Environment,
	ts.TimeStep, error) {
	baseEnv, firstStep, err := newBase(t, discount)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newDiscrete: %v", err)
	}

	return &Discrete{baseEnv}, firstStep, nil
}

// ActionSpec returns the action specification of the environment
func (m *Discrete) ActionSpec() env.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// Step takes one environmental step given action a and returns the
// next timestep and a bool indicating whether or not the episode has
// ended. Legal actions are in the set {0, 1, 2}.
func (m *Discrete) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != ActionDims {
		return ts.TimeStep{}, true, fmt.Errorf("step: actions should be " +
			"1-dimensional")
	}

	action := a.AtVec(0)
	intAction := int(action)
	if intAction > MaxDiscreteAction || intAction < MinDiscreteAction {
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v "+
			"∉ (0, 1, 2)", intAction)
	}

	// Calculate the force
	force := action - 1.0

	newState := m.nextState(force)
	nextStep, last := m.update(a, newState)

	return nextStep, last, nil
}
