// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/curio-rl/curio/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines when and how episodes end. Enders modify the
// TimeStep in-place so that its StepType and EndType fields reflect
// the episode ending.
type Ender interface {
	// End returns whether the argument TimeStep ends its episode,
	// adjusting the TimeStep accordingly
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme for taking actions in some
// environment
type Task interface {
	Starter
	Ender

	// GetReward returns the reward for taking an action in some state,
	// resulting in some next state
	GetReward(state mat.Vector, action mat.Vector, nextState mat.Vector) float64

	// AtGoal returns whether the argument state is a goal state
	AtGoal(state mat.Matrix) bool

	// RewardSpec returns the reward specification of the Task
	RewardSpec() Spec
}

// Environment implements a simulated environment, which includes a
// Task to complete
type Environment interface {
	Task

	// Reset resets the environment between episodes, returning the
	// first TimeStep of the new episode
	Reset() timestep.TimeStep

	// Step takes one environmental step given the argument action,
	// returning the next TimeStep and whether it is the last in the
	// episode
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)

	RewardSpec() Spec
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}

// Renderer is an Environment that can draw a representation of its
// current state. Rendering is always optional.
type Renderer interface {
	Environment
	Render()
}
