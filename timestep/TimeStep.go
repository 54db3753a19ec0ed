// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either the
// first environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes the way in which an episode ended. Episodes may end
// because the agent reached an environmental terminal state or because
// some timestep limit cut the episode off before a terminal state.
type EndType int

const (
	// TerminalStateReached indicates that the episode ended because
	// the agent reached a terminal state
	TerminalStateReached EndType = iota

	// Timeout indicates that the episode ended because a timestep
	// limit was reached. The last state in the episode is not terminal.
	Timeout

	// Nil indicates that no episode ended at this step
	Nil
)

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType
	Reward      float64
	Discount    float64
	Observation mat.Vector
	Number      int
	EndType
}

// New constructs a new TimeStep
func New(t StepType, r, d float64, o mat.Vector, n int) TimeStep {
	return TimeStep{t, r, d, o, n, Nil}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// TerminalEnd returns whether the TimeStep ended an episode with a
// terminal state
func (t *TimeStep) TerminalEnd() bool {
	return t.EndType == TerminalStateReached
}

// TimeoutEnd returns whether the TimeStep ended an episode by reaching
// a timestep limit
func (t *TimeStep) TimeoutEnd() bool {
	return t.EndType == Timeout
}

// SetEnd adjusts the TimeStep to be the last in its episode, ended in
// the manner described by the argument EndType
func (t *TimeStep) SetEnd(e EndType) {
	t.StepType = Last
	t.EndType = e
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}
