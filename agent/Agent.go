// Package agent defines the interfaces that policies must satisfy to
// be trained.
package agent

import (
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"

	"github.com/curio-rl/curio/network"
	"github.com/curio-rl/curio/timestep"
)

// Policy represents a policy that an agent can have. Policies
// determine how agents select actions.
type Policy interface {
	SelectAction(t timestep.TimeStep) *mat.VecDense
}

// NNPolicy represents a policy that uses neural network function
// approximation.
type NNPolicy interface {
	Policy
	Clone() (NNPolicy, error)
	CloneWithBatch(int) (NNPolicy, error)
	Network() network.NeuralNet
}

// PolicyLogProber implements a policy type that can calculate the log
// of the probability density function of the policy for taking some
// (externally inputted) actions in some (externally inputted) states.
// Because of this, the gradient will not be computed through the
// action selection process.
type PolicyLogProber interface {
	NNPolicy

	// SelectActionWithLogProb samples an action at the argument
	// timestep and returns it with the log probability of sampling
	// that action from the policy's current action distribution
	SelectActionWithLogProb(t timestep.TimeStep) (*mat.VecDense, float64,
		error)

	// LogPdfNode returns the node that calculates the log probability
	// of externally inputted actions
	LogPdfNode() *G.Node

	// LogPdfVal returns the value of the node returned by
	// LogPdfNode()
	LogPdfVal() G.Value

	// LogPdfOf sets the policy's inputs so that when its graph is
	// next run, the log probability of taking the argument actions in
	// the argument states is computed. Inputs should be constructed
	// in row major order. For discrete action policies, actions holds
	// one action index per state.
	LogPdfOf(states, actions []float64) (*G.Node, error)
}
