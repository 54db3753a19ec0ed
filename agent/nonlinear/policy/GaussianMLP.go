// Package policy implements policies parameterized by neural networks
// for use in policy gradient algorithms.
package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/curio-rl/curio/agent"
	"github.com/curio-rl/curio/environment"
	"github.com/curio-rl/curio/network"
	"github.com/curio-rl/curio/timestep"
	"github.com/curio-rl/curio/utils/floatutils"
)

// The Gaussian policy uses a fixed diagonal covariance. Only the mean
// of the action distribution is learned.
const actionVariance float64 = 0.5

// GaussianMLP implements a Gaussian policy whose mean is parameterized
// by an MLP and whose diagonal covariance is fixed. Actions are
// selected by sampling from the standard normal ɛ ~ N(0, 1) and
// computing action := μ + σ * ɛ.
//
// Given a number of continuous actions in a number of states, the
// GaussianMLP can calculate the log probability of selecting each of
// these actions in each corresponding state, which is needed to
// construct policy gradient losses.
type GaussianMLP struct {
	vm  G.VM
	net network.NeuralNet

	actions    *G.Node
	logPdfNode *G.Node
	logPdfVal  G.Value

	normal     distmv.Rander
	actionDims int
	features   int
	batchSize  int

	meanVal G.Value

	// Data needed to reconstruct the policy at a new batch size
	hiddenSizes []int
	biases      []bool
	activations []*network.Activation
	init        G.InitWFn
	seed        uint64
}

// NewGaussianMLP returns a new GaussianMLP policy that selects actions
// from the argument environment. The MLP predicting the mean of the
// action distribution is defined by hiddenSizes, biases, and
// activations. The init parameter determines the weight
// initialization scheme and the seed parameter determines the seed of
// the policy's action sampler.
//
// Actions can be selected on each timestep only when batchForLogProb
// is 1. Larger batches are used for computing the log probability of
// batches of actions when learning.
func NewGaussianMLP(env environment.Environment, batchForLogProb int,
	hiddenSizes []int, biases []bool, activations []*network.Activation,
	init G.InitWFn, seed uint64) (agent.PolicyLogProber, error) {
	if env.ActionSpec().Cardinality != environment.Continuous {
		return nil, fmt.Errorf("newGaussianMLP: actions must be continuous")
	}
	if env.ObservationSpec().Cardinality != environment.Continuous {
		return nil, fmt.Errorf("newGaussianMLP: observations must be " +
			"continuous")
	}

	features := env.ObservationSpec().Shape.Len()
	actionDims := env.ActionSpec().Shape.Len()

	return newGaussianMLP(features, actionDims, batchForLogProb,
		hiddenSizes, biases, activations, init, seed)
}

// newGaussianMLP returns a new GaussianMLP with explicit observation
// and action dimensions.
func newGaussianMLP(features, actionDims, batchForLogProb int,
	hiddenSizes []int, biases []bool, activations []*network.Activation,
	init G.InitWFn, seed uint64) (*GaussianMLP, error) {
	g := G.NewGraph()
	net, err := network.NewMultiHeadMLP(features, batchForLogProb,
		actionDims, g, hiddenSizes, biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("newGaussianMLP: could not create policy "+
			"network: %v", err)
	}

	mean := net.Prediction()[0]

	// Log probability of actions inputted with LogPdfOf()
	actions := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithName("InputActions"),
		G.WithShape(batchForLogProb, actionDims),
		G.WithInit(G.Zeroes()),
	)
	logPdfNode := logPdf(mean, actions)

	// Create standard normal for action selection
	means := make([]float64, actionDims)
	stds := mat.NewDiagDense(actionDims, floatutils.Ones(actionDims))
	source := rand.NewSource(seed)
	normal, ok := distmv.NewNormal(means, stds, source)
	if !ok {
		return nil, fmt.Errorf("newGaussianMLP: could not create standard " +
			"normal for action selection")
	}

	pol := &GaussianMLP{
		net: net,

		actions:    actions,
		logPdfNode: logPdfNode,

		normal:     normal,
		actionDims: actionDims,
		features:   features,
		batchSize:  batchForLogProb,

		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
		init:        init,
		seed:        seed,
	}

	G.Read(pol.logPdfNode, &pol.logPdfVal)
	G.Read(mean, &pol.meanVal)

	// Policy can select actions at each timestep only if using a
	// batch size of 1
	if net.BatchSize() == 1 {
		pol.vm = G.NewTapeMachine(net.Graph())
	}

	return pol, nil
}

// logPdf adds nodes to the computational graph of mean and actions
// for computing the log probability of actions under a Gaussian with
// the argument mean and the policy's fixed diagonal covariance.
func logPdf(mean, actions *G.Node) *G.Node {
	std := math.Sqrt(actionVariance)
	dims := float64(mean.Shape()[1])

	negativeHalf := G.NewConstant(-0.5)
	invStd := G.NewConstant(1 / std)

	exponent := G.Must(G.Sub(actions, mean))
	exponent = G.Must(G.HadamardProd(exponent, invStd))
	exponent = G.Must(G.Square(exponent))
	exponent = G.Must(G.HadamardProd(negativeHalf, exponent))
	exponent = G.Must(G.Sum(exponent, 1))

	normalization := G.NewConstant(
		dims * (math.Log(std) + 0.5*math.Log(2*math.Pi)),
	)

	return G.Must(G.Sub(exponent, normalization))
}

// LogPdfOf sets the state and action inputs of the policy's
// computational graph to the argument states and actions so that when
// a VM of the policy's graph is run, the log probability of actions
// taken in states will be computed and stored in the policy's log PDF
// node, which is returned.
//
// This function does not run the policy's graph. The log PDF of
// actions is generally needed in loss functions, and an external VM
// holding the loss will run the graph.
func (g *GaussianMLP) LogPdfOf(states, actions []float64) (*G.Node, error) {
	if err := g.net.SetInput(states); err != nil {
		return nil, fmt.Errorf("logPdfOf: could not set states: %v", err)
	}

	actionsTensor := tensor.NewDense(
		tensor.Float64,
		[]int{g.batchSize, g.actionDims},
		tensor.WithBacking(actions),
	)
	if err := G.Let(g.actions, actionsTensor); err != nil {
		return nil, fmt.Errorf("logPdfOf: could not set actions: %v", err)
	}

	return g.logPdfNode, nil
}

// SelectAction samples and returns an action at the argument timestep.
func (g *GaussianMLP) SelectAction(t timestep.TimeStep) *mat.VecDense {
	action, _, err := g.SelectActionWithLogProb(t)
	if err != nil {
		panic(fmt.Sprintf("selectAction: %v", err))
	}
	return action
}

// SelectActionWithLogProb samples an action at the argument timestep
// and returns it together with the log probability of sampling that
// action from the policy's current action distribution. The returned
// log probability is computed with the same formula as the policy's
// log PDF node so that the two agree exactly.
func (g *GaussianMLP) SelectActionWithLogProb(t timestep.TimeStep) (
	*mat.VecDense, float64, error) {
	if size := g.net.BatchSize(); size != 1 {
		return nil, 0, fmt.Errorf("selectActionWithLogProb: action "+
			"selection requires a policy with batch size 1 \n\twant(1) "+
			"\n\thave(%v)", size)
	}

	obs := t.Observation.(*mat.VecDense).RawVector().Data
	if err := g.net.SetInput(obs); err != nil {
		return nil, 0, fmt.Errorf("selectActionWithLogProb: cannot set "+
			"input: %v", err)
	}

	if err := g.vm.RunAll(); err != nil {
		return nil, 0, fmt.Errorf("selectActionWithLogProb: could not run "+
			"policy VM: %v", err)
	}
	defer g.vm.Reset()

	std := math.Sqrt(actionVariance)
	mean := g.meanVal.Data().([]float64)
	eps := g.normal.Rand(nil)

	action := mat.NewVecDense(g.actionDims, nil)
	logProb := -float64(g.actionDims) * (math.Log(std) +
		0.5*math.Log(2*math.Pi))
	for i := 0; i < g.actionDims; i++ {
		a := mean[i] + std*eps[i]
		action.SetVec(i, a)

		scaled := (a - mean[i]) / std
		logProb += -0.5 * scaled * scaled
	}

	return action, logProb, nil
}

// LogPdfNode returns the node that will hold the log probability of
// inputted actions when the computational graph is run.
func (g *GaussianMLP) LogPdfNode() *G.Node {
	return g.logPdfNode
}

// LogPdfVal returns the value of the node returned by LogPdfNode()
func (g *GaussianMLP) LogPdfVal() G.Value {
	return g.logPdfVal
}

// Clone clones a GaussianMLP
func (g *GaussianMLP) Clone() (agent.NNPolicy, error) {
	return g.CloneWithBatch(g.batchSize)
}

// CloneWithBatch clones a GaussianMLP with a new batch size. The
// clone's network weights are set equal to the original's.
func (g *GaussianMLP) CloneWithBatch(batch int) (agent.NNPolicy, error) {
	clone, err := newGaussianMLP(g.features, g.actionDims, batch,
		g.hiddenSizes, g.biases, g.activations, g.init, g.seed)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}

	if err := clone.net.Set(g.net); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not copy weights: %v",
			err)
	}

	return clone, nil
}

// Network returns the network of the GaussianMLP
func (g *GaussianMLP) Network() network.NeuralNet {
	return g.net
}
