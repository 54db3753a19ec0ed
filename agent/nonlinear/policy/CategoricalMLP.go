package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/curio-rl/curio/agent"
	"github.com/curio-rl/curio/environment"
	"github.com/curio-rl/curio/network"
	"github.com/curio-rl/curio/timestep"
)

// CategoricalMLP implements a softmax policy over a discrete action
// set, parameterized by an MLP predicting one logit per action.
// Actions are sampled from the categorical distribution induced by
// the logits, and the environment is stepped with the sampled
// action's index.
type CategoricalMLP struct {
	vm  G.VM
	net network.NeuralNet

	logits    *G.Node
	logitsVal G.Value

	actionIndices *G.Node
	logPdfNode    *G.Node
	logPdfVal     G.Value

	numActions int
	features   int
	batchSize  int

	rng *rand.Rand

	// Data needed to reconstruct the policy at a new batch size
	hiddenSizes []int
	biases      []bool
	activations []*network.Activation
	init        G.InitWFn
	seed        uint64
}

// NewCategoricalMLP returns a new CategoricalMLP policy that selects
// actions from the argument environment. The MLP predicting action
// logits is defined by hiddenSizes, biases, and activations. The init
// parameter determines the weight initialization scheme and the seed
// parameter determines the seed of the policy's action sampler.
//
// Actions can be selected on each timestep only when batchForLogProb
// is 1.
func NewCategoricalMLP(env environment.Environment, batchForLogProb int,
	hiddenSizes []int, biases []bool, activations []*network.Activation,
	init G.InitWFn, seed uint64) (agent.PolicyLogProber, error) {
	if env.ActionSpec().Cardinality != environment.Discrete {
		return nil, fmt.Errorf("newCategoricalMLP: softmax policy cannot " +
			"be used with continuous actions")
	}

	features := env.ObservationSpec().Shape.Len()
	numActions := int(env.ActionSpec().UpperBound.AtVec(0)) + 1

	return newCategoricalMLP(features, numActions, batchForLogProb,
		hiddenSizes, biases, activations, init, seed)
}

// newCategoricalMLP returns a new CategoricalMLP with explicit
// observation dimensions and action set size.
func newCategoricalMLP(features, numActions, batchForLogProb int,
	hiddenSizes []int, biases []bool, activations []*network.Activation,
	init G.InitWFn, seed uint64) (*CategoricalMLP, error) {
	g := G.NewGraph()
	net, err := network.NewMultiHeadMLP(features, batchForLogProb,
		numActions, g, hiddenSizes, biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("newCategoricalMLP: could not create policy "+
			"network: %v", err)
	}

	logits := net.Prediction()[0]

	// Log probability of actions inputted with LogPdfOf(). Input
	// actions are one-hot encoded so that a Hadamard product with the
	// logits followed by a row sum selects each action's logit.
	actionIndices := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithName("ActionIndices"),
		G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()),
	)
	selectedLogits := G.Must(G.HadamardProd(actionIndices, logits))
	selectedLogits = G.Must(G.Sum(selectedLogits, 1))
	logPdfNode := G.Must(G.Sub(selectedLogits, logSumExp(logits, 1)))

	source := rand.NewSource(seed)
	rng := rand.New(source)

	pol := &CategoricalMLP{
		net:    net,
		logits: logits,

		actionIndices: actionIndices,
		logPdfNode:    logPdfNode,

		numActions: numActions,
		features:   features,
		batchSize:  batchForLogProb,

		rng: rng,

		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
		init:        init,
		seed:        seed,
	}
	G.Read(pol.logits, &pol.logitsVal)
	G.Read(pol.logPdfNode, &pol.logPdfVal)

	if batchForLogProb == 1 {
		pol.vm = G.NewTapeMachine(net.Graph())
	}

	return pol, nil
}

// logSumExp computes the numerically stable log of the sum of
// exponentiated logits along the argument axis.
func logSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// LogPdfOf sets the state and action inputs of the policy's
// computational graph to the argument states and actions so that when
// a VM of the policy's graph is run, the log probability of actions
// taken in states will be computed and stored in the policy's log PDF
// node, which is returned. The actions argument holds one sampled
// action index per state.
func (c *CategoricalMLP) LogPdfOf(states, actions []float64) (*G.Node,
	error) {
	if len(actions) != c.batchSize {
		return nil, fmt.Errorf("logPdfOf: invalid number of actions "+
			"\n\twant(%v) \n\thave(%v)", c.batchSize, len(actions))
	}

	if err := c.net.SetInput(states); err != nil {
		return nil, fmt.Errorf("logPdfOf: could not set states: %v", err)
	}

	oneHot := make([]float64, c.batchSize*c.numActions)
	for i, action := range actions {
		index := int(action)
		if index < 0 || index >= c.numActions {
			return nil, fmt.Errorf("logPdfOf: invalid action index %v", index)
		}
		oneHot[i*c.numActions+index] = 1.0
	}

	actionsTensor := tensor.NewDense(
		tensor.Float64,
		[]int{c.batchSize, c.numActions},
		tensor.WithBacking(oneHot),
	)
	if err := G.Let(c.actionIndices, actionsTensor); err != nil {
		return nil, fmt.Errorf("logPdfOf: could not set actions: %v", err)
	}

	return c.logPdfNode, nil
}

// SelectAction samples and returns an action at the argument timestep.
func (c *CategoricalMLP) SelectAction(t timestep.TimeStep) *mat.VecDense {
	action, _, err := c.SelectActionWithLogProb(t)
	if err != nil {
		panic(fmt.Sprintf("selectAction: %v", err))
	}
	return action
}

// SelectActionWithLogProb samples an action index from the categorical
// distribution induced by the policy's logits at the argument timestep
// and returns it together with the log probability of sampling that
// index.
func (c *CategoricalMLP) SelectActionWithLogProb(t timestep.TimeStep) (
	*mat.VecDense, float64, error) {
	if size := c.net.BatchSize(); size != 1 {
		return nil, 0, fmt.Errorf("selectActionWithLogProb: action "+
			"selection requires a policy with batch size 1 \n\twant(1) "+
			"\n\thave(%v)", size)
	}

	obs := t.Observation.(*mat.VecDense).RawVector().Data
	if err := c.net.SetInput(obs); err != nil {
		return nil, 0, fmt.Errorf("selectActionWithLogProb: cannot set "+
			"input: %v", err)
	}

	if err := c.vm.RunAll(); err != nil {
		return nil, 0, fmt.Errorf("selectActionWithLogProb: could not run "+
			"policy VM: %v", err)
	}
	defer c.vm.Reset()

	logits := c.logitsVal.Data().([]float64)

	// Log softmax of the logits
	maxLogit := logits[0]
	for _, logit := range logits {
		if logit > maxLogit {
			maxLogit = logit
		}
	}
	sumExp := 0.0
	for _, logit := range logits {
		sumExp += math.Exp(logit - maxLogit)
	}
	logSumExp := maxLogit + math.Log(sumExp)

	// Sample an index from the induced categorical distribution
	u := c.rng.Float64()
	cumulative := 0.0
	index := c.numActions - 1
	for i, logit := range logits {
		cumulative += math.Exp(logit - logSumExp)
		if u < cumulative {
			index = i
			break
		}
	}

	action := mat.NewVecDense(1, []float64{float64(index)})
	return action, logits[index] - logSumExp, nil
}

// LogPdfNode returns the node that will hold the log probability of
// inputted actions when the computational graph is run.
func (c *CategoricalMLP) LogPdfNode() *G.Node {
	return c.logPdfNode
}

// LogPdfVal returns the value of the node returned by LogPdfNode()
func (c *CategoricalMLP) LogPdfVal() G.Value {
	return c.logPdfVal
}

// Clone clones a CategoricalMLP
func (c *CategoricalMLP) Clone() (agent.NNPolicy, error) {
	return c.CloneWithBatch(c.batchSize)
}

// CloneWithBatch clones a CategoricalMLP with a new batch size. The
// clone's network weights are set equal to the original's.
func (c *CategoricalMLP) CloneWithBatch(batch int) (agent.NNPolicy, error) {
	clone, err := newCategoricalMLP(c.features, c.numActions, batch,
		c.hiddenSizes, c.biases, c.activations, c.init, c.seed)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}

	if err := clone.net.Set(c.net); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not copy weights: %v",
			err)
	}

	return clone, nil
}

// Network returns the network of the CategoricalMLP
func (c *CategoricalMLP) Network() network.NeuralNet {
	return c.net
}
