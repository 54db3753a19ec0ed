// Package rnd implements random network distillation for generating
// intrinsic exploration rewards. Two networks share an input shape: a
// target network that keeps its random initial weights forever, and a
// smaller predictor network trained online to match the target's
// outputs. The predictor's squared error on an observation measures
// how unfamiliar that observation is, decaying as the predictor sees
// it more often.
package rnd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"

	"github.com/curio-rl/curio/initwfn"
	"github.com/curio-rl/curio/network"
	"github.com/curio-rl/curio/solver"
	"github.com/curio-rl/curio/welford"
)

// Default network architecture and optimization hyperparameters
const (
	DefaultStepSize      float64 = 1e-4
	DefaultStepSizeDecay float64 = 0.995
)

var (
	targetHiddenSizes    = []int{32, 32, 32}
	predictorHiddenSizes = []int{32, 32}
	embeddingSize        = 32
)

// RND generates intrinsic rewards from the prediction error of a
// trained predictor network against a fixed random target network.
// Reward computation has a learning side effect: each call performs
// one gradient step on the predictor.
type RND struct {
	g         *G.ExprGraph
	target    network.NeuralNet
	predictor network.NeuralNet

	loss    *G.Node
	lossVal G.Value
	vm      G.VM
	solver  *solver.Solver
	decay   float64

	obsStat    *welford.Estimator
	rewardStat *welford.Estimator

	features int
}

// New returns a new RND module for observations with features
// dimensions. The running observation statistics are seeded with
// initObs, a batch of observations gathered by running an exploratory
// policy in the environment. The predictor is optimized with Adam at
// stepSize, geometrically decayed by decay on each AnnealStepSize
// call.
func New(features int, initObs []*mat.VecDense, stepSize,
	decay float64) (*RND, error) {
	if features < 1 {
		return nil, fmt.Errorf("new: features must be positive "+
			"\n\thave(%v)", features)
	}

	g := G.NewGraph()

	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		return nil, fmt.Errorf("new: could not create weight init: %v", err)
	}

	targetActivations := make([]*network.Activation, len(targetHiddenSizes))
	targetBiases := make([]bool, len(targetHiddenSizes))
	for i := range targetActivations {
		targetActivations[i] = network.ReLU()
		targetBiases[i] = true
	}
	target, err := network.NewNamedMultiHeadMLP(features, 1, embeddingSize,
		g, targetHiddenSizes, targetBiases, init.InitWFn(),
		targetActivations, "target", "")
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %v",
			err)
	}

	predictorActivations := make([]*network.Activation,
		len(predictorHiddenSizes))
	predictorBiases := make([]bool, len(predictorHiddenSizes))
	for i := range predictorActivations {
		predictorActivations[i] = network.ReLU()
		predictorBiases[i] = true
	}
	predictor, err := network.NewNamedMultiHeadMLP(features, 1,
		embeddingSize, g, predictorHiddenSizes, predictorBiases,
		init.InitWFn(), predictorActivations, "predictor", "")
	if err != nil {
		return nil, fmt.Errorf("new: could not create predictor network: %v",
			err)
	}

	// Prediction error of the predictor against the fixed target
	targetOut := target.Prediction()[0]
	predictorOut := predictor.Prediction()[0]
	errors := G.Must(G.Sub(predictorOut, targetOut))
	loss := G.Must(G.Mean(G.Must(G.Square(errors))))

	// Only the predictor learns
	_, err = G.Grad(loss, predictor.Learnables()...)
	if err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %v", err)
	}

	obsStat, err := welford.NewFromBatch(initObs)
	if err != nil {
		return nil, fmt.Errorf("new: could not seed observation "+
			"statistics: %v", err)
	}

	rewardStat, err := welford.New(1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create reward "+
			"statistics: %v", err)
	}

	adam, err := solver.NewDefaultAdam(stepSize, 1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create solver: %v", err)
	}

	r := &RND{
		g:          g,
		target:     target,
		predictor:  predictor,
		loss:       loss,
		solver:     adam,
		decay:      decay,
		obsStat:    obsStat,
		rewardStat: rewardStat,
		features:   features,
	}
	G.Read(r.loss, &r.lossVal)
	r.vm = G.NewTapeMachine(g, G.BindDualValues(predictor.Learnables()...))

	return r, nil
}

// Reward returns the novelty of obs and performs one gradient step on
// the predictor toward the target's output for obs, so that an
// identical later observation receives a smaller reward. The returned
// reward is also folded into the running reward scale statistics.
func (r *RND) Reward(obs *mat.VecDense) (float64, error) {
	norm, err := r.obsStat.Normalize(obs)
	if err != nil {
		return 0, fmt.Errorf("reward: could not normalize observation: %v",
			err)
	}

	input := norm.RawVector().Data
	if err := r.target.SetInput(input); err != nil {
		return 0, fmt.Errorf("reward: could not set target input: %v", err)
	}
	if err := r.predictor.SetInput(input); err != nil {
		return 0, fmt.Errorf("reward: could not set predictor input: %v",
			err)
	}

	if err := r.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("reward: could not run forward pass: %v", err)
	}
	reward := r.lossVal.Data().(float64)

	if err := r.solver.Step(r.predictor.Model()); err != nil {
		return 0, fmt.Errorf("reward: could not step solver: %v", err)
	}
	r.vm.Reset()

	err = r.rewardStat.Update(mat.NewVecDense(1, []float64{reward}))
	if err != nil {
		return 0, fmt.Errorf("reward: could not update reward "+
			"statistics: %v", err)
	}

	return reward, nil
}

// RewardScale returns the running standard deviation of the rewards
// generated so far, used by callers to rescale intrinsic rewards to a
// stable magnitude.
func (r *RND) RewardScale() float64 {
	return math.Sqrt(r.rewardStat.Variance().AtVec(0))
}

// ResetRewardScale discards the running reward statistics and reseeds
// them with rewards. Early in training the predictor improves quickly,
// so periodically reseeding with only recent rewards reduces the bias
// from stale, much larger rewards.
func (r *RND) ResetRewardScale(rewards []float64) error {
	r.rewardStat.Reset()
	for _, reward := range rewards {
		err := r.rewardStat.Update(mat.NewVecDense(1, []float64{reward}))
		if err != nil {
			return fmt.Errorf("resetRewardScale: could not update reward "+
				"statistics: %v", err)
		}
	}
	return nil
}

// AnnealStepSize geometrically decays the predictor's step size.
func (r *RND) AnnealStepSize() error {
	if err := r.solver.Anneal(r.decay); err != nil {
		return fmt.Errorf("annealStepSize: %v", err)
	}
	return nil
}

// StepSize returns the predictor's current step size.
func (r *RND) StepSize() float64 {
	return r.solver.StepSize()
}

// Features returns the number of dimensions in observations the
// module scores.
func (r *RND) Features() int {
	return r.features
}
