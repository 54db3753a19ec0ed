// Package ppo implements proximal policy optimization with
// generalized advantage estimation and optional intrinsic exploration
// rewards generated by random network distillation. This
// implementation is adapted from:
//
// https://spinningup.openai.com/en/latest/algorithms/ppo.html
// https://arxiv.org/abs/1707.06347
// https://arxiv.org/abs/1810.12894
package ppo

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/curio-rl/curio/agent"
	"github.com/curio-rl/curio/agent/nonlinear/policy"
	"github.com/curio-rl/curio/checkpoint"
	"github.com/curio-rl/curio/environment"
	"github.com/curio-rl/curio/gae"
	"github.com/curio-rl/curio/initwfn"
	"github.com/curio-rl/curio/network"
	"github.com/curio-rl/curio/rnd"
	"github.com/curio-rl/curio/solver"
	"github.com/curio-rl/curio/tracker"
	"github.com/curio-rl/curio/utils/progressbar"
)

// Guards divisions by quantities that may reach zero
const stabilizer float64 = 1e-10

// Default actor and critic network architecture
var defaultHiddenSizes = []int{64, 64}

// PPO trains a policy and a state value critic with the clipped
// surrogate objective. Each iteration collects a fresh on-policy
// batch of whole episodes, estimates advantages with GAE, and runs a
// fixed number of update epochs over the batch. When intrinsic
// rewards are enabled, a novelty module augments the environment's
// rewards during collection.
type PPO struct {
	env    environment.Environment
	config Config

	behaviour agent.PolicyLogProber // Batch size 1, selects actions

	critic network.NeuralNet // Batch size 1

	actorSolver  *solver.Solver
	criticSolver *solver.Solver

	novelty *rnd.RND // nil when intrinsic rewards are disabled

	trackers []tracker.Tracker

	features   int
	actionDims int

	iteration int
	timesteps int
}

// New returns a new PPO trainer for env. The environment must have
// continuous vector observations and either continuous vector or
// discrete actions.
func New(env environment.Environment, config Config) (*PPO, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	if env.ObservationSpec().Cardinality != environment.Continuous {
		return nil, fmt.Errorf("new: observations must be continuous " +
			"vectors")
	}

	seed := time.Now().UnixNano()
	if config.Seed != nil {
		seed = *config.Seed
	}

	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		return nil, fmt.Errorf("new: could not create weight init: %v", err)
	}

	hiddenSizes := defaultHiddenSizes
	biases := []bool{true, true}
	activations := []*network.Activation{network.ReLU(), network.ReLU()}

	// Create the behaviour policy for the environment's action space
	var behaviour agent.PolicyLogProber
	var actionDims int
	switch env.ActionSpec().Cardinality {
	case environment.Continuous:
		actionDims = env.ActionSpec().Shape.Len()
		behaviour, err = policy.NewGaussianMLP(env, 1, hiddenSizes, biases,
			activations, init.InitWFn(), uint64(seed))

	case environment.Discrete:
		actionDims = 1
		behaviour, err = policy.NewCategoricalMLP(env, 1, hiddenSizes,
			biases, activations, init.InitWFn(), uint64(seed))

	default:
		err = fmt.Errorf("unknown action space cardinality %v",
			env.ActionSpec().Cardinality)
	}
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy: %v", err)
	}

	features := env.ObservationSpec().Shape.Len()
	critic, err := network.NewSingleHeadMLP(features, 1, G.NewGraph(),
		hiddenSizes, biases, init.InitWFn(), activations)
	if err != nil {
		return nil, fmt.Errorf("new: could not create critic: %v", err)
	}

	actorSolver, err := solver.NewDefaultAdam(config.StepSize, 1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create actor solver: %v", err)
	}
	criticSolver, err := solver.NewDefaultAdam(config.StepSize, 1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create critic solver: %v",
			err)
	}

	p := &PPO{
		env:    env,
		config: config,

		behaviour: behaviour,
		critic:    critic,

		actorSolver:  actorSolver,
		criticSolver: criticSolver,

		features:   features,
		actionDims: actionDims,
	}

	// Seed the novelty module's observation statistics with a rollout
	// of the untrained, hence exploratory, behaviour policy
	if config.ExplorationFactor != 0 {
		initObs, err := p.initialObservations()
		if err != nil {
			return nil, fmt.Errorf("new: could not gather initial "+
				"observations: %v", err)
		}

		p.novelty, err = rnd.New(features, initObs, rnd.DefaultStepSize,
			rnd.DefaultStepSizeDecay)
		if err != nil {
			return nil, fmt.Errorf("new: could not create novelty "+
				"module: %v", err)
		}
	}

	return p, nil
}

// AddTracker registers a Tracker to receive each iteration's summary
func (p *PPO) AddTracker(t tracker.Tracker) {
	p.trackers = append(p.trackers, t)
}

// initialObservations runs a single episode with the untrained
// behaviour policy and returns the observations it visits.
func (p *PPO) initialObservations() ([]*mat.VecDense, error) {
	step := p.env.Reset()
	obs := []*mat.VecDense{
		mat.VecDenseCopyOf(step.Observation),
	}

	for t := 0; t < p.config.MaxTimestepsPerEpisode; t++ {
		action, _, err := p.behaviour.SelectActionWithLogProb(step)
		if err != nil {
			return nil, fmt.Errorf("initialObservations: %v", err)
		}

		next, last, err := p.env.Step(action)
		if err != nil {
			return nil, fmt.Errorf("initialObservations: %v", err)
		}
		obs = append(obs, mat.VecDenseCopyOf(next.Observation))

		step = next
		if last {
			break
		}
	}

	return obs, nil
}

// Learn trains the actor and critic networks until at least
// totalTimesteps environment steps have been taken.
func (p *PPO) Learn(totalTimesteps int) error {
	fmt.Printf("Learning... Running %v timesteps per episode, %v timesteps "+
		"per batch for a total of %v timesteps\n",
		p.config.MaxTimestepsPerEpisode, p.config.TimestepsPerBatch,
		totalTimesteps)

	pbar := progressbar.NewProgressBar(65, totalTimesteps, time.Second,
		false)
	pbar.Display()
	defer pbar.Close()

	checkpointers, err := p.checkpointers()
	if err != nil {
		return fmt.Errorf("learn: %v", err)
	}

	for p.timesteps < totalTimesteps {
		start := time.Now()
		p.iteration++

		batch, err := p.rollout()
		if err != nil {
			return fmt.Errorf("learn: could not collect batch: %v", err)
		}
		p.timesteps += batch.numSteps
		pbar.Add(batch.numSteps)

		actorLosses, err := p.update(batch)
		if err != nil {
			return fmt.Errorf("learn: could not update networks: %v", err)
		}

		if p.config.AnnealingRate != 1 {
			if err := p.actorSolver.Anneal(p.config.AnnealingRate); err != nil {
				return fmt.Errorf("learn: %v", err)
			}
			err := p.criticSolver.Anneal(p.config.AnnealingRate)
			if err != nil {
				return fmt.Errorf("learn: %v", err)
			}
		}
		if p.novelty != nil {
			if err := p.novelty.AnnealStepSize(); err != nil {
				return fmt.Errorf("learn: %v", err)
			}
		}

		avgLoss := 0.0
		for _, loss := range actorLosses {
			avgLoss += loss
		}
		if len(actorLosses) > 0 {
			avgLoss /= float64(len(actorLosses))
		}

		summary := tracker.Iteration{
			Number:             p.iteration,
			TimestepsSoFar:     p.timesteps,
			AvgEpisodeLength:   batch.avgEpisodeLength(),
			AvgExtrinsicReturn: avgReturn(batch.extRews),
			AvgIntrinsicReturn: avgReturn(batch.intRews),
			AvgActorLoss:       avgLoss,
			StepSize:           p.actorSolver.StepSize(),
			Elapsed:            time.Since(start),
		}
		for _, t := range p.trackers {
			t.Track(summary)
		}

		for _, c := range checkpointers {
			if err := c.Checkpoint(p.iteration); err != nil {
				return fmt.Errorf("learn: could not checkpoint: %v", err)
			}
		}
	}

	for _, t := range p.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("learn: could not save tracker data: %v", err)
		}
	}

	return nil
}

// checkpointers returns the actor and critic checkpointers, or none
// when checkpointing is disabled.
func (p *PPO) checkpointers() ([]checkpoint.Checkpointer, error) {
	if p.config.SaveFreq <= 0 {
		return nil, nil
	}

	actorNet, ok := p.behaviour.Network().(checkpoint.Serializable)
	if !ok {
		return nil, fmt.Errorf("checkpointers: policy network is not " +
			"serializable")
	}
	criticNet, ok := p.critic.(checkpoint.Serializable)
	if !ok {
		return nil, fmt.Errorf("checkpointers: critic network is not " +
			"serializable")
	}

	return []checkpoint.Checkpointer{
		checkpoint.NewNIteration(p.config.SaveFreq, actorNet,
			checkpoint.FilenameEnumerator(0, "ppo_actor", ".bin")),
		checkpoint.NewNIteration(p.config.SaveFreq, criticNet,
			checkpoint.FilenameEnumerator(0, "ppo_critic", ".bin")),
	}, nil
}

// rollout collects a fresh on-policy batch of whole episodes. At
// least TimestepsPerBatch timesteps are collected; the final episode
// always runs to completion, so the batch may be larger.
func (p *PPO) rollout() (*trajectoryBatch, error) {
	batch := newTrajectoryBatch(p.features, p.actionDims,
		p.config.TimestepsPerBatch)

	for batch.numSteps < p.config.TimestepsPerBatch {
		step := p.env.Reset()

		var extRews, intRews []float64
		for t := 0; t < p.config.MaxTimestepsPerEpisode; t++ {
			// Render the first episode of rendering iterations only
			if p.config.Render && len(batch.lens) == 0 &&
				p.iteration%p.config.RenderEveryI == 0 {
				if r, ok := p.env.(environment.Renderer); ok {
					r.Render()
				}
			}

			obs := step.Observation.(*mat.VecDense)
			action, logProb, err := p.behaviour.SelectActionWithLogProb(step)
			if err != nil {
				return nil, fmt.Errorf("rollout: could not select "+
					"action: %v", err)
			}
			batch.addStep(obs.RawVector().Data,
				action.RawVector().Data, logProb)

			next, last, err := p.env.Step(action)
			if err != nil {
				return nil, fmt.Errorf("rollout: could not step "+
					"environment: %v", err)
			}

			extRews = append(extRews, next.Reward)
			if p.novelty != nil {
				intRew, err := p.novelty.Reward(
					next.Observation.(*mat.VecDense),
				)
				if err != nil {
					return nil, fmt.Errorf("rollout: could not compute "+
						"intrinsic reward: %v", err)
				}
				intRews = append(intRews, intRew)
			}

			step = next
			if last {
				break
			}
		}

		rews, intRews, err := p.shapeRewards(extRews, intRews)
		if err != nil {
			return nil, fmt.Errorf("rollout: %v", err)
		}
		batch.addEpisode(rews, extRews, intRews)
	}

	return batch, nil
}

// shapeRewards combines an episode's environment rewards with its
// scaled intrinsic rewards. The raw intrinsic rewards are divided by
// the novelty module's running reward scale; during the first
// StdSetIteration iterations the scale estimate is first reset with
// the episode's raw rewards, since rewards from the predictor's
// earliest updates are far larger than later ones and would bias the
// scale for the rest of training. The combined rewards and the scaled
// intrinsic rewards are returned.
func (p *PPO) shapeRewards(extRews,
	rawIntRews []float64) ([]float64, []float64, error) {
	intRews := make([]float64, len(extRews))
	if p.novelty != nil {
		if p.iteration <= p.config.StdSetIteration {
			if err := p.novelty.ResetRewardScale(rawIntRews); err != nil {
				return nil, nil, err
			}
		}

		scale := p.novelty.RewardScale()
		for i, raw := range rawIntRews {
			intRews[i] = raw / (scale + stabilizer)
		}
	}

	rews := make([]float64, len(extRews))
	for i := range extRews {
		rews[i] = extRews[i] + p.config.ExplorationFactor*intRews[i]
	}
	return rews, intRews, nil
}

// update runs the configured number of update epochs over the batch,
// mutating the behaviour policy and critic in place. The actor loss
// of each epoch is returned.
func (p *PPO) update(batch *trajectoryBatch) ([]float64, error) {
	n := batch.numSteps

	// Clone the behaviour policy and critic at the batch size. The
	// clones are trained and their weights copied back afterward.
	clone, err := p.behaviour.CloneWithBatch(n)
	if err != nil {
		return nil, fmt.Errorf("update: could not clone policy: %v", err)
	}
	trainPolicy, ok := clone.(agent.PolicyLogProber)
	if !ok {
		return nil, fmt.Errorf("update: cloned policy cannot compute log " +
			"probabilities")
	}
	trainCritic, err := p.critic.CloneWithBatch(n)
	if err != nil {
		return nil, fmt.Errorf("update: could not clone critic: %v", err)
	}

	// Prediction-only critic used to recompute state values each
	// epoch without touching the training critic's loss graph
	vCritic, err := p.critic.CloneWithBatch(n)
	if err != nil {
		return nil, fmt.Errorf("update: could not clone critic: %v", err)
	}
	vVM := G.NewTapeMachine(vCritic.Graph())
	defer vVM.Close()

	values, err := p.stateValues(vCritic, vVM, batch.obs)
	if err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}

	advantages, err := gae.Estimate(batch.rews, values, p.config.Gamma,
		p.config.Lambda)
	if err != nil {
		return nil, fmt.Errorf("update: could not estimate advantages: %v",
			err)
	}
	advantages = gae.Normalize(advantages)

	// Actor loss: negative mean of the clipped surrogate objective
	g := trainPolicy.Network().Graph()
	staleLogProbs := G.NewVector(
		g,
		tensor.Float64,
		G.WithName("StaleLogProbs"),
		G.WithShape(n),
		G.WithInit(G.Zeroes()),
	)
	advantageNode := G.NewVector(
		g,
		tensor.Float64,
		G.WithName("Advantages"),
		G.WithShape(n),
		G.WithInit(G.Zeroes()),
	)

	ratio := G.Must(G.Exp(
		G.Must(G.Sub(trainPolicy.LogPdfNode(), staleLogProbs)),
	))
	surrogate := G.Must(G.HadamardProd(ratio, advantageNode))
	clippedSurrogate := G.Must(G.HadamardProd(
		clip(ratio, 1-p.config.Clip, 1+p.config.Clip),
		advantageNode,
	))
	actorLoss := G.Must(G.Neg(
		G.Must(G.Mean(elemMin(surrogate, clippedSurrogate))),
	))

	var actorLossVal G.Value
	G.Read(actorLoss, &actorLossVal)

	_, err = G.Grad(actorLoss, trainPolicy.Network().Learnables()...)
	if err != nil {
		return nil, fmt.Errorf("update: could not compute actor "+
			"gradient: %v", err)
	}
	actorVM := G.NewTapeMachine(
		g,
		G.BindDualValues(trainPolicy.Network().Learnables()...),
	)
	defer actorVM.Close()

	// Critic loss: MSE toward the detached target advantage + value
	targets := G.NewMatrix(
		trainCritic.Graph(),
		tensor.Float64,
		G.WithName("CriticTargets"),
		G.WithShape(trainCritic.Prediction()[0].Shape()...),
		G.WithInit(G.Zeroes()),
	)
	criticLoss := G.Must(G.Sub(trainCritic.Prediction()[0], targets))
	criticLoss = G.Must(G.Mean(G.Must(G.Square(criticLoss))))

	_, err = G.Grad(criticLoss, trainCritic.Learnables()...)
	if err != nil {
		return nil, fmt.Errorf("update: could not compute critic "+
			"gradient: %v", err)
	}
	criticVM := G.NewTapeMachine(
		trainCritic.Graph(),
		G.BindDualValues(trainCritic.Learnables()...),
	)
	defer criticVM.Close()

	// The stale log probabilities, advantages, and observations are
	// fixed for all epochs
	err = G.Let(staleLogProbs, tensor.New(
		tensor.WithShape(n),
		tensor.WithBacking(batch.logProbs),
	))
	if err != nil {
		return nil, fmt.Errorf("update: could not set stale log "+
			"probabilities: %v", err)
	}
	err = G.Let(advantageNode, tensor.New(
		tensor.WithShape(n),
		tensor.WithBacking(advantages),
	))
	if err != nil {
		return nil, fmt.Errorf("update: could not set advantages: %v", err)
	}
	if err := trainCritic.SetInput(batch.obs); err != nil {
		return nil, fmt.Errorf("update: could not set critic input: %v", err)
	}

	actorLosses := make([]float64, 0, p.config.UpdatesPerIteration)
	for epoch := 0; epoch < p.config.UpdatesPerIteration; epoch++ {
		// Recompute state values with the current critic weights
		if epoch > 0 {
			if err := vCritic.Set(trainCritic); err != nil {
				return nil, fmt.Errorf("update: could not copy critic "+
					"weights: %v", err)
			}
			values, err = p.stateValues(vCritic, vVM, batch.obs)
			if err != nil {
				return nil, fmt.Errorf("update: %v", err)
			}
		}

		// Actor step
		_, err := trainPolicy.LogPdfOf(batch.obs, batch.actions)
		if err != nil {
			return nil, fmt.Errorf("update: could not set policy "+
				"inputs: %v", err)
		}
		if err := actorVM.RunAll(); err != nil {
			return nil, fmt.Errorf("update: could not run actor VM: %v", err)
		}
		actorLosses = append(actorLosses, actorLossVal.Data().(float64))
		err = p.actorSolver.Step(trainPolicy.Network().Model())
		if err != nil {
			return nil, fmt.Errorf("update: could not step actor "+
				"solver: %v", err)
		}
		actorVM.Reset()

		// Critic step toward advantage + current value
		target := make([]float64, n)
		for i := range target {
			target[i] = advantages[i] + values[i]
		}
		err = G.Let(targets, tensor.New(
			tensor.WithShape(targets.Shape()...),
			tensor.WithBacking(target),
		))
		if err != nil {
			return nil, fmt.Errorf("update: could not set critic "+
				"targets: %v", err)
		}
		if err := criticVM.RunAll(); err != nil {
			return nil, fmt.Errorf("update: could not run critic VM: %v",
				err)
		}
		if err := p.criticSolver.Step(trainCritic.Model()); err != nil {
			return nil, fmt.Errorf("update: could not step critic "+
				"solver: %v", err)
		}
		criticVM.Reset()
	}

	// Adopt the trained weights
	if err := p.behaviour.Network().Set(trainPolicy.Network()); err != nil {
		return nil, fmt.Errorf("update: could not adopt policy weights: %v",
			err)
	}
	if err := p.critic.Set(trainCritic); err != nil {
		return nil, fmt.Errorf("update: could not adopt critic weights: %v",
			err)
	}

	return actorLosses, nil
}

// stateValues runs the argument critic on a flattened batch of
// observations and returns its value predictions.
func (p *PPO) stateValues(critic network.NeuralNet, vm G.VM,
	obs []float64) ([]float64, error) {
	if err := critic.SetInput(obs); err != nil {
		return nil, fmt.Errorf("stateValues: could not set input: %v", err)
	}
	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("stateValues: could not run VM: %v", err)
	}
	defer vm.Reset()

	predictions := critic.Output()[0].Data().([]float64)
	values := make([]float64, len(predictions))
	copy(values, predictions)

	return values, nil
}

// elemMin computes the elementwise minimum of two nodes as
// 0.5 * (a + b - |a - b|), which keeps the operation differentiable
// almost everywhere.
func elemMin(a, b *G.Node) *G.Node {
	half := G.NewConstant(0.5)

	sum := G.Must(G.Add(a, b))
	diff := G.Must(G.Abs(G.Must(G.Sub(a, b))))

	return G.Must(G.HadamardProd(half, G.Must(G.Sub(sum, diff))))
}

// clip bounds each element of x to [lower, upper] using the same
// absolute value formulation as elemMin.
func clip(x *G.Node, lower, upper float64) *G.Node {
	half := G.NewConstant(0.5)
	lo := G.NewConstant(lower)
	hi := G.NewConstant(upper)

	// max(x, lower)
	sum := G.Must(G.Add(x, lo))
	diff := G.Must(G.Abs(G.Must(G.Sub(x, lo))))
	clipped := G.Must(G.HadamardProd(half, G.Must(G.Add(sum, diff))))

	// min(max(x, lower), upper)
	sum = G.Must(G.Add(clipped, hi))
	diff = G.Must(G.Abs(G.Must(G.Sub(clipped, hi))))
	return G.Must(G.HadamardProd(half, G.Must(G.Sub(sum, diff))))
}
