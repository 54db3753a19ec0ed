package ppo

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/curio-rl/curio/environment"
	"github.com/curio-rl/curio/timestep"
)

// stubEnv is a deterministic environment with a 1-dimensional
// observation, a 1-dimensional continuous action, a fixed reward of
// 1.0 per step, and episodes cut off after a fixed number of steps.
type stubEnv struct {
	steps    int
	maxSteps int
}

func newStubEnv(maxSteps int) *stubEnv {
	return &stubEnv{maxSteps: maxSteps}
}

func (s *stubEnv) Reset() timestep.TimeStep {
	s.steps = 0
	return timestep.New(timestep.First, 0, 1.0,
		mat.NewVecDense(1, []float64{0}), 0)
}

func (s *stubEnv) Step(_ *mat.VecDense) (timestep.TimeStep, bool, error) {
	s.steps++
	step := timestep.New(timestep.Mid, 1.0, 1.0,
		mat.NewVecDense(1, []float64{float64(s.steps)}), s.steps)
	if s.steps >= s.maxSteps {
		step.SetEnd(timestep.Timeout)
	}
	return step, step.Last(), nil
}

func (s *stubEnv) Start() mat.Vector {
	return mat.NewVecDense(1, nil)
}

func (s *stubEnv) End(t *timestep.TimeStep) bool {
	return t.Last()
}

func (s *stubEnv) GetReward(_, _, _ mat.Vector) float64 {
	return 1.0
}

func (s *stubEnv) AtGoal(_ mat.Matrix) bool {
	return false
}

func (s *stubEnv) ObservationSpec() environment.Spec {
	bound := mat.NewVecDense(1, []float64{math.Inf(1)})
	lower := mat.NewVecDense(1, []float64{math.Inf(-1)})
	return environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Observation, lower, bound, environment.Continuous)
}

func (s *stubEnv) ActionSpec() environment.Spec {
	lower := mat.NewVecDense(1, []float64{-1})
	upper := mat.NewVecDense(1, []float64{1})
	return environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Action, lower, upper, environment.Continuous)
}

func (s *stubEnv) RewardSpec() environment.Spec {
	one := mat.NewVecDense(1, []float64{1})
	return environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Reward, one, one, environment.Continuous)
}

func (s *stubEnv) DiscountSpec() environment.Spec {
	one := mat.NewVecDense(1, []float64{1})
	return environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Discount, one, one, environment.Continuous)
}

// newTestTrainer returns a PPO trainer on a stub environment with
// intrinsic rewards disabled.
func newTestTrainer(t *testing.T, batchTimesteps, episodeCap int) *PPO {
	config := DefaultConfig()
	config.TimestepsPerBatch = batchTimesteps
	config.ExplorationFactor = 0
	config.Render = false
	config.SaveFreq = 0
	seed := int64(42)
	config.Seed = &seed

	p, err := New(newStubEnv(episodeCap), config)
	if err != nil {
		t.Fatalf("could not create trainer: %v", err)
	}
	return p
}

func TestRolloutCollectsWholeEpisodes(t *testing.T) {
	p := newTestTrainer(t, 7, 5)
	p.iteration = 1

	batch, err := p.rollout()
	if err != nil {
		t.Fatalf("could not collect batch: %v", err)
	}

	if batch.numSteps < 7 {
		t.Errorf("batch should have at least the timestep budget "+
			"\n\twant(>=7) \n\thave(%v)", batch.numSteps)
	}

	// Episodes only end at the environment's cap, so the batch never
	// ends mid-episode
	total := 0
	for i, length := range batch.lens {
		if length != 5 {
			t.Errorf("episode %v: length want(5) have(%v)", i, length)
		}
		total += length
	}
	if total != batch.numSteps {
		t.Errorf("episode lengths should sum to the batch size "+
			"\n\twant(%v) \n\thave(%v)", batch.numSteps, total)
	}

	if len(batch.logProbs) != batch.numSteps {
		t.Errorf("log probabilities want(%v) have(%v)", batch.numSteps,
			len(batch.logProbs))
	}
	if len(batch.obs) != batch.numSteps*p.features {
		t.Errorf("observations want(%v) have(%v)",
			batch.numSteps*p.features, len(batch.obs))
	}
	if len(batch.actions) != batch.numSteps*p.actionDims {
		t.Errorf("actions want(%v) have(%v)", batch.numSteps*p.actionDims,
			len(batch.actions))
	}
}

func TestSingleIteration(t *testing.T) {
	p := newTestTrainer(t, 10, 5)
	p.iteration = 1

	batch, err := p.rollout()
	if err != nil {
		t.Fatalf("could not collect batch: %v", err)
	}

	if len(batch.lens) != 2 {
		t.Fatalf("episodes want(2) have(%v)", len(batch.lens))
	}
	if batch.numSteps != 10 {
		t.Fatalf("timesteps want(10) have(%v)", batch.numSteps)
	}

	for i, episode := range batch.extRews {
		ret := 0.0
		for _, r := range episode {
			ret += r
		}
		if ret != 5.0 {
			t.Errorf("episode %v: extrinsic return want(5.0) have(%v)", i,
				ret)
		}
	}

	// Intrinsic rewards are disabled
	for i, episode := range batch.intRews {
		for j, r := range episode {
			if r != 0 {
				t.Errorf("episode %v timestep %v: intrinsic reward "+
					"want(0) have(%v)", i, j, r)
			}
		}
	}

	losses, err := p.update(batch)
	if err != nil {
		t.Fatalf("could not update networks: %v", err)
	}
	if len(losses) != p.config.UpdatesPerIteration {
		t.Fatalf("actor losses want(%v) have(%v)",
			p.config.UpdatesPerIteration, len(losses))
	}
	for i, loss := range losses {
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			t.Errorf("epoch %v: actor loss should be finite, have(%v)", i,
				loss)
		}
	}
}

// TestClipBoundsRatio ensures that the graph-level clip and
// elementwise minimum used by the surrogate objective bound ratio
// values to [1-clip, 1+clip].
func TestClipBoundsRatio(t *testing.T) {
	ratios := []float64{0.5, 0.8, 1.0, 1.2, 1.7}
	want := []float64{0.8, 0.8, 1.0, 1.2, 1.2}

	g := G.NewGraph()
	ratio := G.NewVector(
		g,
		tensor.Float64,
		G.WithName("ratio"),
		G.WithShape(len(ratios)),
		G.WithInit(G.Zeroes()),
	)
	clipped := clip(ratio, 0.8, 1.2)

	var clippedVal G.Value
	G.Read(clipped, &clippedVal)

	err := G.Let(ratio, tensor.New(
		tensor.WithShape(len(ratios)),
		tensor.WithBacking(ratios),
	))
	if err != nil {
		t.Fatalf("could not set ratios: %v", err)
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run VM: %v", err)
	}

	have := clippedVal.Data().([]float64)
	for i := range want {
		if math.Abs(have[i]-want[i]) > 1e-12 {
			t.Errorf("clipped ratio %v: want(%v) have(%v)", ratios[i],
				want[i], have[i])
		}
	}
}

func TestElemMin(t *testing.T) {
	a := []float64{1.0, -2.0, 3.0}
	b := []float64{0.5, -1.0, 4.0}
	want := []float64{0.5, -2.0, 3.0}

	g := G.NewGraph()
	aNode := G.NewVector(
		g,
		tensor.Float64,
		G.WithName("a"),
		G.WithShape(len(a)),
		G.WithInit(G.Zeroes()),
	)
	bNode := G.NewVector(
		g,
		tensor.Float64,
		G.WithName("b"),
		G.WithShape(len(b)),
		G.WithInit(G.Zeroes()),
	)
	min := elemMin(aNode, bNode)

	var minVal G.Value
	G.Read(min, &minVal)

	err := G.Let(aNode, tensor.New(
		tensor.WithShape(len(a)),
		tensor.WithBacking(a),
	))
	if err != nil {
		t.Fatalf("could not set a: %v", err)
	}
	err = G.Let(bNode, tensor.New(
		tensor.WithShape(len(b)),
		tensor.WithBacking(b),
	))
	if err != nil {
		t.Fatalf("could not set b: %v", err)
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run VM: %v", err)
	}

	have := minVal.Data().([]float64)
	for i := range want {
		if math.Abs(have[i]-want[i]) > 1e-12 {
			t.Errorf("elementwise min at %v: want(%v) have(%v)", i,
				want[i], have[i])
		}
	}
}

func TestAvgEpisodeLength(t *testing.T) {
	batch := &trajectoryBatch{}
	batch.addEpisode([]float64{1, 1, 1}, []float64{1, 1, 1},
		[]float64{0, 0, 0})
	batch.addEpisode([]float64{1}, []float64{1}, []float64{0})

	if avg := batch.avgEpisodeLength(); avg != 2 {
		t.Errorf("average episode length want(2) have(%v)", avg)
	}
	if avg := avgReturn(batch.extRews); avg != 2 {
		t.Errorf("average return want(2) have(%v)", avg)
	}
}
