package policy

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"

	"github.com/curio-rl/curio/network"
	"github.com/curio-rl/curio/timestep"
)

// scalarOf returns the single value held by a Gorgonia Value that may
// be a scalar or a length 1 vector.
func scalarOf(t *testing.T, v G.Value) float64 {
	switch data := v.Data().(type) {
	case float64:
		return data

	case []float64:
		if len(data) != 1 {
			t.Fatalf("value should hold a single number, have %v", len(data))
		}
		return data[0]
	}
	t.Fatalf("value holds unexpected type %T", v.Data())
	return 0
}

// TestGaussianMLPLogPdfConsistency checks that the log probability
// returned when sampling an action equals the log probability the
// policy's graph computes for that same (state, action) pair. The two
// must agree exactly for importance ratios to start at 1 after a
// fresh rollout.
func TestGaussianMLPLogPdfConsistency(t *testing.T) {
	pol, err := newGaussianMLP(3, 2, 1, []int{16}, []bool{true},
		[]*network.Activation{network.TanH()}, G.GlorotU(1.0), 42)
	if err != nil {
		t.Fatalf("could not create policy: %v", err)
	}

	state := []float64{0.1, -0.2, 0.3}
	step := timestep.New(timestep.First, 0, 1.0,
		mat.NewVecDense(3, state), 0)

	action, logProb, err := pol.SelectActionWithLogProb(step)
	if err != nil {
		t.Fatalf("could not select action: %v", err)
	}

	if _, err := pol.LogPdfOf(state, action.RawVector().Data); err != nil {
		t.Fatalf("could not set log PDF inputs: %v", err)
	}

	vm := G.NewTapeMachine(pol.Network().Graph())
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run policy graph: %v", err)
	}

	graphLogProb := scalarOf(t, pol.LogPdfVal())
	if math.Abs(graphLogProb-logProb) > 1e-10 {
		t.Errorf("log probabilities should be equal \n\twant(%v) "+
			"\n\thave(%v)", logProb, graphLogProb)
	}
}

func TestCategoricalMLPLogPdfConsistency(t *testing.T) {
	pol, err := newCategoricalMLP(2, 3, 1, []int{16}, []bool{true},
		[]*network.Activation{network.TanH()}, G.GlorotU(1.0), 42)
	if err != nil {
		t.Fatalf("could not create policy: %v", err)
	}

	state := []float64{0.4, -0.9}
	step := timestep.New(timestep.First, 0, 1.0,
		mat.NewVecDense(2, state), 0)

	action, logProb, err := pol.SelectActionWithLogProb(step)
	if err != nil {
		t.Fatalf("could not select action: %v", err)
	}

	index := int(action.AtVec(0))
	if index < 0 || index > 2 {
		t.Fatalf("sampled action index out of range, have(%v)", index)
	}

	if _, err := pol.LogPdfOf(state, action.RawVector().Data); err != nil {
		t.Fatalf("could not set log PDF inputs: %v", err)
	}

	vm := G.NewTapeMachine(pol.Network().Graph())
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run policy graph: %v", err)
	}

	graphLogProb := scalarOf(t, pol.LogPdfVal())
	if math.Abs(graphLogProb-logProb) > 1e-10 {
		t.Errorf("log probabilities should be equal \n\twant(%v) "+
			"\n\thave(%v)", logProb, graphLogProb)
	}
}

func TestCategoricalMLPRejectsInvalidActionIndex(t *testing.T) {
	pol, err := newCategoricalMLP(2, 3, 1, []int{16}, []bool{true},
		[]*network.Activation{network.TanH()}, G.GlorotU(1.0), 42)
	if err != nil {
		t.Fatalf("could not create policy: %v", err)
	}

	if _, err := pol.LogPdfOf([]float64{0, 0}, []float64{3}); err == nil {
		t.Error("out of range action index should be an error")
	}
}

func TestGaussianMLPCloneWithBatchCopiesWeights(t *testing.T) {
	pol, err := newGaussianMLP(2, 1, 1, []int{8}, []bool{true},
		[]*network.Activation{network.TanH()}, G.GlorotU(1.0), 7)
	if err != nil {
		t.Fatalf("could not create policy: %v", err)
	}

	clone, err := pol.CloneWithBatch(4)
	if err != nil {
		t.Fatalf("could not clone policy: %v", err)
	}

	if clone.Network().BatchSize() != 4 {
		t.Errorf("clone batch size want(4) have(%v)",
			clone.Network().BatchSize())
	}

	original := pol.Network().Learnables()
	cloned := clone.Network().Learnables()
	if len(original) != len(cloned) {
		t.Fatalf("learnables want(%v) have(%v)", len(original), len(cloned))
	}
	for i := range original {
		a := original[i].Value().Data().([]float64)
		b := cloned[i].Value().Data().([]float64)
		for j := range a {
			if a[j] != b[j] {
				t.Fatalf("learnable %v element %v: want(%v) have(%v)", i,
					j, a[j], b[j])
			}
		}
	}
}
