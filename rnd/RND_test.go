package rnd

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func initialObservations() []*mat.VecDense {
	return []*mat.VecDense{
		mat.NewVecDense(2, []float64{0.0, 1.0}),
		mat.NewVecDense(2, []float64{0.5, -1.0}),
		mat.NewVecDense(2, []float64{-0.5, 0.5}),
		mat.NewVecDense(2, []float64{1.0, -0.5}),
	}
}

func TestRewardDecaysWithFamiliarity(t *testing.T) {
	r, err := New(2, initialObservations(), DefaultStepSize,
		DefaultStepSizeDecay)
	if err != nil {
		t.Fatalf("could not create module: %v", err)
	}

	obs := mat.NewVecDense(2, []float64{0.25, -0.75})

	first, err := r.Reward(obs)
	if err != nil {
		t.Fatalf("could not compute reward: %v", err)
	}
	if first < 0 {
		t.Errorf("squared error reward cannot be negative, have(%v)", first)
	}

	// The predictor took a gradient step toward the target on this
	// exact observation, so an identical observation cannot look more
	// novel than before
	second, err := r.Reward(obs)
	if err != nil {
		t.Fatalf("could not compute reward: %v", err)
	}
	if second > first+1e-8 {
		t.Errorf("reward should not increase on a repeated observation "+
			"\n\tfirst(%v) \n\tsecond(%v)", first, second)
	}
}

func TestRewardIsFinite(t *testing.T) {
	r, err := New(2, initialObservations(), DefaultStepSize,
		DefaultStepSizeDecay)
	if err != nil {
		t.Fatalf("could not create module: %v", err)
	}

	// Constant dimensions of the seeding batch have zero variance,
	// which the normalization must guard against
	constObs := []*mat.VecDense{
		mat.NewVecDense(2, []float64{1.0, 1.0}),
		mat.NewVecDense(2, []float64{1.0, 1.0}),
	}
	rc, err := New(2, constObs, DefaultStepSize, DefaultStepSizeDecay)
	if err != nil {
		t.Fatalf("could not create module: %v", err)
	}

	for _, module := range []*RND{r, rc} {
		reward, err := module.Reward(mat.NewVecDense(2,
			[]float64{3.0, -2.0}))
		if err != nil {
			t.Fatalf("could not compute reward: %v", err)
		}
		if math.IsNaN(reward) || math.IsInf(reward, 0) {
			t.Errorf("reward should be finite, have(%v)", reward)
		}
	}
}

func TestRewardScale(t *testing.T) {
	r, err := New(2, initialObservations(), DefaultStepSize,
		DefaultStepSizeDecay)
	if err != nil {
		t.Fatalf("could not create module: %v", err)
	}

	if err := r.ResetRewardScale([]float64{1, 3}); err != nil {
		t.Fatalf("could not reset reward scale: %v", err)
	}

	// Population standard deviation of {1, 3}
	if scale := r.RewardScale(); math.Abs(scale-1) > 1e-12 {
		t.Errorf("reward scale want(1) have(%v)", scale)
	}
}

func TestAnnealStepSize(t *testing.T) {
	r, err := New(2, initialObservations(), 1e-4, 0.5)
	if err != nil {
		t.Fatalf("could not create module: %v", err)
	}

	if err := r.AnnealStepSize(); err != nil {
		t.Fatalf("could not anneal step size: %v", err)
	}
	if got := r.StepSize(); math.Abs(got-5e-5) > 1e-18 {
		t.Errorf("step size want(5e-05) have(%v)", got)
	}
}
