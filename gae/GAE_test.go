package gae

import (
	"math"
	"testing"
)

const tolerance float64 = 1e-12

func TestEstimateTwoStepEpisode(t *testing.T) {
	gamma := 0.95
	lambda := 0.96

	rewards := [][]float64{{1.0, -0.5}}
	values := []float64{0.3, 0.7, 0.2}

	advantages, err := Estimate(rewards, values, gamma, lambda)
	if err != nil {
		t.Fatalf("could not estimate advantages: %v", err)
	}
	if len(advantages) != 2 {
		t.Fatalf("advantages length want(2) have(%v)", len(advantages))
	}

	// The final timestep has no lookback term
	wantLast := -0.5 + gamma*0.2 - 0.7
	if math.Abs(advantages[1]-wantLast) > tolerance {
		t.Errorf("advantage at t=1 want(%v) have(%v)", wantLast,
			advantages[1])
	}

	wantFirst := 1.0 + gamma*0.7 - 0.3 + gamma*lambda*wantLast
	if math.Abs(advantages[0]-wantFirst) > tolerance {
		t.Errorf("advantage at t=0 want(%v) have(%v)", wantFirst,
			advantages[0])
	}
}

func TestEstimateLambdaZeroIsOneStepResidual(t *testing.T) {
	gamma := 0.9

	rewards := [][]float64{{1, 2, 3}, {4, 5}}
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5}

	advantages, err := Estimate(rewards, values, gamma, 0)
	if err != nil {
		t.Fatalf("could not estimate advantages: %v", err)
	}

	// One-step residuals with successors drawn only from within each
	// episode
	want := []float64{
		1 + gamma*0.2 - 0.1,
		2 + gamma*0.3 - 0.2,
		3 - 0.3,
		4 + gamma*0.5 - 0.4,
		5 - 0.5,
	}
	for i := range want {
		if math.Abs(advantages[i]-want[i]) > tolerance {
			t.Errorf("timestep %v: advantage want(%v) have(%v)", i,
				want[i], advantages[i])
		}
	}
}

// TestEstimateEpisodesAreIndependent ensures that an episode's final
// residual never bootstraps from the following episode's first state
// value.
func TestEstimateEpisodesAreIndependent(t *testing.T) {
	rewards := [][]float64{{0}, {0}}
	values := []float64{0, 100}

	advantages, err := Estimate(rewards, values, 1, 0)
	if err != nil {
		t.Fatalf("could not estimate advantages: %v", err)
	}

	// The first episode's only residual is 0 + 1*0 - 0. Were the
	// second episode's value used as a successor, it would be 100.
	if math.Abs(advantages[0]) > tolerance {
		t.Errorf("episode 0 advantage want(0) have(%v)", advantages[0])
	}
	if math.Abs(advantages[1]+100) > tolerance {
		t.Errorf("episode 1 advantage want(-100) have(%v)", advantages[1])
	}
}

// TestEstimateTerminalValues checks the layout where each episode
// carries one trailing successor value to bootstrap its final
// residual from.
func TestEstimateTerminalValues(t *testing.T) {
	gamma := 0.9

	rewards := [][]float64{{1, 2}, {3}}
	values := []float64{0.1, 0.2, 0.5, 0.3, 0.4}

	advantages, err := Estimate(rewards, values, gamma, 0)
	if err != nil {
		t.Fatalf("could not estimate advantages: %v", err)
	}

	want := []float64{
		1 + gamma*0.2 - 0.1,
		2 + gamma*0.5 - 0.2,
		3 + gamma*0.4 - 0.3,
	}
	for i := range want {
		if math.Abs(advantages[i]-want[i]) > tolerance {
			t.Errorf("timestep %v: advantage want(%v) have(%v)", i,
				want[i], advantages[i])
		}
	}
}

func TestEstimateRejectsInvalidValueCounts(t *testing.T) {
	rewards := [][]float64{{1, 2, 3}}

	// Valid lengths for a single 3-step episode are 3 and 4
	for _, values := range [][]float64{
		{0.1, 0.2},
		{0.1, 0.2, 0.3, 0.4, 0.5},
	} {
		if _, err := Estimate(rewards, values, 0.9, 0.9); err == nil {
			t.Errorf("%v state values for 3 timesteps should be an error",
				len(values))
		}
	}
}

func TestNormalize(t *testing.T) {
	advantages := []float64{-3.5, 0.25, 1.0, 8.75, -2.0}

	normalized := Normalize(advantages)

	mean := 0.0
	for _, a := range normalized {
		mean += a
	}
	mean /= float64(len(normalized))
	if math.Abs(mean) > 1e-8 {
		t.Errorf("normalized mean want(0) have(%v)", mean)
	}

	variance := 0.0
	for _, a := range normalized {
		variance += (a - mean) * (a - mean)
	}
	std := math.Sqrt(variance / float64(len(normalized)-1))
	if math.Abs(std-1) > 1e-8 {
		t.Errorf("normalized standard deviation want(1) have(%v)", std)
	}
}

func TestNormalizeGuardsDegenerateBatch(t *testing.T) {
	normalized := Normalize([]float64{2, 2, 2})
	for i, a := range normalized {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			t.Errorf("timestep %v: normalization of identical advantages "+
				"should be finite, have(%v)", i, a)
		}
	}
}
