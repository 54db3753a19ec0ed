// Package gae implements generalized advantage estimation over a
// batch of episodic rollouts.
package gae

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Estimate computes the generalized advantage estimate for each
// timestep in a batch of episodes. The parameter rewards holds the
// per-episode reward sequences in collection order, and values holds
// the state value predictions for the batch's timesteps, flattened
// across episodes in the same order. The discount rate is gamma and
// the bootstrapping tradeoff is lambda.
//
// Each episode is processed independently and backward in time,
// maintaining a running discounted estimate that starts at zero
// after the episode's final timestep. The temporal difference
// residual at a timestep bootstraps from the value of the next
// timestep in the same episode, never from another episode's values.
//
// Two value layouts are accepted. When values holds exactly one
// value per timestep, each episode's final residual bootstraps from
// zero. When values additionally holds one value per episode, each
// episode contributes one trailing entry holding the value of its
// terminal successor state, and the episode's final residual
// bootstraps from that entry. Any other length is an error. One
// advantage is returned per reward, flattened in the same order as
// the rewards.
func Estimate(rewards [][]float64, values []float64, gamma,
	lambda float64) ([]float64, error) {
	numSteps := 0
	for _, episode := range rewards {
		numSteps += len(episode)
	}

	var terminalValues bool
	switch len(values) {
	case numSteps:
		terminalValues = false
	case numSteps + len(rewards):
		terminalValues = true
	default:
		return nil, fmt.Errorf("estimate: invalid number of state values "+
			"\n\twant(%v or %v) \n\thave(%v)", numSteps,
			numSteps+len(rewards), len(values))
	}

	advantages := make([]float64, numSteps)
	valueOffset := 0
	advantageOffset := 0
	for _, episode := range rewards {
		lastAdvantage := 0.0
		for t := len(episode) - 1; t >= 0; t-- {
			vNext := 0.0
			if t+1 < len(episode) || terminalValues {
				vNext = values[valueOffset+t+1]
			}
			delta := episode[t] + gamma*vNext - values[valueOffset+t]
			lastAdvantage = delta + gamma*lambda*lastAdvantage
			advantages[advantageOffset+t] = lastAdvantage
		}

		valueOffset += len(episode)
		if terminalValues {
			valueOffset++
		}
		advantageOffset += len(episode)
	}

	return advantages, nil
}

// Normalize returns the advantages standardized to zero mean and unit
// standard deviation. A small offset stabilizes the division when all
// advantages are equal.
func Normalize(advantages []float64) []float64 {
	const stabilizer float64 = 1e-10

	mean, std := stat.MeanStdDev(advantages, nil)
	if math.IsNaN(std) {
		// A single sample has no sample standard deviation
		std = 0
	}

	normalized := make([]float64, len(advantages))
	for i := range advantages {
		normalized[i] = (advantages[i] - mean) / (std + stabilizer)
	}
	return normalized
}
