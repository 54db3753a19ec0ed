package ppo

// trajectoryBatch accumulates one iteration's rollout data. The flat
// slices hold one row per timestep in collection order; the
// per-episode slices group the same timesteps by episode.
type trajectoryBatch struct {
	obs      []float64 // Flattened observations, row major
	actions  []float64 // Flattened actions, row major
	logProbs []float64 // Log probability of each action when sampled

	rews    [][]float64 // Per-episode combined rewards
	extRews [][]float64 // Per-episode environment rewards
	intRews [][]float64 // Per-episode scaled intrinsic rewards

	lens     []int // Length of each episode
	numSteps int   // Total timesteps across all episodes
}

// newTrajectoryBatch returns an empty trajectoryBatch with capacity
// for at least budget timesteps of rollout data.
func newTrajectoryBatch(features, actionDims, budget int) *trajectoryBatch {
	return &trajectoryBatch{
		obs:      make([]float64, 0, budget*features),
		actions:  make([]float64, 0, budget*actionDims),
		logProbs: make([]float64, 0, budget),
	}
}

// addStep records a single timestep's observation, action, and the
// action's log probability.
func (t *trajectoryBatch) addStep(obs, action []float64, logProb float64) {
	t.obs = append(t.obs, obs...)
	t.actions = append(t.actions, action...)
	t.logProbs = append(t.logProbs, logProb)
}

// addEpisode records a completed episode's reward sequences
func (t *trajectoryBatch) addEpisode(rews, extRews, intRews []float64) {
	t.rews = append(t.rews, rews)
	t.extRews = append(t.extRews, extRews)
	t.intRews = append(t.intRews, intRews)
	t.lens = append(t.lens, len(rews))
	t.numSteps += len(rews)
}

// avgEpisodeLength returns the average episode length in the batch
func (t *trajectoryBatch) avgEpisodeLength() float64 {
	if len(t.lens) == 0 {
		return 0
	}

	total := 0
	for _, length := range t.lens {
		total += length
	}
	return float64(total) / float64(len(t.lens))
}

// avgReturn returns the average per-episode sum of the argument
// reward sequences.
func avgReturn(rews [][]float64) float64 {
	if len(rews) == 0 {
		return 0
	}

	total := 0.0
	for _, episode := range rews {
		for _, r := range episode {
			total += r
		}
	}
	return total / float64(len(rews))
}
