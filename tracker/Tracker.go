// Package tracker implements recording and reporting of per-iteration
// training telemetry.
package tracker

import "time"

// Iteration summarizes a single training iteration. The collection
// and update steps fill one of these in and hand it to each Tracker,
// so trackers never reach into the trainer's internal state.
type Iteration struct {
	// Number is the 1-based index of the iteration
	Number int

	// TimestepsSoFar is the cumulative number of environment steps
	// taken by the end of the iteration
	TimestepsSoFar int

	AvgEpisodeLength   float64
	AvgExtrinsicReturn float64

	// AvgIntrinsicReturn is the average per-episode sum of intrinsic
	// rewards, zero when intrinsic rewards are disabled
	AvgIntrinsicReturn float64

	AvgActorLoss float64

	// StepSize is the actor's step size after any annealing this
	// iteration
	StepSize float64

	Elapsed time.Duration
}

// Tracker records per-iteration training telemetry
type Tracker interface {
	// Track records the summary of a single training iteration
	Track(Iteration)

	// Save flushes any data the Tracker has accumulated to disk
	Save() error
}
