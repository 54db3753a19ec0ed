package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Return tracks and saves the average episodic extrinsic return of
// each training iteration.
//
// Note: only the environment's own rewards are tracked. Intrinsic
// exploration rewards never contribute to the saved returns.
type Return struct {
	iterationReturns []float64
	filename         string
}

// NewReturn creates and returns a new *Return Tracker that saves its
// data to filename.
func NewReturn(filename string) Tracker {
	return &Return{filename: filename}
}

// Track records the average episodic return of the argument iteration
func (r *Return) Track(it Iteration) {
	r.iterationReturns = append(r.iterationReturns, it.AvgExtrinsicReturn)
}

// Save saves the data tracked by the Return Tracker to disk
func (r *Return) Save() error {
	file, err := os.Create(r.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(r.iterationReturns); err != nil {
		return fmt.Errorf("save: could not encode return data: %v", err)
	}
	return nil
}
