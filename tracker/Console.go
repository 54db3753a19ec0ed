package tracker

import (
	"fmt"
	"io"
)

// Console prints a human readable summary of each training iteration
// to an io.Writer, usually os.Stdout.
type Console struct {
	out io.Writer
}

// NewConsole creates and returns a new *Console Tracker
func NewConsole(out io.Writer) Tracker {
	return &Console{out: out}
}

// Track prints a summary of the argument iteration
func (c *Console) Track(it Iteration) {
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "-------------------- Iteration #%v "+
		"--------------------\n", it.Number)
	fmt.Fprintf(c.out, "Average Episodic Length: %.2f\n", it.AvgEpisodeLength)
	fmt.Fprintf(c.out, "Average Episodic Return: %.2f\n",
		it.AvgExtrinsicReturn)
	fmt.Fprintf(c.out, "Average Intrinsic Return: %.2f\n",
		it.AvgIntrinsicReturn)
	fmt.Fprintf(c.out, "Average Loss: %.5f\n", it.AvgActorLoss)
	fmt.Fprintf(c.out, "Current Step Size: %v\n", it.StepSize)
	fmt.Fprintf(c.out, "Timesteps So Far: %v\n", it.TimestepsSoFar)
	fmt.Fprintf(c.out, "Iteration took: %.2f secs\n", it.Elapsed.Seconds())
	fmt.Fprintln(c.out, "-----------------------------------------------"+
		"-------")
	fmt.Fprintln(c.out)
}

// Save implements the Tracker interface. The Console Tracker holds no
// data to flush.
func (c *Console) Save() error {
	return nil
}
