package main

import (
	"log"
	"os"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/curio-rl/curio/agent/nonlinear/ppo"
	"github.com/curio-rl/curio/environment"
	"github.com/curio-rl/curio/environment/classiccontrol/mountaincar"
	"github.com/curio-rl/curio/tracker"
)

func main() {
	var seed uint64 = 192382

	// Create the environment
	bounds := r1.Interval{Min: -0.6, Max: -0.4}
	s := environment.NewUniformStarter([]r1.Interval{
		bounds,
		{Min: 0.0, Max: 0.0},
	}, seed)
	task := mountaincar.NewGoal(s, 1600, mountaincar.GoalPosition)
	m, _, err := mountaincar.NewContinuous(task, 1.0)
	if err != nil {
		log.Fatalf("could not create environment: %v", err)
	}

	// Create the trainer
	config, err := ppo.ConfigFromMap(map[string]interface{}{
		"timesteps_per_batch": 4800,
		"learning_rate":       0.005,
		"exploration_factor":  1.0,
		"render":              false,
		"seed":                int(seed),
	})
	if err != nil {
		log.Fatalf("could not create configuration: %v", err)
	}

	p, err := ppo.New(m, config)
	if err != nil {
		log.Fatalf("could not create trainer: %v", err)
	}
	p.AddTracker(tracker.NewConsole(os.Stdout))
	p.AddTracker(tracker.NewReturn("./data.bin"))

	// Train
	if err := p.Learn(500_000); err != nil {
		log.Fatalf("could not train: %v", err)
	}
}
