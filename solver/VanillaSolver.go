package solver

import G "gorgonia.org/gorgonia"

// VanillaConfig describes a configuration of the vanilla gradient
// descent solver.
type VanillaConfig struct {
	LearnRate float64
	Batch     int
}

// NewVanilla returns a new Vanilla Solver
func NewVanilla(stepSize float64, batchSize int) (*Solver, error) {
	vanilla := VanillaConfig{
		LearnRate: stepSize,
		Batch:     batchSize,
	}

	return newSolver(Vanilla, vanilla)
}

// Create returns a Gorgonia Vanilla Solver as described by the
// VanillaConfig
func (v VanillaConfig) Create() G.Solver {
	solver := G.NewVanillaSolver(
		G.WithLearnRate(v.LearnRate),
		G.WithBatchSize(float64(v.Batch)),
	)
	return solver
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (v VanillaConfig) ValidType(t Type) bool {
	return t == Vanilla
}

// StepSize returns the step size of solvers created with this config
func (v VanillaConfig) StepSize() float64 {
	return v.LearnRate
}

// Annealed returns a copy of the config with its step size
// geometrically decayed by decay
func (v VanillaConfig) Annealed(decay float64) Config {
	v.LearnRate *= decay
	return v
}
