package ppo

import (
	"fmt"
)

// Config holds every hyperparameter of the trainer. Unknown options
// are rejected at construction, so a typo'd hyperparameter name fails
// fast instead of silently training with defaults.
type Config struct {
	// TimestepsPerBatch is the minimum number of environment steps
	// collected each iteration. The final episode of a batch always
	// runs to completion, so a batch may exceed this budget.
	TimestepsPerBatch int

	// MaxTimestepsPerEpisode truncates episodes that the environment
	// does not end on its own
	MaxTimestepsPerEpisode int

	// UpdatesPerIteration is the number of update epochs run over
	// each collected batch
	UpdatesPerIteration int

	// StepSize is the initial step size of both the actor's and the
	// critic's solver
	StepSize float64

	Gamma  float64 // Discount rate
	Lambda float64 // Advantage estimation bootstrapping tradeoff
	Clip   float64 // Surrogate objective clipping radius

	// AnnealingRate geometrically decays the actor and critic step
	// sizes once per iteration
	AnnealingRate float64

	// ExplorationFactor weights intrinsic exploration rewards when
	// they are added to environment rewards. Zero disables intrinsic
	// rewards entirely.
	ExplorationFactor float64

	// StdSetIteration is the number of initial iterations during
	// which the intrinsic reward scale estimate is reset with each
	// episode's raw rewards
	StdSetIteration int

	Render       bool // Whether to render during rollouts
	RenderEveryI int  // Only render every n iterations

	// SaveFreq is how often network weights are checkpointed, in
	// iterations. Non-positive disables checkpointing.
	SaveFreq int

	// Seed seeds action sampling and weight initialization when
	// non-nil
	Seed *int64
}

// DefaultConfig returns a Config with every option at its default
func DefaultConfig() Config {
	return Config{
		TimestepsPerBatch:      4800,
		MaxTimestepsPerEpisode: 1600,
		UpdatesPerIteration:    5,
		StepSize:               0.005,
		Gamma:                  0.95,
		Lambda:                 0.96,
		Clip:                   0.2,
		AnnealingRate:          0.995,
		ExplorationFactor:      1,
		StdSetIteration:        3,
		Render:                 true,
		RenderEveryI:           10,
		SaveFreq:               10,
		Seed:                   nil,
	}
}

// ConfigFromMap returns the default Config overridden by the options
// in hyperparameters. An unrecognized key or an ill-typed value is an
// error.
func ConfigFromMap(hyperparameters map[string]interface{}) (Config, error) {
	c := DefaultConfig()

	for name, value := range hyperparameters {
		var err error
		switch name {
		case "timesteps_per_batch":
			c.TimestepsPerBatch, err = toInt(name, value)

		case "max_timesteps_per_episode":
			c.MaxTimestepsPerEpisode, err = toInt(name, value)

		case "n_updates_per_iteration":
			c.UpdatesPerIteration, err = toInt(name, value)

		case "learning_rate":
			c.StepSize, err = toFloat(name, value)

		case "gamma":
			c.Gamma, err = toFloat(name, value)

		case "lambda_return":
			c.Lambda, err = toFloat(name, value)

		case "clip":
			c.Clip, err = toFloat(name, value)

		case "annealing_rate":
			c.AnnealingRate, err = toFloat(name, value)

		case "exploration_factor":
			c.ExplorationFactor, err = toFloat(name, value)

		case "std_set_iteration":
			c.StdSetIteration, err = toInt(name, value)

		case "render":
			render, ok := value.(bool)
			if !ok {
				err = fmt.Errorf("configFromMap: render must be a bool "+
					"\n\thave(%T)", value)
			}
			c.Render = render

		case "render_every_i":
			c.RenderEveryI, err = toInt(name, value)

		case "save_freq":
			c.SaveFreq, err = toInt(name, value)

		case "seed":
			if value == nil {
				c.Seed = nil
				break
			}
			var seed int
			seed, err = toInt(name, value)
			if err == nil {
				s := int64(seed)
				c.Seed = &s
			}

		default:
			err = fmt.Errorf("configFromMap: unrecognized hyperparameter %q",
				name)
		}
		if err != nil {
			return Config{}, err
		}
	}

	return c, c.Validate()
}

// Validate returns an error describing the first invalid option in
// the Config, if any.
func (c Config) Validate() error {
	if c.TimestepsPerBatch < 1 {
		return fmt.Errorf("validate: timesteps per batch must be positive "+
			"\n\thave(%v)", c.TimestepsPerBatch)
	}
	if c.MaxTimestepsPerEpisode < 1 {
		return fmt.Errorf("validate: max timesteps per episode must be "+
			"positive \n\thave(%v)", c.MaxTimestepsPerEpisode)
	}
	if c.UpdatesPerIteration < 1 {
		return fmt.Errorf("validate: updates per iteration must be "+
			"positive \n\thave(%v)", c.UpdatesPerIteration)
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive "+
			"\n\thave(%v)", c.StepSize)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1] \n\thave(%v)",
			c.Gamma)
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("validate: lambda must be in [0, 1] \n\thave(%v)",
			c.Lambda)
	}
	if c.Clip <= 0 || c.Clip >= 1 {
		return fmt.Errorf("validate: clip must be in (0, 1) \n\thave(%v)",
			c.Clip)
	}
	if c.AnnealingRate <= 0 || c.AnnealingRate > 1 {
		return fmt.Errorf("validate: annealing rate must be in (0, 1] "+
			"\n\thave(%v)", c.AnnealingRate)
	}
	if c.ExplorationFactor < 0 {
		return fmt.Errorf("validate: exploration factor cannot be negative "+
			"\n\thave(%v)", c.ExplorationFactor)
	}
	if c.Render && c.RenderEveryI < 1 {
		return fmt.Errorf("validate: render interval must be positive "+
			"when rendering \n\thave(%v)", c.RenderEveryI)
	}
	return nil
}

// toInt converts a hyperparameter value to an int, rejecting values
// that are not integral.
func toInt(name string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil

	case int64:
		return int(v), nil

	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("configFromMap: %v must be an integer "+
				"\n\thave(%v)", name, v)
		}
		return int(v), nil
	}
	return 0, fmt.Errorf("configFromMap: %v must be an integer "+
		"\n\thave(%T)", name, value)
}

// toFloat converts a hyperparameter value to a float64
func toFloat(name string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil

	case int:
		return float64(v), nil
	}
	return 0, fmt.Errorf("configFromMap: %v must be a number \n\thave(%T)",
		name, value)
}
